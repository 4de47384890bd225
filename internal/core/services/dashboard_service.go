package services

import (
	"context"
	"errors"
	"log"
	"sync"

	"collections-console/internal/adapters/upstream"
	"collections-console/internal/core/domain"
)

// RecentTransactionsLimit is how many transactions the dashboard shows
const RecentTransactionsLimit = 10

// DashboardService handles dashboard operations
type DashboardService struct {
	api CollectionsAPI
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(api CollectionsAPI) *DashboardService {
	return &DashboardService{api: api}
}

// DashboardData represents the dashboard screen. Each part carries its own
// error so one failing source does not blank the other.
type DashboardData struct {
	Stats              *domain.DashboardStats `json:"stats"`
	StatsError         string                 `json:"statsError,omitempty"`
	RecentTransactions []domain.Transaction   `json:"recentTransactions"`
	TransactionsError  string                 `json:"transactionsError,omitempty"`
}

// GetDashboard fetches stats and recent transactions concurrently.
// Only an authentication failure is returned as an error.
func (s *DashboardService) GetDashboard(ctx context.Context, sess *domain.Session) (*DashboardData, error) {
	data := &DashboardData{RecentTransactions: []domain.Transaction{}}

	var (
		wg       sync.WaitGroup
		statsErr error
		txErr    error
	)
	wg.Add(2)

	go func() {
		defer wg.Done()
		data.Stats, statsErr = s.api.DashboardStats(ctx, sess.AuthToken)
	}()

	go func() {
		defer wg.Done()
		page, err := s.api.ListTransactions(ctx, sess.AuthToken, upstream.TransactionQuery{Page: 1, Limit: RecentTransactionsLimit})
		if err != nil {
			txErr = err
			return
		}
		if page.Items != nil {
			data.RecentTransactions = page.Items
		}
	}()

	wg.Wait()

	if errors.Is(statsErr, domain.ErrUnauthenticated) || errors.Is(txErr, domain.ErrUnauthenticated) {
		return nil, domain.ErrUnauthenticated
	}
	if statsErr != nil {
		log.Printf("⚠️ Dashboard stats unavailable: %v", statsErr)
		data.StatsError = UserMessage(statsErr)
	}
	if txErr != nil {
		log.Printf("⚠️ Dashboard transactions unavailable: %v", txErr)
		data.TransactionsError = UserMessage(txErr)
	}
	return data, nil
}

// UserMessage renders an upstream error for staff
func UserMessage(err error) string {
	var apiErr *domain.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, domain.ErrUnreachable):
		return "The collections server is unreachable. Please retry."
	case errors.Is(err, domain.ErrValidation):
		return err.Error()
	}
	return "Something went wrong. Please retry."
}
