package services

import (
	"context"
	"strings"
	"time"

	"collections-console/internal/adapters/upstream"
	"collections-console/internal/core/domain"
)

const dateLayout = "2006-01-02"

// TransactionService backs the transactions screen
type TransactionService struct {
	api CollectionsAPI
}

// NewTransactionService creates a new transaction service
func NewTransactionService(api CollectionsAPI) *TransactionService {
	return &TransactionService{api: api}
}

// List returns a page of transactions matching q
func (s *TransactionService) List(ctx context.Context, sess *domain.Session, q upstream.TransactionQuery) (*upstream.Page[domain.Transaction], error) {
	if err := validateTransactionQuery(&q); err != nil {
		return nil, err
	}
	return s.api.ListTransactions(ctx, sess.AuthToken, q)
}

// Export downloads the transactions matching q
func (s *TransactionService) Export(ctx context.Context, sess *domain.Session, q upstream.TransactionQuery, format string) (*domain.Export, error) {
	if err := validateTransactionQuery(&q); err != nil {
		return nil, err
	}
	format, err := exportFormat(format)
	if err != nil {
		return nil, err
	}
	return s.api.ExportTransactions(ctx, sess.AuthToken, q, format)
}

func validateTransactionQuery(q *upstream.TransactionQuery) error {
	q.Status = domain.TransactionStatus(strings.ToLower(strings.TrimSpace(string(q.Status))))
	if q.Status != "" && !q.Status.Valid() {
		return domain.ValidationError("unknown transaction status %q", q.Status)
	}
	return validateRange(q.From, q.To)
}

// validateRange checks optional YYYY-MM-DD bounds
func validateRange(from, to string) error {
	var start, end time.Time
	var err error
	if from != "" {
		if start, err = time.Parse(dateLayout, from); err != nil {
			return domain.ValidationError("from must be a date (YYYY-MM-DD)")
		}
	}
	if to != "" {
		if end, err = time.Parse(dateLayout, to); err != nil {
			return domain.ValidationError("to must be a date (YYYY-MM-DD)")
		}
	}
	if from != "" && to != "" && end.Before(start) {
		return domain.ValidationError("from must not be after to")
	}
	return nil
}
