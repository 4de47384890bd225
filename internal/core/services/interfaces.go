package services

import (
	"context"

	"collections-console/internal/adapters/persistence/kvstore"
	"collections-console/internal/adapters/upstream"
	"collections-console/internal/core/domain"
)

// CollectionsAPI is the collections REST API as the services use it.
// *upstream.Client implements it.
type CollectionsAPI interface {
	Login(ctx context.Context, username, password string) (*upstream.LoginResult, error)
	DashboardStats(ctx context.Context, token string) (*domain.DashboardStats, error)
	ListCustomers(ctx context.Context, token string, q upstream.CustomerQuery) (*upstream.Page[domain.Customer], error)
	GetCustomer(ctx context.Context, token, id string) (*domain.Customer, error)
	ListComments(ctx context.Context, token, customerID string) ([]domain.FollowUpComment, error)
	CreateComment(ctx context.Context, token, customerID string, in upstream.NewComment) (*domain.FollowUpComment, error)
	CustomerStatement(ctx context.Context, token, customerID, format string) (*domain.Export, error)
	ListTransactions(ctx context.Context, token string, q upstream.TransactionQuery) (*upstream.Page[domain.Transaction], error)
	ExportTransactions(ctx context.Context, token string, q upstream.TransactionQuery, format string) (*domain.Export, error)
	InitiatePayment(ctx context.Context, token string, req domain.PaymentRequest) (*domain.PaymentReceipt, error)
	ReportSummary(ctx context.Context, token, from, to string) (*domain.ReportSummary, error)
	ExportReport(ctx context.Context, token, reportType, from, to, format string) (*domain.Export, error)
}

// SessionRepository persists console sessions
type SessionRepository interface {
	Put(sessionID, sealedToken string, user kvstore.StoredUser) error
	Get(sessionID string) (string, kvstore.StoredUser, error)
	Delete(sessionID string) error
}

// CommentCache is the per-customer comment snapshot store
type CommentCache interface {
	Snapshot(customerID string) ([]domain.FollowUpComment, bool, error)
	Replace(customerID string, comments []domain.FollowUpComment) error
	Update(customerID string, fn func([]domain.FollowUpComment) []domain.FollowUpComment) error
	PendingCustomers() ([]string, error)
}

// Messenger sends customer-facing messages. customer may be nil when only
// the phone number is known.
type Messenger interface {
	SendPaymentRequest(ctx context.Context, sentBy string, customer *domain.Customer, phone string, amount float64) error
	SendReceipt(ctx context.Context, sentBy string, customer *domain.Customer, phone string, amount float64, reference string) error
	SendReminder(ctx context.Context, sentBy string, customer *domain.Customer) error
}

var (
	_ CollectionsAPI    = (*upstream.Client)(nil)
	_ SessionRepository = (*kvstore.SessionStore)(nil)
	_ CommentCache      = (*kvstore.CommentCache)(nil)
	_ Messenger         = (*NotificationService)(nil)
)
