package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"collections-console/internal/adapters/persistence/kvstore"
	"collections-console/internal/adapters/upstream"
	"collections-console/internal/core/domain"
)

// fakeAPI is an in-memory collections API. Unimplemented methods panic via the nil embed.
type fakeAPI struct {
	CollectionsAPI

	mu          sync.Mutex
	comments    map[string][]domain.FollowUpComment
	customers   map[string]*domain.Customer
	createErr   error
	listErr     error
	createCalls int
	listCalls   int
	nextID      int
	serverTime  time.Time

	loginFn    func(username, password string) (*upstream.LoginResult, error)
	statsFn    func() (*domain.DashboardStats, error)
	txFn       func(q upstream.TransactionQuery) (*upstream.Page[domain.Transaction], error)
	customerFn func(q upstream.CustomerQuery) (*upstream.Page[domain.Customer], error)
	paymentFn  func(req domain.PaymentRequest) (*domain.PaymentReceipt, error)
	exportFn   func(kind string) (*domain.Export, error)
	summaryFn  func(from, to string) (*domain.ReportSummary, error)
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{
		comments:   make(map[string][]domain.FollowUpComment),
		customers:  make(map[string]*domain.Customer),
		serverTime: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (f *fakeAPI) setCreateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createErr = err
}

func (f *fakeAPI) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeAPI) calls() (create, list int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.createCalls, f.listCalls
}

func (f *fakeAPI) serverComments(customerID string) []domain.FollowUpComment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.FollowUpComment{}, f.comments[customerID]...)
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) (*upstream.LoginResult, error) {
	return f.loginFn(username, password)
}

func (f *fakeAPI) DashboardStats(ctx context.Context, token string) (*domain.DashboardStats, error) {
	return f.statsFn()
}

func (f *fakeAPI) ListTransactions(ctx context.Context, token string, q upstream.TransactionQuery) (*upstream.Page[domain.Transaction], error) {
	return f.txFn(q)
}

func (f *fakeAPI) ListCustomers(ctx context.Context, token string, q upstream.CustomerQuery) (*upstream.Page[domain.Customer], error) {
	return f.customerFn(q)
}

func (f *fakeAPI) GetCustomer(ctx context.Context, token, id string) (*domain.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, &domain.APIError{StatusCode: 404, Message: "Customer not found"}
	}
	return c, nil
}

func (f *fakeAPI) InitiatePayment(ctx context.Context, token string, req domain.PaymentRequest) (*domain.PaymentReceipt, error) {
	return f.paymentFn(req)
}

func (f *fakeAPI) ReportSummary(ctx context.Context, token, from, to string) (*domain.ReportSummary, error) {
	return f.summaryFn(from, to)
}

func (f *fakeAPI) ExportReport(ctx context.Context, token, reportType, from, to, format string) (*domain.Export, error) {
	return f.exportFn("report:" + reportType + ":" + format)
}

func (f *fakeAPI) ExportTransactions(ctx context.Context, token string, q upstream.TransactionQuery, format string) (*domain.Export, error) {
	return f.exportFn("transactions:" + format)
}

func (f *fakeAPI) CustomerStatement(ctx context.Context, token, customerID, format string) (*domain.Export, error) {
	return f.exportFn("statement:" + customerID + ":" + format)
}

func (f *fakeAPI) ListComments(ctx context.Context, token, customerID string) ([]domain.FollowUpComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.FollowUpComment{}, f.comments[customerID]...), nil
}

func (f *fakeAPI) CreateComment(ctx context.Context, token, customerID string, in upstream.NewComment) (*domain.FollowUpComment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	c := domain.FollowUpComment{
		ID:         fmt.Sprintf("srv-%d", f.nextID),
		CustomerID: customerID,
		AuthorName: in.AuthorName,
		Text:       in.Text,
		Type:       in.Type,
		CreatedAt:  f.serverTime.Add(time.Duration(f.nextID) * time.Minute),
		State:      domain.CommentConfirmed,
	}
	f.comments[customerID] = append(f.comments[customerID], c)
	return &c, nil
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newCommentCache(t *testing.T) *kvstore.CommentCache {
	t.Helper()
	store, err := kvstore.Open(filepath.Join(t.TempDir(), "console.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return kvstore.NewCommentCache(store)
}

func testSession() *domain.Session {
	return &domain.Session{ID: "sess-1", UserID: "U1", Name: "Agent A", Role: domain.RoleAgent, AuthToken: "tok"}
}

func upstreamNote(text string) upstream.NewComment {
	return upstream.NewComment{Text: text, AuthorName: "Agent B", Type: domain.CommentTypeFollowUp}
}
