package upstream

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"collections-console/internal/core/domain"
)

// LoginUser is the staff profile returned by the login endpoint
type LoginUser struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

// LoginResult is the data of a successful login
type LoginResult struct {
	Token string    `json:"token"`
	User  LoginUser `json:"user"`
}

// Page is a page of list results as returned by the API
type Page[T any] struct {
	Items []T   `json:"items"`
	Total int64 `json:"total"`
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
}

// CustomerQuery filters the customer list
type CustomerQuery struct {
	Search    string
	Status    string
	InArrears bool
	Page      int
	Limit     int
}

func (q CustomerQuery) values() url.Values {
	v := url.Values{}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.InArrears {
		v.Set("inArrears", "true")
	}
	setPage(v, q.Page, q.Limit)
	return v
}

// TransactionQuery filters the transaction list and export
type TransactionQuery struct {
	Status     domain.TransactionStatus
	CustomerID string
	From       string
	To         string
	Page       int
	Limit      int
}

func (q TransactionQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.CustomerID != "" {
		v.Set("customerId", q.CustomerID)
	}
	if q.From != "" {
		v.Set("from", q.From)
	}
	if q.To != "" {
		v.Set("to", q.To)
	}
	setPage(v, q.Page, q.Limit)
	return v
}

func setPage(v url.Values, page, limit int) {
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
}

// NewComment is the body of a comment create call
type NewComment struct {
	Text       string `json:"text"`
	AuthorName string `json:"authorName"`
	Type       string `json:"type"`
}

// Login exchanges staff credentials for a bearer token
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, call{
		endpoint: "auth.login",
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     map[string]string{"username": username, "password": password},
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DashboardStats returns the portfolio summary
func (c *Client) DashboardStats(ctx context.Context, token string) (*domain.DashboardStats, error) {
	var out domain.DashboardStats
	if err := c.do(ctx, call{endpoint: "dashboard.stats", method: http.MethodGet, path: "/dashboard/stats", token: token}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListCustomers returns a page of customers
func (c *Client) ListCustomers(ctx context.Context, token string, q CustomerQuery) (*Page[domain.Customer], error) {
	var out Page[domain.Customer]
	err := c.do(ctx, call{
		endpoint: "customers.list",
		method:   http.MethodGet,
		path:     "/customers",
		token:    token,
		query:    q.values(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCustomer returns one customer
func (c *Client) GetCustomer(ctx context.Context, token, id string) (*domain.Customer, error) {
	var out domain.Customer
	err := c.do(ctx, call{
		endpoint: "customers.get",
		method:   http.MethodGet,
		path:     "/customers/" + url.PathEscape(id),
		token:    token,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ListComments returns the server's follow-up comments for a customer
func (c *Client) ListComments(ctx context.Context, token, customerID string) ([]domain.FollowUpComment, error) {
	var out []domain.FollowUpComment
	err := c.do(ctx, call{
		endpoint: "comments.list",
		method:   http.MethodGet,
		path:     "/customers/" + url.PathEscape(customerID) + "/comments",
		token:    token,
	}, &out)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].State = domain.CommentConfirmed
		if out[i].CustomerID == "" {
			out[i].CustomerID = customerID
		}
	}
	return out, nil
}

// CreateComment stores a follow-up comment and returns the canonical record
func (c *Client) CreateComment(ctx context.Context, token, customerID string, in NewComment) (*domain.FollowUpComment, error) {
	var out domain.FollowUpComment
	err := c.do(ctx, call{
		endpoint: "comments.create",
		method:   http.MethodPost,
		path:     "/customers/" + url.PathEscape(customerID) + "/comments",
		token:    token,
		body:     in,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("comments.create: response carried no comment for %s", customerID)
	}
	out.State = domain.CommentConfirmed
	if out.CustomerID == "" {
		out.CustomerID = customerID
	}
	return &out, nil
}

// CustomerStatement downloads a customer statement
func (c *Client) CustomerStatement(ctx context.Context, token, customerID, format string) (*domain.Export, error) {
	return c.download(ctx, call{
		endpoint: "customers.statement",
		method:   http.MethodGet,
		path:     "/customers/" + url.PathEscape(customerID) + "/statement",
		token:    token,
		query:    url.Values{"format": {format}},
	}, "statement-"+customerID+"."+format)
}

// ListTransactions returns a page of transactions
func (c *Client) ListTransactions(ctx context.Context, token string, q TransactionQuery) (*Page[domain.Transaction], error) {
	var out Page[domain.Transaction]
	err := c.do(ctx, call{
		endpoint: "transactions.list",
		method:   http.MethodGet,
		path:     "/transactions",
		token:    token,
		query:    q.values(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportTransactions downloads the filtered transactions
func (c *Client) ExportTransactions(ctx context.Context, token string, q TransactionQuery, format string) (*domain.Export, error) {
	v := q.values()
	v.Del("page")
	v.Del("limit")
	v.Set("format", format)
	return c.download(ctx, call{
		endpoint: "transactions.export",
		method:   http.MethodGet,
		path:     "/transactions/export",
		token:    token,
		query:    v,
	}, "transactions."+format)
}

// InitiatePayment asks the payment backend to send an M-Pesa prompt
func (c *Client) InitiatePayment(ctx context.Context, token string, req domain.PaymentRequest) (*domain.PaymentReceipt, error) {
	var out domain.PaymentReceipt
	err := c.do(ctx, call{
		endpoint: "payments.initiate",
		method:   http.MethodPost,
		path:     "/payments/initiate",
		token:    token,
		body:     req,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ReportSummary returns collection aggregates for a date range
func (c *Client) ReportSummary(ctx context.Context, token, from, to string) (*domain.ReportSummary, error) {
	v := url.Values{}
	if from != "" {
		v.Set("from", from)
	}
	if to != "" {
		v.Set("to", to)
	}
	var out domain.ReportSummary
	err := c.do(ctx, call{
		endpoint: "reports.summary",
		method:   http.MethodGet,
		path:     "/reports/summary",
		token:    token,
		query:    v,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExportReport downloads a report
func (c *Client) ExportReport(ctx context.Context, token, reportType, from, to, format string) (*domain.Export, error) {
	v := url.Values{"type": {reportType}, "format": {format}}
	if from != "" {
		v.Set("from", from)
	}
	if to != "" {
		v.Set("to", to)
	}
	return c.download(ctx, call{
		endpoint: "reports.export",
		method:   http.MethodGet,
		path:     "/reports/export",
		token:    token,
		query:    v,
	}, reportType+"-report."+format)
}
