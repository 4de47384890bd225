package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"collections-console/internal/adapters/upstream"
	"collections-console/internal/core/domain"
)

// CustomerService backs the customers list and details screens
type CustomerService struct {
	api      CollectionsAPI
	comments *CommentService
}

// NewCustomerService creates a new customer service
func NewCustomerService(api CollectionsAPI, comments *CommentService) *CustomerService {
	return &CustomerService{api: api, comments: comments}
}

// CustomerDetails is the details screen: the customer and their comment history
type CustomerDetails struct {
	Customer  *domain.Customer `json:"customer"`
	Comments  CommentView      `json:"comments"`
	Reconcile ReconcileResult  `json:"reconcile"`
}

// List returns a page of customers
func (s *CustomerService) List(ctx context.Context, sess *domain.Session, q upstream.CustomerQuery) (*upstream.Page[domain.Customer], error) {
	q.Search = strings.TrimSpace(q.Search)
	return s.api.ListCustomers(ctx, sess.AuthToken, q)
}

// Details loads a customer, pushes any locally pending comments and then
// loads the comment history
func (s *CustomerService) Details(ctx context.Context, sess *domain.Session, customerID string) (*CustomerDetails, error) {
	customer, err := s.api.GetCustomer(ctx, sess.AuthToken, customerID)
	if err != nil {
		return nil, err
	}

	thread := s.comments.Thread(sess.ID, customerID)
	result, err := thread.Reconcile(ctx, sess, false)
	if err != nil {
		if errors.Is(err, domain.ErrUnauthenticated) {
			return nil, err
		}
		log.Printf("⚠️ Reconcile for %s failed: %v", customerID, err)
	}

	return &CustomerDetails{
		Customer:  customer,
		Comments:  thread.Load(ctx, sess),
		Reconcile: result,
	}, nil
}

// Comments reloads the comment history of a customer
func (s *CustomerService) Comments(ctx context.Context, sess *domain.Session, customerID string) CommentView {
	return s.comments.Thread(sess.ID, customerID).Load(ctx, sess)
}

// AddComment saves a follow-up comment and returns it with the updated history
func (s *CustomerService) AddComment(ctx context.Context, sess *domain.Session, customerID, text, commentType string) (*domain.FollowUpComment, CommentView, error) {
	thread := s.comments.Thread(sess.ID, customerID)
	saved, err := thread.Save(ctx, sess, text, commentType)
	if err != nil {
		return nil, CommentView{}, err
	}
	return saved, thread.History(), nil
}

// Reconcile pushes pending comments now. force includes stalled entries.
func (s *CustomerService) Reconcile(ctx context.Context, sess *domain.Session, customerID string, force bool) (ReconcileResult, CommentView, error) {
	thread := s.comments.Thread(sess.ID, customerID)
	result, err := thread.Reconcile(ctx, sess, force)
	if err != nil {
		return result, CommentView{}, err
	}
	return result, thread.History(), nil
}

// Statement downloads a customer statement
func (s *CustomerService) Statement(ctx context.Context, sess *domain.Session, customerID, format string) (*domain.Export, error) {
	format, err := exportFormat(format)
	if err != nil {
		return nil, err
	}
	return s.api.CustomerStatement(ctx, sess.AuthToken, customerID, format)
}

// exportFormat validates an export format, defaulting to csv
func exportFormat(format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "":
		return "csv", nil
	case "csv", "pdf":
		return format, nil
	}
	return "", domain.ValidationError("format must be csv or pdf")
}
