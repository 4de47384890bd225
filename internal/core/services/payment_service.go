package services

import (
	"context"
	"log"
	"math"
	"strings"
	"time"

	"collections-console/internal/core/domain"
)

// PaymentService initiates M-Pesa payment prompts
type PaymentService struct {
	api          CollectionsAPI
	messenger    Messenger
	refreshDelay time.Duration
	async        func(func())
}

// NewPaymentService creates a new payment service. messenger may be nil.
func NewPaymentService(api CollectionsAPI, messenger Messenger, refreshDelay time.Duration) *PaymentService {
	if refreshDelay <= 0 {
		refreshDelay = 5 * time.Second
	}
	return &PaymentService{
		api:          api,
		messenger:    messenger,
		refreshDelay: refreshDelay,
		async:        func(fn func()) { go fn() },
	}
}

// PaymentInput is a staff payment request as typed in the console
type PaymentInput struct {
	CustomerID  string  `json:"customerId"`
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description"`
}

// PaymentResult tells the console what happened and when to refresh.
// The console does not poll; it reloads once after RefreshAfterSeconds.
type PaymentResult struct {
	Receipt             *domain.PaymentReceipt `json:"receipt"`
	PhoneNumber         string                 `json:"phoneNumber"`
	Amount              float64                `json:"amount"`
	RefreshAfterSeconds int                    `json:"refreshAfterSeconds"`
}

// ReceiptInput asks for a receipt message to be sent
type ReceiptInput struct {
	CustomerID  string  `json:"customerId"`
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	Reference   string  `json:"reference"`
}

// ValidatePayment normalizes the phone number and checks the amount
func ValidatePayment(in PaymentInput) (domain.PaymentRequest, error) {
	phone, err := domain.NormalizePhone(in.PhoneNumber)
	if err != nil || !domain.IsPaymentPhone(phone) {
		return domain.PaymentRequest{}, domain.ErrInvalidPhone
	}
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || in.Amount <= 0 {
		return domain.PaymentRequest{}, domain.ErrInvalidAmount
	}
	return domain.PaymentRequest{
		CustomerID:  strings.TrimSpace(in.CustomerID),
		PhoneNumber: phone,
		Amount:      math.Round(in.Amount*100) / 100,
		Description: strings.TrimSpace(in.Description),
	}, nil
}

// Initiate validates and submits a payment request. Validation failures
// never reach the network.
func (s *PaymentService) Initiate(ctx context.Context, sess *domain.Session, in PaymentInput) (*PaymentResult, error) {
	req, err := ValidatePayment(in)
	if err != nil {
		return nil, err
	}

	receipt, err := s.api.InitiatePayment(ctx, sess.AuthToken, req)
	if err != nil {
		return nil, err
	}
	log.Printf("✅ Payment of KES %.2f requested from %s by %s", req.Amount, req.PhoneNumber, sess.Name)

	if s.messenger != nil {
		sender, token := sess.Name, sess.AuthToken
		s.async(func() {
			bg, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			customer := s.lookup(bg, token, req.CustomerID)
			if err := s.messenger.SendPaymentRequest(bg, sender, customer, req.PhoneNumber, req.Amount); err != nil {
				log.Printf("⚠️ Payment request message not sent: %v", err)
			}
		})
	}

	return &PaymentResult{
		Receipt:             receipt,
		PhoneNumber:         req.PhoneNumber,
		Amount:              req.Amount,
		RefreshAfterSeconds: int(s.refreshDelay / time.Second),
	}, nil
}

// SendReceipt messages a customer about a completed payment
func (s *PaymentService) SendReceipt(ctx context.Context, sess *domain.Session, in ReceiptInput) error {
	if s.messenger == nil {
		return domain.ValidationError("messaging is not configured")
	}
	if in.Amount <= 0 {
		return domain.ErrInvalidAmount
	}
	if strings.TrimSpace(in.Reference) == "" {
		return domain.ValidationError("reference is required")
	}
	customer := s.lookup(ctx, sess.AuthToken, in.CustomerID)
	phone := in.PhoneNumber
	if phone == "" && customer != nil {
		phone = customer.PhoneNumber
	}
	return s.messenger.SendReceipt(ctx, sess.Name, customer, phone, in.Amount, strings.TrimSpace(in.Reference))
}

// lookup fetches a customer for message personalisation; failures are tolerated
func (s *PaymentService) lookup(ctx context.Context, token, customerID string) *domain.Customer {
	if customerID == "" {
		return nil
	}
	customer, err := s.api.GetCustomer(ctx, token, customerID)
	if err != nil {
		log.Printf("⚠️ Customer %s lookup for message failed: %v", customerID, err)
		return nil
	}
	return customer
}
