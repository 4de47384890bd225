package domain

import (
	"encoding/json"
	"time"
)

// Role represents a staff role in the console
type Role string

const (
	RoleAgent      Role = "AGENT"
	RoleSupervisor Role = "SUPERVISOR"
	RoleAdmin      Role = "ADMIN"
)

// Session represents an authenticated staff session
type Session struct {
	ID        string    `json:"-"`
	UserID    string    `json:"userId"`
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	AuthToken string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserProfile is the part of the session that is safe to show in the UI
type UserProfile struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   Role   `json:"role"`
}

// Profile returns the displayable part of the session
func (s *Session) Profile() UserProfile {
	return UserProfile{UserID: s.UserID, Name: s.Name, Role: s.Role}
}

// Customer represents a borrower as reported by the collections API (read only)
type Customer struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	PhoneNumber     string     `json:"phoneNumber"`
	LoanBalance     float64    `json:"loanBalance"`
	ArrearsAmount   float64    `json:"arrearsAmount"`
	LastPaymentDate *time.Time `json:"lastPaymentDate,omitempty"`
	Status          string     `json:"status"`
}

// InArrears reports whether the customer has an overdue balance
func (c *Customer) InArrears() bool {
	return c.ArrearsAmount > 0
}

// TransactionStatus is one of a small fixed set reported by the payment backend
type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxSuccess   TransactionStatus = "success"
	TxFailed    TransactionStatus = "failed"
	TxExpired   TransactionStatus = "expired"
	TxCancelled TransactionStatus = "cancelled"
)

// Valid reports whether s is one of the known transaction statuses
func (s TransactionStatus) Valid() bool {
	switch s {
	case TxPending, TxSuccess, TxFailed, TxExpired, TxCancelled:
		return true
	}
	return false
}

// Transaction represents a payment record (read only except for initiation)
type Transaction struct {
	ID            string            `json:"id"`
	CustomerID    string            `json:"customerId"`
	CustomerName  string            `json:"customerName,omitempty"`
	PhoneNumber   string            `json:"phoneNumber,omitempty"`
	Amount        float64           `json:"amount"`
	Status        TransactionStatus `json:"status"`
	PaymentMethod string            `json:"paymentMethod"`
	Reference     string            `json:"reference,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// DashboardStats is the portfolio summary shown on the dashboard
type DashboardStats struct {
	TotalCustomers      int64   `json:"totalCustomers"`
	CustomersInArrears  int64   `json:"customersInArrears"`
	TotalLoanBalance    float64 `json:"totalLoanBalance"`
	TotalArrears        float64 `json:"totalArrears"`
	CollectedToday      float64 `json:"collectedToday"`
	CollectedThisMonth  float64 `json:"collectedThisMonth"`
	PendingTransactions int64   `json:"pendingTransactions"`
}

// ReportSummary is the aggregate returned by the reports screen
type ReportSummary struct {
	From              string             `json:"from"`
	To                string             `json:"to"`
	TotalCollected    float64            `json:"totalCollected"`
	TransactionCount  int64              `json:"transactionCount"`
	SuccessRate       float64            `json:"successRate"`
	ByStatus          map[string]int64   `json:"byStatus"`
	ByPaymentMethod   map[string]float64 `json:"byPaymentMethod"`
	NewArrearsCount   int64              `json:"newArrearsCount"`
	ClearedArrearsSum float64            `json:"clearedArrearsSum"`
}

// Export is a downloadable file produced by the collections API
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PaymentRequest is a staff-initiated M-Pesa prompt
type PaymentRequest struct {
	CustomerID  string  `json:"customerId,omitempty"`
	PhoneNumber string  `json:"phoneNumber"`
	Amount      float64 `json:"amount"`
	Description string  `json:"description,omitempty"`
}

// PaymentReceipt is what the server returns after accepting a payment request
type PaymentReceipt struct {
	TransactionID     string            `json:"transactionId"`
	CheckoutRequestID string            `json:"checkoutRequestId,omitempty"`
	Status            TransactionStatus `json:"status"`
	Message           string            `json:"message,omitempty"`
}

// CommentState is the sync state of a follow-up comment.
//
// Transitions: optimistic -> confirmed, or optimistic -> pending_local -> confirmed.
type CommentState string

const (
	CommentOptimistic   CommentState = "optimistic"
	CommentPendingLocal CommentState = "pending_local"
	CommentConfirmed    CommentState = "confirmed"
)

// Comment types accepted by the collections API
const (
	CommentTypeFollowUp     = "follow_up"
	CommentTypeCall         = "call"
	CommentTypeVisit        = "visit"
	CommentTypePromiseToPay = "promise_to_pay"
	CommentTypeOther        = "other"
)

// ValidCommentType reports whether t is an accepted comment type
func ValidCommentType(t string) bool {
	switch t {
	case CommentTypeFollowUp, CommentTypeCall, CommentTypeVisit, CommentTypePromiseToPay, CommentTypeOther:
		return true
	}
	return false
}

// FollowUpComment is a staff note attached to a customer
type FollowUpComment struct {
	ID            string       `json:"id"`
	CustomerID    string       `json:"customerId"`
	AuthorName    string       `json:"authorName"`
	Text          string       `json:"text"`
	Type          string       `json:"type"`
	CreatedAt     time.Time    `json:"createdAt"`
	State         CommentState `json:"state"`
	Attempts      int          `json:"attempts,omitempty"`
	LastAttemptAt *time.Time   `json:"lastAttemptAt,omitempty"`
}

// LocallyPersisted reports whether the comment only exists in the local cache
func (c *FollowUpComment) LocallyPersisted() bool {
	return c.State == CommentPendingLocal
}

// MarshalJSON adds the derived locallyPersisted flag for the UI
func (c FollowUpComment) MarshalJSON() ([]byte, error) {
	type plain FollowUpComment
	return json.Marshal(struct {
		plain
		LocallyPersisted bool `json:"locallyPersisted"`
	}{plain(c), c.LocallyPersisted()})
}

// UnmarshalJSON accepts both the state field and the bare locallyPersisted flag
// the collections API and older cache snapshots use.
func (c *FollowUpComment) UnmarshalJSON(data []byte) error {
	type plain FollowUpComment
	var aux struct {
		plain
		LocallyPersisted *bool `json:"locallyPersisted"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = FollowUpComment(aux.plain)
	if c.State == "" {
		if aux.LocallyPersisted != nil && *aux.LocallyPersisted {
			c.State = CommentPendingLocal
		} else {
			c.State = CommentConfirmed
		}
	}
	return nil
}
