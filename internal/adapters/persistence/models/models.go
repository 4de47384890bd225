package models

import (
	"time"

	"gorm.io/gorm"
)

// Notification kinds
const (
	KindPaymentRequest = "PAYMENT_REQUEST"
	KindReceipt        = "RECEIPT"
	KindReminder       = "REMINDER"
)

// Notification statuses
const (
	StatusSent     = "SENT"
	StatusFailed   = "FAILED"
	StatusDisabled = "DISABLED"
)

// NotificationLog represents notification_logs table:
// one row per outbound WhatsApp message attempt
type NotificationLog struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	CustomerID        string    `gorm:"size:64;index" json:"customer_id"`
	Phone             string    `gorm:"size:20;not null" json:"phone"`
	Kind              string    `gorm:"size:30;index;not null" json:"kind"`
	Body              string    `gorm:"type:text" json:"body"`
	Status            string    `gorm:"size:20;not null" json:"status"`
	ProviderMessageID string    `gorm:"size:100" json:"provider_message_id,omitempty"`
	Error             string    `gorm:"size:500" json:"error,omitempty"`
	SentBy            string    `gorm:"size:100" json:"sent_by,omitempty"`
	CreatedAt         time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

func (NotificationLog) TableName() string {
	return "notification_logs"
}

// AutoMigrate creates the audit tables if they do not exist
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&NotificationLog{},
	)
}
