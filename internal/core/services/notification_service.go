package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"collections-console/internal/adapters/persistence/models"
	"collections-console/internal/adapters/persistence/repositories"
	"collections-console/internal/config"
	"collections-console/internal/core/domain"
	"collections-console/internal/obs"

	"golang.org/x/time/rate"
)

// Message templates
const (
	paymentRequestTemplate = "Hello %s, a payment request of KES %.2f has been sent to your phone. Enter your M-Pesa PIN to complete the payment."
	receiptTemplate        = "Hello %s, we have received your payment of KES %.2f (ref %s). Thank you."
	reminderTemplate       = "Hello %s, your loan account is in arrears of KES %.2f. Please make a payment to avoid penalties."
)

// NotificationService sends WhatsApp messages to customers and keeps an audit log
type NotificationService struct {
	cfg      config.WhatsAppConfig
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logs     repositories.NotificationLogRepository
	enabled  bool
}

// NewNotificationService creates a new notification service
func NewNotificationService(cfg config.WhatsAppConfig, logs repositories.NotificationLogRepository) *NotificationService {
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = 1
	}
	// with a sender id the URL is the Graph API base: <base>/<sender>/messages
	endpoint := cfg.APIURL
	if cfg.Sender != "" && endpoint != "" {
		endpoint = strings.TrimSuffix(endpoint, "/") + "/" + cfg.Sender + "/messages"
	}
	return &NotificationService{
		cfg:      cfg,
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		logs:     logs,
		enabled:  cfg.Token != "" && endpoint != "",
	}
}

// IsEnabled checks if notification is enabled
func (s *NotificationService) IsEnabled() bool {
	return s.enabled
}

// SendPaymentRequest tells a customer an M-Pesa prompt is on its way
func (s *NotificationService) SendPaymentRequest(ctx context.Context, sentBy string, customer *domain.Customer, phone string, amount float64) error {
	text := fmt.Sprintf(paymentRequestTemplate, displayName(customer), amount)
	return s.send(ctx, models.KindPaymentRequest, sentBy, customerID(customer), phone, text)
}

// SendReceipt confirms a payment to a customer
func (s *NotificationService) SendReceipt(ctx context.Context, sentBy string, customer *domain.Customer, phone string, amount float64, reference string) error {
	text := fmt.Sprintf(receiptTemplate, displayName(customer), amount, reference)
	return s.send(ctx, models.KindReceipt, sentBy, customerID(customer), phone, text)
}

// SendReminder reminds a customer in arrears
func (s *NotificationService) SendReminder(ctx context.Context, sentBy string, customer *domain.Customer) error {
	text := fmt.Sprintf(reminderTemplate, displayName(customer), customer.ArrearsAmount)
	return s.send(ctx, models.KindReminder, sentBy, customer.ID, customer.PhoneNumber, text)
}

// RemindedSince reports whether a reminder already went out to the customer since t
func (s *NotificationService) RemindedSince(ctx context.Context, customerID string, t time.Time) (bool, error) {
	n, err := s.logs.CountSince(ctx, customerID, models.KindReminder, t)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// History returns the audit log, newest first
func (s *NotificationService) History(ctx context.Context, customerID string, offset, limit int) ([]*models.NotificationLog, int64, error) {
	return s.logs.List(ctx, customerID, offset, limit)
}

func (s *NotificationService) send(ctx context.Context, kind, sentBy, customerID, rawPhone, text string) error {
	phone, err := domain.NormalizePhone(rawPhone)
	if err != nil {
		return err
	}

	entry := &models.NotificationLog{
		CustomerID: customerID,
		Phone:      phone,
		Kind:       kind,
		Body:       text,
		SentBy:     sentBy,
	}

	if !s.enabled {
		log.Printf("⚠️ WhatsApp disabled, %s to %s not sent", kind, phone)
		entry.Status = models.StatusDisabled
		s.record(ctx, entry)
		return nil
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	messageID, sendErr := s.post(ctx, phone, text)
	if sendErr != nil {
		entry.Status = models.StatusFailed
		entry.Error = truncate(sendErr.Error(), 500)
		log.Printf("❌ WhatsApp %s to %s failed: %v", kind, phone, sendErr)
	} else {
		entry.Status = models.StatusSent
		entry.ProviderMessageID = messageID
		log.Printf("📨 WhatsApp %s sent to %s", kind, phone)
	}
	s.record(ctx, entry)
	return sendErr
}

func (s *NotificationService) record(ctx context.Context, entry *models.NotificationLog) {
	obs.NotificationSent(entry.Kind, entry.Status)
	if err := s.logs.Create(ctx, entry); err != nil {
		log.Printf("❌ Failed to write notification log: %v", err)
	}
}

type whatsAppMessage struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             whatsAppText `json:"text"`
}

type whatsAppText struct {
	Body string `json:"body"`
}

type whatsAppResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// post sends one text message through the WhatsApp API and returns its id
func (s *NotificationService) post(ctx context.Context, phone, text string) (string, error) {
	payload, err := json.Marshal(whatsAppMessage{
		MessagingProduct: "whatsapp",
		To:               phone,
		Type:             "text",
		Text:             whatsAppText{Body: text},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.Token)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var out whatsAppResponse
	json.Unmarshal(body, &out)

	if resp.StatusCode >= 300 {
		if out.Error != nil && out.Error.Message != "" {
			return "", fmt.Errorf("whatsapp error (status %d): %s", resp.StatusCode, out.Error.Message)
		}
		return "", fmt.Errorf("whatsapp error (status %d): %s", resp.StatusCode, truncate(string(body), 200))
	}
	if len(out.Messages) == 0 {
		return "", nil
	}
	return out.Messages[0].ID, nil
}

func displayName(c *domain.Customer) string {
	if c == nil || c.Name == "" {
		return "customer"
	}
	return c.Name
}

func customerID(c *domain.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
