package services

import (
	"context"
	"log"
	"time"

	"collections-console/internal/adapters/upstream"
	"collections-console/internal/config"
	"collections-console/internal/core/domain"

	"github.com/robfig/cron/v3"
)

const (
	reminderPageSize = 100
	jobTimeout       = 10 * time.Minute
)

// ReminderSender is what the reminder job needs from the notification service
type ReminderSender interface {
	SendReminder(ctx context.Context, sentBy string, customer *domain.Customer) error
	RemindedSince(ctx context.Context, customerID string, t time.Time) (bool, error)
}

// ServiceLogin obtains a session for background work
type ServiceLogin interface {
	ServiceSession(ctx context.Context) (*domain.Session, error)
}

// CronService runs background jobs on a schedule
type CronService struct {
	cron      *cron.Cron
	cfg       *config.Config
	login     ServiceLogin
	comments  *CommentService
	api       CollectionsAPI
	reminders ReminderSender
	now       func() time.Time
}

// NewCronService creates a new cron service. reminders may be nil.
func NewCronService(cfg *config.Config, login ServiceLogin, comments *CommentService, api CollectionsAPI, reminders ReminderSender) *CronService {
	return &CronService{
		cron:      cron.New(),
		cfg:       cfg,
		login:     login,
		comments:  comments,
		api:       api,
		reminders: reminders,
		now:       time.Now,
	}
}

// Start registers the jobs and starts the scheduler
func (s *CronService) Start() error {
	if !s.cfg.Service.Configured() {
		log.Println("⚠️ SERVICE_USERNAME/SERVICE_PASSWORD not set, background jobs disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.Cron.ReconcileSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if _, err := s.RunReconcile(ctx); err != nil {
			log.Printf("❌ Reconcile sweep failed: %v", err)
		}
	}); err != nil {
		return err
	}

	if s.reminders != nil {
		if _, err := s.cron.AddFunc(s.cfg.Cron.ReminderSpec, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if _, err := s.RunReminders(ctx); err != nil {
				log.Printf("❌ Arrears reminders failed: %v", err)
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.Printf("✅ Cron started (reconcile %q, reminders %q)", s.cfg.Cron.ReconcileSpec, s.cfg.Cron.ReminderSpec)
	return nil
}

// Stop stops the scheduler and waits for running jobs
func (s *CronService) Stop() {
	<-s.cron.Stop().Done()
}

// RunReconcile pushes every locally pending comment with the service account
func (s *CronService) RunReconcile(ctx context.Context) ([]ReconcileResult, error) {
	sess, err := s.login.ServiceSession(ctx)
	if err != nil {
		return nil, err
	}

	results, err := s.comments.ReconcileAll(ctx, sess)
	synced := 0
	for _, r := range results {
		synced += r.Synced
	}
	if len(results) > 0 {
		log.Printf("🔄 Reconcile sweep: %d customer(s), %d comment(s) synced", len(results), synced)
	}
	return results, err
}

// RunReminders sends one arrears reminder per customer per day
func (s *CronService) RunReminders(ctx context.Context) (int, error) {
	if s.reminders == nil {
		return 0, nil
	}
	sess, err := s.login.ServiceSession(ctx)
	if err != nil {
		return 0, err
	}

	now := s.now()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	sent := 0
	for page := 1; ; page++ {
		res, err := s.api.ListCustomers(ctx, sess.AuthToken, upstream.CustomerQuery{InArrears: true, Page: page, Limit: reminderPageSize})
		if err != nil {
			return sent, err
		}

		for i := range res.Items {
			customer := res.Items[i]
			if !customer.InArrears() || customer.PhoneNumber == "" {
				continue
			}
			done, err := s.reminders.RemindedSince(ctx, customer.ID, startOfDay)
			if err != nil {
				return sent, err
			}
			if done {
				continue
			}
			if err := s.reminders.SendReminder(ctx, "cron", &customer); err != nil {
				log.Printf("⚠️ Reminder to %s failed: %v", customer.ID, err)
				continue
			}
			sent++
		}

		if len(res.Items) < reminderPageSize || int64(page*reminderPageSize) >= res.Total {
			break
		}
	}

	log.Printf("📨 Arrears reminders sent: %d", sent)
	return sent, nil
}
