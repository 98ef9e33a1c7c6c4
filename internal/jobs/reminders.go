package jobs

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/corefin/billing-service/internal/config"
	"github.com/corefin/billing-service/internal/models"
	"github.com/corefin/billing-service/internal/repository"
	"github.com/corefin/billing-service/internal/utils/email"
)

// ReminderScheduler runs the daily sweep over auto-bill schedules and mails
// clients about installments falling due inside the configured window.
type ReminderScheduler struct {
	repo   *repository.Repository
	sender *email.Sender
	log    *logrus.Logger
	cfg    *config.Config
	cron   *cron.Cron
}

// NewReminderScheduler initializes the reminder scheduler
func NewReminderScheduler(repo *repository.Repository, sender *email.Sender, log *logrus.Logger, cfg *config.Config) *ReminderScheduler {
	return &ReminderScheduler{
		repo:   repo,
		sender: sender,
		log:    log,
		cfg:    cfg,
		cron:   cron.New(),
	}
}

// Start registers the cron entry and begins running it
func (s *ReminderScheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.ReminderCron, s.RunOnce); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Infof("Reminder scheduler started with spec %q", s.cfg.ReminderCron)
	return nil
}

// Stop halts the cron runner, waiting for an in-flight sweep to finish
func (s *ReminderScheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs a single sweep. Failures are logged per reminder and
// never abort the rest of the batch.
func (s *ReminderScheduler) RunOnce() {
	from := models.Day(time.Now())
	to := from.AddDate(0, 0, s.cfg.ReminderWindowDays)

	reminders, err := s.repo.ListDueReminders(from, to)
	if err != nil {
		s.log.Errorf("Reminder sweep failed: %v", err)
		return
	}

	sent := 0
	for _, rem := range reminders {
		if rem.ClientEmail == "" {
			continue
		}
		amount := rem.Amount
		if !rem.IsAmount {
			// Percentage entries resolve against the invoice total.
			amount = rem.Amount * rem.InvoiceAmount / 100
		}
		if err := s.sender.SendInstallmentReminder(rem.ClientEmail, rem.ClientName, rem.InvoiceID, rem.DueDate, amount); err != nil {
			s.log.Errorf("Failed to remind %s about invoice %s: %v", rem.ClientEmail, rem.InvoiceID, err)
			continue
		}
		sent++
	}
	s.log.Infof("Reminder sweep complete: %d due, %d sent", len(reminders), sent)
}
