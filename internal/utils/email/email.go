package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/sirupsen/logrus"

	"github.com/corefin/billing-service/internal/config"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// SendInstallmentReminder sends a reminder for a scheduled installment
// coming due on an auto-bill invoice. amount is always the resolved currency
// value, even for percentage-denominated entries.
func (s *Sender) SendInstallmentReminder(to, clientName, invoiceID string, dueDate time.Time, amount float64) error {
	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Upcoming payment for invoice %s", invoiceID)

	body := fmt.Sprintf(
		"Dear %s,\n\n", clientName,
	)
	body += fmt.Sprintf(
		"This is a reminder that a scheduled payment of %.2f for invoice %s is due on %s.\n"+
			"The amount will be billed automatically on the due date.\n",
		amount, invoiceID, dueDate.Format("2006-01-02"),
	)
	body += "\nBest regards,\nBilling Service"
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	err := e.Send(addr, auth)
	if err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, e.Subject)
	return nil
}
