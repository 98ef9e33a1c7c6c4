package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/corefin/billing-service/internal/config"
	"github.com/corefin/billing-service/internal/models"
	"github.com/corefin/billing-service/internal/repository"
	"github.com/corefin/billing-service/internal/schedule"
	"github.com/corefin/billing-service/internal/utils"
)

// ErrCouldNotSave marks a persistence failure. It is a distinct category
// from validation errors: the in-memory schedule that failed to save is
// still locally valid and is returned to the caller untouched.
var ErrCouldNotSave = errors.New("could not save schedule")

// ErrNotFound is returned when a referenced entity does not exist.
var ErrNotFound = repository.ErrNotFound

// Service handles business logic
type Service struct {
	repo   *repository.Repository
	log    *logrus.Logger
	config *config.Config
}

// NewService initializes a new service
func NewService(repo *repository.Repository, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{repo: repo, log: log, config: cfg}
}

// Register creates a new user with hashed password
func (s *Service) Register(username, email, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.repo.CreateUser(user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(email, password string) (string, error) {
	user, err := s.repo.FindUserByEmail(email)
	if err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Email)
	return tokenString, nil
}

// CreateClient creates a new client
func (s *Service) CreateClient(ctx context.Context, name, email string) (*models.Client, error) {
	client := &models.Client{Name: name, Email: email}
	if err := s.repo.CreateClient(client); err != nil {
		return nil, err
	}
	s.log.Infof("Client created: %s", client.Name)
	return client, nil
}

// GetClient retrieves a client by id
func (s *Service) GetClient(ctx context.Context, id int64) (*models.Client, error) {
	return s.repo.FindClientByID(id)
}

// CreateInvoice creates an invoice for a client with a generated number
func (s *Service) CreateInvoice(ctx context.Context, clientID int64, amount float64) (*models.Invoice, error) {
	userIDStr, ok := ctx.Value("userID").(string)
	if !ok || userIDStr == "" {
		return nil, fmt.Errorf("user ID not found in context")
	}
	if amount < 0 {
		return nil, fmt.Errorf("invoice amount must not be negative")
	}
	if _, err := s.repo.FindClientByID(clientID); err != nil {
		return nil, err
	}

	number, err := utils.GenerateInvoiceNumber("INV-", 14)
	if err != nil {
		return nil, fmt.Errorf("failed to generate invoice number: %w", err)
	}

	invoice := &models.Invoice{
		ID:       number,
		ClientID: clientID,
		Amount:   amount,
		Status:   "open",
	}
	if err := s.repo.CreateInvoice(invoice); err != nil {
		return nil, err
	}

	s.log.Infof("Invoice created: %s for client %d by user %s", invoice.ID, clientID, userIDStr)
	return invoice, nil
}

// GetInvoice retrieves an invoice by id
func (s *Service) GetInvoice(ctx context.Context, id string) (*models.Invoice, error) {
	return s.repo.FindInvoiceByID(id)
}

// loadSchedule hydrates the engine aggregate for an invoice: persisted
// entries if any, empty otherwise, always carrying the invoice amount as the
// reference total.
func (s *Service) loadSchedule(invoiceID string) (models.Schedule, error) {
	invoice, err := s.repo.FindInvoiceByID(invoiceID)
	if err != nil {
		return models.Schedule{}, err
	}
	referenceTotal := decimal.NewFromFloat(invoice.Amount)

	payload, err := s.repo.FindSchedule(invoiceID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.NewSchedule(invoiceID, referenceTotal), nil
	}
	if err != nil {
		return models.Schedule{}, err
	}
	return models.ScheduleFromPayload(payload, referenceTotal, true)
}

// persistSnapshot writes a snapshot back and maps failures to the
// persistence error category. The snapshot itself is still valid and is
// returned either way.
func (s *Service) persistSnapshot(snapshot models.Schedule) (models.SchedulePayload, models.ScheduleSummary, error) {
	payload := snapshot.Payload()
	summary := schedule.Summary(snapshot)
	if err := s.repo.SaveSchedule(payload); err != nil {
		s.log.Errorf("Failed to persist schedule for invoice %s: %v", snapshot.InvoiceID, err)
		return payload, summary, fmt.Errorf("%w: %v", ErrCouldNotSave, err)
	}
	return payload, summary, nil
}

// GetSchedule returns the persisted payload plus its derived summary
func (s *Service) GetSchedule(ctx context.Context, invoiceID string) (models.SchedulePayload, models.ScheduleSummary, error) {
	snapshot, err := s.loadSchedule(invoiceID)
	if err != nil {
		return models.SchedulePayload{}, models.ScheduleSummary{}, err
	}
	return snapshot.Payload(), schedule.Summary(snapshot), nil
}

// ReplaceSchedule persists a host-supplied snapshot verbatim (the hydration
// path for schedules assembled elsewhere). Entry order is preserved as sent.
func (s *Service) ReplaceSchedule(ctx context.Context, payload models.SchedulePayload) (models.SchedulePayload, models.ScheduleSummary, error) {
	invoice, err := s.repo.FindInvoiceByID(payload.InvoiceID)
	if err != nil {
		return models.SchedulePayload{}, models.ScheduleSummary{}, err
	}
	snapshot, err := models.ScheduleFromPayload(payload, decimal.NewFromFloat(invoice.Amount), true)
	if err != nil {
		return models.SchedulePayload{}, models.ScheduleSummary{}, err
	}
	return s.persistSnapshot(snapshot)
}

// AddInstallment appends a validated installment to an invoice's schedule
func (s *Service) AddInstallment(ctx context.Context, invoiceID string, candidate models.Installment) (models.SchedulePayload, models.ScheduleSummary, error) {
	snapshot, err := s.loadSchedule(invoiceID)
	if err != nil {
		return models.SchedulePayload{}, models.ScheduleSummary{}, err
	}
	next, verr := schedule.Add(snapshot, candidate, time.Now())
	if verr != nil {
		return snapshot.Payload(), schedule.Summary(snapshot), verr
	}
	return s.persistSnapshot(next)
}

// UpdateInstallment replaces the installment at index with a validated candidate
func (s *Service) UpdateInstallment(ctx context.Context, invoiceID string, index int, candidate models.Installment) (models.SchedulePayload, models.ScheduleSummary, error) {
	snapshot, err := s.loadSchedule(invoiceID)
	if err != nil {
		return models.SchedulePayload{}, models.ScheduleSummary{}, err
	}
	next, verr := schedule.Update(snapshot, index, candidate, time.Now())
	if verr != nil {
		return snapshot.Payload(), schedule.Summary(snapshot), verr
	}
	return s.persistSnapshot(next)
}

// RemoveInstallment removes the installment at index
func (s *Service) RemoveInstallment(ctx context.Context, invoiceID string, index int) (models.SchedulePayload, models.ScheduleSummary, error) {
	snapshot, err := s.loadSchedule(invoiceID)
	if err != nil {
		return models.SchedulePayload{}, models.ScheduleSummary{}, err
	}
	next, verr := schedule.Remove(snapshot, index, time.Now())
	if verr != nil {
		return snapshot.Payload(), schedule.Summary(snapshot), verr
	}
	return s.persistSnapshot(next)
}

// ChangeScheduleMode converts every installment to the target mode
func (s *Service) ChangeScheduleMode(ctx context.Context, invoiceID string, target models.Mode) (models.SchedulePayload, models.ScheduleSummary, error) {
	if target != models.ModeAmount && target != models.ModePercentage {
		return models.SchedulePayload{}, models.ScheduleSummary{}, fmt.Errorf("unknown mode %q", target)
	}
	snapshot, err := s.loadSchedule(invoiceID)
	if err != nil {
		return models.SchedulePayload{}, models.ScheduleSummary{}, err
	}
	next := schedule.ChangeMode(snapshot, target)
	return s.persistSnapshot(next)
}
