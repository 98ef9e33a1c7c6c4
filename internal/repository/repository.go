package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/corefin/billing-service/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = fmt.Errorf("not found")

// Repository provides database operations
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO billing.users (username, email, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(email string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash, created_at, updated_at
		FROM billing.users
		WHERE email = $1`
	err := r.db.QueryRow(query, email).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// CreateClient creates a new client in the database
func (r *Repository) CreateClient(client *models.Client) error {
	query := `
		INSERT INTO billing.clients (name, email, created_at, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(query, client.Name, client.Email).
		Scan(&client.ID, &client.CreatedAt, &client.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}

// FindClientByID retrieves a client by id
func (r *Repository) FindClientByID(id int64) (*models.Client, error) {
	client := &models.Client{}
	query := `
		SELECT id, name, email, created_at, updated_at
		FROM billing.clients
		WHERE id = $1`
	err := r.db.QueryRow(query, id).
		Scan(&client.ID, &client.Name, &client.Email, &client.CreatedAt, &client.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find client: %w", err)
	}
	return client, nil
}

// CreateInvoice creates a new invoice in the database
func (r *Repository) CreateInvoice(invoice *models.Invoice) error {
	query := `
		INSERT INTO billing.invoices (id, client_id, amount, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING created_at, updated_at`
	err := r.db.QueryRow(query, invoice.ID, invoice.ClientID, invoice.Amount, invoice.Status).
		Scan(&invoice.CreatedAt, &invoice.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	return nil
}

// FindInvoiceByID retrieves an invoice by id
func (r *Repository) FindInvoiceByID(id string) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	query := `
		SELECT id, client_id, amount, status, created_at, updated_at
		FROM billing.invoices
		WHERE id = $1`
	err := r.db.QueryRow(query, id).
		Scan(&invoice.ID, &invoice.ClientID, &invoice.Amount, &invoice.Status, &invoice.CreatedAt, &invoice.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find invoice: %w", err)
	}
	return invoice, nil
}

// SaveSchedule replaces the persisted schedule for an invoice with the given
// payload. Entries are stored one row each with an explicit position column
// so array order survives the round-trip verbatim.
func (r *Repository) SaveSchedule(payload models.SchedulePayload) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO billing.schedules (invoice_id, auto_bill, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (invoice_id) DO UPDATE SET auto_bill = $2, updated_at = CURRENT_TIMESTAMP`
	if _, err := tx.Exec(query, payload.InvoiceID, payload.AutoBill); err != nil {
		return fmt.Errorf("failed to upsert schedule: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM billing.schedule_entries WHERE invoice_id = $1`, payload.InvoiceID); err != nil {
		return fmt.Errorf("failed to clear schedule entries: %w", err)
	}

	entryQuery := `
		INSERT INTO billing.schedule_entries (invoice_id, position, entry_id, due_date, amount, is_amount)
		VALUES ($1, $2, $3, $4, $5, $6)`
	for i, e := range payload.Schedule {
		if _, err := tx.Exec(entryQuery, payload.InvoiceID, i, e.ID, e.Date, e.Amount, e.IsAmount); err != nil {
			return fmt.Errorf("failed to insert schedule entry %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schedule: %w", err)
	}
	return nil
}

// FindSchedule retrieves the persisted schedule payload for an invoice.
// Returns ErrNotFound when the invoice has no schedule yet.
func (r *Repository) FindSchedule(invoiceID string) (models.SchedulePayload, error) {
	payload := models.SchedulePayload{InvoiceID: invoiceID}
	query := `
		SELECT auto_bill
		FROM billing.schedules
		WHERE invoice_id = $1`
	err := r.db.QueryRow(query, invoiceID).Scan(&payload.AutoBill)
	if err == sql.ErrNoRows {
		return payload, ErrNotFound
	}
	if err != nil {
		return payload, fmt.Errorf("failed to find schedule: %w", err)
	}

	rows, err := r.db.Query(`
		SELECT entry_id, to_char(due_date, 'YYYY-MM-DD'), amount, is_amount
		FROM billing.schedule_entries
		WHERE invoice_id = $1
		ORDER BY position`, invoiceID)
	if err != nil {
		return payload, fmt.Errorf("failed to load schedule entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var e models.ScheduleEntryPayload
		if err := rows.Scan(&e.ID, &e.Date, &e.Amount, &e.IsAmount); err != nil {
			return payload, fmt.Errorf("failed to scan schedule entry: %w", err)
		}
		payload.Schedule = append(payload.Schedule, e)
	}
	if err := rows.Err(); err != nil {
		return payload, fmt.Errorf("failed to iterate schedule entries: %w", err)
	}
	return payload, nil
}

// ListDueReminders returns installments of auto-bill schedules falling due
// in the [from, to] date window, joined with the client they belong to.
func (r *Repository) ListDueReminders(from, to time.Time) ([]models.PaymentReminder, error) {
	rows, err := r.db.Query(`
		SELECT e.invoice_id, i.amount, c.name, c.email, e.due_date, e.amount, e.is_amount
		FROM billing.schedule_entries e
		JOIN billing.schedules s ON s.invoice_id = e.invoice_id
		JOIN billing.invoices i ON i.id = e.invoice_id
		JOIN billing.clients c ON c.id = i.client_id
		WHERE s.auto_bill = TRUE AND e.due_date BETWEEN $1 AND $2
		ORDER BY e.due_date, e.invoice_id, e.position`,
		from.Format(models.DateLayout), to.Format(models.DateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	defer rows.Close()

	var reminders []models.PaymentReminder
	for rows.Next() {
		var rem models.PaymentReminder
		if err := rows.Scan(&rem.InvoiceID, &rem.InvoiceAmount, &rem.ClientName, &rem.ClientEmail, &rem.DueDate, &rem.Amount, &rem.IsAmount); err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		reminders = append(reminders, rem)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminders: %w", err)
	}
	return reminders, nil
}
