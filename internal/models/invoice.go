package models

import "time"

// Invoice represents a billable invoice. Amount is the reference total that
// payment schedules are allocated against.
type Invoice struct {
	ID        string    `json:"id"`
	ClientID  int64     `json:"client_id"`
	Amount    float64   `json:"amount"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentReminder is one row of the auto-bill reminder sweep: a scheduled
// installment coming due, joined with the client it should be sent to.
type PaymentReminder struct {
	InvoiceID     string
	InvoiceAmount float64
	ClientName    string
	ClientEmail   string
	DueDate       time.Time
	Amount        float64
	IsAmount      bool
}
