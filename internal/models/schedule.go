package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Schedule is the aggregate the allocation engine operates on: the ordered
// installment list for one invoice plus the invoice total it is allocated
// against. Engine operations never mutate a Schedule in place; they return a
// new snapshot.
type Schedule struct {
	InvoiceID      string
	Installments   []Installment
	ReferenceTotal decimal.Decimal
	HasReference   bool
	AutoBill       bool
	NextSequenceID int
}

// NewSchedule creates an empty schedule allocated against a known invoice
// total.
func NewSchedule(invoiceID string, referenceTotal decimal.Decimal) Schedule {
	return Schedule{
		InvoiceID:      invoiceID,
		ReferenceTotal: referenceTotal,
		HasReference:   true,
		NextSequenceID: 1,
	}
}

// NewUnreferencedSchedule creates an empty schedule with no invoice total
// attached yet. Remaining-balance math falls back to the implied-total
// heuristic until a reference is known.
func NewUnreferencedSchedule(invoiceID string) Schedule {
	return Schedule{InvoiceID: invoiceID, NextSequenceID: 1}
}

// ScheduleEntryPayload is the persisted wire shape of a single installment.
type ScheduleEntryPayload struct {
	ID       int     `json:"id"`
	Date     string  `json:"date"`
	Amount   float64 `json:"amount"`
	IsAmount bool    `json:"is_amount"`
}

// SchedulePayload is the persisted wire shape of a whole schedule. Array
// order is preserved verbatim across persistence round-trips.
type SchedulePayload struct {
	Schedule  []ScheduleEntryPayload `json:"schedule"`
	InvoiceID string                 `json:"invoice_id"`
	AutoBill  bool                   `json:"auto_bill"`
}

// Payload converts a schedule snapshot into its persisted wire shape.
func (s Schedule) Payload() SchedulePayload {
	entries := make([]ScheduleEntryPayload, len(s.Installments))
	for i, in := range s.Installments {
		entries[i] = ScheduleEntryPayload{
			ID:       in.SequenceID,
			Date:     in.Date.Format(DateLayout),
			Amount:   in.Amount.InexactFloat64(),
			IsAmount: in.Mode.IsAmount(),
		}
	}
	return SchedulePayload{
		Schedule:  entries,
		InvoiceID: s.InvoiceID,
		AutoBill:  s.AutoBill,
	}
}

// ScheduleFromPayload hydrates a schedule from its persisted wire shape.
// Entry order is kept as stored. The sequence counter resumes past the
// highest persisted id so ids stay stable after removals.
func ScheduleFromPayload(p SchedulePayload, referenceTotal decimal.Decimal, hasReference bool) (Schedule, error) {
	s := Schedule{
		InvoiceID:      p.InvoiceID,
		ReferenceTotal: referenceTotal,
		HasReference:   hasReference,
		AutoBill:       p.AutoBill,
		NextSequenceID: 1,
		Installments:   make([]Installment, 0, len(p.Schedule)),
	}
	for _, e := range p.Schedule {
		date, err := time.ParseInLocation(DateLayout, e.Date, time.UTC)
		if err != nil {
			return Schedule{}, fmt.Errorf("invalid installment date %q: %w", e.Date, err)
		}
		s.Installments = append(s.Installments, Installment{
			SequenceID: e.ID,
			Date:       date,
			Amount:     decimal.NewFromFloat(e.Amount),
			Mode:       ModeFromIsAmount(e.IsAmount),
		})
		if e.ID >= s.NextSequenceID {
			s.NextSequenceID = e.ID + 1
		}
	}
	return s, nil
}
