package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format for schedule dates. Schedule dates carry no
// time component.
const DateLayout = "2006-01-02"

// Mode says how an installment's amount is denominated: an absolute currency
// value, or a percentage of the invoice total.
type Mode string

const (
	ModeAmount     Mode = "amount"
	ModePercentage Mode = "percentage"
)

// ModeFromIsAmount maps the persisted is_amount flag to a Mode.
func ModeFromIsAmount(isAmount bool) Mode {
	if isAmount {
		return ModeAmount
	}
	return ModePercentage
}

// IsAmount reports whether the mode is absolute-currency.
func (m Mode) IsAmount() bool {
	return m == ModeAmount
}

// Precision returns the number of decimal places kept for amounts in this
// mode: two for currency values, whole numbers for percentages.
func (m Mode) Precision() int32 {
	if m == ModePercentage {
		return 0
	}
	return 2
}

// Installment is one dated entry in a payment schedule.
type Installment struct {
	SequenceID int             `json:"sequence_id"`
	Date       time.Time       `json:"date"`
	Amount     decimal.Decimal `json:"amount"`
	Mode       Mode            `json:"mode"`
}

// Day truncates a timestamp to its calendar date in UTC. Installment dates
// are always stored this way.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
