package schedule

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrorKind identifies why a schedule operation was refused.
type ErrorKind string

const (
	// ErrDateNotAfterPrevious means the candidate date is not strictly after
	// the minimum allowed date.
	ErrDateNotAfterPrevious ErrorKind = "date_not_after_previous"
	// ErrNonPositiveAmount means the candidate amount is zero or negative.
	ErrNonPositiveAmount ErrorKind = "non_positive_amount"
	// ErrExceedsRemaining means the candidate amount does not fit in the
	// remaining unscheduled balance.
	ErrExceedsRemaining ErrorKind = "exceeds_remaining"
	// ErrPastInstallmentImmutable means the target installment is dated
	// before today and models an already-settled payment.
	ErrPastInstallmentImmutable ErrorKind = "past_installment_immutable"
	// ErrIndexOutOfRange means the host referenced an installment index that
	// does not exist in the snapshot it holds.
	ErrIndexOutOfRange ErrorKind = "index_out_of_range"
)

// ValidationError reports a refused schedule operation. Engine operations
// return it as data alongside the unchanged input snapshot; nothing in this
// package panics.
type ValidationError struct {
	Kind ErrorKind
	// Remaining carries the computable remaining balance for
	// ErrExceedsRemaining so hosts can show it next to the offending field.
	Remaining decimal.Decimal
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrDateNotAfterPrevious:
		return "installment date must be after the previous installment"
	case ErrNonPositiveAmount:
		return "installment amount must be positive"
	case ErrExceedsRemaining:
		return fmt.Sprintf("installment amount exceeds remaining balance of %s", e.Remaining.String())
	case ErrPastInstallmentImmutable:
		return "past installments cannot be changed"
	case ErrIndexOutOfRange:
		return "installment index out of range"
	}
	return string(e.Kind)
}
