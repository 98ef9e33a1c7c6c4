package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/corefin/billing-service/internal/models"
)

// noExclusion marks a validation with no entry excluded (a plain add).
const noExclusion = -1

// Mutable reports whether an installment may still be edited or removed.
// Entries dated strictly before today model settled payments and are
// immutable.
func Mutable(in models.Installment, today time.Time) bool {
	return !in.Date.Before(models.Day(today))
}

// MinimumDate returns the lowest date bound a new installment must exceed:
// the chronologically-latest existing date, or today for an empty schedule.
func MinimumDate(installments []models.Installment, today time.Time) time.Time {
	if len(installments) == 0 {
		return models.Day(today)
	}
	latest := installments[0].Date
	for _, in := range installments[1:] {
		if in.Date.After(latest) {
			latest = in.Date
		}
	}
	return latest
}

// remainingInMode computes the remaining balance of the given list expressed
// in the requested mode's units, truncated to that mode's precision.
func remainingInMode(installments []models.Installment, referenceTotal decimal.Decimal, hasReference bool, mode models.Mode) decimal.Decimal {
	// An empty list has the full percentage capacity available no matter
	// what the reference total is.
	if len(installments) == 0 && mode == models.ModePercentage {
		return hundred
	}
	rem := Remaining(installments, referenceTotal, hasReference)
	listMode := ScheduleMode(installments)
	if listMode == mode {
		return rem
	}
	carrier := models.Installment{Amount: rem, Mode: listMode}
	return normalize(carrier, mode, referenceTotal).Truncate(mode.Precision())
}

// withoutIndex returns the list minus the entry at idx. idx == noExclusion
// returns the list unchanged.
func withoutIndex(installments []models.Installment, idx int) []models.Installment {
	if idx == noExclusion {
		return installments
	}
	out := make([]models.Installment, 0, len(installments)-1)
	out = append(out, installments[:idx]...)
	out = append(out, installments[idx+1:]...)
	return out
}

// validateCandidate applies the acceptance rules for adding or replacing an
// installment, short-circuiting on the first failure:
//
//  1. the date must be set and strictly after minimumDate
//  2. the amount must be positive
//  3. the amount must fit in the remaining balance computed without the
//     entry being edited, in the candidate's own mode
//
// On success the candidate is returned with its amount truncated to
// mode-appropriate precision.
func validateCandidate(candidate models.Installment, existing []models.Installment, excludeIndex int, referenceTotal decimal.Decimal, hasReference bool, minimumDate time.Time) (models.Installment, *ValidationError) {
	if candidate.Date.IsZero() || !candidate.Date.After(models.Day(minimumDate)) {
		return candidate, &ValidationError{Kind: ErrDateNotAfterPrevious}
	}
	if candidate.Amount.Sign() <= 0 {
		return candidate, &ValidationError{Kind: ErrNonPositiveAmount}
	}
	others := withoutIndex(existing, excludeIndex)
	rem := remainingInMode(others, referenceTotal, hasReference, candidate.Mode)
	if candidate.Amount.GreaterThan(rem) {
		return candidate, &ValidationError{Kind: ErrExceedsRemaining, Remaining: rem}
	}
	candidate.Date = models.Day(candidate.Date)
	candidate.Amount = candidate.Amount.Truncate(candidate.Mode.Precision())
	return candidate, nil
}
