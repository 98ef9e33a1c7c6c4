package schedule

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/corefin/billing-service/internal/models"
)

// clone copies a schedule snapshot so operations never alias the caller's
// installment slice.
func clone(s models.Schedule) models.Schedule {
	out := s
	out.Installments = make([]models.Installment, len(s.Installments))
	copy(out.Installments, s.Installments)
	return out
}

// Add validates the candidate against the chronologically-latest existing
// date (or today for an empty schedule) and appends it with a freshly
// assigned sequence id. On failure the input snapshot is returned unchanged.
func Add(s models.Schedule, candidate models.Installment, today time.Time) (models.Schedule, *ValidationError) {
	minDate := MinimumDate(s.Installments, today)
	validated, verr := validateCandidate(candidate, s.Installments, noExclusion, s.ReferenceTotal, s.HasReference, minDate)
	if verr != nil {
		return s, verr
	}
	out := clone(s)
	validated.SequenceID = out.NextSequenceID
	out.NextSequenceID++
	out.Installments = append(out.Installments, validated)
	return out, nil
}

// Update validates the candidate against the date of the installment
// preceding index in stored order (or today for index 0) and replaces the
// entry in place. Past-dated entries are immutable.
func Update(s models.Schedule, index int, candidate models.Installment, today time.Time) (models.Schedule, *ValidationError) {
	if index < 0 || index >= len(s.Installments) {
		return s, &ValidationError{Kind: ErrIndexOutOfRange}
	}
	current := s.Installments[index]
	if !Mutable(current, today) {
		return s, &ValidationError{Kind: ErrPastInstallmentImmutable}
	}
	minDate := models.Day(today)
	if index > 0 {
		minDate = s.Installments[index-1].Date
	}
	validated, verr := validateCandidate(candidate, s.Installments, index, s.ReferenceTotal, s.HasReference, minDate)
	if verr != nil {
		return s, verr
	}
	validated.SequenceID = current.SequenceID
	out := clone(s)
	out.Installments[index] = validated
	return out, nil
}

// Remove deletes the entry at index. It cannot fail validation beyond the
// past-dated guard, since removal only frees up balance.
func Remove(s models.Schedule, index int, today time.Time) (models.Schedule, *ValidationError) {
	if index < 0 || index >= len(s.Installments) {
		return s, &ValidationError{Kind: ErrIndexOutOfRange}
	}
	if !Mutable(s.Installments[index], today) {
		return s, &ValidationError{Kind: ErrPastInstallmentImmutable}
	}
	out := s
	out.Installments = withoutIndex(s.Installments, index)
	return out, nil
}

// ChangeMode converts every installment into the target mode. If per-entry
// truncation would leave the converted total above the schedule capacity
// (100 in percentage mode, the reference total in amount mode), the
// last-converted entry absorbs the overage.
func ChangeMode(s models.Schedule, target models.Mode) models.Schedule {
	out := clone(s)
	sum := decimal.Zero
	for i, in := range s.Installments {
		conv := Convert(in, target, s.ReferenceTotal)
		out.Installments[i] = conv
		sum = sum.Add(conv.Amount)
	}
	var limit decimal.Decimal
	switch {
	case target == models.ModePercentage:
		limit = hundred
	case s.HasReference:
		limit = s.ReferenceTotal
	default:
		// No capacity to clamp against without a reference total.
		return out
	}
	if over := sum.Sub(limit); over.IsPositive() && len(out.Installments) > 0 {
		last := &out.Installments[len(out.Installments)-1]
		last.Amount = decimal.Max(decimal.Zero, last.Amount.Sub(over))
	}
	return out
}
