// Package schedule implements the payment schedule allocation engine: pure
// arithmetic and validation over an invoice's installment plan. All
// operations take a Schedule snapshot and return a new one; nothing here
// touches the clock, the network, or shared state. Callers pass "today"
// explicitly wherever date context matters.
package schedule

import (
	"github.com/shopspring/decimal"

	"github.com/corefin/billing-service/internal/models"
)

var (
	hundred = decimal.NewFromInt(100)
	// impliedShare backs the degraded-state fallback: with no invoice
	// attached, the scheduled sum is assumed to be 90% of an implied total.
	impliedShare = decimal.RequireFromString("0.9")
)

// ScheduleMode returns the schedule-wide mode: the first installment's mode,
// or ModeAmount for an empty list. Legacy mixed-mode entries are reconciled
// against it during calculation rather than rejected.
func ScheduleMode(installments []models.Installment) models.Mode {
	if len(installments) == 0 {
		return models.ModeAmount
	}
	return installments[0].Mode
}

// normalize expresses an installment's amount in the given mode's units.
// With a zero reference total, amount-to-percentage conversion yields zero.
func normalize(in models.Installment, mode models.Mode, referenceTotal decimal.Decimal) decimal.Decimal {
	if in.Mode == mode {
		return in.Amount
	}
	if mode == models.ModeAmount {
		return in.Amount.Mul(referenceTotal).Div(hundred)
	}
	if referenceTotal.IsZero() {
		return decimal.Zero
	}
	return in.Amount.Div(referenceTotal).Mul(hundred)
}

// ScheduledSum sums the installments in the schedule-wide mode's units,
// converting non-conforming entries on the fly.
func ScheduledSum(installments []models.Installment, referenceTotal decimal.Decimal) decimal.Decimal {
	mode := ScheduleMode(installments)
	sum := decimal.Zero
	for _, in := range installments {
		sum = sum.Add(normalize(in, mode, referenceTotal))
	}
	return sum
}

// Remaining reports the unscheduled portion of the reference total (Amount
// mode) or of 100 (Percentage mode), truncated to mode precision. An empty
// schedule reports the full reference total. When no reference total is
// known, Amount-mode remaining assumes the scheduled sum is 90% of an
// implied total; Percentage mode needs no reference at all.
func Remaining(installments []models.Installment, referenceTotal decimal.Decimal, hasReference bool) decimal.Decimal {
	mode := ScheduleMode(installments)
	sum := ScheduledSum(installments, referenceTotal)
	var rem decimal.Decimal
	switch {
	case mode == models.ModePercentage:
		rem = hundred.Sub(sum)
	case hasReference:
		rem = referenceTotal.Sub(sum)
	default:
		rem = sum.Div(impliedShare).Sub(sum)
	}
	return rem.Truncate(mode.Precision())
}

// IsComplete reports whether the schedule covers the whole reference total.
// An empty schedule is never complete.
func IsComplete(installments []models.Installment, referenceTotal decimal.Decimal, hasReference bool) bool {
	if len(installments) == 0 {
		return false
	}
	return Remaining(installments, referenceTotal, hasReference).Sign() <= 0
}

// Convert returns a copy of the installment denominated in the target mode,
// truncated to the target mode's precision. Clamping against the remaining
// balance is the caller's concern (ChangeMode clamps across the whole list,
// the validator clamps single candidates).
func Convert(in models.Installment, target models.Mode, referenceTotal decimal.Decimal) models.Installment {
	out := in
	out.Mode = target
	out.Amount = normalize(in, target, referenceTotal).Truncate(target.Precision())
	return out
}

// Summary bundles the derived allocation state for one snapshot.
func Summary(s models.Schedule) models.ScheduleSummary {
	mode := ScheduleMode(s.Installments)
	return models.ScheduleSummary{
		ScheduledSum: ScheduledSum(s.Installments, s.ReferenceTotal).Truncate(mode.Precision()).InexactFloat64(),
		Remaining:    Remaining(s.Installments, s.ReferenceTotal, s.HasReference).InexactFloat64(),
		IsComplete:   IsComplete(s.Installments, s.ReferenceTotal, s.HasReference),
		Mode:         mode,
	}
}
