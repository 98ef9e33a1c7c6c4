package schedule_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corefin/billing-service/internal/models"
	"github.com/corefin/billing-service/internal/schedule"
)

var today = date("2026-08-29")

func mustAdd(t *testing.T, s models.Schedule, candidate models.Installment) models.Schedule {
	t.Helper()
	next, verr := schedule.Add(s, candidate, today)
	require.Nil(t, verr)
	return next
}

// =============================================================================
// ADD
// =============================================================================

func TestAdd_AmountModeFillsToCompletion(t *testing.T) {
	// GIVEN: an empty schedule against a 1000.00 invoice
	// WHEN: 400 is scheduled for tomorrow and 600 the day after
	// THEN: remaining goes 600 -> 0 and the schedule completes

	s := models.NewSchedule("inv-1", amt(1000))

	s = mustAdd(t, s, inst("2026-08-30", 400, models.ModeAmount))
	assert.True(t, schedule.Remaining(s.Installments, s.ReferenceTotal, true).Equal(amt(600)))
	assert.False(t, schedule.IsComplete(s.Installments, s.ReferenceTotal, true))

	s = mustAdd(t, s, inst("2026-08-31", 600, models.ModeAmount))
	assert.True(t, schedule.Remaining(s.Installments, s.ReferenceTotal, true).IsZero())
	assert.True(t, schedule.IsComplete(s.Installments, s.ReferenceTotal, true))
}

func TestAdd_ExceedsRemaining(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 400, models.ModeAmount))

	next, verr := schedule.Add(s, inst("2026-08-31", 700, models.ModeAmount), today)
	require.NotNil(t, verr)
	assert.Equal(t, schedule.ErrExceedsRemaining, verr.Kind)
	assert.True(t, verr.Remaining.Equal(amt(600)), "error carries the remaining balance, got %s", verr.Remaining)
	assert.Equal(t, s, next, "failed add returns the input snapshot unchanged")
}

func TestAdd_DateNotAfterPrevious(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 400, models.ModeAmount))

	tests := []struct {
		name string
		day  string
	}{
		{"equal to latest", "2026-08-30"},
		{"before latest", "2026-08-29"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, verr := schedule.Add(s, inst(tt.day, 100, models.ModeAmount), today)
			require.NotNil(t, verr)
			assert.Equal(t, schedule.ErrDateNotAfterPrevious, verr.Kind)
		})
	}
}

func TestAdd_EmptyDateRejected(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	_, verr := schedule.Add(s, models.Installment{Amount: amt(100), Mode: models.ModeAmount}, today)
	require.NotNil(t, verr)
	assert.Equal(t, schedule.ErrDateNotAfterPrevious, verr.Kind)
}

func TestAdd_NonPositiveAmount(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	for _, amount := range []float64{0, -50} {
		_, verr := schedule.Add(s, inst("2026-08-30", amount, models.ModeAmount), today)
		require.NotNil(t, verr)
		assert.Equal(t, schedule.ErrNonPositiveAmount, verr.Kind)
	}
}

func TestAdd_RuleOrderShortCircuits(t *testing.T) {
	// A candidate failing both the date rule and the amount rule reports the
	// date failure: rules run in order.
	s := models.NewSchedule("inv-1", amt(1000))
	_, verr := schedule.Add(s, inst("2026-08-29", -5, models.ModeAmount), today)
	require.NotNil(t, verr)
	assert.Equal(t, schedule.ErrDateNotAfterPrevious, verr.Kind)
}

func TestAdd_TruncatesAmountToModePrecision(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 400.999, models.ModeAmount))
	assert.True(t, s.Installments[0].Amount.Equal(amt(400.99)))

	p := models.NewSchedule("inv-2", amt(1000))
	p = mustAdd(t, p, inst("2026-08-30", 40.9, models.ModePercentage))
	assert.True(t, p.Installments[0].Amount.Equal(amt(40)))
}

func TestAdd_DoesNotMutateInputSnapshot(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 400, models.ModeAmount))

	before := make([]models.Installment, len(s.Installments))
	copy(before, s.Installments)

	next := mustAdd(t, s, inst("2026-08-31", 100, models.ModeAmount))
	assert.Len(t, s.Installments, 1, "input snapshot keeps its length")
	assert.Equal(t, before, s.Installments)
	assert.Len(t, next.Installments, 2)
}

func TestAdd_SequenceIDsSurviveRemoval(t *testing.T) {
	// Sequence ids are stable ordinals, not array indexes: removing an entry
	// must not cause a later add to reuse its id.
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 100, models.ModeAmount))
	s = mustAdd(t, s, inst("2026-08-31", 100, models.ModeAmount))

	s, verr := schedule.Remove(s, 1, today)
	require.Nil(t, verr)

	s = mustAdd(t, s, inst("2026-09-01", 100, models.ModeAmount))
	assert.Equal(t, 1, s.Installments[0].SequenceID)
	assert.Equal(t, 3, s.Installments[1].SequenceID)
}

func TestAdd_PercentageModeAgainstFullCapacity(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 40, models.ModePercentage))

	_, verr := schedule.Add(s, inst("2026-08-31", 61, models.ModePercentage), today)
	require.NotNil(t, verr)
	assert.Equal(t, schedule.ErrExceedsRemaining, verr.Kind)
	assert.True(t, verr.Remaining.Equal(amt(60)))

	s = mustAdd(t, s, inst("2026-08-31", 60, models.ModePercentage))
	assert.True(t, schedule.IsComplete(s.Installments, s.ReferenceTotal, true))
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdate_ValidatesAgainstPrecedingEntryDate(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 100, models.ModeAmount))
	s = mustAdd(t, s, inst("2026-09-05", 100, models.ModeAmount))

	// Moving the second entry anywhere after Aug 30 is fine, even before its
	// current date.
	next, verr := schedule.Update(s, 1, inst("2026-08-31", 100, models.ModeAmount), today)
	require.Nil(t, verr)
	assert.Equal(t, date("2026-08-31"), next.Installments[1].Date)

	// But not onto or before the preceding entry's date.
	_, verr = schedule.Update(s, 1, inst("2026-08-30", 100, models.ModeAmount), today)
	require.NotNil(t, verr)
	assert.Equal(t, schedule.ErrDateNotAfterPrevious, verr.Kind)
}

func TestUpdate_FirstEntryValidatesAgainstToday(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 100, models.ModeAmount))

	_, verr := schedule.Update(s, 0, inst("2026-08-29", 100, models.ModeAmount), today)
	require.NotNil(t, verr)
	assert.Equal(t, schedule.ErrDateNotAfterPrevious, verr.Kind)
}

func TestUpdate_ExcludesSelfFromRemaining(t *testing.T) {
	// Growing an entry from 400 to 1000 is legal when it is the only one:
	// its own current amount must not count against it.
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 400, models.ModeAmount))

	next, verr := schedule.Update(s, 0, inst("2026-08-30", 1000, models.ModeAmount), today)
	require.Nil(t, verr)
	assert.True(t, next.Installments[0].Amount.Equal(amt(1000)))
	assert.True(t, schedule.IsComplete(next.Installments, next.ReferenceTotal, true))
}

func TestUpdate_KeepsSequenceID(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 400, models.ModeAmount))

	next, verr := schedule.Update(s, 0, inst("2026-08-31", 500, models.ModeAmount), today)
	require.Nil(t, verr)
	assert.Equal(t, s.Installments[0].SequenceID, next.Installments[0].SequenceID)
}

func TestUpdate_PastInstallmentImmutable(t *testing.T) {
	s := testSchedule(1000, inst("2026-08-28", 400, models.ModeAmount)) // yesterday
	_, verr := schedule.Update(s, 0, inst("2026-08-30", 400, models.ModeAmount), today)
	require.NotNil(t, verr)
	assert.Equal(t, schedule.ErrPastInstallmentImmutable, verr.Kind)
}

func TestUpdate_IndexOutOfRange(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	for _, index := range []int{-1, 0, 5} {
		_, verr := schedule.Update(s, index, inst("2026-08-30", 100, models.ModeAmount), today)
		require.NotNil(t, verr)
		assert.Equal(t, schedule.ErrIndexOutOfRange, verr.Kind)
	}
}

// =============================================================================
// REMOVE
// =============================================================================

func TestRemove_IsLeftInverseOfAdd(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 400, models.ModeAmount))
	sumBefore := schedule.ScheduledSum(s.Installments, s.ReferenceTotal)

	s2 := mustAdd(t, s, inst("2026-08-31", 250, models.ModeAmount))
	s3, verr := schedule.Remove(s2, len(s2.Installments)-1, today)
	require.Nil(t, verr)

	assert.True(t, schedule.ScheduledSum(s3.Installments, s3.ReferenceTotal).Equal(sumBefore))
}

func TestRemove_PastInstallmentImmutable(t *testing.T) {
	s := testSchedule(1000,
		inst("2026-08-28", 400, models.ModeAmount), // settled yesterday
		inst("2026-09-30", 300, models.ModeAmount),
	)
	next, verr := schedule.Remove(s, 0, today)
	require.NotNil(t, verr)
	assert.Equal(t, schedule.ErrPastInstallmentImmutable, verr.Kind)
	assert.Equal(t, s, next, "state unchanged after refused removal")
}

func TestRemove_TodayIsStillMutable(t *testing.T) {
	// Only dates strictly before today are settled.
	s := testSchedule(1000, inst("2026-08-29", 400, models.ModeAmount))
	next, verr := schedule.Remove(s, 0, today)
	require.Nil(t, verr)
	assert.Empty(t, next.Installments)
}

// =============================================================================
// CHANGE MODE
// =============================================================================

func TestChangeMode_PercentageToAmount(t *testing.T) {
	// 40% of a 1000.00 invoice becomes 400.00, leaving 600.00.
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 40, models.ModePercentage))

	next := schedule.ChangeMode(s, models.ModeAmount)
	require.Len(t, next.Installments, 1)
	assert.Equal(t, models.ModeAmount, next.Installments[0].Mode)
	assert.True(t, next.Installments[0].Amount.Equal(amt(400)), "got %s", next.Installments[0].Amount)
	assert.True(t, schedule.Remaining(next.Installments, next.ReferenceTotal, true).Equal(amt(600)))
}

func TestChangeMode_RoundTripPreservesSumWithinRounding(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 330, models.ModeAmount))
	s = mustAdd(t, s, inst("2026-08-31", 250, models.ModeAmount))

	original := schedule.ScheduledSum(s.Installments, s.ReferenceTotal)
	back := schedule.ChangeMode(schedule.ChangeMode(s, models.ModePercentage), models.ModeAmount)
	diff := schedule.ScheduledSum(back.Installments, back.ReferenceTotal).Sub(original).Abs()

	// Each entry can lose at most one whole-percent unit to truncation.
	perEntry := amt(1000).Div(decimal.NewFromInt(100))
	limit := perEntry.Mul(decimal.NewFromInt(int64(len(s.Installments))))
	assert.True(t, diff.LessThanOrEqual(limit), "drift %s exceeds %s", diff, limit)
}

func TestChangeMode_ClampsLastEntryToCapacity(t *testing.T) {
	// Hydrated legacy data can carry percentages summing past 100; after
	// conversion the last entry absorbs the overage so the total never
	// exceeds the invoice amount.
	s := testSchedule(1000,
		inst("2026-09-01", 33.4, models.ModePercentage),
		inst("2026-09-02", 33.4, models.ModePercentage),
		inst("2026-09-03", 33.4, models.ModePercentage),
	)
	next := schedule.ChangeMode(s, models.ModeAmount)
	sum := schedule.ScheduledSum(next.Installments, next.ReferenceTotal)
	assert.True(t, sum.LessThanOrEqual(amt(1000)), "sum %s", sum)
	assert.True(t, next.Installments[2].Amount.LessThan(next.Installments[0].Amount))
}

func TestChangeMode_EmptySchedule(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	next := schedule.ChangeMode(s, models.ModePercentage)
	assert.Empty(t, next.Installments)
}

func TestChangeMode_DoesNotMutateInput(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 40, models.ModePercentage))

	_ = schedule.ChangeMode(s, models.ModeAmount)
	assert.Equal(t, models.ModePercentage, s.Installments[0].Mode)
	assert.True(t, s.Installments[0].Amount.Equal(amt(40)))
}

// =============================================================================
// VALIDATION CONTEXT HELPERS
// =============================================================================

func TestMinimumDate(t *testing.T) {
	assert.Equal(t, today, schedule.MinimumDate(nil, today), "empty schedule bounds against today")

	// Stored order need not be date order: the chronological latest wins.
	installments := []models.Installment{
		inst("2026-09-10", 100, models.ModeAmount),
		inst("2026-09-02", 100, models.ModeAmount),
	}
	assert.Equal(t, date("2026-09-10"), schedule.MinimumDate(installments, today))
}

func TestMutable(t *testing.T) {
	assert.False(t, schedule.Mutable(inst("2026-08-28", 1, models.ModeAmount), today))
	assert.True(t, schedule.Mutable(inst("2026-08-29", 1, models.ModeAmount), today))
	assert.True(t, schedule.Mutable(inst("2026-08-30", 1, models.ModeAmount), today))
}

func TestMinimumDate_LatestBeforeTodayStillBounds(t *testing.T) {
	// A schedule whose latest entry is in the past bounds new entries by
	// that entry, not by today: tomorrow is admissible either way, but so is
	// today itself.
	installments := []models.Installment{inst("2026-08-20", 100, models.ModeAmount)}
	min := schedule.MinimumDate(installments, today)
	assert.Equal(t, date("2026-08-20"), min)
	assert.True(t, today.After(min))
}
