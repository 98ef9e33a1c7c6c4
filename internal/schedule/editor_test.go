package schedule_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corefin/billing-service/internal/models"
	"github.com/corefin/billing-service/internal/schedule"
)

func TestOpenAdd_SeedsDraftWithRemainingAndNextDate(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 400, models.ModeAmount))

	ed := schedule.NewEditor().OpenAdd(s, today)

	assert.Equal(t, schedule.EditorComposing, ed.State)
	assert.Equal(t, schedule.ComposeAdd, ed.Mode)
	assert.Equal(t, date("2026-08-31"), ed.Draft.Date, "seeded one day past the latest entry")
	assert.True(t, ed.Draft.Amount.Equal(amt(600)), "seeded with the full remaining balance, got %s", ed.Draft.Amount)
	assert.Equal(t, models.ModeAmount, ed.Draft.Mode)
}

func TestOpenAdd_EmptySchedule(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(500))
	ed := schedule.NewEditor().OpenAdd(s, today)

	assert.Equal(t, date("2026-08-30"), ed.Draft.Date, "seeded one day past today")
	assert.True(t, ed.Draft.Amount.Equal(amt(500)))
}

func TestOpenEdit_CopiesEntryVerbatim(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 400, models.ModeAmount))

	ed, verr := schedule.NewEditor().OpenEdit(s, 0, today)
	require.Nil(t, verr)

	assert.Equal(t, schedule.EditorComposing, ed.State)
	assert.Equal(t, schedule.ComposeEdit, ed.Mode)
	assert.Equal(t, 0, ed.Index)
	assert.Equal(t, s.Installments[0], ed.Draft)
}

func TestOpenEdit_PastDatedRefused(t *testing.T) {
	s := testSchedule(1000, inst("2026-08-28", 400, models.ModeAmount))

	ed, verr := schedule.NewEditor().OpenEdit(s, 0, today)
	require.NotNil(t, verr)
	assert.Equal(t, schedule.ErrPastInstallmentImmutable, verr.Kind)
	assert.Equal(t, schedule.EditorClosed, ed.State, "machine stays closed")
}

func TestOpenEdit_IndexOutOfRange(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	_, verr := schedule.NewEditor().OpenEdit(s, 0, today)
	require.NotNil(t, verr)
	assert.Equal(t, schedule.ErrIndexOutOfRange, verr.Kind)
}

func TestCancel_DiscardsDraftWithoutTouchingSchedule(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	ed := schedule.NewEditor().OpenAdd(s, today)

	ed = ed.Cancel()
	assert.Equal(t, schedule.EditorClosed, ed.State)
	assert.Empty(t, s.Installments)
}

func TestConfirm_AddClosesWithNewSnapshot(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	ed := schedule.NewEditor().OpenAdd(s, today)
	ed.Draft.Amount = amt(250)

	ed, next := ed.Confirm(s, today)

	assert.Equal(t, schedule.EditorClosed, ed.State)
	require.Len(t, next.Installments, 1)
	assert.True(t, next.Installments[0].Amount.Equal(amt(250)))
	assert.Empty(t, s.Installments, "original snapshot untouched")
}

func TestConfirm_ValidationFailureStaysComposing(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	ed := schedule.NewEditor().OpenAdd(s, today)
	ed.Draft.Amount = amt(2000) // over capacity

	ed, unchanged := ed.Confirm(s, today)

	assert.Equal(t, schedule.EditorComposing, ed.State, "machine stays open for correction")
	require.NotNil(t, ed.Err)
	assert.Equal(t, schedule.ErrExceedsRemaining, ed.Err.Kind)
	assert.Empty(t, unchanged.Installments)

	// Correcting the draft lets the same machine confirm.
	ed.Draft.Amount = amt(500)
	ed, next := ed.Confirm(s, today)
	assert.Equal(t, schedule.EditorClosed, ed.State)
	assert.Len(t, next.Installments, 1)
}

func TestConfirm_EditReplacesEntry(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	s = mustAdd(t, s, inst("2026-08-30", 400, models.ModeAmount))

	ed, verr := schedule.NewEditor().OpenEdit(s, 0, today)
	require.Nil(t, verr)
	ed.Draft.Amount = amt(750)

	ed, next := ed.Confirm(s, today)
	assert.Equal(t, schedule.EditorClosed, ed.State)
	require.Len(t, next.Installments, 1)
	assert.True(t, next.Installments[0].Amount.Equal(amt(750)))
	assert.Equal(t, s.Installments[0].SequenceID, next.Installments[0].SequenceID)
}

func TestConfirm_ClosedMachineIsNoOp(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))
	ed, next := schedule.NewEditor().Confirm(s, today)
	assert.Equal(t, schedule.EditorClosed, ed.State)
	assert.Empty(t, next.Installments)
}

func TestEditor_IsReentrant(t *testing.T) {
	s := models.NewSchedule("inv-1", amt(1000))

	ed := schedule.NewEditor().OpenAdd(s, today)
	ed.Draft.Amount = amt(300)
	ed, s = ed.Confirm(s, today)
	require.Equal(t, schedule.EditorClosed, ed.State)

	// Reopen immediately; the new draft reflects the updated remaining.
	ed = ed.OpenAdd(s, today)
	assert.Equal(t, schedule.EditorComposing, ed.State)
	assert.True(t, ed.Draft.Amount.Equal(amt(700)), "got %s", ed.Draft.Amount)
}
