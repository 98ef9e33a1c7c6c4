package schedule

import (
	"time"

	"github.com/corefin/billing-service/internal/models"
)

// EditorState is the coarse state of the list-view / edit-form interaction.
type EditorState int

const (
	// EditorClosed shows the installment list only.
	EditorClosed EditorState = iota
	// EditorComposing shows the single-installment form.
	EditorComposing
)

// ComposeMode says what confirming the form does.
type ComposeMode int

const (
	// ComposeAdd appends a new installment.
	ComposeAdd ComposeMode = iota
	// ComposeEdit replaces the installment at Index.
	ComposeEdit
)

// Editor is the schedule edit-form state machine. It has value semantics:
// every transition returns a new Editor, and a Closed machine can be opened
// again immediately. The host owns rendering and binds its form fields onto
// Draft between transitions; the machine itself never touches a Schedule
// except inside Confirm.
type Editor struct {
	State EditorState
	Mode  ComposeMode
	Index int // target index when Mode == ComposeEdit
	Draft models.Installment
	Err   *ValidationError // last Confirm failure, for inline display
}

// NewEditor returns the machine in its Closed state.
func NewEditor() Editor {
	return Editor{State: EditorClosed}
}

// OpenAdd moves to Composing with a draft pre-seeded to consume the full
// remaining balance on the first admissible date.
func (e Editor) OpenAdd(s models.Schedule, today time.Time) Editor {
	minDate := MinimumDate(s.Installments, today)
	mode := ScheduleMode(s.Installments)
	draft := models.Installment{
		Date:   minDate.AddDate(0, 0, 1),
		Amount: remainingInMode(s.Installments, s.ReferenceTotal, s.HasReference, mode),
		Mode:   mode,
	}
	return Editor{State: EditorComposing, Mode: ComposeAdd, Draft: draft}
}

// OpenEdit moves to Composing with the existing entry copied into the draft
// verbatim. Past-dated entries are settled payments and cannot be opened.
func (e Editor) OpenEdit(s models.Schedule, index int, today time.Time) (Editor, *ValidationError) {
	if index < 0 || index >= len(s.Installments) {
		return e, &ValidationError{Kind: ErrIndexOutOfRange}
	}
	target := s.Installments[index]
	if !Mutable(target, today) {
		return e, &ValidationError{Kind: ErrPastInstallmentImmutable}
	}
	return Editor{State: EditorComposing, Mode: ComposeEdit, Index: index, Draft: target}, nil
}

// Cancel discards the draft and closes the form without touching the
// schedule.
func (e Editor) Cancel() Editor {
	return NewEditor()
}

// Confirm runs Add or Update with the current draft. On success the machine
// closes and the new snapshot is returned; on validation failure it stays
// Composing with Err set and the input snapshot is returned unchanged.
func (e Editor) Confirm(s models.Schedule, today time.Time) (Editor, models.Schedule) {
	if e.State != EditorComposing {
		return e, s
	}
	var (
		next models.Schedule
		verr *ValidationError
	)
	if e.Mode == ComposeAdd {
		next, verr = Add(s, e.Draft, today)
	} else {
		next, verr = Update(s, e.Index, e.Draft, today)
	}
	if verr != nil {
		e.Err = verr
		return e, s
	}
	return NewEditor(), next
}
