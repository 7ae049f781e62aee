package ledger

import "fmt"

// EntryStatus is the lifecycle state of a journal entry. Transitions only move
// forward: draft -> approved -> posted. Draft entries may be edited or
// deleted; approved and posted entries may not.
type EntryStatus string

const (
	StatusDraft    EntryStatus = "draft"
	StatusApproved EntryStatus = "approved"
	StatusPosted   EntryStatus = "posted"
)

// allowedTransitions defines the valid forward moves per status. Posted is
// terminal.
var allowedTransitions = map[EntryStatus][]EntryStatus{
	StatusDraft:    {StatusApproved, StatusPosted},
	StatusApproved: {StatusPosted},
	StatusPosted:   {},
}

// Valid reports whether s is a known status.
func (s EntryStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusApproved, StatusPosted:
		return true
	}
	return false
}

// Mutable reports whether an entry in this status can have its fields or
// lines changed through normal paths.
func (s EntryStatus) Mutable() bool { return s == StatusDraft }

// CanTransition reports whether moving from s to target is permitted.
func (s EntryStatus) CanTransition(target EntryStatus) bool {
	for _, next := range allowedTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// InvalidTransitionError carries the rejected from/to pair for diagnostics.
type InvalidTransitionError struct {
	From EntryStatus
	To   EntryStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
