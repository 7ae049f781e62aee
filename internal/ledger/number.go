package ledger

import (
	"fmt"
	"time"
)

// FormatEntryNumber renders the sequential entry number for a calendar-year
// scope: JE-2026-000042. Sequences restart each year; stores allocate seq
// inside the posting transaction so two concurrent posts can never share a
// number.
func FormatEntryNumber(year int, seq int64) string {
	return fmt.Sprintf("JE-%04d-%06d", year, seq)
}

// SequenceYear is the scope key for an entry date.
func SequenceYear(date time.Time) int {
	if date.IsZero() {
		return time.Now().UTC().Year()
	}
	return date.UTC().Year()
}
