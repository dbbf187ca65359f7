package climate

import (
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrDuplicateYear is returned when a record for an already stored
	// year is appended; the history is left unchanged.
	ErrDuplicateYear = errors.New("year already present in history")
)

// History is the append-only collection of YearRecords, ordered by year
// ascending with at most one record per year. The in-progress year is
// never part of it.
type History []YearRecord

// Append returns a new History containing rec at its ordered position.
// The receiver is never mutated; appending an already stored year fails
// with ErrDuplicateYear.
func (h History) Append(rec YearRecord) (History, error) {
	for _, existing := range h {
		if existing.Year == rec.Year {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateYear, rec.Year)
		}
	}
	out := make(History, 0, len(h)+1)
	out = append(out, h...)
	out = append(out, rec)
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out, nil
}

// LastYear returns the most recent stored year. ok is false for an
// empty history.
func (h History) LastYear() (int, bool) {
	if len(h) == 0 {
		return 0, false
	}
	return h[len(h)-1].Year, true
}

// Years lists the stored years in ascending order.
func (h History) Years() []int {
	years := make([]int, len(h))
	for i, rec := range h {
		years[i] = rec.Year
	}
	return years
}

// Validate checks the ordering and uniqueness invariants, typically
// after loading a persisted history.
func (h History) Validate() error {
	for i := 1; i < len(h); i++ {
		if h[i].Year == h[i-1].Year {
			return fmt.Errorf("%w: %d", ErrDuplicateYear, h[i].Year)
		}
		if h[i].Year < h[i-1].Year {
			return fmt.Errorf("history out of order: %d before %d", h[i-1].Year, h[i].Year)
		}
	}
	return nil
}
