package climate

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// parseValue converts a decimal-comma formatted reading (e.g. "23,5")
// into a Value. A missing or malformed reading becomes an absent Value;
// parse problems never abort normalization of the enclosing year.
func parseValue(s string) Value {
	if s == "" {
		return None
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil {
		return None
	}
	return Some(f)
}

// NormalizeYear builds a YearRecord from one year's raw day entries.
//
// Entries are aligned by calendar date, not by position, so gaps or
// reordering in the payload cannot shift later days. The Feb 29 entry of
// a leap year is identified by its date and excluded from the canonical
// series; it is kept in the raw series for persistence. LeapYear is set
// iff the source returned 366 entries. CompleteYear is true iff every
// canonical slot of every quantity holds a present value.
func NormalizeYear(year int, days []Observation) (YearRecord, error) {
	rawLen := DaysPerYear
	if isLeapYear(year) {
		rawLen = DaysPerYear + 1
	}

	raw := make(map[Quantity][]Value, len(Quantities()))
	for _, q := range Quantities() {
		raw[q] = make([]Value, rawLen)
	}

	for _, day := range days {
		if day.Date.Year() != year {
			return YearRecord{}, fmt.Errorf("day entry %s does not belong to year %d", day.Date.Format("2006-01-02"), year)
		}
		idx := day.Date.YearDay() - 1
		for _, q := range Quantities() {
			raw[q][idx] = parseValue(day.value(q))
		}
	}

	rec := YearRecord{
		Year:      year,
		LeapYear:  len(days) == DaysPerYear+1,
		raw:       raw,
		canonical: make(map[Quantity]DailySeries, len(raw)),
	}
	rec.CompleteYear = true
	for _, q := range Quantities() {
		rec.canonical[q] = canonicalize(raw[q])
		for _, v := range rec.canonical[q] {
			if !v.Present {
				rec.CompleteYear = false
				break
			}
		}
	}
	return rec, nil
}

// CurrentYear holds the in-progress year's observations. The series run
// from Jan 1 up to the most recent observed day and may be shorter than
// a full calendar; absent values mark days the source could not report.
type CurrentYear struct {
	Year int     `json:"year"`
	TMax []Value `json:"tmax"`
	TMed []Value `json:"tmed"`
	TMin []Value `json:"tmin"`
	Prec []Value `json:"prec"`
}

func (c CurrentYear) series(q Quantity) []Value {
	switch q {
	case TMax:
		return c.TMax
	case TMed:
		return c.TMed
	case TMin:
		return c.TMin
	case Prec:
		return c.Prec
	}
	return nil
}

// NormalizeCurrent builds the in-progress year's series from raw day
// entries. Values land on their canonical calendar index (Feb 29 is
// dropped) and the series end at the latest observed day.
func NormalizeCurrent(year int, days []Observation) (CurrentYear, error) {
	last := -1
	type placed struct {
		idx int
		val [4]Value
	}
	entries := make([]placed, 0, len(days))
	for _, day := range days {
		if day.Date.Year() != year {
			return CurrentYear{}, fmt.Errorf("day entry %s does not belong to year %d", day.Date.Format("2006-01-02"), year)
		}
		idx, ok := canonicalIndex(day.Date)
		if !ok {
			continue // Feb 29
		}
		if idx > last {
			last = idx
		}
		entries = append(entries, placed{idx: idx, val: [4]Value{
			parseValue(day.TMax), parseValue(day.TMed), parseValue(day.TMin), parseValue(day.Prec),
		}})
	}

	cur := CurrentYear{
		Year: year,
		TMax: make([]Value, last+1),
		TMed: make([]Value, last+1),
		TMin: make([]Value, last+1),
		Prec: make([]Value, last+1),
	}
	for _, e := range entries {
		cur.TMax[e.idx] = e.val[0]
		cur.TMed[e.idx] = e.val[1]
		cur.TMin[e.idx] = e.val[2]
		cur.Prec[e.idx] = e.val[3]
	}
	return cur, nil
}

// canonicalIndex maps a calendar date onto the 365-day calendar.
// ok is false for Feb 29, which has no canonical slot.
func canonicalIndex(date time.Time) (int, bool) {
	idx := date.YearDay() - 1
	if !isLeapYear(date.Year()) {
		return idx, true
	}
	switch {
	case idx < leapDayIndex:
		return idx, true
	case idx == leapDayIndex:
		return 0, false
	default:
		return idx - 1, true
	}
}
