package climate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// DaysPerYear is the length of the canonical calendar. Every stored or
// derived series covers exactly 365 days; Feb 29 never appears in it.
const DaysPerYear = 365

// Quantity identifies one measured daily quantity.
type Quantity int

const (
	TMax Quantity = iota // daily maximum temperature
	TMed                 // daily mean temperature
	TMin                 // daily minimum temperature
	Prec                 // daily accumulated precipitation
)

// Quantities returns all tracked quantities in canonical order.
func Quantities() []Quantity {
	return []Quantity{TMax, TMed, TMin, Prec}
}

func (q Quantity) String() string {
	switch q {
	case TMax:
		return "tmax"
	case TMed:
		return "tmed"
	case TMin:
		return "tmin"
	case Prec:
		return "prec"
	default:
		return fmt.Sprintf("quantity(%d)", int(q))
	}
}

// Value is a single daily reading that may be absent. Absence is a
// first-class state, not a sentinel float; it marshals to JSON null.
type Value struct {
	V       float64
	Present bool
}

// Some returns a present Value.
func Some(v float64) Value {
	return Value{V: v, Present: true}
}

// None is the absent Value.
var None = Value{}

var jsonNull = []byte("null")

func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Present {
		return jsonNull, nil
	}
	return json.Marshal(v.V)
}

func (v *Value) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), jsonNull) {
		*v = None
		return nil
	}
	f, err := strconv.ParseFloat(string(bytes.TrimSpace(data)), 64)
	if err != nil {
		return fmt.Errorf("invalid daily value %q: %w", data, err)
	}
	*v = Some(f)
	return nil
}

// DailySeries is one quantity's values over the canonical 365-day
// calendar. Index 0 is Jan 1, index 59 is Mar 1, index 364 is Dec 31.
type DailySeries []Value

// NewDailySeries returns an all-absent canonical series.
func NewDailySeries() DailySeries {
	return make(DailySeries, DaysPerYear)
}

// Observation is one raw day entry as delivered by the data source.
// The per-quantity fields keep the source's decimal-comma formatting;
// an empty string means the value was not reported.
type Observation struct {
	Date time.Time
	TMax string
	TMed string
	TMin string
	Prec string
}

func (o Observation) value(q Quantity) string {
	switch q {
	case TMax:
		return o.TMax
	case TMed:
		return o.TMed
	case TMin:
		return o.TMin
	case Prec:
		return o.Prec
	}
	return ""
}

// YearRecord is one calendar year's normalized observations for all
// tracked quantities. It is immutable once stored in a History.
//
// Two shapes coexist: the raw series keeps every fetched value, Feb 29
// included on leap years (this is what gets persisted), while the
// canonical series is always 365 days long with the leap day removed.
type YearRecord struct {
	Year         int
	CompleteYear bool
	LeapYear     bool

	raw       map[Quantity][]Value
	canonical map[Quantity]DailySeries
}

// Series returns the canonical 365-day series for q.
func (r *YearRecord) Series(q Quantity) DailySeries {
	return r.canonical[q]
}

// Raw returns q's series as fetched from the source, Feb 29 included on
// leap years.
func (r *YearRecord) Raw(q Quantity) []Value {
	return r.raw[q]
}

type yearRecordJSON struct {
	Year         int     `json:"year"`
	CompleteYear bool    `json:"completeYear"`
	LeapYear     bool    `json:"leapYear"`
	TMax         []Value `json:"tmax"`
	TMed         []Value `json:"tmed"`
	TMin         []Value `json:"tmin"`
	Prec         []Value `json:"prec"`
}

// MarshalJSON writes the raw (as-fetched) series, preserving the Feb 29
// value on leap years. Canonicalization happens again on load.
func (r YearRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(yearRecordJSON{
		Year:         r.Year,
		CompleteYear: r.CompleteYear,
		LeapYear:     r.LeapYear,
		TMax:         r.raw[TMax],
		TMed:         r.raw[TMed],
		TMin:         r.raw[TMin],
		Prec:         r.raw[Prec],
	})
}

func (r *YearRecord) UnmarshalJSON(data []byte) error {
	var enc yearRecordJSON
	if err := json.Unmarshal(data, &enc); err != nil {
		return err
	}
	raw := map[Quantity][]Value{
		TMax: enc.TMax,
		TMed: enc.TMed,
		TMin: enc.TMin,
		Prec: enc.Prec,
	}
	for q, series := range raw {
		if len(series) != DaysPerYear && len(series) != DaysPerYear+1 {
			return fmt.Errorf("year %d: %s series has %d entries, want 365 or 366", enc.Year, q, len(series))
		}
	}
	rec := YearRecord{
		Year:         enc.Year,
		CompleteYear: enc.CompleteYear,
		LeapYear:     enc.LeapYear,
		raw:          raw,
		canonical:    make(map[Quantity]DailySeries, len(raw)),
	}
	for q, series := range raw {
		rec.canonical[q] = canonicalize(series)
	}
	*r = rec
	return nil
}

// canonicalize maps a raw, date-aligned series onto the 365-day
// calendar. Raw series are dense and chronological by construction, so
// on a 366-slot series the leap day occupies index 59 (Feb 29).
func canonicalize(raw []Value) DailySeries {
	if len(raw) <= DaysPerYear {
		out := NewDailySeries()
		copy(out, raw)
		return out
	}
	out := make(DailySeries, 0, DaysPerYear)
	out = append(out, raw[:leapDayIndex]...)
	out = append(out, raw[leapDayIndex+1:]...)
	return out
}

// leapDayIndex is the zero-based day-of-year of Feb 29 on a leap year.
const leapDayIndex = 59

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
