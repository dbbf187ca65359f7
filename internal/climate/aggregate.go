package climate

import (
	"errors"
	"fmt"
	"math"
)

// ErrEmptyDayAggregate is returned when no stored record contributes a
// value for some day and quantity. Aggregation fails loudly instead of
// emitting infinities or NaN.
var ErrEmptyDayAggregate = errors.New("no observations contribute to day")

// Summary is the per-calendar-day baseline derived from the full
// history: mean per quantity plus the all-time temperature records.
// Every slice has exactly 365 entries and no missing values.
type Summary struct {
	TMax      []float64 `json:"tmax"`
	TMed      []float64 `json:"tmed"`
	TMin      []float64 `json:"tmin"`
	Prec      []float64 `json:"prec"`
	RecordMax []float64 `json:"recordMax"`
	RecordMin []float64 `json:"recordMin"`
}

func (s *Summary) mean(q Quantity) []float64 {
	switch q {
	case TMax:
		return s.TMax
	case TMed:
		return s.TMed
	case TMin:
		return s.TMin
	case Prec:
		return s.Prec
	}
	return nil
}

// Aggregate folds the full history into a Summary. For each day index
// and quantity the mean divides only by the records that have a present
// value at that index, so a record with a gap still contributes to
// every other day. The result depends only on the set of records, not
// on their order. A day/quantity with zero contributing records fails
// with ErrEmptyDayAggregate.
func Aggregate(history History) (*Summary, error) {
	summary := &Summary{
		TMax:      make([]float64, DaysPerYear),
		TMed:      make([]float64, DaysPerYear),
		TMin:      make([]float64, DaysPerYear),
		Prec:      make([]float64, DaysPerYear),
		RecordMax: make([]float64, DaysPerYear),
		RecordMin: make([]float64, DaysPerYear),
	}

	for _, q := range Quantities() {
		mean := summary.mean(q)
		for day := 0; day < DaysPerYear; day++ {
			sum := 0.0
			count := 0
			for i := range history {
				if v := history[i].Series(q)[day]; v.Present {
					sum += v.V
					count++
				}
			}
			if count == 0 {
				return nil, fmt.Errorf("%w: day %d, quantity %s", ErrEmptyDayAggregate, day, q)
			}
			mean[day] = sum / float64(count)
		}
	}

	for day := 0; day < DaysPerYear; day++ {
		max := math.Inf(-1)
		min := math.Inf(1)
		for i := range history {
			if v := history[i].Series(TMax)[day]; v.Present && v.V > max {
				max = v.V
			}
			if v := history[i].Series(TMin)[day]; v.Present && v.V < min {
				min = v.V
			}
		}
		// The mean pass above already guarantees at least one present
		// value per day for TMax and TMin, so the sentinels never leak.
		summary.RecordMax[day] = max
		summary.RecordMin[day] = min
	}

	return summary, nil
}
