package climate

// RecordEvent marks a day where the current year went past a historical
// record.
type RecordEvent struct {
	Day   int     `json:"day"`
	Value float64 `json:"value"`
}

// Comparison pairs the historical baseline with the current year's
// in-progress series for downstream rendering. It is a derived view and
// is never persisted.
type Comparison struct {
	Summary        *Summary      `json:"summary"`
	Current        CurrentYear   `json:"current"`
	NewRecordHighs []RecordEvent `json:"newRecordHighs"`
	NewRecordLows  []RecordEvent `json:"newRecordLows"`
}

// BuildComparison pairs summary with the current year and derives the
// days where the current TMax strictly exceeds the record high, and the
// days where the current TMin strictly undercuts the record low. The
// current series keep their in-progress length; the consumer handles
// series shorter than a full calendar.
func BuildComparison(summary *Summary, current CurrentYear) Comparison {
	cmp := Comparison{
		Summary: summary,
		Current: current,
	}

	for day, v := range current.TMax {
		if day >= len(summary.RecordMax) {
			break
		}
		if v.Present && v.V > summary.RecordMax[day] {
			cmp.NewRecordHighs = append(cmp.NewRecordHighs, RecordEvent{Day: day, Value: v.V})
		}
	}
	for day, v := range current.TMin {
		if day >= len(summary.RecordMin) {
			break
		}
		if v.Present && v.V < summary.RecordMin[day] {
			cmp.NewRecordLows = append(cmp.NewRecordLows, RecordEvent{Day: day, Value: v.V})
		}
	}
	return cmp
}
