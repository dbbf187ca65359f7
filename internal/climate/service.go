package climate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mavillena/aemet-track/internal/logger"
	"github.com/mavillena/aemet-track/internal/metrics"
)

// ErrNotStored is returned by Store implementations when the requested
// artifact has not been persisted yet.
var ErrNotStored = errors.New("not stored")

// Source fetches raw day entries from the remote climatology archive.
type Source interface {
	// FetchYear returns every day entry of a completed calendar year.
	FetchYear(ctx context.Context, year int) ([]Observation, error)
	// FetchCurrentYear returns the in-progress year's entries up to the
	// most recent published day.
	FetchCurrentYear(ctx context.Context, year int) ([]Observation, error)
}

// Store persists the raw history and the derived summary.
type Store interface {
	LoadHistory(ctx context.Context) (History, error)
	SaveHistory(ctx context.Context, h History) error
	LoadSummary(ctx context.Context) (*Summary, error)
	SaveSummary(ctx context.Context, s *Summary) error
}

// NeedsFullRebuild reports whether the persisted history must be rebuilt
// from scratch.
func NeedsFullRebuild(h History) bool {
	return len(h) == 0
}

// ShouldRegenerateSummary reports whether the derived summary must be
// recomputed before the next comparison.
func ShouldRegenerateSummary(historyChanged, summaryPresent bool) bool {
	return historyChanged || !summaryPresent
}

// Params configures the refresh behaviour of a Service.
type Params struct {
	// FirstYear and LastYear bound a full rebuild, inclusive. A zero
	// LastYear means the most recently completed year.
	FirstYear int
	LastYear  int
	// Pace is the minimum interval between consecutive year fetches
	// during a rebuild.
	Pace time.Duration
}

// Service orchestrates the fetch, normalize, persist and aggregate flow
// for a single station. All configuration is passed in explicitly; the
// service holds no ambient state.
type Service struct {
	source  Source
	store   Store
	log     *logger.Logger
	metrics *metrics.Collector
	params  Params
}

// NewService creates a new Service.
func NewService(source Source, store Store, log *logger.Logger, col *metrics.Collector, params Params) *Service {
	return &Service{
		source:  source,
		store:   store,
		log:     log,
		metrics: col,
		params:  params,
	}
}

// Refresh brings the persisted history and summary up to date and
// returns the current summary.
//
// With no persisted history it performs a full rebuild over the
// configured year range. With a history whose most recent year is more
// than one year behind now, it fetches and appends exactly the most
// recently completed year, but only when that year normalizes to a
// complete record; an incomplete year is skipped and the store is left
// unchanged. Any history change forces the summary to be recomputed.
func (s *Service) Refresh(ctx context.Context, now time.Time) (*Summary, error) {
	history, err := s.store.LoadHistory(ctx)
	if err != nil && !errors.Is(err, ErrNotStored) {
		return nil, fmt.Errorf("load history: %w", err)
	}

	changed := false
	if NeedsFullRebuild(history) {
		history, err = s.rebuild(ctx, now)
		if err != nil {
			return nil, err
		}
		changed = true
	} else if last, ok := history.LastYear(); ok && last < now.Year()-1 {
		history, changed, err = s.appendLatest(ctx, history, now.Year()-1)
		if err != nil {
			return nil, err
		}
	}

	summaryPresent := false
	var summary *Summary
	if !changed {
		summary, err = s.store.LoadSummary(ctx)
		switch {
		case err == nil:
			summaryPresent = true
		case errors.Is(err, ErrNotStored):
		default:
			return nil, fmt.Errorf("load summary: %w", err)
		}
	}

	if ShouldRegenerateSummary(changed, summaryPresent) {
		summary, err = Aggregate(history)
		if err != nil {
			return nil, fmt.Errorf("aggregate history: %w", err)
		}
		s.metrics.AggregationRan()
		if err = s.store.SaveSummary(ctx, summary); err != nil {
			return nil, fmt.Errorf("save summary: %w", err)
		}
		s.log.Info("summary regenerated", slog.Int("years", len(history)))
	}

	return summary, nil
}

// rebuild fetches and normalizes every year of the configured range.
// A single failed year aborts the whole rebuild; the store is written
// only once the full range normalized successfully.
func (s *Service) rebuild(ctx context.Context, now time.Time) (History, error) {
	first := s.params.FirstYear
	last := s.params.LastYear
	if last == 0 || last >= now.Year() {
		last = now.Year() - 1
	}
	if first > last {
		return nil, fmt.Errorf("invalid rebuild range %d..%d", first, last)
	}

	s.log.Info("rebuilding history", slog.Int("first", first), slog.Int("last", last))
	s.metrics.RebuildStarted()

	var history History
	for year := first; year <= last; year++ {
		if year > first {
			if err := pace(ctx, s.params.Pace); err != nil {
				return nil, err
			}
		}
		days, err := s.source.FetchYear(ctx, year)
		if err != nil {
			return nil, fmt.Errorf("fetch year %d: %w", year, err)
		}
		rec, err := NormalizeYear(year, days)
		if err != nil {
			return nil, fmt.Errorf("normalize year %d: %w", year, err)
		}
		if !rec.CompleteYear {
			s.log.Warn("year has missing observations", slog.Int("year", year))
		}
		history, err = history.Append(rec)
		if err != nil {
			return nil, err
		}
	}

	if err := s.store.SaveHistory(ctx, history); err != nil {
		return nil, fmt.Errorf("save history: %w", err)
	}
	return history, nil
}

// appendLatest fetches the given year and appends it to the history if
// the normalized record is complete. Incomplete years are skipped so a
// partially reported year cannot bias the baseline.
func (s *Service) appendLatest(ctx context.Context, history History, year int) (History, bool, error) {
	days, err := s.source.FetchYear(ctx, year)
	if err != nil {
		return nil, false, fmt.Errorf("fetch year %d: %w", year, err)
	}
	rec, err := NormalizeYear(year, days)
	if err != nil {
		return nil, false, fmt.Errorf("normalize year %d: %w", year, err)
	}
	if !rec.CompleteYear {
		s.log.Warn("fetched year is incomplete, not appending", slog.Int("year", year))
		return history, false, nil
	}

	updated, err := history.Append(rec)
	if err != nil {
		return nil, false, err
	}
	if err = s.store.SaveHistory(ctx, updated); err != nil {
		return nil, false, fmt.Errorf("save history: %w", err)
	}
	s.metrics.YearAppended()
	s.log.Info("appended year to history", slog.Int("year", year))
	return updated, true, nil
}

// Summary returns the persisted summary without refreshing it.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	return s.store.LoadSummary(ctx)
}

// Comparison fetches the in-progress year and pairs it with the
// persisted summary.
func (s *Service) Comparison(ctx context.Context, now time.Time) (Comparison, error) {
	summary, err := s.store.LoadSummary(ctx)
	if err != nil {
		return Comparison{}, fmt.Errorf("load summary: %w", err)
	}
	days, err := s.source.FetchCurrentYear(ctx, now.Year())
	if err != nil {
		return Comparison{}, fmt.Errorf("fetch current year: %w", err)
	}
	current, err := NormalizeCurrent(now.Year(), days)
	if err != nil {
		return Comparison{}, err
	}
	return BuildComparison(summary, current), nil
}

func pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
