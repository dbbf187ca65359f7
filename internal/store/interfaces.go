package store

import (
	"context"
	"time"

	"github.com/mavillena/aemet-track/internal/climate"
)

// RunState is the tracker's persisted run bookkeeping. It lives next to
// the data files, deliberately apart from the configuration: "when did
// we last run" is state, not a setting.
type RunState struct {
	LastReport time.Time `json:"lastReport"`
}

// Store is the full persistence surface: the climate history and summary
// plus the run state.
// It's implemented by both FileStore and R2Store.
type Store interface {
	climate.Store

	// LoadState returns the persisted run state, or climate.ErrNotStored
	// if no run has completed yet.
	LoadState(ctx context.Context) (RunState, error)

	// SaveState persists the run state.
	SaveState(ctx context.Context, state RunState) error
}
