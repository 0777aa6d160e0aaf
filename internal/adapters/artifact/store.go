// Package artifact persists the co-versioned model artifact triple.
package artifact

import (
	"context"
	"time"

	"github.com/okian/crisk/internal/domain/estimator"
)

// Meta carries the training summary persisted alongside the triple.
type Meta struct {
	Accuracy     float64            `json:"accuracy"`
	SamplesUsed  int                `json:"samples_used"`
	ClassBalance map[string]float64 `json:"class_balance"`
	TrainedAt    time.Time          `json:"trained_at"`
}

// Snapshot is one committed version of the model, its feature schema and the
// background sample used for attribution. Instances are immutable once
// committed; readers share them freely.
type Snapshot struct {
	Version    string
	Ensemble   *estimator.Ensemble
	Schema     []string
	Background [][]float64
	Meta       Meta
}

// Store provides versioned access to the artifact triple.
type Store interface {
	// Commit persists the snapshot as a new version and advances the current
	// pointer. The triple lands together or not at all. Returns the version
	// identifier assigned to the snapshot.
	Commit(ctx context.Context, snap *Snapshot) (string, error)

	// Load returns the snapshot the current pointer names.
	// Returns ErrNoModel when nothing has been committed yet.
	Load(ctx context.Context) (*Snapshot, error)

	// CurrentVersion returns the committed version identifier without
	// decoding the triple. Returns ErrNoModel when nothing is committed.
	CurrentVersion(ctx context.Context) (string, error)
}
