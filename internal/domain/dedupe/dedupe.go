// Package dedupe defines the interface for idempotent feedback intake.
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
	"sync/atomic"

	"github.com/okian/crisk/internal/domain/model"
)

// Deduper records seen submission fingerprints for at-most-once intake.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id, allowing the submission to be retried. Used
	// when a submission was recorded but failed to persist.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// Fingerprint derives the idempotency key for a feedback submission from its
// content. Two submissions with identical fields share a fingerprint, so a
// client retrying a request cannot double-count feedback.
func Fingerprint(rec model.FeedbackRecord) string {
	raw, err := json.Marshal(rec)
	if err != nil {
		// FeedbackRecord is plain data; Marshal cannot fail on it.
		return ""
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// inMemoryDeduper keeps fingerprints in a map with FIFO eviction once the
// bound is reached. Unbounded when maxSize <= 0.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]struct{})
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; exists {
		return true
	}

	if d.maxSize > 0 {
		for len(d.seen) >= d.maxSize && len(d.order) > 0 {
			oldest := d.order[0]
			d.order = d.order[1:]
			if _, ok := d.seen[oldest]; ok {
				delete(d.seen, oldest)
				d.size.Add(-1)
			}
		}
		d.order = append(d.order, id)
	}

	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[id]; !exists {
		return
	}
	delete(d.seen, id)
	d.size.Add(-1)
	// The stale order entry is skipped at eviction time.
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
