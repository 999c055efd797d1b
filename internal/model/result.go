package model

import (
	"sync"
	"time"
)

// CollectionResult accumulates counters across one orchestration run.
// It is owned by the orchestrator for the run's lifetime and handed off
// read-only to reporting when finalized. Safe for concurrent workers.
type CollectionResult struct {
	mu sync.Mutex

	Target     string    `json:"target"`
	Source     string    `json:"source,omitempty"` // source that ultimately succeeded
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`

	Found        int     `json:"found"`
	Saved        int     `json:"saved"`
	WithMatch    int     `json:"with_match"`
	WithoutMatch int     `json:"without_match"`
	Skipped      int     `json:"skipped"`
	Errors       int     `json:"errors"`
	TotalValue   float64 `json:"total_value"`
}

// NewCollectionResult starts a result for the given target.
func NewCollectionResult(target string) *CollectionResult {
	return &CollectionResult{Target: target, StartedAt: time.Now().UTC()}
}

// AddFound records discovered records.
func (r *CollectionResult) AddFound(n int) {
	r.mu.Lock()
	r.Found += n
	r.mu.Unlock()
}

// RecordSaved counts a persisted record, its attribution outcome, and value.
func (r *CollectionResult) RecordSaved(matched bool, value float64) {
	r.mu.Lock()
	r.Saved++
	if matched {
		r.WithMatch++
	} else {
		r.WithoutMatch++
	}
	r.TotalValue += value
	r.mu.Unlock()
}

// RecordSkipped counts a record that already existed by canonical key.
func (r *CollectionResult) RecordSkipped() {
	r.mu.Lock()
	r.Skipped++
	r.mu.Unlock()
}

// RecordError counts a recovered record-level error. Recovered errors are
// never silently dropped; they surface here for operator visibility.
func (r *CollectionResult) RecordError() {
	r.mu.Lock()
	r.Errors++
	r.mu.Unlock()
}

// Finalize stamps the completion time and the winning source.
func (r *CollectionResult) Finalize(source string) {
	r.mu.Lock()
	r.Source = source
	r.FinishedAt = time.Now().UTC()
	r.mu.Unlock()
}

// Snapshot returns a copy safe to read after the run completes.
func (r *CollectionResult) Snapshot() CollectionResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return CollectionResult{
		Target:       r.Target,
		Source:       r.Source,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		Found:        r.Found,
		Saved:        r.Saved,
		WithMatch:    r.WithMatch,
		WithoutMatch: r.WithoutMatch,
		Skipped:      r.Skipped,
		Errors:       r.Errors,
		TotalValue:   r.TotalValue,
	}
}
