// Package store persists canonical entities and the collection log in
// PostgreSQL. Identity is enforced by unique constraints; inserts of
// already-known records are skipped, never duplicated.
package store

import (
	"context"
	"time"

	"github.com/antoniotavarescjr/kritikos-sub000/internal/model"
)

// CollectionEntry is one row of the collection log.
type CollectionEntry struct {
	ID          int64      `json:"id"`
	Target      string     `json:"target"`
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Found       int64      `json:"found"`
	Saved       int64      `json:"saved"`
	Skipped     int64      `json:"skipped"`
	Errors      int64      `json:"errors"`
	TotalValue  float64    `json:"total_value"`
	Error       string     `json:"error,omitempty"`
}

// Store is the persistence interface consumed by collection and the CLI.
type Store interface {
	// Legislators. The bool reports whether the upsert created a new row
	// rather than updating an existing one.
	UpsertLegislator(ctx context.Context, l *model.Legislator) (int64, bool, error)
	FindLegislatorByExternalID(ctx context.Context, externalID int64) (*model.Legislator, error)
	ListLegislators(ctx context.Context) ([]model.Legislator, error)

	// Collected records; the bool reports whether a new row was written.
	InsertExpenditure(ctx context.Context, e *model.Expenditure) (bool, error)
	InsertAmendment(ctx context.Context, a *model.Amendment) (bool, error)
	BulkInsertAmendments(ctx context.Context, amendments []model.Amendment) (int64, error)
	InsertBill(ctx context.Context, b *model.Bill) (bool, error)
	InsertVote(ctx context.Context, v *model.Vote) (bool, error)
	InsertBallots(ctx context.Context, ballots []model.BallotChoice) (int64, error)

	// Insight
	ListBillsWithoutSummary(ctx context.Context, limit int) ([]model.Bill, error)
	SetBillSummary(ctx context.Context, externalID int64, summary string) error

	// Collection log
	StartCollection(ctx context.Context, target string) (int64, error)
	CompleteCollection(ctx context.Context, id int64, result *model.CollectionResult) error
	FailCollection(ctx context.Context, id int64, errMsg string) error
	ListCollections(ctx context.Context, limit int) ([]CollectionEntry, error)

	// Status
	Counts(ctx context.Context) (map[string]int64, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
