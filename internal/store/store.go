package store

import (
	"context"
	"time"

	"github.com/openbench/openbench/pkg/api"
)

// RunUpdate carries the mutable run fields for a partial update. Only non-nil
// fields are written; an update with no fields set is a pure read.
type RunUpdate struct {
	Status            *api.RunStatus
	StartedAt         *time.Time
	FinishedAt        *time.Time
	ArtifactDir       *string
	ExitCode          *int
	Error             *string
	PrimaryMetricName *string
	PrimaryMetric     *float64
}

// IsEmpty reports whether the update carries no fields.
func (u *RunUpdate) IsEmpty() bool {
	return u.Status == nil && u.StartedAt == nil && u.FinishedAt == nil &&
		u.ArtifactDir == nil && u.ExitCode == nil && u.Error == nil &&
		u.PrimaryMetricName == nil && u.PrimaryMetric == nil
}

// Store persists run records. All operations are atomic at single-run
// granularity; no cross-run transactions are offered.
//
// Owner scoping: an empty owner argument means unscoped access. A non-empty
// owner sees its own records plus legacy records that have no owner.
type Store interface {
	// CreateRun inserts a new QUEUED run built from the given config and
	// returns it with a fresh identifier.
	CreateRun(ctx context.Context, config *api.RunConfig, owner string) (*api.Run, error)

	// GetRun returns the run with the given id, or a StorageError with code
	// 404 if it does not exist (or is not visible to the owner).
	GetRun(ctx context.Context, id string, owner string) (*api.Run, error)

	// ListRuns returns at most limit summaries ordered by creation time
	// descending.
	ListRuns(ctx context.Context, owner string, limit int) ([]api.RunSummary, error)

	// UpdateRun persists the supplied fields and returns the resulting run.
	UpdateRun(ctx context.Context, id string, update *RunUpdate) (*api.Run, error)

	Ping(timeout time.Duration) error
	Close() error
}
