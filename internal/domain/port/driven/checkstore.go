package driven

import (
	"context"

	"github.com/ericfisherdev/checkpanel/internal/domain/model"
)

// CheckStore defines the driven port for persisting the last known combined
// status of a ref. Uses full replacement: a snapshot is never merged.
type CheckStore interface {
	// ReplaceStatus deletes the stored checks for (repoFullName, status.Ref)
	// and inserts status.Checks atomically.
	ReplaceStatus(ctx context.Context, repoFullName string, status model.CombinedStatus) error
	// GetStatus returns the stored snapshot, or (nil, nil) if none exists.
	GetStatus(ctx context.Context, repoFullName, ref string) (*model.CombinedStatus, error)
}
