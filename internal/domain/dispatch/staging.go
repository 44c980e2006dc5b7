package dispatch

import (
	"context"

	"github.com/google/uuid"
)

// ValidationOutcome is the tri-state result of the lot + barcode check for a
// staged dispatch line
type ValidationOutcome string

const (
	ValidationPending ValidationOutcome = "pending"
	ValidationValid   ValidationOutcome = "valid"
	ValidationInvalid ValidationOutcome = "invalid"
)

// StagingKey addresses one prescription-item-in-progress in the working
// session, independent of any presentation concern
type StagingKey struct {
	PrescriptionID  uuid.UUID
	InventoryItemID uuid.UUID
}

// LineStaging is the ephemeral per-session validation state of one dispatch
// line. It is never persisted with the note; staging for included lines is
// cleared on successful generation, the rest stays pending for a later batch.
type LineStaging struct {
	Key         StagingKey
	SelectedLot string
	ScannedCode string
	Outcome     ValidationOutcome
}

// IsValid returns true when the line may join a dispatch note
func (s LineStaging) IsValid() bool {
	return s.Outcome == ValidationValid
}

// StagingStore holds the short-lived validation state owned by the dispatch
// allocation engine
type StagingStore interface {
	// Get returns the staging for a key, zero-value pending staging if absent
	Get(ctx context.Context, key StagingKey) (LineStaging, error)
	// Put stores or replaces the staging for a line
	Put(ctx context.Context, staging LineStaging) error
	// Remove clears the staging for a line
	Remove(ctx context.Context, key StagingKey) error
	// List returns all staged lines
	List(ctx context.Context) ([]LineStaging, error)
}
