package dispatch

import (
	"context"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/shared"
)

// DispatchNoteRepository persists the DispatchNote aggregate. Notes are
// never deleted.
type DispatchNoteRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*DispatchNote, error)
	FindByFolio(ctx context.Context, folio string) (*DispatchNote, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]DispatchNote, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// FindActive returns all notes still awaiting reception; their lines
	// exclude in-flight ingredients from a new allocation round
	FindActive(ctx context.Context) ([]DispatchNote, error)
	Save(ctx context.Context, note *DispatchNote) error
}
