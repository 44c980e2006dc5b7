package prescription

import (
	"context"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/shared"
)

// PrescriptionRepository persists the Prescription aggregate. Save writes the
// scalar state under an optimistic version check and inserts any audit
// entries added since load; the trail itself is append-only at the storage
// level and never rewritten.
type PrescriptionRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Prescription, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// FindAwaitingDispatch returns Validated, Skol-supplied prescriptions
	// whose current cycle has not been put on a dispatch note yet
	FindAwaitingDispatch(ctx context.Context) ([]Prescription, error)
	Save(ctx context.Context, p *Prescription) error
}
