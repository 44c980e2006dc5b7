package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/shared"
)

// InventoryItemRepository persists the InventoryItem aggregate. Save must
// enforce optimistic locking on the aggregate version so that two concurrent
// dispatch generations cannot both consume the same packs.
type InventoryItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryItem, error)
	FindByBarcode(ctx context.Context, barcode string) (*InventoryItem, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]InventoryItem, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, item *InventoryItem) error
}
