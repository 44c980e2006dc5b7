package inventory

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/inventory"
	"github.com/skol/backend/internal/domain/shared"
)

// Service manages the fractionation stock catalog: the purchased medications
// that dispatch draws from. Stock consumption itself happens inside the
// dispatch transaction, not here.
type Service struct {
	inventoryRepo  inventory.InventoryItemRepository
	eventPublisher shared.EventPublisher
}

// NewService creates a new inventory Service
func NewService(inventoryRepo inventory.InventoryItemRepository) *Service {
	return &Service{inventoryRepo: inventoryRepo}
}

// SetEventPublisher sets the event publisher for domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *Service) publishDomainEvents(ctx context.Context, item *inventory.InventoryItem) {
	if s.eventPublisher == nil {
		return
	}
	events := item.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	item.ClearDomainEvents()
}

// CreateItem registers a new stock-keeping item
func (s *Service) CreateItem(ctx context.Context, req CreateItemRequest) (*ItemResponse, error) {
	item, err := inventory.NewInventoryItem(req.Name, req.Unit, req.Quantity,
		req.ItemsPerBaseUnit, req.DoseValue, req.DoseUnit, req.Barcode)
	if err != nil {
		return nil, err
	}

	if err := s.inventoryRepo.Save(ctx, item); err != nil {
		return nil, err
	}
	s.publishDomainEvents(ctx, item)

	response := ToItemResponse(item)
	return &response, nil
}

// Get retrieves one inventory item with its lots
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*ItemResponse, error) {
	item, err := s.inventoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToItemResponse(item)
	return &response, nil
}

// GetByBarcode retrieves one inventory item by its barcode
func (s *Service) GetByBarcode(ctx context.Context, barcode string) (*ItemResponse, error) {
	item, err := s.inventoryRepo.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, err
	}
	response := ToItemResponse(item)
	return &response, nil
}

// List retrieves inventory items
func (s *Service) List(ctx context.Context, filter ListFilter) ([]ItemResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.DefaultFilter()
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	domainFilter.Search = filter.Search
	if filter.Barcode != "" {
		domainFilter.Filters["barcode"] = filter.Barcode
	}
	if filter.HasStock {
		domainFilter.Filters["has_stock"] = true
	}
	if filter.BelowThreshold {
		domainFilter.Filters["below_threshold"] = true
	}

	items, err := s.inventoryRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.inventoryRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ItemResponse, 0, len(items))
	for idx := range items {
		responses = append(responses, ToItemResponse(&items[idx]))
	}
	return responses, total, nil
}

// AddLot registers a new lot and restocks the purchase-unit counter by the
// lot quantity, keeping both counters in step
func (s *Service) AddLot(ctx context.Context, id uuid.UUID, req AddLotRequest) (*ItemResponse, error) {
	item, err := s.inventoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if _, err := item.AddLot(req.LotNumber, req.Quantity, req.ExpiryDate); err != nil {
		return nil, err
	}
	if err := item.Restock(req.Quantity); err != nil {
		return nil, err
	}

	if err := s.inventoryRepo.Save(ctx, item); err != nil {
		return nil, err
	}

	response := ToItemResponse(item)
	return &response, nil
}

// SetLowStockThreshold configures the threshold below which the item is flagged
func (s *Service) SetLowStockThreshold(ctx context.Context, id uuid.UUID, threshold decimal.Decimal) (*ItemResponse, error) {
	item, err := s.inventoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := item.SetLowStockThreshold(threshold); err != nil {
		return nil, err
	}
	if err := s.inventoryRepo.Save(ctx, item); err != nil {
		return nil, err
	}

	response := ToItemResponse(item)
	return &response, nil
}
