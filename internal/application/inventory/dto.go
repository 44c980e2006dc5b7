package inventory

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/inventory"
)

// CreateItemRequest registers a new stock-keeping item
type CreateItemRequest struct {
	Name             string          `json:"name" binding:"required"`
	Unit             string          `json:"unit" binding:"required"`
	Quantity         decimal.Decimal `json:"quantity"`
	ItemsPerBaseUnit int64           `json:"items_per_base_unit" binding:"required,min=1"`
	DoseValue        decimal.Decimal `json:"dose_value" binding:"required"`
	DoseUnit         string          `json:"dose_unit" binding:"required"`
	Barcode          string          `json:"barcode"`
}

// AddLotRequest registers a new lot and restocks the item by its quantity
type AddLotRequest struct {
	LotNumber  string          `json:"lot_number" binding:"required"`
	Quantity   decimal.Decimal `json:"quantity" binding:"required"`
	ExpiryDate time.Time       `json:"expiry_date" binding:"required"`
}

// SetThresholdRequest configures the low stock alert threshold
type SetThresholdRequest struct {
	Threshold decimal.Decimal `json:"threshold" binding:"required"`
}

// ListFilter narrows inventory listings
type ListFilter struct {
	Page           int
	PageSize       int
	Search         string
	Barcode        string
	HasStock       bool
	BelowThreshold bool
}

// LotResponse is one stock lot in API responses
type LotResponse struct {
	ID         uuid.UUID       `json:"id"`
	LotNumber  string          `json:"lot_number"`
	Quantity   decimal.Decimal `json:"quantity"`
	ExpiryDate time.Time       `json:"expiry_date"`
	Expired    bool            `json:"expired"`
}

// ItemResponse is the full inventory item view
type ItemResponse struct {
	ID                uuid.UUID       `json:"id"`
	Name              string          `json:"name"`
	Quantity          decimal.Decimal `json:"quantity"`
	Unit              string          `json:"unit"`
	ItemsPerBaseUnit  int64           `json:"items_per_base_unit"`
	DoseValue         decimal.Decimal `json:"dose_value"`
	DoseUnit          string          `json:"dose_unit"`
	Barcode           string          `json:"barcode,omitempty"`
	LowStockThreshold decimal.Decimal `json:"low_stock_threshold"`
	BelowThreshold    bool            `json:"below_threshold"`
	Lots              []LotResponse   `json:"lots"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ToItemResponse maps the aggregate to its API view
func ToItemResponse(item *inventory.InventoryItem) ItemResponse {
	lots := make([]LotResponse, 0, len(item.Lots))
	for _, lot := range item.Lots {
		lots = append(lots, LotResponse{
			ID:         lot.ID,
			LotNumber:  lot.LotNumber,
			Quantity:   lot.Quantity,
			ExpiryDate: lot.ExpiryDate,
			Expired:    lot.IsExpired(time.Now()),
		})
	}

	return ItemResponse{
		ID:                item.ID,
		Name:              item.Name,
		Quantity:          item.Quantity,
		Unit:              item.Unit,
		ItemsPerBaseUnit:  item.ItemsPerBaseUnit,
		DoseValue:         item.DoseValue,
		DoseUnit:          item.DoseUnit,
		Barcode:           item.Barcode,
		LowStockThreshold: item.LowStockThreshold,
		BelowThreshold:    item.IsBelowThreshold(),
		Lots:              lots,
		CreatedAt:         item.CreatedAt,
		UpdatedAt:         item.UpdatedAt,
	}
}
