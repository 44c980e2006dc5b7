package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/inventory"
)

// InventoryItemModel is the persistence model for the InventoryItem aggregate
type InventoryItemModel struct {
	AggregateModel
	Name              string          `gorm:"type:varchar(255);not null;index"`
	Quantity          decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	Unit              string          `gorm:"type:varchar(32)"`
	ItemsPerBaseUnit  int64           `gorm:"not null;default:1"`
	DoseValue         decimal.Decimal `gorm:"type:numeric(18,6)"`
	DoseUnit          string          `gorm:"type:varchar(32)"`
	Barcode           string          `gorm:"type:varchar(64);uniqueIndex"`
	LowStockThreshold decimal.Decimal `gorm:"type:numeric(18,6);not null;default:0"`

	Lots []StockLotModel `gorm:"foreignKey:InventoryItemID"`
}

// TableName returns the table name for InventoryItemModel
func (InventoryItemModel) TableName() string {
	return "inventory_items"
}

// StockLotModel is the persistence model for a stock lot. The item and lot
// number pair is unique.
type StockLotModel struct {
	BaseModel
	InventoryItemID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_stock_lots_item_lot"`
	LotNumber       string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_stock_lots_item_lot"`
	Quantity        decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	ExpiryDate      time.Time       `gorm:"index"`
}

// TableName returns the table name for StockLotModel
func (StockLotModel) TableName() string {
	return "stock_lots"
}

// InventoryItemModelFromDomain builds the persistence model from the aggregate
func InventoryItemModelFromDomain(item *inventory.InventoryItem) *InventoryItemModel {
	m := &InventoryItemModel{
		Name:              item.Name,
		Quantity:          item.Quantity,
		Unit:              item.Unit,
		ItemsPerBaseUnit:  item.ItemsPerBaseUnit,
		DoseValue:         item.DoseValue,
		DoseUnit:          item.DoseUnit,
		Barcode:           item.Barcode,
		LowStockThreshold: item.LowStockThreshold,
	}
	m.FromDomainAggregateRoot(item.BaseAggregateRoot)

	m.Lots = make([]StockLotModel, 0, len(item.Lots))
	for idx := range item.Lots {
		m.Lots = append(m.Lots, StockLotModelFromDomain(&item.Lots[idx]))
	}

	return m
}

// ToDomain converts the persistence model back to the aggregate
func (m *InventoryItemModel) ToDomain() *inventory.InventoryItem {
	item := &inventory.InventoryItem{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		Quantity:          m.Quantity,
		Unit:              m.Unit,
		ItemsPerBaseUnit:  m.ItemsPerBaseUnit,
		DoseValue:         m.DoseValue,
		DoseUnit:          m.DoseUnit,
		Barcode:           m.Barcode,
		LowStockThreshold: m.LowStockThreshold,
	}

	item.Lots = make([]inventory.StockLot, 0, len(m.Lots))
	for idx := range m.Lots {
		item.Lots = append(item.Lots, m.Lots[idx].ToDomainLot())
	}

	return item
}

// StockLotModelFromDomain builds the lot model from the domain entity
func StockLotModelFromDomain(lot *inventory.StockLot) StockLotModel {
	m := StockLotModel{
		InventoryItemID: lot.InventoryItemID,
		LotNumber:       lot.LotNumber,
		Quantity:        lot.Quantity,
		ExpiryDate:      lot.ExpiryDate,
	}
	m.FromDomainBaseEntity(lot.BaseEntity)
	return m
}

// ToDomainLot converts the lot model back to the domain entity
func (m *StockLotModel) ToDomainLot() inventory.StockLot {
	return inventory.StockLot{
		BaseEntity:      m.ToDomain(),
		InventoryItemID: m.InventoryItemID,
		LotNumber:       m.LotNumber,
		Quantity:        m.Quantity,
		ExpiryDate:      m.ExpiryDate,
	}
}
