package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/dispatch"
)

// DispatchNoteModel is the persistence model for the DispatchNote aggregate
type DispatchNoteModel struct {
	AggregateModel
	Folio          string    `gorm:"type:varchar(32);not null;uniqueIndex"`
	PharmacyID     uuid.UUID `gorm:"type:uuid;not null;index"`
	Status         string    `gorm:"type:varchar(16);not null;index"`
	CompletedAt    *time.Time
	DispatcherID   uuid.UUID `gorm:"type:uuid;not null"`
	DispatcherName string    `gorm:"type:varchar(255)"`
	ReceivedByName string    `gorm:"type:varchar(255)"`

	Items []DispatchItemModel `gorm:"foreignKey:DispatchNoteID"`
}

// TableName returns the table name for DispatchNoteModel
func (DispatchNoteModel) TableName() string {
	return "dispatch_notes"
}

// DispatchItemModel is the persistence model for a dispatch note line
type DispatchItemModel struct {
	BaseModel
	DispatchNoteID  uuid.UUID `gorm:"type:uuid;not null;index"`
	PrescriptionID  uuid.UUID `gorm:"type:uuid;not null;index"`
	InventoryItemID uuid.UUID `gorm:"type:uuid;not null"`
	IngredientName  string    `gorm:"type:varchar(255)"`
	LotNumber       string    `gorm:"type:varchar(64);not null"`
	Quantity        int64     `gorm:"not null"`
}

// TableName returns the table name for DispatchItemModel
func (DispatchItemModel) TableName() string {
	return "dispatch_items"
}

// DispatchNoteModelFromDomain builds the persistence model from the aggregate
func DispatchNoteModelFromDomain(note *dispatch.DispatchNote) *DispatchNoteModel {
	m := &DispatchNoteModel{
		Folio:          note.Folio,
		PharmacyID:     note.PharmacyID,
		Status:         string(note.Status),
		CompletedAt:    note.CompletedAt,
		DispatcherID:   note.DispatcherID,
		DispatcherName: note.DispatcherName,
		ReceivedByName: note.ReceivedByName,
	}
	m.FromDomainAggregateRoot(note.BaseAggregateRoot)

	m.Items = make([]DispatchItemModel, 0, len(note.Items))
	for idx := range note.Items {
		m.Items = append(m.Items, DispatchItemModelFromDomain(&note.Items[idx]))
	}

	return m
}

// ToDomain converts the persistence model back to the aggregate
func (m *DispatchNoteModel) ToDomain() *dispatch.DispatchNote {
	note := &dispatch.DispatchNote{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Folio:             m.Folio,
		PharmacyID:        m.PharmacyID,
		Status:            dispatch.NoteStatus(m.Status),
		CompletedAt:       m.CompletedAt,
		DispatcherID:      m.DispatcherID,
		DispatcherName:    m.DispatcherName,
		ReceivedByName:    m.ReceivedByName,
	}

	note.Items = make([]dispatch.DispatchItem, 0, len(m.Items))
	for idx := range m.Items {
		note.Items = append(note.Items, m.Items[idx].ToDomainItem())
	}

	return note
}

// DispatchItemModelFromDomain builds the line model from the domain entity
func DispatchItemModelFromDomain(item *dispatch.DispatchItem) DispatchItemModel {
	m := DispatchItemModel{
		DispatchNoteID:  item.DispatchNoteID,
		PrescriptionID:  item.PrescriptionID,
		InventoryItemID: item.InventoryItemID,
		IngredientName:  item.IngredientName,
		LotNumber:       item.LotNumber,
		Quantity:        item.Quantity,
	}
	m.FromDomainBaseEntity(item.BaseEntity)
	return m
}

// ToDomainItem converts the line model back to the domain entity
func (m *DispatchItemModel) ToDomainItem() dispatch.DispatchItem {
	return dispatch.DispatchItem{
		BaseEntity:      m.ToDomain(),
		DispatchNoteID:  m.DispatchNoteID,
		PrescriptionID:  m.PrescriptionID,
		InventoryItemID: m.InventoryItemID,
		IngredientName:  m.IngredientName,
		LotNumber:       m.LotNumber,
		Quantity:        m.Quantity,
	}
}

// All returns every persistence model, in dependency order, for schema
// migration in tests
func All() []interface{} {
	return []interface{}{
		&PrescriptionModel{},
		&PrescriptionItemModel{},
		&PrescriptionAuditModel{},
		&ControlledDispensationModel{},
		&InventoryItemModel{},
		&StockLotModel{},
		&DispatchNoteModel{},
		&DispatchItemModel{},
	}
}
