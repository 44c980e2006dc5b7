package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/prescription"
)

// PrescriptionModel is the persistence model for the Prescription aggregate
type PrescriptionModel struct {
	AggregateModel
	PatientID           uuid.UUID  `gorm:"type:uuid;not null;index"`
	DoctorID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	Status              string     `gorm:"type:varchar(32);not null;index"`
	PaymentStatus       string     `gorm:"type:varchar(16);not null"`
	SupplySource        string     `gorm:"type:varchar(16);not null"`
	ExternalPharmacyID  *uuid.UUID `gorm:"type:uuid;index"`
	IsControlled        bool       `gorm:"not null;default:false"`
	ControlledFolio     string     `gorm:"type:varchar(64)"`
	ControlledType      string     `gorm:"type:varchar(32)"`
	DueDate             time.Time  `gorm:"not null"`
	DispensationDate    *time.Time
	InternalLotNumber   string `gorm:"type:varchar(64)"`
	InternalExpiry      *time.Time
	RejectionReason     string `gorm:"type:text"`
	CancelReason        string `gorm:"type:text"`
	UrgentRepreparation bool   `gorm:"not null;default:false"`
	DispatchStatus      string `gorm:"type:varchar(16);not null;index"`

	Items      []PrescriptionItemModel  `gorm:"foreignKey:PrescriptionID"`
	AuditTrail []PrescriptionAuditModel `gorm:"foreignKey:PrescriptionID"`
}

// TableName returns the table name for PrescriptionModel
func (PrescriptionModel) TableName() string {
	return "prescriptions"
}

// PrescriptionItemModel is the persistence model for a formulation line
type PrescriptionItemModel struct {
	BaseModel
	PrescriptionID        uuid.UUID       `gorm:"type:uuid;not null;index"`
	ActiveIngredient      string          `gorm:"type:varchar(255);not null"`
	ConcentrationValue    decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	ConcentrationUnit     string          `gorm:"type:varchar(32)"`
	DosageValue           decimal.Decimal `gorm:"type:numeric(18,6)"`
	DosageUnit            string          `gorm:"type:varchar(32)"`
	Frequency             string          `gorm:"type:varchar(64)"`
	DurationValue         decimal.Decimal `gorm:"type:numeric(18,6)"`
	DurationUnit          string          `gorm:"type:varchar(16)"`
	TotalQuantityValue    decimal.Decimal `gorm:"type:numeric(18,6);not null"`
	TotalQuantityUnit     string          `gorm:"type:varchar(32)"`
	Instructions          string          `gorm:"type:text"`
	RequiresFractionation bool            `gorm:"not null;default:false"`
	Refrigerated          bool            `gorm:"not null;default:false"`
	SourceInventoryItemID *uuid.UUID      `gorm:"type:uuid;index"`
}

// TableName returns the table name for PrescriptionItemModel
func (PrescriptionItemModel) TableName() string {
	return "prescription_items"
}

// PrescriptionAuditModel is one append-only audit trail row. Rows are only
// ever inserted; the repository never updates or deletes them.
type PrescriptionAuditModel struct {
	BaseModel
	PrescriptionID uuid.UUID `gorm:"type:uuid;not null;index"`
	Status         string    `gorm:"type:varchar(32);not null"`
	Timestamp      time.Time `gorm:"not null;index"`
	ActorID        uuid.UUID `gorm:"type:uuid;not null"`
	Notes          string    `gorm:"type:text"`
}

// TableName returns the table name for PrescriptionAuditModel
func (PrescriptionAuditModel) TableName() string {
	return "prescription_audit_entries"
}

// ControlledDispensationModel is one append-only controlled-substance ledger row
type ControlledDispensationModel struct {
	BaseModel
	PrescriptionID uuid.UUID `gorm:"type:uuid;not null;index"`
	PatientID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Folio          string    `gorm:"type:varchar(64);not null"`
	ControlledType string    `gorm:"type:varchar(32)"`
	DispensedAt    time.Time `gorm:"not null;index"`
	ActorID        uuid.UUID `gorm:"type:uuid;not null"`
}

// TableName returns the table name for ControlledDispensationModel
func (ControlledDispensationModel) TableName() string {
	return "controlled_dispensations"
}

// PrescriptionModelFromDomain builds the persistence model from the aggregate
func PrescriptionModelFromDomain(p *prescription.Prescription) *PrescriptionModel {
	m := &PrescriptionModel{
		PatientID:           p.PatientID,
		DoctorID:            p.DoctorID,
		Status:              string(p.Status),
		PaymentStatus:       string(p.PaymentStatus),
		SupplySource:        string(p.SupplySource),
		ExternalPharmacyID:  p.ExternalPharmacyID,
		IsControlled:        p.IsControlled,
		ControlledFolio:     p.ControlledFolio,
		ControlledType:      p.ControlledType,
		DueDate:             p.DueDate,
		DispensationDate:    p.DispensationDate,
		InternalLotNumber:   p.InternalLotNumber,
		InternalExpiry:      p.InternalExpiry,
		RejectionReason:     p.RejectionReason,
		CancelReason:        p.CancelReason,
		UrgentRepreparation: p.UrgentRepreparation,
		DispatchStatus:      string(p.DispatchStatus),
	}
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)

	m.Items = make([]PrescriptionItemModel, 0, len(p.Items))
	for _, item := range p.Items {
		m.Items = append(m.Items, PrescriptionItemModelFromDomain(&item))
	}
	m.AuditTrail = make([]PrescriptionAuditModel, 0, len(p.AuditTrail))
	for _, entry := range p.AuditTrail {
		m.AuditTrail = append(m.AuditTrail, PrescriptionAuditModelFromDomain(&entry))
	}

	return m
}

// ToDomain converts the persistence model back to the aggregate
func (m *PrescriptionModel) ToDomain() *prescription.Prescription {
	p := &prescription.Prescription{
		BaseAggregateRoot:   m.ToDomainAggregateRoot(),
		PatientID:           m.PatientID,
		DoctorID:            m.DoctorID,
		Status:              prescription.Status(m.Status),
		PaymentStatus:       prescription.PaymentStatus(m.PaymentStatus),
		SupplySource:        prescription.SupplySource(m.SupplySource),
		ExternalPharmacyID:  m.ExternalPharmacyID,
		IsControlled:        m.IsControlled,
		ControlledFolio:     m.ControlledFolio,
		ControlledType:      m.ControlledType,
		DueDate:             m.DueDate,
		DispensationDate:    m.DispensationDate,
		InternalLotNumber:   m.InternalLotNumber,
		InternalExpiry:      m.InternalExpiry,
		RejectionReason:     m.RejectionReason,
		CancelReason:        m.CancelReason,
		UrgentRepreparation: m.UrgentRepreparation,
		DispatchStatus:      prescription.DispatchStatus(m.DispatchStatus),
	}

	p.Items = make([]prescription.PrescriptionItem, 0, len(m.Items))
	for idx := range m.Items {
		p.Items = append(p.Items, m.Items[idx].ToDomainItem())
	}
	p.AuditTrail = make([]prescription.AuditEntry, 0, len(m.AuditTrail))
	for idx := range m.AuditTrail {
		p.AuditTrail = append(p.AuditTrail, m.AuditTrail[idx].ToDomainEntry())
	}

	return p
}

// PrescriptionItemModelFromDomain builds the item model from the domain entity
func PrescriptionItemModelFromDomain(item *prescription.PrescriptionItem) PrescriptionItemModel {
	m := PrescriptionItemModel{
		PrescriptionID:        item.PrescriptionID,
		ActiveIngredient:      item.ActiveIngredient,
		ConcentrationValue:    item.ConcentrationValue,
		ConcentrationUnit:     item.ConcentrationUnit,
		DosageValue:           item.DosageValue,
		DosageUnit:            item.DosageUnit,
		Frequency:             item.Frequency,
		DurationValue:         item.DurationValue,
		DurationUnit:          string(item.DurationUnit),
		TotalQuantityValue:    item.TotalQuantityValue,
		TotalQuantityUnit:     item.TotalQuantityUnit,
		Instructions:          item.Instructions,
		RequiresFractionation: item.RequiresFractionation,
		Refrigerated:          item.Refrigerated,
		SourceInventoryItemID: item.SourceInventoryItemID,
	}
	m.FromDomainBaseEntity(item.BaseEntity)
	return m
}

// ToDomainItem converts the item model back to the domain entity
func (m *PrescriptionItemModel) ToDomainItem() prescription.PrescriptionItem {
	return prescription.PrescriptionItem{
		BaseEntity:            m.ToDomain(),
		PrescriptionID:        m.PrescriptionID,
		ActiveIngredient:      m.ActiveIngredient,
		ConcentrationValue:    m.ConcentrationValue,
		ConcentrationUnit:     m.ConcentrationUnit,
		DosageValue:           m.DosageValue,
		DosageUnit:            m.DosageUnit,
		Frequency:             m.Frequency,
		DurationValue:         m.DurationValue,
		DurationUnit:          prescription.DurationUnit(m.DurationUnit),
		TotalQuantityValue:    m.TotalQuantityValue,
		TotalQuantityUnit:     m.TotalQuantityUnit,
		Instructions:          m.Instructions,
		RequiresFractionation: m.RequiresFractionation,
		Refrigerated:          m.Refrigerated,
		SourceInventoryItemID: m.SourceInventoryItemID,
	}
}

// PrescriptionAuditModelFromDomain builds the audit model from the domain entry
func PrescriptionAuditModelFromDomain(entry *prescription.AuditEntry) PrescriptionAuditModel {
	m := PrescriptionAuditModel{
		PrescriptionID: entry.PrescriptionID,
		Status:         string(entry.Status),
		Timestamp:      entry.Timestamp,
		ActorID:        entry.ActorID,
		Notes:          entry.Notes,
	}
	m.FromDomainBaseEntity(entry.BaseEntity)
	return m
}

// ToDomainEntry converts the audit model back to the domain entry
func (m *PrescriptionAuditModel) ToDomainEntry() prescription.AuditEntry {
	return prescription.AuditEntry{
		BaseEntity:     m.ToDomain(),
		PrescriptionID: m.PrescriptionID,
		Status:         prescription.Status(m.Status),
		Timestamp:      m.Timestamp,
		ActorID:        m.ActorID,
		Notes:          m.Notes,
	}
}

// ControlledDispensationModelFromDomain builds the ledger model from the domain entry
func ControlledDispensationModelFromDomain(entry *prescription.ControlledDispensationEntry) *ControlledDispensationModel {
	m := &ControlledDispensationModel{
		PrescriptionID: entry.PrescriptionID,
		PatientID:      entry.PatientID,
		Folio:          entry.Folio,
		ControlledType: entry.ControlledType,
		DispensedAt:    entry.DispensedAt,
		ActorID:        entry.ActorID,
	}
	m.FromDomainBaseEntity(entry.BaseEntity)
	return m
}
