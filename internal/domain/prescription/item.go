package prescription

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/shared"
)

// PrescriptionItem is one compounded formulation line on a prescription
type PrescriptionItem struct {
	shared.BaseEntity
	PrescriptionID        uuid.UUID
	ActiveIngredient      string          // Principal active ingredient
	ConcentrationValue    decimal.Decimal // Active ingredient per compounded unit
	ConcentrationUnit     string
	DosageValue           decimal.Decimal
	DosageUnit            string
	Frequency             string
	DurationValue         decimal.Decimal
	DurationUnit          DurationUnit
	TotalQuantityValue    decimal.Decimal // Units to compound for the whole batch
	TotalQuantityUnit     string
	Instructions          string
	RequiresFractionation bool
	Refrigerated          bool

	// SourceInventoryItemID references the commercial product used as raw
	// material when the item is fractionated from stock
	SourceInventoryItemID *uuid.UUID
}

// NewPrescriptionItem creates a new prescription item
func NewPrescriptionItem(prescriptionID uuid.UUID, activeIngredient string, concentrationValue decimal.Decimal, concentrationUnit string, totalQuantityValue decimal.Decimal, totalQuantityUnit string) (*PrescriptionItem, error) {
	if activeIngredient == "" {
		return nil, shared.NewDomainError("INVALID_INGREDIENT", "Active ingredient cannot be empty")
	}
	if concentrationValue.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_CONCENTRATION", "Concentration must be positive")
	}
	if totalQuantityValue.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Total quantity must be positive")
	}

	return &PrescriptionItem{
		BaseEntity:         shared.NewBaseEntity(),
		PrescriptionID:     prescriptionID,
		ActiveIngredient:   activeIngredient,
		ConcentrationValue: concentrationValue,
		ConcentrationUnit:  concentrationUnit,
		TotalQuantityValue: totalQuantityValue,
		TotalQuantityUnit:  totalQuantityUnit,
	}, nil
}

// SetTreatment sets dosage, frequency and duration for the item
func (i *PrescriptionItem) SetTreatment(dosageValue decimal.Decimal, dosageUnit, frequency string, durationValue decimal.Decimal, durationUnit DurationUnit) {
	i.DosageValue = dosageValue
	i.DosageUnit = dosageUnit
	i.Frequency = frequency
	i.DurationValue = durationValue
	i.DurationUnit = durationUnit
	i.Touch()
}

// MarkFractionated flags the item as fractionated from the given source
// inventory item
func (i *PrescriptionItem) MarkFractionated(sourceInventoryItemID uuid.UUID) error {
	if sourceInventoryItemID == uuid.Nil {
		return shared.NewDomainError("INVALID_SOURCE_ITEM", "Source inventory item ID cannot be empty")
	}
	i.RequiresFractionation = true
	i.SourceInventoryItemID = &sourceInventoryItemID
	i.Touch()
	return nil
}

// IsFractionationCase returns true when the item draws raw material from
// Skol inventory and therefore participates in dispatch allocation
func (i *PrescriptionItem) IsFractionationCase() bool {
	return i.RequiresFractionation && i.SourceInventoryItemID != nil
}
