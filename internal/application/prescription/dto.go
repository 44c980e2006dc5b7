package prescription

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/prescription"
)

// ItemRequest is one formulation line on a create/intake request
type ItemRequest struct {
	ActiveIngredient      string          `json:"active_ingredient" binding:"required"`
	ConcentrationValue    decimal.Decimal `json:"concentration_value" binding:"required"`
	ConcentrationUnit     string          `json:"concentration_unit"`
	DosageValue           decimal.Decimal `json:"dosage_value"`
	DosageUnit            string          `json:"dosage_unit"`
	Frequency             string          `json:"frequency"`
	DurationValue         decimal.Decimal `json:"duration_value"`
	DurationUnit          string          `json:"duration_unit"`
	TotalQuantityValue    decimal.Decimal `json:"total_quantity_value" binding:"required"`
	TotalQuantityUnit     string          `json:"total_quantity_unit"`
	Instructions          string          `json:"instructions"`
	RequiresFractionation bool            `json:"requires_fractionation"`
	Refrigerated          bool            `json:"refrigerated"`
	SourceInventoryItemID *uuid.UUID      `json:"source_inventory_item_id"`
}

// CreateRequest creates a new prescription
type CreateRequest struct {
	PatientID          uuid.UUID     `json:"patient_id" binding:"required"`
	DoctorID           uuid.UUID     `json:"doctor_id" binding:"required"`
	SupplySource       string        `json:"supply_source" binding:"required"`
	ExternalPharmacyID *uuid.UUID    `json:"external_pharmacy_id"`
	DueDate            time.Time     `json:"due_date" binding:"required"`
	FromPortal         bool          `json:"from_portal"`
	IsControlled       bool          `json:"is_controlled"`
	ControlledFolio    string        `json:"controlled_folio"`
	ControlledType     string        `json:"controlled_type"`
	Items              []ItemRequest `json:"items"`
}

// RejectRequest carries the mandatory rejection reason
type RejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelRequest carries the mandatory cancellation reason
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ReceiveRequest records physical reception of the compounded product
type ReceiveRequest struct {
	InternalLotNumber    string    `json:"internal_lot_number" binding:"required"`
	InternalExpiry       time.Time `json:"internal_expiry" binding:"required"`
	LabelCorrect         bool      `json:"label_correct"`
	LotAndExpiryAssigned bool      `json:"lot_and_expiry_assigned"`
	AppearanceAcceptable bool      `json:"appearance_acceptable"`
	ColdChainIntact      bool      `json:"cold_chain_intact"`
}

// Checklist converts the request flags into the domain checklist
func (r ReceiveRequest) Checklist() prescription.ReceptionChecklist {
	return prescription.ReceptionChecklist{
		LabelCorrect:         r.LabelCorrect,
		LotAndExpiryAssigned: r.LotAndExpiryAssigned,
		AppearanceAcceptable: r.AppearanceAcceptable,
		ColdChainIntact:      r.ColdChainIntact,
	}
}

// ReadyRequest marks a prescription ready for pickup
type ReadyRequest struct {
	AttentionOverride bool `json:"attention_override"`
}

// ReprepareRequest opens a new compounding cycle
type ReprepareRequest struct {
	NewControlledFolio string `json:"new_controlled_folio"`
}

// ListFilter narrows prescription listings
type ListFilter struct {
	Page            int
	PageSize        int
	Status          string
	PatientID       *uuid.UUID
	IncludeArchived bool
}

// AuditEntryResponse is one trail entry in API responses
type AuditEntryResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	ActorID   uuid.UUID `json:"actor_id"`
	Notes     string    `json:"notes"`
}

// ItemResponse is one formulation line in API responses
type ItemResponse struct {
	ID                    uuid.UUID       `json:"id"`
	ActiveIngredient      string          `json:"active_ingredient"`
	ConcentrationValue    decimal.Decimal `json:"concentration_value"`
	ConcentrationUnit     string          `json:"concentration_unit"`
	DosageValue           decimal.Decimal `json:"dosage_value"`
	DosageUnit            string          `json:"dosage_unit"`
	Frequency             string          `json:"frequency"`
	DurationValue         decimal.Decimal `json:"duration_value"`
	DurationUnit          string          `json:"duration_unit"`
	TotalQuantityValue    decimal.Decimal `json:"total_quantity_value"`
	TotalQuantityUnit     string          `json:"total_quantity_unit"`
	Instructions          string          `json:"instructions"`
	RequiresFractionation bool            `json:"requires_fractionation"`
	Refrigerated          bool            `json:"refrigerated"`
	SourceInventoryItemID *uuid.UUID      `json:"source_inventory_item_id,omitempty"`
}

// Response is the full prescription view
type Response struct {
	ID                  uuid.UUID            `json:"id"`
	PatientID           uuid.UUID            `json:"patient_id"`
	DoctorID            uuid.UUID            `json:"doctor_id"`
	Status              string               `json:"status"`
	PaymentStatus       string               `json:"payment_status"`
	SupplySource        string               `json:"supply_source"`
	ExternalPharmacyID  *uuid.UUID           `json:"external_pharmacy_id,omitempty"`
	IsControlled        bool                 `json:"is_controlled"`
	ControlledFolio     string               `json:"controlled_folio,omitempty"`
	DueDate             time.Time            `json:"due_date"`
	DispensationDate    *time.Time           `json:"dispensation_date,omitempty"`
	InternalLotNumber   string               `json:"internal_lot_number,omitempty"`
	InternalExpiry      *time.Time           `json:"internal_expiry,omitempty"`
	RejectionReason     string               `json:"rejection_reason,omitempty"`
	UrgentRepreparation bool                 `json:"urgent_repreparation"`
	DispatchStatus      string               `json:"dispatch_status"`
	Items               []ItemResponse       `json:"items"`
	AuditTrail          []AuditEntryResponse `json:"audit_trail"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// RepreparationAssessmentResponse reports eligibility and urgency for a new cycle
type RepreparationAssessmentResponse struct {
	TotalCycles        int    `json:"total_cycles"`
	DispensedCount     int    `json:"dispensed_count"`
	DaysSinceLastCycle int    `json:"days_since_last_cycle"`
	Urgency            string `json:"urgency"`
}

// ToResponse maps the aggregate to its API view
func ToResponse(p *prescription.Prescription) Response {
	items := make([]ItemResponse, 0, len(p.Items))
	for _, item := range p.Items {
		items = append(items, ItemResponse{
			ID:                    item.ID,
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
		})
	}

	trail := make([]AuditEntryResponse, 0, len(p.AuditTrail))
	for _, entry := range p.AuditTrail {
		trail = append(trail, AuditEntryResponse{
			Status:    string(entry.Status),
			Timestamp: entry.Timestamp,
			ActorID:   entry.ActorID,
			Notes:     entry.Notes,
		})
	}

	return Response{
		ID:                  p.ID,
		PatientID:           p.PatientID,
		DoctorID:            p.DoctorID,
		Status:              string(p.Status),
		PaymentStatus:       string(p.PaymentStatus),
		SupplySource:        string(p.SupplySource),
		ExternalPharmacyID:  p.ExternalPharmacyID,
		IsControlled:        p.IsControlled,
		ControlledFolio:     p.ControlledFolio,
		DueDate:             p.DueDate,
		DispensationDate:    p.DispensationDate,
		InternalLotNumber:   p.InternalLotNumber,
		InternalExpiry:      p.InternalExpiry,
		RejectionReason:     p.RejectionReason,
		UrgentRepreparation: p.UrgentRepreparation,
		DispatchStatus:      string(p.DispatchStatus),
		Items:               items,
		AuditTrail:          trail,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}
