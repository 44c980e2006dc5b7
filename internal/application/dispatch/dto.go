package dispatch

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/dispatch"
)

// LotCandidateResponse is one selectable lot on an allocation line, already
// ordered for presentation
type LotCandidateResponse struct {
	LotNumber  string          `json:"lot_number"`
	Quantity   decimal.Decimal `json:"quantity"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
}

// AllocationLineResponse is one prescription ingredient awaiting dispatch.
// Lines with an error code stay visible so the operator sees why they cannot
// be dispatched yet.
type AllocationLineResponse struct {
	PrescriptionID     uuid.UUID              `json:"prescription_id"`
	PrescriptionItemID uuid.UUID              `json:"prescription_item_id"`
	PatientID          uuid.UUID              `json:"patient_id"`
	IngredientName     string                 `json:"ingredient_name"`
	InventoryItemID    *uuid.UUID             `json:"inventory_item_id,omitempty"`
	InventoryItemName  string                 `json:"inventory_item_name,omitempty"`
	RequiredPacks      int64                  `json:"required_packs"`
	AvailablePacks     decimal.Decimal        `json:"available_packs"`
	LotCandidates      []LotCandidateResponse `json:"lot_candidates,omitempty"`
	SelectedLot        string                 `json:"selected_lot,omitempty"`
	Validation         string                 `json:"validation"`
	ErrorCode          string                 `json:"error_code,omitempty"`
	ErrorMessage       string                 `json:"error_message,omitempty"`
}

// Dispatchable returns true when the line carries no blocking error
func (l AllocationLineResponse) Dispatchable() bool {
	return l.ErrorCode == ""
}

// AllocationGroupResponse groups the plan lines by destination pharmacy; one
// dispatch note is generated per group
type AllocationGroupResponse struct {
	PharmacyID uuid.UUID                `json:"pharmacy_id"`
	Lines      []AllocationLineResponse `json:"lines"`
}

// AllocationPlanResponse is the full dispatch working view
type AllocationPlanResponse struct {
	Groups []AllocationGroupResponse `json:"groups"`
}

// ValidateLineRequest stages an operator's lot pick and barcode scan for one line
type ValidateLineRequest struct {
	PrescriptionID  uuid.UUID `json:"prescription_id" binding:"required"`
	InventoryItemID uuid.UUID `json:"inventory_item_id" binding:"required"`
	LotNumber       string    `json:"lot_number" binding:"required"`
	ScannedCode     string    `json:"scanned_code" binding:"required"`
}

// ValidateLineResponse reports the staged outcome of one validation attempt
type ValidateLineResponse struct {
	PrescriptionID  uuid.UUID `json:"prescription_id"`
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	LotNumber       string    `json:"lot_number"`
	Outcome         string    `json:"outcome"`
}

// GenerateNoteRequest generates a dispatch note for one destination pharmacy
type GenerateNoteRequest struct {
	PharmacyID     uuid.UUID `json:"pharmacy_id" binding:"required"`
	DispatcherName string    `json:"dispatcher_name" binding:"required"`
}

// ReceiveNoteRequest confirms reception of a note at the compounding pharmacy
type ReceiveNoteRequest struct {
	ReceiverName     string      `json:"receiver_name" binding:"required"`
	ConfirmedLineIDs []uuid.UUID `json:"confirmed_line_ids" binding:"required"`
}

// ConfirmedLines converts the confirmed line ids into the domain lookup form
func (r ReceiveNoteRequest) ConfirmedLines() map[uuid.UUID]bool {
	confirmed := make(map[uuid.UUID]bool, len(r.ConfirmedLineIDs))
	for _, id := range r.ConfirmedLineIDs {
		confirmed[id] = true
	}
	return confirmed
}

// ListFilter narrows dispatch note listings
type ListFilter struct {
	Page     int
	PageSize int
	Status   string
}

// NoteItemResponse is one line of a dispatch note in API responses
type NoteItemResponse struct {
	ID              uuid.UUID `json:"id"`
	PrescriptionID  uuid.UUID `json:"prescription_id"`
	InventoryItemID uuid.UUID `json:"inventory_item_id"`
	IngredientName  string    `json:"ingredient_name"`
	LotNumber       string    `json:"lot_number"`
	Quantity        int64     `json:"quantity"`
}

// NoteResponse is the full dispatch note view
type NoteResponse struct {
	ID             uuid.UUID          `json:"id"`
	Folio          string             `json:"folio"`
	PharmacyID     uuid.UUID          `json:"pharmacy_id"`
	Status         string             `json:"status"`
	DispatcherID   uuid.UUID          `json:"dispatcher_id"`
	DispatcherName string             `json:"dispatcher_name"`
	ReceivedByName string             `json:"received_by_name,omitempty"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
	Items          []NoteItemResponse `json:"items"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// ToNoteResponse maps the aggregate to its API view
func ToNoteResponse(n *dispatch.DispatchNote) NoteResponse {
	items := make([]NoteItemResponse, 0, len(n.Items))
	for _, item := range n.Items {
		items = append(items, NoteItemResponse{
			ID:              item.ID,
			PrescriptionID:  item.PrescriptionID,
			InventoryItemID: item.InventoryItemID,
			IngredientName:  item.IngredientName,
			LotNumber:       item.LotNumber,
			Quantity:        item.Quantity,
		})
	}

	return NoteResponse{
		ID:             n.ID,
		Folio:          n.Folio,
		PharmacyID:     n.PharmacyID,
		Status:         n.Status.String(),
		DispatcherID:   n.DispatcherID,
		DispatcherName: n.DispatcherName,
		ReceivedByName: n.ReceivedByName,
		CompletedAt:    n.CompletedAt,
		Items:          items,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
	}
}
