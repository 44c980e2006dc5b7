package dispatch

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/shared"
)

// NoteStatus represents the lifecycle state of a dispatch note
type NoteStatus string

const (
	NoteStatusActive   NoteStatus = "ACTIVE"
	NoteStatusReceived NoteStatus = "RECEIVED"
)

// IsValid checks if the status is a valid NoteStatus
func (s NoteStatus) IsValid() bool {
	return s == NoteStatusActive || s == NoteStatusReceived
}

// String returns the string representation of NoteStatus
func (s NoteStatus) String() string {
	return string(s)
}

// DispatchItem is one validated ingredient line on a dispatch note
type DispatchItem struct {
	shared.BaseEntity
	DispatchNoteID  uuid.UUID
	PrescriptionID  uuid.UUID
	InventoryItemID uuid.UUID
	IngredientName  string // Denormalized for display on the printed note
	LotNumber       string
	Quantity        int64 // Dispense packs withdrawn
}

// NewDispatchItem creates a new dispatch line
func NewDispatchItem(prescriptionID, inventoryItemID uuid.UUID, ingredientName, lotNumber string, quantity int64) (*DispatchItem, error) {
	if prescriptionID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRESCRIPTION", "Prescription ID cannot be empty")
	}
	if inventoryItemID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_ITEM", "Inventory item ID cannot be empty")
	}
	if lotNumber == "" {
		return nil, shared.NewDomainError("INVALID_LOT", "Lot number cannot be empty")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Dispatch quantity must be positive")
	}

	return &DispatchItem{
		BaseEntity:      shared.NewBaseEntity(),
		PrescriptionID:  prescriptionID,
		InventoryItemID: inventoryItemID,
		IngredientName:  ingredientName,
		LotNumber:       lotNumber,
		Quantity:        quantity,
	}, nil
}

// DispatchNote is an immutable shipment record of source ingredients sent to
// a compounding pharmacy. Created Active with at least one validated line;
// transitions once, irreversibly, to Received; never deleted.
type DispatchNote struct {
	shared.BaseAggregateRoot
	Folio          string
	PharmacyID     uuid.UUID // Receiving recetario for the Skol-supplied items
	Status         NoteStatus
	CompletedAt    *time.Time
	DispatcherID   uuid.UUID
	DispatcherName string
	ReceivedByName string
	Items          []DispatchItem
}

// NewDispatchNote creates an active dispatch note from validated lines
func NewDispatchNote(folio string, pharmacyID, dispatcherID uuid.UUID, dispatcherName string, items []DispatchItem) (*DispatchNote, error) {
	if folio == "" {
		return nil, shared.NewDomainError("INVALID_FOLIO", "Dispatch folio cannot be empty")
	}
	if pharmacyID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PHARMACY", "Destination pharmacy ID cannot be empty")
	}
	if dispatcherID == uuid.Nil {
		return nil, shared.ErrMissingActor
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("NO_VALIDATED_ITEMS", "A dispatch note requires at least one validated line")
	}

	note := &DispatchNote{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Folio:             folio,
		PharmacyID:        pharmacyID,
		Status:            NoteStatusActive,
		DispatcherID:      dispatcherID,
		DispatcherName:    dispatcherName,
		Items:             make([]DispatchItem, 0, len(items)),
	}

	for _, item := range items {
		item.DispatchNoteID = note.ID
		note.Items = append(note.Items, item)
	}

	note.AddDomainEvent(NewDispatchNoteGeneratedEvent(note))

	return note, nil
}

// IsActive returns true while the note awaits reception
func (n *DispatchNote) IsActive() bool {
	return n.Status == NoteStatusActive
}

// PrescriptionIDs returns the distinct prescriptions fed by this note, in
// first-appearance order
func (n *DispatchNote) PrescriptionIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(n.Items))
	ids := make([]uuid.UUID, 0, len(n.Items))
	for _, item := range n.Items {
		if !seen[item.PrescriptionID] {
			seen[item.PrescriptionID] = true
			ids = append(ids, item.PrescriptionID)
		}
	}
	return ids
}

// Receive marks the note received. Preconditions: every line physically
// confirmed and a non-empty receiver name. The caller must cascade the
// Preparation transition to the fed prescriptions in the same transaction.
func (n *DispatchNote) Receive(receiverName string, confirmedLines map[uuid.UUID]bool) error {
	if n.Status != NoteStatusActive {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot receive dispatch note in %s status", n.Status))
	}
	if receiverName == "" {
		return shared.NewDomainError("INVALID_RECEIVER", "Receiver name is required")
	}
	for _, item := range n.Items {
		if !confirmedLines[item.ID] {
			return shared.NewDomainError("INCOMPLETE_CHECKLIST",
				fmt.Sprintf("Line %s (lot %s) has not been physically confirmed", item.IngredientName, item.LotNumber))
		}
	}

	now := time.Now()
	n.Status = NoteStatusReceived
	n.CompletedAt = &now
	n.ReceivedByName = receiverName
	n.Touch()

	n.AddDomainEvent(NewDispatchNoteReceivedEvent(n))

	return nil
}
