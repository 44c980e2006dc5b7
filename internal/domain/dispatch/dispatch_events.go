package dispatch

import (
	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/shared"
)

// Event types for the dispatch domain
const (
	EventTypeDispatchNoteGenerated = "dispatch.note_generated"
	EventTypeDispatchNoteReceived  = "dispatch.note_received"
)

// AggregateTypeDispatchNote is the aggregate type for dispatch events
const AggregateTypeDispatchNote = "DispatchNote"

// DispatchNoteGeneratedEvent is published when the allocation engine creates
// a note
type DispatchNoteGeneratedEvent struct {
	shared.BaseDomainEvent
	Folio      string    `json:"folio"`
	PharmacyID uuid.UUID `json:"pharmacy_id"`
	LineCount  int       `json:"line_count"`
}

// NewDispatchNoteGeneratedEvent creates a new DispatchNoteGeneratedEvent
func NewDispatchNoteGeneratedEvent(note *DispatchNote) *DispatchNoteGeneratedEvent {
	return &DispatchNoteGeneratedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDispatchNoteGenerated, AggregateTypeDispatchNote, note.ID),
		Folio:           note.Folio,
		PharmacyID:      note.PharmacyID,
		LineCount:       len(note.Items),
	}
}

// DispatchNoteReceivedEvent is published when the note is confirmed received
type DispatchNoteReceivedEvent struct {
	shared.BaseDomainEvent
	Folio           string      `json:"folio"`
	ReceivedByName  string      `json:"received_by_name"`
	PrescriptionIDs []uuid.UUID `json:"prescription_ids"`
}

// NewDispatchNoteReceivedEvent creates a new DispatchNoteReceivedEvent
func NewDispatchNoteReceivedEvent(note *DispatchNote) *DispatchNoteReceivedEvent {
	return &DispatchNoteReceivedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDispatchNoteReceived, AggregateTypeDispatchNote, note.ID),
		Folio:           note.Folio,
		ReceivedByName:  note.ReceivedByName,
		PrescriptionIDs: note.PrescriptionIDs(),
	}
}
