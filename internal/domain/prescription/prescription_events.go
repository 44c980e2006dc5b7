package prescription

import (
	"time"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/shared"
)

// Event types for the prescription domain
const (
	EventTypePrescriptionCreated   = "prescription.created"
	EventTypePrescriptionValidated = "prescription.validated"
	EventTypePrescriptionRejected  = "prescription.rejected"
	EventTypeSentToExternal        = "prescription.sent_to_external"
	EventTypePreparationStarted    = "prescription.preparation_started"
	EventTypeReadyForPickup        = "prescription.ready_for_pickup"
	EventTypePrescriptionDispensed = "prescription.dispensed"
	EventTypeRepreparationStarted  = "prescription.repreparation_started"
	EventTypePrescriptionCancelled = "prescription.cancelled"
)

// AggregateTypePrescription is the aggregate type for prescription events
const AggregateTypePrescription = "Prescription"

// PrescriptionCreatedEvent is published when a prescription enters the system
type PrescriptionCreatedEvent struct {
	shared.BaseDomainEvent
	PatientID    uuid.UUID    `json:"patient_id"`
	SupplySource SupplySource `json:"supply_source"`
	Initial      Status       `json:"initial_status"`
}

// NewPrescriptionCreatedEvent creates a new PrescriptionCreatedEvent
func NewPrescriptionCreatedEvent(p *Prescription) *PrescriptionCreatedEvent {
	return &PrescriptionCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePrescriptionCreated, AggregateTypePrescription, p.ID),
		PatientID:       p.PatientID,
		SupplySource:    p.SupplySource,
		Initial:         p.Status,
	}
}

// PrescriptionValidatedEvent is published when a pharmacist validates
type PrescriptionValidatedEvent struct {
	shared.BaseDomainEvent
	SupplySource SupplySource `json:"supply_source"`
}

// NewPrescriptionValidatedEvent creates a new PrescriptionValidatedEvent
func NewPrescriptionValidatedEvent(p *Prescription) *PrescriptionValidatedEvent {
	return &PrescriptionValidatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePrescriptionValidated, AggregateTypePrescription, p.ID),
		SupplySource:    p.SupplySource,
	}
}

// PrescriptionRejectedEvent is published when a pharmacist rejects
type PrescriptionRejectedEvent struct {
	shared.BaseDomainEvent
	PatientID uuid.UUID `json:"patient_id"`
	Reason    string    `json:"reason"`
}

// NewPrescriptionRejectedEvent creates a new PrescriptionRejectedEvent
func NewPrescriptionRejectedEvent(p *Prescription, reason string) *PrescriptionRejectedEvent {
	return &PrescriptionRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePrescriptionRejected, AggregateTypePrescription, p.ID),
		PatientID:       p.PatientID,
		Reason:          reason,
	}
}

// PrescriptionSentToExternalEvent is the hook the outbound notification
// collaborator subscribes to
type PrescriptionSentToExternalEvent struct {
	shared.BaseDomainEvent
	PatientID  uuid.UUID `json:"patient_id"`
	PharmacyID uuid.UUID `json:"pharmacy_id"`
}

// NewPrescriptionSentToExternalEvent creates a new PrescriptionSentToExternalEvent
func NewPrescriptionSentToExternalEvent(p *Prescription) *PrescriptionSentToExternalEvent {
	event := &PrescriptionSentToExternalEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeSentToExternal, AggregateTypePrescription, p.ID),
		PatientID:       p.PatientID,
	}
	if p.ExternalPharmacyID != nil {
		event.PharmacyID = *p.ExternalPharmacyID
	}
	return event
}

// PreparationStartedEvent is published by the dispatch reception cascade
type PreparationStartedEvent struct {
	shared.BaseDomainEvent
	DispatchFolio string `json:"dispatch_folio"`
}

// NewPreparationStartedEvent creates a new PreparationStartedEvent
func NewPreparationStartedEvent(p *Prescription, dispatchFolio string) *PreparationStartedEvent {
	return &PreparationStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePreparationStarted, AggregateTypePrescription, p.ID),
		DispatchFolio:   dispatchFolio,
	}
}

// ReadyForPickupEvent is published when the product awaits the patient
type ReadyForPickupEvent struct {
	shared.BaseDomainEvent
	PatientID uuid.UUID `json:"patient_id"`
}

// NewReadyForPickupEvent creates a new ReadyForPickupEvent
func NewReadyForPickupEvent(p *Prescription) *ReadyForPickupEvent {
	return &ReadyForPickupEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReadyForPickup, AggregateTypePrescription, p.ID),
		PatientID:       p.PatientID,
	}
}

// PrescriptionDispensedEvent is published on final hand-off
type PrescriptionDispensedEvent struct {
	shared.BaseDomainEvent
	PatientID        uuid.UUID `json:"patient_id"`
	IsControlled     bool      `json:"is_controlled"`
	DispensationDate time.Time `json:"dispensation_date"`
}

// NewPrescriptionDispensedEvent creates a new PrescriptionDispensedEvent
func NewPrescriptionDispensedEvent(p *Prescription) *PrescriptionDispensedEvent {
	event := &PrescriptionDispensedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePrescriptionDispensed, AggregateTypePrescription, p.ID),
		PatientID:       p.PatientID,
		IsControlled:    p.IsControlled,
	}
	if p.DispensationDate != nil {
		event.DispensationDate = *p.DispensationDate
	}
	return event
}

// RepreparationStartedEvent is published when a new compounding cycle opens
type RepreparationStartedEvent struct {
	shared.BaseDomainEvent
	Cycle   int                  `json:"cycle"`
	Urgency RepreparationUrgency `json:"urgency"`
}

// NewRepreparationStartedEvent creates a new RepreparationStartedEvent
func NewRepreparationStartedEvent(p *Prescription, urgency RepreparationUrgency) *RepreparationStartedEvent {
	return &RepreparationStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRepreparationStarted, AggregateTypePrescription, p.ID),
		Cycle:           p.DispensedCount() + 1,
		Urgency:         urgency,
	}
}

// PrescriptionCancelledEvent is published on cancellation
type PrescriptionCancelledEvent struct {
	shared.BaseDomainEvent
	Reason string `json:"reason"`
}

// NewPrescriptionCancelledEvent creates a new PrescriptionCancelledEvent
func NewPrescriptionCancelledEvent(p *Prescription, reason string) *PrescriptionCancelledEvent {
	return &PrescriptionCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePrescriptionCancelled, AggregateTypePrescription, p.ID),
		Reason:          reason,
	}
}
