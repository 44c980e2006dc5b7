package prescription

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/shared"
)

// Prescription represents a magistral compounding order aggregate root.
// The status and the audit trail move together: every transition appends
// exactly one audit entry, and the current status always equals the status
// of the last entry.
type Prescription struct {
	shared.BaseAggregateRoot
	PatientID           uuid.UUID
	DoctorID            uuid.UUID
	Items               []PrescriptionItem
	Status              Status
	PaymentStatus       PaymentStatus
	SupplySource        SupplySource
	ExternalPharmacyID  *uuid.UUID
	IsControlled        bool
	ControlledFolio     string
	ControlledType      string
	DueDate             time.Time // Prescription document expiry
	AuditTrail          []AuditEntry
	DispensationDate    *time.Time
	InternalLotNumber   string     // Compounding lot assigned on reception
	InternalExpiry      *time.Time // Compounded product expiry
	RejectionReason     string
	CancelReason        string
	UrgentRepreparation bool
	DispatchStatus      DispatchStatus
}

// NewPrescription creates a staff-entered prescription starting in
// PendingValidation
func NewPrescription(patientID, doctorID uuid.UUID, supplySource SupplySource, dueDate time.Time, actorID uuid.UUID) (*Prescription, error) {
	return newPrescription(patientID, doctorID, supplySource, dueDate, actorID, StatusPendingValidation, "prescription registered by staff")
}

// NewPortalPrescription creates a patient-submitted prescription starting in
// PendingReviewPortal, awaiting staff item data entry
func NewPortalPrescription(patientID, doctorID uuid.UUID, supplySource SupplySource, dueDate time.Time, actorID uuid.UUID) (*Prescription, error) {
	return newPrescription(patientID, doctorID, supplySource, dueDate, actorID, StatusPendingReviewPortal, "prescription document submitted through portal")
}

func newPrescription(patientID, doctorID uuid.UUID, supplySource SupplySource, dueDate time.Time, actorID uuid.UUID, initial Status, note string) (*Prescription, error) {
	if patientID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PATIENT", "Patient ID cannot be empty")
	}
	if doctorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_DOCTOR", "Doctor ID cannot be empty")
	}
	if !supplySource.IsValid() {
		return nil, shared.NewDomainError("INVALID_SUPPLY_SOURCE", "Unknown supply source")
	}
	if actorID == uuid.Nil {
		return nil, shared.ErrMissingActor
	}
	if dueDate.IsZero() {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date is required")
	}

	p := &Prescription{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PatientID:         patientID,
		DoctorID:          doctorID,
		Items:             make([]PrescriptionItem, 0),
		Status:            initial,
		PaymentStatus:     PaymentStatusPending,
		SupplySource:      supplySource,
		DueDate:           dueDate,
		AuditTrail:        make([]AuditEntry, 0, 1),
		DispatchStatus:    DispatchStatusPending,
	}

	// The trail is never empty: creation writes the first entry
	p.appendAudit(initial, actorID, note)
	p.AddDomainEvent(NewPrescriptionCreatedEvent(p))

	return p, nil
}

// appendAudit moves the status and the trail together in one logical write
func (p *Prescription) appendAudit(status Status, actorID uuid.UUID, notes string) {
	p.AuditTrail = append(p.AuditTrail, NewAuditEntry(p.ID, status, actorID, notes))
	p.Status = status
	p.Touch()
}

// LastAuditEntry returns the most recent audit entry
func (p *Prescription) LastAuditEntry() *AuditEntry {
	if len(p.AuditTrail) == 0 {
		return nil
	}
	return &p.AuditTrail[len(p.AuditTrail)-1]
}

// DispensedCount returns how many cycles have been handed off to the patient
func (p *Prescription) DispensedCount() int {
	count := 0
	for _, entry := range p.AuditTrail {
		if entry.Status == StatusDispensed {
			count++
		}
	}
	return count
}

// LastDispensedAt returns the timestamp of the most recent dispensation
// audit entry, nil if the prescription was never dispensed
func (p *Prescription) LastDispensedAt() *time.Time {
	for idx := len(p.AuditTrail) - 1; idx >= 0; idx-- {
		if p.AuditTrail[idx].Status == StatusDispensed {
			ts := p.AuditTrail[idx].Timestamp
			return &ts
		}
	}
	return nil
}

// HasRefrigeratedItem returns true if any item requires cold-chain handling
func (p *Prescription) HasRefrigeratedItem() bool {
	for _, item := range p.Items {
		if item.Refrigerated {
			return true
		}
	}
	return false
}

// IsPastDue returns true when the prescription document has expired
func (p *Prescription) IsPastDue(now time.Time) bool {
	return now.After(p.DueDate)
}

// AddItem adds a formulation line. Items can only be edited before validation.
func (p *Prescription) AddItem(activeIngredient string, concentrationValue decimal.Decimal, concentrationUnit string, totalQuantityValue decimal.Decimal, totalQuantityUnit string) (*PrescriptionItem, error) {
	if p.Status != StatusPendingReviewPortal && p.Status != StatusPendingValidation {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add items after validation")
	}

	item, err := NewPrescriptionItem(p.ID, activeIngredient, concentrationValue, concentrationUnit, totalQuantityValue, totalQuantityUnit)
	if err != nil {
		return nil, err
	}

	p.Items = append(p.Items, *item)
	p.Touch()

	// Return the stored element so callers mutate aggregate state, not a copy
	return &p.Items[len(p.Items)-1], nil
}

// GetItem returns an item by its ID, nil if absent
func (p *Prescription) GetItem(itemID uuid.UUID) *PrescriptionItem {
	for idx := range p.Items {
		if p.Items[idx].ID == itemID {
			return &p.Items[idx]
		}
	}
	return nil
}

// MarkControlled flags the prescription as a controlled-substance order
func (p *Prescription) MarkControlled(folio, controlledType string) error {
	if folio == "" {
		return shared.NewDomainError("INVALID_FOLIO", "Controlled prescriptions require a folio")
	}
	p.IsControlled = true
	p.ControlledFolio = folio
	p.ControlledType = controlledType
	p.Touch()
	return nil
}

// SetPaymentStatus updates the payment state
func (p *Prescription) SetPaymentStatus(status PaymentStatus) error {
	if !status.IsValid() {
		return shared.NewDomainError("INVALID_PAYMENT_STATUS", "Unknown payment status")
	}
	p.PaymentStatus = status
	p.Touch()
	return nil
}

// SetExternalPharmacy assigns the compounding pharmacy / receiving recetario
func (p *Prescription) SetExternalPharmacy(pharmacyID uuid.UUID) error {
	if pharmacyID == uuid.Nil {
		return shared.NewDomainError("INVALID_PHARMACY", "External pharmacy ID cannot be empty")
	}
	p.ExternalPharmacyID = &pharmacyID
	p.Touch()
	return nil
}

// CompleteIntake moves a portal-submitted document into the validation queue
// once staff finished entering item data
func (p *Prescription) CompleteIntake(actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if !p.Status.CanTransitionTo(StatusPendingValidation) || p.Status != StatusPendingReviewPortal {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete intake from %s", p.Status))
	}
	if len(p.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot complete intake without items")
	}

	p.appendAudit(StatusPendingValidation, actorID, "item data entry completed, queued for validation")
	return nil
}

// Validate approves the prescription for fulfillment
func (p *Prescription) Validate(actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if p.Status != StatusPendingValidation {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot validate prescription in %s status", p.Status))
	}
	if len(p.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Cannot validate a prescription without items")
	}

	p.RejectionReason = ""
	p.appendAudit(StatusValidated, actorID, "validated by pharmacist")
	p.AddDomainEvent(NewPrescriptionValidatedEvent(p))
	return nil
}

// Reject refuses the prescription; a non-empty reason is required
func (p *Prescription) Reject(actorID uuid.UUID, reason string) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Rejection reason is required")
	}
	if p.Status != StatusPendingValidation {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot reject prescription in %s status", p.Status))
	}

	p.RejectionReason = reason
	p.appendAudit(StatusRejected, actorID, "rejected: "+reason)
	p.AddDomainEvent(NewPrescriptionRejectedEvent(p, reason))
	return nil
}

// Resubmit returns a rejected prescription to the validation queue after the
// patient or staff corrected the document
func (p *Prescription) Resubmit(actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if p.Status != StatusRejected {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot resubmit prescription in %s status", p.Status))
	}

	p.appendAudit(StatusPendingValidation, actorID, "corrected document resubmitted")
	return nil
}

// SendToExternal hands the prescription to the external pharmacy that
// compounds from its own stock. Publishes the event the outbound
// notification collaborator listens on.
func (p *Prescription) SendToExternal(actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if p.Status != StatusValidated {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot send prescription in %s status", p.Status))
	}
	if p.SupplySource != SupplySourceExternal {
		return shared.NewDomainError("INVALID_SUPPLY_SOURCE", "Only external-stock prescriptions are sent to the external pharmacy")
	}
	if p.ExternalPharmacyID == nil {
		return shared.NewDomainError("NO_PHARMACY", "External pharmacy must be assigned before sending")
	}

	p.appendAudit(StatusSentToExternal, actorID, "sent to external pharmacy for compounding")
	p.AddDomainEvent(NewPrescriptionSentToExternalEvent(p))
	return nil
}

// MarkDispatched records that the current cycle's ingredients are on an
// active dispatch note. Not a status transition: the prescription stays
// Validated until the note is received.
func (p *Prescription) MarkDispatched() error {
	if p.SupplySource != SupplySourceSkol {
		return shared.NewDomainError("INVALID_SUPPLY_SOURCE", "Only Skol-supplied prescriptions are dispatched")
	}
	p.DispatchStatus = DispatchStatusDispatched
	p.Touch()
	return nil
}

// StartPreparation is the cascaded transition applied when the feeding
// dispatch note is received at the compounding pharmacy
func (p *Prescription) StartPreparation(actorID uuid.UUID, dispatchFolio string) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if !p.Status.CanTransitionTo(StatusPreparation) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot start preparation from %s status", p.Status))
	}

	p.appendAudit(StatusPreparation, actorID,
		fmt.Sprintf("supplies received, folio %s, entering preparation", dispatchFolio))
	p.AddDomainEvent(NewPreparationStartedEvent(p, dispatchFolio))
	return nil
}

// ReceiveAtSkol records physical reception of the compounded product.
// Requires the internal compounding lot, its expiry, and a fully passed
// reception checklist (cold chain included when any item is refrigerated).
func (p *Prescription) ReceiveAtSkol(actorID uuid.UUID, internalLot string, internalExpiry time.Time, checklist ReceptionChecklist) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if !p.Status.CanTransitionTo(StatusReceivedAtSkol) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot receive product in %s status", p.Status))
	}
	if internalLot == "" {
		return shared.NewDomainError("INVALID_LOT", "Internal lot is required on reception")
	}
	if internalExpiry.IsZero() {
		return shared.NewDomainError("INVALID_EXPIRY", "Internal expiry date is required on reception")
	}
	if !checklist.Complete(p.HasRefrigeratedItem()) {
		return shared.NewDomainError("INCOMPLETE_CHECKLIST", "All reception checklist items must be confirmed")
	}

	p.InternalLotNumber = internalLot
	p.InternalExpiry = &internalExpiry
	p.appendAudit(StatusReceivedAtSkol, actorID,
		fmt.Sprintf("compounded product received, internal lot %s", internalLot))
	return nil
}

// MarkReadyForPickup flags the prescription ready for patient hand-off.
// Outstanding attention flags (refrigerated items needing cold storage at
// the counter) require an explicit operator override.
func (p *Prescription) MarkReadyForPickup(actorID uuid.UUID, attentionOverride bool) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if !p.Status.CanTransitionTo(StatusReadyForPickup) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot mark ready from %s status", p.Status))
	}
	if p.HasRefrigeratedItem() && !attentionOverride {
		return shared.NewDomainError("ATTENTION_REQUIRED", "Items with attention flags require explicit confirmation")
	}

	p.appendAudit(StatusReadyForPickup, actorID, "ready for patient pickup")
	p.AddDomainEvent(NewReadyForPickupEvent(p))
	return nil
}

// Dispense records the final hand-off to the patient and stamps the
// dispensation date with the transition timestamp. For controlled
// prescriptions the caller must append the controlled-substance ledger entry
// in the same transaction before this state is durable.
func (p *Prescription) Dispense(actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if !p.Status.CanTransitionTo(StatusDispensed) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot dispense prescription in %s status", p.Status))
	}

	p.appendAudit(StatusDispensed, actorID, "dispensed to patient")
	ts := p.LastAuditEntry().Timestamp
	p.DispensationDate = &ts
	p.AddDomainEvent(NewPrescriptionDispensedEvent(p))
	return nil
}

// Reprepare opens a new compounding cycle for a chronic prescription.
// Eligibility (cycle limit, document expiry) is checked by the cycle
// estimator before this is called; the aggregate re-checks the state and the
// controlled-folio requirement.
func (p *Prescription) Reprepare(actorID uuid.UUID, urgency RepreparationUrgency, newControlledFolio string) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if p.Status != StatusDispensed {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot re-prepare prescription in %s status", p.Status))
	}
	if p.IsControlled {
		if newControlledFolio == "" {
			return shared.NewDomainError("INVALID_FOLIO", "Controlled prescriptions require a new folio for each cycle")
		}
		p.ControlledFolio = newControlledFolio
	}

	p.UrgentRepreparation = urgency == RepreparationUrgent
	p.DispatchStatus = DispatchStatusPending
	p.InternalLotNumber = ""
	p.InternalExpiry = nil
	p.appendAudit(StatusPendingValidation, actorID,
		fmt.Sprintf("re-preparation cycle %d requested (%s)", p.DispensedCount()+1, urgency))
	p.AddDomainEvent(NewRepreparationStartedEvent(p, urgency))
	return nil
}

// Cancel cancels the prescription from any non-terminal state; irreversible
// except for archiving
func (p *Prescription) Cancel(actorID uuid.UUID, reason string) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Cancel reason is required")
	}
	if !p.Status.CanTransitionTo(StatusCancelled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel prescription in %s status", p.Status))
	}

	p.CancelReason = reason
	p.appendAudit(StatusCancelled, actorID, "cancelled: "+reason)
	p.AddDomainEvent(NewPrescriptionCancelledEvent(p, reason))
	return nil
}

// Archive hides the prescription from default views. Legal from Rejected,
// Cancelled and Dispensed, or from any state once the document is past due.
func (p *Prescription) Archive(actorID uuid.UUID, now time.Time) error {
	if actorID == uuid.Nil {
		return shared.ErrMissingActor
	}
	if p.Status == StatusArchived {
		return shared.NewDomainError("INVALID_STATE", "Prescription is already archived")
	}
	if !p.Status.CanTransitionTo(StatusArchived) && !p.IsPastDue(now) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot archive prescription in %s status before its due date", p.Status))
	}

	p.appendAudit(StatusArchived, actorID, "archived")
	return nil
}
