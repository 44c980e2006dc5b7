package prescription

// Status represents the fulfillment status of a prescription
type Status string

const (
	StatusPendingReviewPortal Status = "PENDING_REVIEW_PORTAL"
	StatusPendingValidation   Status = "PENDING_VALIDATION"
	StatusValidated           Status = "VALIDATED"
	StatusRejected            Status = "REJECTED"
	StatusSentToExternal      Status = "SENT_TO_EXTERNAL"
	StatusPreparation         Status = "PREPARATION"
	StatusReceivedAtSkol      Status = "RECEIVED_AT_SKOL"
	StatusReadyForPickup      Status = "READY_FOR_PICKUP"
	StatusDispensed           Status = "DISPENSED"
	StatusCancelled           Status = "CANCELLED"
	StatusArchived            Status = "ARCHIVED"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPendingReviewPortal, StatusPendingValidation, StatusValidated,
		StatusRejected, StatusSentToExternal, StatusPreparation,
		StatusReceivedAtSkol, StatusReadyForPickup, StatusDispensed,
		StatusCancelled, StatusArchived:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true for states no operator action can leave.
// Dispensed is not terminal: a chronic prescription may re-enter validation
// through the re-preparation cycle.
func (s Status) IsTerminal() bool {
	return s == StatusArchived
}

// CanTransitionTo checks if the status can transition to the target status.
// Cancellation is legal from every state except Cancelled, Archived and
// Dispensed: once the product is handed to the patient the dispensation is a
// fact, and a completed cycle closes through Reprepare or Archive, never
// through Cancel. Archiving additionally admits due-date-elapsed documents,
// which the aggregate checks since it needs the clock.
func (s Status) CanTransitionTo(target Status) bool {
	if target == StatusCancelled {
		return s != StatusCancelled && s != StatusArchived && s != StatusDispensed
	}

	switch s {
	case StatusPendingReviewPortal:
		return target == StatusPendingValidation
	case StatusPendingValidation:
		return target == StatusValidated || target == StatusRejected
	case StatusValidated:
		// SentToExternal for external-pharmacy stock; Preparation via the
		// dispatch reception cascade for Skol-supplied ingredients
		return target == StatusSentToExternal || target == StatusPreparation
	case StatusRejected:
		return target == StatusPendingValidation || target == StatusArchived
	case StatusSentToExternal:
		return target == StatusReceivedAtSkol
	case StatusPreparation:
		return target == StatusReceivedAtSkol
	case StatusReceivedAtSkol:
		return target == StatusReadyForPickup
	case StatusReadyForPickup:
		return target == StatusDispensed
	case StatusDispensed:
		// Re-preparation opens a new cycle
		return target == StatusPendingValidation || target == StatusArchived
	case StatusCancelled:
		return target == StatusArchived
	case StatusArchived:
		return false
	}
	return false
}
