package prescription

import (
	"time"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/shared"
)

// AuditEntry is one immutable entry in a prescription's audit trail. The
// trail is append-only: entries are inserted at the persistence boundary and
// never rewritten, so concurrent operators cannot lose each other's history.
type AuditEntry struct {
	shared.BaseEntity
	PrescriptionID uuid.UUID
	Status         Status
	Timestamp      time.Time
	ActorID        uuid.UUID
	Notes          string
}

// NewAuditEntry creates a new audit entry
func NewAuditEntry(prescriptionID uuid.UUID, status Status, actorID uuid.UUID, notes string) AuditEntry {
	return AuditEntry{
		BaseEntity:     shared.NewBaseEntity(),
		PrescriptionID: prescriptionID,
		Status:         status,
		Timestamp:      time.Now(),
		ActorID:        actorID,
		Notes:          notes,
	}
}

// ReceptionChecklist records the physical checks performed when a compounded
// product is received at Skol. Every applicable check must pass for the
// reception transition to commit.
type ReceptionChecklist struct {
	LabelCorrect         bool
	LotAndExpiryAssigned bool
	AppearanceAcceptable bool
	// ColdChainIntact is only meaningful when the prescription has a
	// refrigerated item; it is ignored otherwise
	ColdChainIntact bool
}

// Complete returns true when every required check passed
func (c ReceptionChecklist) Complete(requiresColdChain bool) bool {
	if !c.LabelCorrect || !c.LotAndExpiryAssigned || !c.AppearanceAcceptable {
		return false
	}
	if requiresColdChain && !c.ColdChainIntact {
		return false
	}
	return true
}
