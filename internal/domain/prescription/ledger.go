package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/shared"
)

// ControlledDispensationEntry is one immutable row in the controlled-
// substance dispensation ledger
type ControlledDispensationEntry struct {
	shared.BaseEntity
	PrescriptionID uuid.UUID
	PatientID      uuid.UUID
	Folio          string
	ControlledType string
	DispensedAt    time.Time
	ActorID        uuid.UUID
}

// NewControlledDispensationEntry builds the ledger entry for a dispensation
func NewControlledDispensationEntry(p *Prescription, actorID uuid.UUID, dispensedAt time.Time) (*ControlledDispensationEntry, error) {
	if !p.IsControlled {
		return nil, shared.NewDomainError("NOT_CONTROLLED", "Prescription is not a controlled-substance order")
	}
	if p.ControlledFolio == "" {
		return nil, shared.NewDomainError("INVALID_FOLIO", "Controlled ledger entries require a folio")
	}

	return &ControlledDispensationEntry{
		BaseEntity:     shared.NewBaseEntity(),
		PrescriptionID: p.ID,
		PatientID:      p.PatientID,
		Folio:          p.ControlledFolio,
		ControlledType: p.ControlledType,
		DispensedAt:    dispensedAt,
		ActorID:        actorID,
	}, nil
}

// ControlledLedger is the append-only collaborator contract for controlled-
// substance dispensations. The append must succeed before the Dispensed
// transition is durable.
type ControlledLedger interface {
	Append(ctx context.Context, entry *ControlledDispensationEntry) error
}
