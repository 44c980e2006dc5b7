package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/prescription"
	"github.com/skol/backend/internal/domain/shared"
)

// Service coordinates operator-gated prescription transitions. Every mutating
// operation takes the acting user's id explicitly; there is no ambient
// session lookup inside the state machine.
type Service struct {
	prescriptionRepo prescription.PrescriptionRepository
	txScope          TransactionScope
	eventPublisher   shared.EventPublisher
}

// NewService creates a new prescription Service
func NewService(prescriptionRepo prescription.PrescriptionRepository, txScope TransactionScope) *Service {
	return &Service{
		prescriptionRepo: prescriptionRepo,
		txScope:          txScope,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// publishDomainEvents publishes and clears the aggregate's pending events
func (s *Service) publishDomainEvents(ctx context.Context, p *prescription.Prescription) {
	if s.eventPublisher == nil {
		return
	}
	events := p.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	// Publish errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
	p.ClearDomainEvents()
}

// Create registers a new prescription. Portal submissions start in
// PendingReviewPortal, staff entries in PendingValidation.
func (s *Service) Create(ctx context.Context, actorID uuid.UUID, req CreateRequest) (*Response, error) {
	source := prescription.SupplySource(req.SupplySource)

	var (
		p   *prescription.Prescription
		err error
	)
	if req.FromPortal {
		p, err = prescription.NewPortalPrescription(req.PatientID, req.DoctorID, source, req.DueDate, actorID)
	} else {
		p, err = prescription.NewPrescription(req.PatientID, req.DoctorID, source, req.DueDate, actorID)
	}
	if err != nil {
		return nil, err
	}

	if req.ExternalPharmacyID != nil {
		if err := p.SetExternalPharmacy(*req.ExternalPharmacyID); err != nil {
			return nil, err
		}
	}
	if req.IsControlled {
		if err := p.MarkControlled(req.ControlledFolio, req.ControlledType); err != nil {
			return nil, err
		}
	}

	for _, itemReq := range req.Items {
		if err := s.addItem(p, itemReq); err != nil {
			return nil, err
		}
	}

	if err := s.prescriptionRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishDomainEvents(ctx, p)

	response := ToResponse(p)
	return &response, nil
}

func (s *Service) addItem(p *prescription.Prescription, req ItemRequest) error {
	item, err := p.AddItem(req.ActiveIngredient, req.ConcentrationValue, req.ConcentrationUnit, req.TotalQuantityValue, req.TotalQuantityUnit)
	if err != nil {
		return err
	}
	item.SetTreatment(req.DosageValue, req.DosageUnit, req.Frequency, req.DurationValue, prescription.DurationUnit(req.DurationUnit))
	item.Instructions = req.Instructions
	item.Refrigerated = req.Refrigerated
	if req.RequiresFractionation && req.SourceInventoryItemID != nil {
		if err := item.MarkFractionated(*req.SourceInventoryItemID); err != nil {
			return err
		}
	}
	return nil
}

// Get retrieves one prescription with its full audit trail
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Response, error) {
	p, err := s.prescriptionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToResponse(p)
	return &response, nil
}

// List retrieves prescriptions. Archived documents are hidden unless
// explicitly requested.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Response, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.DefaultFilter()
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	if filter.Status != "" {
		domainFilter.Filters["status"] = filter.Status
	}
	if filter.PatientID != nil {
		domainFilter.Filters["patient_id"] = *filter.PatientID
	}
	if !filter.IncludeArchived {
		domainFilter.Filters["exclude_archived"] = true
	}

	items, err := s.prescriptionRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.prescriptionRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]Response, 0, len(items))
	for idx := range items {
		responses = append(responses, ToResponse(&items[idx]))
	}
	return responses, total, nil
}

// transition loads the prescription, applies fn and saves the result
func (s *Service) transition(ctx context.Context, id uuid.UUID, fn func(p *prescription.Prescription) error) (*Response, error) {
	p, err := s.prescriptionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(p); err != nil {
		return nil, err
	}
	if err := s.prescriptionRepo.Save(ctx, p); err != nil {
		return nil, err
	}
	s.publishDomainEvents(ctx, p)

	response := ToResponse(p)
	return &response, nil
}

// CompleteIntake finishes staff item data entry for a portal submission
func (s *Service) CompleteIntake(ctx context.Context, actorID, id uuid.UUID, items []ItemRequest) (*Response, error) {
	return s.transition(ctx, id, func(p *prescription.Prescription) error {
		for _, itemReq := range items {
			if err := s.addItem(p, itemReq); err != nil {
				return err
			}
		}
		return p.CompleteIntake(actorID)
	})
}

// Validate approves a prescription for fulfillment
func (s *Service) Validate(ctx context.Context, actorID, id uuid.UUID) (*Response, error) {
	return s.transition(ctx, id, func(p *prescription.Prescription) error {
		return p.Validate(actorID)
	})
}

// Reject refuses a prescription with a mandatory reason
func (s *Service) Reject(ctx context.Context, actorID, id uuid.UUID, reason string) (*Response, error) {
	return s.transition(ctx, id, func(p *prescription.Prescription) error {
		return p.Reject(actorID, reason)
	})
}

// Resubmit returns a corrected document to the validation queue
func (s *Service) Resubmit(ctx context.Context, actorID, id uuid.UUID) (*Response, error) {
	return s.transition(ctx, id, func(p *prescription.Prescription) error {
		return p.Resubmit(actorID)
	})
}

// SendToExternal hands the prescription to its external compounding pharmacy
func (s *Service) SendToExternal(ctx context.Context, actorID, id uuid.UUID) (*Response, error) {
	return s.transition(ctx, id, func(p *prescription.Prescription) error {
		return p.SendToExternal(actorID)
	})
}

// ReceiveAtSkol records physical reception of the compounded product
func (s *Service) ReceiveAtSkol(ctx context.Context, actorID, id uuid.UUID, req ReceiveRequest) (*Response, error) {
	return s.transition(ctx, id, func(p *prescription.Prescription) error {
		return p.ReceiveAtSkol(actorID, req.InternalLotNumber, req.InternalExpiry, req.Checklist())
	})
}

// MarkReadyForPickup flags the product ready for patient hand-off
func (s *Service) MarkReadyForPickup(ctx context.Context, actorID, id uuid.UUID, attentionOverride bool) (*Response, error) {
	return s.transition(ctx, id, func(p *prescription.Prescription) error {
		return p.MarkReadyForPickup(actorID, attentionOverride)
	})
}

// Dispense performs the final hand-off. For controlled prescriptions the
// ledger entry and the status change commit in one transaction; a failed
// ledger append rolls the transition back.
func (s *Service) Dispense(ctx context.Context, actorID, id uuid.UUID) (*Response, error) {
	var dispensed *prescription.Prescription
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		p, err := repos.PrescriptionRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := p.Dispense(actorID); err != nil {
			return err
		}
		if p.IsControlled {
			entry, err := prescription.NewControlledDispensationEntry(p, actorID, *p.DispensationDate)
			if err != nil {
				return err
			}
			if err := repos.Ledger().Append(ctx, entry); err != nil {
				return err
			}
		}
		if err := repos.PrescriptionRepo().Save(ctx, p); err != nil {
			return err
		}
		dispensed = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Events go out only after the transaction committed
	s.publishDomainEvents(ctx, dispensed)

	response := ToResponse(dispensed)
	return &response, nil
}

// AssessRepreparation reports whether a new cycle is permitted and how
// urgent the request is, without mutating anything
func (s *Service) AssessRepreparation(ctx context.Context, id uuid.UUID) (*RepreparationAssessmentResponse, error) {
	p, err := s.prescriptionRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	assessment, err := prescription.AssessRepreparation(p, time.Now())
	if err != nil {
		return nil, err
	}

	return &RepreparationAssessmentResponse{
		TotalCycles:        assessment.Estimate.TotalCycles,
		DispensedCount:     assessment.DispensedCount,
		DaysSinceLastCycle: assessment.DaysSinceLastCycle,
		Urgency:            string(assessment.Urgency),
	}, nil
}

// Reprepare opens a new compounding cycle after the estimator admits it
func (s *Service) Reprepare(ctx context.Context, actorID, id uuid.UUID, req ReprepareRequest) (*Response, error) {
	return s.transition(ctx, id, func(p *prescription.Prescription) error {
		assessment, err := prescription.AssessRepreparation(p, time.Now())
		if err != nil {
			return err
		}
		return p.Reprepare(actorID, assessment.Urgency, req.NewControlledFolio)
	})
}

// Cancel cancels a prescription with a mandatory reason
func (s *Service) Cancel(ctx context.Context, actorID, id uuid.UUID, reason string) (*Response, error) {
	return s.transition(ctx, id, func(p *prescription.Prescription) error {
		return p.Cancel(actorID, reason)
	})
}

// Archive hides a finished or expired prescription from default views
func (s *Service) Archive(ctx context.Context, actorID, id uuid.UUID) (*Response, error) {
	return s.transition(ctx, id, func(p *prescription.Prescription) error {
		return p.Archive(actorID, time.Now())
	})
}
