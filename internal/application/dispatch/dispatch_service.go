package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/dispatch"
	"github.com/skol/backend/internal/domain/inventory"
	"github.com/skol/backend/internal/domain/prescription"
	"github.com/skol/backend/internal/domain/shared"
	"github.com/skol/backend/internal/domain/shared/strategy"
)

// Service is the dispatch allocation engine. It proposes which validated
// prescriptions can be fed from Skol stock, stages the operator's lot picks
// and barcode scans, and turns the validated lines into immutable dispatch
// notes.
type Service struct {
	prescriptionRepo prescription.PrescriptionRepository
	inventoryRepo    inventory.InventoryItemRepository
	noteRepo         dispatch.DispatchNoteRepository
	staging          dispatch.StagingStore
	lotStrategy      strategy.LotOrderingStrategy
	txScope          TransactionScope
	eventPublisher   shared.EventPublisher
}

// NewService creates a new dispatch Service
func NewService(
	prescriptionRepo prescription.PrescriptionRepository,
	inventoryRepo inventory.InventoryItemRepository,
	noteRepo dispatch.DispatchNoteRepository,
	staging dispatch.StagingStore,
	lotStrategy strategy.LotOrderingStrategy,
	txScope TransactionScope,
) *Service {
	return &Service{
		prescriptionRepo: prescriptionRepo,
		inventoryRepo:    inventoryRepo,
		noteRepo:         noteRepo,
		staging:          staging,
		lotStrategy:      lotStrategy,
		txScope:          txScope,
	}
}

// SetEventPublisher sets the event publisher for domain events
func (s *Service) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *Service) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	// Publish errors are logged by the event bus, not propagated
	_ = s.eventPublisher.Publish(ctx, events...)
}

// allocationLine is the internal working form of one plan line, carrying the
// resolved inventory item alongside the presentation data
type allocationLine struct {
	response AllocationLineResponse
	item     *inventory.InventoryItem
}

// BuildAllocationPlan recomputes the dispatch working view from current
// state. Prescriptions already fed by an active note are excluded; lines that
// cannot be dispatched are annotated rather than dropped, so the operator
// sees what is blocking them.
func (s *Service) BuildAllocationPlan(ctx context.Context) (*AllocationPlanResponse, error) {
	groups, err := s.buildGroups(ctx)
	if err != nil {
		return nil, err
	}

	plan := &AllocationPlanResponse{Groups: make([]AllocationGroupResponse, 0, len(groups))}
	for _, group := range groups {
		out := AllocationGroupResponse{PharmacyID: group.pharmacyID, Lines: make([]AllocationLineResponse, 0, len(group.lines))}
		for _, line := range group.lines {
			out.Lines = append(out.Lines, line.response)
		}
		plan.Groups = append(plan.Groups, out)
	}
	return plan, nil
}

type allocationGroup struct {
	pharmacyID uuid.UUID
	lines      []allocationLine
}

func (s *Service) buildGroups(ctx context.Context) ([]allocationGroup, error) {
	awaiting, err := s.prescriptionRepo.FindAwaitingDispatch(ctx)
	if err != nil {
		return nil, err
	}

	inFlight, err := s.prescriptionsOnActiveNotes(ctx)
	if err != nil {
		return nil, err
	}

	groupIndex := make(map[uuid.UUID]int)
	groups := make([]allocationGroup, 0)

	for idx := range awaiting {
		p := &awaiting[idx]
		if inFlight[p.ID] {
			continue
		}
		if p.ExternalPharmacyID == nil {
			continue
		}

		pharmacyID := *p.ExternalPharmacyID
		pos, ok := groupIndex[pharmacyID]
		if !ok {
			pos = len(groups)
			groupIndex[pharmacyID] = pos
			groups = append(groups, allocationGroup{pharmacyID: pharmacyID})
		}

		for itemIdx := range p.Items {
			item := &p.Items[itemIdx]
			if !item.IsFractionationCase() {
				continue
			}
			line, err := s.buildLine(ctx, p, item)
			if err != nil {
				return nil, err
			}
			groups[pos].lines = append(groups[pos].lines, line)
		}
	}

	return groups, nil
}

// prescriptionsOnActiveNotes returns the prescriptions whose current cycle is
// already in flight on an active note. They must not be allocated again until
// the note is received.
func (s *Service) prescriptionsOnActiveNotes(ctx context.Context) (map[uuid.UUID]bool, error) {
	active, err := s.noteRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	inFlight := make(map[uuid.UUID]bool)
	for idx := range active {
		for _, id := range active[idx].PrescriptionIDs() {
			inFlight[id] = true
		}
	}
	return inFlight, nil
}

// buildLine resolves one fractionation item against inventory and annotates
// the result. Failures become per-line error codes, never hard errors, except
// for infrastructure failures.
func (s *Service) buildLine(ctx context.Context, p *prescription.Prescription, item *prescription.PrescriptionItem) (allocationLine, error) {
	line := allocationLine{
		response: AllocationLineResponse{
			PrescriptionID:     p.ID,
			PrescriptionItemID: item.ID,
			PatientID:          p.PatientID,
			IngredientName:     item.ActiveIngredient,
			AvailablePacks:     decimal.Zero,
			Validation:         string(dispatch.ValidationPending),
		},
	}

	invItem, err := s.inventoryRepo.FindByID(ctx, *item.SourceInventoryItemID)
	if err != nil {
		if shared.IsNotFound(err) {
			line.response.ErrorCode = "SOURCE_NOT_FOUND"
			line.response.ErrorMessage = fmt.Sprintf("Source inventory item for %s no longer exists", item.ActiveIngredient)
			return line, nil
		}
		return line, err
	}

	line.item = invItem
	itemID := invItem.ID
	line.response.InventoryItemID = &itemID
	line.response.InventoryItemName = invItem.Name
	line.response.AvailablePacks = invItem.Quantity

	// Zero stock is reported before the fractionation math so the operator
	// sees the actionable problem first
	if !invItem.HasStock() {
		line.response.ErrorCode = "INSUFFICIENT_STOCK"
		line.response.ErrorMessage = fmt.Sprintf("Insufficient stock for %s: required at least 1, available 0", invItem.Name)
		return line, nil
	}

	packs, derr := RequiredPacks(item, invItem)
	if derr != nil {
		line.response.ErrorCode = derr.Code
		line.response.ErrorMessage = derr.Message
		return line, nil
	}
	line.response.RequiredPacks = packs

	if decimal.NewFromInt(packs).GreaterThan(invItem.Quantity) {
		line.response.ErrorCode = "INSUFFICIENT_STOCK"
		line.response.ErrorMessage = fmt.Sprintf("Insufficient stock for %s: required %d, available %s", invItem.Name, packs, invItem.Quantity)
		return line, nil
	}

	candidates, err := s.orderedCandidates(ctx, invItem)
	if err != nil {
		return line, err
	}
	line.response.LotCandidates = candidates

	staged, err := s.staging.Get(ctx, dispatch.StagingKey{PrescriptionID: p.ID, InventoryItemID: invItem.ID})
	if err != nil {
		return line, err
	}
	line.response.SelectedLot = staged.SelectedLot
	if staged.Outcome != "" {
		line.response.Validation = string(staged.Outcome)
	}

	return line, nil
}

// RequiredPacks computes how many purchase units cover the prescribed active
// ingredient mass: ceil of required mass over the payload of one pack.
func RequiredPacks(item *prescription.PrescriptionItem, invItem *inventory.InventoryItem) (int64, *shared.DomainError) {
	perPack := invItem.DoseValue.Mul(decimal.NewFromInt(invItem.ItemsPerBaseUnit))
	if perPack.LessThanOrEqual(decimal.Zero) {
		return 0, shared.NewDomainError("INVALID_FRACTIONATION",
			fmt.Sprintf("Item %s has no usable dose configuration for fractionation", invItem.Name))
	}

	required := item.ConcentrationValue.Mul(item.TotalQuantityValue)
	if required.LessThanOrEqual(decimal.Zero) {
		return 0, shared.NewDomainError("INVALID_FRACTIONATION",
			fmt.Sprintf("Prescription line %s has no computable required quantity", item.ActiveIngredient))
	}

	return required.Div(perPack).Ceil().IntPart(), nil
}

// orderedCandidates maps the item's live lots through the configured ordering
// strategy. The strategy only orders; the operator picks.
func (s *Service) orderedCandidates(ctx context.Context, invItem *inventory.InventoryItem) ([]LotCandidateResponse, error) {
	lots := invItem.ActiveLots()
	candidates := make([]strategy.LotCandidate, 0, len(lots))
	for _, lot := range lots {
		candidates = append(candidates, strategy.LotCandidate{
			InventoryItemID: invItem.ID.String(),
			LotNumber:       lot.LotNumber,
			Quantity:        lot.Quantity,
			ExpiryDate:      lot.ExpiryDate,
			ReceivedDate:    lot.CreatedAt,
		})
	}

	ordered, err := s.lotStrategy.OrderCandidates(ctx, strategy.LotOrderingContext{
		InventoryItemID: invItem.ID.String(),
		Date:            time.Now(),
	}, candidates)
	if err != nil {
		return nil, err
	}

	responses := make([]LotCandidateResponse, 0, len(ordered))
	for _, c := range ordered {
		candidate := LotCandidateResponse{LotNumber: c.LotNumber, Quantity: c.Quantity}
		if !c.ExpiryDate.IsZero() {
			expiry := c.ExpiryDate
			candidate.ExpiryDate = &expiry
		}
		responses = append(responses, candidate)
	}
	return responses, nil
}

// ValidateLine stages one operator validation attempt: the picked lot must
// exist with stock and the scanned code must match the item barcode exactly.
// A failed attempt is staged as invalid so the plan view shows it.
func (s *Service) ValidateLine(ctx context.Context, req ValidateLineRequest) (*ValidateLineResponse, error) {
	invItem, err := s.inventoryRepo.FindByID(ctx, req.InventoryItemID)
	if err != nil {
		return nil, err
	}

	outcome := dispatch.ValidationValid
	lot := invItem.GetLot(req.LotNumber)
	if lot == nil || !lot.HasStock() || !invItem.MatchesBarcode(req.ScannedCode) {
		outcome = dispatch.ValidationInvalid
	}

	staged := dispatch.LineStaging{
		Key: dispatch.StagingKey{
			PrescriptionID:  req.PrescriptionID,
			InventoryItemID: req.InventoryItemID,
		},
		SelectedLot: req.LotNumber,
		ScannedCode: req.ScannedCode,
		Outcome:     outcome,
	}
	if err := s.staging.Put(ctx, staged); err != nil {
		return nil, err
	}

	return &ValidateLineResponse{
		PrescriptionID:  req.PrescriptionID,
		InventoryItemID: req.InventoryItemID,
		LotNumber:       req.LotNumber,
		Outcome:         string(outcome),
	}, nil
}

// GenerateNote turns the validated lines for one destination pharmacy into an
// immutable dispatch note. Stock consumption, the note insert and the
// prescription dispatch flags commit in one transaction; staging is cleared
// only for the lines that made it onto the note.
func (s *Service) GenerateNote(ctx context.Context, actorID uuid.UUID, req GenerateNoteRequest) (*NoteResponse, error) {
	if actorID == uuid.Nil {
		return nil, shared.ErrMissingActor
	}

	groups, err := s.buildGroups(ctx)
	if err != nil {
		return nil, err
	}

	var lines []allocationLine
	for _, group := range groups {
		if group.pharmacyID == req.PharmacyID {
			lines = group.lines
			break
		}
	}

	included := make([]allocationLine, 0, len(lines))
	for _, line := range lines {
		if line.response.Dispatchable() && line.response.Validation == string(dispatch.ValidationValid) {
			included = append(included, line)
		}
	}
	if len(included) == 0 {
		return nil, shared.NewDomainError("NO_VALIDATED_ITEMS", "No validated lines are ready for this pharmacy")
	}

	folio := newFolio()
	var (
		note          *dispatch.DispatchNote
		pendingEvents []shared.DomainEvent
	)

	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		pendingEvents = pendingEvents[:0]

		items := make([]dispatch.DispatchItem, 0, len(included))
		prescriptionIDs := make([]uuid.UUID, 0, len(included))
		seen := make(map[uuid.UUID]bool, len(included))

		for _, line := range included {
			invItem, err := repos.InventoryRepo().FindByID(ctx, *line.response.InventoryItemID)
			if err != nil {
				return err
			}
			packs := decimal.NewFromInt(line.response.RequiredPacks)
			if err := invItem.ConsumeForDispatch(line.response.SelectedLot, packs); err != nil {
				return err
			}
			if err := repos.InventoryRepo().Save(ctx, invItem); err != nil {
				return err
			}
			pendingEvents = append(pendingEvents, invItem.GetDomainEvents()...)
			invItem.ClearDomainEvents()

			item, err := dispatch.NewDispatchItem(
				line.response.PrescriptionID,
				invItem.ID,
				line.response.IngredientName,
				line.response.SelectedLot,
				line.response.RequiredPacks,
			)
			if err != nil {
				return err
			}
			items = append(items, *item)

			if !seen[line.response.PrescriptionID] {
				seen[line.response.PrescriptionID] = true
				prescriptionIDs = append(prescriptionIDs, line.response.PrescriptionID)
			}
		}

		for _, id := range prescriptionIDs {
			p, err := repos.PrescriptionRepo().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := p.MarkDispatched(); err != nil {
				return err
			}
			if err := repos.PrescriptionRepo().Save(ctx, p); err != nil {
				return err
			}
		}

		created, err := dispatch.NewDispatchNote(folio, req.PharmacyID, actorID, req.DispatcherName, items)
		if err != nil {
			return err
		}
		if err := repos.NoteRepo().Save(ctx, created); err != nil {
			return err
		}
		pendingEvents = append(pendingEvents, created.GetDomainEvents()...)
		created.ClearDomainEvents()
		note = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, line := range included {
		_ = s.staging.Remove(ctx, dispatch.StagingKey{
			PrescriptionID:  line.response.PrescriptionID,
			InventoryItemID: *line.response.InventoryItemID,
		})
	}
	s.publishEvents(ctx, pendingEvents)

	response := ToNoteResponse(note)
	return &response, nil
}

// ConfirmReception marks a note received and cascades the Preparation
// transition to every fed prescription. The whole batch commits or none of
// it does; a prescription that cannot enter Preparation rolls everything
// back, the note included.
func (s *Service) ConfirmReception(ctx context.Context, actorID, noteID uuid.UUID, req ReceiveNoteRequest) (*NoteResponse, error) {
	if actorID == uuid.Nil {
		return nil, shared.ErrMissingActor
	}

	var (
		note          *dispatch.DispatchNote
		pendingEvents []shared.DomainEvent
	)

	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		pendingEvents = pendingEvents[:0]

		loaded, err := repos.NoteRepo().FindByID(ctx, noteID)
		if err != nil {
			return err
		}
		if err := loaded.Receive(req.ReceiverName, req.ConfirmedLines()); err != nil {
			return err
		}

		for _, id := range loaded.PrescriptionIDs() {
			p, err := repos.PrescriptionRepo().FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := p.StartPreparation(actorID, loaded.Folio); err != nil {
				return err
			}
			if err := repos.PrescriptionRepo().Save(ctx, p); err != nil {
				return err
			}
			pendingEvents = append(pendingEvents, p.GetDomainEvents()...)
			p.ClearDomainEvents()
		}

		if err := repos.NoteRepo().Save(ctx, loaded); err != nil {
			return err
		}
		pendingEvents = append(pendingEvents, loaded.GetDomainEvents()...)
		loaded.ClearDomainEvents()
		note = loaded
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishEvents(ctx, pendingEvents)

	response := ToNoteResponse(note)
	return &response, nil
}

// GetNote retrieves one dispatch note
func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*NoteResponse, error) {
	note, err := s.noteRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToNoteResponse(note)
	return &response, nil
}

// GetNoteByFolio retrieves one dispatch note by its printed folio
func (s *Service) GetNoteByFolio(ctx context.Context, folio string) (*NoteResponse, error) {
	note, err := s.noteRepo.FindByFolio(ctx, folio)
	if err != nil {
		return nil, err
	}
	response := ToNoteResponse(note)
	return &response, nil
}

// ListNotes retrieves dispatch notes
func (s *Service) ListNotes(ctx context.Context, filter ListFilter) ([]NoteResponse, int64, error) {
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

	notes, err := s.noteRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.noteRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]NoteResponse, 0, len(notes))
	for idx := range notes {
		responses = append(responses, ToNoteResponse(&notes[idx]))
	}
	return responses, total, nil
}

// newFolio generates a printable dispatch folio, unique enough for human
// reference and indexed uniquely in storage
func newFolio() string {
	return fmt.Sprintf("DN-%s-%s",
		time.Now().UTC().Format("20060102"),
		strings.ToUpper(uuid.NewString()[:8]))
}
