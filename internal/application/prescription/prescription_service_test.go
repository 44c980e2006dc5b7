package prescription

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/prescription"
	"github.com/skol/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPrescriptionRepo is an in-memory PrescriptionRepository. FindByID hands
// out copies so uncommitted mutations never leak into the store, mirroring
// transactional semantics.
type memPrescriptionRepo struct {
	store map[uuid.UUID]*prescription.Prescription
}

func newMemPrescriptionRepo() *memPrescriptionRepo {
	return &memPrescriptionRepo{store: make(map[uuid.UUID]*prescription.Prescription)}
}

func clonePrescription(p *prescription.Prescription) *prescription.Prescription {
	c := *p
	c.Items = append([]prescription.PrescriptionItem(nil), p.Items...)
	c.AuditTrail = append([]prescription.AuditEntry(nil), p.AuditTrail...)
	c.ClearDomainEvents()
	return &c
}

func (r *memPrescriptionRepo) FindByID(_ context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	p, ok := r.store[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return clonePrescription(p), nil
}

func (r *memPrescriptionRepo) FindAll(_ context.Context, filter shared.Filter) ([]prescription.Prescription, error) {
	result := make([]prescription.Prescription, 0, len(r.store))
	for _, p := range r.store {
		if status, ok := filter.Filters["status"].(string); ok && string(p.Status) != status {
			continue
		}
		if patientID, ok := filter.Filters["patient_id"].(uuid.UUID); ok && p.PatientID != patientID {
			continue
		}
		if _, ok := filter.Filters["exclude_archived"]; ok && p.Status == prescription.StatusArchived {
			continue
		}
		result = append(result, *clonePrescription(p))
	}
	return result, nil
}

func (r *memPrescriptionRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	items, err := r.FindAll(ctx, filter)
	return int64(len(items)), err
}

func (r *memPrescriptionRepo) FindAwaitingDispatch(_ context.Context) ([]prescription.Prescription, error) {
	result := make([]prescription.Prescription, 0)
	for _, p := range r.store {
		if p.Status == prescription.StatusValidated &&
			p.SupplySource == prescription.SupplySourceSkol &&
			p.DispatchStatus == prescription.DispatchStatusPending {
			result = append(result, *clonePrescription(p))
		}
	}
	return result, nil
}

func (r *memPrescriptionRepo) Save(_ context.Context, p *prescription.Prescription) error {
	r.store[p.ID] = clonePrescription(p)
	return nil
}

var _ prescription.PrescriptionRepository = (*memPrescriptionRepo)(nil)

// memLedger records controlled dispensations, failing on demand
type memLedger struct {
	entries []*prescription.ControlledDispensationEntry
	failErr error
}

func (l *memLedger) Append(_ context.Context, entry *prescription.ControlledDispensationEntry) error {
	if l.failErr != nil {
		return l.failErr
	}
	l.entries = append(l.entries, entry)
	return nil
}

var _ prescription.ControlledLedger = (*memLedger)(nil)

// capturingPublisher records every published domain event
type capturingPublisher struct {
	events []shared.DomainEvent
}

func (p *capturingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

var _ shared.EventPublisher = (*capturingPublisher)(nil)

type serviceFixture struct {
	service *Service
	repo    *memPrescriptionRepo
	ledger  *memLedger
	actorID uuid.UUID
}

func newServiceFixture() *serviceFixture {
	repo := newMemPrescriptionRepo()
	ledger := &memLedger{}
	return &serviceFixture{
		service: NewService(repo, NewNoOpTransactionScope(repo, ledger)),
		repo:    repo,
		ledger:  ledger,
		actorID: uuid.New(),
	}
}

func baseCreateRequest() CreateRequest {
	return CreateRequest{
		PatientID:    uuid.New(),
		DoctorID:     uuid.New(),
		SupplySource: "EXTERNAL_STOCK",
		DueDate:      time.Now().AddDate(0, 6, 0),
		Items: []ItemRequest{
			{
				ActiveIngredient:   "minoxidil",
				ConcentrationValue: decimal.NewFromInt(10),
				ConcentrationUnit:  "mg",
				DurationValue:      decimal.NewFromInt(30),
				DurationUnit:       "days",
				TotalQuantityValue: decimal.NewFromInt(30),
				TotalQuantityUnit:  "capsules",
			},
		},
	}
}

// advances an external-stock prescription to Dispensed through the service
func (f *serviceFixture) dispense(t *testing.T, id uuid.UUID) *Response {
	t.Helper()
	ctx := context.Background()

	_, err := f.service.Validate(ctx, f.actorID, id)
	require.NoError(t, err)
	_, err = f.service.SendToExternal(ctx, f.actorID, id)
	require.NoError(t, err)
	_, err = f.service.ReceiveAtSkol(ctx, f.actorID, id, ReceiveRequest{
		InternalLotNumber:    "INT-001",
		InternalExpiry:       time.Now().AddDate(0, 3, 0),
		LabelCorrect:         true,
		LotAndExpiryAssigned: true,
		AppearanceAcceptable: true,
	})
	require.NoError(t, err)
	_, err = f.service.MarkReadyForPickup(ctx, f.actorID, id, false)
	require.NoError(t, err)

	resp, err := f.service.Dispense(ctx, f.actorID, id)
	require.NoError(t, err)
	return resp
}

func TestServiceCreate(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	sourceID := uuid.New()
	pharmacyID := uuid.New()
	req := baseCreateRequest()
	req.ExternalPharmacyID = &pharmacyID
	req.Items[0].RequiresFractionation = true
	req.Items[0].SourceInventoryItemID = &sourceID

	resp, err := f.service.Create(ctx, f.actorID, req)
	require.NoError(t, err)
	assert.Equal(t, "PENDING_VALIDATION", resp.Status)
	assert.Equal(t, pharmacyID, *resp.ExternalPharmacyID)
	require.Len(t, resp.Items, 1)
	assert.True(t, resp.Items[0].RequiresFractionation)
	assert.Equal(t, sourceID, *resp.Items[0].SourceInventoryItemID)
	assert.Equal(t, "days", resp.Items[0].DurationUnit)

	stored, err := f.repo.FindByID(ctx, resp.ID)
	require.NoError(t, err)
	assert.Len(t, stored.AuditTrail, 1)
}

func TestServiceCreateFromPortal(t *testing.T) {
	f := newServiceFixture()

	req := baseCreateRequest()
	req.FromPortal = true
	req.Items = nil

	resp, err := f.service.Create(context.Background(), f.actorID, req)
	require.NoError(t, err)
	assert.Equal(t, "PENDING_REVIEW_PORTAL", resp.Status)
}

func TestServiceCreateControlledRequiresFolio(t *testing.T) {
	f := newServiceFixture()

	req := baseCreateRequest()
	req.IsControlled = true

	_, err := f.service.Create(context.Background(), f.actorID, req)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_FOLIO", domainErr.Code)
}

func TestServiceCompleteIntake(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	req := baseCreateRequest()
	req.FromPortal = true
	items := req.Items
	req.Items = nil

	created, err := f.service.Create(ctx, f.actorID, req)
	require.NoError(t, err)

	resp, err := f.service.CompleteIntake(ctx, f.actorID, created.ID, items)
	require.NoError(t, err)
	assert.Equal(t, "PENDING_VALIDATION", resp.Status)
	assert.Len(t, resp.Items, 1)
	assert.Len(t, resp.AuditTrail, 2)
}

func TestServiceDispenseControlledAppendsLedger(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	pharmacyID := uuid.New()
	req := baseCreateRequest()
	req.ExternalPharmacyID = &pharmacyID
	req.IsControlled = true
	req.ControlledFolio = "RCE-0100"
	req.ControlledType = "psychotropic"

	created, err := f.service.Create(ctx, f.actorID, req)
	require.NoError(t, err)

	resp := f.dispense(t, created.ID)
	assert.Equal(t, "DISPENSED", resp.Status)
	require.NotNil(t, resp.DispensationDate)

	require.Len(t, f.ledger.entries, 1)
	entry := f.ledger.entries[0]
	assert.Equal(t, created.ID, entry.PrescriptionID)
	assert.Equal(t, "RCE-0100", entry.Folio)
	assert.Equal(t, f.actorID, entry.ActorID)
}

func TestServiceDispenseLedgerFailureRollsBack(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	pharmacyID := uuid.New()
	req := baseCreateRequest()
	req.ExternalPharmacyID = &pharmacyID
	req.IsControlled = true
	req.ControlledFolio = "RCE-0200"

	created, err := f.service.Create(ctx, f.actorID, req)
	require.NoError(t, err)

	_, err = f.service.Validate(ctx, f.actorID, created.ID)
	require.NoError(t, err)
	_, err = f.service.SendToExternal(ctx, f.actorID, created.ID)
	require.NoError(t, err)
	_, err = f.service.ReceiveAtSkol(ctx, f.actorID, created.ID, ReceiveRequest{
		InternalLotNumber:    "INT-002",
		InternalExpiry:       time.Now().AddDate(0, 3, 0),
		LabelCorrect:         true,
		LotAndExpiryAssigned: true,
		AppearanceAcceptable: true,
	})
	require.NoError(t, err)
	_, err = f.service.MarkReadyForPickup(ctx, f.actorID, created.ID, false)
	require.NoError(t, err)

	f.ledger.failErr = assert.AnError
	_, err = f.service.Dispense(ctx, f.actorID, created.ID)
	require.Error(t, err)

	// The status change must not outlive the failed ledger append
	stored, err := f.repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, prescription.StatusReadyForPickup, stored.Status)
	assert.Empty(t, f.ledger.entries)
}

func TestServiceDispensePublishesOnlyAfterCommit(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	publisher := &capturingPublisher{}
	f.service.SetEventPublisher(publisher)

	pharmacyID := uuid.New()
	req := baseCreateRequest()
	req.ExternalPharmacyID = &pharmacyID
	req.IsControlled = true
	req.ControlledFolio = "RCE-0300"

	created, err := f.service.Create(ctx, f.actorID, req)
	require.NoError(t, err)

	_, err = f.service.Validate(ctx, f.actorID, created.ID)
	require.NoError(t, err)
	_, err = f.service.SendToExternal(ctx, f.actorID, created.ID)
	require.NoError(t, err)
	_, err = f.service.ReceiveAtSkol(ctx, f.actorID, created.ID, ReceiveRequest{
		InternalLotNumber:    "INT-003",
		InternalExpiry:       time.Now().AddDate(0, 3, 0),
		LabelCorrect:         true,
		LotAndExpiryAssigned: true,
		AppearanceAcceptable: true,
	})
	require.NoError(t, err)
	_, err = f.service.MarkReadyForPickup(ctx, f.actorID, created.ID, false)
	require.NoError(t, err)

	published := len(publisher.events)

	// A failed transaction must not leak a dispensation event
	f.ledger.failErr = assert.AnError
	_, err = f.service.Dispense(ctx, f.actorID, created.ID)
	require.Error(t, err)
	assert.Len(t, publisher.events, published)

	f.ledger.failErr = nil
	_, err = f.service.Dispense(ctx, f.actorID, created.ID)
	require.NoError(t, err)
	assert.Greater(t, len(publisher.events), published)
}

func TestServiceDispenseNonControlledSkipsLedger(t *testing.T) {
	f := newServiceFixture()

	pharmacyID := uuid.New()
	req := baseCreateRequest()
	req.ExternalPharmacyID = &pharmacyID

	created, err := f.service.Create(context.Background(), f.actorID, req)
	require.NoError(t, err)

	f.dispense(t, created.ID)
	assert.Empty(t, f.ledger.entries)
}

func TestServiceReprepare(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	pharmacyID := uuid.New()
	req := baseCreateRequest()
	req.ExternalPharmacyID = &pharmacyID

	created, err := f.service.Create(ctx, f.actorID, req)
	require.NoError(t, err)
	f.dispense(t, created.ID)

	assessment, err := f.service.AssessRepreparation(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, assessment.DispensedCount)
	assert.Equal(t, "early", assessment.Urgency)
	assert.GreaterOrEqual(t, assessment.TotalCycles, 2)

	resp, err := f.service.Reprepare(ctx, f.actorID, created.ID, ReprepareRequest{})
	require.NoError(t, err)
	assert.Equal(t, "PENDING_VALIDATION", resp.Status)
	assert.False(t, resp.UrgentRepreparation)
}

func TestServiceReprepareRefusedAtCycleLimit(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	pharmacyID := uuid.New()
	req := baseCreateRequest()
	req.ExternalPharmacyID = &pharmacyID
	// 45 day document with 30 day cycles: one cycle only
	req.DueDate = time.Now().AddDate(0, 0, 45)

	created, err := f.service.Create(ctx, f.actorID, req)
	require.NoError(t, err)
	f.dispense(t, created.ID)

	_, err = f.service.Reprepare(ctx, f.actorID, created.ID, ReprepareRequest{})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "CYCLE_LIMIT_REACHED", domainErr.Code)
}

func TestServiceListExcludesArchivedByDefault(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	active, err := f.service.Create(ctx, f.actorID, baseCreateRequest())
	require.NoError(t, err)

	rejected, err := f.service.Create(ctx, f.actorID, baseCreateRequest())
	require.NoError(t, err)
	_, err = f.service.Reject(ctx, f.actorID, rejected.ID, "out of scope")
	require.NoError(t, err)
	_, err = f.service.Archive(ctx, f.actorID, rejected.ID)
	require.NoError(t, err)

	visible, total, err := f.service.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, visible, 1)
	assert.Equal(t, active.ID, visible[0].ID)

	all, _, err := f.service.List(ctx, ListFilter{IncludeArchived: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestServiceGetNotFound(t *testing.T) {
	f := newServiceFixture()

	_, err := f.service.Get(context.Background(), uuid.New())
	assert.True(t, shared.IsNotFound(err))
}
