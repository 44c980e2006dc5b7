package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/skol/backend/internal/domain/dispatch"
	"github.com/skol/backend/internal/domain/inventory"
	"github.com/skol/backend/internal/domain/prescription"
	"github.com/skol/backend/internal/domain/shared"
	"github.com/skol/backend/internal/infrastructure/cache"
	"github.com/skol/backend/internal/infrastructure/strategy/lot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// In-memory repositories with copy-on-read semantics, so uncommitted aggregate
// mutations never leak into the store.

type memPrescriptionRepo struct {
	store map[uuid.UUID]*prescription.Prescription
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

func (r *memPrescriptionRepo) FindAll(_ context.Context, _ shared.Filter) ([]prescription.Prescription, error) {
	result := make([]prescription.Prescription, 0, len(r.store))
	for _, p := range r.store {
		result = append(result, *clonePrescription(p))
	}
	return result, nil
}

func (r *memPrescriptionRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.store)), nil
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

type memInventoryRepo struct {
	store map[uuid.UUID]*inventory.InventoryItem
}

func cloneItem(item *inventory.InventoryItem) *inventory.InventoryItem {
	c := *item
	c.Lots = append([]inventory.StockLot(nil), item.Lots...)
	c.ClearDomainEvents()
	return &c
}

func (r *memInventoryRepo) FindByID(_ context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	item, ok := r.store[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneItem(item), nil
}

func (r *memInventoryRepo) FindByBarcode(_ context.Context, barcode string) (*inventory.InventoryItem, error) {
	for _, item := range r.store {
		if item.Barcode == barcode {
			return cloneItem(item), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memInventoryRepo) FindAll(_ context.Context, _ shared.Filter) ([]inventory.InventoryItem, error) {
	result := make([]inventory.InventoryItem, 0, len(r.store))
	for _, item := range r.store {
		result = append(result, *cloneItem(item))
	}
	return result, nil
}

func (r *memInventoryRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.store)), nil
}

func (r *memInventoryRepo) Save(_ context.Context, item *inventory.InventoryItem) error {
	r.store[item.ID] = cloneItem(item)
	return nil
}

type memNoteRepo struct {
	store map[uuid.UUID]*dispatch.DispatchNote
}

func cloneNote(n *dispatch.DispatchNote) *dispatch.DispatchNote {
	c := *n
	c.Items = append([]dispatch.DispatchItem(nil), n.Items...)
	c.ClearDomainEvents()
	return &c
}

func (r *memNoteRepo) FindByID(_ context.Context, id uuid.UUID) (*dispatch.DispatchNote, error) {
	n, ok := r.store[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return cloneNote(n), nil
}

func (r *memNoteRepo) FindByFolio(_ context.Context, folio string) (*dispatch.DispatchNote, error) {
	for _, n := range r.store {
		if n.Folio == folio {
			return cloneNote(n), nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memNoteRepo) FindAll(_ context.Context, _ shared.Filter) ([]dispatch.DispatchNote, error) {
	result := make([]dispatch.DispatchNote, 0, len(r.store))
	for _, n := range r.store {
		result = append(result, *cloneNote(n))
	}
	return result, nil
}

func (r *memNoteRepo) Count(_ context.Context, _ shared.Filter) (int64, error) {
	return int64(len(r.store)), nil
}

func (r *memNoteRepo) FindActive(_ context.Context) ([]dispatch.DispatchNote, error) {
	result := make([]dispatch.DispatchNote, 0)
	for _, n := range r.store {
		if n.IsActive() {
			result = append(result, *cloneNote(n))
		}
	}
	return result, nil
}

func (r *memNoteRepo) Save(_ context.Context, n *dispatch.DispatchNote) error {
	r.store[n.ID] = cloneNote(n)
	return nil
}

type dispatchFixture struct {
	service          *Service
	prescriptionRepo *memPrescriptionRepo
	inventoryRepo    *memInventoryRepo
	noteRepo         *memNoteRepo
	actorID          uuid.UUID
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	prescriptionRepo := &memPrescriptionRepo{store: make(map[uuid.UUID]*prescription.Prescription)}
	inventoryRepo := &memInventoryRepo{store: make(map[uuid.UUID]*inventory.InventoryItem)}
	noteRepo := &memNoteRepo{store: make(map[uuid.UUID]*dispatch.DispatchNote)}

	staging := cache.NewInMemoryStagingStore(time.Hour)
	t.Cleanup(func() { _ = staging.Close() })

	service := NewService(prescriptionRepo, inventoryRepo, noteRepo, staging,
		lot.NewFEFOLotStrategy(),
		NewNoOpTransactionScope(noteRepo, prescriptionRepo, inventoryRepo))

	return &dispatchFixture{
		service:          service,
		prescriptionRepo: prescriptionRepo,
		inventoryRepo:    inventoryRepo,
		noteRepo:         noteRepo,
		actorID:          uuid.New(),
	}
}

// seedItem creates a stocked inventory item: packs boxes of 30 x 10mg
func (f *dispatchFixture) seedItem(t *testing.T, barcode string, packs int64) *inventory.InventoryItem {
	t.Helper()

	item, err := inventory.NewInventoryItem("Minoxidil 10mg x30", "box",
		decimal.NewFromInt(packs), 30, decimal.NewFromInt(10), "mg", barcode)
	require.NoError(t, err)
	_, err = item.AddLot("LOT-A", decimal.NewFromInt(packs), time.Now().AddDate(1, 0, 0))
	require.NoError(t, err)
	require.NoError(t, f.inventoryRepo.Save(context.Background(), item))
	return item
}

// seedPrescription creates a validated Skol-supplied prescription needing
// requiredMg of active ingredient from the given source item
func (f *dispatchFixture) seedPrescription(t *testing.T, pharmacyID, sourceItemID uuid.UUID, doses int64) *prescription.Prescription {
	t.Helper()

	p, err := prescription.NewPrescription(uuid.New(), uuid.New(),
		prescription.SupplySourceSkol, time.Now().AddDate(0, 6, 0), f.actorID)
	require.NoError(t, err)
	require.NoError(t, p.SetExternalPharmacy(pharmacyID))

	item, err := p.AddItem("minoxidil", decimal.NewFromInt(10), "mg", decimal.NewFromInt(doses), "capsules")
	require.NoError(t, err)
	require.NoError(t, item.MarkFractionated(sourceItemID))

	require.NoError(t, p.Validate(f.actorID))
	require.NoError(t, f.prescriptionRepo.Save(context.Background(), p))
	return p
}

func (f *dispatchFixture) validateLine(t *testing.T, p *prescription.Prescription, itemID uuid.UUID, scanned string) *ValidateLineResponse {
	t.Helper()

	resp, err := f.service.ValidateLine(context.Background(), ValidateLineRequest{
		PrescriptionID:  p.ID,
		InventoryItemID: itemID,
		LotNumber:       "LOT-A",
		ScannedCode:     scanned,
	})
	require.NoError(t, err)
	return resp
}

func assertDomainErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func TestRequiredPacks(t *testing.T) {
	invItem, err := inventory.NewInventoryItem("Minoxidil 10mg x30", "box",
		decimal.NewFromInt(10), 30, decimal.NewFromInt(10), "mg", "750")
	require.NoError(t, err)

	tests := []struct {
		name          string
		concentration int64
		totalQuantity int64
		want          int64
	}{
		{"exactly one pack", 10, 30, 1},
		{"partial pack rounds up", 10, 31, 2},
		{"multiple packs", 50, 60, 10},
		{"small remainder still needs a pack", 1, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item, err := prescription.NewPrescriptionItem(uuid.New(), "minoxidil",
				decimal.NewFromInt(tt.concentration), "mg",
				decimal.NewFromInt(tt.totalQuantity), "capsules")
			require.NoError(t, err)

			packs, derr := RequiredPacks(item, invItem)
			require.Nil(t, derr)
			assert.Equal(t, tt.want, packs)
		})
	}
}

func TestRequiredPacksUnusableDoseConfiguration(t *testing.T) {
	invItem, err := inventory.NewInventoryItem("Bulk", "kg", decimal.NewFromInt(1), 0, decimal.Zero, "g", "")
	require.NoError(t, err)
	item, err := prescription.NewPrescriptionItem(uuid.New(), "minoxidil",
		decimal.NewFromInt(10), "mg", decimal.NewFromInt(30), "capsules")
	require.NoError(t, err)

	_, derr := RequiredPacks(item, invItem)
	require.NotNil(t, derr)
	assert.Equal(t, "INVALID_FRACTIONATION", derr.Code)
}

func TestBuildAllocationPlanGroupsByPharmacy(t *testing.T) {
	f := newDispatchFixture(t)
	item := f.seedItem(t, "7501", 10)

	northID := uuid.New()
	southID := uuid.New()
	f.seedPrescription(t, northID, item.ID, 30)
	f.seedPrescription(t, northID, item.ID, 30)
	f.seedPrescription(t, southID, item.ID, 30)

	plan, err := f.service.BuildAllocationPlan(context.Background())
	require.NoError(t, err)
	require.Len(t, plan.Groups, 2)

	byPharmacy := make(map[uuid.UUID]int)
	for _, group := range plan.Groups {
		byPharmacy[group.PharmacyID] = len(group.Lines)
	}
	assert.Equal(t, 2, byPharmacy[northID])
	assert.Equal(t, 1, byPharmacy[southID])
}

func TestBuildAllocationPlanAnnotatesMissingSource(t *testing.T) {
	f := newDispatchFixture(t)

	// Source item was deleted after the prescription was validated
	f.seedPrescription(t, uuid.New(), uuid.New(), 30)

	plan, err := f.service.BuildAllocationPlan(context.Background())
	require.NoError(t, err)
	require.Len(t, plan.Groups, 1)
	require.Len(t, plan.Groups[0].Lines, 1)

	line := plan.Groups[0].Lines[0]
	assert.Equal(t, "SOURCE_NOT_FOUND", line.ErrorCode)
	assert.False(t, line.Dispatchable())
}

func TestBuildAllocationPlanReportsZeroStockBeforeFractionation(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	// Exhausted item whose dose configuration is also unusable: the stock
	// problem is the one the operator can act on
	item, err := inventory.NewInventoryItem("Bulk tretinoin", "kg",
		decimal.Zero, 0, decimal.Zero, "g", "")
	require.NoError(t, err)
	require.NoError(t, f.inventoryRepo.Save(ctx, item))

	f.seedPrescription(t, uuid.New(), item.ID, 30)

	plan, err := f.service.BuildAllocationPlan(ctx)
	require.NoError(t, err)
	require.Len(t, plan.Groups, 1)
	require.Len(t, plan.Groups[0].Lines, 1)

	line := plan.Groups[0].Lines[0]
	assert.Equal(t, "INSUFFICIENT_STOCK", line.ErrorCode)
	assert.False(t, line.Dispatchable())
}

func TestValidateLineOutcomes(t *testing.T) {
	f := newDispatchFixture(t)
	item := f.seedItem(t, "7501", 10)
	p := f.seedPrescription(t, uuid.New(), item.ID, 30)

	assert.Equal(t, "invalid", f.validateLine(t, p, item.ID, "wrong-code").Outcome)
	assert.Equal(t, "valid", f.validateLine(t, p, item.ID, "7501").Outcome)

	// Picking a lot that does not exist fails even with a matching barcode
	resp, err := f.service.ValidateLine(context.Background(), ValidateLineRequest{
		PrescriptionID:  p.ID,
		InventoryItemID: item.ID,
		LotNumber:       "LOT-X",
		ScannedCode:     "7501",
	})
	require.NoError(t, err)
	assert.Equal(t, "invalid", resp.Outcome)
}

func TestValidateLineOutcomeShowsInPlan(t *testing.T) {
	f := newDispatchFixture(t)
	item := f.seedItem(t, "7501", 10)
	p := f.seedPrescription(t, uuid.New(), item.ID, 30)

	f.validateLine(t, p, item.ID, "7501")

	plan, err := f.service.BuildAllocationPlan(context.Background())
	require.NoError(t, err)
	line := plan.Groups[0].Lines[0]
	assert.Equal(t, "valid", line.Validation)
	assert.Equal(t, "LOT-A", line.SelectedLot)
}

func TestGenerateNote(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "7501", 10)
	pharmacyID := uuid.New()
	p := f.seedPrescription(t, pharmacyID, item.ID, 60)

	f.validateLine(t, p, item.ID, "7501")

	note, err := f.service.GenerateNote(ctx, f.actorID, GenerateNoteRequest{
		PharmacyID:     pharmacyID,
		DispatcherName: "R. Fuentes",
	})
	require.NoError(t, err)
	assert.Equal(t, "ACTIVE", note.Status)
	require.Len(t, note.Items, 1)
	assert.Equal(t, int64(2), note.Items[0].Quantity)

	// Stock is consumed on both counters
	stocked, err := f.inventoryRepo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, stocked.Quantity.Equal(decimal.NewFromInt(8)))
	assert.True(t, stocked.GetLot("LOT-A").Quantity.Equal(decimal.NewFromInt(8)))

	// The prescription stays Validated but is flagged in flight
	stored, err := f.prescriptionRepo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, prescription.StatusValidated, stored.Status)
	assert.Equal(t, prescription.DispatchStatusDispatched, stored.DispatchStatus)

	// In-flight prescriptions leave the plan until the note is received
	plan, err := f.service.BuildAllocationPlan(ctx)
	require.NoError(t, err)
	assert.Empty(t, plan.Groups)
}

func TestGenerateNoteSkipsUnvalidatedLines(t *testing.T) {
	f := newDispatchFixture(t)
	item := f.seedItem(t, "7501", 10)
	pharmacyID := uuid.New()
	validated := f.seedPrescription(t, pharmacyID, item.ID, 30)
	f.seedPrescription(t, pharmacyID, item.ID, 30)

	f.validateLine(t, validated, item.ID, "7501")

	note, err := f.service.GenerateNote(context.Background(), f.actorID, GenerateNoteRequest{
		PharmacyID:     pharmacyID,
		DispatcherName: "R. Fuentes",
	})
	require.NoError(t, err)
	require.Len(t, note.Items, 1)
	assert.Equal(t, validated.ID, note.Items[0].PrescriptionID)

	// The unvalidated prescription is still waiting for a later batch
	plan, err := f.service.BuildAllocationPlan(context.Background())
	require.NoError(t, err)
	require.Len(t, plan.Groups, 1)
	assert.Len(t, plan.Groups[0].Lines, 1)
}

func TestGenerateNoteNoValidatedItems(t *testing.T) {
	f := newDispatchFixture(t)
	item := f.seedItem(t, "7501", 10)
	pharmacyID := uuid.New()
	f.seedPrescription(t, pharmacyID, item.ID, 30)

	_, err := f.service.GenerateNote(context.Background(), f.actorID, GenerateNoteRequest{
		PharmacyID:     pharmacyID,
		DispatcherName: "R. Fuentes",
	})
	assertDomainErrorCode(t, err, "NO_VALIDATED_ITEMS")
}

func TestGenerateNoteRequiresActor(t *testing.T) {
	f := newDispatchFixture(t)

	_, err := f.service.GenerateNote(context.Background(), uuid.Nil, GenerateNoteRequest{
		PharmacyID:     uuid.New(),
		DispatcherName: "R. Fuentes",
	})
	assert.ErrorIs(t, err, shared.ErrMissingActor)
}

func TestGenerateNoteCompetingAllocationsCannotOverdraw(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "7501", 3)

	northID := uuid.New()
	southID := uuid.New()
	north := f.seedPrescription(t, northID, item.ID, 60)
	south := f.seedPrescription(t, southID, item.ID, 60)

	// Both operators validated their lines against the same 3-pack snapshot,
	// but the two notes together would need 4
	f.validateLine(t, north, item.ID, "7501")
	f.validateLine(t, south, item.ID, "7501")

	_, err := f.service.GenerateNote(ctx, f.actorID, GenerateNoteRequest{
		PharmacyID:     northID,
		DispatcherName: "R. Fuentes",
	})
	require.NoError(t, err)

	// The competing note sees the depleted stock and is refused whole
	_, err = f.service.GenerateNote(ctx, f.actorID, GenerateNoteRequest{
		PharmacyID:     southID,
		DispatcherName: "C. Ibarra",
	})
	assertDomainErrorCode(t, err, "NO_VALIDATED_ITEMS")

	stocked, err := f.inventoryRepo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.True(t, stocked.Quantity.Equal(decimal.NewFromInt(1)))

	active, err := f.noteRepo.FindActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestConfirmReceptionCascades(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "7501", 10)
	pharmacyID := uuid.New()
	p := f.seedPrescription(t, pharmacyID, item.ID, 30)

	f.validateLine(t, p, item.ID, "7501")
	note, err := f.service.GenerateNote(ctx, f.actorID, GenerateNoteRequest{
		PharmacyID:     pharmacyID,
		DispatcherName: "R. Fuentes",
	})
	require.NoError(t, err)

	received, err := f.service.ConfirmReception(ctx, f.actorID, note.ID, ReceiveNoteRequest{
		ReceiverName:     "QF M. Rojas",
		ConfirmedLineIDs: []uuid.UUID{note.Items[0].ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "RECEIVED", received.Status)

	stored, err := f.prescriptionRepo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, prescription.StatusPreparation, stored.Status)
}

func TestConfirmReceptionRollsBackOnBlockedPrescription(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()
	item := f.seedItem(t, "7501", 10)
	pharmacyID := uuid.New()
	p := f.seedPrescription(t, pharmacyID, item.ID, 30)

	f.validateLine(t, p, item.ID, "7501")
	note, err := f.service.GenerateNote(ctx, f.actorID, GenerateNoteRequest{
		PharmacyID:     pharmacyID,
		DispatcherName: "R. Fuentes",
	})
	require.NoError(t, err)

	// The prescription was cancelled while the note was in transit
	cancelled, err := f.prescriptionRepo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, cancelled.Cancel(f.actorID, "patient moved away"))
	require.NoError(t, f.prescriptionRepo.Save(ctx, cancelled))

	_, err = f.service.ConfirmReception(ctx, f.actorID, note.ID, ReceiveNoteRequest{
		ReceiverName:     "QF M. Rojas",
		ConfirmedLineIDs: []uuid.UUID{note.Items[0].ID},
	})
	assertDomainErrorCode(t, err, "INVALID_STATE")

	// The note must stay active so the conflict can be resolved manually
	stored, err := f.noteRepo.FindByID(ctx, note.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive())
}

func TestFEFOCandidateOrdering(t *testing.T) {
	f := newDispatchFixture(t)
	ctx := context.Background()

	item, err := inventory.NewInventoryItem("Minoxidil 10mg x30", "box",
		decimal.NewFromInt(20), 30, decimal.NewFromInt(10), "mg", "7501")
	require.NoError(t, err)
	_, err = item.AddLot("LOT-LATE", decimal.NewFromInt(10), time.Now().AddDate(2, 0, 0))
	require.NoError(t, err)
	_, err = item.AddLot("LOT-SOON", decimal.NewFromInt(10), time.Now().AddDate(0, 1, 0))
	require.NoError(t, err)
	require.NoError(t, f.inventoryRepo.Save(ctx, item))

	f.seedPrescription(t, uuid.New(), item.ID, 30)

	plan, err := f.service.BuildAllocationPlan(ctx)
	require.NoError(t, err)
	candidates := plan.Groups[0].Lines[0].LotCandidates
	require.Len(t, candidates, 2)
	assert.Equal(t, "LOT-SOON", candidates[0].LotNumber)
	assert.Equal(t, "LOT-LATE", candidates[1].LotNumber)
}
