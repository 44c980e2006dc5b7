package dispatch

import (
	"context"

	"github.com/skol/backend/internal/domain/dispatch"
	"github.com/skol/backend/internal/domain/inventory"
	"github.com/skol/backend/internal/domain/prescription"
)

// TransactionScope provides transactional access to the repositories a
// dispatch operation spans. Note generation consumes stock and creates the
// note atomically; reception flips the note and cascades the Preparation
// transition to every fed prescription as one all-or-nothing batch.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the dispatch-side
// repositories within one transaction
type TransactionalRepositories interface {
	// NoteRepo returns the dispatch note repository scoped to the current transaction
	NoteRepo() dispatch.DispatchNoteRepository
	// PrescriptionRepo returns the prescription repository scoped to the current transaction
	PrescriptionRepo() prescription.PrescriptionRepository
	// InventoryRepo returns the inventory item repository scoped to the current transaction
	InventoryRepo() inventory.InventoryItemRepository
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful for tests and in-memory repositories.
type NoOpTransactionScope struct {
	noteRepo         dispatch.DispatchNoteRepository
	prescriptionRepo prescription.PrescriptionRepository
	inventoryRepo    inventory.InventoryItemRepository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(
	noteRepo dispatch.DispatchNoteRepository,
	prescriptionRepo prescription.PrescriptionRepository,
	inventoryRepo inventory.InventoryItemRepository,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		noteRepo:         noteRepo,
		prescriptionRepo: prescriptionRepo,
		inventoryRepo:    inventoryRepo,
	}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// NoteRepo returns the dispatch note repository
func (s *NoOpTransactionScope) NoteRepo() dispatch.DispatchNoteRepository {
	return s.noteRepo
}

// PrescriptionRepo returns the prescription repository
func (s *NoOpTransactionScope) PrescriptionRepo() prescription.PrescriptionRepository {
	return s.prescriptionRepo
}

// InventoryRepo returns the inventory item repository
func (s *NoOpTransactionScope) InventoryRepo() inventory.InventoryItemRepository {
	return s.inventoryRepo
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
