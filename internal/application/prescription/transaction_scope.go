package prescription

import (
	"context"

	"github.com/skol/backend/internal/domain/prescription"
)

// TransactionScope provides transactional access to the repositories a
// prescription transition touches. The Dispensed transition in particular
// must write the controlled-substance ledger entry and the status change
// atomically: if the ledger append fails, the status write must not commit.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the prescription repositories
// within one transaction
type TransactionalRepositories interface {
	// PrescriptionRepo returns the prescription repository scoped to the
	// current transaction
	PrescriptionRepo() prescription.PrescriptionRepository
	// Ledger returns the controlled-substance ledger scoped to the current
	// transaction
	Ledger() prescription.ControlledLedger
}

// NoOpTransactionScope runs the function without a real transaction.
// Useful for tests and in-memory repositories.
type NoOpTransactionScope struct {
	prescriptionRepo prescription.PrescriptionRepository
	ledger           prescription.ControlledLedger
}

// NewNoOpTransactionScope creates a NoOpTransactionScope with the given repositories
func NewNoOpTransactionScope(prescriptionRepo prescription.PrescriptionRepository, ledger prescription.ControlledLedger) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		prescriptionRepo: prescriptionRepo,
		ledger:           ledger,
	}
}

// Execute runs the function directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// PrescriptionRepo returns the prescription repository
func (s *NoOpTransactionScope) PrescriptionRepo() prescription.PrescriptionRepository {
	return s.prescriptionRepo
}

// Ledger returns the controlled-substance ledger
func (s *NoOpTransactionScope) Ledger() prescription.ControlledLedger {
	return s.ledger
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
