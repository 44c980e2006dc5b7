package persistence

import (
	"context"

	appprescription "github.com/skol/backend/internal/application/prescription"
	"github.com/skol/backend/internal/domain/prescription"
	"gorm.io/gorm"
)

// GormPrescriptionTransactionScope implements the prescription transaction
// scope using GORM transactions. The Dispensed transition writes the
// controlled-substance ledger entry and the status change through the same
// tx handle, so neither commits without the other.
type GormPrescriptionTransactionScope struct {
	db *gorm.DB
}

// NewGormPrescriptionTransactionScope creates a new GormPrescriptionTransactionScope
func NewGormPrescriptionTransactionScope(db *gorm.DB) *GormPrescriptionTransactionScope {
	return &GormPrescriptionTransactionScope{db: db}
}

// Execute runs the function within a database transaction
func (s *GormPrescriptionTransactionScope) Execute(ctx context.Context, fn func(repos appprescription.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormPrescriptionTxRepositories{tx: tx})
	})
}

// gormPrescriptionTxRepositories provides repositories bound to one transaction
type gormPrescriptionTxRepositories struct {
	tx *gorm.DB
}

func (r *gormPrescriptionTxRepositories) PrescriptionRepo() prescription.PrescriptionRepository {
	return NewGormPrescriptionRepository(r.tx)
}

func (r *gormPrescriptionTxRepositories) Ledger() prescription.ControlledLedger {
	return NewGormControlledLedger(r.tx)
}

var _ appprescription.TransactionScope = (*GormPrescriptionTransactionScope)(nil)
var _ appprescription.TransactionalRepositories = (*gormPrescriptionTxRepositories)(nil)
