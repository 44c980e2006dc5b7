package persistence

import (
	"context"

	appdispatch "github.com/skol/backend/internal/application/dispatch"
	"github.com/skol/backend/internal/domain/dispatch"
	"github.com/skol/backend/internal/domain/inventory"
	"github.com/skol/backend/internal/domain/prescription"
	"gorm.io/gorm"
)

// GormDispatchTransactionScope implements the dispatch transaction scope
// using GORM transactions. Note generation decrements stock and creates the
// note atomically; reception flips the note and cascades the Preparation
// transition to every fed prescription in one commit.
type GormDispatchTransactionScope struct {
	db *gorm.DB
}

// NewGormDispatchTransactionScope creates a new GormDispatchTransactionScope
func NewGormDispatchTransactionScope(db *gorm.DB) *GormDispatchTransactionScope {
	return &GormDispatchTransactionScope{db: db}
}

// Execute runs the function within a database transaction
func (s *GormDispatchTransactionScope) Execute(ctx context.Context, fn func(repos appdispatch.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormDispatchTxRepositories{tx: tx})
	})
}

// gormDispatchTxRepositories provides repositories bound to one transaction
type gormDispatchTxRepositories struct {
	tx *gorm.DB
}

func (r *gormDispatchTxRepositories) NoteRepo() dispatch.DispatchNoteRepository {
	return NewGormDispatchNoteRepository(r.tx)
}

func (r *gormDispatchTxRepositories) PrescriptionRepo() prescription.PrescriptionRepository {
	return NewGormPrescriptionRepository(r.tx)
}

func (r *gormDispatchTxRepositories) InventoryRepo() inventory.InventoryItemRepository {
	return NewGormInventoryItemRepository(r.tx)
}

var _ appdispatch.TransactionScope = (*GormDispatchTransactionScope)(nil)
var _ appdispatch.TransactionalRepositories = (*gormDispatchTxRepositories)(nil)
