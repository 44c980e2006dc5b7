package persistence

import (
	"context"

	"github.com/skol/backend/internal/domain/prescription"
	"github.com/skol/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormControlledLedger implements the controlled-substance dispensation
// ledger. Entries are only ever inserted.
type GormControlledLedger struct {
	db *gorm.DB
}

// NewGormControlledLedger creates a new GormControlledLedger
func NewGormControlledLedger(db *gorm.DB) *GormControlledLedger {
	return &GormControlledLedger{db: db}
}

// Append inserts a ledger entry
func (l *GormControlledLedger) Append(ctx context.Context, entry *prescription.ControlledDispensationEntry) error {
	m := models.ControlledDispensationModelFromDomain(entry)
	return l.db.WithContext(ctx).Create(m).Error
}

// Ensure GormControlledLedger implements ControlledLedger
var _ prescription.ControlledLedger = (*GormControlledLedger)(nil)
