package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/prescription"
	"github.com/skol/backend/internal/domain/shared"
	"github.com/skol/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPrescriptionRepository implements PrescriptionRepository using GORM.
// The audit trail is append-only at this boundary: Save inserts entries that
// are not persisted yet and never updates or deletes existing rows, so a
// stale aggregate cannot rewrite history written by a concurrent operator.
type GormPrescriptionRepository struct {
	db *gorm.DB
}

// NewGormPrescriptionRepository creates a new GormPrescriptionRepository
func NewGormPrescriptionRepository(db *gorm.DB) *GormPrescriptionRepository {
	return &GormPrescriptionRepository{db: db}
}

func preloadPrescription(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items").
		Preload("AuditTrail", func(db *gorm.DB) *gorm.DB {
			return db.Order("timestamp ASC, created_at ASC")
		})
}

// FindByID finds a prescription by its ID with items and full audit trail
func (r *GormPrescriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*prescription.Prescription, error) {
	var m models.PrescriptionModel
	if err := preloadPrescription(r.db.WithContext(ctx)).First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindAll finds prescriptions matching the filter
func (r *GormPrescriptionRepository) FindAll(ctx context.Context, filter shared.Filter) ([]prescription.Prescription, error) {
	var ms []models.PrescriptionModel
	query := r.applyFilter(
		preloadPrescription(r.db.WithContext(ctx)).Model(&models.PrescriptionModel{}),
		filter,
	)

	if err := query.Find(&ms).Error; err != nil {
		return nil, err
	}

	result := make([]prescription.Prescription, 0, len(ms))
	for idx := range ms {
		result = append(result, *ms[idx].ToDomain())
	}
	return result, nil
}

// Count counts prescriptions matching the filter
func (r *GormPrescriptionRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.PrescriptionModel{}),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindAwaitingDispatch returns Validated, Skol-supplied prescriptions whose
// current cycle has not been put on a dispatch note yet
func (r *GormPrescriptionRepository) FindAwaitingDispatch(ctx context.Context) ([]prescription.Prescription, error) {
	var ms []models.PrescriptionModel
	err := preloadPrescription(r.db.WithContext(ctx)).
		Where("status = ? AND supply_source = ? AND dispatch_status = ?",
			string(prescription.StatusValidated),
			string(prescription.SupplySourceSkol),
			string(prescription.DispatchStatusPending)).
		Order("urgent_repreparation DESC, created_at ASC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	result := make([]prescription.Prescription, 0, len(ms))
	for idx := range ms {
		result = append(result, *ms[idx].ToDomain())
	}
	return result, nil
}

// Save persists the aggregate. Scalar state is written under an optimistic
// version check; items are upserted; audit entries are insert-only.
func (r *GormPrescriptionRepository) Save(ctx context.Context, p *prescription.Prescription) error {
	db := r.db.WithContext(ctx)
	m := models.PrescriptionModelFromDomain(p)

	result := db.Model(&models.PrescriptionModel{}).
		Where("id = ? AND version = ?", p.ID, p.Version).
		Updates(map[string]interface{}{
			"status":               m.Status,
			"payment_status":       m.PaymentStatus,
			"supply_source":        m.SupplySource,
			"external_pharmacy_id": m.ExternalPharmacyID,
			"is_controlled":        m.IsControlled,
			"controlled_folio":     m.ControlledFolio,
			"controlled_type":      m.ControlledType,
			"due_date":             m.DueDate,
			"dispensation_date":    m.DispensationDate,
			"internal_lot_number":  m.InternalLotNumber,
			"internal_expiry":      m.InternalExpiry,
			"rejection_reason":     m.RejectionReason,
			"cancel_reason":        m.CancelReason,
			"urgent_repreparation": m.UrgentRepreparation,
			"dispatch_status":      m.DispatchStatus,
			"version":              p.Version + 1,
			"updated_at":           m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.PrescriptionModel{}).Where("id = ?", p.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.ErrConcurrencyConflict
		}
		// First save: create the row with its items and initial trail
		return db.Create(m).Error
	}

	if len(m.Items) > 0 {
		if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m.Items).Error; err != nil {
			return err
		}
	}
	if len(m.AuditTrail) > 0 {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m.AuditTrail).Error; err != nil {
			return err
		}
	}

	p.IncrementVersion()
	return nil
}

// applyFilter applies filter options to the query
func (r *GormPrescriptionRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormPrescriptionRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "patient_id":
			query = query.Where("patient_id = ?", value)
		case "doctor_id":
			query = query.Where("doctor_id = ?", value)
		case "supply_source":
			query = query.Where("supply_source = ?", value)
		case "dispatch_status":
			query = query.Where("dispatch_status = ?", value)
		case "external_pharmacy_id":
			query = query.Where("external_pharmacy_id = ?", value)
		case "is_controlled":
			query = query.Where("is_controlled = ?", value)
		case "exclude_archived":
			if value == true {
				query = query.Where("status <> ?", string(prescription.StatusArchived))
			}
		}
	}

	return query
}

// Ensure GormPrescriptionRepository implements PrescriptionRepository
var _ prescription.PrescriptionRepository = (*GormPrescriptionRepository)(nil)
