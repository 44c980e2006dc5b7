package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/dispatch"
	"github.com/skol/backend/internal/domain/shared"
	"github.com/skol/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDispatchNoteRepository implements DispatchNoteRepository using GORM.
// Notes are never deleted.
type GormDispatchNoteRepository struct {
	db *gorm.DB
}

// NewGormDispatchNoteRepository creates a new GormDispatchNoteRepository
func NewGormDispatchNoteRepository(db *gorm.DB) *GormDispatchNoteRepository {
	return &GormDispatchNoteRepository{db: db}
}

// FindByID finds a dispatch note by its ID with lines
func (r *GormDispatchNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*dispatch.DispatchNote, error) {
	var m models.DispatchNoteModel
	if err := r.db.WithContext(ctx).Preload("Items").First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByFolio finds a dispatch note by its folio
func (r *GormDispatchNoteRepository) FindByFolio(ctx context.Context, folio string) (*dispatch.DispatchNote, error) {
	var m models.DispatchNoteModel
	if err := r.db.WithContext(ctx).Preload("Items").First(&m, "folio = ?", folio).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindAll finds dispatch notes matching the filter
func (r *GormDispatchNoteRepository) FindAll(ctx context.Context, filter shared.Filter) ([]dispatch.DispatchNote, error) {
	var ms []models.DispatchNoteModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Preload("Items").Model(&models.DispatchNoteModel{}),
		filter,
	)

	if err := query.Find(&ms).Error; err != nil {
		return nil, err
	}

	result := make([]dispatch.DispatchNote, 0, len(ms))
	for idx := range ms {
		result = append(result, *ms[idx].ToDomain())
	}
	return result, nil
}

// Count counts dispatch notes matching the filter
func (r *GormDispatchNoteRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.DispatchNoteModel{}),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindActive returns all notes still awaiting reception
func (r *GormDispatchNoteRepository) FindActive(ctx context.Context) ([]dispatch.DispatchNote, error) {
	var ms []models.DispatchNoteModel
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("status = ?", string(dispatch.NoteStatusActive)).
		Order("created_at ASC").
		Find(&ms).Error
	if err != nil {
		return nil, err
	}

	result := make([]dispatch.DispatchNote, 0, len(ms))
	for idx := range ms {
		result = append(result, *ms[idx].ToDomain())
	}
	return result, nil
}

// Save persists the aggregate under an optimistic version check. Lines are
// written once on creation and never change afterwards.
func (r *GormDispatchNoteRepository) Save(ctx context.Context, note *dispatch.DispatchNote) error {
	db := r.db.WithContext(ctx)
	m := models.DispatchNoteModelFromDomain(note)

	result := db.Model(&models.DispatchNoteModel{}).
		Where("id = ? AND version = ?", note.ID, note.Version).
		Updates(map[string]interface{}{
			"status":           m.Status,
			"completed_at":     m.CompletedAt,
			"received_by_name": m.ReceivedByName,
			"version":          note.Version + 1,
			"updated_at":       m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.DispatchNoteModel{}).Where("id = ?", note.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.ErrConcurrencyConflict
		}
		return db.Create(m).Error
	}

	if len(m.Items) > 0 {
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&m.Items).Error; err != nil {
			return err
		}
	}

	note.IncrementVersion()
	return nil
}

// applyFilter applies filter options to the query
func (r *GormDispatchNoteRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
func (r *GormDispatchNoteRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, value := range filter.Filters {
		switch key {
		case "status":
			query = query.Where("status = ?", value)
		case "pharmacy_id":
			query = query.Where("pharmacy_id = ?", value)
		case "dispatcher_id":
			query = query.Where("dispatcher_id = ?", value)
		}
	}

	return query
}

// Ensure GormDispatchNoteRepository implements DispatchNoteRepository
var _ dispatch.DispatchNoteRepository = (*GormDispatchNoteRepository)(nil)
