package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/skol/backend/internal/domain/inventory"
	"github.com/skol/backend/internal/domain/shared"
	"github.com/skol/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInventoryItemRepository implements InventoryItemRepository using GORM.
// Save enforces optimistic locking on the aggregate version so two concurrent
// dispatch generations cannot both consume the same packs.
type GormInventoryItemRepository struct {
	db *gorm.DB
}

// NewGormInventoryItemRepository creates a new GormInventoryItemRepository
func NewGormInventoryItemRepository(db *gorm.DB) *GormInventoryItemRepository {
	return &GormInventoryItemRepository{db: db}
}

// FindByID finds an inventory item by its ID with lots
func (r *GormInventoryItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*inventory.InventoryItem, error) {
	var m models.InventoryItemModel
	if err := r.db.WithContext(ctx).Preload("Lots").First(&m, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindByBarcode finds an inventory item by its barcode
func (r *GormInventoryItemRepository) FindByBarcode(ctx context.Context, barcode string) (*inventory.InventoryItem, error) {
	var m models.InventoryItemModel
	if err := r.db.WithContext(ctx).Preload("Lots").First(&m, "barcode = ?", barcode).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return m.ToDomain(), nil
}

// FindAll finds inventory items matching the filter
func (r *GormInventoryItemRepository) FindAll(ctx context.Context, filter shared.Filter) ([]inventory.InventoryItem, error) {
	var ms []models.InventoryItemModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Preload("Lots").Model(&models.InventoryItemModel{}),
		filter,
	)

	if err := query.Find(&ms).Error; err != nil {
		return nil, err
	}

	result := make([]inventory.InventoryItem, 0, len(ms))
	for idx := range ms {
		result = append(result, *ms[idx].ToDomain())
	}
	return result, nil
}

// Count counts inventory items matching the filter
func (r *GormInventoryItemRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.InventoryItemModel{}),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save persists the aggregate under an optimistic version check and upserts
// its lots
func (r *GormInventoryItemRepository) Save(ctx context.Context, item *inventory.InventoryItem) error {
	db := r.db.WithContext(ctx)
	m := models.InventoryItemModelFromDomain(item)

	result := db.Model(&models.InventoryItemModel{}).
		Where("id = ? AND version = ?", item.ID, item.Version).
		Updates(map[string]interface{}{
			"name":                m.Name,
			"quantity":            m.Quantity,
			"unit":                m.Unit,
			"items_per_base_unit": m.ItemsPerBaseUnit,
			"dose_value":          m.DoseValue,
			"dose_unit":           m.DoseUnit,
			"barcode":             m.Barcode,
			"low_stock_threshold": m.LowStockThreshold,
			"version":             item.Version + 1,
			"updated_at":          m.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&models.InventoryItemModel{}).Where("id = ?", item.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return shared.ErrConcurrencyConflict
		}
		return db.Create(m).Error
	}

	if len(m.Lots) > 0 {
		if err := db.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m.Lots).Error; err != nil {
			return err
		}
	}

	item.IncrementVersion()
	return nil
}

// applyFilter applies filter options to the query
func (r *GormInventoryItemRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
		query = query.Order("name ASC")
	}

	return query
}

// applyFilterWithoutPagination applies filter options without pagination
func (r *GormInventoryItemRepository) applyFilterWithoutPagination(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+filter.Search+"%")
	}

	for key, value := range filter.Filters {
		switch key {
		case "has_stock":
			if value == true {
				query = query.Where("quantity > 0")
			}
		case "below_threshold":
			if value == true {
				query = query.Where("low_stock_threshold > 0 AND quantity < low_stock_threshold")
			}
		case "barcode":
			query = query.Where("barcode = ?", value)
		}
	}

	return query
}

// Ensure GormInventoryItemRepository implements InventoryItemRepository
var _ inventory.InventoryItemRepository = (*GormInventoryItemRepository)(nil)
