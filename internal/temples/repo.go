package temples

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/pagination"
)

// Repository handles temple persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to temple operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFilters narrow the public browse query.
type ListFilters struct {
	City  string
	Deity string
}

// ListParams describe one page of the public temple listing.
type ListParams struct {
	Filters ListFilters
	Limit   int
	Cursor  *pagination.Cursor
}

// Create persists a new temple row.
func (r *Repository) Create(ctx context.Context, temple *models.Temple) error {
	return r.db.WithContext(ctx).Create(temple).Error
}

// Update saves the provided temple.
func (r *Repository) Update(ctx context.Context, temple *models.Temple) error {
	return r.db.WithContext(ctx).Save(temple).Error
}

// FindByID loads a temple by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Temple, error) {
	var temple models.Temple
	if err := r.db.WithContext(ctx).First(&temple, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &temple, nil
}

// FindByVendorID loads the temple managed by the provided vendor.
func (r *Repository) FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*models.Temple, error) {
	var temple models.Temple
	if err := r.db.WithContext(ctx).First(&temple, "vendor_id = ?", vendorID).Error; err != nil {
		return nil, err
	}
	return &temple, nil
}

// List returns active temples for the public browse surface, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Temple, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.Temple{}).
		Where("active = ?", true)
	if params.Filters.City != "" {
		query = query.Where("city = ?", params.Filters.City)
	}
	if params.Filters.Deity != "" {
		query = query.Where("deity = ?", params.Filters.Deity)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Temple
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	if len(rows) > normalized {
		last := rows[normalized-1]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}
