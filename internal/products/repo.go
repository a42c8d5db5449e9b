package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/pagination"
)

// Repository handles product persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to product operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListFilters narrow the public browse query.
type ListFilters struct {
	VendorID *uuid.UUID
	Tag      string
	Query    string
}

// ListParams describe one page of the product listing.
type ListParams struct {
	Filters ListFilters
	Limit   int
	Cursor  *pagination.Cursor
}

// Create persists a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update saves the provided product.
func (r *Repository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// Delete soft-disables a product by marking it inactive. Rows are kept so
// existing orders keep a valid reference.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("active", false).Error
}

// FindByID loads a product by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// DecrementStockWithTx reserves qty units. Returns false when the product is
// inactive or has less stock than requested.
func (r *Repository) DecrementStockWithTx(tx *gorm.DB, id uuid.UUID, qty int) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	result := tx.Model(&models.Product{}).
		Where("id = ? AND active = ? AND stock >= ?", id, true, qty).
		UpdateColumn("stock", gorm.Expr("stock - ?", qty))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RestoreStockWithTx returns qty units after a cancellation.
func (r *Repository) RestoreStockWithTx(tx *gorm.DB, id uuid.UUID, qty int) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return tx.Model(&models.Product{}).
		Where("id = ?", id).
		UpdateColumn("stock", gorm.Expr("stock + ?", qty)).Error
}

// List returns active products for the public browse surface, newest first.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Product, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("active = ?", true)
	if params.Filters.VendorID != nil {
		query = query.Where("vendor_id = ?", *params.Filters.VendorID)
	}
	if params.Filters.Tag != "" {
		query = query.Where("? = ANY(tags)", params.Filters.Tag)
	}
	if params.Filters.Query != "" {
		query = query.Where("title ILIKE ?", "%"+params.Filters.Query+"%")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Product
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

// ListByVendor returns every product owned by the vendor, including inactive
// ones, for the vendor dashboard.
func (r *Repository) ListByVendor(ctx context.Context, vendorID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
