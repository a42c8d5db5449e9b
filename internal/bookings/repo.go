package bookings

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	"github.com/templeconnect/backend/pkg/pagination"
)

// Repository handles booking persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to booking operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx rebinds the repository to the supplied transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// ListParams narrow one page of the booking listing.
type ListParams struct {
	UserID   *uuid.UUID
	TempleID *uuid.UUID
	Status   *enums.BookingStatus
	Limit    int
	Cursor   *pagination.Cursor
}

// Create persists a new booking row.
func (r *Repository) Create(ctx context.Context, booking *models.Booking) error {
	return r.db.WithContext(ctx).Create(booking).Error
}

// FindByID loads a booking by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	var booking models.Booking
	if err := r.db.WithContext(ctx).First(&booking, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// TransitionStatus flips the booking between lifecycle states. It only
// succeeds when the stored status still matches from, so concurrent
// cancellations resolve to a single winner.
func (r *Repository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to enums.BookingStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Booking{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// List returns bookings newest first, scoped by the provided filters.
func (r *Repository) List(ctx context.Context, params ListParams) ([]models.Booking, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Booking{})
	if params.UserID != nil {
		query = query.Where("user_id = ?", *params.UserID)
	}
	if params.TempleID != nil {
		query = query.Where("temple_id = ?", *params.TempleID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Booking
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
