package vendors

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
)

// Repository handles vendor profile persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds a GORM DB to vendor profile operations.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new vendor application.
func (r *Repository) Create(ctx context.Context, profile *models.VendorProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

// FindProfile loads a vendor profile by its UUID.
func (r *Repository) FindProfile(ctx context.Context, id uuid.UUID) (*models.VendorProfile, error) {
	var profile models.VendorProfile
	if err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByUserID loads the profile owned by the provided user.
func (r *Repository) FindByUserID(ctx context.Context, userID uuid.UUID) (*models.VendorProfile, error) {
	var profile models.VendorProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// ListByStatus returns profiles in the provided status, oldest first so the
// review queue is FIFO.
func (r *Repository) ListByStatus(ctx context.Context, status enums.VendorStatus, limit int) ([]models.VendorProfile, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var profiles []models.VendorProfile
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// TransitionStatusWithTx conditionally moves a profile between statuses.
// Returns false when the profile was no longer in the expected status.
func (r *Repository) TransitionStatusWithTx(tx *gorm.DB, id uuid.UUID, from, to enums.VendorStatus, reviewedBy uuid.UUID, note string) (bool, error) {
	if tx == nil {
		return false, gorm.ErrInvalidTransaction
	}
	result := tx.Model(&models.VendorProfile{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":      to,
			"review_note": note,
			"reviewed_by": reviewedBy,
			"reviewed_at": gorm.Expr("CURRENT_TIMESTAMP"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
