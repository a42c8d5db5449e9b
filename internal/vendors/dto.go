package vendors

import (
	"time"

	"github.com/google/uuid"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
)

// VendorProfileDTO is the transport shape for vendor applications.
type VendorProfileDTO struct {
	ID          uuid.UUID          `json:"id"`
	UserID      uuid.UUID          `json:"user_id"`
	ShopName    string             `json:"shop_name"`
	Description string             `json:"description,omitempty"`
	Status      enums.VendorStatus `json:"status"`
	ReviewNote  string             `json:"review_note,omitempty"`
	ReviewedAt  *time.Time         `json:"reviewed_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

func FromModel(p *models.VendorProfile) *VendorProfileDTO {
	if p == nil {
		return nil
	}
	return &VendorProfileDTO{
		ID:          p.ID,
		UserID:      p.UserID,
		ShopName:    p.ShopName,
		Description: p.Description,
		Status:      p.Status,
		ReviewNote:  p.ReviewNote,
		ReviewedAt:  p.ReviewedAt,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
