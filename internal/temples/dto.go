package temples

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/templeconnect/backend/pkg/db/models"
)

// TempleDTO is the transport shape for temple listings.
type TempleDTO struct {
	ID          uuid.UUID       `json:"id"`
	VendorID    uuid.UUID       `json:"vendor_id"`
	Name        string          `json:"name"`
	City        string          `json:"city"`
	Deity       string          `json:"deity,omitempty"`
	Address     string          `json:"address,omitempty"`
	Description string          `json:"description,omitempty"`
	Photos      []string        `json:"photos"`
	VisitPrice  decimal.Decimal `json:"visit_price"`
	OpenHours   string          `json:"open_hours,omitempty"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func FromModel(t *models.Temple) *TempleDTO {
	if t == nil {
		return nil
	}
	return &TempleDTO{
		ID:          t.ID,
		VendorID:    t.VendorID,
		Name:        t.Name,
		City:        t.City,
		Deity:       t.Deity,
		Address:     t.Address,
		Description: t.Description,
		Photos:      append([]string(nil), t.Photos...),
		VisitPrice:  t.VisitPrice,
		OpenHours:   t.OpenHours,
		Active:      t.Active,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
