package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
)

// OrderDTO is the transport shape for orders.
type OrderDTO struct {
	ID          uuid.UUID         `json:"id"`
	UserID      uuid.UUID         `json:"user_id"`
	VendorID    uuid.UUID         `json:"vendor_id"`
	ProductID   uuid.UUID         `json:"product_id"`
	Quantity    int               `json:"quantity"`
	UnitPrice   decimal.Decimal   `json:"unit_price"`
	Total       decimal.Decimal   `json:"total"`
	Commission  decimal.Decimal   `json:"commission"`
	Status      enums.OrderStatus `json:"status"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	return &OrderDTO{
		ID:          o.ID,
		UserID:      o.UserID,
		VendorID:    o.VendorID,
		ProductID:   o.ProductID,
		Quantity:    o.Quantity,
		UnitPrice:   o.UnitPrice,
		Total:       o.Total,
		Commission:  o.Commission,
		Status:      o.Status,
		DeliveredAt: o.DeliveredAt,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}
