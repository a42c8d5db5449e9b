package bookings

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
)

// BookingDTO is the API-facing shape of a temple visit booking.
type BookingDTO struct {
	ID        uuid.UUID           `json:"id"`
	UserID    uuid.UUID           `json:"user_id"`
	TempleID  uuid.UUID           `json:"temple_id"`
	VisitDate time.Time           `json:"visit_date"`
	Visitors  int                 `json:"visitors"`
	Amount    decimal.Decimal     `json:"amount"`
	Status    enums.BookingStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// FromModel maps a booking row to its DTO.
func FromModel(booking *models.Booking) *BookingDTO {
	return &BookingDTO{
		ID:        booking.ID,
		UserID:    booking.UserID,
		TempleID:  booking.TempleID,
		VisitDate: booking.VisitDate,
		Visitors:  booking.PartySize,
		Amount:    booking.AmountPaid,
		Status:    booking.Status,
		CreatedAt: booking.CreatedAt,
		UpdatedAt: booking.UpdatedAt,
	}
}
