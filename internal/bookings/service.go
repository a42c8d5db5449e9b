package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/outbox"
	"github.com/templeconnect/backend/pkg/outbox/payloads"
	"github.com/templeconnect/backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type templeReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Temple, error)
	FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*models.Temple, error)
}

// Service exposes the visit booking lifecycle.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*BookingDTO, error)
	Cancel(ctx context.Context, bookingID, userID uuid.UUID) (*BookingDTO, error)
	Get(ctx context.Context, bookingID, userID uuid.UUID) (*BookingDTO, error)
	ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]BookingDTO, *pagination.Cursor, error)
	ListForVendor(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor) ([]BookingDTO, *pagination.Cursor, error)
}

type service struct {
	repo    *Repository
	temples templeReader
	tx      txRunner
	outbox  outboxPublisher
	now     func() time.Time
}

// CreateInput captures a customer's visit request.
type CreateInput struct {
	UserID    uuid.UUID
	TempleID  uuid.UUID
	VisitDate time.Time
	Visitors  int
}

// NewService builds a booking service with the provided dependencies.
func NewService(repo *Repository, temples templeReader, tx txRunner, ob outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bookings repository required")
	}
	if temples == nil {
		return nil, fmt.Errorf("temple reader required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:    repo,
		temples: temples,
		tx:      tx,
		outbox:  ob,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*BookingDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	if input.TempleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "temple id is required")
	}
	if input.Visitors < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one visitor is required")
	}
	if !input.VisitDate.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "visit date must be in the future")
	}

	temple, err := s.temples.FindByID(ctx, input.TempleID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "temple not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load temple")
	}
	if !temple.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "temple is not open for bookings")
	}

	booking := &models.Booking{
		ID:         uuid.New(),
		UserID:     input.UserID,
		TempleID:   temple.ID,
		VisitDate:  input.VisitDate.UTC(),
		PartySize:  input.Visitors,
		AmountPaid: temple.VisitPrice.Mul(decimal.NewFromInt(int64(input.Visitors))),
		Status:     enums.BookingStatusConfirmed,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if txErr := s.repo.WithTx(tx).Create(ctx, booking); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "create booking")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCreated,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(enums.MemberRoleCustomer)},
			Data: payloads.BookingCreatedEvent{
				BookingID: booking.ID,
				UserID:    booking.UserID,
				TempleID:  booking.TempleID,
				VisitDate: booking.VisitDate,
				Amount:    booking.AmountPaid,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(booking), nil
}

func (s *service) Cancel(ctx context.Context, bookingID, userID uuid.UUID) (*BookingDTO, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booking belongs to another user")
	}
	if !booking.VisitDate.After(s.now()) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "visit date has already passed")
	}

	now := s.now()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cancelled, txErr := s.repo.WithTx(tx).TransitionStatus(ctx, booking.ID, enums.BookingStatusConfirmed, enums.BookingStatusCancelled)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "cancel booking")
		}
		if !cancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "booking is not confirmed")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBookingCancelled,
			AggregateType: enums.AggregateBooking,
			AggregateID:   booking.ID,
			Actor:         &outbox.ActorRef{UserID: userID, Role: string(enums.MemberRoleCustomer)},
			Data: payloads.BookingCancelledEvent{
				BookingID:   booking.ID,
				UserID:      booking.UserID,
				TempleID:    booking.TempleID,
				CancelledAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	booking.Status = enums.BookingStatusCancelled
	return FromModel(booking), nil
}

func (s *service) Get(ctx context.Context, bookingID, userID uuid.UUID) (*BookingDTO, error) {
	booking, err := s.loadBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "booking belongs to another user")
	}
	return FromModel(booking), nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]BookingDTO, *pagination.Cursor, error) {
	if userID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	return s.list(ctx, ListParams{UserID: &userID, Limit: limit, Cursor: cursor})
}

func (s *service) ListForVendor(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor) ([]BookingDTO, *pagination.Cursor, error) {
	temple, err := s.temples.FindByVendorID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor has no temple")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load temple")
	}
	return s.list(ctx, ListParams{TempleID: &temple.ID, Limit: limit, Cursor: cursor})
}

func (s *service) list(ctx context.Context, params ListParams) ([]BookingDTO, *pagination.Cursor, error) {
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bookings")
	}
	out := make([]BookingDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, *FromModel(&row))
	}
	return out, next, nil
}

func (s *service) loadBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "booking id is required")
	}
	booking, err := s.repo.FindByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "booking not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load booking")
	}
	return booking, nil
}
