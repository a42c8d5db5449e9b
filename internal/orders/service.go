package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/internal/ledger"
	"github.com/templeconnect/backend/pkg/config"
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

type productStock interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	DecrementStockWithTx(tx *gorm.DB, id uuid.UUID, qty int) (bool, error)
	RestoreStockWithTx(tx *gorm.DB, id uuid.UUID, qty int) error
}

type vendorReader interface {
	FindProfile(ctx context.Context, vendorID uuid.UUID) (*models.VendorProfile, error)
}

type earningsAccruer interface {
	AccrueEarningsTx(ctx context.Context, tx *gorm.DB, input ledger.AccrueEarningsInput) (*models.LedgerEntry, error)
}

// Service exposes the order lifecycle: place, advance, cancel, list.
type Service interface {
	Place(ctx context.Context, input PlaceInput) (*OrderDTO, error)
	Advance(ctx context.Context, input AdvanceInput) (*OrderDTO, error)
	Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error)
	Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error)
	List(ctx context.Context, params ListParams) ([]OrderDTO, *pagination.Cursor, error)
}

type service struct {
	repo       *Repository
	products   productStock
	vendors    vendorReader
	earnings   earningsAccruer
	tx         txRunner
	outbox     outboxPublisher
	commission decimal.Decimal
}

// PlaceInput captures a buyer's order for one product line.
type PlaceInput struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

// AdvanceInput moves an order forward through its lifecycle.
type AdvanceInput struct {
	OrderID     uuid.UUID
	VendorID    uuid.UUID
	To          enums.OrderStatus
	ActorUserID uuid.UUID
}

// CancelInput cancels a placed order on behalf of the buyer or the vendor.
type CancelInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	VendorID    *uuid.UUID
}

// NewService builds an order service with the provided dependencies.
func NewService(repo *Repository, products productStock, vendors vendorReader, earnings earningsAccruer, tx txRunner, ob outboxPublisher, cfg config.LedgerConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("product stock required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor reader required")
	}
	if earnings == nil {
		return nil, fmt.Errorf("earnings accruer required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	commission, err := decimal.NewFromString(cfg.CommissionRate)
	if err != nil {
		return nil, fmt.Errorf("parse commission rate: %w", err)
	}
	if commission.Sign() < 0 || commission.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("commission rate must be in [0, 1)")
	}
	return &service{
		repo:       repo,
		products:   products,
		vendors:    vendors,
		earnings:   earnings,
		tx:         tx,
		outbox:     ob,
		commission: commission,
	}, nil
}

func (s *service) Place(ctx context.Context, input PlaceInput) (*OrderDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity required")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least one")
	}

	product, err := s.products.FindByID(ctx, input.ProductID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.Active {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "product is not available")
	}

	profile, err := s.vendors.FindProfile(ctx, product.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}

	total := product.Price.Mul(decimal.NewFromInt(int64(input.Quantity)))
	order := &models.Order{
		ID:         uuid.New(),
		UserID:     input.UserID,
		VendorID:   product.VendorID,
		ProductID:  product.ID,
		Quantity:   input.Quantity,
		UnitPrice:  product.Price,
		Total:      total,
		Commission: total.Mul(s.commission).Round(2),
		Status:     enums.OrderStatusPlaced,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		reserved, txErr := s.products.DecrementStockWithTx(tx, product.ID, input.Quantity)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "reserve stock")
		}
		if !reserved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock")
		}
		if txErr := s.repo.WithTx(tx).Create(ctx, order); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "create order")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPlaced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.UserID, Role: string(enums.MemberRoleCustomer)},
			Data: payloads.OrderPlacedEvent{
				OrderID:      order.ID,
				UserID:       input.UserID,
				VendorID:     order.VendorID,
				VendorUserID: profile.UserID,
				ProductID:    product.ID,
				Total:        order.Total,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) Advance(ctx context.Context, input AdvanceInput) (*OrderDTO, error) {
	if input.To != enums.OrderStatusShipped && input.To != enums.OrderStatusDelivered {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders advance to shipped or delivered")
	}

	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if order.VendorID != input.VendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another vendor")
	}
	if order.Status == input.To {
		return FromModel(order), nil
	}

	from := enums.OrderStatusPlaced
	if input.To == enums.OrderStatusDelivered {
		from = enums.OrderStatusShipped
	}

	profile, err := s.vendors.FindProfile(ctx, order.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		extra := map[string]any{}
		if input.To == enums.OrderStatusDelivered {
			extra["delivered_at"] = now
		}
		transitioned, txErr := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, from, input.To, extra)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "transition order status")
		}
		if !transitioned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("order is not %s", from))
		}

		if input.To == enums.OrderStatusDelivered {
			// Settlement: the vendor earns the order total minus commission,
			// exactly once per order.
			_, txErr = s.earnings.AccrueEarningsTx(ctx, tx, ledger.AccrueEarningsInput{
				VendorID:       order.VendorID,
				Amount:         order.Total.Sub(order.Commission),
				ReferenceID:    &order.ID,
				IdempotencyKey: fmt.Sprintf("order-%s-delivered", order.ID),
				Note:           "order delivered",
				ActorUserID:    input.ActorUserID,
				ActorVendorID:  &order.VendorID,
				ActorRole:      string(enums.MemberRoleVendor),
			})
			if txErr != nil {
				return txErr
			}
		}

		deliveredAt := order.DeliveredAt
		if input.To == enums.OrderStatusDelivered {
			deliveredAt = &now
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, VendorID: &order.VendorID, Role: string(enums.MemberRoleVendor)},
			Data: payloads.OrderStateChangedEvent{
				OrderID:      order.ID,
				UserID:       order.UserID,
				VendorID:     order.VendorID,
				VendorUserID: profile.UserID,
				From:         from,
				To:           input.To,
				DeliveredAt:  deliveredAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = input.To
	if input.To == enums.OrderStatusDelivered {
		order.DeliveredAt = &now
	}
	return FromModel(order), nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}

	isBuyer := order.UserID == input.ActorUserID
	isVendor := input.VendorID != nil && order.VendorID == *input.VendorID
	if !isBuyer && !isVendor {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer or the vendor may cancel")
	}

	profile, err := s.vendors.FindProfile(ctx, order.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		transitioned, txErr := s.repo.WithTx(tx).TransitionStatus(ctx, order.ID, enums.OrderStatusPlaced, enums.OrderStatusCancelled, nil)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "cancel order")
		}
		if !transitioned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only placed orders can be cancelled")
		}
		if txErr := s.products.RestoreStockWithTx(tx, order.ProductID, order.Quantity); txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "restore stock")
		}

		role := enums.MemberRoleCustomer
		if isVendor && !isBuyer {
			role = enums.MemberRoleVendor
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStateChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: input.ActorUserID, VendorID: input.VendorID, Role: string(role)},
			Data: payloads.OrderStateChangedEvent{
				OrderID:      order.ID,
				UserID:       order.UserID,
				VendorID:     order.VendorID,
				VendorUserID: profile.UserID,
				From:         enums.OrderStatusPlaced,
				To:           enums.OrderStatusCancelled,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	order.Status = enums.OrderStatusCancelled
	return FromModel(order), nil
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return FromModel(order), nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]OrderDTO, *pagination.Cursor, error) {
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, *FromModel(&row))
	}
	return out, next, nil
}

func (s *service) loadOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}
