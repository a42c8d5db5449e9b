package orders

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/internal/ledger"
	"github.com/templeconnect/backend/internal/products"
	"github.com/templeconnect/backend/pkg/config"
	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/outbox"
)

type stubVendors struct {
	userIDs map[uuid.UUID]uuid.UUID
}

func (s *stubVendors) FindProfile(_ context.Context, vendorID uuid.UUID) (*models.VendorProfile, error) {
	userID, ok := s.userIDs[vendorID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.VendorProfile{ID: vendorID, UserID: userID, Status: enums.VendorStatusApproved}, nil
}

type captureAccruer struct {
	inputs []ledger.AccrueEarningsInput
}

func (c *captureAccruer) AccrueEarningsTx(_ context.Context, _ *gorm.DB, input ledger.AccrueEarningsInput) (*models.LedgerEntry, error) {
	c.inputs = append(c.inputs, input)
	return &models.LedgerEntry{ID: uuid.New(), VendorID: input.VendorID, Amount: input.Amount}, nil
}

type captureOutbox struct {
	events []outbox.DomainEvent
}

func (c *captureOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	c.events = append(c.events, event)
	return nil
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.Transaction(fn)
}

func newOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	stmts := []string{
		`CREATE TABLE products (
			id TEXT PRIMARY KEY,
			vendor_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			price NUMERIC NOT NULL,
			stock INTEGER NOT NULL DEFAULT 0,
			tags TEXT,
			photos TEXT,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE orders (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			vendor_id TEXT NOT NULL,
			product_id TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			unit_price NUMERIC NOT NULL,
			total NUMERIC NOT NULL,
			commission NUMERIC NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT 'placed',
			delivered_at DATETIME,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	}
	for _, stmt := range stmts {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}

type ordersFixture struct {
	svc       Service
	conn      *gorm.DB
	products  *products.Repository
	accruer   *captureAccruer
	outbox    *captureOutbox
	vendorID  uuid.UUID
	buyerID   uuid.UUID
	productID uuid.UUID
}

func newOrdersFixture(t *testing.T, stock int) *ordersFixture {
	t.Helper()
	conn := newOrdersTestDB(t)
	vendorID := uuid.New()
	productsRepo := products.NewRepository(conn)
	accruer := &captureAccruer{}
	ob := &captureOutbox{}
	vendors := &stubVendors{userIDs: map[uuid.UUID]uuid.UUID{vendorID: uuid.New()}}

	svc, err := NewService(NewRepository(conn), productsRepo, vendors, accruer, gormTxRunner{db: conn}, ob, config.LedgerConfig{
		MinWithdrawalAmount: "500.00",
		CommissionRate:      "0.10",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	productID := uuid.New()
	product := models.Product{
		ID:       productID,
		VendorID: vendorID,
		Title:    "Brass Lamp",
		Price:    decimal.RequireFromString("120.00"),
		Stock:    stock,
		Active:   true,
	}
	if err := conn.Create(&product).Error; err != nil {
		t.Fatalf("seed product: %v", err)
	}

	return &ordersFixture{
		svc:       svc,
		conn:      conn,
		products:  productsRepo,
		accruer:   accruer,
		outbox:    ob,
		vendorID:  vendorID,
		buyerID:   uuid.New(),
		productID: productID,
	}
}

func (fx *ordersFixture) place(t *testing.T, qty int) *OrderDTO {
	t.Helper()
	order, err := fx.svc.Place(context.Background(), PlaceInput{
		UserID:    fx.buyerID,
		ProductID: fx.productID,
		Quantity:  qty,
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	return order
}

func (fx *ordersFixture) stock(t *testing.T) int {
	t.Helper()
	product, err := fx.products.FindByID(context.Background(), fx.productID)
	if err != nil {
		t.Fatalf("load product: %v", err)
	}
	return product.Stock
}

func TestPlaceOrder(t *testing.T) {
	t.Parallel()

	fx := newOrdersFixture(t, 5)
	order := fx.place(t, 2)

	if !order.Total.Equal(decimal.RequireFromString("240.00")) {
		t.Fatalf("unexpected total %s", order.Total)
	}
	if !order.Commission.Equal(decimal.RequireFromString("24.00")) {
		t.Fatalf("unexpected commission %s", order.Commission)
	}
	if fx.stock(t) != 3 {
		t.Fatalf("expected stock 3, got %d", fx.stock(t))
	}
	if len(fx.outbox.events) != 1 || fx.outbox.events[0].EventType != enums.EventOrderPlaced {
		t.Fatalf("expected order_placed event, got %+v", fx.outbox.events)
	}
}

func TestPlaceOrderInsufficientStock(t *testing.T) {
	t.Parallel()

	fx := newOrdersFixture(t, 1)
	_, err := fx.svc.Place(context.Background(), PlaceInput{
		UserID:    fx.buyerID,
		ProductID: fx.productID,
		Quantity:  2,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if fx.stock(t) != 1 {
		t.Fatalf("failed placement must not consume stock, got %d", fx.stock(t))
	}

	var count int64
	if err := fx.conn.Model(&models.Order{}).Count(&count).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Fatalf("failed placement must not create an order, got %d", count)
	}
}

func TestAdvanceToDeliveredAccruesOnce(t *testing.T) {
	t.Parallel()

	fx := newOrdersFixture(t, 5)
	order := fx.place(t, 2)

	if _, err := fx.svc.Advance(context.Background(), AdvanceInput{
		OrderID: order.ID, VendorID: fx.vendorID, To: enums.OrderStatusShipped, ActorUserID: uuid.New(),
	}); err != nil {
		t.Fatalf("ship: %v", err)
	}
	if len(fx.accruer.inputs) != 0 {
		t.Fatal("shipping must not accrue earnings")
	}

	delivered, err := fx.svc.Advance(context.Background(), AdvanceInput{
		OrderID: order.ID, VendorID: fx.vendorID, To: enums.OrderStatusDelivered, ActorUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.Status != enums.OrderStatusDelivered || delivered.DeliveredAt == nil {
		t.Fatalf("unexpected delivered order: %+v", delivered)
	}
	if len(fx.accruer.inputs) != 1 {
		t.Fatalf("expected one accrual, got %d", len(fx.accruer.inputs))
	}
	accrual := fx.accruer.inputs[0]
	if !accrual.Amount.Equal(decimal.RequireFromString("216.00")) {
		t.Fatalf("expected accrual of total minus commission, got %s", accrual.Amount)
	}
	if accrual.IdempotencyKey != fmt.Sprintf("order-%s-delivered", order.ID) {
		t.Fatalf("unexpected idempotency key %q", accrual.IdempotencyKey)
	}

	// Replayed delivery is a no-op.
	if _, err := fx.svc.Advance(context.Background(), AdvanceInput{
		OrderID: order.ID, VendorID: fx.vendorID, To: enums.OrderStatusDelivered, ActorUserID: uuid.New(),
	}); err != nil {
		t.Fatalf("redeliver: %v", err)
	}
	if len(fx.accruer.inputs) != 1 {
		t.Fatalf("replayed delivery must not accrue again, got %d", len(fx.accruer.inputs))
	}
}

func TestAdvanceSkippingShippedConflicts(t *testing.T) {
	t.Parallel()

	fx := newOrdersFixture(t, 5)
	order := fx.place(t, 1)

	_, err := fx.svc.Advance(context.Background(), AdvanceInput{
		OrderID: order.ID, VendorID: fx.vendorID, To: enums.OrderStatusDelivered, ActorUserID: uuid.New(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for placed->delivered, got %v", err)
	}
}

func TestAdvanceForeignOrderForbidden(t *testing.T) {
	t.Parallel()

	fx := newOrdersFixture(t, 5)
	order := fx.place(t, 1)

	_, err := fx.svc.Advance(context.Background(), AdvanceInput{
		OrderID: order.ID, VendorID: uuid.New(), To: enums.OrderStatusShipped, ActorUserID: uuid.New(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCancelRestoresStock(t *testing.T) {
	t.Parallel()

	fx := newOrdersFixture(t, 5)
	order := fx.place(t, 2)

	cancelled, err := fx.svc.Cancel(context.Background(), CancelInput{
		OrderID:     order.ID,
		ActorUserID: fx.buyerID,
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if fx.stock(t) != 5 {
		t.Fatalf("expected stock restored to 5, got %d", fx.stock(t))
	}
}

func TestCancelAfterShipmentConflicts(t *testing.T) {
	t.Parallel()

	fx := newOrdersFixture(t, 5)
	order := fx.place(t, 1)
	if _, err := fx.svc.Advance(context.Background(), AdvanceInput{
		OrderID: order.ID, VendorID: fx.vendorID, To: enums.OrderStatusShipped, ActorUserID: uuid.New(),
	}); err != nil {
		t.Fatalf("ship: %v", err)
	}

	_, err := fx.svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, ActorUserID: fx.buyerID})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if fx.stock(t) != 4 {
		t.Fatalf("failed cancel must not restore stock, got %d", fx.stock(t))
	}
}

func TestCancelByStrangerForbidden(t *testing.T) {
	t.Parallel()

	fx := newOrdersFixture(t, 5)
	order := fx.place(t, 1)

	_, err := fx.svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, ActorUserID: uuid.New()})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}
