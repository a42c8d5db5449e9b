package ledger

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/config"
	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/logger"
	"github.com/templeconnect/backend/pkg/outbox"
	"github.com/templeconnect/backend/pkg/pagination"
)

type fakeRepo struct {
	balances    map[uuid.UUID]*models.VendorBalance
	entries     []*models.LedgerEntry
	withdrawals map[uuid.UUID]*models.WithdrawalRequest
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		balances:    map[uuid.UUID]*models.VendorBalance{},
		withdrawals: map[uuid.UUID]*models.WithdrawalRequest{},
	}
}

func (f *fakeRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepo) GetBalance(_ context.Context, vendorID uuid.UUID) (*models.VendorBalance, error) {
	balance, ok := f.balances[vendorID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *balance
	return &copied, nil
}

func (f *fakeRepo) GetBalanceForUpdate(_ context.Context, vendorID uuid.UUID) (*models.VendorBalance, error) {
	if balance, ok := f.balances[vendorID]; ok {
		copied := *balance
		return &copied, nil
	}
	balance := &models.VendorBalance{ID: uuid.New(), VendorID: vendorID}
	f.balances[vendorID] = balance
	copied := *balance
	return &copied, nil
}

func (f *fakeRepo) SaveBalance(_ context.Context, balance *models.VendorBalance) error {
	copied := *balance
	f.balances[balance.VendorID] = &copied
	return nil
}

func (f *fakeRepo) CreateEntry(_ context.Context, entry *models.LedgerEntry) error {
	for _, existing := range f.entries {
		if existing.VendorID == entry.VendorID && existing.IdempotencyKey == entry.IdempotencyKey {
			return fmt.Errorf("duplicate key value violates unique constraint %q", "idx_ledger_entries_vendor_key")
		}
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.CreatedAt = time.Now().UTC()
	copied := *entry
	f.entries = append(f.entries, &copied)
	return nil
}

func (f *fakeRepo) FindEntryByKey(_ context.Context, vendorID uuid.UUID, key string) (*models.LedgerEntry, error) {
	for _, entry := range f.entries {
		if entry.VendorID == vendorID && entry.IdempotencyKey == key {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) ListEntries(_ context.Context, params ListEntriesParams) ([]models.LedgerEntry, *pagination.Cursor, error) {
	var out []models.LedgerEntry
	for _, entry := range f.entries {
		if entry.VendorID == params.VendorID {
			out = append(out, *entry)
		}
	}
	return out, nil, nil
}

func (f *fakeRepo) CreateWithdrawal(_ context.Context, req *models.WithdrawalRequest) error {
	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	copied := *req
	f.withdrawals[req.ID] = &copied
	return nil
}

func (f *fakeRepo) FindWithdrawal(_ context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	req, ok := f.withdrawals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *req
	return &copied, nil
}

func (f *fakeRepo) FinalizeWithdrawal(_ context.Context, id uuid.UUID, to enums.WithdrawalStatus, processedBy uuid.UUID, note string, now time.Time) (bool, error) {
	req, ok := f.withdrawals[id]
	if !ok || req.Status != enums.WithdrawalStatusPending {
		return false, nil
	}
	req.Status = to
	req.DecisionNote = note
	req.ProcessedBy = &processedBy
	req.ProcessedAt = &now
	return true, nil
}

func (f *fakeRepo) ListWithdrawals(_ context.Context, params ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	var out []models.WithdrawalRequest
	for _, req := range f.withdrawals {
		if params.VendorID != nil && req.VendorID != *params.VendorID {
			continue
		}
		out = append(out, *req)
	}
	return out, nil, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(_ context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(_ context.Context, _ *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

type fakeVendors struct {
	profiles map[uuid.UUID]*models.VendorProfile
}

func (f *fakeVendors) FindProfile(_ context.Context, vendorID uuid.UUID) (*models.VendorProfile, error) {
	profile, ok := f.profiles[vendorID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return profile, nil
}

type serviceFixture struct {
	svc      Service
	repo     *fakeRepo
	outbox   *fakeOutbox
	vendorID uuid.UUID
}

func newServiceFixture(t *testing.T, vendorStatus enums.VendorStatus) *serviceFixture {
	t.Helper()
	repo := newFakeRepo()
	ob := &fakeOutbox{}
	vendorID := uuid.New()
	vendors := &fakeVendors{profiles: map[uuid.UUID]*models.VendorProfile{
		vendorID: {ID: vendorID, UserID: uuid.New(), ShopName: "Lotus Crafts", Status: vendorStatus},
	}}
	logg := logger.New(logger.Options{ServiceName: "ledger-test", Output: io.Discard})
	svc, err := NewService(repo, fakeTxRunner{}, ob, vendors, config.LedgerConfig{MinWithdrawalAmount: "500.00"}, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &serviceFixture{svc: svc, repo: repo, outbox: ob, vendorID: vendorID}
}

func (fx *serviceFixture) mustBalance(t *testing.T) *models.VendorBalance {
	t.Helper()
	balance, ok := fx.repo.balances[fx.vendorID]
	if !ok {
		t.Fatal("expected balance row to exist")
	}
	if !balance.ConsistencyOK() {
		t.Fatalf("sum invariant broken: %+v", balance)
	}
	return balance
}

func (fx *serviceFixture) seedBalance(total, available, pending, withdrawn string) {
	fx.repo.balances[fx.vendorID] = &models.VendorBalance{
		ID:        uuid.New(),
		VendorID:  fx.vendorID,
		Total:     decimal.RequireFromString(total),
		Available: decimal.RequireFromString(available),
		Pending:   decimal.RequireFromString(pending),
		Withdrawn: decimal.RequireFromString(withdrawn),
	}
}

func TestAccrueEarnings(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)
	orderID := uuid.New()

	entry, err := fx.svc.AccrueEarnings(context.Background(), AccrueEarningsInput{
		VendorID:       fx.vendorID,
		Amount:         decimal.RequireFromString("150.00"),
		ReferenceID:    &orderID,
		IdempotencyKey: "order-" + orderID.String() + "-delivered",
		ActorUserID:    uuid.New(),
		ActorRole:      string(enums.MemberRoleAdmin),
	})
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if entry.Type != enums.LedgerEntryTypeEarningsAccrued {
		t.Fatalf("unexpected entry type %s", entry.Type)
	}
	if !entry.Amount.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("unexpected entry amount %s", entry.Amount)
	}

	balance := fx.mustBalance(t)
	if !balance.Total.Equal(decimal.RequireFromString("150.00")) || !balance.Available.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("unexpected balance: %+v", balance)
	}
	if !entry.TotalAfter.Equal(balance.Total) || !entry.AvailableAfter.Equal(balance.Available) {
		t.Fatalf("entry snapshot does not match balance: %+v", entry)
	}
	if len(fx.outbox.events) != 1 || fx.outbox.events[0].EventType != enums.EventEarningsAccrued {
		t.Fatalf("expected one earnings_accrued event, got %+v", fx.outbox.events)
	}
}

func TestAccrueEarningsDuplicateKeyIsNoOp(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)
	input := AccrueEarningsInput{
		VendorID:       fx.vendorID,
		Amount:         decimal.RequireFromString("80.00"),
		IdempotencyKey: "order-abc-delivered",
	}

	first, err := fx.svc.AccrueEarnings(context.Background(), input)
	if err != nil {
		t.Fatalf("first accrue: %v", err)
	}
	second, err := fx.svc.AccrueEarnings(context.Background(), input)
	if err != nil {
		t.Fatalf("second accrue: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected replay to return the original entry, got %s and %s", first.ID, second.ID)
	}

	balance := fx.mustBalance(t)
	if !balance.Total.Equal(decimal.RequireFromString("80.00")) {
		t.Fatalf("replay must not credit twice: %+v", balance)
	}
	if len(fx.outbox.events) != 1 {
		t.Fatalf("expected a single event, got %d", len(fx.outbox.events))
	}
}

func TestAccrueEarningsRejectsNonPositiveAmount(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)
	_, err := fx.svc.AccrueEarnings(context.Background(), AccrueEarningsInput{
		VendorID:       fx.vendorID,
		Amount:         decimal.Zero,
		IdempotencyKey: "order-x",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRequestWithdrawal(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)
	fx.seedBalance("1000.00", "1000.00", "0", "0")

	request, err := fx.svc.RequestWithdrawal(context.Background(), RequestWithdrawalInput{
		VendorID:      fx.vendorID,
		Amount:        decimal.RequireFromString("600.00"),
		PayoutDetails: "upi:lotus@bank",
		ActorUserID:   uuid.New(),
		ActorRole:     string(enums.MemberRoleVendor),
	})
	if err != nil {
		t.Fatalf("request withdrawal: %v", err)
	}
	if request.Status != enums.WithdrawalStatusPending {
		t.Fatalf("expected pending status, got %s", request.Status)
	}

	balance := fx.mustBalance(t)
	if !balance.Available.Equal(decimal.RequireFromString("400.00")) || !balance.Pending.Equal(decimal.RequireFromString("600.00")) {
		t.Fatalf("unexpected balance after request: %+v", balance)
	}
	if len(fx.repo.entries) != 1 || !fx.repo.entries[0].Amount.Equal(decimal.RequireFromString("-600.00")) {
		t.Fatalf("expected one negative ledger entry, got %+v", fx.repo.entries)
	}
	if len(fx.outbox.events) != 1 || fx.outbox.events[0].EventType != enums.EventWithdrawalRequested {
		t.Fatalf("expected withdrawal_requested event, got %+v", fx.outbox.events)
	}
}

func TestRequestWithdrawalBelowMinimum(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)
	fx.seedBalance("1000.00", "1000.00", "0", "0")

	_, err := fx.svc.RequestWithdrawal(context.Background(), RequestWithdrawalInput{
		VendorID: fx.vendorID,
		Amount:   decimal.RequireFromString("100.00"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	balance := fx.mustBalance(t)
	if !balance.Available.Equal(decimal.RequireFromString("1000.00")) || len(fx.repo.entries) != 0 {
		t.Fatalf("failed request must leave state untouched: %+v", balance)
	}
}

func TestRequestWithdrawalInsufficientBalance(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)
	fx.seedBalance("500.00", "500.00", "0", "0")

	_, err := fx.svc.RequestWithdrawal(context.Background(), RequestWithdrawalInput{
		VendorID: fx.vendorID,
		Amount:   decimal.RequireFromString("600.00"),
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if typed.Message() != "insufficient available balance" {
		t.Fatalf("unexpected message %q", typed.Message())
	}

	balance := fx.mustBalance(t)
	if !balance.Available.Equal(decimal.RequireFromString("500.00")) || !balance.Pending.IsZero() {
		t.Fatalf("failed request must leave balances unchanged: %+v", balance)
	}
	if len(fx.repo.withdrawals) != 0 || len(fx.outbox.events) != 0 {
		t.Fatal("failed request must not create rows or events")
	}
}

func TestRequestWithdrawalRequiresApprovedVendor(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusPending)
	fx.seedBalance("1000.00", "1000.00", "0", "0")

	_, err := fx.svc.RequestWithdrawal(context.Background(), RequestWithdrawalInput{
		VendorID: fx.vendorID,
		Amount:   decimal.RequireFromString("600.00"),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestProcessWithdrawalApprove(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)
	fx.seedBalance("1000.00", "400.00", "600.00", "0")
	requestID := uuid.New()
	fx.repo.withdrawals[requestID] = &models.WithdrawalRequest{
		ID:       requestID,
		VendorID: fx.vendorID,
		Amount:   decimal.RequireFromString("600.00"),
		Status:   enums.WithdrawalStatusPending,
	}

	processed, err := fx.svc.ProcessWithdrawal(context.Background(), ProcessWithdrawalInput{
		RequestID:   requestID,
		Decision:    DecisionApprove,
		Note:        "paid via bank transfer",
		AdminUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("process withdrawal: %v", err)
	}
	if processed.Status != enums.WithdrawalStatusCompleted {
		t.Fatalf("expected completed, got %s", processed.Status)
	}

	balance := fx.mustBalance(t)
	if !balance.Pending.IsZero() || !balance.Withdrawn.Equal(decimal.RequireFromString("600.00")) {
		t.Fatalf("unexpected balance after approval: %+v", balance)
	}
	if !balance.Available.Equal(decimal.RequireFromString("400.00")) {
		t.Fatalf("available must not change on approval: %+v", balance)
	}
	if len(fx.repo.entries) != 1 || fx.repo.entries[0].Type != enums.LedgerEntryTypeWithdrawalApproved {
		t.Fatalf("expected withdrawal_approved entry, got %+v", fx.repo.entries)
	}
}

func TestProcessWithdrawalReject(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)
	fx.seedBalance("1000.00", "400.00", "600.00", "0")
	requestID := uuid.New()
	fx.repo.withdrawals[requestID] = &models.WithdrawalRequest{
		ID:       requestID,
		VendorID: fx.vendorID,
		Amount:   decimal.RequireFromString("600.00"),
		Status:   enums.WithdrawalStatusPending,
	}

	processed, err := fx.svc.ProcessWithdrawal(context.Background(), ProcessWithdrawalInput{
		RequestID:   requestID,
		Decision:    DecisionReject,
		Note:        "payout details invalid",
		AdminUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("process withdrawal: %v", err)
	}
	if processed.Status != enums.WithdrawalStatusRejected {
		t.Fatalf("expected rejected, got %s", processed.Status)
	}

	balance := fx.mustBalance(t)
	if !balance.Available.Equal(decimal.RequireFromString("1000.00")) || !balance.Pending.IsZero() || !balance.Withdrawn.IsZero() {
		t.Fatalf("rejection must return funds to available: %+v", balance)
	}
	if len(fx.repo.entries) != 1 || !fx.repo.entries[0].Amount.Equal(decimal.RequireFromString("600.00")) {
		t.Fatalf("expected positive rejection entry, got %+v", fx.repo.entries)
	}
}

func TestProcessWithdrawalTwiceIsSingleTransition(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)
	fx.seedBalance("1000.00", "400.00", "600.00", "0")
	requestID := uuid.New()
	fx.repo.withdrawals[requestID] = &models.WithdrawalRequest{
		ID:       requestID,
		VendorID: fx.vendorID,
		Amount:   decimal.RequireFromString("600.00"),
		Status:   enums.WithdrawalStatusPending,
	}

	input := ProcessWithdrawalInput{RequestID: requestID, Decision: DecisionApprove, AdminUserID: uuid.New()}
	if _, err := fx.svc.ProcessWithdrawal(context.Background(), input); err != nil {
		t.Fatalf("first process: %v", err)
	}
	_, err := fx.svc.ProcessWithdrawal(context.Background(), input)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict on double process, got %v", err)
	}
	if typed.Message() != "withdrawal is not pending" {
		t.Fatalf("unexpected message %q", typed.Message())
	}

	balance := fx.mustBalance(t)
	if !balance.Withdrawn.Equal(decimal.RequireFromString("600.00")) || len(fx.repo.entries) != 1 {
		t.Fatalf("double process must apply exactly once: %+v", balance)
	}
}

func TestAdjustBalance(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)
	fx.seedBalance("200.00", "200.00", "0", "0")

	entry, err := fx.svc.AdjustBalance(context.Background(), AdjustBalanceInput{
		VendorID:    fx.vendorID,
		Delta:       decimal.RequireFromString("-50.00"),
		Reason:      "refund clawback",
		AdminUserID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if entry.Type != enums.LedgerEntryTypeAdminAdjustment {
		t.Fatalf("unexpected entry type %s", entry.Type)
	}

	balance := fx.mustBalance(t)
	if !balance.Total.Equal(decimal.RequireFromString("150.00")) || !balance.Available.Equal(decimal.RequireFromString("150.00")) {
		t.Fatalf("unexpected balance after adjustment: %+v", balance)
	}
}

func TestAdjustBalanceCannotGoNegative(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)
	fx.seedBalance("200.00", "200.00", "0", "0")

	_, err := fx.svc.AdjustBalance(context.Background(), AdjustBalanceInput{
		VendorID:    fx.vendorID,
		Delta:       decimal.RequireFromString("-250.00"),
		Reason:      "bad correction",
		AdminUserID: uuid.New(),
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	balance := fx.mustBalance(t)
	if !balance.Available.Equal(decimal.RequireFromString("200.00")) || len(fx.repo.entries) != 0 {
		t.Fatalf("failed adjustment must leave state untouched: %+v", balance)
	}
}

func TestGetBalanceLazilyCreates(t *testing.T) {
	t.Parallel()

	fx := newServiceFixture(t, enums.VendorStatusApproved)

	balance, err := fx.svc.GetBalance(context.Background(), fx.vendorID)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if !balance.Total.IsZero() || !balance.Available.IsZero() {
		t.Fatalf("expected zero balance, got %+v", balance)
	}
	if _, ok := fx.repo.balances[fx.vendorID]; !ok {
		t.Fatal("expected balance row to be created")
	}
}
