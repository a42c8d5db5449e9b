package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/internal/ledger"
	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	"github.com/templeconnect/backend/pkg/pagination"
)

type testLedgerService struct {
	accrueFn            func(ctx context.Context, input ledger.AccrueEarningsInput) (*models.LedgerEntry, error)
	requestWithdrawalFn func(ctx context.Context, input ledger.RequestWithdrawalInput) (*models.WithdrawalRequest, error)
	processWithdrawalFn func(ctx context.Context, input ledger.ProcessWithdrawalInput) (*models.WithdrawalRequest, error)
	adjustBalanceFn     func(ctx context.Context, input ledger.AdjustBalanceInput) (*models.LedgerEntry, error)
	getBalanceFn        func(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error)
	listEntriesFn       func(ctx context.Context, params ledger.ListEntriesParams) ([]models.LedgerEntry, *pagination.Cursor, error)
	listWithdrawalsFn   func(ctx context.Context, params ledger.ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error)
}

func (s *testLedgerService) AccrueEarnings(ctx context.Context, input ledger.AccrueEarningsInput) (*models.LedgerEntry, error) {
	if s.accrueFn != nil {
		return s.accrueFn(ctx, input)
	}
	return &models.LedgerEntry{}, nil
}

func (s *testLedgerService) AccrueEarningsTx(ctx context.Context, tx *gorm.DB, input ledger.AccrueEarningsInput) (*models.LedgerEntry, error) {
	if s.accrueFn != nil {
		return s.accrueFn(ctx, input)
	}
	return &models.LedgerEntry{}, nil
}

func (s *testLedgerService) RequestWithdrawal(ctx context.Context, input ledger.RequestWithdrawalInput) (*models.WithdrawalRequest, error) {
	if s.requestWithdrawalFn != nil {
		return s.requestWithdrawalFn(ctx, input)
	}
	return &models.WithdrawalRequest{}, nil
}

func (s *testLedgerService) ProcessWithdrawal(ctx context.Context, input ledger.ProcessWithdrawalInput) (*models.WithdrawalRequest, error) {
	if s.processWithdrawalFn != nil {
		return s.processWithdrawalFn(ctx, input)
	}
	return &models.WithdrawalRequest{}, nil
}

func (s *testLedgerService) AdjustBalance(ctx context.Context, input ledger.AdjustBalanceInput) (*models.LedgerEntry, error) {
	if s.adjustBalanceFn != nil {
		return s.adjustBalanceFn(ctx, input)
	}
	return &models.LedgerEntry{}, nil
}

func (s *testLedgerService) GetBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error) {
	if s.getBalanceFn != nil {
		return s.getBalanceFn(ctx, vendorID)
	}
	return &models.VendorBalance{}, nil
}

func (s *testLedgerService) ListEntries(ctx context.Context, params ledger.ListEntriesParams) ([]models.LedgerEntry, *pagination.Cursor, error) {
	if s.listEntriesFn != nil {
		return s.listEntriesFn(ctx, params)
	}
	return nil, nil, nil
}

func (s *testLedgerService) ListWithdrawals(ctx context.Context, params ledger.ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	if s.listWithdrawalsFn != nil {
		return s.listWithdrawalsFn(ctx, params)
	}
	return nil, nil, nil
}

func TestVendorBalance(t *testing.T) {
	vendorID := uuid.New()
	svc := &testLedgerService{
		getBalanceFn: func(ctx context.Context, vid uuid.UUID) (*models.VendorBalance, error) {
			if vid != vendorID {
				t.Fatalf("unexpected vendor %s", vid)
			}
			return &models.VendorBalance{VendorID: vid, Available: decimal.RequireFromString("1200.50")}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/balance", nil)
	req = asVendor(req, uuid.New(), vendorID)

	resp := httptest.NewRecorder()
	VendorBalance(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestVendorRequestWithdrawalSuccess(t *testing.T) {
	userID := uuid.New()
	vendorID := uuid.New()
	svc := &testLedgerService{
		requestWithdrawalFn: func(ctx context.Context, input ledger.RequestWithdrawalInput) (*models.WithdrawalRequest, error) {
			if input.VendorID != vendorID {
				t.Fatalf("unexpected vendor %s", input.VendorID)
			}
			if !input.Amount.Equal(decimal.RequireFromString("750.00")) {
				t.Fatalf("unexpected amount %s", input.Amount)
			}
			if input.IdempotencyKey != "wd-2026-09-01" {
				t.Fatalf("unexpected idempotency key %q", input.IdempotencyKey)
			}
			if input.ActorUserID != userID {
				t.Fatalf("unexpected actor %s", input.ActorUserID)
			}
			if input.ActorRole != "vendor" {
				t.Fatalf("unexpected role %q", input.ActorRole)
			}
			return &models.WithdrawalRequest{ID: uuid.New(), Status: enums.WithdrawalStatusPending}, nil
		},
	}

	body := `{"amount":"750.00","payout_details":"UPI dev@upi","idempotency_key":"wd-2026-09-01"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/withdrawals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asVendor(req, userID, vendorID)

	resp := httptest.NewRecorder()
	VendorRequestWithdrawal(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestVendorRequestWithdrawalBadAmount(t *testing.T) {
	body := `{"amount":"lots","idempotency_key":"wd-1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/withdrawals", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asVendor(req, uuid.New(), uuid.New())

	resp := httptest.NewRecorder()
	VendorRequestWithdrawal(&testLedgerService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestVendorListLedgerEntriesTypeFilter(t *testing.T) {
	vendorID := uuid.New()
	svc := &testLedgerService{
		listEntriesFn: func(ctx context.Context, params ledger.ListEntriesParams) ([]models.LedgerEntry, *pagination.Cursor, error) {
			if params.VendorID != vendorID {
				t.Fatalf("unexpected vendor %s", params.VendorID)
			}
			if params.Type == nil || *params.Type != enums.LedgerEntryTypeEarningsAccrued {
				t.Fatalf("unexpected type filter %v", params.Type)
			}
			return nil, nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/ledger?type=earnings_accrued", nil)
	req = asVendor(req, uuid.New(), vendorID)

	resp := httptest.NewRecorder()
	VendorListLedgerEntries(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminProcessWithdrawal(t *testing.T) {
	adminID := uuid.New()
	requestID := uuid.New()
	svc := &testLedgerService{
		processWithdrawalFn: func(ctx context.Context, input ledger.ProcessWithdrawalInput) (*models.WithdrawalRequest, error) {
			if input.RequestID != requestID {
				t.Fatalf("unexpected request %s", input.RequestID)
			}
			if input.Decision != ledger.DecisionApprove {
				t.Fatalf("unexpected decision %s", input.Decision)
			}
			if input.AdminUserID != adminID {
				t.Fatalf("unexpected admin %s", input.AdminUserID)
			}
			return &models.WithdrawalRequest{ID: requestID, Status: enums.WithdrawalStatusCompleted}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/withdrawals/"+requestID.String()+"/process", strings.NewReader(`{"decision":"approve","note":"paid via NEFT"}`))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, adminID, "admin")
	req = addRouteParam(req, "withdrawalId", requestID.String())

	resp := httptest.NewRecorder()
	AdminProcessWithdrawal(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminAdjustBalance(t *testing.T) {
	adminID := uuid.New()
	vendorID := uuid.New()
	svc := &testLedgerService{
		adjustBalanceFn: func(ctx context.Context, input ledger.AdjustBalanceInput) (*models.LedgerEntry, error) {
			if input.VendorID != vendorID {
				t.Fatalf("unexpected vendor %s", input.VendorID)
			}
			if !input.Delta.Equal(decimal.RequireFromString("-100.00")) {
				t.Fatalf("unexpected delta %s", input.Delta)
			}
			if input.Reason != "chargeback on order" {
				t.Fatalf("unexpected reason %q", input.Reason)
			}
			return &models.LedgerEntry{ID: uuid.New()}, nil
		},
	}

	body := `{"delta":"-100.00","reason":"chargeback on order","idempotency_key":"adj-77"}`
	req := httptest.NewRequest(http.MethodPost, "/api/admin/v1/vendors/"+vendorID.String()+"/balance", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, adminID, "admin")
	req = addRouteParam(req, "vendorId", vendorID.String())

	resp := httptest.NewRecorder()
	AdminAdjustBalance(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminListWithdrawalsStatusFilter(t *testing.T) {
	svc := &testLedgerService{
		listWithdrawalsFn: func(ctx context.Context, params ledger.ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
			if params.VendorID != nil {
				t.Fatalf("expected platform-wide scope, got %v", params.VendorID)
			}
			if params.Status == nil || *params.Status != enums.WithdrawalStatusPending {
				t.Fatalf("unexpected status filter %v", params.Status)
			}
			return nil, nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/withdrawals?status=pending", nil)
	req = asUser(req, uuid.New(), "admin")

	resp := httptest.NewRecorder()
	AdminListWithdrawals(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
