package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/api/controllers"
	"github.com/templeconnect/backend/internal/auth"
	"github.com/templeconnect/backend/internal/bookings"
	"github.com/templeconnect/backend/internal/chat"
	"github.com/templeconnect/backend/internal/ledger"
	"github.com/templeconnect/backend/internal/notifications"
	"github.com/templeconnect/backend/internal/orders"
	"github.com/templeconnect/backend/internal/products"
	"github.com/templeconnect/backend/internal/temples"
	"github.com/templeconnect/backend/internal/users"
	"github.com/templeconnect/backend/internal/vendors"
	"github.com/templeconnect/backend/internal/ws"
	pkgauth "github.com/templeconnect/backend/pkg/auth"
	"github.com/templeconnect/backend/pkg/config"
	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	"github.com/templeconnect/backend/pkg/logger"
	"github.com/templeconnect/backend/pkg/pagination"
)

type stubSessionChecker struct{}

func (stubSessionChecker) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type stubAuthService struct{}

func (stubAuthService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{}, nil
}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{}, nil
}

func (stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.TokenPair, error) {
	return &auth.TokenPair{}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error { return nil }

type stubVendorsService struct{}

func (stubVendorsService) Apply(ctx context.Context, input vendors.ApplyInput) (*vendors.VendorProfileDTO, error) {
	return &vendors.VendorProfileDTO{}, nil
}

func (stubVendorsService) Review(ctx context.Context, input vendors.ReviewInput) (*vendors.VendorProfileDTO, error) {
	return &vendors.VendorProfileDTO{}, nil
}

func (stubVendorsService) Get(ctx context.Context, profileID uuid.UUID) (*vendors.VendorProfileDTO, error) {
	return &vendors.VendorProfileDTO{}, nil
}

func (stubVendorsService) GetByUserID(ctx context.Context, userID uuid.UUID) (*vendors.VendorProfileDTO, error) {
	return &vendors.VendorProfileDTO{}, nil
}

func (stubVendorsService) ListPending(ctx context.Context, limit int) ([]vendors.VendorProfileDTO, error) {
	return nil, nil
}

type stubTemplesService struct{}

func (stubTemplesService) Create(ctx context.Context, vendorID uuid.UUID, input temples.UpsertTempleInput) (*temples.TempleDTO, error) {
	return &temples.TempleDTO{}, nil
}

func (stubTemplesService) Update(ctx context.Context, vendorID, templeID uuid.UUID, input temples.UpsertTempleInput) (*temples.TempleDTO, error) {
	return &temples.TempleDTO{}, nil
}

func (stubTemplesService) Get(ctx context.Context, templeID uuid.UUID) (*temples.TempleDTO, error) {
	return &temples.TempleDTO{}, nil
}

func (stubTemplesService) GetOwn(ctx context.Context, vendorID uuid.UUID) (*temples.TempleDTO, error) {
	return &temples.TempleDTO{}, nil
}

func (stubTemplesService) List(ctx context.Context, params temples.ListParams) ([]temples.TempleDTO, *pagination.Cursor, error) {
	return nil, nil, nil
}

type stubProductsService struct{}

func (stubProductsService) Create(ctx context.Context, vendorID uuid.UUID, input products.UpsertProductInput) (*products.ProductDTO, error) {
	return &products.ProductDTO{}, nil
}

func (stubProductsService) Update(ctx context.Context, vendorID, productID uuid.UUID, input products.UpsertProductInput) (*products.ProductDTO, error) {
	return &products.ProductDTO{}, nil
}

func (stubProductsService) Delete(ctx context.Context, vendorID, productID uuid.UUID) error {
	return nil
}

func (stubProductsService) Get(ctx context.Context, productID uuid.UUID) (*products.ProductDTO, error) {
	return &products.ProductDTO{}, nil
}

func (stubProductsService) List(ctx context.Context, params products.ListParams) ([]products.ProductDTO, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (stubProductsService) ListOwn(ctx context.Context, vendorID uuid.UUID) ([]products.ProductDTO, error) {
	return nil, nil
}

type stubBookingsService struct{}

func (stubBookingsService) Create(ctx context.Context, input bookings.CreateInput) (*bookings.BookingDTO, error) {
	return &bookings.BookingDTO{}, nil
}

func (stubBookingsService) Cancel(ctx context.Context, bookingID, userID uuid.UUID) (*bookings.BookingDTO, error) {
	return &bookings.BookingDTO{}, nil
}

func (stubBookingsService) Get(ctx context.Context, bookingID, userID uuid.UUID) (*bookings.BookingDTO, error) {
	return &bookings.BookingDTO{}, nil
}

func (stubBookingsService) ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]bookings.BookingDTO, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (stubBookingsService) ListForVendor(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor) ([]bookings.BookingDTO, *pagination.Cursor, error) {
	return nil, nil, nil
}

type stubOrdersService struct{}

func (stubOrdersService) Place(ctx context.Context, input orders.PlaceInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) Advance(ctx context.Context, input orders.AdvanceInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) Cancel(ctx context.Context, input orders.CancelInput) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) Get(ctx context.Context, orderID uuid.UUID) (*orders.OrderDTO, error) {
	return &orders.OrderDTO{}, nil
}

func (stubOrdersService) List(ctx context.Context, params orders.ListParams) ([]orders.OrderDTO, *pagination.Cursor, error) {
	return nil, nil, nil
}

type stubLedgerService struct{}

func (stubLedgerService) AccrueEarnings(ctx context.Context, input ledger.AccrueEarningsInput) (*models.LedgerEntry, error) {
	return &models.LedgerEntry{}, nil
}

func (stubLedgerService) AccrueEarningsTx(ctx context.Context, tx *gorm.DB, input ledger.AccrueEarningsInput) (*models.LedgerEntry, error) {
	return &models.LedgerEntry{}, nil
}

func (stubLedgerService) RequestWithdrawal(ctx context.Context, input ledger.RequestWithdrawalInput) (*models.WithdrawalRequest, error) {
	return &models.WithdrawalRequest{}, nil
}

func (stubLedgerService) ProcessWithdrawal(ctx context.Context, input ledger.ProcessWithdrawalInput) (*models.WithdrawalRequest, error) {
	return &models.WithdrawalRequest{}, nil
}

func (stubLedgerService) AdjustBalance(ctx context.Context, input ledger.AdjustBalanceInput) (*models.LedgerEntry, error) {
	return &models.LedgerEntry{}, nil
}

func (stubLedgerService) GetBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error) {
	return &models.VendorBalance{VendorID: vendorID}, nil
}

func (stubLedgerService) ListEntries(ctx context.Context, params ledger.ListEntriesParams) ([]models.LedgerEntry, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (stubLedgerService) ListWithdrawals(ctx context.Context, params ledger.ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	return nil, nil, nil
}

type stubChatService struct{}

func (stubChatService) CreateConversation(ctx context.Context, userID uuid.UUID, subject string) (*chat.ConversationDTO, error) {
	return &chat.ConversationDTO{}, nil
}

func (stubChatService) SendMessage(ctx context.Context, input chat.SendInput) (*chat.MessageDTO, error) {
	return &chat.MessageDTO{}, nil
}

func (stubChatService) MarkRead(ctx context.Context, conversationID uuid.UUID, actor chat.Actor) (int64, error) {
	return 0, nil
}

func (stubChatService) CloseConversation(ctx context.Context, conversationID, adminID uuid.UUID) (*chat.ConversationDTO, error) {
	return &chat.ConversationDTO{}, nil
}

func (stubChatService) ListConversations(ctx context.Context, params chat.ListConversationsParams) ([]chat.ConversationDTO, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (stubChatService) ListMessages(ctx context.Context, conversationID uuid.UUID, actor chat.Actor, limit int, cursor *pagination.Cursor) ([]chat.MessageDTO, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (stubChatService) UnreadCount(ctx context.Context, actor chat.Actor) (int64, error) {
	return 0, nil
}

func (stubChatService) AuthorizeParticipant(ctx context.Context, conversationID uuid.UUID, actor chat.Actor) error {
	return nil
}

type stubNotificationsService struct{}

func (stubNotificationsService) List(ctx context.Context, params notifications.ListParams) (*notifications.ListResult, error) {
	return &notifications.ListResult{}, nil
}

func (stubNotificationsService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return nil
}

func (stubNotificationsService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func (stubNotificationsService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 0, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:                 "test-secret",
			Issuer:                 "templeconnect-test",
			ExpirationMinutes:      60,
			RefreshTokenTTLMinutes: 120,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()

	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	return NewRouter(cfg, logg, nil, map[string]controllers.Pinger{}, Services{
		Sessions:      stubSessionChecker{},
		Auth:          stubAuthService{},
		Vendors:       stubVendorsService{},
		Temples:       stubTemplesService{},
		Products:      stubProductsService{},
		Bookings:      stubBookingsService{},
		Orders:        stubOrdersService{},
		Ledger:        stubLedgerService{},
		Chat:          stubChatService{},
		ChatHub:       ws.NewHub(logg),
		Notifications: stubNotificationsService{},
	})
}

func buildToken(t *testing.T, cfg *config.Config, role enums.MemberRole, vendorID *uuid.UUID) string {
	t.Helper()

	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID:   uuid.New(),
		Role:     role,
		VendorID: vendorID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func doRequest(t *testing.T, handler http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRouterHealthLive(t *testing.T) {
	handler := newTestRouter(t, testConfig())

	rec := doRequest(t, handler, http.MethodGet, "/health/live", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRouterPublicBrowseNeedsNoToken(t *testing.T) {
	handler := newTestRouter(t, testConfig())

	for _, path := range []string{"/api/v1/temples", "/api/v1/products"} {
		rec := doRequest(t, handler, http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestRouterAuthedRoutesRejectMissingToken(t *testing.T) {
	handler := newTestRouter(t, testConfig())

	paths := []string{
		"/api/v1/bookings",
		"/api/v1/orders",
		"/api/v1/chat/unread-count",
		"/api/v1/notifications",
		"/api/v1/vendor/balance",
		"/api/admin/v1/vendors/pending",
	}
	for _, path := range paths {
		rec := doRequest(t, handler, http.MethodGet, path, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s: expected 401, got %d", path, rec.Code)
		}
	}
}

func TestRouterCustomerCanReachOwnRoutes(t *testing.T) {
	cfg := testConfig()
	handler := newTestRouter(t, cfg)
	token := buildToken(t, cfg, enums.MemberRoleCustomer, nil)

	for _, path := range []string{"/api/v1/bookings", "/api/v1/orders", "/api/v1/notifications"} {
		rec := doRequest(t, handler, http.MethodGet, path, token)
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d (%s)", path, rec.Code, rec.Body.String())
		}
	}
}

func TestRouterVendorRoutesRequireVendorRole(t *testing.T) {
	cfg := testConfig()
	handler := newTestRouter(t, cfg)

	customer := buildToken(t, cfg, enums.MemberRoleCustomer, nil)
	rec := doRequest(t, handler, http.MethodGet, "/api/v1/vendor/balance", customer)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer on vendor route: expected 403, got %d", rec.Code)
	}

	vendorID := uuid.New()
	vendor := buildToken(t, cfg, enums.MemberRoleVendor, &vendorID)
	rec = doRequest(t, handler, http.MethodGet, "/api/v1/vendor/balance", vendor)
	if rec.Code != http.StatusOK {
		t.Fatalf("vendor on vendor route: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRouterAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	handler := newTestRouter(t, cfg)

	vendorID := uuid.New()
	vendor := buildToken(t, cfg, enums.MemberRoleVendor, &vendorID)
	rec := doRequest(t, handler, http.MethodGet, "/api/admin/v1/vendors/pending", vendor)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("vendor on admin route: expected 403, got %d", rec.Code)
	}

	admin := buildToken(t, cfg, enums.MemberRoleAdmin, nil)
	rec = doRequest(t, handler, http.MethodGet, "/api/admin/v1/vendors/pending", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin on admin route: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, handler, http.MethodGet, "/api/admin/v1/withdrawals", admin)
	if rec.Code != http.StatusOK {
		t.Fatalf("admin withdrawals list: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestRouterRejectsTamperedToken(t *testing.T) {
	cfg := testConfig()
	handler := newTestRouter(t, cfg)

	other := *cfg
	other.JWT.Secret = "a-different-secret"
	token := buildToken(t, &other, enums.MemberRoleCustomer, nil)

	rec := doRequest(t, handler, http.MethodGet, "/api/v1/bookings", token)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign signature, got %d", rec.Code)
	}
}
