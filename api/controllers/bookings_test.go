package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/templeconnect/backend/internal/bookings"
	"github.com/templeconnect/backend/pkg/pagination"
)

type testBookingsService struct {
	createFn        func(ctx context.Context, input bookings.CreateInput) (*bookings.BookingDTO, error)
	cancelFn        func(ctx context.Context, bookingID, userID uuid.UUID) (*bookings.BookingDTO, error)
	getFn           func(ctx context.Context, bookingID, userID uuid.UUID) (*bookings.BookingDTO, error)
	listForUserFn   func(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]bookings.BookingDTO, *pagination.Cursor, error)
	listForVendorFn func(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor) ([]bookings.BookingDTO, *pagination.Cursor, error)
}

func (s *testBookingsService) Create(ctx context.Context, input bookings.CreateInput) (*bookings.BookingDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, input)
	}
	return &bookings.BookingDTO{}, nil
}

func (s *testBookingsService) Cancel(ctx context.Context, bookingID, userID uuid.UUID) (*bookings.BookingDTO, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, bookingID, userID)
	}
	return &bookings.BookingDTO{}, nil
}

func (s *testBookingsService) Get(ctx context.Context, bookingID, userID uuid.UUID) (*bookings.BookingDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, bookingID, userID)
	}
	return &bookings.BookingDTO{}, nil
}

func (s *testBookingsService) ListForUser(ctx context.Context, userID uuid.UUID, limit int, cursor *pagination.Cursor) ([]bookings.BookingDTO, *pagination.Cursor, error) {
	if s.listForUserFn != nil {
		return s.listForUserFn(ctx, userID, limit, cursor)
	}
	return nil, nil, nil
}

func (s *testBookingsService) ListForVendor(ctx context.Context, vendorID uuid.UUID, limit int, cursor *pagination.Cursor) ([]bookings.BookingDTO, *pagination.Cursor, error) {
	if s.listForVendorFn != nil {
		return s.listForVendorFn(ctx, vendorID, limit, cursor)
	}
	return nil, nil, nil
}

func TestCreateBookingSuccess(t *testing.T) {
	userID := uuid.New()
	templeID := uuid.New()
	svc := &testBookingsService{
		createFn: func(ctx context.Context, input bookings.CreateInput) (*bookings.BookingDTO, error) {
			if input.UserID != userID {
				t.Fatalf("unexpected user %s", input.UserID)
			}
			if input.TempleID != templeID {
				t.Fatalf("unexpected temple %s", input.TempleID)
			}
			if input.Visitors != 3 {
				t.Fatalf("unexpected visitors %d", input.Visitors)
			}
			return &bookings.BookingDTO{ID: uuid.New()}, nil
		},
	}

	body := `{"temple_id":"` + templeID.String() + `","visit_date":"2026-10-12T06:00:00Z","visitors":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, userID, "customer")

	resp := httptest.NewRecorder()
	CreateBooking(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestCreateBookingRequiresAuth(t *testing.T) {
	body := `{"temple_id":"` + uuid.NewString() + `","visit_date":"2026-10-12T06:00:00Z","visitors":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp := httptest.NewRecorder()
	CreateBooking(&testBookingsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestCreateBookingRejectsZeroVisitors(t *testing.T) {
	body := `{"temple_id":"` + uuid.NewString() + `","visit_date":"2026-10-12T06:00:00Z","visitors":0}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asUser(req, uuid.New(), "customer")

	resp := httptest.NewRecorder()
	CreateBooking(&testBookingsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancelBookingScopedToCaller(t *testing.T) {
	userID := uuid.New()
	bookingID := uuid.New()
	svc := &testBookingsService{
		cancelFn: func(ctx context.Context, bid, uid uuid.UUID) (*bookings.BookingDTO, error) {
			if bid != bookingID || uid != userID {
				t.Fatalf("unexpected ids %s %s", bid, uid)
			}
			return &bookings.BookingDTO{ID: bid}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/"+bookingID.String()+"/cancel", nil)
	req = asUser(req, userID, "customer")
	req = addRouteParam(req, "bookingId", bookingID.String())

	resp := httptest.NewRecorder()
	CancelBooking(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestVendorListBookings(t *testing.T) {
	vendorID := uuid.New()
	svc := &testBookingsService{
		listForVendorFn: func(ctx context.Context, vid uuid.UUID, limit int, cursor *pagination.Cursor) ([]bookings.BookingDTO, *pagination.Cursor, error) {
			if vid != vendorID {
				t.Fatalf("unexpected vendor %s", vid)
			}
			return []bookings.BookingDTO{{ID: uuid.New()}}, nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/bookings", nil)
	req = asVendor(req, uuid.New(), vendorID)

	resp := httptest.NewRecorder()
	VendorListBookings(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
