package temples

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
)

type stubVendors struct {
	status map[uuid.UUID]enums.VendorStatus
}

func (s *stubVendors) FindProfile(_ context.Context, vendorID uuid.UUID) (*models.VendorProfile, error) {
	status, ok := s.status[vendorID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.VendorProfile{ID: vendorID, UserID: uuid.New(), Status: status}, nil
}

func newTemplesTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:temples_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.Exec(`CREATE TABLE temples (
		id TEXT PRIMARY KEY,
		vendor_id TEXT NOT NULL UNIQUE,
		name TEXT NOT NULL,
		city TEXT NOT NULL,
		deity TEXT,
		address TEXT,
		description TEXT,
		photos TEXT,
		visit_price NUMERIC NOT NULL DEFAULT 0,
		open_hours TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error; err != nil {
		t.Fatalf("create schema: %v", err)
	}
	return conn
}

func newTemplesFixture(t *testing.T) (Service, uuid.UUID) {
	t.Helper()
	vendorID := uuid.New()
	vendors := &stubVendors{status: map[uuid.UUID]enums.VendorStatus{vendorID: enums.VendorStatusApproved}}
	svc, err := NewService(NewRepository(newTemplesTestDB(t)), vendors)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, vendorID
}

func TestCreateTempleOnePerVendor(t *testing.T) {
	t.Parallel()

	svc, vendorID := newTemplesFixture(t)
	input := UpsertTempleInput{
		Name:       "Shri Ganesh Mandir",
		City:       "Pune",
		Deity:      "Ganesha",
		VisitPrice: decimal.RequireFromString("50.00"),
	}

	temple, err := svc.Create(context.Background(), vendorID, input)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !temple.Active {
		t.Fatal("expected new temple to be active")
	}

	_, err = svc.Create(context.Background(), vendorID, input)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict on second temple, got %v", err)
	}
}

func TestCreateTempleRequiresApprovedVendor(t *testing.T) {
	t.Parallel()

	conn := newTemplesTestDB(t)
	vendorID := uuid.New()
	vendors := &stubVendors{status: map[uuid.UUID]enums.VendorStatus{vendorID: enums.VendorStatusPending}}
	svc, err := NewService(NewRepository(conn), vendors)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	_, err = svc.Create(context.Background(), vendorID, UpsertTempleInput{Name: "X", City: "Y"})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for unapproved vendor, got %v", err)
	}
}

func TestUpdateTempleOwnership(t *testing.T) {
	t.Parallel()

	svc, vendorID := newTemplesFixture(t)
	temple, err := svc.Create(context.Background(), vendorID, UpsertTempleInput{
		Name: "Old Name", City: "Pune",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	updated, err := svc.Update(context.Background(), vendorID, temple.ID, UpsertTempleInput{
		Name: "New Name", City: "Pune", Deity: "Shiva",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "New Name" || updated.Deity != "Shiva" {
		t.Fatalf("unexpected update result: %+v", updated)
	}
}

func TestListFiltersByCity(t *testing.T) {
	t.Parallel()

	conn := newTemplesTestDB(t)
	vendorA, vendorB := uuid.New(), uuid.New()
	vendors := &stubVendors{status: map[uuid.UUID]enums.VendorStatus{
		vendorA: enums.VendorStatusApproved,
		vendorB: enums.VendorStatusApproved,
	}}
	svc, err := NewService(NewRepository(conn), vendors)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	if _, err := svc.Create(context.Background(), vendorA, UpsertTempleInput{Name: "A", City: "Pune"}); err != nil {
		t.Fatalf("create a: %v", err)
	}
	if _, err := svc.Create(context.Background(), vendorB, UpsertTempleInput{Name: "B", City: "Varanasi"}); err != nil {
		t.Fatalf("create b: %v", err)
	}

	rows, _, err := svc.List(context.Background(), ListParams{Filters: ListFilters{City: "Pune"}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "A" {
		t.Fatalf("expected only Pune temples, got %+v", rows)
	}
}
