package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/templeconnect/backend/internal/products"
	"github.com/templeconnect/backend/pkg/pagination"
)

type testProductsService struct {
	createFn  func(ctx context.Context, vendorID uuid.UUID, input products.UpsertProductInput) (*products.ProductDTO, error)
	updateFn  func(ctx context.Context, vendorID, productID uuid.UUID, input products.UpsertProductInput) (*products.ProductDTO, error)
	deleteFn  func(ctx context.Context, vendorID, productID uuid.UUID) error
	getFn     func(ctx context.Context, productID uuid.UUID) (*products.ProductDTO, error)
	listFn    func(ctx context.Context, params products.ListParams) ([]products.ProductDTO, *pagination.Cursor, error)
	listOwnFn func(ctx context.Context, vendorID uuid.UUID) ([]products.ProductDTO, error)
}

func (s *testProductsService) Create(ctx context.Context, vendorID uuid.UUID, input products.UpsertProductInput) (*products.ProductDTO, error) {
	if s.createFn != nil {
		return s.createFn(ctx, vendorID, input)
	}
	return &products.ProductDTO{}, nil
}

func (s *testProductsService) Update(ctx context.Context, vendorID, productID uuid.UUID, input products.UpsertProductInput) (*products.ProductDTO, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, vendorID, productID, input)
	}
	return &products.ProductDTO{}, nil
}

func (s *testProductsService) Delete(ctx context.Context, vendorID, productID uuid.UUID) error {
	if s.deleteFn != nil {
		return s.deleteFn(ctx, vendorID, productID)
	}
	return nil
}

func (s *testProductsService) Get(ctx context.Context, productID uuid.UUID) (*products.ProductDTO, error) {
	if s.getFn != nil {
		return s.getFn(ctx, productID)
	}
	return &products.ProductDTO{}, nil
}

func (s *testProductsService) List(ctx context.Context, params products.ListParams) ([]products.ProductDTO, *pagination.Cursor, error) {
	if s.listFn != nil {
		return s.listFn(ctx, params)
	}
	return nil, nil, nil
}

func (s *testProductsService) ListOwn(ctx context.Context, vendorID uuid.UUID) ([]products.ProductDTO, error) {
	if s.listOwnFn != nil {
		return s.listOwnFn(ctx, vendorID)
	}
	return nil, nil
}

func TestVendorCreateProductSuccess(t *testing.T) {
	vendorID := uuid.New()
	svc := &testProductsService{
		createFn: func(ctx context.Context, vid uuid.UUID, input products.UpsertProductInput) (*products.ProductDTO, error) {
			if vid != vendorID {
				t.Fatalf("unexpected vendor %s", vid)
			}
			if input.Title != "Brass Diya" {
				t.Fatalf("unexpected title %q", input.Title)
			}
			if input.Stock != 25 {
				t.Fatalf("unexpected stock %d", input.Stock)
			}
			return &products.ProductDTO{ID: uuid.New(), Title: input.Title}, nil
		},
	}

	body := `{"title":"Brass Diya","price":"249.00","stock":25,"tags":["puja","brass"]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asVendor(req, uuid.New(), vendorID)

	resp := httptest.NewRecorder()
	VendorCreateProduct(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestVendorCreateProductRejectsBadPrice(t *testing.T) {
	body := `{"title":"Sandalwood Mala","price":"abc","stock":5}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/products", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req = asVendor(req, uuid.New(), uuid.New())

	resp := httptest.NewRecorder()
	VendorCreateProduct(&testProductsService{}, testLogger())(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestVendorDeleteProduct(t *testing.T) {
	vendorID := uuid.New()
	productID := uuid.New()
	called := false
	svc := &testProductsService{
		deleteFn: func(ctx context.Context, vid, pid uuid.UUID) error {
			called = true
			if vid != vendorID || pid != productID {
				t.Fatalf("unexpected ids %s %s", vid, pid)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/vendor/products/"+productID.String(), nil)
	req = asVendor(req, uuid.New(), vendorID)
	req = addRouteParam(req, "productId", productID.String())

	resp := httptest.NewRecorder()
	VendorDeleteProduct(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data["status"] != "deleted" {
		t.Fatalf("unexpected payload %v", envelope.Data)
	}
}

func TestListProductsFilters(t *testing.T) {
	vendorID := uuid.New()
	svc := &testProductsService{
		listFn: func(ctx context.Context, params products.ListParams) ([]products.ProductDTO, *pagination.Cursor, error) {
			if params.Filters.Tag != "puja" {
				t.Fatalf("unexpected tag filter %q", params.Filters.Tag)
			}
			if params.Filters.Query != "diya" {
				t.Fatalf("unexpected query filter %q", params.Filters.Query)
			}
			if params.Filters.VendorID == nil || *params.Filters.VendorID != vendorID {
				t.Fatalf("unexpected vendor filter %v", params.Filters.VendorID)
			}
			return nil, nil, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?tag=puja&q=diya&vendorId="+vendorID.String(), nil)
	resp := httptest.NewRecorder()
	ListProducts(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestVendorListProducts(t *testing.T) {
	vendorID := uuid.New()
	svc := &testProductsService{
		listOwnFn: func(ctx context.Context, vid uuid.UUID) ([]products.ProductDTO, error) {
			if vid != vendorID {
				t.Fatalf("unexpected vendor %s", vid)
			}
			return []products.ProductDTO{{ID: uuid.New()}, {ID: uuid.New()}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/products", nil)
	req = asVendor(req, uuid.New(), vendorID)

	resp := httptest.NewRecorder()
	VendorListProducts(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data struct {
			Items []json.RawMessage `json:"items"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if len(envelope.Data.Items) != 2 {
		t.Fatalf("expected 2 items got %d", len(envelope.Data.Items))
	}
}
