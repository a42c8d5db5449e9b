package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/pagination"
)

type vendorReader interface {
	FindProfile(ctx context.Context, vendorID uuid.UUID) (*models.VendorProfile, error)
}

// Service exposes product management and browse operations.
type Service interface {
	Create(ctx context.Context, vendorID uuid.UUID, input UpsertProductInput) (*ProductDTO, error)
	Update(ctx context.Context, vendorID, productID uuid.UUID, input UpsertProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, vendorID, productID uuid.UUID) error
	Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context, params ListParams) ([]ProductDTO, *pagination.Cursor, error)
	ListOwn(ctx context.Context, vendorID uuid.UUID) ([]ProductDTO, error)
}

type service struct {
	repo    *Repository
	vendors vendorReader
}

// UpsertProductInput captures the vendor-editable product fields.
type UpsertProductInput struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Stock       int
	Tags        []string
	Photos      []string
	Active      *bool
}

// NewService builds a product service with the provided dependencies.
func NewService(repo *Repository, vendors vendorReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor reader required")
	}
	return &service{repo: repo, vendors: vendors}, nil
}

func (s *service) Create(ctx context.Context, vendorID uuid.UUID, input UpsertProductInput) (*ProductDTO, error) {
	if err := s.requireApprovedVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	if err := validateUpsert(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          uuid.New(),
		VendorID:    vendorID,
		Title:       strings.TrimSpace(input.Title),
		Description: input.Description,
		Price:       input.Price,
		Stock:       input.Stock,
		Tags:        pq.StringArray(input.Tags),
		Photos:      pq.StringArray(input.Photos),
		Active:      true,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return FromModel(product), nil
}

func (s *service) Update(ctx context.Context, vendorID, productID uuid.UUID, input UpsertProductInput) (*ProductDTO, error) {
	if err := s.requireApprovedVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	if err := validateUpsert(input); err != nil {
		return nil, err
	}

	product, err := s.ownedProduct(ctx, vendorID, productID)
	if err != nil {
		return nil, err
	}

	product.Title = strings.TrimSpace(input.Title)
	product.Description = input.Description
	product.Price = input.Price
	product.Stock = input.Stock
	product.Tags = pq.StringArray(input.Tags)
	product.Photos = pq.StringArray(input.Photos)
	if input.Active != nil {
		product.Active = *input.Active
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}
	return FromModel(product), nil
}

func (s *service) Delete(ctx context.Context, vendorID, productID uuid.UUID) error {
	if err := s.requireApprovedVendor(ctx, vendorID); err != nil {
		return err
	}
	if _, err := s.ownedProduct(ctx, vendorID, productID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, productID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) Get(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return FromModel(product), nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]ProductDTO, *pagination.Cursor, error) {
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, *FromModel(&row))
	}
	return out, next, nil
}

func (s *service) ListOwn(ctx context.Context, vendorID uuid.UUID) ([]ProductDTO, error) {
	rows, err := s.repo.ListByVendor(ctx, vendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor products")
	}
	out := make([]ProductDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, *FromModel(&row))
	}
	return out, nil
}

func (s *service) ownedProduct(ctx context.Context, vendorID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another vendor")
	}
	return product, nil
}

func (s *service) requireApprovedVendor(ctx context.Context, vendorID uuid.UUID) error {
	if vendorID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity required")
	}
	profile, err := s.vendors.FindProfile(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vendor profile not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}
	if profile.Status != enums.VendorStatusApproved {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "vendor is not approved")
	}
	return nil
}

func validateUpsert(input UpsertProductInput) error {
	if strings.TrimSpace(input.Title) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product title is required")
	}
	if input.Price.Sign() <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	if input.Stock < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock must not be negative")
	}
	return nil
}
