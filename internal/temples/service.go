package temples

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/db"
	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/pagination"
)

type vendorReader interface {
	FindProfile(ctx context.Context, vendorID uuid.UUID) (*models.VendorProfile, error)
}

// Service exposes temple management and browse operations.
type Service interface {
	Create(ctx context.Context, vendorID uuid.UUID, input UpsertTempleInput) (*TempleDTO, error)
	Update(ctx context.Context, vendorID, templeID uuid.UUID, input UpsertTempleInput) (*TempleDTO, error)
	Get(ctx context.Context, templeID uuid.UUID) (*TempleDTO, error)
	GetOwn(ctx context.Context, vendorID uuid.UUID) (*TempleDTO, error)
	List(ctx context.Context, params ListParams) ([]TempleDTO, *pagination.Cursor, error)
}

type service struct {
	repo    *Repository
	vendors vendorReader
}

// UpsertTempleInput captures the vendor-editable temple fields.
type UpsertTempleInput struct {
	Name        string
	City        string
	Deity       string
	Address     string
	Description string
	Photos      []string
	VisitPrice  decimal.Decimal
	OpenHours   string
	Active      *bool
}

// NewService builds a temple service with the provided dependencies.
func NewService(repo *Repository, vendors vendorReader) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("temples repository required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor reader required")
	}
	return &service{repo: repo, vendors: vendors}, nil
}

func (s *service) Create(ctx context.Context, vendorID uuid.UUID, input UpsertTempleInput) (*TempleDTO, error) {
	if err := s.requireApprovedVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	if err := validateUpsert(input); err != nil {
		return nil, err
	}

	temple := &models.Temple{
		ID:          uuid.New(),
		VendorID:    vendorID,
		Name:        strings.TrimSpace(input.Name),
		City:        strings.TrimSpace(input.City),
		Deity:       strings.TrimSpace(input.Deity),
		Address:     input.Address,
		Description: input.Description,
		Photos:      pq.StringArray(input.Photos),
		VisitPrice:  input.VisitPrice,
		OpenHours:   input.OpenHours,
		Active:      true,
	}
	if err := s.repo.Create(ctx, temple); err != nil {
		// One temple per vendor, enforced by the unique index.
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor already manages a temple")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create temple")
	}
	return FromModel(temple), nil
}

func (s *service) Update(ctx context.Context, vendorID, templeID uuid.UUID, input UpsertTempleInput) (*TempleDTO, error) {
	if err := s.requireApprovedVendor(ctx, vendorID); err != nil {
		return nil, err
	}
	if err := validateUpsert(input); err != nil {
		return nil, err
	}

	temple, err := s.repo.FindByID(ctx, templeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "temple not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load temple")
	}
	if temple.VendorID != vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "temple belongs to another vendor")
	}

	temple.Name = strings.TrimSpace(input.Name)
	temple.City = strings.TrimSpace(input.City)
	temple.Deity = strings.TrimSpace(input.Deity)
	temple.Address = input.Address
	temple.Description = input.Description
	temple.Photos = pq.StringArray(input.Photos)
	temple.VisitPrice = input.VisitPrice
	temple.OpenHours = input.OpenHours
	if input.Active != nil {
		temple.Active = *input.Active
	}
	if err := s.repo.Update(ctx, temple); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update temple")
	}
	return FromModel(temple), nil
}

func (s *service) Get(ctx context.Context, templeID uuid.UUID) (*TempleDTO, error) {
	temple, err := s.repo.FindByID(ctx, templeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "temple not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load temple")
	}
	return FromModel(temple), nil
}

func (s *service) GetOwn(ctx context.Context, vendorID uuid.UUID) (*TempleDTO, error) {
	temple, err := s.repo.FindByVendorID(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "temple not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load temple")
	}
	return FromModel(temple), nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]TempleDTO, *pagination.Cursor, error) {
	rows, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list temples")
	}
	out := make([]TempleDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, *FromModel(&row))
	}
	return out, next, nil
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

func validateUpsert(input UpsertTempleInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "temple name is required")
	}
	if strings.TrimSpace(input.City) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "city is required")
	}
	if input.VisitPrice.Sign() < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "visit price must not be negative")
	}
	return nil
}
