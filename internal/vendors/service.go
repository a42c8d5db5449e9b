package vendors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/db"
	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/outbox"
	"github.com/templeconnect/backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type usersRepository interface {
	UpdateRoleWithTx(tx *gorm.DB, id uuid.UUID, role enums.MemberRole) error
}

// ReviewDecision is the admin verdict on a vendor application.
type ReviewDecision string

const (
	ReviewDecisionApprove ReviewDecision = "approve"
	ReviewDecisionReject  ReviewDecision = "reject"
	ReviewDecisionSuspend ReviewDecision = "suspend"
)

// Service exposes vendor application operations.
type Service interface {
	Apply(ctx context.Context, input ApplyInput) (*VendorProfileDTO, error)
	Review(ctx context.Context, input ReviewInput) (*VendorProfileDTO, error)
	Get(ctx context.Context, profileID uuid.UUID) (*VendorProfileDTO, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) (*VendorProfileDTO, error)
	ListPending(ctx context.Context, limit int) ([]VendorProfileDTO, error)
}

type service struct {
	repo   *Repository
	users  usersRepository
	tx     txRunner
	outbox outboxPublisher
}

// ApplyInput captures a user's vendor application.
type ApplyInput struct {
	UserID      uuid.UUID
	ShopName    string
	Description string
}

// ReviewInput carries the admin decision on a vendor application.
type ReviewInput struct {
	ProfileID   uuid.UUID
	Decision    ReviewDecision
	Note        string
	AdminUserID uuid.UUID
}

// NewService builds a vendor service with the provided dependencies.
func NewService(repo *Repository, usersRepo usersRepository, tx txRunner, ob outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendors repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, users: usersRepo, tx: tx, outbox: ob}, nil
}

func (s *service) Apply(ctx context.Context, input ApplyInput) (*VendorProfileDTO, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	shopName := strings.TrimSpace(input.ShopName)
	if shopName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shop name is required")
	}

	if _, err := s.repo.FindByUserID(ctx, input.UserID); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor application already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up vendor profile")
	}

	profile := &models.VendorProfile{
		ID:          uuid.New(),
		UserID:      input.UserID,
		ShopName:    shopName,
		Description: strings.TrimSpace(input.Description),
		Status:      enums.VendorStatusPending,
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		// The unique index on user_id closes the race with a concurrent apply.
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "vendor application already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor profile")
	}
	return FromModel(profile), nil
}

func (s *service) Review(ctx context.Context, input ReviewInput) (*VendorProfileDTO, error) {
	if input.ProfileID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "profile id is required")
	}

	var from, to enums.VendorStatus
	switch input.Decision {
	case ReviewDecisionApprove:
		from, to = enums.VendorStatusPending, enums.VendorStatusApproved
	case ReviewDecisionReject:
		from, to = enums.VendorStatusPending, enums.VendorStatusRejected
	case ReviewDecisionSuspend:
		from, to = enums.VendorStatusApproved, enums.VendorStatusSuspended
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approve, reject, or suspend")
	}
	if input.Decision != ReviewDecisionApprove && strings.TrimSpace(input.Note) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "review note is required")
	}

	profile, err := s.repo.FindProfile(ctx, input.ProfileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		transitioned, txErr := s.repo.TransitionStatusWithTx(tx, input.ProfileID, from, to, input.AdminUserID, input.Note)
		if txErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "transition vendor status")
		}
		if !transitioned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, fmt.Sprintf("vendor is not %s", from))
		}

		if input.Decision == ReviewDecisionApprove {
			if txErr := s.users.UpdateRoleWithTx(tx, profile.UserID, enums.MemberRoleVendor); txErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, txErr, "promote user to vendor")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventVendorReviewed,
			AggregateType: enums.AggregateVendor,
			AggregateID:   profile.ID,
			Actor:         &outbox.ActorRef{UserID: input.AdminUserID, Role: string(enums.MemberRoleAdmin)},
			Data: payloads.VendorReviewedEvent{
				VendorID:     profile.ID,
				VendorUserID: profile.UserID,
				Status:       to,
				ReviewNote:   input.Note,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	return s.Get(ctx, input.ProfileID)
}

func (s *service) Get(ctx context.Context, profileID uuid.UUID) (*VendorProfileDTO, error) {
	profile, err := s.repo.FindProfile(ctx, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}
	return FromModel(profile), nil
}

func (s *service) GetByUserID(ctx context.Context, userID uuid.UUID) (*VendorProfileDTO, error) {
	profile, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}
	return FromModel(profile), nil
}

func (s *service) ListPending(ctx context.Context, limit int) ([]VendorProfileDTO, error) {
	profiles, err := s.repo.ListByStatus(ctx, enums.VendorStatusPending, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending vendors")
	}
	out := make([]VendorProfileDTO, 0, len(profiles))
	for _, profile := range profiles {
		out = append(out, *FromModel(&profile))
	}
	return out, nil
}
