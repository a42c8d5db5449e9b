package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/templeconnect/backend/pkg/config"
	"github.com/templeconnect/backend/pkg/db"
	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/logger"
	"github.com/templeconnect/backend/pkg/outbox"
	"github.com/templeconnect/backend/pkg/outbox/payloads"
	"github.com/templeconnect/backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type vendorReader interface {
	FindProfile(ctx context.Context, vendorID uuid.UUID) (*models.VendorProfile, error)
}

// Service owns every mutation of vendor money. All writes happen inside one
// transaction holding a row lock on the vendor's balance, so the sum
// invariant (total = available + pending + withdrawn) survives concurrency.
type Service interface {
	AccrueEarnings(ctx context.Context, input AccrueEarningsInput) (*models.LedgerEntry, error)
	// AccrueEarningsTx runs the accrual inside a caller-owned transaction so
	// settlement joins the caller's commit, e.g. order delivery.
	AccrueEarningsTx(ctx context.Context, tx *gorm.DB, input AccrueEarningsInput) (*models.LedgerEntry, error)
	RequestWithdrawal(ctx context.Context, input RequestWithdrawalInput) (*models.WithdrawalRequest, error)
	ProcessWithdrawal(ctx context.Context, input ProcessWithdrawalInput) (*models.WithdrawalRequest, error)
	AdjustBalance(ctx context.Context, input AdjustBalanceInput) (*models.LedgerEntry, error)
	GetBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error)
	ListEntries(ctx context.Context, params ListEntriesParams) ([]models.LedgerEntry, *pagination.Cursor, error)
	ListWithdrawals(ctx context.Context, params ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error)
}

type service struct {
	repo          Repository
	tx            txRunner
	outbox        outboxPublisher
	vendors       vendorReader
	minWithdrawal decimal.Decimal
	logg          *logger.Logger
}

// AccrueEarningsInput credits a vendor after a settled sale or visit.
type AccrueEarningsInput struct {
	VendorID       uuid.UUID
	Amount         decimal.Decimal
	ReferenceID    *uuid.UUID
	IdempotencyKey string
	Note           string
	ActorUserID    uuid.UUID
	ActorVendorID  *uuid.UUID
	ActorRole      string
}

// RequestWithdrawalInput asks to move available funds into a pending payout.
type RequestWithdrawalInput struct {
	VendorID       uuid.UUID
	Amount         decimal.Decimal
	PayoutDetails  string
	IdempotencyKey string
	ActorUserID    uuid.UUID
	ActorRole      string
}

// Decision is the admin verdict on a pending withdrawal.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ProcessWithdrawalInput finalizes a pending withdrawal request.
type ProcessWithdrawalInput struct {
	RequestID   uuid.UUID
	Decision    Decision
	Note        string
	AdminUserID uuid.UUID
}

// AdjustBalanceInput applies a signed manual correction to a vendor balance.
type AdjustBalanceInput struct {
	VendorID       uuid.UUID
	Delta          decimal.Decimal
	Reason         string
	IdempotencyKey string
	AdminUserID    uuid.UUID
}

// NewService builds the ledger service with the required dependencies.
func NewService(repo Repository, tx txRunner, ob outboxPublisher, vendors vendorReader, cfg config.LedgerConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if ob == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if vendors == nil {
		return nil, fmt.Errorf("vendor reader required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	minWithdrawal, err := decimal.NewFromString(cfg.MinWithdrawalAmount)
	if err != nil {
		return nil, fmt.Errorf("parse minimum withdrawal amount: %w", err)
	}
	if minWithdrawal.Sign() < 0 {
		return nil, fmt.Errorf("minimum withdrawal amount must not be negative")
	}
	return &service{
		repo:          repo,
		tx:            tx,
		outbox:        ob,
		vendors:       vendors,
		minWithdrawal: minWithdrawal,
		logg:          logg,
	}, nil
}

func (s *service) AccrueEarnings(ctx context.Context, input AccrueEarningsInput) (*models.LedgerEntry, error) {
	var entry *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		entry, txErr = s.AccrueEarningsTx(ctx, tx, input)
		return txErr
	})
	if err != nil {
		// A concurrent accrual with the same key won the insert race. The
		// unique index made this call a no-op; return the winner's entry.
		if db.IsUniqueViolation(err, "idx_ledger_entries_vendor_key") {
			existing, findErr := s.repo.FindEntryByKey(ctx, input.VendorID, input.IdempotencyKey)
			if findErr == nil && existing != nil {
				return existing, nil
			}
		}
		return nil, err
	}
	return entry, nil
}

func (s *service) AccrueEarningsTx(ctx context.Context, tx *gorm.DB, input AccrueEarningsInput) (*models.LedgerEntry, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if input.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "accrual amount must be positive")
	}
	if input.IdempotencyKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency key is required")
	}

	repo := s.repo.WithTx(tx)

	existing, err := repo.FindEntryByKey(ctx, input.VendorID, input.IdempotencyKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up ledger entry")
	}
	if existing != nil {
		return existing, nil
	}

	balance, err := repo.GetBalanceForUpdate(ctx, input.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock vendor balance")
	}
	balance.Total = balance.Total.Add(input.Amount)
	balance.Available = balance.Available.Add(input.Amount)
	if err := repo.SaveBalance(ctx, balance); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save vendor balance")
	}

	entry := &models.LedgerEntry{
		ID:             uuid.New(),
		VendorID:       input.VendorID,
		Type:           enums.LedgerEntryTypeEarningsAccrued,
		Amount:         input.Amount,
		IdempotencyKey: input.IdempotencyKey,
		ReferenceID:    input.ReferenceID,
		Note:           input.Note,
	}
	snapshotBalance(entry, balance)
	if err := repo.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}

	err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventEarningsAccrued,
		AggregateType: enums.AggregateVendorBalance,
		AggregateID:   balance.ID,
		Actor:         buildActor(input.ActorUserID, input.ActorVendorID, input.ActorRole),
		Data: payloads.EarningsAccruedEvent{
			VendorID:       input.VendorID,
			Amount:         input.Amount,
			LedgerEntryID:  entry.ID,
			IdempotencyKey: input.IdempotencyKey,
			OrderID:        input.ReferenceID,
		},
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) RequestWithdrawal(ctx context.Context, input RequestWithdrawalInput) (*models.WithdrawalRequest, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if input.Amount.Sign() <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal amount must be positive")
	}
	if input.Amount.LessThan(s.minWithdrawal) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "below minimum withdrawal amount")
	}

	profile, err := s.findVendor(ctx, input.VendorID)
	if err != nil {
		return nil, err
	}
	if profile.Status != enums.VendorStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "vendor is not approved")
	}

	var request *models.WithdrawalRequest
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		balance, err := repo.GetBalanceForUpdate(ctx, input.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock vendor balance")
		}
		if input.Amount.GreaterThan(balance.Available) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient available balance")
		}

		request = &models.WithdrawalRequest{
			ID:            uuid.New(),
			VendorID:      input.VendorID,
			Amount:        input.Amount,
			Status:        enums.WithdrawalStatusPending,
			PayoutDetails: input.PayoutDetails,
		}
		if err := repo.CreateWithdrawal(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create withdrawal request")
		}

		balance.Available = balance.Available.Sub(input.Amount)
		balance.Pending = balance.Pending.Add(input.Amount)
		if err := repo.SaveBalance(ctx, balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save vendor balance")
		}

		key := input.IdempotencyKey
		if key == "" {
			key = fmt.Sprintf("withdrawal-%s-requested", request.ID)
		}
		entry := &models.LedgerEntry{
			ID:             uuid.New(),
			VendorID:       input.VendorID,
			Type:           enums.LedgerEntryTypeWithdrawalRequested,
			Amount:         input.Amount.Neg(),
			IdempotencyKey: key,
			ReferenceID:    &request.ID,
		}
		snapshotBalance(entry, balance)
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ledger entry")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalRequested,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   request.ID,
			Actor:         buildActor(input.ActorUserID, &input.VendorID, input.ActorRole),
			Data: payloads.WithdrawalRequestedEvent{
				WithdrawalID: request.ID,
				VendorID:     input.VendorID,
				Amount:       input.Amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) ProcessWithdrawal(ctx context.Context, input ProcessWithdrawalInput) (*models.WithdrawalRequest, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "withdrawal request id is required")
	}
	if input.Decision != DecisionApprove && input.Decision != DecisionReject {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision must be approve or reject")
	}

	request, err := s.repo.FindWithdrawal(ctx, input.RequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load withdrawal request")
	}

	profile, err := s.findVendor(ctx, request.VendorID)
	if err != nil {
		return nil, err
	}

	target := enums.WithdrawalStatusCompleted
	entryType := enums.LedgerEntryTypeWithdrawalApproved
	if input.Decision == DecisionReject {
		target = enums.WithdrawalStatusRejected
		entryType = enums.LedgerEntryTypeWithdrawalRejected
	}

	now := time.Now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		balance, err := repo.GetBalanceForUpdate(ctx, request.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock vendor balance")
		}

		// The conditional update is the concurrency gate: two admins racing
		// on the same request produce exactly one transition.
		transitioned, err := repo.FinalizeWithdrawal(ctx, request.ID, target, input.AdminUserID, input.Note, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "finalize withdrawal request")
		}
		if !transitioned {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "withdrawal is not pending")
		}

		balance.Pending = balance.Pending.Sub(request.Amount)
		entryAmount := request.Amount.Neg()
		if input.Decision == DecisionApprove {
			balance.Withdrawn = balance.Withdrawn.Add(request.Amount)
		} else {
			balance.Available = balance.Available.Add(request.Amount)
			entryAmount = request.Amount
		}
		if err := repo.SaveBalance(ctx, balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save vendor balance")
		}

		entry := &models.LedgerEntry{
			ID:             uuid.New(),
			VendorID:       request.VendorID,
			Type:           entryType,
			Amount:         entryAmount,
			IdempotencyKey: fmt.Sprintf("withdrawal-%s-%s", request.ID, target),
			ReferenceID:    &request.ID,
			Note:           input.Note,
		}
		snapshotBalance(entry, balance)
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ledger entry")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalProcessed,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   request.ID,
			Actor:         buildActor(input.AdminUserID, nil, string(enums.MemberRoleAdmin)),
			Data: payloads.WithdrawalProcessedEvent{
				WithdrawalID: request.ID,
				VendorID:     request.VendorID,
				VendorUserID: profile.UserID,
				Amount:       request.Amount,
				Status:       target,
				DecisionNote: input.Note,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	request.Status = target
	request.DecisionNote = input.Note
	request.ProcessedBy = &input.AdminUserID
	request.ProcessedAt = &now
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"withdrawal_id": request.ID.String(),
		"vendor_id":     request.VendorID.String(),
		"status":        string(target),
	}), "withdrawal processed")
	return request, nil
}

func (s *service) AdjustBalance(ctx context.Context, input AdjustBalanceInput) (*models.LedgerEntry, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	if input.Delta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment delta must be non-zero")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment reason is required")
	}

	var entry *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		balance, err := repo.GetBalanceForUpdate(ctx, input.VendorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock vendor balance")
		}
		newAvailable := balance.Available.Add(input.Delta)
		if newAvailable.Sign() < 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "adjustment would drive available balance negative")
		}
		balance.Total = balance.Total.Add(input.Delta)
		balance.Available = newAvailable
		if err := repo.SaveBalance(ctx, balance); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save vendor balance")
		}

		key := input.IdempotencyKey
		if key == "" {
			key = fmt.Sprintf("adjustment-%s", uuid.NewString())
		}
		entry = &models.LedgerEntry{
			ID:             uuid.New(),
			VendorID:       input.VendorID,
			Type:           enums.LedgerEntryTypeAdminAdjustment,
			Amount:         input.Delta,
			IdempotencyKey: key,
			Note:           input.Reason,
		}
		snapshotBalance(entry, balance)
		if err := repo.CreateEntry(ctx, entry); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ledger entry")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventBalanceAdjusted,
			AggregateType: enums.AggregateVendorBalance,
			AggregateID:   balance.ID,
			Actor:         buildActor(input.AdminUserID, nil, string(enums.MemberRoleAdmin)),
			Data: payloads.BalanceAdjustedEvent{
				VendorID:      input.VendorID,
				Amount:        input.Delta,
				LedgerEntryID: entry.ID,
				Note:          input.Reason,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) GetBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	balance, err := s.repo.GetBalance(ctx, vendorID)
	if err == nil {
		return balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor balance")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		balance, txErr = s.repo.WithTx(tx).GetBalanceForUpdate(ctx, vendorID)
		return txErr
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor balance")
	}
	return balance, nil
}

func (s *service) ListEntries(ctx context.Context, params ListEntriesParams) ([]models.LedgerEntry, *pagination.Cursor, error) {
	if params.VendorID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id is required")
	}
	entries, next, err := s.repo.ListEntries(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger entries")
	}
	return entries, next, nil
}

func (s *service) ListWithdrawals(ctx context.Context, params ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	rows, next, err := s.repo.ListWithdrawals(ctx, params)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list withdrawal requests")
	}
	return rows, next, nil
}

func (s *service) findVendor(ctx context.Context, vendorID uuid.UUID) (*models.VendorProfile, error) {
	profile, err := s.vendors.FindProfile(ctx, vendorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor profile")
	}
	return profile, nil
}

func snapshotBalance(entry *models.LedgerEntry, balance *models.VendorBalance) {
	entry.TotalAfter = balance.Total
	entry.AvailableAfter = balance.Available
	entry.PendingAfter = balance.Pending
	entry.WithdrawnAfter = balance.Withdrawn
}

func buildActor(userID uuid.UUID, vendorID *uuid.UUID, role string) *outbox.ActorRef {
	if userID == uuid.Nil {
		return nil
	}
	return &outbox.ActorRef{UserID: userID, VendorID: vendorID, Role: role}
}
