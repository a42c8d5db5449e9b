package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/templeconnect/backend/pkg/db/models"
	"github.com/templeconnect/backend/pkg/enums"
	"github.com/templeconnect/backend/pkg/pagination"
)

// Repository manages persistence for vendor balances, ledger entries, and
// withdrawal requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	GetBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error)
	// GetBalanceForUpdate locks the balance row for the duration of the
	// surrounding transaction, creating a zero row if none exists yet.
	GetBalanceForUpdate(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error)
	SaveBalance(ctx context.Context, balance *models.VendorBalance) error

	CreateEntry(ctx context.Context, entry *models.LedgerEntry) error
	FindEntryByKey(ctx context.Context, vendorID uuid.UUID, idempotencyKey string) (*models.LedgerEntry, error)
	ListEntries(ctx context.Context, params ListEntriesParams) ([]models.LedgerEntry, *pagination.Cursor, error)

	CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error
	FindWithdrawal(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error)
	// FinalizeWithdrawal conditionally moves a pending request to a terminal
	// status. Returns false when the request was not pending anymore.
	FinalizeWithdrawal(ctx context.Context, id uuid.UUID, to enums.WithdrawalStatus, processedBy uuid.UUID, note string, now time.Time) (bool, error)
	ListWithdrawals(ctx context.Context, params ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error)
}

// ListEntriesParams filters the ledger history for one vendor.
type ListEntriesParams struct {
	VendorID uuid.UUID
	Type     *enums.LedgerEntryType
	Limit    int
	Cursor   *pagination.Cursor
}

// ListWithdrawalsParams filters withdrawal requests. VendorID narrows to one
// vendor; nil lists platform-wide for admins.
type ListWithdrawalsParams struct {
	VendorID *uuid.UUID
	Status   *enums.WithdrawalStatus
	Limit    int
	Cursor   *pagination.Cursor
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) GetBalance(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error) {
	var balance models.VendorBalance
	err := r.db.WithContext(ctx).
		Where("vendor_id = ?", vendorID).
		First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (r *repositoryImpl) GetBalanceForUpdate(ctx context.Context, vendorID uuid.UUID) (*models.VendorBalance, error) {
	var balance models.VendorBalance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ?", vendorID).
		First(&balance).Error
	if err == nil {
		return &balance, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.createBalanceIfAbsent(ctx, vendorID); err != nil {
		return nil, err
	}
	// Re-read under lock so concurrent creators converge on one row.
	err = r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("vendor_id = ?", vendorID).
		First(&balance).Error
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// createBalanceIfAbsent seeds the zero balance row. A concurrent transaction
// may win the insert on vendor_id; DoNothing lets the loser fall through to
// the locked re-read instead of surfacing the unique violation.
func (r *repositoryImpl) createBalanceIfAbsent(ctx context.Context, vendorID uuid.UUID) error {
	balance := models.VendorBalance{ID: uuid.New(), VendorID: vendorID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "vendor_id"}}, DoNothing: true}).
		Create(&balance).Error
}

func (r *repositoryImpl) SaveBalance(ctx context.Context, balance *models.VendorBalance) error {
	return r.db.WithContext(ctx).
		Model(&models.VendorBalance{}).
		Where("id = ?", balance.ID).
		Updates(map[string]any{
			"total":     balance.Total,
			"available": balance.Available,
			"pending":   balance.Pending,
			"withdrawn": balance.Withdrawn,
		}).Error
}

func (r *repositoryImpl) CreateEntry(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repositoryImpl) FindEntryByKey(ctx context.Context, vendorID uuid.UUID, idempotencyKey string) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("vendor_id = ? AND idempotency_key = ?", vendorID, idempotencyKey).
		First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repositoryImpl) ListEntries(ctx context.Context, params ListEntriesParams) ([]models.LedgerEntry, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("vendor_id = ?", params.VendorID)
	if params.Type != nil {
		query = query.Where("type = ?", *params.Type)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var entries []models.LedgerEntry
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, nil, err
	}

	if len(entries) > normalized {
		last := entries[normalized-1]
		entries = entries[:normalized]
		return entries, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return entries, nil, nil
}

func (r *repositoryImpl) CreateWithdrawal(ctx context.Context, req *models.WithdrawalRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repositoryImpl) FindWithdrawal(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	var req models.WithdrawalRequest
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repositoryImpl) FinalizeWithdrawal(ctx context.Context, id uuid.UUID, to enums.WithdrawalStatus, processedBy uuid.UUID, note string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.WithdrawalRequest{}).
		Where("id = ? AND status = ?", id, enums.WithdrawalStatusPending).
		Updates(map[string]any{
			"status":        to,
			"decision_note": note,
			"processed_by":  processedBy,
			"processed_at":  now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repositoryImpl) ListWithdrawals(ctx context.Context, params ListWithdrawalsParams) ([]models.WithdrawalRequest, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.WithdrawalRequest{})
	if params.VendorID != nil {
		query = query.Where("vendor_id = ?", *params.VendorID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.WithdrawalRequest
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, nil, err
	}

	if len(rows) > normalized {
		last := rows[normalized-1]
		rows = rows[:normalized]
		return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}
