package controllers

import (
	"net/http"
	"strings"

	"github.com/templeconnect/backend/api/middleware"
	"github.com/templeconnect/backend/api/responses"
	"github.com/templeconnect/backend/api/validators"
	"github.com/templeconnect/backend/internal/ledger"
	"github.com/templeconnect/backend/pkg/enums"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/logger"
)

type withdrawalRequestBody struct {
	Amount         string `json:"amount" validate:"required"`
	PayoutDetails  string `json:"payout_details" validate:"max=2000"`
	IdempotencyKey string `json:"idempotency_key" validate:"required,max=128"`
}

type processWithdrawalBody struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Note     string `json:"note" validate:"max=2000"`
}

type adjustBalanceBody struct {
	Delta          string `json:"delta" validate:"required"`
	Reason         string `json:"reason" validate:"required,max=2000"`
	IdempotencyKey string `json:"idempotency_key" validate:"required,max=128"`
}

// VendorBalance returns the caller's balance, lazily creating the row.
func VendorBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		vendorID, err := actorVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		balance, err := svc.GetBalance(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, balance)
	}
}

// VendorRequestWithdrawal asks for a payout from the available balance.
func VendorRequestWithdrawal(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := actorVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body withdrawalRequestBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		amount, err := parseAmount(body.Amount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "amount must be a decimal amount"))
			return
		}

		request, err := svc.RequestWithdrawal(r.Context(), ledger.RequestWithdrawalInput{
			VendorID:       vendorID,
			Amount:         amount,
			PayoutDetails:  validators.SanitizeString(body.PayoutDetails, 2000),
			IdempotencyKey: body.IdempotencyKey,
			ActorUserID:    userID,
			ActorRole:      middleware.RoleFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}

// VendorListWithdrawals pages through the caller's withdrawal history.
func VendorListWithdrawals(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		vendorID, err := actorVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := ledger.ListWithdrawalsParams{VendorID: &vendorID, Limit: limit, Cursor: cursor}
		if status, err := withdrawalStatusFilter(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if status != nil {
			params.Status = status
		}

		items, next, err := svc.ListWithdrawals(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagedResponse(items, next))
	}
}

// VendorListLedgerEntries pages through the caller's audit trail.
func VendorListLedgerEntries(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		vendorID, err := actorVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := ledger.ListEntriesParams{VendorID: vendorID, Limit: limit, Cursor: cursor}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			entryType, err := enums.ParseLedgerEntryType(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid entry type filter"))
				return
			}
			params.Type = &entryType
		}

		items, next, err := svc.ListEntries(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagedResponse(items, next))
	}
}

// AdminListWithdrawals lists withdrawal requests platform-wide.
func AdminListWithdrawals(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := ledger.ListWithdrawalsParams{Limit: limit, Cursor: cursor}
		if status, err := withdrawalStatusFilter(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		} else if status != nil {
			params.Status = status
		}

		items, next, err := svc.ListWithdrawals(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagedResponse(items, next))
	}
}

// AdminProcessWithdrawal settles a pending withdrawal with a verdict.
func AdminProcessWithdrawal(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := pathUUID(r, "withdrawalId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body processWithdrawalBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.ProcessWithdrawal(r.Context(), ledger.ProcessWithdrawalInput{
			RequestID:   requestID,
			Decision:    ledger.Decision(body.Decision),
			Note:        validators.SanitizeString(body.Note, 2000),
			AdminUserID: adminID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// AdminAdjustBalance applies a signed manual correction to a vendor balance.
func AdminAdjustBalance(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		adminID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		vendorID, err := pathUUID(r, "vendorId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body adjustBalanceBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		delta, err := parseAmount(body.Delta)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "delta must be a decimal amount"))
			return
		}

		entry, err := svc.AdjustBalance(r.Context(), ledger.AdjustBalanceInput{
			VendorID:       vendorID,
			Delta:          delta,
			Reason:         validators.SanitizeString(body.Reason, 2000),
			IdempotencyKey: body.IdempotencyKey,
			AdminUserID:    adminID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

func withdrawalStatusFilter(r *http.Request) (*enums.WithdrawalStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return nil, nil
	}
	status, err := enums.ParseWithdrawalStatus(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid withdrawal status filter")
	}
	return &status, nil
}
