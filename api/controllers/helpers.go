package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/templeconnect/backend/api/middleware"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/pagination"
)

// actorID reads the authenticated user id seeded by the auth middleware.
func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	return id, nil
}

// actorVendorID reads the vendor profile id carried in the vendor's token.
func actorVendorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.VendorIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid vendor id")
	}
	return id, nil
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := chi.URLParam(r, param)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param)
	}
	return id, nil
}

// pageParams extracts the limit and cursor query parameters.
func pageParams(r *http.Request) (int, *pagination.Cursor, error) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			return 0, nil, pkgerrors.New(pkgerrors.CodeValidation, "limit must be a positive integer")
		}
		limit = value
	}
	cursor, err := pagination.ParseCursor(r.URL.Query().Get("cursor"))
	if err != nil {
		return 0, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	return limit, cursor, nil
}

// parseAmount converts a money field from its wire string form.
func parseAmount(raw string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(raw))
}

// pagedResponse is the common list envelope: items plus the next-page cursor.
func pagedResponse(items any, next *pagination.Cursor) map[string]any {
	payload := map[string]any{"items": items}
	if next != nil {
		payload["cursor"] = pagination.EncodeCursor(*next)
	}
	return payload
}
