package controllers

import (
	"net/http"
	"strings"

	"github.com/templeconnect/backend/api/responses"
	"github.com/templeconnect/backend/api/validators"
	"github.com/templeconnect/backend/internal/temples"
	pkgerrors "github.com/templeconnect/backend/pkg/errors"
	"github.com/templeconnect/backend/pkg/logger"
)

type templeRequest struct {
	Name        string   `json:"name" validate:"required,max=200"`
	City        string   `json:"city" validate:"required,max=120"`
	Deity       string   `json:"deity" validate:"max=120"`
	Address     string   `json:"address" validate:"max=500"`
	Description string   `json:"description" validate:"max=4000"`
	Photos      []string `json:"photos" validate:"max=10,dive,url"`
	VisitPrice  string   `json:"visit_price" validate:"required"`
	OpenHours   string   `json:"open_hours" validate:"max=200"`
	Active      *bool    `json:"active"`
}

func (req templeRequest) toInput() (temples.UpsertTempleInput, error) {
	price, err := parseAmount(req.VisitPrice)
	if err != nil {
		return temples.UpsertTempleInput{}, pkgerrors.New(pkgerrors.CodeValidation, "visit_price must be a decimal amount")
	}
	return temples.UpsertTempleInput{
		Name:        validators.SanitizeString(req.Name, 200),
		City:        validators.SanitizeString(req.City, 120),
		Deity:       validators.SanitizeString(req.Deity, 120),
		Address:     validators.SanitizeString(req.Address, 500),
		Description: validators.SanitizeString(req.Description, 4000),
		Photos:      req.Photos,
		VisitPrice:  price,
		OpenHours:   validators.SanitizeString(req.OpenHours, 200),
		Active:      req.Active,
	}, nil
}

// ListTemples is the public browse endpoint with city and deity filters.
func ListTemples(svc temples.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "temples service unavailable"))
			return
		}

		limit, cursor, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := temples.ListParams{
			Filters: temples.ListFilters{
				City:  strings.TrimSpace(r.URL.Query().Get("city")),
				Deity: strings.TrimSpace(r.URL.Query().Get("deity")),
			},
			Limit:  limit,
			Cursor: cursor,
		}

		items, next, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pagedResponse(items, next))
	}
}

func GetTemple(svc temples.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "temples service unavailable"))
			return
		}

		templeID, err := pathUUID(r, "templeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		temple, err := svc.Get(r.Context(), templeID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, temple)
	}
}

func VendorGetTemple(svc temples.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "temples service unavailable"))
			return
		}

		vendorID, err := actorVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		temple, err := svc.GetOwn(r.Context(), vendorID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, temple)
	}
}

func VendorCreateTemple(svc temples.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "temples service unavailable"))
			return
		}

		vendorID, err := actorVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body templeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		temple, err := svc.Create(r.Context(), vendorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, temple)
	}
}

func VendorUpdateTemple(svc temples.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "temples service unavailable"))
			return
		}

		vendorID, err := actorVendorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		templeID, err := pathUUID(r, "templeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body templeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		temple, err := svc.Update(r.Context(), vendorID, templeID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, temple)
	}
}
