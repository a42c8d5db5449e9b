package controllers

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/templeconnect/backend/api/middleware"
	"github.com/templeconnect/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func asUser(req *http.Request, userID uuid.UUID, role string) *http.Request {
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, role)
	return req.WithContext(ctx)
}

func contextWithUserOnly(ctx context.Context, userID uuid.UUID) context.Context {
	return middleware.WithUserID(ctx, userID.String())
}

func asVendor(req *http.Request, userID, vendorID uuid.UUID) *http.Request {
	req = asUser(req, userID, "vendor")
	return req.WithContext(middleware.WithVendorID(req.Context(), vendorID.String()))
}
