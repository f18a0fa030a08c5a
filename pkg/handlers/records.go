package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/services"
)

// RouteMiddleware wraps a handler, e.g. auth or a request-scoped DB connection.
type RouteMiddleware func(http.HandlerFunc) http.HandlerFunc

// RecordService is the CRUD surface every owned-record service exposes.
type RecordService[T any] interface {
	Create(ctx context.Context, raw map[string]any) (*T, error)
	Get(ctx context.Context, id int64) (*T, error)
	List(ctx context.Context, filter models.ListFilter) (*models.Page[T], error)
	Update(ctx context.Context, id int64, raw map[string]any) (*services.UpdateResult[T], error)
	Delete(ctx context.Context, id int64) error
}

// RecordHandler serves the five CRUD routes for one resource.
type RecordHandler[T any] struct {
	resource string
	service  RecordService[T]
	logger   *zap.Logger
}

// NewRecordHandler creates a handler for /api/{resource}.
func NewRecordHandler[T any](resource string, service RecordService[T], logger *zap.Logger) *RecordHandler[T] {
	return &RecordHandler[T]{
		resource: resource,
		service:  service,
		logger:   logger.Named(resource),
	}
}

// RegisterRoutes registers the resource's routes on the given mux. Each
// route runs authentication, the route guard, then the DB scope.
func (h *RecordHandler[T]) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, guard *auth.RouteGuard, scope RouteMiddleware) {
	base := "/api/" + h.resource
	route := func(action string, next http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.RequireAuth(guard.Require(h.resource, action)(scope(next)))
	}

	mux.HandleFunc("GET "+base, route(auth.ActionList, h.List))
	mux.HandleFunc("POST "+base, route(auth.ActionCreate, h.Create))
	mux.HandleFunc("GET "+base+"/{id}", route(auth.ActionRead, h.Get))
	mux.HandleFunc("PUT "+base+"/{id}", route(auth.ActionUpdate, h.Update))
	mux.HandleFunc("DELETE "+base+"/{id}", route(auth.ActionDelete, h.Delete))
}

// List handles GET /api/{resource}
func (h *RecordHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	page, err := h.service.List(r.Context(), filter)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	items := page.Items
	if items == nil {
		items = []*T{}
	}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success:    true,
		Data:       items,
		Pagination: &page.Pagination,
	}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Create handles POST /api/{resource}
func (h *RecordHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	body, ok := decodeBody(w, r, h.logger)
	if !ok {
		return
	}

	record, err := h.service.Create(r.Context(), body)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	writeData(w, h.logger, http.StatusCreated, record)
}

// Get handles GET /api/{resource}/{id}
func (h *RecordHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	writeData(w, h.logger, http.StatusOK, record)
}

// Update handles PUT /api/{resource}/{id}
// The body is a partial update; fields the caller may not write are
// dropped and reported in denied_fields.
func (h *RecordHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}
	body, ok := decodeBody(w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.service.Update(r.Context(), id, body)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{
		Success: true,
		Data:    result.Record,
		Denied:  result.Denied,
	}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Delete handles DELETE /api/{resource}/{id}
func (h *RecordHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := ParseID(w, r, h.logger)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Deleted"}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
