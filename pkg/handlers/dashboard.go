package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/services"
)

// DashboardHandler serves per-user summary counts.
type DashboardHandler struct {
	service services.DashboardService
	logger  *zap.Logger
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(service services.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{service: service, logger: logger}
}

// RegisterRoutes registers the dashboard route on the given mux.
func (h *DashboardHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, guard *auth.RouteGuard, scope RouteMiddleware) {
	mux.HandleFunc("GET /api/dashboard",
		authMiddleware.RequireAuth(guard.Require("dashboard", auth.ActionRead)(scope(h.Get))))
}

// Get handles GET /api/dashboard
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	writeData(w, h.logger, http.StatusOK, stats)
}
