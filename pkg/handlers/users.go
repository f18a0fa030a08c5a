package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/services"
)

// UsersHandler handles account management HTTP requests.
type UsersHandler struct {
	*RecordHandler[models.User]
	userService services.UserService
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(userService services.UserService, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{
		RecordHandler: NewRecordHandler[models.User]("users", userRecords{userService}, logger),
		userService:   userService,
	}
}

// userRecords adapts UserService to RecordService; Create is Register.
type userRecords struct {
	services.UserService
}

func (u userRecords) Create(ctx context.Context, raw map[string]any) (*models.User, error) {
	return u.Register(ctx, raw)
}

// RegisterRoutes registers the users handler's routes on the given mux.
// Listing and creating accounts is admin only; a user may read and
// update their own record.
func (h *UsersHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, guard *auth.RouteGuard, scope RouteMiddleware) {
	mux.HandleFunc("GET /api/users/directory",
		authMiddleware.RequireAuth(guard.Require("users.directory", auth.ActionList)(scope(h.Directory))))
	h.RecordHandler.RegisterRoutes(mux, authMiddleware, guard, scope)
}

// Directory handles GET /api/users/directory
// Lists active users with identity fields only.
func (h *UsersHandler) Directory(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.Directory(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	writeData(w, h.logger, http.StatusOK, users)
}
