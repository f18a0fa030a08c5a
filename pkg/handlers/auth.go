package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/services"
)

// LoginRequest is the request body for POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthHandler handles login, logout and identity endpoints.
type AuthHandler struct {
	userService services.UserService
	sessions    *auth.SessionStore
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler. sessions may be nil, in which
// case only bearer tokens are issued.
func NewAuthHandler(userService services.UserService, sessions *auth.SessionStore, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		sessions:    sessions,
		logger:      logger,
	}
}

// RegisterRoutes registers the auth handler's routes on the given mux.
func (h *AuthHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware, scope RouteMiddleware) {
	mux.HandleFunc("POST /api/auth/login", scope(h.Login))
	mux.HandleFunc("POST /api/auth/logout", authMiddleware.RequireAuth(h.Logout))
	mux.HandleFunc("GET /api/auth/me", authMiddleware.RequireAuth(scope(h.Me)))
}

// Login handles POST /api/auth/login
// Returns the token in the body and, for browsers, in the session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	result, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if h.sessions != nil {
		if err := h.sessions.SaveToken(w, r, result.Token); err != nil {
			h.logger.Error("Failed to save session", zap.Error(err))
			WriteError(w, h.logger, err)
			return
		}
	}

	writeData(w, h.logger, http.StatusOK, result)
}

// Logout handles POST /api/auth/logout
// Revokes the current token and clears the session cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.userService.Logout(r.Context()); err != nil {
		WriteError(w, h.logger, err)
		return
	}

	if h.sessions != nil {
		if err := h.sessions.Clear(w, r); err != nil {
			h.logger.Warn("Failed to clear session cookie", zap.Error(err))
		}
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Logged out"}); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userService.Me(r.Context())
	if err != nil {
		WriteError(w, h.logger, err)
		return
	}
	writeData(w, h.logger, http.StatusOK, user)
}
