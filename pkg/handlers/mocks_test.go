package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/services"
)

// headerAuthService accepts "Bearer <role>:<id>" without any signature.
type headerAuthService struct{}

func (headerAuthService) ValidateRequest(r *http.Request) (*auth.Claims, string, error) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return nil, "", auth.ErrMissingAuthorization
	}
	role, idStr, ok := strings.Cut(raw, ":")
	if !ok {
		return nil, "", auth.ErrInvalidAuthFormat
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, "", auth.ErrInvalidAuthFormat
	}
	return &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{ID: "jti-" + idStr},
		UserID:           id,
		Role:             role,
	}, raw, nil
}

func passThrough(next http.HandlerFunc) http.HandlerFunc { return next }

// newTestMux wires the API routes with fake auth and no database.
func newTestMux(t *testing.T, svc Services) *http.ServeMux {
	t.Helper()
	guard, err := auth.NewRouteGuard(auth.DefaultGuardPolicy, auth.GuardModeEnforce, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build guard: %v", err)
	}
	mux := http.NewServeMux()
	RegisterAPIRoutes(mux, svc, auth.NewMiddleware(headerAuthService{}, zap.NewNop()), guard, nil, passThrough, zap.NewNop())
	return mux
}

// mockRecordService is a configurable RecordService.
type mockRecordService[T any] struct {
	record *T
	page   *models.Page[T]
	denied []string
	err    error

	capturedID     int64
	capturedRaw    map[string]any
	capturedFilter models.ListFilter
}

func (m *mockRecordService[T]) Create(ctx context.Context, raw map[string]any) (*T, error) {
	m.capturedRaw = raw
	return m.record, m.err
}

func (m *mockRecordService[T]) Get(ctx context.Context, id int64) (*T, error) {
	m.capturedID = id
	return m.record, m.err
}

func (m *mockRecordService[T]) List(ctx context.Context, filter models.ListFilter) (*models.Page[T], error) {
	m.capturedFilter = filter
	return m.page, m.err
}

func (m *mockRecordService[T]) Update(ctx context.Context, id int64, raw map[string]any) (*services.UpdateResult[T], error) {
	m.capturedID = id
	m.capturedRaw = raw
	if m.err != nil {
		return nil, m.err
	}
	return &services.UpdateResult[T]{Record: m.record, Denied: m.denied}, nil
}

func (m *mockRecordService[T]) Delete(ctx context.Context, id int64) error {
	m.capturedID = id
	return m.err
}

// mockReportService satisfies services.ReportService.
type mockReportService struct{ mockRecordService[models.Report] }

// mockUserService satisfies services.UserService.
type mockUserService struct {
	mockRecordService[models.User]
	login      *services.LoginResult
	loginErr   error
	directory  []*models.User
	loggedOut  bool
	registered map[string]any
}

func (m *mockUserService) Register(ctx context.Context, raw map[string]any) (*models.User, error) {
	m.registered = raw
	return m.record, m.err
}

func (m *mockUserService) Login(ctx context.Context, username, password string) (*services.LoginResult, error) {
	if m.loginErr != nil {
		return nil, m.loginErr
	}
	return m.login, nil
}

func (m *mockUserService) Logout(ctx context.Context) error {
	if _, ok := auth.GetClaims(ctx); !ok {
		return apperrors.ErrUnauthenticated
	}
	m.loggedOut = true
	return nil
}

func (m *mockUserService) Me(ctx context.Context) (*models.User, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}
	return &models.User{ID: p.ID, Role: p.Role}, nil
}

func (m *mockUserService) Directory(ctx context.Context) ([]*models.User, error) {
	return m.directory, nil
}

func (m *mockUserService) EnsureBootstrapAdmin(ctx context.Context, username, email, password string) (*models.User, error) {
	return nil, nil
}

type mockDashboardService struct {
	stats *models.DashboardStats
}

func (m *mockDashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	if _, err := auth.RequirePrincipal(ctx); err != nil {
		return nil, err
	}
	return m.stats, nil
}
