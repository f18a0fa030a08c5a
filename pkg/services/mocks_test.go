package services

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func testEngine() *policy.Engine {
	return policy.NewEngine(policy.WithClock(func() time.Time { return fixedNow }))
}

func asUser(id int64, role string) context.Context {
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        fmt.Sprintf("jti-%d", id),
			ExpiresAt: jwt.NewNumericDate(fixedNow.Add(time.Hour)),
		},
		UserID:   id,
		Username: fmt.Sprintf("user%d", id),
		Role:     role,
	}
	return auth.WithClaims(context.Background(), claims, "token")
}

func asProgrammer(id int64) context.Context { return asUser(id, models.RoleProgrammer) }
func asAdmin(id int64) context.Context      { return asUser(id, models.RoleAdmin) }

func ptr[T any](v T) *T { return &v }

// memStore is an in-memory repository shared by every entity mock.
// ApplyUpdate records the writes and, if apply is set, applies them.
type memStore[T any] struct {
	rows   map[int64]*T
	nextID int64
	setID  func(*T, int64)
	apply  func(*T, map[string]any)

	created    []*T
	updates    []map[string]any
	deleted    []int64
	lastFilter models.ListFilter
	lastScope  policy.Scope
	count      int

	createErr error
	updateErr error
}

func newMemStore[T any](setID func(*T, int64)) *memStore[T] {
	return &memStore[T]{rows: map[int64]*T{}, nextID: 100, setID: setID}
}

func (m *memStore[T]) put(id int64, row *T) {
	m.setID(row, id)
	m.rows[id] = row
}

func (m *memStore[T]) Create(ctx context.Context, row *T) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.nextID++
	m.put(m.nextID, row)
	m.created = append(m.created, row)
	return nil
}

func (m *memStore[T]) GetByID(ctx context.Context, id int64) (*T, error) {
	row, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("record %d: %w", id, apperrors.ErrNotFound)
	}
	return row, nil
}

func (m *memStore[T]) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*T, int, error) {
	m.lastFilter = filter
	m.lastScope = scope
	out := make([]*T, 0, len(m.rows))
	for _, row := range m.rows {
		out = append(out, row)
	}
	return out, len(out), nil
}

func (m *memStore[T]) Count(ctx context.Context, filter models.ListFilter, scope policy.Scope) (int, error) {
	m.lastFilter = filter
	m.lastScope = scope
	return m.count, nil
}

func (m *memStore[T]) ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates = append(m.updates, maps.Clone(fields))
	if m.apply != nil {
		m.apply(m.rows[id], fields)
	}
	return nil
}

func (m *memStore[T]) Delete(ctx context.Context, id int64) error {
	if _, ok := m.rows[id]; !ok {
		return fmt.Errorf("record %d: %w", id, apperrors.ErrNotFound)
	}
	delete(m.rows, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *memStore[T]) lastUpdate() map[string]any {
	if len(m.updates) == 0 {
		return nil
	}
	return m.updates[len(m.updates)-1]
}

type mockReportRepository struct {
	*memStore[models.Report]
	byStatus map[string]int
}

func newMockReportRepository() *mockReportRepository {
	store := newMemStore(func(r *models.Report, id int64) { r.ID = id })
	store.apply = func(r *models.Report, fields map[string]any) {
		if status, ok := fields["status"].(string); ok {
			r.Status = status
		}
		if title, ok := fields["title"].(string); ok {
			r.Title = title
		}
	}
	return &mockReportRepository{memStore: store}
}

func (m *mockReportRepository) CountByStatus(ctx context.Context, scope policy.Scope) (map[string]int, error) {
	m.lastScope = scope
	return m.byStatus, nil
}

type mockUserRepository struct {
	*memStore[models.User]
	touched []int64
	total   int
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{memStore: newMemStore(func(u *models.User, id int64) { u.ID = id })}
}

func (m *mockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.rows {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, apperrors.ErrNotFound)
}

func (m *mockUserRepository) Directory(ctx context.Context) ([]*models.User, error) {
	var out []*models.User
	for _, u := range m.rows {
		if u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *mockUserRepository) Count(ctx context.Context) (int, error) {
	return m.total + len(m.rows), nil
}

func (m *mockUserRepository) TouchLastLogin(ctx context.Context, id int64) error {
	m.touched = append(m.touched, id)
	return nil
}

// mockTokenService issues predictable tokens and records revocations.
type mockTokenService struct {
	issuedFor []int64
	revoked   []string
}

func (m *mockTokenService) Issue(ctx context.Context, user *models.User) (string, *auth.Claims, error) {
	m.issuedFor = append(m.issuedFor, user.ID)
	claims := &auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "issued-jti",
			ExpiresAt: jwt.NewNumericDate(fixedNow.Add(24 * time.Hour)),
		},
		UserID: user.ID,
		Role:   user.Role,
	}
	return fmt.Sprintf("token-for-%d", user.ID), claims, nil
}

func (m *mockTokenService) Validate(ctx context.Context, token string) (*auth.Claims, error) {
	return nil, auth.ErrInvalidToken
}

func (m *mockTokenService) Revoke(ctx context.Context, claims *auth.Claims) error {
	m.revoked = append(m.revoked, claims.ID)
	return nil
}
