package testhelpers

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
)

var fixtureSeq atomic.Int64

// UniqueName returns a name unique within the test run, for columns with
// unique constraints in the shared database.
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d_%d", prefix, time.Now().UnixNano()%1_000_000, fixtureSeq.Add(1))
}

// CreateUser inserts a user row directly and returns it.
// The password hash is a placeholder; use the user service to test logins.
func (e *EngineDB) CreateUser(t *testing.T, role string) *models.User {
	t.Helper()

	username := UniqueName("user")
	u := &models.User{
		Username: username,
		Email:    username + "@example.test",
		FullName: "Test " + username,
		Role:     role,
		IsActive: true,
	}

	err := e.DB.Pool.QueryRow(context.Background(), `
		INSERT INTO users (username, email, password_hash, full_name, role, is_active)
		VALUES ($1, $2, 'x', $3, $4, TRUE)
		RETURNING id, created_at, updated_at`,
		u.Username, u.Email, u.FullName, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return u
}
