package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Scope wraps a request-scoped connection and ensures cleanup.
// Row visibility is decided by the policy engine, so the connection carries
// no session state; UserID is kept for attribution in logs.
type Scope struct {
	Conn   *pgxpool.Conn
	UserID int64 // 0 for anonymous routes such as login
}

// Close releases the connection to the pool.
// This MUST be called, typically with defer scope.Close().
func (s *Scope) Close() {
	if s.Conn == nil {
		return
	}
	s.Conn.Release()
	s.Conn = nil
}

// NewScope acquires a pooled connection on behalf of userID.
func (db *DB) NewScope(ctx context.Context, userID int64) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Scope{Conn: conn, UserID: userID}, nil
}
