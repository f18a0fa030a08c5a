package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// GetByUsername returns the user including its password hash.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.User, int, error)
	// Directory lists active users with identity fields only, for assignment pickers.
	Directory(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	// ApplyUpdate returns ErrLastAdmin if the update would leave no active admin.
	ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error
	// Delete returns ErrLastAdmin when removing the last active admin.
	Delete(ctx context.Context, id int64) error
	TouchLastLogin(ctx context.Context, id int64) error
}

var userTable = tableSpec{
	Table:         "users",
	Updatable:     []string{"username", "email", "password_hash", "full_name", "role", "is_active"},
	DateColumn:    "created_at",
	SearchColumns: []string{"username", "email", "full_name"},
	OrderBy:       `"created_at" DESC`,
}

const userSelect = `
	SELECT id, username, email, password_hash, full_name, role, is_active,
	       last_login_at, created_at, updated_at
	FROM users`

// userRepository implements UserRepository using PostgreSQL.
type userRepository struct{}

// NewUserRepository creates a new user repository.
func NewUserRepository() UserRepository {
	return &userRepository{}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Role,
		&u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a user. Username and email must be unique (ErrConflict).
func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO users (username, email, password_hash, full_name, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.FullName,
		user.Role,
		user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return translateError(err, "create user")
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	return getOne(ctx, "user", id, userSelect+" WHERE id = $1", scanUser)
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	user, err := scanUser(c.QueryRow(ctx, userSelect+" WHERE username = $1", username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("user %q: %w", username, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

func (r *userRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.User, int, error) {
	return listRows(ctx, userTable, userSelect, filter, scope, scanUser)
}

func (r *userRepository) Directory(ctx context.Context) ([]*models.User, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := c.Query(ctx, `
		SELECT id, username, full_name, role
		FROM users
		WHERE is_active
		ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("failed to list user directory: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.FullName, &u.Role); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.IsActive = true
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

func (r *userRepository) Count(ctx context.Context) (int, error) {
	return countRows(ctx, userTable, models.ListFilter{}, policy.Scope{})
}

// ApplyUpdate runs in a transaction so the last-admin check and the write
// see the same admin set.
func (r *userRepository) ApplyUpdate(ctx context.Context, id int64, fields map[string]any) (err error) {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query, args, err := buildUpdate(userTable, id, fields)
	if err != nil {
		return err
	}

	tx, err := c.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if demotesAdmin(fields) {
		if err = ensureOtherAdmin(ctx, tx, id); err != nil {
			return err
		}
	}

	result, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return translateError(err, "update user")
	}
	if result.RowsAffected() == 0 {
		err = fmt.Errorf("user %d: %w", id, apperrors.ErrNotFound)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Delete removes a user, refusing to remove the last active admin.
func (r *userRepository) Delete(ctx context.Context, id int64) (err error) {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	tx, err := c.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = ensureOtherAdmin(ctx, tx, id); err != nil {
		return err
	}

	result, err := tx.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translateError(err, "delete user")
	}
	if result.RowsAffected() == 0 {
		err = fmt.Errorf("user %d: %w", id, apperrors.ErrNotFound)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id int64) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	if _, err := c.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// demotesAdmin reports whether the update could remove admin rights.
func demotesAdmin(fields map[string]any) bool {
	if role, ok := fields["role"]; ok && role != models.RoleAdmin {
		return true
	}
	if active, ok := fields["is_active"]; ok && active != true {
		return true
	}
	return false
}

// ensureOtherAdmin returns ErrLastAdmin if id is the only active admin.
// Admin rows are locked so concurrent demotions serialize.
func ensureOtherAdmin(ctx context.Context, tx pgx.Tx, id int64) error {
	rows, err := tx.Query(ctx, `SELECT id FROM users WHERE role = 'admin' AND is_active FOR UPDATE`)
	if err != nil {
		return fmt.Errorf("failed to lock admins: %w", err)
	}
	adminIDs, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return fmt.Errorf("failed to read admins: %w", err)
	}

	isAdmin := false
	for _, adminID := range adminIDs {
		if adminID == id {
			isAdmin = true
			break
		}
	}
	if isAdmin && len(adminIDs) <= 1 {
		return apperrors.ErrLastAdmin
	}
	return nil
}

// Ensure userRepository implements UserRepository at compile time.
var _ UserRepository = (*userRepository)(nil)
