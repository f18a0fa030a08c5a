package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// FileVersionRepository defines the interface for file version history access.
type FileVersionRepository interface {
	// Create inserts a version and assigns the next version number for its path.
	Create(ctx context.Context, fv *models.FileVersion) error
	GetByID(ctx context.Context, id int64) (*models.FileVersion, error)
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.FileVersion, int, error)
	ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
}

var fileVersionTable = tableSpec{
	Table:         "file_versions",
	Updatable:     []string{"file_path", "change_description", "content_hash"},
	OwnerColumn:   "user_id",
	DateColumn:    "created_at",
	SearchColumns: []string{"file_path", "change_description"},
	OrderBy:       `"created_at" DESC`,
}

const fileVersionSelect = `
	SELECT id, user_id, file_path, version_number, change_description, content_hash,
	       created_at, updated_at
	FROM file_versions`

type fileVersionRepository struct{}

// NewFileVersionRepository creates a new file version repository.
func NewFileVersionRepository() FileVersionRepository {
	return &fileVersionRepository{}
}

func scanFileVersion(row pgx.Row) (*models.FileVersion, error) {
	var f models.FileVersion
	err := row.Scan(
		&f.ID, &f.UserID, &f.FilePath, &f.VersionNumber, &f.ChangeDescription,
		&f.ContentHash, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// Create numbers versions per file path. A transaction-scoped advisory lock
// on the path serializes concurrent inserts for the same file.
func (r *fileVersionRepository) Create(ctx context.Context, fv *models.FileVersion) (err error) {
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

	if _, err = tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", fv.FilePath); err != nil {
		return fmt.Errorf("failed to lock file path: %w", err)
	}

	query := `
		INSERT INTO file_versions (user_id, file_path, version_number, change_description, content_hash)
		SELECT $1, $2, COALESCE(MAX(version_number), 0) + 1, $3, $4
		FROM file_versions WHERE file_path = $2
		RETURNING id, version_number, created_at, updated_at`

	err = tx.QueryRow(ctx, query, fv.UserID, fv.FilePath, fv.ChangeDescription, fv.ContentHash).
		Scan(&fv.ID, &fv.VersionNumber, &fv.CreatedAt, &fv.UpdatedAt)
	if err != nil {
		return translateError(err, "create file version")
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (r *fileVersionRepository) GetByID(ctx context.Context, id int64) (*models.FileVersion, error) {
	return getOne(ctx, "file version", id, fileVersionSelect+" WHERE id = $1", scanFileVersion)
}

func (r *fileVersionRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.FileVersion, int, error) {
	return listRows(ctx, fileVersionTable, fileVersionSelect, filter, scope, scanFileVersion)
}

func (r *fileVersionRepository) ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error {
	return applyUpdate(ctx, fileVersionTable, id, fields)
}

func (r *fileVersionRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, fileVersionTable, id)
}

var _ FileVersionRepository = (*fileVersionRepository)(nil)
