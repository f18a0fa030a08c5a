package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// IssueRepository defines the interface for issue data access.
type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	GetByID(ctx context.Context, id int64) (*models.Issue, error)
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Issue, int, error)
	Count(ctx context.Context, filter models.ListFilter, scope policy.Scope) (int, error)
	ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
}

var issueTable = tableSpec{
	Table:         "issues",
	Updatable:     []string{"report_id", "title", "description", "severity", "status", "resolved_at"},
	OwnerColumn:   "user_id",
	DateColumn:    "created_at",
	SearchColumns: []string{"title", "description"},
	HasStatus:     true,
	OrderBy:       `"created_at" DESC`,
}

const issueSelect = `
	SELECT id, user_id, report_id, title, description, severity, status,
	       resolved_at, created_at, updated_at
	FROM issues`

type issueRepository struct{}

// NewIssueRepository creates a new issue repository.
func NewIssueRepository() IssueRepository {
	return &issueRepository{}
}

func scanIssue(row pgx.Row) (*models.Issue, error) {
	var i models.Issue
	err := row.Scan(
		&i.ID, &i.UserID, &i.ReportID, &i.Title, &i.Description, &i.Severity,
		&i.Status, &i.ResolvedAt, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func (r *issueRepository) Create(ctx context.Context, issue *models.Issue) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO issues (user_id, report_id, title, description, severity, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		issue.UserID, issue.ReportID, issue.Title, issue.Description, issue.Severity, issue.Status,
	).Scan(&issue.ID, &issue.CreatedAt, &issue.UpdatedAt)
	if err != nil {
		return translateError(err, "create issue")
	}
	return nil
}

func (r *issueRepository) GetByID(ctx context.Context, id int64) (*models.Issue, error) {
	return getOne(ctx, "issue", id, issueSelect+" WHERE id = $1", scanIssue)
}

func (r *issueRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Issue, int, error) {
	return listRows(ctx, issueTable, issueSelect, filter, scope, scanIssue)
}

func (r *issueRepository) Count(ctx context.Context, filter models.ListFilter, scope policy.Scope) (int, error) {
	return countRows(ctx, issueTable, filter, scope)
}

func (r *issueRepository) ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error {
	return applyUpdate(ctx, issueTable, id, fields)
}

func (r *issueRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, issueTable, id)
}

var _ IssueRepository = (*issueRepository)(nil)
