package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// SolutionRepository defines the interface for solution data access.
type SolutionRepository interface {
	Create(ctx context.Context, solution *models.Solution) error
	GetByID(ctx context.Context, id int64) (*models.Solution, error)
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Solution, int, error)
	ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
}

var solutionTable = tableSpec{
	Table:         "solutions",
	Updatable:     []string{"issue_id", "title", "description", "code_snippet"},
	OwnerColumn:   "user_id",
	DateColumn:    "created_at",
	SearchColumns: []string{"title", "description", "code_snippet"},
	OrderBy:       `"created_at" DESC`,
}

const solutionSelect = `
	SELECT id, user_id, issue_id, title, description, code_snippet, created_at, updated_at
	FROM solutions`

type solutionRepository struct{}

// NewSolutionRepository creates a new solution repository.
func NewSolutionRepository() SolutionRepository {
	return &solutionRepository{}
}

func scanSolution(row pgx.Row) (*models.Solution, error) {
	var s models.Solution
	err := row.Scan(&s.ID, &s.UserID, &s.IssueID, &s.Title, &s.Description, &s.CodeSnippet, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *solutionRepository) Create(ctx context.Context, solution *models.Solution) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO solutions (user_id, issue_id, title, description, code_snippet)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		solution.UserID, solution.IssueID, solution.Title, solution.Description, solution.CodeSnippet,
	).Scan(&solution.ID, &solution.CreatedAt, &solution.UpdatedAt)
	if err != nil {
		return translateError(err, "create solution")
	}
	return nil
}

func (r *solutionRepository) GetByID(ctx context.Context, id int64) (*models.Solution, error) {
	return getOne(ctx, "solution", id, solutionSelect+" WHERE id = $1", scanSolution)
}

func (r *solutionRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Solution, int, error) {
	return listRows(ctx, solutionTable, solutionSelect, filter, scope, scanSolution)
}

func (r *solutionRepository) ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error {
	return applyUpdate(ctx, solutionTable, id, fields)
}

func (r *solutionRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, solutionTable, id)
}

var _ SolutionRepository = (*solutionRepository)(nil)
