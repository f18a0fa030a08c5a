package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// PromptRepository defines the interface for prompt log data access.
type PromptRepository interface {
	Create(ctx context.Context, prompt *models.Prompt) error
	GetByID(ctx context.Context, id int64) (*models.Prompt, error)
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Prompt, int, error)
	Count(ctx context.Context, filter models.ListFilter, scope policy.Scope) (int, error)
	ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
}

var promptTable = tableSpec{
	Table:         "prompts",
	Updatable:     []string{"report_id", "ai_model", "prompt_text", "response_text", "category"},
	OwnerColumn:   "user_id",
	DateColumn:    "created_at",
	SearchColumns: []string{"prompt_text", "response_text", "ai_model"},
	OrderBy:       `"created_at" DESC`,
}

const promptSelect = `
	SELECT id, user_id, report_id, ai_model, prompt_text, response_text, category,
	       created_at, updated_at
	FROM prompts`

type promptRepository struct{}

// NewPromptRepository creates a new prompt repository.
func NewPromptRepository() PromptRepository {
	return &promptRepository{}
}

func scanPrompt(row pgx.Row) (*models.Prompt, error) {
	var p models.Prompt
	err := row.Scan(
		&p.ID, &p.UserID, &p.ReportID, &p.AIModel, &p.PromptText, &p.ResponseText,
		&p.Category, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *promptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO prompts (user_id, report_id, ai_model, prompt_text, response_text, category)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		prompt.UserID, prompt.ReportID, prompt.AIModel, prompt.PromptText, prompt.ResponseText, prompt.Category,
	).Scan(&prompt.ID, &prompt.CreatedAt, &prompt.UpdatedAt)
	if err != nil {
		return translateError(err, "create prompt")
	}
	return nil
}

func (r *promptRepository) GetByID(ctx context.Context, id int64) (*models.Prompt, error) {
	return getOne(ctx, "prompt", id, promptSelect+" WHERE id = $1", scanPrompt)
}

func (r *promptRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Prompt, int, error) {
	return listRows(ctx, promptTable, promptSelect, filter, scope, scanPrompt)
}

func (r *promptRepository) Count(ctx context.Context, filter models.ListFilter, scope policy.Scope) (int, error) {
	return countRows(ctx, promptTable, filter, scope)
}

func (r *promptRepository) ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error {
	return applyUpdate(ctx, promptTable, id, fields)
}

func (r *promptRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, promptTable, id)
}

var _ PromptRepository = (*promptRepository)(nil)
