package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
	"github.com/ekaya-inc/nautilus-reporting/pkg/repositories"
)

// PromptService manages the AI prompt log.
type PromptService interface {
	Create(ctx context.Context, raw map[string]any) (*models.Prompt, error)
	Get(ctx context.Context, id int64) (*models.Prompt, error)
	List(ctx context.Context, filter models.ListFilter) (*models.Page[models.Prompt], error)
	Update(ctx context.Context, id int64, raw map[string]any) (*UpdateResult[models.Prompt], error)
	Delete(ctx context.Context, id int64) error
}

type promptService struct {
	*records[models.Prompt]
	repo repositories.PromptRepository
}

// NewPromptService creates a PromptService.
func NewPromptService(repo repositories.PromptRepository, engine *policy.Engine, logger *zap.Logger) PromptService {
	return &promptService{
		records: newRecords[models.Prompt](models.EntityPrompt, repo, engine, (*models.Prompt).Ownership, logger.Named("prompts")),
		repo:    repo,
	}
}

func (s *promptService) Create(ctx context.Context, raw map[string]any) (*models.Prompt, error) {
	p, err := s.authorizeCreate(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := normalizeProposal(models.EntityPrompt, raw)
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "ai_model", "prompt_text"); err != nil {
		return nil, err
	}

	prompt := &models.Prompt{
		UserID:       p.ID,
		ReportID:     optionalID(fields, "report_id"),
		AIModel:      stringField(fields, "ai_model"),
		PromptText:   stringField(fields, "prompt_text"),
		ResponseText: stringField(fields, "response_text"),
		Category:     optionalString(fields, "category"),
	}

	if err := s.repo.Create(ctx, prompt); err != nil {
		return nil, err
	}

	s.logger.Info("Prompt logged",
		zap.Int64("prompt_id", prompt.ID),
		zap.Int64("user_id", p.ID),
		zap.String("ai_model", prompt.AIModel))
	return prompt, nil
}

var _ PromptService = (*promptService)(nil)
