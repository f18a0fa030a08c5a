package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
	"github.com/ekaya-inc/nautilus-reporting/pkg/repositories"
)

// SolutionService manages recorded solutions.
type SolutionService interface {
	Create(ctx context.Context, raw map[string]any) (*models.Solution, error)
	Get(ctx context.Context, id int64) (*models.Solution, error)
	List(ctx context.Context, filter models.ListFilter) (*models.Page[models.Solution], error)
	Update(ctx context.Context, id int64, raw map[string]any) (*UpdateResult[models.Solution], error)
	Delete(ctx context.Context, id int64) error
}

type solutionService struct {
	*records[models.Solution]
	repo repositories.SolutionRepository
}

// NewSolutionService creates a SolutionService.
func NewSolutionService(repo repositories.SolutionRepository, engine *policy.Engine, logger *zap.Logger) SolutionService {
	return &solutionService{
		records: newRecords[models.Solution](models.EntitySolution, repo, engine, (*models.Solution).Ownership, logger.Named("solutions")),
		repo:    repo,
	}
}

func (s *solutionService) Create(ctx context.Context, raw map[string]any) (*models.Solution, error) {
	p, err := s.authorizeCreate(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := normalizeProposal(models.EntitySolution, raw)
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "title"); err != nil {
		return nil, err
	}

	solution := &models.Solution{
		UserID:      p.ID,
		IssueID:     optionalID(fields, "issue_id"),
		Title:       stringField(fields, "title"),
		Description: stringField(fields, "description"),
		CodeSnippet: optionalString(fields, "code_snippet"),
	}

	if err := s.repo.Create(ctx, solution); err != nil {
		return nil, err
	}

	s.logger.Info("Solution created",
		zap.Int64("solution_id", solution.ID),
		zap.Int64("user_id", p.ID))
	return solution, nil
}

var _ SolutionService = (*solutionService)(nil)
