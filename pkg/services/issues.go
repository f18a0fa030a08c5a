package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
	"github.com/ekaya-inc/nautilus-reporting/pkg/repositories"
)

// IssueService manages reported issues.
type IssueService interface {
	Create(ctx context.Context, raw map[string]any) (*models.Issue, error)
	Get(ctx context.Context, id int64) (*models.Issue, error)
	List(ctx context.Context, filter models.ListFilter) (*models.Page[models.Issue], error)
	Update(ctx context.Context, id int64, raw map[string]any) (*UpdateResult[models.Issue], error)
	Delete(ctx context.Context, id int64) error
}

type issueService struct {
	*records[models.Issue]
	repo repositories.IssueRepository
}

// NewIssueService creates an IssueService.
func NewIssueService(repo repositories.IssueRepository, engine *policy.Engine, logger *zap.Logger) IssueService {
	return &issueService{
		records: newRecords[models.Issue](models.EntityIssue, repo, engine, (*models.Issue).Ownership, logger.Named("issues")),
		repo:    repo,
	}
}

// Create opens an issue. Status always starts at open.
func (s *issueService) Create(ctx context.Context, raw map[string]any) (*models.Issue, error) {
	p, err := s.authorizeCreate(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := normalizeProposal(models.EntityIssue, raw)
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "title"); err != nil {
		return nil, err
	}

	issue := &models.Issue{
		UserID:      p.ID,
		ReportID:    optionalID(fields, "report_id"),
		Title:       stringField(fields, "title"),
		Description: stringField(fields, "description"),
		Severity:    "medium",
		Status:      models.IssueStatusOpen,
	}
	if severity := stringField(fields, "severity"); severity != "" {
		issue.Severity = severity
	}

	if err := s.repo.Create(ctx, issue); err != nil {
		return nil, err
	}

	s.logger.Info("Issue created",
		zap.Int64("issue_id", issue.ID),
		zap.Int64("user_id", p.ID),
		zap.String("severity", issue.Severity))
	return issue, nil
}

var _ IssueService = (*issueService)(nil)
