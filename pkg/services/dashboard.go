package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/auth"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
	"github.com/ekaya-inc/nautilus-reporting/pkg/repositories"
)

// DashboardService summarises the records a principal can see.
type DashboardService interface {
	Stats(ctx context.Context) (*models.DashboardStats, error)
}

type statusCounter interface {
	Count(ctx context.Context, filter models.ListFilter, scope policy.Scope) (int, error)
}

type dashboardService struct {
	reports  repositories.ReportRepository
	issues   repositories.IssueRepository
	tasks    repositories.TaskRepository
	requests repositories.RequestRepository
	prompts  repositories.PromptRepository
	engine   *policy.Engine
	logger   *zap.Logger
}

// NewDashboardService creates a DashboardService.
func NewDashboardService(
	reports repositories.ReportRepository,
	issues repositories.IssueRepository,
	tasks repositories.TaskRepository,
	requests repositories.RequestRepository,
	prompts repositories.PromptRepository,
	engine *policy.Engine,
	logger *zap.Logger,
) DashboardService {
	return &dashboardService{
		reports:  reports,
		issues:   issues,
		tasks:    tasks,
		requests: requests,
		prompts:  prompts,
		engine:   engine,
		logger:   logger.Named("dashboard"),
	}
}

// Stats counts each entity under the principal's visibility scope.
func (s *dashboardService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	p, err := auth.RequirePrincipal(ctx)
	if err != nil {
		return nil, err
	}

	reportScope, err := s.engine.Visibility(models.EntityReport, p)
	if err != nil {
		return nil, err
	}
	byStatus, err := s.reports.CountByStatus(ctx, reportScope)
	if err != nil {
		return nil, err
	}

	stats := &models.DashboardStats{ReportsByStatus: byStatus}

	counts := []struct {
		entity models.Entity
		repo   statusCounter
		status string
		dest   *int
	}{
		{models.EntityIssue, s.issues, models.IssueStatusOpen, &stats.OpenIssues},
		{models.EntityTask, s.tasks, models.TaskStatusPending, &stats.PendingTasks},
		{models.EntityRequest, s.requests, models.RequestStatusPending, &stats.PendingRequests},
		{models.EntityPrompt, s.prompts, "", &stats.PromptsLogged},
	}
	for _, c := range counts {
		scope, err := s.engine.Visibility(c.entity, p)
		if err != nil {
			return nil, err
		}
		n, err := c.repo.Count(ctx, models.ListFilter{Status: c.status}, scope)
		if err != nil {
			return nil, err
		}
		*c.dest = n
	}

	s.logger.Debug("Dashboard stats computed", zap.Int64("user_id", p.ID))
	return stats, nil
}

var _ DashboardService = (*dashboardService)(nil)
