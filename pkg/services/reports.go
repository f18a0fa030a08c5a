package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
	"github.com/ekaya-inc/nautilus-reporting/pkg/repositories"
)

// ReportService manages daily reports.
type ReportService interface {
	Create(ctx context.Context, raw map[string]any) (*models.Report, error)
	Get(ctx context.Context, id int64) (*models.Report, error)
	List(ctx context.Context, filter models.ListFilter) (*models.Page[models.Report], error)
	Update(ctx context.Context, id int64, raw map[string]any) (*UpdateResult[models.Report], error)
	Delete(ctx context.Context, id int64) error
}

type reportService struct {
	*records[models.Report]
	repo repositories.ReportRepository
}

// NewReportService creates a ReportService.
func NewReportService(repo repositories.ReportRepository, engine *policy.Engine, logger *zap.Logger) ReportService {
	return &reportService{
		records: newRecords[models.Report](models.EntityReport, repo, engine, (*models.Report).Ownership, logger.Named("reports")),
		repo:    repo,
	}
}

// Create files a report for the principal. New reports start as draft or
// submitted; submitting on create stamps submitted_at.
func (s *reportService) Create(ctx context.Context, raw map[string]any) (*models.Report, error) {
	p, err := s.authorizeCreate(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := normalizeProposal(models.EntityReport, raw)
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "report_date", "title"); err != nil {
		return nil, err
	}

	report := &models.Report{
		UserID:      p.ID,
		ReportDate:  fields["report_date"].(time.Time),
		Title:       stringField(fields, "title"),
		Description: stringField(fields, "description"),
		Status:      models.ReportStatusDraft,
	}
	if hours, ok := fields["hours_worked"].(float64); ok {
		report.HoursWorked = hours
	}
	if status := stringField(fields, "status"); status != "" {
		if status != models.ReportStatusDraft && status != models.ReportStatusSubmitted {
			return nil, fmt.Errorf("%w: new reports must be draft or submitted", apperrors.ErrValidation)
		}
		report.Status = status
	}
	if report.Status == models.ReportStatusSubmitted {
		now := s.engine.Now()
		report.SubmittedAt = &now
	}

	if err := s.repo.Create(ctx, report); err != nil {
		return nil, err
	}

	s.logger.Info("Report created",
		zap.Int64("report_id", report.ID),
		zap.Int64("user_id", p.ID),
		zap.String("status", report.Status))
	return report, nil
}

var _ ReportService = (*reportService)(nil)
