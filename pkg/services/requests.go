package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
	"github.com/ekaya-inc/nautilus-reporting/pkg/repositories"
)

// RequestService manages requests raised by users.
type RequestService interface {
	Create(ctx context.Context, raw map[string]any) (*models.Request, error)
	Get(ctx context.Context, id int64) (*models.Request, error)
	List(ctx context.Context, filter models.ListFilter) (*models.Page[models.Request], error)
	Update(ctx context.Context, id int64, raw map[string]any) (*UpdateResult[models.Request], error)
	Delete(ctx context.Context, id int64) error
}

type requestService struct {
	*records[models.Request]
	repo repositories.RequestRepository
}

// NewRequestService creates a RequestService.
func NewRequestService(repo repositories.RequestRepository, engine *policy.Engine, logger *zap.Logger) RequestService {
	return &requestService{
		records: newRecords[models.Request](models.EntityRequest, repo, engine, (*models.Request).Ownership, logger.Named("requests")),
		repo:    repo,
	}
}

// Create files a pending request. Only admins may assign a handler up front.
func (s *requestService) Create(ctx context.Context, raw map[string]any) (*models.Request, error) {
	p, err := s.authorizeCreate(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := normalizeProposal(models.EntityRequest, raw)
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "title"); err != nil {
		return nil, err
	}

	request := &models.Request{
		UserID:      p.ID,
		Title:       stringField(fields, "title"),
		Description: stringField(fields, "description"),
		RequestType: "other",
		Priority:    "medium",
		Status:      models.RequestStatusPending,
	}
	if requestType := stringField(fields, "request_type"); requestType != "" {
		request.RequestType = requestType
	}
	if priority := stringField(fields, "priority"); priority != "" {
		request.Priority = priority
	}
	if assignee := optionalID(fields, "assigned_to"); assignee != nil {
		if !p.IsAdmin() {
			err := &policy.ViolationError{Entity: models.EntityRequest, PrincipalID: p.ID, Reason: "assign"}
			s.auditor.LogPolicyViolation(ctx, "create", err, []string{"assigned_to"})
			return nil, err
		}
		request.AssignedTo = assignee
	}

	if err := s.repo.Create(ctx, request); err != nil {
		return nil, err
	}

	s.logger.Info("Request created",
		zap.Int64("request_id", request.ID),
		zap.Int64("user_id", p.ID),
		zap.String("request_type", request.RequestType))
	return request, nil
}

var _ RequestService = (*requestService)(nil)
