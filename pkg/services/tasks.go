package services

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
	"github.com/ekaya-inc/nautilus-reporting/pkg/repositories"
)

// TaskService manages assigned tasks.
type TaskService interface {
	Create(ctx context.Context, raw map[string]any) (*models.Task, error)
	Get(ctx context.Context, id int64) (*models.Task, error)
	List(ctx context.Context, filter models.ListFilter) (*models.Page[models.Task], error)
	Update(ctx context.Context, id int64, raw map[string]any) (*UpdateResult[models.Task], error)
	Delete(ctx context.Context, id int64) error
}

type taskService struct {
	*records[models.Task]
	repo repositories.TaskRepository
}

// NewTaskService creates a TaskService.
func NewTaskService(repo repositories.TaskRepository, engine *policy.Engine, logger *zap.Logger) TaskService {
	return &taskService{
		records: newRecords[models.Task](models.EntityTask, repo, engine, (*models.Task).Ownership, logger.Named("tasks")),
		repo:    repo,
	}
}

// Create records a task assigned by the principal. Without assigned_to the
// task is assigned to its creator. New tasks are always pending.
func (s *taskService) Create(ctx context.Context, raw map[string]any) (*models.Task, error) {
	p, err := s.authorizeCreate(ctx)
	if err != nil {
		return nil, err
	}

	fields, err := normalizeProposal(models.EntityTask, raw)
	if err != nil {
		return nil, err
	}
	if err := requireFields(fields, "title"); err != nil {
		return nil, err
	}

	task := &models.Task{
		Title:       stringField(fields, "title"),
		Description: stringField(fields, "description"),
		Priority:    "medium",
		Status:      models.TaskStatusPending,
		DueDate:     optionalDate(fields, "due_date"),
		AssignedTo:  p.ID,
		AssignedBy:  p.ID,
	}
	if priority := stringField(fields, "priority"); priority != "" {
		task.Priority = priority
	}
	if assignee := optionalID(fields, "assigned_to"); assignee != nil {
		task.AssignedTo = *assignee
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("Task created",
		zap.Int64("task_id", task.ID),
		zap.Int64("assigned_by", task.AssignedBy),
		zap.Int64("assigned_to", task.AssignedTo))
	return task, nil
}

var _ TaskService = (*taskService)(nil)
