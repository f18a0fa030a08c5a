package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// TaskRepository defines the interface for task data access.
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id int64) (*models.Task, error)
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Task, int, error)
	Count(ctx context.Context, filter models.ListFilter, scope policy.Scope) (int, error)
	ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
}

// Tasks filter by assignee; the creator column is only used for visibility.
var taskTable = tableSpec{
	Table:         "tasks",
	Updatable:     []string{"title", "description", "priority", "due_date", "status", "assigned_to"},
	OwnerColumn:   "assigned_to",
	DateColumn:    "created_at",
	SearchColumns: []string{"title", "description"},
	HasStatus:     true,
	OrderBy:       `"created_at" DESC`,
}

const taskSelect = `
	SELECT id, title, description, priority, status, due_date, assigned_to,
	       assigned_by, created_at, updated_at
	FROM tasks`

type taskRepository struct{}

// NewTaskRepository creates a new task repository.
func NewTaskRepository() TaskRepository {
	return &taskRepository{}
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var t models.Task
	err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Priority, &t.Status, &t.DueDate,
		&t.AssignedTo, &t.AssignedBy, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (title, description, priority, status, due_date, assigned_to, assigned_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		task.Title, task.Description, task.Priority, task.Status, task.DueDate, task.AssignedTo, task.AssignedBy,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return translateError(err, "create task")
	}
	return nil
}

func (r *taskRepository) GetByID(ctx context.Context, id int64) (*models.Task, error) {
	return getOne(ctx, "task", id, taskSelect+" WHERE id = $1", scanTask)
}

func (r *taskRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Task, int, error) {
	return listRows(ctx, taskTable, taskSelect, filter, scope, scanTask)
}

func (r *taskRepository) Count(ctx context.Context, filter models.ListFilter, scope policy.Scope) (int, error) {
	return countRows(ctx, taskTable, filter, scope)
}

func (r *taskRepository) ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error {
	return applyUpdate(ctx, taskTable, id, fields)
}

func (r *taskRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, taskTable, id)
}

var _ TaskRepository = (*taskRepository)(nil)
