package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// RequestRepository defines the interface for request data access.
type RequestRepository interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id int64) (*models.Request, error)
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Request, int, error)
	Count(ctx context.Context, filter models.ListFilter, scope policy.Scope) (int, error)
	ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
}

var requestTable = tableSpec{
	Table: "requests",
	Updatable: []string{
		"title", "description", "request_type", "priority", "status",
		"response", "assigned_to", "completed_at",
	},
	OwnerColumn:   "user_id",
	DateColumn:    "created_at",
	SearchColumns: []string{"title", "description"},
	HasStatus:     true,
	OrderBy:       `"created_at" DESC`,
}

const requestSelect = `
	SELECT id, user_id, assigned_to, title, description, request_type, priority,
	       status, response, completed_at, created_at, updated_at
	FROM requests`

type requestRepository struct{}

// NewRequestRepository creates a new request repository.
func NewRequestRepository() RequestRepository {
	return &requestRepository{}
}

func scanRequest(row pgx.Row) (*models.Request, error) {
	var q models.Request
	err := row.Scan(
		&q.ID, &q.UserID, &q.AssignedTo, &q.Title, &q.Description, &q.RequestType,
		&q.Priority, &q.Status, &q.Response, &q.CompletedAt, &q.CreatedAt, &q.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *requestRepository) Create(ctx context.Context, request *models.Request) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO requests (user_id, assigned_to, title, description, request_type, priority, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		request.UserID, request.AssignedTo, request.Title, request.Description,
		request.RequestType, request.Priority, request.Status,
	).Scan(&request.ID, &request.CreatedAt, &request.UpdatedAt)
	if err != nil {
		return translateError(err, "create request")
	}
	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id int64) (*models.Request, error) {
	return getOne(ctx, "request", id, requestSelect+" WHERE id = $1", scanRequest)
}

func (r *requestRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Request, int, error) {
	return listRows(ctx, requestTable, requestSelect, filter, scope, scanRequest)
}

func (r *requestRepository) Count(ctx context.Context, filter models.ListFilter, scope policy.Scope) (int, error) {
	return countRows(ctx, requestTable, filter, scope)
}

func (r *requestRepository) ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error {
	return applyUpdate(ctx, requestTable, id, fields)
}

func (r *requestRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, requestTable, id)
}

var _ RequestRepository = (*requestRepository)(nil)
