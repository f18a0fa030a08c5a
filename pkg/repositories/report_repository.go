package repositories

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// ReportRepository defines the interface for report data access.
type ReportRepository interface {
	Create(ctx context.Context, report *models.Report) error
	GetByID(ctx context.Context, id int64) (*models.Report, error)
	List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Report, int, error)
	ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error
	Delete(ctx context.Context, id int64) error
	// CountByStatus returns the number of visible reports per status.
	CountByStatus(ctx context.Context, scope policy.Scope) (map[string]int, error)
}

var reportTable = tableSpec{
	Table: "reports",
	Alias: "r",
	Updatable: []string{
		"report_date", "title", "description", "hours_worked", "status",
		"review_notes", "submitted_at", "reviewed_at", "reviewed_by",
	},
	OwnerColumn:   "user_id",
	DateColumn:    "report_date",
	SearchColumns: []string{"title", "description"},
	HasStatus:     true,
	OrderBy:       `"r"."report_date" DESC, "r"."created_at" DESC`,
}

const reportSelect = `
	SELECT r.id, r.user_id, u.username, r.report_date, r.title, r.description,
	       r.hours_worked, r.status, r.review_notes, r.submitted_at, r.reviewed_at,
	       r.reviewed_by, r.created_at, r.updated_at
	FROM reports r
	JOIN users u ON u.id = r.user_id`

// reportRepository implements ReportRepository using PostgreSQL.
type reportRepository struct{}

// NewReportRepository creates a new report repository.
func NewReportRepository() ReportRepository {
	return &reportRepository{}
}

func scanReport(row pgx.Row) (*models.Report, error) {
	var r models.Report
	err := row.Scan(
		&r.ID, &r.UserID, &r.Username, &r.ReportDate, &r.Title, &r.Description,
		&r.HoursWorked, &r.Status, &r.ReviewNotes, &r.SubmittedAt, &r.ReviewedAt,
		&r.ReviewedBy, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Create inserts a report. ID and timestamps are filled in from the database.
func (r *reportRepository) Create(ctx context.Context, report *models.Report) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO reports (user_id, report_date, title, description, hours_worked, status, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err = c.QueryRow(ctx, query,
		report.UserID,
		report.ReportDate,
		report.Title,
		report.Description,
		report.HoursWorked,
		report.Status,
		report.SubmittedAt,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
	if err != nil {
		return translateError(err, "create report")
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	return getOne(ctx, "report", id, reportSelect+" WHERE r.id = $1", scanReport)
}

func (r *reportRepository) List(ctx context.Context, filter models.ListFilter, scope policy.Scope) ([]*models.Report, int, error) {
	return listRows(ctx, reportTable, reportSelect, filter, scope, scanReport)
}

func (r *reportRepository) ApplyUpdate(ctx context.Context, id int64, fields map[string]any) error {
	return applyUpdate(ctx, reportTable, id, fields)
}

func (r *reportRepository) Delete(ctx context.Context, id int64) error {
	return deleteByID(ctx, reportTable, id)
}

func (r *reportRepository) CountByStatus(ctx context.Context, scope policy.Scope) (map[string]int, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	where := buildListWhere(reportTable, models.ListFilter{}, scope)
	query := "SELECT r.status, COUNT(*) FROM " + reportTable.from() + where.sql() + " GROUP BY r.status"

	rows, err := c.Query(ctx, query, where.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count reports: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int, len(models.ReportStatuses))
	for _, s := range models.ReportStatuses {
		counts[s] = 0
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan report count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// Ensure reportRepository implements ReportRepository at compile time.
var _ ReportRepository = (*reportRepository)(nil)
