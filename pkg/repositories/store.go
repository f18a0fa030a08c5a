package repositories

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/lo"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/database"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

// tableSpec describes how list and update queries address one table.
type tableSpec struct {
	// Table is the SQL table name.
	Table string
	// Alias qualifies columns when the select joins other tables.
	Alias string
	// Updatable is the column whitelist for partial updates.
	Updatable []string
	// OwnerColumn is matched by ListFilter.UserID.
	OwnerColumn string
	// DateColumn is compared against ListFilter.DateFrom/DateTo.
	DateColumn string
	// SearchColumns are matched with ILIKE by ListFilter.Search.
	SearchColumns []string
	// HasStatus enables ListFilter.Status.
	HasStatus bool
	// OrderBy is the ORDER BY clause for list queries.
	OrderBy string
}

// col returns the sanitized, alias-qualified column identifier.
func (s tableSpec) col(name string) string {
	if s.Alias == "" {
		return pgx.Identifier{name}.Sanitize()
	}
	return pgx.Identifier{s.Alias, name}.Sanitize()
}

// from returns the FROM target including the alias.
func (s tableSpec) from() string {
	if s.Alias == "" {
		return pgx.Identifier{s.Table}.Sanitize()
	}
	return pgx.Identifier{s.Table}.Sanitize() + " " + pgx.Identifier{s.Alias}.Sanitize()
}

// whereClause collects conditions and their positional arguments.
type whereClause struct {
	conds []string
	args  []any
}

// add appends a condition. Each "?" in cond is replaced by the next
// placeholder, all bound to the same value.
func (w *whereClause) add(cond string, value any) {
	w.args = append(w.args, value)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereClause) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// buildListWhere renders the filter and visibility scope as a WHERE clause.
func buildListWhere(spec tableSpec, filter models.ListFilter, scope policy.Scope) *whereClause {
	w := &whereClause{}

	if !scope.Unrestricted() {
		ors := lo.Map(scope.Columns, func(c string, _ int) string {
			return spec.col(c) + " = ?"
		})
		w.add("("+strings.Join(ors, " OR ")+")", scope.UserID)
	}

	if filter.UserID != nil && spec.OwnerColumn != "" {
		w.add(spec.col(spec.OwnerColumn)+" = ?", *filter.UserID)
	}
	if filter.Status != "" && spec.HasStatus {
		w.add(spec.col("status")+" = ?", filter.Status)
	}
	if spec.DateColumn != "" {
		if filter.DateFrom != nil {
			w.add(spec.col(spec.DateColumn)+"::date >= ?::date", *filter.DateFrom)
		}
		if filter.DateTo != nil {
			w.add(spec.col(spec.DateColumn)+"::date <= ?::date", *filter.DateTo)
		}
	}
	if search := strings.TrimSpace(filter.Search); search != "" && len(spec.SearchColumns) > 0 {
		ors := lo.Map(spec.SearchColumns, func(c string, _ int) string {
			return spec.col(c) + " ILIKE ?"
		})
		w.add("("+strings.Join(ors, " OR ")+")", "%"+escapeLike(search)+"%")
	}

	return w
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildUpdate renders a single-row partial UPDATE. Field names must be in
// the table's whitelist. updated_at is always stamped.
func buildUpdate(spec tableSpec, id int64, fields map[string]any) (string, []any, error) {
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("%w: no fields to update", apperrors.ErrValidation)
	}

	names := lo.Keys(fields)
	slices.Sort(names)

	if unknown := lo.Without(names, spec.Updatable...); len(unknown) > 0 {
		return "", nil, fmt.Errorf("%w: cannot update %s column(s) %s",
			apperrors.ErrValidation, spec.Table, strings.Join(unknown, ", "))
	}

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		args = append(args, fields[name])
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{name}.Sanitize(), len(args)))
	}
	sets = append(sets, `"updated_at" = NOW()`)
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE \"id\" = $%d",
		pgx.Identifier{spec.Table}.Sanitize(), strings.Join(sets, ", "), len(args))
	return query, args, nil
}

// conn returns the request-scoped connection from context.
func conn(ctx context.Context) (*pgxpool.Conn, error) {
	scope, ok := database.GetScope(ctx)
	if !ok || scope.Conn == nil {
		return nil, database.ErrNoScope
	}
	return scope.Conn, nil
}

// applyUpdate executes a partial update of one row.
func applyUpdate(ctx context.Context, spec tableSpec, id int64, fields map[string]any) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query, args, err := buildUpdate(spec, id, fields)
	if err != nil {
		return err
	}

	result, err := c.Exec(ctx, query, args...)
	if err != nil {
		return translateError(err, "update "+spec.Table)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", spec.Table, id, apperrors.ErrNotFound)
	}
	return nil
}

// deleteByID removes one row.
func deleteByID(ctx context.Context, spec tableSpec, id int64) error {
	c, err := conn(ctx)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE "id" = $1`, pgx.Identifier{spec.Table}.Sanitize())
	result, err := c.Exec(ctx, query, id)
	if err != nil {
		return translateError(err, "delete "+spec.Table)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", spec.Table, id, apperrors.ErrNotFound)
	}
	return nil
}

// listRows runs the count and page queries for a list request.
// selectSQL is everything up to and including the FROM/JOIN clauses.
func listRows[T any](
	ctx context.Context,
	spec tableSpec,
	selectSQL string,
	filter models.ListFilter,
	scope policy.Scope,
	scan func(pgx.Row) (*T, error),
) ([]*T, int, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, 0, err
	}

	filter.Normalize()
	where := buildListWhere(spec, filter, scope)

	total, err := countRows(ctx, spec, filter, scope)
	if err != nil {
		return nil, 0, err
	}

	args := append(slices.Clone(where.args), filter.Limit, filter.Offset())
	pageSQL := fmt.Sprintf("%s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		selectSQL, where.sql(), spec.OrderBy, len(args)-1, len(args))

	rows, err := c.Query(ctx, pageSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list %s: %w", spec.Table, err)
	}
	defer rows.Close()

	items := make([]*T, 0, filter.Limit)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan %s: %w", spec.Table, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating %s: %w", spec.Table, err)
	}

	return items, total, nil
}

// getOne runs a single-row select and maps no rows to ErrNotFound.
func getOne[T any](ctx context.Context, table string, id int64, query string, scan func(pgx.Row) (*T, error)) (*T, error) {
	c, err := conn(ctx)
	if err != nil {
		return nil, err
	}

	item, err := scan(c.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s %d: %w", table, id, apperrors.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get %s: %w", table, err)
	}
	return item, nil
}

// PostgreSQL error codes mapped to application errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgNotNullViolation    = "23502"
)

// translateError maps constraint violations to apperrors sentinels.
func translateError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, apperrors.ErrConflict, pgErr.ConstraintName)
		case pgForeignKeyViolation, pgCheckViolation, pgNotNullViolation:
			return fmt.Errorf("%s: %w: %s", op, apperrors.ErrValidation, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

// countRows counts visible rows matching the filter.
func countRows(ctx context.Context, spec tableSpec, filter models.ListFilter, scope policy.Scope) (int, error) {
	c, err := conn(ctx)
	if err != nil {
		return 0, err
	}

	where := buildListWhere(spec, filter, scope)
	var total int
	if err := c.QueryRow(ctx, "SELECT COUNT(*) FROM "+spec.from()+where.sql(), where.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", spec.Table, err)
	}
	return total, nil
}
