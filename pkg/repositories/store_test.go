package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/database"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

func TestBuildListWhere_ProgrammerReportScope(t *testing.T) {
	where := buildListWhere(reportTable, models.ListFilter{}, policy.Scope{UserID: 3, Columns: []string{"user_id"}})

	assert.Equal(t, ` WHERE ("r"."user_id" = $1)`, where.sql())
	assert.Equal(t, []any{int64(3)}, where.args)
}

func TestBuildListWhere_AdminUnfiltered(t *testing.T) {
	where := buildListWhere(reportTable, models.ListFilter{}, policy.Scope{UserID: 1})

	assert.Empty(t, where.sql())
	assert.Empty(t, where.args)
}

func TestBuildListWhere_TaskVisibilityUsesOneArgument(t *testing.T) {
	where := buildListWhere(taskTable, models.ListFilter{}, policy.Scope{UserID: 8, Columns: []string{"assigned_to", "assigned_by"}})

	assert.Equal(t, ` WHERE ("assigned_to" = $1 OR "assigned_by" = $1)`, where.sql())
	assert.Equal(t, []any{int64(8)}, where.args)
}

func TestBuildListWhere_AllFilters(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	owner := int64(5)

	where := buildListWhere(reportTable, models.ListFilter{
		Status:   models.ReportStatusSubmitted,
		DateFrom: &from,
		DateTo:   &to,
		Search:   " 50%_off ",
		UserID:   &owner,
	}, policy.Scope{UserID: 5, Columns: []string{"user_id"}})

	assert.Equal(t,
		` WHERE ("r"."user_id" = $1)`+
			` AND "r"."user_id" = $2`+
			` AND "r"."status" = $3`+
			` AND "r"."report_date"::date >= $4::date`+
			` AND "r"."report_date"::date <= $5::date`+
			` AND ("r"."title" ILIKE $6 OR "r"."description" ILIKE $6)`,
		where.sql())
	assert.Equal(t, []any{int64(5), int64(5), "submitted", from, to, `%50\%\_off%`}, where.args)
}

func TestBuildListWhere_IgnoresStatusForStatuslessTables(t *testing.T) {
	where := buildListWhere(solutionTable, models.ListFilter{Status: "open"}, policy.Scope{})
	assert.Empty(t, where.sql())
}

func TestBuildUpdate_SortsColumnsAndStampsUpdatedAt(t *testing.T) {
	query, args, err := buildUpdate(reportTable, 12, map[string]any{
		"title":        "New title",
		"status":       "submitted",
		"submitted_at": time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.Equal(t,
		`UPDATE "reports" SET "status" = $1, "submitted_at" = $2, "title" = $3, "updated_at" = NOW() WHERE "id" = $4`,
		query)
	require.Len(t, args, 4)
	assert.Equal(t, "submitted", args[0])
	assert.Equal(t, "New title", args[2])
	assert.Equal(t, int64(12), args[3])
}

func TestBuildUpdate_RejectsUnknownColumns(t *testing.T) {
	_, _, err := buildUpdate(reportTable, 1, map[string]any{
		"title":   "ok",
		"user_id": 99,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
	assert.Contains(t, err.Error(), "user_id")
}

func TestBuildUpdate_RejectsEmpty(t *testing.T) {
	_, _, err := buildUpdate(issueTable, 1, map[string]any{})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestBuildUpdate_CoversEveryPolicyWrite(t *testing.T) {
	// Every field the engine may write (proposal or derived) must be updatable.
	specs := map[models.Entity]tableSpec{
		models.EntityReport:      reportTable,
		models.EntityIssue:       issueTable,
		models.EntitySolution:    solutionTable,
		models.EntityTask:        taskTable,
		models.EntityRequest:     requestTable,
		models.EntityPrompt:      promptTable,
		models.EntityFileVersion: fileVersionTable,
	}
	for entity, spec := range specs {
		rule := policy.DefaultRules[entity]
		fields := map[string]any{}
		for _, f := range rule.Fields {
			fields[f] = nil
		}
		for _, trig := range rule.Triggers {
			for _, f := range trig.Timestamps {
				fields[f] = nil
			}
			if trig.ActorField != "" {
				fields[trig.ActorField] = nil
			}
		}
		_, _, err := buildUpdate(spec, 1, fields)
		assert.NoError(t, err, "entity %s", entity)
	}
}

func TestRepositories_RequireScope(t *testing.T) {
	ctx := context.Background()

	_, err := NewReportRepository().GetByID(ctx, 1)
	assert.ErrorIs(t, err, database.ErrNoScope)

	err = NewIssueRepository().ApplyUpdate(ctx, 1, map[string]any{"title": "x"})
	assert.ErrorIs(t, err, database.ErrNoScope)

	_, _, err = NewTaskRepository().List(ctx, models.ListFilter{}, policy.Scope{})
	assert.ErrorIs(t, err, database.ErrNoScope)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `a\%b\_c\\d`, escapeLike(`a%b_c\d`))
}
