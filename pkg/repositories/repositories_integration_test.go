//go:build integration

package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
	"github.com/ekaya-inc/nautilus-reporting/pkg/testhelpers"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestReportRepository_ListVisibilityAndOrder(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	admin := engineDB.CreateUser(t, models.RoleAdmin)
	alice := engineDB.CreateUser(t, models.RoleProgrammer)
	bob := engineDB.CreateUser(t, models.RoleProgrammer)
	ctx := engineDB.ScopedContext(t, admin.ID)
	repo := NewReportRepository()

	for _, r := range []*models.Report{
		{UserID: alice.ID, ReportDate: day(2024, 3, 1), Title: "a1", Status: models.ReportStatusDraft},
		{UserID: alice.ID, ReportDate: day(2024, 3, 3), Title: "a3", Status: models.ReportStatusDraft},
		{UserID: bob.ID, ReportDate: day(2024, 3, 2), Title: "b2", Status: models.ReportStatusDraft},
	} {
		require.NoError(t, repo.Create(ctx, r))
	}

	engine := policy.NewEngine()

	aliceScope, err := engine.Visibility(models.EntityReport, models.Principal{ID: alice.ID, Role: models.RoleProgrammer})
	require.NoError(t, err)
	items, total, err := repo.List(ctx, models.ListFilter{}, aliceScope)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, items, 2)
	assert.Equal(t, "a3", items[0].Title)
	assert.Equal(t, "a1", items[1].Title)
	for _, it := range items {
		assert.Equal(t, alice.ID, it.UserID)
		assert.Equal(t, alice.Username, it.Username)
	}

	adminScope, err := engine.Visibility(models.EntityReport, models.Principal{ID: admin.ID, Role: models.RoleAdmin})
	require.NoError(t, err)
	from, to := day(2024, 3, 1), day(2024, 3, 3)
	items, total, err = repo.List(ctx, models.ListFilter{DateFrom: &from, DateTo: &to, Limit: 2}, adminScope)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 3)
	require.Len(t, items, 2)
	assert.False(t, items[0].ReportDate.Before(items[1].ReportDate), "reports must be ordered by report_date desc")
}

func TestReportRepository_ApplyUpdateLeavesOtherFields(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	owner := engineDB.CreateUser(t, models.RoleProgrammer)
	ctx := engineDB.ScopedContext(t, owner.ID)
	repo := NewReportRepository()

	report := &models.Report{
		UserID:      owner.ID,
		ReportDate:  day(2024, 4, 1),
		Title:       "Original",
		Description: "keep me",
		HoursWorked: 6.5,
		Status:      models.ReportStatusDraft,
	}
	require.NoError(t, repo.Create(ctx, report))

	submittedAt := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.ApplyUpdate(ctx, report.ID, map[string]any{
		"status":       models.ReportStatusSubmitted,
		"submitted_at": submittedAt,
	}))

	got, err := repo.GetByID(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", got.Title)
	assert.Equal(t, "keep me", got.Description)
	assert.InDelta(t, 6.5, got.HoursWorked, 0.001)
	assert.Equal(t, models.ReportStatusSubmitted, got.Status)
	require.NotNil(t, got.SubmittedAt)
	assert.True(t, submittedAt.Equal(*got.SubmittedAt))
	assert.True(t, got.UpdatedAt.After(got.CreatedAt) || got.UpdatedAt.Equal(got.CreatedAt))

	// Same user, same date violates the unique constraint.
	dup := &models.Report{UserID: owner.ID, ReportDate: day(2024, 4, 1), Title: "dup", Status: models.ReportStatusDraft}
	assert.ErrorIs(t, repo.Create(ctx, dup), apperrors.ErrConflict)
}

func TestReportRepository_NotFound(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	u := engineDB.CreateUser(t, models.RoleAdmin)
	ctx := engineDB.ScopedContext(t, u.ID)
	repo := NewReportRepository()

	_, err := repo.GetByID(ctx, -1)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.ApplyUpdate(ctx, -1, map[string]any{"title": "x"}), apperrors.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, -1), apperrors.ErrNotFound)
}

func TestTaskRepository_VisibleToAssigneeAndCreator(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	creator := engineDB.CreateUser(t, models.RoleProgrammer)
	assignee := engineDB.CreateUser(t, models.RoleProgrammer)
	outsider := engineDB.CreateUser(t, models.RoleProgrammer)
	ctx := engineDB.ScopedContext(t, creator.ID)
	repo := NewTaskRepository()

	task := &models.Task{
		Title:      testhelpers.UniqueName("task"),
		Priority:   "high",
		Status:     models.TaskStatusPending,
		AssignedTo: assignee.ID,
		AssignedBy: creator.ID,
	}
	require.NoError(t, repo.Create(ctx, task))

	engine := policy.NewEngine()
	count := func(userID int64) int {
		scope, err := engine.Visibility(models.EntityTask, models.Principal{ID: userID, Role: models.RoleProgrammer})
		require.NoError(t, err)
		n, err := repo.Count(ctx, models.ListFilter{Search: task.Title}, scope)
		require.NoError(t, err)
		return n
	}

	assert.Equal(t, 1, count(creator.ID))
	assert.Equal(t, 1, count(assignee.ID))
	assert.Equal(t, 0, count(outsider.ID))
}

func TestFileVersionRepository_NumbersPerPath(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	u := engineDB.CreateUser(t, models.RoleProgrammer)
	ctx := engineDB.ScopedContext(t, u.ID)
	repo := NewFileVersionRepository()

	path := "src/" + testhelpers.UniqueName("main") + ".go"
	other := "src/" + testhelpers.UniqueName("util") + ".go"

	v1 := &models.FileVersion{UserID: u.ID, FilePath: path, ChangeDescription: "init"}
	v2 := &models.FileVersion{UserID: u.ID, FilePath: path, ChangeDescription: "fix"}
	o1 := &models.FileVersion{UserID: u.ID, FilePath: other, ChangeDescription: "init"}
	require.NoError(t, repo.Create(ctx, v1))
	require.NoError(t, repo.Create(ctx, v2))
	require.NoError(t, repo.Create(ctx, o1))

	assert.Equal(t, 1, v1.VersionNumber)
	assert.Equal(t, 2, v2.VersionNumber)
	assert.Equal(t, 1, o1.VersionNumber)
}

func TestUserRepository_LastAdminProtection(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := engineDB.ScopedContext(t, 0)
	repo := NewUserRepository()

	// Demote every existing admin but one created here.
	admin := engineDB.CreateUser(t, models.RoleAdmin)
	_, err := engineDB.DB.Pool.Exec(ctx, `UPDATE users SET is_active = FALSE WHERE role = 'admin' AND id <> $1`, admin.ID)
	require.NoError(t, err)

	assert.ErrorIs(t, repo.ApplyUpdate(ctx, admin.ID, map[string]any{"role": models.RoleProgrammer}), apperrors.ErrLastAdmin)
	assert.ErrorIs(t, repo.ApplyUpdate(ctx, admin.ID, map[string]any{"is_active": false}), apperrors.ErrLastAdmin)
	assert.ErrorIs(t, repo.Delete(ctx, admin.ID), apperrors.ErrLastAdmin)

	// A second admin lifts the restriction.
	second := engineDB.CreateUser(t, models.RoleAdmin)
	assert.NoError(t, repo.ApplyUpdate(ctx, admin.ID, map[string]any{"full_name": "Still Admin"}))
	assert.NoError(t, repo.ApplyUpdate(ctx, second.ID, map[string]any{"role": models.RoleProgrammer}))
}

func TestUserRepository_UsernameConflict(t *testing.T) {
	engineDB := testhelpers.GetEngineDB(t)
	ctx := engineDB.ScopedContext(t, 0)
	repo := NewUserRepository()

	existing := engineDB.CreateUser(t, models.RoleProgrammer)
	dup := &models.User{
		Username:     existing.Username,
		Email:        testhelpers.UniqueName("other") + "@example.test",
		PasswordHash: "x",
		Role:         models.RoleProgrammer,
		IsActive:     true,
	}
	assert.ErrorIs(t, repo.Create(ctx, dup), apperrors.ErrConflict)

	got, err := repo.GetByUsername(ctx, existing.Username)
	require.NoError(t, err)
	assert.Equal(t, existing.ID, got.ID)

	_, err = repo.GetByUsername(ctx, "no-such-user-"+testhelpers.UniqueName("x"))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
