package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
	"github.com/ekaya-inc/nautilus-reporting/pkg/policy"
)

func newTestRequestService() (RequestService, *memStore[models.Request]) {
	repo := newMemStore(func(r *models.Request, id int64) { r.ID = id })
	return NewRequestService(repo, testEngine(), zap.NewNop()), repo
}

func TestRequestService_Create(t *testing.T) {
	svc, _ := newTestRequestService()

	req, err := svc.Create(asProgrammer(2), map[string]any{
		"title":        "VPN access",
		"request_type": "access",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), req.UserID)
	assert.Equal(t, "access", req.RequestType)
	assert.Equal(t, "medium", req.Priority)
	assert.Equal(t, models.RequestStatusPending, req.Status)
	assert.Nil(t, req.AssignedTo)
}

func TestRequestService_CreateAssignmentIsAdminOnly(t *testing.T) {
	svc, repo := newTestRequestService()

	_, err := svc.Create(asProgrammer(2), map[string]any{"title": "x", "assigned_to": 3})
	assert.ErrorIs(t, err, policy.ErrPolicyViolation)
	assert.Empty(t, repo.created)

	req, err := svc.Create(asAdmin(1), map[string]any{"title": "x", "assigned_to": 3})
	require.NoError(t, err)
	assert.Equal(t, ptr(int64(3)), req.AssignedTo)
}

func TestRequestService_AssigneeCompletes(t *testing.T) {
	svc, repo := newTestRequestService()
	repo.put(1, &models.Request{UserID: 2, AssignedTo: ptr(int64(3)), Title: "x", Status: models.RequestStatusInProgress})

	result, err := svc.Update(asProgrammer(3), 1, map[string]any{
		"status":   "completed",
		"response": "Granted",
		"priority": "low",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"priority"}, result.Denied)
	assert.Equal(t, map[string]any{
		"status":       "completed",
		"response":     "Granted",
		"completed_at": fixedNow,
	}, repo.lastUpdate())
}
