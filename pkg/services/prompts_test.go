package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ekaya-inc/nautilus-reporting/pkg/apperrors"
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
)

func TestPromptService_CreateRequiresModelAndText(t *testing.T) {
	repo := newMemStore(func(p *models.Prompt, id int64) { p.ID = id })
	svc := NewPromptService(repo, testEngine(), zap.NewNop())

	_, err := svc.Create(asProgrammer(2), map[string]any{"prompt_text": "explain this"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	prompt, err := svc.Create(asProgrammer(2), map[string]any{
		"ai_model":    "gpt-4o",
		"prompt_text": "explain this",
		"category":    "debugging",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), prompt.UserID)
	assert.Equal(t, "gpt-4o", prompt.AIModel)
	require.NotNil(t, prompt.Category)
	assert.Equal(t, "debugging", *prompt.Category)
	assert.Empty(t, prompt.ResponseText)
}

func TestPromptService_ListScopedToOwner(t *testing.T) {
	repo := newMemStore(func(p *models.Prompt, id int64) { p.ID = id })
	svc := NewPromptService(repo, testEngine(), zap.NewNop())

	_, err := svc.List(asProgrammer(2), models.ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), repo.lastScope.UserID)
	assert.Equal(t, []string{"user_id"}, repo.lastScope.Columns)

	_, err = svc.List(asAdmin(1), models.ListFilter{})
	require.NoError(t, err)
	assert.True(t, repo.lastScope.Unrestricted())
}
