package policy

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
)

// Admin-only fields are whatever the rule recognises but grants to neither
// owners nor assignees.
func TestDefaultRules_AdminOnlyFields(t *testing.T) {
	want := map[models.Entity][]string{
		models.EntityUser:        {"username", "role", "is_active"},
		models.EntityReport:      {"review_notes"},
		models.EntityIssue:       {},
		models.EntitySolution:    {},
		models.EntityTask:        {"assigned_to"},
		models.EntityRequest:     {"assigned_to"},
		models.EntityPrompt:      {},
		models.EntityFileVersion: {"file_path", "content_hash"},
	}

	assert.Len(t, DefaultRules, len(want))
	for entity, rule := range DefaultRules {
		t.Run(string(entity), func(t *testing.T) {
			adminOnly := lo.Without(rule.Fields, append(rule.OwnerFields, rule.AssigneeFields...)...)
			assert.ElementsMatch(t, want[entity], adminOnly)

			// Every non-admin grant must be a recognised field.
			assert.Empty(t, lo.Without(rule.OwnerFields, rule.Fields...))
			assert.Empty(t, lo.Without(rule.AssigneeFields, rule.Fields...))
		})
	}
}

func TestDefaultRules_ReviewIsAdminOnly(t *testing.T) {
	rule := DefaultRules[models.EntityReport]
	assert.NotContains(t, rule.NonAdminStatuses, models.ReportStatusReviewed)

	review, ok := lo.Find(rule.Triggers, func(tr Trigger) bool { return tr.Status == models.ReportStatusReviewed })
	assert.True(t, ok)
	assert.True(t, review.AdminOnly)
	assert.Equal(t, "reviewed_by", review.ActorField)
}
