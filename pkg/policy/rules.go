package policy

import (
	"github.com/ekaya-inc/nautilus-reporting/pkg/models"
)

// Trigger derives extra writes when a record's status first moves into Status.
type Trigger struct {
	// Status is the new status value that fires the trigger.
	Status string
	// Timestamps are set to the current time.
	Timestamps []string
	// ActorField, if set, receives the acting principal's ID.
	ActorField string
	// AdminOnly triggers fire only for admin principals.
	AdminOnly bool
	// SkipFrom lists previous statuses that suppress the trigger, in addition
	// to the new status itself.
	SkipFrom []string
}

// Rule is the field-visibility and trigger table for one entity.
type Rule struct {
	// Fields is every field a proposal may name for this entity.
	Fields []string
	// OwnerFields are writable by a non-admin owner.
	OwnerFields []string
	// AssigneeFields are writable by a non-admin assignee.
	AssigneeFields []string
	// NonAdminStatuses restricts the status values a non-admin may set.
	// Nil means any status value.
	NonAdminStatuses []string
	// Triggers are evaluated in order after the writable set is decided.
	Triggers []Trigger
	// DeletableStatuses restricts non-admin deletes to records in these
	// statuses. Nil means any status.
	DeletableStatuses []string
	// CreateAdminOnly restricts creation to admins.
	CreateAdminOnly bool
	// VisibilityColumns are the columns matched against the principal ID
	// when a non-admin lists rows.
	VisibilityColumns []string
}

// DefaultRules is the rule table used by NewEngine.
var DefaultRules = map[models.Entity]Rule{
	models.EntityUser: {
		Fields:            []string{"username", "email", "full_name", "password", "role", "is_active"},
		OwnerFields:       []string{"email", "full_name", "password"},
		CreateAdminOnly:   true,
		VisibilityColumns: []string{"id"},
	},
	models.EntityReport: {
		Fields:           []string{"report_date", "title", "description", "hours_worked", "status", "review_notes"},
		OwnerFields:      []string{"report_date", "title", "description", "hours_worked", "status"},
		NonAdminStatuses: []string{models.ReportStatusDraft, models.ReportStatusSubmitted},
		Triggers: []Trigger{
			{
				Status:     models.ReportStatusSubmitted,
				Timestamps: []string{"submitted_at"},
			},
			{
				Status:     models.ReportStatusReviewed,
				Timestamps: []string{"reviewed_at"},
				ActorField: "reviewed_by",
				AdminOnly:  true,
			},
		},
		DeletableStatuses: []string{models.ReportStatusDraft},
		VisibilityColumns: []string{"user_id"},
	},
	models.EntityIssue: {
		Fields:      []string{"report_id", "title", "description", "severity", "status"},
		OwnerFields: []string{"report_id", "title", "description", "severity", "status"},
		Triggers: []Trigger{
			{
				Status:     models.IssueStatusResolved,
				Timestamps: []string{"resolved_at"},
				SkipFrom:   []string{models.IssueStatusResolved, models.IssueStatusClosed},
			},
			{
				Status:     models.IssueStatusClosed,
				Timestamps: []string{"resolved_at"},
				SkipFrom:   []string{models.IssueStatusResolved, models.IssueStatusClosed},
			},
		},
		VisibilityColumns: []string{"user_id"},
	},
	models.EntitySolution: {
		Fields:            []string{"issue_id", "title", "description", "code_snippet"},
		OwnerFields:       []string{"issue_id", "title", "description", "code_snippet"},
		VisibilityColumns: []string{"user_id"},
	},
	models.EntityTask: {
		Fields:            []string{"title", "description", "priority", "due_date", "status", "assigned_to"},
		OwnerFields:       []string{"title", "description", "priority", "due_date", "status"},
		AssigneeFields:    []string{"status"},
		VisibilityColumns: []string{"assigned_to", "assigned_by"},
	},
	models.EntityRequest: {
		Fields:         []string{"title", "description", "request_type", "priority", "status", "response", "assigned_to"},
		OwnerFields:    []string{"title", "description", "request_type", "priority", "status"},
		AssigneeFields: []string{"status", "response"},
		Triggers: []Trigger{
			{
				Status:     models.RequestStatusCompleted,
				Timestamps: []string{"completed_at"},
			},
		},
		VisibilityColumns: []string{"user_id", "assigned_to"},
	},
	models.EntityPrompt: {
		Fields:            []string{"report_id", "ai_model", "prompt_text", "response_text", "category"},
		OwnerFields:       []string{"report_id", "ai_model", "prompt_text", "response_text", "category"},
		VisibilityColumns: []string{"user_id"},
	},
	models.EntityFileVersion: {
		Fields:            []string{"file_path", "change_description", "content_hash"},
		OwnerFields:       []string{"change_description"},
		VisibilityColumns: []string{"user_id"},
	},
}
