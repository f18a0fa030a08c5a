package models

import (
	"time"
)

// Issue status values.
const (
	IssueStatusOpen       = "open"
	IssueStatusInProgress = "in_progress"
	IssueStatusResolved   = "resolved"
	IssueStatusClosed     = "closed"
)

// IssueStatuses contains all valid issue status values.
var IssueStatuses = []string{IssueStatusOpen, IssueStatusInProgress, IssueStatusResolved, IssueStatusClosed}

// Issue severity values.
var IssueSeverities = []string{"low", "medium", "high", "critical"}

// Issue is a problem raised by a user, optionally linked to a report.
type Issue struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	ReportID    *int64     `json:"report_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Severity    string     `json:"severity"`
	Status      string     `json:"status"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Ownership returns the ownership view of the issue. Issues have no assignee.
func (i *Issue) Ownership() OwnedRecord {
	return OwnedRecord{Entity: EntityIssue, ID: i.ID, OwnerID: i.UserID, Status: i.Status}
}
