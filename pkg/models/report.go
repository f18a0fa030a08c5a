package models

import (
	"time"
)

// Report status values.
const (
	ReportStatusDraft     = "draft"
	ReportStatusSubmitted = "submitted"
	ReportStatusReviewed  = "reviewed"
)

// ReportStatuses contains all valid report status values.
var ReportStatuses = []string{ReportStatusDraft, ReportStatusSubmitted, ReportStatusReviewed}

// Report is a user's daily activity report.
type Report struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Username    string     `json:"username,omitempty"` // Joined from users, read-only
	ReportDate  time.Time  `json:"report_date"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	HoursWorked float64    `json:"hours_worked"`
	Status      string     `json:"status"`
	ReviewNotes *string    `json:"review_notes,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ReviewedBy  *int64     `json:"reviewed_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Ownership returns the ownership view of the report.
func (r *Report) Ownership() OwnedRecord {
	return OwnedRecord{Entity: EntityReport, ID: r.ID, OwnerID: r.UserID, Status: r.Status}
}
