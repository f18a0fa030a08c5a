package models

import (
	"time"
)

// Request status values.
const (
	RequestStatusPending    = "pending"
	RequestStatusInProgress = "in_progress"
	RequestStatusCompleted  = "completed"
	RequestStatusRejected   = "rejected"
)

// RequestStatuses contains all valid request status values.
var RequestStatuses = []string{RequestStatusPending, RequestStatusInProgress, RequestStatusCompleted, RequestStatusRejected}

// RequestTypes contains all valid request type values.
var RequestTypes = []string{"feature", "bug", "access", "other"}

// Request is something a user asks for, optionally assigned to someone who handles it.
type Request struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	AssignedTo  *int64     `json:"assigned_to,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	RequestType string     `json:"request_type"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Response    *string    `json:"response,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Ownership returns the ownership view of the request.
func (r *Request) Ownership() OwnedRecord {
	return OwnedRecord{Entity: EntityRequest, ID: r.ID, OwnerID: r.UserID, AssigneeID: r.AssignedTo, Status: r.Status}
}
