package models

import (
	"time"
)

// Task status values.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// TaskStatuses contains all valid task status values.
var TaskStatuses = []string{TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusCancelled}

// Priorities shared by tasks and requests.
var Priorities = []string{"low", "medium", "high", "urgent"}

// Task is a unit of work assigned by one user to another.
type Task struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	AssignedTo  int64      `json:"assigned_to"`
	AssignedBy  int64      `json:"assigned_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Ownership returns the ownership view of the task.
// The creator (assigned_by) is the owner; assigned_to is the assignee.
func (t *Task) Ownership() OwnedRecord {
	assignee := t.AssignedTo
	return OwnedRecord{Entity: EntityTask, ID: t.ID, OwnerID: t.AssignedBy, AssigneeID: &assignee, Status: t.Status}
}
