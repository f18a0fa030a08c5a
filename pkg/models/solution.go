package models

import (
	"time"
)

// Solution records how a problem was solved.
type Solution struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	IssueID     *int64    `json:"issue_id,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CodeSnippet *string   `json:"code_snippet,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Ownership returns the ownership view of the solution.
func (s *Solution) Ownership() OwnedRecord {
	return OwnedRecord{Entity: EntitySolution, ID: s.ID, OwnerID: s.UserID}
}
