package models

// Entity names a record type governed by the update policy.
type Entity string

const (
	EntityUser        Entity = "user"
	EntityReport      Entity = "report"
	EntityIssue       Entity = "issue"
	EntitySolution    Entity = "solution"
	EntityTask        Entity = "task"
	EntityRequest     Entity = "request"
	EntityPrompt      Entity = "prompt"
	EntityFileVersion Entity = "file_version"
)

// AllEntities lists every governed entity.
var AllEntities = []Entity{
	EntityUser,
	EntityReport,
	EntityIssue,
	EntitySolution,
	EntityTask,
	EntityRequest,
	EntityPrompt,
	EntityFileVersion,
}

// OwnedRecord is the part of a persisted row the update policy inspects.
// For tasks, OwnerID is the creator (assigned_by) and AssigneeID is assigned_to.
type OwnedRecord struct {
	Entity     Entity
	ID         int64
	OwnerID    int64
	AssigneeID *int64
	Status     string
}

// IsOwner reports whether userID owns the record.
func (r OwnedRecord) IsOwner(userID int64) bool {
	return r.OwnerID == userID
}

// IsAssignee reports whether userID is the record's assignee.
func (r OwnedRecord) IsAssignee(userID int64) bool {
	return r.AssigneeID != nil && *r.AssigneeID == userID
}
