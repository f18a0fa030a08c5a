package models

import (
	"time"
)

// FileVersion is one entry in a file's change history.
// VersionNumber is assigned on insert and increases per file path.
type FileVersion struct {
	ID                int64     `json:"id"`
	UserID            int64     `json:"user_id"`
	FilePath          string    `json:"file_path"`
	VersionNumber     int       `json:"version_number"`
	ChangeDescription string    `json:"change_description"`
	ContentHash       *string   `json:"content_hash,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Ownership returns the ownership view of the file version.
func (f *FileVersion) Ownership() OwnedRecord {
	return OwnedRecord{Entity: EntityFileVersion, ID: f.ID, OwnerID: f.UserID}
}
