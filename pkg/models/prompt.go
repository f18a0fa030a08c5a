package models

import (
	"time"
)

// Prompt is a logged AI-assistant prompt/response pair.
type Prompt struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	ReportID     *int64    `json:"report_id,omitempty"`
	AIModel      string    `json:"ai_model"`
	PromptText   string    `json:"prompt_text"`
	ResponseText string    `json:"response_text"`
	Category     *string   `json:"category,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Ownership returns the ownership view of the prompt.
func (p *Prompt) Ownership() OwnedRecord {
	return OwnedRecord{Entity: EntityPrompt, ID: p.ID, OwnerID: p.UserID}
}
