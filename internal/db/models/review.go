// Package models defines the persisted archive records.
package models

import (
	"encoding/json"

	"gorm.io/gorm"
)

// Review is the archived outcome of a terminal review job.
type Review struct {
	gorm.Model
	JobID         string          `json:"job_id" gorm:"not null;uniqueIndex"`
	DocumentTitle string          `json:"document_title"`
	Prompt        string          `json:"prompt" gorm:"type:text"`
	Status        string          `json:"status" gorm:"index"`
	Result        json.RawMessage `json:"result,omitempty" gorm:"type:jsonb"`
	Error         string          `json:"error,omitempty" gorm:"type:text"`
}

// ListOptions controls pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}
