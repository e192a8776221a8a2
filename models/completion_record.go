package models

import (
	"time"

	"github.com/google/uuid"
)

// CompletionStatus is the terminal state of one dispatched completion
type CompletionStatus string

const (
	CompletionStatusSucceeded CompletionStatus = "succeeded"
	CompletionStatusFailed    CompletionStatus = "failed"
)

// CompletionRecord is the persisted outcome of one dispatch. It carries
// accounting only; conversation content is never stored.
type CompletionRecord struct {
	ID       uuid.UUID        `json:"id" db:"id"`
	Provider string           `json:"provider" db:"provider"`
	Model    string           `json:"model" db:"model"`
	Status   CompletionStatus `json:"status" db:"status"`

	PromptTokens     int `json:"prompt_tokens" db:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens" db:"completion_tokens"`
	TotalTokens      int `json:"total_tokens" db:"total_tokens"`
	LatencyMs        int `json:"latency_ms" db:"latency_ms"`

	ErrorMessage *string   `json:"error_message,omitempty" db:"error_message"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the CompletionRecord model
func (CompletionRecord) TableName() string {
	return "completion_records"
}
