package model

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ToolCallOutcome is the classification of a finished tool call.
type ToolCallOutcome string

const (
	// ToolCallOutcomeSuccess means the result matched the text/image content union.
	ToolCallOutcomeSuccess ToolCallOutcome = "success"
	// ToolCallOutcomeFallback means the call succeeded but the result was returned as a raw serialization.
	ToolCallOutcomeFallback ToolCallOutcome = "fallback"
	// ToolCallOutcomeError means the call failed at the transport or protocol level.
	ToolCallOutcomeError ToolCallOutcome = "error"
)

// ToolCall is an audit record of one tool invocation made through mcpbridge.
// Results are deliberately not stored, only their classification.
type ToolCall struct {
	gorm.Model

	// RequestID correlates this record with the log lines emitted for the same call.
	RequestID string `json:"request_id" gorm:"uniqueIndex;not null"`

	// ServerName and ToolName identify the tool without the canonical "<server>__" prefix.
	ServerName string `json:"server_name" gorm:"index;not null"`
	ToolName   string `json:"tool_name" gorm:"not null"`

	// Arguments is the JSON object that was sent as the tool input.
	Arguments datatypes.JSON `json:"arguments" gorm:"type:jsonb"`

	Outcome ToolCallOutcome `json:"outcome" gorm:"type:varchar(20);not null"`
	Error   string          `json:"error"`

	DurationMs int64 `json:"duration_ms"`
}
