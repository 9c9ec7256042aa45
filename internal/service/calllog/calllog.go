// Package calllog provides the audit log of tool calls made through mcpbridge.
package calllog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcpjungle/mcpbridge/internal/model"
	"github.com/mcpjungle/mcpbridge/pkg/types"
	"gorm.io/gorm"
)

const (
	// DefaultListLimit is the number of records returned by List when no limit is given.
	DefaultListLimit = 50

	// MaxListLimit caps the number of records returned by List.
	MaxListLimit = 1000
)

// ErrNotFound is returned when a tool call record does not exist.
var ErrNotFound = errors.New("tool call not found")

// CallLogService stores and queries tool call records.
type CallLogService struct {
	db *gorm.DB
}

func NewCallLogService(db *gorm.DB) *CallLogService {
	return &CallLogService{db: db}
}

// Record persists a finished tool call.
func (s *CallLogService) Record(ctx context.Context, call *model.ToolCall) error {
	if call.RequestID == "" {
		return errors.New("tool call record must have a request id")
	}
	if err := s.db.WithContext(ctx).Create(call).Error; err != nil {
		return fmt.Errorf("failed to record tool call %s: %w", call.RequestID, err)
	}
	return nil
}

// List returns the most recent tool calls, newest first.
// A non-positive limit means DefaultListLimit.
func (s *CallLogService) List(ctx context.Context, limit int) ([]model.ToolCall, error) {
	limit = clampLimit(limit)
	var calls []model.ToolCall
	err := s.db.WithContext(ctx).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&calls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tool calls: %w", err)
	}
	return calls, nil
}

// ListByServer returns the most recent tool calls made to one MCP server, newest first.
func (s *CallLogService) ListByServer(ctx context.Context, serverName string, limit int) ([]model.ToolCall, error) {
	limit = clampLimit(limit)
	var calls []model.ToolCall
	err := s.db.WithContext(ctx).
		Where("server_name = ?", serverName).
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&calls).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tool calls of MCP server %s: %w", serverName, err)
	}
	return calls, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// Get returns the tool call with the given request id.
func (s *CallLogService) Get(ctx context.Context, requestID string) (*model.ToolCall, error) {
	var call model.ToolCall
	err := s.db.WithContext(ctx).Where("request_id = ?", requestID).First(&call).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get tool call %s: %w", requestID, err)
	}
	return &call, nil
}

// ToRecord converts a stored tool call into its API representation.
func ToRecord(c *model.ToolCall) types.ToolCallRecord {
	return types.ToolCallRecord{
		RequestID:  c.RequestID,
		Server:     c.ServerName,
		Tool:       c.ToolName,
		Outcome:    string(c.Outcome),
		Error:      c.Error,
		DurationMs: c.DurationMs,
		CreatedAt:  c.CreatedAt.UTC().Format(time.RFC3339),
	}
}
