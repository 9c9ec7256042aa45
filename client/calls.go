package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/mcpjungle/mcpbridge/pkg/types"
)

// ListCalls returns the most recent tool calls, newest first.
// server is optional and restricts the list to one MCP server. A non-positive limit uses the server default.
func (c *Client) ListCalls(server string, limit int) ([]types.ToolCallRecord, error) {
	u, _ := c.constructAPIEndpoint("/calls")

	q := url.Values{}
	if server != "" {
		q.Set("server", server)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}

	var records []types.ToolCallRecord
	if err := c.do(req, http.StatusOK, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// GetCall returns a single tool call record by its request id
func (c *Client) GetCall(requestID string) (*types.ToolCallRecord, error) {
	u, _ := c.constructAPIEndpoint("/calls/" + url.PathEscape(requestID))

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}

	var record types.ToolCallRecord
	if err := c.do(req, http.StatusOK, &record); err != nil {
		return nil, err
	}
	return &record, nil
}
