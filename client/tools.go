package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mcpjungle/mcpbridge/pkg/types"
)

// ListTools returns the tools of every connected MCP server, under their canonical names
func (c *Client) ListTools() ([]types.ToolSpec, error) {
	u, _ := c.constructAPIEndpoint("/tools")

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}

	var tools []types.ToolSpec
	if err := c.do(req, http.StatusOK, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// GetTool returns the spec of a single tool by its canonical name
func (c *Client) GetTool(name string) (*types.ToolSpec, error) {
	u, _ := c.constructAPIEndpoint("/tool")
	u += "?" + url.Values{"name": {name}}.Encode()

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}

	var tool types.ToolSpec
	if err := c.do(req, http.StatusOK, &tool); err != nil {
		return nil, err
	}
	return &tool, nil
}

// InvokeTool calls a tool through mcpbridge and returns its result
func (c *Client) InvokeTool(name string, input map[string]any) (types.CallResult, error) {
	u, _ := c.constructAPIEndpoint("/tools/invoke")

	body, err := json.Marshal(&types.ToolInvokeInput{Name: name, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool input: %w", err)
	}

	req, err := c.newRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var res types.ToolInvokeResult
	if err := c.do(req, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return res.CallResult(), nil
}

// EnableTools enables a single tool, or all tools of a server when entity is a server name
func (c *Client) EnableTools(entity string) ([]string, error) {
	return c.toggleTools("/tools/enable", entity)
}

// DisableTools disables a single tool, or all tools of a server when entity is a server name
func (c *Client) DisableTools(entity string) ([]string, error) {
	return c.toggleTools("/tools/disable", entity)
}

func (c *Client) toggleTools(path, entity string) ([]string, error) {
	u, _ := c.constructAPIEndpoint(path)

	body, err := json.Marshal(&types.ToolToggleInput{Entity: entity})
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var res types.ToolToggleResult
	if err := c.do(req, http.StatusOK, &res); err != nil {
		return nil, err
	}
	return res.Tools, nil
}
