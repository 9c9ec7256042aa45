package client

import (
	"fmt"
	"net/http"
	"net/url"
)

// DescriptionSource selects which tool descriptions to fetch.
type DescriptionSource string

const (
	DescriptionSourceAll     DescriptionSource = "all"
	DescriptionSourceBuiltin DescriptionSource = "builtin"
	DescriptionSourceMCP     DescriptionSource = "mcp"
)

// GetDescriptions returns the tool name to usage mapping meant for an agent's system prompt
func (c *Client) GetDescriptions(source DescriptionSource) (map[string]string, error) {
	u, _ := c.constructAPIEndpoint("/descriptions")
	if source != "" {
		u += "?" + url.Values{"source": {string(source)}}.Encode()
	}

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}

	descriptions := make(map[string]string)
	if err := c.do(req, http.StatusOK, &descriptions); err != nil {
		return nil, err
	}
	return descriptions, nil
}

// ResetDescriptions drops the cached built-in tool descriptions in mcpbridge
func (c *Client) ResetDescriptions() error {
	u, _ := c.constructAPIEndpoint("/descriptions/reset")

	req, err := c.newRequest(http.MethodPost, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request to %s: %w", u, err)
	}
	return c.do(req, http.StatusNoContent, nil)
}
