package client

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/mcpjungle/mcpbridge/pkg/types"
)

// ListServers returns the status of every MCP server configured in mcpbridge
func (c *Client) ListServers() ([]*types.McpServer, error) {
	u, _ := c.constructAPIEndpoint("/servers")

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}

	var servers []*types.McpServer
	if err := c.do(req, http.StatusOK, &servers); err != nil {
		return nil, err
	}
	return servers, nil
}

// GetServer returns the status of a single MCP server
func (c *Client) GetServer(name string) (*types.McpServer, error) {
	u, _ := c.constructAPIEndpoint("/servers/" + url.PathEscape(name))

	req, err := c.newRequest(http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}

	var server types.McpServer
	if err := c.do(req, http.StatusOK, &server); err != nil {
		return nil, err
	}
	return &server, nil
}

// ReconnectServer asks mcpbridge to drop its connection to an MCP server and connect again
func (c *Client) ReconnectServer(name string) (*types.McpServer, error) {
	u, _ := c.constructAPIEndpoint("/servers/" + url.PathEscape(name) + "/reconnect")

	req, err := c.newRequest(http.MethodPost, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request to %s: %w", u, err)
	}

	var server types.McpServer
	if err := c.do(req, http.StatusOK, &server); err != nil {
		return nil, err
	}
	return &server, nil
}
