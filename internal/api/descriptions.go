package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// listDescriptionsHandler returns the tool name to usage mapping meant for the agent's system prompt.
// The ?source= query parameter selects "builtin", "mcp" or "all" (default).
func (s *Server) listDescriptionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.DefaultQuery("source", "all") {
		case "builtin":
			c.JSON(http.StatusOK, s.aggregator.SystemPromptDescriptions())
		case "mcp":
			c.JSON(http.StatusOK, s.aggregator.MCPSystemPromptDescriptions(c.Request.Context(), s.hub.ServerConfigs()))
		case "all":
			c.JSON(http.StatusOK, s.aggregator.AllSystemPromptDescriptions(c.Request.Context(), s.hub.ServerConfigs()))
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "source must be one of 'builtin', 'mcp' or 'all'"})
		}
	}
}

func (s *Server) resetDescriptionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.aggregator.ResetToolMetadataCache()
		c.Status(http.StatusNoContent)
	}
}
