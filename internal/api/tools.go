package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mcpjungle/mcpbridge/pkg/types"
)

func (s *Server) listToolsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.hub.Tools())
	}
}

func (s *Server) getToolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Query("name")
		if name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'name' query parameter"})
			return
		}
		tool, err := s.hub.Tool(name)
		if err != nil {
			c.JSON(statusForHubError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, tool)
	}
}

func (s *Server) invokeToolHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.ToolInvokeInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		if input.Name == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
			return
		}

		res, err := s.hub.InvokeTool(c.Request.Context(), input.Name, input.Input)
		if err != nil {
			c.JSON(statusForHubError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, types.NewToolInvokeResult(res))
	}
}

func (s *Server) enableToolsHandler() gin.HandlerFunc {
	return s.toggleToolsHandler(true)
}

func (s *Server) disableToolsHandler() gin.HandlerFunc {
	return s.toggleToolsHandler(false)
}

func (s *Server) toggleToolsHandler(enable bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input types.ToolToggleInput
		if err := c.ShouldBindJSON(&input); err != nil || input.Entity == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "entity is required"})
			return
		}

		toggle := s.hub.DisableTools
		if enable {
			toggle = s.hub.EnableTools
		}
		names, err := toggle(input.Entity)
		if err != nil {
			c.JSON(statusForHubError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, types.ToolToggleResult{Tools: names})
	}
}
