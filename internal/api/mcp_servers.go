package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mcpjungle/mcpbridge/internal/service/bridge"
)

func (s *Server) listServersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, s.hub.Servers())
	}
}

func (s *Server) getServerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		server, err := s.hub.Server(c.Param("name"))
		if err != nil {
			c.JSON(statusForHubError(err), gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, server)
	}
}

func (s *Server) reconnectServerHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")

		server, err := s.hub.Reconnect(c.Request.Context(), name)
		if err != nil {
			if errors.Is(err, bridge.ErrServerNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			if errors.Is(err, bridge.ErrHubClosed) {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}
			// the server stays degraded, its status carries the reason
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "server": server})
			return
		}

		// descriptions of a reconnected server may have changed
		s.aggregator.ResetToolMetadataCache()

		c.JSON(http.StatusOK, server)
	}
}

// statusForHubError maps the errors returned by the bridge hub to HTTP status codes.
func statusForHubError(err error) int {
	switch {
	case errors.Is(err, bridge.ErrInvalidToolName):
		return http.StatusBadRequest
	case errors.Is(err, bridge.ErrServerNotFound), errors.Is(err, bridge.ErrToolNotFound):
		return http.StatusNotFound
	case errors.Is(err, bridge.ErrToolDisabled):
		return http.StatusForbidden
	case errors.Is(err, bridge.ErrServerUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadGateway
	}
}
