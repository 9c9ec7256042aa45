package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mcpjungle/mcpbridge/internal/model"
	"github.com/mcpjungle/mcpbridge/internal/service/calllog"
	"github.com/mcpjungle/mcpbridge/pkg/types"
)

func (s *Server) listCallsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.callLog == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "tool call log is not enabled"})
			return
		}

		limit := 0
		if v := c.Query("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = n
		}

		var (
			calls []model.ToolCall
			err   error
		)
		if server := c.Query("server"); server != "" {
			calls, err = s.callLog.ListByServer(c.Request.Context(), server, limit)
		} else {
			calls, err = s.callLog.List(c.Request.Context(), limit)
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		records := make([]types.ToolCallRecord, len(calls))
		for i := range calls {
			records[i] = calllog.ToRecord(&calls[i])
		}
		c.JSON(http.StatusOK, records)
	}
}

func (s *Server) getCallHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.callLog == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "tool call log is not enabled"})
			return
		}

		call, err := s.callLog.Get(c.Request.Context(), c.Param("request_id"))
		if err != nil {
			if errors.Is(err, calllog.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, calllog.ToRecord(call))
	}
}
