package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"datachat/internal/chat"
	"datachat/internal/db"
	"datachat/internal/logging"
)

type queryRequest struct {
	Question string `json:"question"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

// handleQuery translates a natural-language question into SQL, executes it,
// and returns both. Execution failures come back as 200 with an error field
// so the client still sees the generated SQL.
func (s *Server) handleQuery(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Question == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No question provided"})
		return
	}

	ctx := c.Request.Context()
	generatedSQL := s.translator.Translate(ctx, req.Question, s.schema.Prompt())

	rows, err := s.database.RunReadOnly(ctx, generatedSQL)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{
			"sql":   generatedSQL,
			"data":  []map[string]any{},
			"error": db.QueryErrorText(err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sql":   generatedSQL,
		"data":  rows,
		"error": nil,
	})
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "No message provided"})
		return
	}

	result := s.chat.Turn(c.Request.Context(), req.Message, req.SessionID)

	switch result.Type {
	case chat.TypeTool:
		c.JSON(http.StatusOK, gin.H{
			"type":        result.Type,
			"session_id":  result.SessionID,
			"tool_used":   result.ToolUsed,
			"tool_args":   result.ToolArgs,
			"tool_result": result.ToolResult,
			"response":    result.Response,
		})
	case chat.TypeError:
		c.JSON(http.StatusOK, gin.H{
			"type":       result.Type,
			"session_id": result.SessionID,
			"response":   result.Response,
		})
	default:
		c.JSON(http.StatusOK, gin.H{
			"type":       result.Type,
			"session_id": result.SessionID,
			"tool_used":  nil,
			"response":   result.Response,
		})
	}
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	sessionID := c.Param("session_id")
	if s.sessions.Delete(sessionID) {
		c.JSON(http.StatusOK, gin.H{"message": "Session cleared", "session_id": sessionID})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session not found", "session_id": sessionID})
}

func (s *Server) handleSchema(c *gin.Context) {
	detected, err := s.schema.Detect(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	schemaList := make([]gin.H, 0, len(detected.Tables))
	for _, table := range detected.Tables {
		schemaList = append(schemaList, gin.H{
			"table_name": table.Name,
			"columns":    table.Columns,
		})
	}
	c.JSON(http.StatusOK, gin.H{"schema": schemaList})
}

func (s *Server) handleRefreshSchema(c *gin.Context) {
	logging.Info("Refreshing database schema...")

	refreshed, err := s.schema.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"detail": fmt.Sprintf("Failed to refresh schema: %v", err),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"message":             "Schema refreshed successfully",
		"tables_count":        len(refreshed.Tables),
		"relationships_count": len(refreshed.Relationships),
	})
}

func (s *Server) handleTableData(c *gin.Context) {
	tableName := c.Param("table_name")

	rows, err := s.database.TableData(c.Request.Context(), tableName)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": db.QueryErrorText(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"table_name": tableName, "data": rows})
}
