// Package api provides the HTTP API server for datachat.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"datachat/internal/chat"
	"datachat/internal/config"
	"datachat/internal/db"
	"datachat/internal/logging"
	"datachat/internal/nl2sql"
	"datachat/internal/schema"
	"datachat/internal/session"
	"datachat/internal/version"
)

// ChatRunner drives one conversational turn. Satisfied by chat.Orchestrator.
type ChatRunner interface {
	Turn(ctx context.Context, message, sessionID string) chat.Result
}

// SQLTranslator turns a question plus schema prompt into a read-only query.
// Satisfied by nl2sql.Translator.
type SQLTranslator interface {
	Translate(ctx context.Context, question, schemaPrompt string) string
}

var _ SQLTranslator = (*nl2sql.Translator)(nil)

type Server struct {
	cfg        *config.Config
	database   db.Database
	schema     *schema.Store
	translator SQLTranslator
	chat       ChatRunner
	sessions   *session.Store
	httpServer *http.Server
}

func New(cfg *config.Config, database db.Database, schemaStore *schema.Store,
	translator SQLTranslator, chatRunner ChatRunner, sessions *session.Store) *Server {
	return &Server{
		cfg:        cfg,
		database:   database,
		schema:     schemaStore,
		translator: translator,
		chat:       chatRunner,
		sessions:   sessions,
	}
}

// Start runs the HTTP server until the context is cancelled, then shuts it
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	router := s.buildRouter()

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.APIPort),
		Handler: router,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Error("API server error: %v", err)
		}
	}()

	<-ctx.Done()

	logging.Info("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	// CORS for development convenience
	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", s.healthCheck)
	router.POST("/query", s.handleQuery)
	router.POST("/mcp-chat", s.handleChat)
	router.DELETE("/mcp-chat/session/:session_id", s.handleDeleteSession)
	router.GET("/schema", s.handleSchema)
	router.POST("/internal/refresh-schema", s.handleRefreshSchema)
	router.GET("/tables/:table_name/data", s.handleTableData)

	return router
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "datachat-api",
		"version": version.GetVersion(),
	})
}
