// Package mcp hosts the demo MCP tool server that exposes the database to
// chat clients over SSE or stdio.
package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"datachat/internal/db"
	"datachat/internal/logging"
	"datachat/internal/schema"
	"datachat/internal/version"
)

// Translator produces a read-only SQL query for a natural language
// question. Satisfied by nl2sql.Translator.
type Translator interface {
	Translate(ctx context.Context, question, schemaPrompt string) string
}

type Server struct {
	mcpServer  *server.MCPServer
	sseServer  *server.SSEServer
	database   db.Database
	schema     *schema.Store
	translator Translator
}

func NewServer(database db.Database, schemaStore *schema.Store, translator Translator) *Server {
	mcpServer := server.NewMCPServer(
		"DatabaseMCPServer",
		version.GetVersion(),
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s := &Server{
		mcpServer:  mcpServer,
		database:   database,
		schema:     schemaStore,
		translator: translator,
	}
	s.setupTools()
	return s
}

// Start serves MCP over SSE until the context is cancelled.
func (s *Server) Start(ctx context.Context, port int) error {
	s.sseServer = server.NewSSEServer(s.mcpServer)
	addr := fmt.Sprintf(":%d", port)
	logging.Info("Starting MCP tool server with SSE transport on %s", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.sseServer.Start(addr); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("MCP server error: %w", err)
	case <-ctx.Done():
	}

	logging.Info("Shutting down MCP tool server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	return s.sseServer.Shutdown(shutdownCtx)
}

// StartStdio serves MCP on stdin/stdout, for clients that spawn the tool
// server as a subprocess. Blocks until the stream closes.
func (s *Server) StartStdio(ctx context.Context) error {
	logging.Info("Starting MCP tool server with stdio transport")
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return nil
}
