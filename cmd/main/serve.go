package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"datachat/internal/api"
	"datachat/internal/chat"
	"datachat/internal/config"
	"datachat/internal/db"
	"datachat/internal/genai"
	"datachat/internal/nl2sql"
	"datachat/internal/schema"
	"datachat/internal/session"
	"datachat/internal/tools"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the datachat API server",
	Long:  "Start the REST API: schema detection, NL-to-SQL answering, and the MCP tool chat loop",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	schemaStore := schema.NewStore(database.Conn(), schema.ForDriver(database.DriverName()))
	if _, err := schemaStore.Detect(ctx); err != nil {
		return fmt.Errorf("failed to detect database schema: %w", err)
	}

	provider, err := genai.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize AI provider: %w", err)
	}

	translator := nl2sql.New(provider, nl2sql.DialectForDriver(database.DriverName()))

	// Tool discovery failures are logged per server; the API still starts so
	// /query keeps working without any reachable tool server.
	registry := tools.NewRegistry(cfg.MCPServers)
	defer registry.Close()
	registry.Discover(ctx)

	sessions := session.NewStore(cfg.SessionTimeout)
	orchestrator := chat.NewOrchestrator(provider, registry, sessions)

	apiServer := api.New(cfg, database, schemaStore, translator, orchestrator, sessions)

	var wg sync.WaitGroup
	wg.Add(1)

	go func() {
		defer wg.Done()
		log.Printf("🚀 Starting API server on port %d", cfg.APIPort)
		if err := apiServer.Start(ctx); err != nil {
			log.Printf("API server error: %v", err)
		}
	}()

	fmt.Printf("\n✅ Datachat is running!\n")
	fmt.Printf("🌐 API server: http://localhost:%d\n", cfg.APIPort)
	fmt.Printf("💬 Chat endpoint: POST http://localhost:%d/mcp-chat\n", cfg.APIPort)
	fmt.Printf("\nPress Ctrl+C to stop\n\n")

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	fmt.Println("\n🛑 Received shutdown signal, gracefully shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer shutdownCancel()

	// Signal all goroutines to start shutdown immediately
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		fmt.Println("✅ Server stopped gracefully")
	case <-shutdownCtx.Done():
		fmt.Println("⏰ Shutdown timeout exceeded (3s), forcing exit")
	}

	return nil
}
