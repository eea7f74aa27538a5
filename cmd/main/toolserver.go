package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"datachat/internal/config"
	"datachat/internal/db"
	"datachat/internal/genai"
	"datachat/internal/logging"
	"datachat/internal/mcp"
	"datachat/internal/nl2sql"
	"datachat/internal/schema"
)

var toolServerCmd = &cobra.Command{
	Use:   "toolserver",
	Short: "Start the demo MCP tool server",
	Long: `Start the MCP tool server that exposes query_database, get_database_schema,
and get_table_raw_data against the configured database. Serves SSE by default;
--stdio speaks the protocol over stdin/stdout for clients that launch it as a
subprocess.`,
	RunE: runToolServer,
}

func runToolServer(cmd *cobra.Command, args []string) error {
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

	toolServer := mcp.NewServer(database, schemaStore, translator)

	// Stdout carries the protocol in stdio mode: no banner, and library
	// logging is routed away from it.
	if stdio, _ := cmd.Flags().GetBool("stdio"); stdio {
		log.SetOutput(io.Discard)
		logging.Initialize(cfg.Debug)
		return toolServer.StartStdio(ctx)
	}

	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		fmt.Println("\n🛑 Received shutdown signal, shutting down tool server...")
		cancel()
	}()

	fmt.Printf("🔧 MCP tool server listening on http://localhost:%d/sse\n", cfg.ToolServerPort)
	fmt.Printf("Press Ctrl+C to stop\n")

	return toolServer.Start(ctx, cfg.ToolServerPort)
}
