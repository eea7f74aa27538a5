package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"datachat/internal/config"
	"datachat/internal/logging"
	"datachat/internal/version"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "datachat",
		Short: "Datachat - natural-language interface for SQL databases",
		Long: `Datachat serves a REST API that answers natural-language questions about a
SQL database, either by translating them straight to SELECT queries or through
a chat loop that calls MCP tools. It also ships the demo MCP tool server the
chat loop talks to by default.`,
		Version: version.GetVersionString(),
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	cobra.OnInitialize(initLogging)

	// Add persistent flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/datachat/config.yaml)")
	rootCmd.PersistentFlags().String("database", "datachat.db", "Database URL (SQLite path or postgres:// URL)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")

	// Add subcommands
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(toolServerCmd)

	// Serve command flags
	serveCmd.Flags().Int("api-port", 8000, "API server port")
	serveCmd.Flags().StringSlice("mcp-server", []string{"http://127.0.0.1:8001/sse"}, "MCP tool server address, repeatable (http(s) URL for SSE, command line for stdio)")
	serveCmd.Flags().String("session-timeout", "1h", "Idle timeout after which chat sessions are discarded")

	// Tool server command flags
	toolServerCmd.Flags().Int("port", 8001, "Tool server SSE port")
	toolServerCmd.Flags().Bool("stdio", false, "Serve over stdio instead of SSE")

	// Bind flags to viper
	viper.BindPFlag("database_url", rootCmd.PersistentFlags().Lookup("database"))
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("api_port", serveCmd.Flags().Lookup("api-port"))
	viper.BindPFlag("mcp_servers", serveCmd.Flags().Lookup("mcp-server"))
	viper.BindPFlag("session_timeout", serveCmd.Flags().Lookup("session-timeout"))
	viper.BindPFlag("tool_server_port", toolServerCmd.Flags().Lookup("port"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Use XDG config directory
		viper.AddConfigPath(getConfigDir())
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// Read environment variables
	viper.AutomaticEnv()
	viper.SetEnvPrefix("DATACHAT")

	// Read config file if it exists
	if err := viper.ReadInConfig(); err == nil {
		fmt.Printf("Using config file: %s\n", viper.ConfigFileUsed())
	}
}

func initLogging() {
	cfg, err := config.Load()
	if err != nil {
		// If config fails to load, default to info level (debug disabled)
		logging.Initialize(false)
		return
	}

	logging.Initialize(cfg.Debug)
}

func getConfigDir() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		homeDir, _ := os.UserHomeDir()
		configHome = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configHome, "datachat")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}
