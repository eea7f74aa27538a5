package config

import (
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// Config carries every runtime setting. Values resolve through viper, so the
// precedence is flags, then DATACHAT_* environment variables, then the YAML
// config file, then the defaults below.
type Config struct {
	DatabaseURL    string
	APIPort        int
	ToolServerPort int
	AIProvider     string
	AIModel        string
	AIAPIKey       string
	AIBaseURL      string
	MCPServers     []string
	SessionTimeout time.Duration
	Debug          bool
}

func Load() (*Config, error) {
	setDefaults()

	cfg := &Config{
		DatabaseURL:    viper.GetString("database_url"),
		APIPort:        viper.GetInt("api_port"),
		ToolServerPort: viper.GetInt("tool_server_port"),
		AIProvider:     viper.GetString("ai_provider"),
		AIModel:        viper.GetString("ai_model"),
		AIAPIKey:       viper.GetString("ai_api_key"),
		AIBaseURL:      viper.GetString("ai_base_url"),
		MCPServers:     viper.GetStringSlice("mcp_servers"),
		SessionTimeout: sessionTimeout(),
		Debug:          viper.GetBool("debug"),
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("database_url", "datachat.db")
	viper.SetDefault("api_port", 8000)
	viper.SetDefault("tool_server_port", 8001)
	viper.SetDefault("mcp_servers", []string{"http://127.0.0.1:8001/sse"})
	viper.SetDefault("session_timeout", "1h")
	viper.SetDefault("debug", false)
}

// sessionTimeout accepts either a Go duration ("30m") or a bare second count
// ("3600"). Anything unusable falls back to one hour.
func sessionTimeout() time.Duration {
	raw := viper.GetString("session_timeout")
	if d, err := time.ParseDuration(raw); err == nil && d > 0 {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return time.Hour
}
