package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds all configuration for the local MCP bridge.
type Config struct {
	Port        int
	FrontOrigin string
	MCP         MCPConfig
	LLM         LLMConfig
	Telemetry   TelemetryConfig
}

// MCPConfig describes the default tool host. Endpoint may be overridden
// per request via the localEndpoint field of the chat body.
type MCPConfig struct {
	Endpoint     string
	Token        string
	DefaultPaths []string
}

type LLMConfig struct {
	APIKey string
	Model  string
}

type TelemetryConfig struct {
	Enabled      bool
	OTLPEndpoint string
	ServiceName  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() *Config {
	return &Config{
		Port:        envInt("PORT", 4000),
		FrontOrigin: envStr("FRONT_ORIGIN", "*"),
		MCP: MCPConfig{
			Endpoint:     envStr("LOCAL_MCP_ENDPOINT", ""),
			Token:        envStr("LOCAL_MCP_TOKEN", ""),
			DefaultPaths: envList("LOCAL_MCP_DEFAULT_PATHS", []string{"notes/"}),
		},
		LLM: LLMConfig{
			APIKey: envStr("OPENAI_API_KEY", ""),
			Model:  envStr("OPENAI_MODEL", "gpt-4o-mini"),
		},
		Telemetry: TelemetryConfig{
			Enabled:      envBool("TELEMETRY_ENABLED", false),
			OTLPEndpoint: envStr("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			ServiceName:  envStr("OTEL_SERVICE_NAME", "local-mcp-bridge"),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// envList parses a comma-separated variable, trimming whitespace and
// dropping empty items.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
