// Package server provides the public entry point for initializing the
// local MCP bridge: it loads configuration, wires the agent runtime to
// its collaborators, and builds the HTTP handler.
package server

import (
	"context"
	"fmt"
	"net/http"

	"github.com/baseloop/local-mcp-bridge/internal/agents"
	"github.com/baseloop/local-mcp-bridge/internal/api"
	"github.com/baseloop/local-mcp-bridge/internal/api/handlers"
	"github.com/baseloop/local-mcp-bridge/internal/config"
	"github.com/baseloop/local-mcp-bridge/internal/llm"
	"github.com/baseloop/local-mcp-bridge/internal/orchestrator"
	"github.com/baseloop/local-mcp-bridge/internal/telemetry"

	"github.com/rs/zerolog/log"
)

// Version is surfaced in startup logs.
const Version = "0.1.0"

// Server holds the initialized bridge.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Config is the effective configuration.
	Config *config.Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown to flush telemetry.
	ShutdownFunc func(context.Context) error
}

// New initializes all bridge components and returns a ready Server.
func New(ctx context.Context) (*Server, error) {
	cfg := config.Load()

	shutdown, err := telemetry.Init(cfg.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	llmClient := llm.NewOpenAI(cfg.LLM.APIKey, cfg.LLM.Model)
	log.Info().Str("model", cfg.LLM.Model).Msg("✅ LLM client initialized")

	rt := agents.NewRuntime(llmClient, cfg.MCP.DefaultPaths)
	orch := orchestrator.New(rt, cfg.MCP)
	log.Info().Strs("default_paths", cfg.MCP.DefaultPaths).Msg("✅ Agent runtime initialized")

	h := handlers.New(orch, cfg)
	router := api.NewRouter(cfg, h)

	return &Server{
		Handler:      router,
		Config:       cfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}
