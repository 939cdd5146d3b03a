package app

import (
	"fmt"

	"github.com/JimothyJohn/remote-mcp-server/internal/common"
	"github.com/JimothyJohn/remote-mcp-server/internal/config"
	"github.com/JimothyJohn/remote-mcp-server/internal/gateway"
	"github.com/JimothyJohn/remote-mcp-server/internal/mcp"
	"github.com/JimothyJohn/remote-mcp-server/internal/tools"
)

// App holds all application components and dependencies.
type App struct {
	Config *config.Config
	Logger *common.Logger

	Registry   *tools.Registry
	Dispatcher *gateway.Dispatcher
	MCPHandler *mcp.Handler
}

// New initializes the application with all dependencies. Tool registration
// failures are fatal: a process with a partial registry must not serve.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	a.Registry = tools.NewRegistry()
	if err := tools.RegisterAll(a.Registry, cfg); err != nil {
		return nil, fmt.Errorf("tool registration failed: %w", err)
	}

	a.Dispatcher = gateway.NewDispatcher(cfg, a.Registry, logger)
	a.MCPHandler = mcp.NewHandler(cfg, a.Registry, logger)

	logger.Info().
		Int("tool_count", a.Registry.Len()).
		Str("environment", cfg.Server.Environment).
		Msg("application initialization complete")

	return a, nil
}
