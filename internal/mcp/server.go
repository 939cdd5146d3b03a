package mcp

import (
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/JimothyJohn/remote-mcp-server/internal/common"
	"github.com/JimothyJohn/remote-mcp-server/internal/config"
	"github.com/JimothyJohn/remote-mcp-server/internal/tools"
)

// NewServer builds the mcp-go server with every registry tool attached.
func NewServer(cfg *config.Config, registry *tools.Registry, logger *common.Logger) *mcpserver.MCPServer {
	srv := mcpserver.NewMCPServer(
		cfg.Server.Name,
		config.GetVersion(),
		mcpserver.WithToolCapabilities(true),
	)

	for _, def := range registry.List() {
		srv.AddTool(BuildTool(def), ToolHandler(registry, def.Name, logger))
	}

	logger.Info().
		Int("tool_count", registry.Len()).
		Msg("registered MCP tools")

	return srv
}

// ServeStdio runs the stdio transport until the client disconnects. Messages
// are processed one at a time in arrival order.
func ServeStdio(srv *mcpserver.MCPServer) error {
	return mcpserver.ServeStdio(srv)
}

// Handler is the HTTP handler for the MCP endpoint.
// It wraps mcp-go's StreamableHTTPServer and delegates to it.
type Handler struct {
	streamable *mcpserver.StreamableHTTPServer
	logger     *common.Logger
}

// NewHandler creates the streamable MCP endpoint for container mode.
func NewHandler(cfg *config.Config, registry *tools.Registry, logger *common.Logger) *Handler {
	srv := NewServer(cfg, registry, logger)
	return &Handler{
		streamable: mcpserver.NewStreamableHTTPServer(srv, mcpserver.WithStateLess(true)),
		logger:     logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("mcp endpoint request")
	h.streamable.ServeHTTP(w, r)
}
