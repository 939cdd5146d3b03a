package server

import (
	"net/http"

	"github.com/JimothyJohn/remote-mcp-server/internal/gateway"
)

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// MCP endpoint (streamable JSON-RPC over HTTP)
	if s.app.MCPHandler != nil {
		mux.Handle("/mcp", s.app.MCPHandler)
	}

	// Everything else goes through the gateway dispatcher, which owns
	// health, info, OpenAPI, RPC-over-POST, and 404/405 shaping.
	mux.Handle("/", gateway.NewAdapter(s.app.Dispatcher))

	return mux
}
