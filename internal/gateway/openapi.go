package gateway

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/JimothyJohn/remote-mcp-server/internal/common"
	"github.com/JimothyJohn/remote-mcp-server/internal/config"
)

// openAPISource serves the OpenAPI document. The document is read from disk on
// first use and cached for the life of the process; when no file is found a
// minimal document is generated instead.
type openAPISource struct {
	config *config.Config
	logger *common.Logger

	once sync.Once
	doc  string
}

func newOpenAPISource(cfg *config.Config, logger *common.Logger) *openAPISource {
	return &openAPISource{config: cfg, logger: logger}
}

// openAPISearchPaths returns candidate locations for openapi.yaml: the working
// directory, next to the binary, and the usual function deployment roots.
func openAPISearchPaths() []string {
	paths := []string{"openapi.yaml"}
	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), "openapi.yaml"))
	}
	paths = append(paths, "/opt/openapi.yaml", "/var/task/openapi.yaml")
	return paths
}

// YAML returns the OpenAPI document as YAML, loading it on first call.
func (s *openAPISource) YAML() string {
	s.once.Do(s.load)
	return s.doc
}

// JSON returns the OpenAPI document converted to JSON.
func (s *openAPISource) JSON() ([]byte, error) {
	var parsed any
	if err := yaml.Unmarshal([]byte(s.YAML()), &parsed); err != nil {
		return nil, err
	}
	return json.Marshal(parsed)
}

func (s *openAPISource) load() {
	for _, path := range openAPISearchPaths() {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		s.doc = string(data)
		s.logger.Info().
			Str("path", path).
			Msg("loaded OpenAPI specification")
		return
	}

	s.logger.Warn().Msg("OpenAPI specification file not found, generating minimal spec")
	s.doc = s.minimalDoc()
}

func (s *openAPISource) minimalDoc() string {
	doc := map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       s.config.Server.Name,
			"version":     config.GetVersion(),
			"description": "MCP server with a serverless gateway adapter",
		},
		"servers": []any{
			map[string]any{"url": "http://" + s.config.Address(), "description": "Local server"},
		},
		"paths": map[string]any{
			"/health": map[string]any{
				"get": map[string]any{
					"summary": "Health Check",
					"responses": map[string]any{
						"200": map[string]any{"description": "Server is healthy"},
					},
				},
			},
		},
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to generate minimal OpenAPI spec")
		return "openapi: 3.0.3\n"
	}
	return string(out)
}

func (d *Dispatcher) openapiYAML() Response {
	return Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/x-yaml"},
		Body:       d.openapi.YAML(),
	}
}

func (d *Dispatcher) openapiJSON() Response {
	body, err := d.openapi.JSON()
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to convert OpenAPI spec to JSON")
		return d.errorResponse(http.StatusInternalServerError, "OPENAPI_JSON_ERROR",
			"Failed to convert OpenAPI specification to JSON", nil)
	}
	return Response{
		StatusCode: http.StatusOK,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}
