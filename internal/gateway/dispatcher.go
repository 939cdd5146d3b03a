package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JimothyJohn/remote-mcp-server/internal/common"
	"github.com/JimothyJohn/remote-mcp-server/internal/config"
	"github.com/JimothyJohn/remote-mcp-server/internal/rpc"
	"github.com/JimothyJohn/remote-mcp-server/internal/tools"
)

// maxBodyBytes caps POST bodies at 1 MiB.
const maxBodyBytes = 1 << 20

var rpcMethods = []string{"tools/list", "tools/call", "ping"}

// Dispatcher classifies inbound gateway events and produces gateway responses.
// It is stateless across requests; a single instance serves all traffic.
type Dispatcher struct {
	config   *config.Config
	registry *tools.Registry
	logger   *common.Logger
	openapi  *openAPISource
}

// NewDispatcher creates a dispatcher backed by the given registry.
func NewDispatcher(cfg *config.Config, registry *tools.Registry, logger *common.Logger) *Dispatcher {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	return &Dispatcher{
		config:   cfg,
		registry: registry,
		logger:   logger,
		openapi:  newOpenAPISource(cfg, logger),
	}
}

// Handle routes one gateway event to a response. Classification order is fixed:
// health, OpenAPI, info, unknown GET, CORS preflight, POST body, unsupported method.
func (d *Dispatcher) Handle(ctx context.Context, event Event) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().
				Str("method", event.HTTPMethod).
				Str("path", event.Path).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("recovered from panic while handling event")
			resp = d.errorResponse(http.StatusInternalServerError, "INTERNAL_ERROR",
				"An unexpected error occurred while processing the request", nil)
		}
	}()

	method := strings.ToUpper(event.HTTPMethod)
	path := event.Path
	if path == "" {
		path = "/"
	}

	d.logger.Debug().
		Str("method", method).
		Str("path", path).
		Msg("dispatching gateway event")

	switch {
	case method == http.MethodGet && path == "/health":
		return d.health()
	case method == http.MethodGet && (path == "/openapi.yaml" || path == "/openapi.yml"):
		return d.openapiYAML()
	case method == http.MethodGet && path == "/openapi.json":
		return d.openapiJSON()
	case method == http.MethodGet && path == "/":
		return d.info(method, path)
	case method == http.MethodGet:
		return d.notFound(path)
	case method == http.MethodOptions:
		return d.preflight()
	case method == http.MethodPost:
		return d.handlePost(ctx, event, method, path)
	default:
		return d.methodNotAllowed(method)
	}
}

// HandleRaw classifies a direct-invoke payload that did not arrive through the
// HTTP adapter. Gateway-shaped events take the HTTP flow, bare JSON-RPC requests
// are validated and dispatched directly, and anything else gets the default
// identity response.
func (d *Dispatcher) HandleRaw(ctx context.Context, payload []byte) Response {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(payload, &probe); err == nil {
		if _, ok := probe["httpMethod"]; ok {
			var event Event
			if err := json.Unmarshal(payload, &event); err == nil {
				return d.Handle(ctx, event)
			}
		}
		if _, ok := probe["method"]; ok {
			var req rpc.Request
			if err := json.Unmarshal(payload, &req); err == nil {
				// Framing is checked before notification handling, so a
				// payload that does not form a 2.0 call is answered even
				// when it carries no id.
				if envelope := validateEnvelope(&req); envelope != nil {
					return jsonResponse(http.StatusOK, envelope)
				}
				envelope := d.dispatchRPC(ctx, &req)
				if req.IsNotification() {
					return accepted()
				}
				return jsonResponse(http.StatusOK, envelope)
			}
		}
	}

	return jsonResponse(http.StatusOK, map[string]any{
		"message": d.config.Server.Name,
		"version": config.GetVersion(),
	})
}

func (d *Dispatcher) handlePost(ctx context.Context, event Event, method, path string) Response {
	raw := event.Body
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return d.validationError("Failed to decode Base64 request body")
		}
		raw = string(decoded)
	}

	if raw == "" {
		return d.errorResponse(http.StatusBadRequest, "MISSING_BODY",
			"POST request requires a JSON body", map[string]any{
				"details": "Send a JSON payload in the request body. For MCP requests, include 'jsonrpc', 'method', and 'id' fields.",
			})
	}

	if len(raw) > maxBodyBytes {
		return d.validationError("Request body too large. Maximum size is 1MB.")
	}

	body, ok := parseBody(raw)
	if !ok {
		return d.errorResponse(http.StatusBadRequest, "INVALID_JSON",
			"Request body contains invalid JSON", map[string]any{
				"suggestion": "Validate your JSON syntax. Common issues: trailing commas, unquoted keys, invalid escape sequences.",
			})
	}

	if _, isString := body.value.(string); isString {
		return d.validationError("Request body should be a JSON object, not a string.")
	}

	if data, isObject := body.value.(map[string]any); isObject && isRPCRequest(data) {
		var req rpc.Request
		if err := json.Unmarshal(body.raw, &req); err != nil {
			return d.errorResponse(http.StatusBadRequest, "INVALID_JSON",
				"Request body contains invalid JSON", nil)
		}
		envelope := d.dispatchRPC(ctx, &req)
		if req.IsNotification() {
			return accepted()
		}
		return jsonResponse(http.StatusOK, envelope)
	}

	return jsonResponse(http.StatusOK, map[string]any{
		"message":       "POST request received",
		"service":       d.config.Server.Name,
		"version":       config.GetVersion(),
		"timestamp":     common.Timestamp(),
		"received_data": body.value,
		"path":          path,
		"method":        method,
	})
}

// parsedBody keeps the decoded value together with the bytes it came from, so
// RPC requests can be re-read with their id intact.
type parsedBody struct {
	value any
	raw   []byte
}

// parseBody decodes the effective request body. A body that is not valid JSON
// gets one more chance as Base64-wrapped JSON before being rejected.
func parseBody(raw string) (parsedBody, bool) {
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err == nil {
		return parsedBody{value: value, raw: []byte(raw)}, true
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return parsedBody{}, false
	}
	if err := json.Unmarshal(decoded, &value); err != nil {
		return parsedBody{}, false
	}
	return parsedBody{value: value, raw: decoded}, true
}

// isRPCRequest reports whether a parsed body is a JSON-RPC 2.0 call: the
// version must match and a string method field must be present. Other jsonrpc
// versions fall through to the raw-data echo; an empty method name is still a
// call and is answered by the dispatch switch.
func isRPCRequest(data map[string]any) bool {
	version, _ := data["jsonrpc"].(string)
	if version != rpc.Version {
		return false
	}
	_, hasMethod := data["method"].(string)
	return hasMethod
}

// validateEnvelope checks the JSON-RPC framing of a direct-invoke request,
// which has no raw-data fallback. A nil return means the request is well
// formed; otherwise the -32600 envelope to answer with is returned, carrying
// the request id (null when absent).
func validateEnvelope(req *rpc.Request) *rpc.Response {
	if req.JSONRPC != rpc.Version {
		return rpc.NewError(req.ID, rpc.CodeInvalidRequest, "Invalid Request", map[string]any{
			"details":  "Missing or invalid 'jsonrpc' field. Must be '2.0'.",
			"expected": rpc.Version,
		})
	}
	if req.Method == "" {
		return rpc.NewError(req.ID, rpc.CodeInvalidRequest, "Invalid Request", map[string]any{
			"details": "Missing 'method' field in MCP request.",
		})
	}
	return nil
}

// dispatchRPC executes one JSON-RPC request and builds its response envelope.
// The caller decides whether the envelope is returned to the client; a
// notification is executed the same way but its envelope is discarded.
func (d *Dispatcher) dispatchRPC(ctx context.Context, req *rpc.Request) *rpc.Response {
	d.logger.Debug().
		Str("rpc_method", req.Method).
		Msg("dispatching rpc request")

	switch req.Method {
	case "tools/list":
		return rpc.NewResult(req.ID, map[string]any{"tools": d.toolList()})
	case "tools/call":
		return d.toolCall(ctx, req)
	case "ping":
		return rpc.NewResult(req.ID, map[string]any{
			"status":    "pong",
			"timestamp": common.Timestamp(),
		})
	default:
		return rpc.NewError(req.ID, rpc.CodeMethodNotFound, "Method not found", map[string]any{
			"method":            req.Method,
			"available_methods": rpcMethods,
		})
	}
}

func (d *Dispatcher) toolList() []map[string]any {
	defs := d.registry.List()
	list := make([]map[string]any, 0, len(defs))
	for _, def := range defs {
		list = append(list, map[string]any{
			"name":        def.Name,
			"description": def.Description,
			"inputSchema": def.InputSchema(),
		})
	}
	return list
}

func (d *Dispatcher) toolCall(ctx context.Context, req *rpc.Request) *rpc.Response {
	var params rpc.CallParams
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return rpc.NewError(req.ID, rpc.CodeInvalidParams, "Invalid params", map[string]any{
				"details": "The 'params' field must be an object with 'name' and 'arguments'.",
			})
		}
	}
	if params.Name == "" {
		return rpc.NewError(req.ID, rpc.CodeInvalidParams, "Invalid params", map[string]any{
			"details":         "Missing 'name' parameter for tool call.",
			"required_params": []string{"name"},
		})
	}

	value, err := d.registry.Invoke(ctx, params.Name, params.Arguments)
	if err != nil {
		d.logger.Warn().
			Str("tool", params.Name).
			Err(err).
			Msg("tool invocation failed")
		switch {
		case errors.Is(err, tools.ErrToolNotFound):
			return rpc.NewError(req.ID, rpc.CodeMethodNotFound, "Method not found", map[string]any{
				"tool": params.Name,
			})
		case errors.Is(err, tools.ErrInvalidArguments):
			return rpc.NewError(req.ID, rpc.CodeInvalidParams, "Invalid params", map[string]any{
				"details": err.Error(),
			})
		default:
			return rpc.NewError(req.ID, rpc.CodeInternalError, "Internal error", map[string]any{
				"tool": params.Name,
			})
		}
	}

	return rpc.NewResult(req.ID, textContent(value))
}

// textContent wraps a tool result in an MCP text content block.
func textContent(value any) map[string]any {
	return map[string]any{
		"content": []any{
			map[string]any{"type": "text", "text": tools.RenderText(value)},
		},
	}
}

func (d *Dispatcher) health() Response {
	return jsonResponse(http.StatusOK, map[string]any{
		"status":    "healthy",
		"service":   d.config.Server.Name,
		"version":   config.GetVersion(),
		"timestamp": common.Timestamp(),
	})
}

func (d *Dispatcher) info(method, path string) Response {
	return jsonResponse(http.StatusOK, map[string]any{
		"message":   d.config.Server.Name,
		"version":   config.GetVersion(),
		"timestamp": common.Timestamp(),
		"method":    method,
		"path":      path,
		"endpoints": map[string]string{
			"health":       "/health",
			"mcp":          "POST / with JSON-RPC payload",
			"openapi_yaml": "/openapi.yaml",
			"openapi_json": "/openapi.json",
		},
	})
}

func (d *Dispatcher) notFound(path string) Response {
	return d.errorResponse(http.StatusNotFound, "INVALID_ENDPOINT",
		fmt.Sprintf("Endpoint '%s' not found", path), map[string]any{
			"available_endpoints": map[string]string{
				"GET /":             "Server information",
				"GET /health":       "Health check",
				"GET /openapi.yaml": "OpenAPI specification (YAML)",
				"GET /openapi.json": "OpenAPI specification (JSON)",
				"POST /":            "MCP requests and data submission",
			},
		})
}

func (d *Dispatcher) methodNotAllowed(method string) Response {
	return d.errorResponse(http.StatusMethodNotAllowed, "UNSUPPORTED_METHOD",
		fmt.Sprintf("HTTP method '%s' is not supported", method), map[string]any{
			"details": "Use GET for health checks and server info, POST for MCP requests and data submission.",
		})
}

func (d *Dispatcher) preflight() Response {
	return Response{
		StatusCode: http.StatusOK,
		Headers: map[string]string{
			"Access-Control-Allow-Origin":  "*",
			"Access-Control-Allow-Methods": "GET, POST, OPTIONS",
			"Access-Control-Allow-Headers": "Content-Type, Authorization, X-Request-ID",
			"Access-Control-Max-Age":       "86400",
		},
		Body: "",
	}
}

func (d *Dispatcher) validationError(detail string) Response {
	return d.errorResponse(http.StatusUnprocessableEntity, "VALIDATION_ERROR",
		"Request validation failed", map[string]any{
			"details": detail,
		})
}

// errorResponse shapes every non-RPC error the dispatcher emits. The payload
// carries a stable code and a short message; internal error text never leaves
// the process.
func (d *Dispatcher) errorResponse(status int, code, message string, extra map[string]any) Response {
	payload := map[string]any{
		"error":      http.StatusText(status),
		"error_code": code,
		"message":    message,
		"timestamp":  common.Timestamp(),
		"service":    d.config.Server.Name,
		"version":    config.GetVersion(),
	}
	switch {
	case status == http.StatusBadRequest:
		payload["suggestions"] = []string{
			"Check request format and content type",
			"Ensure JSON is properly formatted",
			"Verify all required fields are present",
		}
	case status == http.StatusNotFound:
		payload["suggestions"] = []string{
			"Check the URL path",
			"Use GET /health for health checks",
			"Use POST / for MCP requests",
		}
	case status == http.StatusMethodNotAllowed:
		payload["allowed_methods"] = []string{"GET", "POST", "OPTIONS"}
	case status >= http.StatusInternalServerError:
		payload["suggestions"] = []string{
			"Try your request again in a few moments",
			"Check server status at /health endpoint",
			"Contact support if the issue persists",
		}
	}
	for k, v := range extra {
		payload[k] = v
	}

	resp := jsonResponse(status, payload)
	resp.Headers["X-Error-Code"] = code
	if status == http.StatusMethodNotAllowed {
		resp.Headers["Allow"] = "GET, POST, OPTIONS"
	}
	return resp
}

func jsonResponse(status int, payload any) Response {
	body, err := json.Marshal(payload)
	if err != nil {
		return Response{
			StatusCode: http.StatusInternalServerError,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"Internal Server Error","error_code":"INTERNAL_ERROR","message":"Failed to encode response"}`,
		}
	}
	return Response{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(body),
	}
}

func accepted() Response {
	return Response{
		StatusCode: http.StatusAccepted,
		Headers:    map[string]string{},
		Body:       "",
	}
}
