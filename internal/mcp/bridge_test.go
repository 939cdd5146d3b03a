package mcp

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/JimothyJohn/remote-mcp-server/internal/common"
	"github.com/JimothyJohn/remote-mcp-server/internal/config"
	"github.com/JimothyJohn/remote-mcp-server/internal/tools"
)

// --- Helpers ---

func newTestRegistry(t *testing.T) (*config.Config, *tools.Registry) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	reg := tools.NewRegistry()
	if err := tools.RegisterAll(reg, cfg); err != nil {
		t.Fatalf("failed to register tools: %v", err)
	}
	return cfg, reg
}

func newTestServer(t *testing.T) *mcpserver.MCPServer {
	t.Helper()
	cfg, reg := newTestRegistry(t)
	return NewServer(cfg, reg, common.NewSilentLogger())
}

// listTools calls tools/list on the MCPServer and returns the tools.
func listTools(t *testing.T, s *mcpserver.MCPServer) []mcpgo.Tool {
	t.Helper()

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list","params":{}}`)
	result := s.HandleMessage(context.Background(), msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var toolsResult mcpgo.ListToolsResult
	if err := json.Unmarshal(resultJSON, &toolsResult); err != nil {
		t.Fatalf("failed to unmarshal ListToolsResult: %v", err)
	}

	return toolsResult.Tools
}

// callTool calls a tool on the MCPServer and returns the result.
func callTool(t *testing.T, s *mcpserver.MCPServer, name string, args map[string]interface{}) *mcpgo.CallToolResult {
	t.Helper()

	params := map[string]interface{}{
		"name":      name,
		"arguments": args,
	}
	paramsJSON, _ := json.Marshal(params)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":` + string(paramsJSON) + `}`)
	result := s.HandleMessage(context.Background(), msg)

	resp, ok := result.(mcpgo.JSONRPCResponse)
	if !ok {
		t.Fatalf("expected JSONRPCResponse, got %T", result)
	}

	resultJSON, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}

	var toolResult mcpgo.CallToolResult
	if err := json.Unmarshal(resultJSON, &toolResult); err != nil {
		t.Fatalf("failed to unmarshal CallToolResult: %v", err)
	}

	return &toolResult
}

// extractText extracts the text field from an MCP content block.
func extractText(t *testing.T, content mcpgo.Content) string {
	t.Helper()
	contentJSON, _ := json.Marshal(content)
	var tc struct {
		Text string `json:"text"`
	}
	json.Unmarshal(contentJSON, &tc)
	return tc.Text
}

// --- Tests ---

func TestNewServer_RegistersAllTools(t *testing.T) {
	s := newTestServer(t)

	listed := listTools(t, s)
	if len(listed) != 5 {
		t.Fatalf("expected 5 tools, got %d", len(listed))
	}

	names := make(map[string]bool, len(listed))
	for _, tool := range listed {
		names[tool.Name] = true
	}
	for _, want := range []string{"hello_world", "get_current_time", "echo_message", "get_server_info", "calculate_sum"} {
		if !names[want] {
			t.Errorf("expected tool %s to be registered", want)
		}
	}
}

func TestCallTool_HelloWorld(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "hello_world", map[string]interface{}{"name": "Alice"})
	if result.IsError {
		t.Fatalf("unexpected error result: %v", result.Content)
	}
	text := extractText(t, result.Content[0])
	if text != "Hello, Alice! Welcome to remote-mcp-server." {
		t.Errorf("unexpected greeting: %s", text)
	}
}

func TestCallTool_HelloWorld_DefaultName(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "hello_world", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("unexpected error result: %v", result.Content)
	}
	text := extractText(t, result.Content[0])
	if text != "Hello, World! Welcome to remote-mcp-server." {
		t.Errorf("unexpected greeting: %s", text)
	}
}

func TestCallTool_EchoRepeat(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "echo_message", map[string]interface{}{
		"message": "Hi",
		"repeat":  3,
	})
	if result.IsError {
		t.Fatalf("unexpected error result: %v", result.Content)
	}
	if text := extractText(t, result.Content[0]); text != "Hi Hi Hi" {
		t.Errorf("expected 'Hi Hi Hi', got %q", text)
	}
}

func TestCallTool_EchoRepeat_OutOfRange(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "echo_message", map[string]interface{}{
		"message": "Hi",
		"repeat":  11,
	})
	if !result.IsError {
		t.Fatal("expected error result for repeat=11")
	}
	text := extractText(t, result.Content[0])
	if !strings.Contains(text, "invalid arguments") {
		t.Errorf("expected invalid arguments message, got %q", text)
	}
}

func TestCallTool_CalculateSum(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "calculate_sum", map[string]interface{}{
		"numbers": []interface{}{1.5, 2.5},
	})
	if result.IsError {
		t.Fatalf("unexpected error result: %v", result.Content)
	}
	if text := extractText(t, result.Content[0]); text != "4" {
		t.Errorf("expected sum text 4, got %q", text)
	}
}

func TestCallTool_GetServerInfo(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "get_server_info", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("unexpected error result: %v", result.Content)
	}
	text := extractText(t, result.Content[0])
	var info map[string]interface{}
	if err := json.Unmarshal([]byte(text), &info); err != nil {
		t.Fatalf("server info is not valid JSON: %v", err)
	}
	if info["service"] != "remote-mcp-server" {
		t.Errorf("expected service remote-mcp-server, got %v", info["service"])
	}
	if info["status"] != "healthy" {
		t.Errorf("expected status healthy, got %v", info["status"])
	}
}

func TestCallTool_GetCurrentTime(t *testing.T) {
	s := newTestServer(t)

	result := callTool(t, s, "get_current_time", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("unexpected error result: %v", result.Content)
	}
	text := extractText(t, result.Content[0])
	if !strings.Contains(text, "T") || !strings.HasSuffix(text, "Z") {
		t.Errorf("expected ISO-8601 UTC timestamp, got %q", text)
	}
}

func TestCallTool_UnknownToolIsProtocolError(t *testing.T) {
	s := newTestServer(t)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"nonexistent_tool","arguments":{}}}`)
	result := s.HandleMessage(context.Background(), msg)

	if _, ok := result.(mcpgo.JSONRPCError); !ok {
		t.Fatalf("expected JSONRPCError for unknown tool, got %T", result)
	}
}

func TestToolHandler_PanicSurfacesAsErrorResult(t *testing.T) {
	cfg := config.NewDefaultConfig()
	reg := tools.NewRegistry()
	err := reg.Register(tools.Definition{
		Name:        "broken_tool",
		Description: "always fails",
		Handler: func(ctx context.Context, args map[string]any) (any, error) {
			panic("boom")
		},
	})
	if err != nil {
		t.Fatalf("failed to register tool: %v", err)
	}
	s := NewServer(cfg, reg, common.NewSilentLogger())

	result := callTool(t, s, "broken_tool", map[string]interface{}{})
	if !result.IsError {
		t.Fatal("expected error result for panicking tool")
	}
}

func TestBuildTool_SchemaShape(t *testing.T) {
	_, reg := newTestRegistry(t)
	def, ok := reg.Lookup("echo_message")
	if !ok {
		t.Fatal("echo_message not registered")
	}

	tool := BuildTool(def)
	raw, err := json.Marshal(tool)
	if err != nil {
		t.Fatalf("failed to marshal tool: %v", err)
	}

	var decoded struct {
		Name        string         `json:"name"`
		Description string         `json:"description"`
		InputSchema map[string]any `json:"inputSchema"`
	}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("failed to unmarshal tool: %v", err)
	}

	if decoded.Name != "echo_message" {
		t.Errorf("expected name echo_message, got %s", decoded.Name)
	}
	props, ok := decoded.InputSchema["properties"].(map[string]any)
	if !ok {
		t.Fatal("expected properties in schema")
	}
	if _, ok := props["message"]; !ok {
		t.Error("expected message property")
	}
	if _, ok := props["repeat"]; !ok {
		t.Error("expected repeat property")
	}
	required, _ := decoded.InputSchema["required"].([]any)
	found := false
	for _, r := range required {
		if r == "message" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected message in required list, got %v", required)
	}
}

func TestNewHandler_StreamableInitialize(t *testing.T) {
	cfg, reg := newTestRegistry(t)
	h := NewHandler(cfg, reg, common.NewSilentLogger())

	payload := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test-client","version":"1.0.0"}}}`
	req := httptest.NewRequest("POST", "/mcp", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/event-stream")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "serverInfo") {
		t.Errorf("expected serverInfo in initialize response, got %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "remote-mcp-server") {
		t.Errorf("expected server name in initialize response, got %s", w.Body.String())
	}
}
