package gateway

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
)

// TestDispatcher_StressSuite drives the dispatcher with hostile and degenerate
// payloads. Every case must produce a shaped response: no panics, no echoes of
// raw invalid input.
func TestDispatcher_StressSuite(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	t.Run("DeeplyNestedJSON", func(t *testing.T) {
		depth := 5000
		body := strings.Repeat("[", depth) + strings.Repeat("]", depth)
		resp := d.Handle(ctx, postEvent(body))
		// Either parsed and echoed, or rejected by the decoder's depth limit.
		if resp.StatusCode != 200 && resp.StatusCode != 400 {
			t.Errorf("expected 200 or 400, got %d", resp.StatusCode)
		}
		t.Logf("depth-%d body returned status %d", depth, resp.StatusCode)
	})

	t.Run("NullBytesInBody", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent("\x00\x01\x02\x03"))
		if resp.StatusCode != 400 {
			t.Errorf("expected status 400, got %d", resp.StatusCode)
		}
		if strings.Contains(resp.Body, "\x00") {
			t.Error("raw control bytes must not be echoed")
		}
	})

	t.Run("XMLBody", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent("<xml>not json</xml>"))
		if resp.StatusCode != 400 {
			t.Errorf("expected status 400, got %d", resp.StatusCode)
		}
		if strings.Contains(resp.Body, "<xml>") {
			t.Error("raw body must not be echoed")
		}
	})

	t.Run("WhitespaceOnlyBody", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent("   \n\t  "))
		if resp.StatusCode != 400 {
			t.Errorf("expected status 400, got %d", resp.StatusCode)
		}
	})

	t.Run("EmptyObjectBody", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent(`{}`))
		if resp.StatusCode != 200 {
			t.Errorf("expected status 200, got %d", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if body["message"] != "POST request received" {
			t.Errorf("empty object takes the raw-data path, got %v", body)
		}
	})

	t.Run("JSONRPCVersionAsNumber", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent(`{"jsonrpc":2.0,"method":"ping","id":1}`))
		body := decodeBody(t, resp)
		if body["message"] != "POST request received" {
			t.Errorf("numeric jsonrpc field takes the raw-data path, got %v", body)
		}
	})

	t.Run("MethodAsObject", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent(`{"jsonrpc":"2.0","method":{"nested":true},"id":1}`))
		body := decodeBody(t, resp)
		if body["message"] != "POST request received" {
			t.Errorf("non-string method takes the raw-data path, got %v", body)
		}
	})

	t.Run("ParamsAsArray", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent(`{"jsonrpc":"2.0","method":"tools/call","params":[1,2,3],"id":1}`))
		if resp.StatusCode != 200 {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		if code := rpcErrorCode(t, body); code != -32602 {
			t.Errorf("expected code -32602, got %v", code)
		}
	})

	t.Run("HugeToolName", func(t *testing.T) {
		payload := map[string]any{
			"jsonrpc": "2.0",
			"method":  "tools/call",
			"params":  map[string]any{"name": strings.Repeat("a", 10000), "arguments": map[string]any{}},
			"id":      1,
		}
		raw, _ := json.Marshal(payload)
		resp := d.Handle(ctx, postEvent(string(raw)))
		body := decodeBody(t, resp)
		if code := rpcErrorCode(t, body); code != -32601 {
			t.Errorf("expected code -32601, got %v", code)
		}
	})

	t.Run("RepeatAsFraction", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent(
			`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo_message","arguments":{"message":"x","repeat":2.5}},"id":1}`))
		body := decodeBody(t, resp)
		if code := rpcErrorCode(t, body); code != -32602 {
			t.Errorf("expected code -32602, got %v", code)
		}
	})

	t.Run("RepeatAsString", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent(
			`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo_message","arguments":{"message":"x","repeat":"3"}},"id":1}`))
		body := decodeBody(t, resp)
		if code := rpcErrorCode(t, body); code != -32602 {
			t.Errorf("expected code -32602, got %v", code)
		}
	})

	t.Run("UnicodeRoundTrip", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent(
			`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"echo_message","arguments":{"message":"héllo 🎉 мир"}},"id":1}`))
		body := decodeBody(t, resp)
		if text := resultText(t, body); text != "héllo 🎉 мир" {
			t.Errorf("unicode message mangled: %q", text)
		}
	})

	t.Run("ExtraEnvelopeFieldsIgnored", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent(
			`{"jsonrpc":"2.0","method":"ping","id":1,"extra":{"a":1},"more":[true]}`))
		body := decodeBody(t, resp)
		result, ok := body["result"].(map[string]any)
		if !ok || result["status"] != "pong" {
			t.Errorf("expected pong despite extra fields, got %v", body)
		}
	})

	t.Run("OverflowingSum", func(t *testing.T) {
		resp := d.Handle(ctx, postEvent(
			`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"calculate_sum","arguments":{"numbers":[1e308,1e308]}},"id":1}`))
		if resp.StatusCode != 200 {
			t.Fatalf("expected status 200, got %d", resp.StatusCode)
		}
		body := decodeBody(t, resp)
		text := resultText(t, body)
		t.Logf("NOTE: overflowing float64 sum is reported as %q", text)
	})

	t.Run("ConcurrentMixedTraffic", func(t *testing.T) {
		payloads := []Event{
			{HTTPMethod: "GET", Path: "/health"},
			{HTTPMethod: "GET", Path: "/"},
			postEvent(`{"jsonrpc":"2.0","method":"tools/list","id":1}`),
			postEvent(`{"jsonrpc":"2.0","method":"tools/call","params":{"name":"get_current_time","arguments":{}},"id":2}`),
			postEvent(`{"foo":"bar"}`),
			postEvent(`not json`),
		}

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			for _, event := range payloads {
				wg.Add(1)
				go func(ev Event) {
					defer wg.Done()
					resp := d.Handle(ctx, ev)
					if resp.StatusCode == 0 {
						t.Error("got zero status code")
					}
				}(event)
			}
		}
		wg.Wait()
	})
}
