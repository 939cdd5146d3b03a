package tools

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/JimothyJohn/remote-mcp-server/internal/common"
	"github.com/JimothyJohn/remote-mcp-server/internal/config"
)

const (
	// maxNameLength caps the greeting name; longer names are truncated.
	maxNameLength = 100
	// maxMessageLength caps the echoed message; longer messages are truncated.
	maxMessageLength = 1000
	// maxNumbers caps the calculate_sum input length.
	maxNumbers = 100
)

// RegisterAll registers the five demo tools. Registration errors are
// startup-fatal for the caller.
func RegisterAll(reg *Registry, cfg *config.Config) error {
	defs := []Definition{
		{
			Name:        "hello_world",
			Description: "Returns a personalized greeting message.",
			Params: []Param{
				{Name: "name", Type: "string", Description: "Name to include in the greeting", Default: "World"},
			},
			Handler: helloWorldHandler(cfg),
		},
		{
			Name:        "get_current_time",
			Description: "Returns the current server time in ISO 8601 format.",
			Handler:     currentTimeHandler(),
		},
		{
			Name:        "echo_message",
			Description: "Echoes a message back, optionally repeated.",
			Params: []Param{
				{Name: "message", Type: "string", Description: "Message to echo", Required: true},
				{Name: "repeat", Type: "integer", Description: "Number of times to repeat the message (1-10)", Default: 1, Minimum: f64(1), Maximum: f64(10)},
			},
			Handler: echoMessageHandler(),
		},
		{
			Name:        "get_server_info",
			Description: "Returns server status and runtime information.",
			Handler:     serverInfoHandler(cfg, reg),
		},
		{
			Name:        "calculate_sum",
			Description: "Calculates the sum of a list of numbers.",
			Params: []Param{
				{Name: "numbers", Type: "array", Description: "List of numbers to sum", Required: true, Items: "number", MaxItems: maxNumbers},
			},
			Handler: calculateSumHandler(),
		},
	}

	for _, def := range defs {
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// helloWorldHandler greets by name. Empty names are kept as-is; names over
// maxNameLength runes are truncated.
func helloWorldHandler(cfg *config.Config) Handler {
	return func(_ context.Context, args map[string]any) (any, error) {
		name, _ := args["name"].(string)
		if utf8.RuneCountInString(name) > maxNameLength {
			name = string([]rune(name)[:maxNameLength])
		}
		return fmt.Sprintf("Hello, %s! Welcome to %s.", name, cfg.Server.Name), nil
	}
}

func currentTimeHandler() Handler {
	return func(_ context.Context, _ map[string]any) (any, error) {
		return common.Timestamp(), nil
	}
}

// echoMessageHandler repeats the message, single-space joined. The repeat
// range (1..10) is enforced by the registry via the parameter schema.
func echoMessageHandler() Handler {
	return func(_ context.Context, args map[string]any) (any, error) {
		message, _ := args["message"].(string)
		if utf8.RuneCountInString(message) > maxMessageLength {
			message = string([]rune(message)[:maxMessageLength])
		}
		repeat, _ := args["repeat"].(int)
		if repeat < 1 {
			repeat = 1
		}
		parts := make([]string, repeat)
		for i := range parts {
			parts[i] = message
		}
		return strings.Join(parts, " "), nil
	}
}

func serverInfoHandler(cfg *config.Config, reg *Registry) Handler {
	return func(_ context.Context, _ map[string]any) (any, error) {
		return map[string]any{
			"service":         cfg.Server.Name,
			"version":         config.GetVersion(),
			"status":          "healthy",
			"timestamp":       common.Timestamp(),
			"environment":     cfg.Server.Environment,
			"tools_available": reg.Len(),
		}, nil
	}
}

// calculateSumHandler sums a numeric array. The empty array sums to 0.0;
// the registry enforces the maxNumbers length cap.
func calculateSumHandler() Handler {
	return func(_ context.Context, args map[string]any) (any, error) {
		arr, _ := args["numbers"].([]any)
		sum := 0.0
		for i, v := range arr {
			f, ok := toFloat(v)
			if !ok {
				return nil, fmt.Errorf("%w: numbers[%d] is not numeric", ErrInvalidArguments, i)
			}
			sum += f
		}
		return sum, nil
	}
}

func f64(v float64) *float64 {
	return &v
}
