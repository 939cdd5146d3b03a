package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/JimothyJohn/remote-mcp-server/internal/common"
	"github.com/JimothyJohn/remote-mcp-server/internal/tools"
)

// BuildTool converts a registry definition into an mcp.Tool with the
// appropriate schema.
func BuildTool(def tools.Definition) mcp.Tool {
	opts := []mcp.ToolOption{mcp.WithDescription(def.Description)}
	for _, p := range def.Params {
		opts = append(opts, buildParamOption(p))
	}
	return mcp.NewTool(def.Name, opts...)
}

// buildParamOption maps a registry param to the appropriate mcp-go tool option.
func buildParamOption(p tools.Param) mcp.ToolOption {
	var opts []mcp.PropertyOption
	if p.Description != "" {
		opts = append(opts, mcp.Description(p.Description))
	}
	if p.Required {
		opts = append(opts, mcp.Required())
	}

	switch p.Type {
	case "integer", "number":
		return mcp.WithNumber(p.Name, opts...)
	case "boolean":
		return mcp.WithBoolean(p.Name, opts...)
	case "array":
		itemOpt := mcp.WithStringItems()
		if p.Items != "" && p.Items != "string" {
			itemOpt = mcp.Items(map[string]any{"type": p.Items})
		}
		opts = append([]mcp.PropertyOption{itemOpt}, opts...)
		return mcp.WithArray(p.Name, opts...)
	default:
		return mcp.WithString(p.Name, opts...)
	}
}

// ToolHandler adapts one registry tool to an mcp-go handler. Invocation
// failures surface as MCP error results, not protocol errors, so clients see
// the message.
func ToolHandler(registry *tools.Registry, name string, logger *common.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		value, err := registry.Invoke(ctx, name, request.GetArguments())
		if err != nil {
			logger.Warn().
				Str("tool", name).
				Err(err).
				Msg("tool invocation failed")
			return errorResult("Error: " + err.Error()), nil
		}
		return textResult(tools.RenderText(value)), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(message),
		},
		IsError: true,
	}
}
