package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// RenderText converts a tool result into its text form for MCP content blocks.
// Strings pass through verbatim, numbers are formatted, and structured values
// are JSON-encoded.
func RenderText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(encoded)
	}
}
