package tools

import "errors"

// Sentinel errors for registry and tool failures. Callers match with
// errors.Is to choose the protocol-specific error shape.
var (
	ErrDuplicateTool    = errors.New("tool already registered")
	ErrToolNotFound     = errors.New("tool not found")
	ErrInvalidArguments = errors.New("invalid arguments")
	ErrToolExecution    = errors.New("tool execution failed")
)
