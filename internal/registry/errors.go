package registry

import "fmt"

// DuplicateTool is returned by Register when a tool with the same name is
// already present.
type DuplicateTool struct {
	Name string
}

func (e *DuplicateTool) Error() string {
	return fmt.Sprintf("tool already registered: %s", e.Name)
}

// ToolNotFound is returned when Lookup or Invoke is given an unknown name.
type ToolNotFound struct {
	Name string
}

func (e *ToolNotFound) Error() string {
	return fmt.Sprintf("tool not found: %s", e.Name)
}

// InvalidToolArguments is returned when a ToolCall's arguments fail schema
// validation: a missing required key, a type mismatch, or an enum value
// outside the declared set.
type InvalidToolArguments struct {
	ToolName string
	Reason   string
}

func (e *InvalidToolArguments) Error() string {
	return fmt.Sprintf("invalid arguments for tool %s: %s", e.ToolName, e.Reason)
}

// ToolExecutionFailed wraps an error raised by a tool's own Execute method.
type ToolExecutionFailed struct {
	ToolName string
	Cause    error
}

func (e *ToolExecutionFailed) Error() string {
	return fmt.Sprintf("tool %s execution failed: %v", e.ToolName, e.Cause)
}

func (e *ToolExecutionFailed) Unwrap() error { return e.Cause }
