package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Result represents the outcome of a tool execution. Exactly one of Data or
// Error is meaningful depending on Success.
type Result struct {
	Success bool   `json:"success"`
	Data    string `json:"data"`
	Error   string `json:"error,omitempty"`
}

// Tool defines the interface for capabilities the agent can invoke by name.
//
// Execute must catch internal failures and translate them into a failed
// Result rather than propagating: a tool crash must never abort a turn.
type Tool interface {
	// Name returns the unique name of the tool
	Name() string

	// Description returns a description of what the tool does
	Description() string

	// Parameters returns parameter names mapped to human-readable descriptions
	Parameters() map[string]string

	// Execute runs the tool with the given string parameters
	Execute(ctx context.Context, params map[string]string) Result
}

// PromptFormat renders a single tool the way it is presented to the model.
func PromptFormat(t Tool) string {
	params := t.Parameters()
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Tool: %s\n", t.Name())
	fmt.Fprintf(&b, "Description: %s\n", t.Description())
	b.WriteString("Parameters:")
	for _, name := range names {
		fmt.Fprintf(&b, "\n  - %s: %s", name, params[name])
	}
	return b.String()
}
