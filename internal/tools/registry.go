package tools

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/MimeLyc/stateful-agent/pkg/log"
)

// usageGrammar is the fixed block appended to the tool catalog telling the
// model how to request a tool call. The parser in parse.go consumes the same
// shape back out of model responses.
const usageGrammar = `To use a tool, specify it in your response as:
Tool: [tool_name]
Parameters:
  - param1: value1
  - param2: value2`

// Registry manages the tools available to an agent. Registration order is
// preserved; registering a name twice replaces the earlier entry in place.
type Registry struct {
	mu    sync.RWMutex
	order []string
	tools map[string]Tool
}

// NewRegistry creates an empty tool registry
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry. Last registration wins.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if _, exists := r.tools[name]; !exists {
		r.order = append(r.order, name)
	}
	r.tools[name] = tool
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Names returns all registered tool names in registration order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Count returns the number of registered tools
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// PromptBlock renders every registered tool plus the usage grammar for
// inclusion in a model prompt.
func (r *Registry) PromptBlock() string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.order) == 0 {
		return "No tools available."
	}

	blocks := make([]string, 0, len(r.order))
	for _, name := range r.order {
		blocks = append(blocks, PromptFormat(r.tools[name]))
	}

	return fmt.Sprintf("Available Tools:\n\n%s\n\n%s\n", strings.Join(blocks, "\n\n"), usageGrammar)
}

// Execute looks up and runs a tool, guarding against panics so a misbehaving
// implementation cannot abort the caller's turn.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]string) (result Result) {
	tool, exists := r.Get(name)
	if !exists {
		log.Error("Tool not found: %s", name)
		return Result{Success: false, Error: fmt.Sprintf("Tool not found: %s", name)}
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("Tool %s panicked: %v", name, rec)
			result = Result{Success: false, Error: fmt.Sprintf("Tool execution failed: %v", rec)}
		}
	}()

	result = tool.Execute(ctx, params)
	log.Info("Tool %s executed: success=%v", name, result.Success)
	return result
}
