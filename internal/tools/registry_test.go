package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	name    string
	desc    string
	params  map[string]string
	execute func(ctx context.Context, params map[string]string) Result
}

func (s *stubTool) Name() string                  { return s.name }
func (s *stubTool) Description() string           { return s.desc }
func (s *stubTool) Parameters() map[string]string { return s.params }
func (s *stubTool) Execute(ctx context.Context, params map[string]string) Result {
	if s.execute == nil {
		return Result{Success: true, Data: "ok"}
	}
	return s.execute(ctx, params)
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubTool{name: "beta"})
	r.Register(&stubTool{name: "alpha"})
	r.Register(&stubTool{name: "gamma"})

	assert.Equal(t, []string{"beta", "alpha", "gamma"}, r.Names())
	assert.Equal(t, 3, r.Count())
}

func TestRegistry_LastRegistrationWins(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubTool{name: "search", desc: "first"})
	r.Register(&stubTool{name: "search", desc: "second"})

	tool, ok := r.Get("search")
	require.True(t, ok)
	assert.Equal(t, "second", tool.Description())
	// Re-registration keeps the original position
	assert.Equal(t, []string{"search"}, r.Names())
}

func TestRegistry_PromptBlock(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	assert.Equal(t, "No tools available.", r.PromptBlock())

	r.Register(&stubTool{
		name:   "web_search",
		desc:   "Search the web for information about a topic",
		params: map[string]string{"query": "The search query to look up"},
	})

	block := r.PromptBlock()
	assert.Contains(t, block, "Available Tools:")
	assert.Contains(t, block, "Tool: web_search")
	assert.Contains(t, block, "Description: Search the web for information about a topic")
	assert.Contains(t, block, "  - query: The search query to look up")
	assert.Contains(t, block, "To use a tool, specify it in your response as:")
}

func TestRegistry_ExecuteNotFound(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	result := r.Execute(context.Background(), "missing", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "Tool not found: missing")
}

func TestRegistry_ExecuteRecoversPanic(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubTool{
		name: "broken",
		execute: func(ctx context.Context, params map[string]string) Result {
			panic("boom")
		},
	})

	result := r.Execute(context.Background(), "broken", nil)
	assert.False(t, result.Success)
	assert.Contains(t, result.Error, "boom")
}

func TestRegistry_ExecutePassesParams(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Register(&stubTool{
		name: "echo",
		execute: func(ctx context.Context, params map[string]string) Result {
			return Result{Success: true, Data: params["text"]}
		},
	})

	result := r.Execute(context.Background(), "echo", map[string]string{"text": "hello"})
	require.True(t, result.Success)
	assert.Equal(t, "hello", result.Data)
}
