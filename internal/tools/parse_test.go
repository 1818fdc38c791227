package tools

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUsage_BasicBlock(t *testing.T) {
	t.Parallel()

	text := "Tool: web_search\n  - query: capital of Telangana\nFinal Answer: pending"
	inv, ok := ParseUsage(text)
	require.True(t, ok)

	assert.Equal(t, "web_search", inv.Name)
	assert.Equal(t, map[string]string{"query": "capital of Telangana"}, inv.Params)
	// The block covers the Tool line and its parameter line, nothing more
	assert.Equal(t, "Tool: web_search\n  - query: capital of Telangana", text[inv.Start:inv.End])
}

func TestParseUsage_WithParametersLabel(t *testing.T) {
	t.Parallel()

	text := "I will look this up.\nTool: wikipedia_search\nParameters:\n  - query: Hyderabad\n\nThen I will summarize."
	inv, ok := ParseUsage(text)
	require.True(t, ok)

	assert.Equal(t, "wikipedia_search", inv.Name)
	assert.Equal(t, "Hyderabad", inv.Params["query"])
	assert.Equal(t, "Tool: wikipedia_search\nParameters:\n  - query: Hyderabad", text[inv.Start:inv.End])
}

func TestParseUsage_MultipleParams(t *testing.T) {
	t.Parallel()

	text := "Tool: lookup\n  - city: Hyderabad\n  - topic: cuisine"
	inv, ok := ParseUsage(text)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"city": "Hyderabad", "topic": "cuisine"}, inv.Params)
}

func TestParseUsage_NoBlock(t *testing.T) {
	t.Parallel()

	_, ok := ParseUsage("The capital of Telangana is Hyderabad.")
	assert.False(t, ok)

	// "Tool:" must start a line, not merely appear in one
	_, ok = ParseUsage("Use the Tool: syntax to call tools.")
	assert.False(t, ok)
}

func TestParseUsage_BlankLineEndsBlock(t *testing.T) {
	t.Parallel()

	text := "Tool: web_search\n  - query: first\n\n  - query: stray"
	inv, ok := ParseUsage(text)
	require.True(t, ok)
	assert.Equal(t, "first", inv.Params["query"])
	assert.Equal(t, "Tool: web_search\n  - query: first", text[inv.Start:inv.End])
}

func TestParseUsage_ValueKeepsColons(t *testing.T) {
	t.Parallel()

	// Only the first ':' splits name from value
	text := "Tool: web_search\n  - query: what is: quantum supremacy"
	inv, ok := ParseUsage(text)
	require.True(t, ok)
	assert.Equal(t, "what is: quantum supremacy", inv.Params["query"])
}

func TestParseUsage_ResultTextDoesNotRetrigger(t *testing.T) {
	t.Parallel()

	// Substituted result lines start with "Tool Result", not "Tool:"
	_, ok := ParseUsage("Tool Result (web_search): Hyderabad\nFinal Answer: Hyderabad")
	assert.False(t, ok)
}
