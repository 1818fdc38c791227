package strategy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_UnknownStrategy(t *testing.T) {
	t.Parallel()

	_, err := New("MagicStrategy")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownStrategy)
}

func TestNames_StableOrder(t *testing.T) {
	t.Parallel()

	first := Names()
	second := Names()
	assert.Equal(t, first, second)
	assert.Equal(t, []string{NameReact, NameChainOfThought, NameReflection}, first)

	// Every listed name must resolve
	for _, name := range first {
		s, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, name, s.Name())
	}
}

func TestChainOfThought_BuildPrompt(t *testing.T) {
	t.Parallel()

	s, err := New(NameChainOfThought)
	require.NoError(t, err)

	prompt := s.BuildPrompt("X", "Be concise")
	assert.Equal(t, 1, strings.Count(prompt, "Task: X"))
	assert.Contains(t, prompt, "step by step")
	assert.Contains(t, prompt, "Additional Instruction: Be concise")
}

func TestBuildPrompt_NoInstruction(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		s, err := New(name)
		require.NoError(t, err)

		prompt := s.BuildPrompt("count to three", "")
		assert.Contains(t, prompt, "count to three", "strategy %s", name)
		assert.NotContains(t, prompt, "Additional Instruction", "strategy %s", name)
	}
}

func TestReact_BuildPromptStructure(t *testing.T) {
	t.Parallel()

	s, err := New(NameReact)
	require.NoError(t, err)

	prompt := s.BuildPrompt("find the answer", "use tools")
	assert.Contains(t, prompt, "Thought:")
	assert.Contains(t, prompt, "Action:")
	assert.Contains(t, prompt, "Observation:")
	assert.Contains(t, prompt, "Final Answer:")
	assert.Equal(t, 1, strings.Count(prompt, "Task: find the answer"))
}

func TestProcessResponse_Identity(t *testing.T) {
	t.Parallel()

	for _, name := range Names() {
		s, err := New(name)
		require.NoError(t, err)
		assert.Equal(t, "raw output", s.ProcessResponse("raw output"), "strategy %s", name)
	}
}
