package strategy

import (
	"errors"
	"fmt"
)

// ErrUnknownStrategy is returned by New for names outside the catalog.
var ErrUnknownStrategy = errors.New("unknown strategy")

// Strategy is a stateless prompt-shaping and response-shaping policy.
// BuildPrompt wraps a raw task in the strategy's fixed template and appends
// the global instruction when present. ProcessResponse is a hook applied to
// the raw model output; the baseline strategies return it unchanged.
type Strategy interface {
	Name() string
	BuildPrompt(task, instruction string) string
	ProcessResponse(response string) string
}

// Catalog names. The set is closed: persisted configuration references
// strategies by these names.
const (
	NameReact          = "react"
	NameChainOfThought = "chain_of_thought"
	NameReflection     = "reflection"
)

// catalogOrder fixes the listing order independent of map iteration.
var catalogOrder = []string{NameReact, NameChainOfThought, NameReflection}

// New returns the strategy registered under name.
func New(name string) (Strategy, error) {
	switch name {
	case NameReact:
		return reactStrategy{}, nil
	case NameChainOfThought:
		return chainOfThoughtStrategy{}, nil
	case NameReflection:
		return reflectionStrategy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
	}
}

// Names returns the catalog's strategy names in a stable order.
func Names() []string {
	names := make([]string, len(catalogOrder))
	copy(names, catalogOrder)
	return names
}

func appendInstruction(prompt, instruction string) string {
	if instruction == "" {
		return prompt
	}
	return prompt + "\nAdditional Instruction: " + instruction
}

type reactStrategy struct{}

func (reactStrategy) Name() string { return NameReact }

func (reactStrategy) BuildPrompt(task, instruction string) string {
	prompt := fmt.Sprintf(`Approach this task using the following steps:
1) Thought: Analyze what needs to be done
2) Action: Decide on the next action
3) Observation: Observe the result
4) Repeat until task is complete

Follow this format for your response:
Thought: [Your reasoning about the current situation]
Action: [The action you decide to take]
Observation: [What you observe after the action]
... (continue steps as needed)
Final Answer: [Your final response to the task]

Task: %s`, task)
	return appendInstruction(prompt, instruction)
}

func (reactStrategy) ProcessResponse(response string) string { return response }

type chainOfThoughtStrategy struct{}

func (chainOfThoughtStrategy) Name() string { return NameChainOfThought }

func (chainOfThoughtStrategy) BuildPrompt(task, instruction string) string {
	prompt := fmt.Sprintf(`Let's solve this step by step:

Task: %s

Please break down your thinking into clear steps:
1) First, ...
2) Then, ...
(continue with your step-by-step reasoning)

Final Answer: [Your conclusion based on the above reasoning]`, task)
	return appendInstruction(prompt, instruction)
}

func (chainOfThoughtStrategy) ProcessResponse(response string) string { return response }

type reflectionStrategy struct{}

func (reflectionStrategy) Name() string { return NameReflection }

func (reflectionStrategy) BuildPrompt(task, instruction string) string {
	prompt := fmt.Sprintf(`Complete this task using reflection:

Task: %s

1) Initial Approach:
   - What is your first impression of how to solve this?
   - What assumptions are you making?

2) Analysis:
   - What could go wrong with your initial approach?
   - What alternative approaches could you consider?

3) Refined Solution:
   - Based on your reflection, what is the best approach?
   - Why is this approach better than the alternatives?

4) Final Answer:
   - Provide your solution
   - Briefly explain why this is the optimal approach`, task)
	return appendInstruction(prompt, instruction)
}

func (reflectionStrategy) ProcessResponse(response string) string { return response }
