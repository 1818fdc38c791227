package agent

import (
	"context"
	"fmt"

	"github.com/MimeLyc/stateful-agent/internal/contextstore"
	"github.com/MimeLyc/stateful-agent/internal/llm"
	"github.com/MimeLyc/stateful-agent/internal/persistence"
	"github.com/MimeLyc/stateful-agent/internal/strategy"
	"github.com/MimeLyc/stateful-agent/internal/tools"
	"github.com/MimeLyc/stateful-agent/pkg/log"
)

// Fixed user-facing messages for recoverable configuration conditions.
// Execute returns these instead of raising; the transcript stays untouched.
const (
	msgMissingCredential = "API key not found. Please set the LLM_API_KEY environment variable."
	msgMissingTask       = "No task specified. Please provide a task to execute."
)

// DefaultMaxToolIterations bounds the tool-resolution loop within one turn.
const DefaultMaxToolIterations = 10

// contextBinder is the optional wider contract a context provider may
// implement so its binding can be persisted and its index cleared on delete.
// contextstore.Manager satisfies it.
type contextBinder interface {
	contextstore.Provider
	Collection() string
	PersistDir() string
	CurrentQuery() string
	NumResults() int
	ClearIndex() error
}

// Agent is a stateful conversational agent: a persona, an optional global
// instruction, an optional execution strategy, a growing transcript, and the
// collaborators it executes turns with.
//
// A single Agent is not safe for concurrent use; run turns sequentially. The
// store is the only resource meant to be shared between instances.
type Agent struct {
	name        string
	persona     string
	instruction string
	task        string
	transcript  []llm.Message

	strat     strategy.Strategy
	store     *persistence.Store
	registry  *tools.Registry
	provider  contextstore.Provider
	completer llm.Completer

	// binding carries a persisted context collection reference when no live
	// provider is attached, so saves do not drop it.
	binding *persistence.ContextBinding

	maxToolIterations int
}

// Option configures an Agent at construction or through Configure.
type Option func(*Agent) error

// WithPersona sets the agent's persona (the system message of every turn).
func WithPersona(persona string) Option {
	return func(a *Agent) error {
		a.persona = persona
		return nil
	}
}

// WithInstruction sets the global instruction included in every turn and
// appended to strategy prompts.
func WithInstruction(instruction string) Option {
	return func(a *Agent) error {
		a.instruction = instruction
		return nil
	}
}

// WithStrategy selects an execution strategy by catalog name. An empty name
// clears the strategy.
func WithStrategy(name string) Option {
	return func(a *Agent) error {
		if name == "" {
			a.strat = nil
			return nil
		}
		s, err := strategy.New(name)
		if err != nil {
			return err
		}
		a.strat = s
		return nil
	}
}

// WithStore injects the persistence store. Without it New opens the default
// database path.
func WithStore(store *persistence.Store) Option {
	return func(a *Agent) error {
		a.store = store
		return nil
	}
}

// WithRegistry injects the tool registry.
func WithRegistry(registry *tools.Registry) Option {
	return func(a *Agent) error {
		a.registry = registry
		return nil
	}
}

// WithContext attaches a retrieval context provider.
func WithContext(provider contextstore.Provider) Option {
	return func(a *Agent) error {
		a.provider = provider
		return nil
	}
}

// WithCompleter injects the model backend. A nil completer leaves the agent
// without a credential; Execute then returns the fixed message.
func WithCompleter(completer llm.Completer) Option {
	return func(a *Agent) error {
		a.completer = completer
		return nil
	}
}

// WithLLMConfig builds the backend client from cfg. An empty API key attaches
// no backend, which Execute reports as the missing-credential condition.
func WithLLMConfig(cfg llm.Config) Option {
	return func(a *Agent) error {
		if cfg.APIKey == "" {
			a.completer = nil
			return nil
		}
		client, err := llm.NewClient(&cfg)
		if err != nil {
			return err
		}
		a.completer = client
		return nil
	}
}

// WithMaxToolIterations bounds the per-turn tool-resolution loop.
func WithMaxToolIterations(n int) Option {
	return func(a *Agent) error {
		if n < 1 {
			return fmt.Errorf("max tool iterations must be at least 1, got %d", n)
		}
		a.maxToolIterations = n
		return nil
	}
}

// New creates an agent and hydrates it from saved state when a configuration
// row for name exists. Absence of prior state is not an error. Hydrated
// fields (persona, instruction, strategy, task, transcript) override the
// options, matching resume-by-name semantics.
func New(name string, opts ...Option) (*Agent, error) {
	if name == "" {
		return nil, fmt.Errorf("agent name is required")
	}

	a := &Agent{
		name:              name,
		maxToolIterations: DefaultMaxToolIterations,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if a.store == nil {
		store, err := persistence.NewStore("")
		if err != nil {
			return nil, fmt.Errorf("open default store: %w", err)
		}
		a.store = store
	}
	if a.registry == nil {
		a.registry = tools.NewRegistry()
	}

	a.LoadState(context.Background(), "")
	log.Info("Initialized agent: %s", name)
	return a, nil
}

// Configure applies options to an existing agent. Callers persist the result
// explicitly with SaveState; configuration alone does not touch the store.
func (a *Agent) Configure(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return err
		}
	}
	return nil
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.name }

// Persona returns the agent's persona.
func (a *Agent) Persona() string { return a.persona }

// Instruction returns the global instruction.
func (a *Agent) Instruction() string { return a.instruction }

// Task returns the pending task.
func (a *Agent) Task() string { return a.task }

// StrategyName returns the active strategy's name, or "" when none is set.
func (a *Agent) StrategyName() string {
	if a.strat == nil {
		return ""
	}
	return a.strat.Name()
}

// Transcript returns a copy of the conversation transcript.
func (a *Agent) Transcript() []llm.Message {
	out := make([]llm.Message, len(a.transcript))
	copy(out, a.transcript)
	return out
}

// SetTask stages the task for the next Execute call.
func (a *Agent) SetTask(task string) {
	a.task = task
}

// Execute runs one turn: build the ordered message sequence, call the backend
// exactly once, post-process through the strategy, resolve tool usage, append
// the (task, response) pair to the transcript, persist, and clear the task.
//
// Configuration problems (no credential, no task) and backend failures are
// returned as text, never as panics or errors; in all three cases the
// transcript is left untouched and nothing is persisted.
func (a *Agent) Execute(ctx context.Context, taskOverride string) string {
	if taskOverride != "" {
		a.task = taskOverride
	}

	if a.completer == nil {
		return msgMissingCredential
	}
	if a.task == "" {
		return msgMissingTask
	}

	messages := a.buildMessages()
	response, err := a.completer.Complete(ctx, messages)
	if err != nil {
		log.Error("Error executing task: %v", err)
		return fmt.Sprintf("An error occurred: %v", err)
	}

	if a.strat != nil {
		response = a.strat.ProcessResponse(response)
	}
	response = a.resolveTools(ctx, response)

	a.transcript = append(a.transcript,
		llm.Message{Role: llm.RoleUser, Content: a.task},
		llm.Message{Role: llm.RoleAssistant, Content: response},
	)
	a.SaveState(ctx)
	a.task = ""
	return response
}

// buildMessages assembles the ordered turn input: system persona, optional
// global instruction, tool catalog when tools are registered, retrieved
// context when non-empty, the full transcript, and the current task wrapped
// by the strategy when one is set.
func (a *Agent) buildMessages() []llm.Message {
	messages := []llm.Message{{Role: llm.RoleSystem, Content: a.persona}}

	if a.instruction != "" {
		messages = append(messages, llm.Message{
			Role:    llm.RoleUser,
			Content: "Global Instruction: " + a.instruction,
		})
	}
	if a.registry.Count() > 0 {
		messages = append(messages, llm.Message{
			Role:    llm.RoleSystem,
			Content: a.registry.PromptBlock(),
		})
	}
	if a.provider != nil {
		if current := a.provider.CurrentContext(); current != "" {
			messages = append(messages, llm.Message{
				Role:    llm.RoleUser,
				Content: "Relevant Context:\n" + current,
			})
		}
	}

	messages = append(messages, a.transcript...)

	task := a.task
	if a.strat != nil {
		task = a.strat.BuildPrompt(task, a.instruction)
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: task})
}

// resolveTools scans the response for tool-usage blocks and substitutes each
// with "Tool Result (<name>): <data>" or "Tool Error (<name>): <error>". The
// scan cursor only moves forward past each substitution, so a result that
// itself contains a "Tool:" line is never re-executed. The iteration cap is a
// second guard on top of that.
func (a *Agent) resolveTools(ctx context.Context, response string) string {
	cursor := 0
	for i := 0; i < a.maxToolIterations; i++ {
		inv, ok := tools.ParseUsage(response[cursor:])
		if !ok {
			break
		}
		start := cursor + inv.Start
		end := cursor + inv.End

		result := a.registry.Execute(ctx, inv.Name, inv.Params)
		var replacement string
		if result.Success {
			replacement = fmt.Sprintf("Tool Result (%s): %s", inv.Name, result.Data)
		} else {
			errMsg := result.Error
			if errMsg == "" {
				errMsg = "Tool execution failed"
			}
			replacement = fmt.Sprintf("Tool Error (%s): %s", inv.Name, errMsg)
		}

		response = response[:start] + replacement + response[end:]
		cursor = start + len(replacement)
	}
	return response
}

// SaveState persists the agent's full state. Failures are logged by the
// store and reported as false; in-memory state stays valid for a retry.
func (a *Agent) SaveState(ctx context.Context) bool {
	return a.store.SaveState(ctx, a.snapshot())
}

// Pause saves the agent's state so it can be resumed later.
func (a *Agent) Pause(ctx context.Context) bool {
	return a.SaveState(ctx)
}

// LoadState hydrates the agent from the named saved state. An empty name
// loads the agent's own state; a different name rebinds this instance to
// that agent's identity, configuration, and transcript. Returns false when
// no configuration row exists.
func (a *Agent) LoadState(ctx context.Context, name string) bool {
	if name == "" {
		name = a.name
	}
	snapshot, ok := a.store.LoadState(ctx, name)
	if !ok {
		return false
	}

	a.name = snapshot.Name
	a.persona = snapshot.Persona
	a.instruction = snapshot.Instruction
	a.task = snapshot.Task
	a.transcript = snapshot.Transcript

	a.strat = nil
	if snapshot.Strategy != "" {
		s, err := strategy.New(snapshot.Strategy)
		if err != nil {
			log.Warn("Ignoring persisted strategy %q: %v", snapshot.Strategy, err)
		} else {
			a.strat = s
		}
	}

	a.binding = snapshot.Context
	if mgr, ok := a.provider.(*contextstore.Manager); ok && snapshot.Context != nil && snapshot.Context.Query != "" {
		if err := mgr.SetQuery(ctx, snapshot.Context.Query, snapshot.Context.NumResults); err != nil {
			log.Warn("Could not restore context query %q: %v", snapshot.Context.Query, err)
		}
	}

	log.Info("Loaded state for agent: %s", a.name)
	return true
}

// Resume restores the agent from saved state, the counterpart of Pause.
func (a *Agent) Resume(ctx context.Context, name string) bool {
	return a.LoadState(ctx, name)
}

// ClearHistory clears the conversation transcript. With keepLast of zero the
// in-memory transcript is wiped and the empty state persisted; with a
// positive keepLast the store prunes old snapshots and the agent reloads the
// most recent surviving one.
func (a *Agent) ClearHistory(ctx context.Context, keepLast int) {
	if keepLast > 0 {
		a.store.PruneStates(ctx, a.name, keepLast)
		a.LoadState(ctx, "")
		return
	}
	a.transcript = nil
	a.SaveState(ctx)
}

// HistoryStates returns up to limit persisted snapshots, most recent first.
func (a *Agent) HistoryStates(ctx context.Context, limit int) []persistence.StateRecord {
	return a.store.History(ctx, a.name, limit)
}

// Delete removes all persisted data for this agent. An attached context
// manager has its index cleared first.
func (a *Agent) Delete(ctx context.Context) bool {
	if binder, ok := a.provider.(contextBinder); ok {
		if err := binder.ClearIndex(); err != nil {
			log.Error("Error clearing context index: %v", err)
		}
	}
	a.binding = nil
	return a.store.DeleteAgent(ctx, a.name)
}

// AvailableStrategies lists the names accepted by WithStrategy.
func (a *Agent) AvailableStrategies() []string {
	return strategy.Names()
}

// ListSavedAgents returns every agent saved in store, most recently updated
// first.
func ListSavedAgents(ctx context.Context, store *persistence.Store) []persistence.AgentInfo {
	return store.ListAgents(ctx)
}

// snapshot captures the agent's durable state. A live context manager wins
// over a carried binding from a previous load.
func (a *Agent) snapshot() persistence.Snapshot {
	snapshot := persistence.Snapshot{
		Name:        a.name,
		Persona:     a.persona,
		Instruction: a.instruction,
		Strategy:    a.StrategyName(),
		Context:     a.binding,
		Task:        a.task,
		Transcript:  a.transcript,
	}
	if binder, ok := a.provider.(contextBinder); ok {
		snapshot.Context = &persistence.ContextBinding{
			Collection: binder.Collection(),
			PersistDir: binder.PersistDir(),
			Query:      binder.CurrentQuery(),
			NumResults: binder.NumResults(),
		}
	}
	return snapshot
}
