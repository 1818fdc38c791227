package persistence

import (
	"time"

	"github.com/MimeLyc/stateful-agent/internal/llm"
)

// ContextBinding references the retrieval collection an agent is bound to,
// without owning the retrieval engine itself.
type ContextBinding struct {
	Collection string `json:"collection"`
	PersistDir string `json:"persist_dir"`
	Query      string `json:"query"`
	NumResults int    `json:"num_results"`
}

// Snapshot is the full durable state of an agent: its configuration plus the
// pending task and transcript at save time.
type Snapshot struct {
	Name        string
	Persona     string
	Instruction string
	Strategy    string
	Context     *ContextBinding
	Task        string
	Transcript  []llm.Message
}

// AgentInfo identifies a saved agent and when its configuration last changed.
type AgentInfo struct {
	Name        string
	LastUpdated time.Time
}

// StateRecord is one historical snapshot row.
type StateRecord struct {
	Task       string
	Transcript []llm.Message
	Timestamp  time.Time
}
