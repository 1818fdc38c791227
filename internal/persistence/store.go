package persistence

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/MimeLyc/stateful-agent/internal/llm"
	"github.com/MimeLyc/stateful-agent/pkg/log"
)

// DefaultDBPath is where agent state lands when no path is configured.
const DefaultDBPath = "agent_memory.db"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Store persists agent configuration and state snapshots in SQLite.
//
// Every Store owns its own connection to the database file; concurrent
// actors (goroutines or processes) sharing one agent name must each open
// their own Store. Conflicting writers are last-write-wins on configuration
// and append-only on snapshots; no cross-process locking is provided.
type Store struct {
	db *sql.DB
}

// NewStore opens (and migrates) the SQLite database at path. An empty path
// uses DefaultDBPath in the working directory.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultDBPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db}
	if err := store.init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		return fmt.Errorf("set busy timeout: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		return fmt.Errorf("enable foreign keys: %w", err)
	}
	// Bootstrap schema_migrations table so we can track applied versions.
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	entries, err := migrationFiles.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		version := migrationVersion(entry.Name())
		if version <= 0 {
			continue
		}
		var exists int
		if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM schema_migrations WHERE version = ?`, version).Scan(&exists); err != nil {
			return fmt.Errorf("check migration %s: %w", entry.Name(), err)
		}
		if exists > 0 {
			continue
		}
		content, err := migrationFiles.ReadFile(filepath.Join("migrations", entry.Name()))
		if err != nil {
			return fmt.Errorf("read migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, string(content)); err != nil {
			return fmt.Errorf("apply migration %s: %w", entry.Name(), err)
		}
		if _, err := s.db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return fmt.Errorf("record migration %s: %w", entry.Name(), err)
		}
	}
	return nil
}

// migrationVersion extracts the leading integer from a migration filename (e.g. "001_init.sql" → 1).
func migrationVersion(name string) int {
	for i, c := range name {
		if c < '0' || c > '9' {
			if i == 0 {
				return 0
			}
			n, _ := strconv.Atoi(name[:i])
			return n
		}
	}
	n, _ := strconv.Atoi(name)
	return n
}

// SaveState upserts the agent's configuration row and appends a new state
// snapshot, atomically. Failures are logged and reported as false; the
// caller's in-memory state stays valid and the save may be retried.
func (s *Store) SaveState(ctx context.Context, snapshot Snapshot) bool {
	historyJSON, err := json.Marshal(snapshot.Transcript)
	if err != nil {
		log.Error("Error saving agent state: %v", err)
		return false
	}

	var (
		contextCollection sql.NullString
		contextPersistDir sql.NullString
		contextQuery      sql.NullString
		contextNumResults sql.NullInt64
	)
	if snapshot.Context != nil {
		contextCollection = sql.NullString{String: snapshot.Context.Collection, Valid: true}
		contextPersistDir = sql.NullString{String: snapshot.Context.PersistDir, Valid: true}
		contextQuery = sql.NullString{String: snapshot.Context.Query, Valid: true}
		contextNumResults = sql.NullInt64{Int64: int64(snapshot.Context.NumResults), Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Error("Error saving agent state: %v", err)
		return false
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO agents (
			name, persona, instruction, strategy,
			context_collection, context_persist_dir, context_query, context_num_results
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			persona=excluded.persona,
			instruction=excluded.instruction,
			strategy=excluded.strategy,
			context_collection=excluded.context_collection,
			context_persist_dir=excluded.context_persist_dir,
			context_query=excluded.context_query,
			context_num_results=excluded.context_num_results`,
		snapshot.Name,
		snapshot.Persona,
		snapshot.Instruction,
		nullableString(snapshot.Strategy),
		contextCollection,
		contextPersistDir,
		contextQuery,
		contextNumResults,
	)
	if err != nil {
		log.Error("Error saving agent state: %v", err)
		return false
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO agent_states (agent_name, task, history, timestamp)
		 VALUES (?, ?, ?, ?)`,
		snapshot.Name,
		snapshot.Task,
		string(historyJSON),
		time.Now().UTC(),
	)
	if err != nil {
		log.Error("Error saving agent state: %v", err)
		return false
	}

	if err = tx.Commit(); err != nil {
		log.Error("Error saving agent state: %v", err)
		return false
	}
	return true
}

// LoadState fetches the configuration row and the most recent state snapshot
// for name. It succeeds iff the configuration row exists; a missing state
// row hydrates an empty task and an empty transcript.
func (s *Store) LoadState(ctx context.Context, name string) (Snapshot, bool) {
	snapshot := Snapshot{Name: name}

	var (
		strategy          sql.NullString
		contextCollection sql.NullString
		contextPersistDir sql.NullString
		contextQuery      sql.NullString
		contextNumResults sql.NullInt64
	)
	err := s.db.QueryRowContext(
		ctx,
		`SELECT persona, instruction, strategy,
		        context_collection, context_persist_dir, context_query, context_num_results
		 FROM agents
		 WHERE name = ?`,
		name,
	).Scan(
		&snapshot.Persona,
		&snapshot.Instruction,
		&strategy,
		&contextCollection,
		&contextPersistDir,
		&contextQuery,
		&contextNumResults,
	)
	if err == sql.ErrNoRows {
		return Snapshot{}, false
	}
	if err != nil {
		log.Error("Error loading agent state: %v", err)
		return Snapshot{}, false
	}

	snapshot.Strategy = strategy.String
	if contextCollection.Valid && contextPersistDir.Valid {
		numResults := int(contextNumResults.Int64)
		if numResults <= 0 {
			numResults = 3
		}
		snapshot.Context = &ContextBinding{
			Collection: contextCollection.String,
			PersistDir: contextPersistDir.String,
			Query:      contextQuery.String,
			NumResults: numResults,
		}
	}

	var (
		task        string
		historyJSON sql.NullString
	)
	err = s.db.QueryRowContext(
		ctx,
		`SELECT task, history
		 FROM agent_states
		 WHERE agent_name = ?
		 ORDER BY timestamp DESC, id DESC
		 LIMIT 1`,
		name,
	).Scan(&task, &historyJSON)
	switch {
	case err == sql.ErrNoRows:
		// Configuration without state yet: empty task, empty transcript.
	case err != nil:
		log.Error("Error loading agent state: %v", err)
		return Snapshot{}, false
	default:
		snapshot.Task = task
		snapshot.Transcript = decodeTranscript(historyJSON)
	}

	return snapshot, true
}

// ListAgents returns every saved agent, most recently updated first.
func (s *Store) ListAgents(ctx context.Context) []AgentInfo {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT name, last_updated
		 FROM agents
		 ORDER BY last_updated DESC`,
	)
	if err != nil {
		log.Error("Error listing saved agents: %v", err)
		return nil
	}
	defer rows.Close()

	ret := make([]AgentInfo, 0)
	for rows.Next() {
		var info AgentInfo
		if err := rows.Scan(&info.Name, &info.LastUpdated); err != nil {
			log.Error("Error listing saved agents: %v", err)
			return nil
		}
		ret = append(ret, info)
	}
	if err := rows.Err(); err != nil {
		log.Error("Error listing saved agents: %v", err)
		return nil
	}
	return ret
}

// History returns up to limit state snapshots for name, most recent first.
func (s *Store) History(ctx context.Context, name string, limit int) []StateRecord {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT task, history, timestamp
		 FROM agent_states
		 WHERE agent_name = ?
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ?`,
		name,
		limit,
	)
	if err != nil {
		log.Error("Error retrieving agent history: %v", err)
		return nil
	}
	defer rows.Close()

	ret := make([]StateRecord, 0, limit)
	for rows.Next() {
		var (
			record      StateRecord
			historyJSON sql.NullString
		)
		if err := rows.Scan(&record.Task, &historyJSON, &record.Timestamp); err != nil {
			log.Error("Error retrieving agent history: %v", err)
			return nil
		}
		record.Transcript = decodeTranscript(historyJSON)
		ret = append(ret, record)
	}
	if err := rows.Err(); err != nil {
		log.Error("Error retrieving agent history: %v", err)
		return nil
	}
	return ret
}

// DeleteAgent removes the agent's configuration row; the foreign key cascade
// removes every associated state snapshot.
func (s *Store) DeleteAgent(ctx context.Context, name string) bool {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE name = ?`, name); err != nil {
		log.Error("Error deleting agent state: %v", err)
		return false
	}
	return true
}

// PruneStates retains only the keepLast most recent state snapshots for name.
func (s *Store) PruneStates(ctx context.Context, name string, keepLast int) bool {
	if keepLast < 0 {
		keepLast = 0
	}
	_, err := s.db.ExecContext(
		ctx,
		`DELETE FROM agent_states
		 WHERE agent_name = ?
		 AND id NOT IN (
			SELECT id FROM agent_states
			WHERE agent_name = ?
			ORDER BY timestamp DESC, id DESC
			LIMIT ?
		 )`,
		name,
		name,
		keepLast,
	)
	if err != nil {
		log.Error("Error cleaning up old states: %v", err)
		return false
	}
	return true
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func decodeTranscript(historyJSON sql.NullString) []llm.Message {
	if !historyJSON.Valid || historyJSON.String == "" {
		return nil
	}
	var transcript []llm.Message
	if err := json.Unmarshal([]byte(historyJSON.String), &transcript); err != nil {
		log.Error("Error decoding transcript: %v", err)
		return nil
	}
	return transcript
}
