package contextstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
	"golang.org/x/sync/errgroup"

	"github.com/MimeLyc/stateful-agent/pkg/log"
)

// Provider is the contract the agent core consumes: the currently retrieved
// context as a string. Empty means no context is available and the agent
// omits the context message entirely.
type Provider interface {
	CurrentContext() string
}

// DefaultNumResults is the chunk count retrieved per query when the caller
// does not specify one.
const DefaultNumResults = 3

// Config configures a Manager.
type Config struct {
	// Collection names the vector collection. Required.
	Collection string
	// PersistDir stores the vector database on disk; empty keeps it in memory.
	PersistDir string
	// Embedding produces vectors for documents and queries. Required.
	Embedding chromem.EmbeddingFunc
	// ChunkSize and ChunkOverlap tune document splitting; zero values use the
	// chunker defaults.
	ChunkSize    int
	ChunkOverlap int
}

// NewOpenAICompatEmbedding builds an embedding function against an
// OpenAI-compatible embeddings endpoint, sharing the LLM provider's
// credentials.
func NewOpenAICompatEmbedding(apiURL, apiKey, model string) chromem.EmbeddingFunc {
	normalized := true
	return chromem.NewEmbeddingFuncOpenAICompat(apiURL, apiKey, model, &normalized)
}

// Manager provides retrieval-augmented context over an embedded vector
// store. Documents are chunked, embedded, and stored in a chromem-go
// collection; Query retrieves the most similar chunks and caches the
// formatted result for the Provider contract.
type Manager struct {
	collection string
	persistDir string
	chunkSize  int
	overlap    int
	embedding  chromem.EmbeddingFunc

	db  *chromem.DB
	col *chromem.Collection

	mu             sync.RWMutex
	currentQuery   string
	currentContext string
	numResults     int
}

// NewManager creates a context manager for the given collection.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if cfg.Embedding == nil {
		return nil, fmt.Errorf("embedding function is required")
	}

	var (
		db  *chromem.DB
		err error
	)
	if cfg.PersistDir != "" {
		if err = os.MkdirAll(cfg.PersistDir, 0o755); err != nil {
			return nil, fmt.Errorf("create persist directory: %w", err)
		}
		db, err = chromem.NewPersistentDB(cfg.PersistDir, false)
		if err != nil {
			return nil, fmt.Errorf("open vector db: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	col, err := db.GetOrCreateCollection(cfg.Collection, nil, cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("get or create collection: %w", err)
	}

	chunkSize := cfg.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	overlap := cfg.ChunkOverlap
	if overlap <= 0 {
		overlap = DefaultChunkOverlap
	}

	log.Info("Initialized context collection %q (persist_dir=%q)", cfg.Collection, cfg.PersistDir)
	return &Manager{
		collection: cfg.Collection,
		persistDir: cfg.PersistDir,
		chunkSize:  chunkSize,
		overlap:    overlap,
		embedding:  cfg.Embedding,
		db:         db,
		col:        col,
		numResults: DefaultNumResults,
	}, nil
}

// Collection returns the collection name.
func (m *Manager) Collection() string { return m.collection }

// PersistDir returns the on-disk location, or "" for in-memory stores.
func (m *Manager) PersistDir() string { return m.persistDir }

// CurrentQuery returns the last executed query.
func (m *Manager) CurrentQuery() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentQuery
}

// NumResults returns the chunk count used by the last query.
func (m *Manager) NumResults() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.numResults
}

// CurrentContext returns the formatted result of the last query. Implements
// Provider.
func (m *Manager) CurrentContext() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.currentContext
}

// Count returns the number of stored chunks.
func (m *Manager) Count() int {
	return m.col.Count()
}

// IndexFile chunks and indexes one UTF-8 text document. The file's base name
// becomes the chunk source metadata; extra tags are stored alongside it.
func (m *Manager) IndexFile(ctx context.Context, path string, tags map[string]string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	chunks := ChunkText(string(content), m.chunkSize, m.overlap)
	if len(chunks) == 0 {
		return fmt.Errorf("no valid chunks generated from document: %s", path)
	}

	source := filepath.Base(path)
	docs := make([]chromem.Document, 0, len(chunks))
	for _, chunk := range chunks {
		metadata := map[string]string{"source": source}
		for k, v := range tags {
			metadata[k] = v
		}
		docs = append(docs, chromem.Document{
			ID:       uuid.NewString(),
			Content:  chunk,
			Metadata: metadata,
		})
	}

	if err := m.col.AddDocuments(ctx, docs, len(docs)); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}

	log.Info("Indexed document %s (%d chunks)", source, len(chunks))
	return nil
}

// IndexFiles indexes multiple documents with bounded concurrency.
func (m *Manager) IndexFiles(ctx context.Context, paths []string, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 2
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			return m.IndexFile(ctx, path, nil)
		})
	}
	return g.Wait()
}

// Query retrieves the numResults most similar chunks and caches the
// formatted context string. An empty result (or empty collection) yields ""
// so the agent skips the context message.
func (m *Manager) Query(ctx context.Context, query string, numResults int) (string, error) {
	return m.QueryFiltered(ctx, query, numResults, nil)
}

// QueryFiltered is Query restricted to chunks whose metadata matches every
// entry of where. A nil or empty where matches everything.
func (m *Manager) QueryFiltered(ctx context.Context, query string, numResults int, where map[string]string) (string, error) {
	if numResults <= 0 {
		numResults = DefaultNumResults
	}

	m.mu.Lock()
	m.currentQuery = query
	m.numResults = numResults
	m.mu.Unlock()

	// chromem rejects nResults larger than the collection size
	n := numResults
	if count := m.col.Count(); n > count {
		n = count
	}
	if n == 0 {
		m.setContext("")
		return "", nil
	}

	results, err := m.col.Query(ctx, query, n, where, nil)
	if err != nil {
		m.setContext("")
		return "", fmt.Errorf("query collection: %w", err)
	}

	parts := make([]string, 0, len(results))
	for i, result := range results {
		source := result.Metadata["source"]
		if source == "" {
			source = "Unknown source"
		}
		parts = append(parts, fmt.Sprintf("Relevant Context %d (from %s):\n%s\n", i+1, source, result.Content))
	}

	formatted := strings.Join(parts, "\n")
	m.setContext(formatted)
	return formatted, nil
}

// SetQuery re-executes a persisted query binding, restoring CurrentContext
// after a resume.
func (m *Manager) SetQuery(ctx context.Context, query string, numResults int) error {
	_, err := m.Query(ctx, query, numResults)
	return err
}

// ClearIndex drops every stored chunk and resets the cached query state.
func (m *Manager) ClearIndex() error {
	if err := m.db.DeleteCollection(m.collection); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	col, err := m.db.GetOrCreateCollection(m.collection, nil, m.embedding)
	if err != nil {
		return fmt.Errorf("recreate collection: %w", err)
	}
	m.col = col

	m.mu.Lock()
	m.currentQuery = ""
	m.currentContext = ""
	m.mu.Unlock()

	log.Info("Cleared context collection %q", m.collection)
	return nil
}

func (m *Manager) setContext(value string) {
	m.mu.Lock()
	m.currentContext = value
	m.mu.Unlock()
}
