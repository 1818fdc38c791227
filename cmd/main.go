package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/MimeLyc/stateful-agent/internal/agent"
	"github.com/MimeLyc/stateful-agent/internal/config"
	"github.com/MimeLyc/stateful-agent/internal/contextstore"
	"github.com/MimeLyc/stateful-agent/internal/persistence"
	"github.com/MimeLyc/stateful-agent/internal/tools"
	"github.com/MimeLyc/stateful-agent/pkg/log"
)

func main() {
	// A missing .env file is fine; environment variables still apply
	_ = godotenv.Load()

	var (
		agentName   = flag.String("agent", "assistant", "agent name to run or resume")
		persona     = flag.String("persona", "", "persona for the agent (persisted)")
		instruction = flag.String("instruction", "", "global instruction for the agent (persisted)")
		strategyArg = flag.String("strategy", "", "execution strategy: react, chain_of_thought, reflection")
		indexFiles  = flag.String("index", "", "comma-separated text files to index into the context collection")
		queryArg    = flag.String("query", "", "context query to retrieve before executing")
		listAgents  = flag.Bool("list", false, "list saved agents and exit")
		historyN    = flag.Int("history", 0, "show the last N saved states and exit")
		clearKeep   = flag.Int("clear", -1, "clear history keeping the last N states (0 wipes all) and exit")
		deleteAgent = flag.Bool("delete", false, "delete the agent's saved data and exit")
		retain      = flag.Bool("retain", false, "run the scheduled snapshot retention loop instead of a task")
	)
	flag.Parse()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	store, err := persistence.NewStore(cfg.Agent.DBPath)
	if err != nil {
		log.Fatal("Failed to open state store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	if *listAgents {
		for _, info := range agent.ListSavedAgents(ctx, store) {
			fmt.Printf("%s\t%s\n", info.Name, info.LastUpdated.Format("2006-01-02 15:04:05"))
		}
		return
	}
	if *retain {
		runRetention(ctx, store, cfg.Retention)
		return
	}

	a, manager, err := buildAgent(cfg, store, *agentName, *persona, *instruction, *strategyArg)
	if err != nil {
		log.Fatal("Failed to build agent: %v", err)
	}

	switch {
	case *historyN > 0:
		for _, state := range a.HistoryStates(ctx, *historyN) {
			fmt.Printf("%s\ttask=%q\tmessages=%d\n",
				state.Timestamp.Format("2006-01-02 15:04:05"), state.Task, len(state.Transcript))
		}
		return
	case *clearKeep >= 0:
		a.ClearHistory(ctx, *clearKeep)
		return
	case *deleteAgent:
		if !a.Delete(ctx) {
			os.Exit(1)
		}
		return
	}

	if err := prepareContext(ctx, manager, cfg, *indexFiles, *queryArg); err != nil {
		log.Fatal("Failed to prepare context: %v", err)
	}

	task := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if task == "" && a.Task() == "" {
		flag.Usage()
		os.Exit(2)
	}

	// Persist any configuration passed on this invocation before running
	a.SaveState(ctx)

	fmt.Println(a.Execute(ctx, task))
}

// buildAgent wires the collaborators: tool registry, backend client, and the
// context manager when a collection is configured.
func buildAgent(cfg *config.Config, store *persistence.Store, name, persona, instruction, strategyName string) (*agent.Agent, *contextstore.Manager, error) {
	registry := tools.NewRegistry()
	registry.Register(tools.NewWikipediaTool(""))
	if cfg.Search.APIKey != "" {
		registry.Register(tools.NewWebSearchTool(cfg.Search.APIKey, cfg.Search.APIURL))
	}

	opts := []agent.Option{
		agent.WithStore(store),
		agent.WithRegistry(registry),
		agent.WithLLMConfig(cfg.LLM),
		agent.WithMaxToolIterations(cfg.Agent.MaxToolIterations),
	}
	var manager *contextstore.Manager
	if cfg.Context.Collection != "" {
		var err error
		manager, err = contextstore.NewManager(contextstore.Config{
			Collection: cfg.Context.Collection,
			PersistDir: cfg.Context.PersistDir,
			Embedding:  contextstore.NewOpenAICompatEmbedding(cfg.LLM.APIURL, cfg.LLM.APIKey, cfg.Context.EmbeddingModel),
		})
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, agent.WithContext(manager))
	}

	a, err := agent.New(name, opts...)
	if err != nil {
		return nil, nil, err
	}

	// Command-line configuration overrides whatever was hydrated
	var overrides []agent.Option
	if persona != "" {
		overrides = append(overrides, agent.WithPersona(persona))
	}
	if instruction != "" {
		overrides = append(overrides, agent.WithInstruction(instruction))
	}
	if strategyName != "" {
		overrides = append(overrides, agent.WithStrategy(strategyName))
	}
	if err := a.Configure(overrides...); err != nil {
		return nil, nil, err
	}
	return a, manager, nil
}

// prepareContext indexes any requested documents and executes the retrieval
// query so the turn sees fresh context.
func prepareContext(ctx context.Context, manager *contextstore.Manager, cfg *config.Config, indexFiles, query string) error {
	if indexFiles == "" && query == "" {
		return nil
	}
	if manager == nil {
		return fmt.Errorf("CONTEXT_COLLECTION must be set to use -index or -query")
	}

	if indexFiles != "" {
		paths := strings.Split(indexFiles, ",")
		for i := range paths {
			paths[i] = strings.TrimSpace(paths[i])
		}
		if err := manager.IndexFiles(ctx, paths, 2); err != nil {
			return err
		}
	}
	if query != "" {
		if err := manager.SetQuery(ctx, query, cfg.Context.NumResults); err != nil {
			return err
		}
	}
	return nil
}

// runRetention prunes old state snapshots for every saved agent on the
// configured cron schedule. Blocks until the process is stopped.
func runRetention(ctx context.Context, store *persistence.Store, cfg config.RetentionConfig) {
	c := cron.New()
	_, err := c.AddFunc(cfg.CronExpr, func() {
		for _, info := range store.ListAgents(ctx) {
			if store.PruneStates(ctx, info.Name, cfg.KeepLast) {
				log.Info("Pruned states for agent %s (keep last %d)", info.Name, cfg.KeepLast)
			}
		}
	})
	if err != nil {
		log.Fatal("Invalid retention schedule %q: %v", cfg.CronExpr, err)
	}
	log.Info("Retention loop running (schedule %q)", cfg.CronExpr)
	c.Run()
}
