package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kirillkom/grounded-chat/internal/config"
	"github.com/kirillkom/grounded-chat/internal/core/ports"
	"github.com/kirillkom/grounded-chat/internal/core/usecase"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/chunking"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/extractor"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/llm/openai"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/queue/nats"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/resilience"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/vector/sqlitevec"
	"github.com/kirillkom/grounded-chat/internal/infrastructure/websearch/tavily"
)

// Options carries process-specific hooks; both fields are optional.
type Options struct {
	ClientName      string
	BreakerObserver resilience.StateObserver
	ChatObserver    usecase.ChatObserver
}

type App struct {
	Config config.Config

	// Queue is nil when the purge queue is disabled.
	Queue *nats.Queue

	Chat      *usecase.ChatUseCase
	Ingest    *usecase.IngestDocumentUseCase
	Documents *usecase.DocumentCatalogUseCase
	Threads   *usecase.ThreadUseCase
	Retriever *usecase.Retriever

	closers []func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}
	ready := false
	defer func() {
		if !ready {
			app.Close()
		}
	}()

	executor := resilience.NewExecutor(resilienceConfig(cfg))
	if opts.BreakerObserver != nil {
		executor.WithStateObserver(opts.BreakerObserver)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	app.closers = append(app.closers, func() { _ = db.Close() })
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	docs := postgres.NewDocumentRepository(db)
	conversations := postgres.NewConversationRepository(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	chunker, err := chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("init chunker: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
		ResilienceExecutor: executor,
		Timeout:            cfg.LLMTimeout,
		Temperature:        cfg.LLMTemperature,
	})
	embedder := ollama.NewEmbedder(ollamaClient)

	model, err := newChatModel(cfg, ollamaClient, executor)
	if err != nil {
		return nil, err
	}

	index, err := app.newVectorIndex(cfg, embedder, executor)
	if err != nil {
		return nil, err
	}

	var searcher ports.WebSearcher
	if cfg.WebSearchConfigured() {
		client, err := tavily.New(cfg.TavilyURL, cfg.TavilyAPIKey, tavily.Options{
			ResilienceExecutor: executor,
			Timeout:            cfg.WebSearchTimeout,
			RequestsPerSecond:  cfg.TavilyRPS,
			Burst:              cfg.TavilyBurst,
		})
		if err != nil {
			return nil, fmt.Errorf("init web search: %w", err)
		}
		searcher = client
	} else {
		slog.Info("web_search_disabled", "reason", "TAVILY_API_KEY is not set")
	}

	var queue ports.JobQueue
	if cfg.QueueEnabled {
		q, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
			ClientName:         opts.ClientName,
		})
		if err != nil {
			return nil, fmt.Errorf("init purge queue: %w", err)
		}
		app.Queue = q
		app.closers = append(app.closers, q.Close)
		queue = q
	}

	app.Retriever = usecase.NewRetriever(index, cfg.RetrievalTopK, cfg.RelevanceFloor)
	web := usecase.NewWebEvidence(searcher, cfg.WebMaxResults)

	app.Chat = usecase.NewChatUseCase(conversations, docs, app.Retriever, web, model, usecase.ChatOptions{
		SystemPrompt:  cfg.SystemPrompt,
		TopK:          cfg.RetrievalTopK,
		HistoryLimit:  cfg.HistoryLimit,
		WebMaxResults: cfg.WebMaxResults,
	})
	if opts.ChatObserver != nil {
		app.Chat.WithObserver(opts.ChatObserver)
	}
	app.Ingest = usecase.NewIngestDocumentUseCase(docs, storage, extractor.NewRouter(storage), chunker, index)
	app.Documents = usecase.NewDocumentCatalogUseCase(docs, storage, index, queue)
	app.Threads = usecase.NewThreadUseCase(conversations, docs)

	ready = true
	return app, nil
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func newChatModel(cfg config.Config, ollamaClient *ollama.Client, executor *resilience.Executor) (ports.ChatModel, error) {
	switch cfg.LLMProvider {
	case config.LLMProviderOpenAI:
		model, err := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.OpenAIModel, openai.Options{
			ResilienceExecutor: executor,
			Timeout:            cfg.LLMTimeout,
			Temperature:        cfg.LLMTemperature,
		})
		if err != nil {
			return nil, fmt.Errorf("init openai chat model: %w", err)
		}
		return model, nil
	default:
		return ollama.NewChatModel(ollamaClient), nil
	}
}

func (a *App) newVectorIndex(cfg config.Config, embedder ports.Embedder, executor *resilience.Executor) (ports.VectorIndex, error) {
	switch cfg.VectorBackend {
	case config.VectorBackendSQLite:
		if dir := filepath.Dir(cfg.SQLiteIndexPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite index dir: %w", err)
			}
		}
		index, err := sqlitevec.Open(cfg.SQLiteIndexPath, embedder)
		if err != nil {
			return nil, fmt.Errorf("open sqlite index: %w", err)
		}
		a.closers = append(a.closers, func() { _ = index.Close() })
		return index, nil
	default:
		return qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, embedder, qdrant.Options{
			ResilienceExecutor: executor,
			Timeout:            cfg.LLMTimeout,
		}), nil
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	rc := resilience.DefaultConfig()
	rc.RetryMaxAttempts = cfg.RetryMaxAttempts
	rc.RetryInitialBackoff = cfg.RetryInitialBackoff
	rc.RetryMaxBackoff = cfg.RetryMaxBackoff
	rc.BreakerEnabled = cfg.BreakerEnabled
	if cfg.BreakerMinRequests > 0 {
		rc.BreakerMinRequests = uint32(cfg.BreakerMinRequests)
	}
	rc.BreakerFailureRatio = cfg.BreakerFailureRatio
	rc.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	return rc
}

