package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kirillkom/factoid-qa/internal/config"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
	"github.com/kirillkom/factoid-qa/internal/core/usecase"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/chunking"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/extraction/squadws"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/nlp/corenlp"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/queue/nats"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/resilience"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/search"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/search/cache"
)

// Pipeline holds the synchronous answering components shared by every
// binary.
type Pipeline struct {
	Classifier   *usecase.QuestionPreprocessor
	Reformulator *usecase.QueryReformulator
	Answerer     *usecase.QuestionAnswerUseCase
	Evaluator    *usecase.Evaluator

	closers []func(context.Context) error
}

// NewPipeline wires the tagger, search backends, answer extractor and use
// cases. observer may be nil.
func NewPipeline(ctx context.Context, cfg config.Config, logger *slog.Logger, observer ports.PipelineObserver) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pipeline{}
	executor := NewExecutor(cfg, logger)

	tagger := corenlp.New(cfg.CoreNLPURL, corenlp.Options{
		Timeout:            cfg.TaggerTimeout,
		ResilienceExecutor: executor,
	})

	settings := search.Settings{
		SearchBackend:   cfg.SearchBackend,
		KGBackend:       cfg.KGBackend,
		MaxObjects:      cfg.MaxObjects,
		DiffbotURL:      cfg.DiffbotURL,
		DiffbotToken:    cfg.DiffbotToken,
		GoogleKGAPIKey:  cfg.GoogleKGAPIKey,
		LocalCorpusPath: cfg.LocalCorpusPath,
		Neo4jURI:        cfg.Neo4jURI,
		Neo4jUser:       cfg.Neo4jUser,
		Neo4jPassword:   cfg.Neo4jPassword,
		RateLimitRPS:    cfg.SearchRateLimitRPS,
		RateLimitBurst:  cfg.SearchRateLimitBurst,
		ExpandTags:      cfg.ExpandTags,
		CacheTTL:        cfg.SearchCacheTTL,
		Executor:        executor,
		Logger:          logger,
	}
	if cfg.RedisAddr != "" {
		store, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, fmt.Errorf("init search cache: %w", err)
		}
		settings.CacheStore = store
		p.closers = append(p.closers, func(context.Context) error { return store.Close() })
	}

	searcher, err := search.NewSearcher(ctx, settings)
	if err != nil {
		_ = p.Close(ctx)
		return nil, fmt.Errorf("init document searcher: %w", err)
	}
	kg, closeKG, err := search.NewKnowledgeGraph(ctx, settings)
	if err != nil {
		_ = p.Close(ctx)
		return nil, fmt.Errorf("init knowledge graph: %w", err)
	}
	p.closers = append(p.closers, closeKG)

	extractor := squadws.New(cfg.ExtractorURL, squadws.Options{
		CallTimeout:        cfg.ExtractorTimeout,
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	p.closers = append(p.closers, func(context.Context) error { return extractor.Close() })

	p.Classifier = usecase.NewQuestionPreprocessor(tagger, logger)
	p.Reformulator = usecase.NewQueryReformulator(tagger, logger)
	retriever := usecase.NewDocumentRetriever(searcher, kg, search.NewArticleFetcher(settings), cfg.MaxObjects, logger)
	candidates := usecase.NewCandidateGenerator(chunking.NewSplitter(cfg.ParagraphTokens), cfg.MaxCandidates, logger)
	p.Answerer = usecase.NewQuestionAnswerUseCase(
		p.Classifier,
		p.Reformulator,
		retriever,
		candidates,
		extractor,
		usecase.NewAnswerAggregator(),
		observer,
		logger,
	)
	p.Evaluator = usecase.NewEvaluator(p.Answerer, logger)
	return p, nil
}

func (p *Pipeline) Close(ctx context.Context) error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	p.closers = nil
	return errors.Join(errs...)
}

// App adds the asynchronous job plumbing used by the api and worker
// binaries.
type App struct {
	Config config.Config
	*Pipeline

	Queue ports.JobQueue
	Repo  ports.QuestionJobRepository
	Jobs  *usecase.QuestionJobUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, observer ports.PipelineObserver) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pipeline, err := NewPipeline(ctx, cfg, logger, observer)
	if err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		_ = pipeline.Close(ctx)
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewQuestionJobRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		_ = pipeline.Close(ctx)
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: NewExecutor(cfg, logger),
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		_ = pipeline.Close(ctx)
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	return &App{
		Config:   cfg,
		Pipeline: pipeline,
		Queue:    queue,
		Repo:     repo,
		Jobs:     usecase.NewQuestionJobUseCase(repo, queue, pipeline.Answerer),
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
	if a.Pipeline != nil {
		if err := a.Pipeline.Close(context.Background()); err != nil {
			slog.Warn("pipeline_close_failed", "error", err)
		}
	}
}

// NewExecutor builds the retry and circuit breaker policy shared by the
// outbound clients.
func NewExecutor(cfg config.Config, logger *slog.Logger) *resilience.Executor {
	rc := resilience.DefaultConfig()
	if cfg.RetryMaxAttempts > 0 {
		rc.RetryMaxAttempts = cfg.RetryMaxAttempts
	}
	if cfg.RetryInitialBackoff > 0 {
		rc.RetryInitialBackoff = cfg.RetryInitialBackoff
	}
	if cfg.RetryMaxBackoff > 0 {
		rc.RetryMaxBackoff = cfg.RetryMaxBackoff
	}
	if cfg.AttemptTimeout > 0 {
		rc.AttemptTimeout = cfg.AttemptTimeout
	}
	if cfg.BreakerOpenTimeout > 0 {
		rc.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	}
	rc.BreakerEnabled = cfg.BreakerEnabled
	return resilience.NewExecutor(rc, logger)
}
