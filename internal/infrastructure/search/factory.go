package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/resilience"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/search/cache"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/search/diffbot"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/search/googlekg"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/search/localfs"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/search/neo4jkg"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/search/throttle"
)

const (
	BackendDiffbot  = "diffbot"
	BackendGoogleKG = "googlekg"
	BackendLocal    = "local"
	BackendNeo4j    = "neo4j"
)

type Settings struct {
	SearchBackend   string
	KGBackend       string
	MaxObjects      int
	DiffbotURL      string
	DiffbotToken    string
	GoogleKGAPIKey  string
	LocalCorpusPath string
	Neo4jURI        string
	Neo4jUser       string
	Neo4jPassword   string

	RateLimitRPS   float64
	RateLimitBurst int

	// ExpandTags enables article fetches for search result tags.
	ExpandTags bool

	// CacheStore enables response caching when set.
	CacheStore cache.Store
	CacheTTL   time.Duration

	Executor *resilience.Executor
	Logger   *slog.Logger
}

// NormalizeBackend maps backend aliases to canonical names. The short
// names dkg and gkg are accepted for Diffbot and Google KG.
func NormalizeBackend(name string) string {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "dkg":
		return BackendDiffbot
	case "gkg", "google":
		return BackendGoogleKG
	case "localfs":
		return BackendLocal
	default:
		return n
	}
}

// NewSearcher builds the configured document searcher wrapped in throttling
// and, when a cache store is set, caching.
func NewSearcher(ctx context.Context, s Settings) (ports.DocumentSearcher, error) {
	backend := NormalizeBackend(s.SearchBackend)

	var base ports.DocumentSearcher
	switch backend {
	case BackendDiffbot:
		if strings.TrimSpace(s.DiffbotToken) == "" {
			return nil, domain.WrapError(domain.ErrUnauthorized, "diffbot searcher", fmt.Errorf("DIFFBOT_TOKEN is empty"))
		}
		base = diffbot.New(s.DiffbotURL, s.DiffbotToken, diffbot.Options{
			NumResults:         s.MaxObjects,
			ResilienceExecutor: s.Executor,
		})
	case BackendGoogleKG:
		client, err := googlekg.New(ctx, s.GoogleKGAPIKey, googlekg.Options{ResilienceExecutor: s.Executor})
		if err != nil {
			return nil, err
		}
		base = client
	case BackendLocal:
		corpus, err := localfs.New(s.LocalCorpusPath, localfs.Options{MaxResults: s.MaxObjects, Logger: s.Logger})
		if err != nil {
			return nil, err
		}
		if err := corpus.Load(ctx); err != nil {
			return nil, err
		}
		return cached(corpus, s, backend), nil
	default:
		return nil, domain.WrapError(domain.ErrUnsupportedBackend, "new searcher", fmt.Errorf("search backend %q", s.SearchBackend))
	}

	limited := throttle.NewSearcher(base, throttle.NewLimiter(s.RateLimitRPS, s.RateLimitBurst, 0))
	return cached(limited, s, backend), nil
}

func cached(next ports.DocumentSearcher, s Settings, backend string) ports.DocumentSearcher {
	if s.CacheStore == nil {
		return next
	}
	return cache.NewSearcher(next, s.CacheStore, backend, s.CacheTTL, s.Logger)
}

// NewArticleFetcher returns nil when tag expansion is off or the search
// backend has no article API. Only Diffbot tags carry fetchable URIs.
func NewArticleFetcher(s Settings) ports.ArticleFetcher {
	backend := NormalizeBackend(s.SearchBackend)
	if !s.ExpandTags || backend != BackendDiffbot || strings.TrimSpace(s.DiffbotToken) == "" {
		return nil
	}
	base := diffbot.New(s.DiffbotURL, s.DiffbotToken, diffbot.Options{ResilienceExecutor: s.Executor})
	var fetcher ports.ArticleFetcher = throttle.NewArticleFetcher(base, throttle.NewLimiter(s.RateLimitRPS, s.RateLimitBurst, 0))
	if s.CacheStore != nil {
		fetcher = cache.NewArticleFetcher(fetcher, s.CacheStore, backend, s.CacheTTL, s.Logger)
	}
	return fetcher
}

// NewKnowledgeGraph returns nil without error when no KG backend is set. The
// close function releases backend connections and is never nil.
func NewKnowledgeGraph(ctx context.Context, s Settings) (ports.KnowledgeGraph, func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }

	var (
		base    ports.KnowledgeGraph
		closeFn = noop
	)
	backend := NormalizeBackend(s.KGBackend)
	switch backend {
	case "", "none":
		return nil, noop, nil
	case BackendGoogleKG:
		client, err := googlekg.New(ctx, s.GoogleKGAPIKey, googlekg.Options{ResilienceExecutor: s.Executor})
		if err != nil {
			return nil, noop, err
		}
		base = client
	case BackendNeo4j:
		graph, err := neo4jkg.New(s.Neo4jURI, s.Neo4jUser, s.Neo4jPassword, neo4jkg.Options{ResilienceExecutor: s.Executor})
		if err != nil {
			return nil, noop, err
		}
		if err := graph.VerifyConnectivity(ctx); err != nil {
			_ = graph.Close(ctx)
			return nil, noop, err
		}
		base, closeFn = graph, graph.Close
	default:
		return nil, noop, domain.WrapError(domain.ErrUnsupportedBackend, "new knowledge graph", fmt.Errorf("kg backend %q", s.KGBackend))
	}

	var kg ports.KnowledgeGraph = throttle.NewKnowledgeGraph(base, throttle.NewLimiter(s.RateLimitRPS, s.RateLimitBurst, 0))
	if s.CacheStore != nil {
		kg = cache.NewKnowledgeGraph(kg, s.CacheStore, backend, s.CacheTTL, s.Logger)
	}
	return kg, closeFn, nil
}
