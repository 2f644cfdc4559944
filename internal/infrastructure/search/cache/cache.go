package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
)

const (
	searchPrefix  = "fqa:search:"
	lookupPrefix  = "fqa:kg:"
	articlePrefix = "fqa:article:"

	defaultComputeTimeout = 30 * time.Second
)

// Store is the key/value subset of Redis the cache needs. A missing key is
// reported as redis.Nil.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a PING.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, error) {
	return s.rdb.Get(ctx, key).Result()
}

func (s *RedisStore) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// cache holds shared lookups for both decorators. Failed calls are never
// cached, and store errors degrade to a miss.
type cache struct {
	store          Store
	namespace      string
	ttl            time.Duration
	computeTimeout time.Duration
	group          singleflight.Group
	logger         *slog.Logger
	hits           atomic.Int64
	misses         atomic.Int64
}

func newCache(store Store, namespace string, ttl time.Duration, logger *slog.Logger) *cache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &cache{
		store:          store,
		namespace:      namespace,
		ttl:            ttl,
		computeTimeout: defaultComputeTimeout,
		logger:         logger.With("component", "search_cache"),
	}
}

// getOrCompute collapses concurrent misses for a key into one backend call.
// The shared call is detached from the caller that started it and bounded
// by computeTimeout; a canceled caller stops waiting without failing the
// others.
func getOrCompute[T any](ctx context.Context, c *cache, key string, compute func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, ok := lookup[T](ctx, c, key); ok {
		return v, nil
	}
	ch := c.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.computeTimeout)
		defer cancel()
		if v, ok := lookup[T](callCtx, c, key); ok {
			return v, nil
		}
		v, err := compute(callCtx)
		if err != nil {
			return v, err
		}
		c.save(callCtx, key, v)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func lookup[T any](ctx context.Context, c *cache, key string) (T, bool) {
	var out T
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache_get_failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return out, false
	}
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		c.logger.Warn("cache_unmarshal_failed", "key", key, "error", err)
		c.misses.Add(1)
		return out, false
	}
	c.hits.Add(1)
	return out, true
}

func (c *cache) save(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("cache_marshal_failed", "key", key, "error", err)
		return
	}
	if err := c.store.Set(ctx, key, string(data), c.ttl); err != nil {
		c.logger.Warn("cache_set_failed", "key", key, "error", err)
	}
}

func (c *cache) key(prefix string, parts ...string) string {
	normalized := make([]string, 0, len(parts))
	for _, p := range parts {
		normalized = append(normalized, strings.Join(strings.Fields(p), " "))
	}
	hash := sha256.Sum256([]byte(c.namespace + "\x1f" + strings.Join(normalized, "\x1f")))
	return fmt.Sprintf("%s%x", prefix, hash[:16])
}

func (c *cache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Searcher caches search responses per backend and gram list. Gram order is
// part of the key.
type Searcher struct {
	next ports.DocumentSearcher
	*cache
}

func NewSearcher(next ports.DocumentSearcher, store Store, backend string, ttl time.Duration, logger *slog.Logger) *Searcher {
	return &Searcher{next: next, cache: newCache(store, backend, ttl, logger)}
}

func (s *Searcher) Search(ctx context.Context, grams []string) (domain.SearchResponse, error) {
	return getOrCompute(ctx, s.cache, s.key(searchPrefix, grams...), func(ctx context.Context) (domain.SearchResponse, error) {
		return s.next.Search(ctx, grams)
	})
}

// KnowledgeGraph caches entity lookups per backend.
type KnowledgeGraph struct {
	next ports.KnowledgeGraph
	*cache
}

func NewKnowledgeGraph(next ports.KnowledgeGraph, store Store, backend string, ttl time.Duration, logger *slog.Logger) *KnowledgeGraph {
	return &KnowledgeGraph{next: next, cache: newCache(store, backend, ttl, logger)}
}

func (g *KnowledgeGraph) Lookup(ctx context.Context, entity domain.NamedEntity) ([]domain.RetrievedObject, error) {
	return getOrCompute(ctx, g.cache, g.key(lookupPrefix, entity.Text, entity.Type), func(ctx context.Context) ([]domain.RetrievedObject, error) {
		return g.next.Lookup(ctx, entity)
	})
}

// ArticleFetcher caches article extraction per backend and URI.
type ArticleFetcher struct {
	next ports.ArticleFetcher
	*cache
}

func NewArticleFetcher(next ports.ArticleFetcher, store Store, backend string, ttl time.Duration, logger *slog.Logger) *ArticleFetcher {
	return &ArticleFetcher{next: next, cache: newCache(store, backend, ttl, logger)}
}

func (f *ArticleFetcher) FetchArticle(ctx context.Context, uri string) ([]domain.RetrievedObject, error) {
	return getOrCompute(ctx, f.cache, f.key(articlePrefix, uri), func(ctx context.Context) ([]domain.RetrievedObject, error) {
		return f.next.FetchArticle(ctx, uri)
	})
}
