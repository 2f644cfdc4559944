package throttle

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/resilience"
)

const defaultBackoff = 5 * time.Second

// Limiter is a token bucket shared by every call to one backend. A 429 from
// the backend pauses all callers for the backoff period.
type Limiter struct {
	bucket  *rate.Limiter
	backoff time.Duration

	mu      sync.Mutex
	retryAt time.Time
}

func NewLimiter(rps float64, burst int, backoff time.Duration) *Limiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	if backoff <= 0 {
		backoff = defaultBackoff
	}
	return &Limiter{bucket: rate.NewLimiter(limit, burst), backoff: backoff}
}

func (l *Limiter) Wait(ctx context.Context) error {
	l.mu.Lock()
	retryAt := l.retryAt
	l.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return l.bucket.Wait(ctx)
}

// Observe records backend throttling responses.
func (l *Limiter) Observe(err error) {
	var statusErr *resilience.HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if next := time.Now().Add(l.backoff); next.After(l.retryAt) {
		l.retryAt = next
	}
}

type Searcher struct {
	next    ports.DocumentSearcher
	limiter *Limiter
}

func NewSearcher(next ports.DocumentSearcher, limiter *Limiter) *Searcher {
	return &Searcher{next: next, limiter: limiter}
}

func (s *Searcher) Search(ctx context.Context, grams []string) (domain.SearchResponse, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return domain.SearchResponse{}, err
	}
	resp, err := s.next.Search(ctx, grams)
	s.limiter.Observe(err)
	return resp, err
}

type KnowledgeGraph struct {
	next    ports.KnowledgeGraph
	limiter *Limiter
}

func NewKnowledgeGraph(next ports.KnowledgeGraph, limiter *Limiter) *KnowledgeGraph {
	return &KnowledgeGraph{next: next, limiter: limiter}
}

func (g *KnowledgeGraph) Lookup(ctx context.Context, entity domain.NamedEntity) ([]domain.RetrievedObject, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	objects, err := g.next.Lookup(ctx, entity)
	g.limiter.Observe(err)
	return objects, err
}

type ArticleFetcher struct {
	next    ports.ArticleFetcher
	limiter *Limiter
}

func NewArticleFetcher(next ports.ArticleFetcher, limiter *Limiter) *ArticleFetcher {
	return &ArticleFetcher{next: next, limiter: limiter}
}

func (f *ArticleFetcher) FetchArticle(ctx context.Context, uri string) ([]domain.RetrievedObject, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	objects, err := f.next.FetchArticle(ctx, uri)
	f.limiter.Observe(err)
	return objects, err
}
