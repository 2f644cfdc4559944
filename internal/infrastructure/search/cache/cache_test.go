package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

type memoryStore struct {
	mu     sync.Mutex
	data   map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *memoryStore) Set(_ context.Context, key string, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

type countingSearcher struct {
	calls atomic.Int32
	err   error
	delay time.Duration
}

func (s *countingSearcher) Search(_ context.Context, grams []string) (domain.SearchResponse, error) {
	s.calls.Add(1)
	time.Sleep(s.delay)
	if s.err != nil {
		return domain.SearchResponse{}, s.err
	}
	return domain.SearchResponse{Hits: 7, Objects: []domain.RetrievedObject{{Text: grams[0], URL: "http://x"}}}, nil
}

type countingGraph struct {
	calls atomic.Int32
}

func (g *countingGraph) Lookup(_ context.Context, entity domain.NamedEntity) ([]domain.RetrievedObject, error) {
	g.calls.Add(1)
	return []domain.RetrievedObject{{Text: entity.Text + " is a " + entity.Type}}, nil
}

func TestSearcherCachesResponses(t *testing.T) {
	store := newMemoryStore()
	next := &countingSearcher{}
	searcher := NewSearcher(next, store, "diffbot", time.Hour, nil)

	for i := 0; i < 3; i++ {
		resp, err := searcher.Search(context.Background(), []string{"Eiffel  Tower", "built"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if resp.Hits != 7 || resp.Objects[0].Text != "Eiffel  Tower" {
			t.Fatalf("unexpected response %+v", resp)
		}
	}
	if next.calls.Load() != 1 {
		t.Fatalf("expected one backend call, got %d", next.calls.Load())
	}
	hits, misses := searcher.Stats()
	if hits != 2 || misses != 2 {
		t.Fatalf("unexpected stats hits=%d misses=%d", hits, misses)
	}
	for _, ttl := range store.ttls {
		if ttl != time.Hour {
			t.Fatalf("unexpected ttl %v", ttl)
		}
	}
}

func TestSearcherKeysDependOnBackendAndOrder(t *testing.T) {
	c := newCache(newMemoryStore(), "diffbot", 0, nil)
	other := newCache(newMemoryStore(), "local", 0, nil)

	if c.key(searchPrefix, "a b", "c") != c.key(searchPrefix, "a  b", "c") {
		t.Fatalf("whitespace inside grams must not change the key")
	}
	if c.key(searchPrefix, "a", "c") == c.key(searchPrefix, "c", "a") {
		t.Fatalf("gram order must change the key")
	}
	if c.key(searchPrefix, "a") == other.key(searchPrefix, "a") {
		t.Fatalf("backend must change the key")
	}
}

func TestSearcherDoesNotCacheErrors(t *testing.T) {
	boom := errors.New("backend down")
	next := &countingSearcher{err: boom}
	searcher := NewSearcher(next, newMemoryStore(), "diffbot", time.Hour, nil)

	for i := 0; i < 2; i++ {
		if _, err := searcher.Search(context.Background(), []string{"x"}); !errors.Is(err, boom) {
			t.Fatalf("expected backend error, got %v", err)
		}
	}
	if next.calls.Load() != 2 {
		t.Fatalf("expected errors to bypass the cache, got %d calls", next.calls.Load())
	}
}

func TestSearcherFallsBackWhenStoreFails(t *testing.T) {
	store := newMemoryStore()
	store.getErr = errors.New("connection refused")
	next := &countingSearcher{}
	searcher := NewSearcher(next, store, "diffbot", time.Hour, nil)

	if _, err := searcher.Search(context.Background(), []string{"x"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if next.calls.Load() != 1 {
		t.Fatalf("expected backend call, got %d", next.calls.Load())
	}
}

func TestSearcherCollapsesConcurrentMisses(t *testing.T) {
	next := &countingSearcher{delay: 50 * time.Millisecond}
	searcher := NewSearcher(next, newMemoryStore(), "diffbot", time.Hour, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := searcher.Search(context.Background(), []string{"moon"}); err != nil {
				t.Errorf("Search() error = %v", err)
			}
		}()
	}
	wg.Wait()
	if next.calls.Load() != 1 {
		t.Fatalf("expected a single backend call, got %d", next.calls.Load())
	}
}

func TestKnowledgeGraphCachesLookups(t *testing.T) {
	next := &countingGraph{}
	graph := NewKnowledgeGraph(next, newMemoryStore(), "googlekg", time.Hour, nil)
	entity := domain.NamedEntity{Text: "Paris", Type: "LOCATION"}

	for i := 0; i < 2; i++ {
		objects, err := graph.Lookup(context.Background(), entity)
		if err != nil {
			t.Fatalf("Lookup() error = %v", err)
		}
		if len(objects) != 1 || objects[0].Text != "Paris is a LOCATION" {
			t.Fatalf("unexpected objects %+v", objects)
		}
	}
	if _, err := graph.Lookup(context.Background(), domain.NamedEntity{Text: "Paris", Type: "PERSON"}); err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if next.calls.Load() != 2 {
		t.Fatalf("expected lookups keyed by type, got %d calls", next.calls.Load())
	}
}

type searcherFunc func(ctx context.Context, grams []string) (domain.SearchResponse, error)

func (f searcherFunc) Search(ctx context.Context, grams []string) (domain.SearchResponse, error) {
	return f(ctx, grams)
}

func TestSearcherSharedCallSurvivesCallerCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	next := searcherFunc(func(ctx context.Context, grams []string) (domain.SearchResponse, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		select {
		case <-ctx.Done():
			return domain.SearchResponse{}, ctx.Err()
		case <-release:
		}
		return domain.SearchResponse{Hits: 3}, nil
	})
	searcher := NewSearcher(next, newMemoryStore(), "diffbot", time.Hour, nil)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := searcher.Search(firstCtx, []string{"moon"})
		firstErr <- err
	}()
	<-started
	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled caller to stop waiting, got %v", err)
	}

	close(release)
	resp, err := searcher.Search(context.Background(), []string{"moon"})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if resp.Hits != 3 || calls.Load() != 1 {
		t.Fatalf("expected the shared call to finish for the second caller, hits=%d calls=%d", resp.Hits, calls.Load())
	}
}

type articleFunc func(ctx context.Context, uri string) ([]domain.RetrievedObject, error)

func (f articleFunc) FetchArticle(ctx context.Context, uri string) ([]domain.RetrievedObject, error) {
	return f(ctx, uri)
}

func TestArticleFetcherCachesByURI(t *testing.T) {
	var calls atomic.Int32
	fetcher := NewArticleFetcher(articleFunc(func(_ context.Context, uri string) ([]domain.RetrievedObject, error) {
		calls.Add(1)
		return []domain.RetrievedObject{{Text: "article for " + uri}}, nil
	}), newMemoryStore(), "diffbot", time.Hour, nil)

	for _, uri := range []string{"http://dbpedia.org/page/Paris", "http://dbpedia.org/page/Paris", "http://dbpedia.org/page/Lyon"} {
		objects, err := fetcher.FetchArticle(context.Background(), uri)
		if err != nil {
			t.Fatalf("FetchArticle() error = %v", err)
		}
		if len(objects) != 1 || objects[0].Text != "article for "+uri {
			t.Fatalf("unexpected objects %+v", objects)
		}
	}
	if calls.Load() != 2 {
		t.Fatalf("expected one backend call per uri, got %d", calls.Load())
	}
}
