package usecase

import (
	"context"
	"log/slog"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
	"github.com/kirillkom/factoid-qa/internal/core/text"
)

const (
	maxAverageTokenLength = 30
	minTokensPerLine      = 3
)

type DocumentRetriever struct {
	searcher   ports.DocumentSearcher
	kg         ports.KnowledgeGraph
	articles   ports.ArticleFetcher
	maxObjects int
	logger     *slog.Logger
}

// NewDocumentRetriever builds a retriever. kg may be nil, in which case
// knowledge-graph lookups are skipped; articles may be nil, in which case
// result tags are not expanded.
func NewDocumentRetriever(
	searcher ports.DocumentSearcher,
	kg ports.KnowledgeGraph,
	articles ports.ArticleFetcher,
	maxObjects int,
	logger *slog.Logger,
) *DocumentRetriever {
	if maxObjects <= 0 {
		maxObjects = domain.DefaultMaxRetrievedObjects
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentRetriever{
		searcher:   searcher,
		kg:         kg,
		articles:   articles,
		maxObjects: maxObjects,
		logger:     logger.With("component", "document_retriever"),
	}
}

// Retrieve runs the queries in rank order until enough objects are
// collected. Failed searches are logged and skipped. Each kept object is
// followed by the articles behind its tags whose URI mentions a question
// term, highest tag score first.
func (r *DocumentRetriever) Retrieve(
	ctx context.Context,
	q domain.Question,
	queries []domain.SearchQuery,
) domain.RetrievalResult {
	result := domain.RetrievalResult{Terms: SignificantTerms(queries)}
	seen := make(map[string]bool)
	fetched := make(map[string]bool)
	tagTerms := questionTerms(q)

	for _, query := range queries {
		if len(result.Objects) >= r.maxObjects {
			break
		}
		if ctx.Err() != nil {
			return result
		}

		resp, err := r.searcher.Search(ctx, query.Grams)
		if err != nil {
			r.logger.Warn("search_failed", "query", query.String(), "kind", query.Kind, "error", err)
			continue
		}
		if len(resp.Objects) > 0 && resp.Hits > result.BestHits {
			result.BestQuery = query.Grams
			result.BestHits = resp.Hits
		}

		for _, obj := range resp.Objects {
			if len(result.Objects) >= r.maxObjects {
				break
			}
			if !accept(obj, seen) {
				continue
			}
			result.Objects = append(result.Objects, domain.RankedObject{
				Object:    obj,
				QueryRank: query.Rank,
				Grams:     query.Grams,
			})
			r.expandTags(ctx, obj, query, tagTerms, seen, fetched, &result)
		}
	}

	result.KnowledgeContexts = r.lookupEntities(ctx, q)
	r.logger.Debug("retrieval_completed",
		"objects", len(result.Objects),
		"expanded_tags", len(fetched),
		"knowledge_contexts", len(result.KnowledgeContexts),
		"best_hits", result.BestHits,
	)
	return result
}

// expandTags fetches each tag URI at most once per retrieval and appends
// the first article it yields.
func (r *DocumentRetriever) expandTags(
	ctx context.Context,
	obj domain.RetrievedObject,
	query domain.SearchQuery,
	terms []string,
	seen, fetched map[string]bool,
	result *domain.RetrievalResult,
) {
	if r.articles == nil || len(terms) == 0 {
		return
	}
	for _, tag := range obj.SortedTags() {
		if len(result.Objects) >= r.maxObjects || ctx.Err() != nil {
			return
		}
		uri := strings.TrimSpace(tag.URI)
		if uri == "" || fetched[uri] || !mentionsAny(uri, terms) {
			continue
		}
		fetched[uri] = true

		articles, err := r.articles.FetchArticle(ctx, uri)
		if err != nil {
			r.logger.Warn("article_fetch_failed", "uri", uri, "tag", tag.Label, "error", err)
			continue
		}
		if len(articles) == 0 {
			continue
		}
		article := articles[0]
		if article.URL == "" {
			article.URL = uri
		}
		if !accept(article, seen) {
			continue
		}
		result.Objects = append(result.Objects, domain.RankedObject{
			Object:    article,
			QueryRank: query.Rank,
			Grams:     query.Grams,
		})
	}
}

func (r *DocumentRetriever) lookupEntities(ctx context.Context, q domain.Question) []string {
	if r.kg == nil || q.Type != domain.SimpleFact || len(q.Entities) == 0 {
		return nil
	}
	var contexts []string
	for _, entity := range q.Entities {
		objects, err := r.kg.Lookup(ctx, entity)
		if err != nil {
			r.logger.Warn("knowledge_graph_lookup_failed", "entity", entity.Text, "type", entity.Type, "error", err)
			continue
		}
		for _, obj := range objects {
			if len(contexts) >= r.maxObjects {
				return contexts
			}
			if body := strings.TrimSpace(obj.Text); body != "" {
				contexts = append(contexts, body)
			}
		}
	}
	return contexts
}

// accept applies the language and text filters and records the object URL
// so http and https copies are kept once.
func accept(obj domain.RetrievedObject, seen map[string]bool) bool {
	key := urlKey(obj.URL)
	if key != "" && seen[key] {
		return false
	}
	if !isEnglish(obj) || !isValidText(obj) {
		return false
	}
	if key != "" {
		seen[key] = true
	}
	return true
}

// questionTerms lists the distinct non-stopword tokens of the question.
func questionTerms(q domain.Question) []string {
	raw := q.Text
	if raw == "" {
		raw = q.Raw
	}
	stop := text.ScoringStopWords()
	seen := make(map[string]bool)
	var terms []string
	for _, word := range text.WordTokens(raw) {
		if stop.Contains(word) || seen[word] {
			continue
		}
		seen[word] = true
		terms = append(terms, word)
	}
	return terms
}

func mentionsAny(uri string, terms []string) bool {
	uri = strings.ToLower(uri)
	for _, term := range terms {
		if strings.Contains(uri, term) {
			return true
		}
	}
	return false
}

// urlKey normalizes a URL for duplicate detection; http and https copies
// of the same page are the same object.
func urlKey(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "https://")
	return strings.TrimPrefix(raw, "http://")
}

func isEnglish(obj domain.RetrievedObject) bool {
	return obj.HumanLanguage == "" || obj.HumanLanguage == "en"
}

// isValidText rejects script files and texts that look like word lists or
// encoded blobs rather than prose.
func isValidText(obj domain.RetrievedObject) bool {
	if obj.URL != "" {
		if u, err := url.Parse(obj.URL); err == nil && path.Ext(u.Path) == ".js" {
			return false
		}
	}
	body := obj.Text
	tokens := len(strings.Fields(body))
	if tokens == 0 {
		return false
	}
	lines := strings.Count(body, "\n")
	if lines == 0 {
		lines = 1
	}
	averageTokenLength := float64(utf8.RuneCountInString(body)) / float64(tokens)
	return averageTokenLength < maxAverageTokenLength && float64(tokens)/float64(lines) > minTokensPerLine
}
