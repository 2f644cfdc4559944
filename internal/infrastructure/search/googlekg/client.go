package googlekg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/kgsearch/v1"
	"google.golang.org/api/option"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/resilience"
)

const defaultLimit = 10

// Client queries the Google Knowledge Graph Search API. It serves both as a
// document searcher over entity descriptions and as a named-entity lookup.
type Client struct {
	entities *kgsearch.EntitiesService
	limit    int64
	executor *resilience.Executor
}

type Options struct {
	Limit              int
	ResilienceExecutor *resilience.Executor
	// ClientOptions are appended after the API key, e.g. option.WithEndpoint in tests.
	ClientOptions []option.ClientOption
}

func New(ctx context.Context, apiKey string, options Options) (*Client, error) {
	opts := make([]option.ClientOption, 0, len(options.ClientOptions)+1)
	if strings.TrimSpace(apiKey) != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	opts = append(opts, options.ClientOptions...)
	svc, err := kgsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create knowledge graph service: %w", err)
	}
	limit := options.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Client{entities: svc.Entities, limit: int64(limit), executor: options.ResilienceExecutor}, nil
}

type entityResult struct {
	ResultScore float64 `json:"resultScore"`
	Result      struct {
		ID                  string `json:"@id"`
		Name                string `json:"name"`
		Description         string `json:"description"`
		DetailedDescription struct {
			ArticleBody string `json:"articleBody"`
			URL         string `json:"url"`
		} `json:"detailedDescription"`
	} `json:"result"`
}

// Search sends the grams as one free-text query. Only entities carrying a
// detailed description become objects. The API reports no hit count.
func (c *Client) Search(ctx context.Context, grams []string) (domain.SearchResponse, error) {
	query := strings.TrimSpace(strings.Join(grams, " "))
	if query == "" {
		return domain.SearchResponse{}, domain.WrapError(domain.ErrInvalidInput, "knowledge graph search", errors.New("empty query"))
	}
	items, err := c.search(ctx, query, "")
	if err != nil {
		return domain.SearchResponse{}, err
	}

	out := domain.SearchResponse{Objects: make([]domain.RetrievedObject, 0, len(items))}
	for _, item := range items {
		detail := item.Result.DetailedDescription
		if strings.TrimSpace(detail.ArticleBody) == "" {
			continue
		}
		out.Objects = append(out.Objects, domain.RetrievedObject{
			ID:            item.Result.ID,
			Title:         item.Result.Name,
			Text:          detail.ArticleBody,
			URL:           detail.URL,
			HumanLanguage: "en",
			Score:         item.ResultScore,
		})
	}
	return out, nil
}

// Lookup returns entity descriptions, preferring the detailed article body
// over the short description. Duplicate texts are dropped.
func (c *Client) Lookup(ctx context.Context, entity domain.NamedEntity) ([]domain.RetrievedObject, error) {
	if strings.TrimSpace(entity.Text) == "" {
		return nil, nil
	}
	items, err := c.search(ctx, entity.Text, schemaType(entity.Type))
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(items))
	out := make([]domain.RetrievedObject, 0, len(items))
	for _, item := range items {
		text := item.Result.DetailedDescription.ArticleBody
		if text == "" {
			text = item.Result.Description
		}
		if text == "" || seen[text] {
			continue
		}
		seen[text] = true
		out = append(out, domain.RetrievedObject{
			ID:            item.Result.ID,
			Title:         item.Result.Name,
			Text:          text,
			URL:           item.Result.DetailedDescription.URL,
			HumanLanguage: "en",
			Score:         item.ResultScore,
		})
	}
	return out, nil
}

func (c *Client) search(ctx context.Context, query, entityType string) ([]entityResult, error) {
	call := func(ctx context.Context) (*kgsearch.SearchResponse, error) {
		req := c.entities.Search().Context(ctx).Query(query).Limit(c.limit).Languages("en")
		if entityType != "" {
			req = req.Types(entityType)
		}
		resp, err := req.Do()
		if err != nil {
			return nil, statusError(err)
		}
		return resp, nil
	}
	var (
		resp *kgsearch.SearchResponse
		err  error
	)
	if c.executor != nil {
		resp, err = resilience.Call(ctx, c.executor, "googlekg.search", call, resilience.ClassifyTransportError)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return nil, resilience.WrapTemporaryIfNeeded("knowledge graph search", err)
	}

	items := make([]entityResult, 0, len(resp.ItemListElement))
	for _, raw := range resp.ItemListElement {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return nil, domain.WrapError(domain.ErrMalformedResponse, "decode knowledge graph item", err)
		}
		var item entityResult
		if err := json.Unmarshal(encoded, &item); err != nil {
			return nil, domain.WrapError(domain.ErrMalformedResponse, "decode knowledge graph item", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// statusError converts googleapi errors so the shared transport classifier
// can tell throttling and auth failures apart.
func statusError(err error) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	return &resilience.HTTPStatusError{
		Service:    "googlekg",
		Operation:  "search",
		StatusCode: gerr.Code,
		Status:     strconv.Itoa(gerr.Code) + " " + http.StatusText(gerr.Code),
		Body:       gerr.Message,
	}
}

// schemaType maps tagger NER labels to schema.org entity types.
func schemaType(ner string) string {
	switch strings.ToUpper(ner) {
	case "PERSON":
		return "Person"
	case "LOCATION":
		return "Place"
	case "ORGANIZATION":
		return "Organization"
	default:
		return ""
	}
}
