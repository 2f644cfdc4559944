package diffbot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/resilience"
)

const (
	DefaultBaseURL = "https://api.diffbot.com"
	globalIndex    = "GLOBAL-INDEX"
)

// Client searches the Diffbot global index and extracts articles. Every
// gram of a search query must match the document text exactly.
type Client struct {
	baseURL    string
	token      string
	numResults int
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	NumResults         int
	Timeout            time.Duration
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, token string, options Options) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	num := options.NumResults
	if num <= 0 {
		num = 30
	}
	client := options.HTTPClient
	if client == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		numResults: num,
		httpClient: client,
		executor:   options.ResilienceExecutor,
	}
}

type searchResponse struct {
	Hits      int            `json:"hits"`
	Objects   []searchObject `json:"objects"`
	Data      []searchObject `json:"data"`
	Error     string         `json:"error"`
	ErrorCode int            `json:"errorCode"`
}

type searchObject struct {
	DiffbotURI    string `json:"diffbotUri"`
	Title         string `json:"title"`
	Text          string `json:"text"`
	PageURL       string `json:"pageUrl"`
	HumanLanguage string `json:"humanLanguage"`
	Tags          []struct {
		Label string  `json:"label"`
		URI   string  `json:"uri"`
		Score float64 `json:"score"`
	} `json:"tags"`
}

// BuildQuery joins grams into an exact-match conjunction:
// text:"g1" AND text:"g2".
func BuildQuery(grams []string) string {
	parts := make([]string, 0, len(grams))
	for _, gram := range grams {
		gram = strings.TrimSpace(strings.ReplaceAll(gram, `"`, ""))
		if gram == "" {
			continue
		}
		parts = append(parts, `text:"`+gram+`"`)
	}
	return strings.Join(parts, " AND ")
}

func (c *Client) Search(ctx context.Context, grams []string) (domain.SearchResponse, error) {
	query := BuildQuery(grams)
	if query == "" {
		return domain.SearchResponse{}, domain.WrapError(domain.ErrInvalidInput, "diffbot search", fmt.Errorf("empty query"))
	}
	params := url.Values{}
	params.Set("col", globalIndex)
	params.Set("query", query)
	params.Set("num", strconv.Itoa(c.numResults))

	resp, err := c.call(ctx, "search", "/v3/search", params)
	if err != nil {
		return domain.SearchResponse{}, resilience.WrapTemporaryIfNeeded("diffbot search", err)
	}
	raw := resp.Objects
	if len(raw) == 0 {
		raw = resp.Data
	}
	return domain.SearchResponse{Hits: resp.Hits, Objects: mapObjects(raw)}, nil
}

// FetchArticle runs the article extraction API on a tag URI. Objects
// without text are dropped.
func (c *Client) FetchArticle(ctx context.Context, uri string) ([]domain.RetrievedObject, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "diffbot article", fmt.Errorf("empty uri"))
	}
	params := url.Values{}
	params.Set("url", uri)

	resp, err := c.call(ctx, "article", "/v3/article", params)
	if err != nil {
		return nil, resilience.WrapTemporaryIfNeeded("diffbot article", err)
	}
	objects := mapObjects(resp.Objects)
	out := objects[:0]
	for _, obj := range objects {
		if strings.TrimSpace(obj.Text) != "" {
			out = append(out, obj)
		}
	}
	return out, nil
}

func mapObjects(raw []searchObject) []domain.RetrievedObject {
	out := make([]domain.RetrievedObject, 0, len(raw))
	for _, obj := range raw {
		item := domain.RetrievedObject{
			ID:            obj.DiffbotURI,
			Title:         obj.Title,
			Text:          obj.Text,
			URL:           obj.PageURL,
			HumanLanguage: obj.HumanLanguage,
		}
		for _, tag := range obj.Tags {
			item.Tags = append(item.Tags, domain.ObjectTag{Label: tag.Label, URI: tag.URI, Score: tag.Score})
		}
		out = append(out, item)
	}
	return out
}

func (c *Client) call(ctx context.Context, op, endpoint string, params url.Values) (searchResponse, error) {
	fn := func(ctx context.Context) (searchResponse, error) {
		return c.get(ctx, op, endpoint, params)
	}
	if c.executor == nil {
		return fn(ctx)
	}
	return resilience.Call(ctx, c.executor, "diffbot."+op, fn, resilience.ClassifyTransportError)
}

func (c *Client) get(ctx context.Context, op, endpoint string, params url.Values) (searchResponse, error) {
	query := url.Values{}
	for k, v := range params {
		query[k] = v
	}
	query.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return searchResponse{}, fmt.Errorf("create diffbot request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return searchResponse{}, fmt.Errorf("diffbot %s request: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return searchResponse{}, resilience.NewHTTPStatusError("diffbot", op, resp)
	}
	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return searchResponse{}, domain.WrapError(domain.ErrMalformedResponse, "decode diffbot "+op+" response", err)
	}
	// Diffbot reports some failures in a 200 body.
	if out.Error != "" {
		code := out.ErrorCode
		if code == 0 {
			code = http.StatusBadGateway
		}
		return searchResponse{}, &resilience.HTTPStatusError{
			Service:    "diffbot",
			Operation:  op,
			StatusCode: code,
			Status:     strconv.Itoa(code),
			Body:       out.Error,
		}
	}
	return out, nil
}
