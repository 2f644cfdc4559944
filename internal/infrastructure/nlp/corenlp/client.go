package corenlp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/resilience"
)

const (
	annotatorsPOS    = "tokenize,ssplit,pos"
	annotatorsPOSNER = "tokenize,ssplit,pos,ner"
)

// Tagger calls a Stanford CoreNLP server. Tokens are sent pre-split on a
// single line so the server returns exactly one tag per input token.
type Tagger struct {
	baseURL    string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	HTTPClient         *http.Client
	ResilienceExecutor *resilience.Executor
}

func New(baseURL string, options Options) *Tagger {
	client := options.HTTPClient
	if client == nil {
		timeout := options.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Tagger{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		executor:   options.ResilienceExecutor,
	}
}

type annotateResponse struct {
	Sentences []struct {
		Tokens []struct {
			Word string `json:"word"`
			POS  string `json:"pos"`
			NER  string `json:"ner"`
		} `json:"tokens"`
	} `json:"sentences"`
}

func (t *Tagger) Tag(ctx context.Context, tokens []string, withNER bool) (domain.TagResult, error) {
	if len(tokens) == 0 {
		return domain.TagResult{}, nil
	}
	annotators := annotatorsPOS
	if withNER {
		annotators = annotatorsPOSNER
	}

	call := func(ctx context.Context) (annotateResponse, error) {
		return t.annotate(ctx, strings.Join(tokens, " "), annotators)
	}
	var (
		resp annotateResponse
		err  error
	)
	if t.executor != nil {
		resp, err = resilience.Call(ctx, t.executor, "corenlp.annotate", call, resilience.ClassifyTransportError)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return domain.TagResult{}, resilience.WrapTemporaryIfNeeded("corenlp annotate", err)
	}

	var out domain.TagResult
	for _, sentence := range resp.Sentences {
		for _, token := range sentence.Tokens {
			out.POS = append(out.POS, domain.TaggedToken{Token: token.Word, Tag: token.POS})
			if withNER {
				ner := token.NER
				if ner == "" {
					ner = "O"
				}
				out.NER = append(out.NER, domain.TaggedToken{Token: token.Word, Tag: ner})
			}
		}
	}
	return out, nil
}

func (t *Tagger) annotate(ctx context.Context, text, annotators string) (annotateResponse, error) {
	properties, err := json.Marshal(map[string]string{
		"annotators":          annotators,
		"outputFormat":        "json",
		"tokenize.whitespace": "true",
		"ssplit.eolonly":      "true",
	})
	if err != nil {
		return annotateResponse{}, fmt.Errorf("marshal corenlp properties: %w", err)
	}
	endpoint := t.baseURL + "/?properties=" + url.QueryEscape(string(properties))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(text))
	if err != nil {
		return annotateResponse{}, fmt.Errorf("create corenlp request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return annotateResponse{}, fmt.Errorf("corenlp annotate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return annotateResponse{}, resilience.NewHTTPStatusError("corenlp", "annotate", resp)
	}
	var out annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return annotateResponse{}, domain.WrapError(domain.ErrMalformedResponse, "decode corenlp response", err)
	}
	if len(out.Sentences) == 0 {
		return annotateResponse{}, domain.WrapError(domain.ErrMalformedResponse, "decode corenlp response", errors.New("no sentences"))
	}
	return out, nil
}
