package neo4jkg

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/resilience"
)

// lookupQuery matches entities by case-insensitive name. An empty $type
// matches any entity type.
const lookupQuery = `
MATCH (e:Entity)
WHERE toLower(e.name) = toLower($name)
  AND ($type = '' OR e.type = $type)
  AND coalesce(e.description, '') <> ''
RETURN e.name AS name, e.description AS text, coalesce(e.url, '') AS url, coalesce(e.score, 0.0) AS score
ORDER BY score DESC
LIMIT $limit`

type queryFunc func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error)

// Graph looks up entity descriptions stored as (:Entity) nodes.
type Graph struct {
	driver   neo4j.DriverWithContext
	query    queryFunc
	limit    int
	executor *resilience.Executor
}

type Options struct {
	Database           string
	Limit              int
	ResilienceExecutor *resilience.Executor
}

func New(uri, user, password string, options Options) (*Graph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver: %w", err)
	}
	g := newGraph(nil, options)
	g.driver = driver
	g.query = func(ctx context.Context, cypher string, params map[string]any) ([]*neo4j.Record, error) {
		configurers := []neo4j.ExecuteQueryConfigurationOption{neo4j.ExecuteQueryWithReadersRouting()}
		if options.Database != "" {
			configurers = append(configurers, neo4j.ExecuteQueryWithDatabase(options.Database))
		}
		result, err := neo4j.ExecuteQuery(ctx, driver, cypher, params, neo4j.EagerResultTransformer, configurers...)
		if err != nil {
			return nil, err
		}
		return result.Records, nil
	}
	return g, nil
}

func newGraph(query queryFunc, options Options) *Graph {
	limit := options.Limit
	if limit <= 0 {
		limit = 10
	}
	return &Graph{query: query, limit: limit, executor: options.ResilienceExecutor}
}

func (g *Graph) VerifyConnectivity(ctx context.Context) error {
	if g.driver == nil {
		return nil
	}
	if err := g.driver.VerifyConnectivity(ctx); err != nil {
		return domain.WrapError(domain.ErrTemporary, "neo4j connectivity", err)
	}
	return nil
}

func (g *Graph) Close(ctx context.Context) error {
	if g.driver == nil {
		return nil
	}
	return g.driver.Close(ctx)
}

func (g *Graph) Lookup(ctx context.Context, entity domain.NamedEntity) ([]domain.RetrievedObject, error) {
	name := strings.TrimSpace(entity.Text)
	if name == "" {
		return nil, nil
	}
	params := map[string]any{
		"name":  name,
		"type":  strings.ToUpper(entity.Type),
		"limit": int64(g.limit),
	}
	call := func(ctx context.Context) ([]*neo4j.Record, error) {
		return g.query(ctx, lookupQuery, params)
	}
	var (
		records []*neo4j.Record
		err     error
	)
	if g.executor != nil {
		records, err = resilience.Call(ctx, g.executor, "neo4j.lookup", call, classifyNeo4jError)
	} else {
		records, err = call(ctx)
	}
	if err != nil {
		if neo4j.IsRetryable(err) {
			return nil, domain.WrapError(domain.ErrTemporary, "neo4j lookup", err)
		}
		return nil, resilience.WrapTemporaryIfNeeded("neo4j lookup", err)
	}

	out := make([]domain.RetrievedObject, 0, len(records))
	for _, record := range records {
		text, _, err := neo4j.GetRecordValue[string](record, "text")
		if err != nil {
			return nil, domain.WrapError(domain.ErrMalformedResponse, "read neo4j record", err)
		}
		title, _, _ := neo4j.GetRecordValue[string](record, "name")
		url, _, _ := neo4j.GetRecordValue[string](record, "url")
		score, _, _ := neo4j.GetRecordValue[float64](record, "score")
		out = append(out, domain.RetrievedObject{
			Title:         title,
			Text:          text,
			URL:           url,
			HumanLanguage: "en",
			Score:         score,
		})
	}
	return out, nil
}

func classifyNeo4jError(err error) resilience.ErrorClassification {
	if neo4j.IsRetryable(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ClassifyTransportError(err)
}
