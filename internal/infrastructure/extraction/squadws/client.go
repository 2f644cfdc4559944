package squadws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/infrastructure/resilience"
)

const defaultCallTimeout = 30 * time.Second

// Client talks to a SQuAD-style reading comprehension server over a single
// websocket. Requests are serialized: one passage is in flight at a time.
type Client struct {
	url      string
	timeout  time.Duration
	dialer   *websocket.Dialer
	executor *resilience.Executor
	logger   *slog.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

type Options struct {
	CallTimeout        time.Duration
	ResilienceExecutor *resilience.Executor
	Logger             *slog.Logger
}

func New(url string, options Options) *Client {
	timeout := options.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:      url,
		timeout:  timeout,
		dialer:   websocket.DefaultDialer,
		executor: options.ResilienceExecutor,
		logger:   logger.With("component", "squad_extractor"),
	}
}

type squadPayload struct {
	Data []squadArticle `json:"data"`
}

type squadArticle struct {
	Title      string           `json:"title"`
	Paragraphs []squadParagraph `json:"paragraphs"`
}

type squadParagraph struct {
	Context string     `json:"context"`
	QAs     []squadQAs `json:"qas"`
}

type squadQAs struct {
	Question string `json:"question"`
	ID       string `json:"id"`
}

func newPayload(passage, question string) squadPayload {
	return squadPayload{Data: []squadArticle{{
		Title: "Title",
		Paragraphs: []squadParagraph{{
			Context: passage,
			QAs:     []squadQAs{{Question: question, ID: "1"}},
		}},
	}}}
}

// Open dials the server. Extract dials lazily, so calling Open is optional.
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ensureConn(ctx)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) Extract(ctx context.Context, passage, question string) ([]domain.AnswerPrediction, error) {
	payload, err := json.Marshal(newPayload(passage, question))
	if err != nil {
		return nil, fmt.Errorf("marshal squad payload: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	preds, err := c.roundTrip(ctx, payload)
	if err != nil {
		if c.conn == nil {
			c.logger.Warn("extractor_connection_dropped", "error", err)
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, resilience.WrapTemporaryIfNeeded("squad extract", err)
	}
	return preds, nil
}

func (c *Client) roundTrip(ctx context.Context, payload []byte) ([]domain.AnswerPrediction, error) {
	if err := c.ensureConn(ctx); err != nil {
		return nil, err
	}

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if err := conn.SetWriteDeadline(deadline); err != nil {
		c.dropConn()
		return nil, fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.dropConn()
		return nil, fmt.Errorf("send squad payload: %w", err)
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		c.dropConn()
		return nil, fmt.Errorf("set read deadline: %w", err)
	}
	_, reply, err := conn.ReadMessage()
	if err != nil {
		c.dropConn()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("read squad reply: %w", err)
	}

	var preds []domain.AnswerPrediction
	if err := json.Unmarshal(reply, &preds); err != nil {
		return nil, domain.WrapError(domain.ErrMalformedResponse, "decode squad reply", err)
	}
	return preds, nil
}

func (c *Client) ensureConn(ctx context.Context) error {
	if c.conn != nil {
		return nil
	}
	dial := func(ctx context.Context) (*websocket.Conn, error) {
		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			return nil, fmt.Errorf("dial extractor %s: %w", c.url, err)
		}
		return conn, nil
	}

	var (
		conn *websocket.Conn
		err  error
	)
	if c.executor != nil {
		conn, err = resilience.Call(ctx, c.executor, "extractor.dial", dial, resilience.ClassifyTransportError)
	} else {
		conn, err = dial(ctx)
	}
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "dial extractor", err)
	}
	c.conn = conn
	return nil
}

func (c *Client) dropConn() {
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
