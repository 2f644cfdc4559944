package localfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

var errUnsupportedFormat = errors.New("unsupported binary format")

type document struct {
	path  string
	title string
	text  string
	lower string
}

// Corpus is an offline search backend over a directory of text, markdown,
// HTML and PDF files. A document matches a query when it contains every
// gram, case-insensitively.
type Corpus struct {
	root       string
	maxResults int
	logger     *slog.Logger

	mu     sync.Mutex
	loaded bool
	docs   []document
}

type Options struct {
	MaxResults int
	Logger     *slog.Logger
}

func New(root string, options Options) (*Corpus, error) {
	if strings.TrimSpace(root) == "" {
		root = "./data/corpus"
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("open corpus dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus path %s is not a directory", root)
	}
	maxResults := options.MaxResults
	if maxResults <= 0 {
		maxResults = 30
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Corpus{root: root, maxResults: maxResults, logger: logger.With("component", "local_corpus")}, nil
}

// Load reads the corpus directory. Search calls it lazily on first use.
func (c *Corpus) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *Corpus) loadLocked(ctx context.Context) error {
	if c.loaded {
		return nil
	}
	var docs []document
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			return nil
		}
		doc, err := readDocument(path)
		if errors.Is(err, errUnsupportedFormat) {
			return nil
		}
		if err != nil {
			c.logger.Warn("corpus_file_skipped", "path", path, "error", err)
			return nil
		}
		if strings.TrimSpace(doc.text) == "" {
			return nil
		}
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return fmt.Errorf("walk corpus: %w", err)
	}
	c.docs = docs
	c.loaded = true
	c.logger.Info("corpus_loaded", "root", c.root, "documents", len(docs))
	return nil
}

func (c *Corpus) Search(ctx context.Context, grams []string) (domain.SearchResponse, error) {
	needles := make([]string, 0, len(grams))
	for _, gram := range grams {
		if g := strings.ToLower(strings.TrimSpace(gram)); g != "" {
			needles = append(needles, g)
		}
	}
	if len(needles) == 0 {
		return domain.SearchResponse{}, domain.WrapError(domain.ErrInvalidInput, "local search", errors.New("empty query"))
	}

	c.mu.Lock()
	if err := c.loadLocked(ctx); err != nil {
		c.mu.Unlock()
		return domain.SearchResponse{}, err
	}
	docs := c.docs
	c.mu.Unlock()

	type match struct {
		doc   document
		score int
	}
	var matches []match
	for _, doc := range docs {
		score := 0
		for _, needle := range needles {
			n := strings.Count(doc.lower, needle)
			if n == 0 {
				score = 0
				break
			}
			score += n
		}
		if score > 0 {
			matches = append(matches, match{doc: doc, score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].doc.path < matches[j].doc.path
	})

	out := domain.SearchResponse{Hits: len(matches)}
	for i, m := range matches {
		if i == c.maxResults {
			break
		}
		out.Objects = append(out.Objects, domain.RetrievedObject{
			ID:    m.doc.path,
			Title: m.doc.title,
			Text:  m.doc.text,
			URL:   "file://" + filepath.ToSlash(m.doc.path),
			Score: float64(m.score),
		})
	}
	return out, nil
}

func readDocument(path string) (document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".txt", ".md", ".html", ".htm", ".pdf":
	default:
		return document{}, errUnsupportedFormat
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return document{}, fmt.Errorf("read file: %w", err)
	}
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var text string
	switch ext {
	case ".pdf":
		text, err = pdfText(raw)
	case ".html", ".htm":
		var htmlTitle string
		text, htmlTitle, err = htmlText(raw)
		if htmlTitle != "" {
			title = htmlTitle
		}
	default:
		if !utf8.Valid(raw) {
			return document{}, fmt.Errorf("%s is not valid utf-8", filepath.Base(path))
		}
		text = strings.TrimSpace(string(raw))
	}
	if err != nil {
		return document{}, err
	}
	return document{path: path, title: title, text: text, lower: strings.ToLower(text)}, nil
}

func pdfText(raw []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		b.WriteString(strings.TrimSpace(text))
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String()), nil
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true, "blockquote": true, "pre": true,
}

var skippedElements = map[string]bool{"script": true, "style": true, "noscript": true, "template": true, "title": true}

// htmlText returns the visible text of an HTML page, one line per block
// element, and the page title.
func htmlText(raw []byte) (string, string, error) {
	root, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	var (
		title string
		lines []string
		line  strings.Builder
	)
	flush := func() {
		if s := strings.Join(strings.Fields(line.String()), " "); s != "" {
			lines = append(lines, s)
		}
		line.Reset()
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if n.Data == "title" && n.FirstChild != nil && title == "" {
				title = strings.TrimSpace(n.FirstChild.Data)
			}
			if skippedElements[n.Data] {
				return
			}
		}
		if n.Type == html.TextNode {
			line.WriteString(n.Data)
			line.WriteString(" ")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
		if n.Type == html.ElementNode && blockElements[n.Data] {
			flush()
		}
	}
	walk(root)
	flush()
	return strings.Join(lines, "\n"), title, nil
}
