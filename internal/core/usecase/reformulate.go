package usecase

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
	"github.com/kirillkom/factoid-qa/internal/core/text"
)

// Placeholders keep quoted spans and abbreviation dots intact through
// tokenization and tagging. Both are single word-character runs.
const (
	quotedToken = "QQUOTEDSPANQQ"
	dotToken    = "QQDOTQQ"
)

var (
	interrogatives = map[string]bool{
		"What": true, "How": true, "When": true, "Who": true, "Where": true, "Why": true, "Which": true,
		"what": true, "how": true, "when": true, "who": true, "where": true, "why": true, "which": true,
	}
	copulas = map[string]bool{"is": true, "was": true, "are": true, "were": true}

	namePhrases = []string{
		"What was the name of the", "What was the name of a", "What was the name of",
		"What is the name of the", "What is the name of a", "What is the name of",
	}
	forWhomPhrases = []string{"For whom was", "For whom is", "For whom are"}

	// Tokens conjugated to the past even when the tagger does not mark them as verbs.
	forcedPastTokens = map[string]bool{"open": true}
)

type QueryReformulator struct {
	tagger ports.Tagger
	stop   text.StopWords
	rules  []rewriteRule
	logger *slog.Logger
}

func NewQueryReformulator(tagger ports.Tagger, logger *slog.Logger) *QueryReformulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryReformulator{
		tagger: tagger,
		stop:   text.QueryStopWords(),
		rules:  defaultRewriteRules(),
		logger: logger.With("component", "query_reformulator"),
	}
}

// Reformulate returns the ranked search queries for q. Tagging failures
// degrade the result; at minimum the one-gram query is produced.
func (r *QueryReformulator) Reformulate(ctx context.Context, q domain.Question) []domain.SearchQuery {
	work := applyRewriteRules(r.rules, q.Text, q)
	work = strings.ReplaceAll(work, ",", " ")
	work, quotes := extractQuotes(work)
	work = protectDots(work)

	tokens := r.tokenize(work, q)
	tags := r.tag(ctx, tokens)
	tokens, tags = applyPastTense(tokens, tags)

	full := buildFullQuery(tokens, quotes)
	if full == nil {
		full = segmentWithFallback(tags, quotes, r.stop, func(grams []string) bool {
			return isSingleGramQuery(grams) || aboveGramLimit(grams)
		})
	}
	pos := segmentWithFallback(tags, quotes, r.stop, func(grams []string) bool {
		return isSingleGramQuery(grams) || domain.SameGrams(grams, full) || aboveGramLimit(grams)
	})

	var queries []domain.SearchQuery
	add := func(kind domain.QueryKind, grams []string) {
		if len(grams) == 0 {
			return
		}
		for _, staged := range queries {
			if domain.SameGrams(staged.Grams, grams) {
				return
			}
		}
		queries = append(queries, domain.NewSearchQuery(kind, grams))
	}
	add(domain.FullQuery, full)
	add(domain.POSBased, pos)
	add(domain.OneGram, r.oneGramQuery(tokens, quotes))
	add(domain.QuotedText, quotes)

	sort.SliceStable(queries, func(i, j int) bool {
		return queries[i].Rank < queries[j].Rank
	})

	r.logger.Debug("queries_generated", "question", q.Text, "tokens", tokens, "queries", len(queries))
	return queries
}

func (r *QueryReformulator) tokenize(s string, q domain.Question) []string {
	for _, phrase := range namePhrases {
		s = replaceBothCases(s, phrase, "")
		s = strings.ReplaceAll(s, strings.ToLower(phrase), "")
	}
	if hasPrefixFold(s, "for whom") {
		for _, phrase := range forWhomPhrases {
			s = replaceBothCases(s, strings.ToLower(phrase), "")
		}
	}

	tokens := text.Tokenize(s)
	if len(tokens) > 0 && interrogatives[tokens[0]] {
		tokens = tokens[1:]
		if len(tokens) > 0 && copulas[strings.ToLower(tokens[0])] {
			tokens = tokens[1:]
		}
	}
	if len(tokens) > 0 && strings.EqualFold(tokens[0], "the") {
		tokens = tokens[1:]
	}
	return applyDoesVerb(tokens, q.Verbs)
}

func (r *QueryReformulator) tag(ctx context.Context, tokens []string) []domain.TaggedToken {
	if len(tokens) == 0 {
		return nil
	}
	result, err := r.tagger.Tag(ctx, tokens, false)
	if err != nil {
		r.logger.Warn("query_tagging_failed", "tokens", len(tokens), "error", err)
		return nil
	}
	return result.POS
}

func (r *QueryReformulator) oneGramQuery(tokens, quotes []string) []string {
	var grams []string
	next := 0
	for _, token := range tokens {
		switch {
		case r.stop.Contains(token):
		case token == quotedToken:
			if next < len(quotes) {
				for _, word := range strings.Fields(quotes[next]) {
					grams = append(grams, restoreDots(word))
				}
			}
			next++
		case !text.HasWordChar(token):
		default:
			grams = append(grams, restoreDots(token))
		}
	}
	return grams
}

// applyDoesVerb rewrites "does V" as "Vs" when the question has exactly two
// verbs and the first is "does".
func applyDoesVerb(tokens []string, verbs []string) []string {
	if len(verbs) != 2 || verbs[0] != "does" {
		return tokens
	}
	out := make([]string, 0, len(tokens))
	for _, token := range tokens {
		switch {
		case token == "does":
		case containsString(verbs, strings.ToLower(token)):
			out = append(out, token+"s")
		default:
			out = append(out, token)
		}
	}
	return out
}

// applyPastTense drops "did" and conjugates the remaining verbs to the past.
// The token stream is rebuilt from the tags when they are available.
func applyPastTense(tokens []string, tags []domain.TaggedToken) ([]string, []domain.TaggedToken) {
	didAt := indexOf(tokens, "did")
	if didAt < 0 {
		return tokens, tags
	}

	if len(tags) == 0 {
		out := make([]string, 0, len(tokens)-1)
		for i, token := range tokens {
			if i == didAt {
				continue
			}
			if forcedPastTokens[token] {
				token = text.PastTense(token)
			}
			out = append(out, token)
		}
		return out, nil
	}

	tagAt := -1
	if didAt < len(tags) && tags[didAt].Token == "did" {
		tagAt = didAt
	} else {
		for i, tt := range tags {
			if tt.Token == "did" {
				tagAt = i
				break
			}
		}
	}

	past := make([]domain.TaggedToken, 0, len(tags))
	for i, tt := range tags {
		if i == tagAt {
			continue
		}
		if verbTags[tt.Tag] || forcedPastTokens[tt.Token] {
			tt.Token = text.PastTense(tt.Token)
		}
		past = append(past, tt)
	}
	out := make([]string, 0, len(past))
	for _, tt := range past {
		out = append(out, tt.Token)
	}
	return out, past
}

// buildFullQuery joins the whole token stream into one gram, or returns nil
// when it is longer than the gram limit.
func buildFullQuery(tokens, quotes []string) []string {
	sentence := strings.ReplaceAll(strings.Join(tokens, " "), ".", "")
	for _, quote := range quotes {
		sentence = strings.Replace(sentence, quotedToken, quote, 1)
	}
	sentence = strings.TrimSpace(restoreDots(sentence))
	if sentence == "" || text.WordCount(sentence) > domain.MaxGramSize {
		return nil
	}
	return []string{sentence}
}

// extractQuotes replaces quoted spans with quotedToken. A quote opens at the
// start of the text or after a space or dot, and closes before a space or at
// the end. An unterminated quote is put back without its opening mark.
func extractQuotes(s string) (string, []string) {
	runes := []rune(s)
	var out, pending strings.Builder
	var quotes []string
	started := false
	for i, c := range runes {
		atStart := i == 0
		var prev, next rune
		if !atStart {
			prev = runes[i-1]
		}
		atEnd := i == len(runes)-1
		if !atEnd {
			next = runes[i+1]
		}

		switch {
		case isQuoteRune(c) && started:
			if atEnd || next == ' ' {
				started = false
				if pending.Len() > 0 {
					quotes = append(quotes, pending.String())
					out.WriteString(quotedToken)
				}
				pending.Reset()
			} else {
				pending.WriteRune(c)
			}
		case isQuoteRune(c) && (atStart || prev == ' ' || prev == '.'):
			started = true
		case started:
			pending.WriteRune(c)
		default:
			out.WriteRune(c)
		}
	}
	if pending.Len() > 0 {
		out.WriteString(pending.String())
	}
	if out.Len() == 0 {
		return s, nil
	}
	return out.String(), quotes
}

func isQuoteRune(r rune) bool {
	return r == '\'' || r == '"' || r == '`'
}

// protectDots replaces every "." not preceded by a space with dotToken.
func protectDots(s string) string {
	var b strings.Builder
	prev := rune(-1)
	for _, c := range s {
		if c == '.' && prev != ' ' {
			b.WriteString(dotToken)
		} else {
			b.WriteRune(c)
		}
		prev = c
	}
	return b.String()
}

func restoreDots(s string) string {
	return strings.ReplaceAll(s, dotToken, ".")
}

func indexOf(values []string, target string) int {
	for i, v := range values {
		if v == target {
			return i
		}
	}
	return -1
}

func containsString(values []string, target string) bool {
	return indexOf(values, target) >= 0
}
