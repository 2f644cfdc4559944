package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
	"github.com/kirillkom/factoid-qa/internal/core/text"
)

const (
	simpleFactMaxVerbs = 1
	simpleFactMaxTags  = 6
)

var (
	verbTags      = tagSet("VB", "VBD", "VBG", "VBN", "VBP", "VBZ")
	nounTags      = tagSet("NN", "NNS", "NNP", "NNPS")
	adjectiveTags = tagSet("JJ", "JJR", "JJS")
)

// Question stems whose answer is usually a number or a date.
var numericPrefixes = []string{
	"when", "how hot", "how big", "how many", "how much", "how often",
	"what date", "how old", "how close", "how tall", "how far", "what year",
	"how high", "which number", "how fast",
}

type QuestionPreprocessor struct {
	tagger ports.Tagger
	stop   text.StopWords
	logger *slog.Logger
}

func NewQuestionPreprocessor(tagger ports.Tagger, logger *slog.Logger) *QuestionPreprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &QuestionPreprocessor{
		tagger: tagger,
		stop:   text.QueryStopWords(),
		logger: logger.With("component", "question_preprocessor"),
	}
}

func (p *QuestionPreprocessor) Classify(ctx context.Context, raw string) (domain.Question, error) {
	free := strings.TrimSpace(strings.ReplaceAll(norm.NFKC.String(raw), "?", ""))
	if free == "" {
		return domain.Question{}, domain.WrapError(domain.ErrInvalidInput, "classify question", errors.New("question is empty"))
	}

	q := domain.Question{
		Raw:                   raw,
		Text:                  free,
		Sanitized:             strings.Join(p.stop.Filter(text.Tokenize(free)), " "),
		NumericAnswerExpected: expectsNumericAnswer(free),
	}

	tags, err := p.tagger.Tag(ctx, strings.Fields(free), true)
	if err != nil {
		p.logger.Warn("question_tagging_failed", "question", free, "error", err)
		tags = domain.TagResult{}
	}
	q.POS = tags.POS
	q.NER = tags.NER

	for _, tt := range q.POS {
		switch {
		case verbTags[tt.Tag]:
			q.Verbs = append(q.Verbs, strings.ToLower(tt.Token))
		case nounTags[tt.Tag]:
			q.Nouns = append(q.Nouns, strings.ToLower(tt.Token))
		}
	}
	q.Type = classifyQuestion(len(q.Verbs), len(q.POS))
	q.Entities = mergeEntities(q.NER)
	q.ImportantTerms = importantTerms(q.POS, p.stop)

	p.logger.Debug("question_classified",
		"type", q.Type,
		"verbs", len(q.Verbs),
		"tags", len(q.POS),
		"entities", len(q.Entities),
		"numeric", q.NumericAnswerExpected,
	)
	return q, nil
}

func classifyQuestion(verbs, tags int) domain.QuestionType {
	if verbs <= simpleFactMaxVerbs && tags <= simpleFactMaxTags {
		return domain.SimpleFact
	}
	return domain.ComplexFact
}

func expectsNumericAnswer(question string) bool {
	lower := strings.ToLower(strings.TrimSpace(question))
	for _, prefix := range numericPrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// mergeEntities joins contiguous tokens that share the same non-"O" tag.
func mergeEntities(ner []domain.TaggedToken) []domain.NamedEntity {
	var out []domain.NamedEntity
	var words []string
	current := ""
	flush := func() {
		if len(words) > 0 {
			out = append(out, domain.NamedEntity{Text: strings.Join(words, " "), Type: current})
		}
		words = nil
		current = ""
	}
	for _, tt := range ner {
		if tt.Tag == "" || tt.Tag == "O" {
			flush()
			continue
		}
		if tt.Tag != current {
			flush()
			current = tt.Tag
		}
		words = append(words, tt.Token)
	}
	flush()
	return out
}

// importantTerms collects runs of adjacent non-stop-word nouns.
func importantTerms(pos []domain.TaggedToken, stop text.StopWords) []string {
	var out, run []string
	for _, tt := range pos {
		if nounTags[tt.Tag] && !stop.Contains(tt.Token) {
			run = append(run, tt.Token)
			continue
		}
		if len(run) > 0 {
			out = append(out, strings.Join(run, " "))
			run = nil
		}
	}
	if len(run) > 0 {
		out = append(out, strings.Join(run, " "))
	}
	return out
}

func tagSet(tags ...string) map[string]bool {
	out := make(map[string]bool, len(tags))
	for _, tag := range tags {
		out[tag] = true
	}
	return out
}
