package usecase

import (
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/ports"
	"github.com/kirillkom/factoid-qa/internal/core/text"
)

type CandidateGenerator struct {
	chunker       ports.Chunker
	stop          text.StopWords
	numbers       text.NumberDetector
	maxCandidates int
	logger        *slog.Logger
}

func NewCandidateGenerator(chunker ports.Chunker, maxCandidates int, logger *slog.Logger) *CandidateGenerator {
	if maxCandidates <= 0 {
		maxCandidates = domain.AnswerParagraphsMaxAmount
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CandidateGenerator{
		chunker:       chunker,
		stop:          text.ScoringStopWords(),
		numbers:       text.NewNumberDetector(),
		maxCandidates: maxCandidates,
		logger:        logger.With("component", "candidate_generator"),
	}
}

// Generate chunks the retrieved objects into windows, scores every window
// against terms and returns the ranked shortlist.
func (g *CandidateGenerator) Generate(
	objects []domain.RetrievedObject,
	terms domain.TermSet,
	numericExpected bool,
) []domain.CandidateParagraph {
	return g.Select(g.ScoreWindows(objects, terms, numericExpected))
}

// ScoreWindows returns every window of the retrieved objects with its score,
// in generation order.
func (g *CandidateGenerator) ScoreWindows(
	objects []domain.RetrievedObject,
	terms domain.TermSet,
	numericExpected bool,
) []domain.CandidateParagraph {
	var windows []string
	for i, obj := range objects {
		body := strings.TrimSpace(obj.Text)
		if body == "" || !utf8.ValidString(body) {
			g.logger.Debug("candidate_object_skipped", "index", i, "url", obj.URL)
			continue
		}
		windows = append(windows, g.chunker.Split(body)...)
	}
	if len(windows) == 0 {
		return nil
	}

	model := fitTFIDF(windows, g.stop)
	sortedTerms := terms.Sorted()
	scored := make([]domain.CandidateParagraph, 0, len(windows))
	for _, window := range windows {
		scored = append(scored, domain.CandidateParagraph{
			Score: g.score(window, model, terms, sortedTerms, numericExpected),
			Text:  window,
		})
	}
	return scored
}

// Select keeps the positive-score windows, best first, up to the shortlist
// size. Equal scores keep generation order. When no window scores above
// zero, the first window is returned so the extractor always has a
// paragraph to read.
func (g *CandidateGenerator) Select(scored []domain.CandidateParagraph) []domain.CandidateParagraph {
	if len(scored) == 0 {
		return nil
	}
	var positive []domain.CandidateParagraph
	for _, c := range scored {
		if c.Score > 0 {
			positive = append(positive, c)
		}
	}
	if len(positive) == 0 {
		positive = append(positive, scored[0])
	}

	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].Score > positive[j].Score
	})
	if len(positive) > g.maxCandidates {
		positive = positive[:g.maxCandidates]
	}

	g.logger.Debug("candidates_selected", "windows", len(scored), "selected", len(positive))
	return positive
}

func (g *CandidateGenerator) score(
	window string,
	model tfidfModel,
	terms domain.TermSet,
	sortedTerms []string,
	numericExpected bool,
) float64 {
	if numericExpected && !g.numbers.HasNumber(window) {
		return 0
	}
	tokens := text.WordTokens(window)
	return termCoverageScore(terms, tokens) +
		meanTermWeight(sortedTerms, model.weights(window)) +
		termDistanceScore(tokens, terms, g.stop)
}

// termCoverageScore is the share of terms that occur in tokens.
func termCoverageScore(terms domain.TermSet, tokens []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	seen := make(map[string]bool, len(tokens))
	matched := 0
	for _, token := range tokens {
		if terms.Contains(token) && !seen[token] {
			seen[token] = true
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}

// meanTermWeight averages the positive tf-idf weights of the matched terms.
// terms must be in a fixed order so equal windows sum to equal scores.
func meanTermWeight(terms []string, weights map[string]float64) float64 {
	var sum float64
	matched := 0
	for _, term := range terms {
		if w := weights[term]; w > 0 {
			sum += w
			matched++
		}
	}
	if matched == 0 {
		return 0
	}
	return sum / float64(matched)
}

// termDistanceScore rewards windows where different query terms occur close
// to each other: spawns / smallest gap / window length.
func termDistanceScore(tokens []string, terms domain.TermSet, stop text.StopWords) float64 {
	spawns := 0
	smallest := 0
	start := -1
	prev := ""
	for i, token := range tokens {
		if stop.Contains(token) || !terms.Contains(token) {
			continue
		}
		if start >= 0 && token != prev {
			gap := i - start
			spawns++
			if smallest == 0 || gap < smallest {
				smallest = gap
			}
		}
		prev = token
		start = i
	}
	if spawns == 0 || smallest == 0 {
		return 0
	}
	return float64(spawns) / float64(smallest) / float64(len(tokens))
}

// SignificantTerms returns the lowercase non-stop-word words of all query grams.
func SignificantTerms(queries []domain.SearchQuery) domain.TermSet {
	stop := text.ScoringStopWords()
	terms := make(domain.TermSet)
	for _, q := range queries {
		for _, gram := range q.Grams {
			for _, word := range text.WordTokens(gram) {
				if !stop.Contains(word) {
					terms[word] = struct{}{}
				}
			}
		}
	}
	return terms
}
