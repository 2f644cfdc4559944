package usecase

import (
	"testing"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
	"github.com/kirillkom/factoid-qa/internal/core/text"
)

func tagged(pairs ...string) []domain.TaggedToken {
	out := make([]domain.TaggedToken, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, domain.TaggedToken{Token: pairs[i], Tag: pairs[i+1]})
	}
	return out
}

func assertGrams(t *testing.T, got, want []string) {
	t.Helper()
	if !domain.SameGrams(got, want) {
		t.Fatalf("grams = %q, want %q", got, want)
	}
}

func TestSegmentDefaultKeepsTrailingPreposition(t *testing.T) {
	tags := tagged("Eiffel", "NNP", "Tower", "NNP", "was", "VBD", "built", "VBN", "in", "IN")
	got := segment(tags, DefaultSegmentRules, nil, text.QueryStopWords())
	assertGrams(t, got, []string{"Eiffel", "Tower", "built in"})
}

func TestSegmentFallbackRules(t *testing.T) {
	tags := tagged("Neil", "NNP", "Armstrong", "NNP", "walked", "VBD", "on", "IN", "the", "DT", "moon", "NN")
	stop := text.QueryStopWords()

	cases := []struct {
		name  string
		rules SegmentRules
		want  []string
	}{
		{name: "default", rules: DefaultSegmentRules, want: []string{"Neil", "Armstrong", "walked", "on the moon"}},
		{name: "isolate verbs", rules: FallbackSegmentRules[0], want: []string{"Neil Armstrong", "walked", "moon"}},
		{name: "left verbs", rules: FallbackSegmentRules[1], want: []string{"Neil Armstrong", "walked", "moon"}},
		{name: "right verbs", rules: FallbackSegmentRules[2], want: []string{"Neil Armstrong walked", "moon"}},
		{name: "isolate nouns", rules: FallbackSegmentRules[3], want: []string{"Neil Armstrong walked", "moon"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assertGrams(t, segment(tags, tc.rules, nil, stop), tc.want)
		})
	}
}

func TestSegmentPossessiveAndQuotes(t *testing.T) {
	tags := tagged("Shakespeare", "NN", "'s", "POS", "play", "NN", "wrote", "VBD", quotedToken, "NN")
	got := segment(tags, DefaultSegmentRules, []string{"Hamlet"}, text.QueryStopWords())
	assertGrams(t, got, []string{"Shakespeare's play", "wrote", "Hamlet"})
}

func TestSegmentWithFallbackNeverExceedsGramLimit(t *testing.T) {
	tags := tagged(
		"famous", "JJ", "old", "JJ", "stone", "NN", "bridge", "NN", "river", "NN", "city", "NN",
		"was", "VBD", "built", "VBN",
	)
	stop := text.QueryStopWords()

	first := segment(tags, DefaultSegmentRules, nil, stop)
	if !aboveGramLimit(first) {
		t.Fatalf("expected default segmentation to exceed the gram limit, got %q", first)
	}

	got := segmentWithFallback(tags, nil, stop, func(grams []string) bool {
		return isSingleGramQuery(grams) || aboveGramLimit(grams)
	})
	for _, gram := range got {
		if text.WordCount(gram) > domain.MaxGramSize {
			t.Fatalf("gram %q exceeds %d words", gram, domain.MaxGramSize)
		}
	}
	assertGrams(t, got, []string{"famous old stone", "bridge", "river", "city", "built"})
}

func TestSegmentDropsStopWordGrams(t *testing.T) {
	tags := tagged("which", "WDT", "is", "VBZ", "the", "DT")
	got := segment(tags, DefaultSegmentRules, nil, text.QueryStopWords())
	if len(got) != 0 {
		t.Fatalf("expected no grams, got %q", got)
	}
}
