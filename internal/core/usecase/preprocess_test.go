package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

// dictTagger tags tokens from fixed dictionaries. Unknown tokens are NN and O.
type dictTagger struct {
	pos   map[string]string
	ner   map[string]string
	err   error
	calls int
}

func (t *dictTagger) Tag(_ context.Context, tokens []string, withNER bool) (domain.TagResult, error) {
	t.calls++
	if t.err != nil {
		return domain.TagResult{}, t.err
	}
	var out domain.TagResult
	for _, token := range tokens {
		tag, ok := t.pos[token]
		if !ok {
			tag = "NN"
		}
		out.POS = append(out.POS, domain.TaggedToken{Token: token, Tag: tag})
		if withNER {
			label, ok := t.ner[token]
			if !ok {
				label = "O"
			}
			out.NER = append(out.NER, domain.TaggedToken{Token: token, Tag: label})
		}
	}
	return out, nil
}

func newTestTagger() *dictTagger {
	return &dictTagger{
		pos: map[string]string{
			"When": "WRB", "What": "WP", "Who": "WP", "Where": "WRB", "How": "WRB",
			"was": "VBD", "is": "VBZ", "were": "VBD", "did": "VBD", "does": "VBZ", "have": "VBP",
			"built": "VBN", "born": "VBN", "wrote": "VBD", "walk": "VB", "discovered": "VBD",
			"the": "DT", "a": "DT", "of": "IN", "in": "IN", "on": "IN",
			"Eiffel": "NNP", "Tower": "NNP", "Neil": "NNP", "Armstrong": "NNP",
			"Barack": "NNP", "Obama": "NNP", "Mars": "NNP", "France": "NNP",
			"many": "JJ", "moons": "NNS",
		},
		ner: map[string]string{
			"Eiffel": "LOCATION", "Tower": "LOCATION",
			"Barack": "PERSON", "Obama": "PERSON", "Neil": "PERSON", "Armstrong": "PERSON",
			"Mars": "LOCATION", "France": "LOCATION",
		},
	}
}

func TestClassifyQuestionBoundaries(t *testing.T) {
	cases := []struct {
		verbs, tags int
		want        domain.QuestionType
	}{
		{verbs: 0, tags: 0, want: domain.SimpleFact},
		{verbs: 1, tags: 6, want: domain.SimpleFact},
		{verbs: 1, tags: 7, want: domain.ComplexFact},
		{verbs: 2, tags: 6, want: domain.ComplexFact},
		{verbs: 2, tags: 7, want: domain.ComplexFact},
	}
	for _, tc := range cases {
		if got := classifyQuestion(tc.verbs, tc.tags); got != tc.want {
			t.Fatalf("classifyQuestion(%d, %d) = %s, want %s", tc.verbs, tc.tags, got, tc.want)
		}
	}
}

func TestQuestionPreprocessorClassify(t *testing.T) {
	p := NewQuestionPreprocessor(newTestTagger(), nil)

	q, err := p.Classify(context.Background(), "Who wrote the novel Dracula?")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if q.Text != "Who wrote the novel Dracula" {
		t.Fatalf("unexpected text %q", q.Text)
	}
	if q.Type != domain.SimpleFact {
		t.Fatalf("expected simple fact, got %s", q.Type)
	}
	if len(q.Verbs) != 1 || q.Verbs[0] != "wrote" {
		t.Fatalf("unexpected verbs %v", q.Verbs)
	}
	if q.NumericAnswerExpected {
		t.Fatalf("did not expect numeric answer")
	}

	q, err = p.Classify(context.Background(), "When was the Eiffel Tower built?")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if !q.NumericAnswerExpected {
		t.Fatalf("expected numeric answer for when-question")
	}
	if q.Type != domain.ComplexFact {
		t.Fatalf("two verbs must be complex fact, got %s", q.Type)
	}
	if len(q.Entities) != 1 || q.Entities[0].Text != "Eiffel Tower" || q.Entities[0].Type != "LOCATION" {
		t.Fatalf("unexpected entities %+v", q.Entities)
	}
}

func TestQuestionPreprocessorImportantTermsAndSanitized(t *testing.T) {
	p := NewQuestionPreprocessor(newTestTagger(), nil)

	q, err := p.Classify(context.Background(), "What is the capital city of France?")
	if err != nil {
		t.Fatalf("Classify returned error: %v", err)
	}
	if len(q.ImportantTerms) != 2 || q.ImportantTerms[0] != "capital city" || q.ImportantTerms[1] != "France" {
		t.Fatalf("unexpected important terms %v", q.ImportantTerms)
	}
	if q.Sanitized != "capital city of France" {
		t.Fatalf("unexpected sanitized text %q", q.Sanitized)
	}
}

func TestQuestionPreprocessorRejectsBlankQuestion(t *testing.T) {
	tagger := newTestTagger()
	p := NewQuestionPreprocessor(tagger, nil)

	_, err := p.Classify(context.Background(), "  ??  ")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if tagger.calls != 0 {
		t.Fatalf("tagger must not be called for blank input")
	}
}

func TestQuestionPreprocessorDegradesOnTaggerFailure(t *testing.T) {
	tagger := &dictTagger{err: errors.New("corenlp down")}
	p := NewQuestionPreprocessor(tagger, nil)

	q, err := p.Classify(context.Background(), "How many moons does Mars have?")
	if err != nil {
		t.Fatalf("tagger failure must not fail classification: %v", err)
	}
	if len(q.POS) != 0 || len(q.Verbs) != 0 {
		t.Fatalf("expected empty tags, got %+v", q.POS)
	}
	if q.Type != domain.SimpleFact {
		t.Fatalf("expected simple fact with no tags, got %s", q.Type)
	}
	if !q.NumericAnswerExpected {
		t.Fatalf("expected numeric answer for how-many question")
	}
}

func TestMergeEntities(t *testing.T) {
	ner := []domain.TaggedToken{
		{Token: "Barack", Tag: "PERSON"},
		{Token: "Obama", Tag: "PERSON"},
		{Token: "visited", Tag: "O"},
		{Token: "Paris", Tag: "LOCATION"},
		{Token: "France", Tag: "COUNTRY"},
	}
	got := mergeEntities(ner)
	want := []domain.NamedEntity{
		{Text: "Barack Obama", Type: "PERSON"},
		{Text: "Paris", Type: "LOCATION"},
		{Text: "France", Type: "COUNTRY"},
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entities, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entity %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
