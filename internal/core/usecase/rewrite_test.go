package usecase

import (
	"strings"
	"testing"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

func TestApplyRewriteRules(t *testing.T) {
	cases := []struct {
		name  string
		input string
		verbs []string
		want  string
	}{
		{name: "when was with participle", input: "When was Mozart born", verbs: []string{"was", "born"}, want: "Mozart was born in"},
		{name: "when was single verb", input: "When was the Battle of Hastings", verbs: []string{"was"}, want: "the Battle of Hastings in"},
		{name: "what year was", input: "What year was the Berlin Wall built", verbs: []string{"was", "built"}, want: "the Berlin Wall built in"},
		{name: "date", input: "When is Easter", verbs: []string{"is"}, want: "date Easter"},
		{name: "length", input: "How long is the Nile", verbs: []string{"is"}, want: "length the Nile"},
		{name: "duration", input: "How long does a flight to Tokyo take", verbs: []string{"does", "take"}, want: "duration a flight to Tokyo take"},
		{name: "estimation", input: "How long ago did dinosaurs live", verbs: []string{"did", "live"}, want: "estimation ago did dinosaurs live"},
		{name: "speed", input: "How fast is a cheetah", verbs: []string{"is"}, want: "speed is a cheetah"},
		{name: "height", input: "How tall is Mount Everest", verbs: []string{"is"}, want: "height is Mount Everest"},
		{name: "how many auxiliary verbs", input: "How many moons does Mars have", verbs: []string{"does", "have"}, want: "number of moons Mars has"},
		{name: "how many with do keeps have", input: "How many legs do spiders have", verbs: []string{"do", "have"}, want: "number of legs spiders have"},
		{name: "how many content verb", input: "How many people live in Paris", verbs: []string{"live"}, want: "number people live in Paris"},
		{name: "amount", input: "How much does gold cost", verbs: []string{"does", "cost"}, want: "amount does gold cost"},
		{name: "frequency", input: "How often does Halley's comet appear", verbs: []string{"does", "appear"}, want: "frequency Halley's comet appear"},
		{name: "altitude", input: "How high is Kilimanjaro", verbs: []string{"is"}, want: "height Kilimanjaro"},
		{name: "size", input: "How big is the moon", verbs: []string{"is"}, want: "size the moon"},
		{name: "untouched", input: "Who painted the Mona Lisa", verbs: []string{"painted"}, want: "Who painted the Mona Lisa"},
	}

	rules := defaultRewriteRules()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := domain.Question{Text: tc.input, Verbs: tc.verbs}
			got := strings.TrimSpace(applyRewriteRules(rules, tc.input, q))
			if got != tc.want {
				t.Fatalf("rewrite(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestRewriteHowManyIsTokenWise(t *testing.T) {
	q := domain.Question{Verbs: []string{"is"}}
	got := rewriteHowMany("How many islands is Hawaii", q)
	if got != "number of islands Hawaii" {
		t.Fatalf("unexpected rewrite %q", got)
	}
	// "is" inside another word must survive.
	if !strings.Contains(got, "islands") {
		t.Fatalf("verb removal must not touch other words: %q", got)
	}
}
