package text

import (
	"reflect"
	"testing"
)

func TestQueryStopWordsRetainFunctionWords(t *testing.T) {
	stop := QueryStopWords()
	for _, w := range []string{"in", "of", "have", "has", "had", "own", "too", "won"} {
		if stop.Contains(w) {
			t.Fatalf("expected %q to be retained", w)
		}
	}
	for _, w := range []string{"the", "What", "whom", "is", `"`} {
		if !stop.Contains(w) {
			t.Fatalf("expected %q to be a stop word", w)
		}
	}
}

func TestScoringStopWordsDropFunctionWords(t *testing.T) {
	stop := ScoringStopWords()
	if !stop.Contains("in") || !stop.Contains("of") {
		t.Fatalf("expected in/of to be scoring stop words")
	}
	if stop.Contains("own") || stop.Contains("too") {
		t.Fatalf("expected own/too to be retained")
	}
}

func TestStopWordsAreCaseSensitive(t *testing.T) {
	stop := QueryStopWords()
	if stop.Contains("US") {
		t.Fatalf("uppercase US must not match stop word us")
	}
	if stop.AllStopWords("the of a") {
		t.Fatalf("retained word must break an all-stop-word gram")
	}
	if !stop.AllStopWords("the a") {
		t.Fatalf("expected all stop words")
	}
	if !stop.AllStopWords("") {
		t.Fatalf("empty text must count as all stop words")
	}
}

func TestTokenizeKeepsContractionsAndSplitsPunctuation(t *testing.T) {
	got := Tokenize(`Who wrote "Mars's Song", the hit?`)
	want := []string{"Who", "wrote", `"`, "Mars's", "Song", `"`, ",", "the", "hit", "?"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Tokenize() = %#v, want %#v", got, want)
	}
}

func TestWordAndIndexTokens(t *testing.T) {
	if got := WordTokens("Eiffel Tower, 1889!"); !reflect.DeepEqual(got, []string{"eiffel", "tower", "1889"}) {
		t.Fatalf("WordTokens() = %#v", got)
	}
	if got := IndexTokens("a Tower I built"); !reflect.DeepEqual(got, []string{"tower", "built"}) {
		t.Fatalf("IndexTokens() = %#v", got)
	}
}

func TestNumberDetector(t *testing.T) {
	detector := NewNumberDetector()
	cases := map[string]bool{
		"It was built in 1889.":       true,
		"Mars has two moons.":         true,
		"He never returned.":          true,
		"Mars is red.":                false,
		"The tower stands in Paris.":  false,
		"A Hundred Years of Solitude": true,
	}
	for input, want := range cases {
		if got := detector.HasNumber(input); got != want {
			t.Fatalf("HasNumber(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestPastTense(t *testing.T) {
	cases := map[string]string{
		"walk":     "walked",
		"walks":    "walked",
		"stop":     "stopped",
		"open":     "opened",
		"Open":     "Opened",
		"marry":    "married",
		"play":     "played",
		"die":      "died",
		"build":    "built",
		"making":   "made",
		"running":  "ran",
		"bite":     "bitten",
		"found":    "founded",
		"invent":   "invented",
		"built":    "built",
		"invented": "invented",
		"need":     "needed",
		"is":       "was",
		"win":      "won",
	}
	for input, want := range cases {
		if got := PastTense(input); got != want {
			t.Fatalf("PastTense(%q) = %q, want %q", input, got, want)
		}
	}
}
