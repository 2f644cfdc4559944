package usecase

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kirillkom/factoid-qa/internal/core/domain"
)

// rewriteRule maps a factoid question stem to the form its answer is likely
// to take in text, e.g. "how tall" -> "height". Rules run in table order and
// each one sees the output of the previous rule.
type rewriteRule struct {
	name  string
	apply func(s string, q domain.Question) string
}

// Verbs that a "how many" question can drop without losing meaning.
var howManySimpleVerbs = map[string]bool{
	"is": true, "was": true, "are": true, "were": true, "does": true, "do": true, "have": true,
}

func defaultRewriteRules() []rewriteRule {
	return []rewriteRule{
		{name: "when_was", apply: rewriteWhenWas},
		{name: "what_year_was", apply: rewriteWhatYearWas},
		literalRule("date", "date", "when were", "when is", "when are"),
		literalRule("length", "length", "how long is", "how long are", "how long was", "how long were"),
		literalRule("duration", "duration", "how long does"),
		literalRule("estimation", "estimation", "how long"),
		literalRule("speed", "speed", "how fast"),
		literalRule("height", "height", "how tall"),
		{name: "how_many", apply: rewriteHowMany},
		literalRule("amount", "amount", "how much"),
		literalRule("frequency", "frequency", "how often does", "how often is", "how often was"),
		literalRule("altitude", "height", "how high is", "how high are", "how high was", "how high were"),
		literalRule("size", "size", "how big is", "how big are", "how big was", "how big were"),
	}
}

func applyRewriteRules(rules []rewriteRule, s string, q domain.Question) string {
	for _, rule := range rules {
		s = rule.apply(s, q)
	}
	return s
}

// literalRule replaces every phrase, in lowercase and capitalized form, with to.
func literalRule(name, to string, phrases ...string) rewriteRule {
	return rewriteRule{
		name: name,
		apply: func(s string, _ domain.Question) string {
			for _, phrase := range phrases {
				s = replaceBothCases(s, phrase, to)
			}
			return s
		},
	}
}

func rewriteWhenWas(s string, q domain.Question) string {
	if !hasPrefixFold(s, "when was") {
		return s
	}
	s = replaceBothCases(s, "when was", "")
	if len(q.Verbs) == 2 {
		tokens := strings.Fields(s)
		for i, token := range tokens {
			if q.HasVerb(strings.ToLower(token)) {
				tokens[i] = "was " + token
			}
		}
		s = strings.Join(tokens, " ")
	}
	return s + " in"
}

func rewriteWhatYearWas(s string, _ domain.Question) string {
	if !hasPrefixFold(s, "what year was") {
		return s
	}
	return replaceBothCases(s, "what year was", "") + " in"
}

// rewriteHowMany turns "how many X does Y have" into "number of X Y has" when
// every verb is auxiliary. Verbs are dropped token by token so that a verb
// occurring inside another word is left alone.
func rewriteHowMany(s string, q domain.Question) string {
	if !hasPrefixFold(s, "how many") {
		return s
	}
	hasDo := false
	for _, verb := range q.Verbs {
		if !howManySimpleVerbs[verb] {
			return replaceBothCases(s, "how many", "number")
		}
		if verb == "do" {
			hasDo = true
		}
	}

	s = replaceBothCases(s, "how many", "number of ")
	tokens := strings.Fields(s)
	out := tokens[:0]
	for _, token := range tokens {
		lower := strings.ToLower(token)
		if !q.HasVerb(lower) {
			out = append(out, token)
			continue
		}
		if lower == "have" {
			if hasDo {
				out = append(out, "have")
			} else {
				out = append(out, "has")
			}
		}
	}
	return strings.Join(out, " ")
}

func replaceBothCases(s, phrase, to string) string {
	s = strings.ReplaceAll(s, phrase, to)
	return strings.ReplaceAll(s, capitalize(phrase), to)
}

func hasPrefixFold(s, prefix string) bool {
	return strings.HasPrefix(strings.ToLower(s), prefix)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
