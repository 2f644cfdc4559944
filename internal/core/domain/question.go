package domain

type QuestionType string

const (
	SimpleFact  QuestionType = "simple_fact"
	ComplexFact QuestionType = "complex_fact"
)

// TaggedToken is one (token, tag) pair produced by the tagger. The tag is a
// Penn Treebank POS tag or a NER label depending on the sequence it belongs to.
type TaggedToken struct {
	Token string `json:"token"`
	Tag   string `json:"tag"`
}

type TagResult struct {
	POS []TaggedToken `json:"pos"`
	NER []TaggedToken `json:"ner,omitempty"`
}

type NamedEntity struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

// Question is built once per incoming question and treated as read-only
// after classification.
type Question struct {
	Raw                   string        `json:"raw"`
	Text                  string        `json:"text"`
	Sanitized             string        `json:"sanitized"`
	POS                   []TaggedToken `json:"pos"`
	NER                   []TaggedToken `json:"ner,omitempty"`
	Type                  QuestionType  `json:"type"`
	Verbs                 []string      `json:"verbs"`
	Nouns                 []string      `json:"nouns"`
	Entities              []NamedEntity `json:"entities,omitempty"`
	ImportantTerms        []string      `json:"important_terms,omitempty"`
	NumericAnswerExpected bool          `json:"numeric_answer_expected"`
}

func (q Question) HasVerb(word string) bool {
	for _, v := range q.Verbs {
		if v == word {
			return true
		}
	}
	return false
}
