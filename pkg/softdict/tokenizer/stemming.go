package tokenizer

import (
	"github.com/kljensen/snowball/english"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {},
	"be": {}, "by": {}, "for": {}, "from": {}, "has": {}, "he": {},
	"in": {}, "is": {}, "it": {}, "its": {}, "of": {}, "on": {},
	"or": {}, "that": {}, "the": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "this": {}, "but": {}, "they": {},
	"have": {}, "had": {}, "what": {}, "when": {}, "where": {},
	"who": {}, "which": {}, "their": {}, "if": {}, "each": {},
	"do": {}, "not": {}, "no": {}, "so": {}, "can": {},
}

// Stemming lower-cases, drops English stop-words and reduces every remaining
// word to its Snowball stem. Titles like "The Running Man" and "running men"
// then share tokens.
type Stemming struct {
	Simple Simple
}

// NewStemming returns a Stemming tokenizer over the default Simple settings.
func NewStemming() Stemming {
	return Stemming{Simple: Simple{IgnorePunctuation: true, IgnoreCase: true}}
}

func (t Stemming) Name() string { return "stemming/" + t.Simple.Name() }

func (t Stemming) Tokenize(s string) []string {
	words := t.Simple.Tokenize(s)
	tokens := words[:0]
	for _, word := range words {
		if _, isStop := stopWords[word]; isStop {
			continue
		}
		stemmed := english.Stem(word, true)
		if stemmed == "" {
			continue
		}
		tokens = append(tokens, stemmed)
	}
	return tokens
}
