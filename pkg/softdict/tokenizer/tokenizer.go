// Package tokenizer splits dictionary strings into canonical token values and
// interns those values into tokens with stable integer ids.
package tokenizer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokenizer turns a string into its canonical token values, in order and
// with duplicates kept.
type Tokenizer interface {
	Tokenize(s string) []string
	// Name identifies the tokenizer in persisted dictionaries.
	Name() string
}

// Simple splits on runs of letters and runs of digits. Punctuation is either
// dropped or emitted one character per token.
type Simple struct {
	IgnorePunctuation bool
	IgnoreCase        bool
}

// Default is the tokenizer used when none is configured: case folded,
// punctuation dropped.
var Default Tokenizer = Simple{IgnorePunctuation: true, IgnoreCase: true}

func (t Simple) Name() string {
	switch {
	case t.IgnorePunctuation && t.IgnoreCase:
		return "simple"
	case t.IgnoreCase:
		return "simple+punct"
	case t.IgnorePunctuation:
		return "simple+case"
	default:
		return "simple+punct+case"
	}
}

func (t Simple) Tokenize(s string) []string {
	if t.IgnoreCase {
		s = strings.ToLower(s)
	}
	tokens := make([]string, 0, len(s)/4+1)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case unicode.IsLetter(r):
			j := scan(s, i, unicode.IsLetter)
			tokens = append(tokens, s[i:j])
			i = j
		case unicode.IsDigit(r):
			j := scan(s, i, unicode.IsDigit)
			tokens = append(tokens, s[i:j])
			i = j
		default:
			if !t.IgnorePunctuation {
				tokens = append(tokens, s[i:i+size])
			}
			i += size
		}
	}
	return tokens
}

// scan returns the end offset of the run starting at i whose runes satisfy in.
func scan(s string, i int, in func(rune) bool) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !in(r) {
			break
		}
		i += size
	}
	return i
}
