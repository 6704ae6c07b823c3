package tokenizer

import (
	"sort"
)

// Token is an interned token value. IDs start at 1 and are assigned in
// first-seen order; the zero ID marks a value that was never interned.
type Token struct {
	ID    int
	Value string
}

// Known reports whether the token came from the table rather than being a
// transient query token.
func (t Token) Known() bool { return t.ID > 0 }

// Table interns token values. It is not safe for concurrent mutation; Lookup
// and the read accessors may be shared once interning has stopped.
type Table struct {
	ids    map[string]int
	values []string
}

func NewTable() *Table {
	return &Table{
		ids:    make(map[string]int),
		values: []string{""},
	}
}

// Intern returns the token for value, assigning the next id on first sight.
func (t *Table) Intern(value string) Token {
	if id, ok := t.ids[value]; ok {
		return Token{ID: id, Value: value}
	}
	id := len(t.values)
	t.ids[value] = id
	t.values = append(t.values, value)
	return Token{ID: id, Value: value}
}

// Lookup returns the interned token for value without interning it. A miss
// returns a token with ID 0 carrying the value.
func (t *Table) Lookup(value string) (Token, bool) {
	id, ok := t.ids[value]
	return Token{ID: id, Value: value}, ok
}

// Get returns the token with the given id.
func (t *Table) Get(id int) Token {
	return Token{ID: id, Value: t.values[id]}
}

// Len is the number of interned tokens.
func (t *Table) Len() int { return len(t.values) - 1 }

// MaxID is the largest assigned id, usable as a table size minus one.
func (t *Table) MaxID() int { return len(t.values) - 1 }

// ByID returns every token in id order.
func (t *Table) ByID() []Token {
	tokens := make([]Token, 0, t.Len())
	for id := 1; id < len(t.values); id++ {
		tokens = append(tokens, Token{ID: id, Value: t.values[id]})
	}
	return tokens
}

// Sorted returns every token in lexicographic value order.
func (t *Table) Sorted() []Token {
	tokens := t.ByID()
	sort.Slice(tokens, func(i, j int) bool {
		return tokens[i].Value < tokens[j].Value
	})
	return tokens
}
