package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleTokenize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		tok   Simple
		input string
		want  []string
	}{
		{"words", Simple{true, true}, "Vitor del Rocha CARVALHO", []string{"vitor", "del", "rocha", "carvalho"}},
		{"digits split from letters", Simple{true, true}, "r2d2", []string{"r", "2", "d", "2"}},
		{"punctuation dropped", Simple{true, true}, "o'brien, jr.", []string{"o", "brien", "jr"}},
		{"punctuation kept", Simple{false, true}, "a.b", []string{"a", ".", "b"}},
		{"case kept", Simple{true, false}, "IBM Corp", []string{"IBM", "Corp"}},
		{"punctuation only", Simple{true, true}, "?!... --", []string{}},
		{"empty", Simple{true, true}, "", []string{}},
		{"unicode letters", Simple{true, true}, "José Müller", []string{"josé", "müller"}},
		{"duplicates kept", Simple{true, true}, "new new york", []string{"new", "new", "york"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.tok.Tokenize(tt.input))
		})
	}
}

func TestDefaultIgnoresPunctuation(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Default.Tokenize("***"))
	assert.Equal(t, "simple", Default.Name())
}

func TestStemming(t *testing.T) {
	t.Parallel()
	tok := NewStemming()
	assert.Equal(t, []string{"run", "man"}, tok.Tokenize("The Running Man"))
	assert.Equal(t, "stemming/simple", tok.Name())
}

func TestTableIntern(t *testing.T) {
	t.Parallel()
	table := NewTable()

	a := table.Intern("smith")
	b := table.Intern("jones")
	again := table.Intern("smith")

	assert.Equal(t, 1, a.ID)
	assert.Equal(t, 2, b.ID)
	assert.Equal(t, a, again)
	assert.Equal(t, 2, table.Len())
	assert.Equal(t, "jones", table.Get(2).Value)
}

func TestTableLookupDoesNotIntern(t *testing.T) {
	t.Parallel()
	table := NewTable()
	table.Intern("smith")

	tok, ok := table.Lookup("smyth")
	assert.False(t, ok)
	assert.False(t, tok.Known())
	assert.Equal(t, "smyth", tok.Value)
	assert.Equal(t, 1, table.Len())

	tok, ok = table.Lookup("smith")
	require.True(t, ok)
	assert.Equal(t, 1, tok.ID)
}

func TestTableOrders(t *testing.T) {
	t.Parallel()
	table := NewTable()
	for _, v := range []string{"carvalho", "all", "vitor"} {
		table.Intern(v)
	}

	byID := table.ByID()
	sorted := table.Sorted()

	assert.Equal(t, []string{"carvalho", "all", "vitor"}, values(byID))
	assert.Equal(t, []string{"all", "carvalho", "vitor"}, values(sorted))
	assert.Equal(t, 2, sorted[0].ID)
}

func values(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Value
	}
	return out
}
