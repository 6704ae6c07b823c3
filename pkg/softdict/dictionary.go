// Package softdict is an approximate-match dictionary over short strings.
//
// Entries are added with Put and the dictionary is then frozen. Freezing
// trains the weight model and precomputes three tables: the largest weight
// every token reaches, the keys containing every token, and for every token
// the other tokens it resembles. Lookup uses those tables to bound how much
// any stored key could score against a query, so only keys that might reach
// the threshold are scored exactly. SlowLookup scores every key and is the
// baseline Lookup is checked against.
//
//	d, _ := softdict.New(softdict.DefaultConfig())
//	d.Put("william cohen", "wcohen@cs.cmu.edu")
//	d.Put("vitor del rocha carvalho", "vitor@cs.cmu.edu")
//	d.Freeze()
//	res := d.Lookup(0.5, "victor carvalho")
//	for i := 0; i < res.Len(); i++ {
//		fmt.Println(res.Key(i), res.Value(i), res.Score(i))
//	}
package softdict

import (
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/softdict/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/similarity"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/tokenizer"
	"github.com/Adithya-Monish-Kumar-K/softdict/pkg/softdict/weight"
)

// Observer receives timing and size figures from a dictionary. The metrics
// package provides a Prometheus implementation.
type Observer interface {
	ObserveFreeze(elapsed time.Duration, vocabulary, pairs int)
	ObserveLookup(kind string, elapsed time.Duration, candidates, results int)
}

type Option func(*Dictionary)

// WithTokenizer replaces the default tokenizer. Dictionaries using any
// tokenizer other than tokenizer.Default cannot be saved.
func WithTokenizer(t tokenizer.Tokenizer) Option {
	return func(d *Dictionary) { d.tokenizer = t }
}

// WithWeightModel replaces the TF-IDF weight model.
func WithWeightModel(m weight.Model) Option {
	return func(d *Dictionary) { d.model = m }
}

// WithTokenSimilarity replaces Jaro-Winkler as the token similarity used to
// find near-duplicate tokens and by the default matcher.
func WithTokenSimilarity(s similarity.TokenSimilarity) Option {
	return func(d *Dictionary) { d.tokenSim = s }
}

// WithMatcher replaces the exact scorer.
func WithMatcher(m similarity.Matcher) Option {
	return func(d *Dictionary) {
		d.matcher = m
		d.customMatcher = true
	}
}

// WithBoundMerge overrides Config.BoundMerge. Restore uses it, since the
// merge mode is not part of the saved file.
func WithBoundMerge(m BoundMerge) Option {
	return func(d *Dictionary) { d.cfg.BoundMerge = m }
}

func WithObserver(o Observer) Option {
	return func(d *Dictionary) { d.observer = o }
}

func WithLogger(l *slog.Logger) Option {
	return func(d *Dictionary) { d.logger = l }
}

// neighbor is a near-duplicate of some token.
type neighbor struct {
	id  int
	sim float64
}

// Dictionary maps string keys to sets of string values and answers
// approximate lookups over the keys.
//
// Put, Freeze, Thaw and Refreeze must not run concurrently with anything.
// Once frozen, Lookup and SlowLookup only read shared state and may be
// called from many goroutines.
type Dictionary struct {
	cfg           Config
	tokenizer     tokenizer.Tokenizer
	model         weight.Model
	tokenSim      similarity.TokenSimilarity
	matcher       similarity.Matcher
	customMatcher bool
	observer      Observer
	logger        *slog.Logger

	tokens *tokenizer.Table
	keys   []string
	values map[string][]string

	frozen    bool
	vectors   map[string]weight.Vector
	maxWeight []float64
	postings  [][]string
	similar   [][]neighbor
	sorted    []tokenizer.Token
}

// New returns an empty dictionary.
func New(cfg Config, opts ...Option) (*Dictionary, error) {
	d := &Dictionary{
		cfg:       cfg,
		tokenizer: tokenizer.Default,
		tokenSim:  similarity.DefaultTokenSimilarity,
		tokens:    tokenizer.NewTable(),
		values:    make(map[string][]string),
	}
	for _, opt := range opts {
		opt(d)
	}
	if err := d.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dictionary config: %w", err)
	}
	if d.model == nil {
		d.model = weight.NewTFIDF()
	}
	if d.matcher == nil {
		d.matcher = similarity.NewSoftTFIDF(d.tokenSim, d.cfg.MinTokenSimilarity)
	}
	if d.logger == nil {
		d.logger = slog.Default().With("component", "softdict")
	}
	return d, nil
}

// profile names the collaborators a dictionary was built with. Only
// dictionaries with the default profile can be persisted.
func (d *Dictionary) profile() string {
	return d.tokenizer.Name() + "/" + d.model.Name() + "/" + d.tokenSim.Name()
}

func defaultProfile() string {
	return tokenizer.Default.Name() + "/" + weight.NewTFIDF().Name() + "/" + similarity.DefaultTokenSimilarity.Name()
}

func (d *Dictionary) persistable() bool {
	return !d.customMatcher && d.profile() == defaultProfile()
}

// Put associates value with key. A key may carry several values; putting
// the same pair twice stores it once. Put fails with ErrFrozen once the
// dictionary is frozen.
func (d *Dictionary) Put(key, value string) error {
	if d.frozen {
		return fmt.Errorf("put %q: %w", key, apperrors.ErrFrozen)
	}
	vals, ok := d.values[key]
	if !ok {
		d.keys = append(d.keys, key)
		for _, tok := range d.tokenizer.Tokenize(key) {
			d.tokens.Intern(tok)
		}
	}
	for _, v := range vals {
		if v == value {
			return nil
		}
	}
	d.values[key] = append(vals, value)
	return nil
}

// Frozen reports whether the lookup tables are current.
func (d *Dictionary) Frozen() bool { return d.frozen }

// Thaw drops the lookup tables so more entries can be put. The next
// Freeze, or any lookup, rebuilds them.
func (d *Dictionary) Thaw() {
	d.frozen = false
	d.vectors = nil
	d.maxWeight = nil
	d.postings = nil
	d.similar = nil
	d.sorted = nil
}

// Refreeze rebuilds the lookup tables from the current entries and
// configuration, even when they are current.
func (d *Dictionary) Refreeze() {
	d.Thaw()
	d.Freeze()
}

// Config returns the configuration in effect.
func (d *Dictionary) Config() Config { return d.cfg }

// SetWindowSize changes the near-duplicate window. It takes effect at the
// next Freeze or Refreeze.
func (d *Dictionary) SetWindowSize(w int) error {
	if w < 0 {
		return fmt.Errorf("negative window size %d: %w", w, apperrors.ErrInvalidInput)
	}
	d.cfg.WindowSize = w
	return nil
}

// SetMaxInvertedIndexSize changes the postings cutoff used by Lookup. It
// takes effect immediately.
func (d *Dictionary) SetMaxInvertedIndexSize(n int) error {
	if n < 0 {
		return fmt.Errorf("negative max inverted index size %d: %w", n, apperrors.ErrInvalidInput)
	}
	d.cfg.MaxInvertedIndexSize = n
	return nil
}

// Len is the number of distinct keys.
func (d *Dictionary) Len() int { return len(d.keys) }

// Keys returns the keys in insertion order.
func (d *Dictionary) Keys() []string {
	return append([]string(nil), d.keys...)
}

// Values returns the values stored under key.
func (d *Dictionary) Values(key string) []string {
	return append([]string(nil), d.values[key]...)
}

// Vocabulary is the number of distinct tokens across all keys.
func (d *Dictionary) Vocabulary() int { return d.tokens.Len() }

// TokenStat describes one token of a frozen dictionary.
type TokenStat struct {
	Token          string
	Postings       int
	MaxWeight      float64
	NearDuplicates int
}

// TokenStats returns per-token figures in lexicographic token order,
// freezing first if needed.
func (d *Dictionary) TokenStats() []TokenStat {
	d.Freeze()
	stats := make([]TokenStat, 0, len(d.sorted))
	for _, tok := range d.sorted {
		stats = append(stats, TokenStat{
			Token:          tok.Value,
			Postings:       len(d.postings[tok.ID]),
			MaxWeight:      d.maxWeight[tok.ID],
			NearDuplicates: len(d.similar[tok.ID]),
		})
	}
	return stats
}

// NearDuplicates returns the near-duplicates recorded for token at the last
// freeze, or nil when the token is unknown.
func (d *Dictionary) NearDuplicates(token string) []string {
	d.Freeze()
	tok, ok := d.tokens.Lookup(token)
	if !ok || tok.ID >= len(d.similar) {
		return nil
	}
	out := make([]string, 0, len(d.similar[tok.ID]))
	for _, n := range d.similar[tok.ID] {
		out = append(out, d.tokens.Get(n.id).Value)
	}
	return out
}
