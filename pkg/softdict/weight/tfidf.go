package weight

import (
	"math"
)

// Model weights token sequences. Document-frequency bookkeeping is exposed so
// a trained model can be persisted and restored without retraining.
type Model interface {
	// Train replaces the collection statistics with those of docs.
	Train(docs [][]string)
	Vector(tokens []string) Vector
	DocumentFrequency(value string) int
	SetDocumentFrequency(value string, df int)
	CollectionSize() int
	SetCollectionSize(n int)
	Name() string
}

// TFIDF weights a token by log(tf+1)*log(N/df) and normalizes the vector to
// unit length. Tokens never seen in training count as df=1. Before any
// training every token weighs the same.
type TFIDF struct {
	df             map[string]int
	collectionSize int
}

func NewTFIDF() *TFIDF {
	return &TFIDF{df: make(map[string]int)}
}

func (m *TFIDF) Name() string { return "tfidf" }

func (m *TFIDF) Train(docs [][]string) {
	m.df = make(map[string]int, len(docs))
	seen := make(map[string]struct{})
	for _, doc := range docs {
		clear(seen)
		for _, tok := range doc {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			m.df[tok]++
		}
	}
	m.collectionSize = len(docs)
}

func (m *TFIDF) Vector(tokens []string) Vector {
	v := newVector(len(tokens))
	for _, tok := range tokens {
		v.add(tok, 1)
	}
	if v.Len() == 0 {
		return v
	}
	var norm float64
	if m.collectionSize > 0 {
		n := float64(m.collectionSize)
		for i := range v.Terms {
			df := float64(m.df[v.Terms[i].Value])
			if df == 0 {
				df = 1
			}
			w := math.Log(v.Terms[i].Weight+1) * math.Log(n/df)
			if w < 0 {
				w = 0
			}
			v.Terms[i].Weight = w
			norm += w * w
		}
	}
	if norm == 0 {
		// Untrained, or every token occurs in every document.
		for i := range v.Terms {
			v.Terms[i].Weight = 1
		}
		norm = float64(v.Len())
	}
	norm = math.Sqrt(norm)
	for i := range v.Terms {
		v.Terms[i].Weight /= norm
	}
	return v
}

func (m *TFIDF) DocumentFrequency(value string) int { return m.df[value] }

func (m *TFIDF) SetDocumentFrequency(value string, df int) {
	if df <= 0 {
		delete(m.df, value)
		return
	}
	m.df[value] = df
}

func (m *TFIDF) CollectionSize() int { return m.collectionSize }

func (m *TFIDF) SetCollectionSize(n int) { m.collectionSize = n }
