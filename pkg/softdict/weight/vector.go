// Package weight turns token sequences into sparse weighted vectors.
package weight

// Term is one token of a vector with its weight.
type Term struct {
	Value  string
	Weight float64
}

// Vector is a sparse token vector. Terms keep first-occurrence order and
// hold each token value once.
type Vector struct {
	Terms []Term
	index map[string]int
}

func newVector(n int) Vector {
	return Vector{
		Terms: make([]Term, 0, n),
		index: make(map[string]int, n),
	}
}

// add accumulates w onto value, appending it on first sight.
func (v *Vector) add(value string, w float64) {
	if i, ok := v.index[value]; ok {
		v.Terms[i].Weight += w
		return
	}
	v.index[value] = len(v.Terms)
	v.Terms = append(v.Terms, Term{Value: value, Weight: w})
}

// Weight returns the weight of value, zero when absent.
func (v Vector) Weight(value string) float64 {
	if i, ok := v.index[value]; ok {
		return v.Terms[i].Weight
	}
	return 0
}

// Contains reports whether value is a term of the vector.
func (v Vector) Contains(value string) bool {
	_, ok := v.index[value]
	return ok
}

func (v Vector) Len() int { return len(v.Terms) }
