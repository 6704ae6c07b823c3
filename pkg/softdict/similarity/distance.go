package similarity

import (
	"fmt"
	"strings"

	"github.com/hbollon/go-edlib"
)

// StringDistance scores two whole strings in [0,1], higher meaning closer. It
// is used to rescore candidates produced by a dictionary lookup.
type StringDistance interface {
	Score(a, b string) float64
	Name() string
}

// Edit scores whole strings with one of go-edlib's similarity algorithms
// after lower-casing both sides.
type Edit struct {
	name      string
	algorithm edlib.Algorithm
}

var algorithms = map[string]edlib.Algorithm{
	"jaro-winkler":        edlib.JaroWinkler,
	"jaro":                edlib.Jaro,
	"levenshtein":         edlib.Levenshtein,
	"damerau-levenshtein": edlib.DamerauLevenshtein,
	"lcs":                 edlib.Lcs,
	"jaccard":             edlib.Jaccard,
	"cosine":              edlib.Cosine,
	"sorensen-dice":       edlib.SorensenDice,
}

// NewStringDistance returns the named distance. Known names are jaro-winkler,
// jaro, levenshtein, damerau-levenshtein, lcs, jaccard, cosine and
// sorensen-dice.
func NewStringDistance(name string) (StringDistance, error) {
	algo, ok := algorithms[name]
	if !ok {
		return nil, fmt.Errorf("unknown string distance %q", name)
	}
	return Edit{name: name, algorithm: algo}, nil
}

func (d Edit) Name() string { return d.name }

func (d Edit) Score(a, b string) float64 {
	a, b = strings.ToLower(a), strings.ToLower(b)
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	s, err := edlib.StringsSimilarity(a, b, d.algorithm)
	if err != nil {
		return 0
	}
	return clamp(float64(s))
}
