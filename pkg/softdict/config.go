package softdict

import (
	"fmt"
	"runtime"
)

// BoundMerge selects how upper bounds are combined when several query tokens
// reach the same stored token.
type BoundMerge string

const (
	// MergeSum adds the bounds. It is the only mode whose bound still holds
	// when two query tokens soft-match one stored token.
	MergeSum BoundMerge = "sum"
	// MergeMax keeps the largest bound.
	MergeMax BoundMerge = "max"
	// MergeOverwrite keeps the bound computed last. Results may miss entries
	// that SlowLookup returns.
	MergeOverwrite BoundMerge = "overwrite"
)

func (m BoundMerge) valid() bool {
	switch m {
	case MergeSum, MergeMax, MergeOverwrite:
		return true
	}
	return false
}

// Config holds the tunables of a dictionary.
type Config struct {
	// MinTokenSimilarity is the least token similarity at which two distinct
	// tokens may stand in for each other.
	MinTokenSimilarity float64 `yaml:"minTokenSimilarity"`
	// WindowSize is how many lexicographic neighbours on each side of a token
	// are compared when looking for near-duplicates.
	WindowSize int `yaml:"windowSize"`
	// MaxInvertedIndexSize skips postings lists of this size or larger during
	// pruning. Zero means unlimited.
	MaxInvertedIndexSize int        `yaml:"maxInvertedIndexSize"`
	BoundMerge           BoundMerge `yaml:"boundMerge"`
	// FreezeWorkers bounds the goroutines of the near-duplicate pass. Zero
	// uses GOMAXPROCS.
	FreezeWorkers int `yaml:"freezeWorkers"`
}

func DefaultConfig() Config {
	return Config{
		MinTokenSimilarity:   0.9,
		WindowSize:           100,
		MaxInvertedIndexSize: 0,
		BoundMerge:           MergeSum,
		FreezeWorkers:        0,
	}
}

// Validate rejects settings the index cannot work with.
func (c Config) Validate() error {
	if c.MinTokenSimilarity < 0 || c.MinTokenSimilarity > 1 {
		return fmt.Errorf("min token similarity %v outside [0,1]", c.MinTokenSimilarity)
	}
	if c.WindowSize < 0 {
		return fmt.Errorf("negative window size %d", c.WindowSize)
	}
	if c.MaxInvertedIndexSize < 0 {
		return fmt.Errorf("negative max inverted index size %d", c.MaxInvertedIndexSize)
	}
	if !c.BoundMerge.valid() {
		return fmt.Errorf("unknown bound merge %q", c.BoundMerge)
	}
	if c.FreezeWorkers < 0 {
		return fmt.Errorf("negative freeze workers %d", c.FreezeWorkers)
	}
	return nil
}

func (c Config) workers() int {
	if c.FreezeWorkers > 0 {
		return c.FreezeWorkers
	}
	return runtime.GOMAXPROCS(0)
}
