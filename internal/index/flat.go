// Package index provides an exact nearest-neighbor index over squared L2 distance.
package index

import (
	"fmt"
	"sort"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// Neighbor is a single search hit: the insertion position of the vector and its
// squared L2 distance to the query.
type Neighbor struct {
	Position int
	Distance float64
}

// Flat is a brute-force index. It is built once per matching operation and is not
// safe for concurrent Build calls.
type Flat struct {
	dim     int
	vectors [][]float32
}

// New creates an empty index for vectors of length dim.
func New(dim int) (*Flat, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d: %w", dim, domain.ErrConfiguration)
	}
	return &Flat{dim: dim}, nil
}

// Dim returns the configured vector dimension.
func (f *Flat) Dim() int { return f.dim }

// Len returns the number of indexed vectors.
func (f *Flat) Len() int { return len(f.vectors) }

// Build replaces the index contents with vectors. On a dimension mismatch the
// index is left empty.
func (f *Flat) Build(vectors [][]float32) error {
	f.vectors = nil
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d has length %d, index expects %d: %w",
				i, len(v), f.dim, domain.ErrDimensionMismatch)
		}
	}

	stored := make([][]float32, len(vectors))
	for i, v := range vectors {
		stored[i] = append([]float32(nil), v...)
	}
	f.vectors = stored
	return nil
}

// Search returns up to k nearest vectors to target by ascending distance.
// Equal distances keep insertion order.
func (f *Flat) Search(target []float32, k int) ([]Neighbor, error) {
	if len(target) != f.dim {
		return nil, fmt.Errorf("query has length %d, index expects %d: %w",
			len(target), f.dim, domain.ErrDimensionMismatch)
	}
	if k <= 0 || len(f.vectors) == 0 {
		return nil, nil
	}

	hits := make([]Neighbor, len(f.vectors))
	for i, v := range f.vectors {
		hits[i] = Neighbor{Position: i, Distance: SquaredL2(target, v)}
	}

	sort.SliceStable(hits, func(a, b int) bool {
		return hits[a].Distance < hits[b].Distance
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// SquaredL2 returns the squared Euclidean distance between equal-length vectors,
// accumulated in float64.
func SquaredL2(a, b []float32) float64 {
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return sum
}
