package match

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/lostmatch/internal/domain"
)

// Scorer maps a squared L2 distance to a similarity in (0,1]. Implementations must
// be strictly decreasing in distance and return 1 exactly at distance 0.
type Scorer interface {
	Score(distance float64) float64
}

// ScorerFunc adapts a function to Scorer.
type ScorerFunc func(distance float64) float64

// Score implements Scorer.
func (f ScorerFunc) Score(distance float64) float64 { return f(distance) }

// Scorer names accepted in configuration.
const (
	ScorerInverseDistance = "inverse_distance"
	ScorerExponential     = "exponential"
)

// InverseDistance scores 1/(1+d). It is the default.
var InverseDistance = ScorerFunc(func(d float64) float64 { return 1 / (1 + d) })

// Exponential scores exp(-d).
var Exponential = ScorerFunc(func(d float64) float64 { return math.Exp(-d) })

// ScorerByName returns the named scorer; "" selects the default.
func ScorerByName(name string) (Scorer, error) {
	switch name {
	case "", ScorerInverseDistance:
		return InverseDistance, nil
	case ScorerExponential:
		return Exponential, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q: %w", name, domain.ErrConfiguration)
	}
}
