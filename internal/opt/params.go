package opt

import (
	"fmt"
	"math"
)

// Params are the caller-supplied knobs of a Solve call.
type Params struct {
	Iterations int     `json:"iterations" yaml:"iterations"`
	Alpha      float64 `json:"alpha" yaml:"alpha"`
	Beta       float64 `json:"beta" yaml:"beta"`
	DecayRate  float64 `json:"decayRate" yaml:"decay_rate"`
}

// DefaultParams are used by callers that do not override anything.
func DefaultParams() Params {
	return Params{Iterations: 50, Alpha: 1, Beta: 1, DecayRate: 0.1}
}

// Validate rejects parameters the loop cannot run with.
func (p Params) Validate() error {
	if p.Iterations < 1 {
		return fmt.Errorf("%w: iterations must be >= 1, got %d", ErrInvalidParameter, p.Iterations)
	}
	if !(p.DecayRate > 0 && p.DecayRate < 1) {
		return fmt.Errorf("%w: decay rate must be in (0,1), got %v", ErrInvalidParameter, p.DecayRate)
	}
	if math.IsNaN(p.Alpha) || math.IsInf(p.Alpha, 0) {
		return fmt.Errorf("%w: alpha must be finite, got %v", ErrInvalidParameter, p.Alpha)
	}
	if math.IsNaN(p.Beta) || math.IsInf(p.Beta, 0) {
		return fmt.Errorf("%w: beta must be finite, got %v", ErrInvalidParameter, p.Beta)
	}
	return nil
}
