// Package learning implements the Adam optimizer and the cross-entropy loss
// used to train feedforward networks.
package learning

import "fmt"
import "math"

// HyperParameters configure Adam.
type HyperParameters struct {
	LearningRate float64 // step size (default: 0.001)
	Beta1        float64 // first moment decay (default: 0.9)
	Beta2        float64 // second moment decay (default: 0.999)
	Epsilon      float64 // denominator term (default: 1e-8)
	WeightDecay  float64 // L2 penalty added to the gradient (default: 0)
}

// DefaultHyperParameters returns the Adam defaults with the given learning rate.
func DefaultHyperParameters(lr float64) HyperParameters {
	return HyperParameters{
		LearningRate: lr,
		Beta1:        0.9,
		Beta2:        0.999,
		Epsilon:      1e-8,
	}
}

// Validate checks that the hyperparameters describe a usable optimizer.
func (h HyperParameters) Validate() error {
	if !(h.LearningRate > 0) || math.IsInf(h.LearningRate, 0) {
		return fmt.Errorf("learning rate %v must be positive", h.LearningRate)
	}
	if h.Beta1 < 0 || h.Beta1 >= 1 {
		return fmt.Errorf("beta1 %v must be in [0, 1)", h.Beta1)
	}
	if h.Beta2 < 0 || h.Beta2 >= 1 {
		return fmt.Errorf("beta2 %v must be in [0, 1)", h.Beta2)
	}
	if !(h.Epsilon > 0) {
		return fmt.Errorf("epsilon %v must be positive", h.Epsilon)
	}
	if h.WeightDecay < 0 {
		return fmt.Errorf("weight decay %v must not be negative", h.WeightDecay)
	}
	return nil
}
