package gru

import (
	"fmt"
	"math"
	"strings"

	"github.com/samcharles93/gruwiki/internal/tensor"
)

// Activation is the nonlinearity applied to the candidate state.
// Deriv receives both the pre-activation and the activated value so each
// function can use whichever form is cheaper.
type Activation struct {
	Name  string
	F     func(pre float64) float64
	Deriv func(pre, out float64) float64
}

var (
	ReLU = Activation{
		Name: "relu",
		F: func(pre float64) float64 {
			return max(pre, 0)
		},
		Deriv: func(pre, _ float64) float64 {
			if pre > 0 {
				return 1
			}
			return 0
		},
	}
	Tanh = Activation{
		Name:  "tanh",
		F:     math.Tanh,
		Deriv: func(_, out float64) float64 { return 1 - out*out },
	}
	Sigmoid = Activation{
		Name:  "sigmoid",
		F:     tensor.Sigmoid,
		Deriv: func(_, out float64) float64 { return out * (1 - out) },
	}
)

// ActivationByName resolves a configured activation name. The empty string
// selects ReLU.
func ActivationByName(name string) (Activation, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "relu":
		return ReLU, nil
	case "tanh":
		return Tanh, nil
	case "sigmoid":
		return Sigmoid, nil
	default:
		return Activation{}, fmt.Errorf("unknown activation %q (want relu, tanh or sigmoid)", name)
	}
}
