package train

import (
	"errors"
	"fmt"
)

// ErrNumericalInstability is matched by every NumericalInstabilityError.
var ErrNumericalInstability = errors.New("numerical instability")

// NumericalInstabilityError reports a NaN or ±Inf produced during a step.
type NumericalInstabilityError struct {
	Stage  string
	SeqLen int
	Value  float64
}

func (e *NumericalInstabilityError) Error() string {
	return fmt.Sprintf("numerical instability in %s (sequence length %d, value %v)", e.Stage, e.SeqLen, e.Value)
}

func (e *NumericalInstabilityError) Unwrap() error { return ErrNumericalInstability }

// StepError wraps a failed training step together with the shapes the model
// produces for the offending input.
type StepError struct {
	SeqLen    int
	DistShape []int
	PredShape []int
	Err       error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("training step failed (input len %d, distribution shape %v, prediction shape %v): %v",
		e.SeqLen, e.DistShape, e.PredShape, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
