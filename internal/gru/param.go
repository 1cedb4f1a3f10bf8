package gru

import "github.com/samcharles93/gruwiki/internal/tensor"

// Param is a learnable array together with its gradient and momentum buffer.
// All three share the same shape.
type Param struct {
	Name     string
	Value    tensor.Mat
	Grad     tensor.Mat
	Velocity tensor.Mat
}

func newParam(name string, value tensor.Mat) *Param {
	return &Param{
		Name:     name,
		Value:    value,
		Grad:     tensor.NewMat(value.R, value.C),
		Velocity: tensor.NewMat(value.R, value.C),
	}
}

func zeroParam(name string, r, c int) *Param {
	return newParam(name, tensor.NewMat(r, c))
}
