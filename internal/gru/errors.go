package gru

import "errors"

var (
	// ErrShape reports dimensions that do not chain or a degenerate sequence.
	ErrShape = errors.New("shape mismatch")
	// ErrTokenRange reports a token index outside the embedding matrix.
	ErrTokenRange = errors.New("token index out of range")
)
