package quant

import "errors"

// Domain errors for quantum object algebra.
var (
	// ErrDimensionMismatch indicates operand dims incompatible for the
	// requested operation.
	ErrDimensionMismatch = errors.New("quant: dimension mismatch")

	// ErrNotSquare indicates an operation that requires a square operator
	// was given a non-square one.
	ErrNotSquare = errors.New("quant: operator is not square")

	// ErrBadShape indicates data whose length disagrees with the declared
	// dims, or empty dims.
	ErrBadShape = errors.New("quant: data shape disagrees with dims")

	// ErrBadSubsystem indicates a subsystem index outside the composite
	// space's decomposition.
	ErrBadSubsystem = errors.New("quant: subsystem index out of range")
)
