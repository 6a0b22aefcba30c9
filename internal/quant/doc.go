// Package quant provides the quantum object algebra underlying the solvers.
//
// The package defines the fundamental types for states and operators over
// composite Hilbert spaces:
//
//   - [Qobj]: immutable matrix tagged with subsystem dims and algebraic kind
//   - [Tensor], [PartialTrace], [Permute]: composite space algebra
//   - [SPre], [SPost], [Liouvillian], [Vectorize]: superoperator lining
//   - [SigmaX], [Destroy], [Basis], ...: standard operator factories
//
// Storage is dense or compressed sparse row, chosen once at construction by
// a density heuristic; both representations satisfy the same capability
// interface, so algebraic results do not depend on the representation beyond
// floating-point rounding.
//
// # Thread Safety
//
// Qobj instances are immutable and safe to share across goroutines; the
// hermiticity cache is updated atomically and idempotently.
package quant
