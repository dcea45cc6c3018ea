// Package dynamo provides the core primitives of the molecular dynamics
// update step.
//
// The package defines the value types and invariants shared by every stage
// of a step:
//
//   - [Vec3] and [Tensor]: three dimensional vectors and 3x3 tensors
//   - [Atoms]: per-particle masses, particle types and group memberships
//   - [Range]: a contiguous block of particle indices owned by one worker
//   - [StepError]: a fatal error annotated with the step it occurred in
//
// # Ranges
//
// Per-particle loops are written against a [Range] so that they can be run
// over disjoint index blocks. [ParallelFor] executes one callback per range
// and returns the first error:
//
//	ranges := dynamo.Split(atoms.Len(), 4)
//	err := dynamo.ParallelFor(ranges, true, func(i int, r dynamo.Range) error {
//	    return integ.Update(r, in)
//	})
//
// Group level sums are never written from inside a range callback; each
// range fills its own partial buffer and the caller reduces them after
// ParallelFor returns.
package dynamo
