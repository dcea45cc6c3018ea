// Package physics provides the force providers consulted before each
// update step.
//
// Every provider fills the force array, returns the energy terms it
// contributes, its virial -0.5*sum x⊗f and, for pair interactions, the
// energy of every energy-group pair:
//
//   - [None]: no interactions (free particles)
//   - [Restraint]: harmonic position restraints to reference positions
//   - [LennardJones]: cut-off Lennard-Jones and Coulomb pair interactions
//
// Providers can be combined with [Sum]. Forces are computed on positions
// in which molecules are whole, so pair distances use the minimum image.
//
// # Energy Conservation
//
// Total energy is the sum of the Potential term and the kinetic energy of
// the step; its drift over a run measures integration error:
//
//	res, err := lj.Forces(x, box, f)
//	epot := res.Energy[recorder.TermPotential]
package physics
