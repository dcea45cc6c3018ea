// Package control provides the temperature and pressure coupling
// collaborators that run between update steps.
//
// Thermostats set the Lambda scale factor of each thermostat group from its
// current temperature; the update step only reads it:
//
//   - [None]: no coupling, Lambda stays 1
//   - [Berendsen]: weak coupling to the reference temperature
//   - [PID]: feedback on the temperature error, tunable while running
//
// Barostats rescale the box and the non-frozen coordinates:
//
//   - [BerendsenBarostat]: weak coupling to the reference pressure
//
// # Usage
//
//	th := control.NewBerendsen()
//	th.Couple(g.TC, dt) // after the kinetic energies of the step are known
package control
