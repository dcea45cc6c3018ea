// Package analysis post-processes the energy history and velocities of a
// run.
//
//   - [PowerSpectrum]: power spectrum of an energy series
//   - [FitDrift]: linear drift of a conserved quantity
//   - [Autocorrelation] and [BlockError]: correlation time and the error
//     of a time average
//   - [SpeedDistribution]: speed histogram against the Maxwell-Boltzmann
//     density
//
// # Energy Conservation
//
// Without couplings the total energy should not drift:
//
//	fit := analysis.FitDrift(series.Times, etot)
//	if math.Abs(fit.Slope) > tol {
//	    // time step too large or forces not conservative
//	}
package analysis
