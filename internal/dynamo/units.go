package dynamo

// Physical constants in MD units (nm, ps, amu, kJ/mol, K, bar).
const (
	// Boltz is the Boltzmann constant in kJ/(mol K).
	Boltz = 0.0083144626

	// PresFac converts kJ/(mol nm^3) to bar.
	PresFac = 16.6054

	AMU  = 1.66054e-27
	Nano = 1e-9
	Kilo = 1e3

	// ENM2Debye converts e*nm to Debye.
	ENM2Debye = 48.0321

	// OneFourPiEps0 is the Coulomb constant in kJ nm/(mol e^2).
	OneFourPiEps0 = 138.935485
)
