package config

import "sort"

// Presets maps a system to named variations of DefaultConfig.
var Presets = map[string]map[string]func(*Config){
	"lattice": {
		"argon": func(c *Config) {
			c.Particles.Count = 216
		},
		"hot": func(c *Config) {
			c.Particles.Temperature = 300
			c.Coupling.RefT = 300
		},
		"npt": func(c *Config) {
			c.Barostat = "berendsen"
			c.LJ.DispCorr = true
		},
		"langevin": func(c *Config) {
			c.Integrator = "sd"
			c.Thermostat = "none"
			c.Langevin.Friction = 5
		},
		"fep": func(c *Config) {
			c.Particles.MassB = 2 * DefaultMass
			c.Lambda = 0.5
		},
	},
	"dimers": {
		"nitrogen": func(c *Config) {
			c.System = "dimers"
			c.Particles.Count = 250
			c.Particles.Spacing = 0.45
			c.LJ.Sigma = 0.31
			c.Particles.Mass = 14.007
			c.Constraints.BondLength = 0.11
			c.Constraints.ShakeVirial = true
			c.ShakeFirst = true
		},
		"charged": func(c *Config) {
			c.System = "dimers"
			c.Particles.Count = 250
			c.Particles.Spacing = 0.45
			c.LJ.Sigma = 0.31
			c.Particles.Charge = 0.4
			c.Constraints.BondLength = 0.12
			c.LJ.Coulomb = true
			c.Groups.Energy = []string{"A", "B"}
		},
	},
	"wall": {
		"frozen": func(c *Config) {
			c.System = "wall"
			c.Groups.Freeze = []FreezeGroupConfig{{Name: "wall", Dims: "Y Y Y", Every: 4}}
			c.Groups.Thermostat = []string{"wall", "fluid"}
		},
		"flow": func(c *Config) {
			c.System = "wall"
			c.Groups.Freeze = []FreezeGroupConfig{{Name: "wall", Dims: "Y Y Y", Every: 4}}
			c.Groups.Acceleration = []AccGroupConfig{{Name: "fluid", Accel: [3]float64{0.05, 0, 0}}, {Name: "wall"}}
			c.TYZ = true
		},
		"restrained": func(c *Config) {
			c.System = "wall"
			c.Forces = "lj+restraint"
			c.Restraint = RestraintConfig{K: 1000, Every: 4}
		},
	},
}

// GetPreset returns DefaultConfig with the named preset applied, or nil.
func GetPreset(system, preset string) *Config {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	apply, ok := systemPresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.System = system
	apply(cfg)
	return cfg
}

func ListPresets(system string) []string {
	systemPresets, ok := Presets[system]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(systemPresets))
	for name := range systemPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Systems returns the systems that have presets.
func Systems() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
