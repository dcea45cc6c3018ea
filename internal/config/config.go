package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/mdsim/internal/groups"
	"github.com/san-kum/mdsim/internal/integrators"
)

const (
	DefaultDt          = 0.002
	DefaultSteps       = 1000
	DefaultNstEnergy   = 10
	DefaultNstLog      = 100
	DefaultParticles   = 125
	DefaultMass        = 39.948
	DefaultSpacing     = 0.38
	DefaultTemperature = 120.0
	DefaultTauT        = 0.1
	DefaultTauP        = 1.0
	DefaultCompress    = 4.5e-5
	DefaultEpsilon     = 0.996
	DefaultSigma       = 0.34
	DefaultCutoff      = 0.8
	DefaultFriction    = 1.0
	DefaultKp          = 0.5
	DefaultKi          = 0.1
	DefaultKd          = 0.0
)

// Config is a run description. Fields left out of a YAML file keep the
// values of DefaultConfig.
type Config struct {
	System     string `yaml:"system"`
	Integrator string `yaml:"integrator"`
	Forces     string `yaml:"forces"`
	Thermostat string `yaml:"thermostat"`
	Barostat   string `yaml:"barostat"`

	Dt            float64 `yaml:"dt"`
	Steps         int     `yaml:"steps"`
	NstEnergy     int     `yaml:"nstenergy"`
	NstLog        int     `yaml:"nstlog"`
	Ranges        int     `yaml:"ranges"`
	Seed          uint64  `yaml:"seed"`
	Lambda        float64 `yaml:"lambda"`
	TYZ           bool    `yaml:"tyz"`
	ShakeFirst    bool    `yaml:"shake_first"`
	ValidateState bool    `yaml:"validate_state"`

	Particles   ParticlesConfig   `yaml:"particles"`
	LJ          LJConfig          `yaml:"lj"`
	Langevin    LangevinConfig    `yaml:"langevin"`
	Coupling    CouplingConfig    `yaml:"coupling"`
	Constraints ConstraintsConfig `yaml:"constraints"`
	Restraint   RestraintConfig   `yaml:"restraint"`
	Groups      GroupsConfig      `yaml:"groups"`
	Output      OutputConfig      `yaml:"output"`
}

type ParticlesConfig struct {
	Count int `yaml:"count"`
	Mass  float64 `yaml:"mass"`
	// MassB is the mass of the B state; zero means unperturbed.
	MassB       float64 `yaml:"mass_b"`
	Spacing     float64 `yaml:"spacing"`
	Temperature float64 `yaml:"temperature"`
	Charge      float64 `yaml:"charge"`
}

type LJConfig struct {
	Epsilon  float64 `yaml:"epsilon"`
	Sigma    float64 `yaml:"sigma"`
	Cutoff   float64 `yaml:"cutoff"`
	Coulomb  bool    `yaml:"coulomb"`
	DispCorr bool    `yaml:"dispcorr"`
}

type LangevinConfig struct {
	Temperature float64 `yaml:"temperature"`
	Friction    float64 `yaml:"friction"`
}

type CouplingConfig struct {
	RefT            float64 `yaml:"ref_t"`
	TauT            float64 `yaml:"tau_t"`
	RefP            float64 `yaml:"ref_p"`
	TauP            float64 `yaml:"tau_p"`
	Compressibility float64 `yaml:"compressibility"`
	Isotropic       bool    `yaml:"isotropic"`
	Kp              float64 `yaml:"kp"`
	Ki              float64 `yaml:"ki"`
	Kd              float64 `yaml:"kd"`
}

type ConstraintsConfig struct {
	BondLength  float64 `yaml:"bond_length"`
	Tolerance   float64 `yaml:"tolerance"`
	MaxIter     int     `yaml:"max_iter"`
	ShakeVirial bool    `yaml:"shake_virial"`
}

type RestraintConfig struct {
	K float64 `yaml:"k"`
	// Every restrains one particle in Every; 0 restrains none.
	Every int `yaml:"every"`
}

type FreezeGroupConfig struct {
	Name string `yaml:"name"`
	Dims string `yaml:"dims"`
	// Every puts one particle in Every into this group.
	Every int `yaml:"every"`
}

type AccGroupConfig struct {
	Name  string     `yaml:"name"`
	Accel [3]float64 `yaml:"accel"`
}

type GroupsConfig struct {
	Freeze       []FreezeGroupConfig `yaml:"freeze"`
	Acceleration []AccGroupConfig    `yaml:"acceleration"`
	Thermostat   []string            `yaml:"thermostat"`
	Energy       []string            `yaml:"energy"`
}

type OutputConfig struct {
	Dir        string `yaml:"dir"`
	Sink       string `yaml:"sink"`
	Checkpoint string `yaml:"checkpoint"`
	PrintMode  string `yaml:"print_mode"`
	Compact    bool   `yaml:"compact"`
}

func DefaultConfig() *Config {
	return &Config{
		System:     "lattice",
		Integrator: "md",
		Forces:     "lj",
		Thermostat: "berendsen",
		Barostat:   "none",
		Dt:         DefaultDt,
		Steps:      DefaultSteps,
		NstEnergy:  DefaultNstEnergy,
		NstLog:     DefaultNstLog,
		Ranges:     1,
		Seed:       1993,
		Particles: ParticlesConfig{
			Count:       DefaultParticles,
			Mass:        DefaultMass,
			Spacing:     DefaultSpacing,
			Temperature: DefaultTemperature,
		},
		LJ: LJConfig{
			Epsilon: DefaultEpsilon,
			Sigma:   DefaultSigma,
			Cutoff:  DefaultCutoff,
		},
		Langevin: LangevinConfig{
			Temperature: DefaultTemperature,
			Friction:    DefaultFriction,
		},
		Coupling: CouplingConfig{
			RefT:            DefaultTemperature,
			TauT:            DefaultTauT,
			RefP:            1.0,
			TauP:            DefaultTauP,
			Compressibility: DefaultCompress,
			Isotropic:       true,
			Kp:              DefaultKp,
			Ki:              DefaultKi,
			Kd:              DefaultKd,
		},
		Constraints: ConstraintsConfig{
			Tolerance: 1e-6,
			MaxIter:   500,
		},
		Output: OutputConfig{
			Dir:       "runs",
			Sink:      "csv",
			PrintMode: "average",
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Check(); err != nil {
		return nil, fmt.Errorf("check %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Check returns an error if a field doesn't meet the requirements of a
// run. It is called by Load; configs built by hand should call it before
// use.
func (c *Config) Check() error {
	if _, err := integrators.ParseMode(c.Integrator); err != nil {
		return err
	}
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", c.Dt)
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps cannot be negative")
	}
	if c.NstEnergy < 0 || c.NstLog < 0 {
		return fmt.Errorf("nstenergy and nstlog cannot be negative")
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("lambda must be within [0,1], got %g", c.Lambda)
	}
	if c.Particles.Count <= 0 {
		return fmt.Errorf("particle count must be positive")
	}
	if c.Particles.Mass <= 0 {
		return fmt.Errorf("particle mass must be positive")
	}
	if c.Particles.Spacing <= 0 {
		return fmt.Errorf("lattice spacing must be positive")
	}

	switch c.Forces {
	case "none", "restraint":
	case "lj", "lj+restraint":
		if c.LJ.Cutoff <= 0 || c.LJ.Sigma <= 0 || c.LJ.Epsilon < 0 {
			return fmt.Errorf("lj parameters must be positive")
		}
	default:
		return fmt.Errorf("unknown forces %q", c.Forces)
	}

	switch c.Thermostat {
	case "", "none", "berendsen", "pid":
	default:
		return fmt.Errorf("unknown thermostat %q", c.Thermostat)
	}
	switch c.Barostat {
	case "", "none":
	case "berendsen":
		if c.Coupling.TauP <= 0 || c.Coupling.Compressibility <= 0 {
			return fmt.Errorf("berendsen barostat needs positive tau_p and compressibility")
		}
	default:
		return fmt.Errorf("unknown barostat %q", c.Barostat)
	}

	if mode, _ := integrators.ParseMode(c.Integrator); mode == integrators.ModeSD {
		if c.Langevin.Friction <= 0 {
			return fmt.Errorf("langevin friction must be positive")
		}
	}

	for _, fg := range c.Groups.Freeze {
		if _, err := groups.ParseFreeze(fg.Dims); err != nil {
			return fmt.Errorf("freeze group %q: %w", fg.Name, err)
		}
		if fg.Every <= 0 {
			return fmt.Errorf("freeze group %q: every must be positive", fg.Name)
		}
	}

	switch c.Output.Sink {
	case "", "none", "csv", "sqlite":
	default:
		return fmt.Errorf("unknown sink %q", c.Output.Sink)
	}
	return nil
}
