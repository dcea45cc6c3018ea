package metrics

import (
	"math"

	"github.com/san-kum/mdsim/internal/sim"
)

// ThermostatEffort is the mean |lambda - 1| over thermostat groups and
// steps.
type ThermostatEffort struct {
	name    string
	sum     float64
	samples int
}

func NewThermostatEffort() *ThermostatEffort {
	return &ThermostatEffort{
		name: "thermostat_effort",
	}
}

func (c *ThermostatEffort) Name() string {
	return c.name
}

func (c *ThermostatEffort) Observe(s *sim.StepSample) {
	for _, tc := range s.TC {
		c.sum += math.Abs(tc.Lambda - 1)
		c.samples++
	}
}

func (c *ThermostatEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ThermostatEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// ConstraintDeviation is the largest constraint RMSD seen.
type ConstraintDeviation struct {
	max float64
}

func NewConstraintDeviation() *ConstraintDeviation { return &ConstraintDeviation{} }

func (c *ConstraintDeviation) Name() string { return "constraint_rmsd" }

func (c *ConstraintDeviation) Observe(s *sim.StepSample) {
	c.max = math.Max(c.max, s.ConstraintRMSD)
}

func (c *ConstraintDeviation) Value() float64 { return c.max }

func (c *ConstraintDeviation) Reset() { c.max = 0 }
