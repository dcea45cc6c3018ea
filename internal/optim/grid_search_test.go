package optim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mdsim/internal/config"
	"github.com/san-kum/mdsim/internal/experiment"
)

func small() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Particles.Count = 27
	cfg.LJ.Cutoff = 0.55
	cfg.Steps = 10
	cfg.NstEnergy = 5
	return cfg
}

func TestParseRange(t *testing.T) {
	name, vals, err := ParseRange("dt=0.001, 0.002,0.004")
	require.NoError(t, err)
	assert.Equal(t, "dt", name)
	assert.Equal(t, []float64{0.001, 0.002, 0.004}, vals)

	_, _, err = ParseRange("dt")
	assert.Error(t, err)
	_, _, err = ParseRange("mass=1")
	assert.Error(t, err)
	_, _, err = ParseRange("dt=fast")
	assert.Error(t, err)
}

func TestGridSearch(t *testing.T) {
	g := NewGridSearch([]string{"dt", "tau_t"}, [][]float64{{0.001, 0.002}, {0.1, 0.5}})
	build := func(cfg *config.Config) *experiment.Experiment { return experiment.New(cfg) }

	points, best, err := g.Search(context.Background(), small(), build, "energy_drift")
	require.NoError(t, err)
	require.Len(t, points, 4)
	require.GreaterOrEqual(t, best, 0)

	assert.Equal(t, map[string]float64{"dt": 0.001, "tau_t": 0.1}, points[0].Params)
	assert.Equal(t, map[string]float64{"dt": 0.002, "tau_t": 0.5}, points[3].Params)
	for _, p := range points {
		require.NoError(t, p.Err)
		assert.LessOrEqual(t, points[best].Value, p.Value)
	}
}

func TestGridSearch_InvalidPoint(t *testing.T) {
	g := NewGridSearch([]string{"dt"}, [][]float64{{-1, 0.002}})
	build := func(cfg *config.Config) *experiment.Experiment { return experiment.New(cfg) }

	points, best, err := g.Search(context.Background(), small(), build, "energy")
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Error(t, points[0].Err)
	assert.Equal(t, 1, best)
}

func TestGridSearch_UnknownParameter(t *testing.T) {
	g := NewGridSearch([]string{"mass"}, [][]float64{{1}})
	_, best, err := g.Search(context.Background(), small(), nil, "energy")
	assert.Error(t, err)
	assert.Equal(t, -1, best)
}

func TestGridSearch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGridSearch([]string{"dt"}, [][]float64{{0.001}})
	_, _, err := g.Search(ctx, small(), func(cfg *config.Config) *experiment.Experiment { return experiment.New(cfg) }, "energy")
	assert.ErrorIs(t, err, context.Canceled)
}
