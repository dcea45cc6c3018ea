// Package optim scans run parameters for the setting that minimises a
// metric, such as the largest time step that still conserves energy.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/san-kum/mdsim/internal/config"
	"github.com/san-kum/mdsim/internal/experiment"
)

// Setters maps scannable parameter names to the config field they set.
var Setters = map[string]func(*config.Config, float64){
	"dt":       func(c *config.Config, v float64) { c.Dt = v },
	"tau_t":    func(c *config.Config, v float64) { c.Coupling.TauT = v },
	"ref_t":    func(c *config.Config, v float64) { c.Coupling.RefT = v },
	"tau_p":    func(c *config.Config, v float64) { c.Coupling.TauP = v },
	"friction": func(c *config.Config, v float64) { c.Langevin.Friction = v },
	"lambda":   func(c *config.Config, v float64) { c.Lambda = v },
	"kp":       func(c *config.Config, v float64) { c.Coupling.Kp = v },
	"ki":       func(c *config.Config, v float64) { c.Coupling.Ki = v },
}

func Parameters() []string {
	names := make([]string, 0, len(Setters))
	for k := range Setters {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ParseRange reads "name=v1,v2,...".
func ParseRange(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok {
		return "", nil, fmt.Errorf("range %q: want name=v1,v2", s)
	}
	if _, ok := Setters[name]; !ok {
		return "", nil, fmt.Errorf("range %q: unknown parameter (available: %v)", s, Parameters())
	}
	var vals []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("range %q: %w", s, err)
		}
		vals = append(vals, v)
	}
	return name, vals, nil
}

// Point is one evaluated grid point. Err is set when the run could not
// be built or failed; such points never win.
type Point struct {
	Params map[string]float64
	Value  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search runs base with every combination of the grid and returns all
// points in grid order plus the index of the lowest metricName, -1 when
// no point succeeded.
func (g *GridSearch) Search(
	ctx context.Context,
	base *config.Config,
	build func(cfg *config.Config) *experiment.Experiment,
	metricName string,
) ([]Point, int, error) {
	for _, name := range g.paramNames {
		if _, ok := Setters[name]; !ok {
			return nil, -1, fmt.Errorf("unknown parameter: %s", name)
		}
	}

	var points []Point
	if err := g.searchRecursive(ctx, 0, make(map[string]float64), base, build, metricName, &points); err != nil {
		return points, -1, err
	}

	best, bestIdx := math.Inf(1), -1
	for i, p := range points {
		if p.Err == nil && p.Value < best {
			best, bestIdx = p.Value, i
		}
	}
	return points, bestIdx, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	build func(*config.Config) *experiment.Experiment,
	metricName string,
	points *[]Point,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		cfg := *base
		for k, v := range current {
			Setters[k](&cfg, v)
		}
		p := Point{Params: current}
		p.Value, p.Err = evaluate(ctx, build(&cfg), metricName)
		*points = append(*points, p)
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		newParams := make(map[string]float64, len(current)+1)
		for k, v := range current {
			newParams[k] = v
		}
		newParams[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, newParams, base, build, metricName, points); err != nil {
			return err
		}
	}
	return nil
}

func evaluate(ctx context.Context, exp *experiment.Experiment, metricName string) (float64, error) {
	if err := exp.Setup(); err != nil {
		return 0, err
	}
	result, err := exp.Run(ctx)
	if err != nil {
		return 0, err
	}
	val, ok := result.Metrics[metricName]
	if !ok {
		return 0, fmt.Errorf("no metric %q", metricName)
	}
	return val, nil
}
