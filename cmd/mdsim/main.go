package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/mdsim/internal/analysis"
	"github.com/san-kum/mdsim/internal/config"
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/experiment"
	"github.com/san-kum/mdsim/internal/optim"
	"github.com/san-kum/mdsim/internal/recorder"
	"github.com/san-kum/mdsim/internal/sim"
	"github.com/san-kum/mdsim/internal/storage"
	"github.com/san-kum/mdsim/internal/viz"
)

var (
	dataDir    string
	verbose    bool
	configFile string
	preset     string
	steps      int
	dt         float64
	seed       uint64
	integrator string
	thermostat string
	sinkKind   string
	live       bool
	liveEvery  int
	replicas   int
	resume     string
	column     string
	width      int
	height     int
	outFile    string
	svgFile    string
	scanRanges []string
	metricName string
)

var systemInfo = map[string]string{
	"lattice": "atoms on a cubic lattice",
	"dimers":  "rigid diatomics kept whole across the box",
	"wall":    "fluid against frozen wall particles",
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "mdsim",
		Short:        "constrained molecular dynamics",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".mdsim", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging")

	runCmd := &cobra.Command{
		Use:   "run [system]",
		Short: "run a simulation",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	runCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	runCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	runCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "number of steps")
	runCmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "time step (ps)")
	runCmd.Flags().Uint64Var(&seed, "seed", 0, "random seed (0 keeps the config seed)")
	runCmd.Flags().StringVar(&integrator, "integrator", "", "md or sd")
	runCmd.Flags().StringVar(&thermostat, "thermostat", "", "none, berendsen or pid")
	runCmd.Flags().StringVar(&sinkKind, "sink", "", "energy sink: csv, sqlite or none")
	runCmd.Flags().BoolVar(&live, "live", false, "show the run in the terminal")
	runCmd.Flags().IntVar(&liveEvery, "every", 5, "steps between live frames")
	runCmd.Flags().IntVar(&replicas, "replicas", 1, "independent replicas with consecutive seeds")
	runCmd.Flags().StringVar(&resume, "resume", "", "continue from the checkpoint of a run")

	pickCmd := &cobra.Command{
		Use:   "pick",
		Short: "choose a preset and run it live",
		RunE:  pickRun,
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [system]",
		Short: "list presets",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listPresets,
	}

	configCmd := &cobra.Command{
		Use:   "config [system] [preset]",
		Short: "print a configuration as yaml",
		Args:  cobra.RangeArgs(0, 2),
		RunE:  showConfig,
	}
	configCmd.Flags().StringVarP(&outFile, "out", "o", "", "write to file")

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded column",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVarP(&column, "column", "c", "Total Energy", "column to plot")
	plotCmd.Flags().IntVar(&width, "width", 70, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 15, "plot height")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the plot as svg")

	snapshotCmd := &cobra.Command{
		Use:   "snapshot [run_id]",
		Short: "render the checkpointed positions of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  snapshotRun,
	}
	snapshotCmd.Flags().StringVar(&svgFile, "svg", "", "write svg instead of printing")

	scanCmd := &cobra.Command{
		Use:   "scan [system]",
		Short: "grid search run parameters for the lowest metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  scanRun,
	}
	scanCmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	scanCmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	scanCmd.Flags().IntVar(&steps, "steps", config.DefaultSteps, "steps per point")
	scanCmd.Flags().StringArrayVarP(&scanRanges, "range", "r", nil, "name=v1,v2,... (repeatable)")
	scanCmd.Flags().StringVarP(&metricName, "metric", "m", "energy_drift", "metric to minimise")
	scanCmd.MarkFlagRequired("range")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "drift, spectrum and error of a recorded column",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVarP(&column, "column", "c", "Total Energy", "column to analyze")

	exportCmd := &cobra.Command{
		Use:   "export-json [run_id] [columns...]",
		Short: "export a run as json",
		Args:  cobra.MinimumNArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outFile, "out", "o", "", "write to file")

	rootCmd.AddCommand(runCmd, pickCmd, scanCmd, listCmd, presetsCmd, configCmd, plotCmd, snapshotCmd, analyzeCmd, exportCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.SugaredLogger, error) {
	var (
		l   *zap.Logger
		err error
	)
	if verbose {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return l.Sugar(), nil
}

// loadConfig starts from the defaults, a preset or a file, in that order
// of precedence, and applies the flags that were set.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	system := "lattice"
	if len(args) > 0 {
		system = args[0]
	}

	cfg := config.DefaultConfig()
	cfg.System = system
	if preset != "" {
		cfg = config.GetPreset(system, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(system))
		}
	}
	if configFile != "" {
		var err error
		if cfg, err = config.Load(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("steps") {
		cfg.Steps = steps
	}
	if flags.Changed("dt") {
		cfg.Dt = dt
	}
	if flags.Changed("seed") && seed != 0 {
		cfg.Seed = seed
	}
	if integrator != "" {
		cfg.Integrator = integrator
	}
	if thermostat != "" {
		cfg.Thermostat = thermostat
	}
	if sinkKind != "" {
		cfg.Output.Sink = sinkKind
	}
	return cfg, cfg.Check()
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	return execute(cmd.Context(), cfg)
}

func execute(parent context.Context, cfg *config.Config) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}
	meta := &storage.RunMetadata{
		System:     cfg.System,
		Preset:     preset,
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Steps:      cfg.Steps,
		Particles:  cfg.Particles.Count,
		Integrator: cfg.Integrator,
		Forces:     cfg.Forces,
		Thermostat: cfg.Thermostat,
		Barostat:   cfg.Barostat,
		Sink:       cfg.Output.Sink,
		Replicas:   replicas,
	}
	if err := st.Create(meta); err != nil {
		return err
	}
	if err := config.Save(filepath.Join(st.RunDir(meta.ID), "config.yaml"), cfg); err != nil {
		return err
	}
	log = log.With("run", meta.ID)

	ctx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	if replicas > 1 {
		return runEnsemble(ctx, st, meta, cfg, log)
	}

	sink, err := st.OpenSink(meta.ID, cfg.Output.Sink)
	if err != nil {
		return err
	}
	if sink != nil {
		defer sink.Close()
	}

	exp := experiment.New(cfg, experiment.WithLogger(log), experiment.WithSink(sink))
	if err := exp.Setup(); err != nil {
		return err
	}
	s := exp.Simulator()

	if resume != "" {
		snap, err := storage.LoadCheckpoint(st.CheckpointPath(resume))
		if err != nil {
			return fmt.Errorf("resume %s: %w", resume, err)
		}
		if err := s.Restore(snap); err != nil {
			return fmt.Errorf("resume %s: %w", resume, err)
		}
		log.Infow("resumed", "from", resume, "step", snap.Step)
	}

	run := func(ctx context.Context, obs sim.Observer) (*sim.Result, error) {
		if obs != nil {
			s.AddObserver(obs)
		}
		return exp.Run(ctx)
	}

	var res *sim.Result
	var runErr error
	if live {
		res, runErr = viz.RunLive(ctx, cfg.System+" "+preset, s.Step()+cfg.Steps, liveEvery, run)
	} else {
		res, runErr = run(ctx, nil)
	}

	// the state of the last committed step survives a failed one
	snap, err := s.Snapshot()
	if err == nil {
		err = storage.SaveCheckpoint(st.CheckpointPath(meta.ID), snap)
	}
	if err != nil {
		log.Errorw("checkpoint failed", "error", err)
	}

	if res != nil {
		meta.StepsTaken = res.StepsTaken
		meta.Metrics = res.Metrics
	}
	var stepErr *dynamo.StepError
	if errors.As(runErr, &stepErr) {
		meta.Error = stepErr.Error()
	} else if runErr != nil && !errors.Is(runErr, context.Canceled) {
		meta.Error = runErr.Error()
	}
	if err := st.SaveMetadata(meta); err != nil {
		return err
	}

	if mode, err := recorder.ParseMode(cfg.Output.PrintMode); err == nil && s.Recorder().Bins().Steps() > 0 {
		if err := s.Recorder().Print(os.Stdout, mode, cfg.Output.Compact, cfg.Lambda); err != nil {
			return err
		}
	}
	fmt.Printf("run %s: %d steps, checkpoint %s\n", meta.ID, meta.StepsTaken, st.CheckpointPath(meta.ID))
	printMetrics(meta.Metrics)

	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

func runEnsemble(ctx context.Context, st *storage.Store, meta *storage.RunMetadata, cfg *config.Config, log *zap.SugaredLogger) error {
	exp := experiment.New(cfg, experiment.WithLogger(log))
	results, runErr := sim.NewEnsemble(exp.Builder(), replicas, cfg.Seed).Run(ctx)

	values := make(map[string][]float64)
	for _, r := range results {
		if r == nil {
			continue
		}
		meta.StepsTaken += r.StepsTaken
		for k, v := range r.Metrics {
			values[k] = append(values[k], v)
		}
	}
	meta.Metrics = make(map[string]float64, len(values))
	for k, vs := range values {
		mean, std := stat.MeanStdDev(vs, nil)
		meta.Metrics[k] = mean
		if len(vs) > 1 {
			meta.Metrics[k+"_std"] = std
		}
	}
	if runErr != nil {
		meta.Error = runErr.Error()
	}
	if err := st.SaveMetadata(meta); err != nil {
		return err
	}
	fmt.Printf("run %s: %d replicas\n", meta.ID, replicas)
	printMetrics(meta.Metrics)
	return runErr
}

func printMetrics(m map[string]float64) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %-20s %.6g\n", k, m[k])
	}
}

func pickRun(cmd *cobra.Command, args []string) error {
	p := viz.NewPicker(config.Systems(), config.ListPresets, func(s string) string { return systemInfo[s] })
	choice, ok, err := viz.Pick(p)
	if err != nil || !ok {
		return err
	}
	preset = choice.Preset
	live = true
	cfg := config.GetPreset(choice.System, choice.Preset)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s/%s", choice.System, choice.Preset)
	}
	return execute(cmd.Context(), cfg)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSYSTEM\tTIME\tSTEPS\tDT\tINTEG\tFORCES\tTHERMO\tSTATUS")
	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.4f\t%s\t%s\t%s\t%s\n",
			run.ID,
			run.System,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.StepsTaken,
			run.Dt,
			run.Integrator,
			run.Forces,
			run.Thermostat,
			status,
		)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	systems := config.Systems()
	if len(args) > 0 {
		systems = args
	}
	for _, s := range systems {
		names := config.ListPresets(s)
		if names == nil {
			return fmt.Errorf("unknown system: %s", s)
		}
		fmt.Printf("%-8s %s\n", s, strings.Join(names, ", "))
	}
	return nil
}

func showConfig(cmd *cobra.Command, args []string) error {
	cfg := config.DefaultConfig()
	if len(args) == 2 {
		if cfg = config.GetPreset(args[0], args[1]); cfg == nil {
			return fmt.Errorf("unknown preset: %s/%s", args[0], args[1])
		}
	} else if len(args) == 1 {
		cfg.System = args[0]
	}
	if outFile != "" {
		return config.Save(outFile, cfg)
	}
	return yaml.NewEncoder(os.Stdout).Encode(cfg)
}

func loadColumn(runID, name string) (*storage.Series, []float64, error) {
	s, err := storage.New(dataDir).LoadEnergies(runID)
	if err != nil {
		return nil, nil, err
	}
	vals, err := s.Column(name)
	if err != nil {
		return nil, nil, fmt.Errorf("%w (columns: %s)", err, strings.Join(s.Columns, ", "))
	}
	return s, vals, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, err := storage.New(dataDir).Load(args[0])
	if err != nil {
		return err
	}
	s, vals, err := loadColumn(args[0], column)
	if err != nil {
		return err
	}
	fmt.Printf("%s (%s, %d samples)\n\n", meta.ID, meta.System, len(vals))
	fmt.Println(viz.Plot(vals, column, width, height))
	if svgFile != "" {
		return os.WriteFile(svgFile, []byte(viz.SeriesSVG(s.Times, vals, width*10, height*20, viz.Themes[0])), 0644)
	}
	return nil
}

func snapshotRun(cmd *cobra.Command, args []string) error {
	snap, err := storage.LoadCheckpoint(storage.New(dataDir).CheckpointPath(args[0]))
	if err != nil {
		return err
	}
	cam := viz.NewCamera()
	if svgFile != "" {
		return os.WriteFile(svgFile, []byte(viz.SnapshotSVG(cam, snap.Box, snap.X, viz.Themes[0])), 0644)
	}
	c := viz.NewCanvas(60, 20)
	viz.RenderBox(c, cam, snap.Box, snap.X)
	fmt.Printf("%s step %d, t = %.3f ps\n%s\n", args[0], snap.Step, snap.Time, c.String())
	return nil
}

func scanRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	var names []string
	var ranges [][]float64
	for _, r := range scanRanges {
		name, vals, err := optim.ParseRange(r)
		if err != nil {
			return err
		}
		names = append(names, name)
		ranges = append(ranges, vals)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	build := func(c *config.Config) *experiment.Experiment {
		return experiment.New(c, experiment.WithLogger(log.With("scan", names)))
	}
	points, best, err := optim.NewGridSearch(names, ranges).Search(ctx, cfg, build, metricName)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.ToUpper(strings.Join(append(names, metricName), "\t")))
	for i, p := range points {
		for _, n := range names {
			fmt.Fprintf(w, "%g\t", p.Params[n])
		}
		switch {
		case p.Err != nil:
			fmt.Fprintf(w, "failed: %v\n", p.Err)
		case i == best:
			fmt.Fprintf(w, "%.6g *\n", p.Value)
		default:
			fmt.Fprintf(w, "%.6g\n", p.Value)
		}
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	s, vals, err := loadColumn(args[0], column)
	if err != nil {
		return err
	}
	if len(vals) < 2 {
		return fmt.Errorf("run %s has %d samples of %s", args[0], len(vals), column)
	}

	mean, std := stat.PopMeanStdDev(vals, nil)
	drift, err := analysis.FitDrift(s.Times, vals)
	if err != nil {
		return err
	}
	interval := s.Times[1] - s.Times[0]
	power := analysis.PowerSpectrum(vals, interval)
	acf := analysis.Autocorrelation(vals, len(vals)/4)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "column\t%s\n", column)
	fmt.Fprintf(w, "samples\t%d\n", len(vals))
	fmt.Fprintf(w, "mean\t%.6g\n", mean)
	fmt.Fprintf(w, "rms fluct.\t%.6g\n", std)
	fmt.Fprintf(w, "error estimate\t%.6g\n", analysis.BlockError(vals))
	fmt.Fprintf(w, "drift\t%.6g /ps (r2 %.3f)\n", drift.Slope, drift.RSquared)
	fmt.Fprintf(w, "correlation time\t%.4g ps\n", analysis.CorrelationTime(acf)*interval)
	fmt.Fprintf(w, "dominant frequency\t%.4g /ps\n", power.Dominant())
	return w.Flush()
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	s, err := st.LoadEnergies(args[0])
	if err != nil {
		return err
	}

	out := os.Stdout
	if outFile != "" {
		f, err := os.Create(outFile)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	return storage.ExportJSON(out, meta, s, args[1:]...)
}
