package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/vortexsim/internal/analysis"
	"github.com/san-kum/vortexsim/internal/automation"
	"github.com/san-kum/vortexsim/internal/config"
	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/experiment"
	"github.com/san-kum/vortexsim/internal/export"
	"github.com/san-kum/vortexsim/internal/landscape"
	"github.com/san-kum/vortexsim/internal/sim"
	"github.com/san-kum/vortexsim/internal/storage"
	"github.com/san-kum/vortexsim/internal/viz"
)

var (
	resultsDir string
	configFile string
	preset     string

	// engine overrides, applied only when the flag is set
	seed          int64
	boxSize       float64
	boundary      string
	density       float64
	pinRadius     float64
	pinStrength   float64
	vortices      int
	repulsion     float64
	cutoff        float64
	temperature   float64
	dt            float64
	equilibration int
	measurement   int
	integrator    string
	topologies    []string
	currents      []float64
	minCurrent    float64
	maxCurrent    float64
	currentCount  int
	ramp          bool
	parallel      bool

	// single run
	topology  string
	current   float64
	trailStep int
	trailKeep int

	// live view
	stepsPerFrame int
	theme         string

	// studies
	studyParam  string
	studyValues []float64
	trials      int
)

func main() {
	log.SetFlags(0)

	rootCmd := &cobra.Command{
		Use:           "vortexsim",
		Short:         "vortex pinning in type-II superconductors",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results", ".vortexsim", "results directory")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep the current on every topology and build V-I curves",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	addEngineFlags(sweepCmd)

	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "run one current and draw the vortex trajectories",
		Args:  cobra.NoArgs,
		RunE:  runSnapshot,
	}
	addEngineFlags(snapshotCmd)
	addRunFlags(snapshotCmd)
	snapshotCmd.Flags().IntVar(&trailStep, "trail-every", 5, "record every n-th step for trails")
	snapshotCmd.Flags().IntVar(&trailKeep, "trail-keep", 200, "recorded frames kept for trails (0 keeps all)")

	landscapeCmd := &cobra.Command{
		Use:   "landscape",
		Short: "draw the pinning landscapes",
		Args:  cobra.NoArgs,
		RunE:  runLandscape,
	}
	addEngineFlags(landscapeCmd)

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run a vortex ensemble with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addEngineFlags(liveCmd)
	addRunFlags(liveCmd)
	liveCmd.Flags().IntVar(&stepsPerFrame, "steps-per-frame", 2, "integrator steps per frame")
	liveCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list configuration presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBOX\tDENSITY\tVORTICES\tPIN\tINTEG\tCURRENTS")
			for _, name := range config.ListPresets() {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%gx%g\t%g\t%d\t%g/%g\t%s\t%s\n",
					name,
					p.Domain.Width, p.Domain.Height,
					p.Pinning.Density,
					p.Vortices,
					p.Pinning.Radius, p.Pinning.Strength,
					p.Integrator,
					describeCurrents(p),
				)
			}
			return w.Flush()
		},
	}

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "run a scripted sequence of sweeps",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	studyCmd := &cobra.Command{
		Use:   "study",
		Short: "repeat the sweep over values of one parameter",
		Args:  cobra.NoArgs,
		RunE:  runStudy,
	}
	addEngineFlags(studyCmd)
	studyCmd.Flags().StringVar(&studyParam, "param", "pin_strength", "parameter to vary ("+strings.Join(config.Tunable, ", ")+")")
	studyCmd.Flags().Float64SliceVar(&studyValues, "values", []float64{0.5, 1, 2, 4}, "parameter values")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "repeat the sweep over seeds and report critical current statistics",
		Args:  cobra.NoArgs,
		RunE:  runEnsemble,
	}
	addEngineFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&trials, "trials", 5, "number of seeds")

	rootCmd.AddCommand(sweepCmd, snapshotCmd, landscapeCmd, liveCmd, listCmd, showCmd, presetsCmd, batchCmd, studyCmd, ensembleCmd)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, dynamo.ErrDiverged) {
			log.Fatalf("%v\nthe integration blew up; try a smaller --dt or a softer repulsion", err)
		}
		log.Fatal(err)
	}
}

func addEngineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration ("+strings.Join(config.ListPresets(), ", ")+")")
	f.Int64Var(&seed, "seed", 0, "random seed (0 derives one from the clock)")
	f.Float64Var(&boxSize, "box", config.DefaultBoxSize, "square domain side")
	f.StringVar(&boundary, "boundary", "periodic", "boundary condition (periodic, reflective)")
	f.Float64Var(&density, "density", config.DefaultDensity, "pinning sites per unit area")
	f.Float64Var(&pinRadius, "pin-radius", config.DefaultPinRadius, "pinning site radius")
	f.Float64Var(&pinStrength, "pin-strength", config.DefaultPinStrength, "pinning force at the rim")
	f.IntVar(&vortices, "vortices", config.DefaultVortices, "number of vortices")
	f.Float64Var(&repulsion, "repulsion", 1.0, "vortex-vortex repulsion strength")
	f.Float64Var(&cutoff, "cutoff", 0, "repulsion cutoff radius (0 for all pairs)")
	f.Float64Var(&temperature, "temperature", 0, "thermal noise temperature")
	f.Float64Var(&dt, "dt", config.DefaultDt, "timestep")
	f.IntVar(&equilibration, "equilibration", config.DefaultEquilibration, "equilibration steps per current")
	f.IntVar(&measurement, "measurement", config.DefaultMeasurement, "measurement steps per current")
	reg := experiment.NewRegistry()
	f.StringVar(&integrator, "integrator", "euler", "integrator ("+strings.Join(reg.ListIntegrators(), ", ")+")")
	f.StringSliceVar(&topologies, "topologies", nil, "topologies to sweep ("+strings.Join(reg.ListTopologies(), ", ")+")")
	f.Float64SliceVar(&currents, "currents", nil, "explicit current sequence")
	f.Float64Var(&minCurrent, "min-current", 0, "lowest current of the sweep")
	f.Float64Var(&maxCurrent, "max-current", config.DefaultMaxCurrent, "highest current of the sweep")
	f.IntVar(&currentCount, "count", config.DefaultCurrentCount, "number of currents in the sweep")
	f.BoolVar(&ramp, "ramp", false, "start each current from the previous final positions")
	f.BoolVar(&parallel, "parallel", false, "sweep topologies concurrently")
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&topology, "topology", "spiral", "pinning topology")
	cmd.Flags().Float64Var(&current, "current", 1.0, "applied current")
}

// loadConfig layers defaults, preset, config file and changed flags, in
// that order, and resolves a zero seed from the clock.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("box") {
		cfg.Domain.Width, cfg.Domain.Height = boxSize, boxSize
	}
	if f.Changed("boundary") {
		cfg.Domain.Boundary = boundary
	}
	if f.Changed("density") {
		cfg.Pinning.Density = density
	}
	if f.Changed("pin-radius") {
		cfg.Pinning.Radius = pinRadius
	}
	if f.Changed("pin-strength") {
		cfg.Pinning.Strength = pinStrength
	}
	if f.Changed("vortices") {
		cfg.Vortices = vortices
	}
	if f.Changed("repulsion") {
		cfg.Physics.RepulsionStrength = repulsion
	}
	if f.Changed("cutoff") {
		cfg.Physics.RepulsionCutoff = cutoff
	}
	if f.Changed("temperature") {
		cfg.Physics.Temperature = temperature
	}
	if f.Changed("dt") {
		cfg.Run.Dt = dt
	}
	if f.Changed("equilibration") {
		cfg.Run.Equilibration = equilibration
	}
	if f.Changed("measurement") {
		cfg.Run.Measurement = measurement
	}
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("topologies") {
		cfg.Topologies = topologies
	}
	if f.Changed("currents") {
		cfg.Currents.Values = currents
	}
	if f.Changed("min-current") {
		cfg.Currents.Min = minCurrent
		cfg.Currents.Values = nil
	}
	if f.Changed("max-current") {
		cfg.Currents.Max = maxCurrent
		cfg.Currents.Values = nil
	}
	if f.Changed("count") {
		cfg.Currents.Count = currentCount
		cfg.Currents.Values = nil
	}
	if f.Changed("ramp") {
		cfg.Ramp = ramp
	}
	if f.Changed("parallel") {
		cfg.Parallel = parallel
	}

	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano() % experiment.SeedStride
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newExperiment(cfg *config.Config) (*experiment.Experiment, error) {
	ec, err := cfg.Experiment()
	if err != nil {
		return nil, err
	}
	return experiment.New(ec)
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	js, err := cfg.CurrentValues()
	if err != nil {
		return err
	}
	e, err := newExperiment(cfg)
	if err != nil {
		return err
	}

	tops := e.Config().Topologies
	fmt.Printf("%s  %d topologies x %d currents, %d vortices, seed %d\n",
		viz.Title.Render("sweep"), len(tops), len(js), cfg.Vortices, cfg.Seed)
	e.OnProgress(func(p experiment.Progress) {
		fmt.Printf("  %-14s %s %3d/%-3d J=%7.3f  V=%.4f\n",
			p.Topology.Label(), viz.ProgressBar(p.Index+1, p.Total, 20), p.Index+1, p.Total, p.Point.Current, p.Point.Voltage)
	})

	ctx, cancel := interruptContext()
	defer cancel()
	start := time.Now()
	curves, err := e.SweepAll(ctx, js)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	run, err := saveSweep(storage.New(resultsDir), "sweep", cfg, curves, start, elapsed)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(viz.VIChart(curves, 60, 14))
	fmt.Println()
	fmt.Println(viz.SummaryTable(curves, cfg.Threshold))
	fmt.Printf("%s %s in %s\n", viz.Subtle.Render("saved"), run.Dir, elapsed.Round(time.Millisecond))
	return nil
}

// saveSweep stores the curves, sites and figures of a sweep as a new run.
func saveSweep(st *storage.Store, kind string, cfg *config.Config, curves []*experiment.Curve, start time.Time, elapsed time.Duration) (*storage.Run, error) {
	run, err := st.Create(kind)
	if err != nil {
		return nil, err
	}
	ls := make([]*landscape.Landscape, len(curves))
	for i, c := range curves {
		ls[i] = c.Landscape
	}
	if err := run.WriteCurves(curves); err != nil {
		return nil, err
	}
	if err := run.WriteSites(ls); err != nil {
		return nil, err
	}
	if err := export.WriteFile(run.Path("landscapes.svg"), export.LandscapesSVG(ls, 360)); err != nil {
		return nil, err
	}
	if err := export.WriteFile(run.Path("vi_curve.svg"), export.VICurveSVG(curves, 800, 500)); err != nil {
		return nil, err
	}
	meta := &storage.RunMetadata{
		Kind:      kind,
		Preset:    preset,
		Timestamp: start,
		Elapsed:   elapsed.Seconds(),
		Seed:      cfg.Seed,
		Config:    cfg,
		Summary:   summaries(curves, cfg.Threshold),
		Files:     []string{storage.CurvesFile, storage.SitesFile, "landscapes.svg", "vi_curve.svg"},
	}
	return run, run.WriteMetadata(meta)
}

func summaries(curves []*experiment.Curve, threshold float64) []storage.TopologySummary {
	var out []storage.TopologySummary
	for _, s := range analysis.Summarize(curves, threshold) {
		out = append(out, storage.TopologySummary{
			Topology:        s.Topology.String(),
			Sites:           s.Sites,
			CriticalCurrent: s.CriticalCurrent,
			Depinned:        s.Depinned,
			OhmicSlope:      s.Ohmic.Slope,
			OhmicIntercept:  s.Ohmic.Intercept,
			MaxVoltage:      s.MaxVoltage,
		})
	}
	return out
}

func runSnapshot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	t, err := landscape.ParseTopology(topology)
	if err != nil {
		return err
	}
	e, err := newExperiment(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := interruptContext()
	defer cancel()
	rec := sim.NewRecorder(trailStep, trailKeep)
	start := time.Now()
	res, l, err := e.Snapshot(ctx, t, current, rec)
	if err != nil {
		return err
	}

	st := storage.New(resultsDir)
	run, err := st.Create("snapshot")
	if err != nil {
		return err
	}
	if err := export.WriteFile(run.Path("snapshot.svg"), export.SnapshotSVG(l, res.Final, rec.Trails(), 600)); err != nil {
		return err
	}
	if err := run.WritePositions(rec.Frames()); err != nil {
		return err
	}
	if err := run.WriteSites([]*landscape.Landscape{l}); err != nil {
		return err
	}
	meta := &storage.RunMetadata{
		Kind:      "snapshot",
		Preset:    preset,
		Timestamp: start,
		Elapsed:   time.Since(start).Seconds(),
		Seed:      cfg.Seed,
		Current:   current,
		Config:    cfg,
		Files:     []string{"snapshot.svg", storage.PositionsFile, storage.SitesFile},
	}
	if err := run.WriteMetadata(meta); err != nil {
		return err
	}

	fmt.Printf("%s %s  J=%.3f\n", viz.Title.Render("snapshot"), t.Label(), current)
	fmt.Println(viz.MetricLabel.Render("Voltage") + viz.MetricValue.Render(fmt.Sprintf("%.4f", res.Voltage)))
	fmt.Println(viz.MetricLabel.Render("Parallel") + viz.MetricValue.Render(fmt.Sprintf("%.4f", res.Parallel)))
	fmt.Println(viz.MetricLabel.Render("Pinned") + viz.MetricValue.Render(fmt.Sprintf("%.0f%%", 100*res.PinnedFraction)))
	if u, ok := res.Metrics["energy"]; ok {
		fmt.Println(viz.MetricLabel.Render("Energy") + viz.MetricValue.Render(fmt.Sprintf("%.4f", u)))
	}
	fmt.Printf("%s %s\n", viz.Subtle.Render("saved"), run.Dir)
	return nil
}

func runLandscape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	e, err := newExperiment(cfg)
	if err != nil {
		return err
	}
	var ls []*landscape.Landscape
	for _, t := range e.Config().Topologies {
		l, err := e.Landscape(t)
		if err != nil {
			return err
		}
		ls = append(ls, l)
		fmt.Printf("  %-14s %4d sites (target %d)\n", t.Label(), l.Len(), l.Target)
	}

	st := storage.New(resultsDir)
	run, err := st.Create("landscape")
	if err != nil {
		return err
	}
	if err := export.WriteFile(run.Path("landscapes.svg"), export.LandscapesSVG(ls, 360)); err != nil {
		return err
	}
	if err := run.WriteSites(ls); err != nil {
		return err
	}
	meta := &storage.RunMetadata{
		Kind:      "landscape",
		Preset:    preset,
		Timestamp: time.Now(),
		Seed:      cfg.Seed,
		Config:    cfg,
		Files:     []string{"landscapes.svg", storage.SitesFile},
	}
	if err := run.WriteMetadata(meta); err != nil {
		return err
	}
	fmt.Printf("%s %s\n", viz.Subtle.Render("saved"), run.Dir)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	t, err := landscape.ParseTopology(topology)
	if err != nil {
		return err
	}
	e, err := newExperiment(cfg)
	if err != nil {
		return err
	}

	// live view cycles from the requested topology through the rest
	tops := []landscape.Topology{t}
	for _, other := range landscape.Topologies() {
		if other != t {
			tops = append(tops, other)
		}
	}
	st := storage.New(resultsDir)
	if err := st.Init(); err != nil {
		return err
	}
	return viz.Run(e.Session, viz.LiveOptions{
		Topologies:    tops,
		Current:       current,
		CurrentStep:   0.05,
		StepsPerFrame: stepsPerFrame,
		Theme:         theme,
		SaveDir:       st.BaseDir(),
	})
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(resultsDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tTIME\tELAPSED\tPRESET\tSEED")
	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.1fs\t%s\t%d\n",
			run.ID,
			run.Kind,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Elapsed,
			orDash(run.Preset),
			run.Seed,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(resultsDir)
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	if err := storage.EncodeMetadata(os.Stdout, meta); err != nil {
		return err
	}
	if meta.Kind != "sweep" && meta.Kind != "batch" {
		return nil
	}

	curves, err := st.LoadCurves(args[0])
	if err != nil {
		return err
	}
	if err := attachLandscapes(st, args[0], meta, curves); err != nil {
		return err
	}
	threshold := analysis.DefaultThreshold
	if meta.Config != nil && meta.Config.Threshold > 0 {
		threshold = meta.Config.Threshold
	}
	fmt.Println()
	fmt.Println(viz.VIChart(curves, 60, 14))
	fmt.Println()
	fmt.Println(viz.SummaryTable(curves, threshold))
	return nil
}

// attachLandscapes rebuilds each curve's landscape from the stored sites so
// the summary can report site counts.
func attachLandscapes(st *storage.Store, runID string, meta *storage.RunMetadata, curves []*experiment.Curve) error {
	if meta.Config == nil {
		return nil
	}
	d, err := meta.Config.Domain2D()
	if err != nil {
		return err
	}
	sites, err := st.LoadSites(runID)
	if err != nil {
		return err
	}
	for _, c := range curves {
		ss := sites[c.Topology]
		for i := range ss {
			// csv rounding can put a site on the far edge
			ss[i].Pos = d.Apply(ss[i].Pos)
		}
		l, err := landscape.New(c.Topology, d, ss)
		if err != nil {
			return err
		}
		c.Landscape = l
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s %s  %d steps\n", viz.Title.Render("batch"), sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(viz.Subtle.Render(sc.Description))
	}

	ctx, cancel := interruptContext()
	defer cancel()
	st := storage.New(resultsDir)
	start := time.Now()
	var saveErr error
	results, err := automation.RunScenario(ctx, sc, func(i int, r automation.StepResult) {
		if saveErr != nil {
			return
		}
		elapsed := time.Since(start)
		run, err := saveSweep(st, "batch", r.Config, r.Curves, start, elapsed)
		start = time.Now()
		if err != nil {
			saveErr = err
			return
		}
		fmt.Printf("  %s %3d/%-3d %-16s %s\n", viz.ProgressBar(i+1, len(sc.Steps), 20), i+1, len(sc.Steps), r.Name, viz.Subtle.Render(run.Dir))
	})
	if err != nil {
		return err
	}
	if saveErr != nil {
		return saveErr
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nSTEP\tTOPOLOGY\tJC\tDV/DJ\tVMAX")
	for _, r := range results {
		for _, s := range r.Summary {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.3f\n", r.Name, s.Topology.Label(), formatJc(s), formatSlope(s), s.MaxVoltage)
		}
	}
	return w.Flush()
}

func runStudy(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ps := &automation.ParameterSweep{Base: cfg, Param: studyParam, Values: studyValues}
	fmt.Printf("%s %s over %v, seed %d\n", viz.Title.Render("study"), studyParam, studyValues, cfg.Seed)

	ctx, cancel := interruptContext()
	defer cancel()
	points, err := automation.RunParameterSweep(ctx, ps, func(i int, p automation.SweepPoint) {
		fmt.Printf("  %s %3d/%-3d %s=%g\n", viz.ProgressBar(i+1, len(studyValues), 20), i+1, len(studyValues), studyParam, p.Value)
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "\n%s\tTOPOLOGY\tJC\tDV/DJ\n", strings.ToUpper(studyParam))
	for _, p := range points {
		for _, s := range p.Summary {
			fmt.Fprintf(w, "%g\t%s\t%s\t%s\n", p.Value, s.Topology.Label(), formatJc(s), formatSlope(s))
		}
	}
	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	en := &automation.Ensemble{Base: cfg, Trials: trials, SeedStart: cfg.Seed}
	fmt.Printf("%s %d trials from seed %d\n", viz.Title.Render("ensemble"), trials, cfg.Seed)

	ctx, cancel := interruptContext()
	defer cancel()
	stats, err := automation.RunEnsemble(ctx, en, func(trial int) {
		fmt.Printf("  %s %3d/%-3d\n", viz.ProgressBar(trial+1, trials, 20), trial+1, trials)
	})
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nTOPOLOGY\tDEPINNED\tMEAN JC\tSTD\tMIN\tMAX")
	for _, s := range stats {
		fmt.Fprintf(w, "%s\t%d/%d\t%.3f\t%.3f\t%.3f\t%.3f\n", s.Topology.Label(), s.Depinned, s.Trials, s.MeanJc, s.StdJc, s.MinJc, s.MaxJc)
	}
	return w.Flush()
}

func formatJc(s analysis.Summary) string {
	if !s.Depinned {
		return "pinned"
	}
	return fmt.Sprintf("%.3f", s.CriticalCurrent)
}

func formatSlope(s analysis.Summary) string {
	if !s.OhmicOK {
		return "-"
	}
	return fmt.Sprintf("%.3f", s.Ohmic.Slope)
}

func describeCurrents(c *config.Config) string {
	if n := len(c.Currents.Values); n > 0 {
		return fmt.Sprintf("%d explicit", n)
	}
	return fmt.Sprintf("%g..%g x%d", c.Currents.Min, c.Currents.Max, c.Currents.Count)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
