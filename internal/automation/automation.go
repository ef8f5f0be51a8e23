package automation

import (
	"context"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/vortexsim/internal/analysis"
	"github.com/san-kum/vortexsim/internal/config"
	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/experiment"
	"github.com/san-kum/vortexsim/internal/landscape"
)

// Scenario is a scripted sequence of sweeps.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Preset      string         `yaml:"preset"` // base for every step, default config when empty
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one sweep. Config holds a partial configuration that is
// decoded over the base, so only the keys it names change.
type ScenarioStep struct {
	Name   string    `yaml:"name"`
	Preset string    `yaml:"preset"`
	Config yaml.Node `yaml:"config"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("%w: scenario: %v", dynamo.ErrConfig, err)
	}
	if len(sc.Steps) == 0 {
		return nil, fmt.Errorf("%w: scenario %q has no steps", dynamo.ErrConfig, sc.Name)
	}
	return &sc, nil
}

func baseConfig(preset string) (*config.Config, error) {
	if preset == "" {
		return config.DefaultConfig(), nil
	}
	cfg := config.GetPreset(preset)
	if cfg == nil {
		return nil, fmt.Errorf("%w: unknown preset %q", dynamo.ErrConfig, preset)
	}
	return cfg, nil
}

// StepConfig resolves step i of the scenario into a validated configuration.
func (sc *Scenario) StepConfig(i int) (*config.Config, error) {
	step := sc.Steps[i]
	preset := sc.Preset
	if step.Preset != "" {
		preset = step.Preset
	}
	cfg, err := baseConfig(preset)
	if err != nil {
		return nil, err
	}
	if !step.Config.IsZero() {
		if err := step.Config.Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: step %q: %v", dynamo.ErrConfig, step.Name, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("step %q: %w", step.Name, err)
	}
	return cfg, nil
}

// StepResult is the outcome of one scenario step.
type StepResult struct {
	Name    string
	Config  *config.Config
	Curves  []*experiment.Curve
	Summary []analysis.Summary
}

// sweep runs every topology of cfg over its configured currents.
func sweep(ctx context.Context, cfg *config.Config) ([]*experiment.Curve, error) {
	js, err := cfg.CurrentValues()
	if err != nil {
		return nil, err
	}
	ec, err := cfg.Experiment()
	if err != nil {
		return nil, err
	}
	e, err := experiment.New(ec)
	if err != nil {
		return nil, err
	}
	return e.SweepAll(ctx, js)
}

// RunScenario executes all steps in order. done, when not nil, is called
// after each step; results so far are returned with the first error.
func RunScenario(ctx context.Context, sc *Scenario, done func(i int, r StepResult)) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Steps))
	for i, step := range sc.Steps {
		cfg, err := sc.StepConfig(i)
		if err != nil {
			return results, err
		}
		curves, err := sweep(ctx, cfg)
		if err != nil {
			return results, fmt.Errorf("step %q: %w", step.Name, err)
		}
		r := StepResult{
			Name:    step.Name,
			Config:  cfg,
			Curves:  curves,
			Summary: analysis.Summarize(curves, cfg.Threshold),
		}
		results = append(results, r)
		if done != nil {
			done(i, r)
		}
	}
	return results, nil
}

// ParameterSweep repeats a full sweep for each value of one tunable
// parameter, tracking how the critical current of each topology responds.
type ParameterSweep struct {
	Base   *config.Config
	Param  string
	Values []float64
}

type SweepPoint struct {
	Value   float64
	Summary []analysis.Summary
}

func RunParameterSweep(ctx context.Context, ps *ParameterSweep, done func(i int, p SweepPoint)) ([]SweepPoint, error) {
	if ps.Base == nil || len(ps.Values) == 0 {
		return nil, fmt.Errorf("%w: parameter sweep needs a base config and values", dynamo.ErrConfig)
	}
	points := make([]SweepPoint, 0, len(ps.Values))
	for i, v := range ps.Values {
		cfg := ps.Base.Clone()
		if err := cfg.SetParam(ps.Param, v); err != nil {
			return points, err
		}
		if err := cfg.Validate(); err != nil {
			return points, fmt.Errorf("%s=%g: %w", ps.Param, v, err)
		}
		curves, err := sweep(ctx, cfg)
		if err != nil {
			return points, fmt.Errorf("%s=%g: %w", ps.Param, v, err)
		}
		p := SweepPoint{Value: v, Summary: analysis.Summarize(curves, cfg.Threshold)}
		points = append(points, p)
		if done != nil {
			done(i, p)
		}
	}
	return points, nil
}

// Ensemble repeats the same sweep over consecutive base seeds. Only the
// random topology changes its landscape between trials; the others
// differ only in initial positions and noise.
type Ensemble struct {
	Base      *config.Config
	Trials    int
	SeedStart int64
}

// EnsembleStats aggregates the critical current of one topology.
type EnsembleStats struct {
	Topology landscape.Topology
	Trials   int
	Depinned int // trials whose curve crossed the threshold
	MeanJc   float64
	StdJc    float64
	MinJc    float64
	MaxJc    float64
}

func RunEnsemble(ctx context.Context, en *Ensemble, done func(trial int)) ([]EnsembleStats, error) {
	if en.Base == nil || en.Trials < 1 {
		return nil, fmt.Errorf("%w: ensemble needs a base config and at least one trial", dynamo.ErrConfig)
	}
	jcs := make(map[landscape.Topology][]float64)
	var order []landscape.Topology
	trials := make(map[landscape.Topology]int)

	for trial := 0; trial < en.Trials; trial++ {
		cfg := en.Base.Clone()
		// seeds are spaced by whole seed ranges so trials never share a stream
		cfg.Seed = en.SeedStart + int64(trial)*int64(len(landscape.Topologies()))*experiment.SeedStride
		curves, err := sweep(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("trial %d: %w", trial, err)
		}
		for _, s := range analysis.Summarize(curves, cfg.Threshold) {
			if _, ok := trials[s.Topology]; !ok {
				order = append(order, s.Topology)
			}
			trials[s.Topology]++
			if s.Depinned {
				jcs[s.Topology] = append(jcs[s.Topology], s.CriticalCurrent)
			}
		}
		if done != nil {
			done(trial)
		}
	}

	stats := make([]EnsembleStats, 0, len(order))
	for _, t := range order {
		st := EnsembleStats{Topology: t, Trials: trials[t], Depinned: len(jcs[t])}
		if st.Depinned > 0 {
			st.MeanJc, st.StdJc, st.MinJc, st.MaxJc = describe(jcs[t])
		}
		stats = append(stats, st)
	}
	return stats, nil
}

func describe(xs []float64) (mean, std, lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		mean += x
		lo, hi = math.Min(lo, x), math.Max(hi, x)
	}
	mean /= float64(len(xs))
	for _, x := range xs {
		std += (x - mean) * (x - mean)
	}
	if len(xs) > 1 {
		std = math.Sqrt(std / float64(len(xs)-1))
	} else {
		std = 0
	}
	return mean, std, lo, hi
}
