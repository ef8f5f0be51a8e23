package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/vortexsim/internal/config"
	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/experiment"
	"github.com/san-kum/vortexsim/internal/landscape"
	"github.com/san-kum/vortexsim/internal/sim"
)

const (
	MetadataFile  = "metadata.json"
	CurvesFile    = "curves.csv"
	SitesFile     = "sites.csv"
	PositionsFile = "positions.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) BaseDir() string { return s.baseDir }

// TopologySummary is the per-topology result line kept in the metadata.
type TopologySummary struct {
	Topology        string  `json:"topology"`
	Sites           int     `json:"sites"`
	CriticalCurrent float64 `json:"critical_current"`
	Depinned        bool    `json:"depinned"`
	OhmicSlope      float64 `json:"ohmic_slope"`
	OhmicIntercept  float64 `json:"ohmic_intercept"`
	MaxVoltage      float64 `json:"max_voltage"`
}

type RunMetadata struct {
	ID        string            `json:"id"`
	Kind      string            `json:"kind"`
	Preset    string            `json:"preset,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Elapsed   float64           `json:"elapsed_seconds"`
	Seed      int64             `json:"seed"`
	Current   float64           `json:"current,omitempty"`
	Config    *config.Config    `json:"config"`
	Summary   []TopologySummary `json:"summary,omitempty"`
	Files     []string          `json:"files"`
}

// Run is a directory holding the outputs of one invocation.
type Run struct {
	ID  string
	Dir string
}

// Create makes a fresh run directory named after kind and the current time.
func (s *Store) Create(kind string) (*Run, error) {
	if err := s.Init(); err != nil {
		return nil, err
	}
	stamp := time.Now().Format("20060102-150405")
	for n := 0; ; n++ {
		id := fmt.Sprintf("%s_%s", kind, stamp)
		if n > 0 {
			id = fmt.Sprintf("%s_%s_%d", kind, stamp, n)
		}
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return &Run{ID: id, Dir: dir}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
}

func (r *Run) Path(name string) string { return filepath.Join(r.Dir, name) }

func (r *Run) WriteMetadata(meta *RunMetadata) error {
	meta.ID = r.ID
	f, err := os.Create(r.Path(MetadataFile))
	if err != nil {
		return err
	}
	defer f.Close()
	return EncodeMetadata(f, meta)
}

func EncodeMetadata(w io.Writer, meta *RunMetadata) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func writeCSV(path string, header []string, rows func(w *csv.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := rows(w); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (r *Run) WriteCurves(curves []*experiment.Curve) error {
	header := []string{"topology", "current", "voltage", "parallel", "pinned_fraction"}
	return writeCSV(r.Path(CurvesFile), header, func(w *csv.Writer) error {
		for _, c := range curves {
			for _, p := range c.Points {
				row := []string{
					c.Topology.String(),
					formatFloat(p.Current),
					formatFloat(p.Voltage),
					formatFloat(p.Parallel),
					formatFloat(p.PinnedFraction),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (r *Run) WriteSites(ls []*landscape.Landscape) error {
	header := []string{"topology", "site", "x", "y", "radius", "strength"}
	return writeCSV(r.Path(SitesFile), header, func(w *csv.Writer) error {
		for _, l := range ls {
			for i, s := range l.Sites {
				row := []string{
					l.Topology.String(),
					strconv.Itoa(i),
					formatFloat(s.Pos.X),
					formatFloat(s.Pos.Y),
					formatFloat(s.Radius),
					formatFloat(s.Strength),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// WritePositions stores recorded frames, one row per vortex per frame.
func (r *Run) WritePositions(frames []sim.Frame) error {
	header := []string{"step", "time", "vortex", "x", "y"}
	return writeCSV(r.Path(PositionsFile), header, func(w *csv.Writer) error {
		for _, f := range frames {
			for i, p := range f.Pos {
				row := []string{
					strconv.Itoa(f.Step),
					formatFloat(f.Time),
					strconv.Itoa(i),
					formatFloat(p.X),
					formatFloat(p.Y),
				}
				if err := w.Write(row); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, MetadataFile))
	if err != nil {
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, nil
	}
	return records[1:], nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, s := range fields {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// LoadCurves reads curves.csv back, grouping rows by topology in file order.
// The returned curves carry no landscape.
func (s *Store) LoadCurves(runID string) ([]*experiment.Curve, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, CurvesFile))
	if err != nil {
		return nil, err
	}

	var curves []*experiment.Curve
	byTopology := map[landscape.Topology]*experiment.Curve{}
	for line, rec := range records {
		if len(rec) < 5 {
			return nil, fmt.Errorf("%s line %d: want 5 fields, got %d", CurvesFile, line+2, len(rec))
		}
		t, err := landscape.ParseTopology(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", CurvesFile, line+2, err)
		}
		v, err := parseFloats(rec[1:5])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", CurvesFile, line+2, err)
		}
		c, ok := byTopology[t]
		if !ok {
			c = &experiment.Curve{Topology: t}
			byTopology[t] = c
			curves = append(curves, c)
		}
		c.Points = append(c.Points, experiment.Point{Current: v[0], Voltage: v[1], Parallel: v[2], PinnedFraction: v[3]})
	}
	return curves, nil
}

// LoadSites reads sites.csv back into per-topology site lists.
func (s *Store) LoadSites(runID string) (map[landscape.Topology][]landscape.Site, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, SitesFile))
	if err != nil {
		return nil, err
	}
	out := map[landscape.Topology][]landscape.Site{}
	for line, rec := range records {
		if len(rec) < 6 {
			return nil, fmt.Errorf("%s line %d: want 6 fields, got %d", SitesFile, line+2, len(rec))
		}
		t, err := landscape.ParseTopology(rec[0])
		if err != nil {
			return nil, err
		}
		v, err := parseFloats(rec[2:6])
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", SitesFile, line+2, err)
		}
		out[t] = append(out[t], landscape.Site{Pos: dynamo.Vec{X: v[0], Y: v[1]}, Radius: v[2], Strength: v[3]})
	}
	return out, nil
}
