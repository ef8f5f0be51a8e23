package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/experiment"
	"github.com/san-kum/vortexsim/internal/landscape"
)

func testLandscapes(t *testing.T) []*landscape.Landscape {
	t.Helper()
	var out []*landscape.Landscape
	for _, top := range landscape.Topologies() {
		l, err := landscape.Generate(landscape.Config{
			Topology:    top,
			Density:     0.2,
			Domain:      dynamo.NewSquareDomain(10, dynamo.Periodic),
			PinRadius:   0.8,
			PinStrength: 1,
		}, randSource())
		if err != nil {
			t.Fatal(err)
		}
		out = append(out, l)
	}
	return out
}

func TestLandscapesSVG(t *testing.T) {
	ls := testLandscapes(t)
	svg := LandscapesSVG(ls, 200)

	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Fatal("not a complete svg document")
	}
	if got := strings.Count(svg, `class="sites"`); got != 3 {
		t.Errorf("got %d site groups, want 3", got)
	}
	want := 0
	for _, l := range ls {
		want += l.Len()
	}
	if got := strings.Count(svg, "<circle"); got != want {
		t.Errorf("got %d circles, want %d", got, want)
	}
	if !strings.Contains(svg, "Golden spiral") {
		t.Error("missing spiral panel title")
	}
}

func TestVICurveSVGHasOneSeriesPerTopology(t *testing.T) {
	var curves []*experiment.Curve
	for i, top := range landscape.Topologies() {
		c := &experiment.Curve{Topology: top}
		for j := 0; j <= 10; j++ {
			c.Points = append(c.Points, experiment.Point{Current: float64(j) * 0.25, Voltage: float64(j*(i+1)) * 0.01})
		}
		curves = append(curves, c)
	}
	svg := VICurveSVG(curves, 800, 500)

	if got := strings.Count(svg, `class="series"`); got != 3 {
		t.Errorf("got %d series, want 3", got)
	}
	for _, top := range landscape.Topologies() {
		if !strings.Contains(svg, `data-topology="`+top.String()+`"`) {
			t.Errorf("missing series for %v", top)
		}
		if !strings.Contains(svg, SeriesColor(top)) {
			t.Errorf("missing colour for %v", top)
		}
	}
	if strings.Contains(svg, "NaN") || strings.Contains(svg, "Inf") {
		t.Error("svg contains non-finite coordinates")
	}
}

func TestVICurveSVGHandlesFlatCurve(t *testing.T) {
	c := &experiment.Curve{Topology: landscape.Random, Points: []experiment.Point{{Current: 1}}}
	svg := VICurveSVG([]*experiment.Curve{c}, 400, 300)
	if strings.Contains(svg, "NaN") || strings.Contains(svg, "Inf") {
		t.Error("svg contains non-finite coordinates")
	}
}

func TestSnapshotSVGBreaksSeamJumps(t *testing.T) {
	l := testLandscapes(t)[2]
	trails := []dynamo.Positions{
		{{X: 9.5, Y: 5}, {X: 9.9, Y: 5}, {X: 0.3, Y: 5}, {X: 0.7, Y: 5}},
	}
	final := dynamo.Positions{{X: 0.7, Y: 5}}
	svg := SnapshotSVG(l, final, trails, 300)

	start := strings.Index(svg, `class="trails"`)
	if start < 0 {
		t.Fatal("missing trails group")
	}
	end := start + strings.Index(svg[start:], "</g>")
	trail := svg[start:end]
	if got := strings.Count(trail, "M"); got != 2 {
		t.Errorf("trail has %d move commands, want 2", got)
	}
	if !strings.Contains(svg, `class="vortices"`) {
		t.Error("missing vortex group")
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fig.svg")
	if err := WriteFile(path, "<svg/>"); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "<svg/>" {
		t.Errorf("read back %q, %v", data, err)
	}
}

func TestNiceStep(t *testing.T) {
	tests := []struct {
		span float64
		n    int
		want float64
	}{
		{2.5, 6, 0.5},
		{10, 5, 2},
		{1, 5, 0.2},
		{0, 5, 1},
	}
	for _, tt := range tests {
		if got := niceStep(tt.span, tt.n); got != tt.want {
			t.Errorf("niceStep(%g, %d) = %g, want %g", tt.span, tt.n, got, tt.want)
		}
	}
}
