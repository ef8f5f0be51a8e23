package export

import (
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/san-kum/vortexsim/internal/dynamo"
	"github.com/san-kum/vortexsim/internal/experiment"
	"github.com/san-kum/vortexsim/internal/landscape"
)

const (
	background = "#0a0a0a"
	foreground = "#dddddd"
	gridColor  = "#333344"
	vortexFill = "#ffcc00"
)

// SeriesColor is the stroke used for a topology in every figure.
func SeriesColor(t landscape.Topology) string {
	switch t {
	case landscape.Random:
		return "#4f8fe8"
	case landscape.Hexagonal:
		return "#e8554f"
	case landscape.Spiral:
		return "#3fcf6a"
	default:
		return foreground
	}
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="monospace">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

func footer(sb *strings.Builder) { sb.WriteString("</svg>\n") }

// frame maps domain coordinates into a square-pixel panel with y up.
type frame struct {
	x0, y0, scale, h float64
}

func newFrame(d dynamo.Domain, x0, y0, size float64) frame {
	s := size / math.Max(d.Width, d.Height)
	return frame{x0: x0, y0: y0, scale: s, h: d.Height * s}
}

func (f frame) pt(p dynamo.Vec) (float64, float64) {
	return f.x0 + p.X*f.scale, f.y0 + f.h - p.Y*f.scale
}

func drawDomain(sb *strings.Builder, f frame, d dynamo.Domain) {
	fmt.Fprintf(sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="none" stroke="%s"/>
`, f.x0, f.y0, d.Width*f.scale, d.Height*f.scale, gridColor)
}

func drawSites(sb *strings.Builder, f frame, l *landscape.Landscape, opacity float64) {
	color := SeriesColor(l.Topology)
	fmt.Fprintf(sb, `<g class="sites" data-topology="%s" fill="%s" fill-opacity="%.2f">
`, l.Topology, color, opacity)
	for _, s := range l.Sites {
		x, y := f.pt(s.Pos)
		fmt.Fprintf(sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, x, y, math.Max(s.Radius*f.scale, 1))
	}
	sb.WriteString("</g>\n")
}

// LandscapesSVG draws the landscapes side by side, panel pixels square each.
func LandscapesSVG(ls []*landscape.Landscape, panel int) string {
	const pad, title = 20, 24
	width := len(ls)*(panel+pad) + pad
	height := panel + 2*pad + title

	var sb strings.Builder
	header(&sb, width, height)
	for i, l := range ls {
		x0 := float64(pad + i*(panel+pad))
		y0 := float64(pad + title)
		f := newFrame(l.Domain, x0, y0, float64(panel))
		fmt.Fprintf(&sb, `<text x="%.1f" y="%d" fill="%s" font-size="14">%s (%d sites)</text>
`, x0, pad+14, SeriesColor(l.Topology), l.Topology.Label(), l.Len())
		drawDomain(&sb, f, l.Domain)
		drawSites(&sb, f, l, 0.8)
	}
	footer(&sb)
	return sb.String()
}

// niceStep returns a 1-2-5 tick spacing giving about n ticks over span.
func niceStep(span float64, n int) float64 {
	if span <= 0 || n < 1 {
		return 1
	}
	raw := span / float64(n)
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	switch r := raw / mag; {
	case r < 1.5:
		return mag
	case r < 3.5:
		return 2 * mag
	case r < 7.5:
		return 5 * mag
	default:
		return 10 * mag
	}
}

// VICurveSVG plots voltage against current with one series per curve.
func VICurveSVG(curves []*experiment.Curve, width, height int) string {
	const left, right, top, bottom = 60, 160, 30, 50
	pw, ph := float64(width-left-right), float64(height-top-bottom)

	minJ, maxJ := math.Inf(1), math.Inf(-1)
	maxV := 0.0
	for _, c := range curves {
		for _, p := range c.Points {
			minJ, maxJ = math.Min(minJ, p.Current), math.Max(maxJ, p.Current)
			maxV = math.Max(maxV, p.Voltage)
		}
	}
	if math.IsInf(minJ, 1) {
		minJ, maxJ = 0, 1
	}
	if maxJ == minJ {
		maxJ = minJ + 1
	}
	if maxV == 0 {
		maxV = 1
	}
	maxV *= 1.05

	px := func(j float64) float64 { return left + (j-minJ)/(maxJ-minJ)*pw }
	py := func(v float64) float64 { return top + ph - v/maxV*ph }

	var sb strings.Builder
	header(&sb, width, height)

	fmt.Fprintf(&sb, `<g stroke="%s" stroke-width="1">
`, gridColor)
	xs := niceStep(maxJ-minJ, 6)
	for j := math.Ceil(minJ/xs) * xs; j <= maxJ+1e-9; j += xs {
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%d" x2="%.1f" y2="%.1f"/>
`, px(j), top, px(j), top+ph)
	}
	ys := niceStep(maxV, 5)
	for v := 0.0; v <= maxV+1e-9; v += ys {
		fmt.Fprintf(&sb, `<line x1="%d" y1="%.1f" x2="%.1f" y2="%.1f"/>
`, left, py(v), left+pw, py(v))
	}
	sb.WriteString("</g>\n")

	fmt.Fprintf(&sb, `<g fill="%s" font-size="11">
`, foreground)
	for j := math.Ceil(minJ/xs) * xs; j <= maxJ+1e-9; j += xs {
		fmt.Fprintf(&sb, `<text x="%.1f" y="%.1f" text-anchor="middle">%.3g</text>
`, px(j), top+ph+16, j)
	}
	for v := 0.0; v <= maxV+1e-9; v += ys {
		fmt.Fprintf(&sb, `<text x="%d" y="%.1f" text-anchor="end">%.3g</text>
`, left-6, py(v)+4, v)
	}
	fmt.Fprintf(&sb, `<text x="%.1f" y="%d" text-anchor="middle" font-size="13">Applied current J</text>
`, left+pw/2, height-10)
	fmt.Fprintf(&sb, `<text x="16" y="%.1f" text-anchor="middle" font-size="13" transform="rotate(-90 16 %.1f)">Voltage V</text>
`, top+ph/2, top+ph/2)
	sb.WriteString("</g>\n")

	for i, c := range curves {
		color := SeriesColor(c.Topology)
		if len(c.Points) > 0 {
			var d strings.Builder
			for k, p := range c.Points {
				op := "L"
				if k == 0 {
					op = "M"
				}
				fmt.Fprintf(&d, "%s%.1f,%.1f ", op, px(p.Current), py(p.Voltage))
			}
			fmt.Fprintf(&sb, `<path class="series" data-topology="%s" fill="none" stroke="%s" stroke-width="2" d="%s"/>
`, c.Topology, color, strings.TrimSpace(d.String()))
		}
		ly := float64(top + 20 + i*20)
		fmt.Fprintf(&sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="2"/>
<text x="%.1f" y="%.1f" fill="%s" font-size="12">%s</text>
`, left+pw+12, ly, left+pw+32, ly, color, left+pw+38, ly+4, foreground, c.Topology.Label())
	}

	footer(&sb)
	return sb.String()
}

// SnapshotSVG draws the pinning sites, the trailing path of each vortex and
// its final position. Trail segments that jump across a periodic seam are
// broken rather than drawn through the domain.
func SnapshotSVG(l *landscape.Landscape, final dynamo.Positions, trails []dynamo.Positions, size int) string {
	const pad = 20
	var sb strings.Builder
	header(&sb, size+2*pad, size+2*pad)

	d := l.Domain
	f := newFrame(d, pad, pad, float64(size))
	drawDomain(&sb, f, d)
	drawSites(&sb, f, l, 0.35)

	fmt.Fprintf(&sb, `<g class="trails" fill="none" stroke="%s" stroke-opacity="0.5" stroke-width="1">
`, vortexFill)
	for _, tr := range trails {
		if len(tr) < 2 {
			continue
		}
		var path strings.Builder
		for k, p := range tr {
			x, y := f.pt(p)
			op := "L"
			if k == 0 || jump(d, tr[k-1], p) {
				op = "M"
			}
			fmt.Fprintf(&path, "%s%.1f,%.1f ", op, x, y)
		}
		fmt.Fprintf(&sb, `<path d="%s"/>
`, strings.TrimSpace(path.String()))
	}
	sb.WriteString("</g>\n")

	fmt.Fprintf(&sb, `<g class="vortices" fill="%s">
`, vortexFill)
	for _, p := range final {
		x, y := f.pt(p)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, x, y, math.Max(0.15*f.scale, 2))
	}
	sb.WriteString("</g>\n")

	footer(&sb)
	return sb.String()
}

func jump(d dynamo.Domain, a, b dynamo.Vec) bool {
	return math.Abs(b.X-a.X) > d.Width/2 || math.Abs(b.Y-a.Y) > d.Height/2
}

func WriteFile(path, svg string) error {
	return os.WriteFile(path, []byte(svg), 0644)
}
