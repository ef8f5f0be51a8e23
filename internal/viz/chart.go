package viz

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/vortexsim/internal/analysis"
	"github.com/san-kum/vortexsim/internal/experiment"
	"github.com/san-kum/vortexsim/internal/landscape"
)

func seriesColor(t landscape.Topology) asciigraph.AnsiColor {
	switch t {
	case landscape.Random:
		return asciigraph.Blue
	case landscape.Hexagonal:
		return asciigraph.Red
	case landscape.Spiral:
		return asciigraph.Green
	default:
		return asciigraph.Default
	}
}

// legendColor matches seriesColor in the 16 colour ANSI palette.
func legendColor(t landscape.Topology) lipgloss.Color {
	switch t {
	case landscape.Random:
		return lipgloss.Color("4")
	case landscape.Hexagonal:
		return lipgloss.Color("1")
	case landscape.Spiral:
		return lipgloss.Color("2")
	default:
		return lipgloss.Color("7")
	}
}

// VIChart plots the voltage of every curve against the current index.
// Curves are expected to share one current grid.
func VIChart(curves []*experiment.Curve, width, height int) string {
	var series [][]float64
	var colors []asciigraph.AnsiColor
	var legend []string
	for _, c := range curves {
		if c.Len() == 0 {
			continue
		}
		v := c.Voltages()
		if len(v) == 1 {
			v = append(v, v[0])
		}
		series = append(series, v)
		colors = append(colors, seriesColor(c.Topology))
		legend = append(legend, lipgloss.NewStyle().Foreground(legendColor(c.Topology)).Render("━ "+c.Topology.Label()))
	}
	if len(series) == 0 {
		return ""
	}

	j := curves[0].Currents()
	caption := fmt.Sprintf("V vs J, J from %.3g to %.3g", j[0], j[len(j)-1])
	plot := asciigraph.PlotMany(series,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.LowerBound(0),
		asciigraph.SeriesColors(colors...),
		asciigraph.Caption(caption),
	)
	return plot + "\n" + strings.Join(legend, "   ")
}

// SummaryTable renders one row per curve: site count, critical current,
// ohmic slope and a sparkline of the curve on a shared voltage scale.
func SummaryTable(curves []*experiment.Curve, threshold float64) string {
	sums := analysis.Summarize(curves, threshold)
	top := 0.0
	for _, s := range sums {
		top = max(top, s.MaxVoltage)
	}

	rows := make([][]string, 0, len(sums))
	for i, s := range sums {
		jc := "not depinned"
		if s.Depinned {
			jc = fmt.Sprintf("%.3f", s.CriticalCurrent)
		}
		slope, r2 := "-", "-"
		if s.OhmicOK {
			slope = fmt.Sprintf("%.3f", s.Ohmic.Slope)
			r2 = fmt.Sprintf("%.3f", s.Ohmic.R2)
		}
		rows = append(rows, []string{
			s.Topology.Label(),
			fmt.Sprintf("%d", s.Sites),
			jc,
			slope,
			r2,
			fmt.Sprintf("%.3f", s.MaxVoltage),
			fmt.Sprintf("%.2f", s.PinnedAtZero),
			Sparkline(curves[i].Voltages(), top),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#444466"))).
		Headers("Topology", "Sites", "Jc", "dV/dJ", "R²", "Vmax", "Pinned@J0", "V(J)").
		StyleFunc(func(row, col int) lipgloss.Style {
			style := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return style.Bold(true).Foreground(lipgloss.Color("#ffffff"))
			}
			if col == 0 && row >= 0 && row < len(sums) {
				return style.Foreground(legendColor(sums[row].Topology))
			}
			return style
		}).
		Rows(rows...)
	return t.String()
}
