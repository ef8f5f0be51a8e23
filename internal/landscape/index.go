package landscape

import (
	"math"

	"github.com/san-kum/vortexsim/internal/dynamo"
)

// Grid buckets points into square-ish cells at least cellSize wide so a
// neighbourhood query only touches the 3x3 block around a point.
type Grid struct {
	domain dynamo.Domain
	nx, ny int
	cw, ch float64
	cells  [][]int
	points dynamo.Positions
}

func NewGrid(points dynamo.Positions, d dynamo.Domain, cellSize float64) *Grid {
	nx, ny := 1, 1
	if cellSize > 0 {
		nx = max(1, int(d.Width/cellSize))
		ny = max(1, int(d.Height/cellSize))
	}
	g := &Grid{
		domain: d,
		nx:     nx,
		ny:     ny,
		cw:     d.Width / float64(nx),
		ch:     d.Height / float64(ny),
		cells:  make([][]int, nx*ny),
		points: points,
	}
	for i, p := range points {
		c := g.cellOf(p)
		g.cells[c] = append(g.cells[c], i)
	}
	return g
}

func (g *Grid) cellOf(p dynamo.Vec) int {
	cx := clampCell(int(math.Floor(p.X/g.cw)), g.nx)
	cy := clampCell(int(math.Floor(p.Y/g.ch)), g.ny)
	return cy*g.nx + cx
}

func clampCell(c, n int) int {
	if c < 0 {
		return 0
	}
	if c >= n {
		return n - 1
	}
	return c
}

// CellSize returns the smaller cell dimension, the largest radius a
// neighbourhood query answers exactly.
func (g *Grid) CellSize() float64 { return math.Min(g.cw, g.ch) }

// Visit calls fn for every point within radius of p, passing the domain
// separation p -> point. radius must not exceed CellSize.
func (g *Grid) Visit(p dynamo.Vec, radius float64, fn func(i int, delta dynamo.Vec, dist float64)) {
	cx := clampCell(int(math.Floor(p.X/g.cw)), g.nx)
	cy := clampCell(int(math.Floor(p.Y/g.ch)), g.ny)
	periodic := g.domain.Boundary == dynamo.Periodic

	var seen [9]int
	nSeen := 0
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			x, y := cx+dx, cy+dy
			if periodic {
				x = (x + g.nx) % g.nx
				y = (y + g.ny) % g.ny
			} else if x < 0 || x >= g.nx || y < 0 || y >= g.ny {
				continue
			}
			c := y*g.nx + x
			dup := false
			for k := 0; k < nSeen; k++ {
				if seen[k] == c {
					dup = true
					break
				}
			}
			if dup {
				continue
			}
			seen[nSeen] = c
			nSeen++

			for _, i := range g.cells[c] {
				delta := g.domain.Delta(p, g.points[i])
				if dist := delta.Norm(); dist < radius {
					fn(i, delta, dist)
				}
			}
		}
	}
}

// Index is the pinning-site lookup used by the force model.
type Index struct {
	sites     []Site
	grid      *Grid
	maxRadius float64
}

func NewIndex(sites []Site, d dynamo.Domain) *Index {
	maxR := 0.0
	pts := make(dynamo.Positions, len(sites))
	for i, s := range sites {
		pts[i] = s.Pos
		maxR = math.Max(maxR, s.Radius)
	}
	return &Index{sites: sites, grid: NewGrid(pts, d, maxR), maxRadius: maxR}
}

func (ix *Index) MaxRadius() float64 { return ix.maxRadius }

// Attracting calls fn for each site whose well contains p.
func (ix *Index) Attracting(p dynamo.Vec, fn func(s Site, delta dynamo.Vec, dist float64)) {
	ix.grid.Visit(p, ix.maxRadius, func(i int, delta dynamo.Vec, dist float64) {
		if s := ix.sites[i]; dist < s.Radius {
			fn(s, delta, dist)
		}
	})
}

// Captured reports whether p lies inside any pinning well.
func (ix *Index) Captured(p dynamo.Vec) bool {
	hit := false
	ix.Attracting(p, func(Site, dynamo.Vec, float64) { hit = true })
	return hit
}
