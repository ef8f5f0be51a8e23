package dynamo

import (
	"fmt"
	"math"
	"strings"
)

// Boundary selects how positions leaving the domain are resolved.
type Boundary int

const (
	Periodic Boundary = iota
	Reflective
)

func (b Boundary) String() string {
	switch b {
	case Periodic:
		return "periodic"
	case Reflective:
		return "reflective"
	default:
		return fmt.Sprintf("boundary(%d)", int(b))
	}
}

func ParseBoundary(s string) (Boundary, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "periodic", "wrap":
		return Periodic, nil
	case "reflective", "wall", "hard":
		return Reflective, nil
	}
	return 0, fmt.Errorf("%w: unknown boundary %q", ErrConfig, s)
}

func (b Boundary) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *Boundary) UnmarshalText(text []byte) error {
	v, err := ParseBoundary(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

// Domain is the rectangle [0,Width) x [0,Height).
type Domain struct {
	Width    float64
	Height   float64
	Boundary Boundary
}

func NewSquareDomain(size float64, b Boundary) Domain {
	return Domain{Width: size, Height: size, Boundary: b}
}

func (d Domain) Area() float64 { return d.Width * d.Height }

func (d Domain) Center() Vec { return Vec{d.Width / 2, d.Height / 2} }

func (d Domain) MinSide() float64 { return math.Min(d.Width, d.Height) }

func (d Domain) Validate() error {
	if !(d.Width > 0) || !(d.Height > 0) || !isFinite(d.Width) || !isFinite(d.Height) {
		return fmt.Errorf("%w: domain must have positive finite size, got %gx%g", ErrConfig, d.Width, d.Height)
	}
	if d.Boundary != Periodic && d.Boundary != Reflective {
		return fmt.Errorf("%w: invalid boundary %v", ErrConfig, d.Boundary)
	}
	return nil
}

func (d Domain) Contains(p Vec) bool {
	return p.X >= 0 && p.X < d.Width && p.Y >= 0 && p.Y < d.Height
}

// Apply maps a raw position back into the domain.
func (d Domain) Apply(p Vec) Vec {
	if d.Boundary == Reflective {
		return Vec{reflect(p.X, d.Width), reflect(p.Y, d.Height)}
	}
	return Vec{wrap(p.X, d.Width), wrap(p.Y, d.Height)}
}

// Delta returns b - a, using the minimum image in periodic domains.
func (d Domain) Delta(a, b Vec) Vec {
	dx, dy := b.X-a.X, b.Y-a.Y
	if d.Boundary == Periodic {
		dx -= d.Width * math.Round(dx/d.Width)
		dy -= d.Height * math.Round(dy/d.Height)
	}
	return Vec{dx, dy}
}

func (d Domain) Distance(a, b Vec) float64 { return d.Delta(a, b).Norm() }

func wrap(x, size float64) float64 {
	x = math.Mod(x, size)
	if x < 0 {
		x += size
	}
	// math.Mod can return size itself for tiny negative inputs
	if x >= size {
		x = 0
	}
	return x
}

func reflect(x, size float64) float64 {
	if x < 0 {
		x = -x
	}
	if x >= size {
		x = 2*size - x
	}
	// a step longer than the domain can still land outside after one mirror
	upper := math.Nextafter(size, 0)
	if x < 0 {
		x = 0
	} else if x > upper {
		x = upper
	}
	return x
}
