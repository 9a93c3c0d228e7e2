package field

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/sim"
)

func TestGridCounts(t *testing.T) {
	tests := []struct {
		name       string
		cfg        GridConfig
		nx, ny, nz int
	}{
		{"default", DefaultGridConfig(), 11, 11, 11},
		{"single point", GridConfig{XStep: 0.1, YZStep: 0.1}, 1, 1, 1},
		{"symmetric yz", GridConfig{XEnd: 0.5, XStep: 0.25, YStart: -0.1, YEnd: 0.1, ZStart: -0.1, ZEnd: 0.1, YZStep: 0.05}, 3, 5, 5},
		{"end not reachable", GridConfig{XEnd: 1, XStep: 0.3, YZStep: 1}, 4, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGrid(tt.cfg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			nx, ny, nz := g.Shape()
			if nx != tt.nx || ny != tt.ny || nz != tt.nz {
				t.Errorf("expected %dx%dx%d, got %dx%dx%d", tt.nx, tt.ny, tt.nz, nx, ny, nz)
			}
			if g.Len() != nx*ny*nz {
				t.Errorf("expected %d points, got %d", nx*ny*nz, g.Len())
			}
		})
	}
}

func TestGridIncludesEnd(t *testing.T) {
	g, err := NewGrid(DefaultGridConfig())
	if err != nil {
		t.Fatal(err)
	}
	if last := g.X[len(g.X)-1]; math.Abs(last-1) > 1e-12 {
		t.Errorf("expected last coordinate 1, got %g", last)
	}
	if g.X[0] != 0 {
		t.Errorf("expected first coordinate 0, got %g", g.X[0])
	}
}

func TestGridInvalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  GridConfig
	}{
		{"zero x step", GridConfig{XEnd: 1, YZStep: 0.1}},
		{"zero yz step", GridConfig{XEnd: 1, XStep: 0.1}},
		{"negative step", GridConfig{XEnd: 1, XStep: -0.1, YZStep: 0.1}},
		{"reversed x", GridConfig{XStart: 1, XEnd: 0, XStep: 0.1, YZStep: 0.1}},
		{"reversed z", GridConfig{XStep: 0.1, ZStart: 0.5, YZStep: 0.1}},
		{"nan bound", GridConfig{XEnd: math.NaN(), XStep: 0.1, YZStep: 0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGrid(tt.cfg)
			if !errors.Is(err, sim.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}

func TestGridFlatRoundTrip(t *testing.T) {
	g, _ := NewGrid(GridConfig{XEnd: 0.4, XStep: 0.1, YEnd: 0.2, ZEnd: 0.3, YZStep: 0.1})

	seen := make(map[int]bool)
	for i := range g.X {
		for j := range g.Y {
			for k := range g.Z {
				idx := Index{I: i, J: j, K: k}
				n := g.Flat(idx)
				if got := g.Unflatten(n); got != idx {
					t.Errorf("expected %v, got %v", idx, got)
				}
				seen[n] = true
			}
		}
	}
	if len(seen) != g.Len() {
		t.Errorf("expected %d distinct offsets, got %d", g.Len(), len(seen))
	}
}

func TestGridNearest(t *testing.T) {
	g, _ := NewGrid(GridConfig{XEnd: 1, XStep: 0.1, YStart: -0.2, YEnd: 0.2, ZStart: -0.2, ZEnd: 0.2, YZStep: 0.1})

	tests := []struct {
		p    r3.Vec
		want Index
	}{
		{r3.Vec{X: 0.34, Y: 0.01, Z: -0.06}, Index{I: 3, J: 2, K: 1}},
		{r3.Vec{X: 0.36}, Index{I: 4, J: 2, K: 2}},
		{r3.Vec{X: -5, Y: 5, Z: -5}, Index{I: 0, J: 4, K: 0}},
		{r3.Vec{X: 1.04, Y: 0.2, Z: 0.2}, Index{I: 10, J: 4, K: 4}},
	}

	for _, tt := range tests {
		if got := g.Nearest(tt.p); got != tt.want {
			t.Errorf("Nearest(%v): expected %v, got %v", tt.p, tt.want, got)
		}
	}
}

func TestGridIndexOf(t *testing.T) {
	g, _ := NewGrid(DefaultGridConfig())

	idx, ok := g.IndexOf(r3.Vec{X: 0.3, Y: 0.7, Z: 1})
	if !ok || idx != (Index{I: 3, J: 7, K: 10}) {
		t.Errorf("expected (3,7,10), got %v (ok=%v)", idx, ok)
	}

	misses := []r3.Vec{
		{X: 0.35},
		{X: 1.1},
		{Y: -0.1},
		{Z: 0.3 + 1e-6},
	}
	for _, p := range misses {
		if _, ok := g.IndexOf(p); ok {
			t.Errorf("IndexOf(%v) should miss", p)
		}
	}
}

func TestGridConfigContains(t *testing.T) {
	cfg := GridConfig{XEnd: 1, XStep: 0.1, YStart: -0.1, YEnd: 0.1, ZStart: -0.1, ZEnd: 0.1, YZStep: 0.05}

	if !cfg.Contains(r3.Vec{X: 1, Y: 0.1, Z: -0.1}) {
		t.Error("bounds should be closed")
	}
	if cfg.ContainsX(1.0001) {
		t.Error("x beyond end should be outside")
	}
	if cfg.ContainsYZ(r3.Vec{Y: 0.2}) {
		t.Error("y beyond end should be outside")
	}
}
