package coils

import (
	"errors"
	"math"
	"sort"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/sim"
)

func TestNewKinds(t *testing.T) {
	tests := []struct {
		kind   string
		params Params
	}{
		{KindCoil, Params{"radius": 0.1, "length": 0.05, "windings": 10, "current": 1}},
		{KindRealCoil, Params{"radius": 0.1, "length": 0.05, "windings": 10, "wire_d": 1e-3}},
		{KindRectangularCoil, Params{"length": 0.1, "width": 0.1, "windings": 5}},
		{KindHelmholtzPair, Params{"radius": 0.2}},
		{KindCoilSet, nil},
		{KindSpinFlipper, Params{"length": 0.1, "width": 0.1, "windings": 5, "thickness": 0.02}},
		{KindPolariser, nil},
	}

	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			e, err := New(tt.kind, "", r3.Vec{X: 0.5}, tt.params)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.Kind() != tt.kind {
				t.Errorf("expected kind %q, got %q", tt.kind, e.Kind())
			}
			if e.Name() != tt.kind {
				t.Errorf("expected default name %q, got %q", tt.kind, e.Name())
			}
			if e.Position().X != 0.5 {
				t.Errorf("expected position x 0.5, got %g", e.Position().X)
			}
		})
	}
}

func TestNewInvalid(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		params Params
		want   string
	}{
		{"unknown kind", "toroid", nil, "toroid"},
		{"missing radius", KindCoil, Params{"length": 1, "windings": 1}, "radius"},
		{"zero length", KindCoil, Params{"radius": 1, "length": 0, "windings": 1}, "length"},
		{"negative windings", KindRealCoil, Params{"radius": 1, "length": 1, "windings": -3}, "windings"},
		{"negative wire", KindRealCoil, Params{"radius": 1, "length": 1, "windings": 1, "wire_d": -1}, "wire_d"},
		{"infinite current", KindCoil, Params{"radius": 1, "length": 1, "windings": 1, "current": math.Inf(1)}, "current"},
		{"nan current", KindHelmholtzPair, Params{"radius": 1, "current": math.NaN()}, "current"},
		{"missing width", KindRectangularCoil, Params{"length": 1, "windings": 1}, "width"},
		{"zero thickness", KindSpinFlipper, Params{"length": 1, "width": 1, "windings": 1, "thickness": 0}, "thickness"},
		{"bad coil set radius", KindCoilSet, Params{"inner_radius": -1}, "inner_radius"},
		{"negative gap", KindCoilSet, Params{"gap": -0.1}, "gap"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.kind, "x", r3.Vec{}, tt.params)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, sim.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error to mention %q, got %v", tt.want, err)
			}
		})
	}
}

func TestNewCoilSetOverrides(t *testing.T) {
	e, err := New(KindCoilSet, "box", r3.Vec{}, Params{"inner_windings": 200, "gap": 0.05, "current": 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s := e.(*CoilSet)
	if s.Geometry.InnerWindings != 200 || s.Geometry.Gap != 0.05 {
		t.Errorf("overrides not applied: %+v", s.Geometry)
	}
	if s.Geometry.OuterWindings != DefaultCoilSetGeometry().OuterWindings {
		t.Errorf("defaults lost: %+v", s.Geometry)
	}
	if s.Current() != 2 {
		t.Errorf("expected current 2, got %g", s.Current())
	}
}

func TestKindsSorted(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 7 {
		t.Errorf("expected 7 kinds, got %d: %v", len(kinds), kinds)
	}
	if !sort.StringsAreSorted(kinds) {
		t.Errorf("kinds not sorted: %v", kinds)
	}
}
