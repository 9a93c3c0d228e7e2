package field

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/neutronsim/internal/sim"
)

// Cache holds one field vector per grid point. A published cache is never
// mutated; Set is only used while a cache is being assembled.
type Cache struct {
	grid   *Grid
	values []r3.Vec
}

// NewCache returns an all-zero cache over g.
func NewCache(g *Grid) *Cache {
	return &Cache{grid: g, values: make([]r3.Vec, g.Len())}
}

func (c *Cache) Grid() *Grid { return c.grid }
func (c *Cache) Len() int    { return len(c.values) }

func (c *Cache) At(idx Index) r3.Vec            { return c.values[c.grid.Flat(idx)] }
func (c *Cache) Set(idx Index, b r3.Vec)        { c.values[c.grid.Flat(idx)] = b }
func (c *Cache) Point(idx Index) r3.Vec         { return c.grid.Point(idx) }
func (c *Cache) Values() []r3.Vec               { return c.values }
func (c *Cache) Contains(idx Index) bool        { return c.grid.Valid(idx) }
func (c *Cache) Nearest(p r3.Vec) Index         { return c.grid.Nearest(p) }
func (c *Cache) IndexOf(p r3.Vec) (Index, bool) { return c.grid.IndexOf(p) }

// Lookup returns the field at grid coordinate p. Coordinates that are not
// grid points of this cache yield a *sim.LookupError.
func (c *Cache) Lookup(p r3.Vec) (r3.Vec, error) {
	idx, ok := c.grid.IndexOf(p)
	if !ok {
		return r3.Vec{}, &sim.LookupError{Position: p, Reason: "not a grid point of the cached field"}
	}
	return c.At(idx), nil
}

// Keys lists every index in x-major order.
func (c *Cache) Keys() []Index {
	keys := make([]Index, len(c.values))
	for n := range keys {
		keys[n] = c.grid.Unflatten(n)
	}
	return keys
}

// AxisPoint is the field at one x coordinate of the beam axis.
type AxisPoint struct {
	X float64
	B r3.Vec
}

// AxisProfile returns the field along the grid line closest to y = z = 0.
func (c *Cache) AxisProfile() []AxisPoint {
	axis := c.grid.Nearest(r3.Vec{})
	out := make([]AxisPoint, len(c.grid.X))
	for i, x := range c.grid.X {
		out[i] = AxisPoint{X: x, B: c.At(Index{I: i, J: axis.J, K: axis.K})}
	}
	return out
}

// Equal reports whether both caches cover the same grid with identical values.
func (c *Cache) Equal(o *Cache) bool {
	if !c.grid.Equal(o.grid) || len(c.values) != len(o.values) {
		return false
	}
	for n := range c.values {
		if c.values[n] != o.values[n] {
			return false
		}
	}
	return true
}

func (c *Cache) String() string {
	nx, ny, nz := c.grid.Shape()
	return fmt.Sprintf("field cache %dx%dx%d", nx, ny, nz)
}
