// Package beam creates a population of neutrons and steps it through a
// cached magnetic field, precessing each polarisation about the local field.
//
// One call to [Beam.ComputeBeam] advances every live neutron by one grid cell
// along x. Neutrons that leave the grid are dropped from the population and
// the drop is logged; it is never an error. A field lookup that misses the
// cache aborts the pass with a *sim.LookupError.
package beam
