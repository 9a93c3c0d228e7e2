// Package analysis provides spectral tools for polarisation profiles.
//
// A neutron precessing in a static field traces a sinusoid in the transverse
// polarisation components along the beam axis. Its spatial frequency follows
// from the field integral:
//
//	f = Gamma * B / (2 * pi * v)
//
// [DominantFrequency] recovers f from a sampled profile, [PowerSpectrum]
// returns the magnitude spectrum it is read from.
//
//	xs, py := analysis.Series(profile, analysis.Y)
//	f, err := analysis.DominantFrequency(py, xs[1]-xs[0])
package analysis
