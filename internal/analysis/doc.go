// Package analysis reduces V-I curves to the figures of merit used to
// compare pinning topologies.
//
//   - [CriticalCurrent]: depinning current at a voltage criterion
//   - [OhmicFit]: flux-flow resistance from the linear tail of a curve
//   - [DifferentialResistance]: finite-difference dV/dJ
//   - [Summarize]: all of the above per topology
//
// # Criterion
//
// The critical current is the first current at which the voltage crosses
// the threshold, interpolated linearly between the bracketing samples:
//
//	ic, ok := analysis.CriticalCurrent(curve, 0.05)
//	if !ok {
//	    // curve never depins in the swept range
//	}
package analysis
