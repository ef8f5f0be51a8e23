// Package physics provides the vortex force model.
//
// A [ForceModel] sums four independent terms for every vortex:
//
//   - pinning: harmonic wells, F = Strength·Δ/Radius inside a site's radius
//   - repulsion: softened 2D point-vortex law, F = A/(r+ε) between pairs
//   - drive: uniform Lorentz force proportional to the applied current
//   - thermal: Gaussian kicks with variance 2ηT/Δt per component
//
// The same force law is used for every pinning topology so V-I curves are
// compared under one model.
//
// # Usage
//
//	fm, err := physics.NewForceModel(land, physics.DefaultParams())
//	f := fm.Forces(pos, current, rng)
//
// The model is read-only after construction; pass a separate *rand.Rand per
// run when running sweeps concurrently.
package physics
