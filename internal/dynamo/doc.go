// Package dynamo provides the core primitives shared by the vortex engine.
//
// The package defines the types every other engine package is written
// against:
//
//   - [Vec] and [Positions]: vortex coordinates in the plane
//   - [Domain]: the bounded simulation rectangle and its [Boundary] policy
//   - [ForceField]: net force evaluation for a configuration
//   - [Integrator]: overdamped time stepping
//   - [Metric] and [Observer]: measurement and per-step hooks
//
// # Errors
//
// Configuration problems wrap [ErrConfig], numerical blow-ups wrap
// [ErrDiverged] inside a [SimulationError], and impossible pinning layouts
// wrap [ErrGeometry]. Test with errors.Is.
//
// # Thread Safety
//
// Domain and Positions are plain values. A Positions slice returned by an
// integrator is owned by the caller and never touched again by the engine.
package dynamo
