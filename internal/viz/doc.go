// Package viz renders vortex simulations in the terminal.
//
//   - [VIChart]: asciigraph plot of the V-I curves of a sweep
//   - [SummaryTable]: lipgloss table of critical currents and ohmic slopes
//   - [Canvas]: Braille-based pixel canvas with a domain [Projection]
//   - [Model]: bubbletea live view stepping a [sim.Session]
//
// # Key Bindings
//
//	Space - Pause/Resume
//	Up/K  - Raise the applied current
//	Down/J - Lower the applied current
//	Tab   - Next pinning topology
//	R     - Restart from the initial layout
//	T     - Cycle color themes
//	S     - Save an SVG snapshot with trails
//	?     - Show help
package viz
