// Package viz shows a running simulation in the terminal.
//
// The live view is a Bubble Tea program fed by a [Feed] observer attached
// to the simulator:
//
//   - [Model]: particle view, energy trace and group temperatures
//   - [Picker]: menu to choose a system and preset before a run
//   - [Canvas]: Braille-based pixel canvas for the particle view
//   - [Plot]: asciigraph chart of a recorded column
//
// # Key Bindings
//
//	Tab   - Cycle the traced quantity
//	T     - Cycle color themes
//	X/Y/Z - Rotate the box (shift reverses)
//	+/-   - Zoom
//	?     - Show help overlay
//	Q     - Stop the run
package viz
