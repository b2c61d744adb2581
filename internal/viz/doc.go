// Package viz renders benchmark results in the terminal.
//
//   - [SummaryTable]: lipgloss table of summary rows
//   - [PlotStage]: asciigraph line plot of one stage across measured steps
//   - [Browser]: Bubble Tea browser over summaries with a per-step plot
//
// # Key Bindings
//
//	↑/↓ j/k - Select summary row
//	Enter   - Load per-step plot
//	S       - Cycle plotted stage
//	T       - Cycle color themes
//	Q       - Quit
package viz
