// Package ui implements the interactive ESPKey log viewer.
//
// The viewer is a single Bubble Tea model showing decoded log entries in a
// scrollable viewport, one line per entry. Entries with a reconstructed time
// show it in local time; the rest show their raw device clock.
//
// # Keys
//
//	j/k, g/G, ctrl+d/u   scroll
//	f                    cycle the kind filter (all, data, aux, text)
//	/, n, N, esc         search (case-insensitive regex), next, previous, clear
//	T                    cycle theme
//	h/?                  help
//	q, ctrl+c            quit
//
// Theme and filter changes are written back to the prefs file. With a
// Refresher the log is refetched in full on the refresher's schedule and the
// view stays pinned to the newest entry if it was scrolled to the bottom.
package ui
