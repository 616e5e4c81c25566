// Package viz renders a live terminal view of a running simulation: a
// braille-dot projection of the particle cloud, a stats panel, and a scrolling
// energy graph. It drives the simulation itself, one frame per UI tick, so
// closing the view stops the run.
package viz
