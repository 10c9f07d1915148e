// Package lifecycle coordinates the order workflow of this process.
//
// Staff requests go through RequestTransition: the target is applied to the
// in-memory view first, then written to the record store with a
// compare-and-set on the previous status. A failed write runs the recorded
// undo, reloads the authoritative record and surfaces TransitionError.
//
// Remote changes arrive as reconciled facts through Run. They update the view
// when they carry a newer status-changed timestamp, and the first sighting of
// a Received order triggers automatic printing.
//
// Background side effects (status events, loyalty credit, automatic
// dispatch) never block or fail the transition that caused them.
package lifecycle
