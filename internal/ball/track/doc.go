// Package track owns the data model shared by every ball-tracking layer.
//
// Responsibilities: per-frame position samples, the fixed-length track
// array with its single end marker, and the closed enums that select
// phase and clip behaviour.
// Key types: Position, Sample, Array, PhaseKind, ClipKind, Hand.
//
// Dependency rule: track depends on nothing else in internal/ball.
package track
