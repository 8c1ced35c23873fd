package track

import (
	"errors"
	"fmt"
	"math"
)

// ErrAfterEnd is returned when writing a sample at or beyond the end marker.
var ErrAfterEnd = errors.New("sample at or after track end")

// Position is a point in full-frame pixel coordinates.
type Position struct {
	X float64
	Y float64
}

// Add returns p+q.
func (p Position) Add(q Position) Position { return Position{X: p.X + q.X, Y: p.Y + q.Y} }

// Sub returns p-q.
func (p Position) Sub(q Position) Position { return Position{X: p.X - q.X, Y: p.Y - q.Y} }

// Scale returns p*k.
func (p Position) Scale(k float64) Position { return Position{X: p.X * k, Y: p.Y * k} }

// Norm returns the Euclidean length of p treated as a vector.
func (p Position) Norm() float64 { return math.Hypot(p.X, p.Y) }

// Dist returns the Euclidean distance between p and q.
func (p Position) Dist(q Position) float64 { return p.Sub(q).Norm() }

// Lerp interpolates between p (t=0) and q (t=1).
func (p Position) Lerp(q Position, t float64) Position {
	return Position{X: p.X + (q.X-p.X)*t, Y: p.Y + (q.Y-p.Y)*t}
}

// IsFinite reports whether both coordinates are finite numbers.
func (p Position) IsFinite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

func (p Position) String() string { return fmt.Sprintf("(%.1f,%.1f)", p.X, p.Y) }

// Sample is an optional position: either a valid coordinate or unknown.
// The zero value is unknown.
type Sample struct {
	pos   Position
	valid bool
}

// Some wraps a known position.
func Some(p Position) Sample { return Sample{pos: p, valid: true} }

// None is the unknown sample.
func None() Sample { return Sample{} }

// Get returns the position and whether it is known.
func (s Sample) Get() (Position, bool) { return s.pos, s.valid }

// Valid reports whether the sample holds a position.
func (s Sample) Valid() bool { return s.valid }

// Array is a per-frame sequence of samples whose length is fixed for the
// lifetime of a clip. An Array may carry one end marker: the index from
// which no further information exists. Samples at or after the end are
// always unknown.
type Array struct {
	samples []Sample
	end     int // len(samples) when unterminated
}

// NewArray returns an unterminated Array of n unknown samples.
func NewArray(n int) *Array {
	if n < 0 {
		n = 0
	}
	return &Array{samples: make([]Sample, n), end: n}
}

// Len returns the number of frames. It never changes.
func (a *Array) Len() int { return len(a.samples) }

// At returns the sample for frame i; out-of-range frames are unknown.
func (a *Array) At(i int) Sample {
	if i < 0 || i >= len(a.samples) {
		return None()
	}
	return a.samples[i]
}

// Position returns the position at frame i and whether it is known.
func (a *Array) Position(i int) (Position, bool) { return a.At(i).Get() }

// Set stores a known position at frame i.
func (a *Array) Set(i int, p Position) error {
	if i < 0 || i >= len(a.samples) {
		return fmt.Errorf("frame %d outside track of length %d", i, len(a.samples))
	}
	if i >= a.end {
		return fmt.Errorf("frame %d (end %d): %w", i, a.end, ErrAfterEnd)
	}
	if !p.IsFinite() {
		return fmt.Errorf("frame %d: non-finite position %v", i, p)
	}
	a.samples[i] = Some(p)
	return nil
}

// Clear marks frame i unknown.
func (a *Array) Clear(i int) {
	if i >= 0 && i < len(a.samples) {
		a.samples[i] = None()
	}
}

// Terminate places the end marker at frame i and clears every sample from
// i onward. Terminating twice moves the marker; the earlier of the two wins
// because cleared samples cannot be restored.
func (a *Array) Terminate(i int) {
	if i < 0 {
		i = 0
	}
	if i >= len(a.samples) {
		return
	}
	if i > a.end {
		i = a.end
	}
	for j := i; j < len(a.samples); j++ {
		a.samples[j] = None()
	}
	a.end = i
}

// End returns the end marker index and whether the Array is terminated.
func (a *Array) End() (int, bool) { return a.end, a.end < len(a.samples) }

// ValidFrames returns the indices of known samples in ascending order.
func (a *Array) ValidFrames() []int {
	var out []int
	for i, s := range a.samples {
		if s.valid {
			out = append(out, i)
		}
	}
	return out
}

// CountValid returns the number of known samples.
func (a *Array) CountValid() int {
	n := 0
	for _, s := range a.samples {
		if s.valid {
			n++
		}
	}
	return n
}

// FirstValid returns the first known frame index, or -1.
func (a *Array) FirstValid() int {
	for i, s := range a.samples {
		if s.valid {
			return i
		}
	}
	return -1
}

// LastValid returns the last known frame index, or -1.
func (a *Array) LastValid() int {
	for i := len(a.samples) - 1; i >= 0; i-- {
		if a.samples[i].valid {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	out := &Array{samples: make([]Sample, len(a.samples)), end: a.end}
	copy(out.samples, a.samples)
	return out
}

// Equal reports whether a and b have the same length, end marker and
// samples.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.end != b.end || len(a.samples) != len(b.samples) {
		return false
	}
	for i := range a.samples {
		if a.samples[i] != b.samples[i] {
			return false
		}
	}
	return true
}

// MaxJump returns the largest distance between known samples on adjacent
// frames within [from, to]. Pairs separated by unknown frames are skipped.
func (a *Array) MaxJump(from, to int) float64 {
	var maxJump float64
	for i := from + 1; i <= to && i < len(a.samples); i++ {
		if i-1 < 0 {
			continue
		}
		p, ok1 := a.Position(i - 1)
		q, ok2 := a.Position(i)
		if ok1 && ok2 {
			if d := p.Dist(q); d > maxJump {
				maxJump = d
			}
		}
	}
	return maxJump
}
