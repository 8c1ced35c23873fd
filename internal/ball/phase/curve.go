package phase

import (
	"github.com/banshee-data/pitchtrace/internal/ball/track"
)

// Point is a valid sample tagged with its frame.
type Point struct {
	Frame int
	Pos   track.Position
}

// curve is a piecewise-linear function of frame through at least two
// points with strictly increasing frames. Frames outside the knot range
// are linearly extrapolated from the nearest edge segment.
type curve []Point

func newCurve(pts []Point) (curve, bool) {
	if len(pts) < 2 {
		return nil, false
	}
	return curve(pts), true
}

// segment returns the index i such that [i, i+1] is the segment used for f.
func (c curve) segment(f float64) int {
	n := len(c)
	if f <= float64(c[0].Frame) {
		return 0
	}
	if f >= float64(c[n-1].Frame) {
		return n - 2
	}
	for i := 0; i < n-1; i++ {
		if f < float64(c[i+1].Frame) {
			return i
		}
	}
	return n - 2
}

// At evaluates the curve at frame f.
func (c curve) At(f float64) track.Position {
	i := c.segment(f)
	a, b := c[i], c[i+1]
	t := (f - float64(a.Frame)) / float64(b.Frame-a.Frame)
	return a.Pos.Lerp(b.Pos, t)
}

// Tangent returns the per-frame velocity of the segment used for f.
func (c curve) Tangent(f float64) track.Position {
	i := c.segment(f)
	a, b := c[i], c[i+1]
	return b.Pos.Sub(a.Pos).Scale(1 / float64(b.Frame-a.Frame))
}

// Densify samples the curve at every integer frame in [from, to].
func Densify(pts []Point, from, to int) []track.Position {
	c, ok := newCurve(pts)
	if !ok || to < from {
		return nil
	}
	out := make([]track.Position, 0, to-from+1)
	for f := from; f <= to; f++ {
		out = append(out, c.At(float64(f)))
	}
	return out
}

// Points lists the valid samples of arr in [from, to).
func Points(arr *track.Array, from, to int) []Point {
	var pts []Point
	if from < 0 {
		from = 0
	}
	if to > arr.Len() {
		to = arr.Len()
	}
	for i := from; i < to; i++ {
		if p, ok := arr.Position(i); ok {
			pts = append(pts, Point{Frame: i, Pos: p})
		}
	}
	return pts
}
