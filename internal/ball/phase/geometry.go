package phase

import (
	"math"

	"github.com/banshee-data/pitchtrace/internal/ball/track"
)

// Method names the technique used to place the contact point.
type Method string

const (
	MethodIntersection  Method = "intersection"
	MethodAveragedSlope Method = "averaged_slope"
)

const geomEpsilon = 1e-9

// TurningAngle returns the change of heading at b, in degrees [0, 180],
// along the path a→b→c. NaN when either leg has zero length.
func TurningAngle(a, b, c track.Position) float64 {
	u := b.Sub(a)
	v := c.Sub(b)
	return vectorAngle(u, v)
}

// LineAngle returns the acute angle in degrees [0, 90] between two lines
// with directions u and v. NaN when either direction has zero length.
func LineAngle(u, v track.Position) float64 {
	a := vectorAngle(u, v)
	if a > 90 {
		a = 180 - a
	}
	return a
}

func vectorAngle(u, v track.Position) float64 {
	nu, nv := u.Norm(), v.Norm()
	if nu < geomEpsilon || nv < geomEpsilon {
		return math.NaN()
	}
	cos := (u.X*v.X + u.Y*v.Y) / (nu * nv)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * 180 / math.Pi
}

// SelectMethod picks averaged-slope projection for nearly parallel lines
// (angle at most parallelDeg) and line intersection otherwise.
func SelectMethod(angleDeg, parallelDeg float64) Method {
	if angleDeg <= parallelDeg {
		return MethodAveragedSlope
	}
	return MethodIntersection
}

// Line is a point and a direction.
type Line struct {
	Point track.Position
	Dir   track.Position
}

// EstimateContact places the contact between the pitch and hit lines. The
// method chosen by SelectMethod is tried first and the other one second.
// ErrDegenerateGeometry is returned when neither yields a finite point.
func EstimateContact(pitch, hit Line, parallelDeg float64) (track.Position, Method, error) {
	angle := LineAngle(pitch.Dir, hit.Dir)
	if math.IsNaN(angle) {
		return track.Position{}, "", ErrDegenerateGeometry
	}

	first := SelectMethod(angle, parallelDeg)
	order := []Method{first, MethodIntersection}
	if first == MethodIntersection {
		order[1] = MethodAveragedSlope
	}

	for _, m := range order {
		var (
			p  track.Position
			ok bool
		)
		switch m {
		case MethodIntersection:
			p, ok = intersect(pitch, hit)
		case MethodAveragedSlope:
			p, ok = averagedSlope(pitch, hit)
		}
		if ok && p.IsFinite() {
			return p, m, nil
		}
	}
	return track.Position{}, "", ErrDegenerateGeometry
}

// intersect solves p1 + s·u = p2 + t·v.
func intersect(a, b Line) (track.Position, bool) {
	cross := a.Dir.X*b.Dir.Y - a.Dir.Y*b.Dir.X
	scale := a.Dir.Norm() * b.Dir.Norm()
	if scale < geomEpsilon || math.Abs(cross) < geomEpsilon*scale {
		return track.Position{}, false
	}
	d := b.Point.Sub(a.Point)
	s := (d.X*b.Dir.Y - d.Y*b.Dir.X) / cross
	return a.Point.Add(a.Dir.Scale(s)), true
}

// averagedSlope takes the midpoint x of the two anchor points and averages
// each line's y at that x.
func averagedSlope(a, b Line) (track.Position, bool) {
	if math.Abs(a.Dir.X) < geomEpsilon || math.Abs(b.Dir.X) < geomEpsilon {
		return track.Position{}, false
	}
	x := (a.Point.X + b.Point.X) / 2
	ya := a.Point.Y + a.Dir.Y/a.Dir.X*(x-a.Point.X)
	yb := b.Point.Y + b.Dir.Y/b.Dir.X*(x-b.Point.X)
	return track.Position{X: x, Y: (ya + yb) / 2}, true
}
