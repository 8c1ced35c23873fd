package reconcile

import (
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Smooth blends each position's y toward a least-squares polynomial of
// the given degree in normalised x:
//
//	y = (1-α)·y_raw + α·f((x-mean)/std)
//
// The first and last positions are returned unchanged. The input is
// returned as a copy without smoothing when there are too few points to
// overdetermine the fit or x has no spread.
func Smooth(pts []track.Position, alpha float64, degree int) []track.Position {
	out := make([]track.Position, len(pts))
	copy(out, pts)
	if alpha <= 0 || degree < 1 || len(pts) < degree+2 {
		return out
	}

	xs := make([]float64, len(pts))
	ys := make([]float64, len(pts))
	for i, p := range pts {
		xs[i], ys[i] = p.X, p.Y
	}
	mean, std := stat.MeanStdDev(xs, nil)
	if std == 0 {
		return out
	}

	cols := degree + 1
	a := mat.NewDense(len(pts), cols, nil)
	for i, x := range xs {
		u := (x - mean) / std
		v := 1.0
		for j := 0; j < cols; j++ {
			a.Set(i, j, v)
			v *= u
		}
	}

	var coef mat.VecDense
	if err := coef.SolveVec(a, mat.NewVecDense(len(ys), ys)); err != nil {
		return out
	}

	var fit mat.VecDense
	fit.MulVec(a, &coef)
	for i := 1; i < len(pts)-1; i++ {
		y := (1-alpha)*ys[i] + alpha*fit.AtVec(i)
		out[i] = track.Position{X: xs[i], Y: y}
	}
	return out
}
