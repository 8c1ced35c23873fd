package kalman

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"gonum.org/v1/gonum/mat"
)

// Internal numerical stability constants — not user-tunable.
const (
	// MinDeterminantThreshold is the minimum determinant for innovation covariance inversion
	MinDeterminantThreshold = 1e-9
)

var (
	// ErrSingular is returned when the innovation covariance cannot be inverted.
	ErrSingular = errors.New("singular innovation covariance")
	// ErrNonFinite is returned when an update would produce NaN or Inf state.
	ErrNonFinite = errors.New("non-finite filter state")
)

// Supported state dimensions.
const (
	DimConstantVelocity     = 4 // x, y, vx, vy
	DimConstantAcceleration = 6 // x, y, vx, vy, ax, ay
)

// Model parameterises a Filter. Phase tuning is expressed entirely as a
// Model value.
type Model struct {
	Dim               int
	ProcessNoise      float64 // added to every diagonal element per frame
	MeasurementNoise  float64 // pixel² on x and y
	InitialPosVar     float64
	InitialVelVar     float64
	MaxCovarianceDiag float64 // 0 disables the cap
}

// Validate checks the model can build a filter.
func (m Model) Validate() error {
	if m.Dim != DimConstantVelocity && m.Dim != DimConstantAcceleration {
		return fmt.Errorf("unsupported state dimension %d", m.Dim)
	}
	if m.MeasurementNoise <= 0 {
		return fmt.Errorf("measurement noise must be positive, got %f", m.MeasurementNoise)
	}
	if m.ProcessNoise < 0 || m.InitialPosVar < 0 || m.InitialVelVar < 0 {
		return fmt.Errorf("noise and variance terms must be non-negative")
	}
	return nil
}

// Filter is a linear Kalman filter with a one-frame time step whose
// measurement is the (x, y) position.
type Filter struct {
	model Model

	x *mat.VecDense // state
	p *mat.Dense    // covariance

	f *mat.Dense // transition
	q *mat.Dense // process noise
	h *mat.Dense // measurement
	r *mat.Dense // measurement noise
}

// NewFilter builds a filter at pos moving with vel. Acceleration, when
// modelled, starts at zero.
func NewFilter(m Model, pos, vel track.Position) (*Filter, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	n := m.Dim

	x := mat.NewVecDense(n, nil)
	x.SetVec(0, pos.X)
	x.SetVec(1, pos.Y)
	x.SetVec(2, vel.X)
	x.SetVec(3, vel.Y)

	p := mat.NewDense(n, n, nil)
	p.Set(0, 0, m.InitialPosVar)
	p.Set(1, 1, m.InitialPosVar)
	for i := 2; i < n; i++ {
		p.Set(i, i, m.InitialVelVar)
	}

	// F = [I  I  ½I]
	//     [0  I   I]
	//     [0  0   I]   (acceleration block only when Dim == 6)
	f := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		f.Set(i, i, 1)
	}
	f.Set(0, 2, 1)
	f.Set(1, 3, 1)
	if n == DimConstantAcceleration {
		f.Set(0, 4, 0.5)
		f.Set(1, 5, 0.5)
		f.Set(2, 4, 1)
		f.Set(3, 5, 1)
	}

	q := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		q.Set(i, i, m.ProcessNoise)
	}

	h := mat.NewDense(2, n, nil)
	h.Set(0, 0, 1)
	h.Set(1, 1, 1)

	r := mat.NewDense(2, 2, []float64{m.MeasurementNoise, 0, 0, m.MeasurementNoise})

	return &Filter{model: m, x: x, p: p, f: f, q: q, h: h, r: r}, nil
}

// Model returns the filter's parameters.
func (f *Filter) Model() Model { return f.model }

// Position returns the current position estimate.
func (f *Filter) Position() track.Position {
	return track.Position{X: f.x.AtVec(0), Y: f.x.AtVec(1)}
}

// Velocity returns the current velocity estimate in pixels per frame.
func (f *Filter) Velocity() track.Position {
	return track.Position{X: f.x.AtVec(2), Y: f.x.AtVec(3)}
}

// Acceleration returns the acceleration estimate, zero for the 4-state model.
func (f *Filter) Acceleration() track.Position {
	if f.model.Dim != DimConstantAcceleration {
		return track.Position{}
	}
	return track.Position{X: f.x.AtVec(4), Y: f.x.AtVec(5)}
}

// PositionVariance returns the covariance diagonal for x and y.
func (f *Filter) PositionVariance() (float64, float64) {
	return f.p.At(0, 0), f.p.At(1, 1)
}

// Predict advances the state by one frame: x = Fx, P = FPFᵀ + Q.
func (f *Filter) Predict() track.Position {
	var x mat.VecDense
	x.MulVec(f.f, f.x)
	f.x = &x

	var fp, fpft mat.Dense
	fp.Mul(f.f, f.p)
	fpft.Mul(&fp, f.f.T())
	fpft.Add(&fpft, f.q)
	f.p = &fpft

	if max := f.model.MaxCovarianceDiag; max > 0 {
		for i := 0; i < f.model.Dim; i++ {
			if f.p.At(i, i) > max {
				f.p.Set(i, i, max)
			}
		}
	}
	return f.Position()
}

// Correct folds a position measurement into the state. On error the state
// is left as it was before the call.
func (f *Filter) Correct(z track.Position) (track.Position, error) {
	zv := mat.NewVecDense(2, []float64{z.X, z.Y})

	// Innovation y = z - Hx
	var hx, y mat.VecDense
	hx.MulVec(f.h, f.x)
	y.SubVec(zv, &hx)

	// S = HPHᵀ + R
	var hp, s mat.Dense
	hp.Mul(f.h, f.p)
	s.Mul(&hp, f.h.T())
	s.Add(&s, f.r)

	if det := mat.Det(&s); math.Abs(det) < MinDeterminantThreshold {
		return f.Position(), ErrSingular
	}
	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return f.Position(), fmt.Errorf("%w: %v", ErrSingular, err)
	}

	// K = PHᵀS⁻¹
	var pht, k mat.Dense
	pht.Mul(f.p, f.h.T())
	k.Mul(&pht, &sInv)

	// x' = x + Ky
	var ky, x mat.VecDense
	ky.MulVec(&k, &y)
	x.AddVec(f.x, &ky)

	// P' = (I - KH)P
	n := f.model.Dim
	var kh, ikh, p mat.Dense
	kh.Mul(&k, f.h)
	ikh.Sub(identity(n), &kh)
	p.Mul(&ikh, f.p)

	if !finiteVec(&x) || !finiteDiag(&p) {
		return f.Position(), ErrNonFinite
	}
	f.x = &x
	f.p = &p
	return f.Position(), nil
}

// MahalanobisSquared returns the squared Mahalanobis distance of z from
// the current predicted measurement.
func (f *Filter) MahalanobisSquared(z track.Position) (float64, error) {
	var hx mat.VecDense
	hx.MulVec(f.h, f.x)
	dx := z.X - hx.AtVec(0)
	dy := z.Y - hx.AtVec(1)

	var hp, s mat.Dense
	hp.Mul(f.h, f.p)
	s.Mul(&hp, f.h.T())
	s.Add(&s, f.r)

	var sInv mat.Dense
	if err := sInv.Inverse(&s); err != nil {
		return math.Inf(1), ErrSingular
	}
	d := mat.NewVecDense(2, []float64{dx, dy})
	return mat.Inner(d, &sInv, d), nil
}

// Clone returns an independent copy of the filter.
func (f *Filter) Clone() *Filter {
	return &Filter{
		model: f.model,
		x:     mat.VecDenseCopyOf(f.x),
		p:     mat.DenseCopyOf(f.p),
		f:     f.f,
		q:     f.q,
		h:     f.h,
		r:     f.r,
	}
}

func identity(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		m.Set(i, i, 1)
	}
	return m
}

func finiteVec(v *mat.VecDense) bool {
	for i := 0; i < v.Len(); i++ {
		x := v.AtVec(i)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func finiteDiag(m *mat.Dense) bool {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		x := m.At(i, i)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
