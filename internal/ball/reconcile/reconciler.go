// Package reconcile turns a raw per-frame track into the final dense,
// smoothed, terminated track drawn by the overlay.
package reconcile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/banshee-data/pitchtrace/internal/ball/kalman"
	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/config"
	"github.com/banshee-data/pitchtrace/internal/monitoring"
)

// ErrTooFewPoints is returned by Densify with fewer than two points.
var ErrTooFewPoints = errors.New("too few points to densify")

var logf = monitoring.Prefixed("reconcile")

// PhaseParams holds per-phase reconciliation settings.
type PhaseParams struct {
	Alpha           float64 // smoothing blend toward the polynomial fit
	MaxDisplacement float64 // px per frame beyond which a sample is an outlier
	Estimator       kalman.EstimatorConfig
}

// Config holds reconciler settings.
type Config struct {
	Pitch          PhaseParams
	Hit            PhaseParams
	Degree         int
	TrailingFrames int
}

// ConfigFromTuning builds a Config from tuning values.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Pitch: PhaseParams{
			Alpha:           cfg.GetPitchSmoothingAlpha(),
			MaxDisplacement: cfg.GetPitchMaxDisplacement(),
			Estimator:       kalman.ConfigFor(cfg, track.PhasePitch),
		},
		Hit: PhaseParams{
			Alpha:           cfg.GetHitSmoothingAlpha(),
			MaxDisplacement: cfg.GetHitMaxDisplacement(),
			Estimator:       kalman.ConfigFor(cfg, track.PhaseHit),
		},
		Degree:         cfg.GetSmoothingDegree(),
		TrailingFrames: cfg.GetTrailingFrames(),
	}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// For returns the parameters of a phase.
func (c Config) For(kind track.PhaseKind) PhaseParams {
	if kind == track.PhaseHit {
		return c.Hit
	}
	return c.Pitch
}

// Span is a half-open frame range belonging to one phase.
type Span struct {
	Kind     track.PhaseKind
	From, To int
}

// Spans splits a clip of n frames at the boundary. A nil boundary yields a
// single pitch span.
func Spans(n int, b *phase.Boundary) []Span {
	if b == nil {
		return []Span{{Kind: track.PhasePitch, From: 0, To: n}}
	}
	return []Span{
		{Kind: track.PhasePitch, From: 0, To: b.ReleaseFrame + 1},
		{Kind: track.PhaseHit, From: b.HitFrame, To: n},
	}
}

// Reconciler produces final tracks.
type Reconciler struct {
	cfg Config
}

// New returns a Reconciler using cfg.
func New(cfg Config) *Reconciler {
	return &Reconciler{cfg: cfg}
}

// Config returns the reconciler settings.
func (r *Reconciler) Config() Config { return r.cfg }

// Reconcile rejects outliers, fills gaps, anchors the contact, smooths each
// phase, extends the track past the last detection and terminates it. The
// input is not modified.
func (r *Reconciler) Reconcile(raw *track.Array, b *phase.Boundary) (*track.Array, error) {
	out := raw.Clone()
	spans := Spans(out.Len(), b)

	for _, sp := range spans {
		params := r.cfg.For(sp.Kind)
		rejected := RejectOutliers(out, sp, params.MaxDisplacement)
		if rejected > 0 {
			logf("%s: rejected %d outliers", sp.Kind, rejected)
		}
		if sp.Kind == track.PhaseHit && b != nil {
			if _, ok := out.Position(b.HitFrame); !ok {
				if err := out.Set(b.HitFrame, b.HitPoint); err != nil {
					return nil, fmt.Errorf("anchor hit frame: %w", err)
				}
			}
		}
		FillGaps(out, sp)
		if err := r.smoothSpan(out, sp, params.Alpha); err != nil {
			return nil, err
		}
	}

	last := spans[len(spans)-1]
	if err := r.extendTrailing(out, last); err != nil {
		return nil, err
	}
	if lv := out.LastValid(); lv >= 0 {
		out.Terminate(lv + 1)
	}
	return out, nil
}

// Densify builds a track of n frames from sparse points: linear
// interpolation between them, smoothing with the phase's strength, and an
// end marker after the last point.
func (r *Reconciler) Densify(n int, pts []phase.Point, kind track.PhaseKind) (*track.Array, error) {
	clean, err := sparsePoints(n, pts)
	if err != nil {
		return nil, err
	}
	out := track.NewArray(n)
	sp := Span{Kind: kind, From: clean[0].Frame, To: clean[len(clean)-1].Frame + 1}
	if err := r.densifySpan(out, clean, sp); err != nil {
		return nil, err
	}
	out.Terminate(sp.To)
	return out, nil
}

// DensifyContact builds a contact-clip track from sparse points. The
// points are split where x reverses and each phase is densified and
// smoothed on its own, so the last pitch point and the first hit point are
// kept as marked. Frames between the two are interpolated. Points that
// never reverse are treated as a pitch.
func (r *Reconciler) DensifyContact(n int, pts []phase.Point) (*track.Array, error) {
	clean, err := sparsePoints(n, pts)
	if err != nil {
		return nil, err
	}
	pitch, hit, ok := phase.SplitReversal(clean)
	if !ok {
		logf("no reversal in %d marked points, densifying as one pitch", len(clean))
		return r.Densify(n, clean, track.PhasePitch)
	}

	out := track.NewArray(n)
	release := pitch[len(pitch)-1].Frame
	spans := []Span{
		{Kind: track.PhasePitch, From: pitch[0].Frame, To: release + 1},
		{Kind: track.PhaseHit, From: hit[0].Frame, To: hit[len(hit)-1].Frame + 1},
	}
	if err := r.densifySpan(out, pitch, spans[0]); err != nil {
		return nil, err
	}
	if err := r.densifySpan(out, hit, spans[1]); err != nil {
		return nil, err
	}
	FillGaps(out, Span{From: release, To: hit[0].Frame + 1})
	out.Terminate(spans[1].To)
	return out, nil
}

// sparsePoints keeps the finite in-range points sorted by frame. Later
// points win on duplicate frames.
func sparsePoints(n int, pts []phase.Point) ([]phase.Point, error) {
	sorted := make([]phase.Point, 0, len(pts))
	for _, p := range pts {
		if p.Frame >= 0 && p.Frame < n && p.Pos.IsFinite() {
			sorted = append(sorted, p)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Frame < sorted[j].Frame })
	dedup := sorted[:0]
	for _, p := range sorted {
		if k := len(dedup); k > 0 && dedup[k-1].Frame == p.Frame {
			dedup[k-1] = p
			continue
		}
		dedup = append(dedup, p)
	}
	if len(dedup) < 2 {
		return nil, fmt.Errorf("%d points: %w", len(dedup), ErrTooFewPoints)
	}
	return dedup, nil
}

func (r *Reconciler) densifySpan(out *track.Array, pts []phase.Point, sp Span) error {
	for _, p := range pts {
		if err := out.Set(p.Frame, p.Pos); err != nil {
			return err
		}
	}
	FillGaps(out, sp)
	return r.smoothSpan(out, sp, r.cfg.For(sp.Kind).Alpha)
}

// RejectOutliers clears samples in sp that jump further than maxDisp per
// elapsed frame from the previous kept sample. Returns the number cleared.
func RejectOutliers(arr *track.Array, sp Span, maxDisp float64) int {
	if maxDisp <= 0 {
		return 0
	}
	rejected := 0
	prevFrame := -1
	var prev track.Position
	for f := sp.From; f < sp.To; f++ {
		p, ok := arr.Position(f)
		if !ok {
			continue
		}
		if prevFrame >= 0 && p.Dist(prev) > maxDisp*float64(f-prevFrame) {
			arr.Clear(f)
			rejected++
			continue
		}
		prev, prevFrame = p, f
	}
	return rejected
}

// FillGaps linearly interpolates unknown frames lying between known frames
// of sp. Leading and trailing unknowns are left alone.
func FillGaps(arr *track.Array, sp Span) {
	prevFrame := -1
	var prev track.Position
	for f := sp.From; f < sp.To; f++ {
		p, ok := arr.Position(f)
		if !ok {
			continue
		}
		if prevFrame >= 0 && f-prevFrame > 1 {
			gap := float64(f - prevFrame)
			for g := prevFrame + 1; g < f; g++ {
				_ = arr.Set(g, prev.Lerp(p, float64(g-prevFrame)/gap))
			}
		}
		prev, prevFrame = p, f
	}
}

func (r *Reconciler) smoothSpan(arr *track.Array, sp Span, alpha float64) error {
	pts := phase.Points(arr, sp.From, sp.To)
	if len(pts) < 3 {
		return nil
	}
	raw := make([]track.Position, len(pts))
	for i, p := range pts {
		raw[i] = p.Pos
	}
	for i, p := range Smooth(raw, alpha, r.cfg.Degree) {
		if err := arr.Set(pts[i].Frame, p); err != nil {
			return fmt.Errorf("smooth %s frame %d: %w", sp.Kind, pts[i].Frame, err)
		}
	}
	return nil
}

// extendTrailing runs the phase estimator over the final span and writes
// up to TrailingFrames predicted positions after its last known frame.
func (r *Reconciler) extendTrailing(arr *track.Array, sp Span) error {
	if r.cfg.TrailingFrames <= 0 {
		return nil
	}
	pts := phase.Points(arr, sp.From, sp.To)
	if len(pts) < 2 {
		return nil
	}
	last := pts[len(pts)-1].Frame
	room := arr.Len() - 1 - last
	if room <= 0 {
		return nil
	}

	est := kalman.NewEstimator(r.cfg.For(sp.Kind).Estimator)
	next := pts[0].Frame
	for _, p := range pts {
		for next < p.Frame {
			est.Predict()
			est.Miss()
			next++
		}
		if next > pts[0].Frame {
			est.Predict()
		}
		if err := est.Correct(p.Frame, p.Pos); err != nil {
			if errors.Is(err, kalman.ErrLost) {
				return nil
			}
			logf("trailing estimator rejected frame %d: %v", p.Frame, err)
		}
		next = p.Frame + 1
	}

	n := r.cfg.TrailingFrames
	if n > room {
		n = room
	}
	for i, p := range est.Extrapolate(n) {
		if err := arr.Set(last+1+i, p); err != nil {
			return fmt.Errorf("trailing frame %d: %w", last+1+i, err)
		}
	}
	return nil
}
