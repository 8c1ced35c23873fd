package phase

import (
	"errors"
	"fmt"
	"math"

	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/config"
	"github.com/banshee-data/pitchtrace/internal/monitoring"
)

var (
	// ErrInsufficientDetections is returned when either phase has fewer
	// than two valid points.
	ErrInsufficientDetections = errors.New("insufficient detections")
	// ErrDegenerateGeometry is returned when no contact method yields a point.
	ErrDegenerateGeometry = errors.New("degenerate contact geometry")
	// ErrContactInconsistent is returned when the contact point still
	// crosses the pitch curve after the allowed release back-steps.
	ErrContactInconsistent = errors.New("contact point inconsistent with pitch curve")
)

var logf = monitoring.Prefixed("phase")

// Config holds segmentation thresholds.
type Config struct {
	TailTurnDeg         float64 // drop the last pitch point while the tail turns this much
	ParallelDeg         float64 // tangent angle at or below which the curves count as parallel
	CrossTolerancePx    float64 // allowed overshoot of contact beyond the release position
	MaxReleaseBacksteps int
	ContactSearchFrames int // frames either side of release searched for closest approach
}

// ConfigFromTuning builds a Config from tuning values.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		TailTurnDeg:         cfg.GetTailTurnDeg(),
		ParallelDeg:         cfg.GetParallelDeg(),
		CrossTolerancePx:    cfg.GetCrossTolerancePx(),
		MaxReleaseBacksteps: cfg.GetMaxReleaseBacksteps(),
		ContactSearchFrames: cfg.GetContactSearchFrames(),
	}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// Boundary is where a contact clip splits into pitch and hit phases.
type Boundary struct {
	ReleaseFrame int // last frame of the pitch phase
	HitFrame     int // always ReleaseFrame+1
	HitPoint     track.Position
	Method       Method
}

func (b Boundary) String() string {
	return fmt.Sprintf("release=%d hit=%d point=%v method=%s", b.ReleaseFrame, b.HitFrame, b.HitPoint, b.Method)
}

// Segmenter splits a raw contact-clip track at the contact event.
type Segmenter struct {
	cfg Config
}

// NewSegmenter returns a Segmenter using cfg.
func NewSegmenter(cfg Config) *Segmenter {
	return &Segmenter{cfg: cfg}
}

// Segment locates the release frame and contact point in arr.
func (s *Segmenter) Segment(arr *track.Array, hand track.Hand) (Boundary, error) {
	all := Points(arr, 0, arr.Len())
	pitch := PitchRun(all, hand.PitchDirection())
	pitch = s.trimTail(pitch)
	if len(pitch) < 2 {
		return Boundary{}, fmt.Errorf("pitch segment has %d points: %w", len(pitch), ErrInsufficientDetections)
	}

	release := pitch[len(pitch)-1].Frame
	dir := hand.PitchDirection()
	for step := 0; step <= s.cfg.MaxReleaseBacksteps; step++ {
		pitchPts, hitPts := splitAt(all, release)
		if len(pitchPts) < 2 || len(hitPts) < 2 {
			return Boundary{}, fmt.Errorf("release %d: %d pitch / %d hit points: %w",
				release, len(pitchPts), len(hitPts), ErrInsufficientDetections)
		}

		hitPoint, method, err := s.contact(pitchPts, hitPts, release)
		if err != nil {
			return Boundary{}, fmt.Errorf("release %d: %w", release, err)
		}

		pc := curve(pitchPts)
		overshoot := (hitPoint.X - pc.At(float64(release)).X) * dir
		if overshoot <= s.cfg.CrossTolerancePx {
			return Boundary{
				ReleaseFrame: release,
				HitFrame:     release + 1,
				HitPoint:     hitPoint,
				Method:       method,
			}, nil
		}
		logf("contact %v overshoots release %d by %.1fpx, stepping back", hitPoint, release, overshoot)
		release--
	}
	return Boundary{}, fmt.Errorf("after %d back-steps: %w", s.cfg.MaxReleaseBacksteps, ErrContactInconsistent)
}

// PitchRun returns the leading points whose x moves strictly in direction
// dir (−1 or +1). Unknown frames are already absent from pts.
func PitchRun(pts []Point, dir float64) []Point {
	if len(pts) == 0 {
		return nil
	}
	n := 1
	for n < len(pts) && (pts[n].Pos.X-pts[n-1].Pos.X)*dir > 0 {
		n++
	}
	return pts[:n]
}

// SplitReversal splits sparse points at the first reversal of x. The
// turning point goes to whichever side's neighbouring segment predicts it
// more closely, the pitch side when either prediction is unavailable.
// ok is false when x never reverses or either side ends with fewer than
// two points.
func SplitReversal(pts []Point) (pitch, hit []Point, ok bool) {
	if len(pts) < 4 {
		return nil, nil, false
	}
	dir := 1.0
	if pts[1].Pos.X < pts[0].Pos.X {
		dir = -1
	}
	run := PitchRun(pts, dir)
	m := len(run)
	if m == len(pts) {
		return nil, nil, false
	}

	turn := pts[m-1]
	if m >= 3 && len(pts)-m >= 2 {
		fromPitch := curve(pts[m-3 : m-1]).At(float64(turn.Frame))
		fromHit := curve(pts[m : m+2]).At(float64(turn.Frame))
		if turn.Pos.Dist(fromHit) < turn.Pos.Dist(fromPitch) {
			m--
		}
	}
	pitch, hit = pts[:m], pts[m:]
	if len(pitch) < 2 || len(hit) < 2 {
		return nil, nil, false
	}
	return pitch, hit, true
}

// trimTail drops trailing points while the last three turn by at least
// TailTurnDeg.
func (s *Segmenter) trimTail(pts []Point) []Point {
	for len(pts) >= 3 {
		n := len(pts)
		a := TurningAngle(pts[n-3].Pos, pts[n-2].Pos, pts[n-1].Pos)
		if !math.IsNaN(a) && a < s.cfg.TailTurnDeg {
			break
		}
		pts = pts[:n-1]
	}
	return pts
}

// contact finds the frame of closest approach between the densified pitch
// and hit curves near release and estimates the contact point there.
func (s *Segmenter) contact(pitchPts, hitPts []Point, release int) (track.Position, Method, error) {
	pc, _ := newCurve(pitchPts)
	hc, _ := newCurve(hitPts)

	lo := release - s.cfg.ContactSearchFrames
	if lo < pitchPts[0].Frame {
		lo = pitchPts[0].Frame
	}
	hi := release + s.cfg.ContactSearchFrames

	best := lo
	bestDist := math.Inf(1)
	for f := lo; f <= hi; f++ {
		d := pc.At(float64(f)).Dist(hc.At(float64(f)))
		if d < bestDist {
			best, bestDist = f, d
		}
	}

	fb := float64(best)
	pitchLine := Line{Point: pc.At(fb), Dir: pc.Tangent(fb)}
	hitLine := Line{Point: hc.At(fb), Dir: hc.Tangent(fb)}
	return EstimateContact(pitchLine, hitLine, s.cfg.ParallelDeg)
}

// splitAt partitions pts into frames at or before release and after it.
func splitAt(pts []Point, release int) (pitch, hit []Point) {
	for _, p := range pts {
		if p.Frame <= release {
			pitch = append(pitch, p)
		} else {
			hit = append(hit, p)
		}
	}
	return pitch, hit
}
