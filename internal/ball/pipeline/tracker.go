// Package pipeline runs the per-frame ball tracking loop over a resident
// clip and hands the raw track to segmentation and reconciliation.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/pitchtrace/internal/ball/debug"
	"github.com/banshee-data/pitchtrace/internal/ball/detect"
	"github.com/banshee-data/pitchtrace/internal/ball/gate"
	"github.com/banshee-data/pitchtrace/internal/ball/kalman"
	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	"github.com/banshee-data/pitchtrace/internal/ball/reconcile"
	"github.com/banshee-data/pitchtrace/internal/ball/roi"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/config"
	"github.com/banshee-data/pitchtrace/internal/monitoring"
)

// ErrInsufficientDetections is returned when a phase ends with fewer valid
// samples than MinValidSamples.
var ErrInsufficientDetections = errors.New("insufficient detections")

// ErrImplausibleTrack is returned when the final track jumps further than
// a phase allows between adjacent frames.
var ErrImplausibleTrack = errors.New("implausible track")

var logf = monitoring.Prefixed("pipeline")

// Config gathers every component's immutable settings.
type Config struct {
	ROI             roi.Config
	Gate            gate.Config
	Pitch           kalman.EstimatorConfig
	Hit             kalman.EstimatorConfig
	Phase           phase.Config
	Reconcile       reconcile.Config
	Query           detect.Query
	MinValidSamples int
}

// ConfigFromTuning builds a Config from tuning values.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		ROI:             roi.ConfigFromTuning(cfg),
		Gate:            gate.ConfigFromTuning(cfg),
		Pitch:           kalman.ConfigFor(cfg, track.PhasePitch),
		Hit:             kalman.ConfigFor(cfg, track.PhaseHit),
		Phase:           phase.ConfigFromTuning(cfg),
		Reconcile:       reconcile.ConfigFromTuning(cfg),
		Query:           detect.QueryFromTuning(cfg),
		MinValidSamples: cfg.GetMinValidSamples(),
	}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// Outcome is everything produced for one clip.
type Outcome struct {
	Clip          track.ClipKind
	Hand          track.Hand
	Raw           *track.Array
	Track         *track.Array
	Boundary      *phase.Boundary
	DetectorCalls int
}

// Tracker tracks the ball through one clip. It is not safe for concurrent
// use; run separate Trackers for separate clips.
type Tracker struct {
	cfg      Config
	frames   detect.FrameSource
	detector detect.Detector
	hand     track.Hand

	gate       *gate.Gate
	segmenter  *phase.Segmenter
	reconciler *reconcile.Reconciler

	// Debug captures per-frame internals for plotting (optional)
	Debug *debug.Collector

	last *Outcome
}

// NewTracker returns a Tracker for a clip held by frames. hand is used by
// TrackPitcher and TrackHit; TrackBatter takes its own.
func NewTracker(cfg Config, frames detect.FrameSource, detector detect.Detector, hand track.Hand) *Tracker {
	return &Tracker{
		cfg:        cfg,
		frames:     frames,
		detector:   detector,
		hand:       hand,
		gate:       gate.New(cfg.Gate),
		segmenter:  phase.NewSegmenter(cfg.Phase),
		reconciler: reconcile.New(cfg.Reconcile),
	}
}

// Reconciler returns the reconciler, shared with manual densification.
func (t *Tracker) Reconciler() *reconcile.Reconciler { return t.reconciler }

// Last returns the outcome of the most recent successful run, or nil.
func (t *Tracker) Last() *Outcome { return t.last }

// TrackPitcher tracks a pitch seen from the pitcher camera.
func (t *Tracker) TrackPitcher(ctx context.Context) (bool, *track.Array) {
	return t.result(t.Run(ctx, track.ClipPitcher, t.hand))
}

// TrackBatter tracks a pitch seen from the batter camera.
func (t *Tracker) TrackBatter(ctx context.Context, hand track.Hand) (bool, *track.Array) {
	return t.result(t.Run(ctx, track.ClipBatter, hand))
}

// TrackHit tracks a pitch and the batted ball after contact. With
// autoDetect false no detection runs and the caller is expected to fall
// back to annotation.
func (t *Tracker) TrackHit(ctx context.Context, autoDetect bool) (bool, *track.Array) {
	if !autoDetect {
		return false, nil
	}
	return t.result(t.Run(ctx, track.ClipHit, t.hand))
}

func (t *Tracker) result(out *Outcome, err error) (bool, *track.Array) {
	if err != nil {
		logf("tracking failed: %v", err)
		return false, nil
	}
	return true, out.Track
}

// Run tracks clip and returns the reconciled outcome. No partial track is
// returned on error.
func (t *Tracker) Run(ctx context.Context, clip track.ClipKind, hand track.Hand) (*Outcome, error) {
	n := t.frames.Len()
	out := &Outcome{Clip: clip, Hand: hand, Raw: track.NewArray(n)}
	if t.Debug != nil {
		t.Debug.Reset()
	}
	rt := roi.NewTracker(t.cfg.ROI, t.frames.Bounds(), hand)

	pitch := kalman.NewEstimator(t.cfg.Pitch)
	if err := t.trackPhase(ctx, out, rt, pitch, track.PhasePitch, 0, nil); err != nil {
		return nil, err
	}
	if pitch.LastFrame() < 0 {
		return nil, fmt.Errorf("%s: no pitch detections: %w", clip, ErrInsufficientDetections)
	}

	switch clip {
	case track.ClipPitcher, track.ClipBatter:
		return t.finish(out, nil)

	case track.ClipHit:
		if pitch.State() == kalman.StateLost {
			// Rewind to the first frame the pitch estimator failed to claim.
			resume := pitch.LastFrame() + 1
			anchor, _ := out.Raw.Position(pitch.LastFrame())
			logf("%s: pitch lost, tracking hit from frame %d", clip, resume)
			hit := kalman.NewEstimator(t.cfg.Hit)
			if err := t.trackPhase(ctx, out, rt, hit, track.PhaseHit, resume, &anchor); err != nil {
				return nil, err
			}
		}
		b, err := t.segmenter.Segment(out.Raw, hand)
		if err != nil {
			return nil, fmt.Errorf("%s: segment: %w", clip, err)
		}
		return t.finish(out, &b)

	default:
		return nil, fmt.Errorf("unknown clip kind %d", clip)
	}
}

func (t *Tracker) finish(out *Outcome, b *phase.Boundary) (*Outcome, error) {
	for _, sp := range reconcile.Spans(out.Raw.Len(), b) {
		got := len(phase.Points(out.Raw, sp.From, sp.To))
		if got < t.cfg.MinValidSamples {
			return nil, fmt.Errorf("%s %s phase: %d of %d samples: %w",
				out.Clip, sp.Kind, got, t.cfg.MinValidSamples, ErrInsufficientDetections)
		}
	}

	final, err := t.reconciler.Reconcile(out.Raw, b)
	if err != nil {
		return nil, fmt.Errorf("%s: reconcile: %w", out.Clip, err)
	}
	if err := t.verify(final, b); err != nil {
		return nil, fmt.Errorf("%s: %w", out.Clip, err)
	}

	out.Track = final
	out.Boundary = b
	t.last = out
	logf("%s: %d/%d frames tracked, boundary=%v", out.Clip, out.Raw.CountValid(), out.Raw.Len(), b)
	return out, nil
}

// verify checks the final track stays within each phase's displacement
// limit between adjacent frames, including across the contact boundary.
func (t *Tracker) verify(final *track.Array, b *phase.Boundary) error {
	for _, sp := range reconcile.Spans(final.Len(), b) {
		limit := t.cfg.Reconcile.For(sp.Kind).MaxDisplacement
		from := sp.From
		if from > 0 {
			from--
		}
		if j := final.MaxJump(from, sp.To-1); limit > 0 && j > limit {
			return fmt.Errorf("%s phase jump %.1fpx exceeds %.1fpx: %w", sp.Kind, j, limit, ErrImplausibleTrack)
		}
	}
	return nil
}

// trackPhase runs the per-frame loop from frame `from` until the estimator
// is lost or the clip ends. anchor, when set, centres the window until the
// estimator can predict.
func (t *Tracker) trackPhase(ctx context.Context, out *Outcome, rt *roi.Tracker, est *kalman.Estimator,
	kind track.PhaseKind, from int, anchor *track.Position) error {
	firstDetection := -1

	for f := from; f < out.Raw.Len(); f++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		t.Debug.BeginFrame(f, kind)

		pred, hasPred := est.Predict()
		var win roi.Window
		switch {
		case hasPred:
			t.Debug.RecordPrediction(pred)
			w, err := rt.Reposition(kind, pred)
			if err != nil {
				t.Debug.RecordWindow(w.Rect, w.Zoom, true)
				t.miss(est, "collapse")
				if est.State() == kalman.StateLost {
					return nil
				}
				continue
			}
			win = w
		case anchor != nil:
			w, err := rt.Reposition(kind, *anchor)
			if err != nil {
				w = rt.Initialize(kind)
			}
			win = w
		default:
			win = rt.Initialize(kind)
		}
		t.Debug.RecordWindow(win.Rect, win.Zoom, false)

		cand, ok := t.detect(ctx, out, f, kind, win, pred, hasPred, firstDetection, est.LastFrame())
		if err := ctx.Err(); err != nil {
			return err
		}
		if !ok {
			t.miss(est, "no candidate")
			if est.State() == kalman.StateLost {
				return nil
			}
			continue
		}

		var mahal float64
		if hasPred && t.Debug.IsEnabled() {
			if kf := est.Filter(); kf != nil {
				if d2, err := kf.MahalanobisSquared(cand.Center); err == nil {
					mahal = d2
				}
			}
		}
		if err := est.Correct(f, cand.Center); err != nil {
			logf("frame %d: %s correction rejected: %v", f, kind, err)
			t.miss(est, "correct")
			if est.State() == kalman.StateLost {
				return nil
			}
			continue
		}
		if hasPred {
			in := debug.Innovation{Predicted: pred, Measured: cand.Center, Mahalanobis: mahal}
			if kf := est.Filter(); kf != nil {
				in.Velocity, in.Acceleration = kf.Velocity(), kf.Acceleration()
			}
			t.Debug.RecordInnovation(in)
		}
		if firstDetection < 0 {
			firstDetection = f
		}
		if err := out.Raw.Set(f, cand.Center); err != nil {
			return fmt.Errorf("frame %d: %w", f, err)
		}
		t.Debug.Emit()
	}
	return nil
}

func (t *Tracker) miss(est *kalman.Estimator, reason string) {
	if est.Miss() == kalman.StateLost {
		logf("estimator lost after %d consecutive misses (%s)", est.Misses(), reason)
	}
	t.Debug.RecordMiss(reason)
	t.Debug.Emit()
}

// detect crops the frame, runs the detector and gates its output. Frame
// and detector faults count as no candidate.
func (t *Tracker) detect(ctx context.Context, out *Outcome, f int, kind track.PhaseKind, win roi.Window,
	pred track.Position, hasPred bool, firstDetection, lastFrame int) (gate.Candidate, bool) {
	img, err := t.frames.Window(f, win.Rect, win.Zoom)
	if err != nil {
		logf("frame %d: window %v: %v", f, win, err)
		return gate.Candidate{}, false
	}
	out.DetectorCalls++
	boxes, err := t.detector.Detect(ctx, img, t.cfg.Query)
	if err != nil {
		logf("frame %d: detect: %v", f, err)
		return gate.Candidate{}, false
	}

	in := gate.Input{
		Frame:  f,
		Phase:  kind,
		Hand:   out.Hand,
		Boxes:  boxes,
		Window: win,
		Bounds: t.frames.Bounds(),
	}
	if hasPred {
		in.Prediction = &pred
		if firstDetection >= 0 {
			in.FrameOffset = f - firstDetection
		}
		if lastFrame >= 0 {
			in.FrameGap = f - lastFrame
		}
	}
	if t.Debug.IsEnabled() {
		t.gate.DebugCollector = t.Debug
	} else {
		t.gate.DebugCollector = nil
	}
	return t.gate.Select(in)
}
