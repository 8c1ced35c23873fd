// Package fallback drives a clip from automatic tracking through operator
// annotation to a confirmed track.
//
// States: AutoAttempt → {ManualDiff, ManualVisual} → Verified | Failed.
// The retry count is explicit state; a rejected result returns to
// AutoAttempt with the count incremented until MaxRetries is exceeded.
// Every AutoAttempt entry runs detection again; a track identical to one
// already rejected goes straight to annotation instead of being offered
// twice.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	"github.com/banshee-data/pitchtrace/internal/ball/reconcile"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/config"
	"github.com/banshee-data/pitchtrace/internal/monitoring"
)

var (
	// ErrManualAbort is returned when the operator aborts annotation.
	ErrManualAbort = errors.New("manual annotation aborted")
	// ErrRetriesExhausted is returned when every attempt was rejected.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

var logf = monitoring.Prefixed("fallback")

// State is an orchestrator state.
type State int

const (
	StateAutoAttempt State = iota
	StateManualDiff
	StateManualVisual
	StateVerified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAutoAttempt:
		return "auto"
	case StateManualDiff:
		return "manual_diff"
	case StateManualVisual:
		return "manual_visual"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsManual reports whether s is one of the annotation states.
func (s State) IsManual() bool { return s == StateManualDiff || s == StateManualVisual }

// Action is the operator's answer to a prompt.
type Action int

const (
	ActionPoint Action = iota
	ActionSkip
	ActionAbort
)

func (a Action) String() string {
	switch a {
	case ActionPoint:
		return "point"
	case ActionSkip:
		return "skip"
	case ActionAbort:
		return "abort"
	default:
		return "unknown"
	}
}

// Prompt asks the operator to mark the ball on one frame.
type Prompt struct {
	Clip  track.ClipKind
	Frame int
	Index int // position within the sampled set
	Total int
	Mode  State // StateManualDiff or StateManualVisual
}

// Response is the operator's answer. Point is meaningful for ActionPoint.
type Response struct {
	Action Action
	Point  track.Position
}

// Annotator shows a frame preview and blocks until the operator answers.
type Annotator interface {
	ShowFrameAndWait(ctx context.Context, p Prompt) (Response, error)
}

// Confirmer shows a rendered track and reports whether it was accepted.
type Confirmer interface {
	Confirm(ctx context.Context, t *track.Array) (bool, error)
}

// AutoTracker runs automatic detection for the clip.
type AutoTracker interface {
	Track(ctx context.Context) (bool, *track.Array)
}

// AutoTrackerFunc adapts a function to AutoTracker.
type AutoTrackerFunc func(ctx context.Context) (bool, *track.Array)

// Track calls f.
func (f AutoTrackerFunc) Track(ctx context.Context) (bool, *track.Array) { return f(ctx) }

// Config holds orchestrator settings.
type Config struct {
	ManualCeilingFrames int // flights longer than this skip automatic tracking
	MaxRetries          int
	ManualMaxSamples    int
	ManualMinStride     int
}

// ConfigFromTuning builds a Config from tuning values.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		ManualCeilingFrames: cfg.GetManualCeilingFrames(),
		MaxRetries:          cfg.GetMaxRetries(),
		ManualMaxSamples:    cfg.GetManualMaxSamples(),
		ManualMinStride:     cfg.GetManualMinStride(),
	}
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return ConfigFromTuning(config.EmptyTuningConfig())
}

// Request describes one clip to resolve.
type Request struct {
	Clip        track.ClipKind
	Frames      int // clip length
	FlightStart int // first frame of the estimated flight
	Flight      int // estimated flight duration in frames; 0 means the whole clip
	ForceManual bool
	Auto        AutoTracker
}

func (r Request) flight() (start, n int) {
	start, n = r.FlightStart, r.Flight
	if start < 0 || start >= r.Frames {
		start = 0
	}
	if n <= 0 || start+n > r.Frames {
		n = r.Frames - start
	}
	return start, n
}

// Result is the terminal outcome of Run.
type Result struct {
	State       State
	Track       *track.Array // nil unless Verified
	Retries     int
	Manual      bool    // the verified track came from annotation
	Transitions []State // every state entered, in order
}

// Orchestrator runs the fallback state machine.
type Orchestrator struct {
	cfg        Config
	reconciler *reconcile.Reconciler
	annotator  Annotator
	confirmer  Confirmer
}

// New returns an Orchestrator.
func New(cfg Config, rc *reconcile.Reconciler, annotator Annotator, confirmer Confirmer) *Orchestrator {
	return &Orchestrator{cfg: cfg, reconciler: rc, annotator: annotator, confirmer: confirmer}
}

// ManualMode returns the annotation strategy for a retry count; retries
// alternate between the two.
func ManualMode(retry int) State {
	if retry%2 == 0 {
		return StateManualDiff
	}
	return StateManualVisual
}

// Run resolves req to a Verified or Failed result. Failed results carry
// ErrManualAbort, ErrRetriesExhausted or the collaborator's error.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	res := Result{}
	_, flight := req.flight()
	skipAuto := req.ForceManual || req.Auto == nil || flight > o.cfg.ManualCeilingFrames
	var rejected []*track.Array

	enter := func(s State) State {
		res.State = s
		res.Transitions = append(res.Transitions, s)
		return s
	}
	fail := func(err error) (Result, error) {
		enter(StateFailed)
		res.Track = nil
		return res, err
	}

	state := enter(StateAutoAttempt)
	for {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		var (
			candidate *track.Array
			manual    bool
		)
		switch {
		case state == StateAutoAttempt:
			if skipAuto {
				logf("%s: skipping automatic tracking (flight=%d force=%v)", req.Clip, flight, req.ForceManual)
				state = enter(ManualMode(res.Retries))
				continue
			}
			ok, t := req.Auto.Track(ctx)
			if !ok || t == nil {
				logf("%s: automatic tracking failed", req.Clip)
				state = enter(ManualMode(res.Retries))
				continue
			}
			if seen(rejected, t) {
				logf("%s: automatic tracking repeated a rejected track", req.Clip)
				state = enter(ManualMode(res.Retries))
				continue
			}
			candidate = t

		case state.IsManual():
			t, err := o.annotate(ctx, req, state)
			if err != nil {
				if errors.Is(err, reconcile.ErrTooFewPoints) {
					logf("%s: %v, retrying", req.Clip, err)
					res.Retries++
					if res.Retries > o.cfg.MaxRetries {
						return fail(fmt.Errorf("%d attempts: %w", res.Retries, ErrRetriesExhausted))
					}
					state = enter(ManualMode(res.Retries))
					continue
				}
				return fail(err)
			}
			candidate, manual = t, true

		default:
			return fail(fmt.Errorf("unexpected state %s", state))
		}

		accepted, err := o.confirmer.Confirm(ctx, candidate)
		if err != nil {
			return fail(fmt.Errorf("confirm: %w", err))
		}
		if accepted {
			enter(StateVerified)
			res.Track = candidate
			res.Manual = manual
			return res, nil
		}

		res.Retries++
		if !manual {
			rejected = append(rejected, candidate)
		}
		logf("%s: result rejected (retry %d/%d)", req.Clip, res.Retries, o.cfg.MaxRetries)
		if res.Retries > o.cfg.MaxRetries {
			return fail(fmt.Errorf("%d attempts: %w", res.Retries, ErrRetriesExhausted))
		}
		state = enter(StateAutoAttempt)
	}
}

func seen(tracks []*track.Array, t *track.Array) bool {
	for _, r := range tracks {
		if r.Equal(t) {
			return true
		}
	}
	return false
}

// SampleFrames returns the frames offered for annotation: evenly strided
// over the flight, stride scaled with duration, last frame always included.
func (o *Orchestrator) SampleFrames(start, n int) []int {
	if n <= 0 {
		return nil
	}
	stride := o.cfg.ManualMinStride
	if stride < 1 {
		stride = 1
	}
	if o.cfg.ManualMaxSamples > 0 {
		if s := (n + o.cfg.ManualMaxSamples - 1) / o.cfg.ManualMaxSamples; s > stride {
			stride = s
		}
	}
	last := start + n - 1
	var frames []int
	for f := start; f <= last; f += stride {
		frames = append(frames, f)
	}
	if frames[len(frames)-1] != last {
		frames = append(frames, last)
	}
	return frames
}

func (o *Orchestrator) annotate(ctx context.Context, req Request, mode State) (*track.Array, error) {
	start, n := req.flight()
	frames := o.SampleFrames(start, n)

	var pts []phase.Point
	for i, f := range frames {
		resp, err := o.annotator.ShowFrameAndWait(ctx, Prompt{
			Clip:  req.Clip,
			Frame: f,
			Index: i,
			Total: len(frames),
			Mode:  mode,
		})
		if err != nil {
			return nil, fmt.Errorf("annotate frame %d: %w", f, err)
		}
		switch resp.Action {
		case ActionAbort:
			return nil, ErrManualAbort
		case ActionSkip:
			continue
		case ActionPoint:
			pts = append(pts, phase.Point{Frame: f, Pos: resp.Point})
		}
	}

	if req.Clip.HasContact() {
		return o.reconciler.DensifyContact(req.Frames, pts)
	}
	return o.reconciler.Densify(req.Frames, pts, track.PhasePitch)
}
