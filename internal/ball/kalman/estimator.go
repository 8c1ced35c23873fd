package kalman

import (
	"errors"
	"fmt"

	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/config"
)

// ErrLost is returned by Correct once the estimator has given up on the phase.
var ErrLost = errors.New("estimator lost")

// State is the estimator lifecycle stage.
type State int

const (
	StateUninitialized State = iota
	StateTracking
	StateLost
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateTracking:
		return "tracking"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// EstimatorConfig pairs a filter model with the miss budget.
type EstimatorConfig struct {
	Model     Model
	MaxMisses int // consecutive misses tolerated before Lost
}

// PitchConfigFromTuning builds the constant-velocity configuration used
// for the pitch phase.
func PitchConfigFromTuning(cfg *config.TuningConfig) EstimatorConfig {
	return EstimatorConfig{
		Model: Model{
			Dim:               DimConstantVelocity,
			ProcessNoise:      cfg.GetPitchProcessNoise(),
			MeasurementNoise:  cfg.GetPitchMeasurementNoise(),
			InitialPosVar:     cfg.GetInitialPositionVariance(),
			InitialVelVar:     cfg.GetInitialVelocityVariance(),
			MaxCovarianceDiag: cfg.GetMaxCovarianceDiag(),
		},
		MaxMisses: cfg.GetPitchMaxMisses(),
	}
}

// HitConfigFromTuning builds the hit-phase configuration. The model is
// constant acceleration unless hit_model is "cv".
func HitConfigFromTuning(cfg *config.TuningConfig) EstimatorConfig {
	dim := DimConstantAcceleration
	if cfg.GetHitModel() == "cv" {
		dim = DimConstantVelocity
	}
	return EstimatorConfig{
		Model: Model{
			Dim:               dim,
			ProcessNoise:      cfg.GetHitProcessNoise(),
			MeasurementNoise:  cfg.GetHitMeasurementNoise(),
			InitialPosVar:     cfg.GetInitialPositionVariance(),
			InitialVelVar:     cfg.GetInitialVelocityVariance(),
			MaxCovarianceDiag: cfg.GetMaxCovarianceDiag(),
		},
		MaxMisses: cfg.GetHitMaxMisses(),
	}
}

// ConfigFor returns the estimator configuration for a phase.
func ConfigFor(cfg *config.TuningConfig, kind track.PhaseKind) EstimatorConfig {
	if kind == track.PhaseHit {
		return HitConfigFromTuning(cfg)
	}
	return PitchConfigFromTuning(cfg)
}

// Estimator tracks one phase of ball motion.
//
// The first accepted position is held as a seed; the second initialises
// the filter with a finite-difference velocity. While seeded but not yet
// tracking, predictions return the seed so the search window stays put.
// Each frame the caller invokes Predict exactly once, then either Correct
// or Miss.
type Estimator struct {
	cfg    EstimatorConfig
	state  State
	filter *Filter

	seed      track.Position
	seedFrame int
	seeded    bool

	misses    int
	lastFrame int
}

// NewEstimator returns an uninitialized estimator.
func NewEstimator(cfg EstimatorConfig) *Estimator {
	return &Estimator{cfg: cfg, lastFrame: -1}
}

// State returns the lifecycle stage.
func (e *Estimator) State() State { return e.state }

// Misses returns the current run of consecutive misses.
func (e *Estimator) Misses() int { return e.misses }

// LastFrame returns the frame of the most recent accepted measurement, or -1.
func (e *Estimator) LastFrame() int { return e.lastFrame }

// Filter exposes the underlying filter while tracking; nil otherwise.
func (e *Estimator) Filter() *Filter {
	if e.state != StateTracking {
		return nil
	}
	return e.filter
}

// Predict advances one frame and returns the expected position. The
// boolean is false when there is nothing to predict from.
func (e *Estimator) Predict() (track.Position, bool) {
	switch e.state {
	case StateTracking:
		return e.filter.Predict(), true
	case StateUninitialized:
		if e.seeded {
			return e.seed, true
		}
	}
	return track.Position{}, false
}

// Correct folds the accepted position for frame into the estimate.
func (e *Estimator) Correct(frame int, p track.Position) error {
	if !p.IsFinite() {
		return ErrNonFinite
	}
	switch e.state {
	case StateLost:
		return ErrLost
	case StateUninitialized:
		if !e.seeded {
			e.seed, e.seedFrame, e.seeded = p, frame, true
			e.misses = 0
			e.lastFrame = frame
			return nil
		}
		gap := frame - e.seedFrame
		if gap <= 0 {
			// Same or earlier frame: replace the seed.
			e.seed, e.seedFrame = p, frame
			e.lastFrame = frame
			return nil
		}
		vel := p.Sub(e.seed).Scale(1 / float64(gap))
		f, err := NewFilter(e.cfg.Model, p, vel)
		if err != nil {
			return fmt.Errorf("seed filter: %w", err)
		}
		e.filter = f
		e.state = StateTracking
		e.misses = 0
		e.lastFrame = frame
		return nil
	}

	if _, err := e.filter.Correct(p); err != nil {
		return err
	}
	e.misses = 0
	e.lastFrame = frame
	return nil
}

// Miss records a frame without an accepted candidate. Returns the state
// after the miss.
func (e *Estimator) Miss() State {
	switch e.state {
	case StateTracking:
		e.misses++
		if e.misses >= e.cfg.MaxMisses {
			e.state = StateLost
		}
	case StateUninitialized:
		if e.seeded {
			e.misses++
			// A stale seed would anchor the window on a false positive.
			if e.misses >= e.cfg.MaxMisses {
				e.seeded = false
				e.misses = 0
			}
		}
	}
	return e.state
}

// Extrapolate returns the next n positions the model predicts without
// altering the estimator. Returns nil unless the filter has been seeded.
func (e *Estimator) Extrapolate(n int) []track.Position {
	if e.filter == nil || n <= 0 {
		return nil
	}
	f := e.filter.Clone()
	out := make([]track.Position, 0, n)
	for i := 0; i < n; i++ {
		p := f.Predict()
		if !p.IsFinite() {
			break
		}
		out = append(out, p)
	}
	return out
}

// Reset returns the estimator to Uninitialized.
func (e *Estimator) Reset() {
	*e = Estimator{cfg: e.cfg, lastFrame: -1}
}
