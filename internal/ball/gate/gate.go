// Package gate filters raw detector output down to at most one plausible
// ball candidate per frame.
package gate

import (
	"image"
	"math"

	"github.com/banshee-data/pitchtrace/internal/ball/roi"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/config"
)

// Box is one raw detection in window coordinates.
type Box struct {
	X1, Y1, X2, Y2 float64
	Confidence     float64
	ClassID        int
}

// Center returns the box centre in window coordinates.
func (b Box) Center() track.Position {
	return track.Position{X: (b.X1 + b.X2) / 2, Y: (b.Y1 + b.Y2) / 2}
}

// Size returns the mean side length in window pixels.
func (b Box) Size() float64 {
	return (math.Abs(b.X2-b.X1) + math.Abs(b.Y2-b.Y1)) / 2
}

// Candidate is a gated detection in full-frame coordinates.
type Candidate struct {
	Center     track.Position
	Size       float64 // window pixels
	Confidence float64
	Index      int // index into the input box slice
}

// PhaseGate holds the per-phase plausibility limits.
type PhaseGate struct {
	MinSize  float64 // window pixels
	MaxSize  float64 // window pixels
	Schedule MarginSchedule
}

// Config holds the gate limits for both phase kinds.
type Config struct {
	Pitch PhaseGate
	Hit   PhaseGate
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Pitch: PhaseGate{
			MinSize:  cfg.GetPitchMinBox(),
			MaxSize:  cfg.GetPitchMaxBox(),
			Schedule: NewMarginSchedule(cfg.GetPitchMarginSchedule()),
		},
		Hit: PhaseGate{
			MinSize:  cfg.GetHitMinBox(),
			MaxSize:  cfg.GetHitMaxBox(),
			Schedule: NewMarginSchedule(cfg.GetHitMarginSchedule()),
		},
	}
}

// DefaultConfig returns the built-in gate limits.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// For returns the limits for a phase kind.
func (c Config) For(kind track.PhaseKind) PhaseGate {
	if kind == track.PhaseHit {
		return c.Hit
	}
	return c.Pitch
}

// Input is everything the gate needs to judge one frame.
type Input struct {
	Frame       int
	Phase       track.PhaseKind
	Hand        track.Hand
	Boxes       []Box
	Window      roi.Window
	Bounds      image.Rectangle // full frame
	Prediction  *track.Position // nil until the phase has a detection
	FrameOffset int             // frames since phase start
	FrameGap    int             // frames since the last accepted detection
}

// Rejection reasons reported to the debug collector.
const (
	RejectSize     = "size"
	RejectHalf     = "half"
	RejectDistance = "distance"
	Accepted       = "accepted"
	Outranked      = "outranked"
)

// DebugCollector receives per-candidate gate decisions.
type DebugCollector interface {
	IsEnabled() bool
	RecordCandidate(frame int, center track.Position, confidence float64, verdict string)
}

// Gate selects at most one candidate per frame. It holds no per-clip state,
// so one Gate may serve any number of clips.
type Gate struct {
	cfg Config

	// DebugCollector captures decisions for visualisation (optional)
	DebugCollector DebugCollector
}

// New returns a Gate with the given limits.
func New(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// Select applies the size, origin-half and distance tests and returns the
// highest-confidence survivor. Ties go to the candidate nearer the
// prediction, then to the lower input index, so identical input always
// yields the identical choice.
func (g *Gate) Select(in Input) (Candidate, bool) {
	limits := g.cfg.For(in.Phase)
	gap := in.FrameGap
	if gap < 1 {
		gap = 1
	}
	maxDist := limits.Schedule.At(in.FrameOffset) * float64(gap)
	midX := float64(in.Bounds.Min.X+in.Bounds.Max.X) / 2
	dir := in.Hand.PitchDirection()

	var best Candidate
	bestDist := math.Inf(1)
	found := false

	for i, b := range in.Boxes {
		size := b.Size()
		if size < limits.MinSize || size > limits.MaxSize {
			g.record(in.Frame, in.Window.ToFullFrame(b.Center()), b.Confidence, RejectSize)
			continue
		}
		center := in.Window.ToFullFrame(b.Center())

		dist := 0.0
		if in.Prediction == nil {
			// A pitch starts on the side opposite its direction of travel.
			if in.Phase == track.PhasePitch && (center.X-midX)*dir > 0 {
				g.record(in.Frame, center, b.Confidence, RejectHalf)
				continue
			}
		} else {
			dist = center.Dist(*in.Prediction)
			if dist > maxDist {
				g.record(in.Frame, center, b.Confidence, RejectDistance)
				continue
			}
		}

		better := !found ||
			b.Confidence > best.Confidence ||
			(b.Confidence == best.Confidence && dist < bestDist)
		if better {
			if found {
				g.record(in.Frame, best.Center, best.Confidence, Outranked)
			}
			best = Candidate{Center: center, Size: size, Confidence: b.Confidence, Index: i}
			bestDist = dist
			found = true
		} else {
			g.record(in.Frame, center, b.Confidence, Outranked)
		}
	}

	if found {
		g.record(in.Frame, best.Center, best.Confidence, Accepted)
	}
	return best, found
}

func (g *Gate) record(frame int, center track.Position, conf float64, verdict string) {
	if g.DebugCollector != nil && g.DebugCollector.IsEnabled() {
		g.DebugCollector.RecordCandidate(frame, center, conf, verdict)
	}
}
