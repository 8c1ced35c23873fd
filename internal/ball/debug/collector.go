// Package debug provides instrumentation for the ball tracking loop.
// The Collector captures per-frame internals (search windows, gate
// decisions, Kalman predictions and innovations) for plotting and tuning.
package debug

import (
	"image"
	"sync"

	"github.com/banshee-data/pitchtrace/internal/ball/track"
)

// Typical per-frame detector output is a handful of boxes.
const defaultCandidateCapacity = 8

// Collector accumulates debug artifacts for one clip, a frame at a time.
//
// Call BeginFrame, then Record*(), then Emit at frame completion. Emitted
// frames are also retained so the whole clip can be inspected afterwards.
// Recording happens on the tracking goroutine; Frames may be called
// concurrently from a web handler.
type Collector struct {
	enabled bool
	current *Frame

	mu      sync.Mutex
	history []*Frame
}

// Frame contains all debug artifacts for a single frame.
type Frame struct {
	Frame int             `json:"frame"`
	Phase track.PhaseKind `json:"phase"`

	Window     image.Rectangle `json:"window"`
	Zoom       float64         `json:"zoom"`
	Collapsed  bool            `json:"collapsed,omitempty"`
	Candidates []Candidate     `json:"candidates,omitempty"`

	Prediction *track.Position `json:"prediction,omitempty"`
	Innovation *Innovation     `json:"innovation,omitempty"`
	Miss       string          `json:"miss,omitempty"`
}

// Candidate is one gate decision.
type Candidate struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Confidence float64 `json:"confidence"`
	Verdict    string  `json:"verdict"`
}

// Innovation is a measurement residual at a Kalman correction, with the
// motion estimate after it.
type Innovation struct {
	Predicted    track.Position `json:"predicted"`
	Measured     track.Position `json:"measured"`
	Residual     float64        `json:"residual"`
	Mahalanobis  float64        `json:"mahalanobis,omitempty"` // squared, against the predicted covariance
	Velocity     track.Position `json:"velocity"`
	Acceleration track.Position `json:"acceleration"`
}

// NewCollector creates a collector that's initially disabled.
func NewCollector() *Collector {
	return &Collector{}
}

// SetEnabled controls whether the collector records artifacts.
func (c *Collector) SetEnabled(enabled bool) {
	c.enabled = enabled
}

// IsEnabled returns true if the collector is actively recording.
func (c *Collector) IsEnabled() bool {
	return c != nil && c.enabled
}

// BeginFrame initialises collection for a new frame.
func (c *Collector) BeginFrame(frame int, phase track.PhaseKind) {
	if !c.IsEnabled() {
		return
	}
	c.current = &Frame{
		Frame:      frame,
		Phase:      phase,
		Candidates: make([]Candidate, 0, defaultCandidateCapacity),
	}
}

// RecordWindow captures the search window presented to the detector.
func (c *Collector) RecordWindow(rect image.Rectangle, zoom float64, collapsed bool) {
	if !c.IsEnabled() || c.current == nil {
		return
	}
	c.current.Window = rect
	c.current.Zoom = zoom
	c.current.Collapsed = collapsed
}

// RecordCandidate captures one gate decision.
func (c *Collector) RecordCandidate(frame int, center track.Position, confidence float64, verdict string) {
	if !c.IsEnabled() || c.current == nil || c.current.Frame != frame {
		return
	}
	c.current.Candidates = append(c.current.Candidates, Candidate{
		X:          center.X,
		Y:          center.Y,
		Confidence: confidence,
		Verdict:    verdict,
	})
}

// RecordPrediction captures the estimator output before correction.
func (c *Collector) RecordPrediction(p track.Position) {
	if !c.IsEnabled() || c.current == nil {
		return
	}
	c.current.Prediction = &p
}

// RecordInnovation captures a correction. Residual is derived from the
// predicted and measured positions.
func (c *Collector) RecordInnovation(in Innovation) {
	if !c.IsEnabled() || c.current == nil {
		return
	}
	in.Residual = in.Predicted.Dist(in.Measured)
	c.current.Innovation = &in
}

// RecordMiss captures why the frame produced no measurement.
func (c *Collector) RecordMiss(reason string) {
	if !c.IsEnabled() || c.current == nil {
		return
	}
	c.current.Miss = reason
}

// Emit returns the accumulated frame, retains it in the history, and
// prepares for the next frame. Returns nil if nothing was begun.
func (c *Collector) Emit() *Frame {
	if !c.IsEnabled() || c.current == nil {
		return nil
	}
	frame := c.current
	c.current = nil
	c.mu.Lock()
	c.history = append(c.history, frame)
	c.mu.Unlock()
	return frame
}

// Frames returns every emitted frame in order.
func (c *Collector) Frames() []*Frame {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Frame(nil), c.history...)
}

// Reset clears the pending frame and the history.
func (c *Collector) Reset() {
	c.current = nil
	c.mu.Lock()
	c.history = nil
	c.mu.Unlock()
}
