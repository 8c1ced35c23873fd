// Package roi maintains the cropped, zoomed search window presented to the
// detector and maps coordinates between that window and the full frame.
package roi

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/config"
)

// ErrROICollapse is returned when the recentred window has no area inside
// the frame. The caller skips detection for that frame.
var ErrROICollapse = errors.New("search window collapsed")

// WindowSpec fixes the geometry of the window for one phase kind.
type WindowSpec struct {
	Width   int     // full-frame pixels
	Height  int     // full-frame pixels
	Zoom    float64 // detector pixels per frame pixel
	CenterX float64 // initial centre, fraction of frame width (right-handed orientation)
	CenterY float64 // initial centre, fraction of frame height
}

// Config holds the per-phase window specs.
type Config struct {
	Pitch WindowSpec
	Hit   WindowSpec
}

// ConfigFromTuning builds a Config from a loaded TuningConfig.
func ConfigFromTuning(cfg *config.TuningConfig) Config {
	return Config{
		Pitch: WindowSpec{
			Width:   cfg.GetPitchWindowWidth(),
			Height:  cfg.GetPitchWindowHeight(),
			Zoom:    cfg.GetPitchWindowZoom(),
			CenterX: cfg.GetPitchWindowCenterX(),
			CenterY: cfg.GetPitchWindowCenterY(),
		},
		Hit: WindowSpec{
			Width:   cfg.GetHitWindowWidth(),
			Height:  cfg.GetHitWindowHeight(),
			Zoom:    cfg.GetHitWindowZoom(),
			CenterX: cfg.GetHitWindowCenterX(),
			CenterY: cfg.GetHitWindowCenterY(),
		},
	}
}

// DefaultConfig returns the built-in window geometry.
func DefaultConfig() Config {
	return ConfigFromTuning(config.DefaultTuningConfig())
}

// Spec returns the window spec for a phase kind.
func (c Config) Spec(kind track.PhaseKind) WindowSpec {
	if kind == track.PhaseHit {
		return c.Hit
	}
	return c.Pitch
}

// Window is a crop rectangle in full-frame pixels plus the zoom applied
// when the crop is handed to the detector.
type Window struct {
	Rect image.Rectangle
	Zoom float64
}

// Empty reports whether the window has no area.
func (w Window) Empty() bool { return w.Rect.Empty() || w.Zoom <= 0 }

// ToWindow maps a full-frame point into window (detector) coordinates.
func (w Window) ToWindow(p track.Position) track.Position {
	return track.Position{
		X: (p.X - float64(w.Rect.Min.X)) * w.Zoom,
		Y: (p.Y - float64(w.Rect.Min.Y)) * w.Zoom,
	}
}

// ToFullFrame maps a window point back to full-frame coordinates.
func (w Window) ToFullFrame(p track.Position) track.Position {
	return track.Position{
		X: p.X/w.Zoom + float64(w.Rect.Min.X),
		Y: p.Y/w.Zoom + float64(w.Rect.Min.Y),
	}
}

// Center returns the window centre in full-frame coordinates.
func (w Window) Center() track.Position {
	return track.Position{
		X: float64(w.Rect.Min.X+w.Rect.Max.X) / 2,
		Y: float64(w.Rect.Min.Y+w.Rect.Max.Y) / 2,
	}
}

func (w Window) String() string { return fmt.Sprintf("%v@%.2fx", w.Rect, w.Zoom) }

// Tracker positions the search window for one clip.
type Tracker struct {
	cfg   Config
	frame image.Rectangle
	hand  track.Hand
}

// NewTracker returns a Tracker for frames with the given bounds.
func NewTracker(cfg Config, frame image.Rectangle, hand track.Hand) *Tracker {
	return &Tracker{cfg: cfg, frame: frame, hand: hand}
}

// Frame returns the full-frame bounds.
func (t *Tracker) Frame() image.Rectangle { return t.frame }

// Initialize returns the starting window for a phase: the configured
// centre, mirrored for left-handed batters.
func (t *Tracker) Initialize(kind track.PhaseKind) Window {
	spec := t.cfg.Spec(kind)
	cx := t.hand.MirrorX(spec.CenterX)
	center := track.Position{
		X: float64(t.frame.Min.X) + cx*float64(t.frame.Dx()),
		Y: float64(t.frame.Min.Y) + spec.CenterY*float64(t.frame.Dy()),
	}
	return t.place(spec, center)
}

// Reposition recentres the window on the last known or predicted position.
// The window keeps its configured size but is clipped to the frame; if
// nothing of it remains, ErrROICollapse is returned with the empty window.
func (t *Tracker) Reposition(kind track.PhaseKind, p track.Position) (Window, error) {
	w := t.place(t.cfg.Spec(kind), p)
	if w.Empty() {
		return w, fmt.Errorf("%s window at %v: %w", kind, p, ErrROICollapse)
	}
	return w, nil
}

func (t *Tracker) place(spec WindowSpec, center track.Position) Window {
	if !center.IsFinite() || spec.Width <= 0 || spec.Height <= 0 {
		return Window{Zoom: spec.Zoom}
	}
	x0 := int(math.Round(center.X - float64(spec.Width)/2))
	y0 := int(math.Round(center.Y - float64(spec.Height)/2))
	r := image.Rect(x0, y0, x0+spec.Width, y0+spec.Height).Intersect(t.frame)
	return Window{Rect: r, Zoom: spec.Zoom}
}
