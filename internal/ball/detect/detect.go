// Package detect declares the collaborators the tracking loop consumes:
// an object detector and a random-access, fully resident frame source.
package detect

import (
	"context"
	"image"

	"github.com/banshee-data/pitchtrace/internal/ball/gate"
	"github.com/banshee-data/pitchtrace/internal/config"
)

// Query filters and sizes a detection request.
type Query struct {
	Classes       []int
	ConfThreshold float64
	InputSize     int // square model input side in pixels
}

// QueryFromTuning builds the detector query from tuning values.
func QueryFromTuning(cfg *config.TuningConfig) Query {
	return Query{
		Classes:       cfg.GetDetectorClasses(),
		ConfThreshold: cfg.GetDetectorConfThreshold(),
		InputSize:     cfg.GetDetectorInputSize(),
	}
}

// Allows reports whether class passes the class filter. An empty filter
// allows every class.
func (q Query) Allows(class int) bool {
	if len(q.Classes) == 0 {
		return true
	}
	for _, c := range q.Classes {
		if c == class {
			return true
		}
	}
	return false
}

// Detector returns boxes in the coordinates of img.
type Detector interface {
	Detect(ctx context.Context, img image.Image, q Query) ([]gate.Box, error)
}

// FrameSource is a decoded clip held in memory.
type FrameSource interface {
	// Len returns the number of frames.
	Len() int
	// Bounds returns the full-frame rectangle shared by every frame.
	Bounds() image.Rectangle
	// Window returns rect of frame i scaled by zoom.
	Window(i int, rect image.Rectangle, zoom float64) (image.Image, error)
}
