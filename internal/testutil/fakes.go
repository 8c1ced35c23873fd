package testutil

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/banshee-data/pitchtrace/internal/ball/detect"
	"github.com/banshee-data/pitchtrace/internal/ball/gate"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
)

// FakeWindow is the image handed out by FakeFrames. It remembers which
// frame and crop it came from so FakeDetector can place boxes.
type FakeWindow struct {
	image.Image
	Frame int
	Rect  image.Rectangle
	Zoom  float64
}

// FakeFrames is a frame source with no pixels.
type FakeFrames struct {
	N    int
	Size image.Rectangle
}

// NewFakeFrames returns n frames of a 1280×720 clip.
func NewFakeFrames(n int) *FakeFrames {
	return &FakeFrames{N: n, Size: image.Rect(0, 0, 1280, 720)}
}

// Len implements detect.FrameSource.
func (f *FakeFrames) Len() int { return f.N }

// Bounds implements detect.FrameSource.
func (f *FakeFrames) Bounds() image.Rectangle { return f.Size }

// Window implements detect.FrameSource.
func (f *FakeFrames) Window(i int, rect image.Rectangle, zoom float64) (image.Image, error) {
	if i < 0 || i >= f.N {
		return nil, fmt.Errorf("frame %d out of range", i)
	}
	w := int(float64(rect.Dx()) * zoom)
	h := int(float64(rect.Dy()) * zoom)
	return &FakeWindow{
		Image: image.NewGray(image.Rect(0, 0, w, h)),
		Frame: i,
		Rect:  rect,
		Zoom:  zoom,
	}, nil
}

// Scene returns the true ball position for a frame, if visible.
type Scene func(frame int) (track.Position, bool)

// ReversalScene exposes every frame of r.
func ReversalScene(r Reversal) Scene {
	return func(f int) (track.Position, bool) {
		if f < 0 || f >= r.Frames {
			return track.Position{}, false
		}
		return r.At(f), true
	}
}

// ArrayScene exposes the valid samples of arr.
func ArrayScene(arr *track.Array) Scene {
	return arr.Position
}

// FakeDetector reports a ball-sized box wherever the scene places the ball
// inside the requested window, plus any configured distractors.
type FakeDetector struct {
	Scene       Scene
	BallSize    float64 // full-frame pixels
	Confidence  float64
	Distractors map[int][]track.Position // full-frame positions per frame
	Fail        map[int]bool             // frames on which Detect errors

	mu    sync.Mutex
	calls int
}

// NewFakeDetector returns a detector for scene with an 8px ball.
func NewFakeDetector(scene Scene) *FakeDetector {
	return &FakeDetector{Scene: scene, BallSize: 8, Confidence: 0.9}
}

// Calls returns how many times Detect ran.
func (d *FakeDetector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

// Detect implements detect.Detector.
func (d *FakeDetector) Detect(ctx context.Context, img image.Image, q detect.Query) ([]gate.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.calls++
	d.mu.Unlock()

	w, ok := img.(*FakeWindow)
	if !ok {
		return nil, errors.New("fake detector needs a FakeWindow")
	}
	if d.Fail[w.Frame] {
		return nil, fmt.Errorf("detector fault on frame %d", w.Frame)
	}

	var boxes []gate.Box
	add := func(p track.Position, conf float64) {
		if p.X < float64(w.Rect.Min.X) || p.X >= float64(w.Rect.Max.X) ||
			p.Y < float64(w.Rect.Min.Y) || p.Y >= float64(w.Rect.Max.Y) {
			return
		}
		if conf < q.ConfThreshold || !q.Allows(32) {
			return
		}
		cx := (p.X - float64(w.Rect.Min.X)) * w.Zoom
		cy := (p.Y - float64(w.Rect.Min.Y)) * w.Zoom
		half := d.BallSize * w.Zoom / 2
		boxes = append(boxes, gate.Box{
			X1: cx - half, Y1: cy - half, X2: cx + half, Y2: cy + half,
			Confidence: conf, ClassID: 32,
		})
	}

	if d.Scene != nil {
		if p, ok := d.Scene(w.Frame); ok {
			add(p, d.Confidence)
		}
	}
	for _, p := range d.Distractors[w.Frame] {
		add(p, d.Confidence/2)
	}
	return boxes, nil
}

var (
	_ detect.FrameSource = (*FakeFrames)(nil)
	_ detect.Detector    = (*FakeDetector)(nil)
)
