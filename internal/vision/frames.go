// Package vision adapts OpenCV (via gocv) to the tracking pipeline: a
// resident frame source decoded from a video file, a YOLO ONNX ball
// detector, and the operator preview renderer.
package vision

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/banshee-data/pitchtrace/internal/ball/detect"
	"github.com/banshee-data/pitchtrace/internal/monitoring"
)

var logf = monitoring.Prefixed("vision")

// ErrNoFrames is returned when a video decodes to zero frames.
var ErrNoFrames = errors.New("video has no frames")

// VideoFrames holds every frame of a clip in memory. The tracking loop
// jumps back when switching phase, so frames must be randomly accessible.
type VideoFrames struct {
	mats   []gocv.Mat
	bounds image.Rectangle
}

var _ detect.FrameSource = (*VideoFrames)(nil)

// LoadVideo decodes the video at path. maxFrames <= 0 reads to the end.
func LoadVideo(path string, maxFrames int) (*VideoFrames, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	defer capture.Close()

	vf := &VideoFrames{}
	frame := gocv.NewMat()
	defer frame.Close()
	for maxFrames <= 0 || len(vf.mats) < maxFrames {
		if ok := capture.Read(&frame); !ok || frame.Empty() {
			break
		}
		if len(vf.mats) == 0 {
			vf.bounds = image.Rect(0, 0, frame.Cols(), frame.Rows())
		} else if frame.Cols() != vf.bounds.Dx() || frame.Rows() != vf.bounds.Dy() {
			vf.Close()
			return nil, fmt.Errorf("frame %d is %dx%d, clip is %dx%d",
				len(vf.mats), frame.Cols(), frame.Rows(), vf.bounds.Dx(), vf.bounds.Dy())
		}
		vf.mats = append(vf.mats, frame.Clone())
	}
	if len(vf.mats) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoFrames)
	}
	logf("loaded %d frames (%dx%d) from %s", len(vf.mats), vf.bounds.Dx(), vf.bounds.Dy(), path)
	return vf, nil
}

// Len implements detect.FrameSource.
func (v *VideoFrames) Len() int { return len(v.mats) }

// Bounds implements detect.FrameSource.
func (v *VideoFrames) Bounds() image.Rectangle { return v.bounds }

// Mat returns frame i. The Mat stays owned by v.
func (v *VideoFrames) Mat(i int) (gocv.Mat, error) {
	if i < 0 || i >= len(v.mats) {
		return gocv.Mat{}, fmt.Errorf("frame %d out of range [0,%d)", i, len(v.mats))
	}
	return v.mats[i], nil
}

// Window implements detect.FrameSource.
func (v *VideoFrames) Window(i int, rect image.Rectangle, zoom float64) (image.Image, error) {
	src, err := v.Mat(i)
	if err != nil {
		return nil, err
	}
	rect = rect.Intersect(v.bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("window %v outside frame %v", rect, v.bounds)
	}
	if zoom <= 0 {
		return nil, fmt.Errorf("zoom %g must be positive", zoom)
	}

	region := src.Region(rect)
	defer region.Close()

	out := gocv.NewMat()
	defer out.Close()
	size := ScaledSize(rect.Size(), zoom)
	if size == rect.Size() {
		region.CopyTo(&out)
	} else {
		gocv.Resize(region, &out, size, 0, 0, gocv.InterpolationLinear)
	}
	return out.ToImage()
}

// ScaledSize returns size scaled by zoom, at least one pixel per side.
func ScaledSize(size image.Point, zoom float64) image.Point {
	w := int(float64(size.X)*zoom + 0.5)
	h := int(float64(size.Y)*zoom + 0.5)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return image.Pt(w, h)
}

// Close releases every frame.
func (v *VideoFrames) Close() error {
	for i := range v.mats {
		v.mats[i].Close()
	}
	v.mats = nil
	return nil
}
