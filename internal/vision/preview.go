package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/banshee-data/pitchtrace/internal/ball/fallback"
)

// Previewer renders operator previews from resident frames. The
// frame-difference mode highlights moving pixels against the previous
// frame; the visual mode shows the frame as is. Both are downscaled to at
// most MaxWidth pixels wide.
type Previewer struct {
	frames   *VideoFrames
	MaxWidth int
	// DiffGain amplifies the absolute difference so a small ball stands out.
	DiffGain float64
}

// NewPreviewer returns a Previewer over frames.
func NewPreviewer(frames *VideoFrames) *Previewer {
	return &Previewer{frames: frames, MaxWidth: 1280, DiffGain: 4}
}

// Preview renders frame in mode.
func (p *Previewer) Preview(frame int, mode fallback.State) (image.Image, error) {
	src, err := p.frames.Mat(frame)
	if err != nil {
		return nil, err
	}

	view := gocv.NewMat()
	defer view.Close()
	switch mode {
	case fallback.StateManualDiff:
		prevIdx := frame - 1
		if prevIdx < 0 {
			prevIdx = frame + 1
		}
		prev, err := p.frames.Mat(prevIdx)
		if err != nil {
			return nil, fmt.Errorf("diff reference: %w", err)
		}
		diff := gocv.NewMat()
		defer diff.Close()
		gocv.AbsDiff(src, prev, &diff)
		diff.ConvertToWithParams(&view, diff.Type(), float32(p.DiffGain), 0)
	case fallback.StateManualVisual:
		src.CopyTo(&view)
	default:
		return nil, fmt.Errorf("no preview for state %s", mode)
	}

	bounds := p.frames.Bounds()
	if p.MaxWidth > 0 && bounds.Dx() > p.MaxWidth {
		scaled := gocv.NewMat()
		defer scaled.Close()
		size := PreviewSize(bounds.Size(), p.MaxWidth)
		gocv.Resize(view, &scaled, size, 0, 0, gocv.InterpolationArea)
		return scaled.ToImage()
	}
	return view.ToImage()
}

// PreviewSize fits size within maxWidth keeping the aspect ratio.
func PreviewSize(size image.Point, maxWidth int) image.Point {
	if maxWidth <= 0 || size.X <= maxWidth {
		return size
	}
	return ScaledSize(size, float64(maxWidth)/float64(size.X))
}
