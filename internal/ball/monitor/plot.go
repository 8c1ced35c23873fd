package monitor

import (
	"fmt"
	"image/color"
	"io"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
)

var (
	pitchColor   = color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 255}
	hitColor     = color.RGBA{R: 0xff, G: 0x52, B: 0x52, A: 255}
	contactColor = color.RGBA{R: 0x35, G: 0xb7, B: 0x79, A: 255}
)

// SplitPhases returns the valid samples of arr as pitch and hit point sets.
// Without a boundary every sample is pitch.
func SplitPhases(arr *track.Array, b *phase.Boundary) (pitch, hit plotter.XYs) {
	for _, f := range arr.ValidFrames() {
		p, _ := arr.Position(f)
		xy := plotter.XY{X: p.X, Y: p.Y}
		if b != nil && f >= b.HitFrame {
			hit = append(hit, xy)
		} else {
			pitch = append(pitch, xy)
		}
	}
	return pitch, hit
}

// TrackPlot builds an image-space plot of the track. The y axis is
// inverted so the plot matches the frame orientation.
func TrackPlot(title string, arr *track.Array, b *phase.Boundary) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "X (px)"
	p.Y.Label.Text = "Y (px)"
	p.Y.Scale = plot.InvertedScale{Normalizer: plot.LinearScale{}}
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	pitch, hit := SplitPhases(arr, b)
	if len(pitch) == 0 && len(hit) == 0 {
		return nil, fmt.Errorf("track has no valid samples")
	}

	add := func(name string, pts plotter.XYs, c color.Color) error {
		if len(pts) == 0 {
			return nil
		}
		line, points, err := plotter.NewLinePoints(pts)
		if err != nil {
			return err
		}
		line.Color = c
		line.Width = vg.Points(1)
		points.Color = c
		points.Radius = vg.Points(1.5)
		p.Add(line, points)
		p.Legend.Add(name, line)
		return nil
	}
	if err := add("pitch", pitch, pitchColor); err != nil {
		return nil, err
	}
	if err := add("hit", hit, hitColor); err != nil {
		return nil, err
	}

	if b != nil {
		contact, err := plotter.NewScatter(plotter.XYs{{X: b.HitPoint.X, Y: b.HitPoint.Y}})
		if err != nil {
			return nil, err
		}
		contact.Color = contactColor
		contact.Shape = draw.CrossGlyph{}
		contact.Radius = vg.Points(5)
		p.Add(contact)
		p.Legend.Add(fmt.Sprintf("contact (%s)", b.Method), contact)
	}
	return p, nil
}

// WriteTrackPNG renders the track plot as PNG to w.
func WriteTrackPNG(w io.Writer, title string, arr *track.Array, b *phase.Boundary) error {
	p, err := TrackPlot(title, arr, b)
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}

// SaveTrackPNG renders the track plot to a file; the format follows the
// file extension.
func SaveTrackPNG(path, title string, arr *track.Array, b *phase.Boundary) error {
	p, err := TrackPlot(title, arr, b)
	if err != nil {
		return err
	}
	return p.Save(10*vg.Inch, 6*vg.Inch, path)
}
