package roi

import (
	"errors"
	"fmt"
	"image"
	"testing"

	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var hd = image.Rect(0, 0, 1280, 720)

func TestInitializeMirrorsByHand(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	right := NewTracker(cfg, hd, track.HandRight).Initialize(track.PhasePitch)
	left := NewTracker(cfg, hd, track.HandLeft).Initialize(track.PhasePitch)

	assert.Greater(t, right.Center().X, 640.0, "right-handed pitch starts in the right half")
	assert.Less(t, left.Center().X, 640.0, "left-handed pitch starts in the left half")
	assert.Equal(t, cfg.Pitch.Zoom, right.Zoom)
	assert.Equal(t, cfg.Pitch.Width, right.Rect.Dx())
}

func TestRepositionClampsToFrame(t *testing.T) {
	t.Parallel()

	tr := NewTracker(DefaultConfig(), hd, track.HandRight)

	w, err := tr.Reposition(track.PhasePitch, track.Position{X: 10, Y: 10})
	require.NoError(t, err)
	assert.True(t, w.Rect.In(hd), "window %v must stay inside frame", w.Rect)
	assert.Equal(t, image.Pt(0, 0), w.Rect.Min)

	w, err = tr.Reposition(track.PhaseHit, track.Position{X: 640, Y: 360})
	require.NoError(t, err)
	assert.Equal(t, 480, w.Rect.Dx())
	assert.Equal(t, 480, w.Rect.Dy())
	assert.Equal(t, track.Position{X: 640, Y: 360}, w.Center())
}

func TestRepositionCollapse(t *testing.T) {
	t.Parallel()

	tr := NewTracker(DefaultConfig(), hd, track.HandRight)

	w, err := tr.Reposition(track.PhasePitch, track.Position{X: -1000, Y: 300})
	assert.True(t, errors.Is(err, ErrROICollapse))
	assert.True(t, w.Empty())

	_, err = NewTracker(DefaultConfig(), image.Rectangle{}, track.HandRight).
		Reposition(track.PhaseHit, track.Position{X: 1, Y: 1})
	assert.True(t, errors.Is(err, ErrROICollapse), "zero-sized frame collapses")
}

// Round trip through window coordinates must be within a pixel for every
// tested window size and zoom.
func TestWindowRoundTrip(t *testing.T) {
	t.Parallel()

	zooms := []float64{0.5, 1, 1.5, 2, 3.7}
	sizes := []int{64, 200, 320, 481}
	centers := []track.Position{{X: 100, Y: 80}, {X: 640, Y: 360}, {X: 1250, Y: 700}}

	for _, z := range zooms {
		for _, s := range sizes {
			for _, c := range centers {
				cfg := Config{
					Pitch: WindowSpec{Width: s, Height: s, Zoom: z},
					Hit:   WindowSpec{Width: s, Height: s, Zoom: z},
				}
				tr := NewTracker(cfg, hd, track.HandRight)
				w, err := tr.Reposition(track.PhasePitch, c)
				require.NoError(t, err)

				t.Run(fmt.Sprintf("z%.1f_s%d_%v", z, s, c), func(t *testing.T) {
					for fx := 0.0; fx <= 1.0; fx += 0.125 {
						for fy := 0.0; fy <= 1.0; fy += 0.125 {
							p := track.Position{
								X: float64(w.Rect.Min.X) + fx*float64(w.Rect.Dx()-1),
								Y: float64(w.Rect.Min.Y) + fy*float64(w.Rect.Dy()-1),
							}
							got := w.ToFullFrame(w.ToWindow(p))
							assert.InDelta(t, p.X, got.X, 1.0)
							assert.InDelta(t, p.Y, got.Y, 1.0)
						}
					}
				})
			}
		}
	}
}

func TestToWindowScalesByZoom(t *testing.T) {
	t.Parallel()

	w := Window{Rect: image.Rect(100, 50, 300, 250), Zoom: 2}
	got := w.ToWindow(track.Position{X: 110, Y: 60})
	assert.Equal(t, track.Position{X: 20, Y: 20}, got)
}
