package reconcile

import (
	"math"
	"testing"

	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPos(t *testing.T, arr *track.Array, f int) track.Position {
	t.Helper()
	p, ok := arr.Position(f)
	require.Truef(t, ok, "frame %d unknown", f)
	return p
}

// ----------------------------------------------------------------------------
// Smooth
// ----------------------------------------------------------------------------

func TestSmoothLeavesLineUntouched(t *testing.T) {
	t.Parallel()

	var pts []track.Position
	for i := 0; i < 20; i++ {
		pts = append(pts, track.Position{X: 900 - 10*float64(i), Y: 300 + 0.5*float64(i)})
	}
	got := Smooth(pts, 0.8, 3)
	for i := range pts {
		assert.InDelta(t, pts[i].Y, got[i].Y, 1e-6)
		assert.Equal(t, pts[i].X, got[i].X)
	}
}

func TestSmoothPinsEndsAndReducesNoise(t *testing.T) {
	t.Parallel()

	truth := func(x float64) float64 { return 0.002*x*x - x + 400 }
	var pts []track.Position
	for i := 0; i < 30; i++ {
		x := 100 + 10*float64(i)
		noise := 3.0
		if i%2 == 0 {
			noise = -3.0
		}
		pts = append(pts, track.Position{X: x, Y: truth(x) + noise})
	}

	got := Smooth(pts, 0.8, 3)
	require.Len(t, got, len(pts))
	assert.Equal(t, pts[0], got[0])
	assert.Equal(t, pts[len(pts)-1], got[len(got)-1])

	var rawErr, smoothErr float64
	for i := 1; i < len(pts)-1; i++ {
		rawErr += math.Abs(pts[i].Y - truth(pts[i].X))
		smoothErr += math.Abs(got[i].Y - truth(got[i].X))
	}
	assert.Less(t, smoothErr, rawErr/2)
}

func TestSmoothSkipsDegenerateInput(t *testing.T) {
	t.Parallel()

	few := []track.Position{{X: 0, Y: 0}, {X: 1, Y: 5}, {X: 2, Y: 0}, {X: 3, Y: 5}}
	assert.Equal(t, few, Smooth(few, 1, 3))

	vertical := []track.Position{{X: 5, Y: 0}, {X: 5, Y: 4}, {X: 5, Y: 9}, {X: 5, Y: 11}, {X: 5, Y: 20}}
	assert.Equal(t, vertical, Smooth(vertical, 1, 3))

	assert.Equal(t, vertical, Smooth(vertical, 0, 3))
}

// ----------------------------------------------------------------------------
// Reconcile
// ----------------------------------------------------------------------------

func TestReconcileRecoversMissingRun(t *testing.T) {
	t.Parallel()

	start := track.Position{X: 900, Y: 400}
	vel := track.Position{X: -12, Y: 1.5}
	raw := testutil.DropRange(testutil.LinearTrack(60, start, vel), 25, 30)

	out, err := New(DefaultConfig()).Reconcile(raw, nil)
	require.NoError(t, err)
	require.Equal(t, 60, out.Len())

	for f := 25; f < 30; f++ {
		want := start.Add(vel.Scale(float64(f)))
		got := mustPos(t, out, f)
		assert.LessOrEqualf(t, got.Dist(want), 1.0, "frame %d: got %v want %v", f, got, want)
	}
	_, terminated := out.End()
	assert.False(t, terminated, "no room after the last frame")

	// Input untouched.
	_, ok := raw.Position(27)
	assert.False(t, ok)
}

func TestReconcileAnchorsAndTrailing(t *testing.T) {
	t.Parallel()

	raw := track.NewArray(60)
	for i := 0; i < 50; i++ {
		x := 1000 - 10*float64(i)
		require.NoError(t, raw.Set(i, track.Position{X: x, Y: 300 + 0.4*float64(i) + 2*math.Sin(float64(i))}))
	}

	out, err := New(DefaultConfig()).Reconcile(raw, nil)
	require.NoError(t, err)
	assert.Equal(t, raw.Len(), out.Len())

	assert.Equal(t, mustPos(t, raw, 0), mustPos(t, out, 0))
	assert.Equal(t, mustPos(t, raw, 49), mustPos(t, out, 49))

	end, terminated := out.End()
	require.True(t, terminated)
	assert.Equal(t, 54, end, "four trailing frames then the end marker")
	for f := 50; f < 54; f++ {
		p := mustPos(t, out, f)
		assert.Less(t, p.X, mustPos(t, out, f-1).X, "trailing frames keep moving in the pitch direction")
	}
	for f := 54; f < 60; f++ {
		_, ok := out.Position(f)
		assert.False(t, ok)
	}
}

func TestReconcileRejectsOutlier(t *testing.T) {
	t.Parallel()

	start := track.Position{X: 900, Y: 400}
	vel := track.Position{X: -12, Y: 1.5}
	raw := testutil.LinearTrack(40, start, vel)
	require.NoError(t, raw.Set(20, start.Add(vel.Scale(20)).Add(track.Position{Y: 200})))

	out, err := New(DefaultConfig()).Reconcile(raw, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0, mustPos(t, out, 20).Dist(start.Add(vel.Scale(20))), 1.0)
}

func TestReconcileContactClip(t *testing.T) {
	t.Parallel()

	r := testutil.ScenarioReversal(track.HandRight)
	raw := r.Array()
	b, err := phase.NewSegmenter(phase.DefaultConfig()).Segment(raw, track.HandRight)
	require.NoError(t, err)
	require.Equal(t, 69, b.ReleaseFrame)
	require.Equal(t, 70, b.HitFrame)

	cfg := DefaultConfig()
	out, err := New(cfg).Reconcile(raw, &b)
	require.NoError(t, err)
	require.Equal(t, 120, out.Len())

	assert.LessOrEqual(t, out.MaxJump(0, b.ReleaseFrame), cfg.Pitch.MaxDisplacement)
	assert.LessOrEqual(t, out.MaxJump(b.HitFrame, out.Len()-1), cfg.Hit.MaxDisplacement)
	assert.LessOrEqual(t, out.MaxJump(b.ReleaseFrame, b.HitFrame), cfg.Hit.MaxDisplacement)
	assert.Equal(t, 120, out.CountValid())
}

func TestReconcileAnchorsUnknownHitFrame(t *testing.T) {
	t.Parallel()

	r := testutil.ScenarioReversal(track.HandRight)
	raw := r.Array()
	b := phase.Boundary{ReleaseFrame: 69, HitFrame: 70, HitPoint: r.Contact()}
	raw.Clear(70)

	out, err := New(DefaultConfig()).Reconcile(raw, &b)
	require.NoError(t, err)
	assert.Equal(t, r.Contact(), mustPos(t, out, 70))
	assert.Equal(t, mustPos(t, raw, 69), mustPos(t, out, 69))
}

func TestSpans(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []Span{{Kind: track.PhasePitch, From: 0, To: 10}}, Spans(10, nil))
	b := &phase.Boundary{ReleaseFrame: 4, HitFrame: 5}
	assert.Equal(t, []Span{
		{Kind: track.PhasePitch, From: 0, To: 5},
		{Kind: track.PhaseHit, From: 5, To: 10},
	}, Spans(10, b))
}

// ----------------------------------------------------------------------------
// Densify
// ----------------------------------------------------------------------------

func TestDensify(t *testing.T) {
	t.Parallel()

	rc := New(DefaultConfig())
	pts := []phase.Point{
		{Frame: 30, Pos: track.Position{X: 400, Y: 330}},
		{Frame: 10, Pos: track.Position{X: 600, Y: 310}},
		{Frame: 20, Pos: track.Position{X: 999, Y: 999}},
		{Frame: 20, Pos: track.Position{X: 500, Y: 320}},
		{Frame: 99, Pos: track.Position{X: 1, Y: 1}},
	}

	out, err := rc.Densify(50, pts, track.PhasePitch)
	require.NoError(t, err)
	assert.Equal(t, 50, out.Len())
	assert.Equal(t, 10, out.FirstValid())
	assert.Equal(t, 30, out.LastValid())
	assert.Equal(t, 21, out.CountValid())

	end, terminated := out.End()
	assert.True(t, terminated)
	assert.Equal(t, 31, end)

	p := mustPos(t, out, 15)
	assert.InDelta(t, 550, p.X, 1e-9)
	assert.InDelta(t, 315, p.Y, 1e-6)

	_, err = rc.Densify(50, pts[:1], track.PhasePitch)
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestDensifyContactSmoothsPhasesApart(t *testing.T) {
	t.Parallel()

	r := testutil.ScenarioReversal(track.HandRight)
	var pts []phase.Point
	for f := 0; f < r.Frames; f += 6 {
		pts = append(pts, phase.Point{Frame: f, Pos: r.At(f)})
	}
	pts = append(pts, phase.Point{Frame: r.Frames - 1, Pos: r.At(r.Frames - 1)})

	out, err := New(DefaultConfig()).DensifyContact(r.Frames, pts)
	require.NoError(t, err)
	assert.Equal(t, 0, out.FirstValid())
	assert.Equal(t, r.Frames-1, out.LastValid())
	assert.Equal(t, r.Frames, out.CountValid())

	// Both flights are straight, so every marked point survives smoothing
	// and so does every frame inside either phase.
	for _, p := range pts {
		got := mustPos(t, out, p.Frame)
		assert.InDeltaf(t, p.Pos.X, got.X, 1e-6, "frame %d", p.Frame)
		assert.InDeltaf(t, p.Pos.Y, got.Y, 1e-6, "frame %d", p.Frame)
	}
	for _, f := range []int{20, 61, 80, 110, 118} {
		got := mustPos(t, out, f)
		assert.InDeltaf(t, r.At(f).Y, got.Y, 1e-6, "frame %d", f)
	}
}

func TestDensifyContactWithoutReversal(t *testing.T) {
	t.Parallel()

	rc := New(DefaultConfig())
	pts := phase.Points(testutil.LinearTrack(40, track.Position{X: 800, Y: 300}, track.Position{X: -8, Y: 1}), 0, 40)

	got, err := rc.DensifyContact(40, pts)
	require.NoError(t, err)
	want, err := rc.Densify(40, pts, track.PhasePitch)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))

	_, err = rc.DensifyContact(40, pts[:1])
	assert.ErrorIs(t, err, ErrTooFewPoints)
}

func TestRejectOutliersAndFillGaps(t *testing.T) {
	t.Parallel()

	arr := testutil.LinearTrack(10, track.Position{X: 0, Y: 0}, track.Position{X: 5})
	require.NoError(t, arr.Set(4, track.Position{X: 500}))
	sp := Span{Kind: track.PhasePitch, From: 0, To: 10}

	assert.Equal(t, 1, RejectOutliers(arr, sp, 10))
	_, ok := arr.Position(4)
	assert.False(t, ok)

	FillGaps(arr, sp)
	assert.Equal(t, track.Position{X: 20}, mustPos(t, arr, 4))
	assert.Equal(t, 0, RejectOutliers(arr, sp, 0))
}
