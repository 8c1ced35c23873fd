package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/banshee-data/pitchtrace/internal/ball/debug"
	"github.com/banshee-data/pitchtrace/internal/ball/gate"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pitchStart = track.Position{X: 1000, Y: 300}
	pitchVel   = track.Position{X: -10, Y: 0.5}
)

func pitchScene(n int, hidden ...int) (*track.Array, testutil.Scene) {
	truth := testutil.LinearTrack(n, pitchStart, pitchVel)
	visible := testutil.Drop(truth.Clone(), hidden...)
	return truth, testutil.ArrayScene(visible)
}

// ----------------------------------------------------------------------------
// Single-phase clips
// ----------------------------------------------------------------------------

func TestTrackPitcherRecoversHiddenFrames(t *testing.T) {
	t.Parallel()

	truth, scene := pitchScene(60, 25, 26, 27, 28)
	det := testutil.NewFakeDetector(scene)
	det.Fail = map[int]bool{40: true}
	det.Distractors = map[int][]track.Position{
		10: {pitchStart.Add(pitchVel.Scale(10)).Add(track.Position{X: 5, Y: 5})},
		12: {{X: 100, Y: 600}},
	}

	tr := NewTracker(DefaultConfig(), testutil.NewFakeFrames(60), det, track.HandRight)
	ok, got := tr.TrackPitcher(context.Background())
	require.True(t, ok)
	require.NotNil(t, got)
	assert.Equal(t, 60, got.Len())

	for f := 0; f < 60; f++ {
		want, _ := truth.Position(f)
		p, known := got.Position(f)
		require.Truef(t, known, "frame %d unknown", f)
		assert.LessOrEqualf(t, p.Dist(want), 1.0, "frame %d: got %v want %v", f, p, want)
	}

	last := tr.Last()
	require.NotNil(t, last)
	assert.Nil(t, last.Boundary)
	assert.Equal(t, 55, last.Raw.CountValid())
	assert.Equal(t, 60, last.DetectorCalls)
}

func TestTrackBatterUsesHand(t *testing.T) {
	t.Parallel()

	truth := testutil.LinearTrack(50, track.Position{X: 280, Y: 300}, track.Position{X: 10, Y: 0.5})

	left := NewTracker(DefaultConfig(), testutil.NewFakeFrames(50), testutil.NewFakeDetector(testutil.ArrayScene(truth)), track.HandRight)
	ok, got := left.TrackBatter(context.Background(), track.HandLeft)
	require.True(t, ok)
	assert.Equal(t, 50, got.CountValid())

	// A right-handed search starts on the wrong side of the plate and never
	// finds the ball.
	right := NewTracker(DefaultConfig(), testutil.NewFakeFrames(50), testutil.NewFakeDetector(testutil.ArrayScene(truth)), track.HandRight)
	ok, got = right.TrackBatter(context.Background(), track.HandRight)
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestRunInsufficientDetections(t *testing.T) {
	t.Parallel()

	truth := testutil.LinearTrack(40, pitchStart, pitchVel)
	sparse := testutil.DropRange(truth.Clone(), 3, 40)

	tr := NewTracker(DefaultConfig(), testutil.NewFakeFrames(40), testutil.NewFakeDetector(testutil.ArrayScene(sparse)), track.HandRight)
	_, err := tr.Run(context.Background(), track.ClipPitcher, track.HandRight)
	assert.ErrorIs(t, err, ErrInsufficientDetections)
	assert.Nil(t, tr.Last())
}

// ----------------------------------------------------------------------------
// Contact clips
// ----------------------------------------------------------------------------

func TestTrackHitFollowsReversal(t *testing.T) {
	t.Parallel()

	r := testutil.ScenarioReversal(track.HandRight)
	tr := NewTracker(DefaultConfig(), testutil.NewFakeFrames(r.Frames), testutil.NewFakeDetector(testutil.ReversalScene(r)), track.HandRight)

	out, err := tr.Run(context.Background(), track.ClipHit, track.HandRight)
	require.NoError(t, err)
	require.NotNil(t, out.Boundary)
	assert.Equal(t, 69, out.Boundary.ReleaseFrame)
	assert.Equal(t, 70, out.Boundary.HitFrame)
	assert.Equal(t, r.Frames, out.Track.Len())

	cfg := DefaultConfig().Reconcile
	assert.LessOrEqual(t, out.Track.MaxJump(0, 69), cfg.Pitch.MaxDisplacement)
	assert.LessOrEqual(t, out.Track.MaxJump(69, r.Frames-1), cfg.Hit.MaxDisplacement)
}

func TestTrackHitSwitchesEstimatorWhenPitchLost(t *testing.T) {
	t.Parallel()

	// A hard-hit ball outruns the pitch estimator's gate within a frame of
	// contact and leaves the top of the frame at frame 103.
	r := testutil.ScenarioReversal(track.HandRight)
	r.HitVel = track.Position{X: 20, Y: -10}
	scene := func(f int) (track.Position, bool) {
		p := r.At(f)
		return p, f >= 0 && f < r.Frames && p.Y >= 0
	}
	tr := NewTracker(DefaultConfig(), testutil.NewFakeFrames(r.Frames), testutil.NewFakeDetector(scene), track.HandRight)

	out, err := tr.Run(context.Background(), track.ClipHit, track.HandRight)
	require.NoError(t, err)
	assert.Equal(t, 69, out.Boundary.ReleaseFrame)
	assert.Equal(t, 70, out.Boundary.HitFrame)
	assert.Equal(t, 103, out.Raw.CountValid())
	for f := 71; f <= 102; f++ {
		_, ok := out.Raw.Position(f)
		assert.Truef(t, ok, "hit estimator should claim frame %d", f)
	}

	end, terminated := out.Track.End()
	require.True(t, terminated)
	assert.Equal(t, 107, end, "four trailing frames after the last detection")
}

func TestTrackHitWithoutAutoDetect(t *testing.T) {
	t.Parallel()

	r := testutil.ScenarioReversal(track.HandRight)
	det := testutil.NewFakeDetector(testutil.ReversalScene(r))
	tr := NewTracker(DefaultConfig(), testutil.NewFakeFrames(r.Frames), det, track.HandRight)

	ok, got := tr.TrackHit(context.Background(), false)
	assert.False(t, ok)
	assert.Nil(t, got)
	assert.Equal(t, 0, det.Calls())
}

// ----------------------------------------------------------------------------
// Plumbing
// ----------------------------------------------------------------------------

func TestRunHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, scene := pitchScene(30)
	tr := NewTracker(DefaultConfig(), testutil.NewFakeFrames(30), testutil.NewFakeDetector(scene), track.HandRight)
	_, err := tr.Run(ctx, track.ClipPitcher, track.HandRight)
	assert.True(t, errors.Is(err, context.Canceled))

	ok, _ := tr.TrackPitcher(ctx)
	assert.False(t, ok)
}

func TestRunRecordsDebugFrames(t *testing.T) {
	t.Parallel()

	_, scene := pitchScene(30)
	tr := NewTracker(DefaultConfig(), testutil.NewFakeFrames(30), testutil.NewFakeDetector(scene), track.HandRight)
	tr.Debug = debug.NewCollector()
	tr.Debug.SetEnabled(true)

	_, err := tr.Run(context.Background(), track.ClipPitcher, track.HandRight)
	require.NoError(t, err)

	frames := tr.Debug.Frames()
	require.Len(t, frames, 30)
	assert.Nil(t, frames[0].Prediction, "no prediction before the first detection")
	require.NotNil(t, frames[5].Prediction)
	require.NotNil(t, frames[5].Innovation)
	assert.InDelta(t, pitchVel.X, frames[5].Innovation.Velocity.X, 0.5)
	assert.GreaterOrEqual(t, frames[5].Innovation.Mahalanobis, 0.0)
	assert.Less(t, frames[5].Innovation.Mahalanobis, 1.0)
	require.Len(t, frames[5].Candidates, 1)
	assert.Equal(t, gate.Accepted, frames[5].Candidates[0].Verdict)
	assert.False(t, frames[5].Window.Empty())
}

func TestConfigFromTuningDefaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	assert.Equal(t, 4, cfg.MinValidSamples)
	assert.Equal(t, []int{32}, cfg.Query.Classes)
	assert.Equal(t, 640, cfg.Query.InputSize)
	assert.Equal(t, 5, cfg.Pitch.MaxMisses)
	assert.Equal(t, 8, cfg.Hit.MaxMisses)
}
