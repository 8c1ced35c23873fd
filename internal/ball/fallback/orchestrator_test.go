package fallback

import (
	"context"
	"errors"
	"testing"

	"github.com/banshee-data/pitchtrace/internal/ball/reconcile"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ----------------------------------------------------------------------------
// Fakes
// ----------------------------------------------------------------------------

type fakeAnnotator struct {
	prompts []Prompt
	respond func(p Prompt, call int) Response
	calls   int
}

func (a *fakeAnnotator) ShowFrameAndWait(_ context.Context, p Prompt) (Response, error) {
	a.prompts = append(a.prompts, p)
	a.calls++
	return a.respond(p, a.calls), nil
}

func pointOnLine(p Prompt, _ int) Response {
	return Response{Action: ActionPoint, Point: track.Position{X: 1000 - 5*float64(p.Frame), Y: 300}}
}

type fakeConfirmer struct {
	answers []bool
	calls   int
}

func (c *fakeConfirmer) Confirm(_ context.Context, _ *track.Array) (bool, error) {
	i := c.calls
	c.calls++
	if i < len(c.answers) {
		return c.answers[i], nil
	}
	return c.answers[len(c.answers)-1], nil
}

type countingAuto struct {
	calls int
	ok    bool
}

func (a *countingAuto) Track(_ context.Context) (bool, *track.Array) {
	a.calls++
	if !a.ok {
		return false, nil
	}
	return true, testutil.LinearTrack(60, track.Position{X: 900, Y: 300}, track.Position{X: -10})
}

func newOrchestrator(cfg Config, ann Annotator, conf Confirmer) *Orchestrator {
	return New(cfg, reconcile.New(reconcile.DefaultConfig()), ann, conf)
}

// ----------------------------------------------------------------------------
// Run
// ----------------------------------------------------------------------------

func TestRunLongFlightSkipsAutoAttempt(t *testing.T) {
	t.Parallel()

	auto := &countingAuto{}
	ann := &fakeAnnotator{respond: pointOnLine}
	o := newOrchestrator(DefaultConfig(), ann, &fakeConfirmer{answers: []bool{true}})

	res, err := o.Run(context.Background(), Request{
		Clip:   track.ClipPitcher,
		Frames: 200,
		Flight: 200,
		Auto:   auto,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, auto.calls, "detector must not run for flights over the ceiling")
	assert.Equal(t, StateVerified, res.State)
	assert.True(t, res.Manual)
	if diff := cmp.Diff([]State{StateAutoAttempt, StateManualDiff, StateVerified}, res.Transitions); diff != "" {
		t.Errorf("transitions mismatch (-want +got):\n%s", diff)
	}
	require.NotNil(t, res.Track)
	assert.Equal(t, 200, res.Track.Len())
	assert.Len(t, ann.prompts, 13)
	assert.Equal(t, 199, ann.prompts[len(ann.prompts)-1].Frame)
	for _, p := range ann.prompts {
		assert.Equal(t, StateManualDiff, p.Mode)
	}
}

func TestRunAutoSuccess(t *testing.T) {
	t.Parallel()

	auto := &countingAuto{ok: true}
	ann := &fakeAnnotator{respond: pointOnLine}
	o := newOrchestrator(DefaultConfig(), ann, &fakeConfirmer{answers: []bool{true}})

	res, err := o.Run(context.Background(), Request{Clip: track.ClipPitcher, Frames: 60, Auto: auto})
	require.NoError(t, err)

	assert.Equal(t, 1, auto.calls)
	assert.Equal(t, StateVerified, res.State)
	assert.False(t, res.Manual)
	assert.Equal(t, 0, ann.calls)
	assert.Equal(t, []State{StateAutoAttempt, StateVerified}, res.Transitions)
}

func TestRunAutoFailureFallsBackToManual(t *testing.T) {
	t.Parallel()

	auto := &countingAuto{}
	ann := &fakeAnnotator{respond: pointOnLine}
	o := newOrchestrator(DefaultConfig(), ann, &fakeConfirmer{answers: []bool{true}})

	res, err := o.Run(context.Background(), Request{Clip: track.ClipHit, Frames: 60, Auto: auto})
	require.NoError(t, err)

	assert.Equal(t, 1, auto.calls)
	assert.Equal(t, []State{StateAutoAttempt, StateManualDiff, StateVerified}, res.Transitions)
	assert.True(t, res.Manual)
}

func TestRunManualAbort(t *testing.T) {
	t.Parallel()

	ann := &fakeAnnotator{respond: func(p Prompt, call int) Response {
		if call == 3 {
			return Response{Action: ActionAbort}
		}
		return pointOnLine(p, call)
	}}
	conf := &fakeConfirmer{answers: []bool{true}}
	o := newOrchestrator(DefaultConfig(), ann, conf)

	res, err := o.Run(context.Background(), Request{Clip: track.ClipBatter, Frames: 60, ForceManual: true})
	assert.ErrorIs(t, err, ErrManualAbort)
	assert.Equal(t, StateFailed, res.State)
	assert.Nil(t, res.Track)
	assert.Equal(t, 3, ann.calls)
	assert.Equal(t, 0, conf.calls)
}

func TestRunRejectLoopsBackWithAlternateMode(t *testing.T) {
	t.Parallel()

	auto := &countingAuto{ok: true}
	ann := &fakeAnnotator{respond: pointOnLine}
	o := newOrchestrator(DefaultConfig(), ann, &fakeConfirmer{answers: []bool{false, true}})

	res, err := o.Run(context.Background(), Request{Clip: track.ClipPitcher, Frames: 60, Auto: auto})
	require.NoError(t, err)

	assert.Equal(t, 2, auto.calls, "the retry runs detection again")
	assert.Equal(t, 1, res.Retries)
	assert.True(t, res.Manual)
	assert.Equal(t, []State{StateAutoAttempt, StateAutoAttempt, StateManualVisual, StateVerified}, res.Transitions)
}

func TestRunRetriedAutoOffersNewTrack(t *testing.T) {
	t.Parallel()

	calls := 0
	auto := AutoTrackerFunc(func(context.Context) (bool, *track.Array) {
		calls++
		start := track.Position{X: 900 + float64(calls), Y: 300}
		return true, testutil.LinearTrack(60, start, track.Position{X: -10})
	})
	ann := &fakeAnnotator{respond: pointOnLine}
	o := newOrchestrator(DefaultConfig(), ann, &fakeConfirmer{answers: []bool{false, true}})

	res, err := o.Run(context.Background(), Request{Clip: track.ClipPitcher, Frames: 60, Auto: auto})
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, ann.calls)
	assert.False(t, res.Manual)
	assert.Equal(t, 1, res.Retries)
	assert.Equal(t, []State{StateAutoAttempt, StateAutoAttempt, StateVerified}, res.Transitions)
	p, ok := res.Track.Position(0)
	require.True(t, ok)
	assert.Equal(t, 902.0, p.X)
}

func TestRunManualContactClipKeepsMarkedPoints(t *testing.T) {
	t.Parallel()

	r := testutil.ScenarioReversal(track.HandRight)
	cfg := DefaultConfig()
	cfg.ManualMaxSamples = 20
	cfg.ManualMinStride = 6
	ann := &fakeAnnotator{respond: func(p Prompt, _ int) Response {
		return Response{Action: ActionPoint, Point: r.At(p.Frame)}
	}}
	o := newOrchestrator(cfg, ann, &fakeConfirmer{answers: []bool{true}})

	res, err := o.Run(context.Background(), Request{Clip: track.ClipHit, Frames: r.Frames, ForceManual: true})
	require.NoError(t, err)
	require.NotNil(t, res.Track)
	assert.True(t, res.Manual)
	require.Len(t, ann.prompts, 21)

	for _, p := range ann.prompts {
		got, ok := res.Track.Position(p.Frame)
		require.Truef(t, ok, "frame %d unknown", p.Frame)
		want := r.At(p.Frame)
		assert.InDeltaf(t, want.X, got.X, 1e-6, "frame %d", p.Frame)
		assert.InDeltaf(t, want.Y, got.Y, 1e-6, "frame %d", p.Frame)
	}
	for _, f := range []int{20, 110, 118} {
		got, ok := res.Track.Position(f)
		require.True(t, ok)
		assert.InDeltaf(t, r.At(f).Y, got.Y, 1e-6, "frame %d", f)
	}
}

func TestRunRetriesExhausted(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.MaxRetries = 2
	ann := &fakeAnnotator{respond: pointOnLine}
	o := newOrchestrator(cfg, ann, &fakeConfirmer{answers: []bool{false}})

	auto := &countingAuto{ok: true}
	res, err := o.Run(context.Background(), Request{Clip: track.ClipPitcher, Frames: 40, Auto: auto})
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, StateFailed, res.State)
	assert.Equal(t, 3, res.Retries)
	assert.Nil(t, res.Track)

	assert.Equal(t, 3, auto.calls)
	want := []State{
		StateAutoAttempt,
		StateAutoAttempt, StateManualVisual,
		StateAutoAttempt, StateManualDiff,
		StateFailed,
	}
	assert.Equal(t, want, res.Transitions)
}

func TestRunAllSkippedRetriesAnnotation(t *testing.T) {
	t.Parallel()

	ann := &fakeAnnotator{}
	ann.respond = func(p Prompt, call int) Response {
		if p.Mode == StateManualDiff {
			return Response{Action: ActionSkip}
		}
		return pointOnLine(p, call)
	}
	o := newOrchestrator(DefaultConfig(), ann, &fakeConfirmer{answers: []bool{true}})

	res, err := o.Run(context.Background(), Request{Clip: track.ClipPitcher, Frames: 30, ForceManual: true})
	require.NoError(t, err)
	assert.Equal(t, StateVerified, res.State)
	assert.Equal(t, 1, res.Retries)
	assert.Equal(t, []State{StateAutoAttempt, StateManualDiff, StateManualVisual, StateVerified}, res.Transitions)
}

func TestRunHonoursContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	o := newOrchestrator(DefaultConfig(), &fakeAnnotator{respond: pointOnLine}, &fakeConfirmer{answers: []bool{true}})
	res, err := o.Run(ctx, Request{Clip: track.ClipPitcher, Frames: 30, Auto: &countingAuto{ok: true}})
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, StateFailed, res.State)
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func TestSampleFrames(t *testing.T) {
	t.Parallel()

	o := newOrchestrator(DefaultConfig(), nil, nil)
	assert.Equal(t, []int{0, 2, 4, 6, 8, 9}, o.SampleFrames(0, 10))
	assert.Equal(t, []int{5}, o.SampleFrames(5, 1))
	assert.Nil(t, o.SampleFrames(0, 0))

	frames := o.SampleFrames(10, 100)
	assert.LessOrEqual(t, len(frames), DefaultConfig().ManualMaxSamples+1)
	assert.Equal(t, 10, frames[0])
	assert.Equal(t, 109, frames[len(frames)-1])
}

func TestManualModeAlternates(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StateManualDiff, ManualMode(0))
	assert.Equal(t, StateManualVisual, ManualMode(1))
	assert.Equal(t, StateManualDiff, ManualMode(2))
	assert.Equal(t, "manual_visual", StateManualVisual.String())
	assert.Equal(t, "abort", ActionAbort.String())
}
