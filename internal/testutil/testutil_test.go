package testutil

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/banshee-data/pitchtrace/internal/ball/track"
)

// fakeTB records failures without stopping the outer test.
type fakeTB struct {
	testing.TB
	failed bool
}

func (f *fakeTB) Helper() {}
func (f *fakeTB) Errorf(string, ...any) { f.failed = true }
func (f *fakeTB) Fatalf(string, ...any) { f.failed = true }

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	ok := &fakeTB{}
	AssertStatusCode(ok, 200, 200)
	assert.False(t, ok.failed)

	bad := &fakeTB{}
	AssertStatusCode(bad, 404, 200)
	assert.True(t, bad.failed)
}

func TestDecodeJSONBody(t *testing.T) {
	t.Parallel()
	rec := NewTestRecorder()
	rec.Header().Set("Content-Type", "application/json")
	rec.WriteHeader(http.StatusOK)
	_, _ = rec.Write([]byte(`{"frame":3}`))

	var got struct{ Frame int }
	DecodeJSONBody(t, rec, &got)
	assert.Equal(t, 3, got.Frame)

	plain := NewTestRecorder()
	_, _ = plain.Write([]byte(`{}`))
	tb := &fakeTB{}
	DecodeJSONBody(tb, plain, &got)
	assert.True(t, tb.failed)
}

// ---------------------------------------------------------------------------
// Trajectories
// ---------------------------------------------------------------------------

func TestLinearTrackAndDrops(t *testing.T) {
	t.Parallel()
	arr := LinearTrack(10, track.Position{X: 100, Y: 50}, track.Position{X: -5, Y: 1})
	assert.Equal(t, 10, arr.CountValid())
	p, ok := arr.Position(4)
	assert.True(t, ok)
	assert.Equal(t, track.Position{X: 80, Y: 54}, p)

	DropRange(Drop(arr, 0), 5, 8)
	assert.Equal(t, []int{1, 2, 3, 4, 8, 9}, arr.ValidFrames())
}

func TestScenarioReversalMirrors(t *testing.T) {
	t.Parallel()
	right := ScenarioReversal(track.HandRight)
	left := ScenarioReversal(track.HandLeft)
	assert.Equal(t, right.Array().Len(), left.Array().Len())
	assert.Equal(t, right.Contact().Y, left.Contact().Y)
	assert.NotEqual(t, right.Contact().X, left.Contact().X)
}
