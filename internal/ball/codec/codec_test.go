package codec

import (
	"math"
	"testing"

	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/testutil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func positions(arr *track.Array) []*track.Position {
	out := make([]*track.Position, arr.Len())
	for i := range out {
		if p, ok := arr.Position(i); ok {
			p := p
			out[i] = &p
		}
	}
	return out
}

func TestRoundTripContactTrack(t *testing.T) {
	t.Parallel()

	arr := testutil.ScenarioReversal(track.HandRight).Array()
	arr.Clear(3)
	arr.Terminate(110)
	b := &phase.Boundary{ReleaseFrame: 69, HitFrame: 70, HitPoint: track.Position{X: 305, Y: 334.75}, Method: phase.MethodIntersection}

	got, gotB, err := Unmarshal(Marshal(arr, b))
	require.NoError(t, err)

	assert.Equal(t, arr.Len(), got.Len())
	end, terminated := got.End()
	assert.True(t, terminated)
	assert.Equal(t, 110, end)
	if diff := cmp.Diff(positions(arr), positions(got)); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(b, gotB); diff != "" {
		t.Errorf("boundary mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTripUnterminatedPitch(t *testing.T) {
	t.Parallel()

	arr := testutil.LinearTrack(30, track.Position{X: 900, Y: 300}, track.Position{X: -10, Y: 0.25})
	got, b, err := Unmarshal(Marshal(arr, nil))
	require.NoError(t, err)
	assert.Nil(t, b)
	_, terminated := got.End()
	assert.False(t, terminated)
	assert.Equal(t, 30, got.CountValid())
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	t.Parallel()

	data := Marshal(track.NewArray(5), nil)
	data = protowire.AppendTag(data, 15, protowire.VarintType)
	data = protowire.AppendVarint(data, 7)
	data = protowire.AppendTag(data, 16, protowire.BytesType)
	data = protowire.AppendString(data, "future")

	got, _, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Len())
}

func TestUnmarshalRejectsMalformed(t *testing.T) {
	t.Parallel()

	sample := func(frame uint64) []byte {
		var s []byte
		s = protowire.AppendTag(s, fieldSampleFrame, protowire.VarintType)
		s = protowire.AppendVarint(s, frame)
		s = protowire.AppendTag(s, fieldSampleX, protowire.Fixed64Type)
		s = protowire.AppendFixed64(s, 0)
		s = protowire.AppendTag(s, fieldSampleY, protowire.Fixed64Type)
		s = protowire.AppendFixed64(s, 0)
		return s
	}
	header := func(count uint64) []byte {
		b := protowire.AppendTag(nil, fieldFrameCount, protowire.VarintType)
		return protowire.AppendVarint(b, count)
	}
	withSample := func(b []byte, s []byte) []byte {
		b = protowire.AppendTag(b, fieldSample, protowire.BytesType)
		return protowire.AppendBytes(b, s)
	}
	withBoundary := func(b []byte, release, hit uint64) []byte {
		var m []byte
		m = protowire.AppendTag(m, fieldBoundaryRelease, protowire.VarintType)
		m = protowire.AppendVarint(m, release)
		m = protowire.AppendTag(m, fieldBoundaryHit, protowire.VarintType)
		m = protowire.AppendVarint(m, hit)
		b = protowire.AppendTag(b, fieldBoundary, protowire.BytesType)
		return protowire.AppendBytes(b, m)
	}

	valid := Marshal(testutil.LinearTrack(10, track.Position{}, track.Position{X: 1}), nil)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "truncated", data: valid[:len(valid)-3]},
		{name: "missing frame count", data: withSample(nil, sample(0))},
		{name: "sample out of range", data: withSample(header(4), sample(9))},
		{name: "incomplete sample", data: withSample(header(4), sample(1)[:2])},
		{name: "oversized frame count", data: header(maxFrames + 1)},
		// release+1 would wrap to math.MinInt64 and pass the hit check.
		{name: "release overflow", data: withBoundary(header(10), math.MaxInt64, 1<<63)},
		{name: "oversized hit frame", data: withBoundary(header(10), 3, maxFrames+1)},
		{
			name: "sample after end",
			data: func() []byte {
				b := withSample(header(10), sample(8))
				b = protowire.AppendTag(b, fieldEnd, protowire.VarintType)
				return protowire.AppendVarint(b, 5)
			}(),
		},
		{
			name: "boundary gap",
			data: Marshal(testutil.LinearTrack(10, track.Position{}, track.Position{X: 1}),
				&phase.Boundary{ReleaseFrame: 3, HitFrame: 5}),
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, _, err := Unmarshal(tt.data)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}
