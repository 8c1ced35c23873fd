package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pitchtrace/internal/ball/export"
	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	sqlite "github.com/banshee-data/pitchtrace/internal/ball/storage/sqlite"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/testutil"
)

func seededStore(t *testing.T) (*sqlite.TrackStore, *sqlite.ClipTrack) {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "tracks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	store := sqlite.NewTrackStore(db.DB, nil)

	sc := testutil.ScenarioReversal(track.HandLeft)
	hit := &sqlite.ClipTrack{
		ClipID:   "g3-hit",
		Kind:     track.ClipHit,
		Hand:     track.HandLeft,
		Track:    sc.Array(),
		Boundary: &phase.Boundary{ReleaseFrame: 69, HitFrame: 70, HitPoint: sc.Contact(), Method: phase.MethodIntersection},
	}
	require.NoError(t, store.Save(context.Background(), hit))

	pitch := &sqlite.ClipTrack{
		ClipID: "g3-pitch",
		Kind:   track.ClipPitcher,
		Track:  testutil.LinearTrack(30, track.Position{X: 900, Y: 300}, track.Position{X: -10, Y: 0.5}),
	}
	require.NoError(t, store.Save(context.Background(), pitch))
	return store, hit
}

func TestSelectRuns(t *testing.T) {
	t.Parallel()
	store, hit := seededStore(t)
	ctx := context.Background()

	runs, err := selectRuns(ctx, store, request{runID: hit.RunID})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "g3-hit", runs[0].ClipID)

	runs, err = selectRuns(ctx, store, request{clipID: "g3-pitch"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, track.ClipPitcher, runs[0].Kind)

	runs, err = selectRuns(ctx, store, request{kind: "hit", limit: 10})
	require.NoError(t, err)
	assert.Len(t, runs, 1)

	_, err = selectRuns(ctx, store, request{runID: "missing"})
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
	_, err = selectRuns(ctx, store, request{kind: "bunt"})
	assert.Error(t, err)
	_, err = selectRuns(ctx, store, request{})
	assert.Error(t, err)
}

func TestListWritesJSON(t *testing.T) {
	t.Parallel()
	store, hit := seededStore(t)

	var buf bytes.Buffer
	require.NoError(t, list(context.Background(), &buf, store, request{kind: "hit", limit: 5}))
	var sums []sqlite.ClipTrackSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &sums))
	require.Len(t, sums, 1)
	assert.Equal(t, hit.RunID, sums[0].RunID)

	buf.Reset()
	require.NoError(t, list(context.Background(), &buf, store, request{kind: "batter", limit: 5}))
	assert.Equal(t, "[]\n", buf.String())
}

func TestRenderAndReloadTrackFile(t *testing.T) {
	t.Parallel()
	_, hit := seededStore(t)
	exp := export.New(t.TempDir())

	var out bytes.Buffer
	require.NoError(t, render(&out, exp, []*sqlite.ClipTrack{hit}))
	fields := strings.Split(strings.TrimSpace(out.String()), "\t")
	require.Len(t, fields, 3)
	assert.True(t, strings.HasSuffix(fields[2], export.TrackExt))

	ct, err := loadTrackFile(exp, fields[2])
	require.NoError(t, err)
	assert.Equal(t, track.ClipHit, ct.Kind)
	assert.Equal(t, hit.Track.CountValid(), ct.Track.CountValid())
	assert.Equal(t, export.BaseName(hit.ClipID, hit.RunID), ct.ClipID)

	assert.Error(t, render(&out, exp, nil))
}
