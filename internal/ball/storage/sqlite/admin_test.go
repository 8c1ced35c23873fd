package sqlite

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/testutil"
)

func TestHandleBackupStreamsSnapshot(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	store := NewTrackStore(db.DB, nil)
	arr := testutil.LinearTrack(20, track.Position{X: 900, Y: 300}, track.Position{X: -10, Y: 0.5})
	require.NoError(t, store.Save(context.Background(), &ClipTrack{ClipID: "p1", Kind: track.ClipPitcher, Track: arr}))

	rec := httptest.NewRecorder()
	db.handleBackup(rec, httptest.NewRequest(http.MethodGet, "/debug/backup", nil))

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	assert.Equal(t, "application/gzip", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "tracks-")

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	snapshot, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(snapshot, []byte("SQLite format 3\x00")))
}

func TestAttachAdminRoutes(t *testing.T) {
	t.Parallel()
	db := openTestDB(t)
	mux := http.NewServeMux()
	require.NoError(t, db.AttachAdminRoutes(mux))
}
