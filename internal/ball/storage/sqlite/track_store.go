package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banshee-data/pitchtrace/internal/ball/codec"
	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/timeutil"
)

// ErrNotFound is returned when no stored run matches the lookup.
var ErrNotFound = errors.New("track run not found")

// Resolution records how a stored track was produced.
type Resolution string

const (
	ResolutionAuto   Resolution = "auto"
	ResolutionManual Resolution = "manual"
)

// ClipTrack is one persisted tracking run for a clip.
type ClipTrack struct {
	RunID      string          `json:"run_id"`
	ClipID     string          `json:"clip_id"`
	Kind       track.ClipKind  `json:"-"`
	Hand       track.Hand      `json:"-"`
	Resolution Resolution      `json:"resolution"`
	Retries    int             `json:"retries"`
	Track      *track.Array    `json:"-"`
	Boundary   *phase.Boundary `json:"boundary,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ClipTrackSummary is a listing row that does not decode the sample blob.
type ClipTrackSummary struct {
	RunID        string     `json:"run_id"`
	ClipID       string     `json:"clip_id"`
	ClipKind     string     `json:"clip_kind"`
	Hand         string     `json:"hand"`
	FrameCount   int        `json:"frame_count"`
	EndFrame     *int       `json:"end_frame,omitempty"`
	ValidFrames  int        `json:"valid_frames"`
	ReleaseFrame *int       `json:"release_frame,omitempty"`
	HitFrame     *int       `json:"hit_frame,omitempty"`
	Resolution   Resolution `json:"resolution"`
	Retries      int        `json:"retries"`
	CreatedAtNs  int64      `json:"created_at_ns"`
}

// TrackStore provides persistence for reconciled clip tracks.
type TrackStore struct {
	db    *sql.DB
	clock timeutil.Clock
}

// NewTrackStore creates a TrackStore. A nil clock uses wall time.
func NewTrackStore(db *sql.DB, clock timeutil.Clock) *TrackStore {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &TrackStore{db: db, clock: clock}
}

// Save inserts a new run. RunID is generated when empty and CreatedAt is
// stamped from the store clock.
func (s *TrackStore) Save(ctx context.Context, ct *ClipTrack) error {
	if ct.Track == nil {
		return fmt.Errorf("save clip %q: nil track", ct.ClipID)
	}
	if ct.ClipID == "" {
		return errors.New("save clip: empty clip id")
	}
	if ct.RunID == "" {
		ct.RunID = uuid.New().String()
	}
	if ct.Resolution == "" {
		ct.Resolution = ResolutionAuto
	}
	ct.CreatedAt = s.clock.Now()

	var endFrame, releaseFrame, hitFrame sql.NullInt64
	if end, ok := ct.Track.End(); ok {
		endFrame = sql.NullInt64{Int64: int64(end), Valid: true}
	}
	if ct.Boundary != nil {
		releaseFrame = sql.NullInt64{Int64: int64(ct.Boundary.ReleaseFrame), Valid: true}
		hitFrame = sql.NullInt64{Int64: int64(ct.Boundary.HitFrame), Valid: true}
	}

	query := `
		INSERT INTO clip_tracks (
			run_id, clip_id, clip_kind, hand, frame_count, end_frame,
			valid_frames, track_blob, created_at_ns,
			release_frame, hit_frame, resolution, retries
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		ct.RunID, ct.ClipID, ct.Kind.String(), ct.Hand.String(),
		ct.Track.Len(), endFrame, ct.Track.CountValid(),
		codec.Marshal(ct.Track, ct.Boundary), ct.CreatedAt.UnixNano(),
		releaseFrame, hitFrame, string(ct.Resolution), ct.Retries,
	)
	if err != nil {
		return fmt.Errorf("insert clip track: %w", err)
	}
	return nil
}

// Get loads a run by ID.
func (s *TrackStore) Get(ctx context.Context, runID string) (*ClipTrack, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, clip_id, clip_kind, hand, resolution, retries, track_blob, created_at_ns
		FROM clip_tracks WHERE run_id = ?
	`, runID)
	return scanClipTrack(row)
}

// Latest loads the most recent run for a clip.
func (s *TrackStore) Latest(ctx context.Context, clipID string) (*ClipTrack, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, clip_id, clip_kind, hand, resolution, retries, track_blob, created_at_ns
		FROM clip_tracks WHERE clip_id = ?
		ORDER BY created_at_ns DESC, rowid DESC
		LIMIT 1
	`, clipID)
	return scanClipTrack(row)
}

// ListByKind returns summaries of the most recent runs of one clip kind,
// newest first. A limit of zero or less returns every run.
func (s *TrackStore) ListByKind(ctx context.Context, kind track.ClipKind, limit int) ([]ClipTrackSummary, error) {
	query := `
		SELECT run_id, clip_id, clip_kind, hand, frame_count, end_frame,
			valid_frames, release_frame, hit_frame, resolution, retries, created_at_ns
		FROM clip_tracks
		WHERE clip_kind = ?
		ORDER BY created_at_ns DESC, rowid DESC
	`
	args := []interface{}{kind.String()}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clip tracks: %w", err)
	}
	defer rows.Close()

	var out []ClipTrackSummary
	for rows.Next() {
		var (
			sum                    ClipTrackSummary
			endFrame, release, hit sql.NullInt64
			resolution             string
		)
		if err := rows.Scan(
			&sum.RunID, &sum.ClipID, &sum.ClipKind, &sum.Hand, &sum.FrameCount, &endFrame,
			&sum.ValidFrames, &release, &hit, &resolution, &sum.Retries, &sum.CreatedAtNs,
		); err != nil {
			return nil, fmt.Errorf("scan clip track: %w", err)
		}
		sum.EndFrame = nullIntPtr(endFrame)
		sum.ReleaseFrame = nullIntPtr(release)
		sum.HitFrame = nullIntPtr(hit)
		sum.Resolution = Resolution(resolution)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// LoadByKind decodes every stored run of one clip kind, newest first.
func (s *TrackStore) LoadByKind(ctx context.Context, kind track.ClipKind, limit int) ([]*ClipTrack, error) {
	sums, err := s.ListByKind(ctx, kind, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*ClipTrack, 0, len(sums))
	for _, sum := range sums {
		ct, err := s.Get(ctx, sum.RunID)
		if err != nil {
			return nil, err
		}
		out = append(out, ct)
	}
	return out, nil
}

// Delete removes a run.
func (s *TrackStore) Delete(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM clip_tracks WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("delete clip track: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanClipTrack(row *sql.Row) (*ClipTrack, error) {
	var (
		ct              ClipTrack
		kind, hand, res string
		blob            []byte
		createdNs       int64
	)
	err := row.Scan(&ct.RunID, &ct.ClipID, &kind, &hand, &res, &ct.Retries, &blob, &createdNs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan clip track: %w", err)
	}

	if ct.Kind, err = track.ParseClipKind(kind); err != nil {
		return nil, err
	}
	if ct.Hand, err = track.ParseHand(hand); err != nil {
		return nil, err
	}
	arr, b, err := codec.Unmarshal(blob)
	if err != nil {
		return nil, fmt.Errorf("decode run %s: %w", ct.RunID, err)
	}
	ct.Track = arr
	ct.Boundary = b
	ct.Resolution = Resolution(res)
	ct.CreatedAt = time.Unix(0, createdNs)
	return &ct, nil
}

func nullIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
