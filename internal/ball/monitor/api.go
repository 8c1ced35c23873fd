package monitor

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/banshee-data/pitchtrace/internal/ball/fallback"
	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	sqlite "github.com/banshee-data/pitchtrace/internal/ball/storage/sqlite"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/httputil"
)

// SamplePoint is one valid sample in a JSON track.
type SamplePoint struct {
	Frame int     `json:"frame"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

// BoundaryJSON is the JSON form of a phase boundary.
type BoundaryJSON struct {
	ReleaseFrame int     `json:"release_frame"`
	HitFrame     int     `json:"hit_frame"`
	HitX         float64 `json:"hit_x"`
	HitY         float64 `json:"hit_y"`
	Method       string  `json:"method"`
}

// TrackJSON is the JSON form of a track. Only valid samples are listed.
type TrackJSON struct {
	RunID      string        `json:"run_id,omitempty"`
	ClipID     string        `json:"clip_id,omitempty"`
	ClipKind   string        `json:"clip_kind,omitempty"`
	Hand       string        `json:"hand,omitempty"`
	Resolution string        `json:"resolution,omitempty"`
	Retries    int           `json:"retries,omitempty"`
	CreatedAt  *time.Time    `json:"created_at,omitempty"`
	FrameCount int           `json:"frame_count"`
	EndFrame   *int          `json:"end_frame,omitempty"`
	Boundary   *BoundaryJSON `json:"boundary,omitempty"`
	Samples    []SamplePoint `json:"samples"`
}

// NewTrackJSON converts a track and optional boundary.
func NewTrackJSON(arr *track.Array, b *phase.Boundary) TrackJSON {
	out := TrackJSON{FrameCount: arr.Len(), Samples: make([]SamplePoint, 0, arr.CountValid())}
	if end, ok := arr.End(); ok {
		out.EndFrame = &end
	}
	for _, f := range arr.ValidFrames() {
		p, _ := arr.Position(f)
		out.Samples = append(out.Samples, SamplePoint{Frame: f, X: p.X, Y: p.Y})
	}
	if b != nil {
		out.Boundary = &BoundaryJSON{
			ReleaseFrame: b.ReleaseFrame,
			HitFrame:     b.HitFrame,
			HitX:         b.HitPoint.X,
			HitY:         b.HitPoint.Y,
			Method:       string(b.Method),
		}
	}
	return out
}

func clipTrackJSON(ct *sqlite.ClipTrack) TrackJSON {
	out := NewTrackJSON(ct.Track, ct.Boundary)
	out.RunID = ct.RunID
	out.ClipID = ct.ClipID
	out.ClipKind = ct.Kind.String()
	out.Hand = ct.Hand.String()
	out.Resolution = string(ct.Resolution)
	out.Retries = ct.Retries
	created := ct.CreatedAt.UTC()
	out.CreatedAt = &created
	return out
}

// PromptJSON is the JSON form of an open annotation prompt.
type PromptJSON struct {
	Clip     string    `json:"clip"`
	Frame    int       `json:"frame"`
	Index    int       `json:"index"`
	Total    int       `json:"total"`
	Mode     string    `json:"mode"`
	IssuedAt time.Time `json:"issued_at"`
}

// ReviewJSON describes what the operator is currently being asked.
type ReviewJSON struct {
	Prompt  *PromptJSON `json:"prompt,omitempty"`
	Confirm *TrackJSON  `json:"confirm,omitempty"`
}

// AnswerRequest is the body of POST /api/review/answer.
type AnswerRequest struct {
	Frame  int     `json:"frame"`
	Action string  `json:"action"` // point, skip or abort
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
}

// VerdictRequest is the body of POST /api/review/confirm.
type VerdictRequest struct {
	Accept bool `json:"accept"`
}

func parseAction(s string) (fallback.Action, error) {
	switch s {
	case "point":
		return fallback.ActionPoint, nil
	case "skip":
		return fallback.ActionSkip, nil
	case "abort":
		return fallback.ActionAbort, nil
	default:
		return 0, fmt.Errorf("unknown action %q", s)
	}
}

// handleListTracks serves summaries of stored runs.
// Query params:
//   - kind (required): pitcher, batter or hit
//   - limit (optional; default 50)
func (ws *WebServer) handleListTracks(w http.ResponseWriter, r *http.Request) {
	if ws.store == nil {
		httputil.NotFound(w, "no track store configured")
		return
	}
	kind, err := track.ParseClipKind(r.URL.Query().Get("kind"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 && v <= 1000 {
			limit = v
		}
	}
	sums, err := ws.store.ListByKind(r.Context(), kind, limit)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	if sums == nil {
		sums = []sqlite.ClipTrackSummary{}
	}
	httputil.WriteJSONOK(w, sums)
}

func (ws *WebServer) loadRun(w http.ResponseWriter, r *http.Request) (*sqlite.ClipTrack, bool) {
	if ws.store == nil {
		httputil.NotFound(w, "no track store configured")
		return nil, false
	}
	ct, err := ws.store.Get(r.Context(), r.PathValue("run"))
	if errors.Is(err, sqlite.ErrNotFound) {
		httputil.NotFound(w, "run not found")
		return nil, false
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return nil, false
	}
	return ct, true
}

func (ws *WebServer) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	ct, ok := ws.loadRun(w, r)
	if !ok {
		return
	}
	httputil.WriteJSONOK(w, clipTrackJSON(ct))
}

func (ws *WebServer) handleTrackChart(w http.ResponseWriter, r *http.Request) {
	ct, ok := ws.loadRun(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	title := fmt.Sprintf("%s %s", ct.Kind, ct.ClipID)
	if err := RenderTrackPage(&buf, title, ct.Track, ct.Boundary); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func (ws *WebServer) handleTrackPNG(w http.ResponseWriter, r *http.Request) {
	ct, ok := ws.loadRun(w, r)
	if !ok {
		return
	}
	writePlot(w, fmt.Sprintf("%s %s", ct.Kind, ct.ClipID), ct.Track, ct.Boundary)
}

func writePlot(w http.ResponseWriter, title string, arr *track.Array, b *phase.Boundary) {
	var buf bytes.Buffer
	if err := WriteTrackPNG(&buf, title, arr, b); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render plot: %v", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

// handleDebugFrames serves the per-frame tracking internals of the last run.
func (ws *WebServer) handleDebugFrames(w http.ResponseWriter, r *http.Request) {
	frames := ws.debug.Frames()
	if frames == nil {
		httputil.NotFound(w, "debug collection disabled")
		return
	}
	httputil.WriteJSONOK(w, frames)
}

func (ws *WebServer) handleReview(w http.ResponseWriter, r *http.Request) {
	var out ReviewJSON
	if ws.review != nil {
		p, c := ws.review.Pending()
		if p != nil {
			out.Prompt = &PromptJSON{
				Clip:     p.Clip.String(),
				Frame:    p.Frame,
				Index:    p.Index,
				Total:    p.Total,
				Mode:     p.Mode.String(),
				IssuedAt: p.IssuedAt.UTC(),
			}
		}
		if c != nil {
			tj := NewTrackJSON(c.Track, nil)
			out.Confirm = &tj
		}
	}
	httputil.WriteJSONOK(w, out)
}

func (ws *WebServer) handleReviewPreview(w http.ResponseWriter, r *http.Request) {
	if ws.review == nil {
		httputil.NotFound(w, "review disabled")
		return
	}
	img, err := ws.review.PreviewImage()
	if errors.Is(err, ErrNothingPending) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

func (ws *WebServer) handleReviewTrackPNG(w http.ResponseWriter, r *http.Request) {
	if ws.review == nil {
		httputil.NotFound(w, "review disabled")
		return
	}
	_, c := ws.review.Pending()
	if c == nil {
		httputil.NotFound(w, ErrNothingPending.Error())
		return
	}
	writePlot(w, "track for review", c.Track, nil)
}

func (ws *WebServer) handleReviewAnswer(w http.ResponseWriter, r *http.Request) {
	if ws.review == nil {
		httputil.NotFound(w, "review disabled")
		return
	}
	var req AnswerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid body: %v", err))
		return
	}
	action, err := parseAction(req.Action)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	resp := fallback.Response{Action: action, Point: track.Position{X: req.X, Y: req.Y}}
	if action == fallback.ActionPoint && !resp.Point.IsFinite() {
		httputil.BadRequest(w, "point must be finite")
		return
	}
	if err := ws.review.Answer(req.Frame, resp); err != nil {
		httputil.Conflict(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}

func (ws *WebServer) handleReviewConfirm(w http.ResponseWriter, r *http.Request) {
	if ws.review == nil {
		httputil.NotFound(w, "review disabled")
		return
	}
	var req VerdictRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1024)).Decode(&req); err != nil {
		httputil.BadRequest(w, fmt.Sprintf("invalid body: %v", err))
		return
	}
	if err := ws.review.Verdict(req.Accept); err != nil {
		httputil.Conflict(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "ok"})
}
