// Package monitor serves the operator-facing web surface: the review
// endpoints the fallback orchestrator blocks on, the stored track API with
// chart and plot renderings, and the debug index.
package monitor

import (
	"context"
	"net/http"
	"time"

	"github.com/banshee-data/pitchtrace/internal/ball/debug"
	sqlite "github.com/banshee-data/pitchtrace/internal/ball/storage/sqlite"
	"github.com/banshee-data/pitchtrace/internal/httputil"
	"github.com/banshee-data/pitchtrace/internal/monitoring"
	"github.com/banshee-data/pitchtrace/internal/version"
)

var logf = monitoring.Prefixed("monitor")

// WebServer handles the HTTP interface for reviewing and inspecting tracks.
type WebServer struct {
	address string
	server  *http.Server
	db      *sqlite.DB
	store   *sqlite.TrackStore
	review  *Review
	debug   *debug.Collector
}

// WebServerConfig contains configuration options for the web server.
// Every collaborator is optional; the matching routes answer 404 without it.
type WebServerConfig struct {
	Address string
	DB      *sqlite.DB
	Store   *sqlite.TrackStore
	Review  *Review
	Debug   *debug.Collector
}

// NewWebServer creates a new web server with the provided configuration.
func NewWebServer(config WebServerConfig) *WebServer {
	ws := &WebServer{
		address: config.Address,
		db:      config.DB,
		store:   config.Store,
		review:  config.Review,
		debug:   config.Debug,
	}
	ws.server = &http.Server{
		Addr:              ws.address,
		Handler:           ws.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ws
}

// Start runs the HTTP server until ctx is cancelled.
func (ws *WebServer) Start(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		logf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logf("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()
	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		logf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			logf("HTTP server force close error: %v", err)
		}
	}
	logf("HTTP server routine stopped")
	return nil
}

// Handler returns the route table.
func (ws *WebServer) Handler() http.Handler {
	return ws.setupRoutes()
}

func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", ws.handleHealth)
	mux.HandleFunc("GET /api/tracks", ws.handleListTracks)
	mux.HandleFunc("GET /api/tracks/{run}", ws.handleGetTrack)
	mux.HandleFunc("GET /api/tracks/{run}/chart", ws.handleTrackChart)
	mux.HandleFunc("GET /api/tracks/{run}/plot.png", ws.handleTrackPNG)
	mux.HandleFunc("GET /api/debug/frames", ws.handleDebugFrames)
	mux.HandleFunc("GET /api/review", ws.handleReview)
	mux.HandleFunc("GET /api/review/preview.png", ws.handleReviewPreview)
	mux.HandleFunc("GET /api/review/track.png", ws.handleReviewTrackPNG)
	mux.HandleFunc("POST /api/review/answer", ws.handleReviewAnswer)
	mux.HandleFunc("POST /api/review/confirm", ws.handleReviewConfirm)

	if ws.db != nil {
		if err := ws.db.AttachAdminRoutes(mux); err != nil {
			logf("admin routes disabled: %v", err)
		}
	}
	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"git_sha": version.GitSHA,
	})
}
