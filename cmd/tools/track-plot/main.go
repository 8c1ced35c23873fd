// track-plot renders stored tracking runs, or encoded track files, to PNG
// and HTML for offline review.
//
//	track-plot -run <run-id>
//	track-plot -clip <clip-id>            latest run for a clip
//	track-plot -kind hit -list            list recent runs as JSON
//	track-plot -trk out/clip-1234abcd.trk re-render an exported track
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/pitchtrace/internal/ball/export"
	sqlite "github.com/banshee-data/pitchtrace/internal/ball/storage/sqlite"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/config"
)

type request struct {
	runID  string
	clipID string
	kind   string
	trk    string
	list   bool
	limit  int
}

func main() {
	svc, err := config.LoadServiceConfig()
	if err != nil {
		log.Fatalf("Failed to read environment: %v", err)
	}
	var req request
	dbPath := flag.String("db", svc.DBPath, "Track database path")
	outDir := flag.String("out", svc.OutputDir, "Output directory")
	flag.StringVar(&req.runID, "run", "", "Run id to render")
	flag.StringVar(&req.clipID, "clip", "", "Render the latest run for this clip id")
	flag.StringVar(&req.kind, "kind", "", "Clip kind for -list, or to render every listed run")
	flag.StringVar(&req.trk, "trk", "", "Encoded track file to render instead of a stored run")
	flag.BoolVar(&req.list, "list", false, "List runs of -kind as JSON instead of rendering")
	flag.IntVar(&req.limit, "limit", 20, "Maximum runs for -kind")
	flag.Parse()

	ctx := context.Background()
	exp := export.New(*outDir)

	if req.trk != "" {
		ct, err := loadTrackFile(exp, req.trk)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if err := render(os.Stdout, exp, []*sqlite.ClipTrack{ct}); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}

	db, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", *dbPath, err)
	}
	defer db.Close()
	store := sqlite.NewTrackStore(db.DB, nil)

	if req.list {
		if err := list(ctx, os.Stdout, store, req); err != nil {
			log.Fatalf("%v", err)
		}
		return
	}
	runs, err := selectRuns(ctx, store, req)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if err := render(os.Stdout, exp, runs); err != nil {
		log.Fatalf("%v", err)
	}
}

// runStore is the subset of the track store the tool reads.
type runStore interface {
	Get(ctx context.Context, runID string) (*sqlite.ClipTrack, error)
	Latest(ctx context.Context, clipID string) (*sqlite.ClipTrack, error)
	ListByKind(ctx context.Context, kind track.ClipKind, limit int) ([]sqlite.ClipTrackSummary, error)
	LoadByKind(ctx context.Context, kind track.ClipKind, limit int) ([]*sqlite.ClipTrack, error)
}

func selectRuns(ctx context.Context, store runStore, req request) ([]*sqlite.ClipTrack, error) {
	switch {
	case req.runID != "":
		ct, err := store.Get(ctx, req.runID)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", req.runID, err)
		}
		return []*sqlite.ClipTrack{ct}, nil
	case req.clipID != "":
		ct, err := store.Latest(ctx, req.clipID)
		if err != nil {
			return nil, fmt.Errorf("clip %s: %w", req.clipID, err)
		}
		return []*sqlite.ClipTrack{ct}, nil
	case req.kind != "":
		kind, err := track.ParseClipKind(req.kind)
		if err != nil {
			return nil, err
		}
		return store.LoadByKind(ctx, kind, req.limit)
	}
	return nil, errors.New("one of -run, -clip, -kind or -trk is required")
}

func list(ctx context.Context, w io.Writer, store runStore, req request) error {
	kind, err := track.ParseClipKind(req.kind)
	if err != nil {
		return err
	}
	sums, err := store.ListByKind(ctx, kind, req.limit)
	if err != nil {
		return err
	}
	if sums == nil {
		sums = []sqlite.ClipTrackSummary{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(sums)
}

// loadTrackFile wraps an exported track file as an unsaved run named
// after the file.
func loadTrackFile(exp *export.Exporter, path string) (*sqlite.ClipTrack, error) {
	arr, b, err := exp.ReadTrack(path)
	if err != nil {
		return nil, err
	}
	kind := track.ClipPitcher
	if b != nil {
		kind = track.ClipHit
	}
	return &sqlite.ClipTrack{
		ClipID:   strings.TrimSuffix(filepath.Base(path), export.TrackExt),
		Kind:     kind,
		Track:    arr,
		Boundary: b,
	}, nil
}

func render(w io.Writer, exp *export.Exporter, runs []*sqlite.ClipTrack) error {
	if len(runs) == 0 {
		return errors.New("no runs to render")
	}
	for _, ct := range runs {
		files, err := exp.Export(ct)
		if err != nil {
			return fmt.Errorf("%s: %w", ct.ClipID, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", files.PNG, files.HTML, files.Track)
	}
	return nil
}
