// Command pitchtrace tracks the ball through one clip, falling back to
// operator annotation over the monitor web UI, and stores the confirmed
// track.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/banshee-data/pitchtrace/internal/ball/debug"
	"github.com/banshee-data/pitchtrace/internal/ball/detect"
	"github.com/banshee-data/pitchtrace/internal/ball/export"
	"github.com/banshee-data/pitchtrace/internal/ball/fallback"
	"github.com/banshee-data/pitchtrace/internal/ball/monitor"
	"github.com/banshee-data/pitchtrace/internal/ball/pipeline"
	sqlite "github.com/banshee-data/pitchtrace/internal/ball/storage/sqlite"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/config"
	"github.com/banshee-data/pitchtrace/internal/monitoring"
	"github.com/banshee-data/pitchtrace/internal/version"
	"github.com/banshee-data/pitchtrace/internal/vision"
)

// options are the parsed command line. Flag defaults come from the
// PITCHTRACE_* environment.
type options struct {
	video       string
	clipID      string
	clip        track.ClipKind
	hand        track.Hand
	dbPath      string
	modelPath   string
	listen      string
	tuningPath  string
	outputDir   string
	maxFrames   int
	flightStart int
	flight      int
	forceManual bool
	noAuto      bool
	debug       bool
	serve       bool
	quiet       bool
}

func parseFlags(fs *flag.FlagSet, args []string, svc config.ServiceConfig) (options, error) {
	var o options
	var clip, hand string
	showVersion := fs.Bool("version", false, "Print version and exit")
	fs.StringVar(&o.video, "video", "", "Clip video file (required)")
	fs.StringVar(&o.clipID, "clip-id", "", "Clip identifier (default: video file name)")
	fs.StringVar(&clip, "clip", "pitcher", "Clip kind: pitcher, batter or hit")
	fs.StringVar(&hand, "hand", "right", "Batter handedness: right or left")
	fs.StringVar(&o.dbPath, "db", svc.DBPath, "Track database path")
	fs.StringVar(&o.modelPath, "model", svc.ModelPath, "YOLO ONNX model path")
	fs.StringVar(&o.listen, "listen", svc.Listen, "Monitor listen address for review and confirmation")
	fs.StringVar(&o.tuningPath, "tuning", svc.TuningPath, "Tuning JSON file (default: built-in defaults)")
	fs.StringVar(&o.outputDir, "out", svc.OutputDir, "Directory for rendered plots (empty disables)")
	fs.IntVar(&o.maxFrames, "max-frames", 0, "Stop decoding after this many frames (0 = all)")
	fs.IntVar(&o.flightStart, "flight-start", 0, "First frame of the ball flight")
	fs.IntVar(&o.flight, "flight", 0, "Estimated flight length in frames (0 = rest of clip)")
	fs.BoolVar(&o.forceManual, "manual", false, "Skip automatic tracking")
	fs.BoolVar(&o.noAuto, "no-autodetect", false, "Hit clips: do not run detection")
	fs.BoolVar(&o.debug, "debug", false, "Collect per-frame tracking internals")
	fs.BoolVar(&o.serve, "serve", false, "Keep serving the monitor after the clip is resolved")
	fs.BoolVar(&o.quiet, "quiet", false, "Silence per-component tracking logs")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if *showVersion {
		fmt.Println("pitchtrace", version.String())
		os.Exit(0)
	}

	if o.video == "" {
		return o, errors.New("-video is required")
	}
	var err error
	if o.clip, err = track.ParseClipKind(clip); err != nil {
		return o, err
	}
	if o.hand, err = track.ParseHand(hand); err != nil {
		return o, err
	}
	if o.clipID == "" {
		o.clipID = strings.TrimSuffix(filepath.Base(o.video), filepath.Ext(o.video))
	}
	return o, nil
}

func main() {
	svc, err := config.LoadServiceConfig()
	if err != nil {
		log.Fatalf("Failed to read environment: %v", err)
	}
	opts, err := parseFlags(flag.CommandLine, os.Args[1:], svc)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if opts.quiet {
		monitoring.SetLogger(nil)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		log.Fatalf("%v", err)
	}
}

// errNoReviewSurface is returned when there is no monitor to confirm or
// annotate through. Every resolution ends in an operator verdict.
var errNoReviewSurface = errors.New("confirmation and annotation need the monitor web UI; set -listen")

func run(ctx context.Context, opts options) error {
	if opts.listen == "" {
		return errNoReviewSurface
	}
	svc := config.ServiceConfig{TuningPath: opts.tuningPath}
	tuning, err := svc.LoadTuning()
	if err != nil {
		return fmt.Errorf("load tuning: %w", err)
	}
	if err := tuning.Validate(); err != nil {
		return fmt.Errorf("invalid tuning: %w", err)
	}

	frames, err := vision.LoadVideo(opts.video, opts.maxFrames)
	if err != nil {
		return err
	}
	defer frames.Close()

	db, err := sqlite.Open(opts.dbPath)
	if err != nil {
		return fmt.Errorf("open track database: %w", err)
	}
	defer db.Close()
	store := sqlite.NewTrackStore(db.DB, nil)

	var detector detect.Detector
	if !opts.forceManual {
		yolo, err := vision.NewYOLO(vision.YOLOConfig{ModelPath: opts.modelPath, NMSThresh: vision.DefaultYOLOConfig().NMSThresh})
		if err != nil {
			log.Printf("Detector unavailable, falling back to annotation: %v", err)
			opts.forceManual = true
		} else {
			defer yolo.Close()
			detector = yolo
		}
	}

	tracker := pipeline.NewTracker(pipeline.ConfigFromTuning(tuning), frames, detector, opts.hand)
	collector := debug.NewCollector()
	collector.SetEnabled(opts.debug)
	tracker.Debug = collector

	review := monitor.NewReview(vision.NewPreviewer(frames), nil)

	var wg sync.WaitGroup
	serveCtx, stopServe := context.WithCancel(ctx)
	defer func() {
		stopServe()
		wg.Wait()
	}()
	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address: opts.listen,
		DB:      db,
		Store:   store,
		Review:  review,
		Debug:   collector,
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := ws.Start(serveCtx); err != nil {
			log.Printf("monitor server stopped: %v", err)
		}
	}()

	req := fallback.Request{
		Clip:        opts.clip,
		Frames:      frames.Len(),
		FlightStart: opts.flightStart,
		Flight:      opts.flight,
		ForceManual: opts.forceManual,
	}
	if detector != nil {
		req.Auto = autoTracker(tracker, opts)
	}

	orch := fallback.New(fallback.ConfigFromTuning(tuning), tracker.Reconciler(), review, review)
	res, err := orch.Run(ctx, req)
	log.Printf("%s %s: %s after %d retries (path %v)", opts.clip, opts.clipID, res.State, res.Retries, res.Transitions)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", opts.clipID, err)
	}

	ct := &sqlite.ClipTrack{
		ClipID:     opts.clipID,
		Kind:       opts.clip,
		Hand:       opts.hand,
		Resolution: sqlite.ResolutionAuto,
		Retries:    res.Retries,
		Track:      res.Track,
	}
	if res.Manual {
		ct.Resolution = sqlite.ResolutionManual
	} else if last := tracker.Last(); last != nil {
		ct.Boundary = last.Boundary
	}
	if err := store.Save(ctx, ct); err != nil {
		return err
	}
	log.Printf("stored run %s (%d/%d frames valid)", ct.RunID, ct.Track.CountValid(), ct.Track.Len())

	if opts.outputDir != "" {
		if _, err := export.New(opts.outputDir).Export(ct); err != nil {
			log.Printf("Failed to export run: %v", err)
		}
	}

	if opts.serve {
		log.Printf("serving monitor on %s until interrupted", opts.listen)
		<-ctx.Done()
	}
	return nil
}

// autoTracker selects the Track* entry point for the clip kind.
func autoTracker(t *pipeline.Tracker, opts options) fallback.AutoTracker {
	return fallback.AutoTrackerFunc(func(ctx context.Context) (bool, *track.Array) {
		switch opts.clip {
		case track.ClipBatter:
			return t.TrackBatter(ctx, opts.hand)
		case track.ClipHit:
			return t.TrackHit(ctx, !opts.noAuto)
		default:
			return t.TrackPitcher(ctx)
		}
	})
}
