package main

import (
	"context"
	"flag"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/config"
)

func newFlagSet() *flag.FlagSet {
	fs := flag.NewFlagSet("pitchtrace", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func TestParseFlagsDefaultsFromEnv(t *testing.T) {
	t.Parallel()
	svc := config.ServiceConfig{DBPath: "env.db", ModelPath: "m.onnx", Listen: ":9000", OutputDir: "plots"}

	o, err := parseFlags(newFlagSet(), []string{"-video", "/clips/g7-p12.mp4"}, svc)
	require.NoError(t, err)
	assert.Equal(t, "g7-p12", o.clipID)
	assert.Equal(t, track.ClipPitcher, o.clip)
	assert.Equal(t, track.HandRight, o.hand)
	assert.Equal(t, "env.db", o.dbPath)
	assert.Equal(t, "m.onnx", o.modelPath)
	assert.Equal(t, ":9000", o.listen)
	assert.Equal(t, "plots", o.outputDir)
}

func TestParseFlagsOverrides(t *testing.T) {
	t.Parallel()
	args := []string{
		"-video", "a.mov", "-clip", "hit", "-hand", "left", "-clip-id", "custom",
		"-db", "cli.db", "-listen", "", "-flight-start", "12", "-flight", "40",
		"-manual", "-no-autodetect",
	}
	o, err := parseFlags(newFlagSet(), args, config.ServiceConfig{DBPath: "env.db", Listen: ":9000"})
	require.NoError(t, err)
	assert.Equal(t, track.ClipHit, o.clip)
	assert.Equal(t, track.HandLeft, o.hand)
	assert.Equal(t, "custom", o.clipID)
	assert.Equal(t, "cli.db", o.dbPath)
	assert.Empty(t, o.listen)
	assert.Equal(t, 12, o.flightStart)
	assert.Equal(t, 40, o.flight)
	assert.True(t, o.forceManual)
	assert.True(t, o.noAuto)
}

func TestParseFlagsErrors(t *testing.T) {
	t.Parallel()
	tests := map[string][]string{
		"missing video": {},
		"bad clip":      {"-video", "a.mp4", "-clip", "bunt"},
		"bad hand":      {"-video", "a.mp4", "-hand", "both"},
		"unknown flag":  {"-video", "a.mp4", "-speed"},
	}
	for name, args := range tests {
		_, err := parseFlags(newFlagSet(), args, config.ServiceConfig{})
		assert.Error(t, err, name)
	}
}

func TestAutoTrackerHitWithoutDetection(t *testing.T) {
	t.Parallel()
	// TrackHit(false) reports failure before touching frames.
	at := autoTracker(nil, options{clip: track.ClipHit, noAuto: true})
	ok, arr := at.Track(context.Background())
	assert.False(t, ok)
	assert.Nil(t, arr)
}

func TestRunRequiresMonitor(t *testing.T) {
	t.Parallel()
	// A working detector still needs an operator verdict.
	for _, manual := range []bool{false, true} {
		err := run(context.Background(), options{
			video:       "does-not-exist.mp4",
			clip:        track.ClipPitcher,
			forceManual: manual,
		})
		assert.ErrorIs(t, err, errNoReviewSurface)
	}
}
