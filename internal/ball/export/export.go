// Package export writes a stored run to disk as a PNG plot, an ECharts
// page and the raw encoded track.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/banshee-data/pitchtrace/internal/ball/codec"
	"github.com/banshee-data/pitchtrace/internal/ball/monitor"
	"github.com/banshee-data/pitchtrace/internal/ball/phase"
	sqlite "github.com/banshee-data/pitchtrace/internal/ball/storage/sqlite"
	"github.com/banshee-data/pitchtrace/internal/ball/track"
	"github.com/banshee-data/pitchtrace/internal/fsutil"
	"github.com/banshee-data/pitchtrace/internal/monitoring"
	"github.com/banshee-data/pitchtrace/internal/security"
)

var logf = monitoring.Prefixed("export")

// TrackExt is the extension of encoded track files.
const TrackExt = ".trk"

// Files names what one Export call wrote.
type Files struct {
	PNG   string `json:"png"`
	HTML  string `json:"html"`
	Track string `json:"track"`
}

// Exporter writes run artefacts under Dir.
type Exporter struct {
	FS  fsutil.FileSystem
	Dir string
}

// New returns an Exporter writing to dir on the local filesystem.
func New(dir string) *Exporter {
	return &Exporter{FS: fsutil.OSFileSystem{}, Dir: dir}
}

// BaseName is the file stem for a run: the sanitized clip id plus the
// first eight characters of the run id.
func BaseName(clipID, runID string) string {
	if len(runID) > 8 {
		runID = runID[:8]
	}
	name := security.SanitizeFilename(clipID)
	if runID != "" {
		name += "-" + security.SanitizeFilename(runID)
	}
	return name
}

// Export renders ct and writes it under Dir.
func (e *Exporter) Export(ct *sqlite.ClipTrack) (Files, error) {
	if ct == nil || ct.Track == nil {
		return Files{}, errors.New("export: no track")
	}
	if err := e.FS.MkdirAll(e.Dir, 0o755); err != nil {
		return Files{}, fmt.Errorf("create %s: %w", e.Dir, err)
	}

	base := filepath.Join(e.Dir, BaseName(ct.ClipID, ct.RunID))
	files := Files{PNG: base + ".png", HTML: base + ".html", Track: base + TrackExt}
	for _, p := range []string{files.PNG, files.HTML, files.Track} {
		if err := security.ValidatePathWithinDirectory(p, e.Dir); err != nil {
			return Files{}, err
		}
	}

	title := fmt.Sprintf("%s %s", ct.Kind, ct.ClipID)
	var png bytes.Buffer
	if err := monitor.WriteTrackPNG(&png, title, ct.Track, ct.Boundary); err != nil {
		return Files{}, fmt.Errorf("render plot: %w", err)
	}
	if err := e.FS.WriteFile(files.PNG, png.Bytes(), 0o644); err != nil {
		return Files{}, err
	}

	w, err := e.FS.Create(files.HTML)
	if err != nil {
		return Files{}, err
	}
	if err := monitor.RenderTrackPage(w, title, ct.Track, ct.Boundary); err != nil {
		w.Close()
		return Files{}, fmt.Errorf("render chart: %w", err)
	}
	if err := w.Close(); err != nil {
		return Files{}, err
	}

	if err := e.FS.WriteFile(files.Track, codec.Marshal(ct.Track, ct.Boundary), 0o644); err != nil {
		return Files{}, err
	}
	logf("wrote %s, %s and %s", files.PNG, files.HTML, files.Track)
	return files, nil
}

// ReadTrack decodes a track file written by Export.
func (e *Exporter) ReadTrack(path string) (*track.Array, *phase.Boundary, error) {
	data, err := e.FS.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	arr, b, err := codec.Unmarshal(data)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return arr, b, nil
}
