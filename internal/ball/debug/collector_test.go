package debug

import (
	"image"
	"testing"

	"github.com/banshee-data/pitchtrace/internal/ball/track"
)

func TestNewCollector_InitiallyDisabled(t *testing.T) {
	collector := NewCollector()

	if collector.IsEnabled() {
		t.Error("Expected collector to be initially disabled")
	}

	var nilCollector *Collector
	if nilCollector.IsEnabled() {
		t.Error("Expected nil collector to report disabled")
	}
	if nilCollector.Frames() != nil {
		t.Error("Expected nil collector to have no frames")
	}
}

func TestCollector_DisabledIsNoop(t *testing.T) {
	collector := NewCollector()
	collector.BeginFrame(3, track.PhasePitch)
	collector.RecordCandidate(3, track.Position{X: 1, Y: 2}, 0.9, "accepted")
	collector.RecordMiss("none")

	if frame := collector.Emit(); frame != nil {
		t.Error("Expected nil frame when collector is disabled")
	}
	if len(collector.Frames()) != 0 {
		t.Errorf("Expected empty history, got %d frames", len(collector.Frames()))
	}
}

func TestCollector_RecordsFrame(t *testing.T) {
	collector := NewCollector()
	collector.SetEnabled(true)

	collector.BeginFrame(12, track.PhaseHit)
	collector.RecordWindow(image.Rect(10, 20, 330, 340), 2, false)
	collector.RecordPrediction(track.Position{X: 100, Y: 200})
	collector.RecordCandidate(12, track.Position{X: 103, Y: 204}, 0.8, "accepted")
	collector.RecordCandidate(99, track.Position{X: 0, Y: 0}, 0.1, "size") // other frame, ignored
	collector.RecordInnovation(Innovation{
		Predicted:   track.Position{X: 100, Y: 200},
		Measured:    track.Position{X: 103, Y: 204},
		Mahalanobis: 2.5,
	})

	frame := collector.Emit()
	if frame == nil {
		t.Fatal("Expected non-nil frame when collector is enabled")
	}
	if frame.Frame != 12 || frame.Phase != track.PhaseHit {
		t.Errorf("frame header = %d/%v, want 12/hit", frame.Frame, frame.Phase)
	}
	if frame.Window != image.Rect(10, 20, 330, 340) || frame.Zoom != 2 {
		t.Errorf("window = %v@%v", frame.Window, frame.Zoom)
	}
	if len(frame.Candidates) != 1 {
		t.Fatalf("Expected 1 candidate, got %d", len(frame.Candidates))
	}
	if frame.Innovation == nil || frame.Innovation.Residual != 5 || frame.Innovation.Mahalanobis != 2.5 {
		t.Errorf("innovation = %+v, want residual 5, mahalanobis 2.5", frame.Innovation)
	}
	if frame.Prediction == nil || *frame.Prediction != (track.Position{X: 100, Y: 200}) {
		t.Errorf("prediction = %v", frame.Prediction)
	}

	if collector.Emit() != nil {
		t.Error("Expected nil on second Emit without BeginFrame")
	}
	if len(collector.Frames()) != 1 {
		t.Errorf("Expected 1 retained frame, got %d", len(collector.Frames()))
	}

	collector.Reset()
	if len(collector.Frames()) != 0 {
		t.Error("Expected Reset to clear history")
	}
}
