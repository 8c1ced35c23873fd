package vision

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/banshee-data/pitchtrace/internal/ball/detect"
	"github.com/banshee-data/pitchtrace/internal/ball/gate"
)

// COCO class id of "sports ball".
const ClassSportsBall = 32

// YOLOConfig holds detector settings that are not part of a Query.
type YOLOConfig struct {
	ModelPath string
	NMSThresh float32
}

// DefaultYOLOConfig returns defaults for a YOLOv8n export.
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath: "models/yolov8n.onnx",
		NMSThresh: 0.45,
	}
}

// YOLODetector runs a YOLOv8 ONNX model through OpenCV's DNN module.
type YOLODetector struct {
	mu     sync.Mutex
	net    gocv.Net
	config YOLOConfig
}

var _ detect.Detector = (*YOLODetector)(nil)

// NewYOLO loads the model named by cfg.
func NewYOLO(cfg YOLOConfig) (*YOLODetector, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", cfg.ModelPath)
	}
	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load YOLO model from %s", cfg.ModelPath)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)
	return &YOLODetector{net: net, config: cfg}, nil
}

// Detect implements detect.Detector. Boxes are in img coordinates.
func (d *YOLODetector) Detect(ctx context.Context, img image.Image, q detect.Query) ([]gate.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mat, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return nil, fmt.Errorf("convert image: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	size := q.InputSize
	if size <= 0 {
		size = 640
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	// ImageToMatRGB yields BGR channel order, so swap back to RGB.
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()
	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("read output: %w", err)
	}
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("unexpected output shape %v", sizes)
	}

	scaleX := float32(mat.Cols()) / float32(size)
	scaleY := float32(mat.Rows()) / float32(size)
	cands := DecodeYOLOv8(data, sizes[1], sizes[2], scaleX, scaleY, q)
	if len(cands) == 0 {
		return nil, nil
	}

	rects := make([]image.Rectangle, len(cands))
	scores := make([]float32, len(cands))
	for i, c := range cands {
		rects[i] = image.Rect(int(c.X1), int(c.Y1), int(c.X2+0.5), int(c.Y2+0.5))
		scores[i] = float32(c.Confidence)
	}
	keep := gocv.NMSBoxes(rects, scores, float32(q.ConfThreshold), d.config.NMSThresh)

	out := make([]gate.Box, 0, len(keep))
	for _, idx := range keep {
		out = append(out, cands[idx])
	}
	return out, nil
}

// DecodeYOLOv8 reads a [1, attrs, dets] YOLOv8 output laid out attribute
// major: rows 0-3 are cx, cy, w, h in model input pixels and the rest are
// per-class scores. Candidates below the threshold or outside the class
// filter are dropped; boxes are scaled into source image pixels.
func DecodeYOLOv8(data []float32, attrs, dets int, scaleX, scaleY float32, q detect.Query) []gate.Box {
	if attrs < 5 || dets <= 0 || len(data) < attrs*dets {
		return nil
	}
	var out []gate.Box
	for i := 0; i < dets; i++ {
		best := float32(0)
		class := -1
		for c := 4; c < attrs; c++ {
			if s := data[c*dets+i]; s > best {
				best = s
				class = c - 4
			}
		}
		if class < 0 || float64(best) < q.ConfThreshold || !q.Allows(class) {
			continue
		}
		cx := data[0*dets+i]
		cy := data[1*dets+i]
		w := data[2*dets+i]
		h := data[3*dets+i]
		out = append(out, gate.Box{
			X1:         float64((cx - w/2) * scaleX),
			Y1:         float64((cy - h/2) * scaleY),
			X2:         float64((cx + w/2) * scaleX),
			Y2:         float64((cy + h/2) * scaleY),
			Confidence: float64(best),
			ClassID:    class,
		})
	}
	return out
}

// Close releases the network.
func (d *YOLODetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.net.Close()
}
