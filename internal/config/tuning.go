package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// MarginKnot is one point of a gating margin schedule: from Offset frames
// after phase start the gate accepts Margin pixels of travel per frame.
type MarginKnot struct {
	Offset int     `json:"offset"`
	Margin float64 `json:"margin"`
}

// TuningConfig represents the root configuration for tracking parameters.
// Every field is optional; the Get* methods supply defaults for fields
// that are absent so partial files are safe.
type TuningConfig struct {
	// Region of interest windows (full-frame pixels, zoom factor, centre as frame fraction)
	PitchWindowWidth   *int     `json:"pitch_window_width,omitempty"`
	PitchWindowHeight  *int     `json:"pitch_window_height,omitempty"`
	PitchWindowZoom    *float64 `json:"pitch_window_zoom,omitempty"`
	PitchWindowCenterX *float64 `json:"pitch_window_center_x,omitempty"`
	PitchWindowCenterY *float64 `json:"pitch_window_center_y,omitempty"`
	HitWindowWidth     *int     `json:"hit_window_width,omitempty"`
	HitWindowHeight    *int     `json:"hit_window_height,omitempty"`
	HitWindowZoom      *float64 `json:"hit_window_zoom,omitempty"`
	HitWindowCenterX   *float64 `json:"hit_window_center_x,omitempty"`
	HitWindowCenterY   *float64 `json:"hit_window_center_y,omitempty"`

	// Candidate gating (box sizes in window pixels, margins in px/frame)
	PitchMinBox         *float64     `json:"pitch_min_box,omitempty"`
	PitchMaxBox         *float64     `json:"pitch_max_box,omitempty"`
	HitMinBox           *float64     `json:"hit_min_box,omitempty"`
	HitMaxBox           *float64     `json:"hit_max_box,omitempty"`
	PitchMarginSchedule []MarginKnot `json:"pitch_margin_schedule,omitempty"`
	HitMarginSchedule   []MarginKnot `json:"hit_margin_schedule,omitempty"`

	// Detector query
	DetectorConfThreshold *float64 `json:"detector_conf_threshold,omitempty"`
	DetectorInputSize     *int     `json:"detector_input_size,omitempty"`
	DetectorClasses       []int    `json:"detector_classes,omitempty"`

	// Motion estimators
	PitchProcessNoise       *float64 `json:"pitch_process_noise,omitempty"`
	PitchMeasurementNoise   *float64 `json:"pitch_measurement_noise,omitempty"`
	HitProcessNoise         *float64 `json:"hit_process_noise,omitempty"`
	HitMeasurementNoise     *float64 `json:"hit_measurement_noise,omitempty"`
	HitModel                *string  `json:"hit_model,omitempty"` // "cv" or "ca"
	InitialPositionVariance *float64 `json:"initial_position_variance,omitempty"`
	InitialVelocityVariance *float64 `json:"initial_velocity_variance,omitempty"`
	MaxCovarianceDiag       *float64 `json:"max_covariance_diag,omitempty"`
	PitchMaxMisses          *int     `json:"pitch_max_misses,omitempty"`
	HitMaxMisses            *int     `json:"hit_max_misses,omitempty"`

	// Phase segmentation
	TailTurnDeg         *float64 `json:"tail_turn_deg,omitempty"`
	ParallelDeg         *float64 `json:"parallel_deg,omitempty"`
	CrossTolerancePx    *float64 `json:"cross_tolerance_px,omitempty"`
	MaxReleaseBacksteps *int     `json:"max_release_backsteps,omitempty"`
	ContactSearchFrames *int     `json:"contact_search_frames,omitempty"`

	// Reconciliation
	PitchSmoothingAlpha  *float64 `json:"pitch_smoothing_alpha,omitempty"`
	HitSmoothingAlpha    *float64 `json:"hit_smoothing_alpha,omitempty"`
	SmoothingDegree      *int     `json:"smoothing_degree,omitempty"`
	PitchMaxDisplacement *float64 `json:"pitch_max_displacement,omitempty"`
	HitMaxDisplacement   *float64 `json:"hit_max_displacement,omitempty"`
	TrailingFrames       *int     `json:"trailing_frames,omitempty"`
	MinValidSamples      *int     `json:"min_valid_samples,omitempty"`

	// Fallback orchestration
	ManualCeilingFrames *int `json:"manual_ceiling_frames,omitempty"`
	MaxRetries          *int `json:"max_retries,omitempty"`
	ManualMaxSamples    *int `json:"manual_max_samples,omitempty"`
	ManualMinStride     *int `json:"manual_min_stride,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// DefaultTuningConfig returns a TuningConfig with every field populated
// from the built-in defaults. It matches config/tuning.defaults.json.
func DefaultTuningConfig() *TuningConfig {
	e := EmptyTuningConfig()
	return &TuningConfig{
		PitchWindowWidth:        ptrInt(e.GetPitchWindowWidth()),
		PitchWindowHeight:       ptrInt(e.GetPitchWindowHeight()),
		PitchWindowZoom:         ptrFloat64(e.GetPitchWindowZoom()),
		PitchWindowCenterX:      ptrFloat64(e.GetPitchWindowCenterX()),
		PitchWindowCenterY:      ptrFloat64(e.GetPitchWindowCenterY()),
		HitWindowWidth:          ptrInt(e.GetHitWindowWidth()),
		HitWindowHeight:         ptrInt(e.GetHitWindowHeight()),
		HitWindowZoom:           ptrFloat64(e.GetHitWindowZoom()),
		HitWindowCenterX:        ptrFloat64(e.GetHitWindowCenterX()),
		HitWindowCenterY:        ptrFloat64(e.GetHitWindowCenterY()),
		PitchMinBox:             ptrFloat64(e.GetPitchMinBox()),
		PitchMaxBox:             ptrFloat64(e.GetPitchMaxBox()),
		HitMinBox:               ptrFloat64(e.GetHitMinBox()),
		HitMaxBox:               ptrFloat64(e.GetHitMaxBox()),
		PitchMarginSchedule:     e.GetPitchMarginSchedule(),
		HitMarginSchedule:       e.GetHitMarginSchedule(),
		DetectorConfThreshold:   ptrFloat64(e.GetDetectorConfThreshold()),
		DetectorInputSize:       ptrInt(e.GetDetectorInputSize()),
		DetectorClasses:         e.GetDetectorClasses(),
		PitchProcessNoise:       ptrFloat64(e.GetPitchProcessNoise()),
		PitchMeasurementNoise:   ptrFloat64(e.GetPitchMeasurementNoise()),
		HitProcessNoise:         ptrFloat64(e.GetHitProcessNoise()),
		HitMeasurementNoise:     ptrFloat64(e.GetHitMeasurementNoise()),
		HitModel:                ptrString(e.GetHitModel()),
		InitialPositionVariance: ptrFloat64(e.GetInitialPositionVariance()),
		InitialVelocityVariance: ptrFloat64(e.GetInitialVelocityVariance()),
		MaxCovarianceDiag:       ptrFloat64(e.GetMaxCovarianceDiag()),
		PitchMaxMisses:          ptrInt(e.GetPitchMaxMisses()),
		HitMaxMisses:            ptrInt(e.GetHitMaxMisses()),
		TailTurnDeg:             ptrFloat64(e.GetTailTurnDeg()),
		ParallelDeg:             ptrFloat64(e.GetParallelDeg()),
		CrossTolerancePx:        ptrFloat64(e.GetCrossTolerancePx()),
		MaxReleaseBacksteps:     ptrInt(e.GetMaxReleaseBacksteps()),
		ContactSearchFrames:     ptrInt(e.GetContactSearchFrames()),
		PitchSmoothingAlpha:     ptrFloat64(e.GetPitchSmoothingAlpha()),
		HitSmoothingAlpha:       ptrFloat64(e.GetHitSmoothingAlpha()),
		SmoothingDegree:         ptrInt(e.GetSmoothingDegree()),
		PitchMaxDisplacement:    ptrFloat64(e.GetPitchMaxDisplacement()),
		HitMaxDisplacement:      ptrFloat64(e.GetHitMaxDisplacement()),
		TrailingFrames:          ptrInt(e.GetTrailingFrames()),
		MinValidSamples:         ptrInt(e.GetMinValidSamples()),
		ManualCeilingFrames:     ptrInt(e.GetManualCeilingFrames()),
		MaxRetries:              ptrInt(e.GetMaxRetries()),
		ManualMaxSamples:        ptrInt(e.GetManualMaxSamples()),
		ManualMinStride:         ptrInt(e.GetManualMinStride()),
	}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under the max file size.
// Fields omitted from the JSON file retain their default values, so
// partial configs are safe.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical tuning defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for binaries run from the repo.
func MustLoadDefaultConfig() *TuningConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,          // from internal/config/
		"../../../" + DefaultConfigPath,       // from internal/ball/gate/
		"../../../../" + DefaultConfigPath,    // from internal/ball/storage/sqlite/
		"../../../../../" + DefaultConfigPath, // even deeper
	}
	for _, path := range candidates {
		if cfg, err := LoadTuningConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	for name, v := range map[string]*float64{
		"pitch_window_zoom": c.PitchWindowZoom,
		"hit_window_zoom":   c.HitWindowZoom,
	} {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%s must be positive, got %f", name, *v)
		}
	}

	for name, v := range map[string]*float64{
		"pitch_window_center_x":   c.PitchWindowCenterX,
		"pitch_window_center_y":   c.PitchWindowCenterY,
		"hit_window_center_x":     c.HitWindowCenterX,
		"hit_window_center_y":     c.HitWindowCenterY,
		"pitch_smoothing_alpha":   c.PitchSmoothingAlpha,
		"hit_smoothing_alpha":     c.HitSmoothingAlpha,
		"detector_conf_threshold": c.DetectorConfThreshold,
	} {
		if v != nil && (*v < 0 || *v > 1) {
			return fmt.Errorf("%s must be between 0 and 1, got %f", name, *v)
		}
	}

	if c.GetPitchMinBox() > c.GetPitchMaxBox() {
		return fmt.Errorf("pitch_min_box (%f) exceeds pitch_max_box (%f)", c.GetPitchMinBox(), c.GetPitchMaxBox())
	}
	if c.GetHitMinBox() > c.GetHitMaxBox() {
		return fmt.Errorf("hit_min_box (%f) exceeds hit_max_box (%f)", c.GetHitMinBox(), c.GetHitMaxBox())
	}

	if err := validateSchedule("pitch_margin_schedule", c.PitchMarginSchedule); err != nil {
		return err
	}
	if err := validateSchedule("hit_margin_schedule", c.HitMarginSchedule); err != nil {
		return err
	}

	if c.HitModel != nil && *c.HitModel != "cv" && *c.HitModel != "ca" {
		return fmt.Errorf("hit_model must be \"cv\" or \"ca\", got %q", *c.HitModel)
	}

	if c.SmoothingDegree != nil && (*c.SmoothingDegree < 1 || *c.SmoothingDegree > 5) {
		return fmt.Errorf("smoothing_degree must be between 1 and 5, got %d", *c.SmoothingDegree)
	}

	for name, v := range map[string]*int{
		"pitch_max_misses":      c.PitchMaxMisses,
		"hit_max_misses":        c.HitMaxMisses,
		"max_release_backsteps": c.MaxReleaseBacksteps,
		"trailing_frames":       c.TrailingFrames,
		"max_retries":           c.MaxRetries,
	} {
		if v != nil && *v < 0 {
			return fmt.Errorf("%s must be non-negative, got %d", name, *v)
		}
	}

	if c.MinValidSamples != nil && *c.MinValidSamples < 2 {
		return fmt.Errorf("min_valid_samples must be at least 2, got %d", *c.MinValidSamples)
	}
	if c.ManualMaxSamples != nil && *c.ManualMaxSamples < 2 {
		return fmt.Errorf("manual_max_samples must be at least 2, got %d", *c.ManualMaxSamples)
	}

	return nil
}

// validateSchedule requires strictly increasing offsets and non-increasing
// positive margins so the gate only ever narrows as a phase matures.
func validateSchedule(name string, knots []MarginKnot) error {
	for i, k := range knots {
		if k.Margin <= 0 {
			return fmt.Errorf("%s[%d]: margin must be positive, got %f", name, i, k.Margin)
		}
		if k.Offset < 0 {
			return fmt.Errorf("%s[%d]: offset must be non-negative, got %d", name, i, k.Offset)
		}
		if i == 0 {
			continue
		}
		if k.Offset <= knots[i-1].Offset {
			return fmt.Errorf("%s[%d]: offsets must increase (%d after %d)", name, i, k.Offset, knots[i-1].Offset)
		}
		if k.Margin > knots[i-1].Margin {
			return fmt.Errorf("%s[%d]: margin %f widens after %f", name, i, k.Margin, knots[i-1].Margin)
		}
	}
	return nil
}

// GetPitchWindowWidth returns the pitch_window_width value or the default.
func (c *TuningConfig) GetPitchWindowWidth() int {
	if c.PitchWindowWidth == nil {
		return 320
	}
	return *c.PitchWindowWidth
}

// GetPitchWindowHeight returns the pitch_window_height value or the default.
func (c *TuningConfig) GetPitchWindowHeight() int {
	if c.PitchWindowHeight == nil {
		return 320
	}
	return *c.PitchWindowHeight
}

// GetPitchWindowZoom returns the pitch_window_zoom value or the default.
func (c *TuningConfig) GetPitchWindowZoom() float64 {
	if c.PitchWindowZoom == nil {
		return 2.0
	}
	return *c.PitchWindowZoom
}

// GetPitchWindowCenterX returns the pitch_window_center_x value or the default.
func (c *TuningConfig) GetPitchWindowCenterX() float64 {
	if c.PitchWindowCenterX == nil {
		return 0.75
	}
	return *c.PitchWindowCenterX
}

// GetPitchWindowCenterY returns the pitch_window_center_y value or the default.
func (c *TuningConfig) GetPitchWindowCenterY() float64 {
	if c.PitchWindowCenterY == nil {
		return 0.45
	}
	return *c.PitchWindowCenterY
}

// GetHitWindowWidth returns the hit_window_width value or the default.
func (c *TuningConfig) GetHitWindowWidth() int {
	if c.HitWindowWidth == nil {
		return 480
	}
	return *c.HitWindowWidth
}

// GetHitWindowHeight returns the hit_window_height value or the default.
func (c *TuningConfig) GetHitWindowHeight() int {
	if c.HitWindowHeight == nil {
		return 480
	}
	return *c.HitWindowHeight
}

// GetHitWindowZoom returns the hit_window_zoom value or the default.
func (c *TuningConfig) GetHitWindowZoom() float64 {
	if c.HitWindowZoom == nil {
		return 1.0
	}
	return *c.HitWindowZoom
}

// GetHitWindowCenterX returns the hit_window_center_x value or the default.
func (c *TuningConfig) GetHitWindowCenterX() float64 {
	if c.HitWindowCenterX == nil {
		return 0.5
	}
	return *c.HitWindowCenterX
}

// GetHitWindowCenterY returns the hit_window_center_y value or the default.
func (c *TuningConfig) GetHitWindowCenterY() float64 {
	if c.HitWindowCenterY == nil {
		return 0.5
	}
	return *c.HitWindowCenterY
}

// GetPitchMinBox returns the pitch_min_box value or the default.
func (c *TuningConfig) GetPitchMinBox() float64 {
	if c.PitchMinBox == nil {
		return 4
	}
	return *c.PitchMinBox
}

// GetPitchMaxBox returns the pitch_max_box value or the default.
func (c *TuningConfig) GetPitchMaxBox() float64 {
	if c.PitchMaxBox == nil {
		return 60
	}
	return *c.PitchMaxBox
}

// GetHitMinBox returns the hit_min_box value or the default.
func (c *TuningConfig) GetHitMinBox() float64 {
	if c.HitMinBox == nil {
		return 3
	}
	return *c.HitMinBox
}

// GetHitMaxBox returns the hit_max_box value or the default.
func (c *TuningConfig) GetHitMaxBox() float64 {
	if c.HitMaxBox == nil {
		return 80
	}
	return *c.HitMaxBox
}

// GetPitchMarginSchedule returns the pitch_margin_schedule value or the default.
func (c *TuningConfig) GetPitchMarginSchedule() []MarginKnot {
	if len(c.PitchMarginSchedule) == 0 {
		return []MarginKnot{{Offset: 0, Margin: 60}, {Offset: 5, Margin: 40}, {Offset: 15, Margin: 25}}
	}
	return append([]MarginKnot(nil), c.PitchMarginSchedule...)
}

// GetHitMarginSchedule returns the hit_margin_schedule value or the default.
func (c *TuningConfig) GetHitMarginSchedule() []MarginKnot {
	if len(c.HitMarginSchedule) == 0 {
		return []MarginKnot{{Offset: 0, Margin: 80}, {Offset: 5, Margin: 50}, {Offset: 20, Margin: 30}}
	}
	return append([]MarginKnot(nil), c.HitMarginSchedule...)
}

// GetDetectorConfThreshold returns the detector_conf_threshold value or the default.
func (c *TuningConfig) GetDetectorConfThreshold() float64 {
	if c.DetectorConfThreshold == nil {
		return 0.25
	}
	return *c.DetectorConfThreshold
}

// GetDetectorInputSize returns the detector_input_size value or the default.
func (c *TuningConfig) GetDetectorInputSize() int {
	if c.DetectorInputSize == nil {
		return 640
	}
	return *c.DetectorInputSize
}

// GetDetectorClasses returns the detector_classes value or the default
// (COCO "sports ball").
func (c *TuningConfig) GetDetectorClasses() []int {
	if len(c.DetectorClasses) == 0 {
		return []int{32}
	}
	return append([]int(nil), c.DetectorClasses...)
}

// GetPitchProcessNoise returns the pitch_process_noise value or the default.
func (c *TuningConfig) GetPitchProcessNoise() float64 {
	if c.PitchProcessNoise == nil {
		return 1.0
	}
	return *c.PitchProcessNoise
}

// GetPitchMeasurementNoise returns the pitch_measurement_noise value or the default.
func (c *TuningConfig) GetPitchMeasurementNoise() float64 {
	if c.PitchMeasurementNoise == nil {
		return 4.0
	}
	return *c.PitchMeasurementNoise
}

// GetHitProcessNoise returns the hit_process_noise value or the default.
func (c *TuningConfig) GetHitProcessNoise() float64 {
	if c.HitProcessNoise == nil {
		return 4.0
	}
	return *c.HitProcessNoise
}

// GetHitMeasurementNoise returns the hit_measurement_noise value or the default.
func (c *TuningConfig) GetHitMeasurementNoise() float64 {
	if c.HitMeasurementNoise == nil {
		return 9.0
	}
	return *c.HitMeasurementNoise
}

// GetHitModel returns the hit_model value or the default.
func (c *TuningConfig) GetHitModel() string {
	if c.HitModel == nil || *c.HitModel == "" {
		return "ca"
	}
	return *c.HitModel
}

// GetInitialPositionVariance returns the initial_position_variance value or the default.
func (c *TuningConfig) GetInitialPositionVariance() float64 {
	if c.InitialPositionVariance == nil {
		return 10.0
	}
	return *c.InitialPositionVariance
}

// GetInitialVelocityVariance returns the initial_velocity_variance value or the default.
func (c *TuningConfig) GetInitialVelocityVariance() float64 {
	if c.InitialVelocityVariance == nil {
		return 100.0
	}
	return *c.InitialVelocityVariance
}

// GetMaxCovarianceDiag returns the max_covariance_diag value or the default.
func (c *TuningConfig) GetMaxCovarianceDiag() float64 {
	if c.MaxCovarianceDiag == nil {
		return 10000.0
	}
	return *c.MaxCovarianceDiag
}

// GetPitchMaxMisses returns the pitch_max_misses value or the default.
func (c *TuningConfig) GetPitchMaxMisses() int {
	if c.PitchMaxMisses == nil {
		return 5
	}
	return *c.PitchMaxMisses
}

// GetHitMaxMisses returns the hit_max_misses value or the default.
func (c *TuningConfig) GetHitMaxMisses() int {
	if c.HitMaxMisses == nil {
		return 8
	}
	return *c.HitMaxMisses
}

// GetTailTurnDeg returns the tail_turn_deg value or the default.
func (c *TuningConfig) GetTailTurnDeg() float64 {
	if c.TailTurnDeg == nil {
		return 3.0
	}
	return *c.TailTurnDeg
}

// GetParallelDeg returns the parallel_deg value or the default.
func (c *TuningConfig) GetParallelDeg() float64 {
	if c.ParallelDeg == nil {
		return 7.5
	}
	return *c.ParallelDeg
}

// GetCrossTolerancePx returns the cross_tolerance_px value or the default.
func (c *TuningConfig) GetCrossTolerancePx() float64 {
	if c.CrossTolerancePx == nil {
		return 15.0
	}
	return *c.CrossTolerancePx
}

// GetMaxReleaseBacksteps returns the max_release_backsteps value or the default.
func (c *TuningConfig) GetMaxReleaseBacksteps() int {
	if c.MaxReleaseBacksteps == nil {
		return 5
	}
	return *c.MaxReleaseBacksteps
}

// GetContactSearchFrames returns the contact_search_frames value or the default.
func (c *TuningConfig) GetContactSearchFrames() int {
	if c.ContactSearchFrames == nil {
		return 6
	}
	return *c.ContactSearchFrames
}

// GetPitchSmoothingAlpha returns the pitch_smoothing_alpha value or the default.
func (c *TuningConfig) GetPitchSmoothingAlpha() float64 {
	if c.PitchSmoothingAlpha == nil {
		return 0.8
	}
	return *c.PitchSmoothingAlpha
}

// GetHitSmoothingAlpha returns the hit_smoothing_alpha value or the default.
func (c *TuningConfig) GetHitSmoothingAlpha() float64 {
	if c.HitSmoothingAlpha == nil {
		return 0.2
	}
	return *c.HitSmoothingAlpha
}

// GetSmoothingDegree returns the smoothing_degree value or the default.
func (c *TuningConfig) GetSmoothingDegree() int {
	if c.SmoothingDegree == nil {
		return 3
	}
	return *c.SmoothingDegree
}

// GetPitchMaxDisplacement returns the pitch_max_displacement value or the default.
func (c *TuningConfig) GetPitchMaxDisplacement() float64 {
	if c.PitchMaxDisplacement == nil {
		return 60.0
	}
	return *c.PitchMaxDisplacement
}

// GetHitMaxDisplacement returns the hit_max_displacement value or the default.
func (c *TuningConfig) GetHitMaxDisplacement() float64 {
	if c.HitMaxDisplacement == nil {
		return 80.0
	}
	return *c.HitMaxDisplacement
}

// GetTrailingFrames returns the trailing_frames value or the default.
func (c *TuningConfig) GetTrailingFrames() int {
	if c.TrailingFrames == nil {
		return 4
	}
	return *c.TrailingFrames
}

// GetMinValidSamples returns the min_valid_samples value or the default.
func (c *TuningConfig) GetMinValidSamples() int {
	if c.MinValidSamples == nil {
		return 4
	}
	return *c.MinValidSamples
}

// GetManualCeilingFrames returns the manual_ceiling_frames value or the default.
func (c *TuningConfig) GetManualCeilingFrames() int {
	if c.ManualCeilingFrames == nil {
		return 150
	}
	return *c.ManualCeilingFrames
}

// GetMaxRetries returns the max_retries value or the default.
func (c *TuningConfig) GetMaxRetries() int {
	if c.MaxRetries == nil {
		return 4
	}
	return *c.MaxRetries
}

// GetManualMaxSamples returns the manual_max_samples value or the default.
func (c *TuningConfig) GetManualMaxSamples() int {
	if c.ManualMaxSamples == nil {
		return 12
	}
	return *c.ManualMaxSamples
}

// GetManualMinStride returns the manual_min_stride value or the default.
func (c *TuningConfig) GetManualMinStride() int {
	if c.ManualMinStride == nil {
		return 2
	}
	return *c.ManualMinStride
}
