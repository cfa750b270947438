package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/BoothGo/internal/hw/camera"
	"github.com/cjeanneret/BoothGo/internal/logic/geometry"
	"github.com/cjeanneret/BoothGo/internal/plugin"
)

// MaxConfigFileBytes caps the size of a configuration file.
const MaxConfigFileBytes = 1 << 20

// ConfigDir is the directory configuration files must live in.
const ConfigDir = "configs"

// CameraConfig describes the camera and its sensor settings.
// Type selects a concrete Handle implementation (e.g., "mock").
type CameraConfig struct {
	Type            string `yaml:"type"`             // e.g., "mock"
	PreviewISO      int    `yaml:"preview_iso"`      // 0 = auto
	CaptureISO      int    `yaml:"capture_iso"`      // 0 = auto
	PreviewRotation int    `yaml:"preview_rotation"` // 0, 90, 180 or 270
	CaptureRotation int    `yaml:"capture_rotation"` // 0, 90, 180 or 270
	HFlip           bool   `yaml:"hflip"`            // sensor output already mirrored
	Border          int    `yaml:"border"`           // margin around the preview (px)
	WidthPx         int    `yaml:"width_px"`         // mock sensor resolution
	HeightPx        int    `yaml:"height_px"`
}

// PreviewConfig describes the preview window and countdown.
type PreviewConfig struct {
	Window    geometry.Rect `yaml:"window"`
	Flip      bool          `yaml:"flip"`      // mirror the preview like a mirror
	Countdown bool          `yaml:"countdown"` // numbered countdown, otherwise a plain wait
	TimeoutS  int           `yaml:"timeout_s"` // countdown length in seconds
	Alpha     int           `yaml:"alpha"`     // overlay opacity 0-255
	Effect    string        `yaml:"effect"`    // image effect applied at capture
}

// PictureConfig describes where pictures are written.
type PictureConfig struct {
	OutputDir   string `yaml:"output_dir"`
	JPEGQuality int    `yaml:"jpeg_quality"` // 1-100
}

// TriggerConfig describes the capture push button.
type TriggerConfig struct {
	Pin        int `yaml:"pin"`         // BCM pin, 0 = no button
	PollMs     int `yaml:"poll_ms"`     // delay between two reads
	DebounceMs int `yaml:"debounce_ms"` // settle time after a press
}

// UploadConfig enables the Imgur upload plugin. Credentials are read
// from IMGUR_CLIENT_ID and IMGUR_CLIENT_SECRET, never from this file.
type UploadConfig struct {
	Enabled bool   `yaml:"enabled"`
	State   string `yaml:"state"` // booth state triggering the upload
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	Language   string `yaml:"language"`    // e.g., "en", "fr"
	DebugLevel int    `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool   `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
}

// Config aggregates all application configuration.
type Config struct {
	Camera       CameraConfig                 `yaml:"camera"`
	Preview      PreviewConfig                `yaml:"preview"`
	Picture      PictureConfig                `yaml:"picture"`
	Trigger      TriggerConfig                `yaml:"trigger"`
	Upload       UploadConfig                 `yaml:"upload"`
	Translations map[string]map[string]string `yaml:"translations,omitempty"` // language -> key -> text
	Defaults     DefaultsConfig               `yaml:"defaults"`
}

// ValidateConfigPath checks that path is a .yaml file directly inside a
// "configs" directory and does not climb out of it.
func ValidateConfigPath(path string) error {
	if path == "" {
		return fmt.Errorf("config path is empty")
	}
	if containsDotDot(path) {
		return fmt.Errorf("config path %q must not contain '..'", path)
	}
	if filepath.Ext(path) != ".yaml" {
		return fmt.Errorf("config path %q must have a .yaml extension", path)
	}
	clean := filepath.Clean(path)
	if filepath.Base(filepath.Dir(clean)) != ConfigDir {
		return fmt.Errorf("config path %q must be inside a %s/ directory", path, ConfigDir)
	}
	return nil
}

func containsDotDot(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".." {
			return true
		}
	}
	return false
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	if err := ValidateConfigPath(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > MaxConfigFileBytes {
		return nil, fmt.Errorf("config file is %d bytes, max %d", info.Size(), MaxConfigFileBytes)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

var (
	validISO       = map[int]bool{0: true, 100: true, 200: true, 320: true, 400: true, 500: true, 640: true, 800: true}
	validRotations = map[int]bool{0: true, 90: true, 180: true, 270: true}
)

func (cfg *Config) applyDefaults() error {
	// Basic validation
	if cfg.Camera.Type == "" {
		return fmt.Errorf("camera.type is required")
	}
	if !validISO[cfg.Camera.PreviewISO] {
		return fmt.Errorf("camera.preview_iso %d is not supported", cfg.Camera.PreviewISO)
	}
	if !validISO[cfg.Camera.CaptureISO] {
		return fmt.Errorf("camera.capture_iso %d is not supported", cfg.Camera.CaptureISO)
	}
	if !validRotations[cfg.Camera.PreviewRotation] {
		return fmt.Errorf("camera.preview_rotation must be 0, 90, 180 or 270, got %d", cfg.Camera.PreviewRotation)
	}
	if !validRotations[cfg.Camera.CaptureRotation] {
		return fmt.Errorf("camera.capture_rotation must be 0, 90, 180 or 270, got %d", cfg.Camera.CaptureRotation)
	}
	if cfg.Camera.Border < 0 {
		cfg.Camera.Border = 0
	}
	if cfg.Camera.WidthPx <= 0 || cfg.Camera.HeightPx <= 0 {
		cfg.Camera.WidthPx, cfg.Camera.HeightPx = 1920, 1080
	}

	if cfg.Preview.Window.Empty() {
		cfg.Preview.Window = geometry.Rect{Width: 800, Height: 480} // official 7" display
	}
	if w := cfg.Preview.Window; 2*cfg.Camera.Border >= min(w.Width, w.Height) {
		return fmt.Errorf("camera.border %d leaves no room in the %dx%d preview window",
			cfg.Camera.Border, w.Width, w.Height)
	}
	if cfg.Preview.TimeoutS < 0 {
		return fmt.Errorf("preview.timeout_s must be >= 0, got %d", cfg.Preview.TimeoutS)
	}
	if cfg.Preview.TimeoutS == 0 {
		cfg.Preview.TimeoutS = 3
	}
	if cfg.Preview.Alpha < 0 || cfg.Preview.Alpha > 255 {
		return fmt.Errorf("preview.alpha must be between 0 and 255, got %d", cfg.Preview.Alpha)
	}
	if cfg.Preview.Alpha == 0 {
		cfg.Preview.Alpha = 60
	}
	if cfg.Preview.Effect == "" {
		cfg.Preview.Effect = camera.EffectNone
	}
	if !camera.ValidEffect(cfg.Preview.Effect) {
		return fmt.Errorf("preview.effect %q is not supported", cfg.Preview.Effect)
	}

	if cfg.Picture.OutputDir == "" {
		cfg.Picture.OutputDir = "pictures"
	}
	if cfg.Picture.JPEGQuality > 100 {
		return fmt.Errorf("picture.jpeg_quality must be <= 100, got %d", cfg.Picture.JPEGQuality)
	}
	if cfg.Picture.JPEGQuality <= 0 {
		cfg.Picture.JPEGQuality = 90
	}

	if cfg.Trigger.Pin < 0 {
		return fmt.Errorf("trigger.pin must be >= 0, got %d", cfg.Trigger.Pin)
	}
	if cfg.Trigger.PollMs <= 0 {
		cfg.Trigger.PollMs = 20
	}
	if cfg.Trigger.DebounceMs <= 0 {
		cfg.Trigger.DebounceMs = 200
	}

	if cfg.Upload.State == "" {
		cfg.Upload.State = plugin.StatePrint
	}
	if !plugin.ValidState(cfg.Upload.State) {
		return fmt.Errorf("upload.state %q is not a booth state %v", cfg.Upload.State, plugin.States)
	}
	if cfg.Defaults.Language == "" {
		cfg.Defaults.Language = "en"
	}
	return nil
}

// CameraSettings returns the sensor settings for the adapter.
func (c *Config) CameraSettings() camera.Settings {
	return camera.Settings{
		PreviewISO:      c.Camera.PreviewISO,
		CaptureISO:      c.Camera.CaptureISO,
		PreviewRotation: c.Camera.PreviewRotation,
		CaptureRotation: c.Camera.CaptureRotation,
		Border:          c.Camera.Border,
	}
}

// OverlayAlpha returns the overlay opacity.
func (c *Config) OverlayAlpha() uint8 {
	return uint8(c.Preview.Alpha)
}

// TriggerPoll returns the delay between two button reads.
func (c *Config) TriggerPoll() time.Duration {
	return time.Duration(c.Trigger.PollMs) * time.Millisecond
}

// TriggerDebounce returns the settle time after a button press.
func (c *Config) TriggerDebounce() time.Duration {
	return time.Duration(c.Trigger.DebounceMs) * time.Millisecond
}
