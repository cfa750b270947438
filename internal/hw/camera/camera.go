package camera

import (
	"errors"
	"image"
	"io"

	"github.com/cjeanneret/BoothGo/internal/logic/geometry"
)

// Errors raised by the adapter itself. Errors coming from the Handle are
// returned as is.
var (
	ErrInvalidTimeout    = errors.New("camera: countdown shall be greater than 0")
	ErrPreviewNotStarted = errors.New("camera: preview shall be started first")
	ErrClosed            = errors.New("camera: driver closed")
)

// EffectNone disables any image effect.
const EffectNone = "none"

// Effects lists the image effects understood by the Raspberry Pi firmware.
var Effects = []string{
	EffectNone, "negative", "solarize", "sketch", "denoise", "emboss",
	"oilpaint", "hatch", "gpen", "pastel", "watercolor", "film", "blur",
	"saturation", "colorswap", "washedout", "posterise", "colorpoint",
	"colorbalance", "cartoon", "deinterlace1", "deinterlace2",
}

// ValidEffect reports whether name is one of Effects.
func ValidEffect(name string) bool {
	for _, e := range Effects {
		if e == name {
			return true
		}
	}
	return false
}

// Configuration is a camera mode produced by the vendor library.
type Configuration struct {
	Mode string      // "preview" or "still"
	Size image.Point // output size
}

// PreviewOptions describes how the live preview is rendered.
type PreviewOptions struct {
	Resolution image.Point
	HFlip      bool
	Fullscreen bool
	Window     geometry.Rect
}

// OverlayID identifies an overlay added to the preview.
type OverlayID int

// Handle is the set of vendor camera calls the adapter relies on.
// Implementations wrap the camera SDK; the adapter owns the handle.
type Handle interface {
	CreatePreviewConfiguration() (Configuration, error)
	Configure(cfg Configuration) error

	StartPreview(opts PreviewOptions) error
	StopPreview() error

	// AddOverlay displays RGBA pixels of the given size on top of the preview.
	AddOverlay(pixels []byte, size image.Point, layer int, window geometry.Rect, fullscreen bool) (OverlayID, error)
	RemoveOverlay(id OverlayID) error

	SetISO(iso int) error
	SetRotation(degrees int) error
	SetImageEffect(effect string) error

	// CaptureFile writes one still encoded in format ("jpeg") to w.
	CaptureFile(w io.Writer, format string) error

	MaxResolution() image.Point
	// HFlip reports whether the sensor output is already mirrored.
	HFlip() bool

	Close() error
}

// OverlayBuilder renders a text overlay of the given size.
type OverlayBuilder interface {
	Build(size image.Point, text string, alpha uint8) (*image.RGBA, error)
}

// Translator maps a symbolic key to display text.
type Translator interface {
	Text(key string) string
}
