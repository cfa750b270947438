package camera

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"io"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/logic/geometry"
)

// MockHandle is a Handle without hardware. It logs every call at trace
// level and captures a synthetic gradient picture.
// Used for development on PC or testing.
type MockHandle struct {
	maxRes   image.Point
	hflip    bool
	iso      int
	rotation int
	effect   string
	overlays map[OverlayID]geometry.Rect
	nextID   OverlayID
	closed   bool
}

// NewMockHandle returns a mock sensor of the given resolution.
func NewMockHandle(maxRes image.Point, hflip bool) *MockHandle {
	return &MockHandle{
		maxRes:   maxRes,
		hflip:    hflip,
		effect:   EffectNone,
		overlays: make(map[OverlayID]geometry.Rect),
	}
}

func (m *MockHandle) CreatePreviewConfiguration() (Configuration, error) {
	debug.Cam("CreatePreviewConfiguration")
	return Configuration{Mode: "preview", Size: m.maxRes}, nil
}

func (m *MockHandle) Configure(cfg Configuration) error {
	debug.Cam("Configure", cfg)
	return m.check()
}

func (m *MockHandle) StartPreview(opts PreviewOptions) error {
	debug.Cam("StartPreview", opts)
	return m.check()
}

func (m *MockHandle) StopPreview() error {
	debug.Cam("StopPreview")
	return m.check()
}

func (m *MockHandle) AddOverlay(pixels []byte, size image.Point, layer int, window geometry.Rect, fullscreen bool) (OverlayID, error) {
	debug.Cam("AddOverlay", size, " layer=", layer, " window=", window)
	if err := m.check(); err != nil {
		return 0, err
	}
	if len(pixels) != size.X*size.Y*4 {
		return 0, fmt.Errorf("mock camera: overlay has %d bytes, want %d", len(pixels), size.X*size.Y*4)
	}
	m.nextID++
	m.overlays[m.nextID] = window
	return m.nextID, nil
}

func (m *MockHandle) RemoveOverlay(id OverlayID) error {
	debug.Cam("RemoveOverlay", id)
	if _, ok := m.overlays[id]; !ok {
		return fmt.Errorf("mock camera: unknown overlay %d", id)
	}
	delete(m.overlays, id)
	return nil
}

// Overlays returns the number of overlays currently displayed.
func (m *MockHandle) Overlays() int {
	return len(m.overlays)
}

func (m *MockHandle) SetISO(iso int) error {
	debug.Cam("SetISO", iso)
	m.iso = iso
	return m.check()
}

func (m *MockHandle) SetRotation(degrees int) error {
	debug.Cam("SetRotation", degrees)
	m.rotation = degrees
	return m.check()
}

func (m *MockHandle) SetImageEffect(effect string) error {
	debug.Cam("SetImageEffect", effect)
	m.effect = effect
	return m.check()
}

// CaptureFile encodes a gradient the size of the sensor. The "negative"
// effect inverts it so effects are visible in the output.
func (m *MockHandle) CaptureFile(w io.Writer, format string) error {
	debug.Cam("CaptureFile", format)
	if err := m.check(); err != nil {
		return err
	}
	if format != "jpeg" {
		return fmt.Errorf("mock camera: unsupported format %q", format)
	}

	img := image.NewRGBA(image.Rectangle{Max: m.maxRes})
	for y := 0; y < m.maxRes.Y; y++ {
		for x := 0; x < m.maxRes.X; x++ {
			c := color.RGBA{
				R: uint8(x * 255 / m.maxRes.X),
				G: uint8(y * 255 / m.maxRes.Y),
				B: 128,
				A: 255,
			}
			if m.effect == "negative" {
				c.R, c.G, c.B = 255-c.R, 255-c.G, 255-c.B
			}
			img.SetRGBA(x, y, c)
		}
	}
	return jpeg.Encode(w, img, &jpeg.Options{Quality: 85})
}

func (m *MockHandle) MaxResolution() image.Point {
	return m.maxRes
}

func (m *MockHandle) HFlip() bool {
	return m.hflip
}

func (m *MockHandle) Close() error {
	debug.Cam("Close")
	if err := m.check(); err != nil {
		return err
	}
	m.closed = true
	return nil
}

func (m *MockHandle) check() error {
	if m.closed {
		return fmt.Errorf("mock camera: handle closed")
	}
	return nil
}
