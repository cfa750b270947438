package camera

import (
	"bytes"
	"context"
	"image"
	"image/jpeg"
	"io"
	"strconv"
	"time"

	"github.com/cjeanneret/BoothGo/internal/debug"
	"github.com/cjeanneret/BoothGo/internal/i18n"
	"github.com/cjeanneret/BoothGo/internal/logic/geometry"
)

// overlayLayer sits above the preview layer (2) of the Pi renderer.
const overlayLayer = 3

// Settings holds the sensor settings used while previewing and while
// capturing. ISO 0 means automatic.
type Settings struct {
	PreviewISO      int
	CaptureISO      int
	PreviewRotation int
	CaptureRotation int
	Border          int // margin in pixels between the window edge and the preview
}

// PiCamera drives a Raspberry Pi camera through a vendor Handle:
// live preview, countdown overlays and still capture.
//
// A PiCamera is not safe for concurrent use.
type PiCamera struct {
	cam      Handle
	builder  OverlayBuilder
	tr       Translator
	settings Settings

	window     *geometry.Rect // nil when no preview is displayed
	overlay    OverlayID
	hasOverlay bool
	captures   []*bytes.Reader
	closed     bool

	sleep func(ctx context.Context, d time.Duration) error
}

// NewPiCamera creates the adapter. It takes ownership of cam.
func NewPiCamera(cam Handle, builder OverlayBuilder, tr Translator, s Settings) *PiCamera {
	return &PiCamera{
		cam:      cam,
		builder:  builder,
		tr:       tr,
		settings: s,
		sleep:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Initialize puts the camera in preview mode.
func (c *PiCamera) Initialize() error {
	if c.closed {
		return ErrClosed
	}
	cfg, err := c.cam.CreatePreviewConfiguration()
	if err != nil {
		return err
	}
	debug.PrintStruct("Camera configuration", cfg)
	return c.cam.Configure(cfg)
}

// Previewing reports whether a preview is displayed.
func (c *PiCamera) Previewing() bool {
	return c.window != nil
}

// Preview displays the live preview inside window. The sensor may already
// mirror its output; flip is applied relative to that so the picture is
// never flipped twice. Calling Preview while previewing does nothing.
func (c *PiCamera) Preview(window geometry.Rect, flip bool) error {
	if c.closed {
		return ErrClosed
	}
	if c.window != nil {
		return nil
	}

	rect := geometry.FitRect(window, c.cam.MaxResolution(), c.settings.Border)
	hflip := flip != c.cam.HFlip()
	debug.Verbose("Camera: preview in %v (window %v, hflip=%t)", rect, window, hflip)

	err := c.cam.StartPreview(PreviewOptions{
		Resolution: rect.Size(),
		HFlip:      hflip,
		Fullscreen: false,
		Window:     rect,
	})
	if err != nil {
		return err
	}
	w := window
	c.window = &w
	return nil
}

// PreviewCountdown shows timeout, timeout-1, ..., 1 on the preview, one
// second each, then the "smile" prompt. It blocks for timeout seconds.
func (c *PiCamera) PreviewCountdown(timeout int, alpha uint8) error {
	return c.PreviewCountdownContext(context.Background(), timeout, alpha)
}

// PreviewCountdownContext is PreviewCountdown with cancellation. When ctx
// is done the current digit is removed and ctx.Err() is returned.
func (c *PiCamera) PreviewCountdownContext(ctx context.Context, timeout int, alpha uint8) error {
	if c.closed {
		return ErrClosed
	}
	if timeout < 1 {
		return ErrInvalidTimeout
	}
	if c.window == nil {
		return ErrPreviewNotStarted
	}

	for n := timeout; n > 0; n-- {
		if err := c.showOverlay(strconv.Itoa(n), alpha); err != nil {
			return err
		}
		debug.Tick(n)
		if err := c.sleep(ctx, time.Second); err != nil {
			_ = c.hideOverlay()
			return err
		}
		if err := c.hideOverlay(); err != nil {
			return err
		}
	}

	return c.showOverlay(c.tr.Text(i18n.KeySmile), alpha)
}

// PreviewWait blocks for timeout seconds then shows the "smile" prompt.
func (c *PiCamera) PreviewWait(timeout int, alpha uint8) error {
	return c.PreviewWaitContext(context.Background(), timeout, alpha)
}

// PreviewWaitContext is PreviewWait with cancellation.
func (c *PiCamera) PreviewWaitContext(ctx context.Context, timeout int, alpha uint8) error {
	if c.closed {
		return ErrClosed
	}
	if timeout < 0 {
		return ErrInvalidTimeout
	}
	if err := c.sleep(ctx, time.Duration(timeout)*time.Second); err != nil {
		return err
	}
	return c.showOverlay(c.tr.Text(i18n.KeySmile), alpha)
}

// StopPreview removes any overlay and stops the preview.
func (c *PiCamera) StopPreview() error {
	if c.closed {
		return ErrClosed
	}
	if err := c.hideOverlay(); err != nil {
		return err
	}
	if err := c.cam.StopPreview(); err != nil {
		return err
	}
	c.window = nil
	return nil
}

// Capture takes a JPEG still with the given image effect and appends it
// to the captures. The capture ISO and rotation are swapped in for the
// shot when they differ from the preview ones and restored afterwards;
// the effect is always reset to "none", whatever the outcome.
func (c *PiCamera) Capture(effect string) error {
	if c.closed {
		return ErrClosed
	}
	stream, err := c.capture(effect)
	if err != nil {
		return err
	}
	c.captures = append(c.captures, stream)
	debug.Live("Camera: captured %d bytes (effect=%s)", stream.Size(), effect)

	// If StopPreview() has not been called
	return c.hideOverlay()
}

func (c *PiCamera) capture(effect string) (stream *bytes.Reader, err error) {
	s := c.settings

	defer restore(&err, func() error { return c.cam.SetImageEffect(EffectNone) })

	if s.CaptureISO != s.PreviewISO {
		debug.Verbose("Camera: ISO %d -> %d", s.PreviewISO, s.CaptureISO)
		if err := c.cam.SetISO(s.CaptureISO); err != nil {
			return nil, err
		}
		defer restore(&err, func() error { return c.cam.SetISO(s.PreviewISO) })
	}
	if s.CaptureRotation != s.PreviewRotation {
		debug.Verbose("Camera: rotation %d -> %d", s.PreviewRotation, s.CaptureRotation)
		if err := c.cam.SetRotation(s.CaptureRotation); err != nil {
			return nil, err
		}
		defer restore(&err, func() error { return c.cam.SetRotation(s.PreviewRotation) })
	}

	if err := c.cam.SetImageEffect(effect); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := c.cam.CaptureFile(&buf, "jpeg"); err != nil {
		return nil, err
	}
	return bytes.NewReader(buf.Bytes()), nil
}

// restore runs a cleanup call; its error is reported only if nothing
// failed before.
func restore(err *error, fn func() error) {
	if rerr := fn(); rerr != nil && *err == nil {
		*err = rerr
	}
}

// Captures returns the captured streams, oldest first.
func (c *PiCamera) Captures() []*bytes.Reader {
	out := make([]*bytes.Reader, len(c.captures))
	copy(out, c.captures)
	return out
}

// LastCapture returns the most recent capture.
func (c *PiCamera) LastCapture() (*bytes.Reader, bool) {
	if len(c.captures) == 0 {
		return nil, false
	}
	return c.captures[len(c.captures)-1], true
}

// DropCaptures forgets every capture, typically between two sessions.
func (c *PiCamera) DropCaptures() {
	c.captures = nil
}

// Close releases the camera. The PiCamera cannot be used afterwards.
func (c *PiCamera) Close() error {
	if c.closed {
		return ErrClosed
	}
	c.closed = true
	debug.Trace("Camera: closing handle")
	return c.cam.Close()
}

func (c *PiCamera) showOverlay(text string, alpha uint8) error {
	if c.window == nil {
		return nil
	}
	if err := c.hideOverlay(); err != nil {
		return err
	}

	rect := geometry.FitRect(*c.window, c.cam.MaxResolution(), c.settings.Border)
	size := geometry.PadOverlaySize(rect.Size())

	img, err := c.builder.Build(size, text, alpha)
	if err != nil {
		return err
	}
	id, err := c.cam.AddOverlay(img.Pix, img.Bounds().Size(), overlayLayer, rect, false)
	if err != nil {
		return err
	}
	c.overlay = id
	c.hasOverlay = true
	return nil
}

func (c *PiCamera) hideOverlay() error {
	if !c.hasOverlay {
		return nil
	}
	if err := c.cam.RemoveOverlay(c.overlay); err != nil {
		return err
	}
	c.hasOverlay = false
	return nil
}

// PostProcess rewinds a capture stream and decodes it.
func PostProcess(stream io.ReadSeeker) (image.Image, error) {
	if _, err := stream.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	return jpeg.Decode(stream)
}
