// Package overlay renders the text images shown on top of the camera
// preview (countdown digits, prompts).
package overlay

import (
	"fmt"
	"image"
	"image/color"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultTextRatio is the share of the overlay height taken by the text.
const DefaultTextRatio = 0.6

// Builder renders text overlays. The zero value is not usable, use NewBuilder.
type Builder struct {
	face      font.Face
	color     color.RGBA
	textRatio float64
	scaler    xdraw.Scaler
}

// NewBuilder returns a builder drawing white text with the basic 7x13 face.
func NewBuilder() *Builder {
	return &Builder{
		face:      basicfont.Face7x13,
		color:     color.RGBA{R: 255, G: 255, B: 255, A: 255},
		textRatio: DefaultTextRatio,
		scaler:    xdraw.ApproxBiLinear,
	}
}

// WithColor returns a copy of the builder drawing text in c (alpha ignored).
func (b *Builder) WithColor(c color.RGBA) *Builder {
	cp := *b
	cp.color = c
	return &cp
}

// Build renders text centered on a transparent image of the given size.
// alpha is the text opacity (0 transparent, 255 opaque).
func (b *Builder) Build(size image.Point, text string, alpha uint8) (*image.RGBA, error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("overlay: invalid size %v", size)
	}
	dst := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	if text == "" || alpha == 0 {
		return dst, nil
	}

	src := b.renderText(text, alpha)
	target := fitInto(src.Bounds().Size(), size, b.textRatio)
	origin := image.Pt((size.X-target.X)/2, (size.Y-target.Y)/2)
	area := image.Rectangle{Min: origin, Max: origin.Add(target)}

	b.scaler.Scale(dst, area, src, src.Bounds(), xdraw.Over, nil)
	return dst, nil
}

// renderText draws text at its native font size on a tight canvas.
func (b *Builder) renderText(text string, alpha uint8) *image.RGBA {
	m := b.face.Metrics()
	w := font.MeasureString(b.face, text).Ceil()
	h := m.Height.Ceil()
	if w <= 0 {
		w = 1
	}
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))

	c := color.NRGBA{R: b.color.R, G: b.color.G, B: b.color.B, A: alpha}
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(c),
		Face: b.face,
		Dot:  fixed.P(0, m.Ascent.Ceil()),
	}
	d.DrawString(text)
	return canvas
}

// fitInto scales src to ratio of the destination height, shrinking
// further when the text would be wider than the destination.
func fitInto(src, dst image.Point, ratio float64) image.Point {
	if src.X <= 0 || src.Y <= 0 {
		return image.Point{}
	}
	h := int(float64(dst.Y) * ratio)
	w := src.X * h / src.Y
	if maxW := int(float64(dst.X) * 0.9); w > maxW {
		w = maxW
		h = src.Y * w / src.X
	}
	return image.Pt(w, h)
}
