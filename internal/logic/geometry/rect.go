package geometry

import (
	"fmt"
	"image"
)

// Rect is a screen rectangle: top-left corner plus size, in pixels.
type Rect struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Size returns the rectangle dimensions as a point.
func (r Rect) Size() image.Point {
	return image.Pt(r.Width, r.Height)
}

// Center returns the center of the rectangle (integer division).
func (r Rect) Center() image.Point {
	return image.Pt(r.X+r.Width/2, r.Y+r.Height/2)
}

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (r Rect) String() string {
	return fmt.Sprintf("(%d,%d %dx%d)", r.X, r.Y, r.Width, r.Height)
}

// KeepAspectRatio returns the largest size with the aspect ratio of
// original that fits inside target.
func KeepAspectRatio(original, target image.Point) image.Point {
	if original.X <= 0 || original.Y <= 0 || target.X <= 0 || target.Y <= 0 {
		return image.Point{}
	}
	// Compare target.X/original.X with target.Y/original.Y without floats
	if target.X*original.Y <= target.Y*original.X {
		return image.Pt(target.X, original.Y*target.X/original.X)
	}
	return image.Pt(original.X*target.Y/original.Y, target.Y)
}

// FitRect computes where a frame of size max is drawn inside window:
// the window is shrunk by border on every side, the frame keeps its
// aspect ratio and is centered on the window.
func FitRect(window Rect, max image.Point, border int) Rect {
	if border < 0 {
		border = 0
	}
	inner := image.Pt(window.Width-2*border, window.Height-2*border)
	size := KeepAspectRatio(max, inner)
	c := window.Center()
	return Rect{
		X:      c.X - size.X/2,
		Y:      c.Y - size.Y/2,
		Width:  size.X,
		Height: size.Y,
	}
}

// PadOverlaySize rounds width up to a multiple of 32 and height up to a
// multiple of 16, as required by the GPU overlay renderer.
func PadOverlaySize(size image.Point) image.Point {
	return image.Pt(((size.X+31)/32)*32, ((size.Y+15)/16)*16)
}
