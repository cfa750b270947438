package geometry

import (
	"image"
	"testing"
)

func TestKeepAspectRatio(t *testing.T) {
	cases := []struct {
		name             string
		original, target image.Point
		want             image.Point
	}{
		{"wider_target", image.Pt(4056, 3040), image.Pt(800, 400), image.Pt(533, 400)},
		{"taller_target", image.Pt(1920, 1080), image.Pt(800, 800), image.Pt(800, 450)},
		{"same_ratio", image.Pt(1600, 1200), image.Pt(800, 600), image.Pt(800, 600)},
		{"zero_original", image.Pt(0, 1080), image.Pt(800, 600), image.Point{}},
		{"negative_target", image.Pt(1920, 1080), image.Pt(-10, 600), image.Point{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := KeepAspectRatio(tc.original, tc.target); got != tc.want {
				t.Errorf("KeepAspectRatio(%v, %v) = %v, want %v", tc.original, tc.target, got, tc.want)
			}
		})
	}
}

func TestFitRect_CenteredWithBorder(t *testing.T) {
	window := Rect{X: 0, Y: 0, Width: 800, Height: 480}
	got := FitRect(window, image.Pt(1920, 1080), 40)

	// inner area is 720x400; 16:9 fits as 711x400
	if got.Width != 711 || got.Height != 400 {
		t.Fatalf("size = %dx%d, want 711x400", got.Width, got.Height)
	}
	if got.X != 400-711/2 || got.Y != 240-400/2 {
		t.Errorf("origin = (%d,%d), want (%d,%d)", got.X, got.Y, 400-711/2, 40)
	}
}

func TestFitRect_OffsetWindow(t *testing.T) {
	window := Rect{X: 100, Y: 50, Width: 640, Height: 480}
	got := FitRect(window, image.Pt(640, 480), 0)
	if got != window {
		t.Errorf("FitRect = %v, want %v", got, window)
	}
}

func TestFitRect_NegativeBorderIgnored(t *testing.T) {
	window := Rect{Width: 640, Height: 480}
	if got := FitRect(window, image.Pt(640, 480), -5); got != window {
		t.Errorf("FitRect = %v, want %v", got, window)
	}
}

func TestPadOverlaySize(t *testing.T) {
	cases := []struct {
		in, want image.Point
	}{
		{image.Pt(711, 400), image.Pt(736, 400)},
		{image.Pt(32, 16), image.Pt(32, 16)},
		{image.Pt(33, 17), image.Pt(64, 32)},
		{image.Pt(1, 1), image.Pt(32, 16)},
		{image.Pt(0, 0), image.Pt(0, 0)},
	}
	for _, tc := range cases {
		if got := PadOverlaySize(tc.in); got != tc.want {
			t.Errorf("PadOverlaySize(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestRect_Helpers(t *testing.T) {
	r := Rect{X: 10, Y: 20, Width: 30, Height: 40}
	if got := r.Size(); got != image.Pt(30, 40) {
		t.Errorf("Size() = %v", got)
	}
	if got := r.Center(); got != image.Pt(25, 40) {
		t.Errorf("Center() = %v", got)
	}
	if r.Empty() {
		t.Error("Empty() = true for a 30x40 rect")
	}
	if !(Rect{Width: 0, Height: 5}).Empty() {
		t.Error("Empty() = false for zero width")
	}
}
