// Package geometry provides basic geometric types used throughout the application.
package geometry

import "math"

// Point2D represents a 2D point with floating-point coordinates.
type Point2D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// RectInt represents a rectangle with integer pixel coordinates.
type RectInt struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Area returns the rectangle area in pixels.
func (r RectInt) Area() int {
	return r.Width * r.Height
}

// Empty reports whether the rectangle has no area.
func (r RectInt) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Clamp returns the rectangle clipped to a w×h image.
// Fractional math can round a template rectangle past the last
// column/row; clamping keeps every crop inside the raster.
func (r RectInt) Clamp(w, h int) RectInt {
	x, y := r.X, r.Y
	if x < 0 {
		x = 0
	}
	if y < 0 {
		y = 0
	}
	x2 := r.X + r.Width
	y2 := r.Y + r.Height
	if x2 > w {
		x2 = w
	}
	if y2 > h {
		y2 = h
	}
	if x2 < x {
		x2 = x
	}
	if y2 < y {
		y2 = y
	}
	return RectInt{X: x, Y: y, Width: x2 - x, Height: y2 - y}
}

// FracRect is a rectangle expressed as fractions of a reference
// width/height (x0..x1 horizontally, y0..y1 vertically, all in [0,1]).
// Fractional coordinates survive scan-resolution variance; they are
// resolved to pixels only once the sheet has been cropped to its
// fiducial-defined bounds.
type FracRect struct {
	X0, X1 float64
	Y0, Y1 float64
}

// Resolve converts the fractional rectangle to pixel coordinates
// within a w×h raster, clamped to the raster bounds.
func (f FracRect) Resolve(w, h int) RectInt {
	fw := float64(w)
	fh := float64(h)
	r := RectInt{
		X:      int(math.Round(f.X0 * fw)),
		Y:      int(math.Round(f.Y0 * fh)),
		Width:  int(math.Round((f.X1 - f.X0) * fw)),
		Height: int(math.Round((f.Y1 - f.Y0) * fh)),
	}
	return r.Clamp(w, h)
}
