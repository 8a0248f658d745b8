package draw

import "image"

// A Point is an X, Y coordinate pair, a location on a drawable or the screen.
// The coordinate system has X increasing to the right and Y increasing down.
type Point = image.Point

// A Rectangle is a rectangular area of a drawable.
// By definition, Min.X ≤ Max.X and Min.Y ≤ Max.Y.
// By convention, the right (Max.X) and bottom (Max.Y)
// edges are excluded from the represented rectangle,
// so abutting rectangles have no points in common.
// If Min.X ≥ Max.X or Min.Y ≥ Max.Y, the rectangle contains no points.
type Rectangle = image.Rectangle

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y int) Point {
	return Point{X: x, Y: y}
}

// Rect is shorthand for Rectangle{Min: Pt(x0, y0), Max: Pt(x1, y1)}.
// Unlike image.Rect, Rect does not swap x1 ↔ x2 or y1 ↔ y2
// to put them in canonical order.
// In this package, a Rectangle with x1 > x2 or y1 > y2
// is an empty rectangle.
func Rect(x1, y1, x2, y2 int) Rectangle {
	return Rectangle{Pt(x1, y1), Pt(x2, y2)}
}

// Corners converts the inclusive corner form used by widget code,
// where (x2, y2) is the last pixel inside the area, to a Rectangle.
// Inverted corners yield an empty rectangle.
func Corners(x1, y1, x2, y2 int) Rectangle {
	return Rect(x1, y1, x2+1, y2+1)
}

// Size returns the rectangle of w×h pixels anchored at the origin.
func Size(w, h int) Rectangle {
	return Rect(0, 0, w, h)
}

// CombineRect returns the bounding box of r and s.
// An empty operand does not contribute.
func CombineRect(r, s Rectangle) Rectangle {
	switch {
	case r.Empty():
		return s
	case s.Empty():
		return r
	}
	if s.Min.X < r.Min.X {
		r.Min.X = s.Min.X
	}
	if s.Min.Y < r.Min.Y {
		r.Min.Y = s.Min.Y
	}
	if s.Max.X > r.Max.X {
		r.Max.X = s.Max.X
	}
	if s.Max.Y > r.Max.Y {
		r.Max.Y = s.Max.Y
	}
	return r
}

// RectClip clips r to the clipping rectangle clipr.
// It reports whether any of r remains.
func RectClip(r, clipr Rectangle) (Rectangle, bool) {
	r = r.Intersect(clipr)
	if r.Empty() {
		return ZR, false
	}
	return r, true
}

// Area returns the number of pixels covered by r.
func Area(r Rectangle) int {
	if r.Empty() {
		return 0
	}
	return r.Dx() * r.Dy()
}

// ZP is the zero Point.
var ZP Point

// ZR is the zero Rectangle.
var ZR Rectangle
