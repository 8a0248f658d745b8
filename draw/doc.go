// Package draw holds the geometry shared by the display pipeline.
//
// Points and Rectangles are aliases for the types in package image,
// so they format as (1,2) and (1,2)-(3,4) and carry the usual
// Add, Sub, Intersect and Empty methods. Rectangles are half-open:
// Max is the first point outside the area.
//
// Widget code in the window server describes areas by their inclusive
// corners (x1, y1, x2, y2), where (x2, y2) is the last pixel inside.
// Corners converts that form.
//
// The mapping from the C names to names in this package is:
//
//	combinerect → CombineRect
//	rectclip → RectClip
//	rectaddpt → Rectangle.Add
//	rectsubpt → Rectangle.Sub
//	x1,y1,x2,y2 → Corners
package draw
