// Package geom provides the rectangle maths of video layout.
package geom

import "math"

// Point is a 2D coordinate in output pixels.
type Point struct {
	X, Y float64
}

// Rect spans [X1,X2) x [Y1,Y2).
type Rect struct {
	X1, Y1, X2, Y2 float64
}

// XYWH builds a rect from origin and size.
func XYWH(x, y, w, h float64) Rect {
	return Rect{X1: x, Y1: y, X2: x + w, Y2: y + h}
}

func (r Rect) Width() float64  { return r.X2 - r.X1 }
func (r Rect) Height() float64 { return r.Y2 - r.Y1 }

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// Area returns width times height, zero for empty rects.
func (r Rect) Area() float64 {
	if r.Empty() {
		return 0
	}
	return r.Width() * r.Height()
}

// Intersect returns the overlap of r and o.
func (r Rect) Intersect(o Rect) Rect {
	out := Rect{
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
		X2: math.Min(r.X2, o.X2),
		Y2: math.Min(r.Y2, o.Y2),
	}
	if out.Empty() {
		return Rect{}
	}
	return out
}

// Subtract returns up to four non-overlapping rects covering r minus o:
// full-width bands above and below, then the left and right pieces between.
func (r Rect) Subtract(o Rect) []Rect {
	in := r.Intersect(o)
	if in.Empty() {
		if r.Empty() {
			return nil
		}
		return []Rect{r}
	}

	var out []Rect
	if top := (Rect{r.X1, r.Y1, r.X2, in.Y1}); !top.Empty() {
		out = append(out, top)
	}
	if bottom := (Rect{r.X1, in.Y2, r.X2, r.Y2}); !bottom.Empty() {
		out = append(out, bottom)
	}
	if left := (Rect{r.X1, in.Y1, in.X1, in.Y2}); !left.Empty() {
		out = append(out, left)
	}
	if right := (Rect{in.X2, in.Y1, r.X2, in.Y2}); !right.Empty() {
		out = append(out, right)
	}
	return out
}

// Fit centres a frame of the given aspect ratio inside view, as large as fits.
func Fit(view Rect, aspect float64) Rect {
	if aspect <= 0 || view.Empty() {
		return view
	}
	w := view.Width()
	h := w / aspect
	if h > view.Height() {
		h = view.Height()
		w = h * aspect
	}
	x := view.X1 + (view.Width()-w)/2
	y := view.Y1 + (view.Height()-h)/2
	return XYWH(x, y, w, h)
}

// RotatedQuad returns the destination corners for a frame drawn into dest
// after rotating it by orientation degrees clockwise. Corners are ordered
// top-left, top-right, bottom-right, bottom-left of the source frame.
func RotatedQuad(dest Rect, orientation int) [4]Point {
	tl := Point{dest.X1, dest.Y1}
	tr := Point{dest.X2, dest.Y1}
	br := Point{dest.X2, dest.Y2}
	bl := Point{dest.X1, dest.Y2}

	switch ((orientation % 360) + 360) % 360 {
	case 90:
		return [4]Point{tr, br, bl, tl}
	case 180:
		return [4]Point{br, bl, tl, tr}
	case 270:
		return [4]Point{bl, tl, tr, br}
	default:
		return [4]Point{tl, tr, br, bl}
	}
}
