package common

import (
	"fmt"

	"github.com/chewxy/math32"
)

// Point is a corner reduced to float32 for overlay rendering.
type Point struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

// Rect is an axis aligned box with X1,Y1 the minimum and X2,Y2 the maximum corner.
type Rect struct {
	X1 float32 `json:"x1"`
	Y1 float32 `json:"y1"`
	X2 float32 `json:"x2"`
	Y2 float32 `json:"y2"`
}

// Quad is the outline of a tag as drawn on top of the source image.
//
// Quads are display geometry only and never take part in matching.
type Quad struct {
	Points [4]Point
}

// QuadFromCorners builds a quad from a detection's corners.
//
// Arguments:
// - corners: The detection corners, expected to hold exactly four points.
//
// Returns:
// - The quad.
// - false when the corner count is not four (tolerated upstream, nothing to draw).
//
// @example
// quad, ok := QuadFromCorners(det.Corners)
//
//	if ok {
//	    fmt.Println(quad.Perimeter())
//	}
func QuadFromCorners(corners []Corner) (Quad, bool) {
	var q Quad
	if len(corners) != len(q.Points) {
		return q, false
	}

	for i, c := range corners {
		q.Points[i] = Point{X: float32(c.X), Y: float32(c.Y)}
	}
	return q, true
}

// Centroid returns the mean of the four corners.
func (q Quad) Centroid() Point {
	var sx, sy float32
	for _, p := range q.Points {
		sx += p.X
		sy += p.Y
	}
	n := float32(len(q.Points))
	return Point{X: sx / n, Y: sy / n}
}

// Perimeter returns the summed edge length in pixels.
func (q Quad) Perimeter() float32 {
	var total float32
	for i, p := range q.Points {
		next := q.Points[(i+1)%len(q.Points)]
		total += math32.Hypot(next.X-p.X, next.Y-p.Y)
	}
	return total
}

// Area returns the enclosed area in square pixels (shoelace formula).
func (q Quad) Area() float32 {
	var sum float32
	for i, p := range q.Points {
		next := q.Points[(i+1)%len(q.Points)]
		sum += p.X*next.Y - next.X*p.Y
	}
	return math32.Abs(sum) / 2
}

// Bounds returns the smallest axis aligned box containing the quad.
func (q Quad) Bounds() Rect {
	r := Rect{
		X1: math32.Inf(1),
		Y1: math32.Inf(1),
		X2: math32.Inf(-1),
		Y2: math32.Inf(-1),
	}
	for _, p := range q.Points {
		r.X1 = math32.Min(r.X1, p.X)
		r.Y1 = math32.Min(r.Y1, p.Y)
		r.X2 = math32.Max(r.X2, p.X)
		r.Y2 = math32.Max(r.Y2, p.Y)
	}
	return r
}

func (q Quad) String() string {
	c := q.Centroid()
	return fmt.Sprintf("Quad centred (%f, %f), perimeter %f", c.X, c.Y, q.Perimeter())
}
