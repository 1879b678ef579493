package region

import (
	"image"
	"math"
)

// Polygon is a closed outline whose vertices lie on pixel corners.
// The last vertex connects back to the first.
type Polygon []image.Point

// signedArea2 returns twice the signed shoelace area.
func (p Polygon) signedArea2() int {
	n := len(p)
	sum := 0
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return sum
}

// SignedArea returns the shoelace area with its sign. In image coordinates
// (y pointing down) an outline that runs counter-clockwise on screen has a
// negative signed area.
func (p Polygon) SignedArea() float64 {
	return float64(p.signedArea2()) / 2
}

// Area returns the enclosed area in square pixels. For a traced outline
// this equals the pixel count of the region with any holes filled.
func (p Polygon) Area() float64 {
	return math.Abs(float64(p.signedArea2())) / 2
}

// Bounds returns the bounding rectangle. Max is exclusive in pixel terms: an
// outline around the single pixel (3,4) has bounds (3,4)-(4,5).
func (p Polygon) Bounds() image.Rectangle {
	if len(p) == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: p[0], Max: p[0]}
	for _, pt := range p[1:] {
		r.Min.X = min(r.Min.X, pt.X)
		r.Min.Y = min(r.Min.Y, pt.Y)
		r.Max.X = max(r.Max.X, pt.X)
		r.Max.Y = max(r.Max.Y, pt.Y)
	}
	return r
}

// Centroid returns the area centroid of the polygon, or the centre of the
// bounding box when the polygon encloses no area.
func (p Polygon) Centroid() (x, y float64) {
	a2 := p.signedArea2()
	if a2 == 0 {
		return boxCenter(p.Bounds())
	}
	var cx, cy float64
	n := len(p)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		cross := float64(p[i].X*p[j].Y - p[j].X*p[i].Y)
		cx += float64(p[i].X+p[j].X) * cross
		cy += float64(p[i].Y+p[j].Y) * cross
	}
	f := 3 * float64(a2)
	return cx / f, cy / f
}

// Corners returns the four corners of the bounding box.
func (p Polygon) Corners() [4]image.Point {
	b := p.Bounds()
	return [4]image.Point{
		{b.Min.X, b.Min.Y},
		{b.Max.X, b.Min.Y},
		{b.Min.X, b.Max.Y},
		{b.Max.X, b.Max.Y},
	}
}

// Clone returns a copy that does not share storage with p.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

func boxCenter(b image.Rectangle) (float64, float64) {
	return float64(b.Min.X+b.Max.X) / 2, float64(b.Min.Y+b.Max.Y) / 2
}
