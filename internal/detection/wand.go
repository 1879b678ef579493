package detection

import (
	"fmt"
	"image"

	"github.com/ironsheep/roi-tools-mcp/internal/imaging"
	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

// Tracer turns a seed pixel into the closed outline of the connected region
// that carries the same label.
type Tracer interface {
	Trace(r *imaging.Raster, x, y int, label uint32) (region.Polygon, error)
}

// Wand traces the outer boundary of an 8-connected region along pixel edges.
//
// Outline vertices lie on pixel corners: vertex (x, y) is the top-left
// corner of pixel (x, y). Only vertices where the walk changes direction are
// recorded, so a rectangular region yields exactly four vertices.
//
// # Algorithm
//
//  1. Walk right from the seed to the last pixel of its run.
//  2. Follow the edge on the right side of that pixel, keeping the region on
//     the left and preferring right turns so diagonal neighbours stay joined.
//  3. If the closed walk has positive signed area it circled a hole; resume
//     scanning right past the hole and try again.
//
// The result encloses holes: its Area equals the pixel count of the region
// with every hole filled.
type Wand struct{}

// Walking directions. Adding one turns left on screen.
const (
	dirRight = iota
	dirUp
	dirLeft
	dirDown
)

var (
	stepX = [4]int{1, 0, -1, 0}
	stepY = [4]int{0, -1, 0, 1}
)

// Trace implements Tracer.
func (Wand) Trace(r *imaging.Raster, x, y int, label uint32) (region.Polygon, error) {
	if label == 0 {
		return nil, fmt.Errorf("cannot trace background at (%d,%d)", x, y)
	}
	if r.At(x, y) != label {
		return nil, fmt.Errorf("seed (%d,%d) does not carry label %d", x, y, label)
	}

	inside := func(px, py int) bool { return r.At(px, py) == label }

	for x < r.Width {
		// end of the current run
		for inside(x+1, y) {
			x++
		}
		poly, err := walk(inside, x+1, y+1, r.Width, r.Height)
		if err != nil {
			return nil, fmt.Errorf("failed to trace label %d: %w", label, err)
		}
		if poly.SignedArea() < 0 {
			return poly, nil
		}
		// Hole boundary: skip the gap and continue with the next run.
		x++
		for x < r.Width && !inside(x, y) {
			x++
		}
	}
	return nil, fmt.Errorf("no outer boundary found for label %d in row %d", label, y)
}

// walk follows the boundary starting at vertex (sx, sy) heading up.
func walk(inside func(x, y int) bool, sx, sy, width, height int) (region.Polygon, error) {
	maxSteps := 4*(width+1)*(height+1) + 4
	x, y, d := sx, sy, dirUp
	var poly region.Polygon

	for steps := 0; ; steps++ {
		if steps > maxSteps {
			return nil, fmt.Errorf("boundary walk exceeded %d steps", maxSteps)
		}
		x += stepX[d]
		y += stepY[d]

		nd, ok := nextDirection(inside, x, y, d)
		if !ok {
			return nil, fmt.Errorf("boundary walk stuck at vertex (%d,%d)", x, y)
		}
		if nd != d {
			poly = append(poly, image.Point{X: x, Y: y})
		}
		d = nd
		if x == sx && y == sy && d == dirUp {
			return poly, nil
		}
	}
}

// nextDirection picks the outgoing edge at vertex (x, y): right turn first,
// then straight, then left turn.
func nextDirection(inside func(x, y int) bool, x, y, d int) (int, bool) {
	for _, turn := range [3]int{3, 0, 1} {
		nd := (d + turn) % 4
		if validStep(inside, x, y, nd) {
			return nd, true
		}
	}
	return 0, false
}

// validStep reports whether moving from vertex (x, y) in direction d keeps
// an inside pixel on the left and an outside pixel on the right.
func validStep(inside func(x, y int) bool, x, y, d int) bool {
	switch d {
	case dirRight:
		return inside(x, y-1) && !inside(x, y)
	case dirUp:
		return inside(x-1, y-1) && !inside(x, y-1)
	case dirLeft:
		return inside(x-1, y) && !inside(x-1, y-1)
	default: // dirDown
		return inside(x, y) && !inside(x-1, y)
	}
}
