package selection

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

// DefaultStep is the default angular sector width in degrees.
const DefaultStep = 10

// ErrInvalidStep is returned for a sector width outside (0, 360].
var ErrInvalidStep = errors.New("angular step must be in (0, 360]")

// SelectOutline selects, for every angular sector of step degrees around the
// mean of all non-deleted centroids, the region whose centroid is farthest
// from that mean. Ties go to the lower index. The selection reason is
// region.TagEdgeSection. It returns the selected names in ascending index
// order.
func SelectOutline(store *region.Store, step int) ([]string, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	pts := region.MapActive(store, func(r region.Region) point {
		x, y := r.Polygon.Centroid()
		return point{x: x, y: y, idx: r.Index, name: r.Name}
	})
	if len(pts) == 0 {
		return nil, nil
	}

	var ox, oy float64
	for _, p := range pts {
		ox += p.x
		oy += p.y
	}
	ox /= float64(len(pts))
	oy /= float64(len(pts))

	return selectPoints(store, farthestPerSector(pts, ox, oy, step), region.TagEdgeSection), nil
}

// SelectOutlineCorners works like SelectOutline but biases the outline
// outward for irregular regions: the origin is the mean of all bounding box
// centres and each region is represented by the bounding box corner farthest
// from that origin.
func SelectOutlineCorners(store *region.Store, step int) ([]string, error) {
	if err := checkStep(step); err != nil {
		return nil, err
	}
	type boxed struct {
		corners [4]struct{ x, y float64 }
		idx     int
		name    string
	}
	boxes := region.MapActive(store, func(r region.Region) boxed {
		b := boxed{idx: r.Index, name: r.Name}
		for i, c := range r.Polygon.Corners() {
			b.corners[i].x, b.corners[i].y = float64(c.X), float64(c.Y)
		}
		return b
	})
	if len(boxes) == 0 {
		return nil, nil
	}

	var ox, oy float64
	for _, b := range boxes {
		for _, c := range b.corners {
			ox += c.x / 4
			oy += c.y / 4
		}
	}
	ox /= float64(len(boxes))
	oy /= float64(len(boxes))

	pts := make([]point, len(boxes))
	for i, b := range boxes {
		best := -1.0
		for _, c := range b.corners {
			if d := (c.x-ox)*(c.x-ox) + (c.y-oy)*(c.y-oy); d > best {
				best = d
				pts[i] = point{x: c.x, y: c.y, idx: b.idx, name: b.name}
			}
		}
	}
	return selectPoints(store, farthestPerSector(pts, ox, oy, step), region.TagEdgeSection), nil
}

// farthestPerSector bins pts by their whole-degree angle around (ox, oy) and
// keeps the farthest point of each bin. The first point wins ties.
func farthestPerSector(pts []point, ox, oy float64, step int) []point {
	bins := 360 / step
	best := make([]float64, bins)
	winner := make([]int, bins)
	for i := range best {
		best[i] = -1
		winner[i] = -1
	}

	for i, p := range pts {
		dx, dy := p.x-ox, p.y-oy
		r := math.Hypot(dx, dy)
		deg := int(math.Atan2(dy, dx) * 180 / math.Pi)
		deg = ((deg % 360) + 360) % 360
		bin := (deg / step) % bins
		if r > best[bin] {
			best[bin] = r
			winner[bin] = i
		}
	}

	var out []point
	for _, w := range winner {
		if w >= 0 {
			out = append(out, pts[w])
		}
	}
	return out
}

func checkStep(step int) error {
	if step <= 0 || step > 360 {
		return fmt.Errorf("%w: got %d", ErrInvalidStep, step)
	}
	return nil
}
