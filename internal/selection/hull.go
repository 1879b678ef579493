package selection

import (
	"cmp"
	"slices"

	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

type point struct {
	x, y float64
	idx  int
	name string
}

// SelectHull selects every region whose centroid is a vertex of the convex
// hull of all non-deleted centroids and returns their names in ascending
// index order. Centroids lying on a hull edge are not vertices. A lone
// region has a degenerate hull and is not selected; two regions are both
// selected.
func SelectHull(store *region.Store) []string {
	pts := region.MapActive(store, func(r region.Region) point {
		x, y := r.Polygon.Centroid()
		return point{x: x, y: y, idx: r.Index, name: r.Name}
	})
	if len(pts) == 0 {
		return nil
	}

	hull := convexHull(pts)
	if len(hull) == 0 {
		return nil
	}
	return selectPoints(store, hull, "")
}

// convexHull runs Andrew's monotone chain and returns the hull vertices.
// Collinear and duplicate points are dropped; a single point yields none.
func convexHull(pts []point) []point {
	sorted := slices.Clone(pts)
	slices.SortFunc(sorted, func(a, b point) int {
		if c := cmp.Compare(a.x, b.x); c != 0 {
			return c
		}
		if c := cmp.Compare(a.y, b.y); c != 0 {
			return c
		}
		return cmp.Compare(a.idx, b.idx)
	})

	cross := func(o, a, b point) float64 {
		return (a.x-o.x)*(b.y-o.y) - (a.y-o.y)*(b.x-o.x)
	}

	var lower, upper []point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	return append(lower[:len(lower)-1], upper[:len(upper)-1]...)
}

// selectPoints selects the regions behind pts additively and returns their
// names in ascending index order.
func selectPoints(store *region.Store, pts []point, reason string) []string {
	slices.SortFunc(pts, func(a, b point) int { return cmp.Compare(a.idx, b.idx) })
	pts = slices.CompactFunc(pts, func(a, b point) bool { return a.idx == b.idx })

	indices := make([]int, len(pts))
	names := make([]string, len(pts))
	for i, p := range pts {
		indices[i] = p.idx
		names[i] = p.name
	}
	store.SelectIndices(indices, reason, true)
	return names
}
