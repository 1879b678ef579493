package session

import (
	"image"

	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

// Classifier decides the initial state of a freshly detected or inferred
// region.
type Classifier struct {
	SizeThreshold float64
	RemoveSmall   bool
	RemoveEdges   bool

	// Width and Height are the label raster size used for the edge test.
	Width  int
	Height int
}

// Classify returns Deleted with tag "small" for regions below the size
// threshold, else Deleted with tag "edge.image" for regions touching the
// raster border, else Active. Each test only applies when enabled.
func (c Classifier) Classify(poly region.Polygon) (region.State, []string) {
	if c.RemoveSmall && poly.Area() < c.SizeThreshold {
		return region.Deleted, []string{region.TagSmall}
	}
	if c.RemoveEdges && TouchesEdge(poly.Bounds(), c.Width, c.Height) {
		return region.Deleted, []string{region.TagImageEdge}
	}
	return region.Active, nil
}

// TouchesEdge reports whether bounds reaches the first or last row or column
// of a width x height raster.
func TouchesEdge(bounds image.Rectangle, width, height int) bool {
	return bounds.Min.X <= 0 || bounds.Min.Y <= 0 || bounds.Max.X >= width || bounds.Max.Y >= height
}
