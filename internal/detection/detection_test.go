package detection

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/ironsheep/roi-tools-mcp/internal/imaging"
	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

// createLabelRaster returns a raster with each rectangle filled with its
// 1-based position as label.
func createLabelRaster(t *testing.T, width, height int, rects ...image.Rectangle) *imaging.Raster {
	t.Helper()
	r := imaging.NewRaster(width, height)
	for i, rect := range rects {
		r.Fill(rect, uint32(i+1))
	}
	return r
}

func TestWand_SinglePixel(t *testing.T) {
	r := createLabelRaster(t, 1, 1, image.Rect(0, 0, 1, 1))
	poly, err := Wand{}.Trace(r, 0, 0, 1)
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if len(poly) != 4 {
		t.Errorf("vertices = %d, want 4: %v", len(poly), poly)
	}
	if poly.Area() != 1 {
		t.Errorf("Area() = %v, want 1", poly.Area())
	}
	if poly.SignedArea() >= 0 {
		t.Errorf("outer boundary should have negative signed area, got %v", poly.SignedArea())
	}
}

func TestWand_Rectangle(t *testing.T) {
	rect := image.Rect(3, 2, 9, 7)
	r := createLabelRaster(t, 12, 10, rect)

	// Seed in the middle of the rectangle.
	poly, err := Wand{}.Trace(r, 5, 4, 1)
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if len(poly) != 4 {
		t.Errorf("vertices = %d, want 4: %v", len(poly), poly)
	}
	if got := poly.Bounds(); got != rect {
		t.Errorf("Bounds() = %v, want %v", got, rect)
	}
	if poly.Area() != 30 {
		t.Errorf("Area() = %v, want 30", poly.Area())
	}
}

func TestWand_LShape(t *testing.T) {
	r := imaging.NewRaster(6, 6)
	r.Fill(image.Rect(1, 1, 5, 3), 4)
	r.Fill(image.Rect(1, 3, 3, 5), 4)

	poly, err := Wand{}.Trace(r, 2, 4, 4)
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if len(poly) != 6 {
		t.Errorf("vertices = %d, want 6: %v", len(poly), poly)
	}
	if poly.Area() != 12 {
		t.Errorf("Area() = %v, want 12", poly.Area())
	}
}

func TestWand_SkipsHole(t *testing.T) {
	// A 5x5 block with a one pixel hole in the middle; the seed is left of
	// the hole so the first boundary found is the hole's.
	r := createLabelRaster(t, 7, 7, image.Rect(1, 1, 6, 6))
	r.Set(3, 3, 0)

	poly, err := Wand{}.Trace(r, 1, 3, 1)
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if got, want := poly.Bounds(), image.Rect(1, 1, 6, 6); got != want {
		t.Errorf("Bounds() = %v, want %v", got, want)
	}
	if poly.Area() != 25 {
		t.Errorf("Area() = %v, want 25 (holes filled)", poly.Area())
	}
}

func TestWand_DiagonalNeighbours(t *testing.T) {
	r := imaging.NewRaster(2, 2)
	r.Set(0, 0, 1)
	r.Set(1, 1, 1)

	poly, err := Wand{}.Trace(r, 0, 0, 1)
	if err != nil {
		t.Fatalf("Trace failed: %v", err)
	}
	if poly.Area() != 2 {
		t.Errorf("Area() = %v, want 2 (8-connected)", poly.Area())
	}
}

func TestWand_BadSeed(t *testing.T) {
	r := createLabelRaster(t, 4, 4, image.Rect(0, 0, 2, 2))
	if _, err := (Wand{}).Trace(r, 3, 3, 1); err == nil {
		t.Error("Trace should fail when the seed does not carry the label")
	}
	if _, err := (Wand{}).Trace(r, 3, 3, 0); err == nil {
		t.Error("Trace should fail for background")
	}
}

func TestDetector_WorkerCount(t *testing.T) {
	d := &Detector{PixelsPerWorker: 100, MaxWorkers: 4}
	tests := []struct {
		pixels int
		want   int
	}{
		{1, 1},
		{100, 1},
		{101, 2},
		{350, 4},
		{100000, 4},
	}
	for _, tt := range tests {
		if got := d.WorkerCount(tt.pixels); got != tt.want {
			t.Errorf("WorkerCount(%d) = %d, want %d", tt.pixels, got, tt.want)
		}
	}
}

func TestDetector_FindsEveryRegion(t *testing.T) {
	rects := []image.Rectangle{
		image.Rect(2, 2, 12, 12),
		image.Rect(20, 3, 30, 11),
		image.Rect(40, 1, 58, 9),
		image.Rect(5, 20, 15, 38),
		image.Rect(25, 25, 35, 35),
		image.Rect(45, 22, 55, 39),
	}
	r := createLabelRaster(t, 60, 40, rects...)

	d := &Detector{Stride: 7, PixelsPerWorker: 300, MaxWorkers: 4}
	res, err := d.Detect(context.Background(), r, 100)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if res.Workers != 4 {
		t.Errorf("Workers = %d, want 4", res.Workers)
	}
	if res.Discovered != len(rects) {
		t.Errorf("Discovered = %d, want %d", res.Discovered, len(rects))
	}
	if len(res.Regions) != len(rects) {
		t.Fatalf("regions = %d, want %d", len(res.Regions), len(rects))
	}
	for i, tr := range res.Regions {
		if tr.Label != uint32(i+1) {
			t.Errorf("regions[%d].Label = %d, want %d", i, tr.Label, i+1)
		}
		if got := tr.Polygon.Bounds(); got != rects[i] {
			t.Errorf("label %d bounds = %v, want %v", tr.Label, got, rects[i])
		}
	}
	if res.MaxLabel != 6 {
		t.Errorf("MaxLabel = %d, want 6", res.MaxLabel)
	}
}

func TestDetector_RegionAcrossChunksCountedOnce(t *testing.T) {
	// One region covering the whole raster is sampled by every worker.
	r := createLabelRaster(t, 50, 50, image.Rect(0, 0, 50, 50))
	d := &Detector{Stride: 3, PixelsPerWorker: 100, MaxWorkers: 8}
	res, err := d.Detect(context.Background(), r, 10)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if res.Workers != 8 {
		t.Errorf("Workers = %d, want 8", res.Workers)
	}
	if res.Discovered != 1 || len(res.Regions) != 1 {
		t.Errorf("Discovered = %d, regions = %d; want 1, 1", res.Discovered, len(res.Regions))
	}
}

func TestDetector_LabelExceedsCapacity(t *testing.T) {
	r := imaging.NewRaster(20, 20)
	r.Fill(image.Rect(0, 0, 20, 20), 9)
	_, err := NewDetector(nil).Detect(context.Background(), r, 8)
	if !errors.Is(err, region.ErrCapacityExceeded) {
		t.Errorf("err = %v, want ErrCapacityExceeded", err)
	}
}

func TestDetector_Empty(t *testing.T) {
	res, err := NewDetector(nil).Detect(context.Background(), imaging.NewRaster(30, 30), 10)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if res.Discovered != 0 || len(res.Regions) != 0 || res.MaxLabel != 0 {
		t.Errorf("unexpected result for empty raster: %+v", res)
	}
}

func TestDetector_Cancelled(t *testing.T) {
	r := createLabelRaster(t, 30, 30, image.Rect(0, 0, 10, 10))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewDetector(nil).Detect(ctx, r, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
