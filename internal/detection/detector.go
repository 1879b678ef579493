package detection

import (
	"cmp"
	"context"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"slices"

	"github.com/ironsheep/roi-tools-mcp/internal/imaging"
	"github.com/ironsheep/roi-tools-mcp/internal/region"
	"github.com/ironsheep/roi-tools-mcp/internal/workpool"
)

const (
	// DefaultStride is the distance in flat pixel index between two samples.
	DefaultStride = 7

	// DefaultPixelsPerWorker is the pixel budget that justifies one worker.
	DefaultPixelsPerWorker = 500000

	// cancelCheckInterval is how many samples a worker takes between
	// context checks.
	cancelCheckInterval = 4096
)

// Traced is one discovered region.
type Traced struct {
	// Label is the raster value shared by every pixel of the region.
	Label uint32 `json:"label"`

	// Seed is the sampled pixel the outline was traced from.
	Seed image.Point `json:"seed"`

	// Polygon is the outer boundary.
	Polygon region.Polygon `json:"-"`
}

// Result holds everything one detection pass found.
type Result struct {
	// Regions are the traced regions sorted by ascending label.
	Regions []Traced `json:"regions"`

	// Discovered is the sum of the per-worker discovery counters.
	Discovered int `json:"discovered"`

	// Workers is the number of workers the raster was split across.
	Workers int `json:"workers"`

	// MaxLabel is the highest label discovered, 0 when nothing was found.
	MaxLabel uint32 `json:"max_label"`
}

// Detector finds every labelled region of a raster in parallel.
//
// The flat pixel index space is split into contiguous chunks, one per worker.
// Each worker samples its chunk every Stride pixels. The first worker to
// sample a label claims it and traces the whole region; later samples of the
// same label are skipped. Regions narrower than Stride in every row can be
// missed.
type Detector struct {
	// Stride is the sampling step. Values < 1 use DefaultStride.
	Stride int

	// PixelsPerWorker controls how many workers a raster gets. Values < 1
	// use DefaultPixelsPerWorker.
	PixelsPerWorker int

	// MaxWorkers caps the worker count. Values < 1 use GOMAXPROCS.
	MaxWorkers int

	// Tracer traces one region. Nil uses Wand.
	Tracer Tracer

	// Logger receives progress messages. Nil discards them.
	Logger *slog.Logger
}

// NewDetector returns a detector with default settings.
func NewDetector(log *slog.Logger) *Detector {
	return &Detector{
		Stride:          DefaultStride,
		PixelsPerWorker: DefaultPixelsPerWorker,
		Logger:          log,
	}
}

// WorkerCount returns the number of workers used for a raster of n pixels:
// ceil(n / PixelsPerWorker), capped by MaxWorkers and at least one.
func (d *Detector) WorkerCount(n int) int {
	ppw := d.PixelsPerWorker
	if ppw < 1 {
		ppw = DefaultPixelsPerWorker
	}
	limit := d.MaxWorkers
	if limit < 1 {
		limit = runtime.GOMAXPROCS(0)
	}
	return max(1, min((n+ppw-1)/ppw, limit))
}

type workerResult struct {
	regions []Traced
	counter int
}

// Detect discovers the regions of r.
//
// Parameters:
//   - ctx: Cancels the scan between samples.
//   - r: Label raster. It is only read.
//   - maxLabel: Highest label the caller can store. A larger label is a
//     configuration error and fails the whole pass with
//     region.ErrCapacityExceeded.
//
// Returns:
//   - *Result: Traced regions in ascending label order.
//   - error: The first worker error, reported after every worker joined.
func (d *Detector) Detect(ctx context.Context, r *imaging.Raster, maxLabel int) (*Result, error) {
	log := d.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	tracer := d.Tracer
	if tracer == nil {
		tracer = Wand{}
	}
	stride := d.Stride
	if stride < 1 {
		stride = DefaultStride
	}

	n := r.Len()
	if n == 0 {
		return &Result{}, nil
	}

	chunks := workpool.Chunks(n, d.WorkerCount(n))
	claims := region.NewClaimSet(maxLabel + 1)

	log.Info("detection started",
		"width", r.Width, "height", r.Height,
		"workers", len(chunks), "stride", stride)

	parts, err := workpool.Run(ctx, len(chunks), len(chunks), func(ctx context.Context, w int) (workerResult, error) {
		var out workerResult
		start, stop := chunks[w][0], chunks[w][1]
		samples := 0
		for i := start; i < stop; i += stride {
			samples++
			if samples%cancelCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return out, err
				}
			}

			label := r.Pix[i]
			if label == 0 {
				continue
			}
			x, y := i%r.Width, i/r.Width
			if uint64(label) > uint64(max(maxLabel, 0)) {
				return out, fmt.Errorf("label %d at (%d,%d) exceeds %d: %w",
					label, x, y, maxLabel, region.ErrCapacityExceeded)
			}
			if !claims.Claim(int(label)) {
				continue
			}

			poly, err := tracer.Trace(r, x, y, label)
			if err != nil {
				return out, err
			}
			out.regions = append(out.regions, Traced{
				Label:   label,
				Seed:    image.Point{X: x, Y: y},
				Polygon: poly,
			})
			out.counter++
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect regions: %w", err)
	}

	res := &Result{Workers: len(chunks)}
	for _, p := range parts {
		res.Discovered += p.counter
		res.Regions = append(res.Regions, p.regions...)
	}
	slices.SortFunc(res.Regions, func(a, b Traced) int {
		return cmp.Compare(a.Label, b.Label)
	})
	if k := len(res.Regions); k > 0 {
		res.MaxLabel = res.Regions[k-1].Label
	}

	log.Info("detection finished",
		"discovered", res.Discovered, "max_label", res.MaxLabel)
	return res, nil
}
