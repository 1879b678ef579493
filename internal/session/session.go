// Package session ties the region store, the detector, the archive codec and
// the detection cache into one editing session.
//
// A session owns its store. Population (Detect, Load) takes the session
// write lock because the store's bulk insert is unsynchronised; every other
// store access goes through View, which holds the read lock.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/roi-tools-mcp/internal/archive"
	"github.com/ironsheep/roi-tools-mcp/internal/cache"
	"github.com/ironsheep/roi-tools-mcp/internal/config"
	"github.com/ironsheep/roi-tools-mcp/internal/detection"
	"github.com/ironsheep/roi-tools-mcp/internal/imaging"
	"github.com/ironsheep/roi-tools-mcp/internal/region"
	"github.com/ironsheep/roi-tools-mcp/internal/timing"
)

var (
	// ErrNoLabelImage is returned when an operation needs a label raster
	// and none was supplied or detected before.
	ErrNoLabelImage = errors.New("no label image")

	// ErrUnknownKey is returned for a function key without a tag binding.
	ErrUnknownKey = errors.New("function key has no tag binding")
)

// Summary reports the outcome of Detect.
type Summary struct {
	Discovered   int           `json:"discovered"`
	Active       int           `json:"active"`
	DeletedSmall int           `json:"deleted_small"`
	DeletedEdge  int           `json:"deleted_edge"`
	Workers      int           `json:"workers"`
	RangeStop    int           `json:"range_stop"`
	Cached       bool          `json:"cached"`
	Timings      timing.Report `json:"timings"`
}

// Session is one editing session over a label image.
type Session struct {
	ID string

	cfg      *config.Config
	store    *region.Store
	detector *detection.Detector
	codec    *archive.Codec
	cache    *cache.DiskCache
	rasters  *imaging.RasterCache
	log      *slog.Logger

	mu     sync.RWMutex
	raster *imaging.Raster
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCache overrides the detection cache opened from the configuration.
func WithCache(c *cache.DiskCache) Option {
	return func(s *Session) { s.cache = c }
}

// New creates a session. A nil cfg uses config.DefaultConfig().
func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	cfg.Validate()

	s := &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		rasters: imaging.NewRasterCache(),
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("session", s.ID)

	if s.cache == nil && cfg.CacheDir != "" {
		c, err := cache.Open(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		s.cache = c
	}

	s.store = region.New(cfg.MaxRegions, region.WithLogger(s.log))
	s.detector = &detection.Detector{
		Stride:          cfg.SampleStride,
		PixelsPerWorker: cfg.PixelsPerWorker,
		Logger:          s.log,
	}
	s.codec = archive.NewCodec(s.log)
	s.codec.BatchSize = cfg.LoadBatchSize
	return s, nil
}

// Config returns the session configuration.
func (s *Session) Config() *config.Config { return s.cfg }

// Close waits for background cleanup to finish and drops decoded label
// images.
func (s *Session) Close() {
	s.codec.Wait()
	s.rasters.Clear()
}

// View runs fn with the store while no population is in progress.
func (s *Session) View(fn func(*region.Store) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.store)
}

// LabelImage returns the label raster of the last detection or load.
func (s *Session) LabelImage() *imaging.Raster {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raster
}

// OpenLabelImage decodes a label raster from disk, reusing earlier decodes
// of the same path.
func (s *Session) OpenLabelImage(path string) (*imaging.Raster, error) {
	return s.rasters.Load(path)
}

// ReloadLabelImage decodes path again, replacing any earlier decode. Use it
// when the file changed on disk.
func (s *Session) ReloadLabelImage(path string) (*imaging.Raster, error) {
	s.rasters.Evict(path)
	return s.rasters.Load(path)
}

// DropCache removes every cached detection result.
func (s *Session) DropCache() error {
	return s.cache.DropAll()
}

func (s *Session) classifier(r *imaging.Raster) Classifier {
	return Classifier{
		SizeThreshold: s.cfg.SizeThreshold,
		RemoveSmall:   s.cfg.RemoveSmall,
		RemoveEdges:   s.cfg.RemoveEdges,
		Width:         r.Width,
		Height:        r.Height,
	}
}

// Detect replaces the store contents with the regions of r.
//
// The store is reset to the highest label found, every region is classified
// and inserted under its canonical name. Results are cached when a cache is
// configured, and the store is saved to the autosave archive when one is
// configured; failures of either are logged only.
func (s *Session) Detect(ctx context.Context, r *imaging.Raster) (*Summary, error) {
	if r == nil {
		return nil, ErrNoLabelImage
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	timer := timing.NewTimer(s.log)
	sum := &Summary{}

	var (
		key cache.Key
		res *detection.Result
	)
	if s.cache != nil {
		key = cache.KeyFor(r, s.detector.Stride)
		if p, ok, err := s.cache.Get(key); err != nil {
			s.log.Warn("detection cache unreadable", "key", key.String(), "error", err)
		} else if ok {
			res = p.Result()
			sum.Cached = true
		}
	}

	if res == nil {
		ph := timer.Begin("detect")
		var err error
		res, err = s.detector.Detect(ctx, r, s.store.Capacity())
		if err != nil {
			return nil, err
		}
		timer.End(ph, fmt.Sprintf("%d regions", res.Discovered))
	}

	ph := timer.Begin("classify")
	if err := s.store.Reset(int(res.MaxLabel)); err != nil {
		return nil, fmt.Errorf("failed to reset store: %w", err)
	}
	cls := s.classifier(r)
	for _, t := range res.Regions {
		idx := int(t.Label)
		state, tags := cls.Classify(t.Polygon)
		switch {
		case state == region.Active:
			sum.Active++
		case tags[0] == region.TagSmall:
			sum.DeletedSmall++
		default:
			sum.DeletedEdge++
		}
		if err := s.store.BulkInsert(s.store.NameFor(idx), idx, t.Polygon, state, tags); err != nil {
			return nil, err
		}
	}
	timer.End(ph, "")

	s.raster = r
	sum.Discovered = res.Discovered
	sum.Workers = res.Workers
	sum.RangeStop = s.store.RangeStop()

	if !sum.Cached && s.cache != nil {
		if err := s.cache.Put(key, cache.FromResult(r, res)); err != nil {
			s.log.Warn("could not cache detection", "error", err)
		}
	}
	if s.cfg.Autosave != "" {
		ph := timer.Begin("autosave")
		if _, err := s.codec.Save(s.store, s.cfg.Autosave, false); err != nil {
			s.log.Warn("autosave failed", "path", s.cfg.Autosave, "error", err)
		}
		timer.End(ph, s.cfg.Autosave)
	}

	sum.Timings = timer.Report()
	s.log.Info("detection summary",
		"active", sum.Active, "deleted_small", sum.DeletedSmall,
		"deleted_edge", sum.DeletedEdge, "cached", sum.Cached)
	return sum, nil
}

// Load replaces the store contents with the archive at path. Archives
// without region names need a label raster; r may be nil to reuse the one
// from the last detection.
func (s *Session) Load(ctx context.Context, path string, r *imaging.Raster) (*archive.LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r == nil {
		r = s.raster
	}
	if r != nil {
		s.codec.Classify = s.classifier(r).Classify
	} else {
		s.codec.Classify = nil
	}

	report, err := s.codec.Load(ctx, s.store, path, r)
	if err != nil {
		return nil, err
	}
	if r != nil {
		s.raster = r
	}
	return report, nil
}

// Save writes the store to an archive at path.
func (s *Session) Save(path string, excludeDeleted bool) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codec.Save(s.store, path, excludeDeleted)
}

// TaggedDelete deletes every selected region, recording the tag bound to the
// given function key. It returns the number of regions deleted.
func (s *Session) TaggedDelete(key string) (int, error) {
	tag, ok := s.cfg.TagFor(key)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store.DeleteSelected(tag), nil
}

// LabelImageInfo describes the label image at path without detecting.
func (s *Session) LabelImageInfo(path string) (*imaging.RasterInfo, error) {
	return imaging.LoadRasterInfo(s.rasters, path)
}
