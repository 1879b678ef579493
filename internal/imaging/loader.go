package imaging

import (
	"fmt"
	_ "image/gif" // Register GIF format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/anthonynsimon/bild/imgio"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/tiff" // Register TIFF format decoder
)

// RasterCache provides thread-safe caching of decoded label rasters.
//
// Rasters are keyed by the exact path string used to load them. Once a raster
// is loaded, subsequent Load() calls for the same path return the cached copy
// without disk I/O.
//
// # Memory Management
//
// A raster costs four bytes per pixel. Cached rasters remain in memory until
// explicitly removed via Evict() or Clear().
type RasterCache struct {
	mu      sync.RWMutex
	rasters map[string]*Raster
}

// NewRasterCache creates an empty raster cache.
func NewRasterCache() *RasterCache {
	return &RasterCache{
		rasters: make(map[string]*Raster),
	}
}

// Load retrieves a raster from the cache or decodes it from disk.
func (c *RasterCache) Load(path string) (*Raster, error) {
	c.mu.RLock()
	if r, ok := c.rasters[path]; ok {
		c.mu.RUnlock()
		return r, nil
	}
	c.mu.RUnlock()

	r, err := LoadRaster(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.rasters[path] = r
	c.mu.Unlock()

	return r, nil
}

// Clear removes all rasters from the cache.
func (c *RasterCache) Clear() {
	c.mu.Lock()
	c.rasters = make(map[string]*Raster)
	c.mu.Unlock()
}

// Evict removes the raster loaded from path, if cached.
func (c *RasterCache) Evict(path string) {
	c.mu.Lock()
	delete(c.rasters, path)
	c.mu.Unlock()
}

// LoadRaster decodes a label image file into a raster.
//
// # Errors
//
//   - Returns error if the file does not exist or cannot be read
//   - Returns error if the file is not a decodable PNG, GIF, JPEG or TIFF image
func LoadRaster(path string) (*Raster, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to decode label image: %w", err)
	}
	r, err := FromImage(img)
	if err != nil {
		return nil, fmt.Errorf("failed to convert label image %s: %w", path, err)
	}
	return r, nil
}

// SaveRaster writes a raster to path. The format is chosen from the file
// extension; use .png or .tif to keep 16-bit labels intact.
func SaveRaster(r *Raster, path string) error {
	if err := imaging.Save(r.ToImage(), path); err != nil {
		return fmt.Errorf("failed to save label image: %w", err)
	}
	return nil
}

// RasterInfo contains metadata about a label image file.
type RasterInfo struct {
	// Width is the raster width in pixels.
	Width int `json:"width"`

	// Height is the raster height in pixels.
	Height int `json:"height"`

	// Format is the detected image format from the file extension.
	Format string `json:"format"`

	// MaxLabel is the highest label present in the raster.
	MaxLabel uint32 `json:"max_label"`

	// FileSizeBytes is the size of the file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadRasterInfo loads a raster through the cache and describes it.
func LoadRasterInfo(cache *RasterCache, path string) (*RasterInfo, error) {
	r, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	format := "unknown"
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		format = "png"
	case ".jpg", ".jpeg":
		format = "jpeg"
	case ".gif":
		format = "gif"
	case ".tif", ".tiff":
		format = "tiff"
	}

	return &RasterInfo{
		Width:         r.Width,
		Height:        r.Height,
		Format:        format,
		MaxLabel:      r.MaxLabel(),
		FileSizeBytes: stat.Size(),
	}, nil
}
