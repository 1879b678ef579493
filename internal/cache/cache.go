// Package cache stores detection results on disk so that detecting the same
// label raster twice skips the tracing pass.
//
// Entries are msgpack payloads compressed with zstd and keyed by a SHA-256
// digest of the raster and the detection settings. Writes go to a temporary
// file that is renamed into place.
package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ironsheep/roi-tools-mcp/internal/detection"
	"github.com/ironsheep/roi-tools-mcp/internal/imaging"
	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

// schemaVersion changes whenever the payload layout changes.
const schemaVersion uint16 = 1

// Key identifies one raster plus detection settings.
type Key [sha256.Size]byte

// String returns the hex form of the key.
func (k Key) String() string { return hex.EncodeToString(k[:]) }

// KeyFor digests the raster size, every label and the sampling stride.
func KeyFor(r *imaging.Raster, stride int) Key {
	h := sha256.New()
	var hdr [24]byte
	binary.LittleEndian.PutUint64(hdr[0:], uint64(r.Width))
	binary.LittleEndian.PutUint64(hdr[8:], uint64(r.Height))
	binary.LittleEndian.PutUint64(hdr[16:], uint64(stride))
	h.Write(hdr[:])

	buf := make([]byte, 4*4096)
	for i := 0; i < len(r.Pix); i += 4096 {
		chunk := r.Pix[i:min(i+4096, len(r.Pix))]
		for j, v := range chunk {
			binary.LittleEndian.PutUint32(buf[4*j:], v)
		}
		h.Write(buf[:4*len(chunk)])
	}

	var k Key
	copy(k[:], h.Sum(nil))
	return k
}

// Payload is the cached form of a detection result.
type Payload struct {
	Schema     uint16
	Width      int
	Height     int
	Discovered int
	Workers    int
	Regions    []Outline
}

// Outline is one traced region with its vertices flattened.
type Outline struct {
	Label uint32
	Xs    []int32
	Ys    []int32
}

// FromResult converts a detection result into a payload.
func FromResult(r *imaging.Raster, res *detection.Result) *Payload {
	p := &Payload{
		Schema:     schemaVersion,
		Width:      r.Width,
		Height:     r.Height,
		Discovered: res.Discovered,
		Workers:    res.Workers,
		Regions:    make([]Outline, len(res.Regions)),
	}
	for i, t := range res.Regions {
		o := Outline{
			Label: t.Label,
			Xs:    make([]int32, len(t.Polygon)),
			Ys:    make([]int32, len(t.Polygon)),
		}
		for j, pt := range t.Polygon {
			o.Xs[j], o.Ys[j] = int32(pt.X), int32(pt.Y)
		}
		p.Regions[i] = o
	}
	return p
}

// Result converts the payload back into a detection result.
func (p *Payload) Result() *detection.Result {
	res := &detection.Result{
		Discovered: p.Discovered,
		Workers:    p.Workers,
		Regions:    make([]detection.Traced, len(p.Regions)),
	}
	for i, o := range p.Regions {
		poly := make(region.Polygon, len(o.Xs))
		for j := range o.Xs {
			poly[j] = image.Point{X: int(o.Xs[j]), Y: int(o.Ys[j])}
		}
		res.Regions[i] = detection.Traced{Label: o.Label, Polygon: poly}
		res.MaxLabel = max(res.MaxLabel, o.Label)
	}
	return res
}

// DiskCache keeps payloads under a directory. A nil *DiskCache is a valid,
// always-missing cache.
//
// Thread-safe for concurrent access.
type DiskCache struct {
	mu  sync.RWMutex
	dir string
}

// Open returns a cache rooted at dir, creating it when needed.
func Open(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &DiskCache{dir: dir}, nil
}

// Dir returns the cache directory.
func (c *DiskCache) Dir() string { return c.dir }

func (c *DiskCache) pathFor(key Key) string {
	return filepath.Join(c.dir, "detect", key.String()+".mp.zst")
}

// Put stores payload under key.
func (c *DiskCache) Put(key Key, payload *Payload) error {
	if c == nil {
		return nil
	}
	raw, err := msgpack.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	data, err := compressZstd(raw)
	if err != nil {
		return fmt.Errorf("failed to compress cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.pathFor(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	f, err := os.CreateTemp(filepath.Dir(p), "tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close cache entry: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Get loads the payload stored under key. It reports false when the key is
// absent or was written by a different schema version.
func (c *DiskCache) Get(key Key) (*Payload, bool, error) {
	if c == nil {
		return nil, false, nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	data, err := os.ReadFile(c.pathFor(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	raw, err := decompressZstd(data)
	if err != nil {
		return nil, false, fmt.Errorf("failed to decompress cache entry: %w", err)
	}
	var p Payload
	if err := msgpack.Unmarshal(raw, &p); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if p.Schema != schemaVersion {
		return nil, false, nil
	}
	for _, o := range p.Regions {
		if len(o.Xs) != len(o.Ys) {
			return nil, false, fmt.Errorf("corrupt cache entry: label %d has %d x and %d y coordinates", o.Label, len(o.Xs), len(o.Ys))
		}
	}
	return &p, true, nil
}

// DropAll removes every cached entry.
func (c *DiskCache) DropAll() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(filepath.Join(c.dir, "detect")); err != nil {
		return fmt.Errorf("failed to drop cache: %w", err)
	}
	return nil
}

var zstdEncPool = sync.Pool{
	New: func() any {
		enc, _ := zstd.NewWriter(nil)
		return enc
	},
}

var zstdDecPool = sync.Pool{
	New: func() any {
		dec, _ := zstd.NewReader(nil)
		return dec
	},
}

func compressZstd(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	enc := zstdEncPool.Get().(*zstd.Encoder)
	defer zstdEncPool.Put(enc)
	enc.Reset(&buf)

	if _, err := enc.Write(data); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompressZstd(data []byte) ([]byte, error) {
	dec := zstdDecPool.Get().(*zstd.Decoder)
	defer zstdDecPool.Put(dec)
	if err := dec.Reset(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	var out bytes.Buffer
	if _, err := out.ReadFrom(dec); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
