package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/ironsheep/roi-tools-mcp/internal/imaging"
	"github.com/ironsheep/roi-tools-mcp/internal/region"
	"github.com/ironsheep/roi-tools-mcp/internal/workpool"
)

// DefaultBatchSize is the number of entries one load worker decodes.
const DefaultBatchSize = 384

const roiExt = ".roi"

// ErrLabelImageRequired is returned when an archive carries no region names
// and no label raster was supplied to infer them from.
var ErrLabelImageRequired = errors.New("label image required to infer region labels")

// Variant identifies how an archive was recognised.
type Variant int

// Archive variants in dispatch order.
const (
	// VariantManifest archives carry tags.json with state and tags.
	VariantManifest Variant = 1

	// VariantCanonical archives have only canonically named entries.
	VariantCanonical Variant = 2

	// VariantInferred archives have arbitrary entry names; labels are read
	// from a label raster at each outline's centroid.
	VariantInferred Variant = 3
)

func (v Variant) String() string {
	switch v {
	case VariantManifest:
		return "manifest"
	case VariantCanonical:
		return "canonical"
	case VariantInferred:
		return "inferred"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v Variant) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// Classifier decides the initial state and tags of a region whose label was
// inferred from a raster.
type Classifier func(poly region.Polygon) (region.State, []string)

// LoadReport summarises one Load call.
type LoadReport struct {
	Variant Variant `json:"variant"`

	// Entries is the number of geometry entries in the archive.
	Entries int `json:"entries"`

	// Loaded is the number of regions inserted into the store.
	Loaded int `json:"loaded"`

	// Skipped counts entries whose label could not be inferred or was
	// already taken by an earlier entry.
	Skipped int `json:"skipped"`

	// NoData is set when the archive held no geometry entries; the store
	// was left untouched.
	NoData bool `json:"no_data,omitempty"`
}

// Codec reads and writes region archives.
//
// An archive is a zip file with one ImageJ .roi entry per region and an
// optional tags.json manifest. Codec is safe for concurrent use as long as
// the stores passed to it are not populated concurrently.
type Codec struct {
	// BatchSize is the number of entries per load worker. Values < 1 use
	// DefaultBatchSize.
	BatchSize int

	// Workers caps concurrent load workers. Values < 1 use GOMAXPROCS.
	Workers int

	// Classify assigns state and tags to inferred regions. Nil leaves them
	// active without tags.
	Classify Classifier

	log     *slog.Logger
	janitor *janitor
}

// NewCodec returns a codec with default settings. A nil logger discards
// messages.
func NewCodec(log *slog.Logger) *Codec {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Codec{
		BatchSize: DefaultBatchSize,
		log:       log,
		janitor:   &janitor{log: log},
	}
}

// Wait blocks until all scheduled temporary file deletions have finished.
func (c *Codec) Wait() { c.janitor.wait() }

// Save writes the regions of store to the archive at dst and returns the
// number of regions written.
//
// The archive is written to a temporary sibling and renamed into place, so an
// interrupted save never leaves a truncated archive at dst. With
// excludeDeleted set, deleted regions are left out of both the geometry
// entries and the manifest.
func (c *Codec) Save(store *region.Store, dst string, excludeDeleted bool) (int, error) {
	regions := store.All()

	f, err := os.CreateTemp(filepath.Dir(dst), filepath.Base(dst)+".*"+tempSuffix)
	if err != nil {
		return 0, fmt.Errorf("failed to create archive: %w", err)
	}
	tmp := f.Name()

	n, err := c.writeArchive(f, store.RangeStop(), regions, excludeDeleted)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close archive: %w", cerr)
	}
	if err == nil {
		if rerr := os.Rename(tmp, dst); rerr != nil {
			err = fmt.Errorf("failed to move archive into place: %w", rerr)
		}
	}
	if err != nil {
		c.janitor.remove(tmp)
		return 0, err
	}

	c.log.Info("archive saved", "path", dst, "regions", n)
	return n, nil
}

func (c *Codec) writeArchive(w io.Writer, rangeStop int, regions []region.Region, excludeDeleted bool) (int, error) {
	zw := zip.NewWriter(w)
	manifest := Manifest{RangeStop: rangeStop, Records: make(map[string]Record, len(regions))}

	n := 0
	for _, r := range regions {
		if excludeDeleted && r.State == region.Deleted {
			continue
		}
		data, err := EncodeRoi(r.Name, r.Polygon)
		if err != nil {
			return 0, err
		}
		ew, err := zw.Create(r.Name + roiExt)
		if err != nil {
			return 0, fmt.Errorf("failed to add %s: %w", r.Name, err)
		}
		if _, err := ew.Write(data); err != nil {
			return 0, fmt.Errorf("failed to write %s: %w", r.Name, err)
		}
		manifest.Records[r.Name] = Record{State: r.State, Tags: r.Tags}
		n++
	}

	data, err := json.Marshal(manifest)
	if err != nil {
		return 0, fmt.Errorf("failed to encode manifest: %w", err)
	}
	ew, err := zw.Create(ManifestName)
	if err != nil {
		return 0, fmt.Errorf("failed to add manifest: %w", err)
	}
	if _, err := ew.Write(data); err != nil {
		return 0, fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return 0, fmt.Errorf("failed to finish archive: %w", err)
	}
	return n, nil
}

// decoded is one geometry entry after decoding.
type decoded struct {
	entry string
	name  string
	poly  region.Polygon
	label uint32
	state region.State
	tags  []string
}

// Load replaces the contents of store with the regions of the archive at src.
//
// The variant is chosen in this order:
//  1. tags.json present: names, states and tags come from the archive.
//  2. every entry is named L<digits>.roi: names define indices, all active.
//  3. otherwise: each outline's label is read from raster at its centroid,
//     and Classify decides its state.
//
// Any entry that fails to decode aborts the load before the store is touched.
// An archive without geometry entries leaves the store as it was.
func (c *Codec) Load(ctx context.Context, store *region.Store, src string, raster *imaging.Raster) (*LoadReport, error) {
	zr, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer zr.Close()
	defer c.janitor.sweep(src)

	var (
		entries  []*zip.File
		manifest *zip.File
	)
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		switch base := path.Base(f.Name); {
		case base == ManifestName:
			manifest = f
		case strings.HasSuffix(base, roiExt):
			entries = append(entries, f)
		}
	}

	report := &LoadReport{Entries: len(entries)}
	switch {
	case manifest != nil:
		report.Variant = VariantManifest
	case allCanonical(entries):
		report.Variant = VariantCanonical
	default:
		report.Variant = VariantInferred
	}

	if len(entries) == 0 {
		report.NoData = true
		c.log.Warn("archive holds no regions", "path", src, "variant", report.Variant)
		return report, nil
	}
	if report.Variant == VariantInferred && raster == nil {
		return nil, fmt.Errorf("%s: %w", src, ErrLabelImageRequired)
	}

	c.log.Info("loading archive", "path", src, "variant", report.Variant, "entries", len(entries))

	var sample *imaging.Raster
	if report.Variant == VariantInferred {
		sample = raster
	}
	items, err := c.decodeAll(ctx, entries, sample)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", src, err)
	}

	switch report.Variant {
	case VariantManifest:
		m, err := readManifest(manifest)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", src, err)
		}
		if err := c.insertNamed(store, items, &m, report); err != nil {
			return nil, err
		}
	case VariantCanonical:
		if err := c.insertNamed(store, items, nil, report); err != nil {
			return nil, err
		}
	default:
		if err := c.insertInferred(store, items, report); err != nil {
			return nil, err
		}
	}

	c.log.Info("archive loaded", "path", src, "loaded", report.Loaded, "skipped", report.Skipped)
	return report, nil
}

// decodeAll decodes entries in batches, one worker per batch. With a raster,
// each worker also samples the label at every outline's centroid.
func (c *Codec) decodeAll(ctx context.Context, entries []*zip.File, raster *imaging.Raster) ([]decoded, error) {
	size := c.BatchSize
	if size < 1 {
		size = DefaultBatchSize
	}
	nBatches := (len(entries) + size - 1) / size

	batches, err := workpool.Run(ctx, nBatches, c.Workers, func(ctx context.Context, b int) ([]decoded, error) {
		lo, hi := b*size, min((b+1)*size, len(entries))
		out := make([]decoded, 0, hi-lo)
		for _, f := range entries[lo:hi] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			d, err := decodeEntry(f)
			if err != nil {
				return nil, err
			}
			if raster != nil {
				cx, cy := d.poly.Centroid()
				d.label = raster.At(int(cx), int(cy))
			}
			out = append(out, d)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]decoded, 0, len(entries))
	for _, b := range batches {
		items = append(items, b...)
	}
	return items, nil
}

func decodeEntry(f *zip.File) (decoded, error) {
	rc, err := f.Open()
	if err != nil {
		return decoded{}, fmt.Errorf("%s: %w: %v", f.Name, ErrCorruptEntry, err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return decoded{}, fmt.Errorf("%s: %w: %v", f.Name, ErrCorruptEntry, err)
	}

	name, poly, err := DecodeRoi(data)
	if err != nil {
		return decoded{}, fmt.Errorf("%s: %w", f.Name, err)
	}
	entry := strings.TrimSuffix(path.Base(f.Name), roiExt)
	if name == "" {
		name = entry
	}
	return decoded{entry: entry, name: name, poly: poly}, nil
}

func readManifest(f *zip.File) (Manifest, error) {
	var m Manifest
	rc, err := f.Open()
	if err != nil {
		return m, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer rc.Close()
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return m, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return m, nil
}

// insertNamed populates store from entries whose names carry their index.
// With a manifest, state and tags come from it; regions it does not list are
// loaded active without tags.
func (c *Codec) insertNamed(store *region.Store, items []decoded, m *Manifest, report *LoadReport) error {
	indices := make([]int, len(items))
	n := len(items)
	for i, d := range items {
		idx, ok := canonicalIndex(d.name)
		if !ok {
			return fmt.Errorf("%s: %w: name %q carries no index", d.entry, ErrCorruptEntry, d.name)
		}
		indices[i] = idx
		n = max(n, idx)
	}
	if m != nil {
		n = max(n, m.RangeStop-1)
	}
	if err := store.Reset(n); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}

	for i, d := range items {
		state, tags := region.Active, []string(nil)
		if m != nil {
			if rec, ok := m.Records[d.name]; ok {
				state, tags = rec.State, rec.Tags
			} else {
				c.log.Warn("region missing from manifest, loading as active", "name", d.name)
			}
		}
		if err := store.BulkInsert(d.name, indices[i], d.poly, state, tags); err != nil {
			return err
		}
		report.Loaded++
	}
	return nil
}

// insertInferred populates store from entries labelled by raster sampling.
// Entries on background or on a label an earlier entry already took are
// skipped.
func (c *Codec) insertInferred(store *region.Store, items []decoded, report *LoadReport) error {
	var maxLabel uint32
	for _, d := range items {
		maxLabel = max(maxLabel, d.label)
	}
	if uint64(maxLabel) > uint64(store.Capacity()) {
		return fmt.Errorf("%w: inferred label %d, capacity %d", region.ErrCapacityExceeded, maxLabel, store.Capacity())
	}
	if err := store.Reset(max(len(items), int(maxLabel))); err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}

	claims := region.NewClaimSet(int(maxLabel) + 1)
	for _, d := range items {
		idx := int(d.label)
		if idx == 0 {
			c.log.Warn("region centroid lies on background, skipping", "entry", d.entry)
			report.Skipped++
			continue
		}
		if !claims.Claim(idx) {
			c.log.Warn("label already taken by another region, skipping", "entry", d.entry, "label", idx)
			report.Skipped++
			continue
		}
		state, tags := region.Active, []string(nil)
		if c.Classify != nil {
			state, tags = c.Classify(d.poly)
		}
		if err := store.BulkInsert(store.NameFor(idx), idx, d.poly, state, tags); err != nil {
			return err
		}
		report.Loaded++
	}
	return nil
}

// allCanonical reports whether every entry is named L<digits>.roi.
func allCanonical(entries []*zip.File) bool {
	for _, f := range entries {
		if _, ok := canonicalIndex(strings.TrimSuffix(path.Base(f.Name), roiExt)); !ok {
			return false
		}
	}
	return true
}

// canonicalIndex parses the index out of a name of the form L<digits>.
func canonicalIndex(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, "L")
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	idx, err := strconv.Atoi(digits)
	return idx, err == nil
}
