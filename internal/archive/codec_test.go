package archive

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/klauspost/compress/zip"

	"github.com/ironsheep/roi-tools-mcp/internal/imaging"
	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

// newTestStore returns a store with n 4x4 regions in a row.
func newTestStore(t *testing.T, n int) *region.Store {
	t.Helper()
	s := region.New(64)
	if err := s.Reset(n); err != nil {
		t.Fatal(err)
	}
	for i := 1; i <= n; i++ {
		if err := s.BulkInsert(s.NameFor(i), i, square(i*10, 10, 4), region.Active, nil); err != nil {
			t.Fatal(err)
		}
	}
	return s
}

type zipEntry struct {
	name string
	data []byte
}

// writeZip writes entries into a new archive and returns its path.
func writeZip(t *testing.T, entries ...zipEntry) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rois.zip")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for _, e := range entries {
		w, err := zw.Create(e.name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write(e.data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func roiEntry(t *testing.T, file, name string, poly region.Polygon) zipEntry {
	t.Helper()
	data, err := EncodeRoi(name, poly)
	if err != nil {
		t.Fatal(err)
	}
	return zipEntry{name: file, data: data}
}

func TestCodec_RoundTrip(t *testing.T) {
	s := newTestStore(t, 5)
	s.Select([]string{"L2"}, "", false)
	s.Delete("L2")
	s.Select([]string{"L4"}, region.ReasonManual, true)
	s.DeleteSelected("fold")
	s.Select([]string{"L5"}, region.ReasonManual, false)

	c := NewCodec(nil)
	path := filepath.Join(t.TempDir(), "rois.zip")
	n, err := c.Save(s, path, false)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if n != 5 {
		t.Errorf("Save wrote %d regions, want 5", n)
	}

	loaded := region.New(64)
	report, err := c.Load(context.Background(), loaded, path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	c.Wait()

	if report.Variant != VariantManifest || report.Loaded != 5 {
		t.Errorf("report = %+v, want manifest variant with 5 loaded", report)
	}
	if loaded.RangeStop() != s.RangeStop() {
		t.Errorf("RangeStop = %d, want %d", loaded.RangeStop(), s.RangeStop())
	}

	want := s.All()
	got := loaded.All()
	if len(got) != len(want) {
		t.Fatalf("regions = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Name != want[i].Name || got[i].Index != want[i].Index {
			t.Errorf("region %d = %s/%d, want %s/%d", i, got[i].Name, got[i].Index, want[i].Name, want[i].Index)
		}
		if got[i].State != want[i].State {
			t.Errorf("%s state = %v, want %v", want[i].Name, got[i].State, want[i].State)
		}
		if !slices.Equal(got[i].Tags, want[i].Tags) {
			t.Errorf("%s tags = %v, want %v", want[i].Name, got[i].Tags, want[i].Tags)
		}
		if got[i].Bounds != want[i].Bounds {
			t.Errorf("%s bounds = %v, want %v", want[i].Name, got[i].Bounds, want[i].Bounds)
		}
	}

	if r, _ := loaded.Get("L4"); !slices.Equal(r.Tags, []string{"fold", "manual"}) {
		t.Errorf("L4 tags = %v, want [fold manual]", r.Tags)
	}
}

func TestCodec_LoadManifestMissingRecord(t *testing.T) {
	path := writeZip(t,
		roiEntry(t, "L1.roi", "L1", square(10, 10, 4)),
		roiEntry(t, "L2.roi", "L2", square(20, 10, 4)),
		zipEntry{name: ManifestName, data: []byte(`{"range_stop":3,"L1":["ROI_STATE_DELETED","small"]}`)},
	)

	c := NewCodec(nil)
	s := region.New(64)
	report, err := c.Load(context.Background(), s, path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	c.Wait()

	if report.Variant != VariantManifest || report.Loaded != 2 {
		t.Errorf("report = %+v, want manifest variant with 2 loaded", report)
	}
	if r, _ := s.Get("L1"); r.State != region.Deleted || !slices.Equal(r.Tags, []string{region.TagSmall}) {
		t.Errorf("L1 = %v %v, want deleted [small]", r.State, r.Tags)
	}
	r, ok := s.Get("L2")
	if !ok {
		t.Fatal("L2 not loaded")
	}
	if r.State != region.Active || len(r.Tags) != 0 {
		t.Errorf("L2 = %v %v, want active without tags", r.State, r.Tags)
	}
	if s.RangeStop() != 3 {
		t.Errorf("RangeStop = %d, want 3", s.RangeStop())
	}
}

func TestCodec_SaveExcludeDeleted(t *testing.T) {
	s := newTestStore(t, 3)
	s.Delete("L2")

	c := NewCodec(nil)
	path := filepath.Join(t.TempDir(), "rois.zip")
	n, err := c.Save(s, path, true)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Save wrote %d regions, want 2", n)
	}

	loaded := region.New(64)
	if _, err := c.Load(context.Background(), loaded, path, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := loaded.Get("L2"); ok {
		t.Error("deleted region L2 was saved")
	}
	if loaded.RangeStop() != 4 {
		t.Errorf("RangeStop = %d, want 4", loaded.RangeStop())
	}
}

func TestCodec_LoadCanonicalNames(t *testing.T) {
	path := writeZip(t,
		roiEntry(t, "L1.roi", "", square(0, 0, 3)),
		roiEntry(t, "L3.roi", "", square(10, 0, 3)),
	)

	s := region.New(16)
	report, err := NewCodec(nil).Load(context.Background(), s, path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if report.Variant != VariantCanonical || report.Loaded != 2 {
		t.Errorf("report = %+v", report)
	}
	if idx, ok := s.IndexOf("L3"); !ok || idx != 3 {
		t.Errorf("IndexOf(L3) = %d, %v; want 3, true", idx, ok)
	}
	for _, r := range s.All() {
		if r.State != region.Active || len(r.Tags) != 0 {
			t.Errorf("%s = %v %v, want active without tags", r.Name, r.State, r.Tags)
		}
	}
}

func TestCodec_LoadInferred(t *testing.T) {
	raster := imaging.NewRaster(40, 20)
	raster.Fill(image.Rect(2, 2, 8, 8), 1)
	raster.Fill(image.Rect(12, 2, 18, 8), 2)
	raster.Fill(image.Rect(22, 2, 28, 8), 3)

	path := writeZip(t,
		roiEntry(t, "a.roi", "cell a", square(2, 2, 6)),
		roiEntry(t, "b.roi", "cell b", square(22, 2, 6)),
		roiEntry(t, "c.roi", "", square(3, 3, 4)),   // same label as a
		roiEntry(t, "d.roi", "", square(30, 10, 4)), // background
	)

	c := NewCodec(nil)
	c.BatchSize = 2
	c.Workers = 2
	c.Classify = func(poly region.Polygon) (region.State, []string) {
		if poly.Bounds().Min.X >= 20 {
			return region.Deleted, []string{region.TagImageEdge}
		}
		return region.Active, nil
	}

	s := region.New(16)
	report, err := c.Load(context.Background(), s, path, raster)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if report.Variant != VariantInferred || report.Entries != 4 || report.Loaded != 2 || report.Skipped != 2 {
		t.Errorf("report = %+v", report)
	}

	r1, ok := s.Get("L1")
	if !ok || r1.Index != 1 || r1.State != region.Active {
		t.Errorf("L1 = %+v, %v", r1, ok)
	}
	if r1.Bounds != image.Rect(2, 2, 8, 8) {
		t.Errorf("L1 bounds = %v, want the first entry's outline", r1.Bounds)
	}
	r3, ok := s.Get("L3")
	if !ok || r3.State != region.Deleted || !slices.Equal(r3.Tags, []string{region.TagImageEdge}) {
		t.Errorf("L3 = %+v, %v", r3, ok)
	}
	if _, ok := s.Get("L2"); ok {
		t.Error("L2 has no entry and should not exist")
	}
}

func TestCodec_LoadInferredNeedsRaster(t *testing.T) {
	path := writeZip(t, roiEntry(t, "cell.roi", "", square(0, 0, 3)))
	_, err := NewCodec(nil).Load(context.Background(), region.New(8), path, nil)
	if !errors.Is(err, ErrLabelImageRequired) {
		t.Errorf("err = %v, want ErrLabelImageRequired", err)
	}
}

func TestCodec_CorruptEntryAborts(t *testing.T) {
	s := newTestStore(t, 3)
	path := writeZip(t,
		roiEntry(t, "L1.roi", "", square(0, 0, 3)),
		zipEntry{name: "L2.roi", data: []byte("garbage")},
	)

	_, err := NewCodec(nil).Load(context.Background(), s, path, nil)
	if !errors.Is(err, ErrCorruptEntry) {
		t.Fatalf("err = %v, want ErrCorruptEntry", err)
	}
	if s.Len() != 3 {
		t.Errorf("store changed by failed load: Len() = %d, want 3", s.Len())
	}
}

func TestCodec_LoadNoData(t *testing.T) {
	s := newTestStore(t, 2)
	path := writeZip(t, zipEntry{name: ManifestName, data: []byte(`{"range_stop": 1}`)})

	report, err := NewCodec(nil).Load(context.Background(), s, path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !report.NoData {
		t.Errorf("report = %+v, want NoData", report)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want store untouched", s.Len())
	}
}

func TestCodec_LoadMissing(t *testing.T) {
	if _, err := NewCodec(nil).Load(context.Background(), region.New(8), filepath.Join(t.TempDir(), "none.zip"), nil); err == nil {
		t.Error("Load should fail for a missing archive")
	}
}

func TestCodec_SweepsTempFiles(t *testing.T) {
	s := newTestStore(t, 1)
	c := NewCodec(nil)
	path := filepath.Join(t.TempDir(), "rois.zip")
	if _, err := c.Save(s, path, false); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	stray := path + ".12345.tmp"
	if err := os.WriteFile(stray, []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Load(context.Background(), region.New(8), path, nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	c.Wait()

	if _, err := os.Stat(stray); !os.IsNotExist(err) {
		t.Errorf("stray temp file still present: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("archive removed by sweep: %v", err)
	}
}
