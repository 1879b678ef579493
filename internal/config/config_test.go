package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roi.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.MaxRegions != 4095 || c.PixelsPerWorker != 500000 || c.LoadBatchSize != 384 || c.SampleStride != 7 {
		t.Errorf("unexpected defaults: %+v", c)
	}
	if !c.RemoveSmall || !c.RemoveEdges {
		t.Error("removal flags should default to true")
	}
	if c.SizeThreshold != 100 {
		t.Errorf("SizeThreshold = %v, want 100", c.SizeThreshold)
	}
	if tag, ok := c.TagFor("f6"); !ok || tag != "fold" {
		t.Errorf("TagFor(f6) = %q, %v; want fold, true", tag, ok)
	}
	if _, ok := c.TagFor("F8"); ok {
		t.Error("F8 should be unbound")
	}
}

func TestValidate_Clamps(t *testing.T) {
	c := &Config{
		MaxRegions:    -1,
		SizeThreshold: -5,
		OutlineStep:   720,
		TagKeys:       map[string]string{" f12 ": "tear"},
	}
	c.Validate()
	if c.MaxRegions != DefaultMaxRegions || c.SizeThreshold != DefaultSizeThreshold || c.OutlineStep != DefaultOutlineStep {
		t.Errorf("values not clamped: %+v", c)
	}
	if c.PixelsPerWorker != DefaultPixelsPerWorker || c.LoadBatchSize != DefaultLoadBatchSize || c.SampleStride != DefaultSampleStride {
		t.Errorf("zero values not defaulted: %+v", c)
	}
	if c.TagKeys["F12"] != "tear" {
		t.Errorf("TagKeys = %v, want F12 normalised", c.TagKeys)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "none.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.MaxRegions != DefaultMaxRegions {
		t.Errorf("MaxRegions = %d, want default", c.MaxRegions)
	}
}

func TestLoad_Overrides(t *testing.T) {
	path := writeConfig(t, `
max_regions = 100
size_threshold = 25.5
remove_edges = false
cache_dir = "/tmp/roi-cache"

[tag_keys]
F12 = "bubble"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.MaxRegions != 100 || c.SizeThreshold != 25.5 || c.RemoveEdges || !c.RemoveSmall {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.CacheDir != "/tmp/roi-cache" {
		t.Errorf("CacheDir = %q", c.CacheDir)
	}
	if tag, ok := c.TagFor("F12"); !ok || tag != "bubble" {
		t.Errorf("TagFor(F12) = %q, %v", tag, ok)
	}
	if c.SampleStride != DefaultSampleStride {
		t.Errorf("SampleStride = %d, want default", c.SampleStride)
	}
}

func TestLoad_UnknownKey(t *testing.T) {
	path := writeConfig(t, "max_regions = 10\nmax_regoins = 20\n")
	c, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "max_regoins") {
		t.Errorf("err = %v, want unknown key error", err)
	}
	if c.MaxRegions != 10 {
		t.Errorf("MaxRegions = %d, want 10", c.MaxRegions)
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := Load(writeConfig(t, "max_regions = [")); err == nil {
		t.Error("Load should fail for malformed TOML")
	}
}

func TestSave_RoundTrip(t *testing.T) {
	c := DefaultConfig()
	c.MaxRegions = 512
	c.Autosave = "autosave.zip"
	path := filepath.Join(t.TempDir(), "roi.toml")
	if err := c.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if back.MaxRegions != 512 || back.Autosave != "autosave.zip" {
		t.Errorf("round trip lost values: %+v", back)
	}
	if tag, _ := back.TagFor("F10"); tag != "section.stretch" {
		t.Errorf("TagFor(F10) = %q", tag)
	}
}
