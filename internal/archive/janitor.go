package archive

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// tempSuffix marks partially written archives.
const tempSuffix = ".tmp"

// janitor deletes temporary files in the background. Failures are logged and
// never returned.
type janitor struct {
	wg  sync.WaitGroup
	log *slog.Logger
}

func (j *janitor) remove(paths ...string) {
	if len(paths) == 0 {
		return
	}
	j.wg.Add(1)
	go func() {
		defer j.wg.Done()
		for _, p := range paths {
			if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
				j.log.Warn("could not delete temporary file", "path", p, "error", err)
			}
		}
	}()
}

// sweep schedules every leftover temporary sibling of archive for deletion.
func (j *janitor) sweep(archive string) {
	dir, base := filepath.Split(archive)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		j.log.Warn("could not scan for temporary files", "dir", dir, "error", err)
		return
	}
	var stale []string
	for _, e := range entries {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, base+".") && strings.HasSuffix(name, tempSuffix) {
			stale = append(stale, filepath.Join(dir, name))
		}
	}
	j.remove(stale...)
}

func (j *janitor) wait() { j.wg.Wait() }
