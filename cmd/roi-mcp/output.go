package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/ironsheep/roi-tools-mcp/internal/archive"
	"github.com/ironsheep/roi-tools-mcp/internal/imaging"
	"github.com/ironsheep/roi-tools-mcp/internal/region"
	"github.com/ironsheep/roi-tools-mcp/internal/session"
)

var (
	headColor    = color.New(color.Bold)
	activeColor  = stateColor(region.Active)
	deletedColor = stateColor(region.Deleted)
	dimColor     = color.New(color.Faint)
)

// stateColor prints in the colour region labels use for state s.
func stateColor(s region.State) *color.Color {
	r, g, b := region.LabelColor(s).RGB255()
	return color.RGB(int(r), int(g), int(b))
}

func printSummary(w io.Writer, sum *session.Summary) {
	headColor.Fprintf(w, "%d regions detected", sum.Discovered)
	if sum.Cached {
		dimColor.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %d\n", activeColor.Sprint("active:      "), sum.Active)
	fmt.Fprintf(w, "  %s %d\n", deletedColor.Sprint("small:       "), sum.DeletedSmall)
	fmt.Fprintf(w, "  %s %d\n", deletedColor.Sprint("image edge:  "), sum.DeletedEdge)
	fmt.Fprintf(w, "  workers %d, range stop %d\n", sum.Workers, sum.RangeStop)
	for _, p := range sum.Timings.Phases {
		dimColor.Fprintf(w, "  %-10s %s\n", p.Name, time.Duration(p.DurationMS*float64(time.Millisecond)).Round(time.Microsecond))
	}
}

func printReport(w io.Writer, r *archive.LoadReport) {
	if r.NoData {
		deletedColor.Fprintln(w, "archive holds no regions")
		return
	}
	headColor.Fprintf(w, "%d of %d entries loaded", r.Loaded, r.Entries)
	fmt.Fprintf(w, " (%s names)\n", r.Variant)
	if r.Skipped > 0 {
		deletedColor.Fprintf(w, "  %d skipped\n", r.Skipped)
	}
}

func printCounts(w io.Writer, counts map[region.State]int) {
	for _, s := range []region.State{region.Active, region.Selected, region.Deleted} {
		fmt.Fprintf(w, "  %s %d\n", stateColor(s).Sprintf("%-19s", s.String()), counts[s])
	}
}

func printRasterInfo(w io.Writer, path string, info *imaging.RasterInfo) {
	headColor.Fprintln(w, path)
	fmt.Fprintf(w, "  %dx%d %s, %d bytes\n", info.Width, info.Height, info.Format, info.FileSizeBytes)
	fmt.Fprintf(w, "  highest label %d\n", info.MaxLabel)
}
