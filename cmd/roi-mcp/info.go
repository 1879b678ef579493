package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ironsheep/roi-tools-mcp/internal/region"
)

var infoCmd = &cobra.Command{
	Use:   "info <label-image|archive.zip>",
	Short: "Describe a label image or a region archive",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	colored, err := useColor(cmd)
	if err != nil {
		return err
	}
	color.NoColor = !colored

	sess, _, err := setup(cmd)
	if err != nil {
		return err
	}
	defer sess.Close()

	path := args[0]
	w := cmd.OutOrStdout()
	if !strings.EqualFold(filepath.Ext(path), ".zip") {
		info, err := sess.LabelImageInfo(path)
		if err != nil {
			return err
		}
		printRasterInfo(w, path, info)
		return nil
	}

	report, err := sess.Load(cmd.Context(), path, nil)
	if err != nil {
		return err
	}
	headColor.Fprintln(w, path)
	printReport(w, report)
	return sess.View(func(st *region.Store) error {
		printCounts(w, st.Counts())
		fmt.Fprintf(w, "  range stop %d\n", st.RangeStop())
		return nil
	})
}
