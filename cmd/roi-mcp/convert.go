package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ironsheep/roi-tools-mcp/internal/imaging"
)

var convertCmd = &cobra.Command{
	Use:   "convert [flags] <src.zip> <dst.zip>",
	Short: "Rewrite a region archive with canonical names and a manifest",
	Long: `Load a region archive of any kind and save it again with canonical region
names and a tags.json manifest. Archives whose entries carry neither a
manifest nor canonical names need --label-image to infer region labels.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().String("label-image", "", "label image used to infer region labels")
	convertCmd.Flags().Bool("exclude-deleted", false, "leave deleted regions out of the output")
}

func runConvert(cmd *cobra.Command, args []string) error {
	labelPath, err := cmd.Flags().GetString("label-image")
	if err != nil {
		return fmt.Errorf("failed to get label-image flag: %w", err)
	}
	excl, err := cmd.Flags().GetBool("exclude-deleted")
	if err != nil {
		return fmt.Errorf("failed to get exclude-deleted flag: %w", err)
	}
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

	var r *imaging.Raster
	if labelPath != "" {
		if r, err = sess.OpenLabelImage(labelPath); err != nil {
			return err
		}
	}
	report, err := sess.Load(cmd.Context(), args[0], r)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report)
	if report.NoData {
		return fmt.Errorf("nothing to convert in %s", args[0])
	}

	n, err := sess.Save(args[1], excl)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d regions written to %s\n", n, args[1])
	return nil
}
