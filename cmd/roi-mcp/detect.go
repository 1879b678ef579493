package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var detectCmd = &cobra.Command{
	Use:   "detect [flags] <label-image>",
	Short: "Detect the regions of a label image",
	Long: `Detect every labelled region of a label image, classify small and
border-touching regions as deleted, print a summary and optionally write the
regions to a zip archive.`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func init() {
	detectCmd.Flags().StringP("out", "o", "", "write the regions to this zip archive")
	detectCmd.Flags().Bool("exclude-deleted", false, "leave deleted regions out of the archive")
	detectCmd.Flags().Bool("drop-cache", false, "empty the detection cache before detecting")
}

func runDetect(cmd *cobra.Command, args []string) error {
	out, err := cmd.Flags().GetString("out")
	if err != nil {
		return fmt.Errorf("failed to get out flag: %w", err)
	}
	excl, err := cmd.Flags().GetBool("exclude-deleted")
	if err != nil {
		return fmt.Errorf("failed to get exclude-deleted flag: %w", err)
	}
	drop, err := cmd.Flags().GetBool("drop-cache")
	if err != nil {
		return fmt.Errorf("failed to get drop-cache flag: %w", err)
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

	if drop {
		if err := sess.DropCache(); err != nil {
			return fmt.Errorf("failed to drop cache: %w", err)
		}
	}
	r, err := sess.OpenLabelImage(args[0])
	if err != nil {
		return err
	}
	sum, err := sess.Detect(cmd.Context(), r)
	if err != nil {
		return err
	}
	printSummary(cmd.OutOrStdout(), sum)

	if out == "" {
		return nil
	}
	n, err := sess.Save(out, excl)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d regions written to %s\n", n, out)
	return nil
}
