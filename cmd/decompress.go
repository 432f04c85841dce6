package cmd

import (
	"fmt"

	"agzip/lib"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newDecompressCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "decompress archive.zip [destination]",
		Aliases: []string{"extract"},
		Short:   "Extract a ZIP archive into a directory",
		Long: `Decompress extracts every entry of the archive below destination.
Without destination the archive name minus its extension is used.
An entry that would land outside destination aborts the extraction.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := ""
			if len(args) == 2 {
				dest = args[1]
			}
			if err := lib.Run(lib.OpDecompress, args[0], dest, a.options(cmd, "extracting")); err != nil {
				return err
			}
			if dest == "" {
				dest = lib.DefaultExtractDir(args[0])
			}
			fmt.Fprintf(a.stdout, "%s %s -> %s\n", color.GreenString("✓"), args[0], dest)
			return nil
		},
	}
}
