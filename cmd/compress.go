package cmd

import (
	"fmt"

	"agzip/lib"
	"agzip/pkg/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newCompressCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compress input [output.zip]",
		Short: "Compress a file or directory into a ZIP archive",
		Long: `Compress writes every regular file below input into one ZIP archive.
Without output the archive is written next to input as input.zip.
Files that cannot be read are reported and left out.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := ""
			if len(args) == 2 {
				output = args[1]
			}
			if err := lib.Run(lib.OpCompress, args[0], output, a.options(cmd, "compressing")); err != nil {
				return err
			}
			if output == "" {
				output = lib.DefaultArchivePath(args[0])
			}
			fmt.Fprintf(a.stdout, "%s %s -> %s\n", color.GreenString("✓"), args[0], output)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.String("method", "deflate", "compression method: store, deflate or lz4")
	flags.Int("level", -1, "compression level 0-9, -1 for the method default")
	flags.Bool("keep-empty-dirs", false, "store empty directories as directory entries")
	cobra.CheckErr(config.BindFlag(a.v, config.KeyMethod, flags.Lookup("method")))
	cobra.CheckErr(config.BindFlag(a.v, config.KeyLevel, flags.Lookup("level")))
	cobra.CheckErr(config.BindFlag(a.v, config.KeyKeepEmptyDirs, flags.Lookup("keep-empty-dirs")))
	return cmd
}
