package cmd

import (
	"fmt"

	"agzip/lib"
	"agzip/pkg/progress"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list archive.zip",
		Short: "List the entries of a ZIP archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := lib.List(args[0], lib.Options{Logger: a.log})
			if err != nil {
				return err
			}
			table := tablewriter.NewWriter(a.stdout)
			table.Header("Name", "Method", "Size", "Compressed", "Modified")
			var total uint64
			for _, e := range entries {
				total += e.Size
				_ = table.Append([]string{
					e.Name,
					e.Method.String(),
					progress.FormatSize(e.Size),
					progress.FormatSize(e.CompressedSize),
					e.Modified.Format("2006-01-02 15:04:05"),
				})
			}
			_ = table.Render()
			fmt.Fprintf(a.stdout, "%d entries, %s\n", len(entries), progress.FormatSize(total))
			return nil
		},
	}
}
