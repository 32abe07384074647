package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/MimeLyc/srt-batch-translator/internal/language"
)

func newLanguagesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "languages",
		Short: "List built-in target languages",
		Long: `List the built-in target languages. Any other valid BCP 47 code, such
as nl or pt-PT, is accepted too and named after its English display name.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tLANGUAGE")
			for _, d := range language.Supported() {
				fmt.Fprintf(w, "%s\t%s\n", d.Code, d.Name)
			}
			return w.Flush()
		},
	}
}
