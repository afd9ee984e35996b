package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/ashureev/commcoach/internal/persona"
	"github.com/spf13/cobra"
)

func newPersonasCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List the coaching personas",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			all := persona.All()
			if format != formatText {
				return encode(out, format, all)
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tNAME\tTONE")
			for _, p := range all {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Type, p.Name, p.Tone)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&format, "format", "o", formatText, "output format: text, json or yaml")
	return cmd
}
