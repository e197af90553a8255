package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/gabrielkrapp/mosaic/internal/layout"
	"github.com/gabrielkrapp/mosaic/internal/pricing"
	"github.com/spf13/cobra"
)

func newLayoutCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the base slot layout",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			slots := layout.Base()
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), slots)
			}
			return writeLayout(cmd.OutOrStdout(), slots)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func writeLayout(w io.Writer, slots []domain.Slot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIZE\tROW\tCOL\tSPAN\tPRICE/DAY")
	for _, s := range slots {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%dx%d\t%.2f %s\n",
			s.ID, s.Size, s.Row, s.Col, s.ColSpan, s.RowSpan, pricing.PricePerDay(s.Size), pricing.Currency)
	}
	return tw.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
