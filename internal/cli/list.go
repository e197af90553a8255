package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/spf13/cobra"
)

func newListCommand(env environment) *cobra.Command {
	var (
		asJSON bool
		all    bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the live world view",
		Long:  "Print the base layout merged with live leases. Only leased slots are shown unless --all is set.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), env)
			if err != nil {
				return err
			}
			defer sess.Close()

			view := sess.svc.WorldView(cmd.Context())
			if !all {
				view = leasedOnly(view)
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), view)
			}
			return writeWorldView(cmd.OutOrStdout(), view, env.clock.Now())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	cmd.Flags().BoolVar(&all, "all", false, "include free slots")
	return cmd
}

func leasedOnly(view []domain.Slot) []domain.Slot {
	out := make([]domain.Slot, 0, len(view))
	for _, s := range view {
		if s.Leased() {
			out = append(out, s)
		}
	}
	return out
}

func writeWorldView(w io.Writer, view []domain.Slot, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSIZE\tTEXT\tLINK\tEXPIRES\tREMAINING")
	for _, s := range view {
		if !s.Leased() {
			fmt.Fprintf(tw, "%d\t%s\t-\t-\t-\t-\n", s.ID, s.Size)
			continue
		}
		remaining := s.ExpiresAt.Sub(now).Truncate(time.Second)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Size, s.Text, orDash(s.Link), s.ExpiresAt.UTC().Format(time.RFC3339), remaining)
	}
	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
