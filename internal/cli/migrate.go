package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gabrielkrapp/mosaic/internal/domain"
	"github.com/spf13/cobra"
)

func newMigrateCommand(env environment) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import client-held leases from a JSON file",
		Long: "Read a JSON array of tiles ({id,size,text,link,expiresAt}) and run it through " +
			"the same reconciliation the init action uses. Use --file - to read stdin.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			candidates, err := readCandidates(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}

			sess, err := openSession(cmd.Context(), env)
			if err != nil {
				return err
			}
			defer sess.Close()

			result, err := sess.svc.Migrate(cmd.Context(), candidates)
			if err != nil {
				return err
			}
			return writeMigrationResult(cmd.OutOrStdout(), len(candidates), result)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the candidates JSON file, or - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readCandidates(stdin io.Reader, path string) ([]domain.Candidate, error) {
	if path == "" {
		return nil, errors.New("--file is required")
	}

	r := stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open candidates file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var candidates []domain.Candidate
	if err := json.NewDecoder(r).Decode(&candidates); err != nil {
		return nil, fmt.Errorf("failed to decode candidates: %w", err)
	}
	return candidates, nil
}

func writeMigrationResult(w io.Writer, submitted int, result *domain.MigrationResult) error {
	if _, err := fmt.Fprintf(w, "submitted %d, migrated %d, relocated %d\n", submitted, result.Migrated, len(result.Conflicts)); err != nil {
		return err
	}
	for _, c := range result.Conflicts {
		if _, err := fmt.Fprintf(w, "  slot %d -> %d\n", c.Old, c.New); err != nil {
			return err
		}
	}
	return nil
}
