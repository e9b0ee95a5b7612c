package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/reconcile"
)

var errAborted = errors.New("import aborted")

func newImportCommand() *cobra.Command {
	var (
		userFlag    string
		dialectFlag string
		yes         bool
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Import a statement for a user, linking transfers between accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			dialect, err := importer.ParseDialect(dialectFlag)
			if err != nil {
				return err
			}

			svc, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening statement: %w", err)
			}
			defer f.Close()

			batch, err := svc.Importer.Preview(cmd.Context(), f, dialect)
			if err != nil {
				return err
			}

			if err := printBatch(cmd.OutOrStdout(), batch); err != nil {
				return err
			}

			if !yes {
				confirmed := false

				err := huh.NewConfirm().
					Title(fmt.Sprintf("Import %d transactions into %s?", len(batch.Candidates), batch.Provider)).
					Affirmative("Import").
					Negative("Cancel").
					Value(&confirmed).
					Run()
				if err != nil {
					return err
				}

				if !confirmed {
					return errAborted
				}
			}

			summary, err := svc.Reconciler.RunImport(cmd.Context(), userID, batch)
			if err != nil {
				return err
			}

			return printSummary(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user id to import for (required)")
	_ = cmd.MarkFlagRequired("user")
	cmd.Flags().StringVar(&dialectFlag, "dialect", "", "force the dialect (card or bank) instead of detecting it")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	return cmd
}

func printSummary(w io.Writer, s *reconcile.Summary) error {
	_, err := fmt.Fprintf(w, "imported %d, skipped %d duplicates, linked %d transfers, %d failed links\n",
		s.Imported, s.Skipped, s.LinkedPairs, s.FailedLinks)
	if err != nil {
		return err
	}

	if s.BatchID != uuid.Nil {
		if _, err := fmt.Fprintf(w, "batch %s (undo with: tally undo %s --user ...)\n", s.BatchID, s.BatchID); err != nil {
			return err
		}
	}

	if s.Interrupted {
		_, err = fmt.Fprintln(w, "linking was interrupted; some transfers may be unlinked")
	}

	return err
}
