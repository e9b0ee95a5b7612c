package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

func newParseCommand() *cobra.Command {
	var (
		dialectFlag string
		asJSON      bool
	)

	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Parse a statement and print the transactions it would import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dialect, err := importer.ParseDialect(dialectFlag)
			if err != nil {
				return err
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			svc, err := offlineImporter(cfg)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening statement: %w", err)
			}
			defer f.Close()

			batch, err := svc.Preview(cmd.Context(), f, dialect)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(batch)
			}

			return printBatch(cmd.OutOrStdout(), batch)
		},
	}

	cmd.Flags().StringVar(&dialectFlag, "dialect", "", "force the dialect (card or bank) instead of detecting it")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the batch as JSON")

	return cmd
}

func printBatch(w io.Writer, batch *importer.Batch) error {
	rows := make([][]string, 0, len(batch.Candidates))
	for _, c := range batch.Candidates {
		rows = append(rows, []string{
			c.Date.Format("2006-01-02"),
			c.DisplayName,
			c.Subtitle,
			transaction.FormatAmount(c.Amount, c.Type, c.Currency),
			c.CategoryID,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DATE", "NAME", "SUBTITLE", "AMOUNT", "CATEGORY").
		Rows(rows...)

	if _, err := fmt.Fprintln(w, t.String()); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s statement from %s: %d rows, %d parsed, %d skipped\n",
		batch.Dialect, batch.Provider, batch.Total, batch.Parsed, batch.Skipped); err != nil {
		return err
	}

	for _, s := range batch.SkippedRows {
		if _, err := fmt.Fprintln(w, "  line "+strconv.Itoa(s.Line)+": "+s.Reason); err != nil {
			return err
		}
	}

	return nil
}
