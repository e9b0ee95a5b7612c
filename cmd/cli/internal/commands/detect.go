package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/importer"
)

func newDetectCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "detect FILE",
		Short: "Print the statement dialect of a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readStatement(args[0])
			if err != nil {
				return err
			}

			dialect := importer.DetectFormat(text)
			if dialect == importer.DialectUnknown {
				return importer.ErrUnknownFormat
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), dialect)

			return err
		},
	}
}
