package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newUndoCommand() *cobra.Command {
	var userFlag string

	cmd := &cobra.Command{
		Use:   "undo BATCH",
		Short: "Delete the transactions of an import and restore balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := uuid.Parse(userFlag)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			batchID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid batch id: %w", err)
			}

			svc, err := openServices(cmd.Context())
			if err != nil {
				return err
			}
			defer svc.Close()

			deleted, err := svc.Reconciler.UndoImport(cmd.Context(), userID, batchID)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d transactions from batch %s\n", deleted, batchID)

			return err
		},
	}

	cmd.Flags().StringVar(&userFlag, "user", "", "user id that owns the batch (required)")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}
