package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/app"
	"github.com/MrJamesThe3rd/tally/internal/category"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/encoding"
	"github.com/MrJamesThe3rd/tally/internal/importer"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:   "tally",
		Short: "Import bank and card statements into your ledger",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}

			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output")

	rootCmd.AddCommand(
		newDetectCommand(),
		newParseCommand(),
		newImportCommand(),
		newUndoCommand(),
	)

	return rootCmd
}

func readStatement(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	return encoding.DecodeText(f)
}

// offlineImporter builds an importer that categorises with keyword rules only.
func offlineImporter(cfg *config.Config) (*importer.Service, error) {
	rules, err := category.LoadRules(cfg.Category.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("loading category rules: %w", err)
	}

	categories := category.NewKeywordService(rules, category.Defaults{
		Expense: cfg.Category.DefaultExpense,
		Income:  cfg.Category.DefaultIncome,
	})

	providers := importer.Providers{Card: cfg.Import.CardProvider, Bank: cfg.Import.BankProvider}

	return importer.NewService(providers, categories, slog.Default()), nil
}

func openServices(ctx context.Context) (*app.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	return app.Open(ctx, cfg, slog.Default())
}
