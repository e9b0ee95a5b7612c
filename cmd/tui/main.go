package main

import (
	"context"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/tally/internal/app"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/importer"
)

type model struct {
	services  *app.Services
	providers importer.Providers
	userID    uuid.UUID

	currentView View

	importView view.ImportModel
	listView   view.ListModel
}

type View int

const (
	ViewMenu   View = 0
	ViewImport View = 1
	ViewList   View = 2
)

func initialModel(logger *slog.Logger) (model, func() error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	userID, err := uuid.Parse(cfg.TUI.UserID)
	if err != nil {
		slog.Error("TUI_USER_ID must be a valid user id", "error", err)
		os.Exit(1)
	}

	svc, err := app.Open(context.Background(), cfg, logger)
	if err != nil {
		slog.Error("failed to start services", "error", err)
		os.Exit(1)
	}

	providers := importer.Providers{Card: cfg.Import.CardProvider, Bank: cfg.Import.BankProvider}

	return model{
		services:    svc,
		providers:   providers,
		userID:      userID,
		currentView: ViewMenu,
		importView:  view.NewImportModel(svc.Importer, svc.Reconciler, providers, userID),
		listView:    view.NewListModel(svc.Transactions, userID, providers.Card, providers.Bank),
	}, svc.Close
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.services.Importer, m.services.Reconciler, m.providers, m.userID)

				return m, m.importView.Init()
			case "2":
				m.currentView = ViewList
				m.listView = view.NewListModel(m.services.Transactions, m.userID, m.providers.Card, m.providers.Bank)

				return m, m.listView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	case ViewList:
		var newModel tea.Model
		newModel, cmd = m.listView.Update(msg)
		m.listView = newModel.(view.ListModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Tally\n\n" +
				"1. Import Statement\n" +
				"2. Browse Transactions\n\n" +
				"q. Quit",
		)
	case ViewImport:
		return m.importView.View() + "\n" + helpStyle.Render(m.importView.ShortHelp())
	case ViewList:
		return m.listView.View() + "\n" + helpStyle.Render(m.listView.ShortHelp())
	}

	return "Unknown View"
}

var helpStyle = lipgloss.NewStyle().Faint(true).PaddingLeft(2)

func main() {
	// Logs would corrupt the terminal UI, so they go to a file when one is given.
	logger := slog.New(slog.DiscardHandler)

	if path := os.Getenv("TUI_LOG_FILE"); path != "" {
		f, err := tea.LogToFile(path, "tally")
		if err != nil {
			slog.Error("failed to open log file", "error", err)
			os.Exit(1)
		}
		defer f.Close()

		logger = slog.New(slog.NewTextHandler(f, nil))
	}

	m, closeServices := initialModel(logger)
	defer closeServices()

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
