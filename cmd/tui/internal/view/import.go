package view

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/reconcile"
)

const (
	importTimeout   = 2 * time.Minute
	maxSkippedShown = 8
)

type importState int

const (
	importStateDialectSelect importState = iota
	importStateFilePick
	importStateLoading
	importStatePreview
	importStateConfirm
	importStateResult
)

type dialectOption struct {
	label   string
	dialect importer.Dialect
}

type ImportModel struct {
	CommonModel
	importService *importer.Service
	reconciler    *reconcile.Service
	userID        uuid.UUID

	state         importState
	filePicker    filepicker.Model
	dialects      []dialectOption
	dialectCursor int

	batch     *importer.Batch
	preview   table.Model
	form      *huh.Form
	confirmed *bool

	summary *reconcile.Summary
	status  string
	err     error
}

func NewImportModel(impSvc *importer.Service, reconciler *reconcile.Service, providers importer.Providers, userID uuid.UUID) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".CSV", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		importService: impSvc,
		reconciler:    reconciler,
		userID:        userID,
		filePicker:    fp,
		dialects: []dialectOption{
			{label: "Detect automatically", dialect: importer.DialectUnknown},
			{label: providers.Card + " (card export)", dialect: importer.DialectCard},
			{label: providers.Bank + " (bank statement)", dialect: importer.DialectBank},
		},
	}
}

func (m ImportModel) Title() string { return "Import Statement" }

func (m ImportModel) ShortHelp() string {
	switch m.state {
	case importStatePreview:
		return "↑/↓: scroll | i: import | Esc: cancel"
	case importStateResult:
		return "u: undo this import | Esc: back"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case previewMsg:
		if msg.err != nil {
			m.state = importStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.batch = msg.batch
		m.preview = newPreviewTable(msg.batch)
		m.state = importStatePreview

		return m, nil

	case runImportMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.summary = msg.summary
		m.status = describeSummary(msg.summary)

		return m, nil

	case undoMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Undo failed: %v", msg.err)

			return m, nil
		}

		m.summary = nil
		m.status = fmt.Sprintf("Import undone, %d transactions removed.", msg.deleted)

		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		switch m.state {
		case importStateDialectSelect:
			return m.updateDialectSelect(msg)
		case importStatePreview:
			return m.updatePreview(msg)
		case importStateResult:
			if msg.String() == "u" && m.summary != nil && m.summary.BatchID != uuid.Nil {
				return m, m.undoCmd(m.summary.BatchID)
			}

			return m, nil
		}
	}

	switch m.state {
	case importStateConfirm:
		return m.updateConfirm(msg)
	case importStateFilePick:
		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.state = importStateLoading
			m.status = fmt.Sprintf("Reading %s...", path)

			return m, m.previewCmd(path, m.dialects[m.dialectCursor].dialect)
		}

		return m, cmd
	}

	return m, nil
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick, importStatePreview, importStateResult:
		m.state = importStateDialectSelect
		m.batch = nil
		m.summary = nil
		m.err = nil
		m.status = ""

		return m, nil
	case importStateConfirm:
		m.state = importStatePreview
		m.form = nil

		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateDialectSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.dialectCursor > 0 {
			m.dialectCursor--
		}
	case tea.KeyDown:
		if m.dialectCursor < len(m.dialects)-1 {
			m.dialectCursor++
		}
	case tea.KeyEnter:
		m.state = importStateFilePick
		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "i" {
		if len(m.batch.Candidates) == 0 {
			m.status = "Nothing to import."
			return m, nil
		}

		m.confirmed = new(bool)
		m.form = huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Import %d transactions into %s?", len(m.batch.Candidates), m.batch.Provider)).
					Description("Duplicates are skipped and transfers are linked automatically.").
					Affirmative("Import").
					Negative("Cancel").
					Value(m.confirmed),
			),
		).WithShowHelp(false)
		m.state = importStateConfirm

		return m, m.form.Init()
	}

	var cmd tea.Cmd
	m.preview, cmd = m.preview.Update(msg)

	return m, cmd
}

func (m ImportModel) updateConfirm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		if !*m.confirmed {
			m.state = importStatePreview
			return m, nil
		}

		m.state = importStateLoading
		m.status = "Importing..."

		return m, m.runImportCmd(m.batch)
	case huh.StateAborted:
		m.form = nil
		m.state = importStatePreview

		return m, nil
	}

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateDialectSelect:
		return m.viewDialectSelect()
	case importStateFilePick:
		return lipgloss.NewStyle().Padding(1).Render(
			fmt.Sprintf("Select statement (%s):\n\n%s", m.dialects[m.dialectCursor].label, m.filePicker.View()),
		)
	case importStateLoading:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStatePreview:
		return m.viewPreview()
	case importStateConfirm:
		return lipgloss.JoinVertical(lipgloss.Left, m.viewPreview(), lipgloss.NewStyle().Padding(0, 1).Render(m.form.View()))
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewDialectSelect() string {
	var b strings.Builder

	b.WriteString("Statement type:\n\n")

	for i, opt := range m.dialects {
		cursor := " "
		if i == m.dialectCursor {
			cursor = ">"
		}

		fmt.Fprintf(&b, "%s %s\n", cursor, opt.label)
	}

	return lipgloss.NewStyle().Padding(2).Render(b.String())
}

func (m ImportModel) viewPreview() string {
	b := m.batch

	header := fmt.Sprintf("%s statement from %s: %d rows, %d parsed, %d skipped",
		b.Dialect, b.Provider, b.Total, b.Parsed, b.Skipped)

	parts := []string{
		lipgloss.NewStyle().Bold(true).PaddingBottom(1).Render(header),
		lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240")).
			Render(m.preview.View()),
	}

	if len(b.SkippedRows) > 0 {
		var s strings.Builder

		s.WriteString("Skipped rows:\n")

		for i, row := range b.SkippedRows {
			if i == maxSkippedShown {
				fmt.Fprintf(&s, "  ... and %d more\n", len(b.SkippedRows)-maxSkippedShown)
				break
			}

			fmt.Fprintf(&s, "  line %d: %s\n", row.Line, row.Reason)
		}

		parts = append(parts, lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Render(s.String()))
	}

	if m.status != "" {
		parts = append(parts, lipgloss.NewStyle().Faint(true).Render(m.status))
	}

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	color := lipgloss.Color("46")

	if m.err != nil {
		color = lipgloss.Color("196")
	}

	footer := "\n\n(Esc to go back)"
	if m.err == nil && m.summary != nil && m.summary.BatchID != uuid.Nil {
		footer = "\n\n(u to undo, Esc to go back)"
	}

	return style.Render(lipgloss.NewStyle().Foreground(color).Render(m.status) + footer)
}

func describeSummary(s *reconcile.Summary) string {
	msg := fmt.Sprintf("Imported %d transactions, skipped %d duplicates, linked %d transfers.",
		s.Imported, s.Skipped, s.LinkedPairs)

	if s.FailedLinks > 0 {
		msg += fmt.Sprintf("\n%d transfer links could not be written.", s.FailedLinks)
	}

	if s.Interrupted {
		msg += "\nLinking was interrupted; some transfers may be unlinked."
	}

	return msg
}

func newPreviewTable(b *importer.Batch) table.Model {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Name", Width: 32},
		{Title: "Subtitle", Width: 20},
		{Title: "Amount", Width: 16},
		{Title: "Category", Width: 18},
	}

	rows := make([]table.Row, 0, len(b.Candidates))
	for _, c := range b.Candidates {
		rows = append(rows, table.Row{
			FormatDate(c.Date),
			c.DisplayName,
			c.Subtitle,
			FormatAmount(c.Amount, c.Type, c.Currency),
			c.CategoryID,
		})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	t.SetStyles(s)

	return t
}

// Messages

type previewMsg struct {
	batch *importer.Batch
	err   error
}

type runImportMsg struct {
	summary *reconcile.Summary
	err     error
}

type undoMsg struct {
	deleted int64
	err     error
}

func (m ImportModel) previewCmd(path string, dialect importer.Dialect) tea.Cmd {
	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return previewMsg{err: err}
		}
		defer f.Close()

		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		batch, err := m.importService.Preview(ctx, f, dialect)

		return previewMsg{batch: batch, err: err}
	}
}

func (m ImportModel) runImportCmd(batch *importer.Batch) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		summary, err := m.reconciler.RunImport(ctx, m.userID, batch)

		return runImportMsg{summary: summary, err: err}
	}
}

func (m ImportModel) undoCmd(batchID uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		deleted, err := m.reconciler.UndoImport(ctx, m.userID, batchID)

		return undoMsg{deleted: deleted, err: err}
	}
}
