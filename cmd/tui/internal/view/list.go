package view

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/transaction"
)

type listState int

const (
	listStateBrowse listState = iota
	listStateEdit
)

// listForm holds the edit form bindings. It lives behind a pointer so the form keeps writing to
// the same values as the model is copied by bubbletea.
type listForm struct {
	displayName string
	categoryID  string
	exclude     bool
}

type ListModel struct {
	CommonModel
	txService *transaction.Service
	userID    uuid.UUID
	providers []string

	state listState
	table table.Model
	txs   []*transaction.Transaction
	form  *huh.Form
	edit  *listForm

	providerIdx int
	timeframe   Timeframe

	loading bool
	err     error
	status  string
}

// NewListModel builds the transaction browser. providers are the labels cycled by the provider
// filter, after "All".
func NewListModel(txSvc *transaction.Service, userID uuid.UUID, providers ...string) ListModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Provider", Width: 10},
		{Title: "Name", Width: 32},
		{Title: "Amount", Width: 16},
		{Title: "Category", Width: 16},
		{Title: "Transfer", Width: 8},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return ListModel{
		txService: txSvc,
		userID:    userID,
		providers: providers,
		table:     t,
		loading:   true,
	}
}

func (m ListModel) Title() string { return "Transactions" }

func (m ListModel) ShortHelp() string {
	if m.state == listStateEdit {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | e: edit | p: provider filter | d: date filter | r: refresh"
}

func (m ListModel) Init() tea.Cmd {
	return m.loadTxsCmd()
}

func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadListMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.txs = msg.txs
		m.refreshTable()

		return m, nil

	case listSaveMsg:
		switch {
		case errors.Is(msg.err, transaction.ErrAnalyticsProtected):
			m.status = "Linked transfers must stay excluded from analytics."
		case msg.err != nil:
			m.status = fmt.Sprintf("Error saving: %v", msg.err)
		default:
			m.status = "Saved."
		}

		m.state = listStateBrowse
		m.form = nil
		m.edit = nil
		m.table.Focus()

		return m, m.loadTxsCmd()

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(max(msg.Height-10, 5))

		return m, nil
	}

	switch m.state {
	case listStateBrowse:
		return m.updateBrowse(msg)
	case listStateEdit:
		return m.updateEdit(msg)
	}

	return m, nil
}

func (m ListModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadTxsCmd()
		case "e":
			return m.enterEditMode()
		case "p":
			m.providerIdx = (m.providerIdx + 1) % (len(m.providers) + 1)
			return m, m.loadTxsCmd()
		case "d":
			m.timeframe = m.timeframe.Next()
			return m, m.loadTxsCmd()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m ListModel) enterEditMode() (tea.Model, tea.Cmd) {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) {
		return m, nil
	}

	tx := m.txs[idx]
	m.edit = &listForm{
		displayName: tx.DisplayName,
		categoryID:  tx.CategoryID,
		exclude:     tx.ExcludeFromAnalytics,
	}

	fields := []huh.Field{
		huh.NewInput().
			Key("display_name").
			Title("Name").
			Value(&m.edit.displayName).
			Validate(func(s string) error {
				if strings.TrimSpace(s) == "" {
					return fmt.Errorf("name cannot be empty")
				}
				return nil
			}),
		huh.NewInput().
			Key("category_id").
			Title("Category").
			Value(&m.edit.categoryID),
	}

	if !tx.IsAnalyticsProtected {
		fields = append(fields, huh.NewConfirm().
			Key("exclude").
			Title("Exclude from analytics?").
			Value(&m.edit.exclude))
	}

	m.form = huh.NewForm(huh.NewGroup(fields...)).WithWidth(45).WithShowHelp(false)
	m.state = listStateEdit
	m.table.Blur()

	return m, m.form.Init()
}

func (m ListModel) updateEdit(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = listStateBrowse
		m.form = nil
		m.edit = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.saveCmd()
}

func (m ListModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading transactions...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := fmt.Sprintf(
		"Filter: [p] Provider: %s | [d] Date: %s | %d transactions",
		activeStyle(m.providerLabel()),
		activeStyle(m.timeframe.String()),
		len(m.txs),
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.state == listStateEdit && m.form != nil {
		idx := m.table.Cursor()
		original := ""

		if idx >= 0 && idx < len(m.txs) {
			original = m.txs[idx].Title
			if sub := m.txs[idx].Subtitle; sub != "" {
				original += " / " + sub
			}
		}

		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(48).
			Render(
				fmt.Sprintf("Edit Transaction\n\nOriginal: %s\n\n%s", original, m.form.View()),
			)

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func activeStyle(s string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Render(s)
}

func (m ListModel) providerLabel() string {
	if m.providerIdx == 0 {
		return "All"
	}

	return m.providers[m.providerIdx-1]
}

func (m ListModel) filter() transaction.ListFilter {
	filter := transaction.ListFilter{UserID: &m.userID}

	if m.providerIdx > 0 {
		filter.Provider = new(m.providers[m.providerIdx-1])
	}

	if start, end := TimeframeToDateRange(m.timeframe, time.Now()); !start.IsZero() {
		filter.StartDate = &start
		filter.EndDate = &end
	}

	return filter
}

func (m *ListModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.txs))
	for _, tx := range m.txs {
		transfer := ""
		if tx.IsLinked() {
			transfer = "yes"
		}

		rows = append(rows, table.Row{
			FormatDate(tx.Date),
			tx.Provider,
			tx.DisplayName,
			FormatAmount(tx.Amount, tx.Type, tx.Currency),
			tx.CategoryID,
			transfer,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadListMsg struct {
	txs []*transaction.Transaction
	err error
}

func (m ListModel) loadTxsCmd() tea.Cmd {
	filter := m.filter()

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		txs, err := m.txService.List(ctx, filter)

		return loadListMsg{txs: txs, err: err}
	}
}

type listSaveMsg struct {
	err error
}

func (m ListModel) saveCmd() tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.txs) || m.edit == nil {
		return nil
	}

	updated := *m.txs[idx]
	updated.DisplayName = strings.TrimSpace(m.edit.displayName)
	updated.CategoryID = strings.TrimSpace(m.edit.categoryID)
	updated.ExcludeFromAnalytics = m.edit.exclude

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return listSaveMsg{err: m.txService.Update(ctx, &updated)}
	}
}
