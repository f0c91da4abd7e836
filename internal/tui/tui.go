// Package tui is a terminal review UI over the same workflow session as the web UI.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"financewatch/internal/core"
	"financewatch/internal/render"
	"financewatch/internal/workflow"
)

// Options configures where exports are written.
type Options struct {
	ExportDir      string
	ExportFilename string
}

type analysisDoneMsg struct{ err error }

type exportedMsg struct {
	path string
	err  error
}

// Edit form fields, in tab order.
const (
	fieldCategory = iota
	fieldDescription
	fieldSentiment
	fieldMentions
	fieldChange
	fieldCount
)

var fieldLabels = [fieldCount]string{"Category", "Description", "Sentiment", "Mentions", "Change"}

// editForm holds the text of the trend being edited.
type editForm struct {
	id     int64
	field  int
	values [fieldCount]string
}

func newEditForm(t core.Trend) *editForm {
	return &editForm{
		id: t.ID,
		values: [fieldCount]string{
			t.Category,
			t.Description,
			strconv.Itoa(t.Sentiment),
			strconv.Itoa(t.Mentions),
			t.Change,
		},
	}
}

func (f *editForm) trend() (core.Trend, error) {
	sentiment, err := strconv.Atoi(strings.TrimSpace(f.values[fieldSentiment]))
	if err != nil {
		return core.Trend{}, fmt.Errorf("sentiment must be a number")
	}
	mentions, err := strconv.Atoi(strings.TrimSpace(f.values[fieldMentions]))
	if err != nil {
		return core.Trend{}, fmt.Errorf("mentions must be a number")
	}
	return core.Trend{
		ID:          f.id,
		Category:    strings.TrimSpace(f.values[fieldCategory]),
		Description: strings.TrimSpace(f.values[fieldDescription]),
		Sentiment:   sentiment,
		Mentions:    mentions,
		Change:      strings.TrimSpace(f.values[fieldChange]),
	}, nil
}

// model represents the state of the TUI application.
type model struct {
	ctx      context.Context
	session  *workflow.Session
	opts     Options
	state    workflow.State
	selected int       // Index into state.Trends
	form     *editForm // Non-nil while a trend is being edited
	status   string
	width    int
	height   int
	quitting bool
}

func newModel(ctx context.Context, session *workflow.Session, opts Options) model {
	m := model{ctx: ctx, session: session, opts: opts}
	m.refresh()
	return m
}

// refresh reloads the session state and keeps the selection in range.
func (m *model) refresh() {
	m.state = m.session.Snapshot()
	if m.selected >= len(m.state.Trends) {
		m.selected = len(m.state.Trends) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	if m.state.Editing == nil {
		m.form = nil
	} else if m.form == nil || m.form.id != m.state.Editing.ID {
		m.form = newEditForm(*m.state.Editing)
	}
}

func (m *model) dispatch(a workflow.Action) bool {
	if _, err := m.session.Dispatch(m.ctx, a); err != nil {
		m.status = err.Error()
		m.refresh()
		return false
	}
	m.status = ""
	m.refresh()
	return true
}

func (m model) selectedTrend() (core.Trend, bool) {
	if m.selected < 0 || m.selected >= len(m.state.Trends) {
		return core.Trend{}, false
	}
	return m.state.Trends[m.selected], true
}

// Init is the first command that will be run. We don't need any for now.
func (m model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model accordingly.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case analysisDoneMsg:
		m.refresh()
		switch {
		case msg.err != nil:
			m.status = msg.err.Error()
		case m.state.Notice != "":
			m.status = ""
		default:
			m.status = fmt.Sprintf("Analysis completed: %d trends to review", len(m.state.Trends))
		}

	case exportedMsg:
		if msg.err != nil {
			m.status = "Export failed: " + msg.err.Error()
		} else {
			m.status = "Report exported to " + msg.path
		}

	case tea.KeyMsg:
		if m.form != nil {
			return m.updateForm(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

func (m model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit
	case "1", "2", "3", "4":
		idx := int(msg.String()[0] - '1')
		m.dispatch(workflow.SwitchView{View: core.Views[idx]})
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.state.Trends)-1 {
			m.selected++
		}
	case "a":
		return m.startAnalysis()
	case "e":
		if t, ok := m.selectedTrend(); ok {
			m.dispatch(workflow.BeginEdit{ID: t.ID})
		}
	case "n":
		if m.dispatch(workflow.AddTrend{}) {
			m.selected = len(m.state.Trends) - 1
		}
	case "d":
		if t, ok := m.selectedTrend(); ok {
			m.dispatch(workflow.DeleteTrend{ID: t.ID})
		}
	case "A":
		if m.dispatch(workflow.Approve{}) {
			m.status = fmt.Sprintf("Report of %s approved", m.state.History[0].Date)
		}
	case "x":
		m.dispatch(workflow.DismissNotice{})
	case "p":
		return m, m.exportPDF()
	}
	return m, nil
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyEsc:
		m.dispatch(workflow.CancelEdit{})
	case tea.KeyEnter:
		t, err := m.form.trend()
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		if m.dispatch(workflow.UpdateEdit{Trend: t}) {
			m.dispatch(workflow.SaveEdit{})
		}
	case tea.KeyTab, tea.KeyDown:
		m.form.field = (m.form.field + 1) % fieldCount
	case tea.KeyShiftTab, tea.KeyUp:
		m.form.field = (m.form.field + fieldCount - 1) % fieldCount
	case tea.KeyBackspace:
		v := []rune(m.form.values[m.form.field])
		if len(v) > 0 {
			m.form.values[m.form.field] = string(v[:len(v)-1])
		}
	case tea.KeySpace:
		m.form.values[m.form.field] += " "
	case tea.KeyRunes:
		m.form.values[m.form.field] += string(msg.Runes)
	}
	return m, nil
}

func (m model) startAnalysis() (tea.Model, tea.Cmd) {
	if m.session.Busy() {
		m.status = workflow.ErrAnalysisInFlight.Error()
		return m, nil
	}
	if !m.state.CanAnalyze() {
		m.status = workflow.ErrNoFiles.Error()
		return m, nil
	}
	m.status = fmt.Sprintf("Analyzing %d document(s)...", len(m.state.Files))

	ctx, session := m.ctx, m.session
	return m, func() tea.Msg {
		return analysisDoneMsg{err: session.Analyze(ctx)}
	}
}

func (m model) exportPDF() tea.Cmd {
	data := render.ReportData{
		Report:      m.state.Report,
		Trends:      m.state.Trends,
		Previous:    m.state.ComparisonBase(),
		GeneratedAt: time.Now(),
		DateLayout:  m.session.Env().DateLayout,
	}
	dir, filename := m.opts.ExportDir, m.opts.ExportFilename
	return func() tea.Msg {
		path, err := render.SavePDF(data, dir, filename)
		return exportedMsg{path: path, err: err}
	}
}

// Styles
var (
	docStyle       = lipgloss.NewStyle().Margin(1, 2)
	titleStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39"))
	subtleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	activeTabStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("39"))
	tabStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	lockedTabStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	noticeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	risingStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	fallingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	cardStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	selectedStyle  = cardStyle.BorderForeground(lipgloss.Color("39"))
)

var tabNames = map[core.View]string{
	core.ViewUpload:     "Upload",
	core.ViewValidation: "Validation",
	core.ViewTrends:     "Trends",
	core.ViewReport:     "Report",
}

// View renders the TUI.
func (m model) View() string {
	if m.quitting {
		return "Quitting...\n"
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("FinanceWatch AI"))
	if n := len(m.state.History); n > 0 {
		b.WriteString(subtleStyle.Render(fmt.Sprintf("  %d approved report(s), latest %s", n, m.state.History[0].Date)))
	}
	b.WriteString("\n\n")

	tabs := make([]string, 0, len(core.Views))
	for i, v := range core.Views {
		label := fmt.Sprintf("[%d] %s", i+1, tabNames[v])
		switch {
		case v == m.state.View:
			tabs = append(tabs, activeTabStyle.Render(label))
		case v == core.ViewValidation && !m.state.ValidationMode:
			tabs = append(tabs, lockedTabStyle.Render(label))
		default:
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	b.WriteString(strings.Join(tabs, "   "))
	b.WriteString("\n\n")

	if m.state.Notice != "" {
		b.WriteString(noticeStyle.Render("! "+m.state.Notice) + subtleStyle.Render("  [x] dismiss"))
		b.WriteString("\n\n")
	}

	switch m.state.View {
	case core.ViewUpload:
		b.WriteString(m.viewUpload())
	case core.ViewValidation:
		b.WriteString(m.viewValidation())
	case core.ViewTrends:
		b.WriteString(m.viewTrends())
	case core.ViewReport:
		b.WriteString(m.viewReport())
	}

	if m.status != "" {
		b.WriteString("\n" + subtleStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + subtleStyle.Render(m.help()))

	return docStyle.Render(b.String())
}

func (m model) help() string {
	if m.form != nil {
		return "[tab] Next field | [enter] Save | [esc] Cancel"
	}
	return "[1-4] Views | [a] Analyze | [↑/↓] Select | [e] Edit | [n] Add | [d] Delete | [A] Approve | [p] Export PDF | [q] Quit"
}

func (m model) viewUpload() string {
	if len(m.state.Files) == 0 {
		return "No documents. Pass files to the review command to add them.\n"
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Documents (%d)\n", len(m.state.Files)))
	for _, f := range m.state.Files {
		b.WriteString(fmt.Sprintf("  %-40s %12s  %s\n", f.Name, f.SizeLabel, f.Status))
	}
	if m.session.Busy() || m.state.Analyzing {
		b.WriteString("\nAnalysis in progress...\n")
	}
	return b.String()
}

func (m model) viewValidation() string {
	var b strings.Builder
	b.WriteString("Review, edit or delete trends, then press [A] to approve.\n\n")

	for i, t := range m.state.Trends {
		style := cardStyle
		if i == m.selected {
			style = selectedStyle
		}

		var body string
		if m.form != nil && m.form.id == t.ID {
			body = m.viewForm()
		} else {
			body = m.trendSummary(t)
			if prev, ok := workflow.PreviousPeriod(m.state.History, t.Category); ok {
				body += "\n" + subtleStyle.Render(fmt.Sprintf("Previous week: %d%% sentiment", prev.Sentiment))
			}
		}
		b.WriteString(style.Render(body) + "\n")
	}

	if len(m.state.Trends) == 0 {
		b.WriteString("No trends. Press [n] to add one.\n")
	}
	return b.String()
}

func (m model) viewForm() string {
	var b strings.Builder
	for i, label := range fieldLabels {
		cursor := "  "
		if i == m.form.field {
			cursor = "> "
		}
		b.WriteString(fmt.Sprintf("%s%-12s %s\n", cursor, label+":", m.form.values[i]))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m model) trendSummary(t core.Trend) string {
	change := fallingStyle.Render(t.Change)
	if t.Rising() {
		change = risingStyle.Render(t.Change)
	}
	return fmt.Sprintf("%s  %s\n%s\nSentiment %d%%  Mentions %d",
		titleStyle.Render(t.Category), change, t.Description, t.Sentiment, t.Mentions)
}

func (m model) viewTrends() string {
	if len(m.state.Trends) == 0 {
		return "No analysis available. Analyze documents to see the trends.\n"
	}
	var b strings.Builder
	for _, t := range m.state.Trends {
		b.WriteString(cardStyle.Render(m.trendSummary(t)+"\n"+sentimentBar(t.Sentiment, 30)) + "\n")
	}
	return b.String()
}

func (m model) viewReport() string {
	r := m.state.Report
	if r == nil {
		return "No report available. Analyze documents to generate a report.\n"
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Executive Summary") + "\n" + r.ExecutiveSummary + "\n\n")
	b.WriteString(titleStyle.Render("Key Trends") + "\n")
	for i, kt := range r.KeyTrends {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, kt))
	}
	b.WriteString("\n" + titleStyle.Render("Recommendations") + "\n" + r.Recommendations + "\n")
	return b.String()
}

// sentimentBar draws a fixed-width bar, clamping out-of-range sentiments.
func sentimentBar(sentiment, width int) string {
	filled := sentiment * width / 100
	if filled < 0 {
		filled = 0
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Run starts the Bubble Tea application and blocks until it exits.
func Run(ctx context.Context, session *workflow.Session, opts Options) error {
	p := tea.NewProgram(newModel(ctx, session, opts), tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
