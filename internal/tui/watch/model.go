package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const pollInterval = 2 * time.Second

// Theme centralizes all styling for the watch TUI.
type Theme struct {
	StatusOK     lipgloss.Style
	StatusFailed lipgloss.Style
	Border       lipgloss.Style
	Title        lipgloss.Style
	Dim          lipgloss.Style
	EntryError   lipgloss.Style
	EntryClean   lipgloss.Style
	EntryWarn    lipgloss.Style
}

func NewDefaultTheme() Theme {
	purple := lipgloss.Color("#874BFD")

	return Theme{
		StatusOK:     lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		StatusFailed: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		Border: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(purple),
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Padding(0, 1),
		Dim:        lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")),
		EntryError: lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000")),
		EntryClean: lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00")),
		EntryWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#E5C07B")),
	}
}

// Model is the main BubbleTea model for the watch TUI.
type Model struct {
	apiURL string

	width  int
	height int

	health    healthMsg
	connected bool
	entries   []string
	lastPoll  time.Time
	lastError string

	viewport viewport.Model
	theme    Theme
}

// New creates a new watch TUI model pointed at the service base URL.
func New(apiURL string) *Model {
	return &Model{
		apiURL:   apiURL,
		viewport: viewport.New(80, 20),
		theme:    NewDefaultTheme(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		fetchHealth(m.apiURL),
		fetchEntries(m.apiURL),
		tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		tea.EnterAltScreen,
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width - 4
		m.viewport.Height = msg.Height - 6

	case tickMsg:
		return m, tea.Batch(
			fetchHealth(m.apiURL),
			fetchEntries(m.apiURL),
			tea.Tick(pollInterval, func(t time.Time) tea.Msg { return tickMsg(t) }),
		)

	case healthMsg:
		m.health = msg
		m.connected = true
		m.lastError = ""
		m.lastPoll = time.Now()

	case entriesMsg:
		atBottom := m.viewport.AtBottom()
		m.entries = msg
		m.viewport.SetContent(m.renderEntries())
		if atBottom {
			m.viewport.GotoBottom()
		}

	case errMsg:
		m.connected = false
		m.lastError = msg.Error()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.theme.Border.Render(m.viewport.View()))
	b.WriteString("\n")
	b.WriteString(m.theme.Dim.Render(" q: quit  ↑/↓: scroll"))

	return b.String()
}

func (m Model) renderHeader() string {
	status := m.theme.StatusOK.Render("CONNECTED")
	if !m.connected {
		status = m.theme.StatusFailed.Render("DISCONNECTED")
	}

	uptime := time.Duration(m.health.UptimeSeconds) * time.Second
	info := fmt.Sprintf("entries: %d  uptime: %s", m.health.Entries, uptime)
	if m.lastError != "" {
		info = m.theme.StatusFailed.Render(m.lastError)
	}

	title := m.theme.Title.Render("PYSENTRY WATCH")
	clock := m.theme.Dim.Render(time.Now().Format("15:04:05"))

	return fmt.Sprintf("%s %s  %s  %s", title, status, info, clock)
}

func (m Model) renderEntries() string {
	if len(m.entries) == 0 {
		return m.theme.Dim.Render("no results recorded yet")
	}

	var b strings.Builder
	for _, entry := range m.entries {
		b.WriteString(m.styleEntry(entry))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) styleEntry(entry string) string {
	switch {
	case strings.HasPrefix(entry, "❌") || strings.HasPrefix(entry, "⏱️"):
		return m.theme.EntryError.Render(entry)
	case strings.HasPrefix(entry, "⚠️"):
		return m.theme.EntryWarn.Render(entry)
	case strings.HasPrefix(entry, "✅"):
		return m.theme.EntryClean.Render(entry)
	default:
		return entry
	}
}

// Run starts the watch TUI and blocks until it exits.
func Run(apiURL string) error {
	p := tea.NewProgram(New(apiURL))
	_, err := p.Run()
	return err
}
