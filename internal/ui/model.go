package ui

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/espkey/internal/devicelog"
	"github.com/five82/espkey/internal/prefs"
)

// kindFilter selects which entry kinds are listed.
type kindFilter int

const (
	filterAll kindFilter = iota
	filterData
	filterAux
	filterText
)

var filterNames = []string{"all", "data", "aux", "text"}

func (f kindFilter) String() string { return filterNames[f] }

func (f kindFilter) next() kindFilter { return (f + 1) % kindFilter(len(filterNames)) }

func (f kindFilter) allows(k devicelog.Kind) bool {
	return f == filterAll || filterNames[f] == string(k)
}

func parseFilter(name string) kindFilter {
	for i, n := range filterNames {
		if n == name {
			return kindFilter(i)
		}
	}
	return filterAll
}

// Options configures the viewer.
type Options struct {
	Context context.Context
	Entries devicelog.Log
	// Source labels the header, e.g. a device name or file path.
	Source    string
	ThemeName string
	Filter    string
	PrefsPath string
	// Refresher, when set, refetches the log while the viewer is open.
	Refresher Refresher
}

// Model is the Bubble Tea model of the log viewer.
type Model struct {
	keys      keyMap
	theme     Theme
	prefsPath string
	source    string

	entries devicelog.Log
	filter  kindFilter
	lines   []string // formatted entries passing the filter
	kinds   []devicelog.Kind

	viewport viewport.Model
	width    int
	height   int
	ready    bool
	showHelp bool

	searching   bool
	searchInput textinput.Model
	searchRegex *regexp.Regexp
	matches     []int
	matchIdx    int

	ctx        context.Context
	refresher  Refresher
	refreshErr error
	refreshed  time.Time
}

// New creates the viewer model.
func New(opts Options) Model {
	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	ti := textinput.New()
	ti.Placeholder = "Search entries..."
	ti.CharLimit = 100

	m := Model{
		keys:        DefaultKeyMap(),
		theme:       GetTheme(opts.ThemeName),
		prefsPath:   prefsPath,
		source:      opts.Source,
		entries:     opts.Entries,
		filter:      parseFilter(opts.Filter),
		searchInput: ti,
		ctx:         opts.Context,
		refresher:   opts.Refresher,
	}
	if m.ctx == nil {
		m.ctx = context.Background()
	}
	m.rebuildLines()
	return m
}

// Run shows the viewer until the user quits or ctx is cancelled.
func Run(opts Options) error {
	progOpts := []tea.ProgramOption{tea.WithAltScreen()}
	if opts.Context != nil {
		progOpts = append(progOpts, tea.WithContext(opts.Context))
	}
	_, err := tea.NewProgram(New(opts), progOpts...).Run()
	if err != nil && opts.Context != nil && opts.Context.Err() != nil {
		return nil
	}
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	if m.refresher == nil {
		return nil
	}
	return tickCmd(m.refresher.Next())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		height := max(msg.Height-2, 1)
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.ready = true
		m.refreshViewport()
	case tickMsg:
		return m, refreshCmd(m.ctx, m.refresher)
	case logMsg:
		return m.handleLog(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	if m.showHelp {
		return m.renderHelp()
	}
	return m.renderHeader() + "\n" + m.viewport.View() + "\n" + m.renderFooter()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}
	if m.searching {
		return m.handleSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
	case key.Matches(msg, m.keys.CycleTheme):
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.savePrefs()
		m.refreshViewport()
	case key.Matches(msg, m.keys.CycleFilter):
		m.filter = m.filter.next()
		m.rebuildLines()
		m.findMatches()
		m.savePrefs()
		m.refreshViewport()
	case key.Matches(msg, m.keys.Search):
		m.searching = true
		m.searchInput.SetValue("")
		return m, m.searchInput.Focus()
	case key.Matches(msg, m.keys.NextMatch):
		m.stepMatch(1)
	case key.Matches(msg, m.keys.PrevMatch):
		m.stepMatch(-1)
	case key.Matches(msg, m.keys.Escape):
		m.clearSearch()
		m.refreshViewport()
	case key.Matches(msg, m.keys.Top):
		m.viewport.GotoTop()
	case key.Matches(msg, m.keys.Bottom):
		m.viewport.GotoBottom()
	case key.Matches(msg, m.keys.Down):
		m.viewport.ScrollDown(1)
	case key.Matches(msg, m.keys.Up):
		m.viewport.ScrollUp(1)
	case key.Matches(msg, m.keys.HalfPageDown):
		m.viewport.HalfPageDown()
	case key.Matches(msg, m.keys.HalfPageUp):
		m.viewport.HalfPageUp()
	case key.Matches(msg, m.keys.PageDown):
		m.viewport.PageDown()
	case key.Matches(msg, m.keys.PageUp):
		m.viewport.PageUp()
	}
	return m, nil
}

func (m Model) handleSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		query := m.searchInput.Value()
		if query == "" {
			m.searching = false
			m.searchInput.Blur()
			return m, nil
		}
		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			// stay in search mode until the pattern compiles
			return m, nil
		}
		m.searchRegex = re
		m.searching = false
		m.searchInput.Blur()
		m.findMatches()
		m.scrollToMatch()
		m.refreshViewport()
		return m, nil
	case key.Matches(msg, m.keys.Escape):
		m.searching = false
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		return m, nil
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

func (m *Model) rebuildLines() {
	visible := make(devicelog.Log, 0, len(m.entries))
	for _, e := range m.entries {
		if m.filter.allows(e.Kind()) {
			visible = append(visible, e)
		}
	}
	m.lines = formatEntries(visible)
	m.kinds = make([]devicelog.Kind, len(visible))
	for i, e := range visible {
		m.kinds[i] = e.Kind()
	}
}

func (m *Model) findMatches() {
	m.matches = nil
	m.matchIdx = 0
	if m.searchRegex == nil {
		return
	}
	for i, line := range m.lines {
		if m.searchRegex.MatchString(line) {
			m.matches = append(m.matches, i)
		}
	}
}

func (m *Model) stepMatch(delta int) {
	if len(m.matches) == 0 {
		return
	}
	m.matchIdx = (m.matchIdx + delta + len(m.matches)) % len(m.matches)
	m.scrollToMatch()
	m.refreshViewport()
}

func (m *Model) scrollToMatch() {
	if len(m.matches) == 0 || !m.ready {
		return
	}
	target := m.matches[m.matchIdx]
	m.viewport.SetYOffset(max(target-m.viewport.Height/2, 0))
}

func (m *Model) clearSearch() {
	m.searchRegex = nil
	m.matches = nil
	m.matchIdx = 0
}

func (m *Model) savePrefs() {
	_ = prefs.Save(m.prefsPath, prefs.Prefs{Theme: m.theme.Name, Filter: m.filter.String()})
}

func (m *Model) refreshViewport() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderContent())
}

func (m Model) renderContent() string {
	if len(m.lines) == 0 {
		return m.theme.Styles().MutedText.Render("No entries.")
	}
	styles := m.theme.Styles()
	current := -1
	if len(m.matches) > 0 {
		current = m.matches[m.matchIdx]
	}
	var b strings.Builder
	for i, line := range m.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch {
		case i == current:
			b.WriteString(styles.Selected.Render(line))
		case m.searchRegex != nil && m.searchRegex.MatchString(line):
			b.WriteString(styles.WarningText.Render(line))
		default:
			b.WriteString(styles.KindStyle(m.kinds[i]).Render(line))
		}
	}
	return b.String()
}

func (m Model) renderHeader() string {
	styles := m.theme.Styles()
	title := "ESPKey log"
	if m.source != "" {
		title += " · " + m.source
	}
	info := fmt.Sprintf("%d/%d entries · filter %s · %s", len(m.lines), len(m.entries), m.filter, m.theme.Name)
	switch {
	case m.refreshErr != nil:
		info += " · " + styles.DangerText.Render("refresh failed")
	case !m.refreshed.IsZero():
		info += " · updated " + m.refreshed.Local().Format("15:04:05")
	}
	return styles.Header.Width(m.width).Render(styles.AccentText.Render(title) + "  " + info)
}

func (m Model) renderFooter() string {
	styles := m.theme.Styles()
	if m.searching {
		return styles.Footer.Width(m.width).Render("/" + m.searchInput.View())
	}
	var parts []string
	if m.refreshErr != nil {
		parts = append(parts, styles.DangerText.Render(m.refreshErr.Error()))
	}
	if m.searchRegex != nil {
		if len(m.matches) == 0 {
			parts = append(parts, "no matches")
		} else {
			parts = append(parts, fmt.Sprintf("match %d/%d", m.matchIdx+1, len(m.matches)))
		}
	}
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return styles.Footer.Width(m.width).Render(strings.Join(parts, " · "))
}

func (m Model) renderHelp() string {
	styles := m.theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")
	for _, column := range m.keys.FullHelp() {
		for _, binding := range column {
			h := binding.Help()
			b.WriteString(styles.AccentText.Render(fmt.Sprintf("%-10s", h.Key)))
			b.WriteString(" ")
			b.WriteString(styles.Text.Render(h.Desc))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}
	b.WriteString(styles.MutedText.Render("Press any key to close"))
	return b.String()
}
