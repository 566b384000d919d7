package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/espkey/internal/devicelog"
)

// Refresher refetches a log on a schedule it controls.
type Refresher interface {
	// Poll fetches the whole log again.
	Poll(ctx context.Context) (devicelog.Log, error)
	// Next returns the delay before the following poll.
	Next() time.Duration
}

type tickMsg time.Time

type logMsg struct {
	entries devicelog.Log
	err     error
	at      time.Time
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func refreshCmd(ctx context.Context, r Refresher) tea.Cmd {
	if r == nil {
		return nil
	}
	return func() tea.Msg {
		entries, err := r.Poll(ctx)
		return logMsg{entries: entries, err: err, at: time.Now()}
	}
}

// handleLog swaps in a refetched log, keeping the view pinned to the bottom
// when it already was.
func (m Model) handleLog(msg logMsg) (tea.Model, tea.Cmd) {
	var next tea.Cmd
	if m.refresher != nil {
		next = tickCmd(m.refresher.Next())
	}
	if msg.err != nil {
		m.refreshErr = msg.err
		return m, next
	}
	m.refreshErr = nil
	m.refreshed = msg.at
	follow := m.ready && m.viewport.AtBottom()
	m.entries = msg.entries
	m.rebuildLines()
	m.findMatches()
	m.refreshViewport()
	if follow {
		m.viewport.GotoBottom()
	}
	return m, next
}
