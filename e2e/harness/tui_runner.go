package harness

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/artpar/apipost/internal/app"
	"github.com/artpar/apipost/internal/history"
	"github.com/artpar/apipost/internal/history/sqlite"
	"github.com/artpar/apipost/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
)

// TUIRunner drives the composer model directly, without a terminal.
type TUIRunner struct {
	harness *E2EHarness
}

// TUISession is one model under test.
type TUISession struct {
	runner       *TUIRunner
	model        *tui.Model
	t            *testing.T
	pending      tea.Cmd
	historyStore history.Store
}

// Start starts a session with a 120x40 terminal and an in-memory history.
func (r *TUIRunner) Start(t *testing.T, opts ...tui.Option) *TUISession {
	return r.StartWithSize(t, 120, 40, opts...)
}

// StartWithSize starts a session with custom dimensions.
func (r *TUIRunner) StartWithSize(t *testing.T, width, height int, opts ...tui.Option) *TUISession {
	t.Helper()

	store, err := sqlite.NewInMemory()
	if err != nil {
		t.Fatalf("failed to create in-memory history store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	model := tui.New(app.New(app.WithHistory(store)), opts...)
	model.Update(tea.WindowSizeMsg{Width: width, Height: height})

	return &TUISession{
		runner:       r,
		model:        model,
		t:            t,
		historyStore: store,
	}
}

// SendKey feeds one key press. The command it returns is kept for Await.
func (s *TUISession) SendKey(key string) *TUISession {
	_, cmd := s.model.Update(parseKeyMsg(key))
	s.pending = cmd
	return s
}

// SendKeys sends multiple key presses.
func (s *TUISession) SendKeys(keys ...string) *TUISession {
	for _, key := range keys {
		s.SendKey(key)
	}
	return s
}

// Type sends a sequence of rune keys.
func (s *TUISession) Type(text string) *TUISession {
	for _, r := range text {
		s.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return s
}

// Await runs the last pending command and feeds its message back to the
// model. It fails the test if the command does not finish in time.
func (s *TUISession) Await() *TUISession {
	s.t.Helper()
	cmd := s.pending
	s.pending = nil
	if cmd == nil {
		return s
	}

	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	select {
	case msg := <-done:
		if msg != nil {
			_, s.pending = s.model.Update(msg)
		}
	case <-time.After(s.runner.harness.timeout):
		s.t.Fatalf("command did not finish within %s", s.runner.harness.timeout)
	}
	return s
}

// Output returns the rendered screen.
func (s *TUISession) Output() string {
	return s.model.View()
}

// Model returns the underlying model for direct assertions.
func (s *TUISession) Model() *tui.Model {
	return s.model
}

// Composer returns the request being edited.
func (s *TUISession) Composer() *app.Composer {
	return s.model.Composer()
}

// Focus moves focus to pane with tab presses.
func (s *TUISession) Focus(pane tui.Pane) *TUISession {
	for i := 0; i < 8 && s.model.Focus() != pane; i++ {
		s.SendKey("tab")
	}
	if s.model.Focus() != pane {
		s.t.Fatalf("could not focus %s", pane)
	}
	return s
}

// HistoryEntries returns history entries from the store.
func (s *TUISession) HistoryEntries() []history.Entry {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	entries, _ := s.historyStore.List(ctx, history.QueryOptions{Limit: 100})
	return entries
}

// HasHistoryWithURL checks if a history entry with the given URL exists.
func (s *TUISession) HasHistoryWithURL(url string) bool {
	for _, entry := range s.HistoryEntries() {
		if strings.Contains(entry.RequestURL, url) {
			return true
		}
	}
	return false
}

func parseKeyMsg(key string) tea.KeyMsg {
	switch strings.ToLower(key) {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc", "escape":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "ctrl+u":
		return tea.KeyMsg{Type: tea.KeyCtrlU}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}
