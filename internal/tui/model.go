package tui

import (
	"errors"
	"fmt"
	"time"

	"github.com/artpar/apipost/internal/app"
	"github.com/artpar/apipost/internal/core"
	"github.com/artpar/apipost/internal/exporter"
	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Pane identifies the focused part of the screen.
type Pane int

const (
	PaneMethod Pane = iota
	PaneURL
	PaneBodyType
	PaneEditor
	PaneResponse
	paneCount
)

func (p Pane) String() string {
	switch p {
	case PaneMethod:
		return "Method"
	case PaneURL:
		return "URL"
	case PaneBodyType:
		return "Body type"
	case PaneEditor:
		return "Editor"
	case PaneResponse:
		return "Response"
	default:
		return "Unknown"
	}
}

// Mode is the editing mode.
type Mode int

const (
	ModeNormal Mode = iota
	ModeInsert
)

func (m Mode) String() string {
	if m == ModeInsert {
		return "INSERT"
	}
	return "NORMAL"
}

// Table columns in display order.
var tableColumns = []string{core.ColumnKey, core.ColumnValue, core.ColumnIsFile, core.ColumnIsEnable}

const notificationTTL = 2 * time.Second

// Clipboard reads and writes the system clipboard.
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

type systemClipboard struct{}

func (systemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (systemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// SystemClipboard is the clipboard of the host.
var SystemClipboard Clipboard = systemClipboard{}

// ResultMsg carries a finished request back into the update loop.
type ResultMsg struct {
	Result core.Result
}

type clearNotificationMsg struct{}

// Model is the bubbletea model of the composer screen.
type Model struct {
	composer    *app.Composer
	clipboard   Clipboard
	styles      Styles
	highlighter *JSONHighlighter

	width  int
	height int

	focus Pane
	mode  Mode

	// input edits the URL and table cells, area the raw body and headers.
	input    textinput.Model
	area     textarea.Model
	response viewport.Model

	tableRow int
	tableCol int

	showResponseHeaders bool
	prettyResponse      bool

	notification string
}

// Option configures the Model.
type Option func(*Model)

// WithClipboard replaces the system clipboard.
func WithClipboard(c Clipboard) Option {
	return func(m *Model) {
		m.clipboard = c
	}
}

// New creates the composer screen for c.
func New(c *app.Composer, opts ...Option) *Model {
	m := &Model{
		composer:       c,
		clipboard:      SystemClipboard,
		styles:         DefaultStyles(),
		highlighter:    NewJSONHighlighter(),
		focus:          PaneURL,
		input:          newInput(),
		area:           newArea(),
		response:       viewport.New(defaultWidth, defaultHeight),
		prettyResponse: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func newInput() textinput.Model {
	ti := textinput.New()
	ti.Prompt = ""
	return ti
}

func newArea() textarea.Model {
	ta := textarea.New()
	ta.Prompt = ""
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.MaxHeight = 0
	return ta
}

// Run starts the full-screen program.
func Run(c *app.Composer, opts ...Option) error {
	p := tea.NewProgram(New(c, opts...), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m *Model) Focus() Pane             { return m.focus }
func (m *Model) Mode() Mode              { return m.mode }
func (m *Model) Notification() string    { return m.notification }
func (m *Model) Composer() *app.Composer { return m.composer }

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ResultMsg:
		m.response.GotoTop()
		if msg.Result.Failed() {
			return m, m.notify("✗ " + msg.Result.StatusInfo)
		}
		return m, m.notify(fmt.Sprintf("✓ %d in %dms", msg.Result.StatusCode, msg.Result.Duration.Milliseconds()))

	case clearNotificationMsg:
		m.notification = ""
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.mode == ModeInsert {
			return m, m.handleInsertKey(msg)
		}
		return m, m.handleNormalKey(msg)
	}
	return m, nil
}

func (m *Model) handleNormalKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.Type {
	case tea.KeyTab:
		m.focus = (m.focus + 1) % paneCount
		return nil
	case tea.KeyShiftTab:
		m.focus = (m.focus + paneCount - 1) % paneCount
		return nil
	case tea.KeyCtrlS:
		return m.send()
	case tea.KeyEnter:
		return m.activate()
	case tea.KeyLeft:
		m.move(-1, 0)
		return nil
	case tea.KeyRight:
		m.move(1, 0)
		return nil
	case tea.KeyUp:
		m.move(0, -1)
		return nil
	case tea.KeyDown:
		m.move(0, 1)
		return nil
	case tea.KeySpace:
		return m.activate()
	case tea.KeyRunes:
	default:
		return nil
	}

	switch string(msg.Runes) {
	case "q":
		return tea.Quit
	case "s":
		return m.send()
	case "i":
		return m.activate()
	case "h":
		m.move(-1, 0)
	case "l":
		m.move(1, 0)
	case "k":
		m.move(0, -1)
	case "j":
		m.move(0, 1)
	case "a":
		if m.tableVisible() {
			m.composer.Body().Table().Add()
			m.tableRow = m.composer.Body().Table().Len() - 1
		}
	case "d":
		if m.tableVisible() {
			table := m.composer.Body().Table()
			table.Remove(table.Row(m.tableRow))
			m.clampTable()
		}
	case "t":
		if m.composer.Body().Surface() == core.SurfaceHeaders {
			m.composer.Body().ShowBody()
		} else {
			m.composer.Body().ShowHeaders()
		}
	case "p":
		if m.focus == PaneResponse {
			m.prettyResponse = !m.prettyResponse
		} else {
			m.composer.Body().PrettyRaw()
		}
	case "r":
		m.showResponseHeaders = !m.showResponseHeaders
		m.response.GotoTop()
	case "y":
		return m.copyResponse()
	case "e":
		return m.copyCurl()
	case "c":
		return m.importCurl()
	}
	return nil
}

func (m *Model) handleInsertKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyEsc || (msg.Type == tea.KeyEnter && !m.multiline()) {
		m.commit()
		return nil
	}

	var cmd tea.Cmd
	if m.multiline() {
		m.area, cmd = m.area.Update(msg)
	} else {
		m.input, cmd = m.input.Update(msg)
	}
	return cmd
}

// activate edits or toggles whatever has focus.
func (m *Model) activate() tea.Cmd {
	switch m.focus {
	case PaneMethod:
		m.cycleMethod(1)
	case PaneBodyType:
		m.cycleBodyType(1)
	case PaneURL:
		return m.beginEdit(m.composer.URL())
	case PaneEditor:
		switch m.composer.Body().Surface() {
		case core.SurfaceHeaders:
			return m.beginEdit(m.composer.HeaderText())
		case core.SurfaceRaw:
			return m.beginEdit(m.composer.Body().Raw())
		case core.SurfaceTable:
			row := m.composer.Body().Table().Row(m.tableRow)
			if row == nil {
				return nil
			}
			column := tableColumns[m.tableCol]
			text, _ := core.Cell(*row, column)
			if column == core.ColumnIsFile || column == core.ColumnIsEnable {
				_ = core.SetCell(row, column, core.FormatBool(!core.ParseBool(text)))
				return nil
			}
			return m.beginEdit(text)
		}
	case PaneResponse:
		m.showResponseHeaders = !m.showResponseHeaders
	}
	return nil
}

func (m *Model) beginEdit(text string) tea.Cmd {
	m.mode = ModeInsert
	if m.multiline() {
		m.area.SetValue(text)
		return m.area.Focus()
	}
	m.input.SetValue(text)
	m.input.CursorEnd()
	return m.input.Focus()
}

// commit writes the edited text back to the focused field.
func (m *Model) commit() {
	var text string
	if m.multiline() {
		text = m.area.Value()
		m.area.Blur()
	} else {
		text = m.input.Value()
		m.input.Blur()
	}
	m.mode = ModeNormal

	switch m.focus {
	case PaneURL:
		m.composer.SetURL(text)
	case PaneEditor:
		switch m.composer.Body().Surface() {
		case core.SurfaceHeaders:
			m.composer.SetHeaderText(text)
		case core.SurfaceRaw:
			m.composer.Body().SetRaw(text)
		case core.SurfaceTable:
			if row := m.composer.Body().Table().Row(m.tableRow); row != nil {
				_ = core.SetCell(row, tableColumns[m.tableCol], text)
			}
		}
	}
}

func (m *Model) multiline() bool {
	return m.focus == PaneEditor && m.composer.Body().Surface() != core.SurfaceTable
}

func (m *Model) tableVisible() bool {
	return m.focus == PaneEditor && m.composer.Body().Surface() == core.SurfaceTable
}

func (m *Model) move(dx, dy int) {
	switch m.focus {
	case PaneMethod:
		m.cycleMethod(dx + dy)
	case PaneBodyType:
		m.cycleBodyType(dx + dy)
	case PaneEditor:
		if m.tableVisible() {
			m.tableRow += dy
			m.tableCol += dx
			m.clampTable()
		}
	case PaneResponse:
		if dy > 0 {
			m.response.LineDown(dy)
		} else if dy < 0 {
			m.response.LineUp(-dy)
		}
	}
}

func (m *Model) clampTable() {
	rows := m.composer.Body().Table().Len()
	if m.tableRow >= rows {
		m.tableRow = rows - 1
	}
	if m.tableRow < 0 {
		m.tableRow = 0
	}
	m.tableCol = (m.tableCol + len(tableColumns)) % len(tableColumns)
}

func (m *Model) cycleMethod(step int) {
	if step == 0 {
		return
	}
	current := 0
	for i, method := range core.Methods {
		if method == m.composer.Method() {
			current = i
			break
		}
	}
	n := len(core.Methods)
	m.composer.SetMethod(core.Methods[((current+step)%n+n)%n])
}

func (m *Model) cycleBodyType(step int) {
	if step == 0 {
		return
	}
	current := 0
	for i, t := range core.BodyTypes {
		if t == m.composer.Body().Type() {
			current = i
			break
		}
	}
	n := len(core.BodyTypes)
	m.composer.Body().Select(core.BodyTypes[((current+step)%n+n)%n])
	m.clampTable()
}

// send starts the request and returns a command that waits for its result.
func (m *Model) send() tea.Cmd {
	results := make(chan core.Result, 1)
	err := m.composer.Run(func(r core.Result) {
		results <- r
	})
	if err != nil {
		return m.notify("✗ " + err.Error())
	}
	m.notification = "Sending..."
	return func() tea.Msg {
		return ResultMsg{Result: <-results}
	}
}

func (m *Model) copyResponse() tea.Cmd {
	result, ok := m.composer.LastResult()
	if !ok {
		return m.notify("✗ No response to copy")
	}
	return m.copy(result.Data)
}

func (m *Model) copyCurl() tea.Cmd {
	cmd, err := exporter.FormatCurl(m.composer.Descriptor())
	if err != nil {
		return m.notify("✗ " + err.Error())
	}
	return m.copy(cmd)
}

func (m *Model) copy(content string) tea.Cmd {
	if err := m.clipboard.WriteAll(content); err != nil {
		return m.notify("✗ Copy failed")
	}
	size := len(content)
	if size > 1024 {
		return m.notify(fmt.Sprintf("✓ Copied %.1fKB", float64(size)/1024))
	}
	return m.notify(fmt.Sprintf("✓ Copied %dB", size))
}

func (m *Model) importCurl() tea.Cmd {
	text, err := m.clipboard.ReadAll()
	if err != nil {
		return m.notify("✗ Clipboard unavailable")
	}
	if err := m.composer.ImportCurl(text); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			return m.notify("✗ " + verr.Reason)
		}
		return m.notify("✗ " + err.Error())
	}
	m.tableRow, m.tableCol = 0, 0
	return m.notify("✓ Imported curl command")
}

func (m *Model) notify(text string) tea.Cmd {
	m.notification = text
	return tea.Tick(notificationTTL, func(time.Time) tea.Msg {
		return clearNotificationMsg{}
	})
}
