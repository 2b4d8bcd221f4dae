package tui

import (
	"fmt"
	"strings"

	"github.com/artpar/apipost/internal/core"
	"github.com/charmbracelet/lipgloss"
)

const (
	defaultWidth  = 100
	defaultHeight = 30
)

func (m *Model) View() string {
	width, height := m.width, m.height
	if width <= 0 {
		width = defaultWidth
	}
	if height <= 0 {
		height = defaultHeight
	}

	request := m.renderRequestLine(width)
	bodyTypes := m.renderBodyTypes(width)
	help := m.renderHelpBar(width)
	status := m.renderStatusBar(width)

	fixed := lipgloss.Height(request) + lipgloss.Height(bodyTypes) + lipgloss.Height(help) + lipgloss.Height(status)
	remaining := height - fixed
	if remaining < 6 {
		remaining = 6
	}
	editorHeight := remaining * 2 / 5
	responseHeight := remaining - editorHeight

	return lipgloss.JoinVertical(lipgloss.Left,
		request,
		bodyTypes,
		m.renderEditor(width, editorHeight),
		m.renderResponse(width, responseHeight),
		help,
		status,
	)
}

func (m *Model) renderRequestLine(width int) string {
	method := " " + m.composer.Method() + " "
	if m.focus == PaneMethod {
		method = m.styles.Selected.Render(method)
	} else {
		method = m.styles.Key.Render(method)
	}

	inner := width - lipgloss.Width(method) - 5
	var url string
	switch {
	case m.focus == PaneURL && m.mode == ModeInsert:
		m.input.Width = inner - 1
		url = m.input.View()
	case m.composer.URL() == "":
		url = m.styles.Muted.Render("Enter URL")
	default:
		url = Truncate(m.composer.URL(), inner)
	}

	line := method + " " + url
	return m.styles.RenderBorder(line, width, 3, m.focus == PaneMethod || m.focus == PaneURL)
}

func (m *Model) renderBodyTypes(width int) string {
	current := m.composer.Body().Type()
	labels := make([]string, 0, len(core.BodyTypes))
	for _, t := range core.BodyTypes {
		label := " " + t.String() + " "
		switch {
		case t == current && m.focus == PaneBodyType:
			label = m.styles.Selected.Render(label)
		case t == current:
			label = m.styles.Title.Render(label)
		default:
			label = m.styles.Muted.Render(label)
		}
		labels = append(labels, label)
	}
	return m.styles.RenderBorder(strings.Join(labels, m.styles.Sep.Render("│")), width, 3, m.focus == PaneBodyType)
}

func (m *Model) renderEditor(width, height int) string {
	body := m.composer.Body()
	inner := height - 3

	var title, content string
	switch body.Surface() {
	case core.SurfaceHeaders:
		title = "Headers"
		content = m.editorText(m.composer.HeaderText(), "Key: Value, one per line", width-4, inner)
	case core.SurfaceRaw:
		title = "Body (" + body.Type().String() + ")"
		content = m.editorText(body.Raw(), "Empty body", width-4, inner)
	case core.SurfaceTable:
		title = "Params (" + body.Type().String() + ")"
		content = m.renderTable(width - 4)
	}

	lines := clipLines(content, 0, inner)
	return m.styles.RenderBorder(m.styles.Title.Render(title)+"\n"+lines, width, height, m.focus == PaneEditor)
}

func (m *Model) editorText(text, placeholder string, width, height int) string {
	if m.focus == PaneEditor && m.mode == ModeInsert {
		m.area.SetWidth(width)
		m.area.SetHeight(height)
		return m.area.View()
	}
	if text == "" {
		return m.styles.Muted.Render(placeholder)
	}
	return text
}

func (m *Model) renderTable(width int) string {
	colWidth := width / len(tableColumns)
	if colWidth < 6 {
		colWidth = 6
	}

	var b strings.Builder
	for _, column := range tableColumns {
		b.WriteString(m.styles.Muted.Render(PadRight(column, colWidth)))
	}

	for i, row := range m.composer.Body().Table().Rows() {
		b.WriteString("\n")
		for j, column := range tableColumns {
			text, _ := core.Cell(*row, column)
			selected := m.focus == PaneEditor && i == m.tableRow && j == m.tableCol
			if selected && m.mode == ModeInsert {
				m.input.Width = colWidth - 2
				b.WriteString(padStyled(m.input.View(), colWidth))
				continue
			}
			cell := PadRight(text, colWidth-1) + " "
			if selected {
				cell = m.styles.Selected.Render(cell)
			}
			b.WriteString(cell)
		}
	}
	return b.String()
}

func (m *Model) renderResponse(width, height int) string {
	inner := height - 3
	result, ok := m.composer.LastResult()

	var header, content string
	switch {
	case m.composer.Running():
		header = m.styles.Warning.Render("Sending...")
	case !ok:
		header = m.styles.Muted.Render("No response yet")
	case result.Failed():
		header = m.styles.Failure.Render(Truncate(result.StatusInfo, width-4))
		content = result.Data
	default:
		header = fmt.Sprintf("%s  %s",
			m.styles.StatusStyle(result.StatusCode).Render(result.StatusInfo),
			m.styles.Muted.Render(fmt.Sprintf("%dms  %d bytes", result.Duration.Milliseconds(), len(result.Data))),
		)
		content = m.responseContent(result)
	}

	m.response.Width = width - 4
	m.response.Height = max(inner, 1)
	m.response.SetContent(content)
	return m.styles.RenderBorder(header+"\n"+m.response.View(), width, height, m.focus == PaneResponse)
}

func (m *Model) responseContent(result core.Result) string {
	if m.showResponseHeaders {
		return result.HeaderInfo
	}
	if !m.prettyResponse {
		return result.Data
	}
	switch format := DetectContentFormat(contentTypeOf(result.HeaderInfo), result.Data); format {
	case FormatJSON:
		return m.highlighter.Highlight(result.PrettyData())
	case FormatXML, FormatHTML:
		return HighlightMarkup(format, result.Data)
	}
	return result.Data
}

func (m *Model) renderHelpBar(width int) string {
	var items [][2]string
	if m.mode == ModeInsert {
		items = [][2]string{{"esc", "done"}, {"ctrl+u", "delete to start"}}
		if m.multiline() {
			items = append(items, [2]string{"enter", "newline"})
		} else {
			items = append(items, [2]string{"enter", "save"})
		}
	} else {
		items = [][2]string{{"tab", "focus"}, {"i", "edit"}, {"s", "send"}, {"t", "headers/body"}}
		switch m.focus {
		case PaneMethod, PaneBodyType:
			items = append(items, [2]string{"h/l", "cycle"})
		case PaneEditor:
			if m.tableVisible() {
				items = append(items, [2]string{"a", "add"}, [2]string{"d", "delete"})
			} else {
				items = append(items, [2]string{"p", "pretty"})
			}
		case PaneResponse:
			items = append(items, [2]string{"j/k", "scroll"}, [2]string{"r", "headers"}, [2]string{"p", "raw/pretty"}, [2]string{"y", "copy"})
		}
		items = append(items, [2]string{"c", "import curl"}, [2]string{"e", "copy curl"}, [2]string{"q", "quit"})
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, m.styles.Key.Render(item[0])+" "+m.styles.Desc.Render(item[1]))
	}
	return lipgloss.NewStyle().MaxWidth(width).Render(strings.Join(parts, m.styles.Sep.Render(" │ ")))
}

func (m *Model) renderStatusBar(width int) string {
	left := fmt.Sprintf(" %s │ %s", m.mode, m.focus)
	right := m.notification
	gap := width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	return m.styles.Bar.Render(left + strings.Repeat(" ", gap) + right)
}
