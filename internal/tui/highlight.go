package tui

import (
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
	"github.com/artpar/apipost/internal/core"
	"github.com/charmbracelet/lipgloss"
)

const (
	markupStyle     = "monokai"
	markupFormatter = "terminal256"
)

// ContentFormat is the detected format of a response body.
type ContentFormat string

const (
	FormatJSON ContentFormat = "json"
	FormatXML  ContentFormat = "xml"
	FormatHTML ContentFormat = "html"
	FormatText ContentFormat = "text"
)

// DetectContentFormat checks the Content-Type first, then the body itself.
func DetectContentFormat(contentType, body string) ContentFormat {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return FormatJSON
	case strings.Contains(ct, "html"):
		return FormatHTML
	case strings.Contains(ct, "xml"):
		return FormatXML
	}

	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return FormatText
	}
	switch trimmed[0] {
	case '{', '[':
		return FormatJSON
	case '<':
		lower := strings.ToLower(trimmed)
		if strings.HasPrefix(lower, "<!doctype html") || strings.HasPrefix(lower, "<html") {
			return FormatHTML
		}
		return FormatXML
	}
	return FormatText
}

// contentTypeOf finds the Content-Type line in rendered header text.
func contentTypeOf(headerInfo string) string {
	return core.ParseHeaderText(headerInfo).Get("Content-Type")
}

// HighlightMarkup colours XML and HTML with chroma. Text that cannot be
// tokenised is returned unchanged.
func HighlightMarkup(format ContentFormat, text string) string {
	lexer := lexers.Get(string(format))
	if lexer == nil {
		lexer = lexers.Analyse(text)
	}
	if lexer == nil {
		return text
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(markupStyle)
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get(markupFormatter)

	iterator, err := lexer.Tokenise(nil, text)
	if err != nil {
		return text
	}
	var b strings.Builder
	if err := formatter.Format(&b, style, iterator); err != nil {
		return text
	}
	return b.String()
}

// JSONHighlighter colours JSON tokens line by line.
type JSONHighlighter struct {
	keyStyle     lipgloss.Style
	stringStyle  lipgloss.Style
	numberStyle  lipgloss.Style
	literalStyle lipgloss.Style
	bracketStyle lipgloss.Style
}

// NewJSONHighlighter creates a new JSON highlighter with default styles.
func NewJSONHighlighter() *JSONHighlighter {
	return &JSONHighlighter{
		keyStyle:     lipgloss.NewStyle().Foreground(lipgloss.Color("141")),
		stringStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		numberStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		literalStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		bracketStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
	}
}

// Highlight applies syntax highlighting to JSON text.
func (h *JSONHighlighter) Highlight(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = h.highlightLine(line)
	}
	return strings.Join(lines, "\n")
}

func (h *JSONHighlighter) highlightLine(line string) string {
	trimmed := strings.TrimLeft(line, " \t")
	if trimmed == "" {
		return line
	}

	var out strings.Builder
	out.WriteString(line[:len(line)-len(trimmed)])

	chars := []rune(trimmed)
	for i := 0; i < len(chars); {
		ch := chars[i]
		switch {
		case ch == '"':
			str, end := scanString(chars, i)
			if isKey(chars, end) {
				out.WriteString(h.keyStyle.Render(str))
			} else {
				out.WriteString(h.stringStyle.Render(str))
			}
			i = end
		case ch == '{' || ch == '}' || ch == '[' || ch == ']':
			out.WriteString(h.bracketStyle.Render(string(ch)))
			i++
		case ch == '-' || (ch >= '0' && ch <= '9'):
			num := scanWhile(chars, i, isNumberRune)
			out.WriteString(h.numberStyle.Render(num))
			i += len([]rune(num))
		case ch == 't' || ch == 'f' || ch == 'n':
			word := scanWhile(chars, i, isLetter)
			if word == "true" || word == "false" || word == "null" {
				out.WriteString(h.literalStyle.Render(word))
				i += len(word)
			} else {
				out.WriteRune(ch)
				i++
			}
		default:
			out.WriteRune(ch)
			i++
		}
	}
	return out.String()
}

func scanString(chars []rune, start int) (string, int) {
	i := start + 1
	for i < len(chars) {
		if chars[i] == '\\' {
			i += 2
			continue
		}
		if chars[i] == '"' {
			i++
			break
		}
		i++
	}
	if i > len(chars) {
		i = len(chars)
	}
	return string(chars[start:i]), i
}

func isKey(chars []rune, end int) bool {
	for j := end; j < len(chars); j++ {
		switch chars[j] {
		case ' ', '\t':
			continue
		case ':':
			return true
		default:
			return false
		}
	}
	return false
}

func scanWhile(chars []rune, start int, ok func(rune) bool) string {
	i := start
	for i < len(chars) && ok(chars[i]) {
		i++
	}
	return string(chars[start:i])
}

func isNumberRune(r rune) bool {
	return (r >= '0' && r <= '9') || r == '-' || r == '+' || r == '.' || r == 'e' || r == 'E'
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
