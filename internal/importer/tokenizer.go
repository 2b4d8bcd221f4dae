package importer

import (
	"strings"
)

// tokenize splits a shell command line into words.
//
// Single quotes are literal, double quotes honour backslash escapes for
// `"`, `\`, `$` and backquote, and $'...' decodes ANSI-C escapes. A
// backslash before a newline joins lines. An unterminated quote runs to
// the end of input instead of failing, since pasted text is often cut short.
func tokenize(cmd string) []string {
	var (
		tokens  []string
		current strings.Builder
		inWord  bool
	)
	rs := []rune(cmd)

	flush := func() {
		if inWord {
			tokens = append(tokens, current.String())
			current.Reset()
			inWord = false
		}
	}

	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case r == '\\':
			if i+1 >= len(rs) {
				continue
			}
			next := rs[i+1]
			i++
			if next == '\r' && i+1 < len(rs) && rs[i+1] == '\n' {
				i++
				continue
			}
			if next == '\n' {
				continue
			}
			current.WriteRune(next)
			inWord = true

		case r == '\'':
			inWord = true
			i = readSingle(rs, i+1, &current)

		case r == '"':
			inWord = true
			i = readDouble(rs, i+1, &current)

		case r == '$' && i+1 < len(rs) && rs[i+1] == '\'':
			inWord = true
			i = readANSI(rs, i+2, &current)

		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()

		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	flush()

	return tokens
}

// readSingle copies until the closing quote and returns its index.
func readSingle(rs []rune, i int, out *strings.Builder) int {
	for ; i < len(rs); i++ {
		if rs[i] == '\'' {
			return i
		}
		out.WriteRune(rs[i])
	}
	return i
}

func readDouble(rs []rune, i int, out *strings.Builder) int {
	for ; i < len(rs); i++ {
		r := rs[i]
		if r == '"' {
			return i
		}
		if r == '\\' && i+1 < len(rs) {
			switch next := rs[i+1]; next {
			case '"', '\\', '$', '`':
				out.WriteRune(next)
				i++
				continue
			case '\n':
				i++
				continue
			}
		}
		out.WriteRune(r)
	}
	return i
}

func readANSI(rs []rune, i int, out *strings.Builder) int {
	for ; i < len(rs); i++ {
		r := rs[i]
		if r == '\'' {
			return i
		}
		if r != '\\' || i+1 >= len(rs) {
			out.WriteRune(r)
			continue
		}
		i++
		switch esc := rs[i]; esc {
		case 'n':
			out.WriteRune('\n')
		case 'r':
			out.WriteRune('\r')
		case 't':
			out.WriteRune('\t')
		case 'x':
			if v, n, ok := readHex(rs[i+1:], 2); ok {
				out.WriteRune(v)
				i += n
			} else {
				out.WriteString(`\x`)
			}
		case 'u':
			if v, n, ok := readHex(rs[i+1:], 4); ok {
				out.WriteRune(v)
				i += n
			} else {
				out.WriteString(`\u`)
			}
		default:
			out.WriteRune(esc)
		}
	}
	return i
}

func readHex(rs []rune, n int) (rune, int, bool) {
	if len(rs) < n {
		return 0, 0, false
	}
	var v rune
	for _, r := range rs[:n] {
		switch {
		case r >= '0' && r <= '9':
			v = v*16 + (r - '0')
		case r >= 'a' && r <= 'f':
			v = v*16 + (r - 'a' + 10)
		case r >= 'A' && r <= 'F':
			v = v*16 + (r - 'A' + 10)
		default:
			return 0, 0, false
		}
	}
	return v, n, true
}
