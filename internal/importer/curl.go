package importer

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/artpar/apipost/internal/core"
)

// ParseResult is the structured form of a curl command line.
type ParseResult struct {
	Method  string
	URL     string
	Headers *core.Headers
	RawBody string

	// Form holds -F fields in order. File fields carry the path.
	Form []core.ParamRow
}

// HeaderText renders the headers for the header editor, one per line.
func (p *ParseResult) HeaderText() string {
	return p.Headers.Lines()
}

// Descriptor converts the result into a request descriptor. Form fields
// select the form-data table; otherwise the body is raw.
func (p *ParseResult) Descriptor() *core.RequestDescriptor {
	d := core.NewRequestDescriptor(p.Method, p.URL)
	d.Headers = p.Headers.Clone()
	d.BodyType = core.BodyRaw
	d.RawBody = p.RawBody
	if len(p.Form) > 0 {
		d.BodyType = core.BodyFormData
		d.Rows = append([]core.ParamRow(nil), p.Form...)
	}
	return d
}

// CurlParser parses curl command lines.
type CurlParser struct{}

// NewCurlParser creates a new curl parser.
func NewCurlParser() *CurlParser {
	return &CurlParser{}
}

func (c *CurlParser) Name() string {
	return "curl command"
}

func (c *CurlParser) Format() Format {
	return FormatCurl
}

// DetectFormat reports whether text looks like a curl command.
func (c *CurlParser) DetectFormat(text string) bool {
	tokens := tokenize(stripPrompt(strings.TrimSpace(text)))
	return len(tokens) > 0 && isCurlWord(tokens[0])
}

// Parse is a convenience wrapper around CurlParser.Parse.
func Parse(text string) (*ParseResult, error) {
	return NewCurlParser().Parse(text)
}

// Parse decomposes a curl command into method, URL, headers and body.
//
// Only a missing URL is fatal. Malformed headers, dangling flags and
// options the parser does not know are skipped.
func (c *CurlParser) Parse(text string) (*ParseResult, error) {
	tokens := tokenize(stripPrompt(strings.TrimSpace(text)))
	if len(tokens) == 0 || !isCurlWord(tokens[0]) {
		return nil, fmt.Errorf("%w: %w", ErrParseError, ErrNotCurl)
	}

	state := &curlState{headers: core.NewHeaders()}
	for i := 1; i < len(tokens); i++ {
		token := tokens[i]

		if token == "--" {
			for _, rest := range tokens[i+1:] {
				state.addURL(rest)
			}
			break
		}
		if !strings.HasPrefix(token, "-") || token == "-" {
			state.addURL(token)
			continue
		}

		name, value, hasValue := splitFlag(token)
		flags := []shortFlag{{name: name, value: value, hasValue: hasValue}}
		if _, known := curlFlags[name]; !known {
			expanded, ok := expandCluster(token)
			if !ok {
				continue
			}
			flags = expanded
		}

		for _, f := range flags {
			def := curlFlags[f.name]
			if def.takesValue && !f.hasValue {
				if i+1 >= len(tokens) {
					continue
				}
				i++
				f.value = tokens[i]
			}
			def.apply(state, f.value)
		}
	}

	if state.url == "" {
		return nil, fmt.Errorf("%w: %w", ErrParseError, ErrMissingURL)
	}

	return state.result(), nil
}

type curlState struct {
	method       string
	methodForced bool
	url          string
	headers      *core.Headers
	body         string
	hasBody      bool
	form         []core.ParamRow
	getMode      bool
}

// addURL keeps the first bare argument, unless it has no scheme and a
// later argument does.
func (s *curlState) addURL(candidate string) {
	if candidate == "" {
		return
	}
	if s.url == "" || (!core.HasScheme(s.url) && core.HasScheme(candidate)) {
		s.url = candidate
	}
}

func (s *curlState) setBody(data string) {
	s.body = data
	s.hasBody = true
}

func (s *curlState) result() *ParseResult {
	method := s.method
	rawURL := s.url
	body := s.body

	switch {
	case s.getMode:
		if s.hasBody && body != "" {
			rawURL = core.AppendQuery(rawURL, body)
		}
		body = ""
		if !s.methodForced {
			method = "GET"
		}
	case method == "" && (s.hasBody || len(s.form) > 0):
		method = "POST"
	case method == "":
		method = "GET"
	}

	return &ParseResult{
		Method:  method,
		URL:     rawURL,
		Headers: s.headers,
		RawBody: body,
		Form:    s.form,
	}
}

type flagDef struct {
	takesValue bool
	apply      func(s *curlState, value string)
}

func valueFlag(fn func(s *curlState, value string)) flagDef {
	return flagDef{takesValue: true, apply: fn}
}

func boolFlag(fn func(s *curlState, value string)) flagDef {
	return flagDef{apply: fn}
}

func ignore(*curlState, string) {}

func setMethod(s *curlState, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	s.method = strings.ToUpper(value)
	s.methodForced = true
}

func addHeader(s *curlState, value string) {
	idx := strings.Index(value, ":")
	if idx <= 0 {
		return
	}
	key := strings.TrimSpace(value[:idx])
	if key == "" {
		return
	}
	s.headers.Add(key, strings.TrimLeft(value[idx+1:], " \t"))
}

func headerFlag(key string) func(*curlState, string) {
	return func(s *curlState, value string) {
		s.headers.Add(key, value)
	}
}

func setData(s *curlState, value string) {
	s.setBody(value)
}

func setURLEncoded(s *curlState, value string) {
	s.setBody(urlEncodeData(value))
}

func setJSON(s *curlState, value string) {
	s.setBody(value)
	if !s.headers.Has("Content-Type") {
		s.headers.Add("Content-Type", "application/json")
	}
	if !s.headers.Has("Accept") {
		s.headers.Add("Accept", "application/json")
	}
}

func formFlag(literal bool) func(*curlState, string) {
	return func(s *curlState, value string) {
		idx := strings.Index(value, "=")
		if idx <= 0 {
			return
		}
		row := core.ParamRow{Key: value[:idx], Value: value[idx+1:], IsEnable: true}
		if !literal && strings.HasPrefix(row.Value, "@") {
			row.IsFile = true
			row.Value = strings.TrimPrefix(row.Value, "@")
			if semi := strings.Index(row.Value, ";"); semi >= 0 {
				row.Value = row.Value[:semi]
			}
		}
		s.form = append(s.form, row)
	}
}

func setUser(s *curlState, value string) {
	if value == "" {
		return
	}
	s.headers.Add("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(value)))
}

// curlFlags maps canonical flag names to their handling. Short and long
// spellings share entries.
var curlFlags = map[string]flagDef{}

func init() {
	register := func(def flagDef, names ...string) {
		for _, n := range names {
			curlFlags[n] = def
		}
	}

	register(valueFlag(setMethod), "-X", "--request")
	register(valueFlag(addHeader), "-H", "--header")
	register(valueFlag(setData), "-d", "--data", "--data-raw", "--data-binary", "--data-ascii")
	register(valueFlag(setURLEncoded), "--data-urlencode")
	register(valueFlag(setJSON), "--json")
	register(valueFlag(formFlag(false)), "-F", "--form")
	register(valueFlag(formFlag(true)), "--form-string")
	register(valueFlag(setUser), "-u", "--user")
	register(valueFlag(headerFlag("User-Agent")), "-A", "--user-agent")
	register(valueFlag(headerFlag("Referer")), "-e", "--referer")
	register(valueFlag(headerFlag("Cookie")), "-b", "--cookie")
	register(valueFlag(func(s *curlState, v string) { s.addURL(v) }), "--url")
	register(boolFlag(func(s *curlState, _ string) {
		if !s.headers.Has("Accept-Encoding") {
			s.headers.Add("Accept-Encoding", "gzip, deflate, br")
		}
	}), "--compressed")
	register(boolFlag(func(s *curlState, _ string) {
		s.method = "HEAD"
		s.methodForced = true
	}), "-I", "--head")
	register(boolFlag(func(s *curlState, _ string) { s.getMode = true }), "-G", "--get")

	// Options that carry a value the request model has no place for.
	register(valueFlag(ignore),
		"-o", "--output", "-T", "--upload-file",
		"-x", "--proxy", "-U", "--proxy-user", "-m", "--max-time", "--connect-timeout",
		"--cacert", "--capath", "-E", "--cert", "--key", "--cert-type", "--key-type",
		"-w", "--write-out", "-c", "--cookie-jar", "-r", "--range", "--resolve",
		"--retry", "--retry-delay", "--retry-max-time", "--max-redirs", "-K", "--config",
		"--limit-rate", "--interface", "--unix-socket", "-y", "--speed-time",
		"-Y", "--speed-limit", "-D", "--dump-header", "--trace", "--trace-ascii",
		"--stderr", "--ciphers", "--tls-max", "--proxy-header", "--oauth2-bearer",
		"--aws-sigv4", "--request-target", "--local-port", "--dns-servers",
	)
	register(boolFlag(ignore),
		"-s", "--silent", "-S", "--show-error", "-v", "--verbose", "-i", "--include",
		"-L", "--location", "-k", "--insecure", "-O", "--remote-name", "-f", "--fail",
		"-N", "--no-buffer", "-g", "--globoff", "-#", "--progress-bar", "-0", "--http1.0",
		"--http1.1", "--http2", "--http2-prior-knowledge", "--http3", "-4", "--ipv4",
		"-6", "--ipv6", "-j", "--junk-session-cookies", "-n", "--netrc", "-q", "--disable",
		"--tlsv1.2", "--tlsv1.3", "--fail-with-body", "--path-as-is", "--raw",
		"--tcp-nodelay", "--no-keepalive", "--location-trusted", "--digest", "--ntlm",
		"--basic", "--anyauth", "--negotiate", "--no-progress-meter",
	)
}

// splitFlag separates attached values: "--request=PUT" and "-XPUT".
func splitFlag(token string) (name, value string, hasValue bool) {
	if strings.HasPrefix(token, "--") {
		if idx := strings.Index(token, "="); idx > 0 {
			name := token[:idx]
			if def, ok := curlFlags[name]; ok && def.takesValue {
				return name, token[idx+1:], true
			}
		}
		return token, "", false
	}
	if len(token) > 2 {
		short := token[:2]
		if def, ok := curlFlags[short]; ok && def.takesValue {
			return short, token[2:], true
		}
	}
	return token, "", false
}

type shortFlag struct {
	name     string
	value    string
	hasValue bool
}

// expandCluster splits short option clusters like "-sSL" and "-sXPOST".
// The first letter that takes a value consumes the rest of the token, or
// the next token when nothing is attached.
func expandCluster(token string) ([]shortFlag, bool) {
	if strings.HasPrefix(token, "--") || len(token) < 3 {
		return nil, false
	}
	letters := token[1:]
	var flags []shortFlag
	for i, r := range letters {
		name := "-" + string(r)
		def, ok := curlFlags[name]
		if !ok {
			return nil, false
		}
		if def.takesValue {
			rest := letters[i+len(string(r)):]
			return append(flags, shortFlag{name: name, value: rest, hasValue: rest != ""}), true
		}
		flags = append(flags, shortFlag{name: name})
	}
	return flags, true
}

func urlEncodeData(value string) string {
	if idx := strings.Index(value, "="); idx >= 0 {
		return value[:idx+1] + url.QueryEscape(value[idx+1:])
	}
	return url.QueryEscape(value)
}

func isCurlWord(token string) bool {
	return token == "curl" || strings.HasSuffix(token, "/curl") || token == "curl.exe"
}

// stripPrompt removes a leading shell prompt such as "$ ".
func stripPrompt(text string) string {
	for _, p := range []string{"$ ", "% ", "> "} {
		if strings.HasPrefix(text, p) {
			return strings.TrimSpace(text[len(p):])
		}
	}
	return text
}
