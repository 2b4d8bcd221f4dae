package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/artpar/apipost/internal/config"
	"github.com/artpar/apipost/internal/core"
	"github.com/artpar/apipost/internal/executor"
	"github.com/artpar/apipost/internal/history"
	"github.com/artpar/apipost/internal/importer"
	"github.com/artpar/apipost/internal/interpolate"
	httpclient "github.com/artpar/apipost/internal/protocol/http"
	"github.com/artpar/apipost/internal/telemetry"
)

const historyWriteTimeout = 5 * time.Second

// Composer is the editable request model shared by the terminal UI and the
// CLI. Presentation code reads and writes it only through accessors.
type Composer struct {
	mu         sync.Mutex
	method     string
	url        string
	headerText string
	body       *core.BodyEditor
	last       *core.Result

	settings     config.Settings
	executor     *executor.Executor
	history      history.Store
	instrumenter telemetry.Instrumenter
	jar          http.CookieJar
	vars         map[string]string
	resolver     *interpolate.Resolver
	logger       *slog.Logger
}

// Option is a function that configures the Composer.
type Option func(*Composer)

// WithSettings sets the defaults the composer starts from.
func WithSettings(s config.Settings) Option {
	return func(c *Composer) {
		c.settings = s
	}
}

// WithExecutor sets the executor used by Run and Send.
func WithExecutor(e *executor.Executor) Option {
	return func(c *Composer) {
		c.executor = e
	}
}

// WithHistory records every completed request in store.
func WithHistory(store history.Store) Option {
	return func(c *Composer) {
		c.history = store
	}
}

// WithInstrumenter traces requests sent by the default executor.
func WithInstrumenter(i telemetry.Instrumenter) Option {
	return func(c *Composer) {
		c.instrumenter = i
	}
}

// WithCookieJar replaces the in-memory jar used when cookies are enabled.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *Composer) {
		c.jar = jar
	}
}

// WithVariables adds placeholder values on top of those in settings.
func WithVariables(vars map[string]string) Option {
	return func(c *Composer) {
		if c.vars == nil {
			c.vars = make(map[string]string, len(vars))
		}
		for k, v := range vars {
			c.vars[k] = v
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Composer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Composer populated from its settings.
func New(opts ...Option) *Composer {
	c := &Composer{
		settings: config.Default(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.method = c.settings.DefaultMethod
	c.url = c.settings.DefaultURL
	c.body = core.NewBodyEditor(c.settings.DefaultBodyType)

	vars := make(map[string]string, len(c.settings.Variables)+len(c.vars))
	for k, v := range c.settings.Variables {
		vars[k] = v
	}
	for k, v := range c.vars {
		vars[k] = v
	}
	c.resolver = interpolate.New(vars)

	if c.executor == nil {
		c.executor = executor.New(
			executor.WithSender(NewClient(c.settings, c.jar)),
			executor.WithLogger(c.logger),
			executor.WithInstrumenter(c.instrumenter),
		)
	}
	return c
}

// NewClient builds the HTTP transport described by settings. jar is used
// when cookies are enabled; nil means a fresh in-memory jar.
func NewClient(s config.Settings, jar http.CookieJar) *httpclient.Client {
	var opts []httpclient.Option
	if d := s.TimeoutDuration(); d > 0 {
		opts = append(opts, httpclient.WithTimeout(d))
	}
	if !s.FollowRedirects {
		opts = append(opts, httpclient.WithNoRedirects())
	}
	switch {
	case s.Cookies && jar != nil:
		opts = append(opts, httpclient.WithJar(jar))
	case s.Cookies:
		opts = append(opts, httpclient.WithCookieJar())
	}
	return httpclient.NewClient(opts...)
}

func (c *Composer) Settings() config.Settings {
	return c.settings
}

func (c *Composer) Method() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.method
}

func (c *Composer) SetMethod(method string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.method = strings.ToUpper(strings.TrimSpace(method))
}

func (c *Composer) URL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url
}

func (c *Composer) SetURL(rawURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.url = strings.TrimSpace(rawURL)
}

// HeaderText is the header editor contents, one "Key: Value" per line.
func (c *Composer) HeaderText() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.headerText
}

func (c *Composer) SetHeaderText(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headerText = text
}

// Body returns the body editor. Callers must not edit it while a request
// is being snapshotted from another goroutine.
func (c *Composer) Body() *core.BodyEditor {
	return c.body
}

// Descriptor snapshots the current editor state.
func (c *Composer) Descriptor() *core.RequestDescriptor {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := core.NewRequestDescriptor(c.method, c.url)
	d.Headers = core.ParseHeaderText(c.headerText)
	d.BodyType = c.body.Type()
	d.Rows = c.body.Table().Snapshot()
	d.RawBody = c.body.Raw()
	return d
}

// ImportCurl replaces the editor state with a parsed curl command. On a
// parse error nothing changes.
func (c *Composer) ImportCurl(text string) error {
	imp, err := importer.Detect(text)
	if err != nil {
		c.logger.Debug("curl import failed", "error", err)
		return err
	}
	result, err := imp.Parse(text)
	if err != nil {
		c.logger.Debug("curl import failed", "error", err)
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.method = result.Method
	c.url = result.URL
	c.headerText = result.HeaderText()
	c.body.SetRaw(result.RawBody)
	c.replaceRows(result.Form)
	if len(result.Form) > 0 {
		c.body.Select(core.BodyFormData)
	} else {
		c.body.Select(core.BodyRaw)
	}
	c.body.ShowBody()

	c.logger.Debug("curl imported", "method", c.method, "url", c.url, "headers", result.Headers.Len())
	return nil
}

// Running reports whether a request is in flight.
func (c *Composer) Running() bool {
	return c.executor.State() == executor.Running
}

// LastResult returns the most recent result, if any.
func (c *Composer) LastResult() (core.Result, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return core.Result{}, false
	}
	return *c.last, true
}

// Resolved snapshots the editor state with every placeholder expanded.
func (c *Composer) Resolved() (*core.RequestDescriptor, error) {
	desc, err := c.resolver.Descriptor(c.Descriptor())
	if err != nil {
		return nil, fmt.Errorf("expand variables: %w", err)
	}
	return desc, nil
}

// Run sends the current request in the background and calls done with the
// result. Undefined variables, validation failures and executor.ErrBusy
// are returned directly.
func (c *Composer) Run(done func(core.Result)) error {
	desc, err := c.Resolved()
	if err != nil {
		return err
	}
	return c.executor.Execute(desc, func(result core.Result) {
		c.complete(desc, result)
		if done != nil {
			done(result)
		}
	})
}

// Send is the blocking form of Run.
func (c *Composer) Send(ctx context.Context) (core.Result, error) {
	desc, err := c.Resolved()
	if err != nil {
		return core.Result{}, err
	}
	result, err := c.executor.Run(ctx, desc)
	if err != nil {
		return result, err
	}
	c.complete(desc, result)
	return result, nil
}

func (c *Composer) complete(desc *core.RequestDescriptor, result core.Result) {
	c.mu.Lock()
	c.last = &result
	c.mu.Unlock()

	if c.history == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	if _, err := c.history.Add(ctx, history.NewEntry(desc, result)); err != nil {
		c.logger.Warn("record history failed", "error", err)
		return
	}
	if c.settings.HistoryLimit > 0 {
		if _, err := c.history.Prune(ctx, c.settings.HistoryLimit); err != nil {
			c.logger.Warn("prune history failed", "error", err)
		}
	}
}

// Load replaces the editor state with a stored history entry.
func (c *Composer) Load(entry history.Entry) {
	d := entry.Descriptor()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.method = d.Method
	c.url = d.URL
	c.headerText = d.Headers.Lines()
	c.body.Select(d.BodyType)
	c.body.SetRaw(d.RawBody)
	c.replaceRows(d.Rows)
	c.body.ShowBody()
}

// replaceRows swaps the table contents, keeping one empty row to type into.
// Callers hold c.mu.
func (c *Composer) replaceRows(rows []core.ParamRow) {
	table := c.body.Table()
	table.Replace(rows)
	if table.Len() == 0 {
		table.Add()
	}
}
