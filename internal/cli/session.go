package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/artpar/apipost/internal/app"
	"github.com/artpar/apipost/internal/config"
	"github.com/artpar/apipost/internal/cookies"
	cookiesqlite "github.com/artpar/apipost/internal/cookies/sqlite"
	"github.com/artpar/apipost/internal/history/sqlite"
	"github.com/artpar/apipost/internal/telemetry"
	"github.com/artpar/apipost/internal/tui"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

// Clipboard used by the curl command and the TUI. Tests replace it.
var systemClipboard tui.Clipboard = tui.SystemClipboard

// runTUI opens the full-screen composer. Tests replace it.
var runTUI = func(c *app.Composer) error {
	return tui.Run(c, tui.WithClipboard(systemClipboard))
}

// globals are the persistent flags shared by every command.
type globals struct {
	configDir string
	verbose   bool
}

func globalsFrom(cmd *cobra.Command) globals {
	var g globals
	if f := cmd.Flag("config"); f != nil {
		g.configDir = f.Value.String()
	}
	if f := cmd.Flag("verbose"); f != nil {
		g.verbose = f.Value.String() == "true"
	}
	return g
}

// dir is the settings directory, from --config or the environment.
func (g globals) dir() string {
	if g.configDir != "" {
		return g.configDir
	}
	return config.Dir()
}

// session is the settings, stores and composer a command works with.
type session struct {
	dir      string
	settings config.Settings
	history  *sqlite.Store
	cookies  *cookiesqlite.Store
	jar      *cookies.Jar
	composer *app.Composer
	tracer   telemetry.Instrumenter
	logger   *slog.Logger
}

type sessionOptions struct {
	history bool
	// cookies opens the cookie store even when settings disable cookies.
	cookies bool
	adjust  func(*config.Settings)
}

func openSession(cmd *cobra.Command, g globals, opts sessionOptions) (*session, error) {
	logger := newLogger(cmd.ErrOrStderr(), g.verbose)

	dir := g.dir()
	settings, handle, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	logger.Debug("settings loaded", "path", handle.Path, "format", handle.Format)

	if opts.adjust != nil {
		opts.adjust(&settings)
		if err := settings.Validate(); err != nil {
			return nil, err
		}
	}

	tcfg := settings.Telemetry
	tcfg.Version = cmd.Root().Version
	tracer, err := telemetry.New(tcfg)
	if err != nil {
		return nil, err
	}
	if tcfg.Enabled() {
		logger.Debug("tracing enabled", "endpoint", tcfg.Endpoint)
	}

	s := &session{dir: dir, settings: settings, tracer: tracer, logger: logger}
	appOpts := []app.Option{
		app.WithSettings(settings),
		app.WithLogger(logger),
		app.WithInstrumenter(tracer),
	}

	if opts.history {
		store, err := openHistory(settings.HistoryFile(dir))
		if err != nil {
			s.Close()
			return nil, err
		}
		s.history = store
		appOpts = append(appOpts, app.WithHistory(store))
	}

	if settings.Cookies || opts.cookies {
		if err := s.openCookies(cmd.Context(), settings.CookieFile(dir)); err != nil {
			s.Close()
			return nil, err
		}
		appOpts = append(appOpts, app.WithCookieJar(s.jar))
	}

	s.composer = app.New(appOpts...)
	return s, nil
}

func openHistory(path string) (*sqlite.Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}
	store, err := sqlite.New(path)
	if err != nil {
		return nil, fmt.Errorf("open history %q: %w", path, err)
	}
	return store, nil
}

func (s *session) openCookies(ctx context.Context, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create cookie dir: %w", err)
	}
	store, err := cookiesqlite.New(path)
	if err != nil {
		return fmt.Errorf("open cookies %q: %w", path, err)
	}
	s.cookies = store

	jar, err := cookies.NewJar(ctx, store, cookies.WithLogger(s.logger))
	if err != nil {
		return err
	}
	s.jar = jar
	s.logger.Debug("cookie jar loaded", "path", path)
	return nil
}

// Close flushes pending spans and closes the stores.
func (s *session) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	errs := []error{s.tracer.Shutdown(ctx)}
	if s.history != nil {
		errs = append(errs, s.history.Close())
	}
	if s.cookies != nil {
		errs = append(errs, s.cookies.Close())
	}
	return errors.Join(errs...)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
