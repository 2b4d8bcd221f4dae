// Package harness provides end-to-end testing utilities for apipost.
package harness

import (
	"net/http"
	"testing"
	"time"

	"github.com/artpar/apipost/e2e/testserver"
	"github.com/artpar/apipost/internal/config"
)

// E2EHarness is the main test orchestrator.
type E2EHarness struct {
	t         *testing.T
	server    *testserver.Server
	configDir string
	timeout   time.Duration
}

// Config configures the harness.
type Config struct {
	ServerHandlers map[string]http.HandlerFunc
	Timeout        time.Duration // Default: 5 seconds
}

// New creates a harness with a private settings directory. Tests using it
// cannot run in parallel because the directory is set through the
// environment.
func New(t *testing.T, cfg Config) *E2EHarness {
	t.Helper()

	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	h := &E2EHarness{
		t:         t,
		configDir: t.TempDir(),
		timeout:   cfg.Timeout,
	}
	t.Setenv(config.EnvConfigDir, h.configDir)

	if len(cfg.ServerHandlers) > 0 {
		h.server = testserver.New(cfg.ServerHandlers)
		t.Cleanup(h.server.Close)
	}
	return h
}

// ServerURL returns the test server URL.
func (h *E2EHarness) ServerURL() string {
	if h.server == nil {
		return ""
	}
	return h.server.URL
}

// Server returns the recording test server, or nil.
func (h *E2EHarness) Server() *testserver.Server {
	return h.server
}

// ConfigDir returns the settings directory.
func (h *E2EHarness) ConfigDir() string {
	return h.configDir
}

// Timeout returns the configured timeout.
func (h *E2EHarness) Timeout() time.Duration {
	return h.timeout
}

// T returns the testing.T instance.
func (h *E2EHarness) T() *testing.T {
	return h.t
}

// CLI returns a CLI runner for this harness.
func (h *E2EHarness) CLI() *CLIRunner {
	return &CLIRunner{harness: h}
}

// TUI returns a TUI runner for this harness.
func (h *E2EHarness) TUI() *TUIRunner {
	return &TUIRunner{harness: h}
}
