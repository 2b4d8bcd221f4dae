package harness

import (
	"fmt"
	"strings"
	"testing"
)

// Assertions provides output assertions shared by the suites.
type Assertions struct {
	t *testing.T
}

// NewAssertions creates an assertions helper.
func NewAssertions(t *testing.T) *Assertions {
	return &Assertions{t: t}
}

// OutputContains asserts the output contains all given strings.
func (a *Assertions) OutputContains(output string, expected ...string) {
	a.t.Helper()
	for _, exp := range expected {
		if !strings.Contains(output, exp) {
			a.t.Errorf("expected output to contain %q, got:\n%s", exp, truncate(output, 500))
		}
	}
}

// OutputNotContains asserts the output does not contain any of the given strings.
func (a *Assertions) OutputNotContains(output string, unexpected ...string) {
	a.t.Helper()
	for _, unexp := range unexpected {
		if strings.Contains(output, unexp) {
			a.t.Errorf("expected output NOT to contain %q, got:\n%s", unexp, truncate(output, 500))
		}
	}
}

// StatusLine asserts the output starts with an HTTP status line for code.
func (a *Assertions) StatusLine(output string, code int) {
	a.t.Helper()
	first, _, _ := strings.Cut(output, "\n")
	if !strings.HasPrefix(first, "HTTP/") || !strings.Contains(first, fmt.Sprintf(" %d ", code)) {
		a.t.Errorf("expected status %d on the first line, got:\n%s", code, truncate(output, 500))
	}
}

// Failure asserts the output is a failed execution with a cause trace.
func (a *Assertions) Failure(output string) {
	a.t.Helper()
	if !strings.Contains(output, "caused by:") {
		a.t.Errorf("expected a failure trace in output:\n%s", truncate(output, 500))
	}
}

// PaneVisible asserts a pane label is visible in the output.
func (a *Assertions) PaneVisible(output string, paneName string) {
	a.t.Helper()
	if !strings.Contains(output, paneName) {
		a.t.Errorf("expected pane %q to be visible in output:\n%s", paneName, truncate(output, 500))
	}
}

// NoError asserts the output doesn't contain error indicators.
func (a *Assertions) NoError(output string) {
	a.t.Helper()
	errorIndicators := []string{"Error:", "error:", "panic:", "caused by:"}
	for _, ind := range errorIndicators {
		if strings.Contains(output, ind) {
			a.t.Errorf("unexpected error in output: found %q in:\n%s", ind, truncate(output, 500))
			return
		}
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "... (truncated)"
}
