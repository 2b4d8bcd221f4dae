package interpolate

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/artpar/apipost/internal/core"
	"github.com/google/uuid"
)

// ErrUndefined is returned when a placeholder names no variable or builtin.
var ErrUndefined = errors.New("undefined variable")

// placeholder matches {{name}} and {{ name }}; builtins start with $.
var placeholder = regexp.MustCompile(`\{\{\s*([a-zA-Z_$][a-zA-Z0-9_\-.$]*)\s*\}\}`)

// Resolver expands {{name}} placeholders from a fixed variable set.
type Resolver struct {
	vars     map[string]string
	builtins map[string]func() string
	now      func() time.Time
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithBuiltin adds or replaces a $-prefixed dynamic value.
func WithBuiltin(name string, fn func() string) Option {
	return func(r *Resolver) {
		if !strings.HasPrefix(name, "$") {
			name = "$" + name
		}
		r.builtins[name] = fn
	}
}

// WithClock replaces time.Now for the time builtins.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		r.now = now
	}
}

// New creates a resolver over a copy of vars.
func New(vars map[string]string, opts ...Option) *Resolver {
	r := &Resolver{
		vars:     make(map[string]string, len(vars)),
		builtins: make(map[string]func() string),
		now:      time.Now,
	}
	for k, v := range vars {
		r.vars[k] = v
	}
	r.builtins["$uuid"] = func() string { return uuid.NewString() }
	r.builtins["$timestamp"] = func() string { return strconv.FormatInt(r.now().Unix(), 10) }
	r.builtins["$isoTimestamp"] = func() string { return r.now().UTC().Format(time.RFC3339) }
	r.builtins["$date"] = func() string { return r.now().Format(time.DateOnly) }
	r.builtins["$randomInt"] = func() string { return strconv.Itoa(rand.Intn(1000)) }

	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Empty reports whether the resolver has no user variables.
func (r *Resolver) Empty() bool {
	return len(r.vars) == 0
}

// Expand replaces every placeholder in s. All undefined names are reported
// together and s is returned unchanged.
func (r *Resolver) Expand(s string) (string, error) {
	if !strings.Contains(s, "{{") {
		return s, nil
	}

	var missing []string
	out := placeholder.ReplaceAllStringFunc(s, func(match string) string {
		name := placeholder.FindStringSubmatch(match)[1]
		if fn, ok := r.builtins[name]; ok {
			return fn()
		}
		if v, ok := r.vars[name]; ok {
			return v
		}
		missing = append(missing, name)
		return match
	})
	if len(missing) > 0 {
		return s, fmt.Errorf("%w: %s", ErrUndefined, strings.Join(dedupe(missing), ", "))
	}
	return out, nil
}

// Names lists the distinct placeholder names in s in order of appearance.
func Names(s string) []string {
	var names []string
	for _, m := range placeholder.FindAllStringSubmatch(s, -1) {
		names = append(names, m[1])
	}
	return dedupe(names)
}

// Descriptor returns a copy of d with the URL, headers, raw body and table
// rows expanded. d is not modified.
func (r *Resolver) Descriptor(d *core.RequestDescriptor) (*core.RequestDescriptor, error) {
	out := d.Clone()

	var err error
	if out.URL, err = r.Expand(d.URL); err != nil {
		return nil, fmt.Errorf("url: %w", err)
	}
	if out.RawBody, err = r.Expand(d.RawBody); err != nil {
		return nil, fmt.Errorf("body: %w", err)
	}

	headers := core.NewHeaders()
	for _, f := range d.Headers.Clone().Fields() {
		key, err := r.Expand(f.Key)
		if err != nil {
			return nil, fmt.Errorf("header %q: %w", f.Key, err)
		}
		value, err := r.Expand(f.Value)
		if err != nil {
			return nil, fmt.Errorf("header %q: %w", f.Key, err)
		}
		headers.Add(key, value)
	}
	out.Headers = headers

	for i, row := range out.Rows {
		if !row.IsEnable {
			continue
		}
		if out.Rows[i].Key, err = r.Expand(row.Key); err != nil {
			return nil, fmt.Errorf("param %q: %w", row.Key, err)
		}
		if out.Rows[i].Value, err = r.Expand(row.Value); err != nil {
			return nil, fmt.Errorf("param %q: %w", row.Key, err)
		}
	}
	return out, nil
}

// Variables returns the user variable names, sorted.
func (r *Resolver) Variables() []string {
	names := make([]string, 0, len(r.vars))
	for k := range r.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
