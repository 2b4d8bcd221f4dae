package cookies

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Jar is an http.CookieJar that writes every cookie through to a Store.
type Jar struct {
	mu     sync.Mutex
	mem    *cookiejar.Jar
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

var _ http.CookieJar = (*Jar)(nil)

// JarOption configures a Jar.
type JarOption func(*Jar)

// WithLogger reports store failures that SetCookies cannot return.
func WithLogger(logger *slog.Logger) JarOption {
	return func(j *Jar) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) JarOption {
	return func(j *Jar) {
		j.now = now
	}
}

// NewJar creates a jar preloaded with the unexpired cookies in store.
func NewJar(ctx context.Context, store Store, opts ...JarOption) (*Jar, error) {
	j := &Jar{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(j)
	}
	if err := j.reload(ctx); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Jar) reload(ctx context.Context) error {
	mem, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return err
	}
	stored, err := j.store.List(ctx, "")
	if err != nil {
		return fmt.Errorf("load cookies: %w", err)
	}

	byDomain := make(map[string][]*http.Cookie)
	for _, c := range stored {
		byDomain[c.Domain] = append(byDomain[c.Domain], c.HTTP())
	}
	for domain, list := range byDomain {
		mem.SetCookies(&url.URL{Scheme: "https", Host: domain, Path: "/"}, list)
	}
	j.mem = mem
	return nil
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.mem.SetCookies(u, cookies)

	ctx := context.Background()
	now := j.now()
	for _, hc := range cookies {
		c := FromHTTP(u, hc, now)
		var err error
		if c.Expired(now) {
			err = j.store.Delete(ctx, c.Domain, c.Path, c.Name)
		} else {
			err = j.store.Save(ctx, c)
		}
		if err != nil {
			j.logger.Warn("cookie not persisted", "domain", c.Domain, "name", c.Name, "error", err)
		}
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.mem.Cookies(u)
}

// List returns the stored cookies, optionally for one domain.
func (j *Jar) List(ctx context.Context, domain string) ([]Cookie, error) {
	return j.store.List(ctx, domain)
}

// ClearDomain forgets every cookie set for domain.
func (j *Jar) ClearDomain(ctx context.Context, domain string) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	n, err := j.store.DeleteDomain(ctx, domain)
	if err != nil {
		return 0, err
	}
	return n, j.reload(ctx)
}

// Clear forgets every cookie.
func (j *Jar) Clear(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.store.Clear(ctx); err != nil {
		return err
	}
	return j.reload(ctx)
}

// Prune deletes expired cookies from the store.
func (j *Jar) Prune(ctx context.Context) (int64, error) {
	return j.store.DeleteExpired(ctx, j.now())
}
