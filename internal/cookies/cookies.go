package cookies

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrStoreClosed is returned by a Store after Close.
var ErrStoreClosed = errors.New("cookie store is closed")

// Cookie is a persisted cookie. Domain, Path and Name identify it.
type Cookie struct {
	Domain    string    `json:"domain"`
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Value     string    `json:"value"`
	Secure    bool      `json:"secure"`
	HTTPOnly  bool      `json:"http_only"`
	HostOnly  bool      `json:"host_only,omitempty"`
	SameSite  string    `json:"same_site,omitempty"`
	Expires   time.Time `json:"expires,omitzero"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Session reports whether the cookie lives only as long as the jar.
func (c Cookie) Session() bool {
	return c.Expires.IsZero()
}

// Expired reports whether the cookie is past its expiry at now.
func (c Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && !now.Before(c.Expires)
}

// HTTP converts the cookie for use with net/http.
func (c Cookie) HTTP() *http.Cookie {
	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		Expires:  c.Expires,
	}
	// An empty Domain keeps the cookie host-only in a cookiejar.
	if !c.HostOnly {
		hc.Domain = c.Domain
	}
	switch c.SameSite {
	case "lax":
		hc.SameSite = http.SameSiteLaxMode
	case "strict":
		hc.SameSite = http.SameSiteStrictMode
	case "none":
		hc.SameSite = http.SameSiteNoneMode
	}
	return hc
}

// FromHTTP converts a cookie received from u. A negative MaxAge yields a
// cookie that is already expired.
func FromHTTP(u *url.URL, hc *http.Cookie, now time.Time) Cookie {
	c := Cookie{
		Domain:    strings.TrimPrefix(hc.Domain, "."),
		Path:      hc.Path,
		Name:      hc.Name,
		Value:     hc.Value,
		Secure:    hc.Secure,
		HTTPOnly:  hc.HttpOnly,
		HostOnly:  hc.Domain == "",
		Expires:   hc.Expires,
		UpdatedAt: now,
	}
	if c.Domain == "" {
		c.Domain = u.Hostname()
	}
	if c.Path == "" {
		c.Path = "/"
	}

	switch hc.SameSite {
	case http.SameSiteLaxMode:
		c.SameSite = "lax"
	case http.SameSiteStrictMode:
		c.SameSite = "strict"
	case http.SameSiteNoneMode:
		c.SameSite = "none"
	}

	switch {
	case hc.MaxAge > 0:
		c.Expires = now.Add(time.Duration(hc.MaxAge) * time.Second)
	case hc.MaxAge < 0:
		c.Expires = time.Unix(0, 0)
	}
	return c
}

// Store persists cookies between runs.
type Store interface {
	// Save inserts or replaces the cookie with the same domain, path and name.
	Save(ctx context.Context, c Cookie) error
	Delete(ctx context.Context, domain, path, name string) error
	// List returns unexpired cookies, all of them when domain is empty.
	List(ctx context.Context, domain string) ([]Cookie, error)
	DeleteDomain(ctx context.Context, domain string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	Clear(ctx context.Context) error
	Close() error
}
