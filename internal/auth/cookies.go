// Package auth loads browser session cookies. Cookies are opaque values
// captured elsewhere; nothing here performs a login.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
)

// CookieStore reads cookies from a JSON file
type CookieStore struct {
	path string
}

// StoredCookies represents the persisted cookie data
type StoredCookies struct {
	Cookies    []*network.Cookie `json:"cookies"`
	CapturedAt time.Time         `json:"captured_at"`
}

// NewCookieStore creates a cookie store at the given path
func NewCookieStore(path string) *CookieStore {
	return &CookieStore{path: path}
}

// Path returns the cookie file location
func (cs *CookieStore) Path() string {
	return cs.path
}

// Load reads the cookie file. It accepts either a StoredCookies object or a
// bare array of cookies as exported by browser extensions. A missing file
// yields no cookies and no error.
func (cs *CookieStore) Load() ([]*network.Cookie, error) {
	if cs == nil || cs.path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(cs.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var cookies []*network.Cookie
		if err := json.Unmarshal(data, &cookies); err != nil {
			return nil, fmt.Errorf("parse cookies %s: %w", cs.path, err)
		}
		return cookies, nil
	}

	var stored StoredCookies
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("parse cookies %s: %w", cs.path, err)
	}
	return stored.Cookies, nil
}

// ForHost returns the unexpired cookies that apply to host. Cookies without a
// domain are bound to host.
func ForHost(cookies []*network.Cookie, host string, now time.Time) []*network.Cookie {
	var out []*network.Cookie
	for _, c := range cookies {
		if c == nil || c.Name == "" {
			continue
		}
		// Session cookies carry no expiry
		if c.Expires > 0 && time.Unix(int64(c.Expires), 0).Before(now) {
			continue
		}

		domain := strings.TrimPrefix(c.Domain, ".")
		switch {
		case domain == "":
			cp := *c
			cp.Domain = host
			out = append(out, &cp)
		case host == domain || strings.HasSuffix(host, "."+domain):
			out = append(out, c)
		}
	}
	return out
}
