// Package scraper is the browser retrieval strategy. It renders Nitter
// front-ends in Chrome and parses their timelines.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"golang.org/x/time/rate"

	"github.com/ibeckermayer/tweetscope/internal/auth"
	"github.com/ibeckermayer/tweetscope/internal/types"
)

// DefaultMirrors are the Nitter instances tried in order
var DefaultMirrors = []string{
	"https://nitter.net",
	"https://nitter.privacydev.net",
	"https://nitter.poast.org",
}

// Config controls the browser strategy
type Config struct {
	Mirrors    []string
	Headless   bool
	Proxy      string
	CookieFile string

	// NavDelay is the minimum spacing between page navigations
	NavDelay       time.Duration
	ScrollPause    time.Duration
	MaxIdleScrolls int
	WaitTimeout    time.Duration
}

func (c Config) withDefaults() Config {
	mirrors := c.Mirrors
	if len(mirrors) == 0 {
		mirrors = DefaultMirrors
	}
	c.Mirrors = make([]string, 0, len(mirrors))
	for _, m := range mirrors {
		c.Mirrors = append(c.Mirrors, strings.TrimRight(m, "/"))
	}
	if c.MaxIdleScrolls <= 0 {
		c.MaxIdleScrolls = 5
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = 10 * time.Second
	}
	return c
}

var errMirrorRateLimited = errors.New("mirror rate limited")

// Scraper fetches posts through a browser
type Scraper struct {
	cfg        Config
	cookies    *auth.CookieStore
	pacer      *rate.Limiter
	newSession func(ctx context.Context) (Session, error)

	mu     sync.Mutex
	sticky int
}

// New creates a browser strategy
func New(cfg Config) *Scraper {
	cfg = cfg.withDefaults()

	limit := rate.Inf
	if cfg.NavDelay > 0 {
		limit = rate.Every(cfg.NavDelay)
	}

	s := &Scraper{
		cfg:     cfg,
		cookies: auth.NewCookieStore(cfg.CookieFile),
		pacer:   rate.NewLimiter(limit, 1),
	}
	s.newSession = s.chromeSession
	return s
}

// Provenance tags records produced by this strategy
func (s *Scraper) Provenance() types.Provenance {
	return types.ProvenanceBrowser
}

func (s *Scraper) chromeSession(ctx context.Context) (Session, error) {
	stored, err := s.cookies.Load()
	if err != nil {
		slog.Warn("[scraper] Ignoring cookie file", "path", s.cookies.Path(), "error", err)
	}

	var cookies []*network.Cookie
	now := time.Now()
	for _, m := range s.cfg.Mirrors {
		if u, err := url.Parse(m); err == nil {
			cookies = append(cookies, auth.ForHost(stored, u.Hostname(), now)...)
		}
	}
	return newChromeSession(ctx, s.cfg, cookies)
}

// FetchByAccount returns up to max posts from the account's timeline
func (s *Scraper) FetchByAccount(ctx context.Context, handle string, max int) ([]types.RawPayload, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" || max <= 0 {
		return nil, nil
	}

	var posts []types.RawPayload
	err := s.withSession(ctx, func(sess Session) error {
		var err error
		posts, err = s.fetch(ctx, sess, "/"+url.PathEscape(handle), max)
		return err
	})
	if err != nil {
		return nil, err
	}

	slog.Info("[scraper] Fetched account", "handle", handle, "posts", len(posts))
	return posts, nil
}

// FetchByKeywords searches each keyword and returns the union, deduplicated by ID
func (s *Scraper) FetchByKeywords(ctx context.Context, keywords []string, maxPerKeyword int) ([]types.RawPayload, error) {
	if maxPerKeyword <= 0 {
		return nil, nil
	}

	var out []types.RawPayload
	seen := make(map[string]bool)

	err := s.withSession(ctx, func(sess Session) error {
		for _, kw := range keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}

			posts, err := s.fetch(ctx, sess, "/search?f=tweets&q="+url.QueryEscape(kw), maxPerKeyword)
			if err != nil {
				return fmt.Errorf("keyword %q: %w", kw, err)
			}

			added := 0
			for _, p := range posts {
				id, _ := p["id"].(string)
				if seen[id] {
					continue
				}
				seen[id] = true
				out = append(out, p)
				added++
			}
			slog.Info("[scraper] Searched keyword", "keyword", kw, "posts", len(posts), "new", added)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// withSession runs fn with a fresh browser session that is released on return
func (s *Scraper) withSession(ctx context.Context, fn func(Session) error) error {
	sess, err := s.newSession(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %w", types.ErrSourceUnavailable, err)
	}
	defer sess.Close()
	return fn(sess)
}

// fetch collects a timeline from the first mirror that serves it
func (s *Scraper) fetch(ctx context.Context, sess Session, path string, max int) ([]types.RawPayload, error) {
	var posts []types.RawPayload
	err := s.rotate(ctx, path, func(mirror string) error {
		var err error
		posts, err = s.collect(ctx, sess, mirror+path, max)
		return err
	})
	if err != nil {
		return nil, err
	}
	return posts, nil
}

// rotate calls try with each mirror, starting with the last one that worked,
// until one succeeds. An unknown account ends the rotation.
func (s *Scraper) rotate(ctx context.Context, path string, try func(mirror string) error) error {
	s.mu.Lock()
	start := s.sticky
	s.mu.Unlock()

	var lastErr error
	n := len(s.cfg.Mirrors)
	for i := range n {
		idx := (start + i) % n
		mirror := s.cfg.Mirrors[idx]

		err := try(mirror)
		if err == nil {
			s.mu.Lock()
			s.sticky = idx
			s.mu.Unlock()
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, types.ErrUnknownAccount) {
			return err
		}

		lastErr = err
		slog.Warn("[scraper] Mirror failed, rotating", "mirror", mirror, "error", err)
	}

	return fmt.Errorf("%w: every mirror failed for %s: %w", types.ErrSourceUnavailable, path, lastErr)
}

// FetchProfile reads the profile card of handle
func (s *Scraper) FetchProfile(ctx context.Context, handle string) (types.Profile, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return types.Profile{}, fmt.Errorf("%w: empty handle", types.ErrUnknownAccount)
	}

	path := "/" + url.PathEscape(handle)
	var p types.Profile
	err := s.withSession(ctx, func(sess Session) error {
		return s.rotate(ctx, path, func(mirror string) error {
			if err := s.pacer.Wait(ctx); err != nil {
				return err
			}
			if _, err := sess.Navigate(mirror + path); err != nil {
				return fmt.Errorf("navigate %s: %w", mirror+path, err)
			}
			html, err := sess.HTML()
			if err != nil {
				return fmt.Errorf("read %s: %w", mirror+path, err)
			}
			p, err = ParseProfile(html)
			return err
		})
	})
	if err != nil {
		return types.Profile{}, err
	}
	if p.Handle == "" {
		p.Handle = handle
	}

	slog.Info("[scraper] Fetched profile", "handle", p.Handle, "followers", p.Followers)
	return p, nil
}

// collect reads one mirror, scrolling each page and following load-more cursors
// until max posts are gathered or the timeline runs out
func (s *Scraper) collect(ctx context.Context, sess Session, target string, max int) ([]types.RawPayload, error) {
	var out []types.RawPayload
	seen := make(map[string]bool)
	visited := make(map[string]bool)

	next := target
	for pages := 0; next != "" && !visited[next] && len(out) < max; pages++ {
		pageURL := next
		next = ""
		visited[pageURL] = true

		if err := s.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		found, err := sess.Navigate(pageURL)
		if err != nil {
			return nil, fmt.Errorf("navigate %s: %w", pageURL, err)
		}

		idle := 0
		for {
			html, err := sess.HTML()
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", pageURL, err)
			}
			tl, err := ParseTimeline(html, pageURL)
			if err != nil {
				return nil, err
			}
			if tl.RateLimited {
				if pages == 0 {
					return nil, errMirrorRateLimited
				}
				slog.Warn("[scraper] Rate limited mid-timeline, keeping partial results", "url", pageURL, "posts", len(out))
				return out, nil
			}

			added := 0
			for _, p := range tl.Posts {
				id, _ := p["id"].(string)
				if seen[id] || len(out) >= max {
					continue
				}
				seen[id] = true
				out = append(out, p)
				added++
			}
			next = tl.Cursor

			// No timeline items rendered: the page is exhausted
			if !found || len(out) >= max {
				break
			}
			if added == 0 {
				idle++
				if idle >= s.cfg.MaxIdleScrolls {
					break
				}
			} else {
				idle = 0
			}

			if err := sess.Scroll(); err != nil {
				return nil, fmt.Errorf("scroll %s: %w", pageURL, err)
			}
			if err := pause(ctx, s.cfg.ScrollPause); err != nil {
				return nil, err
			}
		}

		if !found {
			break
		}
	}

	return out, nil
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
