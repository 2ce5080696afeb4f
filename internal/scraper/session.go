package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/ibeckermayer/tweetscope/internal/browser"
)

// Session is one browser tab scoped to a single fetch
type Session interface {
	// Navigate loads url and waits a bounded time for timeline items.
	// found is false when none appeared before the wait expired.
	Navigate(url string) (found bool, err error)
	HTML() (string, error)
	Scroll() error
	Close()
}

type chromeSession struct {
	ctx    context.Context
	cancel func()
	wait   time.Duration
}

// newChromeSession starts Chrome with the shared stealth options and injects cookies.
// The session dies with ctx.
func newChromeSession(ctx context.Context, cfg Config, cookies []*network.Cookie) (Session, error) {
	opts := append(browser.Options(cfg.Headless, cfg.Proxy), browser.NoImages())

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		ctx: tabCtx,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		wait: cfg.WaitTimeout,
	}

	// The first Run starts the browser
	if err := chromedp.Run(tabCtx, injectCookies(cookies)); err != nil {
		s.cancel()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

// injectCookies sets cookies in the browser context
func injectCookies(cookies []*network.Cookie) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, c := range cookies {
			err := network.SetCookie(c.Name, c.Value).
				WithDomain(c.Domain).
				WithPath(c.Path).
				WithSecure(c.Secure).
				WithHTTPOnly(c.HTTPOnly).
				WithSameSite(c.SameSite).
				Do(ctx)
			if err != nil {
				return fmt.Errorf("set cookie %s: %w", c.Name, err)
			}
		}
		return nil
	})
}

func (s *chromeSession) Navigate(url string) (bool, error) {
	if err := chromedp.Run(s.ctx, chromedp.Navigate(url)); err != nil {
		return false, err
	}

	waitCtx, cancel := context.WithTimeout(s.ctx, s.wait)
	defer cancel()
	err := chromedp.Run(waitCtx, chromedp.WaitVisible(WaitForTimeline, chromedp.ByQuery))
	switch {
	case err == nil:
		return true, nil
	case s.ctx.Err() != nil:
		return false, s.ctx.Err()
	case errors.Is(err, context.DeadlineExceeded):
		return false, nil
	}
	return false, err
}

func (s *chromeSession) HTML() (string, error) {
	var html string
	if err := chromedp.Run(s.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Scroll moves one viewport down to trigger lazy loading
func (s *chromeSession) Scroll() error {
	return chromedp.Run(s.ctx,
		chromedp.Evaluate(`window.scrollBy(0, window.innerHeight)`, nil),
	)
}

func (s *chromeSession) Close() {
	s.cancel()
}
