// Package xapi is the structured-API retrieval strategy backed by the X API v2.
package xapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"

	"github.com/ibeckermayer/tweetscope/internal/ratelimit"
	"github.com/ibeckermayer/tweetscope/internal/types"
)

const (
	DefaultBaseURL = "https://api.x.com"

	// Recent search allows 450 requests per 15 minutes for app-only auth
	DefaultMaxCalls = 450
	DefaultWindow   = 15 * time.Minute

	maxPageSize         = 100
	minSearchPageSize   = 10
	minTimelinePageSize = 5
)

// Config controls the API client
type Config struct {
	BaseURL     string
	BearerToken string
	Proxy       string
	Timeout     time.Duration

	// MaxCalls per Window, enforced client-side before every request
	MaxCalls int
	Window   time.Duration

	// MaxRetries bounds 429 retries; RetryDelay is used when the response carries no reset hint
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.MaxCalls == 0 {
		c.MaxCalls = DefaultMaxCalls
	}
	if c.Window <= 0 {
		c.Window = DefaultWindow
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 60 * time.Second
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = DefaultWindow
	}
	return c
}

// Client fetches posts from the X API
type Client struct {
	cfg      Config
	http     *resty.Client
	limiter  *ratelimit.Limiter
	executor failsafe.Executor[*resty.Response]
}

var errNotFound = errors.New("not found")

// rateLimitedError carries the server's reset hint for the retry policy
type rateLimitedError struct {
	retryAfter time.Duration
}

func (e *rateLimitedError) Error() string {
	if e.retryAfter > 0 {
		return fmt.Sprintf("rate limited by source, reset in %s", e.retryAfter)
	}
	return "rate limited by source"
}

func (e *rateLimitedError) Unwrap() error { return types.ErrRateLimitExceeded }

// New creates a client. The bearer token is passed through as-is.
func New(cfg Config) (*Client, error) {
	cfg = cfg.withDefaults()
	if cfg.BearerToken == "" {
		return nil, errors.New("xapi: bearer token is required")
	}

	base := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("xapi: invalid proxy %q: %w", cfg.Proxy, err)
		}
		base.Proxy = http.ProxyURL(proxyURL)
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.BearerToken, TokenType: "Bearer"}),
			Base:   base,
		},
	}

	c := &Client{
		cfg:     cfg,
		limiter: ratelimit.New(cfg.MaxCalls, cfg.Window),
	}

	c.http = resty.NewWithClient(httpClient).
		SetBaseURL(cfg.BaseURL).
		SetHeader("Accept", "application/json")

	// Every request, including retries, spends from the rolling window
	c.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return c.limiter.Wait(req.Context())
	})

	policy := retrypolicy.NewBuilder[*resty.Response]().
		HandleIf(func(_ *resty.Response, err error) bool {
			var rl *rateLimitedError
			return errors.As(err, &rl)
		}).
		WithMaxRetries(cfg.MaxRetries).
		WithDelayFunc(func(exec failsafe.ExecutionAttempt[*resty.Response]) time.Duration {
			var rl *rateLimitedError
			if errors.As(exec.LastError(), &rl) && rl.retryAfter > 0 {
				return min(rl.retryAfter, cfg.MaxRetryDelay)
			}
			return cfg.RetryDelay
		}).
		ReturnLastFailure().
		Build()
	c.executor = failsafe.With[*resty.Response](policy)

	return c, nil
}

// Provenance tags records produced by this strategy
func (c *Client) Provenance() types.Provenance {
	return types.ProvenanceAPI
}

// FetchByAccount returns up to max recent posts from handle, following pagination tokens.
// An unknown handle yields no posts and no error.
func (c *Client) FetchByAccount(ctx context.Context, handle string, max int) ([]types.RawPayload, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" || max <= 0 {
		return nil, nil
	}

	var ur userResponse
	err := c.get(ctx, "/2/users/by/username/"+url.PathEscape(handle), map[string]string{
		"user.fields": "name,username,verified",
	}, &ur)
	if errors.Is(err, errNotFound) || (err == nil && ur.Data == nil) {
		slog.Warn("[xapi] Unknown account", "handle", handle)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	params := map[string]string{
		"tweet.fields": "created_at,public_metrics,entities,attachments,author_id",
		"expansions":   "attachments.media_keys",
		"media.fields": "url,preview_image_url",
		"exclude":      "retweets",
	}
	posts, err := c.paginate(ctx, "/2/users/"+url.PathEscape(ur.Data.ID)+"/tweets", params, "pagination_token", minTimelinePageSize, max, ur.Data)
	if err != nil {
		return nil, err
	}

	slog.Info("[xapi] Fetched account", "handle", handle, "posts", len(posts))
	return posts, nil
}

// FetchProfile looks up the public profile of handle
func (c *Client) FetchProfile(ctx context.Context, handle string) (types.Profile, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")
	if handle == "" {
		return types.Profile{}, fmt.Errorf("%w: empty handle", types.ErrUnknownAccount)
	}

	var ur userResponse
	err := c.get(ctx, "/2/users/by/username/"+url.PathEscape(handle), map[string]string{
		"user.fields": "name,username,verified,description,location,public_metrics",
	}, &ur)
	if errors.Is(err, errNotFound) || (err == nil && ur.Data == nil) {
		return types.Profile{}, fmt.Errorf("%w: @%s", types.ErrUnknownAccount, handle)
	}
	if err != nil {
		return types.Profile{}, err
	}
	return ur.Data.profile(), nil
}

// FetchByKeywords runs a recent search per keyword and returns the union, deduplicated by ID
func (c *Client) FetchByKeywords(ctx context.Context, keywords []string, maxPerKeyword int) ([]types.RawPayload, error) {
	var out []types.RawPayload
	seen := make(map[string]bool)

	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}

		params := map[string]string{
			"query":        kw + " -is:retweet lang:en",
			"tweet.fields": "created_at,public_metrics,entities,attachments,author_id",
			"expansions":   "author_id,attachments.media_keys",
			"user.fields":  "username,name,verified",
			"media.fields": "url,preview_image_url",
		}
		posts, err := c.paginate(ctx, "/2/tweets/search/recent", params, "next_token", minSearchPageSize, maxPerKeyword, nil)
		if err != nil {
			return nil, fmt.Errorf("keyword %q: %w", kw, err)
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
		slog.Info("[xapi] Searched keyword", "keyword", kw, "posts", len(posts), "new", added)
	}

	return out, nil
}

// paginate follows meta.next_token until the source runs out or max posts are collected
func (c *Client) paginate(ctx context.Context, path string, params map[string]string, tokenParam string, minPage, max int, author *user) ([]types.RawPayload, error) {
	var out []types.RawPayload
	token := ""

	for len(out) < max {
		q := make(map[string]string, len(params)+2)
		for k, v := range params {
			q[k] = v
		}
		q["max_results"] = strconv.Itoa(pageSize(max-len(out), minPage))
		if token != "" {
			q[tokenParam] = token
		}

		var p page
		err := c.get(ctx, path, q, &p)
		if errors.Is(err, errNotFound) {
			// A vanished timeline or search endpoint is a source failure, not an empty result
			return nil, fmt.Errorf("%w: GET %s: %w", types.ErrSourceUnavailable, path, err)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p.payloads(author)...)

		token = p.Meta.NextToken
		if token == "" || len(p.Data) == 0 {
			break
		}
	}

	if len(out) > max {
		out = out[:max]
	}
	return out, nil
}

func pageSize(remaining, minPage int) int {
	return max(minPage, min(remaining, maxPageSize))
}

// get issues one GET through the retry executor and decodes the JSON body into out
func (c *Client) get(ctx context.Context, path string, params map[string]string, out any) error {
	resp, err := c.executor.WithContext(ctx).Get(func() (*resty.Response, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(params).
			Get(path)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("%w: GET %s: %w", types.ErrSourceUnavailable, path, err)
		}

		switch code := resp.StatusCode(); {
		case code == http.StatusTooManyRequests:
			rl := &rateLimitedError{retryAfter: resetHint(resp.Header(), time.Now())}
			slog.Warn("[xapi] Rate limited", "path", path, "retry_after", rl.retryAfter)
			return resp, rl
		case code == http.StatusNotFound:
			return resp, errNotFound
		case !resp.IsSuccess():
			return resp, fmt.Errorf("%w: GET %s: status %d", types.ErrSourceUnavailable, path, code)
		}
		return resp, nil
	})
	if err != nil {
		var rl *rateLimitedError
		if errors.As(err, &rl) {
			return fmt.Errorf("GET %s: %w", path, rl)
		}
		return err
	}

	if err := json.Unmarshal(resp.Body(), out); err != nil {
		return fmt.Errorf("%w: decode %s: %w", types.ErrSourceUnavailable, path, err)
	}
	return nil
}

// resetHint reads Retry-After (seconds or HTTP date) or x-rate-limit-reset (unix seconds)
func resetHint(h http.Header, now time.Time) time.Duration {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return time.Duration(secs) * time.Second
		}
		if at, err := http.ParseTime(v); err == nil {
			return at.Sub(now)
		}
	}
	if v := h.Get("x-rate-limit-reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Unix(epoch, 0).Sub(now)
		}
	}
	return 0
}
