// Package app drives retrieval requests through strategy selection, normalization
// and persistence, and runs the monitoring loop on top of them.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ibeckermayer/tweetscope/internal/config"
	"github.com/ibeckermayer/tweetscope/internal/metrics"
	"github.com/ibeckermayer/tweetscope/internal/normalize"
	"github.com/ibeckermayer/tweetscope/internal/notifier"
	"github.com/ibeckermayer/tweetscope/internal/scraper"
	"github.com/ibeckermayer/tweetscope/internal/sentiment"
	"github.com/ibeckermayer/tweetscope/internal/store"
	"github.com/ibeckermayer/tweetscope/internal/types"
	"github.com/ibeckermayer/tweetscope/internal/xapi"
)

// Strategy retrieves raw payloads from one source
type Strategy interface {
	Provenance() types.Provenance
	FetchByAccount(ctx context.Context, handle string, max int) ([]types.RawPayload, error)
	FetchByKeywords(ctx context.Context, keywords []string, maxPerKeyword int) ([]types.RawPayload, error)
}

// ProfileFetcher is implemented by strategies that can look up account profiles
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, handle string) (types.Profile, error)
}

// State is a stage of a single request
type State string

const (
	StateSelectStrategy State = "SELECT_STRATEGY"
	StateFetching       State = "FETCHING"
	StateNormalizing    State = "NORMALIZING"
	StatePersisting     State = "PERSISTING"
	StateDone           State = "DONE"
	StateFailed         State = "FAILED"
)

// Summary is the outcome of one request
type Summary struct {
	RunID      string
	Target     string
	Provenance types.Provenance
	Fetched    int
	Inserted   int
	Duplicates int
	Skipped    int
	// Filtered counts records dropped for not matching the keyword filter
	Filtered int
	State    State
	Err      error
}

// Failed reports whether the request ended in FAILED
func (s Summary) Failed() bool {
	return s.State == StateFailed
}

// Deps overrides the components New would otherwise build from the config.
// Nil fields are built from the config.
type Deps struct {
	Store      *store.Store
	API        Strategy
	Browser    Strategy
	Classifier *sentiment.Classifier
	Metrics    *metrics.Metrics
	Notifier   *notifier.Notifier
	// Cache receives every fetched batch. Built from config.RawCacheDir when cache_raw is set.
	Cache *store.RawCache
}

// App is the orchestrator. It is safe for sequential use only.
type App struct {
	cfg        *config.Config
	store      *store.Store
	primary    Strategy
	fallback   Strategy
	classifier *sentiment.Classifier
	metrics    *metrics.Metrics
	notifier   *notifier.Notifier
	cache      *store.RawCache
	now        func() time.Time
}

// New validates cfg and assembles the orchestrator.
// With neither strategy enabled it returns an error wrapping config.ErrNoStrategy.
func New(cfg *config.Config, deps Deps) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &App{
		cfg:        cfg,
		store:      deps.Store,
		classifier: deps.Classifier,
		metrics:    deps.Metrics,
		notifier:   deps.Notifier,
		cache:      deps.Cache,
		now:        time.Now,
	}

	var api, browser Strategy
	if cfg.APIEnabled() {
		api = deps.API
		if api == nil {
			client, err := xapi.New(xapi.Config{
				BaseURL:     cfg.API.BaseURL,
				BearerToken: cfg.APICredentials.BearerToken,
				Proxy:       cfg.Proxy,
				Timeout:     cfg.API.Timeout.Duration,
				MaxCalls:    cfg.API.MaxCalls,
				Window:      cfg.API.Window.Duration,
				MaxRetries:  cfg.API.MaxRetries,
				RetryDelay:  cfg.API.RetryDelay.Duration,
			})
			if err != nil {
				return nil, err
			}
			api = client
		}
	}
	if cfg.UseSelenium {
		browser = deps.Browser
		if browser == nil {
			browser = scraper.New(scraper.Config{
				Mirrors:        cfg.Browser.Mirrors,
				Headless:       cfg.Headless,
				Proxy:          cfg.Proxy,
				CookieFile:     cfg.Browser.CookieFile,
				NavDelay:       cfg.RateLimitDelay.Duration,
				ScrollPause:    cfg.Browser.ScrollPause.Duration,
				MaxIdleScrolls: cfg.Browser.MaxIdleScrolls,
				WaitTimeout:    cfg.Browser.WaitTimeout.Duration,
			})
		}
	}

	switch {
	case api != nil:
		a.primary, a.fallback = api, browser
	case browser != nil:
		a.primary = browser
	default:
		return nil, config.ErrNoStrategy
	}

	if a.classifier == nil {
		a.classifier = sentiment.New()
		a.classifier.AddPositive(cfg.Sentiment.Positive...)
		a.classifier.AddNegative(cfg.Sentiment.Negative...)
	}
	if a.metrics == nil {
		a.metrics = metrics.New()
	}
	if a.notifier == nil && cfg.Alerts.EnableEmail {
		n, err := notifier.NewFromConfig(cfg.Email)
		if err != nil {
			return nil, fmt.Errorf("email alerts: %w", err)
		}
		a.notifier = n
	}
	if a.cache == nil && cfg.CacheRaw {
		dir, err := config.RawCacheDir()
		if err != nil {
			return nil, err
		}
		a.cache = store.NewRawCache(dir)
	}
	if a.store == nil {
		s, err := store.New(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		a.store = s
	}

	return a, nil
}

// Store returns the underlying record store
func (a *App) Store() *store.Store {
	return a.store
}

// Metrics returns the pipeline counters
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// Close releases the store. The App must not be used afterwards.
func (a *App) Close() error {
	return a.store.Close()
}

// ScrapeAccount retrieves up to max recent posts by handle and stores them
func (a *App) ScrapeAccount(ctx context.Context, handle string, max int) Summary {
	return a.ScrapeAccountMatching(ctx, handle, max, nil)
}

// ScrapeAccountMatching is ScrapeAccount keeping only posts that mention one of
// keywords (case-insensitive). No keywords keeps every post.
func (a *App) ScrapeAccountMatching(ctx context.Context, handle string, max int, keywords []string) Summary {
	return a.run(ctx, "@"+handle, matcher(keywords), func(ctx context.Context, s Strategy) ([]types.RawPayload, error) {
		return s.FetchByAccount(ctx, handle, max)
	})
}

// SearchKeywords retrieves up to maxPerKeyword posts per keyword and stores them
func (a *App) SearchKeywords(ctx context.Context, keywords []string, maxPerKeyword int) Summary {
	return a.run(ctx, fmt.Sprintf("keywords %v", keywords), nil, func(ctx context.Context, s Strategy) ([]types.RawPayload, error) {
		return s.FetchByKeywords(ctx, keywords, maxPerKeyword)
	})
}

// Targets is a batch of accounts and keywords for ScrapeTargets
type Targets struct {
	Accounts      []string
	Keywords      []string
	MaxPerAccount int
	MaxPerKeyword int
	// AccountFilter keeps only account posts mentioning one of these keywords
	AccountFilter []string
}

// ScrapeTargets runs one request per account, then one for all keywords.
// It stops between requests once ctx is done.
func (a *App) ScrapeTargets(ctx context.Context, t Targets) []Summary {
	var out []Summary
	for _, handle := range t.Accounts {
		if ctx.Err() != nil {
			return out
		}
		out = append(out, a.ScrapeAccountMatching(ctx, handle, t.MaxPerAccount, t.AccountFilter))
	}
	if len(t.Keywords) > 0 && ctx.Err() == nil {
		out = append(out, a.SearchKeywords(ctx, t.Keywords, t.MaxPerKeyword))
	}
	return out
}

// Profile looks up handle's public profile, falling back like a retrieval request
func (a *App) Profile(ctx context.Context, handle string) (types.Profile, error) {
	handle = strings.TrimPrefix(strings.TrimSpace(handle), "@")

	var err error
	tried := 0
	for _, s := range a.strategies() {
		pf, ok := s.(ProfileFetcher)
		if !ok {
			continue
		}
		if tried > 0 {
			slog.Warn("[app] Falling back for profile", "handle", handle, "provenance", s.Provenance(), "error", err)
		}
		tried++

		var p types.Profile
		p, err = pf.FetchProfile(ctx, handle)
		if err == nil {
			return p, nil
		}
		if !types.IsRetrievalFailure(err) || ctx.Err() != nil {
			break
		}
	}
	if tried == 0 {
		return types.Profile{}, errors.New("no enabled strategy supports profile lookup")
	}
	return types.Profile{}, fmt.Errorf("profile @%s: %w", handle, err)
}

type fetchFunc func(ctx context.Context, s Strategy) ([]types.RawPayload, error)

// matcher returns a predicate keeping records that mention any keyword, or nil
func matcher(keywords []string) func(types.Record) bool {
	var words []string
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			words = append(words, k)
		}
	}
	if len(words) == 0 {
		return nil
	}
	return func(r types.Record) bool {
		text := strings.ToLower(r.Content)
		for _, w := range words {
			if strings.Contains(text, w) {
				return true
			}
		}
		return false
	}
}

// run executes one request through the state machine.
// keep, when set, drops normalized records it rejects before persistence.
func (a *App) run(ctx context.Context, target string, keep func(types.Record) bool, fetch fetchFunc) Summary {
	sum := Summary{RunID: uuid.NewString(), Target: target, State: StateSelectStrategy}
	log := slog.With("run", sum.RunID, "target", target)

	var raws []types.RawPayload
	var err error
	for attempt, s := range a.strategies() {
		sum.State = StateSelectStrategy
		sum.Provenance = s.Provenance()
		if attempt > 0 {
			a.metrics.Fallbacks.Inc()
			log.Warn("[app] Falling back", "provenance", sum.Provenance, "error", err)
		}

		sum.State = StateFetching
		raws, err = fetch(ctx, s)
		if err == nil || !types.IsRetrievalFailure(err) || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return a.fail(log, sum, err)
	}
	if a.cache != nil {
		path, err := a.cache.Save(store.CachedBatch{
			RunID:      sum.RunID,
			Target:     target,
			Provenance: sum.Provenance,
			FetchedAt:  a.now(),
			Payloads:   raws,
		})
		if err != nil {
			log.Warn("[app] Could not cache batch", "error", err)
		} else {
			log.Debug("[app] Cached batch", "path", path)
		}
	}
	return a.process(ctx, log, sum, raws, keep)
}

// Replay normalizes and stores a cached batch again without fetching
func (a *App) Replay(ctx context.Context, path string) Summary {
	sum := Summary{RunID: uuid.NewString(), Target: path, State: StateSelectStrategy}
	log := slog.With("run", sum.RunID, "target", path)

	b, err := store.LoadBatch(path)
	if err != nil {
		return a.fail(log, sum, err)
	}
	sum.Provenance = b.Provenance
	return a.process(ctx, log, sum, b.Payloads, nil)
}

// Preview normalizes a cached batch and counts, without writing, how many of
// its records are new (reported as Inserted) and how many are already stored
func (a *App) Preview(ctx context.Context, path string) Summary {
	sum := Summary{RunID: uuid.NewString(), Target: path, State: StateSelectStrategy}
	log := slog.With("run", sum.RunID, "target", path)

	b, err := store.LoadBatch(path)
	if err != nil {
		sum.State, sum.Err = StateFailed, err
		return sum
	}
	sum.Provenance = b.Provenance
	sum.Fetched = len(b.Payloads)

	sum.State = StateNormalizing
	recs, skipped := a.normalize(log, sum.Provenance, b.Payloads)
	sum.Skipped = skipped

	sum.State = StatePersisting
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		exists, err := a.store.Exists(ctx, rec.ID)
		if err != nil {
			sum.State, sum.Err = StateFailed, err
			return sum
		}
		if exists || seen[rec.ID] {
			sum.Duplicates++
		} else {
			sum.Inserted++
		}
		seen[rec.ID] = true
	}

	sum.State = StateDone
	log.Info("[app] Preview done", "new", sum.Inserted, "duplicates", sum.Duplicates, "skipped", sum.Skipped)
	return sum
}

// normalize turns raws into scored records, returning the count of malformed payloads
func (a *App) normalize(log *slog.Logger, prov types.Provenance, raws []types.RawPayload) ([]types.Record, int) {
	skipped := 0
	recs := make([]types.Record, 0, len(raws))
	for i, raw := range raws {
		rec, err := normalize.Normalize(raw, prov)
		if err != nil {
			skipped++
			log.Debug("[app] Skipping payload", "index", i, "error", err)
			continue
		}
		rec.SentimentScore, rec.SentimentLabel = a.classifier.Analyze(rec.Content)
		recs = append(recs, rec)
	}
	return recs, skipped
}

// process runs the NORMALIZING and PERSISTING stages over raws
func (a *App) process(ctx context.Context, log *slog.Logger, sum Summary, raws []types.RawPayload, keep func(types.Record) bool) Summary {
	sum.Fetched = len(raws)
	a.metrics.Fetched.Add(float64(len(raws)))

	sum.State = StateNormalizing
	recs, skipped := a.normalize(log, sum.Provenance, raws)
	sum.Skipped = skipped
	a.metrics.Skipped.Add(float64(sum.Skipped))

	if keep != nil {
		kept := recs[:0]
		for _, rec := range recs {
			if keep(rec) {
				kept = append(kept, rec)
			} else {
				sum.Filtered++
			}
		}
		recs = kept
	}

	sum.State = StatePersisting
	for _, rec := range recs {
		inserted, err := a.store.Upsert(ctx, rec)
		if err != nil {
			return a.fail(log, sum, err)
		}
		if inserted {
			sum.Inserted++
		} else {
			sum.Duplicates++
		}
	}
	a.metrics.Inserted.Add(float64(sum.Inserted))
	a.metrics.Duplicates.Add(float64(sum.Duplicates))

	sum.State = StateDone
	a.metrics.Requests.WithLabelValues(string(sum.Provenance), metrics.OutcomeDone).Inc()
	log.Info("[app] Request done",
		"provenance", sum.Provenance,
		"fetched", sum.Fetched,
		"inserted", sum.Inserted,
		"duplicates", sum.Duplicates,
		"skipped", sum.Skipped,
		"filtered", sum.Filtered)
	return sum
}

func (a *App) fail(log *slog.Logger, sum Summary, err error) Summary {
	sum.State = StateFailed
	sum.Err = err
	sum.Inserted = 0
	a.metrics.Requests.WithLabelValues(string(sum.Provenance), metrics.OutcomeFailed).Inc()
	log.Error("[app] Request failed", "provenance", sum.Provenance, "error", err)
	return sum
}

func (a *App) strategies() []Strategy {
	if a.fallback == nil {
		return []Strategy{a.primary}
	}
	return []Strategy{a.primary, a.fallback}
}

// FirstFailure returns the error of the first failed summary, or nil
func FirstFailure(sums []Summary) error {
	for _, s := range sums {
		if s.Failed() {
			return fmt.Errorf("%s: %w", s.Target, s.Err)
		}
	}
	return nil
}

// errAllFailed is returned by a monitoring cycle in which no request succeeded
var errAllFailed = errors.New("every request in the cycle failed")
