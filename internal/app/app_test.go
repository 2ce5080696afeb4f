package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/tweetscope/internal/config"
	"github.com/ibeckermayer/tweetscope/internal/metrics"
	"github.com/ibeckermayer/tweetscope/internal/notifier"
	"github.com/ibeckermayer/tweetscope/internal/scheduler"
	"github.com/ibeckermayer/tweetscope/internal/store"
	"github.com/ibeckermayer/tweetscope/internal/types"
)

type fakeStrategy struct {
	prov     types.Provenance
	payloads []types.RawPayload
	err      error
	onFetch  func()

	mu       sync.Mutex
	handles  []string
	keywords [][]string
}

func (f *fakeStrategy) Provenance() types.Provenance { return f.prov }

func (f *fakeStrategy) FetchByAccount(_ context.Context, handle string, max int) ([]types.RawPayload, error) {
	f.mu.Lock()
	f.handles = append(f.handles, handle)
	f.mu.Unlock()
	return f.result(max)
}

func (f *fakeStrategy) FetchByKeywords(_ context.Context, keywords []string, max int) ([]types.RawPayload, error) {
	f.mu.Lock()
	f.keywords = append(f.keywords, keywords)
	f.mu.Unlock()
	return f.result(max)
}

func (f *fakeStrategy) result(max int) ([]types.RawPayload, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.err != nil {
		return nil, f.err
	}
	out := make([]types.RawPayload, 0, len(f.payloads))
	for i, p := range f.payloads {
		if i == max {
			break
		}
		cp := make(types.RawPayload, len(p))
		for k, v := range p {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out, nil
}

func (f *fakeStrategy) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.handles) + len(f.keywords)
}

func apiPayload(id, user, text string, likes int) types.RawPayload {
	return types.RawPayload{
		"id":        id,
		"text":      text,
		"username":  user,
		"user_name": user,
		"metrics":   map[string]any{"likes": likes, "retweets": 0, "replies": 0},
	}
}

func browserPayload(id, user, text string) types.RawPayload {
	return types.RawPayload{
		"id":       id,
		"text":     text,
		"username": user,
		"likes":    "1.2K",
		"retweets": "3",
	}
}

func testConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.UseAPI = true
	cfg.APICredentials.BearerToken = "token"
	cfg.UseSelenium = true
	cfg.DatabasePath = filepath.Join(t.TempDir(), "records.db")
	cfg.Export.Auto = false
	cfg.Alerts.EnableEmail = false
	cfg.Categories = map[string][]string{"majors": {"alice", "@Bob"}}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config, deps Deps) *App {
	t.Helper()
	if deps.Store == nil {
		s, err := store.New(cfg.DatabasePath)
		require.NoError(t, err)
		deps.Store = s
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	a, err := New(cfg, deps)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func TestFallbackTagsBrowserProvenance(t *testing.T) {
	api := &fakeStrategy{prov: types.ProvenanceAPI, err: types.ErrRateLimitExceeded}
	browser := &fakeStrategy{prov: types.ProvenanceBrowser, payloads: []types.RawPayload{
		browserPayload("1", "alice", "hello"),
		browserPayload("2", "alice", "world"),
	}}
	a := newTestApp(t, testConfig(t), Deps{API: api, Browser: browser})
	ctx := context.Background()

	sum := a.ScrapeAccount(ctx, "alice", 10)
	require.Equal(t, StateDone, sum.State)
	require.NoError(t, sum.Err)
	require.Equal(t, types.ProvenanceBrowser, sum.Provenance)
	require.Equal(t, 2, sum.Inserted)
	require.NotEmpty(t, sum.RunID)
	require.Equal(t, 1, api.calls())
	require.Equal(t, 1, browser.calls())

	recs, err := a.Store().Query(ctx, types.Filter{Author: "alice"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	for _, r := range recs {
		require.Equal(t, types.ProvenanceBrowser, r.Source)
		require.Equal(t, 1200, r.Likes)
	}

	m := a.Metrics()
	require.InDelta(t, 1, testutil.ToFloat64(m.Fallbacks), 0)
	require.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("browser", metrics.OutcomeDone)), 0)
}

func TestPartialBatchPersistsValidRecords(t *testing.T) {
	api := &fakeStrategy{prov: types.ProvenanceAPI, payloads: []types.RawPayload{
		apiPayload("1", "alice", "one", 1),
		apiPayload("2", "alice", "two", 2),
		apiPayload("", "alice", "three", 3),
		apiPayload("4", "alice", "four", 4),
		apiPayload("5", "alice", "five", 5),
	}}
	a := newTestApp(t, testConfig(t), Deps{API: api, Browser: &fakeStrategy{prov: types.ProvenanceBrowser}})

	sum := a.ScrapeAccount(context.Background(), "alice", 50)
	require.Equal(t, StateDone, sum.State)
	require.NoError(t, sum.Err)
	require.Equal(t, types.ProvenanceAPI, sum.Provenance)
	require.Equal(t, 5, sum.Fetched)
	require.Equal(t, 4, sum.Inserted)
	require.Equal(t, 1, sum.Skipped)
	require.InDelta(t, 1, testutil.ToFloat64(a.Metrics().Skipped), 0)

	again := a.ScrapeAccount(context.Background(), "alice", 50)
	require.Equal(t, 0, again.Inserted)
	require.Equal(t, 4, again.Duplicates)
}

func TestTwoFailuresEndInFailed(t *testing.T) {
	api := &fakeStrategy{prov: types.ProvenanceAPI, err: types.ErrRateLimitExceeded}
	browser := &fakeStrategy{prov: types.ProvenanceBrowser, err: types.ErrSourceUnavailable}
	a := newTestApp(t, testConfig(t), Deps{API: api, Browser: browser})

	sum := a.SearchKeywords(context.Background(), []string{"btc"}, 10)
	require.True(t, sum.Failed())
	require.Equal(t, 0, sum.Inserted)
	require.ErrorIs(t, sum.Err, types.ErrSourceUnavailable)
	require.Equal(t, 1, api.calls())
	require.Equal(t, 1, browser.calls())
	require.InDelta(t, 1, testutil.ToFloat64(a.Metrics().Requests.WithLabelValues("browser", metrics.OutcomeFailed)), 0)
	require.Error(t, FirstFailure([]Summary{sum}))
}

func TestOtherErrorsDoNotFallBack(t *testing.T) {
	boom := errors.New("boom")
	api := &fakeStrategy{prov: types.ProvenanceAPI, err: boom}
	browser := &fakeStrategy{prov: types.ProvenanceBrowser}
	a := newTestApp(t, testConfig(t), Deps{API: api, Browser: browser})

	sum := a.ScrapeAccount(context.Background(), "alice", 10)
	require.True(t, sum.Failed())
	require.ErrorIs(t, sum.Err, boom)
	require.Equal(t, 0, browser.calls())
}

func TestAPIFailureWithoutFallback(t *testing.T) {
	cfg := testConfig(t)
	cfg.UseSelenium = false
	api := &fakeStrategy{prov: types.ProvenanceAPI, err: types.ErrRateLimitExceeded}
	a := newTestApp(t, cfg, Deps{API: api})

	sum := a.ScrapeAccount(context.Background(), "alice", 10)
	require.True(t, sum.Failed())
	require.ErrorIs(t, sum.Err, types.ErrRateLimitExceeded)
	require.Equal(t, types.ProvenanceAPI, sum.Provenance)
}

func TestBrowserOnlyWhenAPIDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.UseAPI = false
	api := &fakeStrategy{prov: types.ProvenanceAPI}
	browser := &fakeStrategy{prov: types.ProvenanceBrowser, payloads: []types.RawPayload{browserPayload("1", "alice", "hi")}}
	a := newTestApp(t, cfg, Deps{API: api, Browser: browser})

	sum := a.ScrapeAccount(context.Background(), "alice", 10)
	require.Equal(t, StateDone, sum.State)
	require.Equal(t, types.ProvenanceBrowser, sum.Provenance)
	require.Equal(t, 0, api.calls())
}

func TestNoStrategyIsConfigError(t *testing.T) {
	cfg := testConfig(t)
	cfg.UseAPI = false
	cfg.UseSelenium = false
	_, err := New(cfg, Deps{})
	require.ErrorIs(t, err, config.ErrNoStrategy)

	cfg.UseAPI = true
	cfg.APICredentials.BearerToken = "  "
	_, err = New(cfg, Deps{})
	require.ErrorIs(t, err, config.ErrNoStrategy)
}

func TestPersistenceErrorIsFatal(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec("INSERT INTO records").WillReturnError(errors.New("disk I/O error"))
	mock.ExpectClose()

	api := &fakeStrategy{prov: types.ProvenanceAPI, payloads: []types.RawPayload{
		apiPayload("1", "alice", "one", 1),
		apiPayload("2", "alice", "two", 2),
	}}
	browser := &fakeStrategy{prov: types.ProvenanceBrowser}
	a, err := New(testConfig(t), Deps{Store: store.NewFromDB(db), API: api, Browser: browser})
	require.NoError(t, err)

	sum := a.ScrapeAccount(context.Background(), "alice", 10)
	require.True(t, sum.Failed())
	require.ErrorIs(t, sum.Err, types.ErrPersistence)
	require.Equal(t, 0, sum.Inserted)
	require.Equal(t, 1, api.calls())
	require.Equal(t, 0, browser.calls())

	require.NoError(t, a.Close())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSentimentUsesConfiguredVocabulary(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sentiment.Positive = []string{"frobnicate"}
	api := &fakeStrategy{prov: types.ProvenanceAPI, payloads: []types.RawPayload{apiPayload("1", "alice", "frobnicate", 1)}}
	a := newTestApp(t, cfg, Deps{API: api, Browser: &fakeStrategy{prov: types.ProvenanceBrowser}})
	ctx := context.Background()

	require.Equal(t, StateDone, a.ScrapeAccount(ctx, "alice", 10).State)
	recs, err := a.Store().Query(ctx, types.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, types.SentimentPositive, recs[0].SentimentLabel)
	require.Greater(t, recs[0].SentimentScore, 0.0)
}

func TestScrapeTargets(t *testing.T) {
	api := &fakeStrategy{prov: types.ProvenanceAPI, payloads: []types.RawPayload{apiPayload("1", "alice", "one", 1)}}
	a := newTestApp(t, testConfig(t), Deps{API: api, Browser: &fakeStrategy{prov: types.ProvenanceBrowser}})

	sums := a.ScrapeTargets(context.Background(), Targets{
		Accounts:      []string{"alice", "bob"},
		Keywords:      []string{"btc", "eth"},
		MaxPerAccount: 5,
		MaxPerKeyword: 5,
	})
	require.Len(t, sums, 3)
	require.Equal(t, "@alice", sums[0].Target)
	require.Equal(t, 1, sums[0].Inserted)
	require.Equal(t, 1, sums[1].Duplicates)
	require.Equal(t, []string{"alice", "bob"}, api.handles)
	require.Equal(t, [][]string{{"btc", "eth"}}, api.keywords)
	require.NoError(t, FirstFailure(sums))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Empty(t, a.ScrapeTargets(ctx, Targets{Accounts: []string{"alice"}, Keywords: []string{"btc"}}))
}

func TestAccounts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Categories = map[string][]string{
		"majors": {"alice", "@Bob"},
		"defi":   {"bob", " carol "},
	}
	a := newTestApp(t, cfg, Deps{API: &fakeStrategy{prov: types.ProvenanceAPI}})

	handles, err := a.Accounts(nil)
	require.NoError(t, err)
	require.Equal(t, []string{"bob", "carol", "alice"}, handles)

	handles, err = a.Accounts([]string{"majors"})
	require.NoError(t, err)
	require.Equal(t, []string{"alice", "Bob"}, handles)

	_, err = a.Accounts([]string{"memes"})
	require.ErrorContains(t, err, "unknown category")
}

func TestMonitorStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.MonitoringInterval = config.Duration{Duration: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	api := &fakeStrategy{prov: types.ProvenanceAPI, onFetch: cancel}
	a := newTestApp(t, cfg, Deps{API: api, Browser: &fakeStrategy{prov: types.ProvenanceBrowser}})

	done := make(chan error, 1)
	go func() { done <- a.Monitor(ctx, nil) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
	// alice ran, bob was never started
	require.Equal(t, []string{"alice"}, api.handles)
}

func TestMonitorRejectsUnknownCategory(t *testing.T) {
	a := newTestApp(t, testConfig(t), Deps{API: &fakeStrategy{prov: types.ProvenanceAPI}})
	require.Error(t, a.Monitor(context.Background(), []string{"memes"}))
}

func TestCycleExportsAndReports(t *testing.T) {
	cfg := testConfig(t)
	cfg.Export.Auto = true
	cfg.Export.Directory = filepath.Join(t.TempDir(), "exports")
	cfg.Export.Formats = []string{"json", "csv"}
	api := &fakeStrategy{prov: types.ProvenanceAPI, payloads: []types.RawPayload{
		apiPayload("1", "alice", "bitcoin moon #btc", 20000),
		apiPayload("2", "alice", "quiet", 1),
	}}
	a := newTestApp(t, cfg, Deps{API: api, Browser: &fakeStrategy{prov: types.ProvenanceBrowser}})
	ctx := context.Background()

	require.NoError(t, a.Cycle(ctx, []string{"alice"}))

	entries, err := os.ReadDir(cfg.Export.Directory)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.InDelta(t, 1, testutil.ToFloat64(a.Metrics().Cycles.WithLabelValues(metrics.OutcomeDone)), 0)

	r, err := a.Report(ctx, DefaultWindow)
	require.NoError(t, err)
	require.Equal(t, 2, r.Summary.TotalRecords)
	require.Equal(t, "1", r.TopPosts[0].ID)
	require.NotEmpty(t, r.Alerts)
}

func TestCycleMailsAlerts(t *testing.T) {
	cfg := testConfig(t)
	cfg.Alerts.EnableEmail = true
	cfg.Email.SMTPHost = "smtp.example.com"
	cfg.Email.ToAddrs = []string{"desk@example.com"}
	sender := &recordingSender{}
	api := &fakeStrategy{prov: types.ProvenanceAPI, payloads: []types.RawPayload{apiPayload("1", "alice", "whale alert", 50000)}}
	a := newTestApp(t, cfg, Deps{
		API:      api,
		Browser:  &fakeStrategy{prov: types.ProvenanceBrowser},
		Notifier: notifier.New(sender),
	})

	require.NoError(t, a.Cycle(context.Background(), []string{"alice"}))
	require.Len(t, sender.subjects, 1)
	require.Equal(t, []string{"desk@example.com"}, sender.to)
}

func TestCycleAllFailed(t *testing.T) {
	api := &fakeStrategy{prov: types.ProvenanceAPI, err: types.ErrSourceUnavailable}
	browser := &fakeStrategy{prov: types.ProvenanceBrowser, err: types.ErrSourceUnavailable}
	a := newTestApp(t, testConfig(t), Deps{API: api, Browser: browser})

	require.ErrorIs(t, a.Cycle(context.Background(), []string{"alice", "bob"}), errAllFailed)
	require.InDelta(t, 1, testutil.ToFloat64(a.Metrics().Cycles.WithLabelValues(metrics.OutcomeFailed)), 0)
}

type recordingSender struct {
	to       []string
	subjects []string
}

func (r *recordingSender) Send(to []string, subject, _, _ string) error {
	r.to = to
	r.subjects = append(r.subjects, subject)
	return nil
}

func TestCachedBatchReplays(t *testing.T) {
	ctx := context.Background()
	cache := store.NewRawCache(filepath.Join(t.TempDir(), "raw"))
	api := &fakeStrategy{prov: types.ProvenanceAPI, payloads: []types.RawPayload{
		apiPayload("1", "alice", "one", 7),
		apiPayload("", "alice", "broken", 1),
	}}
	a := newTestApp(t, testConfig(t), Deps{API: api, Browser: &fakeStrategy{prov: types.ProvenanceBrowser}, Cache: cache})
	require.Equal(t, 1, a.ScrapeAccount(ctx, "alice", 10).Inserted)

	path, err := cache.Latest()
	require.NoError(t, err)

	fresh := newTestApp(t, testConfig(t), Deps{API: &fakeStrategy{prov: types.ProvenanceAPI}})
	sum := fresh.Replay(ctx, path)
	require.Equal(t, StateDone, sum.State)
	require.Equal(t, types.ProvenanceAPI, sum.Provenance)
	require.Equal(t, 2, sum.Fetched)
	require.Equal(t, 1, sum.Inserted)
	require.Equal(t, 1, sum.Skipped)

	recs, err := fresh.Store().Query(ctx, types.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, 7, recs[0].Likes)

	require.True(t, fresh.Replay(ctx, filepath.Join(t.TempDir(), "missing.json")).Failed())
}

func waitMonitor(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("monitor did not stop after cancel")
	}
}

func TestMonitorContinuesAfterFailedCycle(t *testing.T) {
	cfg := testConfig(t)
	cfg.MonitoringInterval = config.Duration{Duration: time.Second}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var fetches atomic.Int32
	api := &fakeStrategy{prov: types.ProvenanceAPI, err: types.ErrSourceUnavailable}
	browser := &fakeStrategy{prov: types.ProvenanceBrowser, err: types.ErrSourceUnavailable, onFetch: func() {
		// two handles per cycle: stop during the third cycle's last request
		if fetches.Add(1) == 6 {
			cancel()
		}
	}}
	a := newTestApp(t, cfg, Deps{API: api, Browser: browser})

	done := make(chan error, 1)
	go func() { done <- a.Monitor(ctx, nil) }()
	waitMonitor(t, done)

	require.EqualValues(t, 6, fetches.Load())
	require.Equal(t, 6, api.calls())
	require.InDelta(t, 3, testutil.ToFloat64(a.Metrics().Cycles.WithLabelValues(metrics.OutcomeFailed)), 0)
	require.InDelta(t, 0, testutil.ToFloat64(a.Metrics().Cycles.WithLabelValues(metrics.OutcomeDone)), 0)
}

func TestMonitorOnCronSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.MonitoringInterval = config.Duration{Duration: time.Hour}
	cfg.MonitorSchedule = "@every 1s"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var fetches atomic.Int32
	api := &fakeStrategy{
		prov:     types.ProvenanceAPI,
		payloads: []types.RawPayload{apiPayload("1", "alice", "gm", 1)},
		onFetch: func() {
			if fetches.Add(1) == 4 {
				cancel()
			}
		},
	}
	a := newTestApp(t, cfg, Deps{API: api, Browser: &fakeStrategy{prov: types.ProvenanceBrowser}})

	done := make(chan error, 1)
	go func() { done <- a.Monitor(ctx, nil) }()
	waitMonitor(t, done)

	// the hourly interval never fired; the second cycle came from the schedule
	require.EqualValues(t, 4, fetches.Load())
	require.Equal(t, []string{"alice", "Bob", "alice", "Bob"}, api.handles)
	require.InDelta(t, 2, testutil.ToFloat64(a.Metrics().Cycles.WithLabelValues(metrics.OutcomeDone)), 0)
}

func TestMonitorRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.MonitorSchedule = "whenever"
	api := &fakeStrategy{prov: types.ProvenanceAPI}
	a := newTestApp(t, cfg, Deps{API: api})

	require.ErrorContains(t, a.Monitor(context.Background(), nil), "whenever")
	require.Zero(t, api.calls())
}

func TestCycleTimeout(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitDelay = config.Duration{Duration: 5 * time.Second}
	a := newTestApp(t, cfg, Deps{API: &fakeStrategy{prov: types.ProvenanceAPI}})

	require.Equal(t, scheduler.DefaultJobTimeout, a.CycleTimeout(2))
	require.Equal(t, 100*(2*time.Minute+5*time.Second), a.CycleTimeout(100))

	cfg.MonitorTimeout = config.Duration{Duration: 10 * time.Minute}
	require.Equal(t, 10*time.Minute, a.CycleTimeout(100))
}

func TestAccountFilterKeepsMatchingPosts(t *testing.T) {
	ctx := context.Background()
	api := &fakeStrategy{prov: types.ProvenanceAPI, payloads: []types.RawPayload{
		apiPayload("1", "alice", "Bitcoin ETF approved", 1),
		apiPayload("2", "alice", "lunch", 1),
		apiPayload("3", "alice", "eth gas is cheap", 1),
		apiPayload("", "alice", "broken", 1),
	}}
	a := newTestApp(t, testConfig(t), Deps{API: api})

	sums := a.ScrapeTargets(ctx, Targets{
		Accounts:      []string{"alice"},
		MaxPerAccount: 10,
		AccountFilter: []string{"bitcoin", " ETH "},
	})
	require.Len(t, sums, 1)
	sum := sums[0]
	require.Equal(t, StateDone, sum.State)
	require.Equal(t, 4, sum.Fetched)
	require.Equal(t, 1, sum.Skipped)
	require.Equal(t, 1, sum.Filtered)
	require.Equal(t, 2, sum.Inserted)

	recs, err := a.Store().Query(ctx, types.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// blank keywords keep everything
	sum = a.ScrapeAccountMatching(ctx, "alice", 10, []string{" "})
	require.Equal(t, 0, sum.Filtered)
	require.Equal(t, 1, sum.Inserted)
	require.Equal(t, 2, sum.Duplicates)
}

type fakeProfiler struct {
	*fakeStrategy
	profile types.Profile
	profErr error
}

func (f *fakeProfiler) FetchProfile(_ context.Context, handle string) (types.Profile, error) {
	f.mu.Lock()
	f.handles = append(f.handles, handle)
	f.mu.Unlock()
	if f.profErr != nil {
		return types.Profile{}, f.profErr
	}
	return f.profile, nil
}

func TestProfileFallsBack(t *testing.T) {
	api := &fakeProfiler{fakeStrategy: &fakeStrategy{prov: types.ProvenanceAPI}, profErr: types.ErrRateLimitExceeded}
	browser := &fakeProfiler{
		fakeStrategy: &fakeStrategy{prov: types.ProvenanceBrowser},
		profile:      types.Profile{Handle: "alice", Followers: 12, Source: types.ProvenanceBrowser},
	}
	a := newTestApp(t, testConfig(t), Deps{API: api, Browser: browser})

	p, err := a.Profile(context.Background(), " @alice")
	require.NoError(t, err)
	require.Equal(t, types.ProvenanceBrowser, p.Source)
	require.Equal(t, 12, p.Followers)
	require.Equal(t, []string{"alice"}, api.handles)
	require.Equal(t, []string{"alice"}, browser.handles)
}

func TestProfileUnknownDoesNotFallBack(t *testing.T) {
	api := &fakeProfiler{fakeStrategy: &fakeStrategy{prov: types.ProvenanceAPI}, profErr: types.ErrUnknownAccount}
	browser := &fakeProfiler{fakeStrategy: &fakeStrategy{prov: types.ProvenanceBrowser}}
	a := newTestApp(t, testConfig(t), Deps{API: api, Browser: browser})

	_, err := a.Profile(context.Background(), "ghost")
	require.ErrorIs(t, err, types.ErrUnknownAccount)
	require.Zero(t, browser.calls())

	cfg := testConfig(t)
	cfg.UseSelenium = false
	plain := newTestApp(t, cfg, Deps{API: &fakeStrategy{prov: types.ProvenanceAPI}})
	_, err = plain.Profile(context.Background(), "alice")
	require.ErrorContains(t, err, "profile lookup")
}

func TestPreviewReportsWithoutWriting(t *testing.T) {
	ctx := context.Background()
	cache := store.NewRawCache(filepath.Join(t.TempDir(), "raw"))
	api := &fakeStrategy{prov: types.ProvenanceAPI, payloads: []types.RawPayload{
		apiPayload("1", "alice", "one", 1),
		apiPayload("2", "alice", "two", 2),
		apiPayload("2", "alice", "two again", 2),
		apiPayload("", "alice", "broken", 1),
	}}
	a := newTestApp(t, testConfig(t), Deps{API: api, Cache: cache})
	require.Equal(t, StateDone, a.ScrapeAccount(ctx, "alice", 10).State)
	path, err := cache.Latest()
	require.NoError(t, err)

	fresh := newTestApp(t, testConfig(t), Deps{API: &fakeStrategy{prov: types.ProvenanceAPI, payloads: []types.RawPayload{
		apiPayload("1", "alice", "one", 1),
	}}})
	require.Equal(t, 1, fresh.ScrapeAccount(ctx, "alice", 10).Inserted)

	sum := fresh.Preview(ctx, path)
	require.Equal(t, StateDone, sum.State)
	require.Equal(t, 4, sum.Fetched)
	require.Equal(t, 1, sum.Skipped)
	require.Equal(t, 1, sum.Inserted)
	require.Equal(t, 2, sum.Duplicates)

	recs, err := fresh.Store().Query(ctx, types.Filter{})
	require.NoError(t, err)
	require.Len(t, recs, 1)

	// the write path agrees with the preview
	replayed := fresh.Replay(ctx, path)
	require.Equal(t, sum.Inserted, replayed.Inserted)
	require.Equal(t, sum.Duplicates, replayed.Duplicates)

	require.True(t, fresh.Preview(ctx, filepath.Join(t.TempDir(), "missing.json")).Failed())
}
