package normalize

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

func TestParseMetric(t *testing.T) {
	cases := map[string]int{
		"":          0,
		"423":       423,
		"1,234":     1234,
		"1.2K":      1200,
		"5.7M":      5700000,
		"1B":        1000000000,
		"12k":       12000,
		" 7 likes ": 7,
		"-4":        0,
		"abc":       0,
		"K":         0,
	}
	for in, want := range cases {
		require.Equal(t, want, ParseMetric(in), "input %q", in)
	}
}

func TestEntities(t *testing.T) {
	text := "#BTC to the moon with @alice and @bob, see https://example.com/x. #btc #ETH @alice"
	require.Equal(t, []string{"BTC", "btc", "ETH"}, Hashtags(text))
	require.Equal(t, []string{"alice", "bob"}, Mentions(text))
	require.Equal(t, []string{"https://example.com/x"}, URLs(text))
	require.Equal(t, []string{}, Hashtags("no tags here"))
}

func TestNormalizeAPI(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := types.RawPayload{
		"id":         "1001",
		"text":       "Bitcoin ETF approved #BTC @sec_gov",
		"created_at": "2025-03-01T10:15:00.000Z",
		"author_id":  "42",
		"username":   "cryptonews",
		"user_name":  "Crypto News",
		"verified":   true,
		"metrics": map[string]any{
			"likes":       float64(1500),
			"retweets":    json.Number("300"),
			"replies":     12,
			"quotes":      4,
			"impressions": 90000,
		},
		"hashtags": []any{"BTC"},
		"mentions": []any{map[string]any{"username": "sec_gov"}},
		"urls":     []string{},
	}

	rec, err := normalizeAt(raw, types.ProvenanceAPI, now)
	require.NoError(t, err)

	views := 90000
	want := types.Record{
		ID:             "1001",
		AuthorHandle:   "cryptonews",
		AuthorName:     "Crypto News",
		Content:        "Bitcoin ETF approved #BTC @sec_gov",
		CreatedAt:      time.Date(2025, 3, 1, 10, 15, 0, 0, time.UTC),
		Likes:          1500,
		Reshares:       300,
		Replies:        12,
		Views:          &views,
		Verified:       true,
		Hashtags:       []string{"BTC"},
		Mentions:       []string{"sec_gov"},
		URLs:           []string{},
		MediaURLs:      []string{},
		SentimentLabel: types.SentimentNeutral,
		ScrapedAt:      now,
		Source:         types.ProvenanceAPI,
	}
	if diff := cmp.Diff(want, rec); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeBrowser(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	raw := types.RawPayload{
		"id":           "2002",
		"username":     "@whale_alert",
		"display_name": "Whale Alert",
		"text":         "Huge dump incoming #ETH via @binance https://t.co/abc",
		"timestamp":    "Feb 28, 2025 · 9:30 PM UTC",
		"likes":        "1.2K",
		"retweets":     "87",
		"replies":      "",
		"views":        "",
		"verified":     false,
		"media_urls":   []string{"https://nitter.net/pic/1.jpg"},
	}

	rec, err := normalizeAt(raw, types.ProvenanceBrowser, now)
	require.NoError(t, err)
	require.Equal(t, "whale_alert", rec.AuthorHandle)
	require.Equal(t, time.Date(2025, 2, 28, 21, 30, 0, 0, time.UTC), rec.CreatedAt)
	require.Equal(t, 1200, rec.Likes)
	require.Equal(t, 87, rec.Reshares)
	require.Equal(t, 0, rec.Replies)
	require.Nil(t, rec.Views)
	require.Equal(t, []string{"ETH"}, rec.Hashtags)
	require.Equal(t, []string{"binance"}, rec.Mentions)
	require.Equal(t, []string{"https://t.co/abc"}, rec.URLs)
	require.Equal(t, []string{"https://nitter.net/pic/1.jpg"}, rec.MediaURLs)
	require.Equal(t, types.ProvenanceBrowser, rec.Source)
}

func TestNormalizeDefaultsAndFallbacks(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec, err := normalizeAt(types.RawPayload{"id": 77.0, "text": "plain text", "timestamp": "not a date"}, types.ProvenanceBrowser, now)
	require.NoError(t, err)
	require.Equal(t, "77", rec.ID)
	require.Equal(t, now, rec.CreatedAt)
	require.NotNil(t, rec.Hashtags)
	require.NotNil(t, rec.Mentions)
	require.NotNil(t, rec.URLs)
	require.NotNil(t, rec.MediaURLs)
	require.Zero(t, rec.Likes+rec.Reshares+rec.Replies)
}

func TestNormalizeMalformed(t *testing.T) {
	cases := []struct {
		name string
		raw  types.RawPayload
		p    types.Provenance
	}{
		{"nil payload", nil, types.ProvenanceAPI},
		{"missing id", types.RawPayload{"text": "hello"}, types.ProvenanceAPI},
		{"blank id", types.RawPayload{"id": "  ", "text": "hello"}, types.ProvenanceBrowser},
		{"missing text", types.RawPayload{"id": "1"}, types.ProvenanceAPI},
		{"blank text", types.RawPayload{"id": "1", "text": "\n"}, types.ProvenanceBrowser},
		{"unknown provenance", types.RawPayload{"id": "1", "text": "hello"}, types.Provenance("rss")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Normalize(tc.raw, tc.p)
			require.Error(t, err)
			require.True(t, errors.Is(err, types.ErrMalformedRecord))
		})
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := types.RawPayload{
		"id":         "3003",
		"text":       "gm #sol @phantom https://solana.com",
		"created_at": "2025-01-05T08:00:00Z",
		"username":   "sol_dev",
		"metrics":    map[string]any{"likes": 5, "retweets": 1},
	}

	a, err := Normalize(raw, types.ProvenanceAPI)
	require.NoError(t, err)
	b, err := Normalize(raw, types.ProvenanceAPI)
	require.NoError(t, err)

	ignoreScrapedAt := cmp.FilterPath(func(p cmp.Path) bool {
		return p.String() == "ScrapedAt"
	}, cmp.Ignore())
	if diff := cmp.Diff(a, b, ignoreScrapedAt); diff != "" {
		t.Fatalf("normalize not deterministic (-first +second):\n%s", diff)
	}
}
