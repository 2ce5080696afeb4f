package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

const (
	trendingHashtagLimit = 20
	trendingAccountLimit = 15
)

// Trending aggregates records created within window before now.
// Hashtags are grouped case-insensitively; a record counts once per tag.
func (s *Store) Trending(ctx context.Context, window time.Duration) (types.Trending, error) {
	since := s.now().Add(-window).UTC()
	t := types.Trending{
		Window:    window,
		Since:     since,
		Hashtags:  []types.HashtagTrend{},
		Accounts:  []types.AccountTrend{},
		Sentiment: map[types.SentimentLabel]int{},
	}
	cutoff := since.UnixNano()

	rows, err := s.db.QueryContext(ctx, `
		SELECT tag, COUNT(*) AS mentions, SUM(engagement) AS engagement
		FROM (
			SELECT DISTINCT r.id, lower(h.value) AS tag, r.likes + r.reshares AS engagement
			FROM records r, json_each(r.hashtags) h
			WHERE r.created_at >= ?
		)
		GROUP BY tag
		ORDER BY mentions DESC, engagement DESC, tag ASC
		LIMIT ?
	`, cutoff, trendingHashtagLimit)
	if err != nil {
		return t, fmt.Errorf("%w: trending hashtags: %w", types.ErrPersistence, err)
	}
	for rows.Next() {
		var h types.HashtagTrend
		if err := rows.Scan(&h.Tag, &h.Mentions, &h.Engagement); err != nil {
			rows.Close()
			return t, fmt.Errorf("%w: trending hashtags: %w", types.ErrPersistence, err)
		}
		t.Hashtags = append(t.Hashtags, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return t, fmt.Errorf("%w: trending hashtags: %w", types.ErrPersistence, err)
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT author_handle, COUNT(*) AS posts, SUM(likes + reshares) AS engagement
		FROM records
		WHERE created_at >= ? AND author_handle <> ''
		GROUP BY author_handle
		ORDER BY engagement DESC, posts DESC, author_handle ASC
		LIMIT ?
	`, cutoff, trendingAccountLimit)
	if err != nil {
		return t, fmt.Errorf("%w: trending accounts: %w", types.ErrPersistence, err)
	}
	for rows.Next() {
		var a types.AccountTrend
		if err := rows.Scan(&a.Handle, &a.Posts, &a.Engagement); err != nil {
			rows.Close()
			return t, fmt.Errorf("%w: trending accounts: %w", types.ErrPersistence, err)
		}
		t.Accounts = append(t.Accounts, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return t, fmt.Errorf("%w: trending accounts: %w", types.ErrPersistence, err)
	}

	t.Sentiment, err = s.sentimentBreakdown(ctx, cutoff)
	if err != nil {
		return t, err
	}

	return t, nil
}

func (s *Store) sentimentBreakdown(ctx context.Context, cutoff int64) (map[types.SentimentLabel]int, error) {
	out := map[types.SentimentLabel]int{}
	rows, err := s.db.QueryContext(ctx, `
		SELECT sentiment_label, COUNT(*) FROM records
		WHERE created_at >= ?
		GROUP BY sentiment_label
	`, cutoff)
	if err != nil {
		return out, fmt.Errorf("%w: sentiment breakdown: %w", types.ErrPersistence, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			label string
			n     int
		)
		if err := rows.Scan(&label, &n); err != nil {
			return out, fmt.Errorf("%w: sentiment breakdown: %w", types.ErrPersistence, err)
		}
		out[types.SentimentLabel(label)] = n
	}
	if err := rows.Err(); err != nil {
		return out, fmt.Errorf("%w: sentiment breakdown: %w", types.ErrPersistence, err)
	}
	return out, nil
}

// Stats summarizes the whole store
type Stats struct {
	Total        int                          `json:"total_records"`
	BySource     map[types.Provenance]int     `json:"by_source"`
	BySentiment  map[types.SentimentLabel]int `json:"by_sentiment"`
	LastScrapeAt time.Time                    `json:"last_scrape_at"`
}

// Stats returns store-wide counts
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	st := Stats{BySource: map[types.Provenance]int{}}

	var last *int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(scraped_at) FROM records`).Scan(&st.Total, &last)
	if err != nil {
		return st, fmt.Errorf("%w: stats: %w", types.ErrPersistence, err)
	}
	if last != nil {
		st.LastScrapeAt = time.Unix(0, *last).UTC()
	}

	rows, err := s.db.QueryContext(ctx, `SELECT source, COUNT(*) FROM records GROUP BY source`)
	if err != nil {
		return st, fmt.Errorf("%w: stats: %w", types.ErrPersistence, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			src string
			n   int
		)
		if err := rows.Scan(&src, &n); err != nil {
			return st, fmt.Errorf("%w: stats: %w", types.ErrPersistence, err)
		}
		st.BySource[types.Provenance(src)] = n
	}
	if err := rows.Err(); err != nil {
		return st, fmt.Errorf("%w: stats: %w", types.ErrPersistence, err)
	}

	st.BySentiment, err = s.sentimentBreakdown(ctx, math.MinInt64)
	if err != nil {
		return st, err
	}
	return st, nil
}
