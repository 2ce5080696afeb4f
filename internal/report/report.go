// Package report builds intelligence reports over a window of stored records.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

// Limits on report sections
const (
	MaxTopPosts      = 30
	MaxAlertExamples = 5
)

// AlertType names an alert condition
type AlertType string

const (
	AlertHighEngagement    AlertType = "high_engagement"
	AlertPositiveSentiment AlertType = "positive_sentiment_spike"
	AlertNegativeSentiment AlertType = "negative_sentiment_spike"
)

// Options control thresholds and keyword groups
type Options struct {
	Window                  time.Duration
	HighEngagementThreshold int
	SentimentThreshold      float64
	// Keywords maps a category to the keywords counted in its mentions
	Keywords map[string][]string
}

// Report is a point-in-time summary of the records in a window
type Report struct {
	ID               string                       `json:"id"`
	GeneratedAt      time.Time                    `json:"generated_at"`
	WindowHours      float64                      `json:"time_period_hours"`
	Summary          Summary                      `json:"summary"`
	Sentiment        map[types.SentimentLabel]int `json:"sentiment_analysis"`
	TrendingHashtags []types.HashtagTrend         `json:"trending_hashtags"`
	ActiveAccounts   []types.AccountTrend         `json:"most_active_accounts"`
	TopPosts         []types.Record               `json:"top_tweets_by_engagement"`
	Alerts           []Alert                      `json:"alerts"`
	KeywordMentions  map[string]KeywordStats      `json:"keyword_mentions"`
}

type Summary struct {
	TotalRecords    int `json:"total_tweets_analyzed"`
	UniqueAccounts  int `json:"unique_accounts"`
	TotalEngagement int `json:"total_engagement"`
}

type Alert struct {
	Type     AlertType      `json:"type"`
	Count    int            `json:"count"`
	Message  string         `json:"message"`
	Examples []types.Record `json:"examples,omitempty"`
}

type KeywordStats struct {
	Mentions     int     `json:"mentions"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

// Build assembles a report from the records created inside the window and the
// trending aggregate over the same window
func Build(recs []types.Record, trending types.Trending, opts Options, now time.Time) *Report {
	r := &Report{
		ID:               uuid.NewString(),
		GeneratedAt:      now.UTC(),
		WindowHours:      opts.Window.Hours(),
		Sentiment:        trending.Sentiment,
		TrendingHashtags: trending.Hashtags,
		ActiveAccounts:   trending.Accounts,
		TopPosts:         TopPosts(recs, MaxTopPosts),
		Alerts:           Alerts(recs, opts.HighEngagementThreshold, opts.SentimentThreshold),
		KeywordMentions:  KeywordMentions(recs, opts.Keywords),
	}
	if r.Sentiment == nil {
		r.Sentiment = map[types.SentimentLabel]int{}
	}

	accounts := make(map[string]bool)
	for _, rec := range recs {
		accounts[strings.ToLower(rec.AuthorHandle)] = true
		r.Summary.TotalEngagement += rec.Engagement()
	}
	r.Summary.TotalRecords = len(recs)
	r.Summary.UniqueAccounts = len(accounts)
	return r
}

// Score ranks posts for the report; reshares weigh double
func Score(r types.Record) int {
	return r.Likes + 2*r.Reshares
}

// TopPosts returns up to n records ordered by Score, newest first on ties
func TopPosts(recs []types.Record, n int) []types.Record {
	sorted := make([]types.Record, len(recs))
	copy(sorted, recs)
	sort.SliceStable(sorted, func(i, j int) bool {
		si, sj := Score(sorted[i]), Score(sorted[j])
		if si != sj {
			return si > sj
		}
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Alerts flags engagement above highEngagement and sentiment beyond ±sentimentThreshold
func Alerts(recs []types.Record, highEngagement int, sentimentThreshold float64) []Alert {
	var high, positive, negative []types.Record
	for _, r := range recs {
		if r.Engagement() > highEngagement {
			high = append(high, r)
		}
		switch {
		case r.SentimentScore > sentimentThreshold:
			positive = append(positive, r)
		case r.SentimentScore < -sentimentThreshold:
			negative = append(negative, r)
		}
	}

	alerts := []Alert{}
	if len(high) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertHighEngagement,
			Count:    len(high),
			Message:  fmt.Sprintf("%d posts with engagement above %d", len(high), highEngagement),
			Examples: high[:min(len(high), MaxAlertExamples)],
		})
	}
	if len(positive) > 0 {
		alerts = append(alerts, Alert{
			Type:    AlertPositiveSentiment,
			Count:   len(positive),
			Message: fmt.Sprintf("%d very positive posts detected", len(positive)),
		})
	}
	if len(negative) > 0 {
		alerts = append(alerts, Alert{
			Type:    AlertNegativeSentiment,
			Count:   len(negative),
			Message: fmt.Sprintf("%d very negative posts detected", len(negative)),
		})
	}
	return alerts
}

// KeywordMentions counts, per category, the records mentioning any of its keywords
// (case-insensitive substring) and their mean sentiment
func KeywordMentions(recs []types.Record, keywords map[string][]string) map[string]KeywordStats {
	out := make(map[string]KeywordStats, len(keywords))
	for category, words := range keywords {
		var stats KeywordStats
		var total float64
		for _, r := range recs {
			text := strings.ToLower(r.Content)
			for _, w := range words {
				if w = strings.ToLower(strings.TrimSpace(w)); w != "" && strings.Contains(text, w) {
					stats.Mentions++
					total += r.SentimentScore
					break
				}
			}
		}
		if stats.Mentions > 0 {
			stats.AvgSentiment = total / float64(stats.Mentions)
		}
		out[category] = stats
	}
	return out
}

// Path returns a timestamped report file path inside dir
func Path(dir, ext string, at time.Time) string {
	return filepath.Join(dir, "intelligence_report_"+at.Format("20060102_150405")+"."+ext)
}

// WriteJSON writes the report as indented JSON
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Subject is the e-mail subject line for the report's alerts
func (r *Report) Subject() string {
	return fmt.Sprintf("tweetscope: %d alerts in the last %s", len(r.Alerts), formatWindow(r.WindowHours))
}

// PlainText renders a short text version of the report
func (r *Report) PlainText() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Intelligence report, last %s\n", formatWindow(r.WindowHours))
	fmt.Fprintf(&buf, "Generated %s\n\n", r.GeneratedAt.Format(time.RFC1123))
	fmt.Fprintf(&buf, "Posts: %d  Accounts: %d  Engagement: %d\n",
		r.Summary.TotalRecords, r.Summary.UniqueAccounts, r.Summary.TotalEngagement)
	fmt.Fprintf(&buf, "Sentiment: %d positive, %d neutral, %d negative\n\n",
		r.Sentiment[types.SentimentPositive], r.Sentiment[types.SentimentNeutral], r.Sentiment[types.SentimentNegative])

	if len(r.Alerts) > 0 {
		buf.WriteString("Alerts:\n")
		for _, a := range r.Alerts {
			fmt.Fprintf(&buf, "  - %s\n", a.Message)
			for _, ex := range a.Examples {
				fmt.Fprintf(&buf, "      @%s (%d): %s\n", ex.AuthorHandle, ex.Engagement(), truncate(ex.Content, 120))
			}
		}
		buf.WriteString("\n")
	}

	for i, p := range r.TopPosts {
		if i == 10 {
			break
		}
		fmt.Fprintf(&buf, "%d. @%s [%d]: %s\n", i+1, p.AuthorHandle, Score(p), truncate(p.Content, 140))
	}
	return buf.String()
}

func formatWindow(hours float64) string {
	s := time.Duration(hours * float64(time.Hour)).String()
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
