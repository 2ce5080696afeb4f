// Package normalize turns strategy-specific raw payloads into canonical Records.
//
// The API strategy emits payloads shaped like
//
//	{id, text, created_at, author_id, username, user_name, verified,
//	 metrics{likes, retweets, replies, quotes, impressions},
//	 hashtags, mentions, urls, media_urls}
//
// while the browser strategy emits
//
//	{id, username, display_name, text, timestamp,
//	 likes, retweets, replies, views, verified,
//	 hashtags, mentions, urls, media_urls}
//
// with counts as display strings ("1.2K").
package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

// schema lists the payload keys used by one provenance
type schema struct {
	id        string
	text      string
	created   string
	handle    string
	name      string
	verified  string
	metrics   string // nested map holding the counts, empty when counts are top level
	likes     string
	reshares  string
	replies   string
	views     string
	hashtags  string
	mentions  string
	urls      string
	mediaURLs string
}

var schemas = map[types.Provenance]schema{
	types.ProvenanceAPI: {
		id:        "id",
		text:      "text",
		created:   "created_at",
		handle:    "username",
		name:      "user_name",
		verified:  "verified",
		metrics:   "metrics",
		likes:     "likes",
		reshares:  "retweets",
		replies:   "replies",
		views:     "impressions",
		hashtags:  "hashtags",
		mentions:  "mentions",
		urls:      "urls",
		mediaURLs: "media_urls",
	},
	types.ProvenanceBrowser: {
		id:        "id",
		text:      "text",
		created:   "timestamp",
		handle:    "username",
		name:      "display_name",
		verified:  "verified",
		likes:     "likes",
		reshares:  "retweets",
		replies:   "replies",
		views:     "views",
		hashtags:  "hashtags",
		mentions:  "mentions",
		urls:      "urls",
		mediaURLs: "media_urls",
	},
}

// Normalize maps raw into a Record tagged with provenance p.
// A payload without an identifier or body text yields an error wrapping types.ErrMalformedRecord.
// The sentiment fields are left neutral; scoring is the caller's job.
func Normalize(raw types.RawPayload, p types.Provenance) (types.Record, error) {
	return normalizeAt(raw, p, time.Now().UTC())
}

func normalizeAt(raw types.RawPayload, p types.Provenance, now time.Time) (types.Record, error) {
	sc, ok := schemas[p]
	if !ok {
		return types.Record{}, fmt.Errorf("%w: unknown provenance %q", types.ErrMalformedRecord, p)
	}
	if raw == nil {
		return types.Record{}, fmt.Errorf("%w: empty payload", types.ErrMalformedRecord)
	}

	id := strings.TrimSpace(str(raw[sc.id]))
	if id == "" {
		return types.Record{}, fmt.Errorf("%w: missing %q", types.ErrMalformedRecord, sc.id)
	}
	text := strings.TrimSpace(str(raw[sc.text]))
	if text == "" {
		return types.Record{}, fmt.Errorf("%w: record %s missing %q", types.ErrMalformedRecord, id, sc.text)
	}

	counts := map[string]any(raw)
	if sc.metrics != "" {
		counts = asMap(raw[sc.metrics])
	}

	rec := types.Record{
		ID:             id,
		AuthorHandle:   strings.TrimPrefix(strings.TrimSpace(str(raw[sc.handle])), "@"),
		AuthorName:     strings.TrimSpace(str(raw[sc.name])),
		Content:        text,
		CreatedAt:      now,
		Likes:          count(counts[sc.likes]),
		Reshares:       count(counts[sc.reshares]),
		Replies:        count(counts[sc.replies]),
		Verified:       boolean(raw[sc.verified]),
		SentimentLabel: types.SentimentNeutral,
		ScrapedAt:      now,
		Source:         p,
	}

	if v, present := counts[sc.views]; present && v != nil && str(v) != "" {
		views := count(v)
		rec.Views = &views
	}

	if t, ok := parseTime(raw[sc.created]); ok {
		rec.CreatedAt = t
	}

	rec.Hashtags = entityList(raw[sc.hashtags], "#", func() []string { return Hashtags(text) })
	rec.Mentions = entityList(raw[sc.mentions], "@", func() []string { return Mentions(text) })
	rec.URLs = entityList(raw[sc.urls], "", func() []string { return URLs(text) })
	rec.MediaURLs = entityList(raw[sc.mediaURLs], "", func() []string { return []string{} })

	return rec, nil
}

// timeLayouts are tried in order; Nitter renders "Jan 2, 2006 · 3:04 PM UTC" in title attributes
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"Jan 2, 2006 · 3:04 PM MST",
	"2006-01-02 15:04:05",
	time.RubyDate,
}

func parseTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		if t.IsZero() {
			return time.Time{}, false
		}
		return t.UTC(), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC(), true
			}
		}
	}
	return time.Time{}, false
}

// entityList accepts a []string, a []any of strings or objects ({"tag"}, {"username"}, {"expanded_url"}),
// and falls back to extract when the payload has no list at all.
func entityList(v any, prefix string, extract func() []string) []string {
	var items []string
	switch list := v.(type) {
	case nil:
		return extract()
	case []string:
		items = list
	case []any:
		for _, item := range list {
			switch e := item.(type) {
			case string:
				items = append(items, e)
			case map[string]any:
				for _, key := range []string{"tag", "username", "expanded_url", "url"} {
					if s := str(e[key]); s != "" {
						items = append(items, s)
						break
					}
				}
			}
		}
	default:
		return extract()
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		item = strings.TrimPrefix(strings.TrimSpace(item), prefix)
		if item == "" || seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
	}
	return out
}

func str(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	case int64:
		return strconv.FormatInt(s, 10)
	case fmt.Stringer:
		return s.String()
	}
	return fmt.Sprint(v)
}

func count(v any) int {
	var n int
	switch c := v.(type) {
	case nil:
		return 0
	case int:
		n = c
	case int64:
		n = int(c)
	case float64:
		n = int(c)
	case json.Number:
		i, err := c.Int64()
		if err != nil {
			return ParseMetric(c.String())
		}
		n = int(i)
	case string:
		n = ParseMetric(c)
	}
	if n < 0 {
		return 0
	}
	return n
}

func boolean(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, _ := strconv.ParseBool(b)
		return parsed
	}
	return false
}

func asMap(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case types.RawPayload:
		return m
	case map[string]int:
		out := make(map[string]any, len(m))
		for k, n := range m {
			out[k] = n
		}
		return out
	}
	return map[string]any{}
}
