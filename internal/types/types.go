package types

import "time"

// Provenance identifies which retrieval strategy produced a record
type Provenance string

const (
	ProvenanceAPI     Provenance = "api"
	ProvenanceBrowser Provenance = "browser"
)

// SentimentLabel is the discrete sentiment bucket derived from a score
type SentimentLabel string

const (
	SentimentPositive SentimentLabel = "positive"
	SentimentNeutral  SentimentLabel = "neutral"
	SentimentNegative SentimentLabel = "negative"
)

// Valid reports whether l is one of the known labels
func (l SentimentLabel) Valid() bool {
	switch l {
	case SentimentPositive, SentimentNeutral, SentimentNegative:
		return true
	}
	return false
}

// Record is one normalized post with engagement and sentiment metadata
type Record struct {
	ID             string         `json:"id"`
	AuthorHandle   string         `json:"author_handle"`
	AuthorName     string         `json:"author_name"`
	Content        string         `json:"content"`
	CreatedAt      time.Time      `json:"created_at"`
	Likes          int            `json:"likes"`
	Reshares       int            `json:"reshares"`
	Replies        int            `json:"replies"`
	Views          *int           `json:"views,omitempty"`
	Verified       bool           `json:"verified"`
	Hashtags       []string       `json:"hashtags"`
	Mentions       []string       `json:"mentions"`
	URLs           []string       `json:"urls"`
	MediaURLs      []string       `json:"media_urls"`
	SentimentScore float64        `json:"sentiment_score"`
	SentimentLabel SentimentLabel `json:"sentiment_label"`
	ScrapedAt      time.Time      `json:"scraped_at"`
	Source         Provenance     `json:"source"`
}

// Engagement is the likes + reshares total used for filtering and ranking
func (r Record) Engagement() int {
	return r.Likes + r.Reshares
}

// Profile is an account's public profile as reported by one strategy
type Profile struct {
	Handle    string     `json:"handle"`
	Name      string     `json:"name"`
	Bio       string     `json:"bio"`
	Location  string     `json:"location,omitempty"`
	Followers int        `json:"followers"`
	Following int        `json:"following"`
	Posts     int        `json:"posts"`
	Verified  bool       `json:"verified"`
	Source    Provenance `json:"source"`
}

// RawPayload is a source-specific post as produced by a retrieval strategy.
// Field names differ per provenance; see the normalize package.
type RawPayload map[string]any

// DefaultQueryLimit bounds Query when Filter.Limit is unset
const DefaultQueryLimit = 100

// Filter holds caller-supplied read criteria. Zero values mean "no constraint".
type Filter struct {
	Author        string
	MinEngagement int
	Label         SentimentLabel
	Since         time.Time
	Limit         int
}

// HashtagTrend is the aggregate for one hashtag within a trending window
type HashtagTrend struct {
	Tag        string `json:"tag"`
	Mentions   int    `json:"mentions"`
	Engagement int    `json:"engagement"`
}

// AccountTrend is the aggregate for one author within a trending window
type AccountTrend struct {
	Handle     string `json:"username"`
	Posts      int    `json:"tweets"`
	Engagement int    `json:"engagement"`
}

// Trending is computed on demand from stored records; it is never persisted
type Trending struct {
	Window    time.Duration          `json:"window"`
	Since     time.Time              `json:"since"`
	Hashtags  []HashtagTrend         `json:"top_hashtags"`
	Accounts  []AccountTrend         `json:"top_accounts"`
	Sentiment map[SentimentLabel]int `json:"sentiment"`
}
