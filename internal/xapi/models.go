package xapi

import (
	"github.com/ibeckermayer/tweetscope/internal/types"
)

// Wire shapes of the X API v2 responses we read

type user struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	Verified      bool   `json:"verified"`
	Description   string `json:"description"`
	Location      string `json:"location"`
	PublicMetrics struct {
		FollowersCount int `json:"followers_count"`
		FollowingCount int `json:"following_count"`
		TweetCount     int `json:"tweet_count"`
	} `json:"public_metrics"`
}

func (u user) profile() types.Profile {
	return types.Profile{
		Handle:    u.Username,
		Name:      u.Name,
		Bio:       u.Description,
		Location:  u.Location,
		Followers: u.PublicMetrics.FollowersCount,
		Following: u.PublicMetrics.FollowingCount,
		Posts:     u.PublicMetrics.TweetCount,
		Verified:  u.Verified,
		Source:    types.ProvenanceAPI,
	}
}

type userResponse struct {
	Data *user `json:"data"`
}

type publicMetrics struct {
	RetweetCount    int  `json:"retweet_count"`
	ReplyCount      int  `json:"reply_count"`
	LikeCount       int  `json:"like_count"`
	QuoteCount      int  `json:"quote_count"`
	ImpressionCount *int `json:"impression_count"`
}

type entities struct {
	Hashtags []struct {
		Tag string `json:"tag"`
	} `json:"hashtags"`
	Mentions []struct {
		Username string `json:"username"`
	} `json:"mentions"`
	URLs []struct {
		URL         string `json:"url"`
		ExpandedURL string `json:"expanded_url"`
	} `json:"urls"`
}

type tweet struct {
	ID            string        `json:"id"`
	Text          string        `json:"text"`
	CreatedAt     string        `json:"created_at"`
	AuthorID      string        `json:"author_id"`
	PublicMetrics publicMetrics `json:"public_metrics"`
	Entities      entities      `json:"entities"`
	Attachments   struct {
		MediaKeys []string `json:"media_keys"`
	} `json:"attachments"`
}

type media struct {
	MediaKey        string `json:"media_key"`
	URL             string `json:"url"`
	PreviewImageURL string `json:"preview_image_url"`
}

type page struct {
	Data     []tweet `json:"data"`
	Includes struct {
		Users []user  `json:"users"`
		Media []media `json:"media"`
	} `json:"includes"`
	Meta struct {
		ResultCount int    `json:"result_count"`
		NextToken   string `json:"next_token"`
	} `json:"meta"`
}

// payloads converts a page to raw payloads in the API field convention.
// fallback supplies author info when the page has no user expansion (timelines).
func (p page) payloads(fallback *user) []types.RawPayload {
	users := make(map[string]user, len(p.Includes.Users)+1)
	if fallback != nil {
		users[fallback.ID] = *fallback
	}
	for _, u := range p.Includes.Users {
		users[u.ID] = u
	}
	mediaURLs := make(map[string]string, len(p.Includes.Media))
	for _, m := range p.Includes.Media {
		if m.URL != "" {
			mediaURLs[m.MediaKey] = m.URL
		} else if m.PreviewImageURL != "" {
			mediaURLs[m.MediaKey] = m.PreviewImageURL
		}
	}

	out := make([]types.RawPayload, 0, len(p.Data))
	for _, t := range p.Data {
		author := users[t.AuthorID]

		metrics := map[string]any{
			"likes":    t.PublicMetrics.LikeCount,
			"retweets": t.PublicMetrics.RetweetCount,
			"replies":  t.PublicMetrics.ReplyCount,
			"quotes":   t.PublicMetrics.QuoteCount,
		}
		if t.PublicMetrics.ImpressionCount != nil {
			metrics["impressions"] = *t.PublicMetrics.ImpressionCount
		}

		hashtags := make([]string, 0, len(t.Entities.Hashtags))
		for _, h := range t.Entities.Hashtags {
			hashtags = append(hashtags, h.Tag)
		}
		mentions := make([]string, 0, len(t.Entities.Mentions))
		for _, m := range t.Entities.Mentions {
			mentions = append(mentions, m.Username)
		}
		urls := make([]string, 0, len(t.Entities.URLs))
		for _, u := range t.Entities.URLs {
			if u.ExpandedURL != "" {
				urls = append(urls, u.ExpandedURL)
			} else {
				urls = append(urls, u.URL)
			}
		}
		attached := make([]string, 0, len(t.Attachments.MediaKeys))
		for _, key := range t.Attachments.MediaKeys {
			if u, ok := mediaURLs[key]; ok {
				attached = append(attached, u)
			}
		}

		out = append(out, types.RawPayload{
			"id":         t.ID,
			"text":       t.Text,
			"created_at": t.CreatedAt,
			"author_id":  t.AuthorID,
			"username":   author.Username,
			"user_name":  author.Name,
			"verified":   author.Verified,
			"metrics":    metrics,
			"hashtags":   hashtags,
			"mentions":   mentions,
			"urls":       urls,
			"media_urls": attached,
		})
	}
	return out
}
