package scraper

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ibeckermayer/tweetscope/internal/normalize"
	"github.com/ibeckermayer/tweetscope/internal/types"
)

// Timeline is one rendered Nitter page
type Timeline struct {
	Posts []types.RawPayload
	// Cursor is the absolute URL of the next page, empty on the last one
	Cursor      string
	RateLimited bool
}

var statusID = regexp.MustCompile(`/status/(\d+)`)

// ParseTimeline extracts browser-convention payloads from rendered Nitter HTML.
// pageURL resolves relative links such as media and the load-more cursor.
func ParseTimeline(html, pageURL string) (Timeline, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Timeline{}, fmt.Errorf("parse timeline: %w", err)
	}

	var tl Timeline
	doc.Find(TimelineItem).Not(".show-more").Each(func(_ int, item *goquery.Selection) {
		if item.Is(UnavailableItem) || item.Find(UnavailableItem).Length() > 0 {
			return
		}
		if p, ok := parseItem(item, pageURL); ok {
			tl.Posts = append(tl.Posts, p)
		}
	})

	tl.RateLimited = rateLimited(doc)
	tl.Cursor = cursor(doc, pageURL)
	return tl, nil
}

func parseItem(item *goquery.Selection, pageURL string) (types.RawPayload, bool) {
	href, _ := item.Find(TweetLink).First().Attr("href")
	m := statusID.FindStringSubmatch(href)
	if m == nil {
		return nil, false
	}

	content := item.Find(TweetContent).First()
	date := item.Find(TweetTimestamp).First()
	timestamp, ok := date.Attr("title")
	if !ok || timestamp == "" {
		timestamp = strings.TrimSpace(date.Text())
	}

	p := types.RawPayload{
		"id":           m[1],
		"username":     strings.TrimPrefix(strings.TrimSpace(item.Find(TweetUsername).First().Text()), "@"),
		"display_name": strings.TrimSpace(item.Find(TweetFullname).First().Text()),
		"text":         strings.TrimSpace(content.Text()),
		"timestamp":    timestamp,
		"verified":     item.Find(TweetVerified).Length() > 0,
		"likes":        "0",
		"retweets":     "0",
		"replies":      "0",
	}

	item.Find(TweetStat).Each(func(_ int, stat *goquery.Selection) {
		value := strings.TrimSpace(stat.Text())
		if value == "" {
			value = "0"
		}
		has := func(icon string) bool { return stat.Find("."+icon).Length() > 0 }
		switch {
		case has(IconReply):
			p["replies"] = value
		case has(IconRetweet):
			p["retweets"] = value
		case has(IconLike):
			p["likes"] = value
		case has(IconViews), has(IconPlay):
			p["views"] = value
		}
	})

	var hashtags, mentions, links []string
	content.Find("a").Each(func(_ int, a *goquery.Selection) {
		label := strings.TrimSpace(a.Text())
		target, _ := a.Attr("href")
		switch {
		case strings.HasPrefix(label, "#"):
			hashtags = append(hashtags, label[1:])
		case strings.HasPrefix(label, "@"):
			mentions = append(mentions, label[1:])
		case strings.HasPrefix(target, "http://"), strings.HasPrefix(target, "https://"):
			links = append(links, target)
		}
	})
	// Absent lists are recovered from the text during normalization
	if len(hashtags) > 0 {
		p["hashtags"] = hashtags
	}
	if len(mentions) > 0 {
		p["mentions"] = mentions
	}
	if len(links) > 0 {
		p["urls"] = links
	}

	var media []string
	item.Find(TweetMedia).Each(func(_ int, el *goquery.Selection) {
		for _, attr := range []string{"src", "poster", "data-url"} {
			if v, ok := el.Attr(attr); ok && v != "" {
				media = append(media, resolve(pageURL, v))
				return
			}
		}
	})
	if len(media) > 0 {
		p["media_urls"] = media
	}

	return p, true
}

var errNoProfileCard = errors.New("no profile card on page")

// ParseProfile extracts the profile card from a rendered Nitter profile page
func ParseProfile(html string) (types.Profile, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return types.Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if rateLimited(doc) {
		return types.Profile{}, errMirrorRateLimited
	}

	card := doc.Find(ProfileCard).First()
	if card.Length() == 0 {
		panel := strings.ToLower(doc.Find(ErrorPanel).Text())
		for _, marker := range unknownAccountMarkers {
			if strings.Contains(panel, marker) {
				return types.Profile{}, fmt.Errorf("%w: %s", types.ErrUnknownAccount, strings.TrimSpace(doc.Find(ErrorPanel).Text()))
			}
		}
		return types.Profile{}, errNoProfileCard
	}

	text := func(sel string) string {
		return strings.TrimSpace(card.Find(sel).First().Text())
	}
	return types.Profile{
		Handle:    strings.TrimPrefix(text(ProfileUsername), "@"),
		Name:      text(ProfileFullname),
		Bio:       text(ProfileBio),
		Location:  text(ProfileLocation),
		Followers: normalize.ParseMetric(text(ProfileFollowers)),
		Following: normalize.ParseMetric(text(ProfileFollowing)),
		Posts:     normalize.ParseMetric(text(ProfilePosts)),
		Verified:  card.Find(ProfileVerified).Length() > 0,
		Source:    types.ProvenanceBrowser,
	}, nil
}

// rateLimited looks only at the error panel and the page title. Post text and
// profile bios never mark a mirror as throttled.
func rateLimited(doc *goquery.Document) bool {
	text := strings.ToLower(doc.Find(ErrorPanel).Text() + " " + doc.Find("head title").Text())
	for _, marker := range rateLimitMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

// cursor returns the last load-more link carrying a pagination cursor
func cursor(doc *goquery.Document, pageURL string) string {
	var next string
	doc.Find(ShowMore).Each(func(_ int, a *goquery.Selection) {
		if href, ok := a.Attr("href"); ok && strings.Contains(href, "cursor=") {
			next = resolve(pageURL, href)
		}
	})
	return next
}

func resolve(pageURL, ref string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
