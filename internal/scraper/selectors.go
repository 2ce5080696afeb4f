package scraper

// Nitter DOM selectors
// These are isolated here because mirrors run different Nitter versions
// Update these when scraping breaks

const (
	// Timeline selectors
	TimelineItem = `.timeline-item`
	ShowMore     = `.show-more a`
	ErrorPanel   = `.error-panel`

	// Tweet content selectors
	TweetLink      = `a.tweet-link`
	TweetUsername  = `.tweet-header .username`
	TweetFullname  = `.tweet-header .fullname`
	TweetVerified  = `.tweet-header .verified-icon`
	TweetContent   = `.tweet-content`
	TweetTimestamp = `.tweet-date a`
	TweetMedia     = `.attachments img, .attachments video, .attachments source`

	// Engagement selectors
	TweetStat   = `.tweet-stats .tweet-stat`
	IconReply   = `icon-comment`
	IconRetweet = `icon-retweet`
	IconLike    = `icon-heart`
	IconViews   = `icon-views`
	IconPlay    = `icon-play`

	// Items that are not posts
	UnavailableItem = `.unavailable`

	// Profile card selectors, relative to ProfileCard
	ProfileCard      = `.profile-card`
	ProfileFullname  = `.profile-card-fullname`
	ProfileUsername  = `.profile-card-username`
	ProfileVerified  = `.verified-icon`
	ProfileBio       = `.profile-bio`
	ProfileLocation  = `.profile-location`
	ProfilePosts     = `.profile-statlist .posts .profile-stat-num`
	ProfileFollowing = `.profile-statlist .following .profile-stat-num`
	ProfileFollowers = `.profile-statlist .followers .profile-stat-num`
)

// Common wait conditions
const (
	WaitForTimeline = TimelineItem
)

// Page text that marks a mirror as throttled
var rateLimitMarkers = []string{"rate limited", "rate-limited", "too many requests"}

// Error panel text for a handle the mirror does not know
var unknownAccountMarkers = []string{"not found", "doesn't exist", "does not exist"}
