package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"window":   formatWindow,
	"truncate": truncate,
	"score":    Score,
	"signed":   func(f float64) string { return fmt.Sprintf("%+.2f", f) },
	"lower":    strings.ToLower,
	"label": func(m map[types.SentimentLabel]int, l string) int {
		return m[types.SentimentLabel(l)]
	},
}).Parse(defaultTemplate))

// RenderHTML writes the report as a standalone HTML page
func (r *Report) RenderHTML(w io.Writer) error {
	if err := htmlTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	return nil
}

const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>Intelligence report, last {{window .WindowHours}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 720px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #1da1f2; margin-bottom: 5px; }
        h2 { color: #333; border-bottom: 1px solid #eee; padding-bottom: 4px; margin-top: 28px; }
        .date { color: #666; margin-bottom: 20px; }
        .stats span { display: inline-block; margin-right: 18px; }
        .alert { background: #fff4e5; border-left: 4px solid #f5a623; padding: 8px 12px; margin: 8px 0; }
        .post { border-bottom: 1px solid #eee; padding: 12px 0; }
        .post:last-child { border-bottom: none; }
        .author { font-weight: bold; color: #333; }
        .handle { color: #666; }
        .content { margin: 8px 0; line-height: 1.4; }
        .metrics { color: #666; font-size: 13px; }
        .positive { color: #17bf63; }
        .negative { color: #e0245e; }
        table { border-collapse: collapse; width: 100%; }
        td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #f0f0f0; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Intelligence report</h1>
        <div class="date">Last {{window .WindowHours}} · generated {{.GeneratedAt.Format "Mon, 02 Jan 2006 15:04 MST"}}</div>

        <div class="stats">
            <span>{{.Summary.TotalRecords}} posts</span>
            <span>{{.Summary.UniqueAccounts}} accounts</span>
            <span>{{.Summary.TotalEngagement}} engagement</span>
        </div>
        <div class="stats">
            <span class="positive">{{label .Sentiment "positive"}} positive</span>
            <span>{{label .Sentiment "neutral"}} neutral</span>
            <span class="negative">{{label .Sentiment "negative"}} negative</span>
        </div>

        {{if .Alerts}}
        <h2>Alerts</h2>
        {{range .Alerts}}
        <div class="alert">{{.Message}}
            {{range .Examples}}<div class="metrics">@{{.AuthorHandle}} · {{.Engagement}} · {{truncate .Content 120}}</div>{{end}}
        </div>
        {{end}}
        {{end}}

        {{if .TrendingHashtags}}
        <h2>Trending hashtags</h2>
        <table>
            <tr><th>Hashtag</th><th>Mentions</th><th>Engagement</th></tr>
            {{range .TrendingHashtags}}<tr><td>#{{.Tag}}</td><td>{{.Mentions}}</td><td>{{.Engagement}}</td></tr>{{end}}
        </table>
        {{end}}

        {{if .ActiveAccounts}}
        <h2>Most active accounts</h2>
        <table>
            <tr><th>Account</th><th>Posts</th><th>Engagement</th></tr>
            {{range .ActiveAccounts}}<tr><td>@{{.Handle}}</td><td>{{.Posts}}</td><td>{{.Engagement}}</td></tr>{{end}}
        </table>
        {{end}}

        {{if .KeywordMentions}}
        <h2>Keyword mentions</h2>
        <table>
            <tr><th>Category</th><th>Mentions</th><th>Avg sentiment</th></tr>
            {{range $category, $stats := .KeywordMentions}}<tr><td>{{$category}}</td><td>{{$stats.Mentions}}</td><td>{{signed $stats.AvgSentiment}}</td></tr>{{end}}
        </table>
        {{end}}

        {{if .TopPosts}}
        <h2>Top posts</h2>
        {{range .TopPosts}}
        <div class="post">
            <div class="author">{{.AuthorName}} <span class="handle">@{{.AuthorHandle}}</span></div>
            <div class="content">{{.Content}}</div>
            <div class="metrics">{{.Likes}} likes · {{.Reshares}} reposts · {{.Replies}} replies · score {{score .}} ·
                <span class="{{lower (print .SentimentLabel)}}">{{.SentimentLabel}} {{signed .SentimentScore}}</span></div>
        </div>
        {{end}}
        {{end}}

        <div class="footer">
            Report {{.ID}} · Generated by tweetscope
        </div>
    </div>
</body>
</html>`
