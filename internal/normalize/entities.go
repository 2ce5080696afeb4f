package normalize

import (
	"regexp"
	"strings"
)

var (
	hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	mentionRe = regexp.MustCompile(`@([A-Za-z0-9_]+)`)
	urlRe     = regexp.MustCompile(`https?://[^\s<>"]+`)
)

// Hashtags returns the hashtags in text, without '#', in order of first appearance
func Hashtags(text string) []string {
	return submatches(hashtagRe, text)
}

// Mentions returns the mentioned handles in text, without '@', in order of first appearance
func Mentions(text string) []string {
	return submatches(mentionRe, text)
}

// URLs returns the http(s) links in text in order of first appearance
func URLs(text string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, u := range urlRe.FindAllString(text, -1) {
		u = strings.TrimRight(u, ".,;:!?)]}'")
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

func submatches(re *regexp.Regexp, text string) []string {
	out := []string{}
	seen := make(map[string]bool)
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		out = append(out, m[1])
	}
	return out
}
