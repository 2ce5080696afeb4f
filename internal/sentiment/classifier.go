// Package sentiment scores post text with a general lexicon (VADER) and a
// domain vocabulary that dominates the score when domain tokens appear.
package sentiment

import (
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"github.com/jonreiter/govader"

	"github.com/ibeckermayer/tweetscope/internal/types"
)

const (
	// DomainWeight is the share of the final score taken by the domain vocabulary when present
	DomainWeight = 0.7

	// PositiveThreshold and NegativeThreshold split scores into labels
	PositiveThreshold = 0.1
	NegativeThreshold = -0.1
)

var urlPattern = regexp.MustCompile(`https?://\S+|www\.\S+`)

// LabelFor maps a score to its label. Every Record label is derived through this function.
func LabelFor(score float64) types.SentimentLabel {
	switch {
	case score > PositiveThreshold:
		return types.SentimentPositive
	case score < NegativeThreshold:
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}

// Classifier holds an instance-scoped domain vocabulary.
// A word belongs to at most one of the two sets; the most recent Add wins.
type Classifier struct {
	analyzer *govader.SentimentIntensityAnalyzer

	mu       sync.RWMutex
	positive map[string]bool
	negative map[string]bool
}

// New creates a classifier seeded with the default crypto vocabulary
func New() *Classifier {
	c := NewEmpty()
	c.AddPositive(defaultPositive...)
	c.AddNegative(defaultNegative...)
	return c
}

// NewEmpty creates a classifier with no domain vocabulary (plain VADER)
func NewEmpty() *Classifier {
	return &Classifier{
		analyzer: govader.NewSentimentIntensityAnalyzer(),
		positive: make(map[string]bool),
		negative: make(map[string]bool),
	}
}

// AddPositive extends the positive vocabulary. Takes effect on the next Analyze call.
func (c *Classifier) AddPositive(words ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range words {
		if w = normalizeWord(w); w != "" {
			c.positive[w] = true
			delete(c.negative, w)
		}
	}
}

// AddNegative extends the negative vocabulary. Takes effect on the next Analyze call.
func (c *Classifier) AddNegative(words ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, w := range words {
		if w = normalizeWord(w); w != "" {
			c.negative[w] = true
			delete(c.positive, w)
		}
	}
}

// Analyze returns the polarity score in [-1, 1] and its label.
//
// With p positive and n negative domain tokens, the score is
// DomainWeight*(p-n)/(p+n) + (1-DomainWeight)*base, where base is the VADER
// compound score of the text with URLs and domain tokens removed.
// Without domain tokens the score is base.
func (c *Classifier) Analyze(text string) (float64, types.SentimentLabel) {
	c.mu.RLock()
	p, n, rest := c.split(text)
	c.mu.RUnlock()

	base := 0.0
	if rest != "" {
		base = c.analyzer.PolarityScores(rest).Compound
	}

	score := base
	if total := p + n; total > 0 {
		domain := float64(p-n) / float64(total)
		score = DomainWeight*domain + (1-DomainWeight)*base
	}

	score = clamp(score)
	return score, LabelFor(score)
}

// split counts domain tokens and returns the remaining text for the general lexicon.
// Symbols (emoji) are counted as substrings; words as whitespace tokens with punctuation trimmed.
func (c *Classifier) split(text string) (pos, neg int, rest string) {
	text = urlPattern.ReplaceAllString(text, " ")

	for _, sym := range c.symbols() {
		n := strings.Count(text, sym)
		if n == 0 {
			continue
		}
		if c.positive[sym] {
			pos += n
		} else {
			neg += n
		}
		text = strings.ReplaceAll(text, sym, " ")
	}

	kept := make([]string, 0, 16)
	for _, tok := range strings.Fields(text) {
		w := normalizeWord(tok)
		switch {
		case c.positive[w]:
			pos++
		case c.negative[w]:
			neg++
		default:
			kept = append(kept, tok)
		}
	}

	return pos, neg, strings.Join(kept, " ")
}

// symbols returns the symbol entries of both sets, longest first, so a
// sequence is consumed before any shorter symbol it contains
func (c *Classifier) symbols() []string {
	var out []string
	for _, set := range []map[string]bool{c.positive, c.negative} {
		for w := range set {
			if isSymbol(w) {
				out = append(out, w)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

func normalizeWord(w string) string {
	return strings.ToLower(strings.TrimFunc(strings.TrimSpace(w), unicode.IsPunct))
}

// isSymbol reports whether a vocabulary entry is an emoji-like symbol rather than a word
func isSymbol(w string) bool {
	r, _ := utf8.DecodeRuneInString(w)
	return r != utf8.RuneError && !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

func clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
