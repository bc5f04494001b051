package chat

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/lakeside-dental/internal/knowledge"
)

const (
	retrievalLimit    = 3
	gatewayMatchLimit = 4
	maxSummaryLength  = 280
)

// PageMatch is a scored page-knowledge entry.
type PageMatch struct {
	Entry   knowledge.PageEntry
	Score   int
	Summary string
}

// retrievePages scores every page entry by how many tokens occur in its
// keyword blob and returns the best limit entries, keeping registry order
// between equal scores.
func retrievePages(kb *knowledge.Base, tokens []string, limit int) []PageMatch {
	if len(tokens) == 0 {
		return nil
	}
	var matches []PageMatch
	for _, entry := range kb.PageIndex() {
		score := 0
		for _, t := range tokens {
			if strings.Contains(entry.Keywords, t) {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, PageMatch{Entry: entry, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	for i := range matches {
		matches[i].Summary = pageSummary(kb, matches[i].Entry)
	}
	return matches
}

// pageSummary joins the page description with the first supplemental block.
func pageSummary(kb *knowledge.Base, entry knowledge.PageEntry) string {
	var parts []string
	if d := strings.TrimSpace(entry.Description); d != "" {
		parts = append(parts, d)
	}
	if block, ok := kb.FirstBlock(entry.Path); ok {
		if h := strings.TrimSpace(block.Heading); h != "" {
			parts = append(parts, h+".")
		}
		if len(block.Paragraphs) > 0 {
			if p := strings.TrimSpace(block.Paragraphs[0]); p != "" {
				parts = append(parts, p)
			}
		}
		if len(block.Bullets) > 0 {
			parts = append(parts, strings.Join(block.Bullets, "; ")+".")
		}
	}
	return truncate(strings.Join(parts, " "), maxSummaryLength)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimRight(string(runes[:max-1]), " ") + "…"
}

// shortTitle drops the practice suffix from an SEO title.
func shortTitle(title string) string {
	if i := strings.Index(title, " | "); i > 0 {
		title = title[:i]
	}
	return truncate(strings.TrimSpace(title), MaxActionLabel)
}

func retrievalReply(kb *knowledge.Base, matches []PageMatch, pathname string) Reply {
	actions := make([]Action, 0, len(matches))
	for _, m := range matches {
		actions = append(actions, Action{Label: shortTitle(m.Entry.Title), Href: m.Entry.Path})
	}
	if top := matches[0]; top.Summary != "" {
		return Reply{
			Message: fmt.Sprintf("Here's what we say on the site about %s: %s", shortTitle(top.Entry.Title), top.Summary),
			Actions: actions,
			Source:  SourceKnowledgeBase,
		}
	}
	current := "this page"
	if entry, ok := kb.Page(pathname); ok && entry.Title != "" {
		current = shortTitle(entry.Title)
	}
	return Reply{
		Message: fmt.Sprintf("I couldn't find a direct answer, but these pages may help. You're currently viewing %s.", current),
		Actions: actions,
		Source:  SourceKnowledgeBase,
	}
}
