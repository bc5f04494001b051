package chat

import (
	"strings"

	"github.com/wolfman30/lakeside-dental/internal/knowledge"
)

const minFAQScore = 2

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "you": {}, "your": {}, "yours": {},
	"what": {}, "how": {}, "when": {}, "why": {}, "who": {}, "which": {},
	"can": {}, "does": {}, "did": {}, "with": {}, "that": {}, "this": {}, "from": {},
	"has": {}, "was": {}, "were": {}, "will": {}, "would": {}, "should": {}, "could": {},
	"about": {}, "into": {}, "our": {}, "ours": {}, "out": {}, "any": {}, "all": {},
	"not": {}, "but": {}, "get": {}, "there": {}, "their": {}, "they": {}, "them": {},
	"then": {}, "than": {}, "its": {}, "also": {}, "just": {}, "may": {}, "some": {},
	"tell": {}, "please": {}, "been": {}, "being": {}, "had": {}, "here": {},
}

var (
	firstVisitFollowUps = []string{
		"How long does a first visit take?",
		"Can I fill out new patient forms online?",
	}
	genericFollowUps = []string{
		"How do I schedule an appointment?",
		"What services do you offer?",
	}
)

type faqEntry struct {
	faq        knowledge.FAQ
	normalized string
	words      map[string]struct{}
	answer     string
}

func buildFAQIndex(faqs []knowledge.FAQ) []faqEntry {
	entries := make([]faqEntry, 0, len(faqs))
	for _, f := range faqs {
		normalized := NormalizeWords(f.Question)
		words := make(map[string]struct{})
		for _, w := range strings.Fields(normalized) {
			if len(w) >= minTokenLength {
				words[w] = struct{}{}
			}
		}
		entries = append(entries, faqEntry{
			faq:        f,
			normalized: normalized,
			words:      words,
			answer:     strings.ToLower(f.Answer),
		})
	}
	return entries
}

// meaningfulTokens drops stopwords.
func meaningfulTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// matchFAQ returns the best scoring FAQ entry. The first entry to reach the
// top score wins; scores below minFAQScore are rejected.
func matchFAQ(entries []faqEntry, q Query) (knowledge.FAQ, bool) {
	tokens := meaningfulTokens(q.Tokens)
	best := -1
	bestScore := 0
	for i, e := range entries {
		questionScore := 0
		answerScore := 0
		for _, t := range tokens {
			if _, ok := e.words[t]; ok {
				questionScore++
			}
			if strings.Contains(e.answer, t) {
				answerScore++
			}
		}
		exact := e.normalized != "" && strings.Contains(q.Text, e.normalized)
		if questionScore == 0 && !exact {
			continue
		}
		score := questionScore + answerScore
		if exact && score < minFAQScore {
			score = minFAQScore
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	if best < 0 || bestScore < minFAQScore {
		return knowledge.FAQ{}, false
	}
	return entries[best].faq, true
}

func faqReply(f knowledge.FAQ) Reply {
	prompts := genericFollowUps
	if strings.Contains(strings.ToLower(f.Question), "first") {
		prompts = firstVisitFollowUps
	}
	return Reply{
		Message:          f.Answer,
		Actions:          []Action{{Label: "Contact us", Href: "/contact"}},
		SuggestedPrompts: append([]string(nil), prompts...),
		Source:           SourceKnowledgeBase,
	}
}
