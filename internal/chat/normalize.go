package chat

import (
	"regexp"
	"strings"
)

const (
	minTokenLength = 3
	maxTokens      = 16
)

var (
	nonWordPattern    = regexp.MustCompile(`[^a-z0-9\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	tokenPattern      = regexp.MustCompile(`[a-z0-9]+`)
)

// NormalizeWords lowercases text, replaces anything outside [a-z0-9\s] with a
// space and collapses whitespace.
func NormalizeWords(text string) string {
	text = nonWordPattern.ReplaceAllString(strings.ToLower(text), " ")
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// Tokenize returns the first 16 alphanumeric runs of at least 3 characters.
func Tokenize(text string) []string {
	runs := tokenPattern.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, maxTokens)
	for _, run := range runs {
		if len(run) < minTokenLength {
			continue
		}
		tokens = append(tokens, run)
		if len(tokens) == maxTokens {
			break
		}
	}
	return tokens
}

// Query is the normalized form of one incoming message.
type Query struct {
	Text   string
	Tokens []string
	raw    string
	set    map[string]struct{}
}

// NewQuery normalizes and tokenizes message.
func NewQuery(message string) Query {
	tokens := Tokenize(message)
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		set[t] = struct{}{}
	}
	return Query{Text: NormalizeWords(message), Tokens: tokens, raw: message, set: set}
}

// Raw returns the message as received.
func (q Query) Raw() string {
	return q.raw
}

// Has reports whether token is present.
func (q Query) Has(token string) bool {
	_, ok := q.set[token]
	return ok
}

// HasAny reports whether any of the tokens is present.
func (q Query) HasAny(tokens ...string) bool {
	for _, t := range tokens {
		if q.Has(t) {
			return true
		}
	}
	return false
}

// ContainsAny reports whether the normalized text contains any phrase.
func (q Query) ContainsAny(phrases ...string) bool {
	for _, p := range phrases {
		if strings.Contains(q.Text, p) {
			return true
		}
	}
	return false
}

// matchTerms reports terms found in q. Multi-word terms are matched
// against the normalized text, single words against the token set.
func (q Query) matchTerms(terms []string) []string {
	var hits []string
	for _, term := range terms {
		if strings.Contains(term, " ") {
			if strings.Contains(q.Text, term) {
				hits = append(hits, term)
			}
			continue
		}
		if q.Has(term) {
			hits = append(hits, term)
		}
	}
	return hits
}
