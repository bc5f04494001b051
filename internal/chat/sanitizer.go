package chat

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// RawReply is an untrusted reply payload as returned by the gateway. Only
// Sanitize turns it into a Reply.
type RawReply []byte

// emptyReply is returned when the payload cannot be parsed at all.
var emptyReply = Reply{Message: "", Source: SourceLLM}

// Sanitize validates raw against the reply shape. Unsafe or malformed fields
// are dropped or reset. ok is false when the payload is unusable, in which
// case callers must discard the returned Reply.
func Sanitize(raw RawReply) (reply Reply, ok bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return emptyReply, false
	}

	var message string
	if err := json.Unmarshal(fields["message"], &message); err != nil {
		return emptyReply, false
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return emptyReply, false
	}

	reply = Reply{
		Message:          message,
		Actions:          sanitizeActions(fields["actions"]),
		SuggestedPrompts: sanitizePrompts(fields["suggestedPrompts"]),
		Source:           SourceKnowledgeBase,
	}
	var source string
	if json.Unmarshal(fields["source"], &source) == nil && source == SourceLLM {
		reply.Source = SourceLLM
	}
	return reply, true
}

func sanitizeActions(raw json.RawMessage) []Action {
	var items []json.RawMessage
	if !isArray(raw) || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	var actions []Action
	for _, item := range items {
		if len(actions) == MaxActions {
			break
		}
		var obj map[string]json.RawMessage
		if json.Unmarshal(item, &obj) != nil || obj == nil {
			continue
		}
		var label, href string
		if json.Unmarshal(obj["label"], &label) != nil || json.Unmarshal(obj["href"], &href) != nil {
			continue
		}
		label = strings.TrimSpace(label)
		href = strings.TrimSpace(href)
		if n := utf8.RuneCountInString(label); n < 1 || n > MaxActionLabel {
			continue
		}
		if !SafeHref(href) {
			continue
		}
		actions = append(actions, Action{
			Label:    label,
			Href:     href,
			External: bytes.Equal(bytes.TrimSpace(obj["external"]), []byte("true")),
		})
	}
	return actions
}

func sanitizePrompts(raw json.RawMessage) []string {
	var items []json.RawMessage
	if !isArray(raw) || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	var prompts []string
	for _, item := range items {
		if len(prompts) == MaxPrompts {
			break
		}
		var p string
		if json.Unmarshal(item, &p) != nil {
			continue
		}
		p = strings.TrimSpace(p)
		if n := utf8.RuneCountInString(p); n == 0 || n > MaxPromptLength {
			continue
		}
		prompts = append(prompts, p)
	}
	return prompts
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}

// SafeHref reports whether href may be rendered as a link. Allowed forms are
// root-relative paths (not protocol-relative), fragments, mailto:, tel: and
// http(s) URLs.
func SafeHref(href string) bool {
	if href == "" {
		return false
	}
	lower := strings.ToLower(href)
	if strings.HasPrefix(lower, "javascript:") || strings.Contains(lower, "data:") {
		return false
	}
	if strings.ContainsRune(href, '\\') || strings.IndexFunc(href, unicode.IsControl) >= 0 {
		return false
	}
	switch {
	case strings.HasPrefix(href, "/"):
		return !strings.HasPrefix(href, "//")
	case strings.HasPrefix(href, "#"):
		return true
	case strings.HasPrefix(lower, "mailto:"),
		strings.HasPrefix(lower, "tel:"),
		strings.HasPrefix(lower, "http://"),
		strings.HasPrefix(lower, "https://"):
		return true
	}
	return false
}
