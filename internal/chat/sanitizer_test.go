package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFiltersActions(t *testing.T) {
	payload := `{
		"message": "  Here are some options.  ",
		"actions": [
			{"label": "Schedule", "href": "/schedule"},
			{"label": "Click me", "href": "javascript:alert(1)"},
			{"label": "` + strings.Repeat("x", 81) + `", "href": "/about"},
			{"label": "Call us", "href": "tel:+15035550142", "external": true}
		],
		"source": "llm"
	}`
	reply, ok := Sanitize(RawReply(payload))
	require.True(t, ok)
	assert.Equal(t, "Here are some options.", reply.Message)
	assert.Equal(t, []Action{
		{Label: "Schedule", Href: "/schedule"},
		{Label: "Call us", Href: "tel:+15035550142", External: true},
	}, reply.Actions)
	assert.Equal(t, SourceLLM, reply.Source)
}

func TestSanitizeCoercesSource(t *testing.T) {
	for _, payload := range []string{
		`{"message":"hi","source":"cache"}`,
		`{"message":"hi","source":"LLM"}`,
		`{"message":"hi","source":true}`,
		`{"message":"hi"}`,
	} {
		reply, ok := Sanitize(RawReply(payload))
		require.True(t, ok, payload)
		assert.Equal(t, SourceKnowledgeBase, reply.Source, payload)
	}
}

func TestSanitizeRejectsUnusablePayloads(t *testing.T) {
	for _, payload := range []string{
		`not json`,
		`[]`,
		`null`,
		`"just a string"`,
		`{"message": 42}`,
		`{"message": "   "}`,
		`{"actions": []}`,
	} {
		reply, ok := Sanitize(RawReply(payload))
		assert.False(t, ok, payload)
		assert.Equal(t, Reply{Message: "", Source: SourceLLM}, reply, payload)
	}
}

func TestSanitizeStrictExternal(t *testing.T) {
	payload := `{"message":"ok","actions":[
		{"label":"a","href":"/a","external":"true"},
		{"label":"b","href":"/b","external":1},
		{"label":"c","href":"/c","external":true}
	]}`
	reply, ok := Sanitize(RawReply(payload))
	require.True(t, ok)
	require.Len(t, reply.Actions, 3)
	assert.False(t, reply.Actions[0].External)
	assert.False(t, reply.Actions[1].External)
	assert.True(t, reply.Actions[2].External)
}

func TestSanitizeCapsCounts(t *testing.T) {
	payload := `{"message":"ok",
		"actions":[
			{"label":"1","href":"/1"},{"label":"2","href":"/2"},{"label":"3","href":"/3"},
			{"label":"4","href":"/4"},{"label":"5","href":"/5"}
		],
		"suggestedPrompts":["a","  ","b",7,"c","d","e","f","` + strings.Repeat("p", 121) + `"]
	}`
	reply, ok := Sanitize(RawReply(payload))
	require.True(t, ok)
	assert.Len(t, reply.Actions, MaxActions)
	assert.Equal(t, "/4", reply.Actions[3].Href)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, reply.SuggestedPrompts)
}

func TestSanitizeIgnoresWrongShapes(t *testing.T) {
	reply, ok := Sanitize(RawReply(`{"message":"ok","actions":{"label":"x","href":"/"},"suggestedPrompts":"ask me"}`))
	require.True(t, ok)
	assert.Empty(t, reply.Actions)
	assert.Empty(t, reply.SuggestedPrompts)

	reply, ok = Sanitize(RawReply(`{"message":"ok","actions":[null,"x",{"label":1,"href":"/"},{"label":"x"}]}`))
	require.True(t, ok)
	assert.Empty(t, reply.Actions)
}

func TestSafeHref(t *testing.T) {
	tests := []struct {
		href string
		want bool
	}{
		{"/schedule", true},
		{"/services/whitening?ref=chat", true},
		{"#faq", true},
		{"mailto:hello@lakesidefamilydental.com", true},
		{"tel:+15035550142", true},
		{"https://maps.google.com/?q=x", true},
		{"HTTP://example.com", true},
		{"//evil.example.com", false},
		{"javascript:alert(1)", false},
		{"JavaScript:alert(1)", false},
		{"data:text/html;base64,xx", false},
		{"/redirect?to=DATA:text/html", false},
		{"ftp://example.com", false},
		{"relative/path", false},
		{"/\\evil.example.com", false},
		{"/ok\nLocation: x", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeHref(tt.href), tt.href)
	}
}
