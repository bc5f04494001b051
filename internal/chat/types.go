// Package chat resolves patient questions from the website chat widget.
//
// Resolution is deterministic first: an ordered list of intent rules, a
// trigger-phrase table, fuzzy FAQ matching and page retrieval. Only when none
// of those produced an authoritative answer may an external chat-completion
// gateway be consulted, and its output is sanitized before it is trusted.
package chat

// Reply sources. Any other value from an untrusted origin becomes SourceKnowledgeBase.
const (
	SourceKnowledgeBase = "knowledge-base"
	SourceLLM           = "llm"
)

// Chat roles accepted in history and sent to the gateway.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request limits.
const (
	MaxMessageLength = 500
	MaxHistoryTurns  = 8
	MaxActionLabel   = 80
	MaxActions       = 4
	MaxPromptLength  = 120
	MaxPrompts       = 5
)

// Turn is one prior message of the conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is a validated chat request.
type Request struct {
	Message  string
	Pathname string
	History  []Turn
}

// Action is a clickable link rendered under a reply.
type Action struct {
	Label    string `json:"label"`
	Href     string `json:"href"`
	External bool   `json:"external,omitempty"`
}

// Reply is a trusted response: either built by this package or produced by Sanitize.
type Reply struct {
	Message          string   `json:"message"`
	Actions          []Action `json:"actions,omitempty"`
	SuggestedPrompts []string `json:"suggestedPrompts,omitempty"`
	Source           string   `json:"source"`
}

// Stage names the pipeline step that produced a reply.
type Stage string

const (
	StageClarify      Stage = "clarify"
	StageRule         Stage = "rule"
	StageIntentTable  Stage = "intent-table"
	StageFAQ          Stage = "faq"
	StageRetrieval    Stage = "retrieval"
	StageFallback     Stage = "fallback"
	StageGateway      Stage = "gateway"
	StageGatewayCache Stage = "gateway-cache"
)

// Result is the engine's answer plus how it was reached.
type Result struct {
	Reply Reply
	Stage Stage
	// Rule is the name of the rule or table entry that matched, if any.
	Rule string
	// SuppressGateway marks the reply as authoritative.
	SuppressGateway bool
}
