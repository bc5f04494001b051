package chat

import "github.com/wolfman30/lakeside-dental/internal/knowledge"

// ClarificationMessage opens the catch-all reply.
const ClarificationMessage = "I'm not sure I have an answer for that yet. Could you rephrase your question, or pick one of the options below?"

func clarifyReply(kb *knowledge.Base) Reply {
	return Reply{
		Message: "Ask me about scheduling a visit, our office hours, insurance, dental emergencies or the services we offer.",
		Actions: []Action{
			{Label: "Schedule a visit", Href: "/schedule"},
			{Label: "Our services", Href: "/services"},
			{Label: "Contact us", Href: "/contact"},
		},
		SuggestedPrompts: append([]string(nil), kb.QuickPrompts...),
		Source:           SourceKnowledgeBase,
	}
}

func catchAllReply(kb *knowledge.Base, q Query) Reply {
	actions := []Action{
		{Label: "About us", Href: "/about"},
		{Label: "Our services", Href: "/services"},
		{Label: "Schedule a visit", Href: "/schedule"},
	}
	if q.ContainsAny("locat", "office", "address") {
		actions = append(actions, Action{Label: "Locations", Href: "/locations"})
	}
	if q.ContainsAny("insur", "pay") {
		actions = append(actions, Action{Label: "Insurance & financing", Href: "/insurance"})
	}
	return Reply{
		Message:          ClarificationMessage,
		Actions:          actions,
		SuggestedPrompts: append([]string(nil), kb.QuickPrompts...),
		Source:           SourceKnowledgeBase,
	}
}
