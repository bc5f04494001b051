package chat

import (
	"fmt"
	"strings"

	"github.com/wolfman30/lakeside-dental/internal/knowledge"
)

// tableEntry is a trigger-phrase keyed canned answer. Triggers are matched as
// substrings of the lowercased message.
type tableEntry struct {
	name     string
	triggers []string
	build    func(kb *knowledge.Base) Reply
}

func intentTable() []tableEntry {
	return []tableEntry{
		{
			name:     "first-visit",
			triggers: []string{"first visit", "new patient", "first time"},
			build: func(kb *knowledge.Base) Reply {
				return Reply{
					Message: "Welcome! Plan on about 75 minutes for your first visit, which includes a comprehensive exam, " +
						"a cleaning and digital x-rays. Bring a photo ID, your insurance card and a list of current medications, " +
						"and complete our new patient forms online before you arrive.",
					Actions: []Action{
						{Label: "New patient guide", Href: "/new-patients"},
						{Label: "Schedule a visit", Href: "/schedule"},
					},
					SuggestedPrompts: []string{
						"Which insurance plans do you accept?",
						"Do you see children?",
					},
					Source: SourceKnowledgeBase,
				}
			},
		},
		{
			name:     "whitening",
			triggers: []string{"whitening", "whiten"},
			build: func(kb *knowledge.Base) Reply {
				return Reply{
					Message: "We offer a single 90-minute in-office whitening session and custom take-home trays you wear for " +
						"about two weeks. Both are supervised by our dentists to keep sensitivity low.",
					Actions: []Action{
						{Label: "Whitening options", Href: "/services/whitening"},
						{Label: "Schedule a consultation", Href: "/schedule"},
					},
					SuggestedPrompts: []string{
						"How long does teeth whitening last?",
						"What payment options do you offer?",
					},
					Source: SourceKnowledgeBase,
				}
			},
		},
		{
			name:     "invisalign",
			triggers: []string{"invisalign", "clear aligner", "straighten", "braces"},
			build: func(kb *knowledge.Base) Reply {
				return Reply{
					Message: "We straighten teeth with Invisalign clear aligners. It starts with a free consultation and a digital " +
						"scan, then you switch to a new set of aligners every one to two weeks.",
					Actions: []Action{
						{Label: "About Invisalign", Href: "/services/invisalign"},
						{Label: "Book a free consultation", Href: "/schedule"},
					},
					SuggestedPrompts: []string{
						"Does insurance cover Invisalign?",
						"How long does Invisalign take?",
					},
					Source: SourceKnowledgeBase,
				}
			},
		},
		{
			name:     "emergency-escalation",
			triggers: []string{"knocked out", "broken tooth", "cracked tooth", "chipped tooth", "abscess", "lost a filling"},
			build: func(kb *knowledge.Base) Reply {
				return Reply{
					Message: fmt.Sprintf("That needs attention soon. Call us at %s and we will fit you in the same day whenever we can. "+
						"If a tooth was knocked out, keep it moist in milk and bring it with you.", kb.Office.Phone),
					Actions: []Action{
						callAction(kb.Office),
						{Label: "Emergency dentistry", Href: "/services/emergency-dentistry"},
					},
					Source: SourceKnowledgeBase,
				}
			},
		},
	}
}

// matchIntentTable returns the first entry with a trigger inside message.
func matchIntentTable(entries []tableEntry, message string) (tableEntry, bool) {
	lower := strings.ToLower(message)
	for _, e := range entries {
		for _, trigger := range e.triggers {
			if strings.Contains(lower, trigger) {
				return e, true
			}
		}
	}
	return tableEntry{}, false
}
