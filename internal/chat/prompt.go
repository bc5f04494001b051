package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/wolfman30/lakeside-dental/internal/knowledge"
)

const (
	maxContextPages = 20
	maxContextFAQs  = 6
)

// buildSystemContext assembles the grounding block sent ahead of the
// conversation. fallback is the deterministic reply the model may refine.
func buildSystemContext(kb *knowledge.Base, pathname string, matches []PageMatch, fallback Reply) string {
	office := kb.Office
	var b strings.Builder

	fmt.Fprintf(&b, "You are the website assistant for %s, a family dental practice.\n", office.Name)
	b.WriteString("Answer only from the facts below. Never diagnose, prescribe, or quote prices that are not listed. ")
	b.WriteString("For urgent symptoms tell the patient to call the office, or 911 for life-threatening problems.\n")
	b.WriteString(`Respond with a JSON object: {"message": string, "actions": [{"label": string, "href": string, "external": boolean}], "suggestedPrompts": [string], "source": "llm"}.`)
	b.WriteString("\n\n")

	b.WriteString("Practice details:\n")
	fmt.Fprintf(&b, "- Phone: %s (%s)\n", office.Phone, office.TelHref())
	if office.Email != "" {
		fmt.Fprintf(&b, "- Email: %s\n", office.Email)
	}
	fmt.Fprintf(&b, "- Address: %s\n", office.FormattedAddress())
	if office.MapURL != "" {
		fmt.Fprintf(&b, "- Map: %s\n", office.MapURL)
	}
	b.WriteString("- Hours:")
	for _, d := range office.Hours.Week() {
		fmt.Fprintf(&b, " %s %s;", d.Day, d.Hours)
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "The visitor is on page: %s\n\n", pathname)

	if len(matches) > 0 {
		b.WriteString("Most relevant pages:\n")
		for _, m := range matches {
			fmt.Fprintf(&b, "- %s (%s)", m.Entry.Title, m.Entry.Path)
			if m.Summary != "" {
				fmt.Fprintf(&b, ": %s", m.Summary)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Known pages:\n")
	listed := 0
	for _, entry := range kb.PageIndex() {
		if !entry.Indexable {
			continue
		}
		if listed == maxContextPages {
			break
		}
		fmt.Fprintf(&b, "- %s: %s\n", entry.Title, entry.Path)
		listed++
	}
	b.WriteString("\n")

	if len(kb.FAQs) > 0 {
		b.WriteString("Frequently asked questions:\n")
		for i, f := range kb.FAQs {
			if i == maxContextFAQs {
				break
			}
			fmt.Fprintf(&b, "Q: %s\nA: %s\n", f.Question, f.Answer)
		}
		b.WriteString("\n")
	}

	if len(kb.QuickPrompts) > 0 {
		fmt.Fprintf(&b, "Suggested starter questions: %s\n\n", strings.Join(kb.QuickPrompts, " | "))
	}

	if encoded, err := json.Marshal(fallback); err == nil {
		b.WriteString("Safe fallback reply (use it when unsure):\n")
		b.Write(encoded)
		b.WriteString("\n")
	}
	return b.String()
}
