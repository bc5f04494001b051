package chat

import (
	"fmt"
	"strings"

	"github.com/wolfman30/lakeside-dental/internal/knowledge"
)

// Rule names, also used as metric and audit labels.
const (
	RuleServicesOverview = "services-overview"
	RuleScheduling       = "scheduling"
	RuleEmergencyPolicy  = "emergency-policy"
	RuleEmergencySymptom = "emergency-symptom"
	RuleMedicalAdvice    = "medical-advice-refusal"
	RuleLocation         = "location"
	RuleHours            = "hours"
	RuleInsurance        = "insurance"
)

var (
	servicesPhrases = []string{
		"what services do you offer",
		"what services do you provide",
		"what services do you have",
		"what treatments do you offer",
		"what do you offer",
		"list of services",
		"what kind of dentistry",
	}
	servicesIntentKeywords = []string{"offer", "offered", "provide", "available", "list", "types", "kinds", "kind", "have", "include"}

	scheduleKeywords = []string{"schedule", "appointment", "book", "booking", "availability", "calendar"}

	emergencyPolicyPhrases = []string{
		"do you take emergencies",
		"do you take emergency",
		"do you handle emergencies",
		"do you accept emergencies",
		"do you see emergencies",
		"do you offer emergency",
		"take emergency patients",
		"same day emergency",
	}
	emergencyPolicyVerbs    = []string{"take", "offer", "accept", "handle", "provide"}
	emergencyPolicySymptoms = []string{"pain", "hurt", "bleed", "swell", "swollen", "injury", "injured"}

	emergencySymptomKeywords = []string{"emergency", "urgent", "pain", "hurt", "bleed", "swell", "swollen"}

	medicalAdviceKeywords = []string{"diagnose", "diagnosis", "medication", "drug", "antibiotic", "surgery", "toothache cause", "what is wrong"}

	locationKeywords  = []string{"address", "location", "map", "direction", "directions", "parking", "where", "come"}
	hoursKeywords     = []string{"hours", "open", "openings", "availability", "time", "closed"}
	insuranceKeywords = []string{"insurance", "pay", "payment", "cost", "price", "fee"}
)

// rule is one entry of the ordered intent list. The first rule whose match
// returns true answers the request.
type rule struct {
	name            string
	keywords        []string
	match           func(q Query) bool
	build           func(kb *knowledge.Base) Reply
	suppressGateway bool
	audited         bool
}

// intentRules returns the rules in evaluation order.
func intentRules() []rule {
	return []rule{
		{
			name:     RuleServicesOverview,
			keywords: servicesIntentKeywords,
			match: func(q Query) bool {
				if q.ContainsAny(servicesPhrases...) {
					return true
				}
				return q.HasAny("services", "service") && q.HasAny(servicesIntentKeywords...)
			},
			build:           servicesReply,
			suppressGateway: true,
		},
		{
			name:            RuleScheduling,
			keywords:        scheduleKeywords,
			match:           func(q Query) bool { return len(q.matchTerms(scheduleKeywords)) > 0 },
			build:           schedulingReply,
			suppressGateway: true,
		},
		{
			name:     RuleEmergencyPolicy,
			keywords: emergencyPolicyVerbs,
			match: func(q Query) bool {
				if q.ContainsAny(emergencyPolicyPhrases...) {
					return true
				}
				// Questions that mention a symptom belong to the urgent-care rule.
				return q.Has("emergency") &&
					q.HasAny(emergencyPolicyVerbs...) &&
					!q.HasAny(emergencyPolicySymptoms...)
			},
			build:           emergencyPolicyReply,
			suppressGateway: true,
			audited:         true,
		},
		{
			name:            RuleEmergencySymptom,
			keywords:        emergencySymptomKeywords,
			match:           func(q Query) bool { return len(q.matchTerms(emergencySymptomKeywords)) > 0 },
			build:           emergencySymptomReply,
			suppressGateway: true,
			audited:         true,
		},
		{
			name:            RuleMedicalAdvice,
			keywords:        medicalAdviceKeywords,
			match:           func(q Query) bool { return len(q.matchTerms(medicalAdviceKeywords)) > 0 },
			build:           medicalAdviceReply,
			suppressGateway: true,
			audited:         true,
		},
		{
			name:            RuleLocation,
			keywords:        locationKeywords,
			match:           func(q Query) bool { return len(q.matchTerms(locationKeywords)) > 0 },
			build:           locationReply,
			suppressGateway: true,
		},
		{
			name:            RuleHours,
			keywords:        hoursKeywords,
			match:           func(q Query) bool { return len(q.matchTerms(hoursKeywords)) > 0 },
			build:           hoursReply,
			suppressGateway: true,
		},
		{
			name:            RuleInsurance,
			keywords:        insuranceKeywords,
			match:           func(q Query) bool { return len(q.matchTerms(insuranceKeywords)) > 0 },
			build:           insuranceReply,
			suppressGateway: true,
		},
	}
}

func callAction(office knowledge.Office) Action {
	return Action{Label: "Call " + office.Phone, Href: office.TelHref()}
}

func servicesReply(kb *knowledge.Base) Reply {
	return Reply{
		Message: fmt.Sprintf("%s provides complete care for the whole family: preventive cleanings and exams, "+
			"fillings, crowns and implants, teeth whitening, Invisalign clear aligners, and same-day emergency visits.",
			kb.Office.Name),
		Actions: []Action{
			{Label: "All services", Href: "/services"},
			{Label: "Cleanings & exams", Href: "/services/cleanings"},
			{Label: "Cosmetic dentistry", Href: "/services/whitening"},
			{Label: "Schedule a visit", Href: "/schedule"},
		},
		Source: SourceKnowledgeBase,
	}
}

func schedulingReply(kb *knowledge.Base) Reply {
	return Reply{
		Message: fmt.Sprintf("You can request an appointment online in about a minute, or call us at %s "+
			"and our front desk will find a time that works for you.", kb.Office.Phone),
		Actions: []Action{
			{Label: "Schedule online", Href: "/schedule"},
			{Label: "Contact us", Href: "/contact"},
			callAction(kb.Office),
		},
		Source: SourceKnowledgeBase,
	}
}

func emergencyPolicyReply(kb *knowledge.Base) Reply {
	return Reply{
		Message: fmt.Sprintf("Yes, we see dental emergencies. We hold same-day time every weekday for urgent problems "+
			"and existing patients can reach our on-call line after hours. Call %s and we will get you in as quickly as we can.",
			kb.Office.Phone),
		Actions: []Action{
			callAction(kb.Office),
			{Label: "Office location", Href: "/locations"},
			{Label: "Contact us", Href: "/contact"},
		},
		Source: SourceKnowledgeBase,
	}
}

func emergencySymptomReply(kb *knowledge.Base) Reply {
	return Reply{
		Message: fmt.Sprintf("I'm sorry you're dealing with that. Please call us right away at %s so we can see you as soon as possible. "+
			"If you have trouble breathing or swallowing, swelling that is spreading, or bleeding that will not stop, "+
			"call 911 or go to the nearest emergency room.", kb.Office.Phone),
		Actions: []Action{callAction(kb.Office)},
		Source:  SourceKnowledgeBase,
	}
}

func medicalAdviceReply(kb *knowledge.Base) Reply {
	return Reply{
		Message: fmt.Sprintf("I can't diagnose conditions or recommend medications over chat. One of our dentists can "+
			"examine you and give advice specific to you. Please call %s or book an exam.", kb.Office.Phone),
		Actions: []Action{
			callAction(kb.Office),
			{Label: "Book an exam", Href: "/schedule"},
		},
		Source: SourceKnowledgeBase,
	}
}

func locationReply(kb *knowledge.Base) Reply {
	return Reply{
		Message: fmt.Sprintf("You'll find %s at %s. Validated garage parking and streetcar access are listed on our locations page.",
			kb.Office.Name, kb.Office.FormattedAddress()),
		Actions: []Action{
			{Label: "Get directions", Href: kb.Office.MapURL, External: true},
			{Label: "Locations & parking", Href: "/locations"},
		},
		Source: SourceKnowledgeBase,
	}
}

func hoursReply(kb *knowledge.Base) Reply {
	var b strings.Builder
	b.WriteString("Our office hours are:")
	for _, d := range kb.Office.Hours.Week() {
		fmt.Fprintf(&b, "\n%s: %s", d.Day, d.Hours)
	}
	return Reply{
		Message: b.String(),
		Actions: []Action{
			{Label: "Schedule a visit", Href: "/schedule"},
			callAction(kb.Office),
		},
		Source: SourceKnowledgeBase,
	}
}

func insuranceReply(kb *knowledge.Base) Reply {
	return Reply{
		Message: fmt.Sprintf("We're in network with most PPO plans and file claims for you. Coverage depends on your plan, "+
			"so call us at %s with your insurance details and we'll review your benefits before your visit. "+
			"We also offer a membership plan and monthly financing.", kb.Office.Phone),
		Actions: []Action{
			callAction(kb.Office),
			{Label: "Contact us", Href: "/contact"},
		},
		Source: SourceKnowledgeBase,
	}
}
