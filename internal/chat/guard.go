package chat

import (
	"regexp"
	"strings"
)

// InjectionScan is the outcome of ScanForPromptInjection.
type InjectionScan struct {
	// Blocked means the message must not reach the gateway.
	Blocked bool
	// Score is a heuristic risk between 0 and 1.
	Score   float64
	Signals []string
}

type signal struct {
	re     *regexp.Regexp
	name   string
	weight float64
}

const (
	injectionBlockScore = 0.7
	// each extra signal past the first adds this much to the score
	injectionCompound = 0.1
)

var injectionSignals = []signal{
	{regexp.MustCompile(`(?i)(ignore|disregard|forget)\s+(all\s+)?(previous|prior|above|earlier|your)\s+(instructions?|rules?|prompts?|guidelines?)`), "override:ignore_instructions", 0.9},
	{regexp.MustCompile(`(?i)you\s+are\s+now\s+(a|an|my)\s+`), "override:role_reassignment", 0.7},
	{regexp.MustCompile(`(?i)new\s+instructions?\s*:|system\s*prompt\s*:|<<\s*sys(tem)?\s*>>`), "override:new_instructions", 0.9},
	{regexp.MustCompile(`(?i)(pretend|imagine|assume)\s+(that\s+)?(you\s+)?(have|are)\s+no\s+(rules?|restrictions?|limits?|filters?)`), "override:no_rules", 0.9},
	{regexp.MustCompile(`(?i)jailbreak|DAN\s*mode|developer\s*mode|unrestricted\s*mode`), "override:jailbreak", 0.9},
	{regexp.MustCompile(`(?i)(reveal|show|print|repeat|tell\s+me)\s+(your\s+)?(system\s+prompt|instructions|hidden\s+prompt|system\s+message)`), "exfiltration:system_prompt", 0.8},
	{regexp.MustCompile(`(?i)(list|show|give|tell)\s+(me\s+)?(the\s+)?(other\s+)?patients?'?s?\s+(names?|records?|appointments?|details?)`), "exfiltration:patient_data", 0.7},
	{regexp.MustCompile(`(?i)\b(api|secret|database|db)\s*(key|token|password|credential)s?\b`), "exfiltration:credentials", 0.8},
	{regexp.MustCompile(`(?i)\[/?INST\]|<\|im_start\|>|<\|im_end\|>|<\|system\|>|<\|assistant\|>`), "framing:special_tokens", 0.9},
	{regexp.MustCompile(`(?i)###\s*(system|instruction|assistant)\s*:`), "framing:role_markers", 0.7},
	{regexp.MustCompile(`<\s*(script|iframe|object|embed|svg)\b`), "framing:html", 0.6},
}

// ScanForPromptInjection scores a patient message for attempts to steer the
// gateway model away from its instructions.
func ScanForPromptInjection(message string) InjectionScan {
	if strings.TrimSpace(message) == "" {
		return InjectionScan{}
	}
	var scan InjectionScan
	top := 0.0
	for _, s := range injectionSignals {
		if !s.re.MatchString(message) {
			continue
		}
		scan.Signals = append(scan.Signals, s.name)
		if s.weight > top {
			top = s.weight
		}
	}
	if len(scan.Signals) == 0 {
		return scan
	}
	scan.Score = top + float64(len(scan.Signals)-1)*injectionCompound
	if scan.Score > 1 {
		scan.Score = 1
	}
	scan.Blocked = scan.Score >= injectionBlockScore
	return scan
}

// LeakScan is the outcome of ScanOutputForLeaks.
type LeakScan struct {
	Leaked  bool
	Signals []string
}

var leakSignals = []signal{
	{regexp.MustCompile(`(?i)my (system\s+)?(prompt|instructions?)\s+(is|are|says?|tells?)`), "leak:instructions", 1},
	{regexp.MustCompile(`(?i)i('m| am) (programmed|instructed|configured) to`), "leak:programming", 1},
	{regexp.MustCompile(`(?i)(api[_\s]?key|secret[_\s]?key|access[_\s]?token|bearer\s+token)\s*[:=]\s*\S+`), "leak:credential", 1},
	{regexp.MustCompile(`(?i)\bsk-[a-zA-Z0-9_-]{20,}`), "leak:api_key", 1},
	{regexp.MustCompile(`(?i)(postgres|postgresql|redis)://\S+`), "leak:connection_string", 1},
	{regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}:\d{2,5}\b`), "leak:ip_port", 1},
	{regexp.MustCompile(`(?i)/api/appointments|/admin/|/metrics\b`), "leak:internal_path", 1},
	{regexp.MustCompile(`(?i)other patient'?s?\s+(name|phone|email|appointment|record)`), "leak:other_patient", 1},
}

// ScanOutputForLeaks reports whether a gateway reply exposes instructions,
// credentials or internal endpoints. Leaking replies are discarded.
func ScanOutputForLeaks(text string) LeakScan {
	var scan LeakScan
	for _, s := range leakSignals {
		if s.re.MatchString(text) {
			scan.Signals = append(scan.Signals, s.name)
		}
	}
	scan.Leaked = len(scan.Signals) > 0
	return scan
}
