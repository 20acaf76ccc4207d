package composer

import (
	"regexp"
	"strings"
)

// Intent is the kind of reply the latest user message asks for.
type Intent string

const (
	IntentGreeting Intent = "greeting"
	IntentSummary  Intent = "summary"
	IntentQuestion Intent = "question"
	IntentGeneral  Intent = "general"
)

type rule struct {
	intent Intent
	match  func(message string) bool
}

// intentRules are checked in order; the first match wins and anything
// unmatched is IntentGeneral.
var intentRules = []rule{
	{IntentGreeting, matchAny(greetingPatterns)},
	{IntentSummary, isSummaryRequest},
	{IntentQuestion, matchAny(questionPatterns)},
}

var greetingPatterns = compileAll(
	`^hello\b`,
	`^hi\b`,
	`^hey\b`,
	`^good\s*(morning|afternoon|evening|night)\b`,
	`^how\s*are\s*you\b`,
	`^what's\s*up\b`,
	`^how's\s*it\s*going\b`,
	`^nice\s*to\s*meet\s*you\b`,
	`^pleasure\s*to\s*meet\s*you\b`,
	`^thanks?\b`,
	`^thank\s*you\b`,
	`^bye\b`,
	`^goodbye\b`,
	`^see\s*you\b`,
	`^take\s*care\b`,
)

var summaryPatterns = compileAll(
	`provide.*comprehensive.*summary`,
	`document.*summary`,
	`suggest.*questions`,
	`key.*topics`,
	`main.*content`,
	`attached.*files`,
	`document.*type`,
)

var questionPatterns = compileAll(
	`\b(what|how|why|when|where|which|who)\b`,
	`\b(tell\s*me|explain|describe|list|show|give|provide)\b`,
	`\b(different|various|types|kinds|sorts|examples)\b`,
	`\b(current|latest|new|trend|trending|popular)\b`,
	`\b(breed|breeds|technology|framework|language|tool)\b`,
	`\b(compare|difference|similar|versus|vs)\b`,
	`\b(tutorial|guide|steps|process|method)\b`,
	`\b(problem|issue|error|bug|fix|solution)\b`,
)

// interrogatives demote a summary match to a question unless the message
// also says "summary".
var interrogatives = []string{
	"what", "how", "why", "when", "where", "which", "who",
	"explain", "describe", "tell me", "show me",
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

func matchAny(patterns []*regexp.Regexp) func(string) bool {
	return func(message string) bool {
		for _, p := range patterns {
			if p.MatchString(message) {
				return true
			}
		}
		return false
	}
}

func isSummaryRequest(message string) bool {
	if !matchAny(summaryPatterns)(message) {
		return false
	}
	if strings.Contains(message, "summary") {
		return true
	}
	for _, w := range interrogatives {
		if strings.Contains(message, w) {
			return false
		}
	}
	return true
}

// Classify returns the intent of a user message.
func Classify(message string) Intent {
	clean := strings.ToLower(strings.TrimSpace(message))
	for _, r := range intentRules {
		if r.match(clean) {
			return r.intent
		}
	}
	return IntentGeneral
}
