package triage

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Names of the content rules, in evaluation order.
const (
	RuleEmpty                = "empty"
	RuleAutoResponse         = "auto-response"
	RuleSystemContent        = "system-content"
	RuleClosingAck           = "closing-ack"
	RuleDeferredContinuation = "deferred-continuation"
	RulePoliteClosure        = "polite-closure"
)

// closingAckMaxLen bounds the anchored acknowledgement check
const closingAckMaxLen = 80

// gratitudeMaxWords bounds the "thanks for the update" style closure
const gratitudeMaxWords = 6

var closingPatterns = compileAll(
	`^thanks[\s!.,]*$`,
	`^thank you[\s!.,]*$`,
	`^thanks a lot[\s!.,]*$`,
	`^ok(ay)?[\s!.,]*$`,
	`^got it[\s!.,]*$`,
	`^noted[\s!.,]*$`,
	`^sounds good[\s!.,]*$`,
	`^appreciate it[\s!.,]*$`,
	`^thank you so much[\s!.,]*$`,
	`^alright[\s!.,]*$`,
)

// The sender says they will act next.
var deferPatterns = compileAll(
	`\bi(['’]ll| will)\s+get back to you\b`,
	`\bi(['’]ll| will)\s+reach out\b`,
	`\bi(['’]ll| will)\s+contact\b`,
	`\blet me\s+check\s+and\s+get back\b`,
)

var systemPatterns = compileAll(
	`this is an automated message`,
	`do not reply to this email`,
	`please do not reply to this message`,
	`no[-\s]?reply@`,
	`you are receiving this email because`,
	`unsubscribe`,
)

var subjectAutoResponseMarkers = []string{"out of office", "automatic reply"}

var bodyAutoResponseMarkers = []string{"out of office", "auto-reply", "automatic reply"}

// closurePhrases put the ball in the recipient's court without asking anything
var closurePhrases = []string{
	"feel free to reach out",
	"whenever you are ready",
	"when you are ready",
	"at your convenience",
	"let me know when you are ready",
	"let me know if and when",
	"thank you for your quick response",
	"thank you for your response",
	"thank you for your message",
	"thank you for your follow up",
}

// contentRule is one guard. match receives normalized subject and body and
// returns true when no reply is needed.
type contentRule struct {
	name  string
	match func(subject, body string) bool
}

// Emptiness and system detection run before the permissive closure rules so
// that an automated footer is never mistaken for a human closing.
var contentRules = []contentRule{
	{RuleEmpty, func(_, body string) bool { return body == "" }},
	{RuleAutoResponse, isAutoResponse},
	{RuleSystemContent, func(_, body string) bool { return IsSystemLike(body) }},
	{RuleClosingAck, func(_, body string) bool { return IsClosingAck(body) }},
	{RuleDeferredContinuation, func(_, body string) bool { return IsDeferredContinuation(body) }},
	{RulePoliteClosure, func(_, body string) bool { return IsPoliteClosure(body) }},
}

// Verdict is the outcome of the content guards. Rule names the guard that
// suppressed the reply and is empty when a reply is needed.
type Verdict struct {
	NeedsReply bool   `json:"needs_reply"`
	Rule       string `json:"rule,omitempty"`
}

// EvaluateContent runs the content guards in order and stops at the first match
func EvaluateContent(subject, body string) Verdict {
	s, b := normalize(subject), normalize(body)
	for _, r := range contentRules {
		if r.match(s, b) {
			return Verdict{NeedsReply: false, Rule: r.name}
		}
	}
	return Verdict{NeedsReply: true}
}

// NeedsReply reports whether a generated reply should be produced at all
func NeedsReply(subject, body string) bool {
	return EvaluateContent(subject, body).NeedsReply
}

func isAutoResponse(subject, body string) bool {
	return containsAny(subject, subjectAutoResponseMarkers) || containsAny(body, bodyAutoResponseMarkers)
}

// IsSystemLike reports whether the body reads like automated mail
func IsSystemLike(body string) bool {
	return matchAny(normalize(body), systemPatterns)
}

// IsClosingAck reports short acknowledgements such as "thanks" or "got it"
func IsClosingAck(body string) bool {
	norm := normalize(body)
	if utf8.RuneCountInString(norm) <= closingAckMaxLen && matchAny(norm, closingPatterns) {
		return true
	}
	if strings.Contains(norm, "thanks") || strings.Contains(norm, "thank you") {
		return len(strings.Fields(norm)) <= gratitudeMaxWords
	}
	return false
}

// IsDeferredContinuation reports bodies where the sender owns the next step
func IsDeferredContinuation(body string) bool {
	return matchAny(normalize(body), deferPatterns)
}

// IsPoliteClosure reports closure phrases in a body that asks no question
func IsPoliteClosure(body string) bool {
	norm := normalize(body)
	if strings.Contains(norm, "?") {
		return false
	}
	return containsAny(norm, closurePhrases)
}

func normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

func containsAny(text string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}

func matchAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}
