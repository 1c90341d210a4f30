package agent

import (
	"regexp"
	"strings"
)

// farewellPatterns match end-of-conversation intents in English and
// Hindi/Hinglish. Matching is done on the lowercased input.
var farewellPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(good\s?bye|bye+|see you( later)?|talk to you later)\b`),
	regexp.MustCompile(`\bthat('| i)?s all( for now)?\b`),
	regexp.MustCompile(`\b(i'?m|i am) (done|good|all set)\b`),
	regexp.MustCompile(`\bthanks?,? bye\b`),
	regexp.MustCompile(`\b(nothing else|no,? that'?s it)\b`),
	regexp.MustCompile(`\balvida\b`),
	regexp.MustCompile(`\bphir milenge\b`),
	regexp.MustCompile(`\bbas (itna hi|ho gaya)\b`),
	regexp.MustCompile(`\bdhanyawad\b`),
	regexp.MustCompile(`\bshukriya,? bye\b`),
}

const farewellReply = "Goodbye! I'm here whenever you need help with your email."

// detectFarewell reports whether text is an end-of-conversation phrase
// and, if so, the reply to close with. No model call is involved.
func detectFarewell(text string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return "", false
	}
	for _, p := range farewellPatterns {
		if p.MatchString(normalized) {
			return farewellReply, true
		}
	}
	return "", false
}
