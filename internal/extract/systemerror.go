package extract

import (
	"regexp"

	"github.com/argus-dev/argus/internal/transcript"
)

// promptOverflowPatterns match user-actionable prompt/context-overflow
// errors. The exact wording is design, not implementation detail (§9).
var promptOverflowPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)prompt is too long`),
	regexp.MustCompile(`(?i)context.*(too long|exceeded|overflow)`),
	regexp.MustCompile(`(?i)maximum.*tokens?.*(exceeded|reached)`),
}

// SystemError implements §4.2.7. It matches only KindSystem entries —
// never user messages — which is what keeps a user's own discussion
// of "the context is too long" from being mistaken for the condition
// actually occurring.
func SystemError(entries []transcript.Entry) (message string, line int, ok bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Kind != transcript.KindSystem {
			continue
		}
		for _, re := range promptOverflowPatterns {
			if re.MatchString(e.Text) {
				return e.Text, e.Line, true
			}
		}
	}
	return "", 0, false
}
