package extract

import (
	"github.com/argus-dev/argus/internal/transcript"
)

// PendingQuestion implements §4.2.3: scanning backward, a User entry
// (or the end of the transcript) means there is nothing pending.
// Before that, the most recent Assistant entry's last tool use
// decides whether the agent is waiting on a question, a plan-mode
// exit, or a plan-mode entry confirmation. System entries (tool
// results) are skipped while looking for the deciding entry.
func PendingQuestion(entries []transcript.Entry) (question string, line int, ok bool) {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		switch e.Kind {
		case transcript.KindUser:
			return "", 0, false
		case transcript.KindSystem:
			continue
		case transcript.KindAssistant:
			tc, has := e.LastToolUse()
			if !has {
				return "", 0, false
			}
			switch tc.ToolName {
			case "AskUserQuestion":
				input := toolInput(tc)
				if q := firstQuestionText(input); q != "" {
					return q, e.Line, true
				}
				return "Waiting for your response...", e.Line, true
			case "ExitPlanMode":
				return "Accept this plan?", e.Line, true
			case "EnterPlanMode":
				return "Enter plan mode?", e.Line, true
			default:
				return "", 0, false
			}
		}
	}
	return "", 0, false
}
