package extract

import (
	"github.com/argus-dev/argus/internal/transcript"
)

// PlanMode implements §4.2.4: scan backward over all entries for the
// most recent EnterPlanMode or ExitPlanMode tool use. Entering sets
// the flag, exiting clears it; if neither is ever seen, the flag is
// false.
func PlanMode(entries []transcript.Entry) bool {
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		if e.Kind != transcript.KindAssistant {
			continue
		}
		for j := len(e.Blocks) - 1; j >= 0; j-- {
			b := e.Blocks[j]
			if b.Kind != transcript.BlockToolUse {
				continue
			}
			switch b.ToolName {
			case "EnterPlanMode":
				return true
			case "ExitPlanMode":
				return false
			}
		}
	}
	return false
}
