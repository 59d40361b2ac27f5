package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/argus-dev/argus/internal/transcript"
)

// rateLimitWindow is the tail size scanned for a rate-limit signal,
// per §4.2.5's "last ~15 entries".
const rateLimitWindow = 15

// rateLimitPatterns are matched in order; the first match wins. The
// exact wording is design, not implementation detail (§9): changing
// these changes observable behavior.
var rateLimitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)you'?ve hit your (usage |rate )?limit`),
	regexp.MustCompile(`(?i)rate limit(ed| exceeded)?`),
	regexp.MustCompile(`(?i)too many requests`),
	regexp.MustCompile(`(?i)quota exceeded`),
	regexp.MustCompile(`(?i)overloaded`),
	regexp.MustCompile(`429`),
}

var (
	resetInRe  = regexp.MustCompile(`(?i)in\s+(\d+)\s*(min|sec|hour)s?`)
	resetAtRe  = regexp.MustCompile(`(?i)\bat\s+(\d{1,2}):(\d{2})\s*(am|pm)?`)
	resetsHRe  = regexp.MustCompile(`(?i)resets?\s+(\d{1,2})\s*(am|pm)`)
	defaultTTL = 5 * time.Minute
)

// RateLimit implements §4.2.5: scan the tail window's System
// messages and Assistant Text blocks for a rate-limit phrase, then
// try to parse a reset time out of the same text.
func RateLimit(entries []transcript.Entry, now time.Time) (message string, resetAt time.Time, line int, ok bool) {
	window := tailWindow(entries, rateLimitWindow)
	for i := len(window) - 1; i >= 0; i-- {
		e := window[i]
		var text string
		switch e.Kind {
		case transcript.KindSystem:
			text = e.Text
		case transcript.KindAssistant:
			if t, has := e.LastText(); has {
				text = t.Text
			}
		default:
			continue
		}
		if text == "" {
			continue
		}
		if matchesRateLimit(text) {
			return text, parseResetTime(text, now), e.Line, true
		}
	}
	return "", time.Time{}, 0, false
}

func matchesRateLimit(text string) bool {
	for _, re := range rateLimitPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// parseResetTime implements the reset-time parsing rules in §4.2.5:
// try "in N unit", then "at H:MM am/pm", then "resets Hampm"; if a
// parsed time of day has already passed today, advance to tomorrow.
// If nothing parses, default to now + 5 minutes.
func parseResetTime(text string, now time.Time) time.Time {
	if m := resetInRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			switch strings.ToLower(m[2]) {
			case "sec":
				return now.Add(time.Duration(n) * time.Second)
			case "min":
				return now.Add(time.Duration(n) * time.Minute)
			case "hour":
				return now.Add(time.Duration(n) * time.Hour)
			}
		}
	}

	if m := resetAtRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		hour = apply12HourSuffix(hour, m[3])
		return nextOccurrence(now, hour, minute)
	}

	if m := resetsHRe.FindStringSubmatch(text); m != nil {
		hour, _ := strconv.Atoi(m[1])
		hour = apply12HourSuffix(hour, m[2])
		return nextOccurrence(now, hour, 0)
	}

	return now.Add(defaultTTL)
}

// apply12HourSuffix normalizes an hour against an optional am/pm
// suffix. An hour given without a suffix is taken as-is (24h).
func apply12HourSuffix(hour int, suffix string) int {
	switch strings.ToLower(suffix) {
	case "pm":
		if hour < 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}

// nextOccurrence returns today at hour:minute, advanced to tomorrow
// if that time has already passed.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	candidate := time.Date(
		now.Year(), now.Month(), now.Day(),
		hour, minute, 0, 0, now.Location(),
	)
	if candidate.Before(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate
}
