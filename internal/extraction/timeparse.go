package extraction

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// ExtractTime resolves an appointment instant from a free-form transcript.
//
// Strategy order: (1) a calendar-phrase parser tuned for natural language
// ("next Thursday at 2", "tomorrow morning"), (2) a general fuzzy date/time
// parser as a second opinion, (3) the LLM fallback, whose output is first
// tried as a strict RFC 3339 timestamp and otherwise recursed through the
// same two parsers exactly once.
//
// Relative phrases are anchored to the business time zone, never the
// caller's location, and the result is always returned in UTC. The
// extractor answers "what was said"; whether the instant is acceptable
// (business hours, not in the past) is the conversation layer's call.
func (e *Extractor) ExtractTime(ctx context.Context, transcript string) TimeResult {
	if strings.TrimSpace(transcript) == "" {
		return TimeResult{}
	}

	if r := e.extractTimeOnce(transcript); r.OK() {
		return r
	}

	if out, ok := e.applyFallback(ctx, "time", transcript); ok {
		out = strings.TrimSpace(out)
		if t, err := time.Parse(time.RFC3339, out); err == nil {
			return TimeResult{Value: t.UTC(), Strategy: StrategyLLMFallback}
		}
		if r := e.extractTimeOnce(out); r.OK() {
			r.Strategy = StrategyLLMFallback
			return r
		}
	}

	return TimeResult{}
}

func (e *Extractor) extractTimeOnce(transcript string) TimeResult {
	base := e.clock().In(e.businessLoc)

	if t, ok := e.parseCalendarPhrase(transcript, base); ok {
		return TimeResult{Value: t.UTC(), Strategy: StrategyCalendarPhrase}
	}

	if t, ok := e.parseFuzzy(transcript); ok {
		return TimeResult{Value: t.UTC(), Strategy: StrategyFuzzyParse}
	}

	return TimeResult{}
}

// parseCalendarPhrase runs the natural-language rules ("tomorrow at 2pm",
// "next friday morning") anchored at base.
func (e *Extractor) parseCalendarPhrase(transcript string, base time.Time) (time.Time, bool) {
	r, err := e.calendarParser.Parse(transcript, base)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	return r.Time, true
}

// parseFuzzy accepts the many semi-structured spellings callers fall back
// to ("october 8 2pm", "2025-10-08 14:00"). Bare times without a date are
// left to the calendar-phrase rules.
func (e *Extractor) parseFuzzy(transcript string) (time.Time, bool) {
	cleaned := strings.Trim(strings.TrimSpace(transcript), ".?!")
	if cleaned == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(cleaned, e.businessLoc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
