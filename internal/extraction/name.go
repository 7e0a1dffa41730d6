package extraction

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Introduction phrases, longest and most specific first. Each pattern
// captures everything after the phrase; the validator decides which of the
// captured tokens form a name.
var introPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy name is ([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*)+)`),
	regexp.MustCompile(`(?i)\byou can call me ([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*)+)`),
	regexp.MustCompile(`(?i)\bthis is ([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*)+)`),
	regexp.MustCompile(`(?i)\bi am ([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*)+)`),
	regexp.MustCompile(`(?i)\bi'?m ([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*)+)`),
	regexp.MustCompile(`(?i)\bit'?s ([a-z][a-z'.-]*(?:\s+[a-z][a-z'.-]*)+)`),
}

// Leading filler stripped by the narrow prefix fallback.
var greetingPrefixes = []string{
	"hi", "hello", "hey", "good morning", "good afternoon", "good evening",
	"um", "uh", "yeah", "so", "well",
}

// Words that mark a candidate as conversational noise rather than a name:
// question words, help-seeking vocabulary and confirmation words.
var nameDenylist = map[string]struct{}{
	"what": {}, "when": {}, "where": {}, "why": {}, "how": {}, "who": {},
	"can": {}, "could": {}, "would": {}, "please": {}, "help": {},
	"appointment": {}, "book": {}, "booking": {}, "schedule": {},
	"cancel": {}, "reschedule": {}, "calling": {}, "speak": {},
	"yes": {}, "no": {}, "yeah": {}, "nope": {}, "sure": {},
	"okay": {}, "ok": {}, "correct": {}, "right": {}, "not": {},
}

// ExtractName resolves a caller's name from a free-form transcript.
//
// Strategy order: (1) NER person detection when a tagger is available,
// (2) introduction-phrase patterns, (3) a narrow prefix-stripping fallback
// for bare-name answers, (4) the LLM fallback, applied exactly once.
// Every candidate passes through the same validator regardless of which
// layer produced it, so conversational noise is never promoted to a name.
//
// The value is always exactly two title-cased tokens, "First Last".
// Multi-part and hyphenated legal names are collapsed to the first and last
// detected token; that is a product decision, not a parsing limitation.
func (e *Extractor) ExtractName(ctx context.Context, transcript string) Result {
	if strings.TrimSpace(transcript) == "" {
		return Result{}
	}

	if r := e.extractNameOnce(transcript); r.OK() {
		return r
	}

	if out, ok := e.applyFallback(ctx, "name", transcript); ok {
		if r := e.extractNameOnce(out); r.OK() {
			r.Strategy = StrategyLLMFallback
			return r
		}
		// The fallback may answer with the bare name and nothing else.
		if name, ok := validateName(out); ok {
			return Result{Value: name, Strategy: StrategyLLMFallback}
		}
	}

	return Result{}
}

func (e *Extractor) extractNameOnce(transcript string) Result {
	if e.tagger != nil {
		if name, ok := e.nerPass(transcript); ok {
			return Result{Value: name, Strategy: StrategyNER}
		}
	}

	for _, pattern := range introPatterns {
		m := pattern.FindStringSubmatch(transcript)
		if m == nil {
			continue
		}
		if name, ok := validateName(m[1]); ok {
			return Result{Value: name, Strategy: StrategyPatternMatch}
		}
	}

	if name, ok := prefixStrip(transcript); ok {
		return Result{Value: name, Strategy: StrategyPrefixStrip}
	}

	return Result{}
}

// nerPass asks the tagger for person entities and accepts the first one the
// validator passes. Tagger failures degrade to no detection.
func (e *Extractor) nerPass(transcript string) (string, bool) {
	names, err := e.tagger.PersonNames(transcript)
	if err != nil {
		log.Debug().Err(err).Msg("person tagger unavailable, skipping ner pass")
		return "", false
	}
	for _, candidate := range names {
		if name, ok := validateName(candidate); ok {
			return name, true
		}
	}
	return "", false
}

// prefixStrip handles the caller who answers with just their name, possibly
// behind a greeting. It is deliberately narrow: anything longer than four
// tokens after stripping is conversation, not a bare-name answer.
func prefixStrip(transcript string) (string, bool) {
	s := strings.TrimSpace(strings.ToLower(transcript))
	for changed := true; changed; {
		changed = false
		for _, prefix := range greetingPrefixes {
			if strings.HasPrefix(s, prefix+" ") || strings.HasPrefix(s, prefix+", ") {
				s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, prefix), ","))
				changed = true
			}
		}
	}

	if len(strings.Fields(s)) > 4 {
		return "", false
	}
	return validateName(s)
}

// validateName is the single gate every candidate passes through. It strips
// punctuation, requires at least two tokens longer than one character with
// no digits and no denylisted words, and returns the first and last token
// title-cased.
func validateName(candidate string) (string, bool) {
	var tokens []string
	for _, raw := range strings.Fields(candidate) {
		token := strings.Trim(raw, ".,!?;:\"()")
		if len(token) <= 1 {
			continue
		}
		if strings.ContainsAny(token, "0123456789") {
			return "", false
		}
		if _, denied := nameDenylist[strings.ToLower(token)]; denied {
			return "", false
		}
		tokens = append(tokens, titleCase(token))
	}

	if len(tokens) < 2 {
		return "", false
	}
	return tokens[0] + " " + tokens[len(tokens)-1], true
}

func titleCase(token string) string {
	lower := strings.ToLower(token)
	return strings.ToUpper(lower[:1]) + lower[1:]
}
