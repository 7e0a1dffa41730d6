package extraction

import (
	"context"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// minUsableDigits is the floor under which a transcript carries too little
// signal to guess a phone number at all.
const minUsableDigits = 7

// ExtractPhone resolves a phone number from a free-form transcript.
//
// Strategy order: spoken digit words are folded into digits first, then
// (1) a direct locale-aware parse against the expected regions,
// (2) a strip-and-rederive pass over the bare digits,
// (3) the LLM fallback, applied to the original transcript exactly once.
//
// The returned value is always E.164. Inputs with fewer than 7 usable
// digits are rejected outright; a 7-9 digit remainder is rejected rather
// than padded, since there is no safe way to guess the missing digits.
func (e *Extractor) ExtractPhone(ctx context.Context, transcript string) Result {
	if strings.TrimSpace(transcript) == "" {
		return Result{}
	}

	if r := e.extractPhoneOnce(transcript); r.OK() {
		return r
	}

	if out, ok := e.applyFallback(ctx, "phone", transcript); ok {
		if r := e.extractPhoneOnce(out); r.OK() {
			r.Strategy = StrategyLLMFallback
			return r
		}
	}

	return Result{}
}

// PeekPhone runs only the deterministic phone strategies, with no fallback
// call. The conversation layer uses it to normalize caller-ID numbers and
// to notice a caller volunteering a different number mid-interview.
func (e *Extractor) PeekPhone(transcript string) Result {
	if strings.TrimSpace(transcript) == "" {
		return Result{}
	}
	return e.extractPhoneOnce(transcript)
}

func (e *Extractor) extractPhoneOnce(transcript string) Result {
	folded := foldSpokenDigits(transcript)
	if !containsDigitRun(folded, minUsableDigits) {
		return Result{}
	}

	if num := e.parseInRegions(folded); num != "" {
		return Result{Value: num, Strategy: StrategyDirectParse}
	}

	if num := e.rederiveFromDigits(digitsOnly(folded)); num != "" {
		return Result{Value: num, Strategy: StrategyNormalizedDigits}
	}

	return Result{}
}

// parseInRegions attempts a libphonenumber parse of the candidate text
// against each expected region in order. A number is accepted only when it
// validates as real and its resolved region is in the expected set.
func (e *Extractor) parseInRegions(candidate string) string {
	for _, region := range e.regions {
		num, err := phonenumbers.Parse(candidate, region)
		if err != nil {
			continue
		}
		if !phonenumbers.IsValidNumber(num) {
			continue
		}
		if !e.expectedRegion(phonenumbers.GetRegionCodeForNumber(num)) {
			continue
		}
		return phonenumbers.Format(num, phonenumbers.E164)
	}
	return ""
}

// rederiveFromDigits applies local numbering conventions to a bare digit
// string: 10 digits gain the default country code, 11 digits keep it when
// it is already there, and anything longer keeps its last 10 digits.
func (e *Extractor) rederiveFromDigits(digits string) string {
	var candidate string
	switch n := len(digits); {
	case n < minUsableDigits:
		return ""
	case n < 10:
		// Ambiguous: a 7-9 digit remainder is not automatically fixable.
		return ""
	case n == 10:
		candidate = "+" + e.countryCode + digits
	case n == 11 && strings.HasPrefix(digits, e.countryCode):
		candidate = "+" + digits
	default:
		candidate = "+" + e.countryCode + digits[len(digits)-10:]
	}

	return e.parseInRegions(candidate)
}

func (e *Extractor) expectedRegion(region string) bool {
	for _, r := range e.regions {
		if r == region {
			return true
		}
	}
	return false
}
