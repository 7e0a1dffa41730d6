// Package extraction turns noisy speech-to-text transcripts into structured
// booking fields. Each extractor applies an ordered chain of strategies,
// most reliable first, with an optional language-model fallback applied
// exactly once. A miss is a normal return value, never an error.
package extraction

import (
	"context"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/rs/zerolog/log"

	"github.com/harborview/voicebook/internal/domain/providers"
	"github.com/harborview/voicebook/pkg/config"
)

// Strategy identifies which extraction layer produced a value. It is
// carried for observability only and never drives decision logic.
type Strategy string

const (
	StrategyNone             Strategy = ""
	StrategyDirectParse      Strategy = "direct_parse"
	StrategyNormalizedDigits Strategy = "normalized_digits"
	StrategyNER              Strategy = "ner"
	StrategyPatternMatch     Strategy = "pattern_match"
	StrategyPrefixStrip      Strategy = "prefix_strip"
	StrategyCalendarPhrase   Strategy = "calendar_phrase"
	StrategyFuzzyParse       Strategy = "fuzzy_parse"
	StrategyLLMFallback      Strategy = "llm_fallback"
)

// Result is the outcome of a string-valued extractor. A present value is
// fully normalized; callers never re-validate it.
type Result struct {
	Value    string
	Strategy Strategy
}

// OK reports whether a value was extracted
func (r Result) OK() bool { return r.Value != "" }

// TimeResult is the outcome of the time extractor. A present value is an
// absolute UTC instant.
type TimeResult struct {
	Value    time.Time
	Strategy Strategy
}

// OK reports whether a time was extracted
func (r TimeResult) OK() bool { return !r.Value.IsZero() }

// Extractor holds the shared, immutable configuration of the field
// extractors. It carries no mutable state and performs no I/O beyond the
// optional fallback and tagger calls.
type Extractor struct {
	regions     []string
	countryCode string
	businessLoc *time.Location

	tagger providers.PersonTagger
	llm    providers.TextTransform

	calendarParser *when.Parser
	clock          func() time.Time
}

// Option configures an Extractor
type Option func(*Extractor)

// WithPersonTagger attaches an NER tagger for the name extractor.
// A nil tagger is ignored.
func WithPersonTagger(tagger providers.PersonTagger) Option {
	return func(e *Extractor) { e.tagger = tagger }
}

// WithLLMFallback attaches the language-model fallback transform.
// A nil transform is ignored.
func WithLLMFallback(llm providers.TextTransform) Option {
	return func(e *Extractor) { e.llm = llm }
}

// WithClock overrides the reference time used to anchor relative
// date phrases. Tests depend on this.
func WithClock(clock func() time.Time) Option {
	return func(e *Extractor) { e.clock = clock }
}

// New creates an Extractor from the conversation configuration
func New(cfg config.ConversationConfig, opts ...Option) *Extractor {
	parser := when.New(nil)
	parser.Add(en.All...)
	parser.Add(common.All...)

	e := &Extractor{
		regions:        cfg.PhoneRegions,
		countryCode:    cfg.DefaultCountryCode,
		businessLoc:    cfg.BusinessLocation(),
		calendarParser: parser,
		clock:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// applyFallback runs the LLM transform over the transcript, returning its
// output and whether a usable string came back. Timeouts, malformed output
// and a missing transform all degrade to "no match".
func (e *Extractor) applyFallback(ctx context.Context, field, transcript string) (string, bool) {
	if e.llm == nil {
		return "", false
	}
	out, err := e.llm.Transform(ctx, transcript)
	if err != nil {
		log.Debug().Err(err).Str("field", field).Msg("llm fallback unavailable, treating as miss")
		return "", false
	}
	if out == "" {
		return "", false
	}
	return out, true
}
