package providers

import (
	"context"
	"errors"
)

// ErrLLMNotConfigured is returned by a disabled TextTransform. Extraction
// treats it the same as any other fallback failure: a miss, not a fault.
var ErrLLMNotConfigured = errors.New("llm fallback not configured")

// TextTransform is the language-model fallback contract: synchronous text in,
// text out. It is only consulted after every deterministic extraction
// strategy has failed, and it must be treated as unreliable. Timeouts and
// malformed output are expected and must not propagate as crashes.
type TextTransform interface {
	Transform(ctx context.Context, text string) (string, error)
}

// DisabledTransform is the "not configured" variant of TextTransform
type DisabledTransform struct{}

func (DisabledTransform) Transform(ctx context.Context, text string) (string, error) {
	return "", ErrLLMNotConfigured
}
