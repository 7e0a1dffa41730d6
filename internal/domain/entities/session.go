package entities

import (
	"time"
)

// Step is the current position of a call in the booking conversation.
// The set is closed; transitions are defined by the conversation service.
type Step string

const (
	StepAskName     Step = "ask_name"
	StepConfirmName Step = "confirm_name"
	StepAskPhone    Step = "ask_phone"
	StepAskTime     Step = "ask_time"
	StepConfirm     Step = "confirm"
	StepDone        Step = "done"
)

// Collected is the partial record accumulated over the conversation.
// A field, once set, is never cleared by a failed extraction for a
// different field.
type Collected struct {
	Name            string     `json:"name,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	StartsAt        *time.Time `json:"starts_at,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	Notes           string     `json:"notes,omitempty"`
}

// CallSession is the mutable conversational context for one phone call,
// keyed by the telephony provider's call identifier. Ownership is exclusive
// to the conversation service; the store only persists and expires it.
type CallSession struct {
	CallID        string       `json:"call_id"`
	Step          Step         `json:"step"`
	Collected     Collected    `json:"collected"`
	Retries       map[Step]int `json:"retries"`
	CallerIDPhone string       `json:"caller_id_phone,omitempty"`
	LastUpdated   time.Time    `json:"last_updated"`
}

// NewCallSession creates a fresh session positioned at the first step
func NewCallSession(callID string, defaultDurationMinutes int, now time.Time) *CallSession {
	return &CallSession{
		CallID: callID,
		Step:   StepAskName,
		Collected: Collected{
			DurationMinutes: defaultDurationMinutes,
		},
		Retries:     make(map[Step]int),
		LastUpdated: now,
	}
}

// RetryCount returns the number of failed attempts recorded for the current step
func (s *CallSession) RetryCount() int {
	return s.Retries[s.Step]
}

// RecordRetry increments the failure counter for the current step
func (s *CallSession) RecordRetry() {
	if s.Retries == nil {
		s.Retries = make(map[Step]int)
	}
	s.Retries[s.Step]++
}

// ResetRetries clears the failure counter for the given step, used when the
// caller re-enters a step deliberately (e.g. declining the confirmation)
func (s *CallSession) ResetRetries(step Step) {
	if s.Retries != nil {
		delete(s.Retries, step)
	}
}

// Expired reports whether the session has outlived the given TTL
func (s *CallSession) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastUpdated) > ttl
}
