package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harborview/voicebook/internal/domain/entities"
	"github.com/harborview/voicebook/internal/extraction"
	"github.com/harborview/voicebook/internal/infrastructure/observability"
	"github.com/harborview/voicebook/internal/session"
	"github.com/harborview/voicebook/pkg/config"
	apperrors "github.com/harborview/voicebook/pkg/errors"
)

// Turn is one decoded inbound webhook exchange. The telephony layer has
// already parsed the provider envelope; an empty transcript means a new
// call with no speech yet.
type Turn struct {
	CallID      string
	CallerPhone string
	Transcript  string
	Confidence  *float64
}

// TurnResult is what the caller hears next
type TurnResult struct {
	Prompt string        `json:"prompt"`
	Step   entities.Step `json:"step"`
	Done   bool          `json:"done"`
}

// Booker is the confirm operation the conversation hands a fully-collected
// session to
type Booker interface {
	ConfirmBooking(ctx context.Context, req BookingRequest) (*entities.Appointment, error)
}

// ConversationService drives a caller through the booking interview one
// webhook turn at a time: load the session, run the extractor for the
// current step, pick the next prompt, and hand off to the booking guard at
// the confirmation step.
type ConversationService struct {
	store     session.Store
	extractor *extraction.Extractor
	booking   Booker
	cfg       config.ConversationConfig
	loc       *time.Location
	metrics   *observability.Metrics
	clock     func() time.Time
}

// NewConversationService creates the conversation state machine
func NewConversationService(
	store session.Store,
	extractor *extraction.Extractor,
	booking Booker,
	cfg config.ConversationConfig,
	metrics *observability.Metrics,
) *ConversationService {
	return &ConversationService{
		store:     store,
		extractor: extractor,
		booking:   booking,
		cfg:       cfg,
		loc:       cfg.BusinessLocation(),
		metrics:   metrics,
		clock:     time.Now,
	}
}

// SetClock overrides the service clock, for tests
func (s *ConversationService) SetClock(clock func() time.Time) {
	s.clock = clock
}

// HandleTurn advances the conversation by exactly one step. It never
// returns an error for anything the caller said; only a missing call id or
// a broken session store escalate.
func (s *ConversationService) HandleTurn(ctx context.Context, turn Turn) (result TurnResult, err error) {
	if strings.TrimSpace(turn.CallID) == "" {
		return TurnResult{}, apperrors.NewValidationError("call_id is required")
	}

	sess, created, err := s.store.GetOrCreate(ctx, turn.CallID)
	if err != nil {
		return TurnResult{}, apperrors.NewInternalError("failed to load call session", err)
	}

	if created && turn.CallerPhone != "" {
		sess.CallerIDPhone = turn.CallerPhone
	}

	transcript := strings.TrimSpace(turn.Transcript)
	if transcript == "" {
		// New call, or a silent turn: greet or repeat without burning a retry.
		if err := s.store.Save(ctx, sess); err != nil {
			return TurnResult{}, apperrors.NewInternalError("failed to save call session", err)
		}
		return TurnResult{Prompt: s.reprompt(sess), Step: sess.Step}, nil
	}

	// Whatever goes wrong below, the caller gets a reprompt, not a fault.
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("call_id", turn.CallID).
				Msg("turn handling panicked, reprompting caller")
			result = TurnResult{Prompt: s.reprompt(sess), Step: sess.Step}
			err = nil
		}
	}()

	start := s.clock()
	prompt, done := s.advance(ctx, sess, transcript)
	observability.RecordTurn(ctx, s.metrics, string(sess.Step), done, s.clock().Sub(start))

	if done {
		if err := s.store.Remove(ctx, turn.CallID); err != nil {
			log.Warn().Err(err).Str("call_id", turn.CallID).Msg("failed to remove finished session")
		}
	} else {
		if err := s.store.Save(ctx, sess); err != nil {
			return TurnResult{}, apperrors.NewInternalError("failed to save call session", err)
		}
	}

	return TurnResult{Prompt: prompt, Step: sess.Step, Done: done}, nil
}

// advance is the transition table: one branch per (step, outcome) pair.
// Accepted fields are never cleared here except by the caller's own
// explicit correction (a "no" at a confirmation step).
func (s *ConversationService) advance(ctx context.Context, sess *entities.CallSession, transcript string) (string, bool) {
	switch sess.Step {
	case entities.StepAskName:
		return s.handleAskName(ctx, sess, transcript)
	case entities.StepConfirmName:
		return s.handleConfirmName(ctx, sess, transcript)
	case entities.StepAskPhone:
		return s.handleAskPhone(ctx, sess, transcript)
	case entities.StepAskTime:
		return s.handleAskTime(ctx, sess, transcript)
	case entities.StepConfirm:
		return s.handleConfirm(ctx, sess, transcript)
	default:
		// A turn arriving after Done means the session should already be
		// gone; treat it as a fresh conversation.
		sess.Step = entities.StepAskName
		return promptGreeting, false
	}
}

func (s *ConversationService) handleAskName(ctx context.Context, sess *entities.CallSession, transcript string) (string, bool) {
	s.captureVolunteeredPhone(sess, transcript)

	r := s.extractor.ExtractName(ctx, transcript)
	observability.RecordExtraction(ctx, s.metrics, "name", string(r.Strategy), r.OK())
	if !r.OK() {
		return s.extractionMiss(sess, promptAskNameRetry, promptAskNameFallback)
	}

	sess.Collected.Name = r.Value
	sess.Step = entities.StepConfirmName
	return promptConfirmName(r.Value), false
}

func (s *ConversationService) handleConfirmName(ctx context.Context, sess *entities.CallSession, transcript string) (string, bool) {
	s.captureVolunteeredPhone(sess, transcript)

	switch yes, no := parseAffirmation(transcript); {
	case yes:
		if phone := s.knownPhone(sess); phone != "" {
			// Caller-ID shortcut: skip AskPhone when a verified number is
			// already on hand. The caller keeps the override chance by
			// stating a different number on any earlier turn.
			sess.Collected.Phone = phone
			sess.Step = entities.StepAskTime
			return promptAskTimeUsingCallerID(), false
		}
		sess.Step = entities.StepAskPhone
		return promptAskPhone, false

	case no:
		// Explicit correction by the caller, not a regression.
		sess.Collected.Name = ""
		sess.Step = entities.StepAskName
		sess.ResetRetries(entities.StepAskName)
		return promptAskNameAgain, false

	default:
		// Not a yes or a no; the caller may have restated the name.
		if r := s.extractor.ExtractName(ctx, transcript); r.OK() && r.Value != sess.Collected.Name {
			sess.Collected.Name = r.Value
			return promptConfirmName(r.Value), false
		}
		return s.extractionMiss(sess, promptConfirmNameRetry(sess.Collected.Name), promptConfirmNameRetry(sess.Collected.Name))
	}
}

func (s *ConversationService) handleAskPhone(ctx context.Context, sess *entities.CallSession, transcript string) (string, bool) {
	r := s.extractor.ExtractPhone(ctx, transcript)
	observability.RecordExtraction(ctx, s.metrics, "phone", string(r.Strategy), r.OK())
	if !r.OK() {
		return s.extractionMiss(sess, promptAskPhoneRetry, promptAskPhoneFallback)
	}

	sess.Collected.Phone = r.Value
	sess.Step = entities.StepAskTime
	return promptAskTime, false
}

func (s *ConversationService) handleAskTime(ctx context.Context, sess *entities.CallSession, transcript string) (string, bool) {
	r := s.extractor.ExtractTime(ctx, transcript)
	observability.RecordExtraction(ctx, s.metrics, "time", string(r.Strategy), r.OK())
	if !r.OK() {
		// A failed time extraction re-prompts for time only. Name and phone
		// stay exactly as accepted; the interview never restarts.
		return s.extractionMiss(sess, promptAskTimeRetry, promptAskTimeFallback)
	}

	startsAt := r.Value
	if startsAt.Before(s.clock()) {
		return s.validationReject(sess, promptPastTime())
	}
	if !s.withinBusinessHours(startsAt) {
		return s.validationReject(sess, promptOutsideBusinessHours(s.cfg.BusinessOpenHour, s.cfg.BusinessCloseHour))
	}

	sess.Collected.StartsAt = &startsAt
	sess.Step = entities.StepConfirm
	return promptConfirmBooking(sess.Collected.Name, sess.Collected.Phone, startsAt, s.loc), false
}

func (s *ConversationService) handleConfirm(ctx context.Context, sess *entities.CallSession, transcript string) (string, bool) {
	if sess.Collected.StartsAt == nil {
		sess.Step = entities.StepAskTime
		return promptAskTime, false
	}

	switch yes, no := parseAffirmation(transcript); {
	case no:
		// Declining restarts from the time question, never from the name.
		sess.Collected.StartsAt = nil
		sess.Step = entities.StepAskTime
		sess.ResetRetries(entities.StepAskTime)
		return promptAskDifferentTime, false

	case yes:
		return s.book(ctx, sess)

	default:
		return s.extractionMiss(sess, promptConfirmRetry, promptConfirmRetry)
	}
}

func (s *ConversationService) book(ctx context.Context, sess *entities.CallSession) (string, bool) {
	startsAt := *sess.Collected.StartsAt
	appt, err := s.booking.ConfirmBooking(ctx, BookingRequest{
		Name:            sess.Collected.Name,
		Phone:           sess.Collected.Phone,
		StartsAt:        startsAt,
		DurationMinutes: sess.Collected.DurationMinutes,
		Notes:           sess.Collected.Notes,
	})

	switch {
	case err == nil:
		observability.RecordBooking(ctx, s.metrics, "booked")
		sess.Step = entities.StepDone
		return promptBooked(appt.StartsAt, s.loc), true

	case apperrors.IsConflict(err):
		// Duplicate slot is a business conflict, not a fault: offer an
		// alternative time instead of failing the call.
		observability.RecordBooking(ctx, s.metrics, "duplicate")
		sess.Collected.StartsAt = nil
		sess.Step = entities.StepAskTime
		sess.ResetRetries(entities.StepAskTime)
		return promptDuplicateSlot, false

	default:
		observability.RecordBooking(ctx, s.metrics, "failed")
		log.Error().Err(err).Str("call_id", sess.CallID).Msg("booking failed")
		sess.Step = entities.StepDone
		return promptBookingFailed, true
	}
}

// extractionMiss applies the retry policy for the current step: re-prompt
// up to the configured maximum, then switch to the deterministic fallback
// prompt, and finally hand off rather than loop forever.
func (s *ConversationService) extractionMiss(sess *entities.CallSession, retryPrompt, fallbackPrompt string) (string, bool) {
	sess.RecordRetry()
	count := sess.RetryCount()
	switch {
	case count < s.cfg.MaxRetries:
		return retryPrompt, false
	case count < s.cfg.MaxRetries*2:
		return fallbackPrompt, false
	default:
		sess.Step = entities.StepDone
		return promptHandoff, true
	}
}

// validationReject handles a value that parsed but is not an acceptable
// answer; the caller is told why and asked again for the same field.
func (s *ConversationService) validationReject(sess *entities.CallSession, prompt string) (string, bool) {
	sess.RecordRetry()
	if sess.RetryCount() >= s.cfg.MaxRetries*2 {
		sess.Step = entities.StepDone
		return promptHandoff, true
	}
	return prompt, false
}

// captureVolunteeredPhone notices a caller stating a phone number before
// the AskPhone step, which overrides the caller-ID shortcut. Only the
// deterministic strategies run here; the LLM is never consulted for a
// field we are not asking about.
func (s *ConversationService) captureVolunteeredPhone(sess *entities.CallSession, transcript string) {
	if r := s.extractor.PeekPhone(transcript); r.OK() {
		sess.Collected.Phone = r.Value
	}
}

// knownPhone returns the number to use when skipping AskPhone: an explicit
// override wins over the verified caller ID.
func (s *ConversationService) knownPhone(sess *entities.CallSession) string {
	if sess.Collected.Phone != "" {
		return sess.Collected.Phone
	}
	if sess.CallerIDPhone == "" {
		return ""
	}
	if r := s.extractor.PeekPhone(sess.CallerIDPhone); r.OK() {
		return r.Value
	}
	return ""
}

func (s *ConversationService) withinBusinessHours(t time.Time) bool {
	local := t.In(s.loc)
	hour := local.Hour()
	return hour >= s.cfg.BusinessOpenHour && hour < s.cfg.BusinessCloseHour
}

// reprompt restates the question for the session's current step
func (s *ConversationService) reprompt(sess *entities.CallSession) string {
	switch sess.Step {
	case entities.StepConfirmName:
		return promptConfirmName(sess.Collected.Name)
	case entities.StepAskPhone:
		return promptAskPhone
	case entities.StepAskTime:
		return promptAskTime
	case entities.StepConfirm:
		if sess.Collected.StartsAt != nil {
			return promptConfirmBooking(sess.Collected.Name, sess.Collected.Phone, *sess.Collected.StartsAt, s.loc)
		}
		return promptAskTime
	default:
		return promptGreeting
	}
}

var yesWords = map[string]struct{}{
	"yes": {}, "yeah": {}, "yep": {}, "yup": {}, "sure": {}, "correct": {},
	"right": {}, "ok": {}, "okay": {}, "absolutely": {}, "definitely": {},
	"confirm": {}, "confirmed": {}, "please": {},
}

var noWords = map[string]struct{}{
	"no": {}, "nope": {}, "nah": {}, "wrong": {}, "incorrect": {},
	"cancel": {}, "don't": {}, "dont": {}, "not": {},
}

// parseAffirmation reads a yes or a no out of the transcript. A transcript
// containing both leans negative: "no, that's not right, yes I mean..."
// is a correction.
func parseAffirmation(transcript string) (yes bool, no bool) {
	for _, raw := range strings.Fields(strings.ToLower(transcript)) {
		word := strings.Trim(raw, ".,!?;:")
		if _, ok := noWords[word]; ok {
			no = true
		}
		if _, ok := yesWords[word]; ok {
			yes = true
		}
	}
	if yes && no {
		return false, true
	}
	return yes, no
}
