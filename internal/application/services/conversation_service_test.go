package services_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harborview/voicebook/internal/application/services"
	"github.com/harborview/voicebook/internal/domain/entities"
	"github.com/harborview/voicebook/internal/extraction"
	"github.com/harborview/voicebook/internal/session"
	"github.com/harborview/voicebook/pkg/config"
	apperrors "github.com/harborview/voicebook/pkg/errors"
)

// Mocks

type MockBooker struct {
	mock.Mock
}

func (m *MockBooker) ConfirmBooking(ctx context.Context, req services.BookingRequest) (*entities.Appointment, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Appointment), args.Error(1)
}

// Fixtures

var torontoLoc = func() *time.Location {
	loc, err := time.LoadLocation("America/Toronto")
	if err != nil {
		panic(err)
	}
	return loc
}()

// Monday morning during business hours
var turnBase = time.Date(2025, 10, 6, 10, 0, 0, 0, torontoLoc)

func conversationConfig() config.ConversationConfig {
	return config.ConversationConfig{
		SessionTTL:             15 * time.Minute,
		MaxRetries:             3,
		DefaultDurationMinutes: 30,
		BusinessOpenHour:       9,
		BusinessCloseHour:      17,
		BusinessTimeZone:       "America/Toronto",
		PhoneRegions:           []string{"CA", "US"},
		DefaultCountryCode:     "1",
	}
}

func newConversation(booker services.Booker) (*services.ConversationService, *session.MemoryStore) {
	cfg := conversationConfig()
	store := session.NewMemoryStore(cfg.SessionTTL, cfg.DefaultDurationMinutes)
	extractor := extraction.New(cfg, extraction.WithClock(func() time.Time { return turnBase }))
	svc := services.NewConversationService(store, extractor, booker, cfg, nil)
	svc.SetClock(func() time.Time { return turnBase })
	return svc, store
}

func speak(t *testing.T, svc *services.ConversationService, callID, callerPhone, transcript string) services.TurnResult {
	t.Helper()
	result, err := svc.HandleTurn(context.Background(), services.Turn{
		CallID:      callID,
		CallerPhone: callerPhone,
		Transcript:  transcript,
	})
	require.NoError(t, err)
	return result
}

// reachAskTime walks a call up to the time question with a verified number
func reachAskTime(t *testing.T, svc *services.ConversationService, callID string) {
	t.Helper()
	speak(t, svc, callID, "+14165551234", "")
	speak(t, svc, callID, "", "It's Johnny Smith")
	result := speak(t, svc, callID, "", "yes")
	require.Equal(t, entities.StepAskTime, result.Step)
}

// Tests

func TestConversationService_HandleTurn(t *testing.T) {
	t.Run("requires a call id", func(t *testing.T) {
		// Arrange
		svc, _ := newConversation(new(MockBooker))

		// Act
		_, err := svc.HandleTurn(context.Background(), services.Turn{Transcript: "hello"})

		// Assert
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("greets a new call with no speech", func(t *testing.T) {
		// Arrange
		svc, _ := newConversation(new(MockBooker))

		// Act
		result := speak(t, svc, "CA-1", "+14165551234", "")

		// Assert
		assert.Equal(t, entities.StepAskName, result.Step)
		assert.Contains(t, result.Prompt, "name")
		assert.False(t, result.Done)
	})

	t.Run("books end to end with the caller id shortcut", func(t *testing.T) {
		// Arrange
		startsAt := time.Date(2025, 10, 7, 14, 0, 0, 0, torontoLoc)
		booker := new(MockBooker)
		booker.On("ConfirmBooking", mock.Anything, mock.MatchedBy(func(req services.BookingRequest) bool {
			return req.Name == "Johnny Smith" &&
				req.Phone == "+14165551234" &&
				req.StartsAt.Equal(startsAt) &&
				req.DurationMinutes == 30
		})).Return(&entities.Appointment{ID: "appt-1", StartsAt: startsAt.UTC()}, nil)
		svc, store := newConversation(booker)

		// Act
		speak(t, svc, "CA-1", "+14165551234", "")
		confirmName := speak(t, svc, "CA-1", "", "It's Johnny Smith")
		askTime := speak(t, svc, "CA-1", "", "yes")
		confirm := speak(t, svc, "CA-1", "", "tomorrow at 2pm")
		booked := speak(t, svc, "CA-1", "", "yes, go ahead")

		// Assert
		assert.Contains(t, confirmName.Prompt, "Johnny Smith")
		assert.Contains(t, askTime.Prompt, "calling from")
		assert.Equal(t, entities.StepConfirm, confirm.Step)
		assert.Contains(t, confirm.Prompt, "Johnny Smith")
		assert.Contains(t, confirm.Prompt, "+14165551234")
		assert.True(t, booked.Done)
		assert.Contains(t, booked.Prompt, "all set")
		booker.AssertExpectations(t)

		// The finished session is gone; a new turn starts over.
		assert.Equal(t, 0, store.Len())
	})

	t.Run("asks for the number when there is no caller id", func(t *testing.T) {
		// Arrange
		svc, _ := newConversation(new(MockBooker))

		// Act
		speak(t, svc, "CA-1", "", "")
		speak(t, svc, "CA-1", "", "my name is Johnny Smith")
		result := speak(t, svc, "CA-1", "", "yes")

		// Assert
		assert.Equal(t, entities.StepAskPhone, result.Step)
	})

	t.Run("a volunteered number overrides the caller id", func(t *testing.T) {
		// Arrange
		startsAt := time.Date(2025, 10, 7, 14, 0, 0, 0, torontoLoc)
		booker := new(MockBooker)
		booker.On("ConfirmBooking", mock.Anything, mock.MatchedBy(func(req services.BookingRequest) bool {
			return req.Phone == "+16475551234"
		})).Return(&entities.Appointment{ID: "appt-1", StartsAt: startsAt.UTC()}, nil)
		svc, _ := newConversation(booker)

		// Act
		speak(t, svc, "CA-1", "+14165551234", "")
		speak(t, svc, "CA-1", "", "It's Johnny Smith, reach me at 647-555-1234")
		result := speak(t, svc, "CA-1", "", "yes")
		confirm := speak(t, svc, "CA-1", "", "tomorrow at 2pm")
		speak(t, svc, "CA-1", "", "yes")

		// Assert
		assert.Equal(t, entities.StepAskTime, result.Step)
		assert.Contains(t, confirm.Prompt, "+16475551234")
		booker.AssertExpectations(t)
	})

	t.Run("rejecting the heard name restarts only the name", func(t *testing.T) {
		// Arrange
		svc, _ := newConversation(new(MockBooker))

		// Act
		speak(t, svc, "CA-1", "", "")
		speak(t, svc, "CA-1", "", "It's Johnny Smith")
		rejected := speak(t, svc, "CA-1", "", "no, that's wrong")
		reheard := speak(t, svc, "CA-1", "", "my name is Jane Doe")

		// Assert
		assert.Equal(t, entities.StepAskName, rejected.Step)
		assert.Contains(t, reheard.Prompt, "Jane Doe")
	})
}

func TestConversationService_NoRegression(t *testing.T) {
	t.Run("garbage at the time step leaves earlier fields untouched", func(t *testing.T) {
		// Arrange
		svc, store := newConversation(new(MockBooker))
		reachAskTime(t, svc, "CA-1")

		// Act
		result := speak(t, svc, "CA-1", "", "uh... not sure")

		// Assert
		assert.Equal(t, entities.StepAskTime, result.Step)
		assert.False(t, result.Done)

		sess, created, err := store.GetOrCreate(context.Background(), "CA-1")
		require.NoError(t, err)
		require.False(t, created)
		assert.Equal(t, "Johnny Smith", sess.Collected.Name)
		assert.Equal(t, "+14165551234", sess.Collected.Phone)
	})

	t.Run("random noise never regresses the step", func(t *testing.T) {
		// Arrange
		svc, store := newConversation(new(MockBooker))
		reachAskTime(t, svc, "CA-1")
		noise := []string{
			"hmm let me think",
			"is it raining over there",
			"sorry my kid is yelling",
		}

		// Act / Assert
		for i, transcript := range noise {
			result := speak(t, svc, "CA-1", "", transcript)
			assert.Equal(t, entities.StepAskTime, result.Step, "turn %d: %q", i, transcript)

			sess, _, err := store.GetOrCreate(context.Background(), "CA-1")
			require.NoError(t, err)
			assert.Equal(t, "Johnny Smith", sess.Collected.Name)
			assert.Equal(t, "+14165551234", sess.Collected.Phone)
		}
	})
}

func TestConversationService_RetryPolicy(t *testing.T) {
	t.Run("escalates from retry to fallback to handoff", func(t *testing.T) {
		// Arrange
		svc, store := newConversation(new(MockBooker))
		speak(t, svc, "CA-1", "", "")

		// Act: six straight misses at the name step
		var prompts []string
		var last services.TurnResult
		for i := 0; i < 6; i++ {
			last = speak(t, svc, "CA-1", "", fmt.Sprintf("mumble mumble attempt number whatever %d", i))
			prompts = append(prompts, last.Prompt)
		}

		// Assert: two retries, three fallback phrasings, then the handoff
		assert.Contains(t, prompts[0], "didn't catch your name")
		assert.Contains(t, prompts[1], "didn't catch your name")
		assert.Contains(t, prompts[2], "first and last name")
		assert.Contains(t, prompts[4], "first and last name")
		assert.True(t, last.Done)
		assert.Contains(t, last.Prompt, "transfer")
		assert.Equal(t, 0, store.Len())
	})

	t.Run("silent turns do not burn retries", func(t *testing.T) {
		// Arrange
		svc, _ := newConversation(new(MockBooker))
		speak(t, svc, "CA-1", "", "")

		// Act
		var last services.TurnResult
		for i := 0; i < 10; i++ {
			last = speak(t, svc, "CA-1", "", "")
		}

		// Assert
		assert.False(t, last.Done)
		assert.Equal(t, entities.StepAskName, last.Step)
	})
}

func TestConversationService_TimeValidation(t *testing.T) {
	t.Run("a past time is rejected with a reprompt", func(t *testing.T) {
		// Arrange
		svc, _ := newConversation(new(MockBooker))
		reachAskTime(t, svc, "CA-1")

		// Act
		result := speak(t, svc, "CA-1", "", "yesterday at 2pm")

		// Assert
		assert.Equal(t, entities.StepAskTime, result.Step)
		assert.Contains(t, result.Prompt, "already passed")
	})

	t.Run("a time outside business hours is rejected with a reprompt", func(t *testing.T) {
		// Arrange
		svc, _ := newConversation(new(MockBooker))
		reachAskTime(t, svc, "CA-1")

		// Act
		result := speak(t, svc, "CA-1", "", "tomorrow at 8pm")

		// Assert
		assert.Equal(t, entities.StepAskTime, result.Step)
		assert.Contains(t, result.Prompt, "between 9 AM and 5 PM")
	})
}

func TestConversationService_Confirm(t *testing.T) {
	reachConfirm := func(t *testing.T, svc *services.ConversationService) {
		t.Helper()
		reachAskTime(t, svc, "CA-1")
		result := speak(t, svc, "CA-1", "", "tomorrow at 2pm")
		require.Equal(t, entities.StepConfirm, result.Step)
	}

	t.Run("declining returns to the time question only", func(t *testing.T) {
		// Arrange
		svc, store := newConversation(new(MockBooker))
		reachConfirm(t, svc)

		// Act
		result := speak(t, svc, "CA-1", "", "no, actually")

		// Assert
		assert.Equal(t, entities.StepAskTime, result.Step)
		assert.Contains(t, result.Prompt, "other day and time")

		sess, _, err := store.GetOrCreate(context.Background(), "CA-1")
		require.NoError(t, err)
		assert.Equal(t, "Johnny Smith", sess.Collected.Name)
		assert.Nil(t, sess.Collected.StartsAt)
	})

	t.Run("a mixed yes and no reads as a correction", func(t *testing.T) {
		// Arrange
		svc, _ := newConversation(new(MockBooker))
		reachConfirm(t, svc)

		// Act
		result := speak(t, svc, "CA-1", "", "no wait, yes I mean a different day")

		// Assert
		assert.Equal(t, entities.StepAskTime, result.Step)
	})

	t.Run("a duplicate slot offers another time", func(t *testing.T) {
		// Arrange
		booker := new(MockBooker)
		booker.On("ConfirmBooking", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewConflictError("already booked"))
		svc, _ := newConversation(booker)
		reachConfirm(t, svc)

		// Act
		result := speak(t, svc, "CA-1", "", "yes")

		// Assert
		assert.False(t, result.Done)
		assert.Equal(t, entities.StepAskTime, result.Step)
		assert.Contains(t, result.Prompt, "already have an appointment")
	})

	t.Run("a persistence failure ends the call apologetically", func(t *testing.T) {
		// Arrange
		booker := new(MockBooker)
		booker.On("ConfirmBooking", mock.Anything, mock.Anything).
			Return(nil, apperrors.NewInternalError("insert failed", errors.New("connection reset")))
		svc, _ := newConversation(booker)
		reachConfirm(t, svc)

		// Act
		result := speak(t, svc, "CA-1", "", "yes")

		// Assert
		assert.True(t, result.Done)
		assert.Contains(t, result.Prompt, "call us back")
	})
}
