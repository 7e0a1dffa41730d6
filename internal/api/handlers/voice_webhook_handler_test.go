package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/harborview/voicebook/internal/api/handlers"
	"github.com/harborview/voicebook/internal/application/services"
	"github.com/harborview/voicebook/internal/domain/entities"
	apperrors "github.com/harborview/voicebook/pkg/errors"
)

// Mocks

type MockConversationService struct {
	mock.Mock
}

func (m *MockConversationService) HandleTurn(ctx context.Context, turn services.Turn) (services.TurnResult, error) {
	args := m.Called(ctx, turn)
	return args.Get(0).(services.TurnResult), args.Error(1)
}

// Tests

func TestVoiceWebhookHandler_HandleTurn(t *testing.T) {
	t.Run("returns the next prompt", func(t *testing.T) {
		// Arrange
		svc := new(MockConversationService)
		svc.On("HandleTurn", mock.Anything, services.Turn{
			CallID:      "CA-1",
			CallerPhone: "+14165551234",
			Transcript:  "It's Johnny Smith",
		}).Return(services.TurnResult{
			Prompt: "I heard Johnny Smith. Is that right?",
			Step:   entities.StepConfirmName,
		}, nil)
		handler := handlers.NewVoiceWebhookHandler(svc)

		body := `{"call_id":"CA-1","caller_phone":"+14165551234","transcript":"It's Johnny Smith"}`
		req := httptest.NewRequest(http.MethodPost, "/api/voice/turn", strings.NewReader(body))
		rec := httptest.NewRecorder()

		// Act
		handler.HandleTurn(rec, req)

		// Assert
		assert.Equal(t, http.StatusOK, rec.Code)

		var result services.TurnResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "I heard Johnny Smith. Is that right?", result.Prompt)
		assert.Equal(t, entities.StepConfirmName, result.Step)
		assert.False(t, result.Done)
		svc.AssertExpectations(t)
	})

	t.Run("rejects malformed json", func(t *testing.T) {
		// Arrange
		handler := handlers.NewVoiceWebhookHandler(new(MockConversationService))
		req := httptest.NewRequest(http.MethodPost, "/api/voice/turn", strings.NewReader("{not json"))
		rec := httptest.NewRecorder()

		// Act
		handler.HandleTurn(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("maps a validation error to 400", func(t *testing.T) {
		// Arrange
		svc := new(MockConversationService)
		svc.On("HandleTurn", mock.Anything, mock.Anything).
			Return(services.TurnResult{}, apperrors.NewValidationError("call_id is required"))
		handler := handlers.NewVoiceWebhookHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/voice/turn", strings.NewReader(`{"transcript":"hi"}`))
		rec := httptest.NewRecorder()

		// Act
		handler.HandleTurn(rec, req)

		// Assert
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "call_id is required")
	})

	t.Run("maps an internal error to 500", func(t *testing.T) {
		// Arrange
		svc := new(MockConversationService)
		svc.On("HandleTurn", mock.Anything, mock.Anything).
			Return(services.TurnResult{}, apperrors.NewInternalError("store down", nil))
		handler := handlers.NewVoiceWebhookHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/voice/turn", strings.NewReader(`{"call_id":"CA-1","transcript":"hi"}`))
		rec := httptest.NewRecorder()

		// Act
		handler.HandleTurn(rec, req)

		// Assert
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}
