package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/harborview/voicebook/internal/application/services"
)

// ConversationService defines the interface for handling conversation turns
type ConversationService interface {
	HandleTurn(ctx context.Context, turn services.Turn) (services.TurnResult, error)
}

// VoiceWebhookHandler handles decoded voice turns. The telephony envelope
// has already been parsed by the provider-specific layer; this endpoint
// receives plain fields and answers with the next spoken prompt.
type VoiceWebhookHandler struct {
	service ConversationService
}

// NewVoiceWebhookHandler creates a new voice webhook handler
func NewVoiceWebhookHandler(service ConversationService) *VoiceWebhookHandler {
	return &VoiceWebhookHandler{
		service: service,
	}
}

type turnRequest struct {
	CallID      string   `json:"call_id"`
	CallerPhone string   `json:"caller_phone,omitempty"`
	Transcript  string   `json:"transcript,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// HandleTurn handles POST /api/voice/turn
func (h *VoiceWebhookHandler) HandleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}

	result, err := h.service.HandleTurn(r.Context(), services.Turn{
		CallID:      req.CallID,
		CallerPhone: req.CallerPhone,
		Transcript:  req.Transcript,
		Confidence:  req.Confidence,
	})
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, result)
}
