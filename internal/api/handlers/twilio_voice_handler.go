package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/harborview/voicebook/internal/application/services"
)

// TwilioVoiceHandler adapts Twilio's voice webhook to the conversation
// service. Twilio posts application/x-www-form-urlencoded and expects a
// TwiML document back; business logic lives entirely in the service.
type TwilioVoiceHandler struct {
	service ConversationService
}

// NewTwilioVoiceHandler creates a new Twilio voice handler
func NewTwilioVoiceHandler(service ConversationService) *TwilioVoiceHandler {
	return &TwilioVoiceHandler{
		service: service,
	}
}

// HandleCall handles POST /api/voice/twilio
func (h *TwilioVoiceHandler) HandleCall(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid form payload")
		return
	}

	turn := services.Turn{
		CallID:      r.PostFormValue("CallSid"),
		CallerPhone: r.PostFormValue("From"),
		Transcript:  r.PostFormValue("SpeechResult"),
	}
	if raw := r.PostFormValue("Confidence"); raw != "" {
		if confidence, err := strconv.ParseFloat(raw, 64); err == nil {
			turn.Confidence = &confidence
		}
	}

	result, err := h.service.HandleTurn(r.Context(), turn)
	if err != nil {
		// Twilio should always receive valid TwiML; apologize and end the
		// call rather than returning an error payload it cannot speak.
		log.Error().Err(err).Str("call_sid", turn.CallID).Msg("turn handling failed")
		writeTwiML(w, RenderHangup("I'm sorry, something went wrong on our end. Please call back shortly."))
		return
	}

	if result.Done {
		writeTwiML(w, RenderHangup(result.Prompt))
		return
	}
	writeTwiML(w, RenderGather(result.Prompt, r.URL.Path))
}

func writeTwiML(w http.ResponseWriter, document string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(document))
}
