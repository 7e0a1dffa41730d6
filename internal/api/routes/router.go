package routes

import (
	"net/http"

	"github.com/harborview/voicebook/internal/api/handlers"
	"github.com/harborview/voicebook/internal/api/middleware"
	"github.com/harborview/voicebook/internal/infrastructure/observability"
)

// Router holds all route handlers

type Router struct {
	mux *http.ServeMux

	voiceWebhookHandler *handlers.VoiceWebhookHandler
	twilioVoiceHandler  *handlers.TwilioVoiceHandler

	metrics *observability.Metrics
}

// NewRouter creates a new router
func NewRouter(
	voiceWebhookHandler *handlers.VoiceWebhookHandler,
	twilioVoiceHandler *handlers.TwilioVoiceHandler,
	metrics *observability.Metrics,
) *Router {
	return &Router{
		mux: http.NewServeMux(),

		voiceWebhookHandler: voiceWebhookHandler,
		twilioVoiceHandler:  twilioVoiceHandler,

		metrics: metrics,
	}
}

// SetupRoutes configures all application routes

func (r *Router) SetupRoutes() http.Handler {

	// Health check endpoint
	r.mux.HandleFunc("GET /health", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			return
		}
	})

	// Conversation endpoints

	r.mux.HandleFunc("POST /api/voice/turn", r.voiceWebhookHandler.HandleTurn)

	// Twilio posts speech transcripts here and expects TwiML back
	if r.twilioVoiceHandler != nil {
		r.mux.HandleFunc("POST /api/voice/twilio", r.twilioVoiceHandler.HandleCall)
	}

	// Apply middleware in reverse order (last middleware wraps first)

	var handler http.Handler = r.mux
	handler = middleware.ObservabilityMiddleware(r.metrics)(handler)
	handler = middleware.LoggingMiddleware(handler)

	return handler
}
