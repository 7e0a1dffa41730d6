package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/harborview/voicebook/internal/adapters/database"
	"github.com/harborview/voicebook/internal/adapters/database/memory"
	"github.com/harborview/voicebook/internal/adapters/providers/scheduling"
	"github.com/harborview/voicebook/internal/api/handlers"
	"github.com/harborview/voicebook/internal/api/routes"
	"github.com/harborview/voicebook/internal/application/services"
	"github.com/harborview/voicebook/internal/domain/repositories"
	"github.com/harborview/voicebook/internal/extraction"
	"github.com/harborview/voicebook/internal/infrastructure/clients/openai"
	"github.com/harborview/voicebook/internal/infrastructure/clients/postgres"
	"github.com/harborview/voicebook/internal/infrastructure/clients/redis"
	"github.com/harborview/voicebook/internal/infrastructure/nlp"
	"github.com/harborview/voicebook/internal/infrastructure/notifications"
	"github.com/harborview/voicebook/internal/infrastructure/observability"
	"github.com/harborview/voicebook/internal/session"
	"github.com/harborview/voicebook/pkg/config"
)

func main() {

	// Load .env if present; environment variables win
	_ = godotenv.Load()

	// Load configuration

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Environment)

	// Set up context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	var shutdown func(context.Context) error
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err = observability.Setup(
			ctx,
			cfg.OTEL.ServiceName,
			cfg.OTEL.ServiceVersion,
			cfg.OTEL.Endpoint,
		)
		if err != nil {
			log.Printf("Warning: Failed to set up OpenTelemetry: %v", err)
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Printf("Error shutting down OpenTelemetry: %v", err)
				}
			}()
			log.Println("OpenTelemetry initialized successfully")
		}
	}

	// Initialize metrics
	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatalf("Failed to initialize metrics: %v", err)
	}

	// Initialize database client. Without Postgres the service keeps
	// working on in-memory repositories, which is enough for local runs.
	var (
		callerRepo      repositories.CallerRepository
		appointmentRepo repositories.AppointmentRepository
	)
	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Printf("Warning: Failed to initialize PostgreSQL client: %v", err)
		log.Println("⚠ Falling back to in-memory repositories (data lost on restart)")
		callerRepo = memory.NewCallerRepo()
		appointmentRepo = memory.NewAppointmentRepo()
	} else {
		defer pgClient.Close()
		callerRepo = database.NewCallerAdapter(pgClient)
		appointmentRepo = database.NewAppointmentAdapter(pgClient)
		log.Println("PostgreSQL client initialized successfully")
	}

	// Initialize session store. Redis gives sessions that survive a
	// restart mid-call; without it the in-memory store applies the same
	// TTL rules.
	var sessionStore session.Store
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to initialize Redis client: %v", err)
		sessionStore = session.NewMemoryStore(cfg.Conversation.SessionTTL, cfg.Conversation.DefaultDurationMinutes)
		log.Println("⚠ Session store running in-memory (Redis unavailable)")
	} else {
		defer redisClient.Close()
		sessionStore = session.NewRedisStore(redisClient.Client(), cfg.Conversation.SessionTTL, cfg.Conversation.DefaultDurationMinutes)
		log.Println("Redis session store initialized successfully")
	}

	// Initialize extraction layers

	extractorOpts := []extraction.Option{}

	if os.Getenv("NER_ENABLED") != "false" {
		extractorOpts = append(extractorOpts, extraction.WithPersonTagger(nlp.NewProseTagger()))
	}

	if cfg.OpenAI.APIKey == "" {
		log.Println("Warning: OPENAI_API_KEY is not set; transcript cleanup fallback disabled")
	} else {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Printf("Warning: Failed to initialize OpenAI client: %v", err)
		} else {
			extractorOpts = append(extractorOpts, extraction.WithLLMFallback(openaiClient))
		}
	}

	extractor := extraction.New(cfg.Conversation, extractorOpts...)

	// Initialize providers

	calendarProvider := scheduling.NewCalendlyAdapter(&cfg.Calendar)

	var notifier services.Notifier
	smsSender, err := notifications.NewTwilioSMSSender(&cfg.SMS)
	if err != nil {
		log.Printf("Warning: SMS confirmations disabled: %v", err)
	} else {
		notifier = services.NewNotificationService(smsSender, cfg.Conversation.BusinessLocation())
	}

	// Initialize services

	bookingService := services.NewBookingService(
		callerRepo,
		appointmentRepo,
		calendarProvider,
		notifier,
		metrics,
	)

	conversationService := services.NewConversationService(
		sessionStore,
		extractor,
		bookingService,
		cfg.Conversation,
		metrics,
	)

	// Initialize handlers

	voiceWebhookHandler := handlers.NewVoiceWebhookHandler(conversationService)
	twilioVoiceHandler := handlers.NewTwilioVoiceHandler(conversationService)

	// Set up router

	router := routes.NewRouter(
		voiceWebhookHandler,
		twilioVoiceHandler,
		metrics,
	)

	handler := router.SetupRoutes()

	// Create HTTP server
	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", serverAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error during server shutdown: %v", err)
	}

	log.Println("Server stopped")
}
