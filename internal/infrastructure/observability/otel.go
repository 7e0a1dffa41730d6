package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/harborview/voicebook"

// Metrics holds all application metrics
type Metrics struct {
	RequestCount         metric.Int64Counter
	RequestDuration      metric.Float64Histogram
	TurnCount            metric.Int64Counter
	TurnDuration         metric.Float64Histogram
	ExtractionCount      metric.Int64Counter
	BookingCount         metric.Int64Counter
	CalendarSyncFailures metric.Int64Counter
}

// Setup initializes OpenTelemetry
func Setup(ctx context.Context, serviceName, serviceVersion, endpoint string) (func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	traceExporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	shutdown := func(ctx context.Context) error {
		return tracerProvider.Shutdown(ctx)
	}

	return shutdown, nil
}

// InitMetrics initializes application metrics
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	turnCount, err := meter.Int64Counter(
		"conversation.turn.count",
		metric.WithDescription("Number of handled webhook turns"),
	)
	if err != nil {
		return nil, err
	}

	turnDuration, err := meter.Float64Histogram(
		"conversation.turn.duration",
		metric.WithDescription("Turn handling duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	extractionCount, err := meter.Int64Counter(
		"extraction.attempt.count",
		metric.WithDescription("Field extraction attempts by field, strategy and outcome"),
	)
	if err != nil {
		return nil, err
	}

	bookingCount, err := meter.Int64Counter(
		"booking.confirm.count",
		metric.WithDescription("Booking confirmations by outcome"),
	)
	if err != nil {
		return nil, err
	}

	calendarSyncFailures, err := meter.Int64Counter(
		"calendar.sync.failure.count",
		metric.WithDescription("Calendar mirror attempts that exhausted their retries"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:         requestCount,
		RequestDuration:      requestDuration,
		TurnCount:            turnCount,
		TurnDuration:         turnDuration,
		ExtractionCount:      extractionCount,
		BookingCount:         bookingCount,
		CalendarSyncFailures: calendarSyncFailures,
	}, nil
}

// StartSpan starts a new trace span
func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	tracer := otel.Tracer(instrumentationName)
	return tracer.Start(ctx, spanName)
}

// RecordRequestMetric records an HTTP request metric
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	}
	metrics.RequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordTurn records one handled conversation turn
func RecordTurn(ctx context.Context, metrics *Metrics, step string, done bool, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("conversation.step", step),
		attribute.Bool("conversation.done", done),
	}
	metrics.TurnCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.TurnDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// RecordExtraction records one field extraction attempt
func RecordExtraction(ctx context.Context, metrics *Metrics, field, strategy string, ok bool) {
	if metrics == nil {
		return
	}
	metrics.ExtractionCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("extraction.field", field),
		attribute.String("extraction.strategy", strategy),
		attribute.Bool("extraction.ok", ok),
	))
}

// RecordBooking records a booking confirmation outcome
func RecordBooking(ctx context.Context, metrics *Metrics, outcome string) {
	if metrics == nil {
		return
	}
	metrics.BookingCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("booking.outcome", outcome),
	))
}

// RecordCalendarSyncFailure records an exhausted calendar mirror attempt
func RecordCalendarSyncFailure(ctx context.Context, metrics *Metrics) {
	if metrics == nil {
		return
	}
	metrics.CalendarSyncFailures.Add(ctx, 1)
}
