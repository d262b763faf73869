package observability

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
)

// SetupTracing initializes OpenTelemetry tracing with stdout exporter (for demo; replace with OTLP in prod)
func SetupTracing(serviceName string) func() {
	exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		log.Fatalf("failed to initialize stdouttrace exporter: %v", err)
	}
	res, _ := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	provider := trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return func() { _ = provider.Shutdown(context.Background()) }
}

// SetupPrometheusMetrics initializes the Prometheus metrics exporter
func SetupPrometheusMetrics() *metric.MeterProvider {
	exp, err := prometheus.New()
	if err != nil {
		log.Fatalf("failed to initialize prometheus exporter: %v", err)
	}
	mp := metric.NewMeterProvider(metric.WithReader(exp))
	otel.SetMeterProvider(mp)
	return mp
}

// MetricsHandler exposes the Prometheus scrape endpoint as a gin handler
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// ChatMetrics holds the instruments recorded by the chat turn path
type ChatMetrics struct {
	turns       otelmetric.Int64Counter
	failures    otelmetric.Int64Counter
	turnLatency otelmetric.Float64Histogram
}

// NewChatMetrics registers chat turn instruments on the global meter
func NewChatMetrics() *ChatMetrics {
	meter := otel.Meter("ai-chat/chat")

	turns, err := meter.Int64Counter("chat_turns_total",
		otelmetric.WithDescription("completed chat turns"))
	if err != nil {
		log.Printf("failed to register chat turn counter: %v", err)
	}
	failures, err := meter.Int64Counter("chat_turn_failures_total",
		otelmetric.WithDescription("failed chat turns by reason"))
	if err != nil {
		log.Printf("failed to register chat failure counter: %v", err)
	}
	latency, err := meter.Float64Histogram("chat_turn_duration_seconds",
		otelmetric.WithDescription("end-to-end chat turn latency"))
	if err != nil {
		log.Printf("failed to register chat latency histogram: %v", err)
	}

	return &ChatMetrics{turns: turns, failures: failures, turnLatency: latency}
}

// RecordTurn records one completed turn and its latency
func (m *ChatMetrics) RecordTurn(ctx context.Context, d time.Duration) {
	if m == nil || m.turns == nil {
		return
	}
	m.turns.Add(ctx, 1)
	m.turnLatency.Record(ctx, d.Seconds())
}

// RecordFailure records one failed turn tagged with a reason
func (m *ChatMetrics) RecordFailure(ctx context.Context, reason string) {
	if m == nil || m.failures == nil {
		return
	}
	m.failures.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("reason", reason)))
}
