package tracer

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/metric"
)

var (
	postsIngestedTotal          metric.Int64Counter
	ingestDurationSeconds       metric.Float64Histogram
	detourRequestsTotal         metric.Int64Counter
	canonicalizeDurationSeconds metric.Float64Histogram
)

// InitializeMetrics sets up the application's metrics. Call this during startup.
func InitializeMetrics(meter metric.Meter) {
	var err error

	postsIngestedTotal, err = meter.Int64Counter(
		"posts_ingested_total",
		metric.WithDescription("Total number of ingested social posts"),
	)
	if err != nil {
		log.Fatalf("Failed to create posts_ingested_total counter: %v", err)
	}

	ingestDurationSeconds, err = meter.Float64Histogram(
		"ingest_duration_seconds",
		metric.WithDescription("Duration of post ingestion in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Fatalf("Failed to create ingest_duration_seconds histogram: %v", err)
	}

	detourRequestsTotal, err = meter.Int64Counter(
		"detour_requests_total",
		metric.WithDescription("Total number of detour suggestion requests"),
	)
	if err != nil {
		log.Fatalf("Failed to create detour_requests_total counter: %v", err)
	}

	canonicalizeDurationSeconds, err = meter.Float64Histogram(
		"canonicalize_duration_seconds",
		metric.WithDescription("Duration of post canonicalization in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Fatalf("Failed to create canonicalize_duration_seconds histogram: %v", err)
	}

	log.Println("Application metrics initialized successfully.")
}

// The recorders are no-ops until InitializeMetrics runs, so tests can
// exercise handlers without a meter provider.

func RecordPostIngested(ctx context.Context) {
	if postsIngestedTotal != nil {
		postsIngestedTotal.Add(ctx, 1)
	}
}

func ObserveIngestDuration(ctx context.Context, seconds float64) {
	if ingestDurationSeconds != nil {
		ingestDurationSeconds.Record(ctx, seconds)
	}
}

func RecordDetourRequest(ctx context.Context) {
	if detourRequestsTotal != nil {
		detourRequestsTotal.Add(ctx, 1)
	}
}

func ObserveCanonicalizeDuration(ctx context.Context, seconds float64) {
	if canonicalizeDurationSeconds != nil {
		canonicalizeDurationSeconds.Record(ctx, seconds)
	}
}
