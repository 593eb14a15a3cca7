package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

type Observability struct {
	meterProvider      *metric.MeterProvider
	meter              otelmetric.Meter
	detectionCounter   otelmetric.Int64Counter
	detectionDuration  otelmetric.Float64Histogram
	correctionCounter  otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	detectionCounter, _ := meter.Int64Counter(
		"detections.runs",
		otelmetric.WithDescription("Number of detection runs"),
	)

	detectionDuration, _ := meter.Float64Histogram(
		"detections.duration",
		otelmetric.WithDescription("Detection run duration"),
		otelmetric.WithUnit("ms"),
	)

	correctionCounter, _ := meter.Int64Counter(
		"corrections.targets",
		otelmetric.WithDescription("Correction targets processed"),
	)

	return &Observability{
		meterProvider:     provider,
		meter:             meter,
		detectionCounter:  detectionCounter,
		detectionDuration: detectionDuration,
		correctionCounter: correctionCounter,
	}
}

func (o *Observability) RecordDetectionRun(ctx context.Context, status string, duration time.Duration) {
	if o.detectionCounter != nil {
		o.detectionCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("status", status),
		))
	}
	if o.detectionDuration != nil {
		o.detectionDuration.Record(ctx, float64(duration.Milliseconds()))
	}
}

func (o *Observability) RecordCorrection(ctx context.Context, divergenceType, outcome string) {
	if o.correctionCounter != nil {
		o.correctionCounter.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("type", divergenceType),
			attribute.String("outcome", outcome),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = o.meterProvider.Shutdown(ctx)
	}
}
