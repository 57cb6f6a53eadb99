package telemetry

import (
	"context"
	"time"

	"flightshare/internal/pkg/config"
	"flightshare/internal/pkg/errs"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	instrumentationName  = "flightshare"
	metricExportInterval = 15 * time.Second
)

// Setup installs the global tracer and meter providers. Telemetry is opt-in:
// with it disabled or no endpoint configured a no-op shutdown is returned.
func Setup(ctx context.Context, cfg config.TelemetryConfig) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	if !cfg.Enabled || cfg.Endpoint == "" {
		return noop, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
		),
	)
	if err != nil {
		return noop, errs.Wrap(err, "telemetry resource")
	}

	traceExporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
	)
	if err != nil {
		return noop, errs.Wrap(err, "trace exporter")
	}

	metricExporter, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpointURL(cfg.Endpoint),
	)
	if err != nil {
		return noop, errs.Wrap(err, "metric exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
			sdkmetric.WithInterval(metricExportInterval),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return func(ctx context.Context) error {
		return errs.Join(mp.Shutdown(ctx), tp.Shutdown(ctx))
	}, nil
}

func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// Instruments groups the lifecycle counters. A zero Instruments is usable and
// records nothing.
type Instruments struct {
	acceptOutcomes metric.Int64Counter
	settleOutcomes metric.Int64Counter
	reconciliation metric.Int64Counter
}

// NewInstruments registers the counters on the global meter provider. They
// start exporting once Setup installs an SDK provider.
func NewInstruments() (*Instruments, error) {
	return NewInstrumentsWith(otel.GetMeterProvider())
}

func NewInstrumentsWith(mp metric.MeterProvider) (*Instruments, error) {
	meter := mp.Meter(instrumentationName)

	accept, err := meter.Int64Counter("offer.accept.outcomes",
		metric.WithDescription("Acceptance attempts by outcome"))
	if err != nil {
		return nil, err
	}
	settle, err := meter.Int64Counter("offer.settle.outcomes",
		metric.WithDescription("Settlement attempts by outcome"))
	if err != nil {
		return nil, err
	}
	recon, err := meter.Int64Counter("offer.reconciliation.passes",
		metric.WithDescription("Inline reconciliation passes by result"))
	if err != nil {
		return nil, err
	}

	return &Instruments{acceptOutcomes: accept, settleOutcomes: settle, reconciliation: recon}, nil
}

func (i *Instruments) AcceptOutcome(ctx context.Context, outcome string) {
	if i == nil || i.acceptOutcomes == nil {
		return
	}
	i.acceptOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (i *Instruments) SettleOutcome(ctx context.Context, outcome string) {
	if i == nil || i.settleOutcomes == nil {
		return
	}
	i.settleOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (i *Instruments) ReconciliationPass(ctx context.Context, trigger, result string) {
	if i == nil || i.reconciliation == nil {
		return
	}
	i.reconciliation.Add(ctx, 1, metric.WithAttributes(
		attribute.String("trigger", trigger),
		attribute.String("result", result),
	))
}
