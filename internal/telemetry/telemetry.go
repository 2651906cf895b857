// Package telemetry bootstraps the OTel tracer, meter, and logger
// providers the rest of the module's packages acquire with
// otel.Tracer/otel.Meter (SPEC_FULL.md §9B).
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/evlaV/steamos-atomupd/internal/log"
)

// Protocol selects the OTLP transport used for every signal.
type Protocol string

const (
	ProtocolGRPC Protocol = "grpc"
	ProtocolHTTP Protocol = "http"
)

// Config tunes telemetry export. A zero Endpoint disables OTLP export
// entirely; the providers remain installed (so otel.Tracer/otel.Meter
// calls elsewhere never panic) but never emit anything off-process.
type Config struct {
	Endpoint    string
	Protocol    Protocol
	ServiceName string
}

// Shutdown flushes and tears down every provider this package installed.
type Shutdown func(context.Context) error

// Bootstrap installs global TracerProvider, MeterProvider, and an
// slog.Handler bridged to an OTel LoggerProvider, per cfg. Call the
// returned Shutdown before process exit to flush pending telemetry.
func Bootstrap(ctx context.Context, cfg Config) (*slog.Logger, Shutdown, error) {
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", cfg.ServiceName),
	))
	if err != nil {
		return nil, nil, fmt.Errorf("telemetry: build resource: %w", err)
	}

	if cfg.Endpoint == "" {
		tp := sdktrace.NewTracerProvider(sdktrace.WithResource(res), sdktrace.WithSampler(sdktrace.NeverSample()))
		otel.SetTracerProvider(tp)
		mp := metric.NewMeterProvider(metric.WithResource(res))
		otel.SetMeterProvider(mp)
		return slog.New(log.WrapHandler(slog.Default().Handler())), func(context.Context) error {
			return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
		}, nil
	}

	traceExp, err := newTraceExporter(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	metricExp, err := newMetricExporter(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logExp, err := newLogExporter(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(traceExp),
	)
	otel.SetTracerProvider(tp)

	mp := metric.NewMeterProvider(
		metric.WithResource(res),
		metric.WithReader(metric.NewPeriodicReader(metricExp, metric.WithInterval(15*time.Second))),
	)
	otel.SetMeterProvider(mp)

	lp := sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
	)

	logger := slog.New(log.WrapHandler(otelslog.NewHandler(cfg.ServiceName, otelslog.WithLoggerProvider(lp))))

	shutdown := func(ctx context.Context) error {
		return errors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx), lp.Shutdown(ctx))
	}
	return logger, shutdown, nil
}

func newTraceExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.Protocol {
	case ProtocolHTTP:
		return otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(cfg.Endpoint))
	default:
		return otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.Endpoint))
	}
}

func newMetricExporter(ctx context.Context, cfg Config) (metric.Exporter, error) {
	switch cfg.Protocol {
	case ProtocolHTTP:
		return otlpmetrichttp.New(ctx, otlpmetrichttp.WithEndpoint(cfg.Endpoint))
	default:
		return otlpmetricgrpc.New(ctx, otlpmetricgrpc.WithEndpoint(cfg.Endpoint))
	}
}

func newLogExporter(ctx context.Context, cfg Config) (sdklog.Exporter, error) {
	switch cfg.Protocol {
	case ProtocolHTTP:
		return otlploghttp.New(ctx, otlploghttp.WithEndpoint(cfg.Endpoint))
	default:
		return otlploggrpc.New(ctx, otlploggrpc.WithEndpoint(cfg.Endpoint))
	}
}
