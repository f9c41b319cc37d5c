package metrics

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/julianstephens/eyecare/internal/constants"
)

// Exporter records agent activity as OTLP metrics.
type Exporter struct {
	provider      *sdkmetric.MeterProvider
	focusSeconds  metric.Int64Counter
	breaksTotal   metric.Int64Counter
	sessionsTotal metric.Int64Counter
	rulesChanged  metric.Int64Counter
	reconcileErrs metric.Int64Counter
	messagesTotal metric.Int64Counter
}

// NewExporter creates an exporter pushing to cfg.Endpoint over gRPC.
func NewExporter(ctx context.Context, cfg Config) (*Exporter, error) {
	if !cfg.Enabled || cfg.Endpoint == "" {
		return nil, fmt.Errorf("OTEL exporter is disabled or endpoint not configured")
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts,
			otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
			otlpmetricgrpc.WithInsecure(),
		)
	}
	exp, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP exporter: %w", err)
	}

	e, err := newWithReader(ctx, sdkmetric.NewPeriodicReader(exp))
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(e.provider)
	return e, nil
}

func newWithReader(ctx context.Context, reader sdkmetric.Reader) (*Exporter, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(constants.AppName),
			semconv.ServiceVersion(constants.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(res),
	)
	meter := provider.Meter(constants.AppName)

	e := &Exporter{provider: provider}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&e.focusSeconds, "eyecare_focus_seconds_total", "Attention time credited to domains", "s"},
		{&e.breaksTotal, "eyecare_breaks_total", "Eye-care reminders delivered", "{break}"},
		{&e.sessionsTotal, "eyecare_focus_sessions_total", "Focus sessions completed", "{session}"},
		{&e.rulesChanged, "eyecare_rules_changed_total", "Blocking rules added or removed", "{rule}"},
		{&e.reconcileErrs, "eyecare_reconcile_errors_total", "Failed rule reconciliations", "{error}"},
		{&e.messagesTotal, "eyecare_messages_total", "Messages handled by the agent", "{message}"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			_ = provider.Shutdown(ctx)
			return nil, fmt.Errorf("creating %s counter: %w", c.name, err)
		}
		*c.dst = counter
	}
	return e, nil
}

func (e *Exporter) CreditRecorded(ctx context.Context, domain string, seconds int64) {
	e.focusSeconds.Add(ctx, seconds, metric.WithAttributes(attribute.String("domain", domain)))
}

func (e *Exporter) BreakRecorded(ctx context.Context) {
	e.breaksTotal.Add(ctx, 1)
}

func (e *Exporter) SessionCompleted(ctx context.Context) {
	e.sessionsTotal.Add(ctx, 1)
}

func (e *Exporter) RulesReconciled(ctx context.Context, added, removed int, err error) {
	if err != nil {
		e.reconcileErrs.Add(ctx, 1)
		return
	}
	if added > 0 {
		e.rulesChanged.Add(ctx, int64(added), metric.WithAttributes(attribute.String("op", "add")))
	}
	if removed > 0 {
		e.rulesChanged.Add(ctx, int64(removed), metric.WithAttributes(attribute.String("op", "remove")))
	}
}

func (e *Exporter) MessageHandled(ctx context.Context, msgType string, ok bool) {
	e.messagesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("type", msgType),
		attribute.Bool("success", ok),
	))
}

// Close flushes pending metrics and shuts the provider down.
func (e *Exporter) Close(ctx context.Context) error {
	err := e.provider.Shutdown(ctx)
	if errors.Is(err, sdkmetric.ErrReaderShutdown) {
		return nil
	}
	return err
}
