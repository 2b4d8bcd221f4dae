package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/artpar/apipost/internal/core"
)

const (
	tracerName         = "github.com/artpar/apipost/internal/telemetry"
	defaultServiceName = "apipost"
	dialTimeout        = 5 * time.Second
)

var (
	httpHostKey  = attribute.Key("http.host")
	requestIDKey = attribute.Key("apipost.request.id")
	bodyTypeKey  = attribute.Key("apipost.request.body_type")
)

// Config selects an OTLP/gRPC collector. An empty Endpoint disables tracing.
type Config struct {
	Endpoint    string            `toml:"endpoint"          yaml:"endpoint"`
	Insecure    bool              `toml:"insecure"          yaml:"insecure"`
	Headers     map[string]string `toml:"headers,omitempty" yaml:"headers,omitempty"`
	ServiceName string            `toml:"service_name"      yaml:"service_name"`
	Version     string            `toml:"-"                 yaml:"-"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Endpoint) != ""
}

// Instrumenter opens one client span per executed request.
type Instrumenter interface {
	Start(ctx context.Context, req *core.Request) (context.Context, RequestSpan)
	Shutdown(ctx context.Context) error
}

// RequestSpan is closed with the request's result.
type RequestSpan interface {
	End(result core.Result)
}

type providerOptions struct {
	exporter       sdktrace.SpanExporter
	spanProcessors []sdktrace.SpanProcessor
}

// Option configures the tracer provider.
type Option func(*providerOptions)

// WithSpanProcessor adds a span processor, typically a recorder in tests.
func WithSpanProcessor(proc sdktrace.SpanProcessor) Option {
	return func(opts *providerOptions) {
		if proc != nil {
			opts.spanProcessors = append(opts.spanProcessors, proc)
		}
	}
}

// WithExporter replaces the OTLP exporter.
func WithExporter(exp sdktrace.SpanExporter) Option {
	return func(opts *providerOptions) {
		if exp != nil {
			opts.exporter = exp
		}
	}
}

type manager struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	shutdown sync.Once
}

// New returns Noop unless cfg names an endpoint or an option supplies an
// exporter or processor.
func New(cfg Config, opts ...Option) (Instrumenter, error) {
	builder := providerOptions{}
	for _, opt := range opts {
		opt(&builder)
	}

	if !cfg.Enabled() && builder.exporter == nil && len(builder.spanProcessors) == 0 {
		return Noop(), nil
	}

	res, err := resource.New(
		context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(resourceAttributes(cfg)...),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}

	exporter := builder.exporter
	if exporter == nil && cfg.Enabled() {
		exporter, err = newExporter(cfg)
		if err != nil {
			return nil, err
		}
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if exporter != nil {
		tpOpts = append(tpOpts, sdktrace.WithBatcher(exporter))
	}
	for _, proc := range builder.spanProcessors {
		tpOpts = append(tpOpts, sdktrace.WithSpanProcessor(proc))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	return &manager{tracer: tp.Tracer(tracerName), provider: tp}, nil
}

func (m *manager) Start(ctx context.Context, req *core.Request) (context.Context, RequestSpan) {
	if req == nil {
		return ctx, noopSpan{}
	}
	ctx, span := m.tracer.Start(
		ctx,
		spanName(req),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(spanAttributes(req)...),
	)
	return ctx, &requestSpan{span: span}
}

func (m *manager) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	var err error
	m.shutdown.Do(func() {
		err = m.provider.Shutdown(ctx)
	})
	return err
}

type requestSpan struct {
	span trace.Span
}

func (rs *requestSpan) End(result core.Result) {
	if rs == nil || rs.span == nil {
		return
	}

	rs.span.SetAttributes(attribute.Int64("apipost.duration_ms", result.Duration.Milliseconds()))
	if result.StatusCode > 0 {
		rs.span.SetAttributes(semconv.HTTPStatusCodeKey.Int(result.StatusCode))
	}

	switch {
	case result.Err != nil:
		rs.span.RecordError(result.Err)
		rs.span.SetStatus(codes.Error, result.Err.Error())
	case result.StatusCode >= 400:
		rs.span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", result.StatusCode))
	default:
		rs.span.SetStatus(codes.Ok, "OK")
	}
	rs.span.End()
}

// Noop returns an Instrumenter that records nothing.
func Noop() Instrumenter {
	return noopInstrumenter{}
}

type noopInstrumenter struct{}

type noopSpan struct{}

func (noopInstrumenter) Start(ctx context.Context, _ *core.Request) (context.Context, RequestSpan) {
	return ctx, noopSpan{}
}

func (noopInstrumenter) Shutdown(context.Context) error { return nil }

func (noopSpan) End(core.Result) {}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	if !cfg.Enabled() {
		return nil, errors.New("telemetry endpoint is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	clientOpts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		clientOpts = append(clientOpts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		clientOpts = append(clientOpts, otlptracegrpc.WithHeaders(cfg.Headers))
	}

	exp, err := otlptrace.New(ctx, otlptracegrpc.NewClient(clientOpts...))
	if err != nil {
		return nil, fmt.Errorf("telemetry exporter %q: %w", cfg.Endpoint, err)
	}
	return exp, nil
}

func resourceAttributes(cfg Config) []attribute.KeyValue {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = defaultServiceName
	}
	attrs := []attribute.KeyValue{semconv.ServiceName(name)}
	if v := strings.TrimSpace(cfg.Version); v != "" {
		attrs = append(attrs, semconv.ServiceVersion(v))
	}
	return attrs
}

func spanAttributes(req *core.Request) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		requestIDKey.String(req.ID()),
		semconv.HTTPMethodKey.String(req.Method()),
	}
	if kind := req.Body().Type(); kind != "" {
		attrs = append(attrs, bodyTypeKey.String(kind))
	}
	if u, err := url.Parse(req.URL()); err == nil {
		if u.Scheme != "" {
			attrs = append(attrs, semconv.HTTPSchemeKey.String(u.Scheme))
		}
		if u.Host != "" {
			attrs = append(attrs, httpHostKey.String(u.Host))
		}
		if target := u.RequestURI(); target != "" {
			attrs = append(attrs, semconv.HTTPTargetKey.String(target))
		}
	}
	return attrs
}

func spanName(req *core.Request) string {
	if u, err := url.Parse(req.URL()); err == nil && u.Host != "" {
		return req.Method() + " " + u.Host
	}
	return req.Method()
}
