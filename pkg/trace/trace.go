package trace

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/amoylab/contentd/pkg/version"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Config represents OpenTelemetry tracing configuration
type Config struct {
	Enabled     bool      `yaml:"enabled"`
	ServiceName string    `yaml:"service_name"`
	Endpoint    string    `yaml:"endpoint"`     // e.g. localhost:4317 or localhost:4318
	Protocol    string    `yaml:"protocol"`     // grpc or http
	Insecure    bool      `yaml:"insecure"`     // allow insecure connection
	SamplerRate float64   `yaml:"sampler_rate"` // 0.0~1.0
	Environment string    `yaml:"environment"`  // env tag: dev/staging/prod
	Headers     StringMap `yaml:"headers"`
}

// StringMap decodes from a YAML map, a JSON object string or a `k=v, k2=v2`
// string, so headers can be supplied through a single environment variable.
type StringMap map[string]string

func (m *StringMap) UnmarshalYAML(node *yaml.Node) error {
	out := StringMap{}
	switch node.Kind {
	case yaml.MappingNode:
		raw := map[string]any{}
		if err := node.Decode(&raw); err != nil {
			return err
		}
		for k, v := range raw {
			out[k] = fmt.Sprint(v)
		}
	case yaml.ScalarNode:
		s := strings.TrimSpace(node.Value)
		if s == "" {
			break
		}
		if strings.HasPrefix(s, "{") {
			if err := json.Unmarshal([]byte(s), (*map[string]string)(&out)); err != nil {
				return fmt.Errorf("invalid headers json: %w", err)
			}
			break
		}
		for _, pair := range strings.Split(s, ",") {
			k, v, ok := strings.Cut(pair, "=")
			if !ok || strings.TrimSpace(k) == "" {
				continue
			}
			out[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
	default:
		return fmt.Errorf("unsupported headers node kind %v", node.Kind)
	}
	*m = out
	return nil
}

const defaultServiceName = "contentd"

var defaultEndpoints = map[string]string{
	"grpc": "localhost:4317",
	"http": "localhost:4318",
}

// construction seams, replaced in tests
var (
	newResource = resource.New
	newExporter = func(ctx context.Context, protocol, endpoint string, cfg *Config) (sdktrace.SpanExporter, error) {
		if protocol == "http" {
			return httpExporter(ctx, endpoint, cfg)
		}
		return grpcExporter(ctx, endpoint, cfg)
	}
)

func httpExporter(ctx context.Context, endpoint string, cfg *Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	return otlptracehttp.New(ctx, opts...)
}

func grpcExporter(ctx context.Context, endpoint string, cfg *Config) (sdktrace.SpanExporter, error) {
	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracegrpc.WithHeaders(cfg.Headers))
	}
	return otlptracegrpc.New(ctx, opts...)
}

// InitTracing installs the global tracer provider and returns its shutdown func.
// When tracing is disabled the returned func is a no-op.
func InitTracing(ctx context.Context, cfg *Config, lg *zap.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	protocol := cfg.Protocol
	if protocol != "http" {
		protocol = "grpc"
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoints[protocol]
	}
	service := cfg.ServiceName
	if service == "" {
		service = defaultServiceName
	}

	res, err := newResource(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(
			semconv.ServiceName(service),
			semconv.ServiceVersion(version.Get()),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	exp, err := newExporter(ctx, protocol, endpoint, cfg)
	if err != nil {
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	rate := clampRate(cfg.SamplerRate)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	lg.Info("tracing enabled",
		zap.String("service", service),
		zap.String("endpoint", endpoint),
		zap.String("protocol", protocol),
		zap.Float64("sampler_rate", rate),
	)
	return tp.Shutdown, nil
}

func clampRate(rate float64) float64 {
	return min(max(rate, 0), 1)
}

// Builder is a small wrapper to access a named tracer with fluent helpers
type Builder struct {
	tracer trace.Tracer
}

// Tracer creates a Builder for a named tracer
func Tracer(name string) *Builder {
	return &Builder{tracer: otel.Tracer(name)}
}

// SpanScope holds span and context, with fluent helpers
type SpanScope struct {
	Ctx  context.Context
	Span trace.Span
}

// Start starts a new span and returns a scope
func (b *Builder) Start(ctx context.Context, spanName string, opts ...trace.SpanStartOption) *SpanScope {
	nctx, sp := b.tracer.Start(ctx, spanName, opts...)
	return &SpanScope{Ctx: nctx, Span: sp}
}

// WithAttrs sets attributes on the span and returns the scope for chaining
func (s *SpanScope) WithAttrs(attrs ...attribute.KeyValue) *SpanScope {
	if s != nil && s.Span != nil {
		s.Span.SetAttributes(attrs...)
	}
	return s
}

// Fail records err on the span and marks it as failed. A nil err is ignored.
func (s *SpanScope) Fail(err error) {
	if s == nil || s.Span == nil || err == nil {
		return
	}
	s.Span.RecordError(err)
	s.Span.SetStatus(codes.Error, err.Error())
}

// End ends the span if present
func (s *SpanScope) End() {
	if s != nil && s.Span != nil {
		s.Span.End()
	}
}
