package observability

import (
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/smashsdk/sdk-core/config"
)

const (
	// EndpointStdout is a special endpoint value that outputs to stdout (for local development).
	EndpointStdout = "stdout"

	// ProtocolHTTP specifies OTLP over HTTP/protobuf.
	ProtocolHTTP = "http"

	// ProtocolGRPC specifies OTLP over gRPC.
	ProtocolGRPC = "grpc"

	// CompressionGzip specifies gzip compression for OTLP export.
	CompressionGzip = "gzip"

	// CompressionNone specifies no compression for OTLP export.
	CompressionNone = "none"

	// EnvironmentDevelopment is the default environment name.
	EnvironmentDevelopment = "development"

	// DefaultServiceName identifies SDK telemetry when no name is configured.
	DefaultServiceName = "smash-sdk-go"

	configSection = "observability"
)

// BoolPtr returns a pointer to the provided bool value.
func BoolPtr(v bool) *bool {
	return &v
}

// Float64Ptr returns a pointer to the provided float64 value.
func Float64Ptr(v float64) *float64 {
	return &v
}

// Config defines the telemetry export settings of the SDK.
// It is read from the "observability" section of the configuration.
type Config struct {
	// Enabled controls whether observability is active.
	// When false, all observability operations become no-ops.
	Enabled bool `koanf:"enabled" mapstructure:"enabled"`

	Service ServiceConfig `koanf:"service" mapstructure:"service"`

	// Environment indicates the deployment environment (e.g., production, staging, development).
	Environment string `koanf:"environment" mapstructure:"environment"`

	Trace   TraceConfig   `koanf:"trace" mapstructure:"trace"`
	Metrics MetricsConfig `koanf:"metrics" mapstructure:"metrics"`
}

// ServiceConfig contains service identification metadata.
type ServiceConfig struct {
	Name    string `koanf:"name" mapstructure:"name"`
	Version string `koanf:"version" mapstructure:"version"`
}

// TraceConfig defines configuration for distributed tracing.
type TraceConfig struct {
	// Enabled is nil when unset, which means enabled whenever observability is.
	Enabled *bool `koanf:"enabled" mapstructure:"enabled"`

	// Endpoint is "stdout" or an OTLP endpoint. HTTP endpoints carry a scheme
	// ("http://localhost:4318"), gRPC endpoints do not ("localhost:4317").
	Endpoint string `koanf:"endpoint" mapstructure:"endpoint"`

	// Protocol is "http" or "grpc". Ignored for stdout.
	Protocol string `koanf:"protocol" mapstructure:"protocol"`

	// Insecure disables TLS for OTLP exporters.
	Insecure bool `koanf:"insecure" mapstructure:"insecure"`

	// Headers are sent with every OTLP export, typically for authentication.
	Headers map[string]string `koanf:"headers" mapstructure:"headers"`

	Compression string `koanf:"compression" mapstructure:"compression"`

	Sample SampleConfig `koanf:"sample" mapstructure:"sample"`

	// BatchTimeout is how long spans are buffered before export.
	BatchTimeout time.Duration `koanf:"batchtimeout" mapstructure:"batchtimeout"`

	// ExportTimeout bounds a single export call.
	ExportTimeout time.Duration `koanf:"exporttimeout" mapstructure:"exporttimeout"`
}

// SampleConfig defines sampling configuration for traces.
type SampleConfig struct {
	// Rate is the fraction of traces recorded, between 0.0 and 1.0.
	// nil applies the default (1.0); an explicit 0.0 records nothing.
	Rate *float64 `koanf:"rate" mapstructure:"rate"`
}

// MetricsConfig defines configuration for metrics export.
type MetricsConfig struct {
	Enabled *bool `koanf:"enabled" mapstructure:"enabled"`

	Endpoint string `koanf:"endpoint" mapstructure:"endpoint"`

	// Protocol defaults to the trace protocol.
	Protocol string `koanf:"protocol" mapstructure:"protocol"`

	// Insecure defaults to the trace setting.
	Insecure *bool `koanf:"insecure" mapstructure:"insecure"`

	// Headers default to a copy of the trace headers.
	Headers map[string]string `koanf:"headers" mapstructure:"headers"`

	// Interval is the time between periodic exports.
	Interval time.Duration `koanf:"interval" mapstructure:"interval"`

	ExportTimeout time.Duration `koanf:"exporttimeout" mapstructure:"exporttimeout"`
}

// FromConfig reads the observability section of cfg. A missing section
// yields a disabled Config.
func FromConfig(cfg *config.Config) (*Config, error) {
	var obs Config
	if cfg == nil || !cfg.Exists(configSection) {
		return &obs, nil
	}
	if err := cfg.Unmarshal(configSection, &obs); err != nil {
		return nil, fmt.Errorf("failed to read %s config: %w", configSection, err)
	}
	return &obs, nil
}

// ApplyDefaults sets default values for any config fields that are not specified.
func (c *Config) ApplyDefaults() {
	if c.Service.Name == "" {
		c.Service.Name = DefaultServiceName
	}
	if c.Service.Version == "" {
		c.Service.Version = "unknown"
	}
	if c.Environment == "" {
		c.Environment = EnvironmentDevelopment
	}

	c.applyTraceDefaults()
	c.applyMetricsDefaults()
}

func (c *Config) applyTraceDefaults() {
	if c.Trace.Endpoint == "" {
		c.Trace.Endpoint = EndpointStdout
	}
	if c.Enabled && c.Trace.Enabled == nil {
		c.Trace.Enabled = BoolPtr(true)
	}
	if c.Trace.Protocol == "" {
		c.Trace.Protocol = ProtocolHTTP
	}
	if c.Trace.Endpoint == EndpointStdout {
		c.Trace.Insecure = true
	}
	if c.Trace.Compression == "" {
		c.Trace.Compression = CompressionGzip
	}
	if c.Trace.Sample.Rate == nil {
		c.Trace.Sample.Rate = Float64Ptr(1.0)
	}

	// Development: near-instant span visibility and fail-fast exports
	dev := c.Environment == EnvironmentDevelopment || c.Trace.Endpoint == EndpointStdout
	if c.Trace.BatchTimeout == 0 {
		c.Trace.BatchTimeout = pick(dev, 500*time.Millisecond, 5*time.Second)
	}
	if c.Trace.ExportTimeout == 0 {
		c.Trace.ExportTimeout = pick(dev, 10*time.Second, 60*time.Second)
	}
}

func (c *Config) applyMetricsDefaults() {
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = EndpointStdout
	}
	if c.Enabled && c.Metrics.Enabled == nil {
		c.Metrics.Enabled = BoolPtr(true)
	}
	if c.Metrics.Protocol == "" {
		c.Metrics.Protocol = c.Trace.Protocol
	}
	if c.Metrics.Insecure == nil {
		c.Metrics.Insecure = BoolPtr(c.Trace.Insecure || c.Metrics.Endpoint == EndpointStdout)
	}
	if c.Metrics.Headers == nil && c.Trace.Headers != nil {
		c.Metrics.Headers = maps.Clone(c.Trace.Headers)
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = 10 * time.Second
	}
	if c.Metrics.ExportTimeout == 0 {
		dev := c.Environment == EnvironmentDevelopment || c.Metrics.Endpoint == EndpointStdout
		c.Metrics.ExportTimeout = pick(dev, 10*time.Second, 60*time.Second)
	}
}

func pick[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

// Validate checks the configuration. A disabled configuration is always valid.
func (c *Config) Validate() error {
	if c == nil {
		return ErrNilConfig
	}
	if !c.Enabled {
		return nil
	}
	if c.Service.Name == "" {
		return ErrMissingServiceName
	}

	if c.Trace.Sample.Rate != nil && (*c.Trace.Sample.Rate < 0 || *c.Trace.Sample.Rate > 1) {
		return ErrInvalidSampleRate
	}
	if err := validateExporter("trace", c.Trace.Endpoint, c.Trace.Protocol); err != nil {
		return err
	}
	if err := validateCompression(c.Trace.Compression); err != nil {
		return err
	}
	return validateExporter("metrics", c.Metrics.Endpoint, c.Metrics.Protocol)
}

func validateExporter(signal, endpoint, protocol string) error {
	if endpoint == EndpointStdout || endpoint == "" {
		return nil
	}
	if protocol != "" && protocol != ProtocolHTTP && protocol != ProtocolGRPC {
		return fmt.Errorf("%s protocol '%s': %w", signal, protocol, ErrInvalidProtocol)
	}
	if err := validateEndpointFormat(endpoint, protocol); err != nil {
		return fmt.Errorf("%s endpoint '%s': %w", signal, endpoint, err)
	}
	return nil
}

// validateEndpointFormat checks that the endpoint format matches the protocol.
// gRPC endpoints must use "host:port" format without http:// or https:// scheme.
// HTTP endpoints must include the http:// or https:// scheme.
func validateEndpointFormat(endpoint, protocol string) error {
	hasScheme := strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://")

	if protocol == ProtocolGRPC && hasScheme {
		return ErrInvalidEndpointFormat
	}
	if protocol == ProtocolHTTP && !hasScheme {
		return ErrInvalidEndpointFormat
	}
	return nil
}

func validateCompression(compression string) error {
	if compression == "" || compression == CompressionGzip || compression == CompressionNone {
		return nil
	}
	return ErrInvalidCompression
}
