package tracking

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	// Meter and tracer name for API client instrumentation
	instrumentationName = "smash-sdk/httpclient"

	// Metric names following OpenTelemetry semantic conventions
	metricRequestDuration = "http.client.request.duration" // Histogram in seconds

	// Credential refresh metrics
	metricRefreshCycles   = "smash.client.refresh.cycles"   // Counter per completed cycle
	metricRefreshDuration = "smash.client.refresh.duration" // Histogram in seconds
	metricRefreshWaiters  = "smash.client.refresh.waiters"  // Counter of callers that joined a running cycle
	metricDispatchRetries = "smash.client.dispatch.retries" // Counter of requests re-sent after a refresh

	// Attribute keys
	attrHTTPMethod     = "http.request.method"
	attrHTTPStatusCode = "http.response.status_code"
	attrServerAddress  = "server.address"
	attrErrorType      = "error.type"
	attrService        = "smash.service"
	attrRefreshOutcome = "smash.refresh.outcome"
)

// Refresh cycle outcomes
const (
	OutcomeIssued   = "issued"
	OutcomeDeclined = "declined"
	OutcomeFailed   = "failed"
)

var (
	// Singleton meter initialization
	clientMeter   metric.Meter
	meterOnce     sync.Once
	meterInitMu   sync.Mutex
	metricsInited bool

	// Metric instruments
	requestDuration metric.Float64Histogram
	refreshCycles   metric.Int64Counter
	refreshDuration metric.Float64Histogram
	refreshWaiters  metric.Int64Counter
	dispatchRetries metric.Int64Counter
)

// logMetricError logs a metric initialization error to stderr.
func logMetricError(metricName string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "WARNING: Failed to initialize http client metric %s: %v\n", metricName, err)
	}
}

// initClientMeter initializes the OpenTelemetry meter and client metric instruments.
func initClientMeter() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	if clientMeter != nil {
		return
	}

	clientMeter = otel.Meter(instrumentationName)

	var err error

	requestDuration, err = clientMeter.Float64Histogram(
		metricRequestDuration,
		metric.WithDescription("Duration of outbound API calls"),
		metric.WithUnit("s"),
	)
	logMetricError(metricRequestDuration, err)

	refreshCycles, err = clientMeter.Int64Counter(
		metricRefreshCycles,
		metric.WithDescription("Number of completed credential refresh cycles"),
		metric.WithUnit("{cycle}"),
	)
	logMetricError(metricRefreshCycles, err)

	refreshDuration, err = clientMeter.Float64Histogram(
		metricRefreshDuration,
		metric.WithDescription("Duration of credential refresh cycles"),
		metric.WithUnit("s"),
	)
	logMetricError(metricRefreshDuration, err)

	refreshWaiters, err = clientMeter.Int64Counter(
		metricRefreshWaiters,
		metric.WithDescription("Number of callers that joined a refresh cycle already in flight"),
		metric.WithUnit("{caller}"),
	)
	logMetricError(metricRefreshWaiters, err)

	dispatchRetries, err = clientMeter.Int64Counter(
		metricDispatchRetries,
		metric.WithDescription("Number of requests re-sent with a refreshed credential"),
		metric.WithUnit("{request}"),
	)
	logMetricError(metricDispatchRetries, err)

	metricsInited = true
}

// ensureClientMeterInitialized ensures the client meter is initialized.
func ensureClientMeterInitialized() {
	meterOnce.Do(initClientMeter)
}

// RecordRequest records the duration of one transport call.
// status is zero and errType non-empty when no response was received.
func RecordRequest(ctx context.Context, method, host string, status int, duration time.Duration, errType string) {
	ensureClientMeterInitialized()
	if requestDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrHTTPMethod, method),
	}
	if host != "" {
		attrs = append(attrs, attribute.String(attrServerAddress, host))
	}
	if status != 0 {
		attrs = append(attrs, attribute.Int(attrHTTPStatusCode, status))
		if status >= 400 && errType == "" {
			errType = strconv.Itoa(status)
		}
	}
	if errType != "" {
		attrs = append(attrs, attribute.String(attrErrorType, errType))
	}

	requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordRefresh records a completed refresh cycle and its outcome.
func RecordRefresh(ctx context.Context, outcome string, duration time.Duration) {
	ensureClientMeterInitialized()

	attrs := metric.WithAttributes(attribute.String(attrRefreshOutcome, outcome))
	if refreshCycles != nil {
		refreshCycles.Add(ctx, 1, attrs)
	}
	if refreshDuration != nil {
		refreshDuration.Record(ctx, duration.Seconds(), attrs)
	}
}

// RecordRefreshWaiter records a caller that joined a cycle started by another caller.
func RecordRefreshWaiter(ctx context.Context) {
	ensureClientMeterInitialized()
	if refreshWaiters != nil {
		refreshWaiters.Add(ctx, 1)
	}
}

// RecordRetry records a request re-sent after a successful refresh.
func RecordRetry(ctx context.Context, service string) {
	ensureClientMeterInitialized()
	if dispatchRetries == nil {
		return
	}
	var opts []metric.AddOption
	if service != "" {
		opts = append(opts, metric.WithAttributes(attribute.String(attrService, service)))
	}
	dispatchRetries.Add(ctx, 1, opts...)
}

// IsInitialized returns true if client metrics have been initialized.
func IsInitialized() bool {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()
	return metricsInited
}

// ResetForTesting resets the metric state for testing purposes.
func ResetForTesting() {
	meterInitMu.Lock()
	defer meterInitMu.Unlock()

	clientMeter = nil
	requestDuration = nil
	refreshCycles = nil
	refreshDuration = nil
	refreshWaiters = nil
	dispatchRetries = nil
	metricsInited = false
	meterOnce = sync.Once{}
}
