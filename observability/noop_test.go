package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace/noop"
)

func TestNoopProviderTracerProvider(t *testing.T) {
	provider := newNoopProvider()
	_, ok := provider.TracerProvider().(noop.TracerProvider)
	assert.True(t, ok, "expected noop.TracerProvider")
}

func TestNoopProviderMeterProvider(t *testing.T) {
	provider := newNoopProvider()
	assert.NotNil(t, provider.MeterProvider().Meter("test-meter"))
}

func TestNoopProviderLifecycle(t *testing.T) {
	provider := newNoopProvider()

	assert.NoError(t, provider.ForceFlush(context.Background()))
	assert.NoError(t, provider.Shutdown(context.Background()))
	assert.NoError(t, provider.Shutdown(context.Background()))
	assert.NotNil(t, provider.TracerProvider())
}
