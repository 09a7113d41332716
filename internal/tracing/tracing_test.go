package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*TracingConfig)
		wantErr bool
	}{
		{"default", func(*TracingConfig) {}, false},
		{"no service", func(c *TracingConfig) { c.ServiceName = "" }, true},
		{"no endpoint", func(c *TracingConfig) { c.OTLPEndpoint = "" }, true},
		{"ratio too high", func(c *TracingConfig) { c.SampleRatio = 1.5 }, true},
		{"ratio negative", func(c *TracingConfig) { c.SampleRatio = -0.1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig("daedalus")
			tt.mutate(&cfg)
			if tt.wantErr {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestSetupTracingRejectsInvalidConfig(t *testing.T) {
	_, err := SetupTracing(context.Background(), TracingConfig{}, nil)
	assert.Error(t, err)
}

func TestNewProviderExportsSpans(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	tp, err := NewProvider(ctx, DefaultConfig("daedalus-test"), exporter)
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(ctx, "prepare")
	span.End()
	require.NoError(t, tp.ForceFlush(ctx))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "prepare", spans[0].Name)

	var service string
	for _, kv := range spans[0].Resource.Attributes() {
		if kv.Key == attribute.Key("service.name") {
			service = kv.Value.AsString()
		}
	}
	assert.Equal(t, "daedalus-test", service)

	assert.NoError(t, ShutdownTracing(tp.Shutdown, nil))
}

func TestShutdownNil(t *testing.T) {
	assert.NoError(t, ShutdownTracing(nil, nil))
}
