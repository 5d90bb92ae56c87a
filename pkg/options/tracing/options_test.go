package tracing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledSkipsValidation(t *testing.T) {
	o := NewOptions()
	o.Exporter = "zipkin"
	assert.Empty(t, o.Validate())
}

func TestEnabledValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Options)
		errs   int
	}{
		{"defaults", func(*Options) {}, 0},
		{"stdout needs no endpoint", func(o *Options) { o.Exporter = ExporterStdout; o.Endpoint = "" }, 0},
		{"otlp needs endpoint", func(o *Options) { o.Endpoint = "" }, 1},
		{"unknown exporter", func(o *Options) { o.Exporter = "zipkin" }, 1},
		{"unknown sampler", func(o *Options) { o.Sampler = "sometimes" }, 1},
		{"ratio out of range", func(o *Options) { o.SampleRatio = 1.5 }, 1},
		{"batch timeout", func(o *Options) { o.BatchTimeout = 0 }, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := NewOptions()
			o.Enabled = true
			tt.modify(o)
			assert.Len(t, o.Validate(), tt.errs)
		})
	}
}

func TestCompleteDefaultsSampler(t *testing.T) {
	o := NewOptions()
	o.Sampler = ""
	require.NoError(t, o.Complete())
	assert.Equal(t, SamplerParentBased, o.Sampler)
}
