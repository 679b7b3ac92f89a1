package obs

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMeter bridges Meter onto the OpenTelemetry metric API.
// Instruments are created on first use and cached by name. Wiring a
// provider (SDK, exporters) is the application's business; without
// one the global API discards everything.
type OTelMeter struct {
	m metric.Meter

	mu         sync.Mutex
	counters   map[string]metric.Float64Counter
	histograms map[string]metric.Float64Histogram
}

// NewOTelMeter returns a Meter recording through the named otel
// meter from the global provider.
func NewOTelMeter(name string) *OTelMeter {
	return &OTelMeter{
		m:          otel.Meter(name),
		counters:   make(map[string]metric.Float64Counter),
		histograms: make(map[string]metric.Float64Histogram),
	}
}

func (o *OTelMeter) Counter(name string, value float64, labels ...Label) {
	o.mu.Lock()
	c, ok := o.counters[name]
	if !ok {
		var err error
		c, err = o.m.Float64Counter(name)
		if err != nil {
			o.mu.Unlock()
			return
		}
		o.counters[name] = c
	}
	o.mu.Unlock()
	c.Add(context.Background(), value, metric.WithAttributes(otelAttrs(labels)...))
}

func (o *OTelMeter) Histogram(name string, value float64, labels ...Label) {
	o.mu.Lock()
	h, ok := o.histograms[name]
	if !ok {
		var err error
		h, err = o.m.Float64Histogram(name)
		if err != nil {
			o.mu.Unlock()
			return
		}
		o.histograms[name] = h
	}
	o.mu.Unlock()
	h.Record(context.Background(), value, metric.WithAttributes(otelAttrs(labels)...))
}

func otelAttrs(labels []Label) []attribute.KeyValue {
	out := make([]attribute.KeyValue, len(labels))
	for i, l := range labels {
		out[i] = attribute.String(l.Key, l.Value)
	}
	return out
}
