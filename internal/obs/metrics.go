package obs

// Label is a key/value pair attached to a measurement, for example
// the request method or the error kind.
type Label struct {
	Key   string
	Value string
}

// Meter receives the engine's counters and timing histograms.
// Implementations may no-op or bridge to a metrics system; OTelMeter
// is the bundled bridge.
type Meter interface {
	Counter(name string, value float64, labels ...Label)
	Histogram(name string, value float64, labels ...Label)
}

// NopMeter discards all measurements.
type NopMeter struct{}

func (NopMeter) Counter(name string, value float64, labels ...Label)   {}
func (NopMeter) Histogram(name string, value float64, labels ...Label) {}
