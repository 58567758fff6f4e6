package extract

// Metrics is the sink the engine reports counters and timings into.
// Injected so the engine carries no process-wide mutable state and stays
// independently testable.
type Metrics interface {
	// Count adds delta to the named counter.
	Count(name string, delta int)

	// Observe records one duration sample, in seconds, under the named timer.
	Observe(name string, seconds float64)
}

type nopMetrics struct{}

func (nopMetrics) Count(string, int)       {}
func (nopMetrics) Observe(string, float64) {}

// NopMetrics returns a sink that discards everything.
func NopMetrics() Metrics { return nopMetrics{} }

// Metric names emitted by the engine.
const (
	MetricVINCandidates    = "vin_candidates"
	MetricVINChecksumValid = "vin_checksum_valid"
	MetricOdoCandidates    = "odometer_candidates"
	MetricDtcCodes         = "dtc_codes"
	MetricExtractSeconds   = "extract_seconds"
)
