package extract

import (
	"errors"
	"testing"

	"vpass/pkg/models"
)

const inspectionReport = `DEKRA INSPECTION REPORT
VIN: WDD2040082R088866
ODOMETER 238,574 km
Tyres: FL 6.5 mm, FR 6.0 mm, RL 3,5 mm, RR 3.0 mm
No stored DTCs.
Brakes front 70%, rear 65%.`

type captureMetrics struct {
	counts   map[string]int
	observed map[string]int
}

func newCaptureMetrics() *captureMetrics {
	return &captureMetrics{counts: map[string]int{}, observed: map[string]int{}}
}

func (m *captureMetrics) Count(name string, delta int) { m.counts[name] += delta }
func (m *captureMetrics) Observe(name string, _ float64) { m.observed[name]++ }

func TestEngineReportFields(t *testing.T) {
	metrics := newCaptureMetrics()
	engine := NewEngine(DefaultConfig(), WithMetrics(metrics))

	fields, err := engine.ReportFields(inspectionReport)
	if err != nil {
		t.Fatalf("ReportFields: %v", err)
	}

	if fields.VIN.VIN != "WDD2040082R088866" {
		t.Fatalf("VIN = %q, want WDD2040082R088866", fields.VIN.VIN)
	}
	if fields.Odometer.KM == nil || *fields.Odometer.KM != 238574 {
		t.Fatalf("odometer = %v, want 238574", fields.Odometer.KM)
	}
	if fields.Odometer.Unit != "km" {
		t.Fatalf("unit = %q, want km", fields.Odometer.Unit)
	}
	if fields.Dtc.Status != models.DtcGreen {
		t.Fatalf("dtc status = %q, want green", fields.Dtc.Status)
	}
	if fields.Tyres == nil || fields.Tyres.FL != 6.5 || fields.Tyres.RR != 3.0 {
		t.Fatalf("tyres = %+v", fields.Tyres)
	}

	if metrics.counts[MetricVINCandidates] == 0 {
		t.Fatal("VIN candidate counter not reported")
	}
	if metrics.observed[MetricExtractSeconds] != 1 {
		t.Fatalf("extract timer observed %d times, want 1", metrics.observed[MetricExtractSeconds])
	}
}

func TestEngineVINDigitsNotMistakenForOdometer(t *testing.T) {
	// The VIN's embedded digit run ("088866") forms a plausible reading; the
	// keyword- and separator-backed genuine value must still win.
	engine := NewEngine(DefaultConfig())

	odo, err := engine.OdometerFromText(inspectionReport)
	if err != nil {
		t.Fatalf("OdometerFromText: %v", err)
	}
	if odo.KM == nil || *odo.KM != 238574 {
		t.Fatalf("odometer = %v, want 238574", odo.KM)
	}
}

func TestEngineEmptyInput(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	if _, err := engine.ReportFields("   \n "); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("ReportFields on blank input: err = %v, want ErrEmptyInput", err)
	}
	if _, err := engine.VINFromText(""); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("VINFromText on empty input: err = %v, want ErrEmptyInput", err)
	}
	if _, err := engine.OdometerFromOCR(nil, nil); !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("OdometerFromOCR on empty input: err = %v, want ErrEmptyInput", err)
	}
}
