package models

// DtcStatus classifies the diagnostic trouble code situation of a vehicle.
// It is always derived from report text, never trusted from input.
type DtcStatus string

const (
	// DtcGreen means the report confirms there are no fault codes.
	DtcGreen DtcStatus = "green"

	// DtcAmber means codes are present but not confirmed active.
	DtcAmber DtcStatus = "amber"

	// DtcRed means codes are present and confirmed active or stored.
	DtcRed DtcStatus = "red"

	// DtcNA means the report never addresses fault codes at all.
	// This is a materially weaker signal than green and must not be
	// conflated with it.
	DtcNA DtcStatus = "n/a"
)

// DtcCode is a single diagnostic trouble code (e.g. "P0700").
type DtcCode struct {
	Code string `json:"code"`
}

// DtcReport is the derived fault-code classification of an inspection report.
type DtcReport struct {
	Status DtcStatus `json:"status"`
	Codes  []DtcCode `json:"codes"`
}

// Dekra describes the source inspection report.
type Dekra struct {
	URL          string `json:"url,omitempty"`
	InspectionTS string `json:"inspection_ts,omitempty"`
	Site         string `json:"site,omitempty"`
}

// Odometer is the extracted odometer reading in kilometers.
type Odometer struct {
	KM     int64  `json:"km"`
	Source string `json:"source,omitempty"`
}

// TyreDepths holds tread depth per corner in millimeters, clamped to [0,20].
type TyreDepths struct {
	FL float64 `json:"fl"`
	FR float64 `json:"fr"`
	RL float64 `json:"rl"`
	RR float64 `json:"rr"`
}

// Brakes holds brake wear figures where the report provides them.
type Brakes struct {
	FrontPct *float64 `json:"front_pct,omitempty"`
	RearPct  *float64 `json:"rear_pct,omitempty"`
	Notes    string   `json:"notes,omitempty"`
}

// EV holds electric-vehicle specific fields.
type EV struct {
	IsEV       bool    `json:"is_ev"`
	BatteryKWh float64 `json:"battery_kwh,omitempty"`
	SocPct     float64 `json:"soc_pct,omitempty"`
}

// ImageItem is one captured image attached to a passport.
type ImageItem struct {
	Kind       string `json:"kind"`
	URL        string `json:"url"`
	CapturedTS string `json:"captured_ts,omitempty"`
}

// Images tracks required and captured imagery for a lot.
type Images struct {
	Required []string    `json:"required,omitempty"`
	Items    []ImageItem `json:"items,omitempty"`
}

// Provenance records who captured the passport data, where and when.
type Provenance struct {
	CapturedBy string `json:"captured_by,omitempty"`
	Site       string `json:"site,omitempty"`
	TS         string `json:"ts,omitempty"`
}

// PassportDraft is the assembled, still mutable vehicle passport record.
// A draft never contains a seal block; sealing produces a PassportSealed copy.
type PassportDraft struct {
	VIN        string      `json:"vin"`
	LotID      string      `json:"lot_id"`
	Dekra      *Dekra      `json:"dekra,omitempty"`
	Odometer   *Odometer   `json:"odometer,omitempty"`
	TyresMM    *TyreDepths `json:"tyres_mm,omitempty"`
	Brakes     *Brakes     `json:"brakes,omitempty"`
	Dtc        *DtcReport  `json:"dtc,omitempty"`
	EV         *EV         `json:"ev,omitempty"`
	Images     *Images     `json:"images,omitempty"`
	Provenance *Provenance `json:"provenance,omitempty"`
}

// Seal is the tamper-evidence block attached to a sealed passport.
// Hash is hex(SHA-256) over the canonical bytes of the record without its
// seal; Sig is a base64 signature made with the key identified by KeyID.
type Seal struct {
	Hash     string `json:"hash"`
	Sig      string `json:"sig"`
	KeyID    string `json:"key_id"`
	SealedTS string `json:"sealed_ts"`
}

// PassportSealed is a draft plus its seal. It is never mutated after
// creation; a changed draft must be re-sealed into a fresh copy.
type PassportSealed struct {
	PassportDraft
	Seal *Seal `json:"seal"`
}
