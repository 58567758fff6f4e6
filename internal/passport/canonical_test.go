package passport

import (
	"bytes"
	"encoding/json"
	"testing"

	"vpass/pkg/models"
)

func TestCanonicalizeKeyOrderIndependent(t *testing.T) {
	a := json.RawMessage(`{"vin":"WAUZZZ8V5KA123456","lot_id":"LOT-1","odometer":{"km":98432}}`)
	b := json.RawMessage(`{"odometer":{"km":98432},"lot_id":"LOT-1","vin":"WAUZZZ8V5KA123456"}`)

	ca, err := Canonicalize(a)
	if err != nil {
		t.Fatalf("Canonicalize(a): %v", err)
	}
	cb, err := Canonicalize(b)
	if err != nil {
		t.Fatalf("Canonicalize(b): %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Fatalf("canonical bytes differ:\n%s\n%s", ca, cb)
	}
}

func TestCanonicalizeSortsKeys(t *testing.T) {
	got, err := Canonicalize(json.RawMessage(`{"b":1,"a":2,"c":3}`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"a":2,"b":1,"c":3}`
	if string(got) != want {
		t.Fatalf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalizePreservesArrayOrder(t *testing.T) {
	got, err := Canonicalize(json.RawMessage(`{"codes":["U0100","P0700"]}`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"codes":["U0100","P0700"]}`
	if string(got) != want {
		t.Fatalf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalizeRoundsFloats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"fl":6.6666666}`, `{"fl":6.667}`},
		{`{"fl":6.5}`, `{"fl":6.5}`},
		{`{"fl":6.500}`, `{"fl":6.5}`},
		{`{"fl":3.0}`, `{"fl":3}`},
		{`{"km":238574}`, `{"km":238574}`},
	}
	for _, tt := range tests {
		got, err := Canonicalize(json.RawMessage(tt.in))
		if err != nil {
			t.Fatalf("Canonicalize(%s): %v", tt.in, err)
		}
		if string(got) != tt.want {
			t.Fatalf("canonical(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalizeTrimsStrings(t *testing.T) {
	got, err := Canonicalize(json.RawMessage(`{"site":"  Hamburg Nord  "}`))
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	want := `{"site":"Hamburg Nord"}`
	if string(got) != want {
		t.Fatalf("canonical = %s, want %s", got, want)
	}
}

func TestCanonicalizeIdempotent(t *testing.T) {
	in := json.RawMessage(`{"b":{"y":" x ","z":[1.23456,2]},"a":true}`)
	once, err := Canonicalize(in)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	twice, err := Canonicalize(json.RawMessage(once))
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Fatalf("canonicalization not idempotent:\n%s\n%s", once, twice)
	}
}

func TestCanonicalPayloadStripsSeal(t *testing.T) {
	sealed := json.RawMessage(`{"vin":"WAUZZZ8V5KA123456","lot_id":"L1","seal":{"hash":"ab","sig":"cd","key_id":"k","sealed_ts":"t"}}`)
	bare := json.RawMessage(`{"vin":"WAUZZZ8V5KA123456","lot_id":"L1"}`)

	ps, err := CanonicalPayload(sealed)
	if err != nil {
		t.Fatalf("CanonicalPayload(sealed): %v", err)
	}
	pb, err := CanonicalPayload(bare)
	if err != nil {
		t.Fatalf("CanonicalPayload(bare): %v", err)
	}
	if !bytes.Equal(ps, pb) {
		t.Fatalf("payload with seal differs from payload without:\n%s\n%s", ps, pb)
	}
}

func TestCanonicalPayloadStructEqualsRaw(t *testing.T) {
	// A typed draft and its JSON form must canonicalize identically;
	// otherwise verification would depend on which shape the caller holds.
	draft := &models.PassportDraft{
		VIN:      "WAUZZZ8V5KA123456",
		LotID:    "LOT-9",
		Odometer: &models.Odometer{KM: 98432, Source: "report"},
		TyresMM:  &models.TyreDepths{FL: 6.5, FR: 6, RL: 3.5, RR: 3},
	}

	fromStruct, err := CanonicalPayload(draft)
	if err != nil {
		t.Fatalf("CanonicalPayload(struct): %v", err)
	}

	raw, err := json.Marshal(draft)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	fromRaw, err := CanonicalPayload(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("CanonicalPayload(raw): %v", err)
	}

	if !bytes.Equal(fromStruct, fromRaw) {
		t.Fatalf("struct and raw canonical forms differ:\n%s\n%s", fromStruct, fromRaw)
	}
}
