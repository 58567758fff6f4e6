package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"vpass/pkg/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "passports.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func draftFor(vin, lot string) *models.PassportDraft {
	return &models.PassportDraft{
		VIN:      vin,
		LotID:    lot,
		Odometer: &models.Odometer{KM: 98432, Source: "report"},
	}
}

func TestPutGetDraft(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	draft := draftFor("WAUZZZ8V5KA123456", "LOT-1")
	if err := s.PutDraft(ctx, draft); err != nil {
		t.Fatalf("PutDraft: %v", err)
	}

	got, err := s.GetDraft(ctx, "WAUZZZ8V5KA123456")
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if got.VIN != draft.VIN || got.LotID != draft.LotID {
		t.Fatalf("got %+v, want %+v", got, draft)
	}
	if got.Odometer == nil || got.Odometer.KM != 98432 {
		t.Fatalf("odometer = %+v", got.Odometer)
	}
}

func TestGetDraftNotFound(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.GetDraft(context.Background(), "WAUZZZ8V5KA123456"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPutDraftReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutDraft(ctx, draftFor("WAUZZZ8V5KA123456", "LOT-1")); err != nil {
		t.Fatalf("first PutDraft: %v", err)
	}

	updated := draftFor("WAUZZZ8V5KA123456", "LOT-1")
	updated.Odometer.KM = 99120
	if err := s.PutDraft(ctx, updated); err != nil {
		t.Fatalf("second PutDraft: %v", err)
	}

	got, err := s.GetDraft(ctx, "WAUZZZ8V5KA123456")
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if got.Odometer.KM != 99120 {
		t.Fatalf("odometer = %d, want 99120", got.Odometer.KM)
	}
}

func TestPutDraftLotConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.PutDraft(ctx, draftFor("WAUZZZ8V5KA123456", "LOT-1")); err != nil {
		t.Fatalf("PutDraft: %v", err)
	}

	err := s.PutDraft(ctx, draftFor("WAUZZZ8V5KA123456", "LOT-2"))
	if !errors.Is(err, ErrLotConflict) {
		t.Fatalf("err = %v, want ErrLotConflict", err)
	}
}

func TestSealedLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	draft := draftFor("WAUZZZ8V5KA123456", "LOT-1")
	if err := s.PutDraft(ctx, draft); err != nil {
		t.Fatalf("PutDraft: %v", err)
	}

	// No sealed record yet.
	if _, err := s.GetSealed(ctx, draft.VIN); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound before sealing", err)
	}

	sealed := &models.PassportSealed{
		PassportDraft: *draft,
		Seal:          &models.Seal{Hash: "deadbeef", Sig: "c2ln", KeyID: "k1", SealedTS: "2026-03-14T12:00:00Z"},
	}
	if err := s.PutSealed(ctx, sealed); err != nil {
		t.Fatalf("PutSealed: %v", err)
	}

	got, err := s.GetSealed(ctx, draft.VIN)
	if err != nil {
		t.Fatalf("GetSealed: %v", err)
	}
	if got.Seal == nil || got.Seal.Hash != "deadbeef" {
		t.Fatalf("sealed = %+v", got)
	}

	// Rewriting the draft invalidates the stored sealed record.
	if err := s.PutDraft(ctx, draft); err != nil {
		t.Fatalf("PutDraft after seal: %v", err)
	}
	if _, err := s.GetSealed(ctx, draft.VIN); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after draft rewrite", err)
	}
}

func TestPutSealedRequiresDraft(t *testing.T) {
	s := newTestStore(t)

	sealed := &models.PassportSealed{
		PassportDraft: *draftFor("WAUZZZ8V5KA123456", "LOT-1"),
		Seal:          &models.Seal{Hash: "ab", Sig: "cd", KeyID: "k", SealedTS: "t"},
	}
	if err := s.PutSealed(context.Background(), sealed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListVINs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, vin := range []string{"WDD2040082R088866", "WAUZZZ8V5KA123456"} {
		if err := s.PutDraft(ctx, draftFor(vin, "LOT-"+vin[:3])); err != nil {
			t.Fatalf("PutDraft(%s): %v", vin, err)
		}
	}

	vins, err := s.ListVINs(ctx)
	if err != nil {
		t.Fatalf("ListVINs: %v", err)
	}
	if len(vins) != 2 || vins[0] != "WAUZZZ8V5KA123456" || vins[1] != "WDD2040082R088866" {
		t.Fatalf("vins = %v, want sorted pair", vins)
	}
}
