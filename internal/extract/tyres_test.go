package extract

import "testing"

func TestExtractTyreDepthsAllCorners(t *testing.T) {
	text := "Tyres: FL 6.5 mm, FR 6.0 mm, RL 3,5 mm, RR 3.0 mm"

	depths := ExtractTyreDepths(text)
	if depths == nil {
		t.Fatal("expected tyre depths, got nil")
	}
	if depths.FL != 6.5 || depths.FR != 6.0 || depths.RL != 3.5 || depths.RR != 3.0 {
		t.Fatalf("depths = %+v", depths)
	}
}

func TestExtractTyreDepthsPartialIsNil(t *testing.T) {
	// Three of four corners is not a usable tyre record.
	text := "FL 6.5 mm FR 6.0 mm RL 3.5 mm"

	if depths := ExtractTyreDepths(text); depths != nil {
		t.Fatalf("partial reading returned %+v, want nil", depths)
	}
}

func TestExtractTyreDepthsClamped(t *testing.T) {
	text := "FL 25 mm FR 6 mm RL 6 mm RR 6 mm"

	depths := ExtractTyreDepths(text)
	if depths == nil {
		t.Fatal("expected tyre depths, got nil")
	}
	if depths.FL != 20 {
		t.Fatalf("FL = %v, want clamped to 20", depths.FL)
	}
}

func TestExtractTyreDepthsFirstReadingWins(t *testing.T) {
	text := "FL 6.5 mm FL 1.0 mm FR 6 mm RL 6 mm RR 6 mm"

	depths := ExtractTyreDepths(text)
	if depths == nil {
		t.Fatal("expected tyre depths, got nil")
	}
	if depths.FL != 6.5 {
		t.Fatalf("FL = %v, want first reading 6.5", depths.FL)
	}
}

func TestExtractTyreDepthsNoMatch(t *testing.T) {
	if depths := ExtractTyreDepths("no tread data in this report"); depths != nil {
		t.Fatalf("expected nil, got %+v", depths)
	}
}
