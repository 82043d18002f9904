package track

import "testing"

func TestFamilyClassify(t *testing.T) {
	cases := []struct {
		family Family
		status Status
		want   Outcome
	}{
		{DocumentFamily, StatusUploaded, OutcomeNone},
		{DocumentFamily, StatusProcessing, OutcomeNone},
		{DocumentFamily, StatusProcessed, OutcomeSuccess},
		{DocumentFamily, StatusFailed, OutcomeFailure},
		{GenerationFamily, StatusPending, OutcomeNone},
		{GenerationFamily, StatusProcessing, OutcomeNone},
		{GenerationFamily, StatusCompleted, OutcomeSuccess},
		{GenerationFamily, StatusFailed, OutcomeFailure},
		{GenerationFamily, StatusCancelled, OutcomeCancelled},
		// 未知のステータスは処理継続扱い
		{GenerationFamily, Status("ARCHIVED"), OutcomeNone},
		{DocumentFamily, Status(""), OutcomeNone},
	}
	for _, tc := range cases {
		if got := tc.family.Classify(tc.status); got != tc.want {
			t.Errorf("%s.Classify(%s) = %v, want %v", tc.family.Name(), tc.status, got, tc.want)
		}
	}
}

func TestFamilyCapabilities(t *testing.T) {
	if DocumentFamily.Cancellable() {
		t.Error("document jobs must not be cancellable")
	}
	if DocumentFamily.FetchesResult() {
		t.Error("document jobs have no result-fetch step")
	}
	if !GenerationFamily.Cancellable() {
		t.Error("generation jobs must be cancellable")
	}
	if !GenerationFamily.FetchesResult() {
		t.Error("generation jobs must fetch the generated quiz")
	}
}

func TestFamilyByName(t *testing.T) {
	if f, ok := FamilyByName("document"); !ok || f.Name() != "document" {
		t.Fatalf("FamilyByName(document) = %v, %v", f, ok)
	}
	if f, ok := FamilyByName("generation"); !ok || f.Name() != "generation" {
		t.Fatalf("FamilyByName(generation) = %v, %v", f, ok)
	}
	if _, ok := FamilyByName("video"); ok {
		t.Fatal("unknown family name must not resolve")
	}
}

func TestFamilyLabelFallsBackToRawStatus(t *testing.T) {
	if got := GenerationFamily.Label(Status("ARCHIVED")); got != "ARCHIVED" {
		t.Fatalf("label = %q, want raw status", got)
	}
}
