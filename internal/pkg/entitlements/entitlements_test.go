package entitlements

import "testing"

func TestParsePlan(t *testing.T) {
	tests := []struct {
		in   string
		want Plan
	}{
		{in: "free", want: PlanFree},
		{in: "agent", want: PlanAgent},
		{in: "agency", want: PlanAgency},
		{in: "AGENCY", want: PlanAgency},
		{in: " agent ", want: PlanAgent},
		{in: "premium", want: PlanFree},
		{in: "", want: PlanFree},
	}

	for _, tt := range tests {
		if got := ParsePlan(tt.in); got != tt.want {
			t.Fatalf("ParsePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRank(t *testing.T) {
	if Rank(PlanFree) >= Rank(PlanAgent) {
		t.Fatalf("expected agent to outrank free")
	}
	if Rank(PlanAgent) >= Rank(PlanAgency) {
		t.Fatalf("expected agency to outrank agent")
	}
}

func TestCanPublish(t *testing.T) {
	if !CanPublish(PlanFree, 0) {
		t.Fatalf("free plan should allow the first listing")
	}
	if CanPublish(PlanFree, 2) {
		t.Fatalf("free plan should cap at 2 active listings")
	}
	if !CanPublish(PlanAgent, 24) {
		t.Fatalf("agent plan should allow 25 active listings")
	}
	if CanPublish(PlanAgent, 25) {
		t.Fatalf("agent plan should cap at 25 active listings")
	}
	// unlimited
	if !CanPublish(PlanAgency, 10000) {
		t.Fatalf("agency plan should be unlimited")
	}
}

func TestCanFeature(t *testing.T) {
	if CanFeature(PlanFree, 0) {
		t.Fatalf("free plan has no featured listings")
	}
	if !CanFeature(PlanAgent, 2) {
		t.Fatalf("agent plan should allow 3 featured listings")
	}
	if CanFeature(PlanAgent, 3) {
		t.Fatalf("agent plan should cap at 3 featured listings")
	}
}
