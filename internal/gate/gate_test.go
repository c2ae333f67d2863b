package gate

import (
	"math"
	"testing"
)

func TestQuickEvaluate_HealthyBatch(t *testing.T) {
	ev := QuickEvaluate(0.9, 25, 0.8)

	if !ev.Passed {
		t.Errorf("healthy batch should pass, got issues %v", ev.Issues)
	}
	if len(ev.Issues) != 0 {
		t.Errorf("expected zero issues, got %v", ev.Issues)
	}
	// 0.9*0.5 + 1.0*0.2 + 0.8*0.3 = 0.89
	if math.Abs(ev.Score-0.89) > 0.001 {
		t.Errorf("score = %f, want 0.89", ev.Score)
	}
}

func TestQuickEvaluate_PoorBatch(t *testing.T) {
	ev := QuickEvaluate(0.4, 2, 0.2)

	if ev.Passed {
		t.Error("poor batch should not pass")
	}
	if len(ev.Issues) != 3 {
		t.Fatalf("expected exactly three issues, got %v", ev.Issues)
	}
	want := map[string]bool{
		IssueLowConfidence: true,
		IssueFewEntities:   true,
		IssueLowCoverage:   true,
	}
	for _, is := range ev.Issues {
		if !want[is] {
			t.Errorf("unexpected issue %q", is)
		}
	}
	if ev.Score >= 0.5 {
		t.Errorf("score = %f, want below 0.5", ev.Score)
	}
}

func TestQuickEvaluate_SingleIssue(t *testing.T) {
	tests := []struct {
		name      string
		conf      float64
		count     int
		coverage  float64
		wantIssue string
	}{
		{"low confidence only", 0.5, 25, 0.8, IssueLowConfidence},
		{"few entities only", 0.9, 3, 0.8, IssueFewEntities},
		{"low coverage only", 0.9, 25, 0.3, IssueLowCoverage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := QuickEvaluate(tt.conf, tt.count, tt.coverage)
			if ev.Passed {
				t.Error("batch with an issue should not pass")
			}
			if len(ev.Issues) != 1 || ev.Issues[0] != tt.wantIssue {
				t.Errorf("issues = %v, want [%q]", ev.Issues, tt.wantIssue)
			}
		})
	}
}

func TestQuickEvaluate_MoreIssuesLowerScore(t *testing.T) {
	one := QuickEvaluate(0.5, 25, 0.8)  // confidence issue only
	two := QuickEvaluate(0.5, 3, 0.8)   // confidence + entities
	three := QuickEvaluate(0.5, 3, 0.2) // all three

	if !(one.Score > two.Score && two.Score > three.Score) {
		t.Errorf("scores should strictly decrease with issue count: %f, %f, %f",
			one.Score, two.Score, three.Score)
	}
}

func TestCheckConfidenceGate(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		threshold  []float64
		wantPassed bool
		wantRec    string
	}{
		{"very high auto-approves", 0.95, nil, true, RecommendAutoApprove},
		{"exactly 0.9 auto-approves", 0.9, nil, true, RecommendAutoApprove},
		{"above default threshold acceptable", 0.75, nil, true, RecommendAcceptable},
		{"below threshold needs review", 0.6, nil, false, RecommendNeedsReview},
		{"at 0.4 still review", 0.4, nil, false, RecommendNeedsReview},
		{"very low rejects", 0.3, nil, false, RecommendReject},
		{"custom threshold passes", 0.6, []float64{0.5}, true, RecommendAcceptable},
		{"custom threshold still gates", 0.45, []float64{0.5}, false, RecommendNeedsReview},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CheckConfidenceGate(tt.confidence, tt.threshold...)
			if got.Passed != tt.wantPassed || got.Recommendation != tt.wantRec {
				t.Errorf("CheckConfidenceGate(%f, %v) = %+v, want passed=%v rec=%q",
					tt.confidence, tt.threshold, got, tt.wantPassed, tt.wantRec)
			}
		})
	}
}
