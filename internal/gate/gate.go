// Package gate holds the deterministic quality checks applied to extraction
// batches. Both checks are pure functions of small inputs: no second model
// call, no I/O. They catch the two failure classes that matter operationally,
// too little signal extracted and signal extracted with low certainty.
package gate

import "math"

// Batch evaluation floors and score weights.
const (
	confidenceFloor = 0.6
	entityFloor     = 5
	coverageFloor   = 0.5

	confidenceWeight = 0.5
	entityWeight     = 0.2
	coverageWeight   = 0.3

	// Each triggered issue drags the composite down further, so a batch
	// failing on several axes scores visibly worse than one failing on one.
	issuePenalty = 0.05

	// entityCeiling is the count at which the entity term saturates.
	entityCeiling = 20
)

// Issue strings reported by QuickEvaluate.
const (
	IssueLowConfidence = "Low classification confidence"
	IssueFewEntities   = "Very few entities extracted"
	IssueLowCoverage   = "Low checklist coverage"
)

// BatchEvaluation is the advisory outcome of a batch quality check.
type BatchEvaluation struct {
	Passed bool     `json:"passed"`
	Score  float64  `json:"score"`
	Issues []string `json:"issues"`
}

// QuickEvaluate flags low-quality extraction batches from three cheap
// signals. All triggered issues are reported, not short-circuited, so
// operators see the full picture; Passed is true only when none triggered.
func QuickEvaluate(avgConfidence float64, entityCount int, checklistCoverage float64) BatchEvaluation {
	issues := []string{}

	if avgConfidence < confidenceFloor {
		issues = append(issues, IssueLowConfidence)
	}
	if entityCount < entityFloor {
		issues = append(issues, IssueFewEntities)
	}
	if checklistCoverage < coverageFloor {
		issues = append(issues, IssueLowCoverage)
	}

	entityTerm := math.Min(1.0, float64(entityCount)/float64(entityCeiling))
	score := avgConfidence*confidenceWeight + entityTerm*entityWeight + checklistCoverage*coverageWeight
	score -= float64(len(issues)) * issuePenalty

	return BatchEvaluation{
		Passed: len(issues) == 0,
		Score:  clamp(score),
		Issues: issues,
	}
}

// DefaultThreshold is the confidence below which an item needs review.
const DefaultThreshold = 0.7

// Graduated recommendations from the confidence gate. These pre-sort items
// for the review UI; nothing in the pipeline acts on them automatically.
const (
	RecommendAutoApprove = "auto-approve"
	RecommendAcceptable  = "acceptable, review recommended"
	RecommendNeedsReview = "needs review"
	RecommendReject      = "likely misclassified, reject or re-extract"
)

// GateResult is the routing recommendation for a single item's confidence.
type GateResult struct {
	Passed         bool   `json:"passed"`
	Recommendation string `json:"recommendation"`
}

// CheckConfidenceGate routes a per-item confidence to a graduated
// recommendation. An optional custom threshold replaces DefaultThreshold for
// the pass boundary; the auto-approve and reject tiers are fixed.
func CheckConfidenceGate(confidence float64, threshold ...float64) GateResult {
	t := DefaultThreshold
	if len(threshold) > 0 {
		t = threshold[0]
	}

	switch {
	case confidence >= 0.9:
		return GateResult{Passed: true, Recommendation: RecommendAutoApprove}
	case confidence >= t:
		return GateResult{Passed: true, Recommendation: RecommendAcceptable}
	case confidence >= 0.4:
		return GateResult{Passed: false, Recommendation: RecommendNeedsReview}
	default:
		return GateResult{Passed: false, Recommendation: RecommendReject}
	}
}

func clamp(v float64) float64 {
	if v < 0.0 {
		return 0.0
	}
	if v > 1.0 {
		return 1.0
	}
	return v
}
