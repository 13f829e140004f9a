package scoring

import (
	"strings"

	"github.com/TravelOpsHQ/travelcore-go/types"
)

const lowRiskReason = "low risk profile"

// DeterministicScorer is the rule-based fallback. It is a pure function of
// its input: no I/O, no clock, no randomness, and it always succeeds, which
// is what lets the pipeline run fully offline when no oracle is configured.
type DeterministicScorer struct{}

func (DeterministicScorer) Score(f types.FeatureRecord) types.RiskAssessment {
	score := 10
	var reasons []string

	if f.AgeBucket.SeniorBracket() {
		score += 30
		reasons = append(reasons, "senior age bracket")
	}
	switch {
	case f.MissingFieldCount > 3:
		score += 40
		reasons = append(reasons, "many missing profile fields")
	case f.MissingFieldCount > 0:
		score += 15
		reasons = append(reasons, "incomplete profile")
	}
	if f.RiskCategoryHint == "high" {
		score += 25
		reasons = append(reasons, "flagged high risk")
	}

	reason := lowRiskReason
	if len(reasons) > 0 {
		reason = strings.Join(reasons, "; ")
	}
	return types.RiskAssessment{
		SubjectID:  f.SubjectID,
		RiskScore:  clampScore(score),
		RiskReason: reason,
		Source:     types.SourceFallback,
	}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
