package clinical

import "github.com/aura-health/retina-ai-core/pkg/models"

// Conditions below this probability never contribute to systemic risk.
const contributionFloor = 0.1

// Vascular heuristics can corroborate the classifier signal but never
// dominate it: the additive pass-2 boost is capped here.
const maxVascularBoost = 0.25

// SystemicRiskEngine maps per-condition probabilities to systemic-health
// risk scores, then re-blends those scores with the vascular metrics
// vector. Both passes are pure transformations.
type SystemicRiskEngine struct{}

func NewSystemicRiskEngine() *SystemicRiskEngine {
	return &SystemicRiskEngine{}
}

// ComputeFromConditions is the classifier-only pass: each category's
// score is the clipped weighted sum of associated condition
// probabilities. Positive contributors are recorded for explainability.
func (e *SystemicRiskEngine) ComputeFromConditions(conditions map[string]models.ConditionRecord) map[string]models.SystemicRisk {
	risks := make(map[string]models.SystemicRisk, len(RiskCategories))

	for _, category := range RiskCategories {
		info := SystemicRisks[category]

		score := 0.0
		contributors := []models.ContributingCondition{}
		for _, label := range Labels {
			weight, ok := info.Weights[label]
			if !ok {
				continue
			}
			record, ok := conditions[label]
			if !ok || record.Probability <= contributionFloor {
				continue
			}
			contribution := record.Probability * weight
			score += contribution
			if record.Positive {
				contributors = append(contributors, models.ContributingCondition{
					Condition:    label,
					Probability:  record.Probability,
					Contribution: contribution,
				})
			}
		}
		score = clamp01(score)

		risks[category] = models.SystemicRisk{
			Name:                   info.Name,
			Description:            info.Description,
			RiskScore:              score,
			RiskLevel:              SystemicLevel(score),
			ContributingConditions: contributors,
			ConfidenceInterval:     WilsonInterval(score),
		}
	}
	return risks
}

// Reblend is the vascular pass: each category's score is boosted by a
// fixed linear combination of tortuosity, width variation and hemorrhage,
// with the additive boost capped, then re-banded. Boosting is monotonic
// in every vascular component.
func (e *SystemicRiskEngine) Reblend(risks map[string]models.SystemicRisk, vascular models.VascularMetrics) map[string]models.SystemicRisk {
	blended := make(map[string]models.SystemicRisk, len(risks))

	for category, risk := range risks {
		info, ok := SystemicRisks[category]
		if !ok {
			blended[category] = risk
			continue
		}

		w := info.VascularWeights
		influence := w[0]*vascular.TortuosityIndex +
			w[1]*vascular.WidthVariationIndex +
			w[2]*vascular.HemorrhageScore
		if influence > maxVascularBoost {
			influence = maxVascularBoost
		}
		if influence < 0 {
			influence = 0
		}

		boosted := clamp01(risk.RiskScore + influence)
		risk.RiskScore = boosted
		risk.RiskLevel = SystemicLevel(boosted)
		risk.ConfidenceInterval = WilsonInterval(boosted)
		blended[category] = risk
	}
	return blended
}

// SystemicLevel is the deterministic step function from risk score to
// risk band.
func SystemicLevel(score float64) models.SystemicRiskLevel {
	switch {
	case score >= 0.6:
		return models.SystemicHigh
	case score >= 0.3:
		return models.SystemicModerate
	case score >= 0.1:
		return models.SystemicLow
	default:
		return models.SystemicMinimal
	}
}
