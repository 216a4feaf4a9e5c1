package clinical

import "github.com/aura-health/retina-ai-core/pkg/models"

// Vascular extremes at or above this level can escalate an otherwise
// benign-looking assessment to Medium, but never directly to High.
const vascularEscalationFloor = 0.7

// RiskAggregator combines condition-level and systemic-level signals into
// the single overall risk decision.
type RiskAggregator struct{}

func NewRiskAggregator() *RiskAggregator {
	return &RiskAggregator{}
}

// Aggregate computes the overall assessment. Rule order matters and is
// fixed: base banding from the combined score, then the healthy-class
// override, then the vascular escalation last. The escalation is applied
// after the override so strong vascular evidence can still upgrade a
// nominally healthy result to Medium.
func (ra *RiskAggregator) Aggregate(
	conditions map[string]models.ConditionRecord,
	systemicRisks map[string]models.SystemicRisk,
	vascular models.VascularMetrics,
) models.RiskAssessment {
	maxRisk := 0.0
	primary := LabelNormal
	positive := []string{}

	for _, label := range Labels {
		if label == LabelNormal {
			continue
		}
		record, ok := conditions[label]
		if !ok || !record.Positive {
			continue
		}
		positive = append(positive, label)
		if record.Probability > maxRisk {
			maxRisk = record.Probability
			primary = label
		}
	}

	maxSystemic := 0.0
	highSystemic := []string{}
	for _, category := range RiskCategories {
		risk, ok := systemicRisks[category]
		if !ok {
			continue
		}
		if risk.RiskScore > maxSystemic {
			maxSystemic = risk.RiskScore
		}
		if risk.RiskLevel == models.SystemicHigh || risk.RiskLevel == models.SystemicModerate {
			highSystemic = append(highSystemic, category)
		}
	}

	// Systemic risk is weighted slightly lower than direct findings.
	combined := maxRisk
	if weighted := maxSystemic * 0.8; weighted > combined {
		combined = weighted
	}

	var level models.RiskLevel
	switch {
	case combined >= 0.7:
		level = models.RiskLevelHigh
	case maxRisk >= 0.4:
		level = models.RiskLevelMedium
	case maxRisk >= 0.3:
		level = models.RiskLevelLow
	default:
		level = models.RiskLevelMinimal
	}

	// Healthy override: a confident healthy class wins over any banding
	// derived above.
	normalProb := conditions[LabelNormal].Probability
	if normalProb > 0.7 {
		level = models.RiskLevelLow
		primary = LabelNormal
	}

	riskScore := maxRisk
	if primary == LabelNormal {
		riskScore = 1.0 - normalProb
	}

	// Vascular escalation is the final rule: extremes upgrade
	// Minimal/Low to Medium, never beyond.
	escalated := false
	if vascular.MaxComponent() >= vascularEscalationFloor &&
		(level == models.RiskLevelMinimal || level == models.RiskLevelLow) {
		level = models.RiskLevelMedium
		escalated = true
	}

	urgency := Conditions[primary].Urgency

	return models.RiskAssessment{
		RiskLevel:                 level,
		RiskScore:                 riskScore,
		CombinedRiskScore:         combined,
		PrimaryCondition:          primary,
		PositiveConditions:        positive,
		HighSystemicRisks:         highSystemic,
		Urgency:                   urgency,
		RequiresReferral:          (level == models.RiskLevelHigh || level == models.RiskLevelMedium) && primary != LabelNormal,
		RequiresSystemicFollowup:  len(highSystemic) > 0,
		VascularEscalationApplied: escalated,
	}
}
