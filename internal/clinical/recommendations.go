package clinical

import (
	"fmt"

	"github.com/aura-health/retina-ai-core/pkg/models"
)

// systemicActionLines are the follow-up actions attached to each risk
// category when it reaches Moderate or High.
var systemicActionLines = map[string][]string{
	RiskCardiovascular: {
		"Cardiovascular screening is advised: blood pressure measurement, a lipid panel, and review of modifiable factors such as smoking, weight and physical activity.",
	},
	RiskDiabetes: {
		"Optimize glycemic control with your physician; an HbA1c target below 7% is typical when appropriate.",
		"Schedule periodic screening for other diabetic complications, including kidney, peripheral nerve and cardiovascular disease.",
	},
	RiskHypertension: {
		"Monitor blood pressure regularly and consult your physician if readings are elevated or fluctuate, for medication adjustment and lifestyle advice.",
	},
	RiskStroke: {
		"Early consultation with a neurologist or cardiologist is advised for further evaluation.",
		"A carotid Doppler ultrasound may be considered at your physician's discretion.",
	},
}

// RecommendationGenerator turns an assessment into patient-facing
// guidance lines. Output order is stable: per-condition guidance,
// systemic follow-ups, the urgency banner, then the multidisciplinary
// note.
type RecommendationGenerator struct{}

func NewRecommendationGenerator() *RecommendationGenerator {
	return &RecommendationGenerator{}
}

func (rg *RecommendationGenerator) Generate(
	assessment models.RiskAssessment,
	conditions map[string]models.ConditionRecord,
	systemicRisks map[string]models.SystemicRisk,
) []string {
	healthy := assessment.PrimaryCondition == LabelNormal &&
		(assessment.RiskLevel == models.RiskLevelMinimal || assessment.RiskLevel == models.RiskLevelLow)
	if healthy {
		return rg.healthyRecommendations(systemicRisks)
	}

	recs := []string{}

	for _, label := range assessment.PositiveConditions {
		switch label {
		case LabelCNV:
			recs = append(recs,
				"Findings consistent with choroidal neovascularization. Prompt retina specialist evaluation for anti-VEGF therapy is advised.")
		case LabelDME:
			recs = append(recs,
				"Findings consistent with diabetic macular edema. Review glycemic control with your physician and discuss anti-VEGF or laser treatment options.")
		case LabelDrusen:
			recs = append(recs,
				"Drusen deposits detected. Consider AREDS2 supplementation and schedule a follow-up examination in 6 months.")
		}
	}

	for _, category := range RiskCategories {
		risk, ok := systemicRisks[category]
		if !ok {
			continue
		}
		if risk.RiskLevel != models.SystemicHigh && risk.RiskLevel != models.SystemicModerate {
			continue
		}
		recs = append(recs, fmt.Sprintf(
			"Retinal findings suggest elevated %s risk.", category))
		recs = append(recs, systemicActionLines[category]...)
	}

	switch assessment.RiskLevel {
	case models.RiskLevelHigh:
		recs = append(recs, "Urgent ophthalmology referral recommended within 1-2 weeks.")
	case models.RiskLevelMedium:
		recs = append(recs, "Ophthalmology consultation recommended within 2-4 weeks.")
	}

	if assessment.RequiresSystemicFollowup {
		recs = append(recs,
			"Multiple systemic risk indicators are present. A multidisciplinary review of cardiovascular and metabolic health is recommended.")
	}

	if len(recs) == 0 {
		recs = append(recs, "Continue routine eye examinations as advised by your eye care provider.")
	}
	return recs
}

// healthyRecommendations still surfaces systemic warnings; a retina can
// look structurally healthy while vascular signals warrant follow-up.
// The routine-followup line is only added when no warning was.
func (rg *RecommendationGenerator) healthyRecommendations(systemicRisks map[string]models.SystemicRisk) []string {
	recs := []string{
		"No significant retinal pathology detected.",
	}
	warned := false
	for _, category := range RiskCategories {
		risk, ok := systemicRisks[category]
		if !ok {
			continue
		}
		if risk.RiskLevel == models.SystemicHigh || risk.RiskLevel == models.SystemicModerate {
			recs = append(recs, fmt.Sprintf(
				"Note: vascular indicators suggest elevated %s risk despite healthy retinal structure. Consider discussing with your physician.",
				category))
			warned = true
		}
	}
	if !warned {
		recs = append(recs, "Continue routine annual eye examinations.")
	}
	return recs
}
