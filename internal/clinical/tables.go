package clinical

import "github.com/aura-health/retina-ai-core/pkg/models"

// Class labels in classifier output order. NORMAL is the healthy class
// and can never be flagged positive.
const (
	LabelCNV    = "CNV"
	LabelDME    = "DME"
	LabelDrusen = "DRUSEN"
	LabelNormal = "NORMAL"
)

// Labels is the fixed, ordered label set the classifier emits
// probabilities over.
var Labels = []string{LabelCNV, LabelDME, LabelDrusen, LabelNormal}

// Systemic risk category keys.
const (
	RiskCardiovascular = "cardiovascular"
	RiskDiabetes       = "diabetes"
	RiskHypertension   = "hypertension"
	RiskStroke         = "stroke"
)

// RiskCategories in stable output order.
var RiskCategories = []string{RiskCardiovascular, RiskDiabetes, RiskHypertension, RiskStroke}

// ConditionInfo is the static clinical metadata for one class label.
type ConditionInfo struct {
	Name          string
	ICD10         string
	Urgency       models.Urgency
	Description   string
	SystemicRisks []string
}

// Conditions maps each label to its clinical metadata.
var Conditions = map[string]ConditionInfo{
	LabelCNV: {
		Name:          "Choroidal Neovascularization",
		ICD10:         "H35.31",
		Urgency:       models.UrgencyHigh,
		Description:   "Abnormal blood vessel growth beneath the retina",
		SystemicRisks: []string{RiskCardiovascular, RiskHypertension},
	},
	LabelDME: {
		Name:          "Diabetic Macular Edema",
		ICD10:         "E11.311",
		Urgency:       models.UrgencyHigh,
		Description:   "Fluid accumulation in the macula due to diabetes",
		SystemicRisks: []string{RiskDiabetes, RiskCardiovascular, RiskStroke},
	},
	LabelDrusen: {
		Name:          "Drusen (Early AMD)",
		ICD10:         "H35.30",
		Urgency:       models.UrgencyMedium,
		Description:   "Yellow deposits under the retina, early sign of AMD",
		SystemicRisks: []string{RiskCardiovascular, RiskHypertension},
	},
	LabelNormal: {
		Name:        "Normal Retina",
		Urgency:     models.UrgencyLow,
		Description: "No significant abnormalities detected",
	},
}

// Thresholds is the per-class positivity threshold table.
var Thresholds = map[string]float64{
	LabelCNV:    0.3,
	LabelDME:    0.3,
	LabelDrusen: 0.4,
	LabelNormal: 0.5,
}

// SystemicRiskInfo describes one systemic category and the weighted
// contribution of each retinal condition to it.
type SystemicRiskInfo struct {
	Name        string
	Description string
	// Weights maps condition label -> contribution weight on its
	// probability during the classifier-only pass.
	Weights map[string]float64
	// Vascular influence weights over (tortuosity, width variation,
	// hemorrhage) for the re-blend pass. The additive boost is capped
	// separately so vascular heuristics corroborate but never dominate.
	VascularWeights [3]float64
}

// SystemicRisks is the static contribution table for the four systemic
// categories. Retinal condition weights follow the clinical literature on
// retinal vasculature as a window to systemic disease.
var SystemicRisks = map[string]SystemicRiskInfo{
	RiskCardiovascular: {
		Name:        "Cardiovascular Risk",
		Description: "Risk of heart disease based on retinal vascular changes",
		Weights: map[string]float64{
			LabelCNV:    0.3,
			LabelDME:    0.4,
			LabelDrusen: 0.2,
		},
		VascularWeights: [3]float64{0.25, 0.25, 0.25},
	},
	RiskDiabetes: {
		Name:        "Diabetes Complications Risk",
		Description: "Risk of diabetes-related complications",
		Weights: map[string]float64{
			LabelDME: 0.8,
		},
		VascularWeights: [3]float64{0.15, 0.15, 0.45},
	},
	RiskHypertension: {
		Name:        "Hypertension Risk",
		Description: "Risk of high blood pressure based on vascular changes",
		Weights: map[string]float64{
			LabelCNV:    0.4,
			LabelDrusen: 0.3,
		},
		VascularWeights: [3]float64{0.35, 0.25, 0.15},
	},
	RiskStroke: {
		Name:        "Stroke Risk",
		Description: "Risk of cerebrovascular events",
		Weights: map[string]float64{
			LabelDME: 0.5,
			LabelCNV: 0.3,
		},
		VascularWeights: [3]float64{0.30, 0.20, 0.25},
	},
}

// FallbackProbabilities is substituted when the classifier is
// unavailable: 70% healthy, remainder split evenly. All downstream stages
// behave identically on real and fallback vectors.
var FallbackProbabilities = []float64{0.1, 0.1, 0.1, 0.7}
