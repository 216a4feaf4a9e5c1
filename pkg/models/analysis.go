package models

import "time"

// RiskLevel is the overall patient risk band computed by the aggregator.
type RiskLevel string

const (
	RiskLevelMinimal RiskLevel = "Minimal"
	RiskLevelLow     RiskLevel = "Low"
	RiskLevelMedium  RiskLevel = "Medium"
	RiskLevelHigh    RiskLevel = "High"
)

// SystemicRiskLevel bands a systemic risk score. It is a separate scale
// from RiskLevel: systemic categories use Moderate where the overall
// assessment uses Medium.
type SystemicRiskLevel string

const (
	SystemicMinimal  SystemicRiskLevel = "Minimal"
	SystemicLow      SystemicRiskLevel = "Low"
	SystemicModerate SystemicRiskLevel = "Moderate"
	SystemicHigh     SystemicRiskLevel = "High"
)

// Urgency tags how quickly the primary condition needs clinical attention.
type Urgency string

const (
	UrgencyLow    Urgency = "low"
	UrgencyMedium Urgency = "medium"
	UrgencyHigh   Urgency = "high"
)

// ConfidenceInterval is a Wilson score interval on a probability.
type ConfidenceInterval struct {
	Lower           float64 `json:"lower"`
	Upper           float64 `json:"upper"`
	ConfidenceLevel float64 `json:"confidence_level"`
}

// BrightnessCharacteristics describes the luminance distribution of an image.
type BrightnessCharacteristics struct {
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Level string  `json:"level"` // "dark", "normal", "bright"
}

// ContrastCharacteristics describes the luminance spread of an image.
type ContrastCharacteristics struct {
	Value float64 `json:"value"`
	Level string  `json:"level"` // "low", "normal", "high"
}

// SharpnessCharacteristics reports the Laplacian-variance focus measure.
type SharpnessCharacteristics struct {
	LaplacianVariance float64 `json:"laplacian_variance"`
	Level             string  `json:"level"` // "sharp" or "blurry"
}

// ColorDistribution holds per-channel means for multichannel images.
type ColorDistribution struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// ImageCharacteristics is the structured characteristics block of a
// quality report.
type ImageCharacteristics struct {
	Brightness        BrightnessCharacteristics `json:"brightness"`
	Contrast          ContrastCharacteristics   `json:"contrast"`
	Sharpness         SharpnessCharacteristics  `json:"sharpness"`
	ColorDistribution *ColorDistribution        `json:"color_distribution,omitempty"`
}

// QualityReport is the image-quality gate verdict. IsValid is false when
// the image is too small or the combined quality score falls below 0.5;
// all other findings are advisory issues only.
type QualityReport struct {
	IsValid         bool                 `json:"is_valid"`
	Issues          []string             `json:"issues"`
	QualityScore    float64              `json:"quality_score"`
	Characteristics ImageCharacteristics `json:"characteristics"`
}

// VascularMetrics are heuristic vascular-structure proxies derived from
// edge density and local texture variance, not true vessel segmentation.
type VascularMetrics struct {
	TortuosityIndex     float64 `json:"tortuosity_index"`
	WidthVariationIndex float64 `json:"width_variation_index"`
	MicroaneurysmCount  int     `json:"microaneurysm_count"`
	HemorrhageScore     float64 `json:"hemorrhage_score"`
}

// MaxComponent returns the largest of the three continuous vascular
// proxies. The aggregator uses it for the final escalation check.
func (v VascularMetrics) MaxComponent() float64 {
	m := v.TortuosityIndex
	if v.WidthVariationIndex > m {
		m = v.WidthVariationIndex
	}
	if v.HemorrhageScore > m {
		m = v.HemorrhageScore
	}
	return m
}

// ConditionRecord is the clinical interpretation of one classifier output.
type ConditionRecord struct {
	Probability        float64            `json:"probability"`
	Positive           bool               `json:"positive"`
	Threshold          float64            `json:"threshold"`
	Severity           string             `json:"severity"`
	ClinicalName       string             `json:"clinical_name"`
	ICDCode            string             `json:"icd_code,omitempty"`
	Description        string             `json:"description,omitempty"`
	SystemicRisks      []string           `json:"systemic_risks,omitempty"`
	ConfidenceInterval ConfidenceInterval `json:"confidence_interval"`
}

// ContributingCondition explains one condition's share of a systemic risk.
type ContributingCondition struct {
	Condition    string  `json:"condition"`
	Probability  float64 `json:"probability"`
	Contribution float64 `json:"contribution"`
}

// SystemicRisk is one non-ocular risk estimate inferred from retinal
// findings.
type SystemicRisk struct {
	Name                   string                  `json:"name"`
	Description            string                  `json:"description"`
	RiskScore              float64                 `json:"risk_score"`
	RiskLevel              SystemicRiskLevel       `json:"risk_level"`
	ContributingConditions []ContributingCondition `json:"contributing_conditions"`
	ConfidenceInterval     ConfidenceInterval      `json:"confidence_interval"`
}

// RiskAssessment is the aggregated per-request risk decision.
type RiskAssessment struct {
	RiskLevel                 RiskLevel `json:"risk_level"`
	RiskScore                 float64   `json:"risk_score"`
	CombinedRiskScore         float64   `json:"combined_risk_score"`
	PrimaryCondition          string    `json:"primary_condition"`
	PositiveConditions        []string  `json:"positive_conditions"`
	HighSystemicRisks         []string  `json:"high_systemic_risks"`
	Urgency                   Urgency   `json:"urgency"`
	RequiresReferral          bool      `json:"requires_referral"`
	RequiresSystemicFollowup  bool      `json:"requires_systemic_followup"`
	VascularEscalationApplied bool      `json:"vascular_escalation_applied"`
}

// AnnotatedRegion is one approximate region of interest. Placement is
// reproducible pseudo-random, not true lesion localization.
type AnnotatedRegion struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
}

// Heatmap is a normalized [0,1] intensity map over the analyzed image.
type Heatmap struct {
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Values []float32 `json:"values"` // row-major, len == Width*Height
}

// ImageMetadata carries acquisition facts about the source image.
type ImageMetadata struct {
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
}

// AnalysisResult is the terminal aggregate for one analysis request.
// It is created once per request and read-only afterward.
type AnalysisResult struct {
	AnalysisID       string                     `json:"analysis_id"`
	ImageURL         string                     `json:"image_url"`
	ImageType        string                     `json:"image_type"`
	ImageMetadata    ImageMetadata              `json:"image_metadata"`
	Quality          QualityReport              `json:"quality"`
	VascularMetrics  VascularMetrics            `json:"vascular_metrics"`
	Conditions       map[string]ConditionRecord `json:"conditions"`
	SystemicRisks    map[string]SystemicRisk    `json:"systemic_health_risks"`
	RiskAssessment   RiskAssessment             `json:"risk_assessment"`
	Recommendations  []string                   `json:"recommendations"`
	Annotations      []AnnotatedRegion          `json:"annotations"`
	HeatmapURL       string                     `json:"heatmap_url,omitempty"`
	PredictedClass   string                     `json:"predicted_class"`
	Confidence       float64                    `json:"confidence"`
	DegradedMode     bool                       `json:"degraded_mode"`
	ModelVersion     string                     `json:"model_version"`
	ProcessedAt      time.Time                  `json:"processed_at"`
	ProcessingTimeMS int64                      `json:"processing_time_ms"`
}
