package clinical

import (
	"strings"
	"testing"

	"github.com/aura-health/retina-ai-core/pkg/models"
)

func containsLine(lines []string, substr string) bool {
	return lineIndex(lines, substr) >= 0
}

func lineIndex(lines []string, substr string) int {
	for i, line := range lines {
		if strings.Contains(line, substr) {
			return i
		}
	}
	return -1
}

func TestGenerate_HealthyResult(t *testing.T) {
	conditions := conditionsFixture(t, []float64{0.05, 0.05, 0.1, 0.8})
	risks := NewSystemicRiskEngine().ComputeFromConditions(conditions)
	assessment := NewRiskAggregator().Aggregate(conditions, risks, models.VascularMetrics{})

	recs := NewRecommendationGenerator().Generate(assessment, conditions, risks)

	if !containsLine(recs, "No significant retinal pathology") {
		t.Errorf("healthy result should state that no pathology was found, got %v", recs)
	}
	if !containsLine(recs, "routine annual eye examinations") {
		t.Errorf("healthy result with no warnings should suggest routine followup, got %v", recs)
	}
	if containsLine(recs, "referral") {
		t.Errorf("healthy result must not mention referral, got %v", recs)
	}
}

func TestGenerate_HealthyWithSystemicWarning(t *testing.T) {
	conditions := conditionsFixture(t, []float64{0.05, 0.05, 0.1, 0.8})
	risks := map[string]models.SystemicRisk{
		RiskHypertension: {
			Name:      SystemicRisks[RiskHypertension].Name,
			RiskScore: 0.45,
			RiskLevel: models.SystemicModerate,
		},
	}
	assessment := models.RiskAssessment{
		RiskLevel:        models.RiskLevelLow,
		PrimaryCondition: LabelNormal,
		Urgency:          models.UrgencyLow,
	}

	recs := NewRecommendationGenerator().Generate(assessment, conditions, risks)
	if !containsLine(recs, "despite healthy retinal structure") {
		t.Errorf("expected a systemic warning on a healthy retina, got %v", recs)
	}
	if containsLine(recs, "routine annual eye examinations") {
		t.Errorf("the routine followup line should be replaced by the warning, got %v", recs)
	}
}

func TestGenerate_VascularEscalatedHealthyRetina(t *testing.T) {
	conditions := conditionsFixture(t, []float64{0.05, 0.05, 0.1, 0.8})
	vascular := models.VascularMetrics{TortuosityIndex: 0.75}
	engine := NewSystemicRiskEngine()
	risks := engine.Reblend(engine.ComputeFromConditions(conditions), vascular)
	assessment := NewRiskAggregator().Aggregate(conditions, risks, vascular)

	if assessment.RiskLevel != models.RiskLevelMedium || assessment.PrimaryCondition != LabelNormal {
		t.Fatalf("fixture should escalate a healthy retina to Medium, got %s/%s",
			assessment.RiskLevel, assessment.PrimaryCondition)
	}

	recs := NewRecommendationGenerator().Generate(assessment, conditions, risks)

	if containsLine(recs, "No significant retinal pathology") {
		t.Errorf("a Medium assessment must not take the reassurance path, got %v", recs)
	}
	if containsLine(recs, "routine annual eye examinations") {
		t.Errorf("a Medium assessment must not suggest routine annual followup, got %v", recs)
	}
	if !containsLine(recs, "2-4 weeks") {
		t.Errorf("a Medium assessment should carry the consultation banner, got %v", recs)
	}
}

func TestGenerate_BannerKeyedToRiskLevel(t *testing.T) {
	conditions := conditionsFixture(t, []float64{0.75, 0.05, 0.05, 0.1})
	risks := NewSystemicRiskEngine().ComputeFromConditions(conditions)
	assessment := NewRiskAggregator().Aggregate(conditions, risks, models.VascularMetrics{})

	if assessment.RiskLevel != models.RiskLevelHigh {
		t.Fatalf("CNV at 0.75 should assess as High, got %s", assessment.RiskLevel)
	}

	recs := NewRecommendationGenerator().Generate(assessment, conditions, risks)

	banner := lineIndex(recs, "Urgent ophthalmology referral")
	if banner < 0 {
		t.Fatalf("High assessment should carry the urgent banner, got %v", recs)
	}
	if containsLine(recs, "2-4 weeks") {
		t.Errorf("High assessment must not also carry the Medium banner, got %v", recs)
	}
	if cnv := lineIndex(recs, "anti-VEGF therapy"); cnv < 0 || cnv > banner {
		t.Errorf("condition guidance should precede the urgency banner, got %v", recs)
	}
	for _, category := range RiskCategories {
		if i := lineIndex(recs, "elevated "+category); i > banner {
			t.Errorf("systemic lines should precede the urgency banner, got %v", recs)
		}
	}
}

func TestGenerate_PositiveConditions(t *testing.T) {
	conditions := conditionsFixture(t, []float64{0.45, 0.35, 0.05, 0.1})
	risks := NewSystemicRiskEngine().ComputeFromConditions(conditions)
	assessment := NewRiskAggregator().Aggregate(conditions, risks, models.VascularMetrics{})

	recs := NewRecommendationGenerator().Generate(assessment, conditions, risks)

	if !containsLine(recs, "2-4 weeks") {
		t.Errorf("a Medium assessment should carry the consultation banner, got %v", recs)
	}
	if containsLine(recs, "Urgent ophthalmology referral") {
		t.Errorf("a Medium assessment must not carry the urgent banner, got %v", recs)
	}
	if !containsLine(recs, "anti-VEGF therapy") {
		t.Errorf("positive CNV should recommend anti-VEGF evaluation, got %v", recs)
	}
	if !containsLine(recs, "glycemic control") {
		t.Errorf("positive DME should mention glycemic control, got %v", recs)
	}
	if containsLine(recs, "AREDS2") {
		t.Errorf("DRUSEN was not positive, AREDS2 advice is out of place: %v", recs)
	}
}

func TestGenerate_SystemicActionLines(t *testing.T) {
	conditions := conditionsFixture(t, []float64{0.45, 0.2, 0.05, 0.3})
	risks := map[string]models.SystemicRisk{}
	for _, category := range RiskCategories {
		risks[category] = models.SystemicRisk{
			Name:      SystemicRisks[category].Name,
			RiskScore: 0.45,
			RiskLevel: models.SystemicModerate,
		}
	}
	assessment := models.RiskAssessment{
		RiskLevel:          models.RiskLevelMedium,
		PrimaryCondition:   LabelCNV,
		PositiveConditions: []string{LabelCNV},
		Urgency:            models.UrgencyHigh,
		RequiresReferral:   true,
	}

	recs := NewRecommendationGenerator().Generate(assessment, conditions, risks)

	for _, want := range []string{
		"elevated cardiovascular risk",
		"lipid panel",
		"elevated diabetes risk",
		"HbA1c",
		"elevated hypertension risk",
		"Monitor blood pressure",
		"elevated stroke risk",
		"carotid Doppler",
	} {
		if !containsLine(recs, want) {
			t.Errorf("expected a line containing %q, got %v", want, recs)
		}
	}
}

func TestGenerate_SystemicFollowup(t *testing.T) {
	conditions := conditionsFixture(t, []float64{0.45, 0.2, 0.05, 0.3})
	risks := map[string]models.SystemicRisk{
		RiskCardiovascular: {
			Name:      SystemicRisks[RiskCardiovascular].Name,
			RiskScore: 0.65,
			RiskLevel: models.SystemicHigh,
		},
	}
	assessment := models.RiskAssessment{
		RiskLevel:                models.RiskLevelMedium,
		PrimaryCondition:         LabelCNV,
		PositiveConditions:       []string{LabelCNV},
		HighSystemicRisks:        []string{RiskCardiovascular},
		Urgency:                  models.UrgencyHigh,
		RequiresReferral:         true,
		RequiresSystemicFollowup: true,
	}

	recs := NewRecommendationGenerator().Generate(assessment, conditions, risks)

	if !containsLine(recs, "elevated cardiovascular risk") {
		t.Errorf("expected a cardiovascular risk line, got %v", recs)
	}
	if !containsLine(recs, "lipid panel") {
		t.Errorf("expected the cardiovascular action line, got %v", recs)
	}
	if !containsLine(recs, "multidisciplinary") {
		t.Errorf("expected the multidisciplinary followup note, got %v", recs)
	}
}

func TestGenerate_Drusen(t *testing.T) {
	conditions := conditionsFixture(t, []float64{0.1, 0.1, 0.55, 0.2})
	risks := NewSystemicRiskEngine().ComputeFromConditions(conditions)
	assessment := NewRiskAggregator().Aggregate(conditions, risks, models.VascularMetrics{})

	recs := NewRecommendationGenerator().Generate(assessment, conditions, risks)

	if !containsLine(recs, "AREDS2") {
		t.Errorf("positive DRUSEN should mention AREDS2, got %v", recs)
	}
	if !containsLine(recs, "2-4 weeks") {
		t.Errorf("a Medium assessment should suggest consultation within 2-4 weeks, got %v", recs)
	}
}
