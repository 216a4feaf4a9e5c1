package clinical

import (
	"fmt"
	"math"

	"github.com/aura-health/retina-ai-core/pkg/models"
)

// Wilson interval parameters: 95% confidence with a fixed pseudo-sample
// size, expressing uncertainty on a single classifier probability.
const (
	wilsonZ = 1.96
	wilsonN = 1000.0
)

// ConditionInterpreter converts raw per-class probabilities into clinical
// condition records using the static threshold and metadata tables.
type ConditionInterpreter struct{}

func NewConditionInterpreter() *ConditionInterpreter {
	return &ConditionInterpreter{}
}

// Interpret builds one ConditionRecord per class label. The probability
// vector must follow the fixed label order.
func (ci *ConditionInterpreter) Interpret(probabilities []float64) (map[string]models.ConditionRecord, error) {
	if len(probabilities) != len(Labels) {
		return nil, fmt.Errorf("expected %d class probabilities, got %d", len(Labels), len(probabilities))
	}

	records := make(map[string]models.ConditionRecord, len(Labels))
	for i, label := range Labels {
		prob := clamp01(probabilities[i])
		threshold := Thresholds[label]
		info := Conditions[label]

		records[label] = models.ConditionRecord{
			Probability:        prob,
			Positive:           prob >= threshold && label != LabelNormal,
			Threshold:          threshold,
			Severity:           Severity(prob, label),
			ClinicalName:       info.Name,
			ICDCode:            info.ICD10,
			Description:        info.Description,
			SystemicRisks:      info.SystemicRisks,
			ConfidenceInterval: WilsonInterval(prob),
		}
	}
	return records, nil
}

// Severity bands a probability into a clinical severity label. The
// healthy class uses its own two-band scale.
func Severity(probability float64, label string) string {
	if label == LabelNormal {
		if probability > 0.7 {
			return "Healthy"
		}
		return "Uncertain"
	}

	switch {
	case probability < 0.3:
		return "Not detected"
	case probability < 0.5:
		return "Mild"
	case probability < 0.7:
		return "Moderate"
	case probability < 0.85:
		return "Severe"
	default:
		return "Advanced"
	}
}

// WilsonInterval computes the Wilson score confidence interval for a
// probability at z=1.96 and the fixed pseudo-sample size. Bounds are
// clipped to [0,1].
func WilsonInterval(p float64) models.ConfidenceInterval {
	z := wilsonZ
	n := wilsonN

	denominator := 1 + z*z/n
	center := p + z*z/(2*n)
	margin := z * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))

	return models.ConfidenceInterval{
		Lower:           clamp01((center - margin) / denominator),
		Upper:           clamp01((center + margin) / denominator),
		ConfidenceLevel: 0.95,
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
