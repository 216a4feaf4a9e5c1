package classifier

import (
	"context"
	"image"

	"github.com/aura-health/retina-ai-core/internal/clinical"
	"github.com/aura-health/retina-ai-core/internal/imaging"
)

// FallbackClassifier is used when no model service is configured. It
// returns the conservative prior that favors the healthy class so the
// rest of the pipeline still produces a complete, clearly degraded
// result.
type FallbackClassifier struct {
	modelVersion string
}

func NewFallbackClassifier(modelVersion string) *FallbackClassifier {
	return &FallbackClassifier{modelVersion: modelVersion}
}

func (c *FallbackClassifier) Classify(ctx context.Context, img image.Image) ([]float64, error) {
	probs := make([]float64, len(clinical.FallbackProbabilities))
	copy(probs, clinical.FallbackProbabilities)
	return probs, nil
}

func (c *FallbackClassifier) Status(ctx context.Context) ModelStatus {
	return ModelStatus{
		Loaded:       false,
		ModelVersion: c.modelVersion,
		Backend:      "fallback",
		InputSize:    imaging.AnalysisSize,
		NumClasses:   len(clinical.Labels),
	}
}
