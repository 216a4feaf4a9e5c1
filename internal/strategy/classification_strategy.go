package strategy

import (
	"context"
	"image"

	"github.com/aura-health/retina-ai-core/internal/classifier"
	"github.com/aura-health/retina-ai-core/internal/logger"
)

// ClassificationStrategy decides how class probabilities are obtained
// for a preprocessed image. The degraded flag reports whether the
// returned vector came from the fallback prior instead of a model.
type ClassificationStrategy interface {
	Probabilities(ctx context.Context, img image.Image) (probs []float64, degraded bool)
	GetStrategyName() string
}

// ModelBackedStrategy asks the configured classifier first and falls
// back to the conservative prior when the model cannot answer. Analysis
// never fails because the model is down.
type ModelBackedStrategy struct {
	primary  classifier.Classifier
	fallback classifier.Classifier
}

func NewModelBackedStrategy(primary, fallback classifier.Classifier) *ModelBackedStrategy {
	return &ModelBackedStrategy{primary: primary, fallback: fallback}
}

func (s *ModelBackedStrategy) Probabilities(ctx context.Context, img image.Image) ([]float64, bool) {
	probs, err := s.primary.Classify(ctx, img)
	if err == nil {
		return probs, false
	}

	logger.WithError(err).Warn("classification failed, using fallback probabilities")
	probs, _ = s.fallback.Classify(ctx, img)
	return probs, true
}

func (s *ModelBackedStrategy) GetStrategyName() string {
	return "model_backed"
}

// FallbackOnlyStrategy is used when no model service is configured.
// Every result is degraded by definition.
type FallbackOnlyStrategy struct {
	fallback classifier.Classifier
}

func NewFallbackOnlyStrategy(fallback classifier.Classifier) *FallbackOnlyStrategy {
	return &FallbackOnlyStrategy{fallback: fallback}
}

func (s *FallbackOnlyStrategy) Probabilities(ctx context.Context, img image.Image) ([]float64, bool) {
	probs, _ := s.fallback.Classify(ctx, img)
	return probs, true
}

func (s *FallbackOnlyStrategy) GetStrategyName() string {
	return "fallback_only"
}
