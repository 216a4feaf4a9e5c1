package classifier

import (
	"context"
	"image"
)

// ModelStatus describes the classification backend for the status endpoint.
type ModelStatus struct {
	Loaded       bool   `json:"loaded"`
	ModelVersion string `json:"model_version"`
	Backend      string `json:"backend"`
	InputSize    int    `json:"input_size"`
	NumClasses   int    `json:"num_classes"`
}

// Classifier produces per-class probabilities for a preprocessed retinal
// image. The probability vector follows the fixed class order CNV, DME,
// DRUSEN, NORMAL.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) ([]float64, error)
	Status(ctx context.Context) ModelStatus
}
