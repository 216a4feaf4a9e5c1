package repository

import (
	"context"
	"image"

	"github.com/aura-health/retina-ai-core/pkg/models"
)

// ImageRepository is the data-access boundary for source retinal images.
type ImageRepository interface {
	// FetchImage validates the URL, downloads the image and returns it
	// with its acquisition metadata.
	FetchImage(ctx context.Context, imageURL string) (image.Image, models.ImageMetadata, error)
}

// AnalysisRepository stores completed analysis results for later
// retrieval by ID or by source image URL.
type AnalysisRepository interface {
	SaveResult(ctx context.Context, result *models.AnalysisResult) error
	GetResult(ctx context.Context, analysisID string) (*models.AnalysisResult, error)
	History(ctx context.Context, imageURL string) ([]*models.AnalysisResult, error)
}
