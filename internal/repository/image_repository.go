package repository

import (
	"context"
	"image"

	"github.com/aura-health/retina-ai-core/internal/storage"
	"github.com/aura-health/retina-ai-core/pkg/models"
	"github.com/aura-health/retina-ai-core/pkg/validation"
)

// HTTPImageRepository fetches images over HTTP after URL validation.
type HTTPImageRepository struct {
	fetcher   storage.ImageFetcher
	validator *validation.URLValidator
}

func NewHTTPImageRepository(fetcher storage.ImageFetcher, validator *validation.URLValidator) ImageRepository {
	return &HTTPImageRepository{
		fetcher:   fetcher,
		validator: validator,
	}
}

func (r *HTTPImageRepository) FetchImage(ctx context.Context, imageURL string) (image.Image, models.ImageMetadata, error) {
	if err := r.validator.ValidateImageURL(imageURL); err != nil {
		return nil, models.ImageMetadata{}, err
	}
	return r.fetcher.FetchImage(ctx, imageURL)
}
