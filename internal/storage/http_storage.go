package storage

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/aura-health/retina-ai-core/internal/apperrors"
	"github.com/aura-health/retina-ai-core/pkg/models"
)

// ImageFetcher retrieves a retinal image for analysis.
type ImageFetcher interface {
	FetchImage(ctx context.Context, imageURL string) (image.Image, models.ImageMetadata, error)
}

// HTTPImageFetcher downloads images over HTTP with bounded retries and a
// hard size limit. Oversized payloads are rejected before decoding.
type HTTPImageFetcher struct {
	client   *http.Client
	maxBytes int64
}

func NewHTTPImageFetcher(timeout time.Duration, maxBytes int64) *HTTPImageFetcher {
	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 2,
		IdleConnTimeout:     30 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		MaxResponseHeaderBytes: 4096,
	}

	return &HTTPImageFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: maxBytes,
	}
}

func (h *HTTPImageFetcher) FetchImage(ctx context.Context, imageURL string) (image.Image, models.ImageMetadata, error) {
	var meta models.ImageMetadata

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, meta, apperrors.NewInputError("invalid image URL", err)
	}
	req.Header.Set("Accept", "image/jpeg, image/png, */*")
	req.Header.Set("User-Agent", "Retina-AI-Core/1.0")

	body, err := h.download(req)
	if err != nil {
		return nil, meta, err
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, meta, apperrors.NewInputError("unsupported or corrupt image data", err)
	}

	bounds := img.Bounds()
	meta = models.ImageMetadata{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Format:    format,
		SizeBytes: int64(len(body)),
	}
	return img, meta, nil
}

// download performs up to three attempts. Client errors (4xx) fail fast,
// server errors and transport failures back off linearly.
func (h *HTTPImageFetcher) download(req *http.Request) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, apperrors.NewTimeoutError("image download cancelled", req.Context().Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		resp, err := h.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
			resp.Body.Close()
			if resp.StatusCode >= 400 && resp.StatusCode < 500 {
				return nil, apperrors.NewInputError(
					fmt.Sprintf("image URL returned status %d", resp.StatusCode), nil)
			}
			lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
			continue
		}

		// Read one byte beyond the limit so oversized bodies are
		// distinguishable from exactly-at-limit ones.
		body, err := io.ReadAll(io.LimitReader(resp.Body, h.maxBytes+1))
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if int64(len(body)) > h.maxBytes {
			return nil, apperrors.NewInputError(
				fmt.Sprintf("image exceeds maximum size of %d bytes", h.maxBytes), nil)
		}
		return body, nil
	}

	return nil, apperrors.NewNetworkError("failed to fetch image after 3 attempts", lastErr)
}
