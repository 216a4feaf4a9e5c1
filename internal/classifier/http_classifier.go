package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"time"

	"github.com/aura-health/retina-ai-core/internal/apperrors"
	"github.com/aura-health/retina-ai-core/internal/clinical"
	"github.com/aura-health/retina-ai-core/internal/imaging"
)

type predictRequest struct {
	ImageBase64 string `json:"image_base64"`
}

type predictResponse struct {
	Probabilities []float64 `json:"probabilities"`
	ModelVersion  string    `json:"model_version"`
}

// HTTPClassifier calls a remote model service over HTTP. The service
// receives the preprocessed image as base64 PNG and returns the class
// probability vector.
type HTTPClassifier struct {
	baseURL      string
	modelVersion string
	client       *http.Client
}

func NewHTTPClassifier(baseURL, modelVersion string, timeout time.Duration) *HTTPClassifier {
	return &HTTPClassifier{
		baseURL:      baseURL,
		modelVersion: modelVersion,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *HTTPClassifier) Classify(ctx context.Context, img image.Image) ([]float64, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, apperrors.NewProcessingError("failed to encode image for classification", err)
	}

	payload, err := json.Marshal(predictRequest{
		ImageBase64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal classification request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build classification request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, apperrors.NewTimeoutError("classification timed out", err)
		}
		return nil, apperrors.NewNetworkError("model service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewNetworkError(
			fmt.Sprintf("model service returned status %d", resp.StatusCode), nil)
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apperrors.NewNetworkError("invalid model service response", err)
	}
	if len(out.Probabilities) != len(clinical.Labels) {
		return nil, apperrors.NewProcessingError(
			fmt.Sprintf("model returned %d probabilities, expected %d",
				len(out.Probabilities), len(clinical.Labels)), nil)
	}
	return out.Probabilities, nil
}

func (c *HTTPClassifier) Status(ctx context.Context) ModelStatus {
	status := ModelStatus{
		ModelVersion: c.modelVersion,
		Backend:      "http",
		InputSize:    imaging.AnalysisSize,
		NumClasses:   len(clinical.Labels),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return status
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return status
	}
	resp.Body.Close()
	status.Loaded = resp.StatusCode == http.StatusOK
	return status
}
