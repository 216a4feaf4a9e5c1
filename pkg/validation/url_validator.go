package validation

import (
	"net/url"
	"strings"

	"github.com/aura-health/retina-ai-core/internal/apperrors"
)

// URLValidator gates which sources the service is willing to fetch
// images from. Schemes are fixed to http and https; the host allow-list
// comes from configuration and is open when empty. Host matching
// ignores case and port.
type URLValidator struct {
	allowedHosts map[string]struct{}
}

func NewURLValidator(allowedHosts ...string) *URLValidator {
	hosts := make(map[string]struct{}, len(allowedHosts))
	for _, h := range allowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			hosts[h] = struct{}{}
		}
	}
	return &URLValidator{allowedHosts: hosts}
}

// ValidateImageURL rejects URLs the image fetcher must not follow.
func (v *URLValidator) ValidateImageURL(imageURL string) error {
	trimmed := strings.TrimSpace(imageURL)
	if trimmed == "" {
		return apperrors.NewInputError("image URL cannot be empty", nil)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return apperrors.NewInputError("invalid image URL format", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return apperrors.NewInputError("image URL scheme not allowed", nil)
	}
	if parsed.Host == "" {
		return apperrors.NewInputError("image URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 {
		if _, ok := v.allowedHosts[strings.ToLower(parsed.Hostname())]; !ok {
			return apperrors.NewInputError("image URL host not allowed", nil)
		}
	}
	return nil
}
