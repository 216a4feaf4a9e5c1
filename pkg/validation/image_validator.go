package validation

import (
	"fmt"
	"image"

	"github.com/aura-health/retina-ai-core/internal/imaging"
	"github.com/aura-health/retina-ai-core/pkg/models"
)

// DimensionLimits bound acceptable retinal image sizes. Images below the
// minimum are rejected; images above the maximum only draw a warning.
type DimensionLimits struct {
	MinWidth  int
	MinHeight int
	MaxWidth  int
	MaxHeight int
}

// QualityThresholds define the advisory bands used while building the
// characteristics report.
type QualityThresholds struct {
	MinQualityScore   float64
	DarkBrightness    float64
	BrightBrightness  float64
	LowContrast       float64
	HighContrast      float64
	SharpLaplacianVar float64
}

func DefaultDimensionLimits() DimensionLimits {
	return DimensionLimits{
		MinWidth:  256,
		MinHeight: 256,
		MaxWidth:  4096,
		MaxHeight: 4096,
	}
}

func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		MinQualityScore:   0.5,
		DarkBrightness:    50.0,
		BrightBrightness:  200.0,
		LowContrast:       20.0,
		HighContrast:      80.0,
		SharpLaplacianVar: 100.0,
	}
}

// ImageValidator gates images on dimensions and quality score and builds
// the structured characteristics report. Only the size floor and the
// quality score decide validity; everything else is advisory.
type ImageValidator struct {
	limits     DimensionLimits
	thresholds QualityThresholds
	assessor   *imaging.QualityAssessor
}

func NewImageValidator() *ImageValidator {
	return &ImageValidator{
		limits:     DefaultDimensionLimits(),
		thresholds: DefaultQualityThresholds(),
		assessor:   imaging.NewQualityAssessor(),
	}
}

func NewImageValidatorWithLimits(limits DimensionLimits, thresholds QualityThresholds) *ImageValidator {
	return &ImageValidator{
		limits:     limits,
		thresholds: thresholds,
		assessor:   imaging.NewQualityAssessor(),
	}
}

// Validate applies every rule in order, appending issues without
// short-circuiting, and returns the full quality report.
func (iv *ImageValidator) Validate(img image.Image, width, height int) models.QualityReport {
	report := models.QualityReport{
		IsValid:      true,
		Issues:       []string{},
		QualityScore: 1.0,
	}

	if width < iv.limits.MinWidth || height < iv.limits.MinHeight {
		report.IsValid = false
		report.Issues = append(report.Issues, "Image too small")
	}

	if width > iv.limits.MaxWidth || height > iv.limits.MaxHeight {
		report.Issues = append(report.Issues, "Image very large, may take longer to process")
	}

	gray := imaging.Luminance(img)
	stats := imaging.ComputeLuminanceStats(gray)
	laplacianVar := imaging.LaplacianVariance(gray)

	score := iv.assessor.Score(imaging.QualityMetrics{
		Sharpness:    laplacianVar,
		Contrast:     stats.Std,
		Brightness:   stats.Mean,
		DynamicRange: float64(stats.Max) - float64(stats.Min),
	})
	report.QualityScore = score

	if score < iv.thresholds.MinQualityScore {
		report.IsValid = false
		report.Issues = append(report.Issues,
			fmt.Sprintf("Image quality insufficient for analysis (score: %.2f)", score))
	}

	report.Characteristics.Brightness = models.BrightnessCharacteristics{
		Mean:  stats.Mean,
		Std:   stats.Std,
		Level: "normal",
	}
	if stats.Mean < iv.thresholds.DarkBrightness {
		report.Characteristics.Brightness.Level = "dark"
		report.Issues = append(report.Issues, "Image is too dark")
	} else if stats.Mean > iv.thresholds.BrightBrightness {
		report.Characteristics.Brightness.Level = "bright"
		report.Issues = append(report.Issues, "Image is too bright")
	}

	report.Characteristics.Contrast = models.ContrastCharacteristics{
		Value: stats.Std,
		Level: "normal",
	}
	if stats.Std < iv.thresholds.LowContrast {
		report.Characteristics.Contrast.Level = "low"
		report.Issues = append(report.Issues, "Low contrast detected")
	} else if stats.Std > iv.thresholds.HighContrast {
		report.Characteristics.Contrast.Level = "high"
	}

	sharpLevel := "sharp"
	if laplacianVar <= iv.thresholds.SharpLaplacianVar {
		sharpLevel = "blurry"
	}
	report.Characteristics.Sharpness = models.SharpnessCharacteristics{
		LaplacianVariance: laplacianVar,
		Level:             sharpLevel,
	}
	if laplacianVar < iv.thresholds.SharpLaplacianVar {
		report.Issues = append(report.Issues, "Image may be blurry")
	}

	if dist, ok := channelMeans(img); ok {
		report.Characteristics.ColorDistribution = &dist
	}

	// Re-clamp before returning; the score invariant holds regardless of
	// which rules fired.
	if report.QualityScore < 0 {
		report.QualityScore = 0
	}
	if report.QualityScore > 1 {
		report.QualityScore = 1
	}

	return report
}

// channelMeans reports per-channel means for multichannel images. A
// grayscale source yields no color distribution block.
func channelMeans(img image.Image) (models.ColorDistribution, bool) {
	if _, isGray := img.(*image.Gray); isGray {
		return models.ColorDistribution{}, false
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return models.ColorDistribution{}, false
	}

	var r, g, b float64
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			rv, gv, bv, _ := img.At(x, y).RGBA()
			r += float64(rv >> 8)
			g += float64(gv >> 8)
			b += float64(bv >> 8)
		}
	}
	n := float64(width * height)
	return models.ColorDistribution{R: r / n, G: g / n, B: b / n}, true
}
