package imaging

import (
	"image"

	"gonum.org/v1/gonum/stat"

	"github.com/aura-health/retina-ai-core/internal/logger"
)

// Empirical ceilings used to normalize each raw quality metric before the
// weighted combination. Values follow clinical retinal analysis practice.
const (
	sharpnessCeiling    = 500.0
	contrastCeiling     = 50.0
	brightnessMidpoint  = 128.0
	dynamicRangeCeiling = 255.0
)

// Quality score weights: sharpness and contrast dominate.
const (
	sharpnessWeight    = 0.3
	contrastWeight     = 0.3
	brightnessWeight   = 0.2
	dynamicRangeWeight = 0.2
)

// QualityMetrics holds the four raw measurements the quality score is
// built from.
type QualityMetrics struct {
	Sharpness    float64 // variance of the discrete Laplacian
	Contrast     float64 // population std deviation of luminance
	Brightness   float64 // mean luminance
	DynamicRange float64 // max - min luminance
}

// QualityAssessor scores retinal image quality on a [0,1] scale.
type QualityAssessor struct{}

func NewQualityAssessor() *QualityAssessor {
	return &QualityAssessor{}
}

// ComputeMetrics measures sharpness, contrast, brightness and dynamic
// range on the luminance plane of img.
func (qa *QualityAssessor) ComputeMetrics(img image.Image) QualityMetrics {
	gray := Luminance(img)
	return qa.ComputeMetricsGray(gray)
}

// ComputeMetricsGray measures the raw quality metrics on an already
// grayscale image.
func (qa *QualityAssessor) ComputeMetricsGray(gray *image.Gray) QualityMetrics {
	stats := ComputeLuminanceStats(gray)
	return QualityMetrics{
		Sharpness:    LaplacianVariance(gray),
		Contrast:     stats.Std,
		Brightness:   stats.Mean,
		DynamicRange: float64(stats.Max) - float64(stats.Min),
	}
}

// Score collapses the raw metrics into a single quality score. Each
// metric is normalized against its empirical ceiling, clipped to [0,1],
// then combined with fixed weights; the result is clipped again.
func (qa *QualityAssessor) Score(m QualityMetrics) float64 {
	score := sharpnessWeight*clip01(m.Sharpness/sharpnessCeiling) +
		contrastWeight*clip01(m.Contrast/contrastCeiling) +
		brightnessWeight*clip01(abs(m.Brightness-brightnessMidpoint)/brightnessMidpoint) +
		dynamicRangeWeight*clip01(m.DynamicRange/dynamicRangeCeiling)
	return clip01(score)
}

// Assess computes the quality score for an image. A scoring function must
// never abort the caller: degenerate input scores 0.0.
func (qa *QualityAssessor) Assess(img image.Image) float64 {
	if img == nil {
		return 0.0
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		logger.MetricDegraded("quality_score", errEmptyImage)
		return 0.0
	}
	return qa.Score(qa.ComputeMetrics(img))
}

// LaplacianVariance computes the variance of the discrete Laplacian
// response over the image interior, the standard focus measure for blur
// detection.
func LaplacianVariance(gray *image.Gray) float64 {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return 0
	}

	data := make([]float64, 0, (width-2)*(height-2))

	// Laplacian kernel: [0, 1, 0; 1, -4, 1; 0, 1, 0]
	for y := bounds.Min.Y + 1; y < bounds.Max.Y-1; y++ {
		for x := bounds.Min.X + 1; x < bounds.Max.X-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			top := float64(gray.GrayAt(x, y-1).Y)
			bottom := float64(gray.GrayAt(x, y+1).Y)
			left := float64(gray.GrayAt(x-1, y).Y)
			right := float64(gray.GrayAt(x+1, y).Y)
			data = append(data, -4*center+top+bottom+left+right)
		}
	}

	if len(data) == 0 {
		return 0
	}
	return stat.PopVariance(data, nil)
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
