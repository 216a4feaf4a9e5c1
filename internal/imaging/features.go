package imaging

import (
	"errors"
	"image"

	"gonum.org/v1/gonum/stat"

	"github.com/aura-health/retina-ai-core/internal/logger"
	"github.com/aura-health/retina-ai-core/pkg/models"
)

// Hysteresis thresholds for the edge map used as the vessel-coverage
// proxy. Gradient magnitude is the L1 Sobel response.
const (
	edgeLowThreshold  = 50
	edgeHighThreshold = 150
)

// Area band (in pixels) for blobs counted as potential focal lesions.
const (
	minBlobArea = 10
	maxBlobArea = 5000
)

var errImageTooSmall = errors.New("image smaller than analysis kernel")

// RawFeatures are the unnormalized measurements taken from a preprocessed
// image. They are proxies for vascular structure, not segmentation output.
type RawFeatures struct {
	VesselDensity               float64 `json:"vessel_density"`
	PotentialAbnormalitiesCount int     `json:"potential_abnormalities_count"`
	TextureVariance             float64 `json:"texture_variance"`
}

// FeatureExtractor derives vascular-structure proxies from a preprocessed
// retinal image. A failed sub-computation degrades that one feature to its
// neutral default; extraction never aborts the analysis.
type FeatureExtractor struct{}

func NewFeatureExtractor() *FeatureExtractor {
	return &FeatureExtractor{}
}

// Extract measures all raw features on the luminance plane of img.
func (fe *FeatureExtractor) Extract(img image.Image) RawFeatures {
	var features RawFeatures
	if img == nil {
		logger.MetricDegraded("raw_features", errEmptyImage)
		return features
	}
	gray := Luminance(img)

	density, err := fe.vesselDensity(gray)
	if err != nil {
		logger.MetricDegraded("vessel_density", err)
		density = 0.0
	}
	features.VesselDensity = density

	blobs, err := fe.countBlobs(gray)
	if err != nil {
		logger.MetricDegraded("potential_abnormalities_count", err)
		blobs = 0
	}
	features.PotentialAbnormalitiesCount = blobs

	texture, err := fe.textureVariance(gray)
	if err != nil {
		logger.MetricDegraded("texture_variance", err)
		texture = 0.0
	}
	features.TextureVariance = texture

	return features
}

// DeriveVascularMetrics maps raw features into the normalized vascular
// metrics vector. Inputs are first min-max normalized against empirical
// ceilings; every output is clamped to its documented range.
func (fe *FeatureExtractor) DeriveVascularMetrics(raw RawFeatures) models.VascularMetrics {
	vdNorm := clip01(raw.VesselDensity * 5.0) // ~0-0.2 maps onto 0-1
	tvNorm := clip01(raw.TextureVariance / 500.0)

	count := raw.PotentialAbnormalitiesCount
	if count < 0 {
		count = 0
	}

	return models.VascularMetrics{
		TortuosityIndex:     clip01(0.6*tvNorm + 0.4*vdNorm),
		WidthVariationIndex: clip01(0.7*tvNorm + 0.3*(1.0-vdNorm)),
		MicroaneurysmCount:  count,
		HemorrhageScore:     clip01(0.5*(float64(count)/50.0) + 0.5*vdNorm),
	}
}

// vesselDensity is the fraction of pixels marked by a two-threshold
// hysteresis edge detector, a coarse proxy for vascular coverage.
func (fe *FeatureExtractor) vesselDensity(gray *image.Gray) (float64, error) {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return 0, errImageTooSmall
	}

	// 0 = none, 1 = weak (between thresholds), 2 = strong
	grade := make([]uint8, width*height)

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			gx := sobelX(gray, bounds.Min.X+x, bounds.Min.Y+y)
			gy := sobelY(gray, bounds.Min.X+x, bounds.Min.Y+y)
			mag := absInt(gx) + absInt(gy)
			switch {
			case mag >= edgeHighThreshold:
				grade[y*width+x] = 2
			case mag >= edgeLowThreshold:
				grade[y*width+x] = 1
			}
		}
	}

	// Hysteresis: weak edges survive only when connected to a strong one.
	marked := make([]bool, width*height)
	stack := make([]int, 0, width*height/8)
	for i, g := range grade {
		if g == 2 && !marked[i] {
			marked[i] = true
			stack = append(stack, i)
			for len(stack) > 0 {
				idx := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				x, y := idx%width, idx/width
				for _, d := range [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
					nx, ny := x+d[0], y+d[1]
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					nIdx := ny*width + nx
					if !marked[nIdx] && grade[nIdx] >= 1 {
						marked[nIdx] = true
						stack = append(stack, nIdx)
					}
				}
			}
		}
	}

	edgeCount := 0
	for _, m := range marked {
		if m {
			edgeCount++
		}
	}
	return float64(edgeCount) / float64(width*height), nil
}

// countBlobs counts small connected dark regions within the lesion area
// band. Circularity, convexity and inertia filtering are intentionally
// absent; this is a coarse focal-lesion proxy.
func (fe *FeatureExtractor) countBlobs(gray *image.Gray) (int, error) {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return 0, errEmptyImage
	}

	stats := ComputeLuminanceStats(gray)
	threshold := stats.Mean - stats.Std
	if threshold < 0 {
		threshold = 0
	}

	dark := make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if float64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) < threshold {
				dark[y*width+x] = true
			}
		}
	}

	visited := make([]bool, width*height)
	stack := make([]int, 0, 256)
	count := 0

	for i := range dark {
		if !dark[i] || visited[i] {
			continue
		}
		area := 0
		visited[i] = true
		stack = append(stack, i)
		for len(stack) > 0 {
			idx := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			area++
			x, y := idx%width, idx/width
			for _, d := range [4][2]int{{0, -1}, {0, 1}, {-1, 0}, {1, 0}} {
				nx, ny := x+d[0], y+d[1]
				if nx < 0 || ny < 0 || nx >= width || ny >= height {
					continue
				}
				nIdx := ny*width + nx
				if dark[nIdx] && !visited[nIdx] {
					visited[nIdx] = true
					stack = append(stack, nIdx)
				}
			}
		}
		if area >= minBlobArea && area <= maxBlobArea {
			count++
		}
	}
	return count, nil
}

// textureVariance is the variance of the 5x5-local-mean-subtracted
// luminance over the whole image, a proxy for structural complexity.
func (fe *FeatureExtractor) textureVariance(gray *image.Gray) (float64, error) {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 5 || height < 5 {
		return 0, errImageTooSmall
	}

	residuals := make([]float64, 0, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var sum float64
			var n int
			for dy := -2; dy <= 2; dy++ {
				for dx := -2; dx <= 2; dx++ {
					nx, ny := x+dx, y+dy
					if nx < 0 || ny < 0 || nx >= width || ny >= height {
						continue
					}
					sum += float64(gray.GrayAt(bounds.Min.X+nx, bounds.Min.Y+ny).Y)
					n++
				}
			}
			localMean := sum / float64(n)
			residuals = append(residuals, float64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)-localMean)
		}
	}

	return stat.PopVariance(residuals, nil), nil
}

func sobelX(gray *image.Gray, x, y int) int {
	return -1*int(gray.GrayAt(x-1, y-1).Y) + 1*int(gray.GrayAt(x+1, y-1).Y) +
		-2*int(gray.GrayAt(x-1, y).Y) + 2*int(gray.GrayAt(x+1, y).Y) +
		-1*int(gray.GrayAt(x-1, y+1).Y) + 1*int(gray.GrayAt(x+1, y+1).Y)
}

func sobelY(gray *image.Gray, x, y int) int {
	return -1*int(gray.GrayAt(x-1, y-1).Y) - 2*int(gray.GrayAt(x, y-1).Y) - 1*int(gray.GrayAt(x+1, y-1).Y) +
		1*int(gray.GrayAt(x-1, y+1).Y) + 2*int(gray.GrayAt(x, y+1).Y) + 1*int(gray.GrayAt(x+1, y+1).Y)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
