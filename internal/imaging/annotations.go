package imaging

import (
	"math/rand"

	"github.com/aura-health/retina-ai-core/pkg/models"
)

const maxPlannedRegions = 6

// PlanInput gathers everything region planning depends on. Identical
// inputs must always yield identical region lists.
type PlanInput struct {
	AbnormalityCount int
	HemorrhageScore  float64
	ImageWidth       int
	ImageHeight      int
	Seed             int64
}

// AnnotationPlanner decides how many approximate regions of interest to
// mark and where. Placement is seeded pseudo-random, a reproducible
// placeholder for true lesion localization; the region list is
// illustrative, not diagnostic.
type AnnotationPlanner struct{}

func NewAnnotationPlanner() *AnnotationPlanner {
	return &AnnotationPlanner{}
}

// PlanRegions emits up to six approximate regions. Region count grows with
// the abnormality count (capped at five) plus one extra when the
// hemorrhage score is significant.
func (ap *AnnotationPlanner) PlanRegions(in PlanInput) []models.AnnotatedRegion {
	if in.ImageWidth <= 0 || in.ImageHeight <= 0 {
		return nil
	}

	count := in.AbnormalityCount
	if count > 5 {
		count = 5
	}
	if count < 0 {
		count = 0
	}
	if in.HemorrhageScore >= 0.4 {
		count++
	}
	if count > maxPlannedRegions {
		count = maxPlannedRegions
	}
	if count == 0 {
		return nil
	}

	// The generator is local to the call so planning stays pure and the
	// randomization can be swapped for a deterministic double in tests.
	rng := rand.New(rand.NewSource(in.Seed))

	regions := make([]models.AnnotatedRegion, 0, count)
	for i := 0; i < count; i++ {
		w := in.ImageWidth/10 + rng.Intn(maxInt(in.ImageWidth/10, 1))
		h := in.ImageHeight/10 + rng.Intn(maxInt(in.ImageHeight/10, 1))
		x := rng.Intn(maxInt(in.ImageWidth-w, 1))
		y := rng.Intn(maxInt(in.ImageHeight-h, 1))

		jitter := (rng.Float64() - 0.5) * 0.1 // [-0.05, 0.05]
		confidence := clampRange(0.5+in.HemorrhageScore/2+jitter, 0.4, 0.9)

		regions = append(regions, models.AnnotatedRegion{
			X:          x,
			Y:          y,
			Width:      w,
			Height:     h,
			Type:       "abnormality",
			Confidence: confidence,
		})
	}
	return regions
}

// FallbackRegion returns the single centered region emitted when the
// overall finding is positive but planning produced nothing. It spans
// roughly a quarter of the image and carries the combined risk score as
// its confidence.
func (ap *AnnotationPlanner) FallbackRegion(imageWidth, imageHeight int, combinedRiskScore float64) models.AnnotatedRegion {
	w := imageWidth / 4
	h := imageHeight / 4
	return models.AnnotatedRegion{
		X:          (imageWidth - w) / 2,
		Y:          (imageHeight - h) / 2,
		Width:      w,
		Height:     h,
		Type:       "abnormality",
		Confidence: clip01(combinedRiskScore),
	}
}

func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
