package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"github.com/aura-health/retina-ai-core/pkg/models"
)

// FallbackHeatmap builds a crude intensity heatmap from the luminance
// plane when the classifier supplies no saliency map. Values are
// normalized so the brightest structure maps to 1.0.
func FallbackHeatmap(gray *image.Gray) models.Heatmap {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	hm := models.Heatmap{
		Width:  width,
		Height: height,
		Values: make([]float32, width*height),
	}
	if width == 0 || height == 0 {
		return hm
	}

	var max uint8
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			v := gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y
			if v > max {
				max = v
			}
		}
	}
	if max == 0 {
		return hm
	}

	scale := float32(1.0) / float32(max)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			hm.Values[y*width+x] = float32(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) * scale
		}
	}
	return hm
}

// EncodeHeatmapPNG renders a heatmap to a grayscale PNG for the artifact
// store. Writing the bytes anywhere durable is the caller's concern.
func EncodeHeatmapPNG(hm models.Heatmap) ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, hm.Width, hm.Height))
	for y := 0; y < hm.Height; y++ {
		for x := 0; x < hm.Width; x++ {
			v := hm.Values[y*hm.Width+x]
			if v < 0 {
				v = 0
			}
			if v > 1 {
				v = 1
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
