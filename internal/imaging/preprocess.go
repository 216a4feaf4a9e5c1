package imaging

import (
	"errors"
	"image"

	xdraw "golang.org/x/image/draw"
)

var errEmptyImage = errors.New("image has no pixels")

// AnalysisSize is the square edge length all images are resized to before
// feature extraction, for consistent metric scales across inputs.
const AnalysisSize = 512

// Preprocess resizes an image to the standard analysis resolution,
// normalizes it to an 8-bit RGBA buffer and standardizes its intensity
// range. The source image is never mutated; every pipeline stage works
// on derived arrays.
func Preprocess(img image.Image) (*image.RGBA, error) {
	if img == nil {
		return nil, errEmptyImage
	}
	bounds := img.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return nil, errEmptyImage
	}

	dst := image.NewRGBA(image.Rect(0, 0, AnalysisSize, AnalysisSize))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	standardize(dst)
	return dst, nil
}

// standardize rescales the color channels so each analysis input spans
// the full 8-bit range regardless of capture exposure, keeping metric
// and classifier inputs on a comparable scale. A flat image has no
// range to stretch and is left unchanged.
func standardize(img *image.RGBA) {
	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(img.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			v := img.Pix[i+c]
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if hi <= lo {
		return
	}
	scale := 255.0 / float64(hi-lo)
	for i := 0; i < len(img.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			img.Pix[i+c] = uint8(float64(img.Pix[i+c]-lo)*scale + 0.5)
		}
	}
}
