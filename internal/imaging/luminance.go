package imaging

import (
	"image"
	"image/color"
	"math"
	"runtime"
	"sync"
)

// Luminance converts an image to 8-bit grayscale using the standard
// RGB->gray luma weights.
func Luminance(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(bounds)

	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return gray
	}

	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		startY := bounds.Min.Y + i*rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > bounds.Max.Y {
			endY = bounds.Max.Y
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			for y := startY; y < endY; y++ {
				for x := bounds.Min.X; x < bounds.Max.X; x++ {
					r, g, b, _ := img.At(x, y).RGBA()
					// 16-bit channels scaled down to 8-bit before weighting
					lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
					v := lum + 0.5
					if v > 255 {
						v = 255
					}
					gray.SetGray(x, y, color.Gray{Y: uint8(v)})
				}
			}
		}(startY, endY)
	}
	wg.Wait()

	return gray
}

// LuminanceStats summarizes the luminance distribution in one pass.
type LuminanceStats struct {
	Mean float64
	Std  float64 // population standard deviation
	Min  uint8
	Max  uint8
}

// ComputeLuminanceStats computes mean, population std deviation and the
// min/max over a grayscale image using the same horizontal-strip
// parallelism as the other pixel loops.
func ComputeLuminanceStats(gray *image.Gray) LuminanceStats {
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return LuminanceStats{}
	}

	numWorkers := runtime.NumCPU()
	if height < numWorkers {
		numWorkers = height
	}
	rowsPerWorker := (height + numWorkers - 1) / numWorkers

	type stripResult struct {
		sum, sumSq float64
		min, max   uint8
		count      int
	}

	results := make(chan stripResult, numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		startY := bounds.Min.Y + i*rowsPerWorker
		endY := startY + rowsPerWorker
		if endY > bounds.Max.Y {
			endY = bounds.Max.Y
		}
		wg.Add(1)
		go func(startY, endY int) {
			defer wg.Done()
			res := stripResult{min: 255}
			for y := startY; y < endY; y++ {
				for x := bounds.Min.X; x < bounds.Max.X; x++ {
					v := gray.GrayAt(x, y).Y
					f := float64(v)
					res.sum += f
					res.sumSq += f * f
					if v < res.min {
						res.min = v
					}
					if v > res.max {
						res.max = v
					}
					res.count++
				}
			}
			results <- res
		}(startY, endY)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	total := stripResult{min: 255}
	for res := range results {
		total.sum += res.sum
		total.sumSq += res.sumSq
		total.count += res.count
		if res.min < total.min {
			total.min = res.min
		}
		if res.max > total.max {
			total.max = res.max
		}
	}

	if total.count == 0 {
		return LuminanceStats{}
	}

	n := float64(total.count)
	mean := total.sum / n
	variance := total.sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}

	return LuminanceStats{
		Mean: mean,
		Std:  math.Sqrt(variance),
		Min:  total.min,
		Max:  total.max,
	}
}
