package imaging

import (
	"image"
	"testing"
)

func TestPreprocess_ResizesToAnalysisSize(t *testing.T) {
	for _, dims := range [][2]int{{256, 256}, {1024, 768}, {512, 512}} {
		src := image.NewRGBA(image.Rect(0, 0, dims[0], dims[1]))
		dst, err := Preprocess(src)
		if err != nil {
			t.Fatalf("Preprocess(%dx%d): %v", dims[0], dims[1], err)
		}
		if dst.Bounds().Dx() != AnalysisSize || dst.Bounds().Dy() != AnalysisSize {
			t.Errorf("Preprocess(%dx%d) produced %v, want %dx%d square",
				dims[0], dims[1], dst.Bounds(), AnalysisSize, AnalysisSize)
		}
	}
}

func TestPreprocess_StandardizesIntensityRange(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, AnalysisSize, AnalysisSize))
	for i := 0; i < len(src.Pix); i += 4 {
		v := uint8(60 + (i/4)%40) // low-contrast capture, values in [60,99]
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = v, v, v, 255
	}

	dst, err := Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	lo, hi := uint8(255), uint8(0)
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] < lo {
			lo = dst.Pix[i]
		}
		if dst.Pix[i] > hi {
			hi = dst.Pix[i]
		}
	}
	if lo != 0 || hi != 255 {
		t.Errorf("intensity range = [%d,%d], want the full [0,255] after standardization", lo, hi)
	}
}

func TestPreprocess_FlatImageStaysFlat(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, AnalysisSize, AnalysisSize))
	for i := 0; i < len(src.Pix); i += 4 {
		src.Pix[i], src.Pix[i+1], src.Pix[i+2], src.Pix[i+3] = 120, 120, 120, 255
	}

	dst, err := Preprocess(src)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	for i := 0; i < len(dst.Pix); i += 4 {
		if dst.Pix[i] != 120 {
			t.Fatalf("pixel %d = %d, want 120 unchanged for a flat image", i/4, dst.Pix[i])
		}
	}
}

func TestPreprocess_RejectsDegenerateInput(t *testing.T) {
	if _, err := Preprocess(nil); err == nil {
		t.Error("expected error for nil image")
	}
	if _, err := Preprocess(image.NewRGBA(image.Rect(0, 0, 0, 0))); err == nil {
		t.Error("expected error for empty image")
	}
}

func TestFallbackHeatmap_Normalization(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 4, 4))
	gray.Pix[0] = 50
	gray.Pix[5] = 200

	hm := FallbackHeatmap(gray)
	if hm.Width != 4 || hm.Height != 4 {
		t.Fatalf("heatmap dims = %dx%d, want 4x4", hm.Width, hm.Height)
	}
	if hm.Values[5] != 1.0 {
		t.Errorf("brightest pixel = %v, want 1.0", hm.Values[5])
	}
	if hm.Values[0] != 50.0/200.0 {
		t.Errorf("value = %v, want 0.25", hm.Values[0])
	}
	if hm.Values[1] != 0 {
		t.Errorf("dark pixel = %v, want 0", hm.Values[1])
	}
}

func TestFallbackHeatmap_AllBlack(t *testing.T) {
	hm := FallbackHeatmap(image.NewGray(image.Rect(0, 0, 3, 3)))
	for i, v := range hm.Values {
		if v != 0 {
			t.Fatalf("value %d = %v, want 0 for an all-black image", i, v)
		}
	}
}

func TestEncodeHeatmapPNG(t *testing.T) {
	hm := FallbackHeatmap(uniformGray(8, 8, 128))
	data, err := EncodeHeatmapPNG(hm)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty PNG bytes")
	}
	// PNG signature.
	if data[0] != 0x89 || data[1] != 'P' || data[2] != 'N' || data[3] != 'G' {
		t.Error("output does not start with a PNG signature")
	}
}
