package service

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"strings"
	"testing"

	"github.com/aura-health/retina-ai-core/internal/cache"
	"github.com/aura-health/retina-ai-core/internal/classifier"
	"github.com/aura-health/retina-ai-core/internal/clinical"
	"github.com/aura-health/retina-ai-core/internal/imaging"
	"github.com/aura-health/retina-ai-core/internal/repository"
	"github.com/aura-health/retina-ai-core/pkg/models"
)

type stubImageRepo struct {
	img image.Image
	err error
}

func (s *stubImageRepo) FetchImage(ctx context.Context, imageURL string) (image.Image, models.ImageMetadata, error) {
	if s.err != nil {
		return nil, models.ImageMetadata{}, s.err
	}
	bounds := s.img.Bounds()
	return s.img, models.ImageMetadata{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: "png",
	}, nil
}

type stubValidator struct {
	report models.QualityReport
}

func (s *stubValidator) Validate(img image.Image, width, height int) models.QualityReport {
	return s.report
}

type stubStrategy struct {
	probs    []float64
	degraded bool
}

func (s *stubStrategy) Probabilities(ctx context.Context, img image.Image) ([]float64, bool) {
	return s.probs, s.degraded
}

func (s *stubStrategy) GetStrategyName() string { return "stub" }

type stubArtifacts struct {
	uploads int
	err     error
}

func (s *stubArtifacts) PutArtifact(ctx context.Context, name, contentType string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.uploads++
	return "https://artifacts.example.com/" + name, nil
}

func testImage(size int) image.Image {
	rng := rand.New(rand.NewSource(3))
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			v := uint8(rng.Intn(256))
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func validReport() models.QualityReport {
	return models.QualityReport{IsValid: true, Issues: []string{}, QualityScore: 0.8}
}

func newTestService(t *testing.T, opts Options) (AnalysisService, func()) {
	t.Helper()

	pool := imaging.NewWorkerPool(2)
	pool.Start()

	if opts.ImageRepo == nil {
		opts.ImageRepo = &stubImageRepo{img: testImage(512)}
	}
	if opts.AnalysisRepo == nil {
		opts.AnalysisRepo = repository.NewMemoryAnalysisRepository(10)
	}
	if opts.Validator == nil {
		opts.Validator = &stubValidator{report: validReport()}
	}
	if opts.Extractor == nil {
		opts.Extractor = imaging.NewFeatureExtractor()
	}
	if opts.Strategy == nil {
		opts.Strategy = &stubStrategy{probs: []float64{0.45, 0.2, 0.05, 0.3}}
	}
	if opts.Model == nil {
		opts.Model = classifier.NewFallbackClassifier("v-test")
	}
	if opts.Artifacts == nil {
		opts.Artifacts = &stubArtifacts{}
	}
	if opts.ResultCache == nil {
		opts.ResultCache = cache.NoopCache{}
	}
	opts.Pool = pool
	if opts.ModelVersion == "" {
		opts.ModelVersion = "v-test"
	}
	if opts.Seed == 0 {
		opts.Seed = 42
	}

	return NewAnalysisService(opts), pool.Close
}

func TestAnalyze_FullPipeline(t *testing.T) {
	artifacts := &stubArtifacts{}
	svc, done := newTestService(t, Options{Artifacts: artifacts})
	defer done()

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{ImageURL: "https://example.com/scan.png"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if result.AnalysisID == "" {
		t.Error("expected a generated analysis ID")
	}
	if result.ImageType != "oct" {
		t.Errorf("image type = %q, want the oct default", result.ImageType)
	}
	if result.PredictedClass != clinical.LabelCNV {
		t.Errorf("predicted class = %q, want CNV at 0.45", result.PredictedClass)
	}
	if result.Confidence != 0.45 {
		t.Errorf("confidence = %v, want 0.45", result.Confidence)
	}
	if len(result.Conditions) != 4 {
		t.Errorf("got %d conditions, want 4", len(result.Conditions))
	}
	if len(result.SystemicRisks) != 4 {
		t.Errorf("got %d systemic risks, want 4", len(result.SystemicRisks))
	}
	if result.RiskAssessment.RiskLevel != models.RiskLevelMedium {
		t.Errorf("risk level = %s, want Medium", result.RiskAssessment.RiskLevel)
	}
	if len(result.Recommendations) == 0 {
		t.Error("expected recommendations")
	}
	if result.HeatmapURL == "" || artifacts.uploads != 1 {
		t.Error("expected one uploaded heatmap with a URL")
	}
	if result.DegradedMode {
		t.Error("stub strategy did not degrade")
	}
	if result.ModelVersion != "v-test" {
		t.Errorf("model version = %q, want v-test", result.ModelVersion)
	}
	if result.ProcessedAt.IsZero() {
		t.Error("expected processed_at to be set")
	}

	// The result is retrievable afterwards.
	stored, err := svc.GetResult(context.Background(), result.AnalysisID)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if stored.AnalysisID != result.AnalysisID {
		t.Error("stored result does not match")
	}
}

func TestAnalyze_RejectedImage(t *testing.T) {
	report := models.QualityReport{
		IsValid:      false,
		Issues:       []string{"Image too small"},
		QualityScore: 0.2,
	}
	svc, done := newTestService(t, Options{Validator: &stubValidator{report: report}})
	defer done()

	_, err := svc.Analyze(context.Background(), AnalyzeRequest{ImageURL: "https://example.com/bad.png"})

	var rejected *ImageRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ImageRejectedError, got %v", err)
	}
	if !strings.Contains(rejected.Error(), "Image too small") {
		t.Errorf("error message should carry the issues, got %q", rejected.Error())
	}
	if rejected.Report.QualityScore != 0.2 {
		t.Errorf("report score = %v, want 0.2", rejected.Report.QualityScore)
	}
}

func TestAnalyze_FetchFailure(t *testing.T) {
	fetchErr := errors.New("connection refused")
	svc, done := newTestService(t, Options{ImageRepo: &stubImageRepo{err: fetchErr}})
	defer done()

	if _, err := svc.Analyze(context.Background(), AnalyzeRequest{ImageURL: "https://example.com/down.png"}); !errors.Is(err, fetchErr) {
		t.Errorf("expected fetch error to propagate, got %v", err)
	}
}

func TestAnalyze_DegradedMode(t *testing.T) {
	probs := make([]float64, len(clinical.FallbackProbabilities))
	copy(probs, clinical.FallbackProbabilities)

	svc, done := newTestService(t, Options{Strategy: &stubStrategy{probs: probs, degraded: true}})
	defer done()

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{ImageURL: "https://example.com/scan.png"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if !result.DegradedMode {
		t.Error("expected degraded mode to be reported")
	}
	if result.PredictedClass != clinical.LabelNormal {
		t.Errorf("predicted class = %q, want NORMAL from the fallback prior", result.PredictedClass)
	}
}

func TestAnalyze_HealthyScanHasNoAnnotations(t *testing.T) {
	flat := image.NewRGBA(image.Rect(0, 0, 512, 512))
	for y := 0; y < 512; y++ {
		for x := 0; x < 512; x++ {
			flat.Set(x, y, color.RGBA{R: 120, G: 120, B: 120, A: 255})
		}
	}
	svc, done := newTestService(t, Options{
		ImageRepo: &stubImageRepo{img: flat},
		Strategy:  &stubStrategy{probs: []float64{0.05, 0.05, 0.1, 0.8}},
	})
	defer done()

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{ImageURL: "https://example.com/healthy.png"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.RiskAssessment.PrimaryCondition != clinical.LabelNormal {
		t.Fatalf("primary = %q, want NORMAL", result.RiskAssessment.PrimaryCondition)
	}
	if result.RiskAssessment.RiskLevel != models.RiskLevelLow {
		t.Fatalf("risk level = %s, want Low from the healthy override", result.RiskAssessment.RiskLevel)
	}
	if len(result.Annotations) != 0 {
		t.Errorf("a healthy scan must not carry a fallback region, got %v", result.Annotations)
	}
}

func TestAnalyze_ArtifactFailureDoesNotFailAnalysis(t *testing.T) {
	svc, done := newTestService(t, Options{Artifacts: &stubArtifacts{err: errors.New("storage down")}})
	defer done()

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{ImageURL: "https://example.com/scan.png"})
	if err != nil {
		t.Fatalf("analyze should survive artifact failures, got: %v", err)
	}
	if result.HeatmapURL != "" {
		t.Errorf("heatmap URL = %q, want empty after failed upload", result.HeatmapURL)
	}
}

type spyCache struct {
	stored map[string]*models.AnalysisResult
}

func (c *spyCache) Get(ctx context.Context, imageURL string) (*models.AnalysisResult, bool) {
	r, ok := c.stored[imageURL]
	return r, ok
}

func (c *spyCache) Set(ctx context.Context, imageURL string, result *models.AnalysisResult) {
	c.stored[imageURL] = result
}

func TestAnalyze_CacheHitSkipsPipeline(t *testing.T) {
	cached := &models.AnalysisResult{AnalysisID: "cached-id"}
	spy := &spyCache{stored: map[string]*models.AnalysisResult{"https://example.com/scan.png": cached}}

	// A failing image repo proves the pipeline never ran.
	svc, done := newTestService(t, Options{
		ImageRepo:   &stubImageRepo{err: errors.New("must not be called")},
		ResultCache: spy,
	})
	defer done()

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{ImageURL: "https://example.com/scan.png"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.AnalysisID != "cached-id" {
		t.Errorf("expected the cached result, got %q", result.AnalysisID)
	}
}

func TestAnalyze_CachePopulatedAfterRun(t *testing.T) {
	spy := &spyCache{stored: map[string]*models.AnalysisResult{}}
	svc, done := newTestService(t, Options{ResultCache: spy})
	defer done()

	result, err := svc.Analyze(context.Background(), AnalyzeRequest{ImageURL: "https://example.com/scan.png"})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if spy.stored["https://example.com/scan.png"] == nil {
		t.Fatal("expected the result to be cached")
	}
	if spy.stored["https://example.com/scan.png"].AnalysisID != result.AnalysisID {
		t.Error("cached result does not match the returned one")
	}
}

func TestHistory(t *testing.T) {
	svc, done := newTestService(t, Options{})
	defer done()

	for i := 0; i < 2; i++ {
		if _, err := svc.Analyze(context.Background(), AnalyzeRequest{ImageURL: "https://example.com/scan.png"}); err != nil {
			t.Fatalf("analyze %d: %v", i, err)
		}
	}

	history, err := svc.History(context.Background(), "https://example.com/scan.png")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 2 {
		t.Errorf("history length = %d, want 2", len(history))
	}
}

func TestModelStatus(t *testing.T) {
	svc, done := newTestService(t, Options{})
	defer done()

	status := svc.ModelStatus(context.Background())
	if status.Loaded {
		t.Error("fallback classifier must report not loaded")
	}
	if status.Backend != "fallback" {
		t.Errorf("backend = %q, want fallback", status.Backend)
	}
}
