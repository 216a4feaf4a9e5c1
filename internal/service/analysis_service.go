package service

import (
	"context"
	"fmt"
	"hash/fnv"
	"image"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aura-health/retina-ai-core/internal/apperrors"
	"github.com/aura-health/retina-ai-core/internal/cache"
	"github.com/aura-health/retina-ai-core/internal/classifier"
	"github.com/aura-health/retina-ai-core/internal/clinical"
	"github.com/aura-health/retina-ai-core/internal/imaging"
	"github.com/aura-health/retina-ai-core/internal/logger"
	"github.com/aura-health/retina-ai-core/internal/observer"
	"github.com/aura-health/retina-ai-core/internal/repository"
	"github.com/aura-health/retina-ai-core/internal/storage"
	"github.com/aura-health/retina-ai-core/internal/strategy"
	"github.com/aura-health/retina-ai-core/pkg/models"
)

// AnalyzeRequest carries the parameters of one analysis request.
type AnalyzeRequest struct {
	ImageURL  string `json:"image_url" binding:"required"`
	ImageType string `json:"image_type"`
}

// ImageRejectedError reports an image that failed quality validation.
// The full quality report travels with the error so the transport layer
// can return it to the caller.
type ImageRejectedError struct {
	Report models.QualityReport
}

func (e *ImageRejectedError) Error() string {
	return fmt.Sprintf("image rejected: %s", strings.Join(e.Report.Issues, "; "))
}

// AnalysisService runs the full retinal analysis pipeline.
type AnalysisService interface {
	Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error)
	GetResult(ctx context.Context, analysisID string) (*models.AnalysisResult, error)
	History(ctx context.Context, imageURL string) ([]*models.AnalysisResult, error)
	ModelStatus(ctx context.Context) classifier.ModelStatus
}

type analysisService struct {
	imageRepo    repository.ImageRepository
	analysisRepo repository.AnalysisRepository
	validator    ImageValidator
	extractor    *imaging.FeatureExtractor
	classify     strategy.ClassificationStrategy
	model        classifier.Classifier
	interpreter  *clinical.ConditionInterpreter
	systemic     *clinical.SystemicRiskEngine
	aggregator   *clinical.RiskAggregator
	recommender  *clinical.RecommendationGenerator
	planner      *imaging.AnnotationPlanner
	artifacts    storage.ArtifactStore
	resultCache  cache.ResultCache
	publisher    observer.Subject
	pool         *imaging.WorkerPool
	modelVersion string
	seed         int64
}

// Options bundles the pipeline dependencies for construction.
type Options struct {
	ImageRepo    repository.ImageRepository
	AnalysisRepo repository.AnalysisRepository
	Validator    ImageValidator
	Extractor    *imaging.FeatureExtractor
	Strategy     strategy.ClassificationStrategy
	Model        classifier.Classifier
	Artifacts    storage.ArtifactStore
	ResultCache  cache.ResultCache
	Publisher    observer.Subject
	Pool         *imaging.WorkerPool
	ModelVersion string
	Seed         int64
}

// ImageValidator gates source images before the pipeline runs.
type ImageValidator interface {
	Validate(img image.Image, width, height int) models.QualityReport
}

func NewAnalysisService(opts Options) AnalysisService {
	return &analysisService{
		imageRepo:    opts.ImageRepo,
		analysisRepo: opts.AnalysisRepo,
		validator:    opts.Validator,
		extractor:    opts.Extractor,
		classify:     opts.Strategy,
		model:        opts.Model,
		interpreter:  clinical.NewConditionInterpreter(),
		systemic:     clinical.NewSystemicRiskEngine(),
		aggregator:   clinical.NewRiskAggregator(),
		recommender:  clinical.NewRecommendationGenerator(),
		planner:      imaging.NewAnnotationPlanner(),
		artifacts:    opts.Artifacts,
		resultCache:  opts.ResultCache,
		publisher:    opts.Publisher,
		pool:         opts.Pool,
		modelVersion: opts.ModelVersion,
		seed:         opts.Seed,
	}
}

func (s *analysisService) Analyze(ctx context.Context, req AnalyzeRequest) (*models.AnalysisResult, error) {
	if req.ImageType == "" {
		req.ImageType = "oct"
	}

	if cached, ok := s.resultCache.Get(ctx, req.ImageURL); ok {
		logger.WithField("image_url", req.ImageURL).Debug("returning cached analysis result")
		return cached, nil
	}

	analysisID := uuid.New().String()
	started := time.Now()

	s.publish(ctx, observer.AnalysisEvent{
		EventType:  observer.AnalysisStarted,
		Timestamp:  started,
		AnalysisID: analysisID,
		ImageURL:   req.ImageURL,
	})

	result, err := s.runPipeline(ctx, analysisID, req)
	if err != nil {
		s.publishFailure(ctx, analysisID, req.ImageURL, err)
		return nil, err
	}

	result.ProcessedAt = time.Now().UTC()
	result.ProcessingTimeMS = time.Since(started).Milliseconds()

	if err := s.analysisRepo.SaveResult(ctx, result); err != nil {
		logger.WithAnalysis(analysisID).WithError(err).Warn("failed to persist analysis result")
	}
	s.resultCache.Set(ctx, req.ImageURL, result)

	s.publish(ctx, observer.AnalysisEvent{
		EventType:      observer.AnalysisCompleted,
		Timestamp:      time.Now(),
		AnalysisID:     analysisID,
		ImageURL:       req.ImageURL,
		ProcessingTime: time.Since(started),
		Success:        true,
		Metadata: map[string]interface{}{
			"risk_level":    result.RiskAssessment.RiskLevel,
			"degraded_mode": result.DegradedMode,
		},
	})
	return result, nil
}

func (s *analysisService) runPipeline(ctx context.Context, analysisID string, req AnalyzeRequest) (*models.AnalysisResult, error) {
	img, meta, err := s.imageRepo.FetchImage(ctx, req.ImageURL)
	if err != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:    observer.ImageFetchFailed,
			Timestamp:    time.Now(),
			AnalysisID:   analysisID,
			ImageURL:     req.ImageURL,
			ErrorMessage: err.Error(),
		})
		return nil, err
	}
	s.publish(ctx, observer.AnalysisEvent{
		EventType:  observer.ImageFetched,
		Timestamp:  time.Now(),
		AnalysisID: analysisID,
		ImageURL:   req.ImageURL,
		Success:    true,
		Metadata: map[string]interface{}{
			"width":  meta.Width,
			"height": meta.Height,
			"format": meta.Format,
		},
	})

	// Quality validation and feature extraction are independent of each
	// other; run both on the pool and join.
	var (
		quality  models.QualityReport
		raw      imaging.RawFeatures
		vascular models.VascularMetrics
	)
	s.pool.Do(
		func() { quality = s.validator.Validate(img, meta.Width, meta.Height) },
		func() {
			raw = s.extractor.Extract(img)
			vascular = s.extractor.DeriveVascularMetrics(raw)
		},
	)

	if !quality.IsValid {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:    observer.ImageRejected,
			Timestamp:    time.Now(),
			AnalysisID:   analysisID,
			ImageURL:     req.ImageURL,
			ErrorMessage: strings.Join(quality.Issues, "; "),
		})
		return nil, &ImageRejectedError{Report: quality}
	}

	preprocessed, err := imaging.Preprocess(img)
	if err != nil {
		return nil, apperrors.NewProcessingError("image preprocessing failed", err)
	}

	probs, degraded := s.classify.Probabilities(ctx, preprocessed)
	if degraded {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:  observer.ClassifierDegraded,
			Timestamp:  time.Now(),
			AnalysisID: analysisID,
			ImageURL:   req.ImageURL,
		})
	}

	conditions, err := s.interpreter.Interpret(probs)
	if err != nil {
		return nil, apperrors.NewProcessingError("condition interpretation failed", err)
	}

	systemicRisks := s.systemic.ComputeFromConditions(conditions)
	systemicRisks = s.systemic.Reblend(systemicRisks, vascular)

	assessment := s.aggregator.Aggregate(conditions, systemicRisks, vascular)
	recommendations := s.recommender.Generate(assessment, conditions, systemicRisks)

	annotations := s.planner.PlanRegions(imaging.PlanInput{
		AbnormalityCount: raw.PotentialAbnormalitiesCount,
		HemorrhageScore:  vascular.HemorrhageScore,
		ImageWidth:       meta.Width,
		ImageHeight:      meta.Height,
		Seed:             s.annotationSeed(req.ImageURL),
	})
	positiveFinding := len(assessment.PositiveConditions) > 0 ||
		assessment.RiskLevel == models.RiskLevelHigh ||
		assessment.RiskLevel == models.RiskLevelMedium
	if len(annotations) == 0 && positiveFinding {
		annotations = []models.AnnotatedRegion{
			s.planner.FallbackRegion(meta.Width, meta.Height, assessment.CombinedRiskScore),
		}
	}

	heatmapURL := s.uploadHeatmap(ctx, analysisID, req.ImageURL, preprocessed)

	predictedClass, confidence := topClass(probs)

	return &models.AnalysisResult{
		AnalysisID:      analysisID,
		ImageURL:        req.ImageURL,
		ImageType:       req.ImageType,
		ImageMetadata:   meta,
		Quality:         quality,
		VascularMetrics: vascular,
		Conditions:      conditions,
		SystemicRisks:   systemicRisks,
		RiskAssessment:  assessment,
		Recommendations: recommendations,
		Annotations:     annotations,
		HeatmapURL:      heatmapURL,
		PredictedClass:  predictedClass,
		Confidence:      confidence,
		DegradedMode:    degraded,
		ModelVersion:    s.modelVersion,
	}, nil
}

// uploadHeatmap renders and stores the attention heatmap. Upload
// failures degrade to an empty URL, never a failed analysis.
func (s *analysisService) uploadHeatmap(ctx context.Context, analysisID, imageURL string, preprocessed image.Image) string {
	gray := imaging.Luminance(preprocessed)
	heatmap := imaging.FallbackHeatmap(gray)

	data, err := imaging.EncodeHeatmapPNG(heatmap)
	if err != nil {
		logger.WithAnalysis(analysisID).WithError(err).Warn("heatmap encoding failed")
		return ""
	}

	url, err := s.artifacts.PutArtifact(ctx, fmt.Sprintf("heatmaps/%s.png", analysisID), "image/png", data)
	if err != nil {
		s.publish(ctx, observer.AnalysisEvent{
			EventType:    observer.ArtifactUploadFailed,
			Timestamp:    time.Now(),
			AnalysisID:   analysisID,
			ImageURL:     imageURL,
			ErrorMessage: err.Error(),
		})
		return ""
	}
	return url
}

// annotationSeed makes placement reproducible per source image. A
// configured seed pins it globally for tests.
func (s *analysisService) annotationSeed(imageURL string) int64 {
	if s.seed != 0 {
		return s.seed
	}
	h := fnv.New64a()
	h.Write([]byte(imageURL))
	return int64(h.Sum64())
}

func (s *analysisService) GetResult(ctx context.Context, analysisID string) (*models.AnalysisResult, error) {
	return s.analysisRepo.GetResult(ctx, analysisID)
}

func (s *analysisService) History(ctx context.Context, imageURL string) ([]*models.AnalysisResult, error) {
	return s.analysisRepo.History(ctx, imageURL)
}

func (s *analysisService) ModelStatus(ctx context.Context) classifier.ModelStatus {
	return s.model.Status(ctx)
}

func (s *analysisService) publish(ctx context.Context, event observer.AnalysisEvent) {
	if s.publisher != nil {
		s.publisher.NotifyObservers(ctx, event)
	}
}

func (s *analysisService) publishFailure(ctx context.Context, analysisID, imageURL string, err error) {
	s.publish(ctx, observer.AnalysisEvent{
		EventType:    observer.AnalysisFailed,
		Timestamp:    time.Now(),
		AnalysisID:   analysisID,
		ImageURL:     imageURL,
		ErrorMessage: err.Error(),
	})
}

func topClass(probs []float64) (string, float64) {
	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}
	return clinical.Labels[best], probs[best]
}
