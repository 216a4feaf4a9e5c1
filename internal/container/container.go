package container

import (
	"net/http"

	"github.com/aura-health/retina-ai-core/internal/config"
	"github.com/aura-health/retina-ai-core/internal/factory"
	"github.com/aura-health/retina-ai-core/internal/imaging"
	"github.com/aura-health/retina-ai-core/internal/logger"
	"github.com/aura-health/retina-ai-core/internal/observer"
	"github.com/aura-health/retina-ai-core/internal/repository"
	"github.com/aura-health/retina-ai-core/internal/service"
	"github.com/aura-health/retina-ai-core/internal/storage"
	"github.com/aura-health/retina-ai-core/internal/transport"
	"github.com/aura-health/retina-ai-core/pkg/validation"
)

// Container wires the dependency graph for the API process.
type Container struct {
	config  *config.Config
	pool    *imaging.WorkerPool
	metrics *observer.MetricsObserver
	svc     service.AnalysisService
	handler http.Handler
}

func NewContainer(cfg *config.Config) (*Container, error) {
	fetcher := storage.NewHTTPImageFetcher(cfg.ImageFetchTimeout, cfg.MaxImageBytes)
	imageRepo := repository.NewHTTPImageRepository(fetcher, validation.NewURLValidator(cfg.AllowedImageHosts...))
	analysisRepo := repository.NewMemoryAnalysisRepository(0)

	components := factory.NewComponentFactory(cfg)
	model, classifyStrategy := components.CreateClassifier()
	artifacts := components.CreateArtifactStore()
	resultCache := components.CreateResultCache()

	publisher := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	publisher.Subscribe(metrics)

	pool := imaging.NewWorkerPool(0)
	pool.Start()

	svc := service.NewAnalysisService(service.Options{
		ImageRepo:    imageRepo,
		AnalysisRepo: analysisRepo,
		Validator:    validation.NewImageValidator(),
		Extractor:    imaging.NewFeatureExtractor(),
		Strategy:     classifyStrategy,
		Model:        model,
		Artifacts:    artifacts,
		ResultCache:  resultCache,
		Publisher:    publisher,
		Pool:         pool,
		ModelVersion: cfg.ModelVersion,
		Seed:         cfg.AnnotationSeed,
	})

	return &Container{
		config:  cfg,
		pool:    pool,
		metrics: metrics,
		svc:     svc,
		handler: transport.NewHandler(svc, metrics, cfg),
	}, nil
}

func (c *Container) Handler() http.Handler {
	return c.handler
}

func (c *Container) Config() *config.Config {
	return c.config
}

func (c *Container) Service() service.AnalysisService {
	return c.svc
}

// Close releases background resources.
func (c *Container) Close() {
	c.pool.Close()
}
