package factory

import (
	"github.com/aura-health/retina-ai-core/internal/cache"
	"github.com/aura-health/retina-ai-core/internal/classifier"
	"github.com/aura-health/retina-ai-core/internal/config"
	"github.com/aura-health/retina-ai-core/internal/logger"
	"github.com/aura-health/retina-ai-core/internal/storage"
	"github.com/aura-health/retina-ai-core/internal/strategy"
)

// ComponentFactory builds the configuration-dependent components:
// the classification strategy, artifact store and result cache. Each
// degrades to a local no-op implementation when its backend is not
// configured.
type ComponentFactory struct {
	cfg *config.Config
}

func NewComponentFactory(cfg *config.Config) *ComponentFactory {
	return &ComponentFactory{cfg: cfg}
}

// CreateClassifier returns the classifier reported by the model status
// endpoint, plus the strategy the analysis pipeline uses.
func (f *ComponentFactory) CreateClassifier() (classifier.Classifier, strategy.ClassificationStrategy) {
	fallback := classifier.NewFallbackClassifier(f.cfg.ModelVersion)

	if !f.cfg.ClassifierEnabled() {
		logger.Warn("No model service configured, all analyses will use fallback probabilities")
		return fallback, strategy.NewFallbackOnlyStrategy(fallback)
	}

	primary := classifier.NewHTTPClassifier(f.cfg.ModelServiceURL, f.cfg.ModelVersion, f.cfg.AnalysisTimeout)
	return primary, strategy.NewModelBackedStrategy(primary, fallback)
}

func (f *ComponentFactory) CreateArtifactStore() storage.ArtifactStore {
	if !f.cfg.ArtifactStoreEnabled() {
		return storage.NoopArtifactStore{}
	}

	store, err := storage.NewAzureArtifactStore(
		f.cfg.AzureStorageAccount,
		f.cfg.AzureStorageKey,
		f.cfg.AzureArtifactContainer,
	)
	if err != nil {
		logger.WithError(err).Warn("Azure artifact store unavailable, artifacts will be dropped")
		return storage.NoopArtifactStore{}
	}
	return store
}

func (f *ComponentFactory) CreateResultCache() cache.ResultCache {
	if !f.cfg.CacheEnabled() {
		return cache.NoopCache{}
	}
	return cache.NewRedisCache(f.cfg.RedisAddr, f.cfg.ResultCacheTTL)
}
