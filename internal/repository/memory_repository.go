package repository

import (
	"context"
	"sync"

	"github.com/aura-health/retina-ai-core/pkg/models"
)

// MemoryAnalysisRepository keeps results in process memory. It bounds
// the number of retained results and evicts the oldest first.
type MemoryAnalysisRepository struct {
	mu       sync.RWMutex
	byID     map[string]*models.AnalysisResult
	order    []string
	capacity int
}

func NewMemoryAnalysisRepository(capacity int) *MemoryAnalysisRepository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryAnalysisRepository{
		byID:     make(map[string]*models.AnalysisResult),
		capacity: capacity,
	}
}

func (r *MemoryAnalysisRepository) SaveResult(ctx context.Context, result *models.AnalysisResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[result.AnalysisID]; !exists {
		r.order = append(r.order, result.AnalysisID)
	}
	r.byID[result.AnalysisID] = result

	for len(r.order) > r.capacity {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.byID, oldest)
	}
	return nil
}

func (r *MemoryAnalysisRepository) GetResult(ctx context.Context, analysisID string) (*models.AnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, ok := r.byID[analysisID]
	if !ok {
		return nil, ErrAnalysisNotFound
	}
	return result, nil
}

func (r *MemoryAnalysisRepository) History(ctx context.Context, imageURL string) ([]*models.AnalysisResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*models.AnalysisResult
	for _, id := range r.order {
		if result := r.byID[id]; result != nil && result.ImageURL == imageURL {
			results = append(results, result)
		}
	}
	return results, nil
}
