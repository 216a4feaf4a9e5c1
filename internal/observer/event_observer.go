package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// EventType identifies a point in the analysis lifecycle.
type EventType string

const (
	AnalysisStarted      EventType = "analysis_started"
	AnalysisCompleted    EventType = "analysis_completed"
	AnalysisFailed       EventType = "analysis_failed"
	ImageFetched         EventType = "image_fetched"
	ImageFetchFailed     EventType = "image_fetch_failed"
	ImageRejected        EventType = "image_rejected"
	ClassifierDegraded   EventType = "classifier_degraded"
	ArtifactUploadFailed EventType = "artifact_upload_failed"
)

// AnalysisEvent is published at each lifecycle point of an analysis.
type AnalysisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	AnalysisID     string                 `json:"analysis_id"`
	ImageURL       string                 `json:"image_url"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// Observer receives analysis lifecycle events.
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject publishes events to subscribed observers.
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

// LoggingObserver writes each event to the structured log.
type LoggingObserver struct {
	logger *logrus.Logger
}

func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{logger: logger}
}

func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type":  event.EventType,
		"analysis_id": event.AnalysisID,
		"image_url":   event.ImageURL,
	}
	if event.ProcessingTime > 0 {
		fields["processing_time"] = event.ProcessingTime
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case AnalysisStarted:
		o.logger.WithFields(fields).Info("Retinal analysis started")
	case AnalysisCompleted:
		o.logger.WithFields(fields).Info("Retinal analysis completed")
	case AnalysisFailed:
		o.logger.WithFields(fields).Error("Retinal analysis failed")
	case ImageFetched:
		o.logger.WithFields(fields).Debug("Image fetched")
	case ImageFetchFailed:
		o.logger.WithFields(fields).Error("Image fetch failed")
	case ImageRejected:
		o.logger.WithFields(fields).Warn("Image rejected by quality validation")
	case ClassifierDegraded:
		o.logger.WithFields(fields).Warn("Classifier unavailable, fallback probabilities used")
	case ArtifactUploadFailed:
		o.logger.WithFields(fields).Warn("Artifact upload failed")
	default:
		o.logger.WithFields(fields).Info("Analysis event")
	}
}

func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver aggregates counters across analyses, including how
// often the pipeline ran in degraded mode.
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalAnalyses       int64
	successfulAnalyses  int64
	failedAnalyses      int64
	rejectedImages      int64
	degradedAnalyses    int64
	totalProcessingTime time.Duration
}

func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalysisStarted:
		o.totalAnalyses++
	case AnalysisCompleted:
		o.successfulAnalyses++
		o.totalProcessingTime += event.ProcessingTime
	case AnalysisFailed:
		o.failedAnalyses++
	case ImageRejected:
		o.rejectedImages++
	case ClassifierDegraded:
		o.degradedAnalyses++
	}
}

func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns a snapshot of the current counters.
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successfulAnalyses > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulAnalyses)
	}

	return map[string]interface{}{
		"total_analyses":      o.totalAnalyses,
		"successful_analyses": o.successfulAnalyses,
		"failed_analyses":     o.failedAnalyses,
		"rejected_images":     o.rejectedImages,
		"degraded_analyses":   o.degradedAnalyses,
		"avg_processing_time": avgProcessingTime.String(),
	}
}

// EventPublisher fans events out to observers. Each observer runs on its
// own goroutine so a slow observer cannot stall the request path.
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

func NewEventPublisher() Subject {
	return &EventPublisher{observers: make([]Observer, 0)}
}

func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		go func(obs Observer) {
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}
