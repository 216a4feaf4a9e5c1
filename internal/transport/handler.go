package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/aura-health/retina-ai-core/internal/apperrors"
	"github.com/aura-health/retina-ai-core/internal/config"
	"github.com/aura-health/retina-ai-core/internal/logger"
	"github.com/aura-health/retina-ai-core/internal/observer"
	"github.com/aura-health/retina-ai-core/internal/repository"
	"github.com/aura-health/retina-ai-core/internal/service"
)

const maxRequestBodyBytes = 1 << 20

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// NewHandler wires the HTTP routes. The metrics observer is optional;
// without it the metrics endpoint reports an empty snapshot.
func NewHandler(svc service.AnalysisService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.Default()
	r.Use(requestSizeLimiter(maxRequestBodyBytes))

	startedAt := time.Now()

	r.GET("/health", healthCheck(svc, cfg, startedAt))

	api := r.Group("/api")
	{
		api.POST("/analyze", analyzeImage(svc, cfg))
		api.GET("/analyses/:id", getAnalysis(svc))
		api.GET("/analyses", analysisHistory(svc))
		api.GET("/models/status", modelStatus(svc))
		api.GET("/metrics", metricsSnapshot(metrics))
	}

	return r
}

func analyzeImage(svc service.AnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()

		var req service.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", nil)
			return
		}

		logger.WithFields(logrus.Fields{
			"image_url":  req.ImageURL,
			"image_type": req.ImageType,
			"ip":         c.ClientIP(),
		}).Info("Processing retinal analysis request")

		result, err := svc.Analyze(ctx, req)
		if err != nil {
			respondAnalysisError(c, err)
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func getAnalysis(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := svc.GetResult(c.Request.Context(), c.Param("id"))
		if err != nil {
			if errors.Is(err, repository.ErrAnalysisNotFound) {
				respondError(c, http.StatusNotFound, "analysis not found", nil)
				return
			}
			respondError(c, http.StatusInternalServerError, "failed to load analysis", nil)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func analysisHistory(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		imageURL := c.Query("image_url")
		if imageURL == "" {
			respondError(c, http.StatusBadRequest, "image_url query parameter is required", nil)
			return
		}

		results, err := svc.History(c.Request.Context(), imageURL)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "failed to load analysis history", nil)
			return
		}
		c.JSON(http.StatusOK, gin.H{"image_url": imageURL, "results": results})
	}
}

func modelStatus(svc service.AnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.ModelStatus(c.Request.Context()))
	}
}

func metricsSnapshot(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metrics == nil {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

func healthCheck(svc service.AnalysisService, cfg *config.Config, startedAt time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := svc.ModelStatus(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{
			"status":         "available",
			"model_loaded":   status.Loaded,
			"model_version":  cfg.ModelVersion,
			"uptime_seconds": int64(time.Since(startedAt).Seconds()),
			"time":           time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// respondAnalysisError maps pipeline failures onto HTTP statuses.
// Rejected images carry their quality report; internal causes are
// logged but never leaked to the caller.
func respondAnalysisError(c *gin.Context, err error) {
	var rejected *service.ImageRejectedError
	if errors.As(err, &rejected) {
		c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
			Error:   http.StatusText(http.StatusBadRequest),
			Message: "image failed quality validation",
			Details: rejected.Report,
		})
		return
	}

	if errors.Is(err, context.DeadlineExceeded) {
		respondError(c, http.StatusGatewayTimeout, "analysis timed out", nil)
		return
	}

	respondError(c, apperrors.GetStatusCode(err), apperrors.UserMessage(err), nil)
}

func respondError(c *gin.Context, code int, message string, details interface{}) {
	logger.WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Details: details,
	})
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
