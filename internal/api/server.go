// Package api exposes a small read-only HTTP surface: health, recent
// opportunities, and scanner status. All detection state lives in the
// engine; these handlers only read it out.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/avolkov/arbiscan/internal/coordinator"
	"github.com/avolkov/arbiscan/internal/models"
	"github.com/avolkov/arbiscan/internal/monitor"
)

const defaultOpportunityLimit = 50

// OpportunityReader supplies persisted opportunities for the API.
type OpportunityReader interface {
	RecentOpportunities(ctx context.Context, limit int) ([]models.ArbitrageOpportunity, error)
}

// Server wraps the gin engine and its HTTP listener.
type Server struct {
	httpServer *http.Server
	logger     *logrus.Logger
}

func NewServer(port int, coord *coordinator.Coordinator, opportunities OpportunityReader, perf *monitor.PerformanceMonitor, logger *logrus.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	v1 := router.Group("/api/v1")
	v1.GET("/scanner/status", func(c *gin.Context) {
		resp := gin.H{"scanner": coord.Status()}
		if perf != nil {
			if s := perf.LastSample(); s != nil {
				resp["resources"] = s
			}
		}
		c.JSON(http.StatusOK, resp)
	})

	v1.GET("/arbitrage/opportunities", func(c *gin.Context) {
		if opportunities == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "opportunity storage not configured"})
			return
		}

		limit := defaultOpportunityLimit
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
				return
			}
			limit = parsed
		}

		opps, err := opportunities.RecentOpportunities(c.Request.Context(), limit)
		if err != nil {
			logger.WithError(err).Error("Failed to load opportunities")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load opportunities"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"count":         len(opps),
			"opportunities": opps,
		})
	})

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.WithField("addr", s.httpServer.Addr).Info("HTTP server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
