// Package api serves the validator's monitoring surface: health, loop
// stats, the current reward snapshot, and Prometheus metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/polling"
	"github.com/Andrew-Costa-10114/talisman-ai/pkgs/rewards"
)

var log = logrus.New()

// Server exposes read-only validator state over HTTP.
type Server struct {
	validatorID string
	poller      *polling.Client
	rewards     *rewards.State
	httpServer  *http.Server
}

// NewServer creates the monitoring API server.
func NewServer(validatorID string, poller *polling.Client, rewardState *rewards.State, host string, port int) *Server {
	s := &Server{
		validatorID: validatorID,
		poller:      poller,
		rewards:     rewardState,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", s.health)
	router.GET("/stats", s.stats)
	router.GET("/rewards", s.rewardSnapshot)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: router,
	}
	return s
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"validator_id": s.validatorID,
		"timestamp":    time.Now().UTC(),
	})
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"validator_id": s.validatorID,
		"polling":      s.poller.Stats(),
	})
}

func (s *Server) rewardSnapshot(c *gin.Context) {
	start, end := s.rewards.Window()
	c.JSON(http.StatusOK, gin.H{
		"scores":             s.rewards.Snapshot(),
		"hotkeys":            s.rewards.Len(),
		"block_window_start": start,
		"block_window_end":   end,
		"updated_at":         s.rewards.UpdatedAt(),
	})
}

// Start runs the server in the background.
func (s *Server) Start() {
	go func() {
		log.Infof("Monitoring API listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Monitoring API failed: %v", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
