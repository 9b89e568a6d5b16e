package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"mail-expense-intake/internal/db"
	"mail-expense-intake/internal/repository"
	"mail-expense-intake/internal/review"
	"mail-expense-intake/internal/scheduler"
)

// Handlers contains all HTTP handlers
type Handlers struct {
	repo      *repository.Repository
	review    *review.Service
	scheduler *scheduler.Scheduler
}

// NewHandlers creates new HTTP handlers
func NewHandlers(repo *repository.Repository, reviewSvc *review.Service, sched *scheduler.Scheduler) *Handlers {
	return &Handlers{
		repo:      repo,
		review:    reviewSvc,
		scheduler: sched,
	}
}

// SetupRoutes sets up all HTTP routes
func (h *Handlers) SetupRoutes(router *gin.Engine) {
	router.GET("/healthz", h.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api/v1")
	{
		api.GET("/documents/pending", h.ListPending)
		api.GET("/documents/:id", h.GetDocument)
		api.POST("/documents/:id/decision", h.Decide)

		api.GET("/processing-logs", h.GetProcessingLogs)
		api.GET("/processing-logs/:id", h.GetProcessingLog)

		api.GET("/jobs", h.GetJobs)

		api.POST("/scheduler/start", h.StartScheduler)
		api.POST("/scheduler/stop", h.StopScheduler)
		api.POST("/scheduler/run-once", h.RunOnce)
		api.GET("/scheduler/status", h.GetSchedulerStatus)
	}
}

// HealthCheck handles health check requests
func (h *Handlers) HealthCheck(c *gin.Context) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Database:  "ok",
		Scheduler: "stopped",
	}

	if err := db.Ping(h.repo.DB()); err != nil {
		response.Status = "error"
		response.Database = "error"
		logrus.Errorf("Database health check failed: %v", err)
	}

	st := h.scheduler.Status()
	if st.Running {
		response.Scheduler = "running"
		response.NextRun = &st.NextRun
	}
	if !st.LastRun.IsZero() {
		response.LastRun = &st.LastRun
		response.LastError = st.LastError
	}

	statusCode := http.StatusOK
	if response.Status == "error" {
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, response)
}
