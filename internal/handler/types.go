package handler

import (
	"time"

	"mail-expense-intake/internal/model"
)

// DecisionRequest is the body of POST /documents/:id/decision
type DecisionRequest struct {
	Action   string  `json:"action" binding:"required"`
	JobID    *string `json:"job_id"`
	Category *string `json:"category"`
}

// DocumentListResponse wraps the pending queue
type DocumentListResponse struct {
	Documents []model.PendingDocument `json:"documents"`
	Total     int                     `json:"total"`
}

// ProcessingLogListResponse is one page of processing entries
type ProcessingLogListResponse struct {
	Logs  []model.ProcessingLog `json:"logs"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string     `json:"status"`
	Timestamp time.Time  `json:"timestamp"`
	Database  string     `json:"database"`
	Scheduler string     `json:"scheduler"`
	NextRun   *time.Time `json:"next_run,omitempty"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
