package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"mail-expense-intake/internal/model"
	"mail-expense-intake/internal/repository"
)

// GetProcessingLogs returns processing entries with pagination
func (h *Handlers) GetProcessingLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	status := model.LogStatus(c.Query("status"))
	switch status {
	case "", model.LogProcessing, model.LogCompleted, model.LogFailed:
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_status",
			Message: "status must be processing, completed or failed",
			Code:    http.StatusBadRequest,
		})
		return
	}

	logs, total, err := h.repo.ListProcessingLogs(c.Request.Context(), repository.LogFilter{
		Status: status,
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch processing logs",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, ProcessingLogListResponse{
		Logs:  logs,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetProcessingLog returns a single processing entry
func (h *Handlers) GetProcessingLog(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_id",
			Message: "Invalid log ID",
			Code:    http.StatusBadRequest,
		})
		return
	}

	entry, err := h.repo.GetProcessingLog(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: "Log not found",
				Code:    http.StatusNotFound,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch log",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, entry)
}
