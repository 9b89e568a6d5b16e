package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetJobs returns the jobs a reviewer may approve against
func (h *Handlers) GetJobs(c *gin.Context) {
	activeOnly := c.DefaultQuery("active", "true") != "false"

	jobs, err := h.repo.ListJobs(c.Request.Context(), activeOnly)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch jobs",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}
