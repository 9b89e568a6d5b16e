package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"mail-expense-intake/internal/review"
)

// ListPending returns documents awaiting review
func (h *Handlers) ListPending(c *gin.Context) {
	docs, err := h.review.ListPending(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "database_error",
			Message: "Failed to fetch pending documents",
			Code:    http.StatusInternalServerError,
		})
		return
	}

	c.JSON(http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// GetDocument returns a single document in any state
func (h *Handlers) GetDocument(c *gin.Context) {
	doc, err := h.review.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// Decide approves or rejects a pending document
func (h *Handlers) Decide(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
			Code:    http.StatusBadRequest,
		})
		return
	}

	doc, err := h.review.Decide(c.Request.Context(), c.Param("id"), review.Decision{
		Action:   review.Action(req.Action),
		JobID:    req.JobID,
		Category: req.Category,
	})
	if err != nil {
		respondReviewError(c, err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

// respondReviewError maps review sentinel errors onto HTTP statuses
func respondReviewError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, review.ErrNotFound):
		status, code = http.StatusNotFound, "not_found"
	case errors.Is(err, review.ErrAlreadyResolved):
		status, code = http.StatusConflict, "already_resolved"
	case errors.Is(err, review.ErrNoJobSelected):
		status, code = http.StatusUnprocessableEntity, "no_job_selected"
	case errors.Is(err, review.ErrUnknownJob):
		status, code = http.StatusUnprocessableEntity, "unknown_job"
	case errors.Is(err, review.ErrInvalidCategory):
		status, code = http.StatusUnprocessableEntity, "invalid_category"
	case errors.Is(err, review.ErrInvalidAction):
		status, code = http.StatusBadRequest, "invalid_action"
	default:
		logrus.WithError(err).WithField("document_id", c.Param("id")).Error("Review request failed")
	}

	c.JSON(status, ErrorResponse{
		Error:   code,
		Message: err.Error(),
		Code:    status,
	})
}
