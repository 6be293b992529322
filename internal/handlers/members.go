package handlers

import (
	"net/http"

	"studiobook/internal/logger"
	"studiobook/internal/models"

	"github.com/gin-gonic/gin"
)

// Members handlers

// CreateMember - POST /api/members (staff)
func (h *Handlers) CreateMember(c *gin.Context) {
	var req models.CreateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Members.Create(c.Request.Context(), &req)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to create member", "error", err)
		respondError(c, err, "Failed to create member")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetMember - GET /api/members/:id
// Members see only themselves; staff sees anyone.
func (h *Handlers) GetMember(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}

	if !canActFor(c, id) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot view another member"})
		return
	}

	response, err := h.services.Members.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get member")
		return
	}

	c.JSON(http.StatusOK, response)
}

// AdjustCredits - PATCH /api/members/:id/credits (staff)
func (h *Handlers) AdjustCredits(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}

	var req models.AdjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Members.AdjustPlan(c.Request.Context(), id, &req)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to adjust credits", "error", err)
		respondError(c, err, "Failed to adjust credits")
		return
	}

	c.JSON(http.StatusOK, response)
}
