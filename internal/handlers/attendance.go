package handlers

import (
	"net/http"

	"studiobook/internal/logger"
	"studiobook/internal/models"

	"github.com/gin-gonic/gin"
)

// Attendance handlers. The drop-in register is staff-only; routes are gated
// by RequireStaff in the router.

// AddDropIn - POST /api/attendance (staff)
func (h *Handlers) AddDropIn(c *gin.Context) {
	var req models.AddDropInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	response, err := h.services.Attendance.Add(c.Request.Context(), &req)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to record drop-in", "error", err)
		respondError(c, err, "Failed to record drop-in")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// RemoveDropIn - DELETE /api/attendance/:id (staff)
func (h *Handlers) RemoveDropIn(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id is required"})
		return
	}

	if err := h.services.Attendance.Remove(c.Request.Context(), id); err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to remove drop-in", "error", err)
		respondError(c, err, "Failed to remove drop-in")
		return
	}

	c.Status(http.StatusOK)
}
