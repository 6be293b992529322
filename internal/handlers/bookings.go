package handlers

import (
	"net/http"
	"strconv"

	"studiobook/internal/logger"
	"studiobook/internal/models"

	"github.com/gin-gonic/gin"
)

// Bookings handlers

// CreateBooking - POST /api/bookings
func (h *Handlers) CreateBooking(c *gin.Context) {
	var req models.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !canActFor(c, req.MemberID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot book for another member"})
		return
	}

	response, err := h.services.Bookings.Book(c.Request.Context(), &req)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to create booking", "error", err)
		respondError(c, err, "Failed to create booking")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// RebookBooking - PATCH /api/bookings/rebook
func (h *Handlers) RebookBooking(c *gin.Context) {
	var req models.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !canActFor(c, req.MemberID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot rebook for another member"})
		return
	}

	response, err := h.services.Bookings.Rebook(c.Request.Context(), &req)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to rebook", "error", err)
		respondError(c, err, "Failed to rebook")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CancelBooking - PATCH /api/bookings/cancel
func (h *Handlers) CancelBooking(c *gin.Context) {
	var req models.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !canActFor(c, req.MemberID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot cancel for another member"})
		return
	}

	response, err := h.services.Bookings.Cancel(c.Request.Context(), &req)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to cancel booking", "error", err)
		respondError(c, err, "Failed to cancel booking")
		return
	}

	c.JSON(http.StatusOK, response)
}

// LeaveWaitlist - PATCH /api/bookings/leaveWaitlist
func (h *Handlers) LeaveWaitlist(c *gin.Context) {
	var req models.BookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !canActFor(c, req.MemberID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Cannot leave waitlist for another member"})
		return
	}

	response, err := h.services.Bookings.LeaveWaitlist(c.Request.Context(), &req)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to leave waitlist", "error", err)
		respondError(c, err, "Failed to leave waitlist")
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListBookings - GET /api/bookings?member_id=
// Without member_id, lists the caller's own bookings.
func (h *Handlers) ListBookings(c *gin.Context) {
	memberID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if raw := c.Query("member_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "member_id must be an integer"})
			return
		}
		if !canActFor(c, id) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Cannot list another member's bookings"})
			return
		}
		memberID = id
	}

	response, err := h.services.Bookings.List(c.Request.Context(), memberID)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to list bookings", "error", err)
		respondError(c, err, "Failed to list bookings")
		return
	}

	c.JSON(http.StatusOK, response)
}
