package handlers

import (
	"net/http"
	"strconv"

	"studiobook/internal/logger"
	"studiobook/internal/models"

	"github.com/gin-gonic/gin"
)

// Sessions handlers

// CreateSession - POST /api/sessions (staff)
func (h *Handlers) CreateSession(c *gin.Context) {
	var req models.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	staffID, ok := callerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	staff, err := h.services.Members.Get(c.Request.Context(), staffID)
	if err != nil {
		respondError(c, err, "Failed to create session")
		return
	}

	response, err := h.services.Sessions.Create(c.Request.Context(), staff.StudioID, &req)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to create session", "error", err)
		respondError(c, err, "Failed to create session")
		return
	}

	c.JSON(http.StatusCreated, response)
}

// GetSession - GET /api/sessions/:id
func (h *Handlers) GetSession(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}

	response, err := h.services.Sessions.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get session")
		return
	}

	c.JSON(http.StatusOK, response)
}

// ListSessions - GET /api/sessions?date=&query=&page=&pageSize=
// With a query, searches the read model; otherwise lists from the database.
func (h *Handlers) ListSessions(c *gin.Context) {
	query := c.Query("query")
	date := c.Query("date")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))

	if page < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "page must be >= 1"})
		return
	}
	if pageSize < 1 || pageSize > 100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "pageSize must be between 1 and 100"})
		return
	}

	var response []models.SessionResponseItem
	var err error
	if query != "" {
		response, err = h.services.Sessions.Search(c.Request.Context(), query, date, page, pageSize)
	} else {
		response, err = h.services.Sessions.List(c.Request.Context(), date, page, pageSize)
	}
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to list sessions", "error", err)
		respondError(c, err, "Failed to list sessions")
		return
	}

	c.JSON(http.StatusOK, response)
}

// CancelSession - PATCH /api/sessions/:id/cancel (staff)
func (h *Handlers) CancelSession(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}

	if err := h.services.Sessions.Cancel(c.Request.Context(), id); err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to cancel session", "error", err)
		respondError(c, err, "Failed to cancel session")
		return
	}

	c.Status(http.StatusOK)
}

// GetConfirmedCount - GET /api/sessions/:id/confirmedCount
func (h *Handlers) GetConfirmedCount(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}

	response, err := h.services.Sessions.ConfirmedCount(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get confirmed count")
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetAttendance - GET /api/sessions/:id/attendance (staff)
func (h *Handlers) GetAttendance(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be an integer"})
		return
	}

	response, err := h.services.Attendance.ListBySession(c.Request.Context(), id)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("Failed to list attendance", "error", err)
		respondError(c, err, "Failed to list attendance")
		return
	}

	c.JSON(http.StatusOK, response)
}

func pathID(c *gin.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}
