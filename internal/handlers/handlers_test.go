package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"studiobook/internal/middleware"
	"studiobook/internal/models"
	"studiobook/internal/service"
	"studiobook/internal/service/servicetest"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store  *servicetest.Store
	router *gin.Engine

	// identity injected into each request
	memberID int64
	role     string
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)

	store := servicetest.NewStore()
	publisher := &servicetest.Publisher{}

	services := &service.Services{
		Members:    service.NewMemberService(store.Members()),
		Sessions:   service.NewSessionService(store.Sessions(), store.Bookings(), nil, publisher),
		Bookings:   service.NewBookingService(store.Bookings(), store.Sessions(), store.Members(), publisher, service.BookingConfig{}),
		Attendance: service.NewAttendanceService(store.Attendance(), store.Sessions(), store.Members(), publisher),
	}

	env := &testEnv{store: store, role: models.RoleMember}

	h := NewHandlers(services, nil)

	r := gin.New()
	api := r.Group("/api")
	api.Use(func(c *gin.Context) {
		c.Set("member_id", env.memberID)
		c.Request = c.Request.WithContext(
			middleware.ContextWithMember(c.Request.Context(), env.memberID, env.role))
		c.Next()
	})
	{
		bookings := api.Group("/bookings")
		{
			bookings.POST("", h.CreateBooking)
			bookings.GET("", h.ListBookings)
			bookings.PATCH("/rebook", h.RebookBooking)
			bookings.PATCH("/cancel", h.CancelBooking)
			bookings.PATCH("/leaveWaitlist", h.LeaveWaitlist)
		}

		sessions := api.Group("/sessions")
		{
			sessions.GET("", h.ListSessions)
			sessions.GET("/:id", h.GetSession)
			sessions.GET("/:id/confirmedCount", h.GetConfirmedCount)
			sessions.POST("", h.CreateSession)
			sessions.PATCH("/:id/cancel", h.CancelSession)
			sessions.GET("/:id/attendance", h.GetAttendance)
		}

		attendance := api.Group("/attendance")
		{
			attendance.POST("", h.AddDropIn)
			attendance.DELETE("/:id", h.RemoveDropIn)
		}

		members := api.Group("/members")
		{
			members.GET("/:id", h.GetMember)
			members.POST("", h.CreateMember)
			members.PATCH("/:id/credits", h.AdjustCredits)
		}
	}

	env.router = r
	return env
}

func (e *testEnv) actAs(memberID int64, role string) {
	e.memberID = memberID
	e.role = role
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestBookingLifecycleOverHTTP(t *testing.T) {
	env := newTestEnv()
	memberID := env.store.AddMember(&models.Member{StudioID: 1, Credits: 3})
	sessionID := env.store.AddSession(&models.ClassSession{StudioID: 1, Capacity: 5})
	env.actAs(memberID, models.RoleMember)

	body := models.BookRequest{SessionID: sessionID, MemberID: memberID}

	w := env.do(t, "POST", "/api/bookings", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var bookResp models.BookResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bookResp))
	assert.Equal(t, models.BookingConfirmed, bookResp.Status)

	w = env.do(t, "GET", "/api/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []models.ListBookingsResponseItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	w = env.do(t, "PATCH", "/api/bookings/cancel", body)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "PATCH", "/api/bookings/rebook", body)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestBookingErrorStatuses(t *testing.T) {
	env := newTestEnv()
	memberID := env.store.AddMember(&models.Member{StudioID: 1, Credits: 1})
	sessionID := env.store.AddSession(&models.ClassSession{StudioID: 1, Capacity: 5})
	env.actAs(memberID, models.RoleMember)

	body := models.BookRequest{SessionID: sessionID, MemberID: memberID}

	w := env.do(t, "POST", "/api/bookings", body)
	require.Equal(t, http.StatusCreated, w.Code)

	// Duplicate booking
	w = env.do(t, "POST", "/api/bookings", body)
	assert.Equal(t, http.StatusConflict, w.Code)

	// leaveWaitlist on a confirmed booking
	w = env.do(t, "PATCH", "/api/bookings/leaveWaitlist", body)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// Unknown session
	w = env.do(t, "POST", "/api/bookings", models.BookRequest{SessionID: 99, MemberID: memberID})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBookingInsufficientCreditsStatus(t *testing.T) {
	env := newTestEnv()
	memberID := env.store.AddMember(&models.Member{StudioID: 1, Credits: 0})
	sessionID := env.store.AddSession(&models.ClassSession{StudioID: 1, Capacity: 5})
	env.actAs(memberID, models.RoleMember)

	w := env.do(t, "POST", "/api/bookings", models.BookRequest{SessionID: sessionID, MemberID: memberID})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestMemberCannotActForAnother(t *testing.T) {
	env := newTestEnv()
	caller := env.store.AddMember(&models.Member{StudioID: 1, Credits: 3})
	other := env.store.AddMember(&models.Member{StudioID: 1, Credits: 3})
	sessionID := env.store.AddSession(&models.ClassSession{StudioID: 1, Capacity: 5})
	env.actAs(caller, models.RoleMember)

	w := env.do(t, "POST", "/api/bookings", models.BookRequest{SessionID: sessionID, MemberID: other})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "GET", "/api/members/2", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStaffActsForAnyMember(t *testing.T) {
	env := newTestEnv()
	staff := env.store.AddMember(&models.Member{StudioID: 1, Role: models.RoleStaff, Unlimited: true})
	member := env.store.AddMember(&models.Member{StudioID: 1, Credits: 3})
	sessionID := env.store.AddSession(&models.ClassSession{StudioID: 1, Capacity: 5})
	env.actAs(staff, models.RoleStaff)

	w := env.do(t, "POST", "/api/bookings", models.BookRequest{SessionID: sessionID, MemberID: member})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestAttendanceOverHTTP(t *testing.T) {
	env := newTestEnv()
	staff := env.store.AddMember(&models.Member{StudioID: 1, Role: models.RoleStaff, Unlimited: true})
	member := env.store.AddMember(&models.Member{StudioID: 1, Credits: 2})
	sessionID := env.store.AddSession(&models.ClassSession{StudioID: 1, Capacity: 5})
	env.actAs(staff, models.RoleStaff)

	w := env.do(t, "POST", "/api/attendance", models.AddDropInRequest{SessionID: sessionID, MemberID: member})
	require.Equal(t, http.StatusCreated, w.Code)

	var addResp models.AddDropInResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &addResp))
	assert.True(t, addResp.CreditDeducted)

	w = env.do(t, "GET", "/api/sessions/1/attendance", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var register []models.AttendanceResponseItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &register))
	assert.Len(t, register, 1)

	w = env.do(t, "DELETE", "/api/attendance/"+addResp.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "DELETE", "/api/attendance/"+addResp.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionEndpoints(t *testing.T) {
	env := newTestEnv()
	staff := env.store.AddMember(&models.Member{StudioID: 1, Role: models.RoleStaff, Unlimited: true})
	env.actAs(staff, models.RoleStaff)

	w := env.do(t, "POST", "/api/sessions", map[string]interface{}{
		"title":     "Spin 45",
		"starts_at": "2026-09-10T18:00:00Z",
		"capacity":  8,
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var createResp models.CreateSessionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &createResp))
	require.NotZero(t, createResp.ID)

	w = env.do(t, "GET", "/api/sessions/1/confirmedCount", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var countResp models.ConfirmedCountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &countResp))
	assert.Equal(t, 0, countResp.ConfirmedCount)
	assert.Equal(t, 8, countResp.Capacity)

	w = env.do(t, "PATCH", "/api/sessions/1/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/api/sessions/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var sessionResp models.SessionResponseItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sessionResp))
	assert.True(t, sessionResp.Cancelled)
}

func TestAdjustCreditsEndpoint(t *testing.T) {
	env := newTestEnv()
	staff := env.store.AddMember(&models.Member{StudioID: 1, Role: models.RoleStaff, Unlimited: true})
	member := env.store.AddMember(&models.Member{StudioID: 1, Credits: 2})
	env.actAs(staff, models.RoleStaff)

	w := env.do(t, "PATCH", "/api/members/2/credits", map[string]interface{}{"credits": 10})
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.MemberResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.Credits)
	assert.Equal(t, member, resp.ID)

	w = env.do(t, "PATCH", "/api/members/2/credits", map[string]interface{}{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
