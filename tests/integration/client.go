package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"studiobook/internal/models"
)

// TestClient drives a running stack (api + Postgres + NATS) over HTTP.
// Every request authenticates with the client's identity via Basic Auth.
type TestClient struct {
	BaseURL    string
	HTTPClient *http.Client
	email      string
	password   string
}

func NewTestClient(baseURL, email, password string) *TestClient {
	return &TestClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		email:    email,
		password: password,
	}
}

// As returns a client with the same target but a different identity.
func (c *TestClient) As(email, password string) *TestClient {
	return NewTestClient(c.BaseURL, email, password)
}

// requireStack skips the test unless a live stack is configured.
func requireStack(t *testing.T) *TestClient {
	t.Helper()

	baseURL := os.Getenv("STUDIOBOOK_TEST_URL")
	if baseURL == "" {
		t.Skip("STUDIOBOOK_TEST_URL not set, skipping integration test")
	}

	staffEmail := os.Getenv("STUDIOBOOK_TEST_STAFF_EMAIL")
	if staffEmail == "" {
		staffEmail = "staff@demo.studio"
	}
	staffPassword := os.Getenv("STUDIOBOOK_TEST_STAFF_PASSWORD")
	if staffPassword == "" {
		staffPassword = "staffpass123"
	}

	return NewTestClient(baseURL, staffEmail, staffPassword)
}

func (c *TestClient) makeRequest(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("Failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(c.email, c.password)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

func (c *TestClient) expect(t *testing.T, resp *http.Response, status int, out interface{}) {
	t.Helper()
	defer resp.Body.Close()

	if resp.StatusCode != status {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d. Body: %s", status, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("Failed to decode response: %v", err)
		}
	}
}

// CreateMember registers a member via the staff identity.
func (c *TestClient) CreateMember(t *testing.T, req models.CreateMemberRequest) int64 {
	var out models.CreateMemberResponse
	c.expect(t, c.makeRequest(t, "POST", "/api/members", req), http.StatusCreated, &out)
	return out.ID
}

// GetMember fetches a member with the current balance.
func (c *TestClient) GetMember(t *testing.T, id int64) models.MemberResponse {
	var out models.MemberResponse
	c.expect(t, c.makeRequest(t, "GET", fmt.Sprintf("/api/members/%d", id), nil), http.StatusOK, &out)
	return out
}

// CreateSession schedules a session via the staff identity.
func (c *TestClient) CreateSession(t *testing.T, req models.CreateSessionRequest) int64 {
	var out models.CreateSessionResponse
	c.expect(t, c.makeRequest(t, "POST", "/api/sessions", req), http.StatusCreated, &out)
	return out.ID
}

// Book creates a booking and returns the resulting status.
func (c *TestClient) Book(t *testing.T, sessionID, memberID int64) models.BookResponse {
	var out models.BookResponse
	req := models.BookRequest{SessionID: sessionID, MemberID: memberID}
	c.expect(t, c.makeRequest(t, "POST", "/api/bookings", req), http.StatusCreated, &out)
	return out
}

// BookExpectStatus asserts the HTTP status of a booking attempt.
func (c *TestClient) BookExpectStatus(t *testing.T, sessionID, memberID int64, status int) {
	c.expect(t, c.makeRequest(t, "POST", "/api/bookings",
		models.BookRequest{SessionID: sessionID, MemberID: memberID}), status, nil)
}

// Cancel cancels a booking.
func (c *TestClient) Cancel(t *testing.T, sessionID, memberID int64) models.CancelResponse {
	var out models.CancelResponse
	req := models.BookRequest{SessionID: sessionID, MemberID: memberID}
	c.expect(t, c.makeRequest(t, "PATCH", "/api/bookings/cancel", req), http.StatusOK, &out)
	return out
}

// Rebook reactivates a cancelled booking.
func (c *TestClient) Rebook(t *testing.T, sessionID, memberID int64) models.BookResponse {
	var out models.BookResponse
	req := models.BookRequest{SessionID: sessionID, MemberID: memberID}
	c.expect(t, c.makeRequest(t, "PATCH", "/api/bookings/rebook", req), http.StatusOK, &out)
	return out
}

// LeaveWaitlist abandons a waitlist spot.
func (c *TestClient) LeaveWaitlist(t *testing.T, sessionID, memberID int64) models.CancelResponse {
	var out models.CancelResponse
	req := models.BookRequest{SessionID: sessionID, MemberID: memberID}
	c.expect(t, c.makeRequest(t, "PATCH", "/api/bookings/leaveWaitlist", req), http.StatusOK, &out)
	return out
}

// ConfirmedCount reads a session's confirmed seat count.
func (c *TestClient) ConfirmedCount(t *testing.T, sessionID int64) models.ConfirmedCountResponse {
	var out models.ConfirmedCountResponse
	path := fmt.Sprintf("/api/sessions/%d/confirmedCount", sessionID)
	c.expect(t, c.makeRequest(t, "GET", path, nil), http.StatusOK, &out)
	return out
}

// AddDropIn records walk-in attendance via the staff identity.
func (c *TestClient) AddDropIn(t *testing.T, sessionID, memberID int64) models.AddDropInResponse {
	var out models.AddDropInResponse
	req := models.AddDropInRequest{SessionID: sessionID, MemberID: memberID}
	c.expect(t, c.makeRequest(t, "POST", "/api/attendance", req), http.StatusCreated, &out)
	return out
}

// RemoveDropIn deletes a drop-in record.
func (c *TestClient) RemoveDropIn(t *testing.T, id string) {
	c.expect(t, c.makeRequest(t, "DELETE", "/api/attendance/"+id, nil), http.StatusOK, nil)
}
