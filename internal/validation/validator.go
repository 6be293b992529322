package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"studiobook/internal/models"
)

// APIValidator smoke-checks a running instance end to end: it drives a
// member and a session through the booking lifecycle over the real HTTP
// surface and verifies the contract at each step. Run with `api validate`
// against a development instance; it creates throwaway data.
type APIValidator struct {
	baseURL       string
	staffEmail    string
	staffPassword string

	memberEmail    string
	memberPassword string
	memberID       int64
	sessionID      int64
}

func NewAPIValidator(baseURL, staffEmail, staffPassword string) *APIValidator {
	return &APIValidator{
		baseURL:        baseURL,
		staffEmail:     staffEmail,
		staffPassword:  staffPassword,
		memberPassword: "validate-pass-123",
	}
}

// ValidateAll runs every check in order. Later checks depend on the data
// earlier ones created.
func (v *APIValidator) ValidateAll() error {
	log.Println("Starting API validation...")

	if err := v.validateMembers(); err != nil {
		return fmt.Errorf("members validation failed: %w", err)
	}

	if err := v.validateSessions(); err != nil {
		return fmt.Errorf("sessions validation failed: %w", err)
	}

	if err := v.validateBookings(); err != nil {
		return fmt.Errorf("bookings validation failed: %w", err)
	}

	if err := v.validateAttendance(); err != nil {
		return fmt.Errorf("attendance validation failed: %w", err)
	}

	log.Println("All endpoints validated successfully")
	return nil
}

func (v *APIValidator) validateMembers() error {
	log.Println("Checking members endpoints...")

	v.memberEmail = fmt.Sprintf("validate-%d@example.test", time.Now().UnixNano())

	createReq := models.CreateMemberRequest{
		StudioID:  1,
		Email:     v.memberEmail,
		Password:  v.memberPassword,
		FirstName: "Validation",
		Surname:   "Probe",
		Credits:   5,
	}

	resp, err := v.staffRequest("POST", "/api/members", createReq)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST /api/members: expected 201, got %d", resp.StatusCode)
	}

	var createResp models.CreateMemberResponse
	if err := json.NewDecoder(resp.Body).Decode(&createResp); err != nil {
		return fmt.Errorf("POST /api/members: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if createResp.ID == 0 {
		return fmt.Errorf("POST /api/members: expected non-zero ID")
	}
	v.memberID = createResp.ID

	resp, err = v.staffRequest("GET", fmt.Sprintf("/api/members/%d", v.memberID), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /api/members/:id: expected 200, got %d", resp.StatusCode)
	}

	var memberResp models.MemberResponse
	if err := json.NewDecoder(resp.Body).Decode(&memberResp); err != nil {
		return fmt.Errorf("GET /api/members/:id: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if memberResp.Credits != 5 {
		return fmt.Errorf("GET /api/members/:id: expected 5 credits, got %d", memberResp.Credits)
	}

	log.Println("Members endpoints OK")
	return nil
}

func (v *APIValidator) validateSessions() error {
	log.Println("Checking sessions endpoints...")

	createReq := models.CreateSessionRequest{
		Title:    "Validation Session",
		StartsAt: time.Now().Add(48 * time.Hour),
		Capacity: 2,
	}

	resp, err := v.staffRequest("POST", "/api/sessions", createReq)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST /api/sessions: expected 201, got %d", resp.StatusCode)
	}

	var createResp models.CreateSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&createResp); err != nil {
		return fmt.Errorf("POST /api/sessions: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if createResp.ID == 0 {
		return fmt.Errorf("POST /api/sessions: expected non-zero ID")
	}
	v.sessionID = createResp.ID

	resp, err = v.staffRequest("GET", "/api/sessions?page=1&pageSize=20", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /api/sessions: expected 200, got %d", resp.StatusCode)
	}

	var listResp []models.SessionResponseItem
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return fmt.Errorf("GET /api/sessions: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if len(listResp) == 0 {
		return fmt.Errorf("GET /api/sessions: expected non-empty list")
	}

	log.Println("Sessions endpoints OK")
	return nil
}

func (v *APIValidator) validateBookings() error {
	log.Println("Checking bookings endpoints...")

	bookReq := models.BookRequest{SessionID: v.sessionID, MemberID: v.memberID}

	resp, err := v.memberRequest("POST", "/api/bookings", bookReq)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST /api/bookings: expected 201, got %d", resp.StatusCode)
	}

	var bookResp models.BookResponse
	if err := json.NewDecoder(resp.Body).Decode(&bookResp); err != nil {
		return fmt.Errorf("POST /api/bookings: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if bookResp.Status != models.BookingConfirmed {
		return fmt.Errorf("POST /api/bookings: expected CONFIRMED, got %s", bookResp.Status)
	}

	// A second booking for the same pair must conflict
	resp, err = v.memberRequest("POST", "/api/bookings", bookReq)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		return fmt.Errorf("POST /api/bookings (duplicate): expected 409, got %d", resp.StatusCode)
	}

	resp, err = v.staffRequest("GET", fmt.Sprintf("/api/sessions/%d/confirmedCount", v.sessionID), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /api/sessions/:id/confirmedCount: expected 200, got %d", resp.StatusCode)
	}

	var countResp models.ConfirmedCountResponse
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return fmt.Errorf("GET confirmedCount: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if countResp.ConfirmedCount != 1 {
		return fmt.Errorf("GET confirmedCount: expected 1, got %d", countResp.ConfirmedCount)
	}

	resp, err = v.memberRequest("PATCH", "/api/bookings/cancel", bookReq)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("PATCH /api/bookings/cancel: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = v.memberRequest("PATCH", "/api/bookings/rebook", bookReq)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("PATCH /api/bookings/rebook: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = v.memberRequest("GET", "/api/bookings", nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /api/bookings: expected 200, got %d", resp.StatusCode)
	}

	var listResp []models.ListBookingsResponseItem
	if err := json.NewDecoder(resp.Body).Decode(&listResp); err != nil {
		return fmt.Errorf("GET /api/bookings: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if len(listResp) == 0 {
		return fmt.Errorf("GET /api/bookings: expected non-empty list")
	}

	log.Println("Bookings endpoints OK")
	return nil
}

func (v *APIValidator) validateAttendance() error {
	log.Println("Checking attendance endpoints...")

	// The validation member holds a confirmed booking here, so use a fresh
	// member for the drop-in
	createReq := models.CreateMemberRequest{
		StudioID:  1,
		Email:     fmt.Sprintf("validate-dropin-%d@example.test", time.Now().UnixNano()),
		Password:  v.memberPassword,
		FirstName: "DropIn",
		Surname:   "Probe",
		Credits:   1,
	}

	resp, err := v.staffRequest("POST", "/api/members", createReq)
	if err != nil {
		return err
	}
	var memberResp models.CreateMemberResponse
	if err := json.NewDecoder(resp.Body).Decode(&memberResp); err != nil {
		return fmt.Errorf("POST /api/members: failed to decode response: %w", err)
	}
	resp.Body.Close()

	addReq := models.AddDropInRequest{SessionID: v.sessionID, MemberID: memberResp.ID}

	resp, err = v.staffRequest("POST", "/api/attendance", addReq)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("POST /api/attendance: expected 201, got %d", resp.StatusCode)
	}

	var addResp models.AddDropInResponse
	if err := json.NewDecoder(resp.Body).Decode(&addResp); err != nil {
		return fmt.Errorf("POST /api/attendance: failed to decode response: %w", err)
	}
	resp.Body.Close()

	if !addResp.CreditDeducted {
		return fmt.Errorf("POST /api/attendance: expected a credit deduction")
	}

	resp, err = v.staffRequest("GET", fmt.Sprintf("/api/sessions/%d/attendance", v.sessionID), nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET /api/sessions/:id/attendance: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp, err = v.staffRequest("DELETE", "/api/attendance/"+addResp.ID, nil)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("DELETE /api/attendance/:id: expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	log.Println("Attendance endpoints OK")
	return nil
}

func (v *APIValidator) staffRequest(method, path string, body interface{}) (*http.Response, error) {
	return v.makeRequest(method, path, body, v.staffEmail, v.staffPassword)
}

func (v *APIValidator) memberRequest(method, path string, body interface{}) (*http.Response, error) {
	return v.makeRequest(method, path, body, v.memberEmail, v.memberPassword)
}

func (v *APIValidator) makeRequest(method, path string, body interface{}, email, password string) (*http.Response, error) {
	var buf *bytes.Buffer

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		buf = bytes.NewBuffer(jsonBody)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, v.baseURL+path, buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(email, password)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}

	return resp, nil
}

// RunValidation drives the validator against a local instance.
func RunValidation() {
	baseURL := os.Getenv("VALIDATE_BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8081"
	}

	staffEmail := os.Getenv("VALIDATE_STAFF_EMAIL")
	if staffEmail == "" {
		staffEmail = "staff@demo.studio"
	}
	staffPassword := os.Getenv("VALIDATE_STAFF_PASSWORD")
	if staffPassword == "" {
		staffPassword = "staffpass123"
	}

	validator := NewAPIValidator(baseURL, staffEmail, staffPassword)
	if err := validator.ValidateAll(); err != nil {
		log.Fatalf("Validation failed: %v", err)
	}
}
