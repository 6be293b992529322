package external

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NotifyClient talks to the notification gateway that renders and delivers
// member-facing messages (email/push). The booking engine never renders
// templates itself; it hands the gateway a kind and a context payload.
type NotifyClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type NotifyConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Message kinds understood by the gateway
const (
	KindBookingConfirmed = "booking_confirmed"
	KindBookingCancelled = "booking_cancelled"
	KindWaitlistJoined   = "waitlist_joined"
	KindWaitlistPromoted = "waitlist_promoted"
	KindSessionCancelled = "session_cancelled"
	KindSessionReminder  = "session_reminder"
)

type sendMessageRequest struct {
	MemberID int64                  `json:"member_id"`
	Kind     string                 `json:"kind"`
	Context  map[string]interface{} `json:"context,omitempty"`
}

func NewNotifyClient(cfg NotifyConfig) *NotifyClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	return &NotifyClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Send queues a message for a member. Callers treat failures as
// non-critical: a lost notification never rolls back a booking.
func (nc *NotifyClient) Send(memberID int64, kind string, context map[string]interface{}) error {
	reqBody := sendMessageRequest{
		MemberID: memberID,
		Kind:     kind,
		Context:  context,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", nc.baseURL+"/v1/messages", bytes.NewBuffer(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if nc.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+nc.apiKey)
	}

	resp, err := nc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
