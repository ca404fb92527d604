package whatsapp

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrNotConfigured is returned when the client has no credentials.
// Local persistence still happens; only the external send is skipped.
var ErrNotConfigured = errors.New("whatsapp: client not configured")

// Client represents a WhatsApp Business API client
type Client struct {
	baseURL     string
	accessToken string
	phoneID     string
	httpClient  *http.Client
}

// NewClient creates a new WhatsApp Business API client.
// baseURL defaults to the Meta Graph API when empty.
func NewClient(baseURL, accessToken, phoneID string) *Client {
	if baseURL == "" {
		baseURL = "https://graph.facebook.com/v18.0"
	}
	return &Client{
		baseURL:     baseURL,
		accessToken: accessToken,
		phoneID:     phoneID,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Configured reports whether the client has credentials to send with
func (c *Client) Configured() bool {
	return c.accessToken != "" && c.phoneID != ""
}

// SendMessageRequest represents a message send request
type SendMessageRequest struct {
	MessagingProduct string    `json:"messaging_product"`
	RecipientType    string    `json:"recipient_type"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             *TextBody `json:"text,omitempty"`
}

// TextBody represents text message content
type TextBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// SendMessageResponse represents the API response
type SendMessageResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendTextMessage sends a text message and returns the provider message ID.
// One bounded attempt, no retry: delivery failures are the caller's to log.
func (c *Client) SendTextMessage(to, content string) (*string, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	request := SendMessageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text: &TextBody{
			PreviewURL: true,
			Body:       content,
		},
	}

	return c.sendMessage(request)
}

func (c *Client) sendMessage(request SendMessageRequest) (*string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Error().
			Int("status", resp.StatusCode).
			Str("to", request.To).
			Str("body", string(respBody)).
			Msg("WhatsApp API returned error")
		return nil, fmt.Errorf("whatsapp API error: status %d", resp.StatusCode)
	}

	var response SendMessageResponse
	if err := json.Unmarshal(respBody, &response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(response.Messages) == 0 {
		return nil, fmt.Errorf("whatsapp API returned no message ID")
	}

	return &response.Messages[0].ID, nil
}
