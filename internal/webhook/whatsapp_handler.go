package webhook

import (
	"net/http"
	"strconv"
	"time"

	"artisancrm/internal/services"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// WhatsAppWebhook represents the structure of incoming WhatsApp Business
// API webhooks: a batch of entries, each carrying changes, each carrying
// messages.
type WhatsAppWebhook struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string        `json:"field"`
			Value WebhookChange `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// WebhookChange is the payload of one change notification
type WebhookChange struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
		WaID string `json:"wa_id"`
	} `json:"contacts"`
	Messages []WebhookMessage `json:"messages"`
}

// WebhookMessage is one inbound message inside a change
type WebhookMessage struct {
	From      string `json:"from"`
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
	Text      *struct {
		Body string `json:"body"`
	} `json:"text"`
}

// WhatsAppWebhookHandler ingests inbound WhatsApp message batches
type WhatsAppWebhookHandler struct {
	messaging   *services.MessagingService
	verifyToken string
}

// NewWhatsAppWebhookHandler creates a new webhook handler
func NewWhatsAppWebhookHandler(messaging *services.MessagingService, verifyToken string) *WhatsAppWebhookHandler {
	return &WhatsAppWebhookHandler{
		messaging:   messaging,
		verifyToken: verifyToken,
	}
}

// Verify handles the provider verification handshake: echo the challenge
// when the shared verify token matches, 403 otherwise.
func (h *WhatsAppWebhookHandler) Verify(c echo.Context) error {
	mode := c.QueryParam("hub.mode")
	token := c.QueryParam("hub.verify_token")
	challenge := c.QueryParam("hub.challenge")

	if mode == "subscribe" && h.verifyToken != "" && token == h.verifyToken {
		log.Info().Msg("Webhook verification handshake accepted")
		return c.String(http.StatusOK, challenge)
	}

	log.Warn().Str("mode", mode).Msg("Webhook verification handshake rejected")
	return c.JSON(http.StatusForbidden, map[string]string{"error": "verification failed"})
}

// Receive handles an inbound message batch. Malformed items are skipped
// per-message rather than aborting the batch, and the response is always
// 200 so the provider does not retry-storm us; failures are only logged.
func (h *WhatsAppWebhookHandler) Receive(c echo.Context) error {
	var payload WhatsAppWebhook
	if err := c.Bind(&payload); err != nil {
		log.Error().Err(err).Msg("Failed to decode webhook payload")
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	}

	processed := 0
	skipped := 0

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.From == "" || msg.Text == nil || msg.Text.Body == "" {
					skipped++
					continue
				}

				phone := normalizePhone(msg.From)
				sentAt := parseTimestamp(msg.Timestamp)

				if _, err := h.messaging.ReceiveMessage(phone, msg.Text.Body, sentAt); err != nil {
					log.Error().Err(err).
						Str("phone", phone).
						Str("external_id", msg.ID).
						Msg("Failed to process inbound message")
					skipped++
					continue
				}
				processed++
			}
		}
	}

	log.Info().Int("processed", processed).Int("skipped", skipped).Msg("Webhook batch processed")
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// normalizePhone prefixes the + the provider strips from wa_id numbers
func normalizePhone(from string) string {
	if from == "" || from[0] == '+' {
		return from
	}
	return "+" + from
}

// parseTimestamp decodes the provider's unix-seconds string, falling
// back to now for missing or malformed values
func parseTimestamp(ts string) time.Time {
	secs, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || secs <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(secs, 0).UTC()
}
