package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jeevanpath/backend/pkg/config"
	"github.com/jeevanpath/backend/pkg/retry"
	"github.com/rs/zerolog/log"
)

const defaultWhatsAppBaseURL = "https://graph.facebook.com/v18.0"

// WhatsAppChannel delivers alert notices to providers over the WhatsApp Cloud API.
// The Cloud API has no voice calls, so Call sends an urgent text instead.
type WhatsAppChannel struct {
	accessToken   string
	phoneNumberID string
	httpClient    *http.Client
	baseURL       string
	retryCfg      retry.Config
}

// NewWhatsAppChannel creates a WhatsApp channel from contact configuration
func NewWhatsAppChannel(cfg config.ContactConfig) (*WhatsAppChannel, error) {
	if cfg.WhatsAppAccessToken == "" || cfg.WhatsAppPhoneNumberID == "" {
		return nil, fmt.Errorf("WHATSAPP_ACCESS_TOKEN and WHATSAPP_PHONE_NUMBER_ID must be set")
	}

	return &WhatsAppChannel{
		accessToken:   cfg.WhatsAppAccessToken,
		phoneNumberID: cfg.WhatsAppPhoneNumberID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL:  defaultWhatsAppBaseURL,
		retryCfg: retry.QuickConfig(),
	}, nil
}

// WhatsAppTextMessage represents a plain text message
type WhatsAppTextMessage struct {
	MessagingProduct string           `json:"messaging_product"`
	RecipientType    string           `json:"recipient_type"`
	To               string           `json:"to"`
	Type             string           `json:"type"`
	Text             WhatsAppTextBody `json:"text"`
}

// WhatsAppTextBody represents the text body
type WhatsAppTextBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

// WhatsAppResponse represents the API response
type WhatsAppResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Contacts         []struct {
		Input string `json:"input"`
		WaID  string `json:"wa_id"`
	} `json:"contacts"`
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// Call places an urgent text in place of a voice call.
func (w *WhatsAppChannel) Call(ctx context.Context, phone, message string) bool {
	return w.deliver(ctx, "call", phone, "URGENT: "+message)
}

// SendSMS sends the message as a WhatsApp text.
func (w *WhatsAppChannel) SendSMS(ctx context.Context, phone, message string) bool {
	return w.deliver(ctx, "sms", phone, message)
}

func (w *WhatsAppChannel) deliver(ctx context.Context, kind, phone, message string) bool {
	to := normalizePhone(phone)
	if to == "" {
		log.Warn().Str("kind", kind).Msg("whatsapp delivery skipped: empty phone number")
		return false
	}

	var messageID string
	err := retry.DoWithLog(ctx, w.retryCfg, "whatsapp "+kind, func() error {
		id, err := w.SendText(ctx, to, message)
		if err != nil {
			return err
		}
		messageID = id
		return nil
	}, func(attempt int, err error, next time.Duration) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", next).Str("kind", kind).Msg("whatsapp send failed, retrying")
	})
	if err != nil {
		log.Error().Err(err).Str("kind", kind).Msg("whatsapp delivery failed")
		return false
	}

	log.Debug().Str("kind", kind).Str("message_id", messageID).Msg("whatsapp message sent")
	return true
}

// SendText sends a plain text message and returns the WhatsApp message id
func (w *WhatsAppChannel) SendText(ctx context.Context, to, body string) (string, error) {
	message := WhatsAppTextMessage{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text: WhatsAppTextBody{
			PreviewURL: false,
			Body:       body,
		},
	}

	return w.sendMessage(ctx, message)
}

func (w *WhatsAppChannel) sendMessage(ctx context.Context, message interface{}) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", w.baseURL, w.phoneNumberID)

	jsonData, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+w.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("WhatsApp API error (status %d): %s", resp.StatusCode, string(body))
	}

	var whatsappResp WhatsAppResponse
	if err := json.Unmarshal(body, &whatsappResp); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(whatsappResp.Messages) > 0 {
		return whatsappResp.Messages[0].ID, nil
	}

	return "", fmt.Errorf("no message ID in response")
}

// normalizePhone strips formatting so the Cloud API receives digits only.
func normalizePhone(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
