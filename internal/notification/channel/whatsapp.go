package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/stockflow/stockflow-backend/internal/notification/repository"
	"github.com/stockflow/stockflow-backend/pkg/config"
	"github.com/stockflow/stockflow-backend/pkg/errors"
	"github.com/stockflow/stockflow-backend/pkg/logger"
)

// WhatsApp sends messages through a WhatsApp Business API gateway
type WhatsApp struct {
	cfg    config.WhatsAppConfig
	client *http.Client
	logger *logger.Logger
}

// NewWhatsApp creates the WhatsApp channel
func NewWhatsApp(cfg config.WhatsAppConfig, log *logger.Logger) *WhatsApp {
	return &WhatsApp{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log,
	}
}

// Name returns the channel name
func (c *WhatsApp) Name() string {
	return repository.ChannelWhatsApp
}

type whatsappPayload struct {
	To   string       `json:"to"`
	Type string       `json:"type"`
	Text whatsappText `json:"text"`
}

type whatsappText struct {
	Body string `json:"body"`
}

// Send posts the message to the gateway. An unconfigured channel fails
// without any network I/O.
func (c *WhatsApp) Send(ctx context.Context, n *repository.Notification) error {
	if !c.cfg.Enabled() {
		return errors.New("WHATSAPP_DISABLED", "whatsapp channel is not configured", 503)
	}
	if n.Recipient == nil || *n.Recipient == "" {
		return errors.BadRequest("notification has no recipient phone number")
	}

	payload := whatsappPayload{
		To:   *n.Recipient,
		Type: "text",
		Text: whatsappText{Body: fmt.Sprintf("*StockFlow Pro*\n\n%s", n.Message)},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal whatsapp payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build whatsapp request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp gateway returned %d: %s", resp.StatusCode, respBody)
	}

	c.logger.Info().Str("notification_id", n.ID).Msg("whatsapp message sent")
	return nil
}
