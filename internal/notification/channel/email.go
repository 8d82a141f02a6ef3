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

// Email sends messages through a transactional email API
type Email struct {
	cfg    config.EmailConfig
	client *http.Client
	logger *logger.Logger
}

// NewEmail creates the email channel
func NewEmail(cfg config.EmailConfig, log *logger.Logger) *Email {
	return &Email{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log,
	}
}

// Name returns the channel name
func (c *Email) Name() string {
	return repository.ChannelEmail
}

type emailPayload struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Send posts the email to the API. An unconfigured channel fails without
// any network I/O.
func (c *Email) Send(ctx context.Context, n *repository.Notification) error {
	if !c.cfg.Enabled() {
		return errors.New("EMAIL_DISABLED", "email channel is not configured", 503)
	}
	if n.Recipient == nil || *n.Recipient == "" {
		return errors.BadRequest("notification has no recipient address")
	}

	payload := emailPayload{
		From:    c.cfg.Sender,
		To:      *n.Recipient,
		Subject: n.Title,
		Text:    n.Message,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("email API returned %d: %s", resp.StatusCode, respBody)
	}

	c.logger.Info().Str("notification_id", n.ID).Msg("email sent")
	return nil
}
