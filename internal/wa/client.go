package wa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chefbot/internal/metrics"
)

// Client sends messages through the WhatsApp Cloud API on behalf of a
// restaurant's phone number id.
type Client struct {
	logger  *slog.Logger
	baseURL string
	token   string
	http    *http.Client
	metrics *metrics.Metrics
}

// Config holds configuration for the Cloud API sender.
type Config struct {
	GraphBaseURL string
	Token        string
	Timeout      time.Duration
}

// New creates a new Cloud API client.
func New(cfg Config, logger *slog.Logger, metrics *metrics.Metrics) *Client {
	base := strings.TrimRight(cfg.GraphBaseURL, "/")
	if base == "" {
		base = "https://graph.facebook.com/v17.0"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		logger:  logger.With("component", "wa"),
		baseURL: base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		metrics: metrics,
	}
}

type textPayload struct {
	Body string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Text             textPayload `json:"text"`
}

// SendText posts a plain-text message to the recipient through the channel
// identified by channelID (the WhatsApp phone number id).
func (c *Client) SendText(ctx context.Context, channelID, to, body string) error {
	payload := sendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Text:             textPayload{Body: body},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		c.count("marshal_error")
		return fmt.Errorf("marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, channelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		c.count("build_error")
		return fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.count("transport_error")
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.count(fmt.Sprintf("http_%d", resp.StatusCode))
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("send message failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	c.count("ok")
	c.logger.Debug("message sent", "to", to, "channel_id", channelID)
	return nil
}

func (c *Client) count(status string) {
	if c.metrics == nil {
		return
	}
	c.metrics.OutgoingMessages.WithLabelValues(status).Inc()
}
