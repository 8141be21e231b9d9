package wa

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"chefbot/internal/metrics"
)

// WebhookPayload mirrors the Cloud API event envelope.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry is one account-level entry in a webhook delivery.
type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

// Change wraps the changed value inside an entry.
type Change struct {
	Field string `json:"field"`
	Value Value  `json:"value"`
}

// Value carries the messages and routing metadata of a change.
type Value struct {
	MessagingProduct string    `json:"messaging_product"`
	Metadata         Metadata  `json:"metadata"`
	Messages         []Message `json:"messages"`
}

// Metadata identifies the receiving channel.
type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// Message is a single inbound message.
type Message struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text *Text  `json:"text"`
}

// Text is the body of a text message.
type Text struct {
	Body string `json:"body"`
}

// EventProcessor handles parsed webhook deliveries. Implementations absorb
// their own failures; the webhook must acknowledge regardless of outcome.
type EventProcessor interface {
	ProcessEvent(ctx context.Context, payload json.RawMessage)
}

// WebhookHandler serves Meta's webhook verification handshake and inbound
// message deliveries.
type WebhookHandler struct {
	logger      *slog.Logger
	metrics     *metrics.Metrics
	verifyToken string
	processor   EventProcessor
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(logger *slog.Logger, metrics *metrics.Metrics, verifyToken string, processor EventProcessor) *WebhookHandler {
	return &WebhookHandler{
		logger:      logger.With("component", "webhook"),
		metrics:     metrics,
		verifyToken: verifyToken,
		processor:   processor,
	}
}

// ServeHTTP satisfies http.Handler.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleVerification(w, r)
	case http.MethodPost:
		h.handleDelivery(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *WebhookHandler) handleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && tokenMatches(token, h.verifyToken) {
		h.logger.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}

	h.logger.Warn("webhook verification failed", "mode", mode)
	if h.metrics != nil {
		h.metrics.WebhookEvents.WithLabelValues("verify_failed").Inc()
	}
	http.Error(w, "verification failed", http.StatusForbidden)
}

func (h *WebhookHandler) handleDelivery(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		if h.metrics != nil {
			h.metrics.Errors.WithLabelValues("webhook").Inc()
		}
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if h.processor != nil {
		h.processor.ProcessEvent(r.Context(), body)
	}
	if h.metrics != nil {
		h.metrics.WebhookEvents.WithLabelValues("received").Inc()
	}

	// Meta only needs to know the event was received; downstream failures
	// must not trigger redelivery storms.
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func tokenMatches(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
