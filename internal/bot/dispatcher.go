package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chefbot/internal/cache"
	"chefbot/internal/metrics"
	"chefbot/internal/repo"
	"chefbot/internal/wa"
)

const (
	// UnsupportedTypeNotice is sent back for any non-text message.
	UnsupportedTypeNotice = "Sorry, I can only understand text messages right now! 📱"
	// FallbackReply is substituted when generation fails.
	FallbackReply = "Sorry, I'm having trouble right now. Please try again! 🤖"

	defaultMenuCacheTTL = 5 * time.Minute
)

// Generator produces a reply for the latest user message.
type Generator interface {
	GenerateReply(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Sender delivers outbound text through a restaurant's channel.
type Sender interface {
	SendText(ctx context.Context, channelID, to, body string) error
}

// Dispatcher processes inbound webhook events: parse, classify, generate,
// relay. All faults on this path are absorbed here; nothing propagates to
// the webhook response.
type Dispatcher struct {
	store   repo.Store
	llm     Generator
	sender  Sender
	cache   *cache.Redis
	metrics *metrics.Metrics
	logger  *slog.Logger
	menuTTL time.Duration
}

// Config tunes dispatcher behaviour.
type Config struct {
	MenuCacheTTL time.Duration
}

// New creates a Dispatcher. The redis cache is optional.
func New(store repo.Store, llm Generator, sender Sender, redis *cache.Redis, metricRegistry *metrics.Metrics, logger *slog.Logger, cfg Config) *Dispatcher {
	ttl := cfg.MenuCacheTTL
	if ttl <= 0 {
		ttl = defaultMenuCacheTTL
	}
	return &Dispatcher{
		store:   store,
		llm:     llm,
		sender:  sender,
		cache:   redis,
		metrics: metricRegistry,
		logger:  logger.With("component", "dispatcher"),
		menuTTL: ttl,
	}
}

// ProcessEvent implements wa.EventProcessor.
func (d *Dispatcher) ProcessEvent(ctx context.Context, payload json.RawMessage) {
	var event wa.WebhookPayload
	if err := json.Unmarshal(payload, &event); err != nil {
		d.logger.Error("malformed webhook payload", "error", err)
		d.countIncoming("malformed")
		return
	}

	if len(event.Entry) == 0 || len(event.Entry[0].Changes) == 0 {
		d.logger.Warn("webhook event missing entry changes")
		d.countIncoming("malformed")
		return
	}

	value := event.Entry[0].Changes[0].Value
	if len(value.Messages) == 0 {
		d.logger.Debug("no messages in webhook data")
		d.countIncoming("empty")
		return
	}

	msg := value.Messages[0]
	channelID := value.Metadata.PhoneNumberID
	d.countIncoming(msg.Type)

	tenant, items := d.resolveTenant(ctx, channelID)

	if msg.Type != "text" || msg.Text == nil {
		d.logger.Info("unsupported message type", "type", msg.Type, "from", msg.From)
		d.send(ctx, channelID, msg.From, UnsupportedTypeNotice)
		return
	}

	userText := msg.Text.Body
	d.logger.Info("message received", "from", msg.From, "channel_id", channelID)

	reply, err := d.llm.GenerateReply(ctx, SystemPrompt(tenant, items), userText)
	if err != nil {
		d.logger.Error("reply generation failed", "error", err, "from", msg.From)
		if d.metrics != nil {
			d.metrics.Errors.WithLabelValues("generate").Inc()
		}
		reply = FallbackReply
	}

	d.send(ctx, channelID, msg.From, reply)
	d.audit(ctx, tenant, msg.From, userText, reply)
}

// resolveTenant maps the receiving phone number id to a restaurant and its
// available menu. Misses and inactive tenants resolve to nil, which selects
// the generic prompt.
func (d *Dispatcher) resolveTenant(ctx context.Context, channelID string) (*repo.Tenant, []repo.MenuItem) {
	if channelID == "" {
		return nil, nil
	}

	type cached struct {
		Tenant repo.Tenant     `json:"tenant"`
		Items  []repo.MenuItem `json:"items"`
	}
	key := menuCacheKey(channelID)

	if d.cache != nil {
		var c cached
		ok, err := d.cache.GetJSON(ctx, key, &c)
		if err != nil {
			d.logger.Warn("menu cache read failed", "error", err)
		} else if ok {
			return &c.Tenant, c.Items
		}
	}

	tenant, err := d.store.GetTenantByChannelID(ctx, channelID)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			d.logger.Error("tenant lookup failed", "error", err, "channel_id", channelID)
			if d.metrics != nil {
				d.metrics.Errors.WithLabelValues("tenant_lookup").Inc()
			}
		}
		return nil, nil
	}
	if !tenant.Active {
		return nil, nil
	}

	items, err := d.store.ListAvailableMenuItems(ctx, tenant.ID)
	if err != nil {
		d.logger.Error("menu lookup failed", "error", err, "tenant_id", tenant.ID)
		items = nil
	}

	if d.cache != nil {
		// Credentials stay out of the cache.
		entry := cached{Tenant: *tenant, Items: items}
		entry.Tenant.SecretHash = ""
		if err := d.cache.SetJSON(ctx, key, entry, d.menuTTL); err != nil {
			d.logger.Warn("menu cache write failed", "error", err)
		}
	}
	return tenant, items
}

func (d *Dispatcher) send(ctx context.Context, channelID, to, body string) {
	// Fire and forget: delivery failures are logged, never retried.
	if err := d.sender.SendText(ctx, channelID, to, body); err != nil {
		d.logger.Error("message delivery failed", "error", err, "to", to)
		if d.metrics != nil {
			d.metrics.Errors.WithLabelValues("relay").Inc()
		}
	}
}

func (d *Dispatcher) audit(ctx context.Context, tenant *repo.Tenant, sender, message, reply string) {
	entry := repo.OrderLogEntry{Sender: sender, Message: message, Reply: reply}
	if tenant != nil {
		entry.TenantID = tenant.ID
	}
	if err := d.store.InsertOrderLog(ctx, entry); err != nil {
		d.logger.Warn("order log write failed", "error", err)
		if d.metrics != nil {
			d.metrics.Errors.WithLabelValues("order_log").Inc()
		}
	}
}

func (d *Dispatcher) countIncoming(kind string) {
	if d.metrics != nil {
		d.metrics.IncomingMessages.WithLabelValues(kind).Inc()
	}
}

func menuCacheKey(channelID string) string {
	return fmt.Sprintf("chefbot:menu:%s", channelID)
}

// InvalidateMenuCache drops the cached tenant menu for a channel. Admin
// writes call this so prompt data never lags more than one request behind.
func InvalidateMenuCache(ctx context.Context, redis *cache.Redis, channelID string) error {
	if redis == nil || channelID == "" {
		return nil
	}
	return redis.Delete(ctx, menuCacheKey(channelID))
}
