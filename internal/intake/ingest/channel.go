package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"applicant-intake/internal/common/logger"
	"applicant-intake/internal/common/metrics"

	"github.com/redis/go-redis/v9"
)

// Message is one inbound post on the assistant channel.
type Message struct {
	Origin    string
	MessageID string
	Body      []byte
}

// Deduper remembers message ids for a window. FirstSeen reports true the first
// time a key is offered within the window.
type Deduper interface {
	FirstSeen(ctx context.Context, key string, window time.Duration) (bool, error)
}

// Channel is the allow-listed entry point for assistant envelopes. Only
// origins on the list may post; an empty list admits nobody.
type Channel struct {
	allowed map[string]struct{}
	window  time.Duration
	dedupe  Deduper
	log     logger.Logger
}

func NewChannel(allowedOrigins []string, window time.Duration, dedupe Deduper, log logger.Logger) *Channel {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o != "" {
			allowed[o] = struct{}{}
		}
	}
	return &Channel{
		allowed: allowed,
		window:  window,
		dedupe:  dedupe,
		log:     log.WithFields(map[string]interface{}{"component": "assistant-channel"}),
	}
}

// AllowsOrigin reports whether origin may post to the channel.
func (c *Channel) AllowsOrigin(origin string) bool {
	_, ok := c.allowed[origin]
	return ok
}

// Receive admits one message and returns its decoded envelope. Rejections are
// logged and counted here; callers decide only how to answer the sender.
func (c *Channel) Receive(ctx context.Context, msg Message) (Envelope, error) {
	env, err := c.receive(ctx, msg)
	if err != nil {
		reason := RejectionReason(err)
		if reason == "" {
			reason = "internal"
		}
		metrics.EnvelopesReceived.WithLabelValues("rejected", reason).Inc()
		c.log.Warn("assistant envelope dropped", map[string]interface{}{
			"origin":    msg.Origin,
			"messageId": msg.MessageID,
			"reason":    reason,
			"error":     err.Error(),
		})
		return Envelope{}, err
	}

	metrics.EnvelopesReceived.WithLabelValues("accepted", "").Inc()
	return env, nil
}

func (c *Channel) receive(ctx context.Context, msg Message) (Envelope, error) {
	if !c.AllowsOrigin(msg.Origin) {
		return Envelope{}, reject(ReasonOrigin, msg.Origin)
	}

	env, err := DecodeEnvelope(msg.Body)
	if err != nil {
		return Envelope{}, err
	}
	if env.BookingID == "" {
		return Envelope{}, reject(ReasonBooking, "missing")
	}

	id := msg.MessageID
	if id == "" {
		id = env.MessageID
	}
	if id != "" && c.dedupe != nil {
		first, err := c.dedupe.FirstSeen(ctx, env.BookingID+":"+id, c.window)
		if err != nil {
			// an unavailable dedupe store must not block ingestion
			c.log.Warn("dedupe check failed", map[string]interface{}{"error": err.Error()})
		} else if !first {
			return Envelope{}, reject(ReasonDuplicate, id)
		}
	}
	env.MessageID = id
	return env, nil
}

// RedisDeduper keeps message ids in Redis with SET NX PX.
type RedisDeduper struct {
	client *redis.Client
	prefix string
}

func NewRedisDeduper(client *redis.Client, prefix string) *RedisDeduper {
	return &RedisDeduper{client: client, prefix: prefix}
}

func (d *RedisDeduper) FirstSeen(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, fmt.Sprintf("%s:msg:%s", d.prefix, key), 1, window).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe setnx: %w", err)
	}
	return ok, nil
}

// MemoryDeduper is an in-process Deduper for single-instance deployments and tests.
type MemoryDeduper struct {
	mu   sync.Mutex
	seen map[string]time.Time
	now  func() time.Time
}

func NewMemoryDeduper() *MemoryDeduper {
	return &MemoryDeduper{seen: map[string]time.Time{}, now: time.Now}
}

func (d *MemoryDeduper) FirstSeen(_ context.Context, key string, window time.Duration) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for k, exp := range d.seen {
		if now.After(exp) {
			delete(d.seen, k)
		}
	}
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = now.Add(window)
	return true, nil
}
