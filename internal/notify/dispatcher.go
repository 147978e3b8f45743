package notify

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/eternalist/theprintfarm/internal/clients"
	"github.com/eternalist/theprintfarm/internal/metrics"
)

// Notification is one email to send. DedupKey, when set, limits delivery to a
// single attempt per key.
type Notification struct {
	Kind     Kind
	To       string
	DedupKey string
	Data     any
}

type Sender interface {
	Send(ctx context.Context, email clients.Email) error
}

type Deduper interface {
	// Claim returns true when the caller is the first to claim key.
	Claim(ctx context.Context, key string) (bool, error)
}

type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisDeduper{client: client, ttl: ttl}
}

func (d *RedisDeduper) Claim(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, "notify:"+key, time.Now().UTC().Unix(), d.ttl).Result()
}

type Config struct {
	QueueSize int
	Timeout   time.Duration
}

// Dispatcher queues notifications produced after commit. Enqueue never
// blocks; a worker drains the queue with Deliver.
type Dispatcher struct {
	queue    chan Notification
	sender   Sender
	dedup    Deduper
	renderer *Renderer
	timeout  time.Duration
	log      logrus.FieldLogger
}

// NewDispatcher builds a dispatcher. dedup may be nil.
func NewDispatcher(cfg Config, sender Sender, dedup Deduper, renderer *Renderer, log logrus.FieldLogger) *Dispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Dispatcher{
		queue:    make(chan Notification, size),
		sender:   sender,
		dedup:    dedup,
		renderer: renderer,
		timeout:  timeout,
		log:      log,
	}
}

// Enqueue reports false when the queue is full and the notification was
// dropped.
func (d *Dispatcher) Enqueue(n Notification) bool {
	if d == nil {
		return false
	}
	select {
	case d.queue <- n:
		return true
	default:
		metrics.RecordNotification(string(n.Kind), "dropped")
		d.log.WithFields(logrus.Fields{"kind": n.Kind, "to": n.To}).Warn("notification queue full, dropping")
		return false
	}
}

func (d *Dispatcher) Queue() <-chan Notification {
	return d.queue
}

// Deliver attempts one send of n. The outcome is logged and counted; errors
// never reach the caller.
func (d *Dispatcher) Deliver(ctx context.Context, n Notification) string {
	outcome := d.deliver(ctx, n)
	metrics.RecordNotification(string(n.Kind), outcome)
	return outcome
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) string {
	entry := d.log.WithFields(logrus.Fields{"kind": n.Kind, "to": n.To, "dedup_key": n.DedupKey})
	if n.To == "" {
		entry.Warn("notification without recipient")
		return "failed"
	}

	sendCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if d.dedup != nil && n.DedupKey != "" {
		first, err := d.dedup.Claim(sendCtx, n.DedupKey)
		if err != nil {
			entry.WithError(err).Error("notification dedup failed")
			return "failed"
		}
		if !first {
			entry.Debug("notification already attempted")
			return "duplicate"
		}
	}

	subject, html, err := d.renderer.Render(n.Kind, n.Data)
	if err != nil {
		entry.WithError(err).Error("notification render failed")
		return "failed"
	}

	err = d.sender.Send(sendCtx, clients.Email{To: n.To, Subject: subject, HTML: html})
	switch {
	case err == nil:
		entry.Info("notification sent")
		return "sent"
	case errors.Is(err, clients.ErrMailNotConfigured):
		entry.Warn("email service not configured, notification skipped")
		return "skipped"
	default:
		entry.WithError(err).Error("notification send failed")
		return "failed"
	}
}
