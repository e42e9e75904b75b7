package bridge

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// OutboxSize is the capacity of the outbound queue.
const OutboxSize = 256

type outboundMessage struct {
	topic   string
	payload string
}

// Outbox is the bounded outbound queue shared by the router and the
// watchdog. Producers never block; the publisher loop drains it.
type Outbox struct {
	queue chan outboundMessage
	inst  Instrumentation
}

// NewOutbox creates an Outbox with the given capacity.
func NewOutbox(size int, inst Instrumentation) *Outbox {
	if inst == nil {
		inst = noopInstrumentation{}
	}
	return &Outbox{queue: make(chan outboundMessage, size), inst: inst}
}

// TryPublish queues a message, returning ErrOutboxFull instead of blocking.
func (o *Outbox) TryPublish(topic, payload string) error {
	select {
	case o.queue <- outboundMessage{topic: topic, payload: payload}:
		return nil
	default:
		o.inst.MessageDropped()
		return ErrOutboxFull
	}
}

// Len returns the number of queued messages.
func (o *Outbox) Len() int { return len(o.queue) }

// newLimiter spaces publishes at least interval apart. A zero interval
// disables dampening.
func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// publisher drains an Outbox onto the bus.
type publisher struct {
	outbox  *Outbox
	bus     Bus
	limiter *rate.Limiter
	qos     byte
	retain  bool
	inst    Instrumentation
	logger  Logger
}

// run publishes queued messages until ctx is cancelled. Publish failures
// are logged and the message is dropped; a dead connection is reported
// by the bus's Lost channel, not here.
func (p *publisher) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-p.outbox.queue:
			if err := p.limiter.Wait(ctx); err != nil {
				return nil
			}
			if err := p.bus.Publish(msg.topic, []byte(msg.payload), p.qos, p.retain); err != nil {
				p.inst.MessageDropped()
				p.logger.Warn("publish failed, message dropped",
					"topic", msg.topic,
					"error", err,
				)
				continue
			}
			p.inst.MessagePublished()
			p.logger.Debug("published", "topic", msg.topic, "payload", msg.payload)
		}
	}
}
