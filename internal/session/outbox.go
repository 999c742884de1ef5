package session

import (
	"context"
	"sync"
)

type delivery struct {
	to  Notifier
	msg Message
}

// outbox delivers messages in the order they were queued from a single
// goroutine, so publishing never happens under the table lock
type outbox struct {
	s      *Session
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	queue  []delivery
	signal chan struct{}
}

func newOutbox(s *Session) *outbox {
	ctx, cancel := context.WithCancel(context.Background())
	return &outbox{
		s:      s,
		ctx:    ctx,
		cancel: cancel,
		signal: make(chan struct{}, 1),
	}
}

func (o *outbox) enqueue(to Notifier, msg Message) {
	o.mu.Lock()
	o.queue = append(o.queue, delivery{to: to, msg: msg})
	o.mu.Unlock()

	select {
	case o.signal <- struct{}{}:
	default:
	}
}

// close stops delivery without waiting, since it may be reached from a
// notifier running on the outbox goroutine itself
func (o *outbox) close() {
	o.cancel()
}

func (o *outbox) run() {
	for {
		select {
		case <-o.ctx.Done():
			return
		case <-o.signal:
		}

		for {
			o.mu.Lock()
			if len(o.queue) == 0 {
				o.mu.Unlock()
				break
			}
			d := o.queue[0]
			o.queue = o.queue[1:]
			o.mu.Unlock()

			if !o.deliver(d) {
				return
			}
		}
	}
}

// deliver publishes one message, retrying the same message on failure. It
// returns false once the outbox is closed.
func (o *outbox) deliver(d delivery) bool {
	for attempt := 1; ; attempt++ {
		err := d.to.Publish(o.ctx, d.msg)
		if err == nil {
			return true
		}
		if o.ctx.Err() != nil {
			return false
		}

		o.s.metrics.PublishFailed()
		if attempt >= o.s.retryAttempts {
			o.s.logger.Warn("Dropping message after retries", "type", d.msg.Type, "attempts", attempt, "error", err)
			return true
		}
		o.s.logger.Debug("Publish failed, retrying", "type", d.msg.Type, "attempt", attempt, "error", err)

		timer := o.s.clock.NewTimer(o.s.retryDelay, "session", "retry")
		select {
		case <-o.ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
	}
}
