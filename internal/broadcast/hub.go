// Package broadcast fans change events out to connected viewers.
//
// Every registered session owns a bounded queue drained by its own
// goroutine. Publish only enqueues, so a slow or broken viewer never delays
// other viewers or the mutating caller. Delivery is at-most-once and
// best-effort: a full queue drops the event for that viewer, and a failed
// send removes the viewer unless it is a persistent session.
package broadcast

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"barsync/internal/model"

	"github.com/rs/zerolog"
)

// Session is one connected viewer.
type Session interface {
	// ID identifies the session within the hub.
	ID() string

	// Send delivers one serialized event. A non-nil error means the viewer
	// is gone.
	Send(ctx context.Context, payload []byte) error

	// Close releases the underlying transport.
	Close() error
}

// PersistentSession is implemented by sessions the hub must keep after a
// failed send, such as process-owned sinks that nothing would register
// again. The failed event is still dropped.
type PersistentSession interface {
	Session
	Persistent() bool
}

func isPersistent(s Session) bool {
	p, ok := s.(PersistentSession)
	return ok && p.Persistent()
}

// Options tunes per-viewer delivery.
type Options struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// DefaultOptions returns the delivery settings used when none are given.
func DefaultOptions() Options {
	return Options{
		QueueSize:    16,
		WriteTimeout: 5 * time.Second,
	}
}

type subscriber struct {
	session Session
	queue   chan []byte
	done    chan struct{}
	once    sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Hub is the registry of live viewer sessions.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]*subscriber
	closed      bool

	wg     sync.WaitGroup
	opts   Options
	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(opts Options, logger zerolog.Logger) *Hub {
	defaults := DefaultOptions()
	if opts.QueueSize < 1 {
		opts.QueueSize = defaults.QueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaults.WriteTimeout
	}

	return &Hub{
		subscribers: make(map[string]*subscriber),
		opts:        opts,
		logger:      logger.With().Str("component", "broadcast-hub").Logger(),
	}
}

// Register adds a viewer. It only receives events published after this call.
// Registering an already registered session is a no-op.
func (h *Hub) Register(s Session) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.logger.Warn().Str("session_id", s.ID()).Msg("hub closed, rejecting session")
		_ = s.Close()
		return
	}
	if _, exists := h.subscribers[s.ID()]; exists {
		h.mu.Unlock()
		return
	}

	sub := &subscriber{
		session: s,
		queue:   make(chan []byte, h.opts.QueueSize),
		done:    make(chan struct{}),
	}
	h.subscribers[s.ID()] = sub
	count := len(h.subscribers)
	h.wg.Add(1)
	h.mu.Unlock()

	go h.pump(sub)

	h.logger.Info().
		Str("session_id", s.ID()).
		Int("viewers", count).
		Msg("viewer registered")
}

// Unregister removes a viewer. It is safe to call for sessions that were
// never registered or are already gone. The caller keeps ownership of the
// session's transport.
func (h *Hub) Unregister(s Session) {
	if h.remove(s.ID(), nil) {
		h.logger.Info().Str("session_id", s.ID()).Msg("viewer unregistered")
	}
}

// Publish queues the event for every registered viewer and returns without
// waiting for delivery.
func (h *Hub) Publish(ev model.ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error().Err(err).Str("event_type", string(ev.Type)).Msg("failed to encode change event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, sub := range h.subscribers {
		select {
		case sub.queue <- payload:
		default:
			h.logger.Warn().
				Str("session_id", id).
				Str("event_type", string(ev.Type)).
				Str("error_code", model.ErrCodeDeliveryFailure).
				Msg("viewer queue full, event dropped")
		}
	}

	h.logger.Debug().
		Str("event_type", string(ev.Type)).
		Str("id", ev.ID).
		Int("viewers", len(h.subscribers)).
		Msg("change event published")
}

// Len returns the number of registered viewers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close unregisters and closes every session and waits for their delivery
// goroutines to exit. Later registrations are rejected.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*subscriber, 0, len(h.subscribers))
	for id, sub := range h.subscribers {
		subs = append(subs, sub)
		delete(h.subscribers, id)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
		if err := sub.session.Close(); err != nil {
			h.logger.Debug().Err(err).Str("session_id", sub.session.ID()).Msg("failed to close session")
		}
	}
	h.wg.Wait()

	h.logger.Info().Int("viewers", len(subs)).Msg("broadcast hub closed")
}

// remove deletes the subscriber for id. If only is non-nil the entry is
// removed only while it still belongs to that subscriber.
func (h *Hub) remove(id string, only *subscriber) bool {
	h.mu.Lock()
	sub, ok := h.subscribers[id]
	if ok && (only == nil || sub == only) {
		delete(h.subscribers, id)
	} else {
		ok = false
	}
	h.mu.Unlock()

	if ok {
		sub.stop()
	}
	return ok
}

func (h *Hub) pump(sub *subscriber) {
	defer h.wg.Done()

	for {
		select {
		case <-sub.done:
			return
		case payload := <-sub.queue:
			// Unregister wins over anything still queued.
			select {
			case <-sub.done:
				return
			default:
			}

			if err := h.deliver(sub.session, payload); err != nil {
				if isPersistent(sub.session) {
					h.logger.Warn().
						Err(err).
						Str("session_id", sub.session.ID()).
						Str("error_code", model.ErrCodeDeliveryFailure).
						Msg("delivery failed, event dropped")
					continue
				}
				h.logger.Warn().
					Err(err).
					Str("session_id", sub.session.ID()).
					Str("error_code", model.ErrCodeDeliveryFailure).
					Msg("delivery failed, dropping viewer")
				h.remove(sub.session.ID(), sub)
				_ = sub.session.Close()
				return
			}
		}
	}
}

func (h *Hub) deliver(s Session, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.opts.WriteTimeout)
	defer cancel()
	return s.Send(ctx, payload)
}
