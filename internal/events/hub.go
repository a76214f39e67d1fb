package events

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/sachio/sachio-orders-service/internal/config"
	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/models"
	"github.com/sachio/sachio-orders-service/internal/orderview"
)

// Ensure Hub implements orderview.Feed
var _ orderview.Feed = (*Hub)(nil)

// MessageReader is the subset of kafka.Reader used by consumers.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// OrderLister reads an owner's orders, newest first.
type OrderLister interface {
	ListByOwner(ctx context.Context, userID string) ([]*models.Order, error)
}

const (
	minReadBackoff = 100 * time.Millisecond
	maxReadBackoff = 5 * time.Second
)

// Hub fans order change events out to live subscriptions. On every change
// for an owner it re-reads that owner's orders and pushes the full snapshot
// to each of their subscribers.
//
// Every read is stamped from a hub-wide sequence taken before the read
// starts. A subscription ignores results older than the last one it
// accepted, so overlapping reads for the same owner cannot go backwards.
type Hub struct {
	reader MessageReader
	orders OrderLister
	logger *logging.Logger

	seq        atomic.Uint64
	minBackoff time.Duration
	maxBackoff time.Duration

	mu   sync.Mutex
	subs map[string]map[*hubSubscription]struct{}
}

// NewKafkaHub creates a hub reading the orders topic. Each instance uses
// its own consumer group so every instance sees every event.
func NewKafkaHub(cfg config.KafkaConfig, orders OrderLister, logger *logging.Logger) *Hub {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.OrdersTopic,
		GroupID:     cfg.ConsumerGroup + "-feed-" + uuid.NewString(),
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
		MaxWait:     time.Second,
	})
	return NewHub(reader, orders, logger)
}

// NewHub creates a hub over reader. A nil reader disables remote events;
// local Notify calls still reach subscribers.
func NewHub(reader MessageReader, orders OrderLister, logger *logging.Logger) *Hub {
	return &Hub{
		reader:     reader,
		orders:     orders,
		logger:     logger,
		minBackoff: minReadBackoff,
		maxBackoff: maxReadBackoff,
		subs:       make(map[string]map[*hubSubscription]struct{}),
	}
}

// Run consumes order events until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	if h.reader == nil {
		<-ctx.Done()
		return ctx.Err()
	}

	h.logger.Info("Starting order event hub")
	var backoff time.Duration
	for {
		msg, err := h.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Subscribers hear about an outage once, not on every retry.
			if backoff == 0 {
				h.logger.Error("Failed to read order event", logging.Fields{"error": err.Error()})
				h.broadcastError(err)
				backoff = h.minBackoff
			} else {
				h.logger.Debug("Order event read still failing", logging.Fields{
					"error":   err.Error(),
					"backoff": backoff.String(),
				})
				backoff *= 2
				if backoff > h.maxBackoff {
					backoff = h.maxBackoff
				}
			}

			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
			continue
		}
		if backoff != 0 {
			h.logger.Info("Order event reads recovered")
			backoff = 0
		}

		var event OrderEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			h.logger.Error("Failed to unmarshal order event", logging.Fields{"error": err.Error()})
			continue
		}
		h.Notify(ctx, event.UserID)
	}
}

// Close stops reading.
func (h *Hub) Close() error {
	if h.reader == nil {
		return nil
	}
	return h.reader.Close()
}

// Subscribe registers a subscription for userID and delivers the current
// snapshot immediately.
func (h *Hub) Subscribe(ctx context.Context, userID string) (orderview.Subscription, error) {
	sub := &hubSubscription{
		hub:       h,
		userID:    userID,
		snapshots: make(chan []*models.Order, 1),
		errs:      make(chan error, 1),
	}

	h.mu.Lock()
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[*hubSubscription]struct{})
	}
	h.subs[userID][sub] = struct{}{}
	h.mu.Unlock()

	seq := h.seq.Add(1)
	orders, err := h.orders.ListByOwner(ctx, userID)
	if err != nil {
		sub.pushError(seq, err)
	} else {
		sub.push(seq, orders)
	}

	h.logger.Debug("Order subscription opened", logging.Fields{"user_id": userID})
	return sub, nil
}

// Notify re-reads userID's orders and pushes them to that user's subscribers.
func (h *Hub) Notify(ctx context.Context, userID string) {
	subs := h.subscribers(userID)
	if len(subs) == 0 {
		return
	}

	seq := h.seq.Add(1)
	orders, err := h.orders.ListByOwner(ctx, userID)
	for _, s := range subs {
		if err != nil {
			s.pushError(seq, err)
			continue
		}
		s.push(seq, orders)
	}
}

// Subscribers reports the number of open subscriptions for userID.
func (h *Hub) Subscribers(userID string) int {
	return len(h.subscribers(userID))
}

func (h *Hub) subscribers(userID string) []*hubSubscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]*hubSubscription, 0, len(h.subs[userID]))
	for s := range h.subs[userID] {
		out = append(out, s)
	}
	return out
}

func (h *Hub) broadcastError(err error) {
	h.mu.Lock()
	all := make([]*hubSubscription, 0)
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.mu.Unlock()

	seq := h.seq.Add(1)
	for _, s := range all {
		s.pushError(seq, err)
	}
}

func (h *Hub) remove(sub *hubSubscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.subs[sub.userID]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.userID)
	}
}

type hubSubscription struct {
	hub    *Hub
	userID string

	mu        sync.Mutex
	closed    bool
	last      uint64
	snapshots chan []*models.Order
	errs      chan error
}

func (s *hubSubscription) Snapshots() <-chan []*models.Order { return s.snapshots }
func (s *hubSubscription) Errors() <-chan error              { return s.errs }

func (s *hubSubscription) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.hub.remove(s)
	return nil
}

// accept records seq as the newest result seen. It must be called with mu
// held and reports false for results older than one already accepted.
func (s *hubSubscription) accept(seq uint64) bool {
	if s.closed || seq < s.last {
		return false
	}
	s.last = seq
	return true
}

// push replaces any undelivered snapshot with snap.
func (s *hubSubscription) push(seq uint64, snap []*models.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accept(seq) {
		return
	}
	for {
		select {
		case s.snapshots <- snap:
			return
		default:
		}
		select {
		case <-s.snapshots:
		default:
		}
	}
}

func (s *hubSubscription) pushError(seq uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.accept(seq) {
		return
	}
	select {
	case s.errs <- err:
	default:
	}
}
