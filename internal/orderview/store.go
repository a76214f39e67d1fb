package orderview

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/models"
)

// Subscription is a push stream of full order snapshots for one owner.
// Every snapshot replaces the previous one.
type Subscription interface {
	Snapshots() <-chan []*models.Order
	Errors() <-chan error
	Close() error
}

// Feed opens owner-scoped live subscriptions, newest order first.
type Feed interface {
	Subscribe(ctx context.Context, userID string) (Subscription, error)
}

// View is the last derived state of a Store.
type View struct {
	Groups    Groups `json:"groups"`
	Badge     int    `json:"badge"`
	Stale     bool   `json:"stale"`
	LastError string `json:"last_error,omitempty"`
	Version   uint64 `json:"version"`
}

// Store owns a viewer's live order subscription and the last known good view
// derived from it. A subscription error marks the view stale but never
// clears it.
type Store struct {
	feed       Feed
	viewer     Viewer
	classifier *Classifier
	logger     *logging.Logger

	mu          sync.RWMutex
	view        View
	fingerprint string
	started     bool
	stopped     bool

	sub     Subscription
	cancel  context.CancelFunc
	done    chan struct{}
	changes chan struct{}
	stopOne sync.Once
}

// NewStore creates a store for viewer. Call Start to begin receiving.
func NewStore(feed Feed, viewer Viewer) *Store {
	return &Store{
		feed:       feed,
		viewer:     viewer,
		classifier: NewClassifier(),
		logger:     logging.NewLogger("order-view-store").With(logging.Fields{"user_id": viewer.ID}),
		view:       View{Groups: GroupWith(nil, nil)},
		done:       make(chan struct{}),
		changes:    make(chan struct{}, 1),
	}
}

// Start subscribes to the viewer's orders.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started || s.stopped {
		s.mu.Unlock()
		return fmt.Errorf("orderview: store already started")
	}
	s.started = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	sub, err := s.feed.Subscribe(ctx, s.viewer.ID)
	if err != nil {
		cancel()
		close(s.done)
		return err
	}

	s.sub = sub
	s.cancel = cancel
	go s.run(ctx)

	s.logger.Debug("Order subscription started")
	return nil
}

// Stop unsubscribes and waits for the delivery goroutine to exit. No
// snapshot alters the view once Stop returns. Safe to call more than once.
func (s *Store) Stop() {
	s.stopOne.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.mu.Unlock()

		if s.cancel == nil {
			return
		}
		s.cancel()
		if err := s.sub.Close(); err != nil {
			s.logger.Warn("Failed to close order subscription", logging.Fields{"error": err.Error()})
		}
		<-s.done
		s.logger.Debug("Order subscription stopped")
	})
}

// View returns a copy of the current view.
func (s *Store) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.view
}

// Changes signals after the view changes. Signals coalesce.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

// Done is closed when the delivery goroutine has exited.
func (s *Store) Done() <-chan struct{} {
	return s.done
}

func (s *Store) run(ctx context.Context) {
	defer close(s.done)

	snapshots := s.sub.Snapshots()
	errs := s.sub.Errors()

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-snapshots:
			if !ok {
				s.fail(fmt.Errorf("orderview: subscription closed"))
				return
			}
			s.apply(snap)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.fail(err)
		}
	}
}

func (s *Store) apply(snap []*models.Order) {
	fp := fingerprint(snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if fp != "" && fp == s.fingerprint && !s.view.Stale {
		return
	}

	s.classifier.Retain(snap)
	s.fingerprint = fp
	s.view = View{
		Groups:  GroupWith(s.classifier, snap),
		Badge:   BadgeCount(snap, s.viewer.ID),
		Version: s.view.Version + 1,
	}
	s.notify()
}

func (s *Store) fail(err error) {
	s.logger.Warn("Order subscription error, keeping last view", logging.Fields{"error": err.Error()})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	s.view.Stale = true
	s.view.LastError = err.Error()
	s.view.Version++
	s.notify()
}

// notify must be called with mu held.
func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func fingerprint(snap []*models.Order) string {
	b, err := json.Marshal(snap)
	if err != nil {
		return ""
	}
	return string(b)
}
