package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sachio/sachio-orders-service/internal/logging"
	"github.com/sachio/sachio-orders-service/internal/models"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

type chanReader struct {
	msgs chan kafka.Message
}

func newChanReader() *chanReader {
	return &chanReader{msgs: make(chan kafka.Message, 8)}
}

func (r *chanReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	case m := <-r.msgs:
		return m, nil
	}
}

func (r *chanReader) Close() error { return nil }

type fakeLister struct {
	mu     sync.Mutex
	orders map[string][]*models.Order
	err    error
	calls  int
}

func (l *fakeLister) ListByOwner(_ context.Context, userID string) ([]*models.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return nil, l.err
	}
	return l.orders[userID], nil
}

func (l *fakeLister) set(userID string, orders ...*models.Order) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.orders[userID] = orders
}

type fakeConfirmer struct {
	mu    sync.Mutex
	calls []string
	done  chan struct{}
}

func (f *fakeConfirmer) ConfirmPayment(_ context.Context, userID, reference string) (*models.Order, error) {
	f.mu.Lock()
	f.calls = append(f.calls, userID+"/"+reference)
	f.mu.Unlock()
	f.done <- struct{}{}
	return &models.Order{ID: "ord_1", UserID: userID, Status: "paid", PaymentReference: reference}, nil
}

func testLogger() *logging.Logger { return logging.NewLogger("events-test") }

func TestKafkaPublisher_PublishOrderStatusChanged(t *testing.T) {
	w := &recordingWriter{}
	p := NewPublisher(w, testLogger())

	order := &models.Order{ID: "o1", UserID: "u1", Status: "dispatched"}
	require.NoError(t, p.PublishOrderStatusChanged(context.Background(), order, "paid"))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "u1", string(w.msgs[0].Key))

	var event OrderEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, EventTypeOrderStatusChanged, event.Type)
	assert.Equal(t, "o1", event.OrderID)
	assert.Equal(t, "paid", event.PreviousStatus)
	assert.Equal(t, "dispatched", event.Status)
	assert.NotEmpty(t, event.ID)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := NewPublisher(w, testLogger())

	err := p.PublishOrderCreated(context.Background(), &models.Order{ID: "o1", UserID: "u1"})
	assert.Error(t, err)
}

func receive(t *testing.T, ch <-chan []*models.Order) []*models.Order {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
		return nil
	}
}

func TestHub_SubscribeDeliversInitialSnapshot(t *testing.T) {
	lister := &fakeLister{orders: map[string][]*models.Order{}}
	lister.set("u1", &models.Order{ID: "o1", UserID: "u1", Status: "paid"})
	hub := NewHub(nil, lister, testLogger())

	sub, err := hub.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	defer sub.Close()

	snap := receive(t, sub.Snapshots())
	require.Len(t, snap, 1)
	assert.Equal(t, "o1", snap[0].ID)
}

func TestHub_NotifyIsLatestWins(t *testing.T) {
	lister := &fakeLister{orders: map[string][]*models.Order{}}
	hub := NewHub(nil, lister, testLogger())

	sub, err := hub.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	defer sub.Close()

	lister.set("u1", &models.Order{ID: "o1", UserID: "u1", Status: "paid"})
	hub.Notify(context.Background(), "u1")
	lister.set("u1", &models.Order{ID: "o1", UserID: "u1", Status: "dispatched"})
	hub.Notify(context.Background(), "u1")

	snap := receive(t, sub.Snapshots())
	require.Len(t, snap, 1)
	assert.Equal(t, "dispatched", snap[0].Status)
}

func TestHub_NotifyOnlyReachesOwner(t *testing.T) {
	lister := &fakeLister{orders: map[string][]*models.Order{}}
	hub := NewHub(nil, lister, testLogger())

	sub, err := hub.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	defer sub.Close()
	receive(t, sub.Snapshots())

	hub.Notify(context.Background(), "u2")

	select {
	case <-sub.Snapshots():
		t.Fatal("unexpected snapshot for other user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_ListErrorIsReported(t *testing.T) {
	lister := &fakeLister{orders: map[string][]*models.Order{}}
	hub := NewHub(nil, lister, testLogger())

	sub, err := hub.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	defer sub.Close()
	receive(t, sub.Snapshots())

	lister.mu.Lock()
	lister.err = errors.New("db down")
	lister.mu.Unlock()
	hub.Notify(context.Background(), "u1")

	select {
	case err := <-sub.Errors():
		assert.EqualError(t, err, "db down")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for error")
	}
}

func TestHub_CloseUnregisters(t *testing.T) {
	lister := &fakeLister{orders: map[string][]*models.Order{}}
	hub := NewHub(nil, lister, testLogger())

	sub, err := hub.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, hub.Subscribers("u1"))

	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())
	assert.Equal(t, 0, hub.Subscribers("u1"))

	calls := lister.calls
	hub.Notify(context.Background(), "u1")
	assert.Equal(t, calls, lister.calls)
}

func TestHub_RunNotifiesFromKafka(t *testing.T) {
	lister := &fakeLister{orders: map[string][]*models.Order{}}
	reader := newChanReader()
	hub := NewHub(reader, lister, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	sub, err := hub.Subscribe(ctx, "u1")
	require.NoError(t, err)
	defer sub.Close()
	receive(t, sub.Snapshots())

	lister.set("u1", &models.Order{ID: "o9", UserID: "u1", Status: "in_transit"})
	data, _ := json.Marshal(OrderEvent{Type: EventTypeOrderStatusChanged, OrderID: "o9", UserID: "u1"})
	reader.msgs <- kafka.Message{Value: data}

	snap := receive(t, sub.Snapshots())
	require.Len(t, snap, 1)
	assert.Equal(t, "in_transit", snap[0].Status)
}

// gatedLister serves the subscribe read, then holds the next read until
// released, then answers every later read with the newest state.
type gatedLister struct {
	mu      sync.Mutex
	calls   int
	entered chan struct{}
	release chan struct{}
}

func (l *gatedLister) ListByOwner(_ context.Context, userID string) ([]*models.Order, error) {
	l.mu.Lock()
	l.calls++
	n := l.calls
	l.mu.Unlock()

	switch n {
	case 1:
		return []*models.Order{{ID: "o1", UserID: userID, Status: "paid"}}, nil
	case 2:
		l.entered <- struct{}{}
		<-l.release
		return []*models.Order{{ID: "o1", UserID: userID, Status: "processing"}}, nil
	default:
		return []*models.Order{{ID: "o1", UserID: userID, Status: "delivered"}}, nil
	}
}

func TestHub_OverlappingNotifyKeepsNewest(t *testing.T) {
	lister := &gatedLister{entered: make(chan struct{}), release: make(chan struct{})}
	hub := NewHub(nil, lister, testLogger())

	sub, err := hub.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	defer sub.Close()
	receive(t, sub.Snapshots())

	slowDone := make(chan struct{})
	go func() {
		hub.Notify(context.Background(), "u1")
		close(slowDone)
	}()
	<-lister.entered

	hub.Notify(context.Background(), "u1")
	snap := receive(t, sub.Snapshots())
	require.Len(t, snap, 1)
	assert.Equal(t, "delivered", snap[0].Status)

	close(lister.release)
	<-slowDone

	select {
	case snap := <-sub.Snapshots():
		t.Fatalf("older snapshot delivered after newer one: %s", snap[0].Status)
	case <-time.After(50 * time.Millisecond):
	}
}

type failingReader struct {
	mu    sync.Mutex
	calls int
}

func (r *failingReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if ctx.Err() != nil {
		return kafka.Message{}, ctx.Err()
	}
	return kafka.Message{}, errors.New("broker unavailable")
}

func (r *failingReader) Close() error { return nil }

func TestHub_RunBacksOffOnReadErrors(t *testing.T) {
	lister := &fakeLister{orders: map[string][]*models.Order{}}
	reader := &failingReader{}
	hub := NewHub(reader, lister, testLogger())
	hub.minBackoff = 20 * time.Millisecond
	hub.maxBackoff = 40 * time.Millisecond

	sub, err := hub.Subscribe(context.Background(), "u1")
	require.NoError(t, err)
	defer sub.Close()
	receive(t, sub.Snapshots())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	err = hub.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	reader.mu.Lock()
	calls := reader.calls
	reader.mu.Unlock()
	assert.GreaterOrEqual(t, calls, 2)
	assert.LessOrEqual(t, calls, 10)

	select {
	case err := <-sub.Errors():
		assert.EqualError(t, err, "broker unavailable")
	default:
		t.Fatal("subscriber was not told about the outage")
	}
}

func TestPaymentConsumer_ConfirmsSuccessfulCharge(t *testing.T) {
	reader := newChanReader()
	confirmer := &fakeConfirmer{done: make(chan struct{}, 1)}
	consumer := NewPaymentConsumer(reader, confirmer, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go consumer.Start(ctx)

	failed, _ := json.Marshal(PaymentEvent{Type: PaymentEventFailed, Reference: "ref_0", UserID: "u1"})
	ok, _ := json.Marshal(PaymentEvent{Type: PaymentEventSucceeded, Reference: "ref_1", UserID: "u1"})
	reader.msgs <- kafka.Message{Value: failed}
	reader.msgs <- kafka.Message{Value: ok}

	select {
	case <-confirmer.done:
	case <-time.After(time.Second):
		t.Fatal("payment was not confirmed")
	}

	confirmer.mu.Lock()
	defer confirmer.mu.Unlock()
	assert.Equal(t, []string{"u1/ref_1"}, confirmer.calls)
}
