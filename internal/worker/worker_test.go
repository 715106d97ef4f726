package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/flight-jobs/internal/jobgen/domain"
	"github.com/cuongbtq/flight-jobs/internal/jobgen/populate"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackRecord struct {
	tag     uint64
	acked   bool
	requeue bool
}

type fakeAcknowledger struct {
	mu      sync.Mutex
	records []ackRecord
	done    chan struct{}
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{done: make(chan struct{}, 16)}
}

func (a *fakeAcknowledger) Ack(tag uint64, _ bool) error {
	a.record(ackRecord{tag: tag, acked: true})
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	a.record(ackRecord{tag: tag, requeue: requeue})
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) record(r ackRecord) {
	a.mu.Lock()
	a.records = append(a.records, r)
	a.mu.Unlock()
	a.done <- struct{}{}
}

func (a *fakeAcknowledger) wait(t *testing.T, n int) []ackRecord {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-a.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for ack %d of %d", i+1, n)
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]ackRecord, len(a.records))
	copy(out, a.records)
	return out
}

type fakeConsumer struct {
	deliveries chan amqp.Delivery
	prefetch   int
}

func (c *fakeConsumer) SetPrefetch(count int) error {
	c.prefetch = count
	return nil
}

func (c *fakeConsumer) Consume(string) (<-chan amqp.Delivery, error) {
	return c.deliveries, nil
}

type fakeOps struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (o *fakeOps) call(name string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, name)
}

func (o *fakeOps) PopulateWorld(_ context.Context, worldID string) (populate.Result, error) {
	o.call("populate:" + worldID)
	return populate.Result{WorldID: worldID, JobsCreated: 25}, o.err
}

func (o *fakeOps) RefreshStale(_ context.Context, worldID string) (populate.Result, error) {
	o.call("refresh:" + worldID)
	return populate.Result{WorldID: worldID}, o.err
}

func (o *fakeOps) CleanupExpired(_ context.Context, worldID string) (int64, error) {
	o.call("cleanup:" + worldID)
	return 4, o.err
}

func (o *fakeOps) Calls() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]string, len(o.calls))
	copy(out, o.calls)
	return out
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func commandBody(t *testing.T, op domain.RunMode, worldID string) []byte {
	t.Helper()
	body, err := json.Marshal(domain.NewCommand(op, worldID, time.Now()))
	require.NoError(t, err)
	return body
}

// startWorker runs a worker against a fake queue and stops it at test end
func startWorker(t *testing.T, ops Operations) (*fakeConsumer, *Worker) {
	t.Helper()
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery)}
	w := NewWorker(&Config{
		Logger:         discardLogger(),
		Consumer:       consumer,
		Operations:     ops,
		WorkerID:       "worker-test",
		Concurrency:    2,
		CommandTimeout: time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		w.Stop()
	})
	return consumer, w
}

func TestWorker_ProcessesCommands(t *testing.T) {
	ops := &fakeOps{}
	consumer, _ := startWorker(t, ops)
	ack := newFakeAcknowledger()

	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: commandBody(t, domain.RunModePopulate, "w1")}
	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: commandBody(t, domain.RunModeRefresh, "w2")}
	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: commandBody(t, domain.RunModeCleanup, "")}

	records := ack.wait(t, 3)
	for _, r := range records {
		assert.True(t, r.acked, "delivery %d should be acked", r.tag)
	}
	assert.ElementsMatch(t, []string{"populate:w1", "refresh:w2", "cleanup:"}, ops.Calls())
	assert.Equal(t, 2, consumer.prefetch, "prefetch defaults to concurrency")
}

func TestWorker_RejectsBadMessages(t *testing.T) {
	ops := &fakeOps{}
	consumer, _ := startWorker(t, ops)

	tests := []struct {
		name string
		body []byte
	}{
		{name: "malformed json", body: []byte("{not json")},
		{name: "invalid command id", body: []byte(`{"command_id":"abc","operation":"cleanup"}`)},
		{name: "unknown operation", body: commandBody(t, domain.RunMode("reseed"), "w1")},
		{name: "missing world", body: commandBody(t, domain.RunModePopulate, "")},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := newFakeAcknowledger()
			consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: uint64(i + 1), Body: tt.body}

			records := ack.wait(t, 1)
			require.Len(t, records, 1)
			assert.False(t, records[0].acked)
			assert.False(t, records[0].requeue)
		})
	}
	assert.Empty(t, ops.Calls())
}

func TestWorker_RequeuesFailedCommandOnce(t *testing.T) {
	ops := &fakeOps{err: errors.New("connection refused")}
	consumer, _ := startWorker(t, ops)
	body := commandBody(t, domain.RunModePopulate, "w1")

	ack := newFakeAcknowledger()
	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body}
	records := ack.wait(t, 1)
	assert.True(t, records[0].requeue)

	ack = newFakeAcknowledger()
	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 2, Body: body, Redelivered: true}
	records = ack.wait(t, 1)
	assert.False(t, records[0].requeue)
}

func TestShouldRequeue(t *testing.T) {
	transient := domain.NewRetryableError(errors.New("timeout"))

	tests := []struct {
		name        string
		err         error
		redelivered bool
		want        bool
	}{
		{name: "retryable first delivery", err: transient, want: true},
		{name: "retryable redelivered", err: transient, redelivered: true, want: false},
		{name: "wrapped retryable", err: fmt.Errorf("run: %w", transient), want: true},
		{name: "invalid command", err: fmt.Errorf("%w: bad", domain.ErrInvalidCommand), want: false},
		{name: "unknown operation", err: domain.ErrUnknownOperation, want: false},
		{name: "unclassified", err: errors.New("boom"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldRequeue(tt.err, tt.redelivered))
		})
	}
}

type fakePublisher struct {
	routingKey string
	value      any
	err        error
}

func (p *fakePublisher) PublishJSON(_ context.Context, routingKey string, v any) error {
	p.routingKey = routingKey
	p.value = v
	return p.err
}

func TestEventNotifier_BatchCommitted(t *testing.T) {
	pub := &fakePublisher{}
	n := NewEventNotifier(pub)

	event := populate.BatchEvent{RunID: "r1", WorldID: "w1", Mode: domain.RunModePopulate, Batch: 2, Airports: 500, JobsCreated: 812}
	require.NoError(t, n.BatchCommitted(context.Background(), event))
	assert.Equal(t, domain.BatchEventRoutingKey, pub.routingKey)
	assert.Equal(t, event, pub.value)

	pub.err = errors.New("channel closed")
	assert.ErrorIs(t, n.BatchCommitted(context.Background(), event), pub.err)
}
