package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	mu        sync.Mutex
	published []amqp.Publishing
	err       error
}

func (f *fakeChannel) QueueDeclare(name string, _, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return nil, errors.New("not supported")
}

func (f *fakeChannel) Qos(int, int, bool) error { return nil }

type fakeAck struct {
	acked, nacked, requeued bool
}

func (a *fakeAck) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *fakeAck) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *fakeAck) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

type failingDeliverer struct{ err error }

func (f failingDeliverer) Deliver(context.Context, Message) error { return f.err }

func TestQueuePublisherPublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	p := &QueuePublisher{Channel: ch, Queue: "notifications"}
	require.NoError(t, p.Deliver(context.Background(), Message{Type: "callout", RecipientIDs: []string{"u-1"}}))

	require.Len(t, ch.published, 1)
	pub := ch.published[0]
	assert.Equal(t, amqp.Persistent, pub.DeliveryMode)
	assert.Equal(t, int32(1), pub.Headers[attemptHeader])
	var msg Message
	require.NoError(t, json.Unmarshal(pub.Body, &msg))
	assert.Equal(t, []string{"u-1"}, msg.RecipientIDs)
}

func delivery(t *testing.T, msg Message, attempt int32) (amqp.Delivery, *fakeAck) {
	t.Helper()
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	ack := &fakeAck{}
	return amqp.Delivery{Acknowledger: ack, Body: body, Headers: amqp.Table{attemptHeader: attempt}}, ack
}

func TestConsumerAcksDelivered(t *testing.T) {
	c := &Consumer{Channel: &fakeChannel{}, Queue: "q", Deliverer: failingDeliverer{}}
	d, ack := delivery(t, Message{Type: "callout"}, 1)
	c.handle(context.Background(), d)
	assert.True(t, ack.acked)
}

func TestConsumerRepublishesFailures(t *testing.T) {
	ch := &fakeChannel{}
	c := &Consumer{Channel: ch, Queue: "q", Deliverer: failingDeliverer{err: errors.New("mongo down")}}
	d, ack := delivery(t, Message{ID: "msg-7", Type: "callout"}, 1)
	c.handle(context.Background(), d)

	assert.True(t, ack.acked)
	require.Len(t, ch.published, 1)
	assert.Equal(t, int32(2), ch.published[0].Headers[attemptHeader])
	var again Message
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &again))
	assert.Equal(t, "msg-7", again.ID)
}

func TestConsumerDropsAfterLastAttempt(t *testing.T) {
	ch := &fakeChannel{}
	c := &Consumer{Channel: ch, Queue: "q", Deliverer: failingDeliverer{err: errors.New("mongo down")}}
	d, ack := delivery(t, Message{Type: "callout"}, maxQueueAttempts)
	c.handle(context.Background(), d)

	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued)
	assert.Empty(t, ch.published)
}

func TestConsumerRequeuesWhenRepublishFails(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	c := &Consumer{Channel: ch, Queue: "q", Deliverer: failingDeliverer{err: errors.New("mongo down")}}
	d, ack := delivery(t, Message{Type: "callout"}, 1)
	c.handle(context.Background(), d)

	assert.True(t, ack.nacked)
	assert.True(t, ack.requeued)
}

func TestConsumerDropsMalformedBodies(t *testing.T) {
	c := &Consumer{Channel: &fakeChannel{}, Queue: "q", Deliverer: failingDeliverer{}}
	ack := &fakeAck{}
	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte("{")})
	assert.True(t, ack.nacked)
	assert.False(t, ack.requeued)
}

func TestAttemptOf(t *testing.T) {
	assert.Equal(t, int32(1), attemptOf(nil))
	assert.Equal(t, int32(2), attemptOf(amqp.Table{attemptHeader: int64(2)}))
	assert.Equal(t, int32(3), attemptOf(amqp.Table{attemptHeader: int32(3)}))
}
