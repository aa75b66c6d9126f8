package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakePublisher struct {
	exchange, key string
	msg           amqp.Publishing
	err           error
}

func (p *fakePublisher) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	p.exchange, p.key, p.msg = exchange, key, msg
	return p.err
}

type fakeAcknowledger struct {
	acked, nacked, requeued bool
}

func (a *fakeAcknowledger) Ack(uint64, bool) error { a.acked = true; return nil }
func (a *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}
func (a *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Execute(ctx context.Context, event entity.Event) usecase.Delivery {
	return m.Called(ctx, event).Get(0).(usecase.Delivery)
}

type fakeConsumer struct {
	ch chan amqp.Delivery
}

func (c *fakeConsumer) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return c.ch, nil
}

type recordingDeclarer struct {
	exchanges []string
	queues    map[string]amqp.Table
	bindings  []string
}

func (r *recordingDeclarer) ExchangeDeclare(name, _ string, _, _, _, _ bool, _ amqp.Table) error {
	r.exchanges = append(r.exchanges, name)
	return nil
}

func (r *recordingDeclarer) QueueDeclare(name string, _, _, _, _ bool, args amqp.Table) (amqp.Queue, error) {
	if r.queues == nil {
		r.queues = map[string]amqp.Table{}
	}
	r.queues[name] = args
	return amqp.Queue{Name: name}, nil
}

func (r *recordingDeclarer) QueueBind(name, key, exchange string, _ bool, _ amqp.Table) error {
	r.bindings = append(r.bindings, exchange+"->"+name+":"+key)
	return nil
}

func sampleEvent() entity.Event {
	lead := entity.NewLead(entity.LeadInput{Name: "Ana", Email: "ana@x.com"}, time.Now())
	return entity.Event{Kind: entity.EventLeadCreated, Lead: *lead, Meta: entity.EventMeta{Source: "web"}}
}

func TestSetupTopology_DeadLettersMainQueue(t *testing.T) {
	d := &recordingDeclarer{}
	require.NoError(t, setupTopology(d))

	assert.ElementsMatch(t, []string{DLXName, ExchangeName}, d.exchanges)
	assert.Equal(t, DLXName, d.queues[QueueName]["x-dead-letter-exchange"])
	assert.Nil(t, d.queues[DLQName])
	assert.Contains(t, d.bindings, ExchangeName+"->"+QueueName+":"+RoutingKey)
	assert.Contains(t, d.bindings, DLXName+"->"+DLQName+":"+RoutingKey)
}

func TestProducer_PublishesPersistentEvent(t *testing.T) {
	pub := &fakePublisher{}
	p := NewProducer(pub)

	notified := p.Dispatch(context.Background(), sampleEvent())

	assert.False(t, notified)
	assert.Equal(t, ExchangeName, pub.exchange)
	assert.Equal(t, RoutingKey, pub.key)
	assert.Equal(t, amqp.Persistent, pub.msg.DeliveryMode)
	assert.Equal(t, "lead.created", pub.msg.Type)

	var ev entity.Event
	require.NoError(t, json.Unmarshal(pub.msg.Body, &ev))
	assert.Equal(t, "ana@x.com", ev.Lead.Email)
}

func TestProducer_PublishErrorIsAbsorbed(t *testing.T) {
	p := NewProducer(&fakePublisher{err: errors.New("channel closed")})
	assert.False(t, p.Dispatch(context.Background(), sampleEvent()))
	assert.Error(t, p.Publish(context.Background(), sampleEvent()))
}

func TestWorker_HandleAcksAfterNotify(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("Execute", mock.Anything, mock.MatchedBy(func(e entity.Event) bool {
		return e.Lead.Email == "ana@x.com"
	})).Return(usecase.Delivery{Reason: usecase.ReasonEmailNotConfigured})

	body, _ := json.Marshal(sampleEvent())
	ack := &fakeAcknowledger{}
	NewWorker(nil, notifier).handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: body})

	assert.True(t, ack.acked)
	assert.False(t, ack.nacked)
	notifier.AssertExpectations(t)
}

func TestWorker_HandleDeadLettersMalformed(t *testing.T) {
	notifier := new(MockNotifier)

	for _, body := range []string{`{not json`, `{"event":"lead.deleted","lead":{}}`} {
		ack := &fakeAcknowledger{}
		NewWorker(nil, notifier).handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte(body)})
		assert.True(t, ack.nacked, body)
		assert.False(t, ack.requeued, body)
	}
	notifier.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestWorker_StartStopsOnContext(t *testing.T) {
	notifier := new(MockNotifier)
	notifier.On("Execute", mock.Anything, mock.Anything).Return(usecase.Delivery{Delivered: true})

	consumer := &fakeConsumer{ch: make(chan amqp.Delivery, 1)}
	body, _ := json.Marshal(sampleEvent())
	ack := &fakeAcknowledger{}
	consumer.ch <- amqp.Delivery{Acknowledger: ack, Body: body}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewWorker(consumer, notifier).Start(ctx, QueueName) }()

	require.Eventually(t, func() bool { return len(notifier.Calls) == 1 }, time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestWorker_StartReportsClosedChannel(t *testing.T) {
	consumer := &fakeConsumer{ch: make(chan amqp.Delivery)}
	close(consumer.ch)
	err := NewWorker(consumer, new(MockNotifier)).Start(context.Background(), QueueName)
	assert.Error(t, err)
}
