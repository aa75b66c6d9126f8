package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

// Consumer is satisfied by *amqp.Channel.
type Consumer interface {
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

type LeadNotifier interface {
	Execute(ctx context.Context, event entity.Event) usecase.Delivery
}

type Worker struct {
	Channel  Consumer
	Notifier LeadNotifier
}

func NewWorker(ch Consumer, notifier LeadNotifier) *Worker {
	return &Worker{
		Channel:  ch,
		Notifier: notifier,
	}
}

// Start consumes until ctx is done or the delivery channel closes.
func (w *Worker) Start(ctx context.Context, queueName string) error {
	msgs, err := w.Channel.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return eris.Wrap(err, "rabbitmq: register consumer")
	}

	zap.L().Info("notification worker waiting for messages", zap.String("queue", queueName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return eris.New("rabbitmq: delivery channel closed")
			}
			w.handle(ctx, d)
		}
	}
}

// handle acks every well-formed event once the notifier has run; notifier
// outcomes are best-effort and never requeued. Malformed messages are
// rejected without requeue so they land in the dead-letter queue.
func (w *Worker) handle(ctx context.Context, d amqp.Delivery) {
	var event entity.Event
	if err := json.Unmarshal(d.Body, &event); err != nil || !event.Kind.Valid() {
		zap.L().Warn("malformed notification message, dead-lettering", zap.Error(err), zap.String("type", d.Type))
		d.Nack(false, false)
		return
	}

	res := w.Notifier.Execute(ctx, event)
	zap.L().Info("notification processed",
		zap.String("email", event.Lead.Email),
		zap.String("event", string(event.Kind)),
		zap.Bool("delivered", res.Delivered),
		zap.String("reason", res.Reason),
	)
	d.Ack(false)
}
