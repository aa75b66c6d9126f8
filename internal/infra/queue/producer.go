package queue

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// Publisher is satisfied by *amqp.Channel.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// NotificationProducer is the queued notification dispatcher: the worker
// command consumes what it publishes. Delivery is never confirmed at
// response time, so Dispatch always reports false.
type NotificationProducer struct {
	Ch Publisher
}

func NewProducer(ch Publisher) *NotificationProducer {
	return &NotificationProducer{Ch: ch}
}

func (p *NotificationProducer) Dispatch(ctx context.Context, event entity.Event) bool {
	if err := p.Publish(ctx, event); err != nil {
		zap.L().Error("failed to queue lead notification",
			zap.String("email", event.Lead.Email),
			zap.String("event", string(event.Kind)),
			zap.Error(err),
		)
	}
	return false
}

func (p *NotificationProducer) Publish(ctx context.Context, event entity.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return eris.Wrap(err, "rabbitmq: marshal event")
	}

	err = p.Ch.PublishWithContext(context.WithoutCancel(ctx),
		ExchangeName,
		RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         string(event.Kind),
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return eris.Wrap(err, "rabbitmq: publish")
	}
	return nil
}
