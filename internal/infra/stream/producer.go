package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"github.com/segmentio/kafka-go"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

const (
	ChannelName  = "kafka"
	DefaultTopic = "leads.events"
)

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes lead events keyed by email so every event for one lead
// lands on the same partition.
type Producer struct {
	writer MessageWriter
}

func NewProducer(brokers []string, topic string) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	return NewProducerWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	})
}

func NewProducerWithWriter(w MessageWriter) *Producer {
	return &Producer{writer: w}
}

func (p *Producer) Name() string { return ChannelName }

func (p *Producer) Deliver(ctx context.Context, event entity.Event) usecase.ChannelResult {
	if err := p.Publish(ctx, event); err != nil {
		return usecase.ChannelResult{Error: err.Error()}
	}
	return usecase.ChannelResult{Success: true}
}

func (p *Producer) Publish(ctx context.Context, event entity.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return eris.Wrap(err, "kafka: marshal event")
	}

	msg := kafka.Message{
		Key:   []byte(event.Lead.Email),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event.Kind)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return eris.Wrap(err, "kafka: write message")
	}
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
