package usecase

import (
	"context"

	"github.com/xavierca1/ligue-leads/internal/classifier"
	"github.com/xavierca1/ligue-leads/internal/entity"
)

type LeadClassifier interface {
	Classify(ctx context.Context, message string) classifier.Result
}

type LeadStore interface {
	Execute(ctx context.Context, input entity.LeadInput) (*UpsertLeadOutput, error)
}

// NotificationDispatcher hands an event to the notifier without blocking the
// caller for longer than its own await budget. It reports whether the email
// leg was already confirmed.
type NotificationDispatcher interface {
	Dispatch(ctx context.Context, event entity.Event) bool
}

type EmailChannel interface {
	Configured() bool
	Send(ctx context.Context, event entity.Event) error
}

// SideChannel is a best-effort destination that never affects Delivery.
type SideChannel interface {
	Name() string
	Deliver(ctx context.Context, event entity.Event) ChannelResult
}

type Metrics interface {
	LeadUpserted(status entity.UpsertStatus)
	LeadClassified(category entity.Category, source string)
	Notification(channel, outcome string)
}

type noopMetrics struct{}

func (noopMetrics) LeadUpserted(entity.UpsertStatus)       {}
func (noopMetrics) LeadClassified(entity.Category, string) {}
func (noopMetrics) Notification(string, string)            {}
