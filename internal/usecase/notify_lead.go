package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	ChannelEmail = "email"

	ReasonEmailNotConfigured = "email not configured"
	ReasonInvalidEvent       = "invalid event"

	defaultSideChannelTimeout = 30 * time.Second
)

// NotifyLeadUseCase fans an event out to the email channel and every side
// channel. It never returns an error: each failure is logged and folded into
// the result of the channel that produced it.
type NotifyLeadUseCase struct {
	Email              EmailChannel
	SideChannels       []SideChannel
	Metrics            Metrics
	SideChannelTimeout time.Duration

	inflight sync.WaitGroup
}

func NewNotifyLeadUseCase(email EmailChannel, metrics Metrics, side ...SideChannel) *NotifyLeadUseCase {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &NotifyLeadUseCase{
		Email:              email,
		SideChannels:       side,
		Metrics:            metrics,
		SideChannelTimeout: defaultSideChannelTimeout,
	}
}

// Execute starts the side channels detached and then sends the email. The
// returned Delivery reflects the email channel only.
func (uc *NotifyLeadUseCase) Execute(ctx context.Context, event entity.Event) Delivery {
	if !event.Kind.Valid() || event.Lead.Email == "" {
		zap.L().Warn("notification event rejected",
			zap.String("event", string(event.Kind)),
			zap.String("email", event.Lead.Email),
		)
		return Delivery{Reason: ReasonInvalidEvent}
	}

	for _, ch := range uc.SideChannels {
		uc.inflight.Add(1)
		go uc.runSideChannel(context.WithoutCancel(ctx), ch, event)
	}

	return uc.sendEmail(ctx, event)
}

// Wait blocks until every detached side channel has finished.
func (uc *NotifyLeadUseCase) Wait() {
	uc.inflight.Wait()
}

func (uc *NotifyLeadUseCase) sendEmail(ctx context.Context, event entity.Event) (d Delivery) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("email channel panicked", zap.Any("panic", r))
			uc.Metrics.Notification(ChannelEmail, "failed")
			d = Delivery{Reason: fmt.Sprint(r)}
		}
	}()

	if uc.Email == nil || !uc.Email.Configured() {
		zap.L().Warn("email not configured, skipping notification", zap.String("email", event.Lead.Email))
		uc.Metrics.Notification(ChannelEmail, "skipped")
		return Delivery{Reason: ReasonEmailNotConfigured}
	}

	if err := uc.Email.Send(ctx, event); err != nil {
		zap.L().Error("failed to send lead notification",
			zap.String("email", event.Lead.Email),
			zap.String("event", string(event.Kind)),
			zap.Error(err),
		)
		uc.Metrics.Notification(ChannelEmail, "failed")
		return Delivery{Reason: err.Error()}
	}

	zap.L().Info("lead notification sent",
		zap.String("email", event.Lead.Email),
		zap.String("event", string(event.Kind)),
	)
	uc.Metrics.Notification(ChannelEmail, "delivered")
	return Delivery{Delivered: true}
}

func (uc *NotifyLeadUseCase) runSideChannel(ctx context.Context, ch SideChannel, event entity.Event) {
	defer uc.inflight.Done()
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("side channel panicked", zap.String("channel", ch.Name()), zap.Any("panic", r))
			uc.Metrics.Notification(ch.Name(), "failed")
		}
	}()

	timeout := uc.SideChannelTimeout
	if timeout <= 0 {
		timeout = defaultSideChannelTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res := ch.Deliver(ctx, event)
	if !res.Success {
		zap.L().Warn("side channel failed",
			zap.String("channel", ch.Name()),
			zap.String("email", event.Lead.Email),
			zap.String("error", res.Error),
		)
		uc.Metrics.Notification(ch.Name(), "failed")
		return
	}
	zap.L().Debug("side channel delivered", zap.String("channel", ch.Name()), zap.String("email", event.Lead.Email))
	uc.Metrics.Notification(ch.Name(), "delivered")
}
