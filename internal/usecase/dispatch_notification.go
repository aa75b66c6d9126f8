package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

// AsyncDispatcher runs the notifier in-process on a detached goroutine and
// waits at most AwaitTimeout for the email outcome.
type AsyncDispatcher struct {
	Notifier     *NotifyLeadUseCase
	AwaitTimeout time.Duration

	inflight sync.WaitGroup
}

func NewAsyncDispatcher(notifier *NotifyLeadUseCase, awaitTimeout time.Duration) *AsyncDispatcher {
	return &AsyncDispatcher{Notifier: notifier, AwaitTimeout: awaitTimeout}
}

func (d *AsyncDispatcher) Dispatch(ctx context.Context, event entity.Event) bool {
	result := make(chan Delivery, 1)

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		result <- d.Notifier.Execute(context.WithoutCancel(ctx), event)
	}()

	if d.AwaitTimeout <= 0 {
		return false
	}
	timer := time.NewTimer(d.AwaitTimeout)
	defer timer.Stop()

	select {
	case res := <-result:
		return res.Delivered
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Wait blocks until every dispatched notification, side channels included,
// has finished. Used on shutdown.
func (d *AsyncDispatcher) Wait() {
	d.inflight.Wait()
	d.Notifier.Wait()
}
