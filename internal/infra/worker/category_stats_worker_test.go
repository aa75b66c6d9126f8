package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeCounter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *fakeCounter) CountByCategory(context.Context) (map[entity.Category]int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return map[entity.Category]int64{entity.CategoryComplaint: int64(c.calls)}, nil
}

type published struct {
	mu   sync.Mutex
	last map[entity.Category]int64
	n    int
}

func (p *published) set(m map[entity.Category]int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last, p.n = m, p.n+1
}

func (p *published) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func TestCategoryStatsWorker_RefreshesUntilCancelled(t *testing.T) {
	counter := &fakeCounter{}
	pub := &published{}
	w := NewCategoryStatsWorker(counter, pub.set, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return pub.count() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Positive(t, pub.last[entity.CategoryComplaint])
}

func TestCategoryStatsWorker_SkipsPublishOnError(t *testing.T) {
	counter := &fakeCounter{err: errors.New("db down")}
	pub := &published{}
	w := NewCategoryStatsWorker(counter, pub.set, time.Hour)

	w.refresh(context.Background())

	assert.Equal(t, 1, counter.calls)
	assert.Zero(t, pub.count())
}
