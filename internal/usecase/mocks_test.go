package usecase

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/xavierca1/ligue-leads/internal/classifier"
	"github.com/xavierca1/ligue-leads/internal/entity"
)

// MockLeadRepository
type MockLeadRepository struct {
	mock.Mock
}

func (m *MockLeadRepository) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockLeadRepository) Insert(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) Update(ctx context.Context, lead *entity.Lead) error {
	args := m.Called(ctx, lead)
	return args.Error(0)
}

func (m *MockLeadRepository) CountByCategory(ctx context.Context) (map[entity.Category]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entity.Category]int64), args.Error(1)
}

// MockClassifier
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, message string) classifier.Result {
	args := m.Called(ctx, message)
	return args.Get(0).(classifier.Result)
}

// MockDispatcher
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, event entity.Event) bool {
	args := m.Called(ctx, event)
	return args.Bool(0)
}

// MockEmailChannel
type MockEmailChannel struct {
	mock.Mock
}

func (m *MockEmailChannel) Configured() bool {
	return m.Called().Bool(0)
}

func (m *MockEmailChannel) Send(ctx context.Context, event entity.Event) error {
	return m.Called(ctx, event).Error(0)
}

// recordingChannel is a side channel that records the events it receives.
type recordingChannel struct {
	name   string
	result ChannelResult
	block  chan struct{}

	mu     sync.Mutex
	events []entity.Event
}

func (c *recordingChannel) Name() string { return c.name }

func (c *recordingChannel) Deliver(_ context.Context, event entity.Event) ChannelResult {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return c.result
}

func (c *recordingChannel) received() []entity.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Event(nil), c.events...)
}

// memoryRepository is an in-memory LeadRepository with a real uniqueness
// check, used to exercise concurrent upserts.
type memoryRepository struct {
	mu    sync.Mutex
	leads map[string]entity.Lead

	// beforeInsert runs after the lookup and before the insert lock is taken.
	beforeInsert func()
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{leads: map[string]entity.Lead{}}
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (*entity.Lead, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.leads[email]
	if !ok {
		return nil, entity.ErrLeadNotFound
	}
	return cloneLead(l), nil
}

func (r *memoryRepository) Insert(_ context.Context, lead *entity.Lead) error {
	if r.beforeInsert != nil {
		r.beforeInsert()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[lead.Email]; ok {
		return entity.ErrLeadAlreadyExists
	}
	r.leads[lead.Email] = *cloneLead(*lead)
	return nil
}

func (r *memoryRepository) Update(_ context.Context, lead *entity.Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.leads[lead.Email]; !ok {
		return entity.ErrLeadNotFound
	}
	r.leads[lead.Email] = *cloneLead(*lead)
	return nil
}

func (r *memoryRepository) CountByCategory(context.Context) (map[entity.Category]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[entity.Category]int64{}
	for _, l := range r.leads {
		out[l.Category]++
	}
	return out, nil
}

func (r *memoryRepository) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.leads)
}

func cloneLead(l entity.Lead) *entity.Lead {
	attr := make(map[string]string, len(l.Attribution))
	for k, v := range l.Attribution {
		attr[k] = v
	}
	l.Attribution = attr
	return &l
}

func strPtr(s string) *string { return &s }
