package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Execute(ctx context.Context, input usecase.SubmitLeadInput) (*usecase.SubmitLeadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.SubmitLeadOutput), args.Error(1)
}

type MockUpserter struct {
	mock.Mock
}

func (m *MockUpserter) ExecuteSubmission(ctx context.Context, input usecase.SubmitLeadInput) (*usecase.UpsertLeadOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.UpsertLeadOutput), args.Error(1)
}

type MockReader struct {
	mock.Mock
}

func (m *MockReader) FindByEmail(ctx context.Context, email string) (*entity.Lead, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Lead), args.Error(1)
}

func (m *MockReader) CountByCategory(ctx context.Context) (map[entity.Category]int64, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[entity.Category]int64), args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Execute(ctx context.Context, event entity.Event) usecase.Delivery {
	return m.Called(ctx, event).Get(0).(usecase.Delivery)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

type stubState bool

func (s stubState) Healthy() bool { return bool(s) }

func post(h http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.7:4321"
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestLeadHandler_Success(t *testing.T) {
	submit := new(MockSubmitter)
	submit.On("Execute", mock.Anything, mock.MatchedBy(func(in usecase.SubmitLeadInput) bool {
		return in.Email == "ana@x.com" && in.OriginIP == "198.51.100.7" && in.Source == ""
	})).Return(&usecase.SubmitLeadOutput{Status: entity.UpsertCreated, LeadID: "id-1", Notified: true}, nil)

	rec := post(NewLeadHandler(submit, "").Handle, "/api/leads",
		`{"name":"Ana","email":"ana@x.com","message":"¿Cuánto cuesta?"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"status":"created","leadId":"id-1","notified":true}`, rec.Body.String())
	submit.AssertExpectations(t)
}

func TestLeadHandler_WebhookDefaultsSource(t *testing.T) {
	submit := new(MockSubmitter)
	submit.On("Execute", mock.Anything, mock.MatchedBy(func(in usecase.SubmitLeadInput) bool {
		return in.Source == "n8n"
	})).Return(&usecase.SubmitLeadOutput{Status: entity.UpsertUpdated, LeadID: "id-2"}, nil).Once()
	submit.On("Execute", mock.Anything, mock.MatchedBy(func(in usecase.SubmitLeadInput) bool {
		return in.Source == "landing"
	})).Return(&usecase.SubmitLeadOutput{Status: entity.UpsertUpdated, LeadID: "id-2"}, nil).Once()

	h := NewLeadHandler(submit, "n8n")
	assert.Equal(t, http.StatusOK, post(h.Handle, "/webhooks/n8n/lead", `{"name":"A","email":"a@x.com"}`).Code)
	assert.Equal(t, http.StatusOK, post(h.Handle, "/webhooks/n8n/lead", `{"name":"A","email":"a@x.com","source":"landing"}`).Code)
	submit.AssertExpectations(t)
}

func TestLeadHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		errMsg string
	}{
		{
			"validation",
			&usecase.DomainError{Code: usecase.CodeValidation, Message: "invalid submission",
				Details: []usecase.ValidationError{{Field: "email", Message: "invalid email"}}},
			http.StatusBadRequest, "Datos inválidos",
		},
		{
			"store unavailable",
			&usecase.TechnicalError{Code: usecase.CodeStoreUnavailable, Message: "lead store unavailable", Err: errors.New("dial")},
			http.StatusServiceUnavailable, "Servicio de leads no disponible",
		},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "Error al procesar lead"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			submit := new(MockSubmitter)
			submit.On("Execute", mock.Anything, mock.Anything).Return(nil, tc.err)

			rec := post(NewLeadHandler(submit, "").Handle, "/api/leads", `{"name":"A","email":"bad"}`)

			assert.Equal(t, tc.status, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, false, body["ok"])
			assert.Equal(t, tc.errMsg, body["error"])
		})
	}
}

func TestLeadHandler_ValidationDetails(t *testing.T) {
	submit := new(MockSubmitter)
	submit.On("Execute", mock.Anything, mock.Anything).Return(nil, &usecase.DomainError{
		Code:    usecase.CodeValidation,
		Message: "invalid submission",
		Details: []usecase.ValidationError{{Field: "email", Message: "invalid email"}},
	})

	rec := post(NewLeadHandler(submit, "").Handle, "/api/leads", `{"name":"A","email":"bad"}`)
	body := decodeBody(t, rec)
	details, ok := body["details"].([]any)
	require.True(t, ok)
	require.Len(t, details, 1)
	assert.Equal(t, "email", details[0].(map[string]any)["field"])
}

func TestLeadHandler_InvalidJSON(t *testing.T) {
	submit := new(MockSubmitter)
	rec := post(NewLeadHandler(submit, "").Handle, "/api/leads", `{"name":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	submit.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestInternalLeadHandler_UpsertStatusCodes(t *testing.T) {
	lead := &entity.Lead{ID: "id-1", Email: "ana@x.com", Name: "Ana", Category: entity.CategoryInquiry}
	upsert := new(MockUpserter)
	upsert.On("ExecuteSubmission", mock.Anything, mock.Anything).
		Return(&usecase.UpsertLeadOutput{Status: entity.UpsertCreated, Lead: lead}, nil).Once()
	upsert.On("ExecuteSubmission", mock.Anything, mock.Anything).
		Return(&usecase.UpsertLeadOutput{Status: entity.UpsertUpdated, Lead: lead}, nil).Once()

	h := NewInternalLeadHandler(upsert, new(MockReader))

	rec := post(h.HandleUpsert, "/internal/leads/upsert", `{"name":"Ana","email":"ana@x.com"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "created", decodeBody(t, rec)["status"])

	rec = post(h.HandleUpsert, "/internal/leads/upsert", `{"email":"ana@x.com"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "updated", decodeBody(t, rec)["status"])
}

func TestInternalLeadHandler_UpsertNameRequired(t *testing.T) {
	upsert := new(MockUpserter)
	upsert.On("ExecuteSubmission", mock.Anything, mock.Anything).
		Return(nil, &usecase.DomainError{Code: usecase.CodeNameRequired, Message: "name is required to create a lead"})

	rec := post(NewInternalLeadHandler(upsert, nil).HandleUpsert, "/internal/leads/upsert", `{"email":"new@x.com"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "name is required to create a lead", decodeBody(t, rec)["message"])
}

func newInternalRouter(h *InternalLeadHandler) http.Handler {
	return NewRouter(RouterConfig{}, Handlers{
		Public:   NewLeadHandler(new(MockSubmitter), ""),
		Webhook:  NewLeadHandler(new(MockSubmitter), "n8n"),
		Internal: h,
		Notify:   NewNotifyHandler(new(MockNotifier)),
		Health:   NewHealthHandler(nil, nil),
	})
}

func TestInternalLeadHandler_Get(t *testing.T) {
	repo := new(MockReader)
	repo.On("FindByEmail", mock.Anything, "ana@x.com").
		Return(&entity.Lead{ID: "id-1", Email: "ana@x.com", Name: "Ana"}, nil)
	repo.On("FindByEmail", mock.Anything, "ghost@x.com").Return(nil, entity.ErrLeadNotFound)

	router := newInternalRouter(NewInternalLeadHandler(new(MockUpserter), repo))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/leads/ANA@x.com", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ana", decodeBody(t, rec)["lead"].(map[string]any)["name"])

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/leads/ghost@x.com", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInternalLeadHandler_Stats(t *testing.T) {
	repo := new(MockReader)
	repo.On("CountByCategory", mock.Anything).Return(map[entity.Category]int64{
		entity.CategoryInquiry: 3,
		entity.CategoryOther:   1,
	}, nil)

	rec := httptest.NewRecorder()
	newInternalRouter(NewInternalLeadHandler(nil, repo)).
		ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/internal/leads/stats", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true,"total":4,"byCategory":{"inquiry":3,"complaint":0,"quote-request":0,"other":1}}`, rec.Body.String())
}

func TestNotifyHandler_AlwaysOK(t *testing.T) {
	cases := []struct {
		name     string
		delivery usecase.Delivery
		want     string
	}{
		{"sent", usecase.Delivery{Delivered: true}, `{"ok":true,"message":"Notification sent"}`},
		{"not configured", usecase.Delivery{Reason: usecase.ReasonEmailNotConfigured},
			`{"ok":false,"error":"Email not configured","message":"email not configured"}`},
		{"send failed", usecase.Delivery{Reason: "smtp: 421"},
			`{"ok":false,"error":"Email send failed","message":"smtp: 421"}`},
		{"invalid", usecase.Delivery{Reason: usecase.ReasonInvalidEvent},
			`{"ok":false,"error":"Invalid payload","message":"invalid event"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			notifier := new(MockNotifier)
			notifier.On("Execute", mock.Anything, mock.MatchedBy(func(e entity.Event) bool {
				return e.Lead.Email == "ana@x.com"
			})).Return(tc.delivery)

			rec := post(NewNotifyHandler(notifier).Handle, "/internal/notify/lead",
				`{"event":"lead.created","lead":{"name":"Ana","email":" Ana@X.com "}}`)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tc.want, rec.Body.String())
		})
	}
}

func TestNotifyHandler_MalformedPayload(t *testing.T) {
	notifier := new(MockNotifier)
	rec := post(NewNotifyHandler(notifier).Handle, "/internal/notify/lead", `not json`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Invalid payload", decodeBody(t, rec)["error"])
	notifier.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
}

func TestHealthHandler(t *testing.T) {
	h := NewHealthHandler(stubPinger{}, []string{"groq", "openai"})
	h.RabbitMQ = stubState(true)

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "healthy", resp.Dependencies["database"])
	assert.Equal(t, "not configured", resp.Dependencies["smtp"])
	assert.Equal(t, []string{"groq", "openai"}, resp.Providers)
}

func TestHealthHandler_Degraded(t *testing.T) {
	h := NewHealthHandler(stubPinger{err: errors.New("connection refused")}, nil)
	h.RabbitMQ = stubState(false)

	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "degraded", decodeBody(t, rec)["status"])
}

func TestRouter_Auth(t *testing.T) {
	submit := new(MockSubmitter)
	submit.On("Execute", mock.Anything, mock.Anything).
		Return(&usecase.SubmitLeadOutput{Status: entity.UpsertCreated, LeadID: "x"}, nil)
	repo := new(MockReader)
	repo.On("CountByCategory", mock.Anything).Return(map[entity.Category]int64{}, nil)

	router := NewRouter(RouterConfig{InternalToken: "internal", WebhookToken: "hook"}, Handlers{
		Public:   NewLeadHandler(submit, ""),
		Webhook:  NewLeadHandler(submit, "n8n"),
		Internal: NewInternalLeadHandler(new(MockUpserter), repo),
		Notify:   NewNotifyHandler(new(MockNotifier)),
		Health:   NewHealthHandler(nil, nil),
	})

	serve := func(req *http.Request) int {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusUnauthorized, serve(httptest.NewRequest(http.MethodGet, "/internal/leads/stats", nil)))

	req := httptest.NewRequest(http.MethodGet, "/internal/leads/stats", nil)
	req.Header.Set("Authorization", "Bearer internal")
	assert.Equal(t, http.StatusOK, serve(req))

	body := `{"name":"A","email":"a@x.com"}`
	assert.Equal(t, http.StatusUnauthorized, serve(httptest.NewRequest(http.MethodPost, "/webhooks/n8n/lead", strings.NewReader(body))))

	req = httptest.NewRequest(http.MethodPost, "/webhooks/n8n/lead", strings.NewReader(body))
	req.Header.Set(middleware.WebhookTokenHeader, "hook")
	assert.Equal(t, http.StatusOK, serve(req))

	assert.Equal(t, http.StatusOK, serve(httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(body))))
	assert.Equal(t, http.StatusOK, serve(httptest.NewRequest(http.MethodGet, "/health", nil)))
}

func TestRouter_PublicRateLimit(t *testing.T) {
	submit := new(MockSubmitter)
	submit.On("Execute", mock.Anything, mock.Anything).
		Return(&usecase.SubmitLeadOutput{Status: entity.UpsertCreated, LeadID: "x"}, nil)

	router := NewRouter(RouterConfig{
		PublicLimit:  middleware.NewRateLimiter(1, time.Hour),
		WebhookLimit: middleware.NewRateLimiter(1, time.Hour),
	}, Handlers{
		Public:   NewLeadHandler(submit, ""),
		Webhook:  NewLeadHandler(submit, "n8n"),
		Internal: NewInternalLeadHandler(nil, nil),
		Notify:   NewNotifyHandler(nil),
		Health:   NewHealthHandler(nil, nil),
	})

	codes := make([]int, 0, 2)
	for range 2 {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/leads", strings.NewReader(`{"name":"A","email":"a@x.com"}`)))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusTooManyRequests}, codes)
}
