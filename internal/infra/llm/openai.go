package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/xavierca1/ligue-leads/internal/classifier"
)

const (
	GroqBaseURL   = "https://api.groq.com/openai/v1"
	OpenAIBaseURL = "https://api.openai.com/v1"

	GroqModel   = "llama-3.3-70b-versatile"
	OpenAIModel = "gpt-3.5-turbo"

	maxResponseBytes = 1 << 20
)

// ChatCompletions is a provider for any OpenAI-compatible chat completions
// endpoint (OpenAI itself, Groq).
type ChatCompletions struct {
	name    string
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func NewChatCompletions(name, baseURL, apiKey, model string, timeout time.Duration) *ChatCompletions {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ChatCompletions{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}
}

func NewGroq(apiKey string, timeout time.Duration) *ChatCompletions {
	return NewChatCompletions("groq", GroqBaseURL, apiKey, GroqModel, timeout)
}

func NewOpenAI(apiKey string, timeout time.Duration) *ChatCompletions {
	return NewChatCompletions("openai", OpenAIBaseURL, apiKey, OpenAIModel, timeout)
}

func (p *ChatCompletions) Name() string { return p.name }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

func (p *ChatCompletions) Complete(ctx context.Context, req classifier.Request) (string, error) {
	if p.apiKey == "" {
		return "", p.fail(classifier.KindMisconfigured, 0, errors.New("api key not set"))
	}

	body, err := json.Marshal(chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", eris.Wrap(err, p.name+": marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, p.name+": create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", p.fail(classifier.KindUnavailable, 0, eris.Wrap(err, "call"))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", p.fail(classifier.KindUnavailable, resp.StatusCode, eris.Wrap(err, "read response"))
	}

	if resp.StatusCode >= 400 {
		return "", p.statusError(resp.StatusCode, respBody)
	}

	var out chatResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", p.fail(classifier.KindInvalidResponse, resp.StatusCode, eris.Wrap(err, "decode response"))
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return "", p.fail(classifier.KindInvalidResponse, resp.StatusCode, errors.New("empty completion"))
	}
	return out.Choices[0].Message.Content, nil
}

func (p *ChatCompletions) statusError(status int, body []byte) error {
	var apiErr chatErrorResponse
	_ = json.Unmarshal(body, &apiErr)
	cause := fmt.Errorf("status %d: %s", status, apiErr.Error.Message)

	switch {
	case status == http.StatusTooManyRequests && isQuotaError(apiErr):
		return p.fail(classifier.KindQuotaExhausted, status, cause)
	case status == http.StatusTooManyRequests:
		return p.fail(classifier.KindRateLimited, status, cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return p.fail(classifier.KindMisconfigured, status, cause)
	default:
		return p.fail(classifier.KindUnavailable, status, cause)
	}
}

func isQuotaError(e chatErrorResponse) bool {
	if code, ok := e.Error.Code.(string); ok && code == "insufficient_quota" {
		return true
	}
	return e.Error.Type == "insufficient_quota"
}

func (p *ChatCompletions) fail(kind classifier.ErrorKind, status int, err error) error {
	return &classifier.ProviderError{Provider: p.name, Kind: kind, StatusCode: status, Err: err}
}
