package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/rotisserie/eris"

	"github.com/xavierca1/ligue-leads/internal/classifier"
)

const AnthropicModel = "claude-haiku-4-5-20251001"

// Anthropic adapts the Messages API to the classifier provider contract.
// SDK-level retries are disabled; the classifier owns the retry policy.
type Anthropic struct {
	client sdk.Client
	model  string
	hasKey bool
}

func NewAnthropic(apiKey, model string, timeout time.Duration, opts ...option.RequestOption) *Anthropic {
	if model == "" {
		model = AnthropicModel
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	base := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(timeout),
	}
	return &Anthropic{
		client: sdk.NewClient(append(base, opts...)...),
		model:  model,
		hasKey: apiKey != "",
	}
}

func (a *Anthropic) Name() string { return "anthropic" }

func (a *Anthropic) Complete(ctx context.Context, req classifier.Request) (string, error) {
	if !a.hasKey {
		return "", a.fail(classifier.KindMisconfigured, 0, errors.New("api key not set"))
	}

	params := sdk.MessageNewParams{
		Model:       sdk.Model(a.model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    []sdk.MessageParam{sdk.NewUserMessage(sdk.NewTextBlock(req.User))},
		Temperature: sdk.Float(req.Temperature),
	}
	if req.System != "" {
		params.System = []sdk.TextBlockParam{{Text: req.System}}
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", a.classify(err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if strings.TrimSpace(b.String()) == "" {
		return "", a.fail(classifier.KindInvalidResponse, 0, errors.New("empty completion"))
	}
	return b.String(), nil
}

func (a *Anthropic) classify(err error) error {
	var apiErr *sdk.Error
	if !errors.As(err, &apiErr) {
		return a.fail(classifier.KindUnavailable, 0, eris.Wrap(err, "create message"))
	}
	switch apiErr.StatusCode {
	case http.StatusTooManyRequests:
		return a.fail(classifier.KindRateLimited, apiErr.StatusCode, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return a.fail(classifier.KindMisconfigured, apiErr.StatusCode, err)
	case http.StatusPaymentRequired:
		return a.fail(classifier.KindQuotaExhausted, apiErr.StatusCode, err)
	default:
		return a.fail(classifier.KindUnavailable, apiErr.StatusCode, err)
	}
}

func (a *Anthropic) fail(kind classifier.ErrorKind, status int, err error) error {
	return &classifier.ProviderError{Provider: a.Name(), Kind: kind, StatusCode: status, Err: err}
}
