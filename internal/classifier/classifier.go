package classifier

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const (
	maxReplyTokens   = 10
	replyTemperature = 0.3
	DefaultCategory  = entity.CategoryInquiry
)

const categoryPrompt = `Eres un clasificador experto de mensajes de contacto en español. Analiza el contexto y el sentimiento del mensaje y clasifícalo en UNA de estas 4 categorías:

- "complaint": insatisfacción, quejas, problemas, enojo, productos defectuosos, pedidos que no llegaron, errores, pedidos de reembolso.
- "quote-request": pide precio, presupuesto, cotización, costos, tarifas o cuánto cuesta algo.
- "inquiry": preguntas generales, información sobre servicios, dudas, disponibilidad, horarios.
- "other": cualquier otra cosa: envío de CV, búsquedas laborales, ubicaciones o sucursales, propuestas comerciales, colaboraciones.

Responde SOLO con una de estas palabras, sin comillas ni puntos: inquiry, complaint, quote-request u other`

const tagPrompt = `Analiza el mensaje y sugiere una palabra clave que lo identifique.

Ejemplos:
- CV, trabajo, empleo, postularse: "rrhh"
- ubicación, dirección, sucursal: "ubicacion"
- colaboración, alianzas: "colaboracion"
- prensa, medios, entrevistas: "prensa"
- ser proveedor: "proveedor"
- franquicias: "franquicia"

Responde SOLO con una palabra clave en minúsculas y sin espacios. Si no está claro, responde "general".`

// Result is the outcome of a classification. Tag is set only for
// entity.CategoryOther.
type Result struct {
	Category entity.Category
	Tag      *string
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// FailureHook observes every failed provider attempt.
type FailureHook func(provider string, kind ErrorKind)

type Classifier struct {
	backends  []Backend
	sleep     SleepFunc
	onFailure FailureHook
}

type Option func(*Classifier)

func WithSleep(fn SleepFunc) Option {
	return func(c *Classifier) { c.sleep = fn }
}

func WithFailureHook(fn FailureHook) Option {
	return func(c *Classifier) { c.onFailure = fn }
}

// New builds a classifier that tries backends in the given order.
func New(backends []Backend, opts ...Option) *Classifier {
	c := &Classifier{
		backends: backends,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Providers lists the configured provider names in order.
func (c *Classifier) Providers() []string {
	names := make([]string, 0, len(c.backends))
	for _, b := range c.backends {
		names = append(names, b.Provider.Name())
	}
	return names
}

// Classify never fails: when no provider produces a valid answer the default
// category is returned with no tag.
func (c *Classifier) Classify(ctx context.Context, message string) Result {
	message = strings.TrimSpace(message)
	if message == "" {
		return defaultResult()
	}

	for _, b := range c.backends {
		name := b.Provider.Name()

		reply, err := c.call(ctx, b, Request{
			System:      categoryPrompt,
			User:        message,
			MaxTokens:   maxReplyTokens,
			Temperature: replyTemperature,
		})
		if err != nil {
			zap.L().Warn("classifier provider failed",
				zap.String("provider", name),
				zap.String("kind", string(KindOf(err))),
				zap.Error(err),
			)
			continue
		}

		category, perr := entity.ParseCategory(normalizeReply(reply))
		if perr != nil {
			c.recordFailure(name, KindInvalidResponse)
			zap.L().Warn("classifier provider returned invalid category",
				zap.String("provider", name),
				zap.String("reply", reply),
			)
			continue
		}

		if category != entity.CategoryOther {
			zap.L().Debug("message classified",
				zap.String("provider", name),
				zap.String("category", string(category)),
			)
			return Result{Category: category}
		}

		tag := c.tag(ctx, b, message)
		return Result{Category: category, Tag: &tag}
	}

	if ctx.Err() == nil && len(c.backends) > 0 {
		zap.L().Warn("all classifier providers failed, using default category")
	}
	return defaultResult()
}

func (c *Classifier) tag(ctx context.Context, b Backend, message string) string {
	reply, err := c.call(ctx, b, Request{
		System:      tagPrompt,
		User:        message,
		MaxTokens:   maxReplyTokens,
		Temperature: replyTemperature,
	})
	if err != nil {
		zap.L().Warn("classifier tag request failed",
			zap.String("provider", b.Provider.Name()),
			zap.Error(err),
		)
		return FallbackTag
	}
	tag := SanitizeTag(reply)
	if tag == "" {
		return FallbackTag
	}
	return tag
}

// call runs one request against a backend, retrying rate-limited attempts
// with doubling delays up to the backend's attempt ceiling.
func (c *Classifier) call(ctx context.Context, b Backend, req Request) (string, error) {
	name := b.Provider.Name()
	attempts := b.Policy.attempts()

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		reply, err := b.Provider.Complete(ctx, req)
		if err == nil {
			return reply, nil
		}
		lastErr = err
		kind := KindOf(err)
		c.recordFailure(name, kind)

		if kind != KindRateLimited || ctx.Err() != nil {
			return "", err
		}
		if attempt >= attempts-1 {
			break
		}

		delay := b.Policy.backoff(attempt)
		zap.L().Warn("classifier provider rate limited, retrying",
			zap.String("provider", name),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return "", lastErr
		}
	}
	return "", lastErr
}

func (c *Classifier) recordFailure(provider string, kind ErrorKind) {
	if c.onFailure != nil {
		c.onFailure(provider, kind)
	}
}

func defaultResult() Result {
	return Result{Category: DefaultCategory}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
