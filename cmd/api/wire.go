package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/classifier"
	"github.com/xavierca1/ligue-leads/internal/config"
	"github.com/xavierca1/ligue-leads/internal/entity"
	"github.com/xavierca1/ligue-leads/internal/infra/database"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/infra/integration/kommo"
	"github.com/xavierca1/ligue-leads/internal/infra/llm"
	"github.com/xavierca1/ligue-leads/internal/infra/mail"
	"github.com/xavierca1/ligue-leads/internal/infra/sheets"
	"github.com/xavierca1/ligue-leads/internal/infra/stream"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

type leadStore interface {
	entity.LeadRepository
	Ping(ctx context.Context) error
}

func openStore(ctx context.Context, c config.StoreConfig) (leadStore, func(), error) {
	switch c.Driver {
	case "sqlite":
		repo, err := database.OpenSQLite(ctx, c.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		zap.L().Info("using sqlite lead store", zap.String("path", c.SQLitePath))
		return repo, func() { repo.Close() }, nil
	case "postgres", "":
		if c.DatabaseURL == "" {
			return nil, nil, eris.New("store: DATABASE_URL is required for the postgres driver")
		}
		pool, err := database.NewPool(ctx, c.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		zap.L().Info("using postgres lead store")
		return database.NewLeadRepository(pool), pool.Close, nil
	default:
		return nil, nil, eris.Errorf("store: unknown driver %q", c.Driver)
	}
}

// buildClassifier assembles the provider chain in configured order, leaving
// out providers without credentials.
func buildClassifier(c config.ClassifierConfig) *classifier.Classifier {
	var backends []classifier.Backend
	for _, name := range c.ProviderNames() {
		var (
			provider classifier.Provider
			pc       config.ProviderConfig
		)
		switch name {
		case "groq":
			pc = c.Groq
			provider = llm.NewGroq(pc.APIKey, pc.Timeout)
		case "openai":
			pc = c.OpenAI
			provider = llm.NewOpenAI(pc.APIKey, pc.Timeout)
		case "anthropic":
			pc = c.Anthropic
			provider = llm.NewAnthropic(pc.APIKey, pc.Model, pc.Timeout)
		default:
			zap.L().Warn("unknown classifier provider ignored", zap.String("provider", name))
			continue
		}
		if pc.APIKey == "" {
			zap.L().Info("classifier provider has no api key, skipping", zap.String("provider", name))
			continue
		}
		backends = append(backends, classifier.Backend{
			Provider: provider,
			Policy:   classifier.Policy{MaxAttempts: pc.MaxAttempts, BaseDelay: pc.BaseDelay},
		})
	}

	cls := classifier.New(backends, classifier.WithFailureHook(middleware.RecordProviderFailure))
	if len(backends) == 0 {
		zap.L().Warn("no classifier providers configured, every message defaults to inquiry")
	} else {
		zap.L().Info("classifier ready", zap.Strings("providers", cls.Providers()))
	}
	return cls
}

type notifierParts struct {
	notifier *usecase.NotifyLeadUseCase
	email    *mail.EmailSender
	workbook *sheets.Workbook
	kafka    *stream.Producer
}

func (p notifierParts) close() {
	if p.kafka != nil {
		if err := p.kafka.Close(); err != nil {
			zap.L().Warn("failed to close kafka producer", zap.Error(err))
		}
	}
}

func buildNotifier(c *config.Config, metrics usecase.Metrics) notifierParts {
	parts := notifierParts{
		email: mail.NewEmailSender(mail.Config{
			Host:     c.Mail.Host,
			Port:     c.Mail.Port,
			User:     c.Mail.User,
			Password: c.Mail.Password,
			Secure:   c.Mail.Secure,
			From:     c.Mail.From,
			To:       c.Mail.To,
			Location: c.Mail.Timezone,
		}),
	}
	if !parts.email.Configured() {
		zap.L().Warn("email channel not configured (SMTP_HOST, FROM_EMAIL, ADMIN_EMAIL)")
	}

	var side []usecase.SideChannel
	if c.Sheets.Path != "" {
		parts.workbook = sheets.NewWorkbook(c.Sheets.Path, c.Sheets.Timezone)
		side = append(side, parts.workbook)
	}
	if brokers := c.Kafka.BrokerList(); len(brokers) > 0 {
		parts.kafka = stream.NewProducer(brokers, c.Kafka.Topic)
		side = append(side, parts.kafka)
	}

	if crm := kommo.NewClient(kommo.Config{
		BaseURL:  c.Kommo.BaseURL,
		APIToken: c.Kommo.APIToken,
		StatusID: c.Kommo.StatusID,
	}); crm.Configured() {
		side = append(side, crm)
	}

	parts.notifier = usecase.NewNotifyLeadUseCase(parts.email, metrics, side...)
	if c.Notify.SideChannelTimeout > 0 {
		parts.notifier.SideChannelTimeout = c.Notify.SideChannelTimeout
	}
	return parts
}

func shutdownTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 15*time.Second)
}
