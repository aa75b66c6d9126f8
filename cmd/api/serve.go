package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/ligue-leads/internal/infra/http/handlers"
	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/infra/queue"
	"github.com/xavierca1/ligue-leads/internal/infra/worker"
	"github.com/xavierca1/ligue-leads/internal/usecase"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the lead intake HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(ctx context.Context) error {
	store, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	metrics := middleware.DomainMetrics{}
	cls := buildClassifier(cfg.Classifier)
	parts := buildNotifier(cfg, metrics)
	defer parts.close()

	upsert := usecase.NewUpsertLeadUseCase(store, metrics)

	var (
		dispatcher usecase.NotificationDispatcher
		async      *usecase.AsyncDispatcher
		rabbit     *queue.RabbitMQ
	)
	if cfg.Queue.URL != "" {
		rabbit, err = queue.NewRabbitMQ(cfg.Queue.URL)
		if err != nil {
			return err
		}
		defer rabbit.Close()
		dispatcher = queue.NewProducer(rabbit.Ch)
		zap.L().Info("notifications queued through rabbitmq", zap.String("queue", queue.QueueName))
	} else {
		async = usecase.NewAsyncDispatcher(parts.notifier, cfg.Notify.AwaitTimeout)
		dispatcher = async
	}

	submit := usecase.NewSubmitLeadUseCase(cls, upsert, dispatcher, metrics)

	health := handlers.NewHealthHandler(store, cls.Providers())
	health.Email = parts.email
	if parts.workbook != nil {
		health.Sheets = parts.workbook
	}
	if rabbit != nil {
		health.RabbitMQ = rabbit
	}

	publicLimit, webhookLimit := handlers.NewRateLimiters()
	router := handlers.NewRouter(handlers.RouterConfig{
		CORSOrigins:   cfg.Server.CORSOrigins(),
		InternalToken: cfg.Auth.InternalToken,
		WebhookToken:  cfg.Auth.WebhookToken,
		PublicLimit:   publicLimit,
		WebhookLimit:  webhookLimit,
	}, handlers.Handlers{
		Public:   handlers.NewLeadHandler(submit, ""),
		Webhook:  handlers.NewLeadHandler(submit, "n8n"),
		Internal: handlers.NewInternalLeadHandler(upsert, store),
		Notify:   handlers.NewNotifyHandler(parts.notifier),
		Health:   health,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zap.L().Info("lead api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "http: listen")
		}
		return nil
	})

	g.Go(func() error {
		worker.NewCategoryStatsWorker(store, middleware.SetLeadsByCategory, cfg.Stats.Interval).Start(gctx)
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				publicLimit.Sweep()
				webhookLimit.Sweep()
			}
		}
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down lead api")
		shutdownCtx, cancel := shutdownTimeout()
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()

	if async != nil {
		async.Wait()
	} else {
		parts.notifier.Wait()
	}
	return err
}
