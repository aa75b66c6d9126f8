package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xavierca1/ligue-leads/internal/infra/http/middleware"
	"github.com/xavierca1/ligue-leads/internal/infra/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued lead notifications from RabbitMQ",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runWorker(ctx)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(ctx context.Context) error {
	if cfg.Queue.URL == "" {
		return eris.New("worker: RABBITMQ_URL is required")
	}

	rabbit, err := queue.NewRabbitMQ(cfg.Queue.URL)
	if err != nil {
		return err
	}
	defer rabbit.Close()

	if err := rabbit.Ch.Qos(10, 0, false); err != nil {
		return eris.Wrap(err, "rabbitmq: set qos")
	}

	parts := buildNotifier(cfg, middleware.DomainMetrics{})
	defer parts.close()

	err = queue.NewWorker(rabbit.Ch, parts.notifier).Start(ctx, queue.QueueName)
	zap.L().Info("notification worker stopping, waiting for side channels")
	parts.notifier.Wait()
	return err
}
