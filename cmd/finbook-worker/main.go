// finbook-worker consumes budget events from the broker and logs
// overspend alerts. It is the template for any out-of-process reaction
// to budget changes (notifications, exports).
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"finbook/internal/amqp"
	"finbook/internal/config"
	applog "finbook/internal/log"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()
	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.LogLevel),
		Component: "finbook-worker",
	})
	applog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
	}()

	logger.Info("Starting finbook-worker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	err = amqpClient.ConsumeBudgetEvents(ctx, func(msg *amqp.BudgetResyncedMessage) error {
		if msg.Overspent {
			logger.Warn("Budget overspent",
				"user_id", msg.UserID,
				"month", msg.Month,
				"limit_cents", msg.LimitCents,
				"spent_cents", msg.SpentCents,
				"over_cents", msg.SpentCents-msg.LimitCents)
			return nil
		}
		logger.Info("Budget resynced",
			"user_id", msg.UserID,
			"month", msg.Month,
			"limit_cents", msg.LimitCents,
			"spent_cents", msg.SpentCents)
		return nil
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	logger.Info("Worker stopped gracefully")
}
