// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/unclebandit/pushleopard-backend/internal/bootstrap"
	"github.com/unclebandit/pushleopard-backend/internal/config"
	"github.com/unclebandit/pushleopard-backend/internal/db"
	"github.com/unclebandit/pushleopard-backend/internal/logger"
	"github.com/unclebandit/pushleopard-backend/internal/queue"
	"github.com/unclebandit/pushleopard-backend/internal/repository"
	"github.com/unclebandit/pushleopard-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}
	if err := checkConfig(cfg); err != nil {
		log.Fatalf("❌ %v", err)
	}
	lg := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	campaignRepo := &repository.CampaignRepository{DB: conn}
	subscriberRepo := &repository.SubscriberRepository{DB: conn}

	bootstrap.RecoverStaleSends(ctx, cfg, campaignRepo, lg)
	// The worker has no websocket hub; /ws on the server only reports
	// sends that run in the server process.
	sender := bootstrap.NewSender(ctx, cfg, campaignRepo, subscriberRepo, nil, lg)

	q, err := queue.NewAMQPQueue(cfg.RabbitMQURL, lg)
	if err != nil {
		lg.Error("rabbitmq unavailable", "error", err)
		os.Exit(1)
	}
	defer q.Close()

	if err := service.StartCampaignSendSubscriber(q, sender, lg); err != nil {
		lg.Error("failed to register consumer", "error", err)
		os.Exit(1)
	}

	lg.Info("👷 worker running, waiting for campaign sends", "queue", queue.CampaignSendsTopic)
	<-ctx.Done()
	lg.Info("worker stopping")
}

// checkConfig rejects settings the worker cannot run without.
func checkConfig(cfg *config.Config) error {
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}
	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_URL is required for the worker")
	}
	return nil
}
