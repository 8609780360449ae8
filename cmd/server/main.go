// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/pushleopard-backend/internal/assist"
	"github.com/unclebandit/pushleopard-backend/internal/bootstrap"
	"github.com/unclebandit/pushleopard-backend/internal/config"
	"github.com/unclebandit/pushleopard-backend/internal/controller"
	"github.com/unclebandit/pushleopard-backend/internal/db"
	"github.com/unclebandit/pushleopard-backend/internal/handler"
	"github.com/unclebandit/pushleopard-backend/internal/logger"
	"github.com/unclebandit/pushleopard-backend/internal/middleware"
	"github.com/unclebandit/pushleopard-backend/internal/queue"
	"github.com/unclebandit/pushleopard-backend/internal/repository"
	"github.com/unclebandit/pushleopard-backend/internal/service"
	ws "github.com/unclebandit/pushleopard-backend/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ invalid configuration: %v", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatalf("❌ %v", err)
	}
	lg := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init DB
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		lg.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	if _, statErr := os.Stat(cfg.MigrationsDir); statErr == nil {
		applied, err := db.RunMigrations(ctx, conn, cfg.MigrationsDir)
		if err != nil {
			lg.Error("migrations failed", "error", err)
			os.Exit(1)
		}
		if len(applied) > 0 {
			lg.Info("migrations applied", "versions", applied)
		}
	}

	campaignRepo := &repository.CampaignRepository{DB: conn}
	subscriberRepo := &repository.SubscriberRepository{DB: conn}
	domainRepo := &repository.DomainRepository{DB: conn}

	hub := ws.NewHub(lg)
	go hub.Run()
	defer hub.Stop()

	bootstrap.RecoverStaleSends(ctx, cfg, campaignRepo, lg)
	sender := bootstrap.NewSender(ctx, cfg, campaignRepo, subscriberRepo, hub, lg)

	// Send queue: RabbitMQ when configured (consumed by cmd/worker), else in-process.
	var q queue.Queue
	drain := func(context.Context) error { return nil }
	if cfg.RabbitMQURL != "" {
		amqpQueue, err := queue.NewAMQPQueue(cfg.RabbitMQURL, lg)
		if err != nil {
			lg.Error("rabbitmq unavailable", "error", err)
			os.Exit(1)
		}
		defer amqpQueue.Close()
		q = amqpQueue
	} else {
		memQueue := queue.NewInMemoryQueue(lg)
		if err := service.StartCampaignSendSubscriber(memQueue, sender, lg); err != nil {
			lg.Error("failed to start send subscriber", "error", err)
			os.Exit(1)
		}
		q = memQueue
		drain = memQueue.Drain
	}

	var rateLimit func(http.Handler) http.Handler
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			lg.Warn("redis unavailable, subscribe rate limiting disabled", "error", err)
		} else {
			defer rdb.Close()
			rl := middleware.NewRateLimiter(rdb, cfg.SubscribeRateLimit, cfg.SubscribeRateWindow, "subscribe", lg)
			rateLimit = rl.Middleware
		}
	}

	contentAssist := &service.ContentAssist{}
	if cfg.Assist.APIKey != "" {
		client, err := assist.New(ctx, assist.Options{
			BaseURL: cfg.Assist.BaseURL,
			APIKey:  cfg.Assist.APIKey,
			Model:   cfg.Assist.Model,
			Timeout: cfg.Assist.Timeout,
		})
		if err != nil {
			lg.Error("content assist unavailable", "error", err)
		} else {
			contentAssist.Generator = client
		}
	} else {
		lg.Warn("ASSIST_API_KEY not set, content generation disabled")
	}

	campaignService := &service.CampaignService{
		CampaignRepo: campaignRepo,
		DomainRepo:   domainRepo,
		Queue:        q,
	}

	router := controller.NewRouter(controller.Routes{
		Campaigns: &controller.CampaignController{CampaignService: campaignService, Sender: sender},
		Domains:   &controller.DomainController{DomainService: &service.DomainService{DomainRepo: domainRepo}},
		Dashboard: &controller.DashboardController{
			DashboardService: &service.DashboardService{
				CampaignRepo:   campaignRepo,
				DomainRepo:     domainRepo,
				SubscriberRepo: subscriberRepo,
			},
			SubscriberService: &service.SubscriberService{SubscriberRepo: subscriberRepo},
		},
		Public: handler.NewCampaignHandler(sender, lg),
		Intake: &handler.IntakeHandler{
			Subscriptions: &service.SubscriptionService{Subscribers: subscriberRepo, Logger: lg},
			Assist:        contentAssist,
			Logger:        lg,
		},
		RateLimit:  rateLimit,
		TrustProxy: cfg.TrustProxyHeaders,
		Events:     hub.HandleWebSocket,
		HealthFunc: func(w http.ResponseWriter, r *http.Request) {
			status, code := "ok", http.StatusOK
			if err := conn.PingContext(r.Context()); err != nil {
				status, code = "degraded", http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(code)
			w.Write([]byte(`{"status":"` + status + `"}`))
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		lg.Info("🚀 server running", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("graceful shutdown failed", "error", err)
	}
	// Queued sends run detached from requests; claims left behind are
	// released on the next start.
	if err := drain(shutdownCtx); err != nil {
		lg.Error("in-flight sends did not finish", "error", err)
	}
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
