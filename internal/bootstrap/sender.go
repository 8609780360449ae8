// Package bootstrap wires the send pipeline for the server and worker binaries.
package bootstrap

import (
	"context"
	"log/slog"
	"time"

	"github.com/unclebandit/pushleopard-backend/internal/config"
	"github.com/unclebandit/pushleopard-backend/internal/push"
	"github.com/unclebandit/pushleopard-backend/internal/service"
)

// NewSender builds the orchestrator over the FCM gateway and its circuit
// breaker. If the gateway cannot start, the returned sender fails every send
// with a configuration error and the process stays up.
func NewSender(ctx context.Context, cfg *config.Config, campaigns service.CampaignSendStore, subscribers service.SubscriberTokenStore, events service.EventPublisher, lg *slog.Logger) service.CampaignSender {
	fcm, err := push.NewFCMGateway(ctx, push.Credentials{
		ProjectID:       cfg.Firebase.ProjectID,
		ClientEmail:     cfg.Firebase.ClientEmail,
		PrivateKey:      cfg.Firebase.PrivateKey,
		CredentialsFile: cfg.Firebase.CredentialsFile,
	})
	if err != nil {
		lg.Error("push gateway unavailable", "error", err)
		return service.UnavailableSender{Component: "push gateway", Err: err}
	}
	lg.Info("push gateway ready", "credentials", fcm.CredentialSource())

	return newOrchestrator(cfg, campaigns, subscribers, fcm, events, lg)
}

func newOrchestrator(cfg *config.Config, campaigns service.CampaignSendStore, subscribers service.SubscriberTokenStore, gateway push.Gateway, events service.EventPublisher, lg *slog.Logger) service.CampaignSender {
	guarded := push.NewBreakerGateway(gateway, push.BreakerSettings{
		FailureThreshold: uint32(cfg.Breaker.FailureThreshold),
		Cooldown:         cfg.Breaker.Cooldown,
	}, lg)

	orchestrator, err := service.NewSendOrchestrator(campaigns, subscribers, guarded, sendOptions(cfg), lg)
	if err != nil {
		lg.Error("send orchestrator unavailable", "error", err)
		return service.UnavailableSender{Component: "send orchestrator", Err: err}
	}
	if events != nil {
		orchestrator.WithEvents(events)
	}
	return orchestrator
}

func sendOptions(cfg *config.Config) service.SendOptions {
	return service.SendOptions{
		BatchSize:    cfg.Send.BatchSize,
		Concurrency:  cfg.Send.BatchConcurrency,
		Timeout:      cfg.Send.Timeout,
		BatchTimeout: cfg.Send.BatchTimeout,
		DedupeTokens: cfg.Send.DedupeTokens,
	}
}

// RecoverStaleSends releases claims abandoned by a previous process. Errors
// are logged; startup continues.
func RecoverStaleSends(ctx context.Context, cfg *config.Config, store service.StaleClaimStore, lg *slog.Logger) {
	if _, err := service.RecoverStaleSends(ctx, store, sendOptions(cfg), time.Now().UTC(), lg); err != nil {
		lg.Error("stale claim recovery failed", "error", err)
	}
}
