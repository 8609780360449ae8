// internal/service/send_subscriber.go
package service

import (
	"context"
	"errors"
	"log/slog"

	appErrors "github.com/unclebandit/pushleopard-backend/internal/errors"
	"github.com/unclebandit/pushleopard-backend/internal/queue"
)

// StartCampaignSendSubscriber runs queued SendJobs through sender. Only
// failures that happened before any notification went out are retried.
func StartCampaignSendSubscriber(q queue.Queue, sender CampaignSender, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	return q.Subscribe(queue.CampaignSendsTopic, func(payload any) error {
		return HandleSendJob(context.Background(), sender, payload, logger)
	})
}

// HandleSendJob processes one queued job and classifies its failure.
func HandleSendJob(ctx context.Context, sender CampaignSender, payload any, logger *slog.Logger) error {
	job, err := queue.DecodeSendJob(payload)
	if err != nil {
		logger.Warn("invalid send job", "error", err)
		return queue.Permanent(err)
	}
	if job.CampaignID == "" {
		return queue.Permanent(errors.New("send job without campaign id"))
	}

	log := logger.With("campaign_id", job.CampaignID)
	log.Info("processing queued campaign send")

	summary, err := sender.Send(ctx, job.CampaignID)
	if err != nil {
		if !retryable(err) {
			log.Warn("queued send dropped", "error", err)
			return queue.Permanent(err)
		}
		log.Error("queued send failed", "error", err)
		return err
	}

	log.Info("queued send finished",
		"status", summary.Status,
		"recipients", summary.TotalSubscribers,
		"success", summary.SuccessCount,
		"failure", summary.FailureCount,
	)
	return nil
}

// retryable reports whether a failed send may be replayed. A send that reached
// the gateway is never replayed.
func retryable(err error) bool {
	var conflict *appErrors.SendConflictError
	var failed *appErrors.SendFailedError
	switch {
	case appErrors.IsNotFound(err), appErrors.IsValidation(err):
		return false
	case errors.Is(err, appErrors.ErrConfiguration):
		return false
	case errors.As(err, &conflict):
		return false
	case errors.As(err, &failed) && failed.Dispatched:
		return false
	}
	return true
}
